package web

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"

	"titlekeeper/internal/catalog"
	"titlekeeper/internal/clock"
	"titlekeeper/internal/titles"
	logx "titlekeeper/pkg/logx"
)

const auditPageSize = 50

type statusView struct {
	Name        string
	Effects     string
	Icon        string
	Requestable bool
	HolderIGN   string
	Remaining   string
}

type dashboardView struct {
	Statuses []statusView
	Now      string
}

type bookView struct {
	Titles  []string // requestable titles for the picker
	Title   string   // selected title
	Grid    []gridDay
	Message string
	Success bool
}

type logView struct {
	Entries []logEntryView
}

type logEntryView struct {
	At     string
	Title  string
	IGN    string
	Coords string
	Actor  string
	Source string
}

func (s *Server) handleDashboard(c echo.Context) error {
	ctx := c.Request().Context()
	statuses, err := s.svc.Statuses(ctx)
	if err != nil {
		s.log.Error("dashboard", logx.Err(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "status lookup failed")
	}

	now := time.Now().UTC()
	view := dashboardView{Now: now.Format("2006-01-02 15:04 UTC")}
	for _, st := range statuses {
		sv := statusView{
			Name:        st.Name,
			Requestable: catalog.IsRequestable(st.Name),
			HolderIGN:   st.HolderIGN,
		}
		if t, ok := catalog.Get(st.Name); ok {
			sv.Effects = t.Effects
			sv.Icon = t.IconFilename
		}
		if st.Held() && st.ExpiryDate != nil {
			if left := st.ExpiryDate.Sub(now); left > 0 {
				sv.Remaining = left.Round(time.Minute).String()
			} else {
				sv.Remaining = "expiring"
			}
		}
		view.Statuses = append(view.Statuses, sv)
	}
	return c.Render(http.StatusOK, "dashboard.html", view)
}

func (s *Server) handleBookForm(c echo.Context) error {
	return s.renderBookPage(c, http.StatusOK, c.QueryParam("title"), c.QueryParam("msg"), c.QueryParam("ok") == "1")
}

func (s *Server) renderBookPage(c echo.Context, code int, title, message string, success bool) error {
	requestable := requestableNames()
	if title == "" {
		title = requestable[0]
	}
	if !catalog.IsRequestable(title) {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown or non-bookable title")
	}

	schedules, err := s.svc.Schedules(c.Request().Context())
	if err != nil {
		s.log.Error("book page", logx.Err(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "schedule lookup failed")
	}

	view := bookView{
		Titles:  requestable,
		Title:   title,
		Grid:    buildGrid(schedules[title], time.Now(), s.svc.ShiftDuration()),
		Message: message,
		Success: success,
	}
	return c.Render(code, "book.html", view)
}

func requestableNames() []string {
	var out []string
	for _, t := range catalog.All() {
		if catalog.IsRequestable(t.Name) {
			out = append(out, t.Name)
		}
	}
	return out
}

func (s *Server) handleBookSubmit(c echo.Context) error {
	title := c.FormValue("title")
	ign := c.FormValue("ign")
	coords := c.FormValue("coords")
	slotKey := c.FormValue("slot")

	if ign == "" || slotKey == "" {
		return s.renderBookPage(c, http.StatusBadRequest, title, "In-game name and slot are required.", false)
	}
	slot, err := clock.ParseSlotKey(slotKey)
	if err != nil {
		return s.renderBookPage(c, http.StatusBadRequest, title, "Malformed slot.", false)
	}

	ctx := c.Request().Context()
	if err := s.svc.Reserve(ctx, title, slotKey, ign); err != nil {
		return s.renderBookPage(c, bookErrorStatus(err), title, bookErrorMessage(err), false)
	}
	s.svc.RecordRequest(ctx, title, ign, coords, ign, "web", time.Now().UTC())

	msg := fmt.Sprintf("Booked %s on %s UTC.", title, slot.Format("2006-01-02 15:04"))
	return redirectToBook(c, title, msg, true)
}

func (s *Server) handleCancel(c echo.Context) error {
	title := c.FormValue("title")
	slotKey := c.FormValue("slot")
	ign := c.FormValue("ign")

	_, err := s.svc.Cancel(c.Request().Context(), title, slotKey, ign, false)
	switch {
	case errors.Is(err, titles.ErrNoReservation):
		return redirectToBook(c, title, "No such booking.", false)
	case errors.Is(err, titles.ErrNotOwner):
		return redirectToBook(c, title, "That booking belongs to a different name.", false)
	case err != nil:
		s.log.Error("cancel", logx.Err(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "cancel failed")
	}
	return redirectToBook(c, title, "Booking cancelled.", true)
}

func bookErrorStatus(err error) int {
	var taken *titles.SlotTakenError
	var conflict *titles.ConflictError
	switch {
	case errors.Is(err, titles.ErrUnknownTitle), errors.Is(err, titles.ErrNotRequestable):
		return http.StatusBadRequest
	case errors.As(err, &taken), errors.As(err, &conflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func bookErrorMessage(err error) string {
	var taken *titles.SlotTakenError
	var conflict *titles.ConflictError
	switch {
	case errors.Is(err, titles.ErrUnknownTitle):
		return "Unknown title."
	case errors.Is(err, titles.ErrNotRequestable):
		return "That title cannot be booked."
	case errors.As(err, &taken):
		return fmt.Sprintf("Slot already taken by %s.", taken.Reserver)
	case errors.As(err, &conflict):
		return fmt.Sprintf("You already hold a booking for %s in that slot.", conflict.OtherTitle)
	default:
		return "Booking failed, try again later."
	}
}

func redirectToBook(c echo.Context, title, msg string, ok bool) error {
	q := url.Values{}
	q.Set("title", title)
	q.Set("msg", msg)
	if ok {
		q.Set("ok", "1")
	}
	return c.Redirect(http.StatusSeeOther, "/book?"+q.Encode())
}

func (s *Server) handleLog(c echo.Context) error {
	entries, err := s.svc.AuditLog(c.Request().Context(), auditPageSize)
	if err != nil {
		s.log.Error("audit log", logx.Err(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "audit lookup failed")
	}
	view := logView{}
	for _, e := range entries {
		view.Entries = append(view.Entries, logEntryView{
			At:     e.At.UTC().Format("2006-01-02 15:04"),
			Title:  e.Title,
			IGN:    e.IGN,
			Coords: e.Coords,
			Actor:  e.Actor,
			Source: e.Source,
		})
	}
	return c.Render(http.StatusOK, "log.html", view)
}
