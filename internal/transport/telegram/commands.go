package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"titlekeeper/internal/catalog"
	"titlekeeper/internal/titles"
	logx "titlekeeper/pkg/logx"
)

const handlerTimeout = 10 * time.Second

const helpText = `<b>titlekeeper</b>
/titles — current holders and reservations
/schedule Title | IGN | YYYY-MM-DD | HH:MM — book a 3-hour shift (UTC)
/unschedule Title | YYYY-MM-DD | HH:MM — cancel your booking
/assign Title | IGN | coords — hand a title over now (admin)
/release Title — vacate a title now (admin)`

func (b *Bot) registerHandlers() {
	b.bot.Handle("/start", func(c tele.Context) error { return c.Send(helpText) })
	b.bot.Handle("/help", func(c tele.Context) error { return c.Send(helpText) })
	b.bot.Handle("/titles", b.handleTitles)
	b.bot.Handle("/schedule", b.handleSchedule)
	b.bot.Handle("/unschedule", b.handleUnschedule)
	b.bot.Handle("/assign", b.adminOnly(b.handleAssign))
	b.bot.Handle("/release", b.adminOnly(b.handleRelease))
}

func (b *Bot) adminOnly(h tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if c.Sender() == nil || !b.isAdmin(c.Sender().ID) {
			return c.Send("This command is restricted to admins.")
		}
		return h(c)
	}
}

func handlerContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), handlerTimeout)
}

func (b *Bot) handleTitles(c tele.Context) error {
	ctx, cancel := handlerContext()
	defer cancel()

	statuses, err := b.svc.Statuses(ctx)
	if err != nil {
		b.log.Error("titles command", logx.Err(err))
		return c.Send("Could not load title statuses, try again later.")
	}

	now := time.Now().UTC()
	var sb strings.Builder
	sb.WriteString("<b>Titles</b>\n")
	for _, st := range statuses {
		sb.WriteString("\n<b>")
		sb.WriteString(html.EscapeString(st.Name))
		sb.WriteString("</b>")
		if catalog.IsRequestable(st.Name) {
			sb.WriteString(" (bookable)")
		}
		sb.WriteString(": ")
		if !st.Held() {
			sb.WriteString("vacant")
			continue
		}
		sb.WriteString(html.EscapeString(st.HolderIGN))
		if st.ExpiryDate != nil {
			if left := st.ExpiryDate.Sub(now); left > 0 {
				sb.WriteString(fmt.Sprintf(" — %s left", left.Round(time.Minute)))
			} else {
				sb.WriteString(" — expiring")
			}
		}
	}
	return c.Send(sb.String())
}

func (b *Bot) handleSchedule(c tele.Context) error {
	args, err := ParseScheduleArgs(c.Message().Payload)
	if err != nil {
		return c.Send(html.EscapeString(err.Error()))
	}

	ctx, cancel := handlerContext()
	defer cancel()

	slotKey := slotKeyOf(args.Slot)
	if err := b.svc.Reserve(ctx, args.Title, slotKey, args.IGN); err != nil {
		return c.Send(reserveErrorReply(err, args.Title))
	}

	end := args.Slot.Add(b.svc.ShiftDuration())
	return c.Send(fmt.Sprintf("Booked <b>%s</b> for <b>%s</b>, %s–%s UTC.",
		html.EscapeString(args.Title), html.EscapeString(args.IGN),
		args.Slot.Format("2006-01-02 15:04"), end.Format("15:04")))
}

func reserveErrorReply(err error, title string) string {
	var taken *titles.SlotTakenError
	var conflict *titles.ConflictError
	switch {
	case errors.Is(err, titles.ErrUnknownTitle):
		return fmt.Sprintf("Unknown title %q. Use /titles to see the roster.", title)
	case errors.Is(err, titles.ErrNotRequestable):
		return fmt.Sprintf("%q cannot be booked, it is assigned by the guardians.", title)
	case errors.As(err, &taken):
		return fmt.Sprintf("That slot is already taken by <b>%s</b>.", html.EscapeString(taken.Reserver))
	case errors.As(err, &conflict):
		return fmt.Sprintf("You already hold a booking for <b>%s</b> in that slot.", html.EscapeString(conflict.OtherTitle))
	default:
		return "Booking failed, try again later."
	}
}

func (b *Bot) handleUnschedule(c tele.Context) error {
	args, err := ParseUnscheduleArgs(c.Message().Payload)
	if err != nil {
		return c.Send(html.EscapeString(err.Error()))
	}

	ctx, cancel := handlerContext()
	defer cancel()

	// Ordinary users may cancel only bookings made under their own
	// Telegram username as IGN; admins may cancel anything.
	requester := ""
	privileged := false
	if s := c.Sender(); s != nil {
		requester = s.Username
		privileged = b.isAdmin(s.ID)
	}

	former, err := b.svc.Cancel(ctx, args.Title, slotKeyOf(args.Slot), requester, privileged)
	switch {
	case errors.Is(err, titles.ErrNoReservation):
		return c.Send("No booking found for that title and slot.")
	case errors.Is(err, titles.ErrNotOwner):
		return c.Send("That booking belongs to someone else.")
	case err != nil:
		b.log.Error("unschedule command", logx.Err(err))
		return c.Send("Cancel failed, try again later.")
	}
	return c.Send(fmt.Sprintf("Cancelled <b>%s</b>'s booking of <b>%s</b>.",
		html.EscapeString(former), html.EscapeString(args.Title)))
}

func (b *Bot) handleAssign(c tele.Context) error {
	args, err := ParseAssignArgs(c.Message().Payload)
	if err != nil {
		return c.Send(html.EscapeString(err.Error()))
	}

	ctx, cancel := handlerContext()
	defer cancel()

	var senderID int64
	if s := c.Sender(); s != nil {
		senderID = s.ID
	}
	if err := b.svc.AssignManual(ctx, args.Title, args.IGN, args.Coords, senderID, time.Now().UTC()); err != nil {
		if errors.Is(err, titles.ErrUnknownTitle) {
			return c.Send(fmt.Sprintf("Unknown title %q.", args.Title))
		}
		b.log.Error("assign command", logx.Err(err))
		return c.Send("Assign failed, try again later.")
	}
	return c.Send(fmt.Sprintf("<b>%s</b> assigned to <b>%s</b>.",
		html.EscapeString(args.Title), html.EscapeString(args.IGN)))
}

func (b *Bot) handleRelease(c tele.Context) error {
	title := strings.TrimSpace(c.Message().Payload)
	if title == "" {
		return c.Send("usage: /release Title")
	}

	ctx, cancel := handlerContext()
	defer cancel()

	former, err := b.svc.ReleaseManual(ctx, title)
	if err != nil {
		if errors.Is(err, titles.ErrUnknownTitle) {
			return c.Send(fmt.Sprintf("Unknown title %q.", title))
		}
		b.log.Error("release command", logx.Err(err))
		return c.Send("Release failed, try again later.")
	}
	if former == "" {
		return c.Send(fmt.Sprintf("<b>%s</b> was already vacant.", html.EscapeString(title)))
	}
	return c.Send(fmt.Sprintf("<b>%s</b> released from <b>%s</b>.",
		html.EscapeString(title), html.EscapeString(former)))
}
