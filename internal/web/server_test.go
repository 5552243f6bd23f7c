package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"titlekeeper/internal/catalog"
	"titlekeeper/internal/storage"
	"titlekeeper/internal/titles"
	logx "titlekeeper/pkg/logx"
)

func newTestServer(t *testing.T) (*Server, *titles.Service) {
	t.Helper()
	store := storage.NewMemory()
	if err := store.Init(context.Background(), catalog.Names()); err != nil {
		t.Fatalf("init store: %v", err)
	}
	svc := titles.New(titles.Config{}, store, nil, logx.Nop())
	srv, err := New(Config{Addr: ":0"}, svc, logx.Nop())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return srv, svc
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.e.ServeHTTP(rec, req)
	return rec
}

func postForm(t *testing.T, srv *Server, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.e.ServeHTTP(rec, req)
	return rec
}

func TestDashboard(t *testing.T) {
	t.Parallel()
	srv, svc := newTestServer(t)

	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	if err := svc.AssignManual(context.Background(), "Architect", "Alice", "1:2", 7, now); err != nil {
		t.Fatalf("assign: %v", err)
	}

	rec := get(t, srv, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Architect") || !strings.Contains(body, "Alice") {
		t.Fatalf("dashboard missing holder:\n%s", body)
	}
	if !strings.Contains(body, "Guardian of Harmony") {
		t.Fatal("dashboard missing catalog titles")
	}
}

func TestBookPageShowsGrid(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)

	rec := get(t, srv, "/book?title=Architect")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Book Architect") {
		t.Fatal("book page missing title heading")
	}

	rec = get(t, srv, "/book?title=Guardian+of+Fire")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("non-bookable title: status = %d", rec.Code)
	}
}

func TestBookSubmitAndConflict(t *testing.T) {
	t.Parallel()
	srv, svc := newTestServer(t)

	form := url.Values{
		"title": {"Architect"},
		"ign":   {"Alice"},
		"slot":  {"2026-09-05T15:00:00"},
	}
	rec := postForm(t, srv, "/book", form)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, body:\n%s", rec.Code, rec.Body.String())
	}

	schedules, err := svc.Schedules(context.Background())
	if err != nil {
		t.Fatalf("schedules: %v", err)
	}
	if got := schedules["Architect"]["2026-09-05T15:00:00"]; got != "Alice" {
		t.Fatalf("reserver = %q, want Alice", got)
	}

	// Same pair again loses to the first writer.
	form.Set("ign", "Bob")
	rec = postForm(t, srv, "/book", form)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate booking: status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Alice") {
		t.Fatal("conflict page should name the existing reserver")
	}
}

func TestBookSubmitValidation(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)

	rec := postForm(t, srv, "/book", url.Values{
		"title": {"Architect"},
		"ign":   {"Alice"},
		"slot":  {"not-a-slot"},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed slot: status = %d", rec.Code)
	}

	rec = postForm(t, srv, "/book", url.Values{
		"title": {"Guardian of Fire"},
		"ign":   {"Alice"},
		"slot":  {"2026-09-05T15:00:00"},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("non-bookable title: status = %d", rec.Code)
	}
}

func TestCancelBooking(t *testing.T) {
	t.Parallel()
	srv, svc := newTestServer(t)
	ctx := context.Background()

	if err := svc.Reserve(ctx, "Architect", "2026-09-05T18:00:00", "Alice"); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	rec := postForm(t, srv, "/cancel", url.Values{
		"title": {"Architect"},
		"slot":  {"2026-09-05T18:00:00"},
		"ign":   {"Bob"},
	})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); !strings.Contains(loc, "different+name") {
		t.Fatalf("expected not-owner message, got %q", loc)
	}

	rec = postForm(t, srv, "/cancel", url.Values{
		"title": {"Architect"},
		"slot":  {"2026-09-05T18:00:00"},
		"ign":   {"alice"},
	})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d", rec.Code)
	}

	schedules, err := svc.Schedules(ctx)
	if err != nil {
		t.Fatalf("schedules: %v", err)
	}
	if _, ok := schedules["Architect"]["2026-09-05T18:00:00"]; ok {
		t.Fatal("booking still present after cancel")
	}
}

func TestAuditLogPage(t *testing.T) {
	t.Parallel()
	srv, svc := newTestServer(t)

	svc.RecordRequest(context.Background(), "Architect", "Alice", "1:2", "Alice", "web",
		time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC))

	rec := get(t, srv, "/log")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Architect") || !strings.Contains(body, "web") {
		t.Fatalf("log page missing entry:\n%s", body)
	}
}
