package titles

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"titlekeeper/internal/catalog"
	"titlekeeper/internal/notifier"
	"titlekeeper/internal/storage"
	logx "titlekeeper/pkg/logx"
)

// recorder captures events and optionally fails every send.
type recorder struct {
	mu     sync.Mutex
	events []notifier.Event
	fail   error
}

func (r *recorder) Notify(_ context.Context, ev notifier.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) count(kind notifier.Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func (r *recorder) last() (notifier.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return notifier.Event{}, false
	}
	return r.events[len(r.events)-1], true
}

func newTestService(t *testing.T) (*Service, storage.Store, *recorder) {
	t.Helper()
	st := storage.NewMemory()
	if err := st.Init(context.Background(), catalog.Names()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	rec := &recorder{}
	svc := New(Config{}, st, rec, logx.Nop())
	return svc, st, rec
}

func TestReserveCancelScenario(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	const slot = "2025-01-01T00:00:00"

	if err := svc.Reserve(ctx, "Architect", slot, "Alice"); err != nil {
		t.Fatalf("first reserve: %v", err)
	}

	err := svc.Reserve(ctx, "Architect", slot, "Bob")
	var taken *SlotTakenError
	if !errors.As(err, &taken) {
		t.Fatalf("expected *SlotTakenError, got %v", err)
	}
	if taken.Reserver != "Alice" {
		t.Fatalf("SlotTaken names %q, want Alice", taken.Reserver)
	}

	if _, err := svc.Cancel(ctx, "Architect", slot, "Bob", false); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("cancel by non-owner: got %v, want ErrNotOwner", err)
	}

	former, err := svc.Cancel(ctx, "Architect", slot, "ALICE", false)
	if err != nil {
		t.Fatalf("cancel by owner (case-insensitive): %v", err)
	}
	if former != "Alice" {
		t.Fatalf("cancel returned %q, want Alice", former)
	}

	if err := svc.Reserve(ctx, "Architect", slot, "Bob"); err != nil {
		t.Fatalf("re-reserve after cancel: %v", err)
	}
}

func TestReserveUnknownTitle(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService(t)
	err := svc.Reserve(context.Background(), "Emperor", "2025-01-01T00:00:00", "Alice")
	if !errors.Is(err, ErrUnknownTitle) {
		t.Fatalf("got %v, want ErrUnknownTitle", err)
	}
}

func TestReserveNotRequestable(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService(t)
	err := svc.Reserve(context.Background(), "Guardian of Fire", "2025-01-01T00:00:00", "Alice")
	if !errors.Is(err, ErrNotRequestable) {
		t.Fatalf("got %v, want ErrNotRequestable", err)
	}
}

func TestReserveConflictingBookingSameSlot(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	const slot = "2025-01-01T03:00:00"

	if err := svc.Reserve(ctx, "Governor", slot, "Alice"); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	err := svc.Reserve(ctx, "Prefect", slot, "Alice")
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected *ConflictError, got %v", err)
	}
	if conflict.OtherTitle != "Governor" {
		t.Fatalf("conflict names %q, want Governor", conflict.OtherTitle)
	}

	// A different slot is fine.
	if err := svc.Reserve(ctx, "Prefect", "2025-01-01T06:00:00", "Alice"); err != nil {
		t.Fatalf("reserve other slot: %v", err)
	}
}

func TestCancelAbsentReservation(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService(t)
	_, err := svc.Cancel(context.Background(), "Architect", "2025-01-01T00:00:00", "Alice", false)
	if !errors.Is(err, ErrNoReservation) {
		t.Fatalf("got %v, want ErrNoReservation", err)
	}
}

func TestCancelPrivilegedOverride(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	const slot = "2025-02-01T12:00:00"

	if err := svc.Reserve(ctx, "General", slot, "Alice"); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	former, err := svc.Cancel(ctx, "General", slot, "admin", true)
	if err != nil {
		t.Fatalf("privileged cancel: %v", err)
	}
	if former != "Alice" {
		t.Fatalf("cancel returned %q, want Alice", former)
	}
}

func TestConcurrentReserveOneWinner(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	const slot = "2025-03-01T09:00:00"

	type result struct {
		ign string
		err error
	}
	results := make(chan result, 2)
	var wg sync.WaitGroup
	for _, ign := range []string{"Alice", "Bob"} {
		ign := ign
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- result{ign: ign, err: svc.Reserve(ctx, "Architect", slot, ign)}
		}()
	}
	wg.Wait()
	close(results)

	var winners, losers []result
	for r := range results {
		if r.err == nil {
			winners = append(winners, r)
		} else {
			losers = append(losers, r)
		}
	}
	if len(winners) != 1 || len(losers) != 1 {
		t.Fatalf("expected 1 winner / 1 loser, got %d / %d", len(winners), len(losers))
	}
	var taken *SlotTakenError
	if !errors.As(losers[0].err, &taken) {
		t.Fatalf("loser got %v, want *SlotTakenError", losers[0].err)
	}
	if taken.Reserver != winners[0].ign {
		t.Fatalf("SlotTaken names %q, want winner %q", taken.Reserver, winners[0].ign)
	}
}

func TestReleaseManualNotifiesFormerHolder(t *testing.T) {
	t.Parallel()
	svc, st, rec := newTestService(t)
	ctx := context.Background()

	now := mustParse(t, "2025-01-01T10:00:00")
	if err := st.Assign(ctx, "Governor", "Alice", "(1,1)", 5, now, now.Add(3*time.Hour)); err != nil {
		t.Fatalf("Assign: %v", err)
	}

	former, err := svc.ReleaseManual(ctx, "Governor")
	if err != nil {
		t.Fatalf("ReleaseManual: %v", err)
	}
	if former != "Alice" {
		t.Fatalf("former holder = %q, want Alice", former)
	}
	if rec.count(notifier.KindReleased) != 1 {
		t.Fatalf("expected one released notification, got %d", rec.count(notifier.KindReleased))
	}

	// Releasing a vacant title is a quiet no-op.
	former, err = svc.ReleaseManual(ctx, "Governor")
	if err != nil || former != "" {
		t.Fatalf("vacant release: former=%q err=%v", former, err)
	}
	if rec.count(notifier.KindReleased) != 1 {
		t.Fatal("vacant release must not notify")
	}
}

func TestRecordRequestAppendsAuditAndNotifies(t *testing.T) {
	t.Parallel()
	svc, st, rec := newTestService(t)
	ctx := context.Background()

	at := mustParse(t, "2025-05-01T08:00:00")
	svc.RecordRequest(ctx, "Prefect", "Alice", "(3,4)", "alice#1234", "web", at)

	entries, err := st.AuditLog(ctx, 10)
	if err != nil {
		t.Fatalf("AuditLog: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(entries))
	}
	e := entries[0]
	if e.ID == "" {
		t.Fatal("audit entry has no id")
	}
	if e.Title != "Prefect" || e.IGN != "Alice" || e.Source != "web" {
		t.Fatalf("unexpected audit entry: %+v", e)
	}
	if rec.count(notifier.KindRequest) != 1 {
		t.Fatalf("expected one request notification, got %d", rec.count(notifier.KindRequest))
	}
}
