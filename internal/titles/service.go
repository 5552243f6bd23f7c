// Package titles is the shift-scheduling core: the reservation API used by
// the chat and web surfaces, and the periodic reconciliation tick that
// expires holders, fires reminders and activates booked slots.
package titles

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"titlekeeper/internal/catalog"
	"titlekeeper/internal/notifier"
	"titlekeeper/internal/storage"
	logx "titlekeeper/pkg/logx"
)

// Config holds the scheduling knobs.
type Config struct {
	ShiftDuration time.Duration // length of one shift; default 3h
	ReminderLead  time.Duration // heads-up before shift start; default 5m
}

func (c Config) withDefaults() Config {
	if c.ShiftDuration <= 0 {
		c.ShiftDuration = 3 * time.Hour
	}
	if c.ReminderLead <= 0 {
		c.ReminderLead = 5 * time.Minute
	}
	return c
}

// Service owns all title mutations. One mutex serializes the reconciliation
// tick and every request-driven mutation, so a manual release is never
// interleaved mid-tick against the same title. Reads outside the mutation
// paths go straight to the store.
type Service struct {
	mu sync.Mutex

	store storage.Store
	notif notifier.Notifier
	log   logx.Logger
	cfg   Config
}

func New(cfg Config, store storage.Store, notif notifier.Notifier, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		store: store,
		notif: notif,
		log:   log,
		cfg:   cfg.withDefaults(),
	}
}

// ShiftDuration exposes the configured shift length for the surfaces.
func (s *Service) ShiftDuration() time.Duration { return s.cfg.ShiftDuration }

// Reserve books (title, slot) for ign. It fails with ErrUnknownTitle,
// ErrNotRequestable, *ConflictError (ign already booked elsewhere in that
// slot) or *SlotTakenError (pair taken; first writer wins).
func (s *Service) Reserve(ctx context.Context, titleName, slotKey, ign string) error {
	if !catalog.Contains(titleName) {
		return fmt.Errorf("%w: %q", ErrUnknownTitle, titleName)
	}
	if !catalog.IsRequestable(titleName) {
		return fmt.Errorf("%w: %q", ErrNotRequestable, titleName)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if other, err := s.store.IGNBookedForSlot(ctx, ign, slotKey); err != nil {
		return fmt.Errorf("booking check: %w", err)
	} else if other != "" {
		return &ConflictError{OtherTitle: other}
	}

	ok, err := s.store.ReserveSlot(ctx, titleName, slotKey, ign)
	if err != nil {
		return fmt.Errorf("reserve slot: %w", err)
	}
	if !ok {
		existing, err := s.store.Reservation(ctx, titleName, slotKey)
		if err != nil {
			return fmt.Errorf("reserve slot: %w", err)
		}
		return &SlotTakenError{Reserver: existing}
	}

	s.log.Info("slot reserved",
		logx.String("title", titleName),
		logx.String("slot", slotKey),
		logx.String("ign", ign))
	return nil
}

// Cancel removes the reservation for (title, slot). Only the reserver
// (case-insensitive IGN match) or a privileged caller may cancel. It
// returns the former reserver's IGN.
func (s *Service) Cancel(ctx context.Context, titleName, slotKey, requester string, privileged bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reserver, err := s.store.Reservation(ctx, titleName, slotKey)
	if err != nil {
		return "", fmt.Errorf("lookup reservation: %w", err)
	}
	if reserver == "" {
		return "", ErrNoReservation
	}
	if !privileged && !strings.EqualFold(reserver, requester) {
		return "", ErrNotOwner
	}

	if err := s.store.CancelReservation(ctx, titleName, slotKey); err != nil {
		return "", fmt.Errorf("cancel reservation: %w", err)
	}

	s.log.Info("reservation cancelled",
		logx.String("title", titleName),
		logx.String("slot", slotKey),
		logx.String("by", requester))
	return reserver, nil
}

// AssignManual hands a title to a holder right now, for one shift. The
// admin surfaces call this; it overwrites whatever holder state exists.
func (s *Service) AssignManual(ctx context.Context, titleName, ign, coords string, discordID int64, now time.Time) error {
	if !catalog.Contains(titleName) {
		return fmt.Errorf("%w: %q", ErrUnknownTitle, titleName)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Assign(ctx, titleName, ign, coords, discordID, now, now.Add(s.cfg.ShiftDuration)); err != nil {
		return fmt.Errorf("assign: %w", err)
	}
	s.log.Info("title assigned",
		logx.String("title", titleName),
		logx.String("ign", ign))
	return nil
}

// ReleaseManual vacates a title ahead of its expiry and announces it.
// It returns the former holder's IGN, or "" if the title was vacant.
func (s *Service) ReleaseManual(ctx context.Context, titleName string) (string, error) {
	if !catalog.Contains(titleName) {
		return "", fmt.Errorf("%w: %q", ErrUnknownTitle, titleName)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.store.Status(ctx, titleName)
	if err != nil {
		return "", fmt.Errorf("status: %w", err)
	}
	if st == nil || !st.Held() {
		return "", nil
	}
	holder := st.HolderIGN

	if err := s.store.Release(ctx, titleName); err != nil {
		return "", fmt.Errorf("release: %w", err)
	}
	s.log.Info("title released", logx.String("title", titleName), logx.String("ign", holder))

	s.notifyBestEffort(ctx, notifier.Event{
		Kind:  notifier.KindReleased,
		Title: titleName,
		IGN:   holder,
		At:    time.Now().UTC(),
	})
	return holder, nil
}

// RecordRequest audit-logs a successful manual reservation and announces
// it. Notification failures are logged, never propagated.
func (s *Service) RecordRequest(ctx context.Context, titleName, ign, coords, actor, source string, at time.Time) {
	entry := storage.AuditEntry{
		ID:     uuid.NewString(),
		At:     at,
		Title:  titleName,
		IGN:    ign,
		Coords: coords,
		Actor:  actor,
		Source: source,
	}
	if err := s.store.AppendAudit(ctx, entry); err != nil {
		s.log.Error("audit append failed", logx.String("title", titleName), logx.Err(err))
	}

	s.notifyBestEffort(ctx, notifier.Event{
		Kind:   notifier.KindRequest,
		Title:  titleName,
		IGN:    ign,
		Coords: coords,
		By:     actor,
		At:     at,
	})
}

// Statuses returns the current holder state for every cataloged title in
// display order.
func (s *Service) Statuses(ctx context.Context) ([]storage.TitleStatus, error) {
	return s.store.AllStatuses(ctx)
}

// Schedules returns all reservations: title -> slot key -> reserver IGN.
func (s *Service) Schedules(ctx context.Context) (map[string]map[string]string, error) {
	return s.store.AllSchedules(ctx)
}

// AuditLog returns the most recent audit entries, newest first.
func (s *Service) AuditLog(ctx context.Context, limit int) ([]storage.AuditEntry, error) {
	return s.store.AuditLog(ctx, limit)
}

func (s *Service) notifyBestEffort(ctx context.Context, ev notifier.Event) {
	if s.notif == nil {
		return
	}
	if err := s.notif.Notify(ctx, ev); err != nil {
		s.log.Warn("notification failed",
			logx.String("kind", string(ev.Kind)),
			logx.String("title", ev.Title),
			logx.Err(err))
	}
}
