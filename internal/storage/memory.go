package storage

import (
	"context"
	"sync"
	"time"
)

type slotRef struct {
	title string
	slot  string
}

// memoryStore is a map-backed Store with the same semantics as the sqlite
// backend, including atomic check-and-insert on ReserveSlot. It backs tests
// and throwaway runs; nothing survives the process.
type memoryStore struct {
	mu sync.Mutex

	order     []string
	titles    map[string]TitleStatus
	schedules map[slotRef]string // (title, slot) -> reserver IGN
	reminders map[string]struct{}
	activated map[slotRef]struct{}
	audit     []AuditEntry
}

// NewMemory returns an empty in-process store.
func NewMemory() Store {
	return &memoryStore{
		titles:    map[string]TitleStatus{},
		schedules: map[slotRef]string{},
		reminders: map[string]struct{}{},
		activated: map[slotRef]struct{}{},
	}
}

func (s *memoryStore) Init(_ context.Context, titleNames []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = append([]string(nil), titleNames...)
	for _, name := range titleNames {
		if _, ok := s.titles[name]; !ok {
			s.titles[name] = TitleStatus{Name: name}
		}
	}
	return nil
}

func (s *memoryStore) Close() error { return nil }

func (s *memoryStore) AllStatuses(context.Context) ([]TitleStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TitleStatus, 0, len(s.order))
	for _, name := range s.order {
		if st, ok := s.titles[name]; ok {
			out = append(out, st)
		}
	}
	return out, nil
}

func (s *memoryStore) Status(_ context.Context, titleName string) (*TitleStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.titles[titleName]
	if !ok {
		return nil, nil
	}
	cp := st
	return &cp, nil
}

func (s *memoryStore) Assign(_ context.Context, titleName, holderIGN, holderCoords string, holderDiscordID int64, claim, expiry time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.titles[titleName]
	if !ok {
		st = TitleStatus{Name: titleName}
	}
	claim, expiry = claim.UTC(), expiry.UTC()
	st.HolderIGN = holderIGN
	st.HolderCoords = holderCoords
	st.HolderDiscordID = holderDiscordID
	st.ClaimDate = &claim
	st.ExpiryDate = &expiry
	s.titles[titleName] = st
	return nil
}

func (s *memoryStore) Release(_ context.Context, titleName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.titles[titleName]
	if !ok {
		return nil
	}
	s.titles[titleName] = TitleStatus{Name: st.Name}
	return nil
}

func (s *memoryStore) ReserveSlot(_ context.Context, titleName, slotKey, reserverIGN string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref := slotRef{titleName, slotKey}
	if _, taken := s.schedules[ref]; taken {
		return false, nil
	}
	s.schedules[ref] = reserverIGN
	return true, nil
}

func (s *memoryStore) Reservation(_ context.Context, titleName, slotKey string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schedules[slotRef{titleName, slotKey}], nil
}

func (s *memoryStore) CancelReservation(_ context.Context, titleName, slotKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref := slotRef{titleName, slotKey}
	delete(s.schedules, ref)
	delete(s.activated, ref)
	return nil
}

func (s *memoryStore) IGNBookedForSlot(_ context.Context, ign, slotKey string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ref, booked := range s.schedules {
		if ref.slot == slotKey && booked == ign {
			return ref.title, nil
		}
	}
	return "", nil
}

func (s *memoryStore) AllSchedules(context.Context) (map[string]map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]map[string]string{}
	for ref, ign := range s.schedules {
		m := out[ref.title]
		if m == nil {
			m = map[string]string{}
			out[ref.title] = m
		}
		m[ref.slot] = ign
	}
	return out, nil
}

func (s *memoryStore) MarkReminderSent(_ context.Context, slotKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reminders[slotKey] = struct{}{}
	return nil
}

func (s *memoryStore) ReminderSent(_ context.Context, slotKey string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.reminders[slotKey]
	return ok, nil
}

func (s *memoryStore) MarkSlotActivated(_ context.Context, titleName, slotKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activated[slotRef{titleName, slotKey}] = struct{}{}
	return nil
}

func (s *memoryStore) SlotActivated(_ context.Context, titleName, slotKey string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.activated[slotRef{titleName, slotKey}]
	return ok, nil
}

func (s *memoryStore) AppendAudit(_ context.Context, e AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	s.audit = append(s.audit, e)
	return nil
}

func (s *memoryStore) AuditLog(_ context.Context, limit int) ([]AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit > len(s.audit) {
		limit = len(s.audit)
	}
	out := make([]AuditEntry, 0, limit)
	for i := len(s.audit) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.audit[i])
	}
	return out, nil
}
