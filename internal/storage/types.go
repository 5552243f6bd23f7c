package storage

import (
	"context"
	"time"
)

// Config configures storage.
//
// Driver values:
//   - "sqlite": SQLite database file (the production backend)
//   - "memory": in-process map backend (tests, throwaway runs)
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// TitleStatus is the current holder state for one cataloged title.
//
// Holder fields are all-present or all-absent together: a title is either
// held or vacant, never partially filled. Held() is the canonical check.
type TitleStatus struct {
	Name            string
	HolderIGN       string
	HolderCoords    string
	HolderDiscordID int64
	ClaimDate       *time.Time
	ExpiryDate      *time.Time
}

// Held reports whether the title currently has a holder.
func (s TitleStatus) Held() bool { return s.HolderIGN != "" }

// AuditEntry records one successful manual reservation request.
// Append-only; the core never reads it back (only the web log view does).
type AuditEntry struct {
	ID     string
	At     time.Time
	Title  string
	IGN    string
	Coords string
	Actor  string // submitting identity (chat username or "web")
	Source string // "telegram" or "web"
}

// Store is the persistence API used by the reconciliation engine and the
// reservation surfaces. Every mutating operation commits durably before
// returning. All methods are safe for concurrent use.
type Store interface {
	// Init creates the schema if absent and inserts a vacant status row for
	// every cataloged title that has none. Existing rows are never touched,
	// so it is safe to call on every process start. The given names also fix
	// the display order used by AllStatuses.
	Init(ctx context.Context, titleNames []string) error

	// AllStatuses returns one TitleStatus per cataloged title, in
	// catalog-declared order.
	AllStatuses(ctx context.Context) ([]TitleStatus, error)

	// Status returns the status for one title, or nil if the title is
	// unknown to the store.
	Status(ctx context.Context, titleName string) (*TitleStatus, error)

	// Assign unconditionally overwrites the holder fields of the title.
	// Checking vacancy first is the caller's job.
	Assign(ctx context.Context, titleName, holderIGN, holderCoords string, holderDiscordID int64, claim, expiry time.Time) error

	// Release clears all holder fields. Releasing a vacant title is a no-op.
	Release(ctx context.Context, titleName string) error

	// ReserveSlot atomically inserts a reservation for (title, slot).
	// It returns false without side effect when the pair is already taken.
	ReserveSlot(ctx context.Context, titleName, slotKey, reserverIGN string) (bool, error)

	// Reservation returns the reserver IGN for (title, slot), or "" if none.
	Reservation(ctx context.Context, titleName, slotKey string) (string, error)

	// CancelReservation deletes the reservation and its activation marker
	// (if any) in one transaction.
	CancelReservation(ctx context.Context, titleName, slotKey string) error

	// IGNBookedForSlot returns the title name of any reservation held by ign
	// at slotKey across all titles, or "" if the IGN is free at that slot.
	IGNBookedForSlot(ctx context.Context, ign, slotKey string) (string, error)

	// AllSchedules maps title name -> slot key -> reserver IGN.
	AllSchedules(ctx context.Context) (map[string]map[string]string, error)

	// Reminder markers: set-membership, idempotent.
	MarkReminderSent(ctx context.Context, slotKey string) error
	ReminderSent(ctx context.Context, slotKey string) (bool, error)

	// Activation markers: set-membership, idempotent, scoped per title.
	MarkSlotActivated(ctx context.Context, titleName, slotKey string) error
	SlotActivated(ctx context.Context, titleName, slotKey string) (bool, error)

	// Audit log.
	AppendAudit(ctx context.Context, e AuditEntry) error
	AuditLog(ctx context.Context, limit int) ([]AuditEntry, error)

	Close() error
}
