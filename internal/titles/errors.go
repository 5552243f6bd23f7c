package titles

import (
	"errors"
	"fmt"
)

// Validation and authorization failures. These are expected outcomes of
// legitimate use, surfaced to the caller as plain feedback, never as faults.
var (
	ErrUnknownTitle   = errors.New("unknown title")
	ErrNotRequestable = errors.New("title is not open to requests")
	ErrNoReservation  = errors.New("no reservation for that slot")
	ErrNotOwner       = errors.New("reservation belongs to someone else")
)

// SlotTakenError reports that a (title, slot) pair is already reserved.
// It names the winner so the caller can tell the user who beat them to it.
type SlotTakenError struct {
	Reserver string
}

func (e *SlotTakenError) Error() string {
	return fmt.Sprintf("slot already booked by %s", e.Reserver)
}

// ConflictError reports that the same IGN already holds a reservation for
// another title in the same slot.
type ConflictError struct {
	OtherTitle string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("already booked for %q in that slot", e.OtherTitle)
}
