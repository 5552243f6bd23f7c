package notifier

import (
	"context"
	"time"
)

// Kind classifies a notification raised by the reconciliation loop or one
// of the request surfaces.
type Kind string

const (
	KindExpired  Kind = "expired"  // a holder's shift ran out
	KindReminder Kind = "reminder" // T-minus-lead heads-up for a booked slot
	KindHandoff  Kind = "handoff"  // a reservation was auto-activated
	KindRequest  Kind = "request"  // a manual booking was submitted
	KindReleased Kind = "released" // an admin released a title early
)

// Event is the payload handed to a Notifier. Fields that don't apply to a
// given kind stay zero.
type Event struct {
	Kind   Kind
	Title  string
	IGN    string
	Coords string
	By     string // submitting identity, request events only
	At     time.Time
}

// Notifier delivers one event. Implementations must honor the context
// deadline; the reconciliation loop never waits longer than its per-send
// timeout.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Func adapts a function to the Notifier interface (used in tests).
type Func func(ctx context.Context, ev Event) error

func (f Func) Notify(ctx context.Context, ev Event) error { return f(ctx, ev) }
