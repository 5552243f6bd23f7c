// Package clock normalizes every timestamp in titlekeeper to UTC and derives
// the canonical slot key used to join reservations, reminder markers and
// activation markers.
package clock

import (
	"fmt"
	"time"
)

// SlotKeyLayout is the canonical shift-start identity: UTC, minute
// precision, no offset. Two instants that collapse to the same UTC minute
// produce the same key.
const SlotKeyLayout = "2006-01-02T15:04:05"

// ParseError reports a malformed timestamp.
type ParseError struct {
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse instant %q: %v", e.Input, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Now returns the current instant in UTC.
func Now() time.Time { return time.Now().UTC() }

// instantLayouts are tried in order by ParseInstant. Offset-free layouts
// are interpreted as UTC.
var instantLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseInstant parses an ISO-8601 timestamp. Inputs without a timezone
// offset are treated as UTC; the result is always UTC-normalized.
func ParseInstant(s string) (time.Time, error) {
	for _, layout := range instantLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
	}
	_, err := time.Parse(time.RFC3339, s)
	return time.Time{}, &ParseError{Input: s, Err: err}
}

// SlotKey renders the canonical slot key for a shift start: converted to
// UTC and truncated to the minute.
func SlotKey(t time.Time) string {
	return t.UTC().Truncate(time.Minute).Format(SlotKeyLayout)
}

// ParseSlotKey converts a slot key back into its UTC shift-start instant.
func ParseSlotKey(key string) (time.Time, error) {
	t, err := time.Parse(SlotKeyLayout, key)
	if err != nil {
		return time.Time{}, &ParseError{Input: key, Err: err}
	}
	return t.UTC(), nil
}

// IsWithinShift reports whether now falls inside the shift window
// [slotStart, slotStart+shift).
func IsWithinShift(slotStart, now time.Time, shift time.Duration) bool {
	return !now.Before(slotStart) && now.Before(slotStart.Add(shift))
}
