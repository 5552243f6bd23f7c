package telegram

import (
	"fmt"
	"strings"
	"time"

	"titlekeeper/internal/clock"
)

// Command arguments are pipe-separated so title names and IGNs may
// contain spaces, e.g.
//
//	/schedule Architect | CaesarIV | 2026-09-01 | 15:00
type ScheduleArgs struct {
	Title string
	IGN   string
	Slot  time.Time
}

type UnscheduleArgs struct {
	Title string
	Slot  time.Time
}

type AssignArgs struct {
	Title  string
	IGN    string
	Coords string
}

func splitPipes(payload string) []string {
	parts := strings.Split(payload, "|")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

func parseSlot(dateStr, timeStr string) (time.Time, error) {
	t, err := time.Parse("2006-01-02 15:04", dateStr+" "+timeStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad date/time %q %q: want YYYY-MM-DD and HH:MM (UTC)", dateStr, timeStr)
	}
	return t.UTC(), nil
}

func ParseScheduleArgs(payload string) (ScheduleArgs, error) {
	parts := splitPipes(payload)
	if len(parts) != 4 || parts[0] == "" || parts[1] == "" {
		return ScheduleArgs{}, fmt.Errorf("usage: /schedule Title | IGN | YYYY-MM-DD | HH:MM")
	}
	slot, err := parseSlot(parts[2], parts[3])
	if err != nil {
		return ScheduleArgs{}, err
	}
	return ScheduleArgs{Title: parts[0], IGN: parts[1], Slot: slot}, nil
}

func ParseUnscheduleArgs(payload string) (UnscheduleArgs, error) {
	parts := splitPipes(payload)
	if len(parts) != 3 || parts[0] == "" {
		return UnscheduleArgs{}, fmt.Errorf("usage: /unschedule Title | YYYY-MM-DD | HH:MM")
	}
	slot, err := parseSlot(parts[1], parts[2])
	if err != nil {
		return UnscheduleArgs{}, err
	}
	return UnscheduleArgs{Title: parts[0], Slot: slot}, nil
}

func ParseAssignArgs(payload string) (AssignArgs, error) {
	parts := splitPipes(payload)
	if len(parts) < 2 || len(parts) > 3 || parts[0] == "" || parts[1] == "" {
		return AssignArgs{}, fmt.Errorf("usage: /assign Title | IGN | coords")
	}
	coords := "-"
	if len(parts) == 3 && parts[2] != "" {
		coords = parts[2]
	}
	return AssignArgs{Title: parts[0], IGN: parts[1], Coords: coords}, nil
}

// slotKeyOf formats a parsed slot the way reservations are stored.
func slotKeyOf(t time.Time) string { return clock.SlotKey(t) }
