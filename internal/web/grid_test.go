package web

import (
	"testing"
	"time"
)

func TestBuildGrid(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 9, 1, 10, 30, 0, 0, time.UTC)
	schedule := map[string]string{
		"2026-09-01T12:00:00": "Alice",
		"2026-09-03T00:00:00": "Bob",
	}

	days := buildGrid(schedule, now, 3*time.Hour)
	if len(days) != gridDays {
		t.Fatalf("got %d days, want %d", len(days), gridDays)
	}
	if got := len(days[0].Cells); got != 8 {
		t.Fatalf("got %d cells per day, want 8", got)
	}
	if days[0].Date != "Tue 2026-09-01" {
		t.Fatalf("first day = %q", days[0].Date)
	}

	// 12:00 today is cell index 4 and booked by Alice.
	cell := days[0].Cells[4]
	if cell.Key != "2026-09-01T12:00:00" || cell.Reserver != "Alice" {
		t.Fatalf("cell = %+v", cell)
	}
	if cell.Past {
		t.Fatal("12:00 slot should not be past at 10:30")
	}

	// The 00:00–03:00 and 03:00–06:00 slots are already over at 10:30.
	if !days[0].Cells[0].Past || !days[0].Cells[1].Past {
		t.Fatal("morning slots should be past")
	}
	// The 09:00 slot is still running at 10:30 so it is not past.
	if days[0].Cells[3].Past {
		t.Fatal("running slot marked past")
	}

	if got := days[2].Cells[0].Reserver; got != "Bob" {
		t.Fatalf("day 3 midnight reserver = %q", got)
	}
	if days[6].Cells[7].Key != "2026-09-07T21:00:00" {
		t.Fatalf("last cell key = %q", days[6].Cells[7].Key)
	}
}
