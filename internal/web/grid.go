package web

import (
	"time"

	"titlekeeper/internal/clock"
)

const gridDays = 7

type gridCell struct {
	Key      string // reservation slot key
	Label    string // "15:00"
	Reserver string // booked IGN, or "" when free
	Past     bool
}

type gridDay struct {
	Date  string // "Mon 2026-09-01"
	Cells []gridCell
}

// buildGrid lays out the next gridDays days as rows of shift slots for a
// single title, starting from the first slot boundary at or before now.
// Booked cells carry the reserver's IGN so the template can grey them out.
func buildGrid(schedule map[string]string, now time.Time, shift time.Duration) []gridDay {
	now = now.UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	perDay := int(24 * time.Hour / shift)

	days := make([]gridDay, 0, gridDays)
	for d := 0; d < gridDays; d++ {
		date := dayStart.AddDate(0, 0, d)
		day := gridDay{
			Date:  date.Format("Mon 2006-01-02"),
			Cells: make([]gridCell, 0, perDay),
		}
		for i := 0; i < perDay; i++ {
			start := date.Add(time.Duration(i) * shift)
			key := clock.SlotKey(start)
			day.Cells = append(day.Cells, gridCell{
				Key:      key,
				Label:    start.Format("15:04"),
				Reserver: schedule[key],
				Past:     !start.Add(shift).After(now),
			})
		}
		days = append(days, day)
	}
	return days
}
