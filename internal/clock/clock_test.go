package clock

import (
	"errors"
	"testing"
	"time"
)

func TestParseInstantVariants(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string // RFC3339 of expected UTC instant
	}{
		{name: "naive is utc", in: "2025-01-01T12:30:00", want: "2025-01-01T12:30:00Z"},
		{name: "explicit utc", in: "2025-01-01T12:30:00Z", want: "2025-01-01T12:30:00Z"},
		{name: "offset normalized", in: "2025-01-01T14:30:00+02:00", want: "2025-01-01T12:30:00Z"},
		{name: "no seconds", in: "2025-01-01T12:30", want: "2025-01-01T12:30:00Z"},
		{name: "space separator", in: "2025-01-01 12:30:00", want: "2025-01-01T12:30:00Z"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseInstant(tt.in)
			if err != nil {
				t.Fatalf("ParseInstant(%q) error: %v", tt.in, err)
			}
			want, _ := time.Parse(time.RFC3339, tt.want)
			if !got.Equal(want) {
				t.Fatalf("ParseInstant(%q) = %v, want %v", tt.in, got, want)
			}
			if got.Location() != time.UTC {
				t.Fatalf("ParseInstant(%q) not UTC: %v", tt.in, got.Location())
			}
		})
	}
}

func TestParseInstantMalformed(t *testing.T) {
	t.Parallel()
	_, err := ParseInstant("not-a-time")
	if err == nil {
		t.Fatal("expected error for malformed input")
	}
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %T", err)
	}
}

func TestSlotKeyNormalization(t *testing.T) {
	t.Parallel()
	base := time.Date(2025, 1, 1, 12, 30, 0, 0, time.UTC)
	offset := time.FixedZone("CET", 3600)

	tests := []struct {
		name string
		in   time.Time
	}{
		{name: "exact minute", in: base},
		{name: "sub-minute dropped", in: base.Add(42*time.Second + 7*time.Millisecond)},
		{name: "other zone same instant", in: base.In(offset)},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := SlotKey(tt.in); got != "2025-01-01T12:30:00" {
				t.Fatalf("SlotKey = %q, want 2025-01-01T12:30:00", got)
			}
		})
	}
}

func TestSlotKeyRoundTripStable(t *testing.T) {
	t.Parallel()
	key := SlotKey(time.Date(2025, 6, 15, 9, 0, 31, 0, time.UTC))
	parsed, err := ParseInstant(key)
	if err != nil {
		t.Fatalf("re-parse of produced key failed: %v", err)
	}
	if again := SlotKey(parsed); again != key {
		t.Fatalf("normalization not idempotent: %q != %q", again, key)
	}
}

func TestIsWithinShift(t *testing.T) {
	t.Parallel()
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	const shift = 3 * time.Hour

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{name: "before start", now: start.Add(-time.Second), want: false},
		{name: "at start inclusive", now: start, want: true},
		{name: "mid shift", now: start.Add(90 * time.Minute), want: true},
		{name: "at end exclusive", now: start.Add(shift), want: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := IsWithinShift(start, tt.now, shift); got != tt.want {
				t.Fatalf("IsWithinShift(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}
