package util

import (
	"testing"
	"time"
)

func TestFormatSequence(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		n      int
		width  int
		want   string
	}{
		{"order id", "ZW-", 7, 4, "ZW-0007"},
		{"purchase id", "", 1, 6, "000001"},
		{"overflow keeps digits", "ZN-", 12345, 4, "ZN-12345"},
		{"zero width", "X", 3, 0, "X3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatSequence(tt.prefix, tt.n, tt.width); got != tt.want {
				t.Errorf("FormatSequence() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseSequence(t *testing.T) {
	n, err := ParseSequence("ZW-", "ZW-0042")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 42 {
		t.Errorf("expected 42, got %d", n)
	}

	if _, err := ParseSequence("ZW-", "ZN-0042"); err == nil {
		t.Error("expected error for wrong prefix")
	}
}

func TestNewID(t *testing.T) {
	a := NewID()
	b := NewID()
	if !IsValidID(a) || !IsValidID(b) {
		t.Fatalf("expected valid UUIDs, got %q %q", a, b)
	}
	if a == b {
		t.Error("expected unique IDs")
	}
}

func TestMondayOf(t *testing.T) {
	tests := []struct {
		day  string
		want string
	}{
		{"2025-01-06", "2025-01-06"},
		{"2025-01-11", "2025-01-06"},
		{"2025-01-12", "2025-01-06"},
		{"2025-01-13", "2025-01-13"},
		{"2024-12-31", "2024-12-30"},
	}

	for _, tt := range tests {
		t.Run(tt.day, func(t *testing.T) {
			d, _ := ParseDate(tt.day)
			if got := FormatDate(MondayOf(d)); got != tt.want {
				t.Errorf("MondayOf(%s) = %s, want %s", tt.day, got, tt.want)
			}
		})
	}
}

func TestDaysSince(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	from := time.Date(2025, 3, 29, 23, 0, 0, 0, loc)
	to := time.Date(2025, 4, 1, 1, 0, 0, 0, loc)
	if got := DaysSince(from, to); got != 3 {
		t.Errorf("expected 3 days, got %d", got)
	}
}

func TestParseClock(t *testing.T) {
	m, err := ParseClock("14:30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m != 14*60+30 {
		t.Errorf("expected %d, got %d", 14*60+30, m)
	}
	if _, err := ParseClock("25:00"); err == nil {
		t.Error("expected error for invalid hour")
	}
}

func TestFixedClock(t *testing.T) {
	start := time.Date(2025, 1, 6, 6, 0, 0, 0, time.UTC)
	c := NewFixedClock(start)
	c.Advance(90 * time.Minute)
	if got := c.Now(); !got.Equal(start.Add(90 * time.Minute)) {
		t.Errorf("expected %v, got %v", start.Add(90*time.Minute), got)
	}
}
