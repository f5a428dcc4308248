package core

import (
	"testing"
	"time"

	"pgregory.net/rapid"
)

// Property: every day in [1,18] maps to the week whose range contains it.
func TestProperty_WeekForDay(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		d := rapid.IntRange(1, DefaultHorizon).Draw(t, "day")
		got := WeekForDay(d)

		var want int
		switch {
		case d <= 7:
			want = 1
		case d <= 12:
			want = 2
		default:
			want = 3
		}
		if got != want {
			t.Fatalf("WeekForDay(%d) = %d, want %d", d, got, want)
		}
	})
}

// Property: DayIndex always lies in [1, horizon] for any instant.
func TestProperty_DayIndexInRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		start := time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC)
		horizon := rapid.IntRange(1, 60).Draw(t, "horizon")
		offsetHours := rapid.IntRange(-24*400, 24*400).Draw(t, "offsetHours")

		cal := NewCalendar(start, horizon)
		day := cal.DayIndex(start.Add(time.Duration(offsetHours) * time.Hour))
		if day < 1 || day > horizon {
			t.Fatalf("DayIndex out of range: %d (horizon %d)", day, horizon)
		}
	})
}

// Property: within the horizon, consecutive dates map to consecutive days.
func TestProperty_DayIndexMonotonic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		start := time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)
		cal := NewCalendar(start, DefaultHorizon)
		offset := rapid.IntRange(0, DefaultHorizon-1).Draw(t, "offset")

		if got := cal.DayIndex(start.AddDate(0, 0, offset)); got != offset+1 {
			t.Fatalf("DayIndex(start+%d) = %d, want %d", offset, got, offset+1)
		}
	})
}
