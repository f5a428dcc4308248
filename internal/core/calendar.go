package core

import "time"

// DefaultHorizon is the number of days in a phase.
const DefaultHorizon = 18

// weekEnds holds the last day of each week of the phase. Days past the last
// entry belong to the final week.
var weekEnds = []int{7, 12, 18}

// WeekForDay maps a day index to its 1-based week: days 1-7 are week 1,
// 8-12 week 2 and 13-18 week 3.
func WeekForDay(day int) int {
	for i, end := range weekEnds {
		if day <= end {
			return i + 1
		}
	}
	return len(weekEnds)
}

// ClampDay bounds day to [1, horizon].
func ClampDay(day, horizon int) int {
	if day < 1 {
		return 1
	}
	if day > horizon {
		return horizon
	}
	return day
}

// Calendar converts wall-clock time into a day index of the phase.
type Calendar struct {
	start   time.Time
	horizon int
}

// NewCalendar creates a Calendar for a phase starting on start (only the
// calendar date is used) and lasting horizon days.
func NewCalendar(start time.Time, horizon int) Calendar {
	if horizon < 1 {
		horizon = DefaultHorizon
	}
	return Calendar{start: civilDate(start), horizon: horizon}
}

// Horizon returns the phase length in days.
func (c Calendar) Horizon() int { return c.horizon }

// Start returns the first calendar date of the phase.
func (c Calendar) Start() time.Time { return c.start }

// DayIndex returns clamp(daysSinceStart+1, 1, horizon). Dates before the
// start map to day 1 and dates past the horizon map to the last day.
func (c Calendar) DayIndex(now time.Time) int {
	days := int(civilDate(now).Sub(c.start).Hours() / 24)
	return ClampDay(days+1, c.horizon)
}

// Progress returns the phase progress for a day index.
func (c Calendar) Progress(day int) (daysRemaining, percent int) {
	return Progress(day, c.horizon)
}

// Progress returns the days remaining after day and the share of the
// horizon completed by the end of day, in whole percent.
func Progress(day, horizon int) (daysRemaining, percent int) {
	day = ClampDay(day, horizon)
	return horizon - day, day * 100 / horizon
}

// DateKey formats the calendar date used to key daily reports.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// civilDate drops the clock part of t, keeping its calendar date in UTC so
// day arithmetic is unaffected by DST.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
