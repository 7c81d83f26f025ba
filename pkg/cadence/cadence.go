// Package cadence implements the calendar arithmetic behind recurring
// deadlines: cadence boundaries, end-of-day normalization and day-granularity
// comparison.
package cadence

import (
	"fmt"
	"strings"
	"time"
)

// Cadence is the recurrence frequency of a goal or task.
type Cadence string

const (
	Never     Cadence = "Never"
	Daily     Cadence = "Daily"
	Weekly    Cadence = "Weekly"
	Monthly   Cadence = "Monthly"
	Quarterly Cadence = "Quarterly"
)

// All lists every cadence in ascending order of period.
var All = []Cadence{Never, Daily, Weekly, Monthly, Quarterly}

// IsRecurring reports whether c repeats at all. The zero value counts as Never.
func (c Cadence) IsRecurring() bool {
	return c != Never && c != ""
}

func (c Cadence) String() string {
	if c == "" {
		return string(Never)
	}
	return string(c)
}

// Parse accepts a cadence name in any letter case.
func Parse(s string) (Cadence, error) {
	for _, c := range All {
		if strings.EqualFold(s, string(c)) {
			return c, nil
		}
	}
	return Never, fmt.Errorf("unknown cadence %q (use never, daily, weekly, monthly or quarterly)", s)
}

// Calendar resolves day boundaries in a fixed location.
type Calendar struct {
	loc *time.Location
}

// NewCalendar returns a calendar for loc. A nil loc means time.Local.
func NewCalendar(loc *time.Location) Calendar {
	return Calendar{loc: loc}
}

// Location returns the calendar's time zone.
func (c Calendar) Location() *time.Location {
	if c.loc == nil {
		return time.Local
	}
	return c.loc
}

// StartOfDay returns midnight of t's calendar day.
func (c Calendar) StartOfDay(t time.Time) time.Time {
	t = t.In(c.Location())
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, c.Location())
}

// EndOfDay returns 23:59:59 of t's calendar day.
func (c Calendar) EndOfDay(t time.Time) time.Time {
	t = t.In(c.Location())
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, c.Location())
}

// CompareDay compares a and b at day granularity and returns -1, 0 or +1.
func (c Calendar) CompareDay(a, b time.Time) int {
	da, db := c.StartOfDay(a), c.StartOfDay(b)
	switch {
	case da.Before(db):
		return -1
	case da.After(db):
		return 1
	default:
		return 0
	}
}

// SameDay reports whether a and b fall on the same calendar day.
func (c Calendar) SameDay(a, b time.Time) bool {
	return c.CompareDay(a, b) == 0
}

// DaysBetween counts whole calendar days from a to b. It is negative when b
// precedes a.
func (c Calendar) DaysBetween(a, b time.Time) int {
	da, db := c.StartOfDay(a), c.StartOfDay(b)
	// Round to absorb DST shifts of an hour.
	return int(db.Sub(da).Round(24*time.Hour) / (24 * time.Hour))
}

// Next returns the boundary one cadence period after base, normalized to the
// end of that day. It reports false for Never.
func (c Calendar) Next(base time.Time, cad Cadence) (time.Time, bool) {
	shifted, ok := c.shift(base, cad, 1)
	if !ok {
		return time.Time{}, false
	}
	return c.EndOfDay(shifted), true
}

// Previous steps one cadence period back from base. Never returns base
// unchanged. The result keeps base's time of day.
func (c Calendar) Previous(base time.Time, cad Cadence) time.Time {
	shifted, ok := c.shift(base, cad, -1)
	if !ok {
		return base
	}
	return shifted
}

func (c Calendar) shift(base time.Time, cad Cadence, sign int) (time.Time, bool) {
	base = base.In(c.Location())
	switch cad {
	case Daily:
		return base.AddDate(0, 0, sign), true
	case Weekly:
		return base.AddDate(0, 0, 7*sign), true
	case Monthly:
		return addMonths(base, sign), true
	case Quarterly:
		return addMonths(base, 3*sign), true
	default:
		return time.Time{}, false
	}
}

// addMonths adds n months and clamps the day to the end of the target month,
// so Jan 31 + 1 month is Feb 28 (or 29) rather than early March.
func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()
	first := time.Date(y, m+time.Month(n), 1, hh, mm, ss, t.Nanosecond(), t.Location())
	last := daysIn(first.Year(), first.Month(), t.Location())
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, hh, mm, ss, t.Nanosecond(), t.Location())
}

func daysIn(y int, m time.Month, loc *time.Location) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, loc).Day()
}
