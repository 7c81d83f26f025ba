package cadence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var utc = NewCalendar(time.UTC)

func day(d int) time.Time {
	return time.Date(2026, 3, d, 9, 30, 0, 0, time.UTC)
}

func TestNext(t *testing.T) {
	tests := []struct {
		name string
		base time.Time
		cad  Cadence
		want time.Time
	}{
		{"daily", day(3), Daily, time.Date(2026, 3, 4, 23, 59, 59, 0, time.UTC)},
		{"weekly", day(3), Weekly, time.Date(2026, 3, 10, 23, 59, 59, 0, time.UTC)},
		{"monthly", day(3), Monthly, time.Date(2026, 4, 3, 23, 59, 59, 0, time.UTC)},
		{"quarterly", day(3), Quarterly, time.Date(2026, 6, 3, 23, 59, 59, 0, time.UTC)},
		{"monthly clamps to month end", time.Date(2026, 1, 31, 8, 0, 0, 0, time.UTC), Monthly, time.Date(2026, 2, 28, 23, 59, 59, 0, time.UTC)},
		{"quarterly clamps to month end", time.Date(2026, 11, 30, 8, 0, 0, 0, time.UTC), Quarterly, time.Date(2027, 2, 28, 23, 59, 59, 0, time.UTC)},
		{"daily crosses year", time.Date(2026, 12, 31, 23, 59, 59, 0, time.UTC), Daily, time.Date(2027, 1, 1, 23, 59, 59, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := utc.Next(tt.base, tt.cad)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextNever(t *testing.T) {
	_, ok := utc.Next(day(3), Never)
	assert.False(t, ok)

	_, ok = utc.Next(day(3), "")
	assert.False(t, ok)
}

func TestPrevious(t *testing.T) {
	assert.Equal(t, day(2), utc.Previous(day(3), Daily))
	assert.Equal(t, time.Date(2026, 2, 24, 9, 30, 0, 0, time.UTC), utc.Previous(day(3), Weekly))
	assert.Equal(t, time.Date(2026, 2, 3, 9, 30, 0, 0, time.UTC), utc.Previous(day(3), Monthly))
	assert.Equal(t, time.Date(2025, 12, 3, 9, 30, 0, 0, time.UTC), utc.Previous(day(3), Quarterly))
	assert.Equal(t, day(3), utc.Previous(day(3), Never))
}

func TestCompareDay(t *testing.T) {
	morning := time.Date(2026, 3, 3, 0, 0, 1, 0, time.UTC)
	night := time.Date(2026, 3, 3, 23, 59, 59, 0, time.UTC)

	assert.Equal(t, 0, utc.CompareDay(morning, night))
	assert.True(t, utc.SameDay(morning, night))
	assert.Equal(t, -1, utc.CompareDay(night, day(4)))
	assert.Equal(t, 1, utc.CompareDay(day(4), night))
}

func TestCompareDayUsesCalendarZone(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	cal := NewCalendar(tokyo)

	// 20:00 UTC on the 3rd is already the 4th in Tokyo.
	late := time.Date(2026, 3, 3, 20, 0, 0, 0, time.UTC)
	assert.True(t, cal.SameDay(late, time.Date(2026, 3, 4, 12, 0, 0, 0, tokyo)))
	assert.False(t, utc.SameDay(late, time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)))
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 7, utc.DaysBetween(day(3), day(10)))
	assert.Equal(t, -2, utc.DaysBetween(day(10), day(8)))
	assert.Equal(t, 0, utc.DaysBetween(day(3), utc.EndOfDay(day(3))))
}

func TestParse(t *testing.T) {
	c, err := Parse("weekly")
	require.NoError(t, err)
	assert.Equal(t, Weekly, c)

	c, err = Parse("QUARTERLY")
	require.NoError(t, err)
	assert.Equal(t, Quarterly, c)

	_, err = Parse("fortnightly")
	assert.Error(t, err)
}

func TestIsRecurring(t *testing.T) {
	assert.False(t, Never.IsRecurring())
	assert.False(t, Cadence("").IsRecurring())
	assert.True(t, Daily.IsRecurring())
	assert.Equal(t, "Never", Cadence("").String())
}
