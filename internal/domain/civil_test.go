package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalendarSplitsDaysAtLocalMidnight(t *testing.T) {
	cal, err := NewCalendar("Europe/Paris")
	require.NoError(t, err)
	paris := cal.Location()

	late := time.Date(2026, time.March, 3, 23, 59, 0, 0, paris)
	early := late.Add(2 * time.Minute)

	assert.Equal(t, MustDate("2026-03-03"), cal.Today(late))
	assert.Equal(t, MustDate("2026-03-04"), cal.Today(early))
	assert.NotEqual(t, cal.Today(late), cal.Today(early))
}

func TestCalendarUsesFixedZoneNotCallerZone(t *testing.T) {
	cal, err := NewCalendar("")
	require.NoError(t, err)

	// 23:30 UTC in winter is already the next day in Paris.
	instant := time.Date(2026, time.January, 10, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, MustDate("2026-01-11"), cal.Today(instant))
}

func TestNewCalendarRejectsUnknownZone(t *testing.T) {
	_, err := NewCalendar("Mars/Olympus")
	assert.Error(t, err)
}

func TestDateArithmetic(t *testing.T) {
	d := MustDate("2026-03-29") // DST switch in Europe
	assert.Equal(t, MustDate("2026-03-30"), d.AddDays(1))
	assert.Equal(t, MustDate("2026-03-28"), d.AddDays(-1))
	assert.Equal(t, MustDate("2025-12-31"), MustDate("2026-01-01").AddDays(-1))
	assert.True(t, d.Before(d.AddDays(1)))
	assert.True(t, d.After(d.AddDays(-3)))
	assert.False(t, d.Before(d))
}

func TestDateTextRoundTrip(t *testing.T) {
	var d Date
	require.NoError(t, d.UnmarshalText([]byte("2026-10-19")))
	assert.Equal(t, "2026-10-19", d.String())

	assert.Error(t, d.UnmarshalText([]byte("19/10/2026")))
}

func TestWeekBoundaries(t *testing.T) {
	w := MustDate("2026-10-19").Week()
	assert.Equal(t, "2026-W43", w.String())
	assert.Equal(t, MustDate("2026-10-19"), w.Monday())
	assert.Equal(t, "2026-W42", w.Previous().String())

	// ISO years do not follow calendar years.
	assert.Equal(t, "2026-W53", MustDate("2027-01-01").Week().String())
	assert.Equal(t, "2026-W53", Week{Year: 2027, Number: 1}.Previous().String())
	assert.Equal(t, MustDate("2026-12-28"), Week{Year: 2026, Number: 53}.Monday())
}
