package domain

import (
	"fmt"
	"time"

	// Embedded zone database so the calendar zone resolves on minimal images.
	_ "time/tzdata"
)

// DateLayout is the wire and storage format of a civil date.
const DateLayout = "2006-01-02"

// DefaultTimezone is the zone every user's "today" is evaluated in.
const DefaultTimezone = "Europe/Paris"

// Date is a calendar day with no time-of-day or zone attached.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// MustDate is ParseDate for literals; it panics on malformed input.
func MustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// In returns midnight of d in loc.
func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// AddDays moves d by n calendar days.
func (d Date) AddDays(n int) Date {
	// noon UTC keeps the arithmetic clear of any DST edge
	return DateOf(time.Date(d.Year, d.Month, d.Day+n, 12, 0, 0, 0, time.UTC))
}

func (d Date) Before(other Date) bool {
	return d.In(time.UTC).Before(other.In(time.UTC))
}

func (d Date) After(other Date) bool {
	return other.Before(d)
}

// Week returns the ISO week d belongs to.
func (d Date) Week() Week {
	y, w := d.In(time.UTC).ISOWeek()
	return Week{Year: y, Number: w}
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Week identifies an ISO-8601 week.
type Week struct {
	Year   int
	Number int
}

// String renders the week as e.g. 2026-W42.
func (w Week) String() string {
	return fmt.Sprintf("%04d-W%02d", w.Year, w.Number)
}

// Monday returns the first day of the week.
func (w Week) Monday() Date {
	// Jan 4th always falls in week 1.
	jan4 := time.Date(w.Year, time.January, 4, 12, 0, 0, 0, time.UTC)
	offset := (int(jan4.Weekday()) + 6) % 7
	return DateOf(jan4).AddDays(-offset + (w.Number-1)*7)
}

// Previous returns the week immediately before w.
func (w Week) Previous() Week {
	return w.Monday().AddDays(-7).Week()
}

// Calendar evaluates instants as civil dates in one fixed zone, so every user
// shares the same "today".
type Calendar struct {
	loc *time.Location
}

// NewCalendar loads the named IANA zone. An empty name selects DefaultTimezone.
func NewCalendar(name string) (Calendar, error) {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return Calendar{}, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return Calendar{loc: loc}, nil
}

// CalendarIn wraps an already loaded location.
func CalendarIn(loc *time.Location) Calendar {
	return Calendar{loc: loc}
}

func (c Calendar) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// Today returns the civil date of now.
func (c Calendar) Today(now time.Time) Date {
	return DateOf(now.In(c.Location()))
}

// Week returns the ISO week containing now.
func (c Calendar) Week(now time.Time) Week {
	return c.Today(now).Week()
}
