package recurrence

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

// Rule describes an abstract recurring date. Resolve maps the rule to the
// concrete occurrences within a single year; the shipped rules are designed
// to yield exactly one occurrence per year.
type Rule interface {
	// Resolve returns the first occurrence of the rule within the
	// inclusive range [Jan 1, Dec 31] of year. ok is false when the rule
	// has no occurrence in that year.
	Resolve(year int) (t time.Time, ok bool)
}

// yearBounds returns the inclusive evaluation range for a year, in UTC.
func yearBounds(year int) (time.Time, time.Time) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.December, 31, 23, 59, 59, 0, time.UTC)
	return start, end
}

// Yearly recurs annually on a fixed month and day.
type Yearly struct {
	Month time.Month
	Day   int
}

func (r Yearly) Resolve(year int) (time.Time, bool) {
	t := time.Date(year, r.Month, r.Day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes out-of-range values (e.g. Feb 29 in a common
	// year becomes Mar 1); a rollover into the next year means the rule
	// has no occurrence.
	if t.Year() != year {
		return time.Time{}, false
	}
	return t, true
}

// EasterOffset recurs annually relative to Easter Sunday. Days may be
// negative ("the Friday before Easter" is -2).
type EasterOffset struct {
	Days int
}

func (r EasterOffset) Resolve(year int) (time.Time, bool) {
	t := Easter(year).AddDate(0, 0, r.Days)
	if t.Year() != year {
		return time.Time{}, false
	}
	return t, true
}

// Easter returns Easter Sunday of the given year (midnight UTC), computed
// with the Meeus/Jones/Butcher algorithm.
func Easter(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := ((h+l-7*m+114)%31 + 1)

	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// RRule evaluates an iCalendar RRULE within the target year. It covers
// patterns that neither Yearly nor EasterOffset can express, such as "the
// Wednesday between Nov 16 and Nov 22".
type RRule struct {
	rule *rrule.RRule
}

// NewRRule parses an RRULE content line (e.g.
// "FREQ=YEARLY;BYMONTH=11;BYDAY=WE"). The rule is anchored at 1990-01-01
// UTC so that evaluation is independent of the process start time.
func NewRRule(raw string) (*RRule, error) {
	r, err := rrule.StrToRRule(raw)
	if err != nil {
		return nil, fmt.Errorf("recurrence: invalid rrule %q: %w", raw, err)
	}
	r.DTStart(time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC))
	return &RRule{rule: r}, nil
}

// MustRRule is like NewRRule but panics on a malformed rule. It is intended
// for package-level rule tables.
func MustRRule(raw string) *RRule {
	r, err := NewRRule(raw)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *RRule) Resolve(year int) (time.Time, bool) {
	start, end := yearBounds(year)
	occurrences := r.rule.Between(start, end, true)
	if len(occurrences) == 0 {
		return time.Time{}, false
	}
	occ := occurrences[0]
	// Normalize to a bare date; the shipped rules describe whole days.
	return time.Date(occ.Year(), occ.Month(), occ.Day(), 0, 0, 0, 0, time.UTC), true
}
