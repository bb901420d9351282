// Package calendar holds the business-calendar arithmetic: "today" in the business
// timezone, the weekly lock-in boundaries and the date formats used by storage,
// display and CSV import.
package calendar

import (
	"fmt"
	"time"

	"github.com/julianstephens/banquet/internal/constants"
)

// Rule selects how the next lock-in boundary is computed.
type Rule string

const (
	// Weekly closes entry at the coming Sunday (today when today is Sunday).
	Weekly Rule = constants.LockInWeekly
	// WeeklyOrMonthEnd closes entry at the coming Sunday or the last day of the
	// current month, whichever is earlier.
	WeeklyOrMonthEnd Rule = constants.LockInWeeklyOrMonthEnd
)

// ParseRule validates a lock-in rule name. An empty name selects Weekly.
func ParseRule(s string) (Rule, error) {
	switch Rule(s) {
	case "", Weekly:
		return Weekly, nil
	case WeeklyOrMonthEnd:
		return WeeklyOrMonthEnd, nil
	default:
		return "", fmt.Errorf("unknown lock-in rule %q (expected %s or %s)", s, Weekly, WeeklyOrMonthEnd)
	}
}

// Clock is the single source of "now" for the engine.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in a fixed business location.
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

// FixedClock always returns the same instant.
type FixedClock time.Time

func (c FixedClock) Now() time.Time {
	return time.Time(c)
}

// LoadLocation loads a timezone location from an IANA timezone name.
// If the timezone is "Local" or empty, it returns the system's local timezone.
func LoadLocation(timezone string) (*time.Location, error) {
	if timezone == "" || timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(timezone)
}

// NewClock returns a SystemClock for the named timezone.
func NewClock(timezone string) (Clock, error) {
	loc, err := LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	return SystemClock{Location: loc}, nil
}

// Date builds a calendar date. Dates are represented as midnight UTC.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Truncate returns the calendar date of t as seen in t's own location.
func Truncate(t time.Time) time.Time {
	return Date(t.Year(), t.Month(), t.Day())
}

// Today returns the current calendar date according to clock.
func Today(clock Clock) time.Time {
	return Truncate(clock.Now())
}

// ISOWeekday returns 1 for Monday through 7 for Sunday.
func ISOWeekday(d time.Time) int {
	wd := int(d.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// AddDays shifts a date by n calendar days.
func AddDays(d time.Time, n int) time.Time {
	return d.AddDate(0, 0, n)
}

// DaysBetween returns the number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Truncate(b).Sub(Truncate(a)).Hours() / 24)
}

// MinDate returns the earlier of two dates.
func MinDate(a, b time.Time) time.Time {
	if b.Before(a) {
		return b
	}
	return a
}

// PreviousLockIn is the boundary of the last closed reporting week:
// today minus its ISO weekday, so on a Sunday it is the Sunday a week earlier.
func PreviousLockIn(today time.Time) time.Time {
	today = Truncate(today)
	return AddDays(today, -ISOWeekday(today))
}

// NextLockIn is the last date open for data entry.
func NextLockIn(today time.Time, rule Rule) time.Time {
	today = Truncate(today)
	weekly := AddDays(today, 7-ISOWeekday(today))
	if rule == WeeklyOrMonthEnd {
		return MinDate(weekly, EndOfMonth(today))
	}
	return weekly
}

// EndOfMonth returns the last calendar day of d's month.
func EndOfMonth(d time.Time) time.Time {
	return AddDays(Date(d.Year(), d.Month()+1, 1), -1)
}

// Yesterday returns the date before today.
func Yesterday(today time.Time) time.Time {
	return AddDays(Truncate(today), -1)
}
