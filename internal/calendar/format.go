package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/banquet/internal/constants"
)

const (
	weekTag       = "Week "
	weekSeparator = ": "
	dateSeparator = " to "
)

// Days counts a set of dates split into weekdays (Mon-Fri) and weekend days.
type Days struct {
	Total   int
	Week    int
	Weekend int
}

// FormatDB formats a date in the storage format (YYYY-MM-DD).
func FormatDB(d time.Time) string {
	return d.Format(constants.DateFormat)
}

// ParseDB parses a storage-format date.
func ParseDB(s string) (time.Time, error) {
	t, err := time.Parse(constants.DateFormat, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, err
	}
	return Truncate(t), nil
}

// FormatDisplay formats a date as "Mon,02-Jan-2006".
func FormatDisplay(d time.Time) string {
	return d.Format(constants.DisplayDateFormat)
}

// ParseDisplay parses a "Mon,02-Jan-2006" date.
func ParseDisplay(s string) (time.Time, error) {
	t, err := time.Parse(constants.DisplayDateFormat, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, err
	}
	return Truncate(t), nil
}

// ParseImport parses a CSV import date (dd-Mon-yyyy). Single-digit days are accepted.
func ParseImport(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{constants.ImportDateFormat, "2-Jan-2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return Truncate(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q (expected dd-Mon-yyyy)", s)
}

// FormatImport formats a date the way the CSV import expects it.
func FormatImport(d time.Time) string {
	return d.Format(constants.ImportDateFormat)
}

// ParseFlexible accepts either the storage or the import format. CLI arguments use it.
func ParseFlexible(s string) (time.Time, error) {
	if d, err := ParseDB(s); err == nil {
		return d, nil
	}
	return ParseImport(s)
}

// FormatWeekRange renders "Week N: <start> to <end>".
func FormatWeekRange(week int, start, end time.Time) string {
	return fmt.Sprintf("%s%d%s%s%s%s", weekTag, week, weekSeparator, FormatDisplay(start), dateSeparator, FormatDisplay(end))
}

// ParseWeekRange is the inverse of FormatWeekRange.
func ParseWeekRange(s string) (int, time.Time, time.Time, error) {
	rest, ok := strings.CutPrefix(s, weekTag)
	if !ok {
		return 0, time.Time{}, time.Time{}, fmt.Errorf("invalid week range %q", s)
	}
	num, dates, ok := strings.Cut(rest, weekSeparator)
	if !ok {
		return 0, time.Time{}, time.Time{}, fmt.Errorf("invalid week range %q", s)
	}
	var week int
	if _, err := fmt.Sscanf(num, "%d", &week); err != nil {
		return 0, time.Time{}, time.Time{}, fmt.Errorf("invalid week number in %q: %w", s, err)
	}
	startStr, endStr, ok := strings.Cut(dates, dateSeparator)
	if !ok {
		return 0, time.Time{}, time.Time{}, fmt.Errorf("invalid week range %q", s)
	}
	start, err := ParseDisplay(startStr)
	if err != nil {
		return 0, time.Time{}, time.Time{}, err
	}
	end, err := ParseDisplay(endStr)
	if err != nil {
		return 0, time.Time{}, time.Time{}, err
	}
	return week, start, end, nil
}

// WeeksOfMonth returns the Monday-to-Sunday weeks whose Monday falls in the month.
func WeeksOfMonth(year int, month time.Month) [][2]time.Time {
	first := Date(year, month, 1)
	monday := first
	if wd := ISOWeekday(first); wd != 1 {
		monday = AddDays(first, 8-wd)
	}
	var weeks [][2]time.Time
	for monday.Month() == month {
		weeks = append(weeks, [2]time.Time{monday, AddDays(monday, 6)})
		monday = AddDays(monday, 7)
	}
	return weeks
}

// DefaultReportWeek returns the formatted week ending at PreviousLockIn(today),
// together with the month and year that week belongs to.
func DefaultReportWeek(today time.Time) (string, time.Month, int) {
	monday := AddDays(PreviousLockIn(today), -6)
	for i, week := range WeeksOfMonth(monday.Year(), monday.Month()) {
		if week[0].Equal(monday) {
			return FormatWeekRange(i+1, week[0], week[1]), monday.Month(), monday.Year()
		}
	}
	// unreachable: a Monday always starts a week of its own month
	return FormatWeekRange(1, monday, AddDays(monday, 6)), monday.Month(), monday.Year()
}

// MonthRange returns the first and last date of a month.
func MonthRange(year int, month time.Month) (time.Time, time.Time) {
	start := Date(year, month, 1)
	return start, EndOfMonth(start)
}

// FormatMonthRange renders "Jan-2024: <start> to <end>".
func FormatMonthRange(year int, month time.Month) string {
	start, end := MonthRange(year, month)
	return fmt.Sprintf("%s-%d%s%s%s%s", start.Format("Jan"), year, weekSeparator, FormatDisplay(start), dateSeparator, FormatDisplay(end))
}

// CountDays splits dates into weekdays and weekend days.
func CountDays(dates []time.Time) Days {
	days := Days{Total: len(dates)}
	for _, d := range dates {
		if ISOWeekday(d) <= 5 {
			days.Week++
		}
	}
	days.Weekend = days.Total - days.Week
	return days
}

// DateRange lists every date from start to end inclusive.
func DateRange(start, end time.Time) []time.Time {
	var dates []time.Time
	for d := Truncate(start); !d.After(end); d = AddDays(d, 1) {
		dates = append(dates, d)
	}
	return dates
}
