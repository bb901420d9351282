package calendar

import (
	"testing"
	"time"
)

func TestParseRule(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Rule
		wantErr bool
	}{
		{name: "empty defaults to weekly", in: "", want: Weekly},
		{name: "weekly", in: "weekly", want: Weekly},
		{name: "month end", in: "weekly-or-month-end", want: WeeklyOrMonthEnd},
		{name: "unknown", in: "fortnightly", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRule(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRule(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseRule(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTodayUsesClockLocation(t *testing.T) {
	ist, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// 20:00 UTC on the 7th is already the 8th in India.
	instant := time.Date(2024, 1, 7, 20, 0, 0, 0, time.UTC).In(ist)
	got := Today(FixedClock(instant))
	if want := Date(2024, 1, 8); !got.Equal(want) {
		t.Errorf("Today() = %s, want %s", FormatDB(got), FormatDB(want))
	}
}

func TestISOWeekday(t *testing.T) {
	if got := ISOWeekday(Date(2024, 1, 1)); got != 1 {
		t.Errorf("Monday ISOWeekday = %d, want 1", got)
	}
	if got := ISOWeekday(Date(2024, 1, 7)); got != 7 {
		t.Errorf("Sunday ISOWeekday = %d, want 7", got)
	}
}

func TestPreviousLockIn(t *testing.T) {
	tests := []struct {
		name  string
		today time.Time
		want  time.Time
	}{
		{name: "monday", today: Date(2024, 1, 8), want: Date(2024, 1, 7)},
		{name: "wednesday", today: Date(2024, 1, 10), want: Date(2024, 1, 7)},
		{name: "saturday", today: Date(2024, 1, 13), want: Date(2024, 1, 7)},
		{name: "sunday goes back a full week", today: Date(2024, 1, 7), want: Date(2023, 12, 31)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PreviousLockIn(tt.today); !got.Equal(tt.want) {
				t.Errorf("PreviousLockIn(%s) = %s, want %s", FormatDB(tt.today), FormatDB(got), FormatDB(tt.want))
			}
		})
	}
}

func TestNextLockIn(t *testing.T) {
	tests := []struct {
		name  string
		today time.Time
		rule  Rule
		want  time.Time
	}{
		{name: "weekly monday", today: Date(2024, 1, 8), rule: Weekly, want: Date(2024, 1, 14)},
		{name: "weekly sunday is today", today: Date(2024, 1, 14), rule: Weekly, want: Date(2024, 1, 14)},
		{name: "weekly crosses month", today: Date(2024, 1, 31), rule: Weekly, want: Date(2024, 2, 4)},
		{name: "month end caps week", today: Date(2024, 1, 31), rule: WeeklyOrMonthEnd, want: Date(2024, 1, 31)},
		{name: "month end far away", today: Date(2024, 1, 8), rule: WeeklyOrMonthEnd, want: Date(2024, 1, 14)},
		{name: "leap february", today: Date(2024, 2, 27), rule: WeeklyOrMonthEnd, want: Date(2024, 2, 29)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextLockIn(tt.today, tt.rule); !got.Equal(tt.want) {
				t.Errorf("NextLockIn(%s, %s) = %s, want %s", FormatDB(tt.today), tt.rule, FormatDB(got), FormatDB(tt.want))
			}
		})
	}
}

func TestParseImport(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "05-Jan-2024", want: Date(2024, 1, 5)},
		{in: "5-Jan-2024", want: Date(2024, 1, 5)},
		{in: " 29-Feb-2024 ", want: Date(2024, 2, 29)},
		{in: "2024-01-05", wantErr: true},
		{in: "31-Feb-2024", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseImport(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseImport(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("ParseImport(%q) = %s, want %s", tt.in, FormatDB(got), FormatDB(tt.want))
			}
		})
	}
}

func TestWeeksOfMonth(t *testing.T) {
	jan := WeeksOfMonth(2024, time.January)
	if len(jan) != 5 {
		t.Fatalf("January 2024 has %d weeks, want 5", len(jan))
	}
	if !jan[0][0].Equal(Date(2024, 1, 1)) || !jan[0][1].Equal(Date(2024, 1, 7)) {
		t.Errorf("first January week = %v", jan[0])
	}

	feb := WeeksOfMonth(2024, time.February)
	if len(feb) != 4 || !feb[0][0].Equal(Date(2024, 2, 5)) {
		t.Errorf("February 2024 weeks = %v", feb)
	}
}

func TestDefaultReportWeek(t *testing.T) {
	week, month, year := DefaultReportWeek(Date(2024, 1, 17))
	if want := "Week 2: Mon,08-Jan-2024 to Sun,14-Jan-2024"; week != want {
		t.Errorf("DefaultReportWeek() week = %q, want %q", week, want)
	}
	if month != time.January || year != 2024 {
		t.Errorf("DefaultReportWeek() month/year = %s %d", month, year)
	}

	n, start, end, err := ParseWeekRange(week)
	if err != nil {
		t.Fatalf("ParseWeekRange() error = %v", err)
	}
	if n != 2 || !start.Equal(Date(2024, 1, 8)) || !end.Equal(Date(2024, 1, 14)) {
		t.Errorf("ParseWeekRange() = %d %s %s", n, FormatDB(start), FormatDB(end))
	}
}

func TestCountDays(t *testing.T) {
	start, end := MonthRange(2024, time.January)
	days := CountDays(DateRange(start, end))
	if days.Total != 31 || days.Week != 23 || days.Weekend != 8 {
		t.Errorf("CountDays(Jan 2024) = %+v", days)
	}
}

func TestFormatMonthRange(t *testing.T) {
	want := "Feb-2024: Thu,01-Feb-2024 to Thu,29-Feb-2024"
	if got := FormatMonthRange(2024, time.February); got != want {
		t.Errorf("FormatMonthRange() = %q, want %q", got, want)
	}
}
