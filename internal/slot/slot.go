// Package slot defines the (date, timing) pair that is the unit of data entry.
package slot

import (
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/banquet/internal/calendar"
	"github.com/julianstephens/banquet/internal/constants"
)

// Timing is the half of the day a slot covers.
type Timing string

const (
	None    Timing = ""
	Morning Timing = constants.Morning
	Evening Timing = constants.Evening
)

// ParseTiming accepts the canonical timing names, case-insensitively.
func ParseTiming(s string) (Timing, error) {
	switch {
	case strings.EqualFold(strings.TrimSpace(s), constants.Morning):
		return Morning, nil
	case strings.EqualFold(strings.TrimSpace(s), constants.Evening):
		return Evening, nil
	default:
		return None, fmt.Errorf("invalid timing %q (expected %s or %s)", s, Morning, Evening)
	}
}

// Rank orders timings within a day: Morning before Evening.
func (t Timing) Rank() int {
	switch t {
	case Morning:
		return 0
	case Evening:
		return 1
	default:
		return -1
	}
}

func (t Timing) Valid() bool {
	return t == Morning || t == Evening
}

// Slot is a calendar date plus a timing. A zero Timing marks a date-only position.
type Slot struct {
	Date   time.Time `json:"date"`
	Timing Timing    `json:"timing,omitempty"`
}

// New builds a slot, normalising the date to a calendar date.
func New(date time.Time, timing Timing) Slot {
	return Slot{Date: calendar.Truncate(date), Timing: timing}
}

func (s Slot) IsZero() bool {
	return s.Date.IsZero()
}

// Compare orders slots by date, then Morning before Evening.
func (s Slot) Compare(o Slot) int {
	switch {
	case s.Date.Before(o.Date):
		return -1
	case s.Date.After(o.Date):
		return 1
	}
	switch {
	case s.Timing.Rank() < o.Timing.Rank():
		return -1
	case s.Timing.Rank() > o.Timing.Rank():
		return 1
	}
	return 0
}

func (s Slot) Before(o Slot) bool { return s.Compare(o) < 0 }
func (s Slot) After(o Slot) bool  { return s.Compare(o) > 0 }
func (s Slot) Equal(o Slot) bool  { return s.Compare(o) == 0 }

// Next is the chronological successor: Morning -> same day Evening, Evening -> next day Morning.
func (s Slot) Next() Slot {
	if s.Timing == Morning {
		return Slot{Date: s.Date, Timing: Evening}
	}
	return Slot{Date: calendar.AddDays(s.Date, 1), Timing: Morning}
}

// Prev is the chronological predecessor.
func (s Slot) Prev() Slot {
	if s.Timing == Evening {
		return Slot{Date: s.Date, Timing: Morning}
	}
	return Slot{Date: calendar.AddDays(s.Date, -1), Timing: Evening}
}

func (s Slot) String() string {
	if s.IsZero() {
		return "-"
	}
	if s.Timing == None {
		return calendar.FormatDisplay(s.Date)
	}
	return fmt.Sprintf("%s - %s", calendar.FormatDisplay(s.Date), s.Timing)
}

// Between enumerates every slot from first to last inclusive.
func Between(first, last Slot) []Slot {
	var slots []Slot
	for s := first; !s.After(last); s = s.Next() {
		slots = append(slots, s)
	}
	return slots
}
