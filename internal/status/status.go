// Package status summarises how far behind each hotel's data entry is.
package status

import (
	"fmt"
	"time"

	"github.com/julianstephens/banquet/internal/calendar"
	"github.com/julianstephens/banquet/internal/models"
	"github.com/julianstephens/banquet/internal/slot"
)

// Cell is the entry state of one hotel on one day.
type Cell int

const (
	NA Cell = iota
	NotDone
	Partial
	Done
)

func (c Cell) String() string {
	switch c {
	case NotDone:
		return "not done"
	case Partial:
		return "partial"
	case Done:
		return "done"
	default:
		return "n/a"
	}
}

func (c Cell) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Headline states.
const (
	HeadlineNoContract = "No Contract"
	HeadlineAllDone    = "All Done"
	HeadlinePartial    = "Yesterday evening entry remaining"
)

type Row struct {
	HotelID   string `json:"hotel_id"`
	Hotel     string `json:"hotel"`
	City      string `json:"city"`
	Cells     []Cell `json:"cells"`
	Headline  string `json:"headline"`
	Remaining int    `json:"remaining_days"`
	Cursor    string `json:"cursor"`
}

// Board is a grid of the past days, oldest first, ending yesterday.
type Board struct {
	Today time.Time   `json:"today"`
	Days  []time.Time `json:"days"`
	Rows  []Row       `json:"rows"`
}

// Build computes the board from the hotels' cursors alone.
func Build(hotels []*models.Hotel, today time.Time, days int) *Board {
	today = calendar.Truncate(today)
	b := &Board{Today: today}
	for i := days; i > 0; i-- {
		b.Days = append(b.Days, calendar.AddDays(today, -i))
	}
	for _, h := range hotels {
		b.Rows = append(b.Rows, buildRow(h, today, b.Days))
	}
	return b
}

// last is the cursor position that counts for reporting. A cursor before the contract
// start is treated as unset.
func last(h *models.Hotel) (slot.Slot, bool) {
	if !h.Cursor.IsSet() || h.Cursor.Date().Before(h.Contract.Start) {
		return slot.Slot{}, false
	}
	return h.Cursor.Slot(), true
}

func buildRow(h *models.Hotel, today time.Time, days []time.Time) Row {
	row := Row{HotelID: h.ID, Hotel: h.Name, City: h.City, Cursor: h.Cursor.String()}
	cursor, set := last(h)

	for _, date := range days {
		row.Cells = append(row.Cells, cell(h, cursor, set, date))
	}
	row.Headline, row.Remaining = headline(h, cursor, set, today)
	return row
}

func cell(h *models.Hotel, cursor slot.Slot, set bool, date time.Time) Cell {
	inContract := h.Contract.IsSet() && h.Contract.IsValid(date)
	switch {
	case !set:
		if inContract {
			return NotDone
		}
		return NA
	case date.Before(cursor.Date):
		if inContract {
			return Done
		}
		return NA
	case date.After(cursor.Date):
		if inContract {
			return NotDone
		}
		return NA
	case cursor.Timing == slot.Evening:
		return Done
	default:
		return Partial
	}
}

func headline(h *models.Hotel, cursor slot.Slot, set bool, today time.Time) (string, int) {
	if !h.Contract.IsSet() || h.Contract.Start.After(today) {
		return HeadlineNoContract, 0
	}
	end := calendar.MinDate(calendar.Yesterday(today), h.Contract.End)
	if !set {
		if h.Contract.Start.After(end) {
			return HeadlineAllDone, 0
		}
		days := calendar.DaysBetween(h.Contract.Start, end) + 1
		return fmt.Sprintf("%d days entry remaining", days), days
	}
	if !cursor.Date.Before(end) {
		if cursor.Date.After(end) || cursor.Timing == slot.Evening {
			return HeadlineAllDone, 0
		}
		return HeadlinePartial, 0
	}
	days := calendar.DaysBetween(cursor.Date, end)
	return fmt.Sprintf("%d days entry remaining", days), days
}
