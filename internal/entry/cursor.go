// Package entry implements the data-entry cursor: the per-hotel pointer to the most
// recently filled slot, and the rules that derive the next slot open for entry.
//
// The cursor fields are unexported. Outside this package a Cursor can only be read,
// rebuilt from storage with Restore, or moved with Advance, Rollback, Seek and Reset.
package entry

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/julianstephens/banquet/internal/calendar"
	"github.com/julianstephens/banquet/internal/slot"
)

// Cursor is a hotel's most recently filled slot. The zero value means nothing entered yet.
type Cursor struct {
	date   time.Time
	timing slot.Timing
}

// Restore rebuilds a cursor from persisted fields. A zero date yields an unset cursor.
// A date persisted without a valid timing is read as a completed day.
func Restore(date time.Time, timing slot.Timing) Cursor {
	if date.IsZero() {
		return Cursor{}
	}
	if !timing.Valid() {
		timing = slot.Evening
	}
	return Cursor{date: calendar.Truncate(date), timing: timing}
}

// At is a convenience for Restore(s.Date, s.Timing).
func At(s slot.Slot) Cursor {
	return Restore(s.Date, s.Timing)
}

func (c Cursor) IsSet() bool {
	return !c.date.IsZero()
}

func (c Cursor) Date() time.Time {
	return c.date
}

func (c Cursor) Timing() slot.Timing {
	return c.timing
}

func (c Cursor) Slot() slot.Slot {
	if !c.IsSet() {
		return slot.Slot{}
	}
	return slot.Slot{Date: c.date, Timing: c.timing}
}

func (c Cursor) String() string {
	if !c.IsSet() {
		return "unset"
	}
	return c.Slot().String()
}

// Next computes the next slot open for entry.
//
// boundary = min(NextLockIn(today), contractEnd). On any reason other than Open the
// returned slot is informational: the contract end for ContractExhausted and the
// cursor date for AllCaughtUp, both without a timing. A cursor past the contract end
// is ContractExhausted even before the end date has passed, which happens when an
// administrator shortens the contract below the cursor.
func Next(c Cursor, contractStart, contractEnd, today time.Time, rule calendar.Rule) (slot.Slot, Reason) {
	if contractStart.IsZero() || contractEnd.IsZero() {
		return slot.Slot{}, NoContract
	}
	start := calendar.Truncate(contractStart)
	end := calendar.Truncate(contractEnd)
	today = calendar.Truncate(today)

	if end.Before(start) {
		return slot.Slot{}, InvalidContract
	}
	boundary := calendar.MinDate(calendar.NextLockIn(today, rule), end)
	if today.Before(start) {
		return slot.Slot{}, FutureContract
	}
	if !c.IsSet() || c.date.Before(start) {
		return slot.New(start, slot.Morning), Open
	}
	if c.date.After(end) {
		return slot.New(end, slot.None), ContractExhausted
	}
	if c.timing == slot.Evening && !c.date.Before(boundary) {
		if !c.date.Before(end) {
			return slot.New(end, slot.None), ContractExhausted
		}
		return slot.New(c.date, slot.None), AllCaughtUp
	}
	if c.timing == slot.Morning {
		return slot.New(c.date, slot.Evening), Open
	}
	return slot.New(calendar.AddDays(c.date, 1), slot.Morning), Open
}

// Successor is the slot after the cursor ignoring lock-in and contract end:
// contractStart Morning when the cursor is unset or predates the contract.
func Successor(c Cursor, contractStart time.Time) slot.Slot {
	start := calendar.Truncate(contractStart)
	if !c.IsSet() || c.date.Before(start) {
		return slot.New(start, slot.Morning)
	}
	return c.Slot().Next()
}

// Advance moves the cursor to s if s is later than the cursor. It never moves backwards,
// so replaying the same slot is a no-op. It reports whether the cursor changed.
func (c *Cursor) Advance(s slot.Slot) bool {
	if s.IsZero() || !s.Timing.Valid() {
		return false
	}
	if c.IsSet() && !s.After(c.Slot()) {
		return false
	}
	c.date = calendar.Truncate(s.Date)
	c.timing = s.Timing
	return true
}

// Rollback steps the cursor back one slot after the last records of the cursor slot
// were deleted. Stepping before contractStart clears the cursor instead.
func (c *Cursor) Rollback(contractStart time.Time) bool {
	if !c.IsSet() {
		return false
	}
	prev := c.Slot().Prev()
	if prev.Date.Before(calendar.Truncate(contractStart)) {
		*c = Cursor{}
		return true
	}
	c.date = prev.Date
	c.timing = prev.Timing
	return true
}

// Seek places the cursor at s unconditionally. Administrative corrections only.
func (c *Cursor) Seek(s slot.Slot) {
	*c = At(s)
}

// Reset clears the cursor.
func (c *Cursor) Reset() {
	*c = Cursor{}
}

type cursorJSON struct {
	Date   string      `json:"date"`
	Timing slot.Timing `json:"timing"`
}

func (c Cursor) MarshalJSON() ([]byte, error) {
	if !c.IsSet() {
		return []byte("null"), nil
	}
	return json.Marshal(cursorJSON{Date: calendar.FormatDB(c.date), Timing: c.timing})
}

func (c *Cursor) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*c = Cursor{}
		return nil
	}
	var raw cursorJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Date == "" {
		*c = Cursor{}
		return nil
	}
	date, err := calendar.ParseDB(raw.Date)
	if err != nil {
		return fmt.Errorf("invalid cursor date: %w", err)
	}
	*c = Restore(date, raw.Timing)
	return nil
}
