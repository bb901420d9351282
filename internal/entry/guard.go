package entry

import (
	"time"

	"github.com/julianstephens/banquet/internal/calendar"
	"github.com/julianstephens/banquet/internal/slot"
)

// Window is everything the guards need to know about a hotel at a point in time.
type Window struct {
	Cursor        Cursor
	ContractStart time.Time
	ContractEnd   time.Time
	Today         time.Time
	Rule          calendar.Rule
	Admin         bool
}

// Next is Next(w.Cursor, ...) for the window.
func (w Window) Next() (slot.Slot, Reason) {
	return Next(w.Cursor, w.ContractStart, w.ContractEnd, w.Today, w.Rule)
}

// Limit is the latest slot a new record may target. Hotel users may fill any slot up
// to the next open one; when nothing is open they may still touch slots up to the
// cursor. Administrators may go one slot past the cursor regardless of lock-in.
func (w Window) Limit() (slot.Slot, error) {
	if w.ContractStart.IsZero() || w.ContractEnd.IsZero() {
		return slot.Slot{}, &Error{Err: ErrNoContract}
	}
	start := calendar.Truncate(w.ContractStart)
	end := calendar.Truncate(w.ContractEnd)
	if end.Before(start) {
		return slot.Slot{}, &Error{Err: ErrInvalidContract}
	}
	if w.Admin {
		return Successor(w.Cursor, start), nil
	}
	next, reason := w.Next()
	switch reason {
	case Open:
		return next, nil
	case AllCaughtUp, ContractExhausted:
		if !w.Cursor.IsSet() {
			return slot.Slot{}, &Error{Err: reason.Err()}
		}
		last := w.Cursor.Slot()
		if last.Date.After(end) {
			last = slot.New(end, slot.Evening)
		}
		return last, nil
	default:
		return slot.Slot{}, &Error{Err: reason.Err()}
	}
}

// CheckWritable reports whether a record may be created in target.
func (w Window) CheckWritable(target slot.Slot) error {
	if !target.Timing.Valid() {
		return &Error{Err: ErrSlotNotOpen, At: target}
	}
	if target.Date.Before(calendar.Truncate(w.ContractStart)) {
		return &Error{Err: ErrBeforeContract, At: target}
	}
	limit, err := w.Limit()
	if err != nil {
		return err
	}
	if target.After(limit) {
		next, reason := w.Next()
		if reason != Open {
			next = slot.Slot{}
		}
		if w.Admin {
			next = limit
		}
		return &Error{Err: ErrSlotNotOpen, At: target, Next: next}
	}
	return nil
}

// CheckEditable reports whether an existing record dated on date may be changed.
// Hotel users cannot touch records before the previous lock-in date.
func (w Window) CheckEditable(date time.Time) error {
	if w.Admin {
		return nil
	}
	if calendar.Truncate(date).Before(calendar.PreviousLockIn(w.Today)) {
		return &Error{Err: ErrRecordLocked, At: slot.New(date, slot.None)}
	}
	return nil
}
