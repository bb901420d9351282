package importer

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/julianstephens/banquet/internal/calendar"
	"github.com/julianstephens/banquet/internal/entry"
	"github.com/julianstephens/banquet/internal/models"
	"github.com/julianstephens/banquet/internal/slot"
)

// Kind classifies a batch-level rejection.
type Kind int

const (
	BatchStartMismatch Kind = iota + 1
	IncompleteDay
	DuplicateClient
	MixedSlot
	DateGap
	BatchExceedsWindow
)

var (
	ErrBatchStartMismatch = errors.New("batch does not start at the next data entry slot")
	ErrIncompleteDay      = errors.New("batch leaves a day half-filled")
	ErrDuplicateClient    = errors.New("duplicate client in a slot")
	ErrMixedSlot          = errors.New("slot has both a no-event row and events")
	ErrDateGap            = errors.New("batch has missing dates")
	ErrBatchExceedsWindow = errors.New("batch runs past the data entry window")
)

func (k Kind) String() string {
	switch k {
	case BatchStartMismatch:
		return "batch_start_mismatch"
	case IncompleteDay:
		return "incomplete_day"
	case DuplicateClient:
		return "duplicate_client"
	case MixedSlot:
		return "mixed_slot"
	case DateGap:
		return "date_gap"
	case BatchExceedsWindow:
		return "batch_exceeds_window"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (k Kind) sentinel() error {
	switch k {
	case BatchStartMismatch:
		return ErrBatchStartMismatch
	case IncompleteDay:
		return ErrIncompleteDay
	case DuplicateClient:
		return ErrDuplicateClient
	case MixedSlot:
		return ErrMixedSlot
	case DateGap:
		return ErrDateGap
	case BatchExceedsWindow:
		return ErrBatchExceedsWindow
	}
	return nil
}

// BatchError rejects a whole batch. Rows holds the offending 1-based row indices.
type BatchError struct {
	Kind     Kind
	Rows     []int
	At       slot.Slot
	Expected slot.Slot
	Reason   entry.Reason
	Client   string
	Missing  slot.Timing
}

func (e *BatchError) Error() string {
	var detail string
	switch e.Kind {
	case BatchStartMismatch:
		if e.Reason != entry.Open {
			detail = fmt.Sprintf("no slot is open for entry (%s)", e.Reason)
		} else {
			detail = fmt.Sprintf("start period (%s) does not match the next data entry period (%s)", e.At, e.Expected)
		}
	case IncompleteDay:
		detail = fmt.Sprintf("date %s does not have %s events", calendar.FormatDisplay(e.At.Date), e.Missing)
	case DuplicateClient:
		detail = fmt.Sprintf("duplicate client name %s for the period %s", e.Client, e.At)
	case MixedSlot:
		detail = fmt.Sprintf("period %s has both a no-event row and events", e.At)
	case DateGap:
		detail = fmt.Sprintf("there are missing events between %s and %s",
			calendar.FormatDisplay(e.Expected.Date), calendar.FormatDisplay(e.At.Date))
	case BatchExceedsWindow:
		detail = fmt.Sprintf("end period (%s) cannot be greater than %s",
			calendar.FormatDisplay(e.At.Date), calendar.FormatDisplay(e.Expected.Date))
	}
	if len(e.Rows) > 0 {
		rows := make([]string, len(e.Rows))
		for i, r := range e.Rows {
			rows[i] = fmt.Sprint(r)
		}
		detail += fmt.Sprintf(" (rows %s)", strings.Join(rows, ", "))
	}
	return fmt.Sprintf("%s: %s", e.Kind.sentinel(), detail)
}

func (e *BatchError) Unwrap() error {
	return e.Kind.sentinel()
}

func (e *BatchError) Guidance() string {
	switch e.Kind {
	case BatchStartMismatch:
		if err := e.Reason.Err(); err != nil {
			return (&entry.Error{Err: err}).Guidance()
		}
		return fmt.Sprintf("The file must start with %s.", e.Expected)
	case IncompleteDay:
		return "Every date in the file needs both Morning and Evening rows; use No_Event for an empty slot."
	case DuplicateClient:
		return "Client names must be unique within a slot; merge the rows or rename the client."
	case MixedSlot:
		return "A slot is either marked No_Event or has events, never both."
	case DateGap:
		return "Add the missing dates to the file."
	case BatchExceedsWindow:
		return "Remove the rows after the lock-in date and upload them next week."
	}
	return ""
}

// Batch is a parsed import file.
type Batch struct {
	Rows []Row
}

// Sort orders rows by date, Morning before Evening, keeping file order within a slot.
func (b *Batch) Sort() {
	slices.SortStableFunc(b.Rows, func(x, y Row) int {
		return x.Record.Slot().Compare(y.Record.Slot())
	})
}

func (b *Batch) First() slot.Slot {
	if len(b.Rows) == 0 {
		return slot.Slot{}
	}
	return b.Rows[0].Record.Slot()
}

func (b *Batch) Last() slot.Slot {
	if len(b.Rows) == 0 {
		return slot.Slot{}
	}
	return b.Rows[len(b.Rows)-1].Record.Slot()
}

func (b *Batch) Records() []*models.UsageRecord {
	out := make([]*models.UsageRecord, len(b.Rows))
	for i, r := range b.Rows {
		out[i] = r.Record
	}
	return out
}

// Slots lists the distinct slots of a sorted batch.
func (b *Batch) Slots() []slot.Slot {
	var out []slot.Slot
	for _, r := range b.Rows {
		if s := r.Record.Slot(); len(out) == 0 || !out[len(out)-1].Equal(s) {
			out = append(out, s)
		}
	}
	return out
}

// Ballrooms is the union of ballrooms referenced by the batch.
func (b *Batch) Ballrooms() []string {
	var names []string
	for _, r := range b.Rows {
		for _, name := range r.Record.Ballrooms {
			if !slices.Contains(names, name) {
				names = append(names, name)
			}
		}
	}
	return names
}

// Validate sorts the batch and checks it against the window's cursor. Administrators skip
// the lock-in window and may start at any slot up to the cursor's successor.
func Validate(b *Batch, w entry.Window) error {
	if len(b.Rows) == 0 {
		return ErrEmptyFile
	}
	b.Sort()

	first := b.First()
	if w.Admin {
		// Administrators may re-enter earlier slots but never start past the cursor's successor.
		limit, err := w.Limit()
		if err != nil {
			return err
		}
		if first.After(limit) {
			return &BatchError{Kind: BatchStartMismatch, Rows: []int{b.Rows[0].Index}, At: first, Expected: limit}
		}
	} else {
		next, reason := w.Next()
		if reason != entry.Open || !first.Equal(next) {
			return &BatchError{Kind: BatchStartMismatch, Rows: []int{b.Rows[0].Index}, At: first, Expected: next, Reason: reason}
		}
	}
	if err := checkDays(b, w.Cursor); err != nil {
		return err
	}
	if err := checkSlots(b); err != nil {
		return err
	}
	if err := checkGaps(b); err != nil {
		return err
	}
	if !w.Admin {
		boundary := calendar.MinDate(calendar.NextLockIn(w.Today, w.Rule), calendar.Truncate(w.ContractEnd))
		last := b.Last()
		if last.Date.After(boundary) {
			return &BatchError{
				Kind:     BatchExceedsWindow,
				Rows:     b.rowsAfter(boundary),
				At:       last,
				Expected: slot.New(boundary, slot.None),
			}
		}
	}
	return nil
}

// checkDays requires both timings on every date. The first date may lack Morning when
// the cursor already holds that Morning.
func checkDays(b *Batch, cursor entry.Cursor) error {
	for i := 0; i < len(b.Rows); {
		date := b.Rows[i].Record.Date
		var rows []int
		var morning, evening bool
		for ; i < len(b.Rows) && b.Rows[i].Record.Date.Equal(date); i++ {
			rows = append(rows, b.Rows[i].Index)
			switch b.Rows[i].Record.Timing {
			case slot.Morning:
				morning = true
			case slot.Evening:
				evening = true
			}
		}
		// A batch resuming at Evening cannot repeat the held Morning, so the batch-start
		// rule overrides the complete-day rule for the first date only.
		if !morning && date.Equal(b.Rows[0].Record.Date) && cursor.Slot().Equal(slot.New(date, slot.Morning)) {
			morning = true
		}
		switch {
		case !morning:
			return &BatchError{Kind: IncompleteDay, Rows: rows, At: slot.New(date, slot.None), Missing: slot.Morning}
		case !evening:
			return &BatchError{Kind: IncompleteDay, Rows: rows, At: slot.New(date, slot.None), Missing: slot.Evening}
		}
	}
	return nil
}

// checkSlots requires distinct clients per slot and no mixing of no-event rows with events.
func checkSlots(b *Batch) error {
	for i := 0; i < len(b.Rows); {
		s := b.Rows[i].Record.Slot()
		seen := make(map[string]int)
		var noEvent []int
		var events []int
		for ; i < len(b.Rows) && b.Rows[i].Record.Slot().Equal(s); i++ {
			row := b.Rows[i]
			if row.Record.NoEvent {
				noEvent = append(noEvent, row.Index)
				continue
			}
			events = append(events, row.Index)
			client := strings.TrimSpace(row.Record.Client)
			if first, dup := seen[client]; dup {
				return &BatchError{Kind: DuplicateClient, Rows: []int{first, row.Index}, At: s, Client: client}
			}
			seen[client] = row.Index
		}
		if len(noEvent) > 1 || (len(noEvent) > 0 && len(events) > 0) {
			rows := append(noEvent, events...)
			slices.Sort(rows)
			return &BatchError{Kind: MixedSlot, Rows: rows, At: s}
		}
	}
	return nil
}

func checkGaps(b *Batch) error {
	prev := b.Rows[0]
	for _, row := range b.Rows[1:] {
		gap := calendar.DaysBetween(prev.Record.Date, row.Record.Date)
		if gap > 1 {
			return &BatchError{
				Kind:     DateGap,
				Rows:     []int{prev.Index, row.Index},
				At:       slot.New(row.Record.Date, slot.None),
				Expected: slot.New(prev.Record.Date, slot.None),
			}
		}
		prev = row
	}
	return nil
}

func (b *Batch) rowsAfter(boundary time.Time) []int {
	var rows []int
	for _, r := range b.Rows {
		if r.Record.Date.After(boundary) {
			rows = append(rows, r.Index)
		}
	}
	return rows
}
