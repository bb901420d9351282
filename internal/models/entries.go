package models

import (
	"errors"
	"fmt"
	"slices"

	"github.com/julianstephens/banquet/internal/slot"
)

var ErrMixedSlot = errors.New("slot holds both a no-event marker and events")

// EntryKind tells what a slot currently holds.
type EntryKind int

const (
	SlotEmpty EntryKind = iota
	SlotNoEvent
	SlotEvents
)

func (k EntryKind) String() string {
	switch k {
	case SlotNoEvent:
		return "no event"
	case SlotEvents:
		return "events"
	default:
		return "empty"
	}
}

// SlotEntries is the content of one slot: nothing, a single no-event marker, or one or
// more events. The two non-empty forms never coexist.
type SlotEntries struct {
	slot    slot.Slot
	noEvent *UsageRecord
	events  []*UsageRecord
}

// Classify groups the records of s into a SlotEntries. Records of other slots are ignored.
func Classify(s slot.Slot, records []*UsageRecord) (SlotEntries, error) {
	e := SlotEntries{slot: s}
	for _, r := range records {
		if !r.Slot().Equal(s) {
			continue
		}
		if r.NoEvent {
			if e.noEvent != nil {
				return SlotEntries{}, fmt.Errorf("%s: %w", s, ErrMixedSlot)
			}
			e.noEvent = r
			continue
		}
		e.events = append(e.events, r)
	}
	if e.noEvent != nil && len(e.events) > 0 {
		return SlotEntries{}, fmt.Errorf("%s: %w", s, ErrMixedSlot)
	}
	return e, nil
}

// GroupBySlot classifies records, returning slots in chronological order.
func GroupBySlot(records []*UsageRecord) ([]SlotEntries, error) {
	var slots []slot.Slot
	seen := make(map[slot.Slot]bool)
	for _, r := range records {
		s := r.Slot()
		if !seen[s] {
			seen[s] = true
			slots = append(slots, s)
		}
	}
	slices.SortFunc(slots, slot.Slot.Compare)
	out := make([]SlotEntries, 0, len(slots))
	for _, s := range slots {
		e, err := Classify(s, records)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (e SlotEntries) Slot() slot.Slot { return e.slot }

func (e SlotEntries) Kind() EntryKind {
	switch {
	case e.noEvent != nil:
		return SlotNoEvent
	case len(e.events) > 0:
		return SlotEvents
	default:
		return SlotEmpty
	}
}

func (e SlotEntries) IsEmpty() bool { return e.Kind() == SlotEmpty }

// NoEvent returns the marker, or nil.
func (e SlotEntries) NoEvent() *UsageRecord { return e.noEvent }

func (e SlotEntries) Events() []*UsageRecord { return e.events }

// Records returns every record in the slot.
func (e SlotEntries) Records() []*UsageRecord {
	if e.noEvent != nil {
		return []*UsageRecord{e.noEvent}
	}
	return e.events
}

func (e SlotEntries) Len() int { return len(e.Records()) }

func (e SlotEntries) Find(id string) *UsageRecord {
	for _, r := range e.Records() {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// HasClient reports whether another event in the slot already uses client.
func (e SlotEntries) HasClient(client, exceptID string) bool {
	for _, r := range e.events {
		if r.ID != exceptID && SameClient(r.Client, client) {
			return true
		}
	}
	return false
}

// Ballrooms is the union of ballrooms used by the slot's events.
func (e SlotEntries) Ballrooms() []string {
	var names []string
	for _, r := range e.events {
		for _, b := range r.Ballrooms {
			if !slices.Contains(names, b) {
				names = append(names, b)
			}
		}
	}
	return names
}
