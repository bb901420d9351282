package service

import (
	"context"
	"fmt"
	"time"

	"github.com/julianstephens/banquet/internal/entry"
	"github.com/julianstephens/banquet/internal/logger"
	"github.com/julianstephens/banquet/internal/models"
	"github.com/julianstephens/banquet/internal/slot"
	"github.com/julianstephens/banquet/internal/storage"
)

// Next is a hotel's entry position.
type Next struct {
	Hotel  *models.Hotel
	Today  time.Time
	Slot   slot.Slot
	Reason entry.Reason
}

func (n Next) Err() error {
	if err := n.Reason.Err(); err != nil {
		return &entry.Error{Err: err, At: n.Slot}
	}
	return nil
}

func (e *Engine) NextSlot(ctx context.Context, hotelID string) (*Next, error) {
	h, err := e.store.GetHotel(ctx, hotelID)
	if err != nil {
		return nil, err
	}
	today := e.Today()
	s, reason := h.NextSlot(today, e.rule)
	return &Next{Hotel: h, Today: today, Slot: s, Reason: reason}, nil
}

// Records lists a hotel's records dated within [from, to].
func (e *Engine) Records(ctx context.Context, hotelID string, from, to time.Time) ([]*models.UsageRecord, error) {
	return e.store.FindRecords(ctx, hotelID, from, to)
}

func (e *Engine) SlotRecords(ctx context.Context, hotelID string, s slot.Slot) (models.SlotEntries, error) {
	return e.slotEntries(ctx, hotelID, s)
}

func (e *Engine) slotEntries(ctx context.Context, hotelID string, s slot.Slot) (models.SlotEntries, error) {
	records, err := e.store.FindRecords(ctx, hotelID, s.Date, s.Date)
	if err != nil {
		return models.SlotEntries{}, err
	}
	return models.Classify(s, records)
}

// checkTarget guards writes into target. Slots the cursor already covers are edits and
// fall under the lock-in rule.
func (e *Engine) checkTarget(h *models.Hotel, actor Actor, target slot.Slot) error {
	w := h.Window(e.Today(), e.rule, actor.Admin)
	if err := w.CheckWritable(target); err != nil {
		return err
	}
	if h.Cursor.IsSet() && !target.After(h.Cursor.Slot()) {
		return w.CheckEditable(target.Date)
	}
	return nil
}

// CreateEvent records an event in rec's slot. A no-event marker in the slot is
// replaced, the cursor advances to the slot and the event's ballrooms become used.
func (e *Engine) CreateEvent(ctx context.Context, actor Actor, hotelID string, rec *models.UsageRecord) (*models.UsageRecord, error) {
	var created *models.UsageRecord
	err := e.update(ctx, hotelID, func(h *models.Hotel) (storage.Changeset, error) {
		r := rec.Clone()
		r.ID = e.newID()
		r.NoEvent = false
		r.SetHotel(h)
		r.SetSlot(rec.Slot())
		target := r.Slot()

		if err := e.checkTarget(h, actor, target); err != nil {
			return storage.Changeset{}, err
		}
		if err := r.Validate(h, e.vocab); err != nil {
			return storage.Changeset{}, err
		}
		entries, err := e.slotEntries(ctx, h.ID, target)
		if err != nil {
			return storage.Changeset{}, err
		}
		if entries.HasClient(r.Client, "") {
			return storage.Changeset{}, fmt.Errorf("%s %q: %w", target, r.Client, ErrDuplicateClient)
		}

		cs := storage.Changeset{Hotel: h, Create: []*models.UsageRecord{r}}
		if marker := entries.NoEvent(); marker != nil {
			cs.Delete = []string{marker.ID}
		}
		h.Advance(target)
		h.MarkUsed(r.Ballrooms, true)
		created = r
		return cs, nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Created event", "hotel", created.Hotel, "slot", created.Slot(), "client", created.Client, "by", actor.Name)
	return created, nil
}

// MarkNoEvent records that s had no events. Marking an already marked slot is a no-op.
func (e *Engine) MarkNoEvent(ctx context.Context, actor Actor, hotelID string, s slot.Slot) (*models.UsageRecord, error) {
	var marker *models.UsageRecord
	err := e.update(ctx, hotelID, func(h *models.Hotel) (storage.Changeset, error) {
		target := slot.New(s.Date, s.Timing)
		if err := e.checkTarget(h, actor, target); err != nil {
			return storage.Changeset{}, err
		}
		entries, err := e.slotEntries(ctx, h.ID, target)
		if err != nil {
			return storage.Changeset{}, err
		}
		switch entries.Kind() {
		case models.SlotEvents:
			return storage.Changeset{}, fmt.Errorf("%s: %w", target, ErrSlotHasEvents)
		case models.SlotNoEvent:
			marker = entries.NoEvent()
			if !h.Advance(target) {
				return storage.Changeset{}, nil
			}
			return storage.Changeset{Hotel: h}, nil
		}

		marker = models.NewNoEvent(e.newID(), h, target)
		h.Advance(target)
		return storage.Changeset{Hotel: h, Create: []*models.UsageRecord{marker}}, nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Marked no event", "hotel", marker.Hotel, "slot", marker.Slot(), "by", actor.Name)
	return marker, nil
}

// UpdateEvent replaces the details of the event rec.ID. The slot cannot change.
func (e *Engine) UpdateEvent(ctx context.Context, actor Actor, rec *models.UsageRecord) (*models.UsageRecord, error) {
	existing, err := e.store.GetRecord(ctx, rec.ID)
	if err != nil {
		return nil, err
	}

	var updated *models.UsageRecord
	err = e.update(ctx, existing.HotelID, func(h *models.Hotel) (storage.Changeset, error) {
		current, err := e.store.GetRecord(ctx, rec.ID)
		if err != nil {
			return storage.Changeset{}, err
		}
		if current.NoEvent {
			return storage.Changeset{}, ErrNoEventEdit
		}
		if !rec.Date.IsZero() && !rec.Slot().Equal(current.Slot()) {
			return storage.Changeset{}, fmt.Errorf("%s to %s: %w", current.Slot(), rec.Slot(), ErrSlotChange)
		}
		if err := h.Window(e.Today(), e.rule, actor.Admin).CheckEditable(current.Date); err != nil {
			return storage.Changeset{}, err
		}

		r := current.Clone()
		r.Client = rec.Client
		r.EventType = rec.EventType
		r.Meals = rec.Meals
		r.Ballrooms = rec.Ballrooms
		r.EventDescription = rec.EventDescription
		r.SetHotel(h)
		if err := r.Validate(h, e.vocab); err != nil {
			return storage.Changeset{}, err
		}
		entries, err := e.slotEntries(ctx, h.ID, r.Slot())
		if err != nil {
			return storage.Changeset{}, err
		}
		if entries.HasClient(r.Client, r.ID) {
			return storage.Changeset{}, fmt.Errorf("%s %q: %w", r.Slot(), r.Client, ErrDuplicateClient)
		}

		h.MarkUsed(r.Ballrooms, true)
		updated = r
		return storage.Changeset{Hotel: h, Update: []*models.UsageRecord{r}}, nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Updated event", "hotel", updated.Hotel, "slot", updated.Slot(), "client", updated.Client, "by", actor.Name)
	return updated, nil
}

// DeleteRecord removes a record. Removing the last record of the cursor slot rolls the
// cursor back; removing the last record of an earlier slot is refused.
func (e *Engine) DeleteRecord(ctx context.Context, actor Actor, id string) error {
	existing, err := e.store.GetRecord(ctx, id)
	if err != nil {
		return err
	}

	rolledBack := false
	err = e.update(ctx, existing.HotelID, func(h *models.Hotel) (storage.Changeset, error) {
		rolledBack = false
		current, err := e.store.GetRecord(ctx, id)
		if err != nil {
			return storage.Changeset{}, err
		}
		if err := h.Window(e.Today(), e.rule, actor.Admin).CheckEditable(current.Date); err != nil {
			return storage.Changeset{}, err
		}
		entries, err := e.slotEntries(ctx, h.ID, current.Slot())
		if err != nil {
			return storage.Changeset{}, err
		}

		cs := storage.Changeset{Hotel: h, Delete: []string{id}}
		if entries.Len() > 1 || !h.Cursor.IsSet() {
			return cs, nil
		}
		cursor := h.Cursor.Slot()
		switch {
		case current.Slot().Equal(cursor):
			rolledBack = h.Rollback()
		case current.Slot().Before(cursor):
			return storage.Changeset{}, fmt.Errorf("%s: %w", current.Slot(), ErrWouldLeaveGap)
		}
		return cs, nil
	})
	if err != nil {
		return err
	}
	logger.Info("Deleted record", "hotel", existing.Hotel, "slot", existing.Slot(), "client", existing.Client,
		"rolled_back", rolledBack, "by", actor.Name)
	return nil
}
