package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/banquet/internal/calendar"
	"github.com/julianstephens/banquet/internal/entry"
	"github.com/julianstephens/banquet/internal/logger"
	"github.com/julianstephens/banquet/internal/models"
	"github.com/julianstephens/banquet/internal/slot"
	"github.com/julianstephens/banquet/internal/status"
	"github.com/julianstephens/banquet/internal/storage"
)

// SeedContract sets a hotel's contract window. Once entry has begun the window must
// still hold the cursor: the start may not move past it and the end may not fall below it.
func (e *Engine) SeedContract(ctx context.Context, hotelID string, start, end time.Time) (*models.Hotel, error) {
	contract := models.NewContract(start, end)
	if err := contract.Validate(); err != nil {
		return nil, err
	}
	var saved *models.Hotel
	err := e.update(ctx, hotelID, func(h *models.Hotel) (storage.Changeset, error) {
		if cur := h.Cursor.Slot(); !cur.IsZero() {
			if contract.Start.After(cur.Date) {
				return storage.Changeset{}, fmt.Errorf("%w: start %s is after the entered slot %s",
					models.ErrContractDates, calendar.FormatDisplay(contract.Start), cur)
			}
			if contract.End.Before(cur.Date) {
				return storage.Changeset{}, fmt.Errorf("%w: end %s is before the entered slot %s",
					models.ErrContractDates, calendar.FormatDisplay(contract.End), cur)
			}
		}
		h.Contract = contract
		saved = h
		return storage.Changeset{Hotel: h}, nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Seeded contract", "hotel", saved.Name, "contract", contract)
	return saved, nil
}

// UpdateHotel changes a hotel's descriptive fields.
func (e *Engine) UpdateHotel(ctx context.Context, hotelID string, fn func(h *models.Hotel) error) (*models.Hotel, error) {
	var saved *models.Hotel
	err := e.update(ctx, hotelID, func(h *models.Hotel) (storage.Changeset, error) {
		if err := fn(h); err != nil {
			return storage.Changeset{}, err
		}
		if err := h.Validate(); err != nil {
			return storage.Changeset{}, err
		}
		saved = h
		return storage.Changeset{Hotel: h}, nil
	})
	return saved, err
}

func (e *Engine) AddBallroom(ctx context.Context, hotelID, name string) (*models.Hotel, error) {
	return e.UpdateHotel(ctx, hotelID, func(h *models.Hotel) error {
		return h.AddBallroom(name)
	})
}

func (e *Engine) RemoveBallroom(ctx context.Context, hotelID, name string) (*models.Hotel, error) {
	return e.UpdateHotel(ctx, hotelID, func(h *models.Hotel) error {
		return h.RemoveBallroom(name)
	})
}

func (e *Engine) RenameBallroom(ctx context.Context, hotelID, oldName, newName string) (*models.Hotel, error) {
	return e.UpdateHotel(ctx, hotelID, func(h *models.Hotel) error {
		return h.RenameBallroom(oldName, newName)
	})
}

// ForceRollback moves a hotel's cursor back for correction: one slot when to is zero,
// otherwise onto to. Records after the new cursor are kept.
func (e *Engine) ForceRollback(ctx context.Context, hotelID string, to slot.Slot) (entry.Cursor, error) {
	var cursor entry.Cursor
	err := e.update(ctx, hotelID, func(h *models.Hotel) (storage.Changeset, error) {
		switch {
		case to.IsZero():
			if !h.Rollback() {
				return storage.Changeset{}, fmt.Errorf("cursor of %s is not set", h)
			}
		case !to.Timing.Valid():
			return storage.Changeset{}, fmt.Errorf("rollback target %s needs a timing", to)
		case h.Cursor.IsSet() && to.After(h.Cursor.Slot()):
			return storage.Changeset{}, fmt.Errorf("rollback target %s is after the cursor %s", to, h.Cursor)
		case to.Date.Before(h.Contract.Start):
			h.Cursor.Reset()
		default:
			h.Cursor.Seek(to)
		}
		cursor = h.Cursor
		return storage.Changeset{Hotel: h}, nil
	})
	if err != nil {
		return entry.Cursor{}, err
	}
	logger.Warn("Cursor rolled back", "hotel", hotelID, "cursor", cursor)
	return cursor, nil
}

// Reconciliation compares the cached cursor with the stored records.
type Reconciliation struct {
	Hotel   *models.Hotel
	Cached  entry.Cursor
	Derived entry.Cursor
	// Gaps are empty slots between the contract start and the derived cursor.
	Gaps  []slot.Slot
	Fixed bool
}

func (r Reconciliation) Consistent() bool {
	return r.Cached.Slot().Equal(r.Derived.Slot()) && len(r.Gaps) == 0
}

// Reconcile rebuilds a hotel's cursor from its latest record. With fix set, a stale
// cached cursor is replaced.
func (e *Engine) Reconcile(ctx context.Context, hotelID string, fix bool) (*Reconciliation, error) {
	var rec *Reconciliation
	err := e.update(ctx, hotelID, func(h *models.Hotel) (storage.Changeset, error) {
		rec = &Reconciliation{Hotel: h, Cached: h.Cursor}

		latest, err := e.store.LatestRecord(ctx, h.ID)
		switch {
		case errors.Is(err, storage.ErrNotFound):
		case err != nil:
			return storage.Changeset{}, err
		default:
			rec.Derived = entry.At(latest.Slot())
		}

		if rec.Derived.IsSet() && h.Contract.IsSet() {
			gaps, err := e.gaps(ctx, h, rec.Derived.Slot())
			if err != nil {
				return storage.Changeset{}, err
			}
			rec.Gaps = gaps
		}

		if !fix || rec.Cached.Slot().Equal(rec.Derived.Slot()) {
			return storage.Changeset{}, nil
		}
		if rec.Derived.IsSet() {
			h.Cursor.Seek(rec.Derived.Slot())
		} else {
			h.Cursor.Reset()
		}
		rec.Fixed = true
		return storage.Changeset{Hotel: h}, nil
	})
	if err != nil {
		return nil, err
	}
	if rec.Fixed {
		logger.Warn("Rebuilt cursor", "hotel", rec.Hotel.Name, "cached", rec.Cached, "derived", rec.Derived)
	}
	return rec, nil
}

func (e *Engine) gaps(ctx context.Context, h *models.Hotel, through slot.Slot) ([]slot.Slot, error) {
	start := slot.New(h.Contract.Start, slot.Morning)
	if through.Before(start) {
		return nil, nil
	}
	records, err := e.store.FindRecords(ctx, h.ID, start.Date, through.Date)
	if err != nil {
		return nil, err
	}
	filled := make(map[slot.Slot]bool, len(records))
	for _, r := range records {
		filled[r.Slot()] = true
	}
	var gaps []slot.Slot
	for _, s := range slot.Between(start, through) {
		if !filled[s] {
			gaps = append(gaps, s)
		}
	}
	return gaps, nil
}

// Status builds the entry status board for the hotels of city, or all hotels.
func (e *Engine) Status(ctx context.Context, city string, days int) (*status.Board, error) {
	hotels, err := e.Hotels(ctx, city)
	if err != nil {
		return nil, err
	}
	return status.Build(hotels, calendar.Today(e.clock), days), nil
}
