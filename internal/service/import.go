package service

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/julianstephens/banquet/internal/entry"
	"github.com/julianstephens/banquet/internal/importer"
	"github.com/julianstephens/banquet/internal/logger"
	"github.com/julianstephens/banquet/internal/models"
	"github.com/julianstephens/banquet/internal/slot"
	"github.com/julianstephens/banquet/internal/storage"
)

type ImportResult struct {
	Rows   int          `json:"rows"`
	First  slot.Slot    `json:"first"`
	Last   slot.Slot    `json:"last"`
	Cursor entry.Cursor `json:"cursor"`
}

// Import validates a CSV file and commits every row in one changeset, or nothing.
// The file is parsed again on every attempt so it is always checked against the
// snapshot it is committed with.
func (e *Engine) Import(ctx context.Context, actor Actor, hotelID string, r io.Reader) (*ImportResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read import file: %w", err)
	}

	var result *ImportResult
	var hotel string
	err = e.update(ctx, hotelID, func(h *models.Hotel) (storage.Changeset, error) {
		hotel = h.Name
		batch, err := importer.Parse(bytes.NewReader(data), h, e.vocab)
		if err != nil {
			return storage.Changeset{}, err
		}
		if err := importer.Validate(batch, h.Window(e.Today(), e.rule, actor.Admin)); err != nil {
			return storage.Changeset{}, err
		}
		if err := e.checkConflicts(ctx, h, batch); err != nil {
			return storage.Changeset{}, err
		}

		records := batch.Records()
		for _, rec := range records {
			rec.ID = e.newID()
		}
		h.Advance(batch.Last())
		h.MarkUsed(batch.Ballrooms(), true)

		result = &ImportResult{Rows: len(records), First: batch.First(), Last: batch.Last(), Cursor: h.Cursor}
		return storage.Changeset{Hotel: h, Create: records}, nil
	})
	if err != nil {
		logger.Warn("Rejected import", "hotel", hotel, "error", err, "by", actor.Name)
		return nil, err
	}
	logger.Info("Imported records", "hotel", hotel, "rows", result.Rows, "first", result.First, "last", result.Last, "by", actor.Name)
	return result, nil
}

// checkConflicts refuses batches touching slots that already hold records.
func (e *Engine) checkConflicts(ctx context.Context, h *models.Hotel, batch *importer.Batch) error {
	existing, err := e.store.FindRecords(ctx, h.ID, batch.First().Date, batch.Last().Date)
	if err != nil {
		return err
	}
	slots := make(map[slot.Slot]bool)
	for _, s := range batch.Slots() {
		slots[s] = true
	}
	for _, r := range existing {
		if slots[r.Slot()] {
			return fmt.Errorf("%s: %w", r.Slot(), ErrImportConflict)
		}
	}
	return nil
}
