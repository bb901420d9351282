package storage

import (
	"context"
	"errors"
	"time"

	"github.com/julianstephens/banquet/internal/models"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrNotLoaded      = errors.New("storage not loaded")
	ErrNotInitialized = errors.New("storage not initialized, run 'banquet init' first")
	// ErrStaleHotel is returned by Commit when the hotel changed since it was read.
	ErrStaleHotel     = errors.New("hotel was modified concurrently")
	ErrDuplicateHotel = errors.New("a hotel with this name already exists in the city")
	// ErrDuplicateRecord is returned when a client is recorded twice in one slot.
	ErrDuplicateRecord = errors.New("client already recorded for this slot")
)

// Changeset is everything one engine operation writes. Providers apply it atomically:
// either every record change and the hotel save land, or none do.
type Changeset struct {
	// Hotel, when set, is saved only if its stored Version still equals Hotel.Version.
	// On success Hotel.Version is incremented.
	Hotel  *models.Hotel
	Create []*models.UsageRecord
	Update []*models.UsageRecord
	// Delete holds record IDs.
	Delete []string
}

func (c Changeset) IsEmpty() bool {
	return c.Hotel == nil && len(c.Create) == 0 && len(c.Update) == 0 && len(c.Delete) == 0
}

type Provider interface {
	// Lifecycle
	Init(ctx context.Context) error
	Load(ctx context.Context) error
	Close() error

	// Hotels
	AddHotel(ctx context.Context, h *models.Hotel) error
	GetHotel(ctx context.Context, id string) (*models.Hotel, error)
	GetHotelByName(ctx context.Context, city, name string) (*models.Hotel, error)
	GetAllHotels(ctx context.Context) ([]*models.Hotel, error)

	// Usage records
	GetRecord(ctx context.Context, id string) (*models.UsageRecord, error)
	// FindRecords returns a hotel's records dated within [from, to], ordered by date,
	// Morning before Evening, then client. A zero bound is open.
	FindRecords(ctx context.Context, hotelID string, from, to time.Time) ([]*models.UsageRecord, error)
	// LatestRecord returns the chronologically last record of a hotel, or ErrNotFound.
	LatestRecord(ctx context.Context, hotelID string) (*models.UsageRecord, error)

	// Commit applies a changeset atomically.
	Commit(ctx context.Context, cs Changeset) error

	// Utils
	GetConfigPath() string
}
