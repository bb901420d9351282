package mongo

import (
	"strings"
	"time"

	"github.com/julianstephens/banquet/internal/calendar"
	"github.com/julianstephens/banquet/internal/entry"
	"github.com/julianstephens/banquet/internal/models"
	"github.com/julianstephens/banquet/internal/slot"
)

// Dates are stored as YYYY-MM-DD strings so range filters compare lexically.

type hotelDoc struct {
	ID           string            `bson:"_id"`
	Name         string            `bson:"name"`
	City         string            `bson:"city"`
	CityKey      string            `bson:"city_key"`
	NameKey      string            `bson:"name_key"`
	Initial      string            `bson:"initial"`
	Email        string            `bson:"email"`
	Competitions []string          `bson:"competitions"`
	Ballrooms    []models.Ballroom `bson:"ballrooms"`
	ContractFrom string            `bson:"contract_start,omitempty"`
	ContractTo   string            `bson:"contract_end,omitempty"`
	LastDate     string            `bson:"last_entry_date,omitempty"`
	LastTiming   string            `bson:"last_entry_timing,omitempty"`
	Version      int64             `bson:"version"`
	CreatedAt    time.Time         `bson:"created_at"`
	UpdatedAt    time.Time         `bson:"updated_at"`
}

type recordDoc struct {
	ID               string    `bson:"_id"`
	HotelID          string    `bson:"hotel_id"`
	Hotel            string    `bson:"hotel"`
	City             string    `bson:"city"`
	Date             string    `bson:"date"`
	Timing           string    `bson:"timing"`
	TimingRank       int       `bson:"timing_rank"`
	Client           string    `bson:"client"`
	EventType        string    `bson:"event_type"`
	Meals            []string  `bson:"meals"`
	Ballrooms        []string  `bson:"ballrooms"`
	EventDescription string    `bson:"event_description"`
	NoEvent          bool      `bson:"no_event"`
	Day              string    `bson:"day"`
	Weekday          bool      `bson:"weekday"`
	Month            string    `bson:"month"`
	CreatedAt        time.Time `bson:"created_at"`
	UpdatedAt        time.Time `bson:"updated_at"`
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return calendar.FormatDB(t)
}

func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := calendar.ParseDB(s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func toHotelDoc(h *models.Hotel) hotelDoc {
	return hotelDoc{
		ID:           h.ID,
		Name:         h.Name,
		City:         h.City,
		CityKey:      strings.ToLower(strings.TrimSpace(h.City)),
		NameKey:      strings.ToLower(strings.TrimSpace(h.Name)),
		Initial:      h.Initial,
		Email:        h.Email,
		Competitions: h.Competitions,
		Ballrooms:    h.Ballrooms,
		ContractFrom: formatDate(h.Contract.Start),
		ContractTo:   formatDate(h.Contract.End),
		LastDate:     formatDate(h.Cursor.Date()),
		LastTiming:   string(h.Cursor.Timing()),
		Version:      h.Version,
		CreatedAt:    h.CreatedAt,
		UpdatedAt:    h.UpdatedAt,
	}
}

func (d hotelDoc) model() *models.Hotel {
	return &models.Hotel{
		ID:           d.ID,
		Name:         d.Name,
		City:         d.City,
		Initial:      d.Initial,
		Email:        d.Email,
		Competitions: d.Competitions,
		Ballrooms:    d.Ballrooms,
		Contract:     models.Contract{Start: parseDate(d.ContractFrom), End: parseDate(d.ContractTo)},
		Cursor:       entry.Restore(parseDate(d.LastDate), slot.Timing(d.LastTiming)),
		Version:      d.Version,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}

func toRecordDoc(r *models.UsageRecord) recordDoc {
	return recordDoc{
		ID:               r.ID,
		HotelID:          r.HotelID,
		Hotel:            r.Hotel,
		City:             r.City,
		Date:             formatDate(r.Date),
		Timing:           string(r.Timing),
		TimingRank:       r.Timing.Rank(),
		Client:           r.Client,
		EventType:        r.EventType,
		Meals:            r.Meals,
		Ballrooms:        r.Ballrooms,
		EventDescription: r.EventDescription,
		NoEvent:          r.NoEvent,
		Day:              r.Day,
		Weekday:          r.Weekday,
		Month:            r.Month,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

func (d recordDoc) model() *models.UsageRecord {
	return &models.UsageRecord{
		ID:               d.ID,
		HotelID:          d.HotelID,
		Hotel:            d.Hotel,
		City:             d.City,
		Date:             parseDate(d.Date),
		Timing:           slot.Timing(d.Timing),
		Client:           d.Client,
		EventType:        d.EventType,
		Meals:            d.Meals,
		Ballrooms:        d.Ballrooms,
		EventDescription: d.EventDescription,
		NoEvent:          d.NoEvent,
		Day:              d.Day,
		Weekday:          d.Weekday,
		Month:            d.Month,
		CreatedAt:        d.CreatedAt.UTC(),
		UpdatedAt:        d.UpdatedAt.UTC(),
	}
}
