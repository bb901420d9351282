package storage

import (
	"cmp"
	"slices"
	"time"

	"github.com/julianstephens/banquet/internal/models"
)

// CompareRecords is the FindRecords order: date, Morning before Evening, then client.
func CompareRecords(a, b *models.UsageRecord) int {
	if c := a.Slot().Compare(b.Slot()); c != 0 {
		return c
	}
	return cmp.Compare(a.Client, b.Client)
}

func SortRecords(records []*models.UsageRecord) {
	slices.SortFunc(records, CompareRecords)
}

// InRange reports whether date lies in [from, to]; zero bounds are open.
func InRange(date, from, to time.Time) bool {
	if !from.IsZero() && date.Before(from) {
		return false
	}
	if !to.IsZero() && date.After(to) {
		return false
	}
	return true
}

// RecordKey identifies a client within a slot, the uniqueness key of usage records.
func RecordKey(r *models.UsageRecord) string {
	return r.HotelID + "|" + r.Slot().String() + "|" + r.Client
}

// Stamp sets the timestamps of records about to be written.
func Stamp(cs Changeset, now time.Time) {
	for _, r := range cs.Create {
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		r.UpdatedAt = now
	}
	for _, r := range cs.Update {
		r.UpdatedAt = now
	}
	if cs.Hotel != nil {
		cs.Hotel.UpdatedAt = now
	}
}

// SortHotels orders hotels by city, then name.
func SortHotels(hotels []*models.Hotel) {
	slices.SortFunc(hotels, func(a, b *models.Hotel) int {
		if c := cmp.Compare(a.City, b.City); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
}
