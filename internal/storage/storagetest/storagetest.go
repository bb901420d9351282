// Package storagetest is a conformance suite run against every storage backend.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/julianstephens/banquet/internal/calendar"
	"github.com/julianstephens/banquet/internal/entry"
	"github.com/julianstephens/banquet/internal/models"
	"github.com/julianstephens/banquet/internal/slot"
	"github.com/julianstephens/banquet/internal/storage"
)

// Factory returns an initialized, empty provider. Cleanup is the caller's job.
type Factory func(t *testing.T) storage.Provider

func Run(t *testing.T, newProvider Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, p storage.Provider)
	}{
		{"HotelRoundTrip", testHotelRoundTrip},
		{"DuplicateHotel", testDuplicateHotel},
		{"GetAllHotels", testGetAllHotels},
		{"RecordsOrderedAndRanged", testRecordsOrdered},
		{"LatestRecord", testLatestRecord},
		{"StaleHotelRejected", testStaleHotel},
		{"DuplicateRecordRollsBack", testDuplicateRecord},
		{"UpdateAndDelete", testUpdateAndDelete},
		{"MissingRecordRollsBack", testMissingRecord},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newProvider(t))
		})
	}
}

func d(day int) time.Time {
	return calendar.Date(2024, time.January, day)
}

// NewHotel builds a hotel with a January 2024 contract.
func NewHotel(id, name, city string) *models.Hotel {
	h := models.NewHotel(id, name, city)
	h.Contract = models.NewContract(d(1), d(31))
	return h
}

func NewEvent(id string, h *models.Hotel, s slot.Slot, client string) *models.UsageRecord {
	r := &models.UsageRecord{
		ID:        id,
		Client:    client,
		EventType: "Social Event",
		Meals:     []string{"Dinner"},
		Ballrooms: []string{"Other"},
	}
	r.SetHotel(h)
	r.SetSlot(s)
	return r
}

func mustAdd(t *testing.T, p storage.Provider, h *models.Hotel) {
	t.Helper()
	if err := p.AddHotel(context.Background(), h); err != nil {
		t.Fatalf("AddHotel(%s) error = %v", h, err)
	}
}

func mustCommit(t *testing.T, p storage.Provider, cs storage.Changeset) {
	t.Helper()
	if err := p.Commit(context.Background(), cs); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
}

func testHotelRoundTrip(t *testing.T, p storage.Provider) {
	ctx := context.Background()
	h := NewHotel("h1", "Grand Palace", "Mumbai")
	h.Email = "events@grandpalace.example"
	h.Competitions = []string{"Sea View", "Harbour Inn"}
	h.Ballrooms = append(h.Ballrooms, models.Ballroom{Name: "Crystal", Used: true})
	h.Cursor = entry.At(slot.New(d(5), slot.Evening))
	mustAdd(t, p, h)

	if h.Version != 1 {
		t.Errorf("Version after add = %d, want 1", h.Version)
	}

	got, err := p.GetHotel(ctx, "h1")
	if err != nil {
		t.Fatalf("GetHotel() error = %v", err)
	}
	if got.Name != h.Name || got.City != h.City || got.Initial != "GP" || got.Email != h.Email {
		t.Errorf("GetHotel() = %+v", got)
	}
	if len(got.Competitions) != 2 || got.Competitions[1] != "Harbour Inn" {
		t.Errorf("Competitions = %v", got.Competitions)
	}
	if len(got.Ballrooms) != 2 || !got.Ballrooms[1].Used || got.Ballrooms[0].Used {
		t.Errorf("Ballrooms = %+v", got.Ballrooms)
	}
	if !got.Contract.Start.Equal(d(1)) || !got.Contract.End.Equal(d(31)) {
		t.Errorf("Contract = %s", got.Contract)
	}
	if !got.Cursor.Slot().Equal(slot.New(d(5), slot.Evening)) {
		t.Errorf("Cursor = %s, want 2024-01-05 Evening", got.Cursor)
	}

	byName, err := p.GetHotelByName(ctx, "mumbai", "GRAND PALACE")
	if err != nil {
		t.Fatalf("GetHotelByName() error = %v", err)
	}
	if byName.ID != "h1" {
		t.Errorf("GetHotelByName() id = %s, want h1", byName.ID)
	}

	if _, err := p.GetHotel(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetHotel(missing) error = %v, want ErrNotFound", err)
	}

	// An unset cursor survives the round trip.
	blank := NewHotel("h2", "Blank", "Pune")
	mustAdd(t, p, blank)
	got, err = p.GetHotel(ctx, "h2")
	if err != nil {
		t.Fatalf("GetHotel() error = %v", err)
	}
	if got.Cursor.IsSet() {
		t.Errorf("Cursor = %s, want unset", got.Cursor)
	}
}

func testDuplicateHotel(t *testing.T, p storage.Provider) {
	mustAdd(t, p, NewHotel("h1", "Grand Palace", "Mumbai"))
	err := p.AddHotel(context.Background(), NewHotel("h2", "grand palace", "MUMBAI"))
	if !errors.Is(err, storage.ErrDuplicateHotel) {
		t.Errorf("AddHotel(duplicate) error = %v, want ErrDuplicateHotel", err)
	}
	// Same name in another city is fine.
	mustAdd(t, p, NewHotel("h3", "Grand Palace", "Pune"))
}

func testGetAllHotels(t *testing.T, p storage.Provider) {
	mustAdd(t, p, NewHotel("h1", "Beta", "Pune"))
	mustAdd(t, p, NewHotel("h2", "Alpha", "Mumbai"))

	hotels, err := p.GetAllHotels(context.Background())
	if err != nil {
		t.Fatalf("GetAllHotels() error = %v", err)
	}
	if len(hotels) != 2 || hotels[0].ID != "h2" || hotels[1].ID != "h1" {
		t.Errorf("GetAllHotels() order wrong: %v", hotels)
	}
}

func testRecordsOrdered(t *testing.T, p storage.Provider) {
	ctx := context.Background()
	h := NewHotel("h1", "Grand Palace", "Mumbai")
	mustAdd(t, p, h)

	h.Cursor = entry.At(slot.New(d(3), slot.Morning))
	mustCommit(t, p, storage.Changeset{
		Hotel: h,
		Create: []*models.UsageRecord{
			NewEvent("r4", h, slot.New(d(3), slot.Morning), "zeta"),
			NewEvent("r3", h, slot.New(d(2), slot.Evening), "acme"),
			NewEvent("r2", h, slot.New(d(2), slot.Morning), "beta"),
			NewEvent("r1", h, slot.New(d(2), slot.Morning), "acme"),
			models.NewNoEvent("r0", h, slot.New(d(1), slot.Evening)),
		},
	})
	if h.Version != 2 {
		t.Errorf("Version after commit = %d, want 2", h.Version)
	}

	all, err := p.FindRecords(ctx, "h1", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("FindRecords() error = %v", err)
	}
	want := []string{"r0", "r1", "r2", "r3", "r4"}
	if len(all) != len(want) {
		t.Fatalf("FindRecords() returned %d records, want %d", len(all), len(want))
	}
	for i, id := range want {
		if all[i].ID != id {
			t.Errorf("FindRecords()[%d] = %s, want %s", i, all[i].ID, id)
		}
	}

	r := all[1]
	if r.Day != "Tuesday" || !r.Weekday || r.Month != "2024-01" || r.HotelID != "h1" || r.City != "Mumbai" {
		t.Errorf("derived fields = %+v", r)
	}
	if len(r.Meals) != 1 || r.Meals[0] != "Dinner" || len(r.Ballrooms) != 1 {
		t.Errorf("lists = %v %v", r.Meals, r.Ballrooms)
	}
	if !all[0].NoEvent || all[0].Client != "" {
		t.Errorf("no-event marker = %+v", all[0])
	}

	ranged, err := p.FindRecords(ctx, "h1", d(2), d(2))
	if err != nil {
		t.Fatalf("FindRecords(range) error = %v", err)
	}
	if len(ranged) != 3 {
		t.Errorf("FindRecords(2024-01-02) returned %d records, want 3", len(ranged))
	}

	none, err := p.FindRecords(ctx, "other", time.Time{}, time.Time{})
	if err != nil || len(none) != 0 {
		t.Errorf("FindRecords(other) = %v, %v", none, err)
	}

	stored, err := p.GetHotel(ctx, "h1")
	if err != nil {
		t.Fatalf("GetHotel() error = %v", err)
	}
	if stored.Version != 2 || !stored.Cursor.Slot().Equal(slot.New(d(3), slot.Morning)) {
		t.Errorf("stored hotel version %d cursor %s", stored.Version, stored.Cursor)
	}
}

func testLatestRecord(t *testing.T, p storage.Provider) {
	ctx := context.Background()
	h := NewHotel("h1", "Grand Palace", "Mumbai")
	mustAdd(t, p, h)

	if _, err := p.LatestRecord(ctx, "h1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("LatestRecord(empty) error = %v, want ErrNotFound", err)
	}

	mustCommit(t, p, storage.Changeset{Create: []*models.UsageRecord{
		NewEvent("r1", h, slot.New(d(4), slot.Morning), "acme"),
		NewEvent("r2", h, slot.New(d(3), slot.Evening), "acme"),
		NewEvent("r3", h, slot.New(d(4), slot.Evening), "acme"),
		NewEvent("r4", h, slot.New(d(1), slot.Evening), "acme"),
	}})

	latest, err := p.LatestRecord(ctx, "h1")
	if err != nil {
		t.Fatalf("LatestRecord() error = %v", err)
	}
	if latest.ID != "r3" {
		t.Errorf("LatestRecord() = %s, want r3", latest.ID)
	}
}

func testStaleHotel(t *testing.T, p storage.Provider) {
	ctx := context.Background()
	h := NewHotel("h1", "Grand Palace", "Mumbai")
	mustAdd(t, p, h)

	first := h.Clone()
	second := h.Clone()

	first.Cursor = entry.At(slot.New(d(1), slot.Morning))
	mustCommit(t, p, storage.Changeset{
		Hotel:  first,
		Create: []*models.UsageRecord{models.NewNoEvent("r1", first, slot.New(d(1), slot.Morning))},
	})

	second.Cursor = entry.At(slot.New(d(1), slot.Evening))
	err := p.Commit(ctx, storage.Changeset{
		Hotel:  second,
		Create: []*models.UsageRecord{models.NewNoEvent("r2", second, slot.New(d(1), slot.Evening))},
	})
	if !errors.Is(err, storage.ErrStaleHotel) {
		t.Fatalf("Commit(stale) error = %v, want ErrStaleHotel", err)
	}
	if second.Version != 1 {
		t.Errorf("rejected commit changed Version to %d", second.Version)
	}

	records, err := p.FindRecords(ctx, "h1", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("FindRecords() error = %v", err)
	}
	if len(records) != 1 || records[0].ID != "r1" {
		t.Errorf("records after stale commit = %v", records)
	}
	stored, _ := p.GetHotel(ctx, "h1")
	if !stored.Cursor.Slot().Equal(slot.New(d(1), slot.Morning)) {
		t.Errorf("cursor after stale commit = %s", stored.Cursor)
	}
}

func testDuplicateRecord(t *testing.T, p storage.Provider) {
	ctx := context.Background()
	h := NewHotel("h1", "Grand Palace", "Mumbai")
	mustAdd(t, p, h)
	mustCommit(t, p, storage.Changeset{Create: []*models.UsageRecord{
		NewEvent("r1", h, slot.New(d(1), slot.Morning), "acme"),
	}})

	h.Cursor = entry.At(slot.New(d(1), slot.Evening))
	err := p.Commit(ctx, storage.Changeset{
		Hotel: h,
		Create: []*models.UsageRecord{
			NewEvent("r2", h, slot.New(d(1), slot.Evening), "beta"),
			NewEvent("r3", h, slot.New(d(1), slot.Morning), "acme"),
		},
	})
	if !errors.Is(err, storage.ErrDuplicateRecord) {
		t.Fatalf("Commit(duplicate) error = %v, want ErrDuplicateRecord", err)
	}

	records, _ := p.FindRecords(ctx, "h1", time.Time{}, time.Time{})
	if len(records) != 1 {
		t.Errorf("records after failed commit = %d, want 1", len(records))
	}
	stored, _ := p.GetHotel(ctx, "h1")
	if stored.Cursor.IsSet() || stored.Version != 1 {
		t.Errorf("hotel changed by failed commit: version %d cursor %s", stored.Version, stored.Cursor)
	}
}

func testUpdateAndDelete(t *testing.T, p storage.Provider) {
	ctx := context.Background()
	h := NewHotel("h1", "Grand Palace", "Mumbai")
	mustAdd(t, p, h)
	mustCommit(t, p, storage.Changeset{Create: []*models.UsageRecord{
		models.NewNoEvent("r1", h, slot.New(d(1), slot.Morning)),
		NewEvent("r2", h, slot.New(d(1), slot.Evening), "acme"),
	}})

	// Replace the marker with an event and edit the other record in one commit.
	r2, err := p.GetRecord(ctx, "r2")
	if err != nil {
		t.Fatalf("GetRecord() error = %v", err)
	}
	r2.Client = "acme corp"
	r2.Meals = []string{"Hi Tea", "Dinner"}
	mustCommit(t, p, storage.Changeset{
		Delete: []string{"r1"},
		Update: []*models.UsageRecord{r2},
		Create: []*models.UsageRecord{NewEvent("r3", h, slot.New(d(1), slot.Morning), "beta")},
	})

	if _, err := p.GetRecord(ctx, "r1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetRecord(deleted) error = %v, want ErrNotFound", err)
	}
	got, err := p.GetRecord(ctx, "r2")
	if err != nil {
		t.Fatalf("GetRecord() error = %v", err)
	}
	if got.Client != "acme corp" || len(got.Meals) != 2 {
		t.Errorf("updated record = %+v", got)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.Before(got.CreatedAt) {
		t.Errorf("timestamps created %v updated %v", got.CreatedAt, got.UpdatedAt)
	}
}

func testMissingRecord(t *testing.T, p storage.Provider) {
	ctx := context.Background()
	h := NewHotel("h1", "Grand Palace", "Mumbai")
	mustAdd(t, p, h)

	err := p.Commit(ctx, storage.Changeset{
		Create: []*models.UsageRecord{NewEvent("r1", h, slot.New(d(1), slot.Morning), "acme")},
		Delete: []string{"missing"},
	})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Commit(delete missing) error = %v, want ErrNotFound", err)
	}
	records, _ := p.FindRecords(ctx, "h1", time.Time{}, time.Time{})
	if len(records) != 0 {
		t.Errorf("records after failed commit = %d, want 0", len(records))
	}
}
