package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/julianstephens/banquet/internal/calendar"
	"github.com/julianstephens/banquet/internal/entry"
	"github.com/julianstephens/banquet/internal/importer"
	"github.com/julianstephens/banquet/internal/models"
	"github.com/julianstephens/banquet/internal/slot"
	"github.com/julianstephens/banquet/internal/storage"
)

var (
	hotelUser = Actor{Name: "frontdesk"}
	admin     = Actor{Name: "admin", Admin: true}
)

func d(day int) time.Time {
	return calendar.Date(2024, time.January, day)
}

func m(day int) slot.Slot { return slot.New(d(day), slot.Morning) }
func e(day int) slot.Slot { return slot.New(d(day), slot.Evening) }

// newEngine returns an engine whose today is the given January 2024 day and a hotel
// contracted for January. 2024-01-03 is a Wednesday.
func newEngine(t *testing.T, today int) (*Engine, *models.Hotel) {
	t.Helper()
	store := storage.NewJSONStore(filepath.Join(t.TempDir(), "banquet.json"))
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	return newEngineWith(t, store, today)
}

func newEngineWith(t *testing.T, store storage.Provider, today int) (*Engine, *models.Hotel) {
	t.Helper()
	var n atomic.Int64
	eng := New(store, Options{
		Clock: calendar.FixedClock(d(today).Add(10 * time.Hour)),
		Rule:  calendar.Weekly,
		NewID: func() string { return fmt.Sprintf("id-%03d", n.Add(1)) },
	})
	h, err := eng.AddHotel(context.Background(), "Taj Lands End", "Mumbai",
		models.NewContract(d(1), d(31)), "Regency", "Ruby")
	if err != nil {
		t.Fatalf("AddHotel() error = %v", err)
	}
	return eng, h
}

func event(s slot.Slot, client string, rooms ...string) *models.UsageRecord {
	meal := "Lunch"
	if s.Timing == slot.Evening {
		meal = "Dinner"
	}
	r := &models.UsageRecord{Client: client, EventType: "MICE Event", Meals: []string{meal}, Ballrooms: rooms}
	r.SetSlot(s)
	return r
}

func hotelState(t *testing.T, eng *Engine, id string) *models.Hotel {
	t.Helper()
	h, err := eng.Hotel(context.Background(), id)
	if err != nil {
		t.Fatalf("Hotel() error = %v", err)
	}
	return h
}

func records(t *testing.T, eng *Engine, id string) []*models.UsageRecord {
	t.Helper()
	rs, err := eng.Records(context.Background(), id, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Records() error = %v", err)
	}
	return rs
}

func TestNextSlot(t *testing.T) {
	eng, h := newEngine(t, 3)
	next, err := eng.NextSlot(context.Background(), h.ID)
	if err != nil {
		t.Fatalf("NextSlot() error = %v", err)
	}
	if next.Reason != entry.Open || !next.Slot.Equal(m(1)) {
		t.Errorf("NextSlot() = %s %s, want %s open", next.Slot, next.Reason, m(1))
	}
	if next.Err() != nil {
		t.Errorf("Err() = %v, want nil", next.Err())
	}
}

func TestCreateEventSupersedesNoEvent(t *testing.T) {
	ctx := context.Background()
	eng, h := newEngine(t, 3)

	if _, err := eng.MarkNoEvent(ctx, hotelUser, h.ID, m(1)); err != nil {
		t.Fatalf("MarkNoEvent() error = %v", err)
	}
	created, err := eng.CreateEvent(ctx, hotelUser, h.ID, event(m(1), "Acme", "Regency"))
	if err != nil {
		t.Fatalf("CreateEvent() error = %v", err)
	}

	entries, err := eng.SlotRecords(ctx, h.ID, m(1))
	if err != nil {
		t.Fatalf("SlotRecords() error = %v", err)
	}
	if entries.Kind() != models.SlotEvents || entries.Len() != 1 || entries.Events()[0].ID != created.ID {
		t.Errorf("slot entries = %s with %d records, want one event", entries.Kind(), entries.Len())
	}

	got := hotelState(t, eng, h.ID)
	if !got.Cursor.Slot().Equal(m(1)) {
		t.Errorf("cursor = %s, want %s", got.Cursor, m(1))
	}
	if !got.Ballrooms[0].Used || got.Ballrooms[1].Used {
		t.Errorf("ballrooms = %+v, want only Regency used", got.Ballrooms)
	}
	if created.HotelID != h.ID || created.City != "Mumbai" || created.Day != "Monday" {
		t.Errorf("created record = %+v", created)
	}
}

func TestCreateEventGuards(t *testing.T) {
	ctx := context.Background()

	t.Run("skipping a slot", func(t *testing.T) {
		eng, h := newEngine(t, 3)
		_, err := eng.CreateEvent(ctx, hotelUser, h.ID, event(e(1), "Acme", "Regency"))
		var ee *entry.Error
		if !errors.As(err, &ee) || !errors.Is(err, entry.ErrSlotNotOpen) {
			t.Fatalf("CreateEvent() error = %v, want ErrSlotNotOpen", err)
		}
		if !ee.Next.Equal(m(1)) {
			t.Errorf("guidance slot = %s, want %s", ee.Next, m(1))
		}
		if rs := records(t, eng, h.ID); len(rs) != 0 {
			t.Errorf("records = %d, want 0", len(rs))
		}
	})

	t.Run("duplicate client", func(t *testing.T) {
		eng, h := newEngine(t, 3)
		if _, err := eng.CreateEvent(ctx, hotelUser, h.ID, event(m(1), "Acme", "Regency")); err != nil {
			t.Fatalf("CreateEvent() error = %v", err)
		}
		_, err := eng.CreateEvent(ctx, hotelUser, h.ID, event(m(1), " Acme ", "Ruby"))
		if !errors.Is(err, ErrDuplicateClient) {
			t.Errorf("CreateEvent(duplicate) error = %v, want ErrDuplicateClient", err)
		}
	})

	t.Run("unknown ballroom", func(t *testing.T) {
		eng, h := newEngine(t, 3)
		_, err := eng.CreateEvent(ctx, hotelUser, h.ID, event(m(1), "Acme", "Ballroom 9"))
		var fe models.FieldErrors
		if !errors.As(err, &fe) || fe[0].Field != models.FieldBallroom {
			t.Errorf("CreateEvent() error = %v, want ballroom field error", err)
		}
	})

	t.Run("past lock-in", func(t *testing.T) {
		eng, h := newEngine(t, 3)
		for day := 1; day <= 7; day++ {
			for _, s := range []slot.Slot{m(day), e(day)} {
				if _, err := eng.MarkNoEvent(ctx, hotelUser, h.ID, s); err != nil {
					t.Fatalf("MarkNoEvent(%s) error = %v", s, err)
				}
			}
		}
		_, err := eng.CreateEvent(ctx, hotelUser, h.ID, event(m(8), "Acme", "Regency"))
		if !errors.Is(err, entry.ErrSlotNotOpen) {
			t.Errorf("CreateEvent(after lock-in) error = %v, want ErrSlotNotOpen", err)
		}
		// Administrators may go one slot past the cursor.
		if _, err := eng.CreateEvent(ctx, admin, h.ID, event(m(8), "Acme", "Regency")); err != nil {
			t.Errorf("CreateEvent(admin) error = %v", err)
		}
	})

	t.Run("event in a no-event slot keeps other slots", func(t *testing.T) {
		eng, h := newEngine(t, 3)
		if _, err := eng.MarkNoEvent(ctx, hotelUser, h.ID, m(1)); err != nil {
			t.Fatal(err)
		}
		if _, err := eng.MarkNoEvent(ctx, hotelUser, h.ID, e(1)); err != nil {
			t.Fatal(err)
		}
		if _, err := eng.CreateEvent(ctx, hotelUser, h.ID, event(m(1), "Acme", "Regency")); err != nil {
			t.Fatalf("CreateEvent() error = %v", err)
		}
		if got := hotelState(t, eng, h.ID); !got.Cursor.Slot().Equal(e(1)) {
			t.Errorf("cursor = %s, want %s", got.Cursor, e(1))
		}
	})
}

func TestMarkNoEvent(t *testing.T) {
	ctx := context.Background()
	eng, h := newEngine(t, 3)

	first, err := eng.MarkNoEvent(ctx, hotelUser, h.ID, m(1))
	if err != nil {
		t.Fatalf("MarkNoEvent() error = %v", err)
	}
	again, err := eng.MarkNoEvent(ctx, hotelUser, h.ID, m(1))
	if err != nil {
		t.Fatalf("MarkNoEvent(again) error = %v", err)
	}
	if again.ID != first.ID {
		t.Errorf("second marker %s, want existing %s", again.ID, first.ID)
	}
	if v := hotelState(t, eng, h.ID).Version; v != 2 {
		t.Errorf("version = %d, want 2 (idempotent mark commits nothing)", v)
	}

	if _, err := eng.CreateEvent(ctx, hotelUser, h.ID, event(e(1), "Acme", "Regency")); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.MarkNoEvent(ctx, hotelUser, h.ID, e(1)); !errors.Is(err, ErrSlotHasEvents) {
		t.Errorf("MarkNoEvent(events slot) error = %v, want ErrSlotHasEvents", err)
	}
}

func TestUpdateEvent(t *testing.T) {
	ctx := context.Background()
	eng, h := newEngine(t, 3)

	acme, err := eng.CreateEvent(ctx, hotelUser, h.ID, event(m(1), "Acme", "Regency"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := eng.CreateEvent(ctx, hotelUser, h.ID, event(m(1), "Beta", "Regency")); err != nil {
		t.Fatal(err)
	}

	patch := acme.Clone()
	patch.Client = "Acme Corp"
	patch.Ballrooms = []string{"Ruby"}
	patch.Meals = []string{"Breakfast", "Lunch"}
	updated, err := eng.UpdateEvent(ctx, hotelUser, patch)
	if err != nil {
		t.Fatalf("UpdateEvent() error = %v", err)
	}
	if updated.Client != "Acme Corp" || len(updated.Meals) != 2 {
		t.Errorf("updated = %+v", updated)
	}
	if got := hotelState(t, eng, h.ID); !got.Ballrooms[1].Used {
		t.Errorf("Ruby not marked used: %+v", got.Ballrooms)
	}

	dup := acme.Clone()
	dup.Client = "Beta"
	if _, err := eng.UpdateEvent(ctx, hotelUser, dup); !errors.Is(err, ErrDuplicateClient) {
		t.Errorf("UpdateEvent(duplicate) error = %v, want ErrDuplicateClient", err)
	}

	moved := acme.Clone()
	moved.SetSlot(e(1))
	if _, err := eng.UpdateEvent(ctx, hotelUser, moved); !errors.Is(err, ErrSlotChange) {
		t.Errorf("UpdateEvent(moved) error = %v, want ErrSlotChange", err)
	}

	marker, err := eng.MarkNoEvent(ctx, hotelUser, h.ID, e(1))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := eng.UpdateEvent(ctx, hotelUser, marker); !errors.Is(err, ErrNoEventEdit) {
		t.Errorf("UpdateEvent(marker) error = %v, want ErrNoEventEdit", err)
	}
}

func TestDeleteRecordRollsBack(t *testing.T) {
	ctx := context.Background()
	eng, h := newEngine(t, 3)

	m1, _ := eng.MarkNoEvent(ctx, hotelUser, h.ID, m(1))
	acme, _ := eng.CreateEvent(ctx, hotelUser, h.ID, event(e(1), "Acme", "Regency"))
	beta, err := eng.CreateEvent(ctx, hotelUser, h.ID, event(e(1), "Beta", "Regency"))
	if err != nil {
		t.Fatal(err)
	}

	// Another record remains in the slot: the cursor stays.
	if err := eng.DeleteRecord(ctx, hotelUser, beta.ID); err != nil {
		t.Fatalf("DeleteRecord() error = %v", err)
	}
	if got := hotelState(t, eng, h.ID).Cursor; !got.Slot().Equal(e(1)) {
		t.Errorf("cursor = %s, want %s", got, e(1))
	}

	// The earlier slot's only record cannot go while a later slot is filled.
	if err := eng.DeleteRecord(ctx, hotelUser, m1.ID); !errors.Is(err, ErrWouldLeaveGap) {
		t.Errorf("DeleteRecord(earlier) error = %v, want ErrWouldLeaveGap", err)
	}

	if err := eng.DeleteRecord(ctx, hotelUser, acme.ID); err != nil {
		t.Fatalf("DeleteRecord() error = %v", err)
	}
	if got := hotelState(t, eng, h.ID).Cursor; !got.Slot().Equal(m(1)) {
		t.Errorf("cursor after rollback = %s, want %s", got, m(1))
	}

	if err := eng.DeleteRecord(ctx, hotelUser, m1.ID); err != nil {
		t.Fatalf("DeleteRecord() error = %v", err)
	}
	if got := hotelState(t, eng, h.ID).Cursor; got.IsSet() {
		t.Errorf("cursor = %s, want unset after deleting the first slot", got)
	}

	if err := eng.DeleteRecord(ctx, hotelUser, m1.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("DeleteRecord(missing) error = %v, want ErrNotFound", err)
	}
}

func TestDeleteRespectsLockIn(t *testing.T) {
	ctx := context.Background()
	store := storage.NewJSONStore(filepath.Join(t.TempDir(), "banquet.json"))
	if err := store.Init(ctx); err != nil {
		t.Fatal(err)
	}
	early, h := newEngineWith(t, store, 3)
	if _, err := early.CreateEvent(ctx, hotelUser, h.ID, event(m(1), "Acme", "Regency")); err != nil {
		t.Fatal(err)
	}
	beta, err := early.CreateEvent(ctx, hotelUser, h.ID, event(m(1), "Beta", "Regency"))
	if err != nil {
		t.Fatal(err)
	}

	// A week later the previous lock-in is Sunday 2024-01-07.
	late := New(store, Options{Clock: calendar.FixedClock(d(10)), Rule: calendar.Weekly})
	if err := late.DeleteRecord(ctx, hotelUser, beta.ID); !errors.Is(err, entry.ErrRecordLocked) {
		t.Errorf("DeleteRecord(hotel user) error = %v, want ErrRecordLocked", err)
	}
	if err := late.DeleteRecord(ctx, admin, beta.ID); err != nil {
		t.Errorf("DeleteRecord(admin) error = %v", err)
	}
}

func TestStaleCommitRetries(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{Provider: storage.NewJSONStore(filepath.Join(t.TempDir(), "banquet.json"))}
	if err := store.Init(ctx); err != nil {
		t.Fatal(err)
	}
	eng, h := newEngineWith(t, store, 3)

	store.stale.Store(2)
	if _, err := eng.MarkNoEvent(ctx, hotelUser, h.ID, m(1)); err != nil {
		t.Fatalf("MarkNoEvent() error = %v", err)
	}
	if got := store.commits.Load(); got != 3 {
		t.Errorf("commit attempts = %d, want 3", got)
	}

	store.commits.Store(0)
	store.stale.Store(100)
	_, err := eng.MarkNoEvent(ctx, hotelUser, h.ID, e(1))
	if !errors.Is(err, storage.ErrStaleHotel) {
		t.Fatalf("MarkNoEvent() error = %v, want ErrStaleHotel", err)
	}
	if got := store.commits.Load(); got != 4 {
		t.Errorf("commit attempts = %d, want 4", got)
	}
	if rs := records(t, eng, h.ID); len(rs) != 1 {
		t.Errorf("records = %d, want 1", len(rs))
	}
}

// flakyStore rejects the next stale commits as if another writer got there first.
type flakyStore struct {
	storage.Provider
	stale   atomic.Int64
	commits atomic.Int64
}

func (f *flakyStore) Commit(ctx context.Context, cs storage.Changeset) error {
	f.commits.Add(1)
	if f.stale.Load() > 0 {
		f.stale.Add(-1)
		return storage.ErrStaleHotel
	}
	return f.Provider.Commit(ctx, cs)
}

func TestSeedContract(t *testing.T) {
	ctx := context.Background()
	eng, h := newEngine(t, 3)

	if _, err := eng.SeedContract(ctx, h.ID, d(10), d(5)); err == nil {
		t.Error("SeedContract(end before start) should fail")
	}
	got, err := eng.SeedContract(ctx, h.ID, d(2), d(20))
	if err != nil {
		t.Fatalf("SeedContract() error = %v", err)
	}
	if !got.Contract.Start.Equal(d(2)) {
		t.Errorf("contract = %s", got.Contract)
	}
	next, _ := eng.NextSlot(ctx, h.ID)
	if !next.Slot.Equal(m(2)) {
		t.Errorf("NextSlot() = %s, want %s", next.Slot, m(2))
	}
}

func TestSeedContractKeepsCursorInside(t *testing.T) {
	ctx := context.Background()
	eng, h := newEngine(t, 20)
	for _, s := range []slot.Slot{m(1), e(1), m(2), e(2), m(3)} {
		if _, err := eng.MarkNoEvent(ctx, hotelUser, h.ID, s); err != nil {
			t.Fatalf("MarkNoEvent(%s) error = %v", s, err)
		}
	}

	tests := []struct {
		name       string
		start, end int
		wantErr    bool
	}{
		{"start after cursor", 4, 31, true},
		{"end before cursor", 1, 2, true},
		{"end on cursor date", 1, 3, false},
		{"start on cursor date", 3, 31, false},
		{"extended end", 1, 29, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := eng.SeedContract(ctx, h.ID, d(tt.start), d(tt.end))
			if tt.wantErr {
				if !errors.Is(err, models.ErrContractDates) {
					t.Fatalf("SeedContract(%d, %d) error = %v, want ErrContractDates", tt.start, tt.end, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("SeedContract(%d, %d) error = %v", tt.start, tt.end, err)
			}
			got := hotelState(t, eng, h.ID)
			if !got.Contract.Start.Equal(d(tt.start)) || !got.Contract.End.Equal(d(tt.end)) {
				t.Errorf("contract = %s", got.Contract)
			}
		})
	}

	if got := hotelState(t, eng, h.ID); !got.Cursor.Slot().Equal(m(3)) {
		t.Errorf("cursor = %s, want %s", got.Cursor, m(3))
	}
}

func TestNoContractHasNoOpenSlot(t *testing.T) {
	ctx := context.Background()
	eng, _ := newEngine(t, 3)
	h, err := eng.AddHotel(ctx, "Trident", "Mumbai", models.Contract{}, "Regency")
	if err != nil {
		t.Fatalf("AddHotel() error = %v", err)
	}

	next, err := eng.NextSlot(ctx, h.ID)
	if err != nil {
		t.Fatalf("NextSlot() error = %v", err)
	}
	if next.Reason != entry.NoContract || !next.Slot.IsZero() {
		t.Errorf("NextSlot() = %s %s, want no slot", next.Slot, next.Reason)
	}
	if !errors.Is(next.Err(), entry.ErrNoContract) {
		t.Errorf("Err() = %v, want ErrNoContract", next.Err())
	}

	for _, actor := range []Actor{hotelUser, admin} {
		if _, err := eng.MarkNoEvent(ctx, actor, h.ID, slot.New(time.Time{}, slot.Morning)); !errors.Is(err, entry.ErrNoContract) {
			t.Errorf("MarkNoEvent(%s, zero date) error = %v, want ErrNoContract", actor.Name, err)
		}
		if _, err := eng.MarkNoEvent(ctx, actor, h.ID, m(1)); !errors.Is(err, entry.ErrNoContract) {
			t.Errorf("MarkNoEvent(%s) error = %v, want ErrNoContract", actor.Name, err)
		}
		if _, err := eng.CreateEvent(ctx, actor, h.ID, event(m(1), "Acme", "Regency")); !errors.Is(err, entry.ErrNoContract) {
			t.Errorf("CreateEvent(%s) error = %v, want ErrNoContract", actor.Name, err)
		}
	}
	if rs := records(t, eng, h.ID); len(rs) != 0 {
		t.Errorf("records = %d, want 0", len(rs))
	}
	if got := hotelState(t, eng, h.ID); !got.Cursor.Slot().IsZero() {
		t.Errorf("cursor = %s, want unset", got.Cursor)
	}

	if _, err := eng.SeedContract(ctx, h.ID, d(1), d(31)); err != nil {
		t.Fatalf("SeedContract() error = %v", err)
	}
	if _, err := eng.MarkNoEvent(ctx, hotelUser, h.ID, m(1)); err != nil {
		t.Errorf("MarkNoEvent(after seeding) error = %v", err)
	}
}

func TestBallrooms(t *testing.T) {
	ctx := context.Background()
	eng, h := newEngine(t, 3)

	if _, err := eng.AddBallroom(ctx, h.ID, "Crystal"); err != nil {
		t.Fatalf("AddBallroom() error = %v", err)
	}
	if _, err := eng.AddBallroom(ctx, h.ID, "Crystal"); !errors.Is(err, models.ErrDuplicateBallroom) {
		t.Errorf("AddBallroom(duplicate) error = %v", err)
	}
	if _, err := eng.CreateEvent(ctx, hotelUser, h.ID, event(m(1), "Acme", "Crystal")); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.RemoveBallroom(ctx, h.ID, "Crystal"); !errors.Is(err, models.ErrBallroomInUse) {
		t.Errorf("RemoveBallroom(used) error = %v, want ErrBallroomInUse", err)
	}
	if _, err := eng.RenameBallroom(ctx, h.ID, "Crystal", "Diamond"); !errors.Is(err, models.ErrBallroomInUse) {
		t.Errorf("RenameBallroom(used) error = %v, want ErrBallroomInUse", err)
	}
	got, err := eng.RenameBallroom(ctx, h.ID, "Ruby", "Emerald")
	if err != nil {
		t.Fatalf("RenameBallroom() error = %v", err)
	}
	if got.BallroomNames()[1] != "Emerald" {
		t.Errorf("ballrooms = %v", got.BallroomNames())
	}
	if _, err := eng.RemoveBallroom(ctx, h.ID, "Emerald"); err != nil {
		t.Errorf("RemoveBallroom() error = %v", err)
	}
}

func TestForceRollback(t *testing.T) {
	ctx := context.Background()
	eng, h := newEngine(t, 3)
	for _, s := range []slot.Slot{m(1), e(1), m(2)} {
		if _, err := eng.MarkNoEvent(ctx, hotelUser, h.ID, s); err != nil {
			t.Fatal(err)
		}
	}

	cursor, err := eng.ForceRollback(ctx, h.ID, slot.Slot{})
	if err != nil || !cursor.Slot().Equal(e(1)) {
		t.Errorf("ForceRollback() = %s, %v, want %s", cursor, err, e(1))
	}
	if _, err := eng.ForceRollback(ctx, h.ID, m(3)); err == nil {
		t.Error("ForceRollback() forward should fail")
	}
	cursor, err = eng.ForceRollback(ctx, h.ID, slot.New(calendar.Date(2023, time.December, 31), slot.Evening))
	if err != nil || cursor.IsSet() {
		t.Errorf("ForceRollback(before contract) = %s, %v, want unset", cursor, err)
	}
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()
	eng, h := newEngine(t, 3)
	for _, s := range []slot.Slot{m(1), e(1), m(2)} {
		if _, err := eng.MarkNoEvent(ctx, hotelUser, h.ID, s); err != nil {
			t.Fatal(err)
		}
	}

	rec, err := eng.Reconcile(ctx, h.ID, false)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if !rec.Consistent() {
		t.Errorf("fresh hotel inconsistent: cached %s derived %s gaps %v", rec.Cached, rec.Derived, rec.Gaps)
	}

	// Corrupt the cached cursor behind the engine's back.
	stale := hotelState(t, eng, h.ID)
	stale.Cursor.Seek(e(5))
	if err := eng.Store().Commit(ctx, storage.Changeset{Hotel: stale}); err != nil {
		t.Fatal(err)
	}

	rec, err = eng.Reconcile(ctx, h.ID, true)
	if err != nil {
		t.Fatalf("Reconcile(fix) error = %v", err)
	}
	if !rec.Fixed || !rec.Derived.Slot().Equal(m(2)) {
		t.Errorf("Reconcile(fix) = fixed %v derived %s", rec.Fixed, rec.Derived)
	}
	if got := hotelState(t, eng, h.ID).Cursor; !got.Slot().Equal(m(2)) {
		t.Errorf("cursor after fix = %s, want %s", got, m(2))
	}
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	eng, h := newEngine(t, 3)
	for _, s := range []slot.Slot{m(1), e(1), m(2), e(2)} {
		if _, err := eng.MarkNoEvent(ctx, hotelUser, h.ID, s); err != nil {
			t.Fatal(err)
		}
	}
	board, err := eng.Status(ctx, "mumbai", 2)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if len(board.Rows) != 1 || board.Rows[0].Headline != "All Done" {
		t.Errorf("board = %+v", board.Rows)
	}
	if board, _ := eng.Status(ctx, "Pune", 2); len(board.Rows) != 0 {
		t.Errorf("Pune board has %d rows", len(board.Rows))
	}
}

const csvHeader = "Date,Timing,No_Event,Client,Meal,Event_Type,Ballroom,Event Description\n"

func TestImport(t *testing.T) {
	ctx := context.Background()
	body := csvHeader + `01-Jan-2024,Morning,,Acme,Lunch,MICE Event,Regency,
01-Jan-2024,Evening,No_Event,,,,,
02-Jan-2024,Evening,,Beta,Dinner,Social Event,"Regency, Ruby",Wedding
02-Jan-2024,Morning,,Acme,Breakfast,MICE Event,Regency,
02-Jan-2024,Morning,,Gamma,Lunch,Other,Regency,
`

	t.Run("commits everything", func(t *testing.T) {
		eng, h := newEngine(t, 3)
		res, err := eng.Import(ctx, hotelUser, h.ID, strings.NewReader(body))
		if err != nil {
			t.Fatalf("Import() error = %v", err)
		}
		if res.Rows != 5 || !res.First.Equal(m(1)) || !res.Last.Equal(e(2)) {
			t.Errorf("result = %+v", res)
		}
		got := hotelState(t, eng, h.ID)
		if !got.Cursor.Slot().Equal(e(2)) || !got.Ballrooms[0].Used || !got.Ballrooms[1].Used {
			t.Errorf("hotel after import: cursor %s ballrooms %+v", got.Cursor, got.Ballrooms)
		}
		if rs := records(t, eng, h.ID); len(rs) != 5 {
			t.Errorf("records = %d, want 5", len(rs))
		}
	})

	t.Run("rejects atomically", func(t *testing.T) {
		eng, h := newEngine(t, 3)
		gap := csvHeader + `01-Jan-2024,Morning,No_Event,,,,,
01-Jan-2024,Evening,No_Event,,,,,
03-Jan-2024,Morning,No_Event,,,,,
03-Jan-2024,Evening,No_Event,,,,,
`
		_, err := eng.Import(ctx, hotelUser, h.ID, strings.NewReader(gap))
		var be *importer.BatchError
		if !errors.As(err, &be) || be.Kind != importer.DateGap {
			t.Fatalf("Import() error = %v, want DateGap", err)
		}
		if rs := records(t, eng, h.ID); len(rs) != 0 {
			t.Errorf("records = %d, want 0", len(rs))
		}
		if got := hotelState(t, eng, h.ID); got.Cursor.IsSet() || got.Version != 1 {
			t.Errorf("hotel changed: cursor %s version %d", got.Cursor, got.Version)
		}
	})

	t.Run("admin overlap conflicts", func(t *testing.T) {
		eng, h := newEngine(t, 3)
		if _, err := eng.MarkNoEvent(ctx, hotelUser, h.ID, m(1)); err != nil {
			t.Fatal(err)
		}
		overlap := csvHeader + `01-Jan-2024,Morning,,Acme,Lunch,MICE Event,Regency,
01-Jan-2024,Evening,,Acme,Dinner,MICE Event,Regency,
`
		if _, err := eng.Import(ctx, admin, h.ID, strings.NewReader(overlap)); !errors.Is(err, ErrImportConflict) {
			t.Errorf("Import(admin overlap) error = %v, want ErrImportConflict", err)
		}
	})
}

// Committing rows one at a time ends in the same hotel state as one batch.
func TestBatchEquivalence(t *testing.T) {
	ctx := context.Background()
	rows := []*models.UsageRecord{
		event(m(1), "Acme", "Regency"),
		models.NewNoEvent("", &models.Hotel{}, e(1)),
		event(m(2), "Beta", "Ruby"),
		event(m(2), "Gamma", "Regency"),
		event(e(2), "Acme", "Regency"),
	}
	body := csvHeader + `01-Jan-2024,Morning,,Acme,Lunch,MICE Event,Regency,
01-Jan-2024,Evening,No_Event,,,,,
02-Jan-2024,Morning,,Beta,Lunch,MICE Event,Ruby,
02-Jan-2024,Morning,,Gamma,Lunch,MICE Event,Regency,
02-Jan-2024,Evening,,Acme,Dinner,MICE Event,Regency,
`

	single, h1 := newEngine(t, 3)
	for _, r := range rows {
		var err error
		if r.NoEvent {
			_, err = single.MarkNoEvent(ctx, hotelUser, h1.ID, r.Slot())
		} else {
			_, err = single.CreateEvent(ctx, hotelUser, h1.ID, r)
		}
		if err != nil {
			t.Fatalf("single row %s error = %v", r.Slot(), err)
		}
	}

	batch, h2 := newEngine(t, 3)
	if _, err := batch.Import(ctx, hotelUser, h2.ID, strings.NewReader(body)); err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	a, b := hotelState(t, single, h1.ID), hotelState(t, batch, h2.ID)
	if !a.Cursor.Slot().Equal(b.Cursor.Slot()) {
		t.Errorf("cursor: single %s, batch %s", a.Cursor, b.Cursor)
	}
	for i := range a.Ballrooms {
		if a.Ballrooms[i] != b.Ballrooms[i] {
			t.Errorf("ballroom %d: single %+v, batch %+v", i, a.Ballrooms[i], b.Ballrooms[i])
		}
	}
	if len(records(t, single, h1.ID)) != len(records(t, batch, h2.ID)) {
		t.Error("record counts differ")
	}
}

// Every slot from the contract start to the cursor holds a record after any mix of
// valid operations.
func TestNoGapInvariant(t *testing.T) {
	ctx := context.Background()
	eng, h := newEngine(t, 3)

	ops := []func() error{
		func() error { _, err := eng.MarkNoEvent(ctx, hotelUser, h.ID, m(1)); return err },
		func() error { _, err := eng.CreateEvent(ctx, hotelUser, h.ID, event(e(1), "Acme", "Regency")); return err },
		func() error { _, err := eng.CreateEvent(ctx, hotelUser, h.ID, event(m(1), "Beta", "Ruby")); return err },
		func() error { _, err := eng.MarkNoEvent(ctx, hotelUser, h.ID, m(2)); return err },
		func() error {
			rs := records(t, eng, h.ID)
			return eng.DeleteRecord(ctx, hotelUser, rs[len(rs)-1].ID)
		},
		func() error { _, err := eng.MarkNoEvent(ctx, hotelUser, h.ID, m(2)); return err },
		func() error { _, err := eng.MarkNoEvent(ctx, hotelUser, h.ID, e(2)); return err },
	}
	for i, op := range ops {
		if err := op(); err != nil {
			t.Fatalf("op %d error = %v", i, err)
		}
		rec, err := eng.Reconcile(ctx, h.ID, false)
		if err != nil {
			t.Fatalf("Reconcile() error = %v", err)
		}
		if !rec.Consistent() {
			t.Fatalf("after op %d: cached %s derived %s gaps %v", i, rec.Cached, rec.Derived, rec.Gaps)
		}
	}
}
