package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/julianstephens/banquet/internal/models"
)

// Store is the on-disk layout of the JSON provider.
type Store struct {
	Version int                            `json:"version"`
	Hotels  map[string]*models.Hotel       `json:"hotels"`
	Records map[string]*models.UsageRecord `json:"records"`
}

// JSONStore keeps everything in one JSON file, rewritten atomically on every commit.
type JSONStore struct {
	mu    sync.RWMutex
	path  string
	store *Store
}

func NewJSONStore(configPath string) *JSONStore {
	return &JSONStore{
		path: configPath,
	}
}

func (s *JSONStore) Init(ctx context.Context) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(s.path); err == nil {
		return fmt.Errorf("storage already initialized at %s", s.path)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.store = &Store{
		Version: 1,
		Hotels:  make(map[string]*models.Hotel),
		Records: make(map[string]*models.UsageRecord),
	}
	return s.save(s.store)
}

func (s *JSONStore) Load(ctx context.Context) error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotInitialized
		}
		return fmt.Errorf("failed to read storage: %w", err)
	}

	store := &Store{}
	if err := json.Unmarshal(data, store); err != nil {
		return fmt.Errorf("failed to parse storage: %w", err)
	}
	if store.Hotels == nil {
		store.Hotels = make(map[string]*models.Hotel)
	}
	if store.Records == nil {
		store.Records = make(map[string]*models.UsageRecord)
	}

	s.mu.Lock()
	s.store = store
	s.mu.Unlock()
	return nil
}

func (s *JSONStore) Close() error {
	return nil
}

func (s *JSONStore) GetConfigPath() string {
	return s.path
}

// save writes to a temporary file and renames it over the store.
func (s *JSONStore) save(store *Store) error {
	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize storage: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write storage: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write storage: %w", err)
	}
	return nil
}

func (s *JSONStore) AddHotel(ctx context.Context, h *models.Hotel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		return ErrNotLoaded
	}
	if _, ok := s.store.Hotels[h.ID]; ok {
		return fmt.Errorf("%w: id %s", ErrDuplicateHotel, h.ID)
	}
	for _, existing := range s.store.Hotels {
		if existing.Key() == h.Key() {
			return fmt.Errorf("%w: %s", ErrDuplicateHotel, h)
		}
	}

	now := time.Now().UTC()
	stored := h.Clone()
	stored.Version = 1
	stored.CreatedAt, stored.UpdatedAt = now, now

	next := s.shallowCopy()
	next.Hotels[h.ID] = stored
	if err := s.save(next); err != nil {
		return err
	}
	s.store = next
	h.Version, h.CreatedAt, h.UpdatedAt = stored.Version, now, now
	return nil
}

func (s *JSONStore) GetHotel(ctx context.Context, id string) (*models.Hotel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.store == nil {
		return nil, ErrNotLoaded
	}
	h, ok := s.store.Hotels[id]
	if !ok {
		return nil, fmt.Errorf("hotel %s: %w", id, ErrNotFound)
	}
	return h.Clone(), nil
}

func (s *JSONStore) GetHotelByName(ctx context.Context, city, name string) (*models.Hotel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.store == nil {
		return nil, ErrNotLoaded
	}
	key := models.HotelKey(city, name)
	for _, h := range s.store.Hotels {
		if h.Key() == key {
			return h.Clone(), nil
		}
	}
	return nil, fmt.Errorf("hotel %s (%s): %w", name, city, ErrNotFound)
}

func (s *JSONStore) GetAllHotels(ctx context.Context) ([]*models.Hotel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.store == nil {
		return nil, ErrNotLoaded
	}
	hotels := make([]*models.Hotel, 0, len(s.store.Hotels))
	for _, h := range s.store.Hotels {
		hotels = append(hotels, h.Clone())
	}
	SortHotels(hotels)
	return hotels, nil
}

func (s *JSONStore) GetRecord(ctx context.Context, id string) (*models.UsageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.store == nil {
		return nil, ErrNotLoaded
	}
	r, ok := s.store.Records[id]
	if !ok {
		return nil, fmt.Errorf("record %s: %w", id, ErrNotFound)
	}
	return r.Clone(), nil
}

func (s *JSONStore) FindRecords(ctx context.Context, hotelID string, from, to time.Time) ([]*models.UsageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.store == nil {
		return nil, ErrNotLoaded
	}
	var out []*models.UsageRecord
	for _, r := range s.store.Records {
		if r.HotelID == hotelID && InRange(r.Date, from, to) {
			out = append(out, r.Clone())
		}
	}
	SortRecords(out)
	return out, nil
}

func (s *JSONStore) LatestRecord(ctx context.Context, hotelID string) (*models.UsageRecord, error) {
	records, err := s.FindRecords(ctx, hotelID, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("records of hotel %s: %w", hotelID, ErrNotFound)
	}
	return records[len(records)-1], nil
}

func (s *JSONStore) Commit(ctx context.Context, cs Changeset) error {
	if cs.IsEmpty() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		return ErrNotLoaded
	}

	now := time.Now().UTC()
	Stamp(cs, now)
	next := s.shallowCopy()

	if cs.Hotel != nil {
		stored, ok := next.Hotels[cs.Hotel.ID]
		if !ok {
			return fmt.Errorf("hotel %s: %w", cs.Hotel.ID, ErrNotFound)
		}
		if stored.Version != cs.Hotel.Version {
			return ErrStaleHotel
		}
		saved := cs.Hotel.Clone()
		saved.Version++
		next.Hotels[saved.ID] = saved
	}
	for _, id := range cs.Delete {
		if _, ok := next.Records[id]; !ok {
			return fmt.Errorf("record %s: %w", id, ErrNotFound)
		}
		delete(next.Records, id)
	}
	for _, r := range cs.Update {
		if _, ok := next.Records[r.ID]; !ok {
			return fmt.Errorf("record %s: %w", r.ID, ErrNotFound)
		}
		next.Records[r.ID] = r.Clone()
	}
	for _, r := range cs.Create {
		if _, ok := next.Records[r.ID]; ok {
			return fmt.Errorf("record %s already exists", r.ID)
		}
		next.Records[r.ID] = r.Clone()
	}
	if err := checkUnique(next.Records); err != nil {
		return err
	}

	if err := s.save(next); err != nil {
		return err
	}
	s.store = next
	if cs.Hotel != nil {
		cs.Hotel.Version++
	}
	return nil
}

// shallowCopy copies the maps so a failed commit leaves the loaded store untouched.
func (s *JSONStore) shallowCopy() *Store {
	next := &Store{
		Version: s.store.Version,
		Hotels:  make(map[string]*models.Hotel, len(s.store.Hotels)),
		Records: make(map[string]*models.UsageRecord, len(s.store.Records)),
	}
	for k, v := range s.store.Hotels {
		next.Hotels[k] = v
	}
	for k, v := range s.store.Records {
		next.Records[k] = v
	}
	return next
}

func checkUnique(records map[string]*models.UsageRecord) error {
	seen := make(map[string]bool, len(records))
	for _, r := range records {
		key := RecordKey(r)
		if seen[key] {
			return fmt.Errorf("%w: %s", ErrDuplicateRecord, r)
		}
		seen[key] = true
	}
	return nil
}
