// Package service is the data-entry engine. Every mutation of a hotel runs under the
// hotel's lock against one snapshot and lands as one storage commit.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/banquet/internal/calendar"
	"github.com/julianstephens/banquet/internal/constants"
	"github.com/julianstephens/banquet/internal/lock"
	"github.com/julianstephens/banquet/internal/logger"
	"github.com/julianstephens/banquet/internal/models"
	"github.com/julianstephens/banquet/internal/storage"
)

// Actor is who performs an operation. Administrators bypass the entry window guards.
type Actor struct {
	Name  string
	Admin bool
}

// System is the actor used by administrative commands.
var System = Actor{Name: "system", Admin: true}

type Options struct {
	Clock      calendar.Clock
	Rule       calendar.Rule
	Vocabulary models.Vocabulary
	Locker     lock.Locker
	// Retries bounds how often a commit rejected as stale is redone from a fresh snapshot.
	Retries int
	NewID   func() string
}

type Engine struct {
	store   storage.Provider
	clock   calendar.Clock
	rule    calendar.Rule
	vocab   models.Vocabulary
	locker  lock.Locker
	retries int
	newID   func() string
}

func New(store storage.Provider, opts Options) *Engine {
	e := &Engine{
		store:   store,
		clock:   opts.Clock,
		rule:    opts.Rule,
		vocab:   opts.Vocabulary,
		locker:  opts.Locker,
		retries: opts.Retries,
		newID:   opts.NewID,
	}
	if e.clock == nil {
		e.clock = calendar.SystemClock{Location: time.UTC}
	}
	if len(e.vocab.EventTypes) == 0 {
		e.vocab = models.DefaultVocabulary()
	}
	if e.locker == nil {
		e.locker = lock.NewLocal()
	}
	if e.retries <= 0 {
		e.retries = constants.DefaultCommitRetries
	}
	if e.newID == nil {
		e.newID = uuid.NewString
	}
	return e
}

func (e *Engine) Store() storage.Provider {
	return e.store
}

func (e *Engine) Today() time.Time {
	return calendar.Today(e.clock)
}

func (e *Engine) Rule() calendar.Rule {
	return e.rule
}

func (e *Engine) Vocabulary() models.Vocabulary {
	return e.vocab
}

// update runs fn under the hotel lock and commits its changeset. fn receives a fresh
// snapshot on every attempt; a stale commit restarts it. The hotel is always part of the
// commit so its version guards the records written with it.
func (e *Engine) update(ctx context.Context, hotelID string, fn func(h *models.Hotel) (storage.Changeset, error)) error {
	unlock, err := e.locker.Lock(ctx, hotelID)
	if err != nil {
		return err
	}
	defer unlock()

	for attempt := 1; ; attempt++ {
		h, err := e.store.GetHotel(ctx, hotelID)
		if err != nil {
			return err
		}
		cs, err := fn(h)
		if err != nil {
			return err
		}
		if cs.IsEmpty() {
			return nil
		}
		if cs.Hotel == nil {
			cs.Hotel = h
		}
		err = e.store.Commit(ctx, cs)
		if err == nil {
			logger.Debug("Committed changes", "hotel", h.Name, "version", cs.Hotel.Version,
				"created", len(cs.Create), "updated", len(cs.Update), "deleted", len(cs.Delete))
			return nil
		}
		if !errors.Is(err, storage.ErrStaleHotel) || attempt > e.retries {
			return err
		}
		logger.Warn("Hotel changed during operation, retrying", "hotel", h.Name, "attempt", attempt)
	}
}

// AddHotel registers a hotel. The name and city pair must be unique.
func (e *Engine) AddHotel(ctx context.Context, name, city string, contract models.Contract, ballrooms ...string) (*models.Hotel, error) {
	h := models.NewHotel(e.newID(), name, city)
	h.Contract = contract
	if len(ballrooms) > 0 {
		h.Ballrooms = nil
		for _, b := range ballrooms {
			if err := h.AddBallroom(b); err != nil {
				return nil, err
			}
		}
	}
	if err := h.Validate(); err != nil {
		return nil, err
	}
	if contract.IsSet() {
		if err := contract.Validate(); err != nil {
			return nil, err
		}
	}
	if err := e.store.AddHotel(ctx, h); err != nil {
		return nil, err
	}
	logger.Info("Added hotel", "hotel", h.Name, "city", h.City, "id", h.ID)
	return h, nil
}

func (e *Engine) Hotel(ctx context.Context, id string) (*models.Hotel, error) {
	return e.store.GetHotel(ctx, id)
}

// FindHotel resolves a hotel by ID, or by name within city.
func (e *Engine) FindHotel(ctx context.Context, city, ref string) (*models.Hotel, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("hotel name is required")
	}
	if _, err := uuid.Parse(ref); err == nil {
		return e.store.GetHotel(ctx, ref)
	}
	return e.store.GetHotelByName(ctx, city, ref)
}

// Hotels lists hotels, optionally only those of city.
func (e *Engine) Hotels(ctx context.Context, city string) ([]*models.Hotel, error) {
	hotels, err := e.store.GetAllHotels(ctx)
	if err != nil {
		return nil, err
	}
	if city == "" {
		return hotels, nil
	}
	var out []*models.Hotel
	for _, h := range hotels {
		if strings.EqualFold(h.City, city) {
			out = append(out, h)
		}
	}
	return out, nil
}
