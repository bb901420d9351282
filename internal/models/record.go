package models

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/julianstephens/banquet/internal/calendar"
	"github.com/julianstephens/banquet/internal/constants"
	"github.com/julianstephens/banquet/internal/slot"
)

// UsageRecord is one event held in a hotel's ballrooms during a slot, or the slot's
// no-event marker.
type UsageRecord struct {
	ID               string      `json:"id"`
	HotelID          string      `json:"hotel_id"`
	Hotel            string      `json:"hotel"`
	City             string      `json:"city"`
	Date             time.Time   `json:"date"`
	Timing           slot.Timing `json:"timing"`
	Client           string      `json:"client,omitempty"`
	EventType        string      `json:"event_type,omitempty"`
	Meals            []string    `json:"meals,omitempty"`
	Ballrooms        []string    `json:"ballrooms,omitempty"`
	EventDescription string      `json:"event_description,omitempty"`
	NoEvent          bool        `json:"no_event"`

	// Derived from Date for reporting.
	Day     string `json:"day"`
	Weekday bool   `json:"weekday"`
	Month   string `json:"month"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewNoEvent builds the marker asserting s had no events.
func NewNoEvent(id string, h *Hotel, s slot.Slot) *UsageRecord {
	r := &UsageRecord{ID: id, NoEvent: true}
	r.SetHotel(h)
	r.SetSlot(s)
	return r
}

func (r *UsageRecord) SetHotel(h *Hotel) {
	r.HotelID = h.ID
	r.Hotel = h.Name
	r.City = h.City
}

// SetDate stores date and refreshes the derived reporting fields.
func (r *UsageRecord) SetDate(date time.Time) {
	r.Date = calendar.Truncate(date)
	r.Day = r.Date.Weekday().String()
	r.Weekday = calendar.ISOWeekday(r.Date) <= 5
	r.Month = r.Date.Format(constants.MonthFormat)
}

func (r *UsageRecord) SetSlot(s slot.Slot) {
	r.SetDate(s.Date)
	r.Timing = s.Timing
}

func (r *UsageRecord) Slot() slot.Slot {
	return slot.New(r.Date, r.Timing)
}

func (r *UsageRecord) Clone() *UsageRecord {
	c := *r
	c.Meals = slices.Clone(r.Meals)
	c.Ballrooms = slices.Clone(r.Ballrooms)
	return &c
}

func (r *UsageRecord) String() string {
	if r.NoEvent {
		return fmt.Sprintf("%s: no event", r.Slot())
	}
	return fmt.Sprintf("%s: %s", r.Slot(), r.Client)
}

// Record field names, shared with the CSV import headers.
const (
	FieldDate        = "Date"
	FieldTiming      = "Timing"
	FieldNoEvent     = "No_Event"
	FieldClient      = "Client"
	FieldMeal        = "Meal"
	FieldEventType   = "Event_Type"
	FieldBallroom    = "Ballroom"
	FieldDescription = "Event Description"
)

// FieldError describes one invalid field of a record.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// FieldErrors is returned when a record fails field validation.
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	msgs := make([]string, len(fe))
	for i, e := range fe {
		msgs[i] = e.Error()
	}
	return "invalid record: " + strings.Join(msgs, "; ")
}

func (fe FieldErrors) Guidance() string {
	return "Correct the listed fields and submit again."
}

// Validate checks the record's fields against the hotel's ballrooms and the vocabulary.
// No-event markers only need a slot.
func (r *UsageRecord) Validate(h *Hotel, vocab Vocabulary) error {
	var errs FieldErrors
	if r.Date.IsZero() {
		errs = append(errs, FieldError{FieldDate, "date is required"})
	}
	if !r.Timing.Valid() {
		errs = append(errs, FieldError{FieldTiming, fmt.Sprintf("timing must be %s or %s", slot.Morning, slot.Evening)})
	}
	if r.NoEvent {
		if r.Client != "" || len(r.Ballrooms) > 0 || len(r.Meals) > 0 {
			errs = append(errs, FieldError{FieldNoEvent, "a no-event marker cannot carry event details"})
		}
		return errs.orNil()
	}
	if strings.TrimSpace(r.Client) == "" {
		errs = append(errs, FieldError{FieldClient, "client name cannot be left blank"})
	}
	if r.Timing.Valid() && !vocab.ValidMeals(r.Timing, r.Meals) {
		errs = append(errs, FieldError{FieldMeal, fmt.Sprintf("choose one of %s for %s events",
			strings.Join(vocab.MealChoices(r.Timing), " / "), r.Timing)})
	}
	if !vocab.IsEventType(r.EventType) {
		errs = append(errs, FieldError{FieldEventType, fmt.Sprintf("event type must be one of %s",
			strings.Join(vocab.EventTypes, ", "))})
	}
	if len(r.Ballrooms) == 0 {
		errs = append(errs, FieldError{FieldBallroom, "at least one ballroom needs to be selected"})
	} else if err := h.CheckBallrooms(r.Ballrooms); err != nil {
		errs = append(errs, FieldError{FieldBallroom, err.Error()})
	}
	return errs.orNil()
}

func (fe FieldErrors) orNil() error {
	if len(fe) == 0 {
		return nil
	}
	return fe
}

// SameClient compares client names the way slot uniqueness does.
func SameClient(a, b string) bool {
	return strings.TrimSpace(a) == strings.TrimSpace(b)
}
