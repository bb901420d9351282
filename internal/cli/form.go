package cli

import (
	"errors"
	"slices"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/banquet/internal/models"
	"github.com/julianstephens/banquet/internal/slot"
)

// EventForm holds the fields of an event being entered interactively.
type EventForm struct {
	Client      string
	EventType   string
	Meal        string
	Ballrooms   []string
	Description string
}

// Complete reports whether every required field is already set.
func (f *EventForm) Complete() bool {
	return strings.TrimSpace(f.Client) != "" && f.EventType != "" && f.Meal != "" && len(f.Ballrooms) > 0
}

// NewEventForm builds the prompt for an event in slot s of h. Choices come from the
// vocabulary and the hotel's ballrooms, so only valid values can be picked.
func NewEventForm(f *EventForm, h *models.Hotel, s slot.Slot, vocab models.Vocabulary) *huh.Form {
	eventTypes := make([]huh.Option[string], len(vocab.EventTypes))
	for i, t := range vocab.EventTypes {
		eventTypes[i] = huh.NewOption(t, t)
	}
	meals := make([]huh.Option[string], 0)
	for _, m := range vocab.MealChoices(s.Timing) {
		meals = append(meals, huh.NewOption(m, m))
	}
	ballrooms := make([]huh.Option[string], 0, len(h.Ballrooms))
	for _, b := range h.BallroomNames() {
		ballrooms = append(ballrooms, huh.NewOption(b, b).Selected(slices.Contains(f.Ballrooms, b)))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Client").
				Description(s.String()).
				Value(&f.Client).
				Validate(func(v string) error {
					if strings.TrimSpace(v) == "" {
						return errors.New("client name cannot be left blank")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Event Type").
				Options(eventTypes...).
				Value(&f.EventType),
			huh.NewSelect[string]().
				Title("Meal").
				Options(meals...).
				Value(&f.Meal),
			huh.NewMultiSelect[string]().
				Title("Ballrooms").
				Options(ballrooms...).
				Value(&f.Ballrooms).
				Validate(func(v []string) error {
					if len(v) == 0 {
						return errors.New("at least one ballroom needs to be selected")
					}
					return nil
				}),
			huh.NewText().
				Title("Event Description").
				Value(&f.Description),
		),
	).WithTheme(huh.ThemeDracula())
}

// Record builds the usage record for slot s.
func (f *EventForm) Record(s slot.Slot) *models.UsageRecord {
	r := &models.UsageRecord{
		Client:           strings.TrimSpace(f.Client),
		EventType:        f.EventType,
		Meals:            models.ExpandMeal(f.Meal),
		Ballrooms:        f.Ballrooms,
		EventDescription: f.Description,
	}
	if !s.IsZero() {
		r.SetSlot(s)
	}
	return r
}
