package models

import (
	"slices"
	"strings"

	"github.com/julianstephens/banquet/internal/constants"
	"github.com/julianstephens/banquet/internal/slot"
)

// Vocabulary holds the allowed values of the enumerated record fields.
type Vocabulary struct {
	EventTypes   []string `yaml:"event_types" validate:"min=1,dive,required"`
	MorningMeals []string `yaml:"morning_meals" validate:"min=1,dive,required"`
	EveningMeals []string `yaml:"evening_meals" validate:"min=1,dive,required"`
}

func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		EventTypes:   slices.Clone(constants.EventTypes),
		MorningMeals: slices.Clone(constants.MorningMeals),
		EveningMeals: slices.Clone(constants.EveningMeals),
	}
}

// MealChoices are the meal options offered for a timing, composites included.
func (v Vocabulary) MealChoices(t slot.Timing) []string {
	switch t {
	case slot.Morning:
		return v.MorningMeals
	case slot.Evening:
		return v.EveningMeals
	}
	return nil
}

func (v Vocabulary) IsEventType(s string) bool {
	return slices.Contains(v.EventTypes, s)
}

// ParseMeal validates a meal choice for t and expands composite choices into their meals.
func (v Vocabulary) ParseMeal(t slot.Timing, choice string) ([]string, bool) {
	choice = strings.TrimSpace(choice)
	if !slices.Contains(v.MealChoices(t), choice) {
		return nil, false
	}
	return ExpandMeal(choice), true
}

// ValidMeals reports whether every meal is allowed for t, after expansion.
func (v Vocabulary) ValidMeals(t slot.Timing, meals []string) bool {
	if len(meals) == 0 {
		return false
	}
	allowed := make(map[string]bool)
	for _, choice := range v.MealChoices(t) {
		for _, m := range ExpandMeal(choice) {
			allowed[m] = true
		}
	}
	for _, m := range meals {
		if !allowed[m] {
			return false
		}
	}
	return true
}

// ExpandMeal splits the composite choices into canonical meals.
func ExpandMeal(choice string) []string {
	switch choice {
	case constants.BreakfastLunch:
		return []string{constants.Breakfast, constants.Lunch}
	case constants.HiTeaDinner:
		return []string{constants.HiTea, constants.Dinner}
	}
	return []string{choice}
}

// JoinMeals is the inverse of ExpandMeal, used when exporting records.
func JoinMeals(meals []string) string {
	return strings.Join(meals, ", ")
}
