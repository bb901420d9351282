package models

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/julianstephens/banquet/internal/calendar"
	"github.com/julianstephens/banquet/internal/constants"
	"github.com/julianstephens/banquet/internal/entry"
	"github.com/julianstephens/banquet/internal/slot"
)

var (
	ErrBallroomInUse      = errors.New("ballroom has recorded events")
	ErrBallroomNotFound   = errors.New("ballroom not found")
	ErrDuplicateBallroom  = errors.New("ballroom already exists")
	ErrInvalidBallroom    = errors.New("ballroom name cannot be blank")
	ErrBallroomUnchanged  = errors.New("ballroom name is not changed")
	ErrLastBallroom       = errors.New("a hotel needs at least one ballroom")
	ErrUnknownBallrooms   = errors.New("unknown ballrooms")
	ErrInvalidHotelFields = errors.New("invalid hotel")
)

// BallroomError names the ballroom an occupancy ledger operation failed on.
type BallroomError struct {
	Name string
	Err  error
}

func (e *BallroomError) Error() string {
	return fmt.Sprintf("%s: %q", e.Err, e.Name)
}

func (e *BallroomError) Unwrap() error { return e.Err }

func (e *BallroomError) Guidance() string {
	switch {
	case errors.Is(e.Err, ErrBallroomInUse):
		return "Ballrooms with recorded events cannot be renamed or removed."
	case errors.Is(e.Err, ErrDuplicateBallroom):
		return "Choose a name that is not already used by this hotel."
	case errors.Is(e.Err, ErrBallroomNotFound), errors.Is(e.Err, ErrUnknownBallrooms):
		return "Run `banquet hotel show` to list the hotel's ballrooms."
	}
	return ""
}

type Ballroom struct {
	Name string `json:"name" bson:"name"`
	Used bool   `json:"used" bson:"used"`
}

type Hotel struct {
	ID           string       `json:"id" validate:"required"`
	Name         string       `json:"name" validate:"required"`
	City         string       `json:"city" validate:"required"`
	Initial      string       `json:"initial,omitempty" validate:"omitempty,alpha,min=2,max=3"`
	Email        string       `json:"email,omitempty" validate:"omitempty,email"`
	Competitions []string     `json:"competitions,omitempty" validate:"max=9,dive,required"`
	Ballrooms    []Ballroom   `json:"ballrooms" validate:"min=1,dive"`
	Contract     Contract     `json:"contract"`
	Cursor       entry.Cursor `json:"cursor"`
	Version      int64        `json:"version"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// NewHotel builds a hotel with the default ballroom and a derived initial.
func NewHotel(id, name, city string) *Hotel {
	name = strings.TrimSpace(name)
	return &Hotel{
		ID:        id,
		Name:      name,
		City:      strings.TrimSpace(city),
		Initial:   DeriveInitial(name),
		Ballrooms: []Ballroom{{Name: constants.DefaultBallroom}},
	}
}

// DeriveInitial takes the first letter of up to three words of name. A name with a
// single usable word contributes its second letter too. Names that yield fewer than
// two letters derive no initial.
func DeriveInitial(name string) string {
	var letters []rune
	var first []rune
	for _, word := range strings.Fields(name) {
		if len(letters) == 3 {
			break
		}
		r := []rune(word)
		if !isLetter(r[0]) {
			continue
		}
		if first == nil {
			first = r
		}
		letters = append(letters, unicode.ToUpper(r[0]))
	}
	if len(letters) == 1 && len(first) > 1 && isLetter(first[1]) {
		letters = append(letters, unicode.ToUpper(first[1]))
	}
	if len(letters) < 2 {
		return ""
	}
	return string(letters)
}

// isLetter matches the validator's alpha tag, which is ASCII only.
func isLetter(r rune) bool {
	return r < unicode.MaxASCII && unicode.IsLetter(r)
}

// Validate checks the hotel's own fields. Contract ordering is left to the entry cursor.
func (h *Hotel) Validate() error {
	if err := validate.Struct(h); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidHotelFields, strings.Join(fields, ", "))
		}
		return err
	}
	seen := make(map[string]bool, len(h.Ballrooms))
	for _, b := range h.Ballrooms {
		if strings.TrimSpace(b.Name) == "" {
			return &BallroomError{Name: b.Name, Err: ErrInvalidBallroom}
		}
		if seen[b.Name] {
			return &BallroomError{Name: b.Name, Err: ErrDuplicateBallroom}
		}
		seen[b.Name] = true
	}
	return nil
}

// Key is the (city, name) identity of the hotel.
func (h *Hotel) Key() string {
	return HotelKey(h.City, h.Name)
}

func HotelKey(city, name string) string {
	return strings.ToLower(strings.TrimSpace(city)) + "/" + strings.ToLower(strings.TrimSpace(name))
}

func (h *Hotel) String() string {
	return fmt.Sprintf("%s (%s)", h.Name, h.City)
}

// Window captures the hotel's entry state for the cursor guards.
func (h *Hotel) Window(today time.Time, rule calendar.Rule, admin bool) entry.Window {
	return entry.Window{
		Cursor:        h.Cursor,
		ContractStart: h.Contract.Start,
		ContractEnd:   h.Contract.End,
		Today:         today,
		Rule:          rule,
		Admin:         admin,
	}
}

// NextSlot is the next slot open for data entry.
func (h *Hotel) NextSlot(today time.Time, rule calendar.Rule) (slot.Slot, entry.Reason) {
	return entry.Next(h.Cursor, h.Contract.Start, h.Contract.End, today, rule)
}

func (h *Hotel) Advance(s slot.Slot) bool {
	return h.Cursor.Advance(s)
}

func (h *Hotel) Rollback() bool {
	return h.Cursor.Rollback(h.Contract.Start)
}

func (h *Hotel) HasBallroom(name string) bool {
	return h.ballroomIndex(name) >= 0
}

func (h *Hotel) BallroomNames() []string {
	names := make([]string, len(h.Ballrooms))
	for i, b := range h.Ballrooms {
		names[i] = b.Name
	}
	return names
}

// CheckBallrooms returns ErrUnknownBallrooms naming every name the hotel does not have.
func (h *Hotel) CheckBallrooms(names []string) error {
	var unknown []string
	for _, name := range names {
		if !h.HasBallroom(name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return &BallroomError{Name: strings.Join(unknown, ", "), Err: ErrUnknownBallrooms}
	}
	return nil
}

// MarkUsed sets the used flag of every named ballroom to used and reports whether any flag flipped.
// Unknown names are ignored.
func (h *Hotel) MarkUsed(names []string, used bool) bool {
	changed := false
	for _, name := range names {
		if i := h.ballroomIndex(name); i >= 0 && h.Ballrooms[i].Used != used {
			h.Ballrooms[i].Used = used
			changed = true
		}
	}
	return changed
}

func (h *Hotel) AddBallroom(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &BallroomError{Name: name, Err: ErrInvalidBallroom}
	}
	if h.HasBallroom(name) {
		return &BallroomError{Name: name, Err: ErrDuplicateBallroom}
	}
	h.Ballrooms = append(h.Ballrooms, Ballroom{Name: name})
	return nil
}

func (h *Hotel) RemoveBallroom(name string) error {
	i := h.ballroomIndex(name)
	if i < 0 {
		return &BallroomError{Name: name, Err: ErrBallroomNotFound}
	}
	if h.Ballrooms[i].Used {
		return &BallroomError{Name: name, Err: ErrBallroomInUse}
	}
	if len(h.Ballrooms) == 1 {
		return &BallroomError{Name: name, Err: ErrLastBallroom}
	}
	h.Ballrooms = slices.Delete(h.Ballrooms, i, i+1)
	return nil
}

func (h *Hotel) RenameBallroom(oldName, newName string) error {
	newName = strings.TrimSpace(newName)
	i := h.ballroomIndex(oldName)
	switch {
	case i < 0:
		return &BallroomError{Name: oldName, Err: ErrBallroomNotFound}
	case newName == "":
		return &BallroomError{Name: newName, Err: ErrInvalidBallroom}
	case newName == oldName:
		return &BallroomError{Name: newName, Err: ErrBallroomUnchanged}
	case h.HasBallroom(newName):
		return &BallroomError{Name: newName, Err: ErrDuplicateBallroom}
	case h.Ballrooms[i].Used:
		return &BallroomError{Name: oldName, Err: ErrBallroomInUse}
	}
	h.Ballrooms[i].Name = newName
	return nil
}

func (h *Hotel) ballroomIndex(name string) int {
	for i, b := range h.Ballrooms {
		if b.Name == name {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy, so a snapshot can be mutated without touching the original.
func (h *Hotel) Clone() *Hotel {
	c := *h
	c.Competitions = slices.Clone(h.Competitions)
	c.Ballrooms = slices.Clone(h.Ballrooms)
	return &c
}
