package models

import (
	"errors"
	"testing"

	"github.com/julianstephens/banquet/internal/calendar"
	"github.com/julianstephens/banquet/internal/entry"
	"github.com/julianstephens/banquet/internal/slot"
)

func testHotel() *Hotel {
	h := NewHotel("h1", "Grand Hyatt Mumbai", "Mumbai")
	h.Ballrooms = []Ballroom{{Name: "Regency"}, {Name: "Ruby", Used: true}, {Name: "Other"}}
	h.Contract = NewContract(calendar.Date(2024, 1, 1), calendar.Date(2024, 1, 10))
	return h
}

func TestDeriveInitial(t *testing.T) {
	tests := map[string]string{
		"Grand Hyatt Mumbai":       "GHM",
		"taj lands end hotel":      "TLE",
		"Novotel":                  "NO",
		"Trident":                  "TR",
		"The 1 Oberoi":             "TO",
		"1 Oberoi":                 "OB",
		"X":                        "",
		"Éclat":                    "",
		"  JW   Marriott  ":        "JM",
		"":                         "",
		"The 1 Leela Palace Hotel": "TLP",
	}
	for name, want := range tests {
		if got := DeriveInitial(name); got != want {
			t.Errorf("DeriveInitial(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestNewHotelSingleWordName(t *testing.T) {
	for _, name := range []string{"Trident", "Oberoi", "X"} {
		h := NewHotel("h1", name, "Mumbai")
		if err := h.Validate(); err != nil {
			t.Errorf("NewHotel(%q).Validate() = %v", name, err)
		}
	}
}

func TestHotelValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(h *Hotel)
		wantErr error
	}{
		{"valid", func(h *Hotel) {}, nil},
		{"missing name", func(h *Hotel) { h.Name = "" }, ErrInvalidHotelFields},
		{"bad initial", func(h *Hotel) { h.Initial = "A1" }, ErrInvalidHotelFields},
		{"too many competitions", func(h *Hotel) {
			h.Competitions = []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}
		}, ErrInvalidHotelFields},
		{"no ballrooms", func(h *Hotel) { h.Ballrooms = nil }, ErrInvalidHotelFields},
		{"duplicate ballroom", func(h *Hotel) { h.Ballrooms = append(h.Ballrooms, Ballroom{Name: "Ruby"}) }, ErrDuplicateBallroom},
		{"inverted contract is allowed", func(h *Hotel) {
			h.Contract = NewContract(calendar.Date(2024, 2, 1), calendar.Date(2024, 1, 1))
		}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := testHotel()
			tt.mutate(h)
			err := h.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestMarkUsed(t *testing.T) {
	h := testHotel()
	if !h.MarkUsed([]string{"Regency", "Ruby"}, true) {
		t.Error("expected Regency to flip")
	}
	if h.MarkUsed([]string{"Regency", "Ruby", "Unknown"}, true) {
		t.Error("second call should not change anything")
	}
	if !h.Ballrooms[0].Used {
		t.Error("Regency should be used")
	}
}

func TestBallroomLedger(t *testing.T) {
	tests := []struct {
		name    string
		op      func(h *Hotel) error
		wantErr error
	}{
		{"add", func(h *Hotel) error { return h.AddBallroom("Emerald") }, nil},
		{"add duplicate", func(h *Hotel) error { return h.AddBallroom("Ruby") }, ErrDuplicateBallroom},
		{"add blank", func(h *Hotel) error { return h.AddBallroom("  ") }, ErrInvalidBallroom},
		{"remove unused", func(h *Hotel) error { return h.RemoveBallroom("Regency") }, nil},
		{"remove used", func(h *Hotel) error { return h.RemoveBallroom("Ruby") }, ErrBallroomInUse},
		{"remove missing", func(h *Hotel) error { return h.RemoveBallroom("Jade") }, ErrBallroomNotFound},
		{"rename unused", func(h *Hotel) error { return h.RenameBallroom("Regency", "Regency Hall") }, nil},
		{"rename used", func(h *Hotel) error { return h.RenameBallroom("Ruby", "Ruby Hall") }, ErrBallroomInUse},
		{"rename to existing", func(h *Hotel) error { return h.RenameBallroom("Regency", "Other") }, ErrDuplicateBallroom},
		{"rename unchanged", func(h *Hotel) error { return h.RenameBallroom("Regency", "Regency") }, ErrBallroomUnchanged},
		{"rename missing", func(h *Hotel) error { return h.RenameBallroom("Jade", "Onyx") }, ErrBallroomNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := testHotel()
			before := len(h.Ballrooms)
			err := tt.op(h)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if err != nil && len(h.Ballrooms) != before {
				t.Error("failed operation changed the ballroom set")
			}
		})
	}
}

func TestRemoveLastBallroom(t *testing.T) {
	h := NewHotel("h2", "Novotel", "Pune")
	if err := h.RemoveBallroom("Other"); !errors.Is(err, ErrLastBallroom) {
		t.Fatalf("err = %v, want %v", err, ErrLastBallroom)
	}
}

func TestHotelCursor(t *testing.T) {
	h := testHotel()
	today := calendar.Date(2024, 1, 8)
	s, reason := h.NextSlot(today, calendar.Weekly)
	if reason != entry.Open || !s.Equal(slot.New(h.Contract.Start, slot.Morning)) {
		t.Fatalf("NextSlot = %v %v", s, reason)
	}
	h.Advance(s)
	clone := h.Clone()
	clone.Rollback()
	clone.Ballrooms[0].Name = "changed"
	if !h.Cursor.IsSet() || h.Ballrooms[0].Name != "Regency" {
		t.Error("clone mutation leaked into the original")
	}
	if clone.Cursor.IsSet() {
		t.Errorf("rollback from contract start should clear the cursor, got %v", clone.Cursor)
	}
}

func TestContract(t *testing.T) {
	c := NewContract(calendar.Date(2024, 1, 1), calendar.Date(2024, 1, 10))
	if !c.IsValid(calendar.Date(2024, 1, 1)) || !c.IsValid(calendar.Date(2024, 1, 10)) {
		t.Error("bounds should be inclusive")
	}
	if c.IsValid(calendar.Date(2024, 1, 11)) {
		t.Error("date after end should be outside")
	}
	if c.IsExpired(calendar.Date(2024, 1, 10)) || !c.IsExpired(calendar.Date(2024, 1, 11)) {
		t.Error("IsExpired is end < today")
	}
	if err := NewContract(calendar.Date(2024, 1, 10), calendar.Date(2024, 1, 1)).Validate(); err == nil {
		t.Error("expected error for inverted contract")
	}
	if (Contract{}).Validate() == nil {
		t.Error("expected error for unset contract")
	}
}
