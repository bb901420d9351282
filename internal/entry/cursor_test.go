package entry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/julianstephens/banquet/internal/calendar"
	"github.com/julianstephens/banquet/internal/slot"
)

var (
	jan1  = calendar.Date(2024, 1, 1)
	jan10 = calendar.Date(2024, 1, 10)
)

func d(day int) slot.Slot {
	return slot.New(calendar.Date(2024, 1, day), slot.None)
}

func m(day int) slot.Slot {
	return slot.New(calendar.Date(2024, 1, day), slot.Morning)
}

func e(day int) slot.Slot {
	return slot.New(calendar.Date(2024, 1, day), slot.Evening)
}

func TestNext(t *testing.T) {
	tests := []struct {
		name       string
		cursor     Cursor
		start, end int
		today      int
		wantSlot   slot.Slot
		wantReason Reason
	}{
		{"empty history", Cursor{}, 1, 10, 8, m(1), Open},
		{"morning filled", At(m(5)), 1, 10, 8, e(5), Open},
		{"evening filled", At(e(5)), 1, 10, 8, m(6), Open},
		{"contract end reached", At(e(10)), 1, 10, 8, d(10), ContractExhausted},
		{"contract end reached after expiry", At(e(10)), 1, 10, 20, d(10), ContractExhausted},
		{"cursor before contract", At(e(3)), 5, 10, 8, m(5), Open},
		{"cursor past contract", At(m(12)), 1, 10, 8, d(10), ContractExhausted},
		{"contract shortened below cursor before it ends", At(e(12)), 1, 10, 5, d(10), ContractExhausted},
		{"future contract", Cursor{}, 10, 20, 8, slot.Slot{}, FutureContract},
		{"invalid contract", Cursor{}, 10, 5, 8, slot.Slot{}, InvalidContract},
		// today 2024-01-03 (Wed): next lock-in is Sunday 2024-01-07
		{"caught up to lock-in", At(e(7)), 1, 31, 3, d(7), AllCaughtUp},
		{"morning on lock-in day", At(m(7)), 1, 31, 3, e(7), Open},
		{"last day before lock-in", At(e(6)), 1, 31, 3, m(7), Open},
		{"lock-in is today on sunday", At(e(7)), 1, 31, 7, d(7), AllCaughtUp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := Next(tt.cursor, calendar.Date(2024, 1, tt.start), calendar.Date(2024, 1, tt.end),
				calendar.Date(2024, 1, tt.today), calendar.Weekly)
			if reason != tt.wantReason {
				t.Fatalf("reason = %v, want %v", reason, tt.wantReason)
			}
			if !got.Equal(tt.wantSlot) || !got.Date.Equal(tt.wantSlot.Date) {
				t.Errorf("slot = %v, want %v", got, tt.wantSlot)
			}
		})
	}
}

func TestNextNoContract(t *testing.T) {
	for _, c := range []Cursor{{}, At(e(5))} {
		got, reason := Next(c, time.Time{}, time.Time{}, calendar.Date(2024, 1, 3), calendar.Weekly)
		if reason != NoContract || !got.IsZero() {
			t.Errorf("Next(%s) = %v %v, want no slot and %v", c, got, reason, NoContract)
		}
	}
	if _, reason := Next(Cursor{}, jan1, time.Time{}, jan1, calendar.Weekly); reason != NoContract {
		t.Errorf("missing end: reason = %v, want %v", reason, NoContract)
	}
	if !errors.Is(NoContract.Err(), ErrNoContract) {
		t.Errorf("Err() = %v, want %v", NoContract.Err(), ErrNoContract)
	}
}

func TestNextMonthEndRule(t *testing.T) {
	start := calendar.Date(2024, 1, 1)
	end := calendar.Date(2024, 12, 31)
	today := calendar.Date(2024, 1, 29) // Monday; Sunday is Feb 4

	cursor := At(slot.New(calendar.Date(2024, 1, 31), slot.Evening))

	_, reason := Next(cursor, start, end, today, calendar.WeeklyOrMonthEnd)
	if reason != AllCaughtUp {
		t.Errorf("month-end rule: reason = %v, want %v", reason, AllCaughtUp)
	}
	got, reason := Next(cursor, start, end, today, calendar.Weekly)
	if reason != Open || !got.Equal(slot.New(calendar.Date(2024, 2, 1), slot.Morning)) {
		t.Errorf("weekly rule: got %v %v, want Thu,01-Feb-2024 Morning", got, reason)
	}
}

func TestAdvanceIsMonotonic(t *testing.T) {
	var c Cursor
	if !c.Advance(m(2)) {
		t.Fatal("advance on unset cursor should move it")
	}
	if c.Advance(m(2)) {
		t.Error("advancing to the same slot should be a no-op")
	}
	if c.Advance(e(1)) {
		t.Error("advancing backwards should be a no-op")
	}
	if !c.Slot().Equal(m(2)) {
		t.Errorf("cursor = %v, want %v", c, m(2))
	}
	if !c.Advance(e(4)) {
		t.Error("advance to a later slot should move the cursor")
	}
	if c.Advance(slot.New(calendar.Date(2024, 1, 9), slot.None)) {
		t.Error("advance without timing should be ignored")
	}
}

func TestRollback(t *testing.T) {
	tests := []struct {
		name   string
		cursor Cursor
		want   Cursor
	}{
		{"evening to morning", At(e(5)), At(m(5))},
		{"morning to previous evening", At(m(5)), At(e(4))},
		{"before contract start clears", At(m(1)), Cursor{}},
		{"unset stays unset", Cursor{}, Cursor{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.cursor
			c.Rollback(jan1)
			if c.IsSet() != tt.want.IsSet() || !c.Slot().Equal(tt.want.Slot()) {
				t.Errorf("rollback = %v, want %v", c, tt.want)
			}
		})
	}
}

func TestRollbackInvertsAdvance(t *testing.T) {
	cursors := []Cursor{{}, At(m(1)), At(e(1)), At(m(6)), At(e(9))}
	for _, before := range cursors {
		t.Run(before.String(), func(t *testing.T) {
			next, reason := Next(before, jan1, jan10, calendar.Date(2024, 1, 8), calendar.Weekly)
			if reason != Open {
				t.Fatalf("reason = %v, want open", reason)
			}
			c := before
			c.Advance(next)
			c.Rollback(jan1)
			if c.IsSet() != before.IsSet() || !c.Slot().Equal(before.Slot()) {
				t.Errorf("advance+rollback = %v, want %v", c, before)
			}
		})
	}
}

func TestRestoreNormalises(t *testing.T) {
	c := Restore(calendar.Date(2024, 1, 4), slot.None)
	if c.Timing() != slot.Evening {
		t.Errorf("timing = %q, want Evening", c.Timing())
	}
	if Restore(time.Time{}, slot.Morning).IsSet() {
		t.Error("zero date should yield an unset cursor")
	}
	var zero Cursor
	if zero.IsSet() || zero.String() != "unset" {
		t.Errorf("zero cursor = %v", zero)
	}
}

func TestCursorJSON(t *testing.T) {
	data, err := json.Marshal(At(e(5)))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `{"date":"2024-01-05","timing":"Evening"}` {
		t.Errorf("json = %s", data)
	}
	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !c.Slot().Equal(e(5)) {
		t.Errorf("decoded = %v", c)
	}

	data, _ = json.Marshal(Cursor{})
	if string(data) != "null" {
		t.Errorf("unset json = %s", data)
	}
	if err := json.Unmarshal([]byte("null"), &c); err != nil || c.IsSet() {
		t.Errorf("null should clear cursor, got %v (%v)", c, err)
	}
	if err := json.Unmarshal([]byte(`{"date":"05/01/2024"}`), &c); err == nil {
		t.Error("expected error for malformed date")
	}
}

func TestReasonErr(t *testing.T) {
	if Open.Err() != nil {
		t.Error("Open should carry no error")
	}
	if !errors.Is(ContractExhausted.Err(), ErrContractExhausted) {
		t.Error("ContractExhausted.Err mismatch")
	}
	if AllCaughtUp.String() != "all_caught_up" {
		t.Errorf("String = %q", AllCaughtUp.String())
	}
}
