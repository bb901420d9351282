package status

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/banquet/internal/calendar"
	"github.com/julianstephens/banquet/internal/entry"
	"github.com/julianstephens/banquet/internal/models"
	"github.com/julianstephens/banquet/internal/slot"
)

func d(day int) time.Time {
	return calendar.Date(2024, time.January, day)
}

func hotel(start, end time.Time, cursor slot.Slot) *models.Hotel {
	h := models.NewHotel("h1", "Grand Palace", "Mumbai")
	h.Contract = models.NewContract(start, end)
	if !cursor.IsZero() {
		h.Cursor = entry.At(cursor)
	}
	return h
}

func TestHeadline(t *testing.T) {
	today := d(15)
	tests := []struct {
		name      string
		hotel     *models.Hotel
		want      string
		remaining int
	}{
		{"no contract", models.NewHotel("h1", "Grand Palace", "Mumbai"), HeadlineNoContract, 0},
		{"future contract", hotel(d(20), d(31), slot.Slot{}), HeadlineNoContract, 0},
		{"caught up", hotel(d(1), d(31), slot.New(d(14), slot.Evening)), HeadlineAllDone, 0},
		{"ahead of yesterday", hotel(d(1), d(31), slot.New(d(16), slot.Morning)), HeadlineAllDone, 0},
		{"yesterday morning only", hotel(d(1), d(31), slot.New(d(14), slot.Morning)), HeadlinePartial, 0},
		{"behind", hotel(d(1), d(31), slot.New(d(10), slot.Evening)), "4 days entry remaining", 4},
		{"nothing entered", hotel(d(10), d(31), slot.Slot{}), "5 days entry remaining", 5},
		{"contract ended", hotel(d(1), d(5), slot.New(d(5), slot.Evening)), HeadlineAllDone, 0},
		{"starts today", hotel(d(15), d(31), slot.Slot{}), HeadlineAllDone, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Build([]*models.Hotel{tt.hotel}, today, 3)
			row := b.Rows[0]
			if row.Headline != tt.want || row.Remaining != tt.remaining {
				t.Errorf("headline = %q (%d), want %q (%d)", row.Headline, row.Remaining, tt.want, tt.remaining)
			}
		})
	}
}

func TestCells(t *testing.T) {
	// Days 10..14; contract starts on the 11th, cursor at the 13th Morning.
	b := Build([]*models.Hotel{hotel(d(11), d(31), slot.New(d(13), slot.Morning))}, d(15), 5)

	if len(b.Days) != 5 || !b.Days[0].Equal(d(10)) || !b.Days[4].Equal(d(14)) {
		t.Fatalf("days = %v", b.Days)
	}
	want := []Cell{NA, Done, Done, Partial, NotDone}
	for i, c := range b.Rows[0].Cells {
		if c != want[i] {
			t.Errorf("cell %s = %s, want %s", calendar.FormatDB(b.Days[i]), c, want[i])
		}
	}
}

func TestCellsIgnoreCursorBeforeContract(t *testing.T) {
	b := Build([]*models.Hotel{hotel(d(12), d(31), slot.New(d(5), slot.Evening))}, d(15), 3)
	for i, c := range b.Rows[0].Cells {
		if c != NotDone {
			t.Errorf("cell %d = %s, want not done", i, c)
		}
	}
}

func TestRender(t *testing.T) {
	b := Build([]*models.Hotel{hotel(d(1), d(31), slot.New(d(14), slot.Evening))}, d(15), 3)
	var buf bytes.Buffer
	if err := b.Render(&buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Grand Palace", HeadlineAllDone, "12", "14", "Mon,15-Jan-2024"} {
		if !strings.Contains(out, want) {
			t.Errorf("Render() output missing %q:\n%s", want, out)
		}
	}
}
