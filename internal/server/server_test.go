package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/banquet/internal/calendar"
	"github.com/julianstephens/banquet/internal/constants"
	"github.com/julianstephens/banquet/internal/entry"
	"github.com/julianstephens/banquet/internal/importer"
	"github.com/julianstephens/banquet/internal/lock"
	"github.com/julianstephens/banquet/internal/models"
	"github.com/julianstephens/banquet/internal/service"
	"github.com/julianstephens/banquet/internal/storage"
)

// newTestServer serves a JSON store whose today is Wednesday 2024-01-03 and which holds
// one hotel contracted for January 2024.
func newTestServer(t *testing.T, opts Options) (*httptest.Server, *models.Hotel) {
	t.Helper()
	ctx := context.Background()
	store := storage.NewJSONStore(filepath.Join(t.TempDir(), "banquet.json"))
	if err := store.Init(ctx); err != nil {
		t.Fatal(err)
	}
	eng := service.New(store, service.Options{
		Clock: calendar.FixedClock(time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC)),
		Rule:  calendar.Weekly,
	})
	h, err := eng.AddHotel(ctx, "Taj Lands End", "Mumbai",
		models.NewContract(calendar.Date(2024, 1, 1), calendar.Date(2024, 1, 31)), "Regency", "Ruby")
	if err != nil {
		t.Fatal(err)
	}
	if opts.StatusDays == 0 {
		opts.StatusDays = 2
	}
	srv := httptest.NewServer(New(eng, opts).Handler())
	t.Cleanup(srv.Close)
	return srv, h
}

type call struct {
	method string
	path   string
	body   string
	admin  bool
}

func do(t *testing.T, srv *httptest.Server, c call, out any) int {
	t.Helper()
	req, err := http.NewRequest(c.method, srv.URL+c.path, strings.NewReader(c.body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set(HeaderUser, "frontdesk")
	if c.admin {
		req.Header.Set(HeaderRole, constants.RoleAdmin)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode: %v", c.method, c.path, err)
		}
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	var body map[string]string
	if code := do(t, srv, call{method: http.MethodGet, path: "/health"}, &body); code != http.StatusOK || body["status"] != "ok" {
		t.Errorf("GET /health = %d %v", code, body)
	}
}

func TestEntryFlow(t *testing.T) {
	srv, h := newTestServer(t, Options{})
	base := "/hotels/" + h.ID

	var next nextResponse
	do(t, srv, call{method: http.MethodGet, path: base + "/next"}, &next)
	if next.Date != "2024-01-01" || next.Timing != "Morning" || next.Reason != "open" {
		t.Fatalf("next = %+v", next)
	}

	var failure errorResponse
	skip := `{"date":"2024-01-01","timing":"Evening","client":"Acme","event_type":"MICE Event","meal":"Dinner","ballrooms":["Regency"]}`
	if code := do(t, srv, call{method: http.MethodPost, path: base + "/events", body: skip}, &failure); code != http.StatusConflict {
		t.Errorf("skipping a slot = %d, want 409", code)
	}
	if failure.Guidance == "" {
		t.Errorf("guidance = %q", failure.Guidance)
	}

	var rec models.UsageRecord
	ok := `{"date":"01-Jan-2024","timing":"morning","client":"Acme","event_type":"MICE Event","meal":"Breakfast, Lunch","ballrooms":["Regency"]}`
	if code := do(t, srv, call{method: http.MethodPost, path: base + "/events", body: ok}, &rec); code != http.StatusCreated {
		t.Fatalf("create event = %d", code)
	}
	if len(rec.Meals) != 2 {
		t.Errorf("meals = %v, want expanded composite", rec.Meals)
	}

	update := `{"client":"Acme Corp","event_type":"Social Event","meal":"Lunch","ballrooms":["Ruby"]}`
	var updated models.UsageRecord
	if code := do(t, srv, call{method: http.MethodPut, path: "/records/" + rec.ID, body: update}, &updated); code != http.StatusOK {
		t.Fatalf("update event = %d", code)
	}
	if updated.Client != "Acme Corp" || updated.Timing != "Morning" {
		t.Errorf("updated = %+v", updated)
	}

	if code := do(t, srv, call{method: http.MethodPost, path: base + "/no-event", body: `{"date":"2024-01-01","timing":"Evening"}`}, nil); code != http.StatusCreated {
		t.Errorf("no-event = %d", code)
	}

	var slotBody map[string]any
	do(t, srv, call{method: http.MethodGet, path: base + "/slots/2024-01-01/Evening"}, &slotBody)
	if slotBody["kind"] != "no event" {
		t.Errorf("slot = %v", slotBody)
	}

	var records []models.UsageRecord
	do(t, srv, call{method: http.MethodGet, path: base + "/records?from=2024-01-01&to=2024-01-01"}, &records)
	if len(records) != 2 {
		t.Errorf("records = %d, want 2", len(records))
	}

	if code := do(t, srv, call{method: http.MethodDelete, path: "/records/" + records[1].ID}, nil); code != http.StatusNoContent {
		t.Errorf("delete = %d", code)
	}
	do(t, srv, call{method: http.MethodGet, path: base + "/next"}, &next)
	if next.Timing != "Evening" {
		t.Errorf("next after delete = %+v", next)
	}
}

func TestImportEndpoint(t *testing.T) {
	srv, h := newTestServer(t, Options{})
	csv := "Date,Timing,No_Event,Client,Meal,Event_Type,Ballroom,Event Description\n" +
		"01-Jan-2024,Morning,No_Event,,,,,\n" +
		"01-Jan-2024,Evening,,Acme,Dinner,MICE Event,Regency,\n"

	var result map[string]any
	if code := do(t, srv, call{method: http.MethodPost, path: "/hotels/" + h.ID + "/import", body: csv}, &result); code != http.StatusCreated {
		t.Fatalf("import = %d %v", code, result)
	}
	if result["rows"] != float64(2) {
		t.Errorf("result = %v", result)
	}

	var failure errorResponse
	if code := do(t, srv, call{method: http.MethodPost, path: "/hotels/" + h.ID + "/import", body: csv}, &failure); code != http.StatusUnprocessableEntity {
		t.Errorf("re-import = %d, want 422", code)
	}
	if failure.Rows == nil {
		t.Error("batch rejection did not list rows")
	}
}

func TestAdminRoutes(t *testing.T) {
	srv, h := newTestServer(t, Options{})
	base := "/hotels/" + h.ID

	if code := do(t, srv, call{method: http.MethodPost, path: base + "/ballrooms", body: `{"name":"Crystal"}`}, nil); code != http.StatusForbidden {
		t.Errorf("hotel user adding ballroom = %d, want 403", code)
	}
	var hotel models.Hotel
	if code := do(t, srv, call{method: http.MethodPost, path: base + "/ballrooms", body: `{"name":"Crystal"}`, admin: true}, &hotel); code != http.StatusCreated {
		t.Fatalf("admin adding ballroom = %d", code)
	}
	if len(hotel.Ballrooms) != 3 {
		t.Errorf("ballrooms = %v", hotel.Ballrooms)
	}
	if code := do(t, srv, call{method: http.MethodPost, path: base + "/ballrooms", body: `{"name":"Crystal"}`, admin: true}, nil); code != http.StatusConflict {
		t.Errorf("duplicate ballroom = %d, want 409", code)
	}

	if code := do(t, srv, call{method: http.MethodPut, path: base + "/contract", body: `{"start":"2024-02-01","end":"2024-01-01"}`, admin: true}, nil); code != http.StatusUnprocessableEntity {
		t.Errorf("inverted contract = %d, want 422", code)
	}

	if code := do(t, srv, call{method: http.MethodPost, path: base + "/no-event", body: `{"date":"2024-01-01","timing":"Morning"}`}, nil); code != http.StatusCreated {
		t.Fatal("no-event failed")
	}
	var rollback map[string]any
	if code := do(t, srv, call{method: http.MethodPost, path: base + "/rollback", admin: true}, &rollback); code != http.StatusOK {
		t.Fatalf("rollback = %d", code)
	}
	if rollback["cursor"] != nil {
		t.Errorf("cursor after rollback = %v, want null", rollback["cursor"])
	}

	var rec map[string]any
	do(t, srv, call{method: http.MethodPost, path: base + "/reconcile?fix=true", admin: true}, &rec)
	if rec["fixed"] != true {
		t.Errorf("reconcile = %v", rec)
	}

	if code := do(t, srv, call{method: http.MethodGet, path: "/hotels/missing"}, nil); code != http.StatusNotFound {
		t.Errorf("missing hotel = %d, want 404", code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	var board struct {
		Rows []struct {
			Headline string   `json:"headline"`
			Cells    []string `json:"cells"`
		} `json:"rows"`
	}
	if code := do(t, srv, call{method: http.MethodGet, path: "/status?city=Mumbai"}, &board); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(board.Rows) != 1 || board.Rows[0].Headline != "2 days entry remaining" || len(board.Rows[0].Cells) != 2 {
		t.Errorf("board = %+v", board)
	}
	if code := do(t, srv, call{method: http.MethodGet, path: "/status?days=0"}, nil); code != http.StatusBadRequest {
		t.Errorf("days=0 = %d, want 400", code)
	}
}

func TestRateLimit(t *testing.T) {
	srv, _ := newTestServer(t, Options{RatePerSecond: 0.001, Burst: 2})
	codes := make([]int, 3)
	for i := range codes {
		codes[i] = do(t, srv, call{method: http.MethodGet, path: "/health"}, nil)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want two OK then 429", codes)
	}
}

func TestBadBody(t *testing.T) {
	srv, h := newTestServer(t, Options{})
	body := `{"date":"2024-01-01","timing":"Morning","unknown":1}`
	if code := do(t, srv, call{method: http.MethodPost, path: "/hotels/" + h.ID + "/no-event", body: body}, nil); code != http.StatusBadRequest {
		t.Errorf("unknown field = %d, want 400", code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("hotel x: %w", storage.ErrNotFound), http.StatusNotFound},
		{"locked", &entry.Error{Err: entry.ErrRecordLocked}, http.StatusForbidden},
		{"batch", &importer.BatchError{Kind: importer.DateGap}, http.StatusUnprocessableEntity},
		{"columns", importer.ErrInvalidColumns, http.StatusUnprocessableEntity},
		{"entry rule", &entry.Error{Err: entry.ErrSlotNotOpen}, http.StatusConflict},
		{"stale", storage.ErrStaleHotel, http.StatusConflict},
		{"lock timeout", lock.ErrLockTimeout, http.StatusServiceUnavailable},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
