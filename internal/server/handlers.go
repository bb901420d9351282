package server

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/julianstephens/banquet/internal/calendar"
	"github.com/julianstephens/banquet/internal/constants"
	apperrors "github.com/julianstephens/banquet/internal/errors"
	"github.com/julianstephens/banquet/internal/models"
	"github.com/julianstephens/banquet/internal/slot"
)

const maxImportBytes = 10 << 20

type slotBody struct {
	Date   string `json:"date"`
	Timing string `json:"timing"`
}

func (b slotBody) parse() (slot.Slot, error) {
	date, err := calendar.ParseFlexible(b.Date)
	if err != nil {
		return slot.Slot{}, err
	}
	timing, err := slot.ParseTiming(b.Timing)
	if err != nil {
		return slot.Slot{}, err
	}
	return slot.New(date, timing), nil
}

type eventBody struct {
	slotBody
	Client      string   `json:"client"`
	EventType   string   `json:"event_type"`
	Meal        string   `json:"meal,omitempty"`
	Meals       []string `json:"meals,omitempty"`
	Ballrooms   []string `json:"ballrooms"`
	Description string   `json:"description,omitempty"`
}

// record builds the record to submit. A meal choice such as "Hi Tea, Dinner" is
// expanded; the engine validates the meals against the slot's timing.
func (b eventBody) record(s slot.Slot) *models.UsageRecord {
	r := &models.UsageRecord{
		Client:           strings.TrimSpace(b.Client),
		EventType:        b.EventType,
		Meals:            b.Meals,
		Ballrooms:        b.Ballrooms,
		EventDescription: b.Description,
	}
	if meal := strings.TrimSpace(b.Meal); meal != "" {
		r.Meals = models.ExpandMeal(meal)
	}
	if !s.IsZero() {
		r.SetSlot(s)
	}
	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": constants.Version})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	days := s.opts.StatusDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 31 {
			writeError(w, http.StatusBadRequest, "days must be between 1 and 31", "")
			return
		}
		days = n
	}
	board, err := s.engine.Status(r.Context(), r.URL.Query().Get("city"), days)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (s *Server) listHotels(w http.ResponseWriter, r *http.Request) {
	hotels, err := s.engine.Hotels(r.Context(), r.URL.Query().Get("city"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	if hotels == nil {
		hotels = []*models.Hotel{}
	}
	writeJSON(w, http.StatusOK, hotels)
}

type hotelBody struct {
	Name          string   `json:"name"`
	City          string   `json:"city"`
	ContractStart string   `json:"contract_start,omitempty"`
	ContractEnd   string   `json:"contract_end,omitempty"`
	Ballrooms     []string `json:"ballrooms,omitempty"`
}

func (s *Server) addHotel(w http.ResponseWriter, r *http.Request) {
	var body hotelBody
	if !decodeJSON(w, r, &body) {
		return
	}
	var contract models.Contract
	if body.ContractStart != "" || body.ContractEnd != "" {
		c, ok := parseContract(w, body.ContractStart, body.ContractEnd)
		if !ok {
			return
		}
		contract = c
	}
	h, err := s.engine.AddHotel(r.Context(), body.Name, body.City, contract, body.Ballrooms...)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, h)
}

func parseContract(w http.ResponseWriter, start, end string) (models.Contract, bool) {
	from, err := calendar.ParseFlexible(start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid contract start: "+err.Error(), "")
		return models.Contract{}, false
	}
	to, err := calendar.ParseFlexible(end)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid contract end: "+err.Error(), "")
		return models.Contract{}, false
	}
	return models.NewContract(from, to), true
}

func (s *Server) getHotel(w http.ResponseWriter, r *http.Request) {
	h, err := s.engine.Hotel(r.Context(), chi.URLParam(r, "hotelID"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

type nextResponse struct {
	Today    string `json:"today"`
	Date     string `json:"date,omitempty"`
	Timing   string `json:"timing,omitempty"`
	Reason   string `json:"reason"`
	Message  string `json:"message,omitempty"`
	Guidance string `json:"guidance,omitempty"`
}

func (s *Server) nextSlot(w http.ResponseWriter, r *http.Request) {
	next, err := s.engine.NextSlot(r.Context(), chi.URLParam(r, "hotelID"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	resp := nextResponse{Today: calendar.FormatDB(next.Today), Reason: next.Reason.String()}
	if !next.Slot.IsZero() {
		resp.Date = calendar.FormatDB(next.Slot.Date)
		resp.Timing = string(next.Slot.Timing)
	}
	if err := next.Err(); err != nil {
		resp.Message = err.Error()
		resp.Guidance = apperrors.Guidance(err)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) listRecords(w http.ResponseWriter, r *http.Request) {
	var bounds [2]time.Time
	for i, key := range []string{"from", "to"} {
		if v := r.URL.Query().Get(key); v != "" {
			d, err := calendar.ParseFlexible(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid "+key+" date: "+err.Error(), "")
				return
			}
			bounds[i] = d
		}
	}
	records, err := s.engine.Records(r.Context(), chi.URLParam(r, "hotelID"), bounds[0], bounds[1])
	if err != nil {
		writeFailure(w, err)
		return
	}
	if records == nil {
		records = []*models.UsageRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) slotRecords(w http.ResponseWriter, r *http.Request) {
	target, err := slotBody{Date: chi.URLParam(r, "date"), Timing: chi.URLParam(r, "timing")}.parse()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	entries, err := s.engine.SlotRecords(r.Context(), chi.URLParam(r, "hotelID"), target)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date":    calendar.FormatDB(target.Date),
		"timing":  target.Timing,
		"kind":    entries.Kind().String(),
		"records": nonNilRecords(entries.Records()),
	})
}

func nonNilRecords(rs []*models.UsageRecord) []*models.UsageRecord {
	if rs == nil {
		return []*models.UsageRecord{}
	}
	return rs
}

func (s *Server) createEvent(w http.ResponseWriter, r *http.Request) {
	var body eventBody
	if !decodeJSON(w, r, &body) {
		return
	}
	target, err := body.parse()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	rec, err := s.engine.CreateEvent(r.Context(), actorFrom(r), chi.URLParam(r, "hotelID"), body.record(target))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) markNoEvent(w http.ResponseWriter, r *http.Request) {
	var body slotBody
	if !decodeJSON(w, r, &body) {
		return
	}
	target, err := body.parse()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	rec, err := s.engine.MarkNoEvent(r.Context(), actorFrom(r), chi.URLParam(r, "hotelID"), target)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) updateEvent(w http.ResponseWriter, r *http.Request) {
	var body eventBody
	if !decodeJSON(w, r, &body) {
		return
	}
	// Without a date the stored slot is kept; with one it must match.
	var target slot.Slot
	if body.Date != "" {
		var err error
		if target, err = body.parse(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), "")
			return
		}
	}
	rec := body.record(target)
	rec.ID = chi.URLParam(r, "recordID")
	updated, err := s.engine.UpdateEvent(r.Context(), actorFrom(r), rec)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteRecord(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.DeleteRecord(r.Context(), actorFrom(r), chi.URLParam(r, "recordID")); err != nil {
		writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) importCSV(w http.ResponseWriter, r *http.Request) {
	var body io.Reader = http.MaxBytesReader(w, r.Body, maxImportBytes)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxImportBytes); err != nil {
			writeError(w, http.StatusBadRequest, "invalid upload: "+err.Error(), "")
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "missing file field: "+err.Error(), "")
			return
		}
		defer file.Close()
		body = file
	}
	result, err := s.engine.Import(r.Context(), actorFrom(r), chi.URLParam(r, "hotelID"), body)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

type contractBody struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (s *Server) seedContract(w http.ResponseWriter, r *http.Request) {
	var body contractBody
	if !decodeJSON(w, r, &body) {
		return
	}
	contract, ok := parseContract(w, body.Start, body.End)
	if !ok {
		return
	}
	h, err := s.engine.SeedContract(r.Context(), chi.URLParam(r, "hotelID"), contract.Start, contract.End)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

type ballroomBody struct {
	Name string `json:"name"`
}

func (s *Server) addBallroom(w http.ResponseWriter, r *http.Request) {
	var body ballroomBody
	if !decodeJSON(w, r, &body) {
		return
	}
	h, err := s.engine.AddBallroom(r.Context(), chi.URLParam(r, "hotelID"), body.Name)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, h)
}

func (s *Server) renameBallroom(w http.ResponseWriter, r *http.Request) {
	var body ballroomBody
	if !decodeJSON(w, r, &body) {
		return
	}
	h, err := s.engine.RenameBallroom(r.Context(), chi.URLParam(r, "hotelID"), chi.URLParam(r, "name"), body.Name)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *Server) removeBallroom(w http.ResponseWriter, r *http.Request) {
	h, err := s.engine.RemoveBallroom(r.Context(), chi.URLParam(r, "hotelID"), chi.URLParam(r, "name"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

// forceRollback steps the cursor back one slot, or onto the slot in the body.
func (s *Server) forceRollback(w http.ResponseWriter, r *http.Request) {
	var to slot.Slot
	if r.ContentLength != 0 {
		var body slotBody
		if !decodeJSON(w, r, &body) {
			return
		}
		t, err := body.parse()
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), "")
			return
		}
		to = t
	}
	cursor, err := s.engine.ForceRollback(r.Context(), chi.URLParam(r, "hotelID"), to)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cursor": cursor})
}

func (s *Server) reconcile(w http.ResponseWriter, r *http.Request) {
	fix, _ := strconv.ParseBool(r.URL.Query().Get("fix"))
	rec, err := s.engine.Reconcile(r.Context(), chi.URLParam(r, "hotelID"), fix)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"cached":     rec.Cached,
		"derived":    rec.Derived,
		"gaps":       rec.Gaps,
		"fixed":      rec.Fixed,
		"consistent": rec.Consistent(),
	})
}
