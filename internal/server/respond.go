package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/julianstephens/banquet/internal/entry"
	apperrors "github.com/julianstephens/banquet/internal/errors"
	"github.com/julianstephens/banquet/internal/importer"
	"github.com/julianstephens/banquet/internal/lock"
	"github.com/julianstephens/banquet/internal/logger"
	"github.com/julianstephens/banquet/internal/models"
	"github.com/julianstephens/banquet/internal/service"
	"github.com/julianstephens/banquet/internal/storage"
)

type errorResponse struct {
	Error    string `json:"error"`
	Guidance string `json:"guidance,omitempty"`
	// Rows lists offending import rows.
	Rows any `json:"rows,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, guidance string) {
	writeJSON(w, status, errorResponse{Error: msg, Guidance: guidance})
}

// writeFailure maps an engine error onto a status code and a body carrying its guidance.
func writeFailure(w http.ResponseWriter, err error) {
	status := statusFor(err)
	resp := errorResponse{Error: err.Error(), Guidance: apperrors.Guidance(err)}

	var pe *importer.ParseError
	var be *importer.BatchError
	switch {
	case errors.As(err, &pe):
		resp.Rows = pe.Rows
	case errors.As(err, &be):
		resp.Rows = be.Rows
	}
	if status == http.StatusInternalServerError {
		logger.Error("Request failed", "error", err)
		resp.Error = "internal error"
	}
	writeJSON(w, status, resp)
}

func statusFor(err error) int {
	var ee *entry.Error
	var be *importer.BatchError
	var pe *importer.ParseError
	var fe models.FieldErrors
	var se *service.Error
	var ble *models.BallroomError

	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, entry.ErrRecordLocked):
		return http.StatusForbidden
	case errors.As(err, &be), errors.As(err, &pe), errors.As(err, &fe),
		errors.Is(err, importer.ErrInvalidColumns), errors.Is(err, importer.ErrEmptyFile),
		errors.Is(err, models.ErrContractDates), errors.Is(err, models.ErrInvalidHotelFields):
		return http.StatusUnprocessableEntity
	case errors.As(err, &ee), errors.As(err, &se), errors.As(err, &ble),
		errors.Is(err, storage.ErrStaleHotel), errors.Is(err, storage.ErrDuplicateHotel),
		errors.Is(err, storage.ErrDuplicateRecord):
		return http.StatusConflict
	case errors.Is(err, lock.ErrLockTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), "")
		return false
	}
	return true
}
