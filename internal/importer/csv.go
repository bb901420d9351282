// Package importer parses CSV batches of usage records and validates them against a
// hotel's entry cursor before they are committed together.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/julianstephens/banquet/internal/calendar"
	"github.com/julianstephens/banquet/internal/models"
	"github.com/julianstephens/banquet/internal/slot"
)

// Headers is the fixed column set of an import file. Column order is free.
var Headers = []string{
	models.FieldDate,
	models.FieldTiming,
	models.FieldNoEvent,
	models.FieldClient,
	models.FieldMeal,
	models.FieldEventType,
	models.FieldBallroom,
	models.FieldDescription,
}

// NoEventSentinel in the No_Event column marks the row's slot as having no events.
const NoEventSentinel = models.FieldNoEvent

var (
	ErrInvalidColumns = errors.New("invalid column names in the csv file")
	ErrEmptyFile      = errors.New("there are no events in the csv file")
	ErrFieldErrors    = errors.New("field specific errors in the csv file")
)

// Row is one parsed line of an import file.
type Row struct {
	// Index is the 1-based data row number; the header row is not counted.
	Index  int
	Record *models.UsageRecord
}

// RowError lists the invalid fields of one data row together with its raw values.
type RowError struct {
	Index  int               `json:"index"`
	Fields []string          `json:"fields"`
	Values map[string]string `json:"values"`
}

// ParseError collects every invalid row of a file.
type ParseError struct {
	Rows []RowError
}

func (e *ParseError) Error() string {
	idx := make([]string, len(e.Rows))
	for i, r := range e.Rows {
		idx[i] = fmt.Sprintf("row %d (%s)", r.Index, strings.Join(r.Fields, ", "))
	}
	return fmt.Sprintf("%s: %s", ErrFieldErrors, strings.Join(idx, "; "))
}

func (e *ParseError) Unwrap() error { return ErrFieldErrors }

func (e *ParseError) Guidance() string {
	return "Fix the listed fields in the csv file and upload it again."
}

// Parse reads an import file for h. Every row is checked against the vocabulary and the
// hotel's ballrooms; all invalid rows are reported together in a *ParseError.
func Parse(r io.Reader, h *models.Hotel, vocab models.Vocabulary) (*Batch, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(Headers)

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyFile
	}
	if err != nil {
		if errors.Is(err, csv.ErrFieldCount) {
			return nil, ErrInvalidColumns
		}
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	columns, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	batch := &Batch{}
	var rowErrs []RowError
	for index := 1; ; index++ {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row %d: %w", index, err)
		}
		values := make(map[string]string, len(Headers))
		for name, i := range columns {
			values[name] = strings.TrimSpace(fields[i])
		}
		rec, bad := parseRow(values, h, vocab)
		if len(bad) > 0 {
			rowErrs = append(rowErrs, RowError{Index: index, Fields: bad, Values: values})
			continue
		}
		batch.Rows = append(batch.Rows, Row{Index: index, Record: rec})
	}
	if len(rowErrs) > 0 {
		return nil, &ParseError{Rows: rowErrs}
	}
	if len(batch.Rows) == 0 {
		return nil, ErrEmptyFile
	}
	return batch, nil
}

func mapColumns(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		name = strings.TrimSpace(name)
		if !slices.Contains(Headers, name) {
			return nil, fmt.Errorf("%w: unexpected column %q", ErrInvalidColumns, name)
		}
		if _, dup := columns[name]; dup {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrInvalidColumns, name)
		}
		columns[name] = i
	}
	if len(columns) != len(Headers) {
		return nil, ErrInvalidColumns
	}
	return columns, nil
}

func parseRow(values map[string]string, h *models.Hotel, vocab models.Vocabulary) (*models.UsageRecord, []string) {
	var bad []string
	rec := &models.UsageRecord{}
	rec.SetHotel(h)

	date, err := calendar.ParseImport(values[models.FieldDate])
	if err != nil {
		bad = append(bad, models.FieldDate)
	} else {
		rec.SetDate(date)
	}
	timing, err := slot.ParseTiming(values[models.FieldTiming])
	if err != nil {
		bad = append(bad, models.FieldTiming)
	}
	rec.Timing = timing

	if strings.EqualFold(values[models.FieldNoEvent], NoEventSentinel) {
		rec.NoEvent = true
		return rec, bad
	}

	rec.Client = values[models.FieldClient]
	if rec.Client == "" {
		bad = append(bad, models.FieldClient)
	}
	if timing.Valid() {
		meals, ok := vocab.ParseMeal(timing, values[models.FieldMeal])
		if !ok {
			bad = append(bad, models.FieldMeal)
		}
		rec.Meals = meals
	}
	rec.EventType = values[models.FieldEventType]
	if !vocab.IsEventType(rec.EventType) {
		bad = append(bad, models.FieldEventType)
	}
	rec.Ballrooms = splitList(values[models.FieldBallroom])
	if len(rec.Ballrooms) == 0 || h.CheckBallrooms(rec.Ballrooms) != nil {
		bad = append(bad, models.FieldBallroom)
	}
	rec.EventDescription = values[models.FieldDescription]
	return rec, bad
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" && !slices.Contains(out, part) {
			out = append(out, part)
		}
	}
	return out
}
