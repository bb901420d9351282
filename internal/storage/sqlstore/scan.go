package sqlstore

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/julianstephens/banquet/internal/calendar"
	"github.com/julianstephens/banquet/internal/constants"
)

// The SQLite driver returns TEXT and INTEGER columns where PostgreSQL returns
// DATE, TIMESTAMPTZ, BOOLEAN and JSONB values. These scanners accept both.

type dateValue struct{ t *time.Time }

func (d dateValue) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d.t = time.Time{}
	case time.Time:
		*d.t = calendar.Truncate(v)
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	default:
		return fmt.Errorf("cannot scan %T into date", src)
	}
	return nil
}

func (d dateValue) parse(s string) error {
	if s == "" {
		*d.t = time.Time{}
		return nil
	}
	if len(s) > len(constants.DateFormat) {
		s = s[:len(constants.DateFormat)]
	}
	t, err := calendar.ParseDB(s)
	if err != nil {
		return err
	}
	*d.t = t
	return nil
}

type timestampValue struct{ t *time.Time }

func (ts timestampValue) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*ts.t = time.Time{}
	case time.Time:
		*ts.t = v.UTC()
	case string:
		return ts.parse(v)
	case []byte:
		return ts.parse(string(v))
	default:
		return fmt.Errorf("cannot scan %T into timestamp", src)
	}
	return nil
}

func (ts timestampValue) parse(s string) error {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	*ts.t = t.UTC()
	return nil
}

type boolValue struct{ b *bool }

func (bv boolValue) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*bv.b = false
	case bool:
		*bv.b = v
	case int64:
		*bv.b = v != 0
	default:
		return fmt.Errorf("cannot scan %T into bool", src)
	}
	return nil
}

// jsonValue scans a JSON text or JSONB column into dst.
type jsonValue struct{ dst any }

func (j jsonValue) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("cannot scan %T into json", src)
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, j.dst)
}

func jsonArg(v any) (driver.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func dateArg(t time.Time) driver.Value {
	if t.IsZero() {
		return nil
	}
	return calendar.FormatDB(t)
}

func timestampArg(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
