// Package sqlstore implements storage.Provider's data methods over database/sql,
// shared by the SQLite and PostgreSQL backends.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/julianstephens/banquet/internal/entry"
	"github.com/julianstephens/banquet/internal/models"
	"github.com/julianstephens/banquet/internal/slot"
	"github.com/julianstephens/banquet/internal/storage"
)

// Dialect captures what differs between the SQL backends.
type Dialect struct {
	Name string
	// Dollar placeholders ($1, $2, ...) instead of '?'.
	Dollar bool
	// IsUniqueViolation reports whether err is a unique constraint failure.
	IsUniqueViolation func(error) bool
}

type Store struct {
	db      *sql.DB
	dialect Dialect
}

func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

func (s *Store) DB() *sql.DB {
	return s.db
}

// Rebind rewrites '?' placeholders for the dialect.
func (s *Store) Rebind(query string) string {
	if !s.dialect.Dollar {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) unique(err error) bool {
	return err != nil && s.dialect.IsUniqueViolation != nil && s.dialect.IsUniqueViolation(err)
}

const hotelColumns = `id, name, city, initial, email, competitions, ballrooms,
	contract_start, contract_end, last_entry_date, last_entry_timing, version, created_at, updated_at`

const recordColumns = `id, hotel_id, hotel, city, date, timing, client, event_type, meals, ballrooms,
	event_description, no_event, day, weekday, month, created_at, updated_at`

const recordOrder = ` ORDER BY date, CASE timing WHEN 'Morning' THEN 0 ELSE 1 END, client`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHotel(row rowScanner) (*models.Hotel, error) {
	var (
		h          models.Hotel
		lastDate   time.Time
		lastTiming string
	)
	err := row.Scan(
		&h.ID, &h.Name, &h.City, &h.Initial, &h.Email,
		jsonValue{&h.Competitions}, jsonValue{&h.Ballrooms},
		dateValue{&h.Contract.Start}, dateValue{&h.Contract.End},
		dateValue{&lastDate}, &lastTiming, &h.Version,
		timestampValue{&h.CreatedAt}, timestampValue{&h.UpdatedAt},
	)
	if err != nil {
		return nil, err
	}
	h.Cursor = entry.Restore(lastDate, slot.Timing(lastTiming))
	return &h, nil
}

func scanRecord(row rowScanner) (*models.UsageRecord, error) {
	var (
		r      models.UsageRecord
		timing string
	)
	err := row.Scan(
		&r.ID, &r.HotelID, &r.Hotel, &r.City, dateValue{&r.Date}, &timing,
		&r.Client, &r.EventType, jsonValue{&r.Meals}, jsonValue{&r.Ballrooms},
		&r.EventDescription, boolValue{&r.NoEvent}, &r.Day, boolValue{&r.Weekday}, &r.Month,
		timestampValue{&r.CreatedAt}, timestampValue{&r.UpdatedAt},
	)
	if err != nil {
		return nil, err
	}
	r.Timing = slot.Timing(timing)
	return &r, nil
}

func hotelArgs(h *models.Hotel) ([]any, error) {
	competitions := h.Competitions
	if competitions == nil {
		competitions = []string{}
	}
	comp, err := jsonArg(competitions)
	if err != nil {
		return nil, err
	}
	rooms, err := jsonArg(h.Ballrooms)
	if err != nil {
		return nil, err
	}
	return []any{
		h.Name, h.City, h.Initial, h.Email, comp, rooms,
		dateArg(h.Contract.Start), dateArg(h.Contract.End),
		dateArg(h.Cursor.Date()), string(h.Cursor.Timing()),
	}, nil
}

func recordArgs(r *models.UsageRecord) ([]any, error) {
	meals, err := jsonArg(nonNil(r.Meals))
	if err != nil {
		return nil, err
	}
	rooms, err := jsonArg(nonNil(r.Ballrooms))
	if err != nil {
		return nil, err
	}
	return []any{
		r.HotelID, r.Hotel, r.City, dateArg(r.Date), string(r.Timing),
		r.Client, r.EventType, meals, rooms, r.EventDescription,
		r.NoEvent, r.Day, r.Weekday, r.Month,
	}, nil
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func (s *Store) AddHotel(ctx context.Context, h *models.Hotel) error {
	args, err := hotelArgs(h)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	query := s.Rebind(`INSERT INTO hotels (` + hotelColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	all := append([]any{h.ID}, args...)
	all = append(all, int64(1), timestampArg(now), timestampArg(now))
	if _, err := s.db.ExecContext(ctx, query, all...); err != nil {
		if s.unique(err) {
			return fmt.Errorf("%w: %s", storage.ErrDuplicateHotel, h)
		}
		return fmt.Errorf("failed to add hotel: %w", err)
	}
	h.Version, h.CreatedAt, h.UpdatedAt = 1, now, now
	return nil
}

func (s *Store) GetHotel(ctx context.Context, id string) (*models.Hotel, error) {
	row := s.db.QueryRowContext(ctx, s.Rebind(`SELECT `+hotelColumns+` FROM hotels WHERE id = ?`), id)
	h, err := scanHotel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("hotel %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get hotel: %w", err)
	}
	return h, nil
}

func (s *Store) GetHotelByName(ctx context.Context, city, name string) (*models.Hotel, error) {
	query := s.Rebind(`SELECT ` + hotelColumns + ` FROM hotels
		WHERE lower(city) = lower(?) AND lower(name) = lower(?)`)
	h, err := scanHotel(s.db.QueryRowContext(ctx, query, strings.TrimSpace(city), strings.TrimSpace(name)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("hotel %s (%s): %w", name, city, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get hotel: %w", err)
	}
	return h, nil
}

func (s *Store) GetAllHotels(ctx context.Context) ([]*models.Hotel, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+hotelColumns+` FROM hotels ORDER BY city, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list hotels: %w", err)
	}
	defer rows.Close()

	var hotels []*models.Hotel
	for rows.Next() {
		h, err := scanHotel(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan hotel: %w", err)
		}
		hotels = append(hotels, h)
	}
	return hotels, rows.Err()
}

func (s *Store) GetRecord(ctx context.Context, id string) (*models.UsageRecord, error) {
	row := s.db.QueryRowContext(ctx, s.Rebind(`SELECT `+recordColumns+` FROM usage_records WHERE id = ?`), id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("record %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return r, nil
}

func (s *Store) FindRecords(ctx context.Context, hotelID string, from, to time.Time) ([]*models.UsageRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM usage_records WHERE hotel_id = ?`
	args := []any{hotelID}
	if !from.IsZero() {
		query += ` AND date >= ?`
		args = append(args, dateArg(from))
	}
	if !to.IsZero() {
		query += ` AND date <= ?`
		args = append(args, dateArg(to))
	}
	return s.queryRecords(ctx, query+recordOrder, args...)
}

func (s *Store) LatestRecord(ctx context.Context, hotelID string) (*models.UsageRecord, error) {
	query := s.Rebind(`SELECT ` + recordColumns + ` FROM usage_records WHERE hotel_id = ?
		ORDER BY date DESC, CASE timing WHEN 'Morning' THEN 0 ELSE 1 END DESC, client DESC LIMIT 1`)
	r, err := scanRecord(s.db.QueryRowContext(ctx, query, hotelID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("records of hotel %s: %w", hotelID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest record: %w", err)
	}
	return r, nil
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]*models.UsageRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []*models.UsageRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Commit applies cs in one transaction. The hotel row is updated only while its
// version is unchanged.
func (s *Store) Commit(ctx context.Context, cs storage.Changeset) (err error) {
	if cs.IsEmpty() {
		return nil
	}
	now := time.Now().UTC()
	storage.Stamp(cs, now)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if cs.Hotel != nil {
		if err = s.updateHotel(ctx, tx, cs.Hotel, now); err != nil {
			return err
		}
	}
	for _, id := range cs.Delete {
		if err = s.deleteRecord(ctx, tx, id); err != nil {
			return err
		}
	}
	for _, r := range cs.Update {
		if err = s.updateRecord(ctx, tx, r); err != nil {
			return err
		}
	}
	for _, r := range cs.Create {
		if err = s.insertRecord(ctx, tx, r); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	if cs.Hotel != nil {
		cs.Hotel.Version++
	}
	return nil
}

func (s *Store) updateHotel(ctx context.Context, tx *sql.Tx, h *models.Hotel, now time.Time) error {
	args, err := hotelArgs(h)
	if err != nil {
		return err
	}
	query := s.Rebind(`UPDATE hotels SET name = ?, city = ?, initial = ?, email = ?,
		competitions = ?, ballrooms = ?, contract_start = ?, contract_end = ?,
		last_entry_date = ?, last_entry_timing = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`)
	args = append(args, timestampArg(now), h.ID, h.Version)
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		if s.unique(err) {
			return fmt.Errorf("%w: %s", storage.ErrDuplicateHotel, h)
		}
		return fmt.Errorf("failed to update hotel: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update hotel: %w", err)
	}
	if n == 1 {
		return nil
	}

	var exists int
	err = tx.QueryRowContext(ctx, s.Rebind(`SELECT count(*) FROM hotels WHERE id = ?`), h.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to update hotel: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("hotel %s: %w", h.ID, storage.ErrNotFound)
	}
	return storage.ErrStaleHotel
}

func (s *Store) deleteRecord(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, s.Rebind(`DELETE FROM usage_records WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("record %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) updateRecord(ctx context.Context, tx *sql.Tx, r *models.UsageRecord) error {
	args, err := recordArgs(r)
	if err != nil {
		return err
	}
	query := s.Rebind(`UPDATE usage_records SET hotel_id = ?, hotel = ?, city = ?, date = ?, timing = ?,
		client = ?, event_type = ?, meals = ?, ballrooms = ?, event_description = ?,
		no_event = ?, day = ?, weekday = ?, month = ?, updated_at = ?
		WHERE id = ?`)
	args = append(args, timestampArg(r.UpdatedAt), r.ID)
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		if s.unique(err) {
			return fmt.Errorf("%w: %s", storage.ErrDuplicateRecord, r)
		}
		return fmt.Errorf("failed to update record: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("record %s: %w", r.ID, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) insertRecord(ctx context.Context, tx *sql.Tx, r *models.UsageRecord) error {
	args, err := recordArgs(r)
	if err != nil {
		return err
	}
	query := s.Rebind(`INSERT INTO usage_records (` + recordColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	all := append([]any{r.ID}, args...)
	all = append(all, timestampArg(r.CreatedAt), timestampArg(r.UpdatedAt))
	if _, err := tx.ExecContext(ctx, query, all...); err != nil {
		if s.unique(err) {
			return fmt.Errorf("%w: %s", storage.ErrDuplicateRecord, r)
		}
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}
