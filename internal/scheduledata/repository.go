// Package scheduledata provides persistent caching of resolved tax schedules.
// Schedules are stored as JSON blobs with expiration timestamps so a restart
// does not force a refetch of still-fresh rate data. It sits behind the
// in-memory cache as a second level; its failures are never fatal to a
// resolution.
package scheduledata

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/PeterM45/tax-engine/internal/domain"
)

// Schema creates the schedules table. Applied by EnsureSchema on startup and
// by tests against in-memory databases.
const Schema = `
CREATE TABLE IF NOT EXISTS schedules (
	cache_key  TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_schedules_expires ON schedules(expires_at);
`

// EnsureSchema applies the schedules schema.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(Schema); err != nil {
		return fmt.Errorf("failed to apply schedules schema: %w", err)
	}
	return nil
}

// bracketRecord is the stored form of a bracket. Decimal fields marshal as
// JSON strings, preserving exactness across the round trip.
type bracketRecord struct {
	LowerBound decimal.Decimal  `json:"lower_bound"`
	UpperBound *decimal.Decimal `json:"upper_bound,omitempty"`
	Rate       decimal.Decimal  `json:"rate"`
}

type scheduleRecord struct {
	TaxYear  int             `json:"tax_year"`
	Brackets []bracketRecord `json:"brackets"`
}

func toRecord(schedule domain.TaxSchedule) scheduleRecord {
	rec := scheduleRecord{TaxYear: schedule.TaxYear, Brackets: make([]bracketRecord, 0, len(schedule.Brackets))}
	for _, b := range schedule.Brackets {
		rec.Brackets = append(rec.Brackets, bracketRecord{
			LowerBound: b.LowerBound,
			UpperBound: b.UpperBound,
			Rate:       b.Rate,
		})
	}
	return rec
}

func fromRecord(rec scheduleRecord) domain.TaxSchedule {
	brackets := make([]domain.TaxBracket, 0, len(rec.Brackets))
	for _, b := range rec.Brackets {
		brackets = append(brackets, domain.TaxBracket{
			LowerBound: b.LowerBound,
			UpperBound: b.UpperBound,
			Rate:       b.Rate,
		})
	}
	return domain.NewTaxSchedule(rec.TaxYear, brackets)
}

// Repository provides cache operations for persisted schedules.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a schedule data repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Store saves a schedule with expiration = now + ttl, upserting any existing
// row for the same key.
func (r *Repository) Store(key domain.ScheduleKey, schedule domain.TaxSchedule, ttl time.Duration) error {
	jsonData, err := json.Marshal(toRecord(schedule))
	if err != nil {
		return fmt.Errorf("failed to marshal schedule: %w", err)
	}

	expiresAt := time.Now().Add(ttl).Unix()

	_, err = r.db.Exec(
		"INSERT OR REPLACE INTO schedules (cache_key, data, expires_at) VALUES (?, ?, ?)",
		key.String(), string(jsonData), expiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store schedule %s: %w", key, err)
	}

	return nil
}

// GetIfFresh returns the schedule only if expires_at > now. Returns nil, nil
// if the key doesn't exist or the row is expired.
func (r *Repository) GetIfFresh(key domain.ScheduleKey) (*domain.TaxSchedule, error) {
	return r.get(key, true)
}

// Get returns the schedule regardless of expiration status. Use this as a
// fallback when fetches fail - stale data is better than no data. Returns
// nil, nil if the key doesn't exist.
func (r *Repository) Get(key domain.ScheduleKey) (*domain.TaxSchedule, error) {
	return r.get(key, false)
}

func (r *Repository) get(key domain.ScheduleKey, freshOnly bool) (*domain.TaxSchedule, error) {
	query := "SELECT data FROM schedules WHERE cache_key = ?"
	args := []interface{}{key.String()}
	if freshOnly {
		query += " AND expires_at > ?"
		args = append(args, time.Now().Unix())
	}

	var data string
	err := r.db.QueryRow(query, args...).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule %s: %w", key, err)
	}

	var rec scheduleRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schedule %s: %w", key, err)
	}

	schedule := fromRecord(rec)
	return &schedule, nil
}

// Delete removes a specific entry.
func (r *Repository) Delete(key domain.ScheduleKey) error {
	if _, err := r.db.Exec("DELETE FROM schedules WHERE cache_key = ?", key.String()); err != nil {
		return fmt.Errorf("failed to delete schedule %s: %w", key, err)
	}
	return nil
}

// DeleteExpired removes all rows where expires_at < now and returns the
// number of rows deleted.
func (r *Repository) DeleteExpired() (int64, error) {
	result, err := r.db.Exec("DELETE FROM schedules WHERE expires_at < ?", time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired schedules: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return deleted, nil
}
