package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/planner-sync-api/internal/models"
)

const calendarSchema = `CREATE TABLE IF NOT EXISTS calendars (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    state JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
)`

type calendarRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	State     []byte    `db:"state"`
	UpdatedAt time.Time `db:"updated_at"`
}

// CalendarPostgresRepository stores calendars as rows with a JSONB state.
type CalendarPostgresRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewCalendarPostgresRepository constructs the repository.
func NewCalendarPostgresRepository(db *sqlx.DB, logger *zap.Logger) *CalendarPostgresRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarPostgresRepository{db: db, logger: logger}
}

// EnsureSchema creates the calendars table when it does not exist.
func (r *CalendarPostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, calendarSchema); err != nil {
		return fmt.Errorf("create calendars table: %w", err)
	}
	return nil
}

// LoadAll returns every stored calendar. Rows whose state cannot be
// decoded are logged and skipped.
func (r *CalendarPostgresRepository) LoadAll(ctx context.Context) ([]models.CalendarRecord, error) {
	const query = `SELECT id, name, state, updated_at FROM calendars ORDER BY id ASC`
	var rows []calendarRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list calendars: %w", err)
	}

	records := make([]models.CalendarRecord, 0, len(rows))
	for _, row := range rows {
		rec := models.CalendarRecord{ID: row.ID, Name: row.Name, UpdatedAt: row.UpdatedAt}
		if err := json.Unmarshal(row.State, &rec.State); err != nil {
			r.logger.Warn("skipping calendar with corrupt state", zap.String("calendar_id", row.ID), zap.Error(err))
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// Put inserts or replaces a calendar row.
func (r *CalendarPostgresRepository) Put(ctx context.Context, record models.CalendarRecord) error {
	const query = `INSERT INTO calendars (id, name, state, updated_at)
VALUES (:id, :name, :state, :updated_at)
ON CONFLICT (id)
DO UPDATE SET name = EXCLUDED.name, state = EXCLUDED.state, updated_at = EXCLUDED.updated_at`
	state, err := json.Marshal(record.State)
	if err != nil {
		return fmt.Errorf("marshal calendar %s: %w", record.ID, err)
	}
	row := calendarRow{ID: record.ID, Name: record.Name, State: state, UpdatedAt: record.UpdatedAt.UTC()}
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("upsert calendar %s: %w", record.ID, err)
	}
	return nil
}

// Delete removes a calendar row.
func (r *CalendarPostgresRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM calendars WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete calendar %s: %w", id, err)
	}
	return nil
}

// Ping verifies the database is reachable.
func (r *CalendarPostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
