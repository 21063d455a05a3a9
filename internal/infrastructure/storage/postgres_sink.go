package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"WorkshopScheduler/internal/domain"
	"WorkshopScheduler/internal/ports"
)

const entriesTable = "schedule_entries"

// PostgresSink commits approved schedule rows into schedule_entries.
type PostgresSink struct {
	db *sql.DB
}

var _ ports.ScheduleSink = (*PostgresSink)(nil)

// NewPostgresSink wires a sql.DB implementation.
func NewPostgresSink(db *sql.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

// InsertBatch writes all records in one transaction; a retry of the same batch overwrites in place.
func (s *PostgresSink) InsertBatch(ctx context.Context, records []domain.ScheduleRecord) error {
	if len(records) == 0 {
		return nil
	}

	builder := psql.Insert(entriesTable).
		Columns("entry_date", "resource", "slot", "card_id", "reference_code", "category")
	for _, rec := range records {
		builder = builder.Values(rec.Date, rec.Resource, rec.Slot, rec.CardID, rec.ReferenceCode, rec.Category)
	}

	query, args, err := builder.
		Suffix(`ON CONFLICT (entry_date, resource, slot) DO UPDATE
              SET card_id = EXCLUDED.card_id,
                  reference_code = EXCLUDED.reference_code,
                  category = EXCLUDED.category,
                  updated_at = NOW()`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Upstream("postgres", fmt.Errorf("begin tx: %w", err))
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		_ = tx.Rollback()
		return domain.Upstream("postgres", describePQ("insert schedule entries", err))
	}

	if err := tx.Commit(); err != nil {
		return domain.Upstream("postgres", fmt.Errorf("commit: %w", err))
	}
	return nil
}

// describePQ adds the Postgres condition name to driver errors.
func describePQ(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fmt.Errorf("%s (%s): %w", op, pqErr.Code.Name(), err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// EnsureSchema creates the proposal and entry tables when missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return domain.Upstream("postgres", describePQ("ensure schema", err))
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS schedule_proposals (
        target_date DATE PRIMARY KEY,
        id          TEXT NOT NULL,
        payload     JSONB NOT NULL,
        approved    BOOLEAN NOT NULL DEFAULT false,
        approved_at TIMESTAMPTZ,
        created_at  TIMESTAMPTZ NOT NULL
    )`,
	`CREATE TABLE IF NOT EXISTS schedule_entries (
        entry_date     DATE NOT NULL,
        resource       TEXT NOT NULL,
        slot           TEXT NOT NULL,
        card_id        TEXT NOT NULL DEFAULT '',
        reference_code TEXT NOT NULL,
        category       TEXT NOT NULL,
        updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        PRIMARY KEY (entry_date, resource, slot)
    )`,
}
