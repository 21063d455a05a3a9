package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"WorkshopScheduler/internal/domain"
	"WorkshopScheduler/internal/ports"
)

const proposalsTable = "schedule_proposals"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresProposalStore persists proposals as one row per target date.
type PostgresProposalStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ ports.ProposalStore = (*PostgresProposalStore)(nil)

// NewPostgresProposalStore wires a sql.DB implementation.
func NewPostgresProposalStore(db *sql.DB, opts ...StoreOption) *PostgresProposalStore {
	o := buildOptions(opts)
	return &PostgresProposalStore{db: db, now: o.now}
}

// Save upserts the proposal row and resets its approval state.
func (r *PostgresProposalStore) Save(ctx context.Context, p domain.ScheduleProposal) error {
	p = prepareForSave(p, r.now())

	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode proposal: %w", err)
	}

	query, args, err := psql.Insert(proposalsTable).
		Columns("target_date", "id", "payload", "approved", "approved_at", "created_at").
		Values(p.DateKey(), p.ID, payload, false, nil, p.CreatedAt).
		Suffix(`ON CONFLICT (target_date) DO UPDATE
              SET id = EXCLUDED.id,
                  payload = EXCLUDED.payload,
                  approved = false,
                  approved_at = NULL,
                  created_at = EXCLUDED.created_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return domain.Upstream("postgres", fmt.Errorf("upsert proposal: %w", err))
	}
	return nil
}

// Load reads the proposal row for date.
func (r *PostgresProposalStore) Load(ctx context.Context, date time.Time) (domain.ScheduleProposal, error) {
	query, args, err := psql.Select("payload", "approved", "approved_at").
		From(proposalsTable).
		Where(sq.Eq{"target_date": domain.DateKey(date)}).
		ToSql()
	if err != nil {
		return domain.ScheduleProposal{}, fmt.Errorf("build select: %w", err)
	}

	return r.scanOne(r.db.QueryRowContext(ctx, query, args...))
}

// MarkApproved flips the flag in a single statement conditioned on the proposal id.
func (r *PostgresProposalStore) MarkApproved(ctx context.Context, date time.Time, proposalID string) (domain.ScheduleProposal, error) {
	approvedAt := r.now().UTC()

	query, args, err := psql.Update(proposalsTable).
		Set("approved", true).
		Set("approved_at", approvedAt).
		Where(sq.And{
			sq.Eq{"target_date": domain.DateKey(date)},
			sq.Eq{"id": proposalID},
			sq.Eq{"approved": false},
		}).
		Suffix("RETURNING payload, approved, approved_at").
		ToSql()
	if err != nil {
		return domain.ScheduleProposal{}, fmt.Errorf("build update: %w", err)
	}

	p, err := r.scanOne(r.db.QueryRowContext(ctx, query, args...))
	if !errors.Is(err, domain.ErrNotFound) {
		return p, err
	}

	// No row changed: the date is unknown, was replaced, or was approved before.
	current, loadErr := r.Load(ctx, date)
	if loadErr != nil {
		return domain.ScheduleProposal{}, loadErr
	}
	if current.ID != proposalID || !current.Approved {
		return domain.ScheduleProposal{}, domain.ErrNotFound
	}
	return current, domain.ErrAlreadyApproved
}

func (r *PostgresProposalStore) scanOne(row *sql.Row) (domain.ScheduleProposal, error) {
	var (
		payload    []byte
		approved   bool
		approvedAt sql.NullTime
	)
	if err := row.Scan(&payload, &approved, &approvedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ScheduleProposal{}, domain.ErrNotFound
		}
		return domain.ScheduleProposal{}, domain.Upstream("postgres", fmt.Errorf("scan proposal: %w", err))
	}

	var p domain.ScheduleProposal
	if err := json.Unmarshal(payload, &p); err != nil {
		return domain.ScheduleProposal{}, fmt.Errorf("decode proposal: %w", err)
	}

	p.Approved = approved
	p.ApprovedAt = nil
	if approvedAt.Valid {
		at := approvedAt.Time.UTC()
		p.ApprovedAt = &at
	}
	return p, nil
}
