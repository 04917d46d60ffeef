package pgsql

import (
	"context"
	"fmt"
	"time"

	"github.com/SscSPs/bahi_khata/internal/core/domain"
	portsrepo "github.com/SscSPs/bahi_khata/internal/core/ports/repositories"
	"github.com/SscSPs/bahi_khata/internal/models"
	"github.com/SscSPs/bahi_khata/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxAccrualRunRepository struct {
	BaseRepository
}

func newPgxAccrualRunRepository(pool *pgxpool.Pool) *PgxAccrualRunRepository {
	return &PgxAccrualRunRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.AccrualRunRepository = (*PgxAccrualRunRepository)(nil)

// SaveAccrualRun inserts a finished run summary.
func (r *PgxAccrualRunRepository) SaveAccrualRun(ctx context.Context, run domain.AccrualRun) error {
	m := mapping.ToModelAccrualRun(run)
	query := `
		INSERT INTO accrual_runs (run_id, accrual_date, started_at, finished_at, eligible, accrued, skipped, already_applied, failed, total_interest, cancelled)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);`
	_, err := r.Pool.Exec(ctx, query,
		m.RunID, m.AccrualDate, m.StartedAt, m.FinishedAt,
		m.Eligible, m.Accrued, m.Skipped, m.AlreadyApplied, m.Failed,
		m.TotalInterest, m.Cancelled,
	)
	if err != nil {
		return fmt.Errorf("failed to save accrual run %s: %w", m.RunID, err)
	}
	return nil
}

// FindLastCompletedRunDate returns the latest date whose run was not cancelled.
func (r *PgxAccrualRunRepository) FindLastCompletedRunDate(ctx context.Context) (*time.Time, error) {
	query := `SELECT MAX(accrual_date) FROM accrual_runs WHERE cancelled = FALSE;`
	var last *time.Time
	if err := r.Pool.QueryRow(ctx, query).Scan(&last); err != nil {
		return nil, fmt.Errorf("failed to find last completed accrual run: %w", err)
	}
	if last == nil {
		return nil, nil
	}
	d := domain.CalendarDate(*last, time.UTC)
	return &d, nil
}

// ListAccrualRuns returns the latest runs, newest first.
func (r *PgxAccrualRunRepository) ListAccrualRuns(ctx context.Context, limit int) ([]domain.AccrualRun, error) {
	query := `
		SELECT run_id, accrual_date, started_at, finished_at, eligible, accrued, skipped, already_applied, failed, total_interest, cancelled
		FROM accrual_runs
		ORDER BY started_at DESC
		LIMIT $1;`
	rows, err := r.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list accrual runs: %w", err)
	}
	ms, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.AccrualRun])
	if err != nil {
		return nil, fmt.Errorf("failed to collect accrual runs: %w", err)
	}
	out := make([]domain.AccrualRun, len(ms))
	for i, m := range ms {
		out[i] = mapping.ToDomainAccrualRun(m)
	}
	return out, nil
}
