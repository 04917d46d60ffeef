package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/bahi_khata/internal/core/domain"
)

// AccrualRunRepository stores the history of accrual runs.
type AccrualRunRepository interface {
	// SaveAccrualRun persists a finished run. Per-account results are not stored.
	SaveAccrualRun(ctx context.Context, run domain.AccrualRun) error

	// FindLastCompletedRunDate returns the latest accrual date of a run that
	// was not cancelled, or nil when there is none. Runs with failed accounts
	// still complete their date.
	FindLastCompletedRunDate(ctx context.Context) (*time.Time, error)

	// ListAccrualRuns returns the most recent runs, newest first.
	ListAccrualRuns(ctx context.Context, limit int) ([]domain.AccrualRun, error)
}
