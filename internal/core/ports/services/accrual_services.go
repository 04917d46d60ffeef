package services

import (
	"context"
	"time"

	"github.com/SscSPs/bahi_khata/internal/core/domain"
)

// AccrualSvc is the scheduler hook of the interest engine.
type AccrualSvc interface {
	// RunDailyAccrual accrues one day of interest for asOf on every eligible
	// account. Running it again for the same date changes nothing.
	RunDailyAccrual(ctx context.Context, asOf time.Time) (*domain.AccrualRun, error)

	// ListAccrualRuns returns the most recent runs, newest first.
	ListAccrualRuns(ctx context.Context, limit int) ([]domain.AccrualRun, error)
}
