package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccrualRun is a row of accrual_runs.
type AccrualRun struct {
	RunID          string          `db:"run_id"`
	AccrualDate    time.Time       `db:"accrual_date"`
	StartedAt      time.Time       `db:"started_at"`
	FinishedAt     time.Time       `db:"finished_at"`
	Eligible       int             `db:"eligible"`
	Accrued        int             `db:"accrued"`
	Skipped        int             `db:"skipped"`
	AlreadyApplied int             `db:"already_applied"`
	Failed         int             `db:"failed"`
	TotalInterest  decimal.Decimal `db:"total_interest"`
	Cancelled      bool            `db:"cancelled"`
}
