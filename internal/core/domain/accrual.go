package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccrualOutcome is what happened to one account in an accrual run.
type AccrualOutcome string

const (
	AccrualPosted         AccrualOutcome = "ACCRUED"
	AccrualSkippedZero    AccrualOutcome = "SKIPPED_ZERO"
	AccrualIneligible     AccrualOutcome = "INELIGIBLE"
	AccrualAlreadyApplied AccrualOutcome = "ALREADY_APPLIED"
	AccrualFailed         AccrualOutcome = "FAILED"
)

// AccrualResult is the per-account line of a run report. Days counts the
// dates accrued, more than one when the account was catching up.
type AccrualResult struct {
	AccountID string          `json:"accountID"`
	Outcome   AccrualOutcome  `json:"outcome"`
	Days      int             `json:"days"`
	Interest  decimal.Decimal `json:"interest"`
	Error     string          `json:"error,omitempty"`
}

// AccrualRun records one pass of the daily accrual for a calendar date.
type AccrualRun struct {
	RunID          string          `json:"runID"`
	AccrualDate    time.Time       `json:"accrualDate"`
	StartedAt      time.Time       `json:"startedAt"`
	FinishedAt     time.Time       `json:"finishedAt"`
	Eligible       int             `json:"eligible"`
	Accrued        int             `json:"accrued"`
	Skipped        int             `json:"skipped"`
	AlreadyApplied int             `json:"alreadyApplied"`
	Failed         int             `json:"failed"`
	TotalInterest  decimal.Decimal `json:"totalInterest"`
	Cancelled      bool            `json:"cancelled"`
	Results        []AccrualResult `json:"results,omitempty"`
}

// Succeeded reports whether every eligible account was handled.
func (r AccrualRun) Succeeded() bool {
	return r.Failed == 0 && !r.Cancelled
}

// Completed reports whether the run went through every candidate. Accounts
// that failed catch up on a later run.
func (r AccrualRun) Completed() bool {
	return !r.Cancelled
}

// Record folds one account result into the run totals.
func (r *AccrualRun) Record(res AccrualResult) {
	r.TotalInterest = r.TotalInterest.Add(res.Interest)
	switch res.Outcome {
	case AccrualPosted:
		r.Accrued++
	case AccrualSkippedZero, AccrualIneligible:
		r.Skipped++
	case AccrualAlreadyApplied:
		r.AlreadyApplied++
	case AccrualFailed:
		r.Failed++
	}
	r.Results = append(r.Results, res)
}
