package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SscSPs/bahi_khata/internal/apperrors"
	"github.com/SscSPs/bahi_khata/internal/core/domain"
	portsrepo "github.com/SscSPs/bahi_khata/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/bahi_khata/internal/core/ports/services"
	"github.com/SscSPs/bahi_khata/internal/utils/accounting"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const accrualUser = "system:accrual"

// errNotEligible marks an account that stopped being eligible between the
// candidate scan and the locked re-check.
var errNotEligible = errors.New("account no longer eligible")

type accrualService struct {
	*accountWriter
	runs portsrepo.AccrualRunRepository
}

// NewAccrualService creates the daily interest engine. It must share its
// locker with the ledger service writing to the same store.
func NewAccrualService(accounts portsrepo.AccountRepositoryFacade, ledger portsrepo.LedgerRepositoryFacade, runs portsrepo.AccrualRunRepository, options ...ServiceOption) portssvc.AccrualSvc {
	return &accrualService{accountWriter: newAccountWriter(accounts, ledger, options...), runs: runs}
}

var _ portssvc.AccrualSvc = (*accrualService)(nil)

// RunDailyAccrual accrues every eligible account up to the calendar date of
// asOf in the reference timezone. Accounts behind by more than one day catch
// up their own backlog, one posting per day.
func (s *accrualService) RunDailyAccrual(ctx context.Context, asOf time.Time) (*domain.AccrualRun, error) {
	date := domain.CalendarDate(asOf, s.loc)
	logger := s.GetLogger(ctx).With(slog.String("accrual_date", date.Format("2006-01-02")))
	if today := s.today(); date.After(today) {
		logger.Warn("Refusing accrual for a future date", slog.String("today", today.Format("2006-01-02")))
		return nil, fmt.Errorf("%w: accrual date %s is after today %s", apperrors.ErrValidation, date.Format("2006-01-02"), today.Format("2006-01-02"))
	}

	candidates, err := s.accounts.ListAccrualCandidates(ctx, date)
	if err != nil {
		logger.Error("Failed to list accrual candidates", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list accrual candidates: %w", err)
	}

	run := &domain.AccrualRun{
		RunID:         s.newID(),
		AccrualDate:   date,
		StartedAt:     s.now(),
		Eligible:      len(candidates),
		TotalInterest: decimal.Zero,
	}
	logger.Info("Accrual run started", slog.String("run_id", run.RunID), slog.Int("eligible", run.Eligible))

	var (
		mu      sync.Mutex
		results = make([]domain.AccrualResult, 0, len(candidates))
	)
	g := new(errgroup.Group)
	g.SetLimit(s.workers)
	for _, accountID := range candidates {
		if ctx.Err() != nil {
			run.Cancelled = true
			break
		}
		accountID := accountID
		g.Go(func() error {
			// A started unit finishes even if the run is cancelled.
			res := s.accrueAccount(context.WithoutCancel(ctx), accountID, date)
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range results {
		run.Record(res)
	}
	run.FinishedAt = s.now()

	if err := s.runs.SaveAccrualRun(context.WithoutCancel(ctx), *run); err != nil {
		logger.Error("Failed to record accrual run", slog.String("run_id", run.RunID), slog.String("error", err.Error()))
		return run, fmt.Errorf("failed to record accrual run: %w", err)
	}

	logger.Info("Accrual run finished",
		slog.String("run_id", run.RunID),
		slog.Int("accrued", run.Accrued),
		slog.Int("skipped", run.Skipped),
		slog.Int("already_applied", run.AlreadyApplied),
		slog.Int("failed", run.Failed),
		slog.Bool("cancelled", run.Cancelled),
		slog.String("total_interest", run.TotalInterest.StringFixed(2)))
	return run, nil
}

// accrueAccount posts the days of interest an account owes up to date, one
// transaction per day. Errors are folded into the result; nothing here stops
// the rest of the run.
func (s *accrualService) accrueAccount(ctx context.Context, accountID string, date time.Time) domain.AccrualResult {
	res := domain.AccrualResult{AccountID: accountID, Interest: decimal.Zero}

	var err error
	for {
		var (
			day      time.Time
			interest decimal.Decimal
		)
		_, _, err = s.mutate(ctx, "accrue interest", "", accountID, accrualUser, decimal.Zero, func(acc *domain.Account, now time.Time) (*domain.Transaction, error) {
			next, ok := acc.NextAccrualDate(date, maxCatchUpDays)
			if !ok {
				return nil, errNotEligible
			}
			day = next
			acc.LastAccrualDate = &day
			interest = accounting.DailyInterest(acc.OutstandingPrincipal)
			if interest.IsZero() {
				return nil, nil
			}
			txn := &domain.Transaction{
				TransactionID: s.newID(),
				Type:          domain.TxnInterestApplied,
				Amount:        interest,
				Notes:         fmt.Sprintf("daily interest on %s", acc.OutstandingPrincipal.StringFixed(2)),
				AccrualDate:   &day,
			}
			txn.AddPair(domain.BucketInterest, domain.BucketInterestIncome, interest)
			return txn, nil
		})
		if err != nil {
			break
		}
		res.Days++
		res.Interest = res.Interest.Add(interest)
		if !day.Before(date) {
			break
		}
	}
	if res.Days > 0 && errors.Is(err, errNotEligible) {
		err = nil
	}

	switch {
	case err == nil && res.Interest.IsZero():
		res.Outcome = domain.AccrualSkippedZero
	case err == nil:
		res.Outcome = domain.AccrualPosted
	case errors.Is(err, apperrors.ErrAccrualAlreadyApplied):
		res.Outcome = domain.AccrualAlreadyApplied
	case errors.Is(err, errNotEligible), errors.Is(err, apperrors.ErrAccountClosed), errors.Is(err, apperrors.ErrAccountNotFound):
		res.Outcome = domain.AccrualIneligible
	case errors.Is(err, apperrors.ErrLedgerCorrupted):
		res.Outcome = domain.AccrualIneligible
		res.Error = err.Error()
		s.LogWarn(ctx, "Skipping accrual on account awaiting reconciliation", slog.String("account_id", accountID))
	default:
		res.Outcome = domain.AccrualFailed
		res.Error = err.Error()
		s.LogError(ctx, err, "Accrual failed for account", slog.String("account_id", accountID), slog.Int("days_posted", res.Days))
	}
	return res
}

func (s *accrualService) ListAccrualRuns(ctx context.Context, limit int) ([]domain.AccrualRun, error) {
	if limit <= 0 {
		limit = 30
	}
	return s.runs.ListAccrualRuns(ctx, limit)
}
