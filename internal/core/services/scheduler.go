package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/SscSPs/bahi_khata/internal/core/domain"
	portsrepo "github.com/SscSPs/bahi_khata/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/bahi_khata/internal/core/ports/services"
)

const (
	defaultRetryAfter = 15 * time.Minute
	maxCatchUpDays    = 31
	maxRetries        = 3
)

// AccrualScheduler fires the daily accrual at a fixed wall-clock time in the
// ledger timezone. Each account carries its own backlog, so one run for the
// latest due date also catches up days missed while the service was down.
type AccrualScheduler struct {
	BaseService
	accrual    portssvc.AccrualSvc
	runs       portsrepo.AccrualRunRepository
	loc        *time.Location
	runAt      time.Duration
	retryAfter time.Duration
	now        func() time.Time
	logger     *slog.Logger

	// retryDate is the last date whose run left failed accounts; failedRuns
	// counts those runs.
	retryDate  time.Time
	failedRuns int
}

// NewAccrualScheduler creates a scheduler firing runAt after local midnight in loc.
func NewAccrualScheduler(accrual portssvc.AccrualSvc, runs portsrepo.AccrualRunRepository, loc *time.Location, runAt time.Duration, logger *slog.Logger) *AccrualScheduler {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AccrualScheduler{
		accrual:    accrual,
		runs:       runs,
		loc:        loc,
		runAt:      runAt,
		retryAfter: defaultRetryAfter,
		now:        time.Now,
		logger:     logger.With(slog.String("component", "accrual_scheduler")),
	}
}

// runInstant is the firing instant on the local calendar day of t.
func (s *AccrualScheduler) runInstant(t time.Time) time.Time {
	local := t.In(s.loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	return midnight.Add(s.runAt)
}

// NextRun returns the first firing instant strictly after now.
func (s *AccrualScheduler) NextRun(now time.Time) time.Time {
	next := s.runInstant(now)
	if !next.After(now) {
		local := now.In(s.loc)
		tomorrow := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, s.loc)
		next = tomorrow.Add(s.runAt)
	}
	return next
}

// latestDue is the most recent calendar date whose run instant has passed.
func (s *AccrualScheduler) latestDue(now time.Time) time.Time {
	today := domain.CalendarDate(now, s.loc)
	if now.Before(s.runInstant(now)) {
		return today.AddDate(0, 0, -1)
	}
	return today
}

// DueDate returns the accrual date that should run now, if any. A date is
// due once its run instant has passed and no completed run covers it, and
// again while its last run left failed accounts and retries remain.
func (s *AccrualScheduler) DueDate(ctx context.Context, now time.Time) (time.Time, bool, error) {
	latest := s.latestDue(now)
	last, err := s.runs.FindLastCompletedRunDate(ctx)
	if err != nil {
		return time.Time{}, false, err
	}
	if last == nil {
		return latest, true, nil
	}

	done := domain.CalendarDate(*last, time.UTC)
	if done.Before(latest) {
		if gap := domain.DaysBetween(done, latest); gap > maxCatchUpDays {
			s.logger.Warn("Accrual backlog exceeds catch-up window, oldest dates need a manual run",
				slog.String("last_completed", done.Format("2006-01-02")),
				slog.Int("days_behind", gap))
		}
		return latest, true, nil
	}
	if s.failedRuns > 0 && s.failedRuns <= maxRetries && s.retryDate.Equal(latest) {
		return latest, true, nil
	}
	return time.Time{}, false, nil
}

// CatchUp runs the due date, if any. Accounts that fail are retried a few
// times and otherwise wait for the next day's run; they never hold back the
// others. It reports whether nothing is left to retry.
func (s *AccrualScheduler) CatchUp(ctx context.Context) bool {
	date, due, err := s.DueDate(ctx, s.now())
	if err != nil {
		s.logger.Error("Failed to determine accrual backlog", slog.String("error", err.Error()))
		return false
	}
	if !due || ctx.Err() != nil {
		return !due
	}

	logDate := slog.String("accrual_date", date.Format("2006-01-02"))
	run, err := s.accrual.RunDailyAccrual(ctx, time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, s.loc))
	if err != nil {
		s.logger.Error("Accrual run failed", logDate, slog.String("error", err.Error()))
		return false
	}
	if run.Cancelled {
		s.logger.Warn("Accrual run cancelled", logDate)
		return false
	}
	if run.Failed == 0 {
		s.failedRuns = 0
		return true
	}

	if !s.retryDate.Equal(date) {
		s.retryDate, s.failedRuns = date, 0
	}
	s.failedRuns++
	if s.failedRuns > maxRetries {
		s.logger.Warn("Accounts still failing, leaving them to the next run", logDate, slog.Int("failed", run.Failed))
		return true
	}
	s.logger.Warn("Accrual run left failed accounts, will retry", logDate,
		slog.Int("failed", run.Failed),
		slog.Int("attempt", s.failedRuns))
	return false
}

// Run blocks until ctx is done, catching up at start and then once per day.
func (s *AccrualScheduler) Run(ctx context.Context) {
	s.logger.Info("Accrual scheduler started", slog.String("timezone", s.loc.String()), slog.Duration("run_at", s.runAt))
	for {
		upToDate := s.CatchUp(ctx)

		now := s.now()
		wait := s.NextRun(now).Sub(now)
		if !upToDate && s.retryAfter < wait {
			wait = s.retryAfter
		}
		s.logger.Debug("Next accrual check scheduled", slog.Duration("in", wait))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("Accrual scheduler stopped")
			return
		case <-timer.C:
		}
	}
}
