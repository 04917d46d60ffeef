package services_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/SscSPs/bahi_khata/internal/apperrors"
	"github.com/SscSPs/bahi_khata/internal/core/domain"
	"github.com/SscSPs/bahi_khata/internal/core/services"
	"github.com/SscSPs/bahi_khata/internal/dto"
	"github.com/SscSPs/bahi_khata/internal/platform/config"
	"github.com/SscSPs/bahi_khata/internal/repositories/memory"
)

var accrualDay = time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		Location:          time.UTC,
		LockWait:          time.Second,
		LockRetries:       1,
		LockBackoff:       10 * time.Millisecond,
		AccrualWorkers:    2,
		OverpaymentPolicy: config.OverpaymentAdvance,
	}
}

// failingLedger fails every posting for one account and can run a hook after
// each successful posting.
type failingLedger struct {
	*memory.Store
	failFor   string
	afterPost func()
}

func (f *failingLedger) PostTransaction(ctx context.Context, txn domain.Transaction, account domain.Account) error {
	if txn.AccountID == f.failFor {
		return errors.New("disk full")
	}
	err := f.Store.PostTransaction(ctx, txn, account)
	if f.afterPost != nil {
		f.afterPost()
	}
	return err
}

func (s *LedgerServiceTestSuite) interestTxns(accountID string) int {
	history, err := s.store.ListAllTransactionsByAccount(s.ctx, accountID)
	s.Require().NoError(err)
	n := 0
	for _, t := range history {
		if t.Type == domain.TxnInterestApplied {
			n++
		}
	}
	return n
}

func (s *LedgerServiceTestSuite) TestAccrualPostsDailyInterest() {
	acc := s.open("c-1")
	s.sale(acc.AccountID, "10000")

	run, err := s.accrual.RunDailyAccrual(s.ctx, accrualDay)
	s.Require().NoError(err)
	s.Equal(1, run.Eligible)
	s.Equal(1, run.Accrued)
	s.True(d("6.67").Equal(run.TotalInterest), "total %s", run.TotalInterest)
	s.True(run.Succeeded())

	after := s.account(acc.AccountID)
	s.True(d("6.67").Equal(after.OutstandingInterest))
	s.Require().NotNil(after.LastAccrualDate)
	s.True(accrualDay.Equal(*after.LastAccrualDate))
	s.assertReplayMatches(acc.AccountID)
}

func (s *LedgerServiceTestSuite) TestAccrualIsIdempotentPerDate() {
	acc := s.open("c-1")
	s.sale(acc.AccountID, "10000")

	_, err := s.accrual.RunDailyAccrual(s.ctx, accrualDay)
	s.Require().NoError(err)
	again, err := s.accrual.RunDailyAccrual(s.ctx, accrualDay)
	s.Require().NoError(err)
	s.Equal(0, again.Accrued)
	s.True(again.Succeeded())
	s.True(d("6.67").Equal(s.account(acc.AccountID).OutstandingInterest))
	s.Equal(1, s.interestTxns(acc.AccountID))

	// Simple interest: the next day accrues on principal only.
	s.clock.Set(s.clock.Now().AddDate(0, 0, 1))
	_, err = s.accrual.RunDailyAccrual(s.ctx, accrualDay.AddDate(0, 0, 1))
	s.Require().NoError(err)
	s.True(d("13.34").Equal(s.account(acc.AccountID).OutstandingInterest))
	s.Equal(2, s.interestTxns(acc.AccountID))
}

func (s *LedgerServiceTestSuite) TestAccrualSkipsFrozenAccounts() {
	acc := s.open("c-1")
	s.sale(acc.AccountID, "10000")
	_, err := s.ledger.SetInterestFreeze(s.ctx, testShop, acc.AccountID, dto.SetInterestFreezeRequest{Freeze: boolPtr(true)}, testUser)
	s.Require().NoError(err)

	run, err := s.accrual.RunDailyAccrual(s.ctx, accrualDay)
	s.Require().NoError(err)
	s.Equal(0, run.Eligible)
	s.True(s.account(acc.AccountID).OutstandingInterest.IsZero())
	s.Equal(0, s.interestTxns(acc.AccountID))
}

func (s *LedgerServiceTestSuite) TestAccrualZeroInterestOnlyAdvancesDate() {
	acc := s.open("c-1")
	s.sale(acc.AccountID, "0.01")

	run, err := s.accrual.RunDailyAccrual(s.ctx, accrualDay)
	s.Require().NoError(err)
	s.Equal(1, run.Skipped)
	s.Require().Len(run.Results, 1)
	s.Equal(domain.AccrualSkippedZero, run.Results[0].Outcome)

	after := s.account(acc.AccountID)
	s.Require().NotNil(after.LastAccrualDate)
	s.True(after.OutstandingInterest.IsZero())
	s.Equal(0, s.interestTxns(acc.AccountID))
}

func (s *LedgerServiceTestSuite) TestAccrualFailureDoesNotBlockOthers() {
	good := s.open("c-1")
	bad := s.open("c-2")
	s.sale(good.AccountID, "10000")
	s.sale(bad.AccountID, "10000")

	ledger := &failingLedger{Store: s.store, failFor: bad.AccountID}
	accrual := services.NewAccrualService(s.store, ledger, s.store, s.options()...)

	run, err := accrual.RunDailyAccrual(s.ctx, accrualDay)
	s.Require().NoError(err)
	s.Equal(1, run.Accrued)
	s.Equal(1, run.Failed)
	s.False(run.Succeeded())

	s.True(accrualDay.Equal(*s.account(good.AccountID).LastAccrualDate))
	s.True(accrualDay.AddDate(0, 0, -1).Equal(*s.account(bad.AccountID).LastAccrualDate))
	s.True(s.account(bad.AccountID).OutstandingInterest.IsZero())

	// The date still completes; the failed account keeps its own backlog.
	last, err := s.store.FindLastCompletedRunDate(s.ctx)
	s.Require().NoError(err)
	s.Require().NotNil(last)
	s.True(accrualDay.Equal(*last))

	// A retry picks up only the account that failed.
	retry, err := s.accrual.RunDailyAccrual(s.ctx, accrualDay)
	s.Require().NoError(err)
	s.Equal(1, retry.Eligible)
	s.Equal(1, retry.Accrued)
	s.True(retry.Succeeded())
}

func (s *LedgerServiceTestSuite) TestAccrualCancellationKeepsCompletedAccounts() {
	ids := make([]string, 0, 3)
	for _, c := range []string{"c-1", "c-2", "c-3"} {
		acc := s.open(c)
		s.sale(acc.AccountID, "10000")
		ids = append(ids, acc.AccountID)
	}

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	var once sync.Once
	ledger := &failingLedger{Store: s.store, afterPost: func() { once.Do(cancel) }}
	accrual := services.NewAccrualService(s.store, ledger, s.store, s.options(services.WithAccrualWorkers(1))...)

	run, err := accrual.RunDailyAccrual(ctx, accrualDay)
	s.Require().NoError(err)
	s.True(run.Cancelled)
	s.False(run.Succeeded())
	s.GreaterOrEqual(run.Accrued, 1)
	s.Less(run.Accrued, 3)

	advanced := 0
	for _, id := range ids {
		acc := s.account(id)
		if acc.LastAccrualDate.Equal(accrualDay) {
			advanced++
			s.True(d("6.67").Equal(acc.OutstandingInterest))
		} else {
			s.True(acc.OutstandingInterest.IsZero())
		}
	}
	s.Equal(run.Accrued, advanced)
}

func (s *LedgerServiceTestSuite) TestAccrualSkipsAccountsAwaitingReconciliation() {
	halted := s.open("c-1")
	s.sale(halted.AccountID, "500")
	healthy := s.open("c-2")
	s.sale(healthy.AccountID, "500")

	acc := s.account(halted.AccountID)
	acc.Status = domain.StatusReconcileRequired
	s.Require().NoError(s.store.UpdateAccount(s.ctx, *acc))

	run, err := s.accrual.RunDailyAccrual(s.ctx, accrualDay)
	s.Require().NoError(err)
	s.Equal(1, run.Eligible)
	s.Equal(1, run.Accrued)
	s.Equal(0, run.Failed)
	s.True(s.account(halted.AccountID).OutstandingInterest.IsZero())
	s.True(accrualDay.AddDate(0, 0, -1).Equal(*s.account(halted.AccountID).LastAccrualDate))
}

func (s *LedgerServiceTestSuite) TestListAccrualRuns() {
	s.sale(s.open("c-1").AccountID, "100")
	s.clock.Set(accrualDay.AddDate(0, 0, 2).Add(6 * time.Hour))
	for i := 0; i < 3; i++ {
		_, err := s.accrual.RunDailyAccrual(s.ctx, accrualDay.AddDate(0, 0, i))
		s.Require().NoError(err)
	}
	runs, err := s.accrual.ListAccrualRuns(s.ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(runs, 2)
	s.True(accrualDay.AddDate(0, 0, 2).Equal(runs[0].AccrualDate))
}

func (s *LedgerServiceTestSuite) TestAccrualRejectsFutureDates() {
	s.sale(s.open("c-1").AccountID, "10000")

	run, err := s.accrual.RunDailyAccrual(s.ctx, accrualDay.AddDate(0, 0, 1))
	s.Nil(run)
	s.ErrorIs(err, apperrors.ErrValidation)

	runs, err := s.accrual.ListAccrualRuns(s.ctx, 10)
	s.Require().NoError(err)
	s.Empty(runs)
}

func (s *LedgerServiceTestSuite) TestAccrualCatchesUpMissedDays() {
	acc := s.open("c-1")
	s.sale(acc.AccountID, "10000")
	s.clock.Set(accrualDay.AddDate(0, 0, 3).Add(6 * time.Hour))

	run, err := s.accrual.RunDailyAccrual(s.ctx, accrualDay.AddDate(0, 0, 3))
	s.Require().NoError(err)
	s.Equal(1, run.Accrued)
	s.Require().Len(run.Results, 1)
	s.Equal(4, run.Results[0].Days)
	s.True(d("26.68").Equal(run.TotalInterest), "total %s", run.TotalInterest)

	after := s.account(acc.AccountID)
	s.True(d("26.68").Equal(after.OutstandingInterest))
	s.True(accrualDay.AddDate(0, 0, 3).Equal(*after.LastAccrualDate))
	s.Equal(4, s.interestTxns(acc.AccountID))
	s.assertReplayMatches(acc.AccountID)
}

func (s *LedgerServiceTestSuite) TestAccrualBacklogIsCapped() {
	acc := s.open("c-1")
	s.sale(acc.AccountID, "10000")
	upTo := accrualDay.AddDate(0, 0, 50)
	s.clock.Set(upTo.Add(6 * time.Hour))

	run, err := s.accrual.RunDailyAccrual(s.ctx, upTo)
	s.Require().NoError(err)
	s.Require().Len(run.Results, 1)
	s.Equal(31, run.Results[0].Days)
	s.True(d("206.77").Equal(s.account(acc.AccountID).OutstandingInterest))
}

func (s *LedgerServiceTestSuite) TestAccrualDoesNotBackfillFrozenDays() {
	acc := s.open("c-1")
	s.sale(acc.AccountID, "10000")
	_, err := s.ledger.SetInterestFreeze(s.ctx, testShop, acc.AccountID, dto.SetInterestFreezeRequest{Freeze: boolPtr(true)}, testUser)
	s.Require().NoError(err)

	resumed := accrualDay.AddDate(0, 0, 5)
	s.clock.Set(resumed.Add(6 * time.Hour))
	_, err = s.ledger.SetInterestFreeze(s.ctx, testShop, acc.AccountID, dto.SetInterestFreezeRequest{Freeze: boolPtr(false)}, testUser)
	s.Require().NoError(err)
	s.True(resumed.AddDate(0, 0, -1).Equal(*s.account(acc.AccountID).LastAccrualDate))

	run, err := s.accrual.RunDailyAccrual(s.ctx, resumed)
	s.Require().NoError(err)
	s.Require().Len(run.Results, 1)
	s.Equal(1, run.Results[0].Days)
	s.True(d("6.67").Equal(s.account(acc.AccountID).OutstandingInterest))
}
