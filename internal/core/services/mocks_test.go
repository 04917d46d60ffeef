package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SscSPs/bahi_khata/internal/apperrors"
	"github.com/SscSPs/bahi_khata/internal/core/domain"
	portsrepo "github.com/SscSPs/bahi_khata/internal/core/ports/repositories"
	"github.com/SscSPs/bahi_khata/internal/core/services"
	"github.com/SscSPs/bahi_khata/internal/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockAccountRepository is a mock type for the AccountRepositoryFacade interface
type MockAccountRepository struct {
	mock.Mock
}

var _ portsrepo.AccountRepositoryFacade = (*MockAccountRepository)(nil)

func (m *MockAccountRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) ListAccounts(ctx context.Context, shopID string, limit int, offset int) ([]domain.Account, error) {
	args := m.Called(ctx, shopID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Account), args.Error(1)
}

func (m *MockAccountRepository) ListAccrualCandidates(ctx context.Context, accrualDate time.Time) ([]string, error) {
	args := m.Called(ctx, accrualDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockAccountRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) UpdateAccount(ctx context.Context, account domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

// MockLedgerRepository is a mock type for the LedgerRepositoryFacade interface
type MockLedgerRepository struct {
	mock.Mock
}

var _ portsrepo.LedgerRepositoryFacade = (*MockLedgerRepository)(nil)

func (m *MockLedgerRepository) ListTransactionsByAccount(ctx context.Context, accountID string, limit int, afterToken *string) ([]domain.Transaction, *string, error) {
	args := m.Called(ctx, accountID, limit, afterToken)
	var txns []domain.Transaction
	if args.Get(0) != nil {
		txns = args.Get(0).([]domain.Transaction)
	}
	var next *string
	if args.Get(1) != nil {
		next = args.Get(1).(*string)
	}
	return txns, next, args.Error(2)
}

func (m *MockLedgerRepository) ListAllTransactionsByAccount(ctx context.Context, accountID string) ([]domain.Transaction, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Transaction), args.Error(1)
}

func (m *MockLedgerRepository) ListPayments(ctx context.Context, accountID string) ([]domain.Transaction, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Transaction), args.Error(1)
}

func (m *MockLedgerRepository) PostTransaction(ctx context.Context, txn domain.Transaction, account domain.Account) error {
	args := m.Called(ctx, txn, account)
	return args.Error(0)
}

// MockAccrualRunRepository is a mock type for the AccrualRunRepository interface
type MockAccrualRunRepository struct {
	mock.Mock
}

var _ portsrepo.AccrualRunRepository = (*MockAccrualRunRepository)(nil)

func (m *MockAccrualRunRepository) SaveAccrualRun(ctx context.Context, run domain.AccrualRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockAccrualRunRepository) FindLastCompletedRunDate(ctx context.Context) (*time.Time, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*time.Time), args.Error(1)
}

func (m *MockAccrualRunRepository) ListAccrualRuns(ctx context.Context, limit int) ([]domain.AccrualRun, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AccrualRun), args.Error(1)
}

// MockReportingRepository is a mock type for the ReportingRepository interface
type MockReportingRepository struct {
	mock.Mock
}

var _ portsrepo.ReportingRepository = (*MockReportingRepository)(nil)

func (m *MockReportingRepository) DashboardSummary(ctx context.Context, shopID string, asOf time.Time, overdueDays int) (*domain.DashboardSummary, error) {
	args := m.Called(ctx, shopID, asOf, overdueDays)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DashboardSummary), args.Error(1)
}

func (m *MockReportingRepository) VillageSummaries(ctx context.Context, shopID string) ([]domain.VillageSummary, error) {
	args := m.Called(ctx, shopID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.VillageSummary), args.Error(1)
}

func (m *MockReportingRepository) OverdueAccounts(ctx context.Context, shopID string, asOf time.Time, minDays int, limit int) ([]domain.OverdueAccount, error) {
	args := m.Called(ctx, shopID, asOf, minDays, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.OverdueAccount), args.Error(1)
}

func (m *MockReportingRepository) PaymentBehaviour(ctx context.Context, shopID string, loc *time.Location, policy domain.RiskPolicy) (*domain.PaymentBehaviour, error) {
	args := m.Called(ctx, shopID, loc, policy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentBehaviour), args.Error(1)
}

func (m *MockReportingRepository) TransactionTotals(ctx context.Context, shopID string, from, to time.Time) ([]domain.TransactionTypeTotal, error) {
	args := m.Called(ctx, shopID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TransactionTypeTotal), args.Error(1)
}

func activeAccount(id string, principal string) *domain.Account {
	return &domain.Account{
		AccountID:            id,
		ShopID:               testShop,
		OutstandingPrincipal: d(principal),
		Status:               domain.StatusActive,
		ManualFlag:           domain.FlagNone,
		AuditFields:          domain.AuditFields{Version: 3},
	}
}

func TestRecordPayment_RepositoryErrors(t *testing.T) {
	ctx := context.Background()
	dbErr := errors.New("connection reset")

	tests := []struct {
		name      string
		setup     func(accounts *MockAccountRepository, ledger *MockLedgerRepository)
		wantIs    error
		transient bool
	}{
		{
			name: "account lookup fails",
			setup: func(accounts *MockAccountRepository, ledger *MockLedgerRepository) {
				accounts.On("FindAccountByID", mock.Anything, "acc-1").Return(nil, dbErr).Once()
			},
			wantIs: dbErr,
		},
		{
			name: "account missing",
			setup: func(accounts *MockAccountRepository, ledger *MockLedgerRepository) {
				accounts.On("FindAccountByID", mock.Anything, "acc-1").Return(nil, apperrors.ErrNotFound).Once()
			},
			wantIs: apperrors.ErrAccountNotFound,
		},
		{
			name: "stale version",
			setup: func(accounts *MockAccountRepository, ledger *MockLedgerRepository) {
				accounts.On("FindAccountByID", mock.Anything, "acc-1").Return(activeAccount("acc-1", "500"), nil).Once()
				ledger.On("ListPayments", mock.Anything, "acc-1").Return([]domain.Transaction{}, nil).Once()
				ledger.On("PostTransaction", mock.Anything, mock.AnythingOfType("domain.Transaction"), mock.AnythingOfType("domain.Account")).
					Return(apperrors.ErrConflict).Once()
			},
			wantIs:    apperrors.ErrConflict,
			transient: true,
		},
		{
			name: "payment history unavailable",
			setup: func(accounts *MockAccountRepository, ledger *MockLedgerRepository) {
				accounts.On("FindAccountByID", mock.Anything, "acc-1").Return(activeAccount("acc-1", "500"), nil).Once()
				ledger.On("ListPayments", mock.Anything, "acc-1").Return(nil, dbErr).Once()
			},
			wantIs: dbErr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accounts := new(MockAccountRepository)
			ledger := new(MockLedgerRepository)
			tt.setup(accounts, ledger)
			svc := services.NewLedgerService(accounts, ledger)

			receipt, err := svc.RecordPayment(ctx, testShop, "acc-1", dto.RecordPaymentRequest{Amount: d("100"), PaymentMethod: domain.PaymentCash}, testUser)
			assert.Nil(t, receipt)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantIs)
			assert.Equal(t, tt.transient, apperrors.IsTransient(err))

			var le *apperrors.LedgerError
			require.ErrorAs(t, err, &le)
			assert.Equal(t, "record payment", le.Op)
			accounts.AssertExpectations(t)
			ledger.AssertExpectations(t)
		})
	}
}

func TestRecordPayment_PostsVersionedAccount(t *testing.T) {
	ctx := context.Background()
	accounts := new(MockAccountRepository)
	ledger := new(MockLedgerRepository)
	svc := services.NewLedgerService(accounts, ledger)

	accounts.On("FindAccountByID", mock.Anything, "acc-1").Return(activeAccount("acc-1", "500"), nil).Once()
	ledger.On("ListPayments", mock.Anything, "acc-1").Return([]domain.Transaction{}, nil).Once()
	ledger.On("PostTransaction", mock.Anything,
		mock.MatchedBy(func(txn domain.Transaction) bool {
			return txn.Type == domain.TxnPayment && txn.AccountID == "acc-1" && len(txn.Entries) == 2 && txn.Validate() == nil
		}),
		mock.MatchedBy(func(acc domain.Account) bool {
			// the write is based on the version that was read
			return acc.Version == 3 && acc.OutstandingPrincipal.Equal(d("400")) && acc.TotalPaid.Equal(d("100"))
		}),
	).Return(nil).Once()

	receipt, err := svc.RecordPayment(ctx, testShop, "acc-1", dto.RecordPaymentRequest{Amount: d("100"), PaymentMethod: domain.PaymentUPI}, testUser)
	require.NoError(t, err)
	assert.True(t, d("400").Equal(receipt.Balances.Principal))
	accounts.AssertExpectations(t)
	ledger.AssertExpectations(t)
}

func TestRunDailyAccrual_DuplicateIsAbsorbed(t *testing.T) {
	ctx := context.Background()
	accounts := new(MockAccountRepository)
	ledger := new(MockLedgerRepository)
	runs := new(MockAccrualRunRepository)
	svc := services.NewAccrualService(accounts, ledger, runs, services.WithClock(func() time.Time { return accrualDay.Add(time.Hour) }))

	accounts.On("ListAccrualCandidates", mock.Anything, accrualDay).Return([]string{"acc-1"}, nil).Once()
	accounts.On("FindAccountByID", mock.Anything, "acc-1").Return(activeAccount("acc-1", "10000"), nil).Once()
	ledger.On("ListPayments", mock.Anything, "acc-1").Return([]domain.Transaction{}, nil).Once()
	ledger.On("PostTransaction", mock.Anything, mock.AnythingOfType("domain.Transaction"), mock.AnythingOfType("domain.Account")).
		Return(apperrors.ErrAccrualAlreadyApplied).Once()
	runs.On("SaveAccrualRun", mock.Anything, mock.MatchedBy(func(r domain.AccrualRun) bool {
		return r.AlreadyApplied == 1 && r.Failed == 0
	})).Return(nil).Once()

	run, err := svc.RunDailyAccrual(ctx, accrualDay)
	require.NoError(t, err)
	assert.Equal(t, 1, run.AlreadyApplied)
	assert.True(t, run.Succeeded())
	assert.True(t, run.TotalInterest.IsZero())
	accounts.AssertExpectations(t)
	ledger.AssertExpectations(t)
	runs.AssertExpectations(t)
}

func TestRunDailyAccrual_CandidateScanFails(t *testing.T) {
	accounts := new(MockAccountRepository)
	runs := new(MockAccrualRunRepository)
	svc := services.NewAccrualService(accounts, new(MockLedgerRepository), runs, services.WithClock(func() time.Time { return accrualDay.Add(time.Hour) }))

	accounts.On("ListAccrualCandidates", mock.Anything, accrualDay).Return(nil, errors.New("timeout")).Once()

	run, err := svc.RunDailyAccrual(context.Background(), accrualDay)
	assert.Nil(t, run)
	assert.Error(t, err)
	runs.AssertNotCalled(t, "SaveAccrualRun", mock.Anything, mock.Anything)
}

func TestRunDailyAccrual_UsesCalendarDateOfAsOf(t *testing.T) {
	accounts := new(MockAccountRepository)
	runs := new(MockAccrualRunRepository)
	svc := services.NewAccrualService(accounts, new(MockLedgerRepository), runs,
		services.WithClock(func() time.Time { return accrualDay.Add(18 * time.Hour) }))

	accounts.On("ListAccrualCandidates", mock.Anything, accrualDay).Return([]string{}, nil).Once()
	runs.On("SaveAccrualRun", mock.Anything, mock.Anything).Return(nil).Once()

	run, err := svc.RunDailyAccrual(context.Background(), accrualDay.Add(17*time.Hour))
	require.NoError(t, err)
	assert.True(t, accrualDay.Equal(run.AccrualDate))
	accounts.AssertExpectations(t)
}

func TestRunDailyAccrual_FutureDates(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	// 20:00 UTC on the tenth is already the eleventh in IST.
	now := accrualDay.Add(20 * time.Hour)

	tests := []struct {
		name    string
		loc     *time.Location
		asOf    time.Time
		wantErr bool
	}{
		{name: "today", loc: time.UTC, asOf: accrualDay},
		{name: "yesterday", loc: time.UTC, asOf: accrualDay.AddDate(0, 0, -1)},
		{name: "tomorrow", loc: time.UTC, asOf: accrualDay.AddDate(0, 0, 1), wantErr: true},
		{name: "local today ahead of utc", loc: ist, asOf: time.Date(2026, 1, 11, 0, 0, 0, 0, ist)},
		{name: "local tomorrow", loc: ist, asOf: time.Date(2026, 1, 12, 0, 0, 0, 0, ist), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accounts := new(MockAccountRepository)
			runs := new(MockAccrualRunRepository)
			svc := services.NewAccrualService(accounts, new(MockLedgerRepository), runs,
				services.WithLocation(tt.loc),
				services.WithClock(func() time.Time { return now }))
			if !tt.wantErr {
				accounts.On("ListAccrualCandidates", mock.Anything, mock.Anything).Return([]string{}, nil).Once()
				runs.On("SaveAccrualRun", mock.Anything, mock.Anything).Return(nil).Once()
			}

			run, err := svc.RunDailyAccrual(context.Background(), tt.asOf)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrValidation)
				assert.Nil(t, run)
				accounts.AssertNotCalled(t, "ListAccrualCandidates", mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			accounts.AssertExpectations(t)
		})
	}
}

func TestReportingService(t *testing.T) {
	ctx := context.Background()
	asOf := accrualDay

	t.Run("shop is required", func(t *testing.T) {
		svc := services.NewReportingService(new(MockReportingRepository))
		_, err := svc.DashboardSummary(ctx, " ", asOf)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
		_, err = svc.VillageSummaries(ctx, "")
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("dashboard uses the fifteen day overdue window", func(t *testing.T) {
		repo := new(MockReportingRepository)
		repo.On("DashboardSummary", mock.Anything, testShop, asOf, services.DashboardOverdueDays).
			Return(&domain.DashboardSummary{ShopID: testShop, TotalAccounts: 4}, nil).Once()
		svc := services.NewReportingService(repo)

		sum, err := svc.DashboardSummary(ctx, testShop, asOf)
		require.NoError(t, err)
		assert.Equal(t, 4, sum.TotalAccounts)
		repo.AssertExpectations(t)
	})

	t.Run("overdue defaults its limit", func(t *testing.T) {
		repo := new(MockReportingRepository)
		repo.On("OverdueAccounts", mock.Anything, testShop, asOf, 30, 50).Return([]domain.OverdueAccount{{AccountID: "a"}}, nil).Once()
		svc := services.NewReportingService(repo)

		out, err := svc.OverdueAccounts(ctx, testShop, asOf, 30, 0)
		require.NoError(t, err)
		assert.Len(t, out, 1)
		repo.AssertExpectations(t)

		_, err = svc.OverdueAccounts(ctx, testShop, asOf, -1, 10)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("repository errors propagate", func(t *testing.T) {
		repo := new(MockReportingRepository)
		repo.On("VillageSummaries", mock.Anything, testShop).Return(nil, errors.New("snapshot failed")).Once()
		svc := services.NewReportingService(repo)

		_, err := svc.VillageSummaries(ctx, testShop)
		assert.EqualError(t, err, "snapshot failed")
	})

	t.Run("payment behaviour percentages", func(t *testing.T) {
		ist := time.FixedZone("IST", 5*3600+1800)
		repo := new(MockReportingRepository)
		repo.On("PaymentBehaviour", mock.Anything, testShop, ist, domain.DefaultRiskPolicy()).
			Return(&domain.PaymentBehaviour{TotalAccounts: 3, OnTimePayers: 2, FrequentDelayers: 1, HighRiskAccounts: 1}, nil).Once()
		svc := services.NewReportingService(repo, services.WithReportingLocation(ist))

		got, err := svc.PaymentBehaviour(ctx, testShop)
		require.NoError(t, err)
		assert.Equal(t, testShop, got.ShopID)
		assert.Equal(t, "66.67", got.OnTimePercentage.StringFixed(2))
		assert.Equal(t, "33.33", got.RiskPercentage.StringFixed(2))
		repo.AssertExpectations(t)
	})

	t.Run("payment behaviour of an empty shop", func(t *testing.T) {
		repo := new(MockReportingRepository)
		repo.On("PaymentBehaviour", mock.Anything, testShop, time.UTC, domain.DefaultRiskPolicy()).
			Return(&domain.PaymentBehaviour{}, nil).Once()
		svc := services.NewReportingService(repo)

		got, err := svc.PaymentBehaviour(ctx, testShop)
		require.NoError(t, err)
		assert.True(t, got.OnTimePercentage.IsZero())
		assert.True(t, got.RiskPercentage.IsZero())
	})

	t.Run("transaction summary window", func(t *testing.T) {
		ist := time.FixedZone("IST", 5*3600+1800)
		// 20:00 UTC on the tenth is the eleventh in IST.
		now := accrualDay.Add(20 * time.Hour)
		from := time.Date(2026, 1, 5, 0, 0, 0, 0, ist)
		to := time.Date(2026, 1, 12, 0, 0, 0, 0, ist)

		repo := new(MockReportingRepository)
		repo.On("TransactionTotals", mock.Anything, testShop, from, to).Return([]domain.TransactionTypeTotal{
			{Type: domain.TxnSaleOnCredit, Count: 4, Amount: d("900")},
			{Type: domain.TxnPayment, Count: 2, Amount: d("300")},
		}, nil).Once()
		svc := services.NewReportingService(repo,
			services.WithReportingLocation(ist),
			services.WithReportingClock(func() time.Time { return now }))

		got, err := svc.TransactionSummary(ctx, testShop, 7)
		require.NoError(t, err)
		assert.Equal(t, 7, got.Days)
		assert.Equal(t, 6, got.TotalTransactions)
		assert.Equal(t, 2, got.Count(domain.TxnPayment))
		assert.Equal(t, 0, got.Count(domain.TxnReturn))
		repo.AssertExpectations(t)
	})

	t.Run("transaction summary days are bounded", func(t *testing.T) {
		repo := new(MockReportingRepository)
		repo.On("TransactionTotals", mock.Anything, testShop, mock.Anything, mock.Anything).Return([]domain.TransactionTypeTotal{}, nil).Once()
		svc := services.NewReportingService(repo)

		got, err := svc.TransactionSummary(ctx, testShop, 0)
		require.NoError(t, err)
		assert.Equal(t, services.DefaultSummaryDays, got.Days)

		for _, days := range []int{-1, services.MaxSummaryDays + 1} {
			_, err := svc.TransactionSummary(ctx, testShop, days)
			assert.ErrorIs(t, err, apperrors.ErrValidation, "days %d", days)
		}
		repo.AssertExpectations(t)
	})
}
