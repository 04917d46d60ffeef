package handlers_test

import (
	"context"
	"time"

	"github.com/SscSPs/bahi_khata/internal/core/domain"
	portssvc "github.com/SscSPs/bahi_khata/internal/core/ports/services"
	"github.com/SscSPs/bahi_khata/internal/dto"
	"github.com/stretchr/testify/mock"
)

// --- Mock LedgerService ---
type MockLedgerService struct {
	mock.Mock
}

func receiptOrNil(args mock.Arguments) (*domain.Receipt, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Receipt), args.Error(1)
}

func snapshotOrNil(args mock.Arguments) (*domain.AccountSnapshot, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AccountSnapshot), args.Error(1)
}

func (m *MockLedgerService) OpenAccount(ctx context.Context, shopID string, req dto.OpenAccountRequest, userID string) (*domain.Account, error) {
	args := m.Called(ctx, shopID, req, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}
func (m *MockLedgerService) RecordSale(ctx context.Context, shopID, accountID string, req dto.RecordSaleRequest, userID string) (*domain.Receipt, error) {
	return receiptOrNil(m.Called(ctx, shopID, accountID, req, userID))
}
func (m *MockLedgerService) RecordPayment(ctx context.Context, shopID, accountID string, req dto.RecordPaymentRequest, userID string) (*domain.Receipt, error) {
	return receiptOrNil(m.Called(ctx, shopID, accountID, req, userID))
}
func (m *MockLedgerService) RecordReturn(ctx context.Context, shopID, accountID string, req dto.RecordReturnRequest, userID string) (*domain.Receipt, error) {
	return receiptOrNil(m.Called(ctx, shopID, accountID, req, userID))
}
func (m *MockLedgerService) RecordPenalty(ctx context.Context, shopID, accountID string, req dto.RecordPenaltyRequest, userID string) (*domain.Receipt, error) {
	return receiptOrNil(m.Called(ctx, shopID, accountID, req, userID))
}
func (m *MockLedgerService) RecordNpaWriteOff(ctx context.Context, shopID, accountID string, userID string) (*domain.Receipt, error) {
	return receiptOrNil(m.Called(ctx, shopID, accountID, userID))
}
func (m *MockLedgerService) SetManualFlag(ctx context.Context, shopID, accountID string, req dto.SetManualFlagRequest, userID string) (*domain.AccountSnapshot, error) {
	return snapshotOrNil(m.Called(ctx, shopID, accountID, req, userID))
}
func (m *MockLedgerService) SetInterestFreeze(ctx context.Context, shopID, accountID string, req dto.SetInterestFreezeRequest, userID string) (*domain.AccountSnapshot, error) {
	return snapshotOrNil(m.Called(ctx, shopID, accountID, req, userID))
}
func (m *MockLedgerService) UpdateCustomer(ctx context.Context, shopID, accountID string, req dto.UpdateCustomerRequest, userID string) (*domain.Account, error) {
	args := m.Called(ctx, shopID, accountID, req, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}
func (m *MockLedgerService) CloseAccount(ctx context.Context, shopID, accountID string, userID string) (*domain.Account, error) {
	args := m.Called(ctx, shopID, accountID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}
func (m *MockLedgerService) GetAccountSnapshot(ctx context.Context, shopID, accountID string) (*domain.AccountSnapshot, error) {
	return snapshotOrNil(m.Called(ctx, shopID, accountID))
}
func (m *MockLedgerService) GetStatement(ctx context.Context, shopID, accountID string, limit int, afterToken *string) (*domain.Statement, error) {
	args := m.Called(ctx, shopID, accountID, limit, afterToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Statement), args.Error(1)
}
func (m *MockLedgerService) VerifyAccount(ctx context.Context, shopID, accountID string) (*domain.Verification, error) {
	args := m.Called(ctx, shopID, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Verification), args.Error(1)
}
func (m *MockLedgerService) ListAccounts(ctx context.Context, shopID string, limit int, offset int) ([]domain.Account, error) {
	args := m.Called(ctx, shopID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Account), args.Error(1)
}

var _ portssvc.LedgerSvcFacade = (*MockLedgerService)(nil)

// --- Mock AccrualService ---
type MockAccrualService struct {
	mock.Mock
}

func (m *MockAccrualService) RunDailyAccrual(ctx context.Context, asOf time.Time) (*domain.AccrualRun, error) {
	args := m.Called(ctx, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AccrualRun), args.Error(1)
}
func (m *MockAccrualService) ListAccrualRuns(ctx context.Context, limit int) ([]domain.AccrualRun, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]domain.AccrualRun), args.Error(1)
}

var _ portssvc.AccrualSvc = (*MockAccrualService)(nil)

// --- Mock ReportingService ---
type MockReportingService struct {
	mock.Mock
}

func (m *MockReportingService) DashboardSummary(ctx context.Context, shopID string, asOf time.Time) (*domain.DashboardSummary, error) {
	args := m.Called(ctx, shopID, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DashboardSummary), args.Error(1)
}
func (m *MockReportingService) VillageSummaries(ctx context.Context, shopID string) ([]domain.VillageSummary, error) {
	args := m.Called(ctx, shopID)
	return args.Get(0).([]domain.VillageSummary), args.Error(1)
}
func (m *MockReportingService) OverdueAccounts(ctx context.Context, shopID string, asOf time.Time, minDays int, limit int) ([]domain.OverdueAccount, error) {
	args := m.Called(ctx, shopID, asOf, minDays, limit)
	return args.Get(0).([]domain.OverdueAccount), args.Error(1)
}

func (m *MockReportingService) PaymentBehaviour(ctx context.Context, shopID string) (*domain.PaymentBehaviour, error) {
	args := m.Called(ctx, shopID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentBehaviour), args.Error(1)
}
func (m *MockReportingService) TransactionSummary(ctx context.Context, shopID string, days int) (*domain.TransactionSummary, error) {
	args := m.Called(ctx, shopID, days)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TransactionSummary), args.Error(1)
}

var _ portssvc.ReportingService = (*MockReportingService)(nil)
