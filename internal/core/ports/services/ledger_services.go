package services

import (
	"context"

	"github.com/SscSPs/bahi_khata/internal/core/domain"
	"github.com/SscSPs/bahi_khata/internal/dto"
)

// LedgerWriterSvc defines the mutations of a customer ledger. Every call
// serialises on the account and recomputes its risk before returning.
type LedgerWriterSvc interface {
	// OpenAccount onboards a customer for a shop.
	OpenAccount(ctx context.Context, shopID string, req dto.OpenAccountRequest, userID string) (*domain.Account, error)

	// UpdateCustomer corrects the name, phone or village on an account.
	UpdateCustomer(ctx context.Context, shopID, accountID string, req dto.UpdateCustomerRequest, userID string) (*domain.Account, error)

	// RecordSale posts goods or cash given on credit.
	RecordSale(ctx context.Context, shopID, accountID string, req dto.RecordSaleRequest, userID string) (*domain.Receipt, error)

	// RecordPayment allocates a payment through the waterfall.
	RecordPayment(ctx context.Context, shopID, accountID string, req dto.RecordPaymentRequest, userID string) (*domain.Receipt, error)

	// RecordReturn reduces principal for returned goods.
	RecordReturn(ctx context.Context, shopID, accountID string, req dto.RecordReturnRequest, userID string) (*domain.Receipt, error)

	// RecordPenalty levies a late fee.
	RecordPenalty(ctx context.Context, shopID, accountID string, req dto.RecordPenaltyRequest, userID string) (*domain.Receipt, error)

	// RecordNpaWriteOff writes the full principal off as bad debt.
	RecordNpaWriteOff(ctx context.Context, shopID, accountID string, userID string) (*domain.Receipt, error)

	// SetManualFlag sets the operator flag.
	SetManualFlag(ctx context.Context, shopID, accountID string, req dto.SetManualFlagRequest, userID string) (*domain.AccountSnapshot, error)

	// SetInterestFreeze pauses or resumes interest accrual.
	SetInterestFreeze(ctx context.Context, shopID, accountID string, req dto.SetInterestFreezeRequest, userID string) (*domain.AccountSnapshot, error)

	// CloseAccount soft-closes a fully settled account.
	CloseAccount(ctx context.Context, shopID, accountID string, userID string) (*domain.Account, error)
}

// LedgerReaderSvc defines read-only ledger queries. None of them take the account lock.
type LedgerReaderSvc interface {
	// GetAccountSnapshot returns balances, flags and risk.
	GetAccountSnapshot(ctx context.Context, shopID, accountID string) (*domain.AccountSnapshot, error)

	// GetStatement returns history oldest first. A call with no token and no
	// limit returns everything and verifies it against the cached balances.
	GetStatement(ctx context.Context, shopID, accountID string, limit int, afterToken *string) (*domain.Statement, error)

	// VerifyAccount replays the ledger and compares it with the cache.
	VerifyAccount(ctx context.Context, shopID, accountID string) (*domain.Verification, error)

	// ListAccounts retrieves a page of the shop's accounts.
	ListAccounts(ctx context.Context, shopID string, limit int, offset int) ([]domain.Account, error)
}

// LedgerSvcFacade combines all ledger-related service interfaces
type LedgerSvcFacade interface {
	LedgerWriterSvc
	LedgerReaderSvc
}
