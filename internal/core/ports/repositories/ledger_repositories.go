package repositories

import (
	"context"

	"github.com/SscSPs/bahi_khata/internal/core/domain"
)

// LedgerReader defines read operations over the append-only ledger.
type LedgerReader interface {
	// ListTransactionsByAccount returns transactions oldest first, starting after
	// the position encoded in afterToken. It returns a token for the next page
	// when more rows exist.
	ListTransactionsByAccount(ctx context.Context, accountID string, limit int, afterToken *string) ([]domain.Transaction, *string, error)

	// ListAllTransactionsByAccount returns the full history of an account, oldest first.
	ListAllTransactionsByAccount(ctx context.Context, accountID string) ([]domain.Transaction, error)

	// ListPayments returns the PAYMENT transactions of an account, oldest first, without entries.
	ListPayments(ctx context.Context, accountID string) ([]domain.Transaction, error)
}

// LedgerWriter defines the single write path of the ledger.
type LedgerWriter interface {
	// PostTransaction appends txn with its entries and stores account in one
	// atomic unit. The account is version-checked like AccountWriter.UpdateAccount.
	// An interest transaction for an (account, accrual date) pair that already
	// exists yields apperrors.ErrAccrualAlreadyApplied and nothing is written.
	PostTransaction(ctx context.Context, txn domain.Transaction, account domain.Account) error
}

// LedgerRepositoryFacade combines all ledger repository interfaces
type LedgerRepositoryFacade interface {
	LedgerReader
	LedgerWriter
}
