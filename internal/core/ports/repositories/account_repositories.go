package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/bahi_khata/internal/core/domain"
)

// AccountReader defines read operations for account data
type AccountReader interface {
	// FindAccountByID retrieves a specific account by its unique identifier.
	FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error)

	// ListAccounts retrieves a paginated list of accounts for a given shop.
	ListAccounts(ctx context.Context, shopID string, limit int, offset int) ([]domain.Account, error)

	// ListAccrualCandidates returns the ids of accounts that look eligible for
	// accrual on the given date. Callers recheck eligibility under the account lock.
	ListAccrualCandidates(ctx context.Context, accrualDate time.Time) ([]string, error)
}

// AccountWriter defines write operations for account data
type AccountWriter interface {
	// SaveAccount persists a new account.
	SaveAccount(ctx context.Context, account domain.Account) error

	// UpdateAccount overwrites the mutable fields of an account if its stored
	// version still equals account.Version, and bumps the version.
	// A stale version yields apperrors.ErrConflict.
	UpdateAccount(ctx context.Context, account domain.Account) error
}

// AccountRepositoryFacade combines all account-related repository interfaces
type AccountRepositoryFacade interface {
	AccountReader
	AccountWriter
}
