package apperrors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrForbidden indicates the caller may not act on the resource.
var ErrForbidden = errors.New("forbidden")

// ErrConflict indicates a write was based on a stale version of the resource.
// It is transient: re-reading and retrying is expected to succeed.
var ErrConflict = errors.New("concurrent modification")

// ErrInternal is returned when the underlying cause must not leak to callers.
var ErrInternal = errors.New("internal error")

// Ledger error kinds. Every one of them is recoverable by the caller except
// ErrLedgerCorrupted, which halts mutation of the account until it is reconciled.
var (
	ErrInvalidAmount         = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrAccountBlocked        = errors.New("account is blocked for further credit")
	ErrAccountNotFound       = fmt.Errorf("%w: account not found", ErrNotFound)
	ErrOverpaymentNotAllowed = errors.New("payment exceeds total outstanding")
	ErrNothingToWriteOff     = errors.New("nothing to write off")
	ErrConcurrencyTimeout    = errors.New("account is busy, lock not acquired in time")
	ErrAccrualAlreadyApplied = errors.New("interest already accrued for this date")
	ErrCreditLimitExceeded   = errors.New("credit limit exceeded")
	ErrAccountClosed         = errors.New("account is closed")
	ErrLedgerCorrupted       = errors.New("ledger balance invariant violated, manual reconciliation required")
)

// AppError is an infrastructure failure annotated with the HTTP status it maps to.
type AppError struct {
	Code    int
	Message string
	Err     error
}

// NewAppError creates a new AppError.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Outstanding is the account position at the moment an operation failed.
type Outstanding struct {
	Principal decimal.Decimal `json:"principal"`
	Interest  decimal.Decimal `json:"interest"`
	Penalty   decimal.Decimal `json:"penalty"`
	Advance   decimal.Decimal `json:"advance"`
}

// LedgerError carries enough context for a caller to decide remediation
// without re-querying the account.
type LedgerError struct {
	Op          string
	AccountID   string
	Amount      decimal.Decimal
	Outstanding Outstanding
	Err         error
}

func (e *LedgerError) Error() string {
	return fmt.Sprintf("%s account %s (amount %s, outstanding principal %s interest %s penalty %s): %v",
		e.Op, e.AccountID, e.Amount.StringFixed(2),
		e.Outstanding.Principal.StringFixed(2), e.Outstanding.Interest.StringFixed(2), e.Outstanding.Penalty.StringFixed(2),
		e.Err)
}

func (e *LedgerError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether retrying the same request later may succeed.
func IsTransient(err error) bool {
	return errors.Is(err, ErrConcurrencyTimeout) || errors.Is(err, ErrConflict)
}
