package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/bahi_khata/internal/apperrors"
	"github.com/SscSPs/bahi_khata/internal/core/domain"
	portsrepo "github.com/SscSPs/bahi_khata/internal/core/ports/repositories"
	"github.com/SscSPs/bahi_khata/internal/platform/lock"
	"github.com/SscSPs/bahi_khata/internal/utils/accounting"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// accountWriter is the single write path shared by the ledger and accrual
// services: lock the account, load it, change it, reclassify risk, persist.
type accountWriter struct {
	BaseService
	accounts     portsrepo.AccountRepositoryFacade
	ledger       portsrepo.LedgerRepositoryFacade
	locker       lock.Locker
	lockPolicy   lock.RetryPolicy
	riskPolicy   domain.RiskPolicy
	loc          *time.Location
	allowAdvance bool
	workers      int
	now          func() time.Time
	newID        func() string
}

// ServiceOption is a functional option for configuring the ledger and accrual services
type ServiceOption func(*accountWriter)

// WithLocker sets the per-account locker. Services sharing one database must share one locker.
func WithLocker(l lock.Locker) ServiceOption {
	return func(w *accountWriter) { w.locker = l }
}

// WithLockPolicy sets how long a mutation waits for its account.
func WithLockPolicy(p lock.RetryPolicy) ServiceOption {
	return func(w *accountWriter) { w.lockPolicy = p }
}

// WithLocation sets the reference timezone for calendar dates.
func WithLocation(loc *time.Location) ServiceOption {
	return func(w *accountWriter) { w.loc = loc }
}

// WithOverpaymentAdvance credits payment excess to the advance balance instead of refusing it.
func WithOverpaymentAdvance(allow bool) ServiceOption {
	return func(w *accountWriter) { w.allowAdvance = allow }
}

// WithRiskPolicy overrides the classifier thresholds.
func WithRiskPolicy(p domain.RiskPolicy) ServiceOption {
	return func(w *accountWriter) { w.riskPolicy = p }
}

// WithAccrualWorkers bounds how many accounts accrue in parallel.
func WithAccrualWorkers(n int) ServiceOption {
	return func(w *accountWriter) {
		if n > 0 {
			w.workers = n
		}
	}
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) ServiceOption {
	return func(w *accountWriter) { w.now = now }
}

func newAccountWriter(accounts portsrepo.AccountRepositoryFacade, ledger portsrepo.LedgerRepositoryFacade, options ...ServiceOption) *accountWriter {
	w := &accountWriter{
		accounts:   accounts,
		ledger:     ledger,
		locker:     lock.NewMemoryLocker(),
		lockPolicy: lock.RetryPolicy{Wait: 2 * time.Second, Retries: 3, Backoff: 100 * time.Millisecond},
		riskPolicy: domain.DefaultRiskPolicy(),
		loc:        time.UTC,
		workers:    4,
		// Postgres keeps microseconds; truncating keeps statement tokens stable across stores.
		now:   func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
		newID: uuid.NewString,
	}
	for _, option := range options {
		option(w)
	}
	return w
}

// today is the current calendar date in the reference timezone.
func (w *accountWriter) today() time.Time {
	return domain.CalendarDate(w.now(), w.loc)
}

// mutation is the change applied to a locked, freshly loaded account. It may
// edit non-balance fields directly and returns the transaction to post, or nil
// for an account-only update. Balances move only through the transaction.
type mutation func(acc *domain.Account, now time.Time) (*domain.Transaction, error)

// mutate runs change on accountID under its lock. shopID may be empty for
// system callers that are not scoped to a shop.
func (w *accountWriter) mutate(ctx context.Context, op, shopID, accountID, userID string, amount decimal.Decimal, change mutation) (*domain.Account, *domain.Transaction, error) {
	release, err := lock.AcquireWithRetry(ctx, w.locker, accountID, w.lockPolicy)
	if err != nil {
		return nil, nil, ledgerErr(op, accountID, nil, amount, err)
	}
	defer release()

	acc, err := w.load(ctx, shopID, accountID)
	if err != nil {
		return nil, nil, ledgerErr(op, accountID, nil, amount, err)
	}
	switch acc.Status {
	case domain.StatusReconcileRequired:
		return nil, nil, ledgerErr(op, accountID, acc, amount, apperrors.ErrLedgerCorrupted)
	case domain.StatusClosed:
		return nil, nil, ledgerErr(op, accountID, acc, amount, apperrors.ErrAccountClosed)
	}
	before := *acc

	now := w.now()
	txn, err := change(acc, now)
	if err != nil {
		return nil, nil, ledgerErr(op, accountID, &before, amount, err)
	}

	if txn != nil {
		txn.AccountID = accountID
		txn.CreatedAt = now
		txn.CreatedBy = userID
		for i := range txn.Entries {
			txn.Entries[i].EntryID = w.newID()
			txn.Entries[i].TransactionID = txn.TransactionID
		}
		if err := txn.Validate(); err != nil {
			w.LogError(ctx, err, "Refusing to post unbalanced transaction", slog.String("account_id", accountID), slog.String("op", op))
			return nil, nil, ledgerErr(op, accountID, &before, amount, fmt.Errorf("%w: %v", apperrors.ErrInternal, err))
		}
		if err := accounting.ApplyEntries(acc, *txn); err != nil {
			return nil, nil, ledgerErr(op, accountID, &before, amount, fmt.Errorf("%w: %v", apperrors.ErrInvalidAmount, err))
		}
	}
	if acc.TotalDue().IsZero() {
		acc.PromisedReturnDate = nil
	}
	if !before.Accruing() && acc.Accruing() {
		acc.ResumeAccrual(domain.CalendarDate(now, w.loc))
	}

	if err := w.reclassify(ctx, acc, txn, now); err != nil {
		return nil, nil, ledgerErr(op, accountID, &before, amount, err)
	}
	acc.LastUpdatedAt = now
	acc.LastUpdatedBy = userID

	if txn != nil {
		// The account version a posting is written at orders the statement.
		txn.Seq = acc.Version + 1
		err = w.ledger.PostTransaction(ctx, *txn, *acc)
	} else {
		err = w.accounts.UpdateAccount(ctx, *acc)
	}
	if err != nil {
		return nil, nil, ledgerErr(op, accountID, &before, amount, err)
	}
	acc.Version++
	return acc, txn, nil
}

// load fetches an account and hides accounts of other shops.
func (w *accountWriter) load(ctx context.Context, shopID, accountID string) (*domain.Account, error) {
	acc, err := w.accounts.FindAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, err
	}
	if shopID != "" && acc.ShopID != shopID {
		return nil, apperrors.ErrAccountNotFound
	}
	return acc, nil
}

// assess runs the classifier over the stored payment history plus pending, if
// pending is a payment not yet persisted.
func (w *accountWriter) assess(ctx context.Context, acc domain.Account, pending *domain.Transaction, asOf time.Time) (domain.RiskAssessment, error) {
	payments, err := w.ledger.ListPayments(ctx, acc.AccountID)
	if err != nil {
		return domain.RiskAssessment{}, fmt.Errorf("failed to load payment history: %w", err)
	}
	if pending != nil && pending.Type == domain.TxnPayment {
		payments = append(payments, *pending)
	}
	history := make([]domain.PaymentRecord, len(payments))
	for i, p := range payments {
		history[i] = domain.PaymentRecord{DueDate: p.DueDate, PaidDate: domain.CalendarDate(p.CreatedAt, w.loc)}
	}
	return domain.ClassifyRisk(history, acc, domain.CalendarDate(asOf, w.loc), w.riskPolicy), nil
}

func (w *accountWriter) reclassify(ctx context.Context, acc *domain.Account, pending *domain.Transaction, now time.Time) error {
	risk, err := w.assess(ctx, *acc, pending, now)
	if err != nil {
		return err
	}
	acc.RiskLevel = risk.Level
	acc.RiskCategory = risk.Category
	return nil
}

// verify replays the ledger of acc against its cached balances.
func (w *accountWriter) verify(ctx context.Context, acc domain.Account) (*domain.Verification, []domain.Transaction, error) {
	history, err := w.ledger.ListAllTransactionsByAccount(ctx, acc.AccountID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	v := &domain.Verification{
		AccountID:    acc.AccountID,
		Cached:       acc.Balances(),
		Transactions: len(history),
		CheckedAt:    w.now(),
	}
	replayed, err := accounting.ReplayBalances(history)
	if err == nil {
		v.Replayed = replayed
		v.Consistent = replayed.Equal(v.Cached)
	} else {
		w.LogError(ctx, err, "Ledger replay failed", slog.String("account_id", acc.AccountID))
	}
	return v, history, nil
}

// verifyLocked re-runs verification under the account lock and halts the
// account when it still disagrees. Unlocked readers can observe a write in
// flight, so only a locked mismatch counts.
func (w *accountWriter) verifyLocked(ctx context.Context, shopID, accountID string) (*domain.Verification, []domain.Transaction, error) {
	release, err := lock.AcquireWithRetry(ctx, w.locker, accountID, w.lockPolicy)
	if err != nil {
		return nil, nil, err
	}
	defer release()

	acc, err := w.load(ctx, shopID, accountID)
	if err != nil {
		return nil, nil, err
	}
	v, history, err := w.verify(ctx, *acc)
	if err != nil || v.Consistent || acc.Status == domain.StatusReconcileRequired {
		return v, history, err
	}

	w.LogError(ctx, apperrors.ErrLedgerCorrupted, "Ledger does not match cached balances, halting account",
		slog.String("account_id", accountID),
		slog.String("cached_principal", v.Cached.Principal.String()),
		slog.String("replayed_principal", v.Replayed.Principal.String()))
	acc.Status = domain.StatusReconcileRequired
	acc.LastUpdatedAt = w.now()
	acc.LastUpdatedBy = "system"
	if err := w.accounts.UpdateAccount(ctx, *acc); err != nil {
		return nil, nil, fmt.Errorf("failed to halt corrupted account %s: %w", accountID, err)
	}
	return v, history, nil
}

func ledgerErr(op, accountID string, acc *domain.Account, amount decimal.Decimal, err error) error {
	le := &apperrors.LedgerError{Op: op, AccountID: accountID, Amount: amount, Err: err}
	if acc != nil {
		le.Outstanding = apperrors.Outstanding{
			Principal: acc.OutstandingPrincipal,
			Interest:  acc.OutstandingInterest,
			Penalty:   acc.OutstandingPenalty,
			Advance:   acc.AdvanceBalance,
		}
	}
	return le
}

func invalidAmount(amount decimal.Decimal) error {
	return fmt.Errorf("%w: %s must be positive with at most two decimals", apperrors.ErrInvalidAmount, amount.String())
}
