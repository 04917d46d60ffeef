package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SscSPs/bahi_khata/internal/apperrors"
	"github.com/SscSPs/bahi_khata/internal/core/domain"
	portsrepo "github.com/SscSPs/bahi_khata/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/bahi_khata/internal/core/ports/services"
	"github.com/SscSPs/bahi_khata/internal/dto"
	"github.com/SscSPs/bahi_khata/internal/utils/accounting"
	"github.com/shopspring/decimal"
)

type ledgerService struct {
	*accountWriter
}

// NewLedgerService creates a new LedgerService with the given repositories.
func NewLedgerService(accounts portsrepo.AccountRepositoryFacade, ledger portsrepo.LedgerRepositoryFacade, options ...ServiceOption) portssvc.LedgerSvcFacade {
	return &ledgerService{accountWriter: newAccountWriter(accounts, ledger, options...)}
}

var _ portssvc.LedgerSvcFacade = (*ledgerService)(nil)

func (s *ledgerService) OpenAccount(ctx context.Context, shopID string, req dto.OpenAccountRequest, userID string) (*domain.Account, error) {
	if strings.TrimSpace(shopID) == "" {
		return nil, fmt.Errorf("%w: shop id is required", apperrors.ErrValidation)
	}
	if req.CreditLimit.IsNegative() || !req.CreditLimit.Equal(req.CreditLimit.Truncate(2)) {
		return nil, fmt.Errorf("%w: credit limit must be zero or a positive amount with at most two decimals", apperrors.ErrValidation)
	}

	now := s.now()
	acc := domain.Account{
		AccountID:            s.newID(),
		ShopID:               shopID,
		CustomerID:           strings.TrimSpace(req.CustomerID),
		CustomerName:         strings.TrimSpace(req.CustomerName),
		Phone:                req.Phone,
		Village:              strings.TrimSpace(req.Village),
		CreditLimit:          req.CreditLimit,
		OutstandingPrincipal: decimal.Zero,
		OutstandingInterest:  decimal.Zero,
		OutstandingPenalty:   decimal.Zero,
		AdvanceBalance:       decimal.Zero,
		TotalPaid:            decimal.Zero,
		RiskCategory:         domain.RiskStandard,
		RiskLevel:            domain.RiskLow,
		ManualFlag:           domain.FlagNone,
		Status:               domain.StatusActive,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     userID,
			LastUpdatedAt: now,
			LastUpdatedBy: userID,
			Version:       1,
		},
	}
	if err := s.accounts.SaveAccount(ctx, acc); err != nil {
		s.LogError(ctx, err, "Failed to open account", slog.String("shop_id", shopID), slog.String("customer_id", acc.CustomerID))
		return nil, err
	}
	s.LogInfo(ctx, "Account opened", slog.String("account_id", acc.AccountID), slog.String("village", acc.Village))
	return &acc, nil
}

func (s *ledgerService) RecordSale(ctx context.Context, shopID, accountID string, req dto.RecordSaleRequest, userID string) (*domain.Receipt, error) {
	var promised *time.Time
	if req.PromisedReturnDate != nil && *req.PromisedReturnDate != "" {
		date, err := dto.ParseDate(*req.PromisedReturnDate)
		if err != nil {
			return nil, fmt.Errorf("%w: promised return date: %v", apperrors.ErrValidation, err)
		}
		promised = &date
	}

	acc, txn, err := s.mutate(ctx, "record sale", shopID, accountID, userID, req.Amount, func(acc *domain.Account, now time.Time) (*domain.Transaction, error) {
		if !accounting.ValidAmount(req.Amount) {
			return nil, invalidAmount(req.Amount)
		}
		if acc.ManualFlag == domain.FlagDoNotCredit {
			return nil, apperrors.ErrAccountBlocked
		}
		consumed := decimal.Min(acc.AdvanceBalance, req.Amount)
		if acc.CreditLimit.IsPositive() {
			exposure := acc.TotalDue().Add(req.Amount).Sub(consumed)
			if exposure.GreaterThan(acc.CreditLimit) {
				return nil, fmt.Errorf("%w: exposure would be %s against limit %s",
					apperrors.ErrCreditLimitExceeded, exposure.StringFixed(2), acc.CreditLimit.StringFixed(2))
			}
		}
		if promised != nil {
			if promised.Before(domain.CalendarDate(now, s.loc)) {
				return nil, fmt.Errorf("%w: promised return date %s is in the past", apperrors.ErrValidation, promised.Format(dto.DateLayout))
			}
			if acc.PromisedReturnDate == nil || acc.TotalDue().IsZero() || promised.Before(*acc.PromisedReturnDate) {
				acc.PromisedReturnDate = promised
			}
		}

		txn := &domain.Transaction{
			TransactionID: s.newID(),
			Type:          domain.TxnSaleOnCredit,
			Amount:        req.Amount,
			Notes:         req.Description,
			DueDate:       promised,
		}
		txn.AddPair(domain.BucketPrincipal, domain.BucketSales, req.Amount)
		txn.AddPair(domain.BucketAdvance, domain.BucketPrincipal, consumed)
		return txn, nil
	})
	if err != nil {
		s.logMutationError(ctx, err, "Failed to record sale", accountID)
		return nil, err
	}
	return receipt(acc, txn), nil
}

func (s *ledgerService) RecordPayment(ctx context.Context, shopID, accountID string, req dto.RecordPaymentRequest, userID string) (*domain.Receipt, error) {
	acc, txn, err := s.mutate(ctx, "record payment", shopID, accountID, userID, req.Amount, func(acc *domain.Account, now time.Time) (*domain.Transaction, error) {
		if !accounting.ValidAmount(req.Amount) {
			return nil, invalidAmount(req.Amount)
		}
		if !req.PaymentMethod.Valid() {
			return nil, fmt.Errorf("%w: unknown payment method '%s'", apperrors.ErrValidation, req.PaymentMethod)
		}
		alloc := accounting.AllocatePayment(req.Amount, acc.Balances())
		if alloc.Excess.IsPositive() && !s.allowAdvance {
			return nil, fmt.Errorf("%w: total due is %s", apperrors.ErrOverpaymentNotAllowed, acc.TotalDue().StringFixed(2))
		}

		txn := &domain.Transaction{
			TransactionID: s.newID(),
			Type:          domain.TxnPayment,
			Amount:        req.Amount,
			Notes:         req.Notes,
			PaymentMethod: req.PaymentMethod,
			DueDate:       acc.PromisedReturnDate,
		}
		alloc.Post(txn, s.allowAdvance)
		acc.TotalPaid = acc.TotalPaid.Add(req.Amount)
		return txn, nil
	})
	if err != nil {
		s.logMutationError(ctx, err, "Failed to record payment", accountID)
		return nil, err
	}
	return receipt(acc, txn), nil
}

func (s *ledgerService) RecordReturn(ctx context.Context, shopID, accountID string, req dto.RecordReturnRequest, userID string) (*domain.Receipt, error) {
	acc, txn, err := s.mutate(ctx, "record return", shopID, accountID, userID, req.Amount, func(acc *domain.Account, now time.Time) (*domain.Transaction, error) {
		if !accounting.ValidAmount(req.Amount) {
			return nil, invalidAmount(req.Amount)
		}
		if req.Amount.GreaterThan(acc.OutstandingPrincipal) {
			return nil, fmt.Errorf("%w: return of %s exceeds principal %s",
				apperrors.ErrInvalidAmount, req.Amount.StringFixed(2), acc.OutstandingPrincipal.StringFixed(2))
		}
		txn := &domain.Transaction{
			TransactionID: s.newID(),
			Type:          domain.TxnReturn,
			Amount:        req.Amount,
			Notes:         req.Reason,
		}
		txn.AddPair(domain.BucketSales, domain.BucketPrincipal, req.Amount)
		return txn, nil
	})
	if err != nil {
		s.logMutationError(ctx, err, "Failed to record return", accountID)
		return nil, err
	}
	return receipt(acc, txn), nil
}

func (s *ledgerService) RecordPenalty(ctx context.Context, shopID, accountID string, req dto.RecordPenaltyRequest, userID string) (*domain.Receipt, error) {
	acc, txn, err := s.mutate(ctx, "record penalty", shopID, accountID, userID, req.Amount, func(acc *domain.Account, now time.Time) (*domain.Transaction, error) {
		if !accounting.ValidAmount(req.Amount) {
			return nil, invalidAmount(req.Amount)
		}
		txn := &domain.Transaction{
			TransactionID: s.newID(),
			Type:          domain.TxnPenaltyApplied,
			Amount:        req.Amount,
			Notes:         req.Reason,
		}
		txn.AddPair(domain.BucketPenalty, domain.BucketPenaltyIncome, req.Amount)
		return txn, nil
	})
	if err != nil {
		s.logMutationError(ctx, err, "Failed to record penalty", accountID)
		return nil, err
	}
	return receipt(acc, txn), nil
}

func (s *ledgerService) RecordNpaWriteOff(ctx context.Context, shopID, accountID string, userID string) (*domain.Receipt, error) {
	acc, txn, err := s.mutate(ctx, "write off", shopID, accountID, userID, decimal.Zero, func(acc *domain.Account, now time.Time) (*domain.Transaction, error) {
		if !acc.OutstandingPrincipal.IsPositive() {
			return nil, apperrors.ErrNothingToWriteOff
		}
		txn := &domain.Transaction{
			TransactionID: s.newID(),
			Type:          domain.TxnNPAWriteOff,
			Amount:        acc.OutstandingPrincipal,
			Notes:         "principal written off as non-performing",
		}
		txn.AddPair(domain.BucketBadDebt, domain.BucketPrincipal, acc.OutstandingPrincipal)
		acc.ManualFlag = domain.FlagDoNotCredit
		writtenOff := now
		acc.WrittenOffAt = &writtenOff
		return txn, nil
	})
	if err != nil {
		s.logMutationError(ctx, err, "Failed to write off account", accountID)
		return nil, err
	}
	s.LogWarn(ctx, "Account written off", slog.String("account_id", accountID), slog.String("amount", txn.Amount.StringFixed(2)))
	return receipt(acc, txn), nil
}

func (s *ledgerService) SetManualFlag(ctx context.Context, shopID, accountID string, req dto.SetManualFlagRequest, userID string) (*domain.AccountSnapshot, error) {
	acc, _, err := s.mutate(ctx, "set manual flag", shopID, accountID, userID, decimal.Zero, func(acc *domain.Account, now time.Time) (*domain.Transaction, error) {
		if !req.Flag.Valid() {
			return nil, fmt.Errorf("%w: unknown manual flag '%s'", apperrors.ErrValidation, req.Flag)
		}
		acc.ManualFlag = req.Flag
		return nil, nil
	})
	if err != nil {
		s.logMutationError(ctx, err, "Failed to set manual flag", accountID)
		return nil, err
	}
	s.LogInfo(ctx, "Manual flag set", slog.String("account_id", accountID), slog.String("flag", string(req.Flag)), slog.String("reason", req.Reason))
	return s.snapshot(ctx, *acc)
}

func (s *ledgerService) SetInterestFreeze(ctx context.Context, shopID, accountID string, req dto.SetInterestFreezeRequest, userID string) (*domain.AccountSnapshot, error) {
	if req.Freeze == nil {
		return nil, fmt.Errorf("%w: freeze is required", apperrors.ErrValidation)
	}
	acc, _, err := s.mutate(ctx, "set interest freeze", shopID, accountID, userID, decimal.Zero, func(acc *domain.Account, now time.Time) (*domain.Transaction, error) {
		acc.FreezeInterest = *req.Freeze
		return nil, nil
	})
	if err != nil {
		s.logMutationError(ctx, err, "Failed to set interest freeze", accountID)
		return nil, err
	}
	s.LogInfo(ctx, "Interest freeze changed", slog.String("account_id", accountID), slog.Bool("freeze", *req.Freeze), slog.String("reason", req.Reason))
	return s.snapshot(ctx, *acc)
}

func (s *ledgerService) UpdateCustomer(ctx context.Context, shopID, accountID string, req dto.UpdateCustomerRequest, userID string) (*domain.Account, error) {
	if req.CustomerName == nil && req.Phone == nil && req.Village == nil {
		return nil, fmt.Errorf("%w: nothing to update", apperrors.ErrValidation)
	}
	var name, village string
	if req.CustomerName != nil {
		if name = strings.TrimSpace(*req.CustomerName); name == "" {
			return nil, fmt.Errorf("%w: customer name must not be empty", apperrors.ErrValidation)
		}
	}
	if req.Village != nil {
		if village = strings.TrimSpace(*req.Village); village == "" {
			return nil, fmt.Errorf("%w: village must not be empty", apperrors.ErrValidation)
		}
	}

	acc, _, err := s.mutate(ctx, "update customer", shopID, accountID, userID, decimal.Zero, func(acc *domain.Account, now time.Time) (*domain.Transaction, error) {
		if req.CustomerName != nil {
			acc.CustomerName = name
		}
		if req.Phone != nil {
			acc.Phone = *req.Phone
		}
		if req.Village != nil {
			acc.Village = village
		}
		return nil, nil
	})
	if err != nil {
		s.logMutationError(ctx, err, "Failed to update customer", accountID)
		return nil, err
	}
	s.LogInfo(ctx, "Customer details updated", slog.String("account_id", accountID), slog.String("village", acc.Village))
	return acc, nil
}

func (s *ledgerService) CloseAccount(ctx context.Context, shopID, accountID string, userID string) (*domain.Account, error) {
	acc, _, err := s.mutate(ctx, "close account", shopID, accountID, userID, decimal.Zero, func(acc *domain.Account, now time.Time) (*domain.Transaction, error) {
		if !acc.IsSettled() {
			return nil, fmt.Errorf("%w: account still has a balance of %s and advance of %s",
				apperrors.ErrValidation, acc.TotalDue().StringFixed(2), acc.AdvanceBalance.StringFixed(2))
		}
		acc.Status = domain.StatusClosed
		return nil, nil
	})
	if err != nil {
		s.logMutationError(ctx, err, "Failed to close account", accountID)
		return nil, err
	}
	return acc, nil
}

func (s *ledgerService) GetAccountSnapshot(ctx context.Context, shopID, accountID string) (*domain.AccountSnapshot, error) {
	acc, err := s.load(ctx, shopID, accountID)
	if err != nil {
		return nil, err
	}
	return s.snapshot(ctx, *acc)
}

// snapshot overlays the freshly derived risk on acc. Nothing is persisted.
func (s *ledgerService) snapshot(ctx context.Context, acc domain.Account) (*domain.AccountSnapshot, error) {
	risk, err := s.assess(ctx, acc, nil, s.now())
	if err != nil {
		return nil, err
	}
	acc.RiskLevel = risk.Level
	acc.RiskCategory = risk.Category
	return &domain.AccountSnapshot{
		Account:        acc,
		AutomatedFlags: risk.Flags,
		TotalDue:       acc.TotalDue(),
	}, nil
}

func (s *ledgerService) GetStatement(ctx context.Context, shopID, accountID string, limit int, afterToken *string) (*domain.Statement, error) {
	acc, err := s.load(ctx, shopID, accountID)
	if err != nil {
		return nil, err
	}

	if limit > 0 || (afterToken != nil && *afterToken != "") {
		txns, next, err := s.ledger.ListTransactionsByAccount(ctx, accountID, limit, afterToken)
		if err != nil {
			return nil, err
		}
		return &domain.Statement{AccountID: accountID, Transactions: txns, NextToken: next}, nil
	}

	v, history, err := s.verify(ctx, *acc)
	if err != nil {
		return nil, err
	}
	if !v.Consistent {
		// A write may have landed between the two reads; only a mismatch seen under the lock is corruption.
		v, history, err = s.verifyLocked(ctx, shopID, accountID)
		if err != nil {
			return nil, err
		}
		if !v.Consistent {
			return nil, &apperrors.LedgerError{Op: "read statement", AccountID: accountID, Err: apperrors.ErrLedgerCorrupted}
		}
	}
	return &domain.Statement{AccountID: accountID, Transactions: history, Verified: true}, nil
}

func (s *ledgerService) VerifyAccount(ctx context.Context, shopID, accountID string) (*domain.Verification, error) {
	v, _, err := s.verifyLocked(ctx, shopID, accountID)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (s *ledgerService) ListAccounts(ctx context.Context, shopID string, limit int, offset int) ([]domain.Account, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.accounts.ListAccounts(ctx, shopID, limit, offset)
}

// logMutationError logs caller mistakes at warn level and everything else as an error.
func (s *ledgerService) logMutationError(ctx context.Context, err error, msg, accountID string) {
	switch {
	case errors.Is(err, apperrors.ErrValidation), errors.Is(err, apperrors.ErrNotFound),
		errors.Is(err, apperrors.ErrAccountBlocked), errors.Is(err, apperrors.ErrOverpaymentNotAllowed),
		errors.Is(err, apperrors.ErrCreditLimitExceeded), errors.Is(err, apperrors.ErrNothingToWriteOff),
		errors.Is(err, apperrors.ErrAccountClosed), apperrors.IsTransient(err):
		s.LogWarn(ctx, msg, slog.String("account_id", accountID), slog.String("error", err.Error()))
	default:
		s.LogError(ctx, err, msg, slog.String("account_id", accountID))
	}
}

func receipt(acc *domain.Account, txn *domain.Transaction) *domain.Receipt {
	return &domain.Receipt{
		Transaction: *txn,
		Balances:    acc.Balances(),
		RiskLevel:   acc.RiskLevel,
	}
}
