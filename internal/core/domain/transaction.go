package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the economic event a transaction records.
type TransactionType string

const (
	TxnSaleOnCredit    TransactionType = "SALE_ON_CREDIT"
	TxnPayment         TransactionType = "PAYMENT"
	TxnInterestApplied TransactionType = "INTEREST_APPLIED"
	TxnReturn          TransactionType = "RETURN"
	TxnNPAWriteOff     TransactionType = "NPA_WRITE_OFF"
	TxnPenaltyApplied  TransactionType = "PENALTY_APPLIED"
)

// EntryType indicates whether a ledger line is a Debit or a Credit.
type EntryType string

const (
	Debit  EntryType = "DEBIT"
	Credit EntryType = "CREDIT"
)

// Bucket is the ledger column a line posts to.
type Bucket string

const (
	BucketPrincipal      Bucket = "PRINCIPAL"
	BucketInterest       Bucket = "INTEREST"
	BucketPenalty        Bucket = "PENALTY"
	BucketCash           Bucket = "CASH"
	BucketBadDebt        Bucket = "BAD_DEBT"
	BucketSales          Bucket = "SALES"
	BucketInterestIncome Bucket = "INTEREST_INCOME"
	BucketPenaltyIncome  Bucket = "PENALTY_INCOME"
	BucketAdvance        Bucket = "ADVANCE"
)

// DebitNormal reports whether a debit increases the bucket's balance.
func (b Bucket) DebitNormal() (bool, error) {
	switch b {
	case BucketPrincipal, BucketInterest, BucketPenalty, BucketCash, BucketBadDebt:
		return true, nil
	case BucketSales, BucketInterestIncome, BucketPenaltyIncome, BucketAdvance:
		return false, nil
	}
	return false, fmt.Errorf("unknown bucket '%s'", b)
}

// PaymentMethod is how a customer paid.
type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "CASH"
	PaymentUPI          PaymentMethod = "UPI"
	PaymentBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentCheque       PaymentMethod = "CHEQUE"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentUPI, PaymentBankTransfer, PaymentCheque:
		return true
	}
	return false
}

// LedgerEntry is one double-entry line of a transaction.
type LedgerEntry struct {
	EntryID       string          `json:"entryID"`
	TransactionID string          `json:"transactionID"`
	LineNo        int             `json:"lineNo"`
	EntryType     EntryType       `json:"entryType"`
	Bucket        Bucket          `json:"bucket"`
	Amount        decimal.Decimal `json:"amount"`
}

// Transaction is an immutable economic event on one account.
type Transaction struct {
	TransactionID string          `json:"transactionID"`
	AccountID     string          `json:"accountID"`
	Seq           int64           `json:"seq"`
	Type          TransactionType `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Notes         string          `json:"notes,omitempty"`
	PaymentMethod PaymentMethod   `json:"paymentMethod,omitempty"`
	DueDate       *time.Time      `json:"dueDate,omitempty"`
	AccrualDate   *time.Time      `json:"accrualDate,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	CreatedBy     string          `json:"createdBy"`
	Entries       []LedgerEntry   `json:"entries"`
}

// AddPair appends a balanced debit/credit pair. Zero amounts are ignored.
func (t *Transaction) AddPair(debit, credit Bucket, amount decimal.Decimal) {
	if !amount.IsPositive() {
		return
	}
	t.Entries = append(t.Entries,
		LedgerEntry{TransactionID: t.TransactionID, LineNo: len(t.Entries) + 1, EntryType: Debit, Bucket: debit, Amount: amount},
		LedgerEntry{TransactionID: t.TransactionID, LineNo: len(t.Entries) + 2, EntryType: Credit, Bucket: credit, Amount: amount},
	)
}

var (
	ErrTooFewEntries  = errors.New("transaction must have at least two entries")
	ErrUnbalanced     = errors.New("transaction debits and credits do not balance")
	ErrNonPositiveAmt = errors.New("entry amount must be positive")
)

// Validate checks the double-entry invariant.
func (t Transaction) Validate() error {
	if len(t.Entries) < 2 {
		return fmt.Errorf("%w: transaction %s has %d", ErrTooFewEntries, t.TransactionID, len(t.Entries))
	}
	debits, credits := decimal.Zero, decimal.Zero
	for _, e := range t.Entries {
		if !e.Amount.IsPositive() {
			return fmt.Errorf("%w: transaction %s line %d", ErrNonPositiveAmt, t.TransactionID, e.LineNo)
		}
		switch e.EntryType {
		case Debit:
			debits = debits.Add(e.Amount)
		case Credit:
			credits = credits.Add(e.Amount)
		default:
			return fmt.Errorf("unknown entry type '%s' in transaction %s", e.EntryType, t.TransactionID)
		}
	}
	if !debits.Equal(credits) {
		return fmt.Errorf("%w: transaction %s debits %s credits %s", ErrUnbalanced, t.TransactionID, debits, credits)
	}
	return nil
}

// Receipt is what a mutation returns to its caller.
type Receipt struct {
	Transaction Transaction `json:"transaction"`
	Balances    Balances    `json:"balances"`
	RiskLevel   RiskLevel   `json:"riskLevel"`
}

// Statement is one page of an account's history, oldest first.
type Statement struct {
	AccountID    string        `json:"accountID"`
	Transactions []Transaction `json:"transactions"`
	NextToken    *string       `json:"nextToken,omitempty"`
	// Verified is set only for full reads, after the entries were replayed against the cache.
	Verified bool `json:"verified"`
}
