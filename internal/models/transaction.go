package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a row of ledger_transactions. Rows are never updated.
type Transaction struct {
	TransactionID string          `db:"transaction_id"`
	AccountID     string          `db:"account_id"`
	AccountSeq    int64           `db:"account_seq"`
	TxnType       string          `db:"txn_type"`
	Amount        decimal.Decimal `db:"amount"`
	Notes         string          `db:"notes"`
	PaymentMethod *string         `db:"payment_method"` // payments only
	DueDate       *time.Time      `db:"due_date"`
	AccrualDate   *time.Time      `db:"accrual_date"` // interest only, unique per account
	CreatedAt     time.Time       `db:"created_at"`
	CreatedBy     string          `db:"created_by"`
}

// LedgerEntry is a row of ledger_entries.
type LedgerEntry struct {
	EntryID       string          `db:"entry_id"`
	TransactionID string          `db:"transaction_id"`
	LineNo        int             `db:"line_no"`
	EntryType     string          `db:"entry_type"`
	Bucket        string          `db:"bucket"`
	Amount        decimal.Decimal `db:"amount"`
}
