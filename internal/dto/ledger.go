package dto

import (
	"time"

	"github.com/SscSPs/bahi_khata/internal/core/domain"
	"github.com/shopspring/decimal"
)

// RecordSaleRequest records goods or cash given on credit.
type RecordSaleRequest struct {
	Amount             decimal.Decimal `json:"amount"`
	PromisedReturnDate *string         `json:"promisedReturnDate" binding:"omitempty,datetime=2006-01-02"`
	Description        string          `json:"description" binding:"max=500"`
}

// RecordPaymentRequest records money received from the customer.
type RecordPaymentRequest struct {
	Amount        decimal.Decimal      `json:"amount"`
	PaymentMethod domain.PaymentMethod `json:"paymentMethod" binding:"required,payment_method"`
	Notes         string               `json:"notes" binding:"max=500"`
}

// RecordReturnRequest records goods returned against outstanding principal.
type RecordReturnRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason" binding:"required,max=500"`
}

// RecordPenaltyRequest levies a late fee.
type RecordPenaltyRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason" binding:"required,max=500"`
}

// StatementParams defines query parameters for a statement page.
// With neither set the whole history is returned and verified.
type StatementParams struct {
	Limit     int    `form:"limit" binding:"min=0,max=500"`
	NextToken string `form:"nextToken"`
}

// EntryResponse is one ledger line.
type EntryResponse struct {
	LineNo    int              `json:"lineNo"`
	EntryType domain.EntryType `json:"entryType"`
	Bucket    domain.Bucket    `json:"bucket"`
	Amount    decimal.Decimal  `json:"amount"`
}

// TransactionResponse defines the data returned for a ledger transaction.
type TransactionResponse struct {
	TransactionID string                 `json:"transactionID"`
	AccountID     string                 `json:"accountID"`
	Type          domain.TransactionType `json:"type"`
	Amount        decimal.Decimal        `json:"amount"`
	Notes         string                 `json:"notes,omitempty"`
	PaymentMethod domain.PaymentMethod   `json:"paymentMethod,omitempty"`
	DueDate       *string                `json:"dueDate,omitempty"`
	AccrualDate   *string                `json:"accrualDate,omitempty"`
	CreatedAt     time.Time              `json:"createdAt"`
	CreatedBy     string                 `json:"createdBy"`
	Entries       []EntryResponse        `json:"entries"`
}

// ReceiptResponse is returned by every posting.
type ReceiptResponse struct {
	Transaction TransactionResponse `json:"transaction"`
	Balances    domain.Balances     `json:"balances"`
	TotalDue    decimal.Decimal     `json:"totalDue"`
	RiskLevel   domain.RiskLevel    `json:"riskLevel"`
}

// StatementResponse is one statement page.
type StatementResponse struct {
	AccountID    string                `json:"accountID"`
	Transactions []TransactionResponse `json:"transactions"`
	NextToken    *string               `json:"nextToken,omitempty"`
	Verified     bool                  `json:"verified"`
}

// ToTransactionResponse converts a domain.Transaction to its DTO.
func ToTransactionResponse(t domain.Transaction) TransactionResponse {
	entries := make([]EntryResponse, len(t.Entries))
	for i, e := range t.Entries {
		entries[i] = EntryResponse{LineNo: e.LineNo, EntryType: e.EntryType, Bucket: e.Bucket, Amount: e.Amount}
	}
	return TransactionResponse{
		TransactionID: t.TransactionID,
		AccountID:     t.AccountID,
		Type:          t.Type,
		Amount:        t.Amount,
		Notes:         t.Notes,
		PaymentMethod: t.PaymentMethod,
		DueDate:       FormatDate(t.DueDate),
		AccrualDate:   FormatDate(t.AccrualDate),
		CreatedAt:     t.CreatedAt,
		CreatedBy:     t.CreatedBy,
		Entries:       entries,
	}
}

// ToReceiptResponse converts a receipt to its DTO.
func ToReceiptResponse(r *domain.Receipt) ReceiptResponse {
	return ReceiptResponse{
		Transaction: ToTransactionResponse(r.Transaction),
		Balances:    r.Balances,
		TotalDue:    r.Balances.Principal.Add(r.Balances.Interest).Add(r.Balances.Penalty),
		RiskLevel:   r.RiskLevel,
	}
}

// ToStatementResponse converts a statement page to its DTO.
func ToStatementResponse(s *domain.Statement) StatementResponse {
	txns := make([]TransactionResponse, len(s.Transactions))
	for i, t := range s.Transactions {
		txns[i] = ToTransactionResponse(t)
	}
	return StatementResponse{
		AccountID:    s.AccountID,
		Transactions: txns,
		NextToken:    s.NextToken,
		Verified:     s.Verified,
	}
}
