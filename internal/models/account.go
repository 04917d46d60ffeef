package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a row of the accounts table. Nullable dates are pointers.
type Account struct {
	AccountID            string          `db:"account_id"`
	ShopID               string          `db:"shop_id"`
	CustomerID           string          `db:"customer_id"`
	CustomerName         string          `db:"customer_name"`
	Phone                string          `db:"phone"`
	Village              string          `db:"village"`
	CreditLimit          decimal.Decimal `db:"credit_limit"`
	OutstandingPrincipal decimal.Decimal `db:"outstanding_principal"`
	OutstandingInterest  decimal.Decimal `db:"outstanding_interest"`
	OutstandingPenalty   decimal.Decimal `db:"outstanding_penalty"`
	AdvanceBalance       decimal.Decimal `db:"advance_balance"`
	TotalPaid            decimal.Decimal `db:"total_paid"`
	PromisedReturnDate   *time.Time      `db:"promised_return_date"`
	FreezeInterest       bool            `db:"freeze_interest"`
	RiskCategory         string          `db:"risk_category"`
	RiskLevel            string          `db:"risk_level"`
	ManualFlag           string          `db:"manual_flag"`
	LastAccrualDate      *time.Time      `db:"last_accrual_date"`
	WrittenOffAt         *time.Time      `db:"written_off_at"`
	Status               string          `db:"status"`
	AuditFields
}
