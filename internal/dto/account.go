package dto

import (
	"time"

	"github.com/SscSPs/bahi_khata/internal/core/domain"
	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// OpenAccountRequest defines the data needed to onboard a customer.
type OpenAccountRequest struct {
	CustomerID   string          `json:"customerID" binding:"required,max=64"`
	CustomerName string          `json:"customerName" binding:"required,max=200"`
	Phone        string          `json:"phone" binding:"omitempty,numeric,min=10,max=13"`
	Village      string          `json:"village" binding:"required,max=120"`
	CreditLimit  decimal.Decimal `json:"creditLimit"` // zero or omitted means unlimited
}

// UpdateCustomerRequest corrects the customer details of an account. Omitted
// fields are left unchanged.
type UpdateCustomerRequest struct {
	CustomerName *string `json:"customerName" binding:"omitempty,max=200"`
	Phone        *string `json:"phone" binding:"omitempty,numeric,min=10,max=13"`
	Village      *string `json:"village" binding:"omitempty,max=120"`
}

// SetManualFlagRequest sets or clears the operator flag.
type SetManualFlagRequest struct {
	Flag   domain.ManualFlag `json:"flag" binding:"required,manual_flag"`
	Reason string            `json:"reason" binding:"max=500"`
}

// SetInterestFreezeRequest pauses or resumes interest accrual.
type SetInterestFreezeRequest struct {
	Freeze *bool  `json:"freeze" binding:"required"`
	Reason string `json:"reason" binding:"max=500"`
}

// ListAccountsParams defines query parameters for listing accounts.
type ListAccountsParams struct {
	Limit  int `form:"limit,default=20" binding:"min=1,max=200"`
	Offset int `form:"offset,default=0" binding:"min=0"`
}

// ListAccountsResponse wraps one page of accounts.
type ListAccountsResponse struct {
	Accounts []AccountResponse `json:"accounts"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

// AccountResponse defines the data returned for an account.
type AccountResponse struct {
	AccountID            string               `json:"accountID"`
	CustomerID           string               `json:"customerID"`
	CustomerName         string               `json:"customerName"`
	Phone                string               `json:"phone,omitempty"`
	Village              string               `json:"village"`
	CreditLimit          decimal.Decimal      `json:"creditLimit"`
	OutstandingPrincipal decimal.Decimal      `json:"outstandingPrincipal"`
	OutstandingInterest  decimal.Decimal      `json:"outstandingInterest"`
	OutstandingPenalty   decimal.Decimal      `json:"outstandingPenalty"`
	AdvanceBalance       decimal.Decimal      `json:"advanceBalance"`
	TotalDue             decimal.Decimal      `json:"totalDue"`
	TotalPaid            decimal.Decimal      `json:"totalPaid"`
	PromisedReturnDate   *string              `json:"promisedReturnDate,omitempty"`
	LastAccrualDate      *string              `json:"lastAccrualDate,omitempty"`
	FreezeInterest       bool                 `json:"freezeInterest"`
	ManualFlag           domain.ManualFlag    `json:"manualFlag"`
	RiskLevel            domain.RiskLevel     `json:"riskLevel"`
	RiskCategory         domain.RiskCategory  `json:"riskCategory"`
	Status               domain.AccountStatus `json:"status"`
	WrittenOffAt         *time.Time           `json:"writtenOffAt,omitempty"`
	CreatedAt            time.Time            `json:"createdAt"`
	LastUpdatedAt        time.Time            `json:"lastUpdatedAt"`
}

// AccountSnapshotResponse adds the derived flags to an account.
type AccountSnapshotResponse struct {
	AccountResponse
	AutomatedFlags []domain.AutomatedFlag `json:"automatedFlags"`
}

// FormatDate renders a calendar date, nil stays nil.
func FormatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(DateLayout)
	return &s
}

// ParseDate parses a wire calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// ToAccountResponse converts a domain.Account to AccountResponse DTO
func ToAccountResponse(acc *domain.Account) AccountResponse {
	return AccountResponse{
		AccountID:            acc.AccountID,
		CustomerID:           acc.CustomerID,
		CustomerName:         acc.CustomerName,
		Phone:                acc.Phone,
		Village:              acc.Village,
		CreditLimit:          acc.CreditLimit,
		OutstandingPrincipal: acc.OutstandingPrincipal,
		OutstandingInterest:  acc.OutstandingInterest,
		OutstandingPenalty:   acc.OutstandingPenalty,
		AdvanceBalance:       acc.AdvanceBalance,
		TotalDue:             acc.TotalDue(),
		TotalPaid:            acc.TotalPaid,
		PromisedReturnDate:   FormatDate(acc.PromisedReturnDate),
		LastAccrualDate:      FormatDate(acc.LastAccrualDate),
		FreezeInterest:       acc.FreezeInterest,
		ManualFlag:           acc.ManualFlag,
		RiskLevel:            acc.RiskLevel,
		RiskCategory:         acc.RiskCategory,
		Status:               acc.Status,
		WrittenOffAt:         acc.WrittenOffAt,
		CreatedAt:            acc.CreatedAt,
		LastUpdatedAt:        acc.LastUpdatedAt,
	}
}

// ToListAccountResponse converts a slice of domain.Account to a slice of AccountResponse DTOs
func ToListAccountResponse(accounts []domain.Account) []AccountResponse {
	res := make([]AccountResponse, len(accounts))
	for i := range accounts {
		res[i] = ToAccountResponse(&accounts[i])
	}
	return res
}

// ToAccountSnapshotResponse converts a snapshot to its DTO.
func ToAccountSnapshotResponse(s *domain.AccountSnapshot) AccountSnapshotResponse {
	flags := s.AutomatedFlags
	if flags == nil {
		flags = []domain.AutomatedFlag{}
	}
	return AccountSnapshotResponse{
		AccountResponse: ToAccountResponse(&s.Account),
		AutomatedFlags:  flags,
	}
}
