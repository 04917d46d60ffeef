package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DashboardSummary is the shop-wide exposure picture.
type DashboardSummary struct {
	ShopID          string            `json:"shopID"`
	AsOf            time.Time         `json:"asOf"`
	TotalAccounts   int               `json:"totalAccounts"`
	ActiveAccounts  int               `json:"activeAccounts"`
	NPAAccounts     int               `json:"npaAccounts"`
	TotalPrincipal  decimal.Decimal   `json:"totalPrincipal"`
	TotalInterest   decimal.Decimal   `json:"totalInterest"`
	TotalPenalty    decimal.Decimal   `json:"totalPenalty"`
	TotalCollected  decimal.Decimal   `json:"totalCollected"`
	OverdueAccounts int               `json:"overdueAccounts"`
	OverdueExposure decimal.Decimal   `json:"overdueExposure"`
	ByRiskLevel     map[RiskLevel]int `json:"byRiskLevel"`
}

// TotalOutstanding is principal, interest and penalty across the shop.
func (s DashboardSummary) TotalOutstanding() decimal.Decimal {
	return s.TotalPrincipal.Add(s.TotalInterest).Add(s.TotalPenalty)
}

// VillageSummary aggregates accounts sharing a village.
type VillageSummary struct {
	Village            string          `json:"village"`
	Accounts           int             `json:"accounts"`
	Outstanding        decimal.Decimal `json:"outstanding"`
	Collected          decimal.Decimal `json:"collected"`
	AtRisk             int             `json:"atRisk"`
	NPA                int             `json:"npa"`
	AverageOutstanding decimal.Decimal `json:"averageOutstanding"`
}

// OverdueAccount is an account past its promised return date.
type OverdueAccount struct {
	AccountID          string          `json:"accountID"`
	CustomerName       string          `json:"customerName"`
	Phone              string          `json:"phone"`
	Village            string          `json:"village"`
	PromisedReturnDate time.Time       `json:"promisedReturnDate"`
	DaysOverdue        int             `json:"daysOverdue"`
	TotalDue           decimal.Decimal `json:"totalDue"`
	RiskLevel          RiskLevel       `json:"riskLevel"`
}

// PaymentBehaviour splits a shop's customers by how they repay, using the
// thresholds of the per-account flags.
type PaymentBehaviour struct {
	ShopID           string          `json:"shopID"`
	TotalAccounts    int             `json:"totalAccounts"`
	OnTimePayers     int             `json:"onTimePayers"`
	FrequentDelayers int             `json:"frequentDelayers"`
	HighRiskAccounts int             `json:"highRiskAccounts"`
	OnTimePercentage decimal.Decimal `json:"onTimePercentage"`
	RiskPercentage   decimal.Decimal `json:"riskPercentage"`
}

// Percentage is part of whole in percent, rounded to two places. An empty
// whole gives zero.
func Percentage(part, whole int) decimal.Decimal {
	if whole <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(part)).Mul(decimal.NewFromInt(100)).DivRound(decimal.NewFromInt(int64(whole)), 2)
}

// TransactionTypeTotal counts the postings of one type.
type TransactionTypeTotal struct {
	Type   TransactionType `json:"type"`
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// TransactionSummary is a shop's ledger activity over the last Days calendar
// days, From inclusive and To exclusive.
type TransactionSummary struct {
	ShopID            string                 `json:"shopID"`
	Days              int                    `json:"days"`
	From              time.Time              `json:"from"`
	To                time.Time              `json:"to"`
	TotalTransactions int                    `json:"totalTransactions"`
	ByType            []TransactionTypeTotal `json:"byType"`
}

// Count returns the postings of one type in the window.
func (s TransactionSummary) Count(t TransactionType) int {
	for _, tt := range s.ByType {
		if tt.Type == t {
			return tt.Count
		}
	}
	return 0
}
