package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RiskCategory is the regulatory-style bucket an account falls into.
type RiskCategory string

const (
	RiskStandard RiskCategory = "STANDARD"
	RiskWatch    RiskCategory = "WATCH"
	RiskNPA      RiskCategory = "NPA"
)

// RiskLevel is the derived severity shown to the shopkeeper.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// ManualFlag is the operator-set override on an account. Only one can be in force.
type ManualFlag string

const (
	FlagNone        ManualFlag = "NONE"
	FlagGood        ManualFlag = "GOOD"
	FlagDoNotCredit ManualFlag = "DO_NOT_CREDIT"
	FlagNPAOverride ManualFlag = "NPA_OVERRIDE"
)

// Valid reports whether f is one of the known flags.
func (f ManualFlag) Valid() bool {
	switch f {
	case FlagNone, FlagGood, FlagDoNotCredit, FlagNPAOverride:
		return true
	}
	return false
}

// AccountStatus is the lifecycle state of an account.
type AccountStatus string

const (
	StatusActive            AccountStatus = "ACTIVE"
	StatusClosed            AccountStatus = "CLOSED"
	StatusReconcileRequired AccountStatus = "RECONCILE_REQUIRED"
)

// Account is one customer's running khata with a shop. It caches the totals
// derived from its ledger entries.
type Account struct {
	AccountID    string          `json:"accountID"`
	ShopID       string          `json:"shopID"`
	CustomerID   string          `json:"customerID"`
	CustomerName string          `json:"customerName"`
	Phone        string          `json:"phone"`
	Village      string          `json:"village"`
	CreditLimit  decimal.Decimal `json:"creditLimit"` // zero means unlimited

	OutstandingPrincipal decimal.Decimal `json:"outstandingPrincipal"`
	OutstandingInterest  decimal.Decimal `json:"outstandingInterest"`
	OutstandingPenalty   decimal.Decimal `json:"outstandingPenalty"`
	AdvanceBalance       decimal.Decimal `json:"advanceBalance"`
	TotalPaid            decimal.Decimal `json:"totalPaid"`

	PromisedReturnDate *time.Time    `json:"promisedReturnDate,omitempty"`
	FreezeInterest     bool          `json:"freezeInterest"`
	RiskCategory       RiskCategory  `json:"riskCategory"`
	RiskLevel          RiskLevel     `json:"riskLevel"`
	ManualFlag         ManualFlag    `json:"manualFlag"`
	LastAccrualDate    *time.Time    `json:"lastAccrualDate,omitempty"`
	WrittenOffAt       *time.Time    `json:"writtenOffAt,omitempty"`
	Status             AccountStatus `json:"status"`
	AuditFields
}

// TotalDue is everything the customer currently owes.
func (a Account) TotalDue() decimal.Decimal {
	return a.OutstandingPrincipal.Add(a.OutstandingInterest).Add(a.OutstandingPenalty)
}

// Balances returns the cached bucket balances.
func (a Account) Balances() Balances {
	return Balances{
		Principal: a.OutstandingPrincipal,
		Interest:  a.OutstandingInterest,
		Penalty:   a.OutstandingPenalty,
		Advance:   a.AdvanceBalance,
	}
}

// IsSettled reports whether nothing is owed in either direction.
func (a Account) IsSettled() bool {
	return a.TotalDue().IsZero() && a.AdvanceBalance.IsZero()
}

// AccrualEligible reports whether interest may be accrued for the given calendar date.
func (a Account) AccrualEligible(date time.Time) bool {
	if a.Status != StatusActive || a.FreezeInterest || !a.OutstandingPrincipal.IsPositive() {
		return false
	}
	return a.LastAccrualDate == nil || a.LastAccrualDate.Before(date)
}

// Accruing reports whether the account currently earns interest.
func (a Account) Accruing() bool {
	return a.Status == StatusActive && !a.FreezeInterest && a.OutstandingPrincipal.IsPositive()
}

// ResumeAccrual restarts the accrual clock when an account starts earning
// interest again, so days spent frozen or settled are never backfilled.
// Interest runs from today.
func (a *Account) ResumeAccrual(today time.Time) {
	from := today.AddDate(0, 0, -1)
	if a.LastAccrualDate == nil || a.LastAccrualDate.Before(from) {
		a.LastAccrualDate = &from
	}
}

// NextAccrualDate is the oldest date up to upTo the account still owes a day
// of interest for. Backlogs older than maxDays are dropped.
func (a Account) NextAccrualDate(upTo time.Time, maxDays int) (time.Time, bool) {
	if !a.AccrualEligible(upTo) {
		return time.Time{}, false
	}
	if a.LastAccrualDate == nil {
		return upTo, true
	}
	next := a.LastAccrualDate.AddDate(0, 0, 1)
	if oldest := upTo.AddDate(0, 0, -(maxDays - 1)); maxDays > 0 && next.Before(oldest) {
		next = oldest
	}
	return next, true
}

// Balances are the receivable and advance positions of an account.
type Balances struct {
	Principal decimal.Decimal `json:"principal"`
	Interest  decimal.Decimal `json:"interest"`
	Penalty   decimal.Decimal `json:"penalty"`
	Advance   decimal.Decimal `json:"advance"`
}

// Equal compares balances by value.
func (b Balances) Equal(o Balances) bool {
	return b.Principal.Equal(o.Principal) &&
		b.Interest.Equal(o.Interest) &&
		b.Penalty.Equal(o.Penalty) &&
		b.Advance.Equal(o.Advance)
}

// AccountSnapshot is the read view of an account with its derived flags.
type AccountSnapshot struct {
	Account        Account         `json:"account"`
	AutomatedFlags []AutomatedFlag `json:"automatedFlags"`
	TotalDue       decimal.Decimal `json:"totalDue"`
}

// Verification is the outcome of replaying an account's entries against its cache.
type Verification struct {
	AccountID    string    `json:"accountID"`
	Cached       Balances  `json:"cached"`
	Replayed     Balances  `json:"replayed"`
	Transactions int       `json:"transactions"`
	Consistent   bool      `json:"consistent"`
	CheckedAt    time.Time `json:"checkedAt"`
}
