package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AutomatedFlag is a behavioural signal derived from ledger history. It is
// recomputed on every read and never stored.
type AutomatedFlag string

const (
	FlagOnTimePayer    AutomatedFlag = "ON_TIME_PAYER"
	FlagFrequentDelays AutomatedFlag = "FREQUENT_DELAYS"
	FlagHighDebtRisk   AutomatedFlag = "HIGH_DEBT_RISK"
	FlagNPA            AutomatedFlag = "NPA"
)

// PaymentRecord is one payment as seen by the classifier. DueDate is the
// promised return date in force when the payment was made.
type PaymentRecord struct {
	DueDate  *time.Time
	PaidDate time.Time
}

// Late reports whether the payment arrived after its due date. A payment
// without a due date is never late.
func (p PaymentRecord) Late() bool {
	return p.DueDate != nil && p.PaidDate.After(*p.DueDate)
}

// RiskPolicy holds the classifier thresholds.
type RiskPolicy struct {
	HighDebtThreshold  decimal.Decimal
	OnTimeWindow       int
	FrequentDelayCount int
	NPAOverdueDays     int
}

// DefaultRiskPolicy returns the thresholds the product ships with.
func DefaultRiskPolicy() RiskPolicy {
	return RiskPolicy{
		HighDebtThreshold:  decimal.NewFromInt(50000),
		OnTimeWindow:       5,
		FrequentDelayCount: 3,
		NPAOverdueDays:     90,
	}
}

// RiskAssessment is the classifier output.
type RiskAssessment struct {
	Flags    []AutomatedFlag
	Level    RiskLevel
	Category RiskCategory
}

// Has reports whether flag was raised.
func (r RiskAssessment) Has(flag AutomatedFlag) bool {
	for _, f := range r.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// PaymentPattern reports whether the latest OnTimeWindow payments of history
// (oldest first) were all on time, and how many payments were late overall.
func PaymentPattern(history []PaymentRecord, policy RiskPolicy) (onTime bool, late int) {
	for _, p := range history {
		if p.Late() {
			late++
		}
	}
	if policy.OnTimeWindow > 0 && len(history) >= policy.OnTimeWindow {
		onTime = true
		for _, p := range history[len(history)-policy.OnTimeWindow:] {
			if p.Late() {
				onTime = false
				break
			}
		}
	}
	return onTime, late
}

// HighDebt reports whether principal and interest together exceed the threshold.
func (p RiskPolicy) HighDebt(acc Account) bool {
	return acc.OutstandingPrincipal.Add(acc.OutstandingInterest).GreaterThan(p.HighDebtThreshold)
}

// ClassifyRisk derives flags, level and category from payment history (oldest
// first) and the current account state as of the given calendar date.
func ClassifyRisk(history []PaymentRecord, acc Account, asOf time.Time, policy RiskPolicy) RiskAssessment {
	var flags []AutomatedFlag

	onTime, late := PaymentPattern(history, policy)
	if onTime {
		flags = append(flags, FlagOnTimePayer)
	}
	if late >= policy.FrequentDelayCount {
		flags = append(flags, FlagFrequentDelays)
	}
	if policy.HighDebt(acc) {
		flags = append(flags, FlagHighDebtRisk)
	}

	pastPromise := false
	if acc.PromisedReturnDate != nil && acc.TotalDue().IsPositive() {
		overdue := DaysBetween(*acc.PromisedReturnDate, asOf)
		pastPromise = overdue > 0
		if overdue > policy.NPAOverdueDays {
			flags = append(flags, FlagNPA)
		}
	}

	out := RiskAssessment{Flags: flags}
	hasNPA := out.Has(FlagNPA)
	highSignal := out.Has(FlagHighDebtRisk) || out.Has(FlagFrequentDelays)

	switch {
	case hasNPA, acc.ManualFlag == FlagNPAOverride, acc.ManualFlag == FlagDoNotCredit, acc.WrittenOffAt != nil:
		out.Level = RiskCritical
	case highSignal && acc.ManualFlag != FlagGood:
		out.Level = RiskHigh
	case onTime:
		out.Level = RiskLow
	case highSignal || late > 0 || pastPromise:
		out.Level = RiskMedium
	default:
		out.Level = RiskLow
	}

	switch {
	case hasNPA, acc.ManualFlag == FlagNPAOverride, acc.WrittenOffAt != nil:
		out.Category = RiskNPA
	case out.Level == RiskHigh, out.Level == RiskCritical:
		out.Category = RiskWatch
	default:
		out.Category = RiskStandard
	}
	return out
}
