package accounting

import "github.com/shopspring/decimal"

var (
	monthlyRate   = decimal.RequireFromString("0.02")
	daysPerMonth  = decimal.NewFromInt(30)
	currencyScale = int32(2)
)

// DailyInterest is the simple daily interest on principal: principal * 2% / 30,
// rounded half-up to paise. It never looks at accrued interest.
func DailyInterest(principal decimal.Decimal) decimal.Decimal {
	if !principal.IsPositive() {
		return decimal.Zero
	}
	// DivRound keeps the intermediate at full precision before the single rounding step.
	return principal.Mul(monthlyRate).DivRound(daysPerMonth, currencyScale+8).Round(currencyScale)
}
