package accounting

import "github.com/shopspring/decimal"

// ValidAmount reports whether amount is a positive rupee value with at most two decimals.
func ValidAmount(amount decimal.Decimal) bool {
	return amount.IsPositive() && amount.Equal(amount.Truncate(currencyScale))
}
