package accounting

import (
	"github.com/SscSPs/bahi_khata/internal/core/domain"
	"github.com/shopspring/decimal"
)

// Allocation is how one payment splits across the outstanding buckets.
type Allocation struct {
	Interest  decimal.Decimal
	Penalty   decimal.Decimal
	Principal decimal.Decimal
	Excess    decimal.Decimal
}

// AllocatePayment runs the waterfall in strict priority, interest then penalty
// then principal, in a single pass. Whatever is left is returned as Excess.
func AllocatePayment(amount decimal.Decimal, b domain.Balances) Allocation {
	remaining := amount
	take := func(outstanding decimal.Decimal) decimal.Decimal {
		cleared := decimal.Min(remaining, outstanding)
		if cleared.IsNegative() {
			cleared = decimal.Zero
		}
		remaining = remaining.Sub(cleared)
		return cleared
	}
	a := Allocation{}
	a.Interest = take(b.Interest)
	a.Penalty = take(b.Penalty)
	a.Principal = take(b.Principal)
	a.Excess = remaining
	return a
}

// Post adds the payment's entry pairs to txn, one per non-zero bucket.
// Excess is posted only when creditAdvance is set.
func (a Allocation) Post(txn *domain.Transaction, creditAdvance bool) {
	txn.AddPair(domain.BucketCash, domain.BucketInterest, a.Interest)
	txn.AddPair(domain.BucketCash, domain.BucketPenalty, a.Penalty)
	txn.AddPair(domain.BucketCash, domain.BucketPrincipal, a.Principal)
	if creditAdvance {
		txn.AddPair(domain.BucketCash, domain.BucketAdvance, a.Excess)
	}
}
