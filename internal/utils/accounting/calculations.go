package accounting

import (
	"fmt"

	"github.com/SscSPs/bahi_khata/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CalculateSignedAmount applies the correct sign to an entry amount based on
// the bucket's normal side.
// DEBIT to a debit-normal bucket -> Positive (+)
// CREDIT to a debit-normal bucket -> Negative (-)
// CREDIT to a credit-normal bucket -> Positive (+)
// DEBIT to a credit-normal bucket -> Negative (-)
func CalculateSignedAmount(entry domain.LedgerEntry) (decimal.Decimal, error) {
	debitNormal, err := entry.Bucket.DebitNormal()
	if err != nil {
		return decimal.Zero, fmt.Errorf("entry %d of transaction %s: %w", entry.LineNo, entry.TransactionID, err)
	}
	isDebit := entry.EntryType == domain.Debit
	if isDebit == debitNormal {
		return entry.Amount, nil
	}
	return entry.Amount.Neg(), nil
}

// ReplayBalances recomputes the account buckets from its full transaction
// history. Every transaction is validated on the way.
func ReplayBalances(transactions []domain.Transaction) (domain.Balances, error) {
	totals := map[domain.Bucket]decimal.Decimal{}
	for _, txn := range transactions {
		if err := txn.Validate(); err != nil {
			return domain.Balances{}, err
		}
		for _, e := range txn.Entries {
			signed, err := CalculateSignedAmount(e)
			if err != nil {
				return domain.Balances{}, err
			}
			totals[e.Bucket] = totals[e.Bucket].Add(signed)
		}
	}
	return domain.Balances{
		Principal: totals[domain.BucketPrincipal],
		Interest:  totals[domain.BucketInterest],
		Penalty:   totals[domain.BucketPenalty],
		Advance:   totals[domain.BucketAdvance],
	}, nil
}

// ApplyEntries moves the cached account balances by the entries of one
// transaction. It fails if any balance would go negative.
func ApplyEntries(acc *domain.Account, txn domain.Transaction) error {
	b := acc.Balances()
	for _, e := range txn.Entries {
		signed, err := CalculateSignedAmount(e)
		if err != nil {
			return err
		}
		switch e.Bucket {
		case domain.BucketPrincipal:
			b.Principal = b.Principal.Add(signed)
		case domain.BucketInterest:
			b.Interest = b.Interest.Add(signed)
		case domain.BucketPenalty:
			b.Penalty = b.Penalty.Add(signed)
		case domain.BucketAdvance:
			b.Advance = b.Advance.Add(signed)
		}
	}
	if b.Principal.IsNegative() || b.Interest.IsNegative() || b.Penalty.IsNegative() || b.Advance.IsNegative() {
		return fmt.Errorf("transaction %s would leave account %s negative", txn.TransactionID, acc.AccountID)
	}
	acc.OutstandingPrincipal = b.Principal
	acc.OutstandingInterest = b.Interest
	acc.OutstandingPenalty = b.Penalty
	acc.AdvanceBalance = b.Advance
	return nil
}
