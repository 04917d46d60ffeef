package mapping

import (
	"testing"
	"time"

	"github.com/SscSPs/bahi_khata/internal/core/domain"
	"github.com/SscSPs/bahi_khata/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToModelTransaction_NullableColumns(t *testing.T) {
	sale := domain.Transaction{
		TransactionID: "txn-1",
		AccountID:     "acc-1",
		Type:          domain.TxnSaleOnCredit,
		Amount:        decimal.NewFromInt(500),
		Entries: []domain.LedgerEntry{
			{EntryID: "e-1", LineNo: 1, EntryType: domain.Debit, Bucket: domain.BucketPrincipal, Amount: decimal.NewFromInt(500)},
			{EntryID: "e-2", LineNo: 2, EntryType: domain.Credit, Bucket: domain.BucketSales, Amount: decimal.NewFromInt(500)},
		},
	}

	row, entries := ToModelTransaction(sale)
	assert.Nil(t, row.PaymentMethod, "only payments carry a method")
	assert.Nil(t, row.AccrualDate)
	require.Len(t, entries, 2)
	assert.Equal(t, "txn-1", entries[1].TransactionID)
	assert.Equal(t, "SALES", entries[1].Bucket)
}

func TestToDomainTransaction_NormalisesDates(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	method := "UPI"
	accrual := time.Date(2026, 1, 10, 0, 0, 0, 0, ist)

	got := ToDomainTransaction(models.Transaction{
		TransactionID: "txn-2",
		TxnType:       string(domain.TxnPayment),
		PaymentMethod: &method,
		AccrualDate:   &accrual,
		CreatedAt:     time.Date(2026, 1, 10, 9, 30, 0, 0, ist),
	}, nil)

	assert.Equal(t, domain.PaymentUPI, got.PaymentMethod)
	require.NotNil(t, got.AccrualDate)
	assert.Equal(t, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), *got.AccrualDate)
	assert.Equal(t, time.UTC, got.CreatedAt.Location())
	assert.Empty(t, got.Entries)
}
