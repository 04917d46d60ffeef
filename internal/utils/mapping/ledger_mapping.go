package mapping

import (
	"time"

	"github.com/SscSPs/bahi_khata/internal/core/domain"
	"github.com/SscSPs/bahi_khata/internal/models"
)

// utcDate normalises a DATE column to midnight UTC, the domain's calendar date form.
func utcDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := domain.CalendarDate(*t, t.Location())
	return &d
}

// ToModelTransaction converts a domain Transaction to its row and entry rows
func ToModelTransaction(d domain.Transaction) (models.Transaction, []models.LedgerEntry) {
	var method *string
	if d.PaymentMethod != "" {
		m := string(d.PaymentMethod)
		method = &m
	}
	txn := models.Transaction{
		TransactionID: d.TransactionID,
		AccountID:     d.AccountID,
		AccountSeq:    d.Seq,
		TxnType:       string(d.Type),
		Amount:        d.Amount,
		Notes:         d.Notes,
		PaymentMethod: method,
		DueDate:       d.DueDate,
		AccrualDate:   d.AccrualDate,
		CreatedAt:     d.CreatedAt,
		CreatedBy:     d.CreatedBy,
	}
	entries := make([]models.LedgerEntry, len(d.Entries))
	for i, e := range d.Entries {
		entries[i] = models.LedgerEntry{
			EntryID:       e.EntryID,
			TransactionID: d.TransactionID,
			LineNo:        e.LineNo,
			EntryType:     string(e.EntryType),
			Bucket:        string(e.Bucket),
			Amount:        e.Amount,
		}
	}
	return txn, entries
}

// ToDomainTransaction converts a transaction row and its entry rows
func ToDomainTransaction(m models.Transaction, entries []models.LedgerEntry) domain.Transaction {
	txn := domain.Transaction{
		TransactionID: m.TransactionID,
		AccountID:     m.AccountID,
		Seq:           m.AccountSeq,
		Type:          domain.TransactionType(m.TxnType),
		Amount:        m.Amount,
		Notes:         m.Notes,
		DueDate:       utcDate(m.DueDate),
		AccrualDate:   utcDate(m.AccrualDate),
		CreatedAt:     m.CreatedAt.UTC(),
		CreatedBy:     m.CreatedBy,
		Entries:       make([]domain.LedgerEntry, len(entries)),
	}
	if m.PaymentMethod != nil {
		txn.PaymentMethod = domain.PaymentMethod(*m.PaymentMethod)
	}
	for i, e := range entries {
		txn.Entries[i] = domain.LedgerEntry{
			EntryID:       e.EntryID,
			TransactionID: e.TransactionID,
			LineNo:        e.LineNo,
			EntryType:     domain.EntryType(e.EntryType),
			Bucket:        domain.Bucket(e.Bucket),
			Amount:        e.Amount,
		}
	}
	return txn
}

// ToModelAccrualRun converts a domain AccrualRun to its row
func ToModelAccrualRun(d domain.AccrualRun) models.AccrualRun {
	return models.AccrualRun{
		RunID:          d.RunID,
		AccrualDate:    d.AccrualDate,
		StartedAt:      d.StartedAt,
		FinishedAt:     d.FinishedAt,
		Eligible:       d.Eligible,
		Accrued:        d.Accrued,
		Skipped:        d.Skipped,
		AlreadyApplied: d.AlreadyApplied,
		Failed:         d.Failed,
		TotalInterest:  d.TotalInterest,
		Cancelled:      d.Cancelled,
	}
}

// ToDomainAccrualRun converts an accrual run row
func ToDomainAccrualRun(m models.AccrualRun) domain.AccrualRun {
	return domain.AccrualRun{
		RunID:          m.RunID,
		AccrualDate:    domain.CalendarDate(m.AccrualDate, time.UTC),
		StartedAt:      m.StartedAt.UTC(),
		FinishedAt:     m.FinishedAt.UTC(),
		Eligible:       m.Eligible,
		Accrued:        m.Accrued,
		Skipped:        m.Skipped,
		AlreadyApplied: m.AlreadyApplied,
		Failed:         m.Failed,
		TotalInterest:  m.TotalInterest,
		Cancelled:      m.Cancelled,
	}
}
