package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/bahi_khata/internal/core/domain"
)

// ReportingRepository defines read-only aggregate queries. Each call reads
// one consistent snapshot and never blocks ledger writers.
type ReportingRepository interface {
	// DashboardSummary aggregates every account of a shop. Accounts more than
	// overdueDays past their promised date count as overdue exposure.
	DashboardSummary(ctx context.Context, shopID string, asOf time.Time, overdueDays int) (*domain.DashboardSummary, error)

	// VillageSummaries groups a shop's accounts by village.
	VillageSummaries(ctx context.Context, shopID string) ([]domain.VillageSummary, error)

	// OverdueAccounts lists accounts at least minDays past their promised date, oldest promise first.
	OverdueAccounts(ctx context.Context, shopID string, asOf time.Time, minDays int, limit int) ([]domain.OverdueAccount, error)

	// PaymentBehaviour counts on-time payers, frequent delayers and high-debt
	// accounts. A payment is late when its calendar date in loc is after the
	// due date it was made against.
	PaymentBehaviour(ctx context.Context, shopID string, loc *time.Location, policy domain.RiskPolicy) (*domain.PaymentBehaviour, error)

	// TransactionTotals groups the shop's postings created in [from, to) by type.
	TransactionTotals(ctx context.Context, shopID string, from, to time.Time) ([]domain.TransactionTypeTotal, error)
}
