package services

import (
	"context"
	"time"

	"github.com/SscSPs/bahi_khata/internal/core/domain"
)

// ReportingService defines the shop dashboards
type ReportingService interface {
	// DashboardSummary returns shop-wide exposure as of a date.
	DashboardSummary(ctx context.Context, shopID string, asOf time.Time) (*domain.DashboardSummary, error)

	// VillageSummaries returns per-village aggregates.
	VillageSummaries(ctx context.Context, shopID string) ([]domain.VillageSummary, error)

	// OverdueAccounts lists accounts at least minDays past their promise.
	OverdueAccounts(ctx context.Context, shopID string, asOf time.Time, minDays int, limit int) ([]domain.OverdueAccount, error)

	// PaymentBehaviour reports how the shop's customers repay.
	PaymentBehaviour(ctx context.Context, shopID string) (*domain.PaymentBehaviour, error)

	// TransactionSummary reports ledger activity over the last days calendar days, today included.
	TransactionSummary(ctx context.Context, shopID string, days int) (*domain.TransactionSummary, error)
}
