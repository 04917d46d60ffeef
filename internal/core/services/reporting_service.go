package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SscSPs/bahi_khata/internal/apperrors"
	"github.com/SscSPs/bahi_khata/internal/core/domain"
	portsrepo "github.com/SscSPs/bahi_khata/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/bahi_khata/internal/core/ports/services"
)

// DashboardOverdueDays is how far past its promise an account must be to
// count towards dashboard overdue exposure.
const DashboardOverdueDays = 15

// Transaction summary window bounds, in calendar days.
const (
	DefaultSummaryDays = 30
	MaxSummaryDays     = 366
)

type reportingService struct {
	BaseService
	reportingRepo portsrepo.ReportingRepository
	loc           *time.Location
	riskPolicy    domain.RiskPolicy
	now           func() time.Time
}

// ReportingOption configures the reporting service.
type ReportingOption func(*reportingService)

// WithReportingLocation sets the timezone calendar days are counted in.
func WithReportingLocation(loc *time.Location) ReportingOption {
	return func(s *reportingService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithReportingRiskPolicy sets the thresholds behind the payment behaviour report.
func WithReportingRiskPolicy(p domain.RiskPolicy) ReportingOption {
	return func(s *reportingService) { s.riskPolicy = p }
}

// WithReportingClock replaces the wall clock.
func WithReportingClock(now func() time.Time) ReportingOption {
	return func(s *reportingService) { s.now = now }
}

// NewReportingService creates a new reporting service
func NewReportingService(reportingRepo portsrepo.ReportingRepository, options ...ReportingOption) portssvc.ReportingService {
	s := &reportingService{
		reportingRepo: reportingRepo,
		loc:           time.UTC,
		riskPolicy:    domain.DefaultRiskPolicy(),
		now:           time.Now,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

var _ portssvc.ReportingService = (*reportingService)(nil)

func requireShop(shopID string) error {
	if strings.TrimSpace(shopID) == "" {
		return fmt.Errorf("%w: shop id is required", apperrors.ErrValidation)
	}
	return nil
}

func (s *reportingService) DashboardSummary(ctx context.Context, shopID string, asOf time.Time) (*domain.DashboardSummary, error) {
	if err := requireShop(shopID); err != nil {
		return nil, err
	}
	summary, err := s.reportingRepo.DashboardSummary(ctx, shopID, asOf, DashboardOverdueDays)
	if err != nil {
		s.LogError(ctx, err, "Failed to build dashboard summary", slog.String("shop_id", shopID))
		return nil, err
	}
	return summary, nil
}

func (s *reportingService) VillageSummaries(ctx context.Context, shopID string) ([]domain.VillageSummary, error) {
	if err := requireShop(shopID); err != nil {
		return nil, err
	}
	villages, err := s.reportingRepo.VillageSummaries(ctx, shopID)
	if err != nil {
		s.LogError(ctx, err, "Failed to build village summaries", slog.String("shop_id", shopID))
		return nil, err
	}
	return villages, nil
}

func (s *reportingService) OverdueAccounts(ctx context.Context, shopID string, asOf time.Time, minDays int, limit int) ([]domain.OverdueAccount, error) {
	if err := requireShop(shopID); err != nil {
		return nil, err
	}
	if minDays < 0 {
		return nil, fmt.Errorf("%w: minDays must not be negative", apperrors.ErrValidation)
	}
	if limit <= 0 {
		limit = 50
	}
	accounts, err := s.reportingRepo.OverdueAccounts(ctx, shopID, asOf, minDays, limit)
	if err != nil {
		s.LogError(ctx, err, "Failed to list overdue accounts", slog.String("shop_id", shopID))
		return nil, err
	}
	return accounts, nil
}

func (s *reportingService) PaymentBehaviour(ctx context.Context, shopID string) (*domain.PaymentBehaviour, error) {
	if err := requireShop(shopID); err != nil {
		return nil, err
	}
	report, err := s.reportingRepo.PaymentBehaviour(ctx, shopID, s.loc, s.riskPolicy)
	if err != nil {
		s.LogError(ctx, err, "Failed to build payment behaviour report", slog.String("shop_id", shopID))
		return nil, err
	}
	report.ShopID = shopID
	report.OnTimePercentage = domain.Percentage(report.OnTimePayers, report.TotalAccounts)
	report.RiskPercentage = domain.Percentage(report.HighRiskAccounts, report.TotalAccounts)
	return report, nil
}

func (s *reportingService) TransactionSummary(ctx context.Context, shopID string, days int) (*domain.TransactionSummary, error) {
	if err := requireShop(shopID); err != nil {
		return nil, err
	}
	if days == 0 {
		days = DefaultSummaryDays
	}
	if days < 1 || days > MaxSummaryDays {
		return nil, fmt.Errorf("%w: days must be between 1 and %d", apperrors.ErrValidation, MaxSummaryDays)
	}

	now := s.now().In(s.loc)
	from := time.Date(now.Year(), now.Month(), now.Day()-(days-1), 0, 0, 0, 0, s.loc)
	to := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, s.loc)

	totals, err := s.reportingRepo.TransactionTotals(ctx, shopID, from, to)
	if err != nil {
		s.LogError(ctx, err, "Failed to build transaction summary", slog.String("shop_id", shopID), slog.Int("days", days))
		return nil, err
	}
	summary := &domain.TransactionSummary{
		ShopID: shopID,
		Days:   days,
		From:   from,
		To:     to,
		ByType: totals,
	}
	for _, t := range totals {
		summary.TotalTransactions += t.Count
	}
	return summary, nil
}
