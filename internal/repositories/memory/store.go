// Package memory is an in-process implementation of every repository port.
// It backs development mode and the service tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/SscSPs/bahi_khata/internal/apperrors"
	"github.com/SscSPs/bahi_khata/internal/core/domain"
	portsrepo "github.com/SscSPs/bahi_khata/internal/core/ports/repositories"
	"github.com/SscSPs/bahi_khata/internal/utils/pagination"
	"github.com/shopspring/decimal"
)

// Store keeps accounts, the ledger and accrual runs behind one RWMutex.
// Everything handed out is a copy.
type Store struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account
	ledger   map[string][]domain.Transaction
	accrued  map[string]struct{}
	runs     []domain.AccrualRun
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		accounts: make(map[string]*domain.Account),
		ledger:   make(map[string][]domain.Transaction),
		accrued:  make(map[string]struct{}),
	}
}

// NewRepositoryProvider exposes one Store through every repository port.
func NewRepositoryProvider(s *Store) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		AccountRepo:    s,
		LedgerRepo:     s,
		AccrualRunRepo: s,
		ReportingRepo:  s,
	}
}

var (
	_ portsrepo.AccountRepositoryFacade = (*Store)(nil)
	_ portsrepo.LedgerRepositoryFacade  = (*Store)(nil)
	_ portsrepo.AccrualRunRepository    = (*Store)(nil)
	_ portsrepo.ReportingRepository     = (*Store)(nil)
)

func accrualKey(accountID string, date time.Time) string {
	return accountID + "|" + date.Format("2006-01-02")
}

func copyTxn(t domain.Transaction) domain.Transaction {
	t.Entries = append([]domain.LedgerEntry(nil), t.Entries...)
	return t
}

// SaveAccount implements portsrepo.AccountWriter.
func (s *Store) SaveAccount(_ context.Context, account domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[account.AccountID]; ok {
		return fmt.Errorf("%w: account with ID %s already exists", apperrors.ErrDuplicate, account.AccountID)
	}
	for _, a := range s.accounts {
		if a.ShopID == account.ShopID && a.CustomerID == account.CustomerID {
			return fmt.Errorf("%w: customer %s already has an account", apperrors.ErrDuplicate, account.CustomerID)
		}
	}
	cp := account
	s.accounts[account.AccountID] = &cp
	return nil
}

// UpdateAccount implements portsrepo.AccountWriter.
func (s *Store) UpdateAccount(_ context.Context, account domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storeVersioned(account)
}

func (s *Store) storeVersioned(account domain.Account) error {
	current, ok := s.accounts[account.AccountID]
	if !ok {
		return apperrors.ErrAccountNotFound
	}
	if current.Version != account.Version {
		return fmt.Errorf("%w: account %s at version %d, write based on %d",
			apperrors.ErrConflict, account.AccountID, current.Version, account.Version)
	}
	cp := account
	cp.Version++
	s.accounts[account.AccountID] = &cp
	return nil
}

// FindAccountByID implements portsrepo.AccountReader.
func (s *Store) FindAccountByID(_ context.Context, accountID string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return nil, apperrors.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

// ListAccounts implements portsrepo.AccountReader.
func (s *Store) ListAccounts(_ context.Context, shopID string, limit int, offset int) ([]domain.Account, error) {
	s.mu.RLock()
	out := make([]domain.Account, 0)
	for _, a := range s.accounts {
		if a.ShopID == shopID {
			out = append(out, *a)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].AccountID < out[j].AccountID
	})
	if offset >= len(out) {
		return []domain.Account{}, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListAccrualCandidates implements portsrepo.AccountReader.
func (s *Store) ListAccrualCandidates(_ context.Context, accrualDate time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0)
	for id, a := range s.accounts {
		if a.AccrualEligible(accrualDate) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// PostTransaction implements portsrepo.LedgerWriter.
func (s *Store) PostTransaction(_ context.Context, txn domain.Transaction, account domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if txn.AccountID != account.AccountID {
		return fmt.Errorf("%w: transaction %s belongs to %s, not %s", apperrors.ErrValidation, txn.TransactionID, txn.AccountID, account.AccountID)
	}
	var key string
	if txn.AccrualDate != nil {
		key = accrualKey(txn.AccountID, *txn.AccrualDate)
		if _, dup := s.accrued[key]; dup {
			return apperrors.ErrAccrualAlreadyApplied
		}
	}
	if err := s.storeVersioned(account); err != nil {
		return err
	}
	if key != "" {
		s.accrued[key] = struct{}{}
	}
	s.ledger[txn.AccountID] = append(s.ledger[txn.AccountID], copyTxn(txn))
	return nil
}

func (s *Store) sortedHistory(accountID string) []domain.Transaction {
	s.mu.RLock()
	src := s.ledger[accountID]
	out := make([]domain.Transaction, len(src))
	for i, t := range src {
		out[i] = copyTxn(t)
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Seq != out[j].Seq {
			return out[i].Seq < out[j].Seq
		}
		return out[i].TransactionID < out[j].TransactionID
	})
	return out
}

// ListTransactionsByAccount implements portsrepo.LedgerReader.
func (s *Store) ListTransactionsByAccount(_ context.Context, accountID string, limit int, afterToken *string) ([]domain.Transaction, *string, error) {
	if limit <= 0 {
		limit = 20
	}
	all := s.sortedHistory(accountID)

	if afterToken != nil && *afterToken != "" {
		seq, id, err := pagination.DecodeToken(*afterToken)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}
		start := len(all)
		for i, t := range all {
			if pagination.After(t.Seq, t.TransactionID, seq, id) {
				start = i
				break
			}
		}
		all = all[start:]
	}

	if len(all) <= limit {
		return all, nil, nil
	}
	page := all[:limit]
	last := page[limit-1]
	token := pagination.EncodeToken(last.Seq, last.TransactionID)
	return page, &token, nil
}

// ListAllTransactionsByAccount implements portsrepo.LedgerReader.
func (s *Store) ListAllTransactionsByAccount(_ context.Context, accountID string) ([]domain.Transaction, error) {
	return s.sortedHistory(accountID), nil
}

// ListPayments implements portsrepo.LedgerReader.
func (s *Store) ListPayments(_ context.Context, accountID string) ([]domain.Transaction, error) {
	out := make([]domain.Transaction, 0)
	for _, t := range s.sortedHistory(accountID) {
		if t.Type == domain.TxnPayment {
			t.Entries = nil
			out = append(out, t)
		}
	}
	return out, nil
}

// SaveAccrualRun implements portsrepo.AccrualRunRepository.
func (s *Store) SaveAccrualRun(_ context.Context, run domain.AccrualRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run.Results = nil
	s.runs = append(s.runs, run)
	return nil
}

// FindLastCompletedRunDate implements portsrepo.AccrualRunRepository.
func (s *Store) FindLastCompletedRunDate(_ context.Context) (*time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var last *time.Time
	for _, r := range s.runs {
		if r.Completed() && (last == nil || r.AccrualDate.After(*last)) {
			d := r.AccrualDate
			last = &d
		}
	}
	return last, nil
}

// ListAccrualRuns implements portsrepo.AccrualRunRepository.
func (s *Store) ListAccrualRuns(_ context.Context, limit int) ([]domain.AccrualRun, error) {
	s.mu.RLock()
	out := append([]domain.AccrualRun(nil), s.runs...)
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) shopAccounts(shopID string) []domain.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Account, 0)
	for _, a := range s.accounts {
		if a.ShopID == shopID {
			out = append(out, *a)
		}
	}
	return out
}

// DashboardSummary implements portsrepo.ReportingRepository.
func (s *Store) DashboardSummary(_ context.Context, shopID string, asOf time.Time, overdueDays int) (*domain.DashboardSummary, error) {
	sum := &domain.DashboardSummary{
		ShopID:      shopID,
		AsOf:        asOf,
		ByRiskLevel: map[domain.RiskLevel]int{},
	}
	for _, a := range s.shopAccounts(shopID) {
		sum.TotalAccounts++
		if a.Status == domain.StatusActive {
			sum.ActiveAccounts++
		}
		if a.RiskCategory == domain.RiskNPA {
			sum.NPAAccounts++
		}
		sum.TotalPrincipal = sum.TotalPrincipal.Add(a.OutstandingPrincipal)
		sum.TotalInterest = sum.TotalInterest.Add(a.OutstandingInterest)
		sum.TotalPenalty = sum.TotalPenalty.Add(a.OutstandingPenalty)
		sum.TotalCollected = sum.TotalCollected.Add(a.TotalPaid)
		sum.ByRiskLevel[a.RiskLevel]++
		if a.PromisedReturnDate != nil && a.TotalDue().IsPositive() && domain.DaysBetween(*a.PromisedReturnDate, asOf) > overdueDays {
			sum.OverdueAccounts++
			sum.OverdueExposure = sum.OverdueExposure.Add(a.TotalDue())
		}
	}
	return sum, nil
}

// VillageSummaries implements portsrepo.ReportingRepository.
func (s *Store) VillageSummaries(_ context.Context, shopID string) ([]domain.VillageSummary, error) {
	byVillage := map[string]*domain.VillageSummary{}
	for _, a := range s.shopAccounts(shopID) {
		v, ok := byVillage[a.Village]
		if !ok {
			v = &domain.VillageSummary{Village: a.Village}
			byVillage[a.Village] = v
		}
		v.Accounts++
		v.Outstanding = v.Outstanding.Add(a.TotalDue())
		v.Collected = v.Collected.Add(a.TotalPaid)
		if a.RiskLevel == domain.RiskHigh || a.RiskLevel == domain.RiskCritical {
			v.AtRisk++
		}
		if a.RiskCategory == domain.RiskNPA {
			v.NPA++
		}
	}
	out := make([]domain.VillageSummary, 0, len(byVillage))
	for _, v := range byVillage {
		v.AverageOutstanding = v.Outstanding.DivRound(decimal.NewFromInt(int64(v.Accounts)), 2)
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Outstanding.Equal(out[j].Outstanding) {
			return out[i].Outstanding.GreaterThan(out[j].Outstanding)
		}
		return out[i].Village < out[j].Village
	})
	return out, nil
}

// OverdueAccounts implements portsrepo.ReportingRepository.
func (s *Store) OverdueAccounts(_ context.Context, shopID string, asOf time.Time, minDays int, limit int) ([]domain.OverdueAccount, error) {
	out := make([]domain.OverdueAccount, 0)
	for _, a := range s.shopAccounts(shopID) {
		if a.PromisedReturnDate == nil || !a.TotalDue().IsPositive() {
			continue
		}
		days := domain.DaysBetween(*a.PromisedReturnDate, asOf)
		if days < minDays || days <= 0 {
			continue
		}
		out = append(out, domain.OverdueAccount{
			AccountID:          a.AccountID,
			CustomerName:       a.CustomerName,
			Phone:              a.Phone,
			Village:            a.Village,
			PromisedReturnDate: *a.PromisedReturnDate,
			DaysOverdue:        days,
			TotalDue:           a.TotalDue(),
			RiskLevel:          a.RiskLevel,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PromisedReturnDate.Equal(out[j].PromisedReturnDate) {
			return out[i].PromisedReturnDate.Before(out[j].PromisedReturnDate)
		}
		return out[i].AccountID < out[j].AccountID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// PaymentBehaviour implements portsrepo.ReportingRepository.
func (s *Store) PaymentBehaviour(_ context.Context, shopID string, loc *time.Location, policy domain.RiskPolicy) (*domain.PaymentBehaviour, error) {
	report := &domain.PaymentBehaviour{ShopID: shopID}
	for _, a := range s.shopAccounts(shopID) {
		report.TotalAccounts++
		if policy.HighDebt(a) {
			report.HighRiskAccounts++
		}

		history := make([]domain.PaymentRecord, 0)
		for _, t := range s.sortedHistory(a.AccountID) {
			if t.Type == domain.TxnPayment {
				history = append(history, domain.PaymentRecord{DueDate: t.DueDate, PaidDate: domain.CalendarDate(t.CreatedAt, loc)})
			}
		}
		onTime, late := domain.PaymentPattern(history, policy)
		if onTime {
			report.OnTimePayers++
		}
		if late >= policy.FrequentDelayCount {
			report.FrequentDelayers++
		}
	}
	return report, nil
}

// TransactionTotals implements portsrepo.ReportingRepository.
func (s *Store) TransactionTotals(_ context.Context, shopID string, from, to time.Time) ([]domain.TransactionTypeTotal, error) {
	byType := map[domain.TransactionType]*domain.TransactionTypeTotal{}
	for _, a := range s.shopAccounts(shopID) {
		for _, t := range s.sortedHistory(a.AccountID) {
			if t.CreatedAt.Before(from) || !t.CreatedAt.Before(to) {
				continue
			}
			total, ok := byType[t.Type]
			if !ok {
				total = &domain.TransactionTypeTotal{Type: t.Type, Amount: decimal.Zero}
				byType[t.Type] = total
			}
			total.Count++
			total.Amount = total.Amount.Add(t.Amount)
		}
	}
	out := make([]domain.TransactionTypeTotal, 0, len(byType))
	for _, t := range byType {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out, nil
}
