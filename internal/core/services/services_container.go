package services

import (
	portsrepo "github.com/SscSPs/bahi_khata/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/bahi_khata/internal/core/ports/services"
	"github.com/SscSPs/bahi_khata/internal/platform/config"
	"github.com/SscSPs/bahi_khata/internal/platform/lock"
)

// NewServiceContainer creates a new service container with properly initialized dependencies.
// The ledger and accrual services share locker so they serialise on the same accounts.
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, locker lock.Locker) *portssvc.ServiceContainer {
	options := []ServiceOption{
		WithLocker(locker),
		WithLockPolicy(lock.RetryPolicy{Wait: cfg.LockWait, Retries: cfg.LockRetries, Backoff: cfg.LockBackoff}),
		WithLocation(cfg.Location),
		WithOverpaymentAdvance(cfg.OverpaymentPolicy == config.OverpaymentAdvance),
		WithAccrualWorkers(cfg.AccrualWorkers),
	}

	return &portssvc.ServiceContainer{
		Ledger:    NewLedgerService(repos.AccountRepo, repos.LedgerRepo, options...),
		Accrual:   NewAccrualService(repos.AccountRepo, repos.LedgerRepo, repos.AccrualRunRepo, options...),
		Reporting: NewReportingService(repos.ReportingRepo, WithReportingLocation(cfg.Location)),
	}
}
