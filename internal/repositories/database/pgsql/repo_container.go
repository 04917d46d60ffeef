package pgsql

import (
	"database/sql"

	portsrepo "github.com/SscSPs/bahi_khata/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewRepositoryProvider wires the PostgreSQL repositories. Ledger writes go
// through the pgx pool; reports read through sqlDB.
func NewRepositoryProvider(dbPool *pgxpool.Pool, sqlDB *sql.DB) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		AccountRepo:    newPgxAccountRepository(dbPool),
		LedgerRepo:     newPgxLedgerRepository(dbPool),
		AccrualRunRepo: newPgxAccrualRunRepository(dbPool),
		ReportingRepo:  newReportingRepository(sqlDB),
	}
}
