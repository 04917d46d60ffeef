package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SscSPs/bahi_khata/internal/apperrors"
	"github.com/SscSPs/bahi_khata/internal/core/domain"
	portsrepo "github.com/SscSPs/bahi_khata/internal/core/ports/repositories"
	"github.com/SscSPs/bahi_khata/internal/models"
	"github.com/SscSPs/bahi_khata/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const accountColumns = `account_id, shop_id, customer_id, customer_name, phone, village,
	credit_limit, outstanding_principal, outstanding_interest, outstanding_penalty, advance_balance, total_paid,
	promised_return_date, freeze_interest, risk_category, risk_level, manual_flag,
	last_accrual_date, written_off_at, status,
	created_at, created_by, last_updated_at, last_updated_by, version`

// updateAccountSQL overwrites mutable fields only when the stored version matches.
const updateAccountSQL = `
	UPDATE accounts SET
		customer_name = $3, phone = $4, village = $5, credit_limit = $6,
		outstanding_principal = $7, outstanding_interest = $8, outstanding_penalty = $9,
		advance_balance = $10, total_paid = $11, promised_return_date = $12,
		freeze_interest = $13, risk_category = $14, risk_level = $15, manual_flag = $16,
		last_accrual_date = $17, written_off_at = $18, status = $19,
		last_updated_at = $20, last_updated_by = $21, version = version + 1
	WHERE account_id = $1 AND version = $2;
`

type PgxAccountRepository struct {
	BaseRepository
}

// newPgxAccountRepository creates a new repository for account data.
func newPgxAccountRepository(pool *pgxpool.Pool) *PgxAccountRepository {
	return &PgxAccountRepository{BaseRepository: BaseRepository{Pool: pool}}
}

// Ensure PgxAccountRepository implements portsrepo.AccountRepositoryFacade
var _ portsrepo.AccountRepositoryFacade = (*PgxAccountRepository)(nil)

func scanAccount(row pgx.Row) (models.Account, error) {
	var m models.Account
	err := row.Scan(
		&m.AccountID, &m.ShopID, &m.CustomerID, &m.CustomerName, &m.Phone, &m.Village,
		&m.CreditLimit, &m.OutstandingPrincipal, &m.OutstandingInterest, &m.OutstandingPenalty, &m.AdvanceBalance, &m.TotalPaid,
		&m.PromisedReturnDate, &m.FreezeInterest, &m.RiskCategory, &m.RiskLevel, &m.ManualFlag,
		&m.LastAccrualDate, &m.WrittenOffAt, &m.Status,
		&m.CreatedAt, &m.CreatedBy, &m.LastUpdatedAt, &m.LastUpdatedBy, &m.Version,
	)
	return m, err
}

// SaveAccount inserts a new account.
func (r *PgxAccountRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	m := mapping.ToModelAccount(account)
	query := `INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25);`

	_, err := r.Pool.Exec(ctx, query,
		m.AccountID, m.ShopID, m.CustomerID, m.CustomerName, m.Phone, m.Village,
		m.CreditLimit, m.OutstandingPrincipal, m.OutstandingInterest, m.OutstandingPenalty, m.AdvanceBalance, m.TotalPaid,
		m.PromisedReturnDate, m.FreezeInterest, m.RiskCategory, m.RiskLevel, m.ManualFlag,
		m.LastAccrualDate, m.WrittenOffAt, m.Status,
		m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy, m.Version,
	)
	if err != nil {
		if uniqueViolationOn(err, "") {
			return fmt.Errorf("%w: customer %s already has an account in shop %s", apperrors.ErrDuplicate, m.CustomerID, m.ShopID)
		}
		return fmt.Errorf("failed to save account %s: %w", m.AccountID, err)
	}
	return nil
}

// FindAccountByID retrieves an account by its ID.
func (r *PgxAccountRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_id = $1;`
	m, err := scanAccount(r.Pool.QueryRow(ctx, query, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to find account by ID %s: %w", accountID, err)
	}
	acc := mapping.ToDomainAccount(m)
	return &acc, nil
}

// ListAccounts retrieves a paginated list of accounts for a shop, oldest first.
func (r *PgxAccountRepository) ListAccounts(ctx context.Context, shopID string, limit int, offset int) ([]domain.Account, error) {
	query := `SELECT ` + accountColumns + `
		FROM accounts
		WHERE shop_id = $1
		ORDER BY created_at, account_id
		LIMIT $2 OFFSET $3;`

	rows, err := r.Pool.Query(ctx, query, shopID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts for shop %s: %w", shopID, err)
	}
	defer rows.Close()

	ms := make([]models.Account, 0, limit)
	for rows.Next() {
		m, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account row: %w", err)
		}
		ms = append(ms, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating account rows: %w", err)
	}
	return mapping.ToDomainAccounts(ms), nil
}

// ListAccrualCandidates returns accounts that look eligible for the given date.
func (r *PgxAccountRepository) ListAccrualCandidates(ctx context.Context, accrualDate time.Time) ([]string, error) {
	query := `
		SELECT account_id
		FROM accounts
		WHERE status = 'ACTIVE'
			AND freeze_interest = FALSE
			AND outstanding_principal > 0
			AND (last_accrual_date IS NULL OR last_accrual_date < $1)
		ORDER BY account_id;`

	rows, err := r.Pool.Query(ctx, query, accrualDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query accrual candidates: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to collect accrual candidates: %w", err)
	}
	return ids, nil
}

// UpdateAccount stores account if nobody else changed it since it was read.
func (r *PgxAccountRepository) UpdateAccount(ctx context.Context, account domain.Account) error {
	return updateAccount(ctx, r.Pool, account)
}

type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func updateAccount(ctx context.Context, db execer, account domain.Account) error {
	m := mapping.ToModelAccount(account)
	tag, err := db.Exec(ctx, updateAccountSQL,
		m.AccountID, m.Version, m.CustomerName, m.Phone, m.Village, m.CreditLimit,
		m.OutstandingPrincipal, m.OutstandingInterest, m.OutstandingPenalty,
		m.AdvanceBalance, m.TotalPaid, m.PromisedReturnDate,
		m.FreezeInterest, m.RiskCategory, m.RiskLevel, m.ManualFlag,
		m.LastAccrualDate, m.WrittenOffAt, m.Status,
		m.LastUpdatedAt, m.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to update account %s: %w", m.AccountID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: account %s changed since version %d", apperrors.ErrConflict, m.AccountID, m.Version)
	}
	return nil
}
