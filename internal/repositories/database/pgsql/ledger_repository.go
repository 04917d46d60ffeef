package pgsql

import (
	"context"
	"fmt"

	"github.com/SscSPs/bahi_khata/internal/apperrors"
	"github.com/SscSPs/bahi_khata/internal/core/domain"
	portsrepo "github.com/SscSPs/bahi_khata/internal/core/ports/repositories"
	"github.com/SscSPs/bahi_khata/internal/models"
	"github.com/SscSPs/bahi_khata/internal/utils/mapping"
	"github.com/SscSPs/bahi_khata/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	transactionColumns = `transaction_id, account_id, account_seq, txn_type, amount, notes, payment_method, due_date, accrual_date, created_at, created_by`
	accrualIndex       = "uq_ledger_transactions_accrual"
	defaultPageSize    = 20
)

// PgxLedgerRepository implements portsrepo.LedgerRepositoryFacade.
type PgxLedgerRepository struct {
	BaseRepository
}

func newPgxLedgerRepository(pool *pgxpool.Pool) *PgxLedgerRepository {
	return &PgxLedgerRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.LedgerRepositoryFacade = (*PgxLedgerRepository)(nil)

// PostTransaction appends the transaction and its entries and stores the
// account in one database transaction.
func (r *PgxLedgerRepository) PostTransaction(ctx context.Context, txn domain.Transaction, account domain.Account) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx) //nolint:errcheck

	mt, entries := mapping.ToModelTransaction(txn)
	insertTxn := `INSERT INTO ledger_transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);`
	_, err = tx.Exec(ctx, insertTxn,
		mt.TransactionID, mt.AccountID, mt.AccountSeq, mt.TxnType, mt.Amount, mt.Notes,
		mt.PaymentMethod, mt.DueDate, mt.AccrualDate, mt.CreatedAt, mt.CreatedBy,
	)
	if err != nil {
		if uniqueViolationOn(err, accrualIndex) {
			return fmt.Errorf("%w: account %s", apperrors.ErrAccrualAlreadyApplied, mt.AccountID)
		}
		return fmt.Errorf("failed to insert transaction %s: %w", mt.TransactionID, err)
	}

	batch := &pgx.Batch{}
	insertEntry := `INSERT INTO ledger_entries (entry_id, transaction_id, line_no, entry_type, bucket, amount)
		VALUES ($1, $2, $3, $4, $5, $6);`
	for _, e := range entries {
		batch.Queue(insertEntry, e.EntryID, e.TransactionID, e.LineNo, e.EntryType, e.Bucket, e.Amount)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert entries for transaction %s: %w", mt.TransactionID, err)
	}

	if err := updateAccount(ctx, tx, account); err != nil {
		return err
	}
	return r.Commit(ctx, tx)
}

// ListTransactionsByAccount returns one page of history, oldest first.
func (r *PgxLedgerRepository) ListTransactionsByAccount(ctx context.Context, accountID string, limit int, afterToken *string) ([]domain.Transaction, *string, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}

	var (
		rows pgx.Rows
		err  error
	)
	if afterToken != nil && *afterToken != "" {
		seq, id, decodeErr := pagination.DecodeToken(*afterToken)
		if decodeErr != nil {
			return nil, nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, decodeErr)
		}
		query := `SELECT ` + transactionColumns + `
			FROM ledger_transactions
			WHERE account_id = $1 AND (account_seq, transaction_id) > ($2, $3)
			ORDER BY account_seq, transaction_id
			LIMIT $4;`
		rows, err = r.Pool.Query(ctx, query, accountID, seq, id, limit+1)
	} else {
		query := `SELECT ` + transactionColumns + `
			FROM ledger_transactions
			WHERE account_id = $1
			ORDER BY account_seq, transaction_id
			LIMIT $2;`
		rows, err = r.Pool.Query(ctx, query, accountID, limit+1)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query transactions for account %s: %w", accountID, err)
	}
	txns, err := r.withEntries(ctx, rows)
	if err != nil {
		return nil, nil, err
	}

	if len(txns) <= limit {
		return txns, nil, nil
	}
	page := txns[:limit]
	last := page[limit-1]
	token := pagination.EncodeToken(last.Seq, last.TransactionID)
	return page, &token, nil
}

// ListAllTransactionsByAccount returns the full history, oldest first.
func (r *PgxLedgerRepository) ListAllTransactionsByAccount(ctx context.Context, accountID string) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM ledger_transactions
		WHERE account_id = $1
		ORDER BY account_seq, transaction_id;`
	rows, err := r.Pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history for account %s: %w", accountID, err)
	}
	return r.withEntries(ctx, rows)
}

// ListPayments returns payment transactions without entries.
func (r *PgxLedgerRepository) ListPayments(ctx context.Context, accountID string) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM ledger_transactions
		WHERE account_id = $1 AND txn_type = 'PAYMENT'
		ORDER BY account_seq, transaction_id;`
	rows, err := r.Pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments for account %s: %w", accountID, err)
	}
	ms, err := collectTransactions(rows)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Transaction, len(ms))
	for i, m := range ms {
		out[i] = mapping.ToDomainTransaction(m, nil)
		out[i].Entries = nil
	}
	return out, nil
}

func collectTransactions(rows pgx.Rows) ([]models.Transaction, error) {
	defer rows.Close()
	out := make([]models.Transaction, 0)
	for rows.Next() {
		var m models.Transaction
		if err := rows.Scan(
			&m.TransactionID, &m.AccountID, &m.AccountSeq, &m.TxnType, &m.Amount, &m.Notes,
			&m.PaymentMethod, &m.DueDate, &m.AccrualDate, &m.CreatedAt, &m.CreatedBy,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}
	return out, nil
}

// withEntries collects transaction rows and attaches their entries in line order.
func (r *PgxLedgerRepository) withEntries(ctx context.Context, rows pgx.Rows) ([]domain.Transaction, error) {
	ms, err := collectTransactions(rows)
	if err != nil {
		return nil, err
	}
	if len(ms) == 0 {
		return []domain.Transaction{}, nil
	}

	ids := make([]string, len(ms))
	for i, m := range ms {
		ids[i] = m.TransactionID
	}
	query := `SELECT entry_id, transaction_id, line_no, entry_type, bucket, amount
		FROM ledger_entries
		WHERE transaction_id = ANY($1)
		ORDER BY transaction_id, line_no;`
	entryRows, err := r.Pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	defer entryRows.Close()

	byTxn := make(map[string][]models.LedgerEntry, len(ms))
	for entryRows.Next() {
		var e models.LedgerEntry
		if err := entryRows.Scan(&e.EntryID, &e.TransactionID, &e.LineNo, &e.EntryType, &e.Bucket, &e.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry row: %w", err)
		}
		byTxn[e.TransactionID] = append(byTxn[e.TransactionID], e)
	}
	if err := entryRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger entry rows: %w", err)
	}

	out := make([]domain.Transaction, len(ms))
	for i, m := range ms {
		out[i] = mapping.ToDomainTransaction(m, byTxn[m.TransactionID])
	}
	return out, nil
}
