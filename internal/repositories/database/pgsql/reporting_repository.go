package pgsql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/SscSPs/bahi_khata/internal/core/domain"
	portsrepo "github.com/SscSPs/bahi_khata/internal/core/ports/repositories"
	"github.com/shopspring/decimal"
)

const totalDueExpr = `(outstanding_principal + outstanding_interest + outstanding_penalty)`

// reportingRepository runs aggregate queries through database/sql. Each call
// reads inside one read-only repeatable-read transaction.
type reportingRepository struct {
	db *sql.DB
}

// newReportingRepository creates a new reporting repository
func newReportingRepository(db *sql.DB) portsrepo.ReportingRepository {
	return &reportingRepository{db: db}
}

func (r *reportingRepository) snapshot(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return fmt.Errorf("failed to begin reporting snapshot: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to close reporting snapshot: %w", err)
	}
	return nil
}

// DashboardSummary aggregates every account of a shop.
func (r *reportingRepository) DashboardSummary(ctx context.Context, shopID string, asOf time.Time, overdueDays int) (*domain.DashboardSummary, error) {
	totalsQuery := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'ACTIVE'),
			COUNT(*) FILTER (WHERE risk_category = 'NPA'),
			COALESCE(SUM(outstanding_principal), 0),
			COALESCE(SUM(outstanding_interest), 0),
			COALESCE(SUM(outstanding_penalty), 0),
			COALESCE(SUM(total_paid), 0),
			COUNT(*) FILTER (WHERE promised_return_date IS NOT NULL AND ` + totalDueExpr + ` > 0
				AND $2::date - promised_return_date > $3),
			COALESCE(SUM(` + totalDueExpr + `) FILTER (WHERE promised_return_date IS NOT NULL AND ` + totalDueExpr + ` > 0
				AND $2::date - promised_return_date > $3), 0)
		FROM accounts
		WHERE shop_id = $1`
	levelsQuery := `
		SELECT risk_level, COUNT(*)
		FROM accounts
		WHERE shop_id = $1
		GROUP BY risk_level`

	sum := &domain.DashboardSummary{
		ShopID:      shopID,
		AsOf:        asOf,
		ByRiskLevel: map[domain.RiskLevel]int{},
	}
	err := r.snapshot(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, totalsQuery, shopID, asOf, overdueDays).Scan(
			&sum.TotalAccounts,
			&sum.ActiveAccounts,
			&sum.NPAAccounts,
			&sum.TotalPrincipal,
			&sum.TotalInterest,
			&sum.TotalPenalty,
			&sum.TotalCollected,
			&sum.OverdueAccounts,
			&sum.OverdueExposure,
		); err != nil {
			return fmt.Errorf("error querying dashboard totals: %w", err)
		}

		rows, err := tx.QueryContext(ctx, levelsQuery, shopID)
		if err != nil {
			return fmt.Errorf("error querying risk levels: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var level string
			var n int
			if err := rows.Scan(&level, &n); err != nil {
				return fmt.Errorf("error scanning risk level row: %w", err)
			}
			sum.ByRiskLevel[domain.RiskLevel(level)] = n
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return sum, nil
}

// VillageSummaries groups a shop's accounts by village, largest exposure first.
func (r *reportingRepository) VillageSummaries(ctx context.Context, shopID string) ([]domain.VillageSummary, error) {
	query := `
		SELECT
			village,
			COUNT(*),
			COALESCE(SUM(` + totalDueExpr + `), 0) AS outstanding,
			COALESCE(SUM(total_paid), 0),
			COUNT(*) FILTER (WHERE risk_level IN ('HIGH', 'CRITICAL')),
			COUNT(*) FILTER (WHERE risk_category = 'NPA')
		FROM accounts
		WHERE shop_id = $1
		GROUP BY village
		ORDER BY outstanding DESC, village`

	result := make([]domain.VillageSummary, 0)
	err := r.snapshot(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, query, shopID)
		if err != nil {
			return fmt.Errorf("error querying village summaries: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var v domain.VillageSummary
			if err := rows.Scan(&v.Village, &v.Accounts, &v.Outstanding, &v.Collected, &v.AtRisk, &v.NPA); err != nil {
				return fmt.Errorf("error scanning village summary row: %w", err)
			}
			if v.Accounts > 0 {
				v.AverageOutstanding = v.Outstanding.DivRound(decimal.NewFromInt(int64(v.Accounts)), 2)
			}
			result = append(result, v)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// OverdueAccounts lists accounts at least minDays past their promise, oldest promise first.
func (r *reportingRepository) OverdueAccounts(ctx context.Context, shopID string, asOf time.Time, minDays int, limit int) ([]domain.OverdueAccount, error) {
	query := `
		SELECT
			account_id, customer_name, phone, village, promised_return_date,
			$2::date - promised_return_date AS days_overdue,
			` + totalDueExpr + ` AS total_due,
			risk_level
		FROM accounts
		WHERE shop_id = $1
			AND promised_return_date IS NOT NULL
			AND ` + totalDueExpr + ` > 0
			AND $2::date - promised_return_date >= GREATEST($3, 1)
		ORDER BY promised_return_date, account_id
		LIMIT $4`

	var lim any
	if limit > 0 {
		lim = limit
	}

	result := make([]domain.OverdueAccount, 0)
	err := r.snapshot(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, query, shopID, asOf, minDays, lim)
		if err != nil {
			return fmt.Errorf("error querying overdue accounts: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var o domain.OverdueAccount
			var level string
			if err := rows.Scan(&o.AccountID, &o.CustomerName, &o.Phone, &o.Village, &o.PromisedReturnDate,
				&o.DaysOverdue, &o.TotalDue, &level); err != nil {
				return fmt.Errorf("error scanning overdue account row: %w", err)
			}
			o.PromisedReturnDate = domain.CalendarDate(o.PromisedReturnDate, time.UTC)
			o.RiskLevel = domain.RiskLevel(level)
			result = append(result, o)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// PaymentBehaviour counts on-time payers, frequent delayers and high-debt
// accounts of a shop. Paid dates are taken in loc.
func (r *reportingRepository) PaymentBehaviour(ctx context.Context, shopID string, loc *time.Location, policy domain.RiskPolicy) (*domain.PaymentBehaviour, error) {
	query := `
		WITH payments AS (
			SELECT
				t.account_id,
				(t.due_date IS NOT NULL AND (t.created_at AT TIME ZONE $2)::date > t.due_date) AS late,
				ROW_NUMBER() OVER (PARTITION BY t.account_id ORDER BY t.account_seq DESC) AS recency
			FROM ledger_transactions t
			JOIN accounts a ON a.account_id = t.account_id
			WHERE a.shop_id = $1 AND t.txn_type = 'PAYMENT'
		),
		per_account AS (
			SELECT
				account_id,
				COUNT(*) FILTER (WHERE late) AS late_payments,
				COUNT(*) FILTER (WHERE recency <= $3) AS recent_payments,
				COUNT(*) FILTER (WHERE recency <= $3 AND late) AS recent_late
			FROM payments
			GROUP BY account_id
		)
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE $3 > 0 AND p.recent_payments >= $3 AND p.recent_late = 0),
			COUNT(*) FILTER (WHERE p.late_payments >= $4),
			COUNT(*) FILTER (WHERE a.outstanding_principal + a.outstanding_interest > $5)
		FROM accounts a
		LEFT JOIN per_account p ON p.account_id = a.account_id
		WHERE a.shop_id = $1`

	if loc == nil {
		loc = time.UTC
	}
	report := &domain.PaymentBehaviour{ShopID: shopID}
	err := r.snapshot(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, query, shopID, loc.String(), policy.OnTimeWindow, policy.FrequentDelayCount, policy.HighDebtThreshold).Scan(
			&report.TotalAccounts,
			&report.OnTimePayers,
			&report.FrequentDelayers,
			&report.HighRiskAccounts,
		); err != nil {
			return fmt.Errorf("error querying payment behaviour: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// TransactionTotals groups a shop's postings created in [from, to) by type.
func (r *reportingRepository) TransactionTotals(ctx context.Context, shopID string, from, to time.Time) ([]domain.TransactionTypeTotal, error) {
	query := `
		SELECT t.txn_type, COUNT(*), COALESCE(SUM(t.amount), 0)
		FROM ledger_transactions t
		JOIN accounts a ON a.account_id = t.account_id
		WHERE a.shop_id = $1 AND t.created_at >= $2 AND t.created_at < $3
		GROUP BY t.txn_type
		ORDER BY t.txn_type`

	result := make([]domain.TransactionTypeTotal, 0)
	err := r.snapshot(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, query, shopID, from, to)
		if err != nil {
			return fmt.Errorf("error querying transaction totals: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var total domain.TransactionTypeTotal
			var txnType string
			if err := rows.Scan(&txnType, &total.Count, &total.Amount); err != nil {
				return fmt.Errorf("error scanning transaction total row: %w", err)
			}
			total.Type = domain.TransactionType(txnType)
			result = append(result, total)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
