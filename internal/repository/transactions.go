package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/tradeyard/vendor-ledger/internal/domain"
	"github.com/tradeyard/vendor-ledger/internal/models"
)

const transactionColumns = `id, vendor_id, amount, type, status, reference_number, description, metadata, created_at, updated_at`

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(
		&t.ID,
		&t.VendorID,
		&t.Amount,
		&t.Type,
		&t.Status,
		&t.ReferenceNumber,
		&t.Description,
		&t.Metadata,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (q *Queries) InsertTransaction(ctx context.Context, tx *models.Transaction) error {
	err := q.db.QueryRow(ctx, `
		INSERT INTO transactions (id, vendor_id, amount, type, status, reference_number, description, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING created_at, updated_at
	`, tx.ID, tx.VendorID, tx.Amount, tx.Type, tx.Status, tx.ReferenceNumber, tx.Description, tx.Metadata).
		Scan(&tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (q *Queries) GetTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	row := q.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

func (q *Queries) GetTransactionForUpdate(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	row := q.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, id)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("get transaction for update: %w", err)
	}
	return t, nil
}

func (q *Queries) ListTransactions(ctx context.Context, vendorID uuid.UUID, filter TransactionFilter, page Page) ([]models.Transaction, int64, error) {
	where := `WHERE vendor_id = $1`
	args := []any{vendorID}
	if filter.Type != nil {
		args = append(args, *filter.Type)
		where += fmt.Sprintf(" AND type = $%d", len(args))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}

	var total int64
	if err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM transactions `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	args = append(args, page.Limit(), page.Offset())
	query := fmt.Sprintf(
		`SELECT %s FROM transactions %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		transactionColumns, where, len(args)-1, len(args),
	)
	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, *t)
	}
	if rows.Err() != nil {
		return nil, 0, fmt.Errorf("transaction rows: %w", rows.Err())
	}
	return out, total, nil
}

func (q *Queries) SetTransactionStatus(ctx context.Context, id uuid.UUID, status domain.TransactionStatus) error {
	tag, err := q.db.Exec(ctx, `
		UPDATE transactions SET status = $1, updated_at = NOW() WHERE id = $2
	`, status, id)
	if err != nil {
		return fmt.Errorf("set transaction status: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return domain.ErrTransactionNotFound
	}
	return nil
}

func (q *Queries) VendorLedgerTotals(ctx context.Context, vendorID uuid.UUID) (LedgerTotals, error) {
	var totals LedgerTotals
	err := q.db.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE type IN ('earning', 'refund') AND status = 'completed'), 0),
			COALESCE(SUM(amount) FILTER (WHERE type IN ('withdrawal', 'fee') AND status = 'completed'), 0)
		FROM transactions
		WHERE vendor_id = $1
	`, vendorID).Scan(&totals.Earnings, &totals.Withdrawals)
	if err != nil {
		return LedgerTotals{}, fmt.Errorf("vendor ledger totals: %w", err)
	}
	return totals, nil
}

func (q *Queries) SumReservedWithdrawals(ctx context.Context, vendorID uuid.UUID, exclude *uuid.UUID) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM withdrawal_requests
		WHERE vendor_id = $1 AND status IN ('pending', 'approved', 'processing')
	`
	args := []any{vendorID}
	if exclude != nil {
		query += ` AND id <> $2`
		args = append(args, *exclude)
	}

	var reserved decimal.Decimal
	if err := q.db.QueryRow(ctx, query, args...).Scan(&reserved); err != nil {
		return decimal.Decimal{}, fmt.Errorf("sum reserved withdrawals: %w", err)
	}
	return reserved, nil
}
