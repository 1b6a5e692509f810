package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tradeyard/vendor-ledger/internal/domain"
	"github.com/tradeyard/vendor-ledger/internal/models"
)

const withdrawalColumns = `id, vendor_id, amount, account_name, account_number, bank_name, status, admin_notes, vendor_notes, transaction_id, created_at, updated_at`

func scanWithdrawal(row pgx.Row) (*models.WithdrawalRequest, error) {
	var w models.WithdrawalRequest
	err := row.Scan(
		&w.ID,
		&w.VendorID,
		&w.Amount,
		&w.BankDetails.AccountName,
		&w.BankDetails.AccountNumber,
		&w.BankDetails.BankName,
		&w.Status,
		&w.AdminNotes,
		&w.VendorNotes,
		&w.TransactionID,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (q *Queries) InsertWithdrawalRequest(ctx context.Context, req *models.WithdrawalRequest) error {
	err := q.db.QueryRow(ctx, `
		INSERT INTO withdrawal_requests (id, vendor_id, amount, account_name, account_number, bank_name, status, admin_notes, vendor_notes, transaction_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING created_at, updated_at
	`, req.ID, req.VendorID, req.Amount,
		req.BankDetails.AccountName, req.BankDetails.AccountNumber, req.BankDetails.BankName,
		req.Status, req.AdminNotes, req.VendorNotes, req.TransactionID).
		Scan(&req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert withdrawal request: %w", err)
	}
	return nil
}

func (q *Queries) GetWithdrawalRequest(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error) {
	row := q.db.QueryRow(ctx, `SELECT `+withdrawalColumns+` FROM withdrawal_requests WHERE id = $1`, id)
	w, err := scanWithdrawal(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWithdrawalNotFound
		}
		return nil, fmt.Errorf("get withdrawal request: %w", err)
	}
	return w, nil
}

func (q *Queries) GetWithdrawalRequestForUpdate(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error) {
	row := q.db.QueryRow(ctx, `SELECT `+withdrawalColumns+` FROM withdrawal_requests WHERE id = $1 FOR UPDATE`, id)
	w, err := scanWithdrawal(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWithdrawalNotFound
		}
		return nil, fmt.Errorf("get withdrawal request for update: %w", err)
	}
	return w, nil
}

func (q *Queries) ListWithdrawalRequests(ctx context.Context, vendorID uuid.UUID, status *domain.WithdrawalStatus, page Page) ([]models.WithdrawalRequest, int64, error) {
	where := `WHERE vendor_id = $1`
	args := []any{vendorID}
	if status != nil {
		args = append(args, *status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var total int64
	if err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM withdrawal_requests `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count withdrawal requests: %w", err)
	}

	args = append(args, page.Limit(), page.Offset())
	query := fmt.Sprintf(
		`SELECT %s FROM withdrawal_requests %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		withdrawalColumns, where, len(args)-1, len(args),
	)
	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list withdrawal requests: %w", err)
	}
	defer rows.Close()

	var out []models.WithdrawalRequest
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan withdrawal request: %w", err)
		}
		out = append(out, *w)
	}
	if rows.Err() != nil {
		return nil, 0, fmt.Errorf("withdrawal request rows: %w", rows.Err())
	}
	return out, total, nil
}

func (q *Queries) UpdateWithdrawalRequest(ctx context.Context, req *models.WithdrawalRequest) error {
	err := q.db.QueryRow(ctx, `
		UPDATE withdrawal_requests
		SET status = $1, admin_notes = $2, transaction_id = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING updated_at
	`, req.Status, req.AdminNotes, req.TransactionID, req.ID).Scan(&req.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrWithdrawalNotFound
		}
		return fmt.Errorf("update withdrawal request: %w", err)
	}
	return nil
}
