package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

func (q *Queries) VendorExists(ctx context.Context, vendorID uuid.UUID) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM vendors WHERE id = $1)`, vendorID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check vendor existence: %w", err)
	}
	return exists, nil
}

func (q *Queries) ListVendorAccountIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := q.db.Query(ctx, `SELECT vendor_id FROM vendor_accounts ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list vendor accounts: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan vendor account id: %w", err)
		}
		ids = append(ids, id)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("vendor account rows: %w", rows.Err())
	}
	return ids, nil
}

func (q *Queries) EnsureVendorAccount(ctx context.Context, vendorID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO vendor_accounts (vendor_id, created_at)
		VALUES ($1, NOW())
		ON CONFLICT (vendor_id) DO NOTHING
	`, vendorID)
	if err != nil {
		return fmt.Errorf("ensure vendor account: %w", err)
	}
	return nil
}

// LockVendorAccount serializes all balance-affecting operations for one
// vendor. Locks are never shared across vendors.
func (q *Queries) LockVendorAccount(ctx context.Context, vendorID uuid.UUID) error {
	var locked uuid.UUID
	err := q.db.QueryRow(ctx, `
		SELECT vendor_id FROM vendor_accounts WHERE vendor_id = $1 FOR UPDATE
	`, vendorID).Scan(&locked)
	if err != nil {
		return fmt.Errorf("lock vendor account %s: %w", vendorID, err)
	}
	return nil
}
