package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/tradeyard/vendor-ledger/internal/repository"
)

// Store defines the minimal data access contract required by services.
// repository.Store (Postgres) and repository.MemStore both satisfy it.
type Store interface {
	Querier() repository.Querier
	RunInTx(ctx context.Context, fn func(q repository.Querier) error) error
}

// VendorDirectory resolves vendor existence. Vendor identity and profile are
// owned by the marketplace core; this subsystem only checks that a vendor id
// refers to a real vendor.
type VendorDirectory interface {
	VendorExists(ctx context.Context, vendorID uuid.UUID) (bool, error)
}
