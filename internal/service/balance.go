package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tradeyard/vendor-ledger/internal/models"
	"github.com/tradeyard/vendor-ledger/internal/repository"
)

// balanceSnapshot recomputes the vendor's derived balance from the ledger:
//
//	available = completed(earning+refund) - completed(withdrawal+fee) - reserved
//
// where reserved sums the vendor's withdrawal requests in pending, approved
// or processing. A linked pending withdrawal transaction mirrors its approved
// request and is deliberately not counted a second time.
//
// exclude drops one request from the reservation sum: a request under
// decision already reserves its own amount, so its guard compares against the
// balance without itself.
//
// Callers making balance-dependent decisions must hold the vendor account
// lock in the same transaction.
func balanceSnapshot(ctx context.Context, q repository.Querier, vendorID uuid.UUID, exclude *uuid.UUID) (*models.Balance, error) {
	totals, err := q.VendorLedgerTotals(ctx, vendorID)
	if err != nil {
		return nil, fmt.Errorf("ledger totals for vendor %s: %w", vendorID, err)
	}
	reserved, err := q.SumReservedWithdrawals(ctx, vendorID, exclude)
	if err != nil {
		return nil, fmt.Errorf("reserved withdrawals for vendor %s: %w", vendorID, err)
	}

	return &models.Balance{
		VendorID:         vendorID,
		TotalEarnings:    totals.Earnings,
		TotalWithdrawals: totals.Withdrawals,
		Reserved:         reserved,
		AvailableBalance: totals.Earnings.Sub(totals.Withdrawals).Sub(reserved),
	}, nil
}
