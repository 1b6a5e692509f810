package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tradeyard/vendor-ledger/internal/observability"
	"github.com/tradeyard/vendor-ledger/internal/repository"
)

// ReconciliationService verifies the ledger invariant that every vendor's
// reserved-adjusted available balance stays non-negative.
type ReconciliationService struct {
	store Store
}

// NewReconciliationService creates a reconciliation service.
func NewReconciliationService(store Store) *ReconciliationService {
	return &ReconciliationService{store: store}
}

// Run sweeps every vendor account and reports negative balances. A negative
// balance means a refund or fee landed after funds were already committed to
// a payout; it is an operator signal, not an automatic correction.
func (s *ReconciliationService) Run(ctx context.Context) error {
	vendorIDs, err := s.store.Querier().ListVendorAccountIDs(ctx)
	if err != nil {
		return fmt.Errorf("list vendor accounts: %w", err)
	}

	negative := 0
	for _, vendorID := range vendorIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.store.RunInTx(ctx, func(q repository.Querier) error {
			if err := q.LockVendorAccount(ctx, vendorID); err != nil {
				return err
			}
			bal, err := balanceSnapshot(ctx, q, vendorID, nil)
			if err != nil {
				return err
			}
			if bal.AvailableBalance.IsNegative() {
				negative++
				observability.IncrementNegativeBalance(vendorID.String())
				zap.L().Error("vendor balance below zero",
					zap.String("vendor_id", vendorID.String()),
					zap.String("available_balance", bal.AvailableBalance.String()),
					zap.String("reserved", bal.Reserved.String()),
				)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("reconcile vendor %s: %w", vendorID, err)
		}
	}

	if negative == 0 {
		zap.L().Info("ledger reconciled", zap.Int("vendors", len(vendorIDs)))
	}
	return nil
}
