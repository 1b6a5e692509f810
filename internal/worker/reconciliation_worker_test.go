package worker

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tradeyard/vendor-ledger/internal/domain"
	"github.com/tradeyard/vendor-ledger/internal/models"
	"github.com/tradeyard/vendor-ledger/internal/repository"
	"github.com/tradeyard/vendor-ledger/internal/service"
)

func TestReconciliationWorker_RunAndStop(t *testing.T) {
	store := repository.NewMemStore()
	vendorID := uuid.New()
	store.SeedVendor(models.Vendor{ID: vendorID, Name: "worker test vendor"})

	ledgerSvc := service.NewLedgerService(store, store.Querier())
	_, err := ledgerSvc.RecordTransaction(context.Background(), service.RecordTransactionParams{
		VendorID: vendorID,
		Amount:   decimal.NewFromInt(100),
		Type:     domain.TxTypeEarning,
		Status:   domain.TxStatusCompleted,
	})
	require.NoError(t, err)

	w := NewReconciliationWorker(service.NewReconciliationService(store)).
		WithInterval(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := w.Run(ctx)
	time.Sleep(30 * time.Millisecond)
	stop()

	// Stop is idempotent.
	stop()
}

func TestReconciliationWorker_ContextCancel(t *testing.T) {
	store := repository.NewMemStore()
	w := NewReconciliationWorker(service.NewReconciliationService(store)).
		WithInterval(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on context cancellation")
	}
}
