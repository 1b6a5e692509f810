package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradeyard/vendor-ledger/internal/domain"
	"github.com/tradeyard/vendor-ledger/internal/repository"
)

func TestRecordTransaction_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.ledgerSvc.RecordTransaction(ctx, RecordTransactionParams{
		VendorID: env.vendorID,
		Amount:   decimal.NewFromInt(-5),
		Type:     domain.TxTypeEarning,
		Status:   domain.TxStatusCompleted,
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = env.ledgerSvc.RecordTransaction(ctx, RecordTransactionParams{
		VendorID: env.vendorID,
		Amount:   decimal.NewFromInt(5),
		Type:     domain.TransactionType("gift"),
		Status:   domain.TxStatusCompleted,
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = env.ledgerSvc.RecordTransaction(ctx, RecordTransactionParams{
		VendorID: uuid.New(),
		Amount:   decimal.NewFromInt(5),
		Type:     domain.TxTypeEarning,
		Status:   domain.TxStatusCompleted,
	})
	assert.ErrorIs(t, err, domain.ErrVendorNotFound)
}

func TestCalculateBalance_Formula(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.earn(t, "1000")
	env.earn(t, "250.50")

	// Refunds credit the vendor, fees debit it.
	_, err := env.ledgerSvc.RecordTransaction(ctx, RecordTransactionParams{
		VendorID: env.vendorID,
		Amount:   decimal.RequireFromString("49.50"),
		Type:     domain.TxTypeRefund,
		Status:   domain.TxStatusCompleted,
	})
	require.NoError(t, err)
	_, err = env.ledgerSvc.RecordTransaction(ctx, RecordTransactionParams{
		VendorID: env.vendorID,
		Amount:   decimal.RequireFromString("100"),
		Type:     domain.TxTypeFee,
		Status:   domain.TxStatusCompleted,
	})
	require.NoError(t, err)

	// Pending entries never count toward totals.
	_, err = env.ledgerSvc.RecordTransaction(ctx, RecordTransactionParams{
		VendorID: env.vendorID,
		Amount:   decimal.RequireFromString("9999"),
		Type:     domain.TxTypeEarning,
		Status:   domain.TxStatusPending,
	})
	require.NoError(t, err)

	bal := env.balance(t)
	assert.Equal(t, "1300", bal.TotalEarnings.String())
	assert.Equal(t, "100", bal.TotalWithdrawals.String())
	assert.Equal(t, "0", bal.Reserved.String())
	assert.Equal(t, "1200", bal.AvailableBalance.String())
}

func TestCalculateBalance_UnknownVendor(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.ledgerSvc.CalculateBalance(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrVendorNotFound)
}

func TestCalculateBalance_NoActivity(t *testing.T) {
	env := newTestEnv(t)

	bal := env.balance(t)
	assert.True(t, bal.TotalEarnings.IsZero())
	assert.True(t, bal.AvailableBalance.IsZero())
}

func TestUpdateTransactionStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tx, err := env.ledgerSvc.RecordTransaction(ctx, RecordTransactionParams{
		VendorID: env.vendorID,
		Amount:   decimal.RequireFromString("75"),
		Type:     domain.TxTypeEarning,
		Status:   domain.TxStatusPending,
	})
	require.NoError(t, err)

	// Re-applying the current status is a no-op, not an error.
	same, err := env.ledgerSvc.UpdateTransactionStatus(ctx, tx.ID, domain.TxStatusPending, "", &env.adminID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusPending, same.Status)

	updated, err := env.ledgerSvc.UpdateTransactionStatus(ctx, tx.ID, domain.TxStatusCompleted, "order settled", &env.adminID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusCompleted, updated.Status)

	// Settled earnings now count.
	bal := env.balance(t)
	assert.Equal(t, "75", bal.TotalEarnings.String())

	// Terminal entries are frozen; even the same-status shortcut does not
	// apply to a transition attempt away from terminal.
	_, err = env.ledgerSvc.UpdateTransactionStatus(ctx, tx.ID, domain.TxStatusFailed, "", &env.adminID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = env.ledgerSvc.UpdateTransactionStatus(ctx, uuid.New(), domain.TxStatusCompleted, "", &env.adminID)
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)

	_, err = env.ledgerSvc.UpdateTransactionStatus(ctx, tx.ID, domain.TransactionStatus("archived"), "", &env.adminID)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestUpdateTransactionStatus_TerminalReapplyIsNoop(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tx := env.earn(t, "10")

	same, err := env.ledgerSvc.UpdateTransactionStatus(ctx, tx.ID, domain.TxStatusCompleted, "", &env.adminID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusCompleted, same.Status)
}

func TestListTransactions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.earn(t, "100")
	env.earn(t, "200")
	fee, err := env.ledgerSvc.RecordTransaction(ctx, RecordTransactionParams{
		VendorID: env.vendorID,
		Amount:   decimal.RequireFromString("15"),
		Type:     domain.TxTypeFee,
		Status:   domain.TxStatusCompleted,
	})
	require.NoError(t, err)

	all, total, err := env.ledgerSvc.ListTransactions(ctx, env.vendorID, repository.TransactionFilter{}, repository.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, all, 3)
	// Newest first.
	assert.Equal(t, fee.ID, all[0].ID)

	feeType := domain.TxTypeFee
	fees, total, err := env.ledgerSvc.ListTransactions(ctx, env.vendorID, repository.TransactionFilter{Type: &feeType}, repository.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, fees, 1)
	assert.Equal(t, fee.ID, fees[0].ID)

	page, total, err := env.ledgerSvc.ListTransactions(ctx, env.vendorID, repository.TransactionFilter{}, repository.Page{Number: 2, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, page, 1)

	_, _, err = env.ledgerSvc.ListTransactions(ctx, uuid.New(), repository.TransactionFilter{}, repository.Page{})
	assert.ErrorIs(t, err, domain.ErrVendorNotFound)
}

func TestGetTransaction_NotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.ledgerSvc.GetTransaction(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
}

func TestReconciliation_SweepsAllVendors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Drive one vendor negative through the complete-then-fee path.
	env.earn(t, "100")
	req := env.submit(t, "100")
	_, err := env.withdrawalSvc.ApproveWithdrawal(ctx, req.ID, env.adminID)
	require.NoError(t, err)
	_, err = env.withdrawalSvc.MarkProcessing(ctx, req.ID, env.adminID)
	require.NoError(t, err)
	_, err = env.withdrawalSvc.CompleteWithdrawal(ctx, req.ID, env.adminID)
	require.NoError(t, err)

	// The refund reversal arrives after the payout completed.
	_, err = env.ledgerSvc.RecordTransaction(ctx, RecordTransactionParams{
		VendorID: env.vendorID,
		Amount:   decimal.RequireFromString("25"),
		Type:     domain.TxTypeFee,
		Status:   domain.TxStatusCompleted,
	})
	require.NoError(t, err)

	bal := env.balance(t)
	require.Equal(t, "-25", bal.AvailableBalance.String())

	svc := NewReconciliationService(env.store)
	assert.NoError(t, svc.Run(ctx))
}
