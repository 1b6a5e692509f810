package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradeyard/vendor-ledger/internal/domain"
	"github.com/tradeyard/vendor-ledger/internal/models"
	"github.com/tradeyard/vendor-ledger/internal/repository"
)

type testEnv struct {
	store         *repository.MemStore
	ledgerSvc     *LedgerService
	withdrawalSvc *WithdrawalService
	vendorID      uuid.UUID
	adminID       uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := repository.NewMemStore()
	vendorID := uuid.New()
	store.SeedVendor(models.Vendor{ID: vendorID, Name: "Acme Crafts"})

	directory := store.Querier()
	return &testEnv{
		store:         store,
		ledgerSvc:     NewLedgerService(store, directory),
		withdrawalSvc: NewWithdrawalService(store, directory),
		vendorID:      vendorID,
		adminID:       uuid.New(),
	}
}

func (e *testEnv) earn(t *testing.T, amount string) *models.Transaction {
	t.Helper()
	tx, err := e.ledgerSvc.RecordTransaction(context.Background(), RecordTransactionParams{
		VendorID: e.vendorID,
		Amount:   decimal.RequireFromString(amount),
		Type:     domain.TxTypeEarning,
		Status:   domain.TxStatusCompleted,
	})
	require.NoError(t, err)
	return tx
}

func (e *testEnv) submit(t *testing.T, amount string) *models.WithdrawalRequest {
	t.Helper()
	req, err := e.withdrawalSvc.SubmitWithdrawal(context.Background(), SubmitWithdrawalParams{
		VendorID: e.vendorID,
		Amount:   decimal.RequireFromString(amount),
		BankDetails: models.BankDetails{
			AccountName:   "Acme Crafts Ltd",
			AccountNumber: "0123456789",
			BankName:      "First Bank",
		},
	})
	require.NoError(t, err)
	return req
}

func (e *testEnv) balance(t *testing.T) *models.Balance {
	t.Helper()
	bal, err := e.ledgerSvc.CalculateBalance(context.Background(), e.vendorID)
	require.NoError(t, err)
	return bal
}

func TestWithdrawalLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.earn(t, "1000")

	req := env.submit(t, "300")
	assert.Equal(t, domain.WithdrawalPending, req.Status)

	// Pending requests reserve their amount.
	bal := env.balance(t)
	assert.Equal(t, "300", bal.Reserved.String())
	assert.Equal(t, "700", bal.AvailableBalance.String())

	approved, err := env.withdrawalSvc.ApproveWithdrawal(ctx, req.ID, env.adminID)
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalApproved, approved.Status)
	require.NotNil(t, approved.TransactionID)

	// The linked withdrawal transaction is pending, so totals are unchanged
	// and the reservation still comes from the request alone.
	linked, err := env.ledgerSvc.GetTransaction(ctx, *approved.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxTypeWithdrawal, linked.Type)
	assert.Equal(t, domain.TxStatusPending, linked.Status)
	require.NotNil(t, linked.ReferenceNumber)
	assert.Contains(t, *linked.ReferenceNumber, "WDR-")

	bal = env.balance(t)
	assert.Equal(t, "300", bal.Reserved.String())
	assert.Equal(t, "700", bal.AvailableBalance.String())

	processing, err := env.withdrawalSvc.MarkProcessing(ctx, req.ID, env.adminID)
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalProcessing, processing.Status)

	completed, err := env.withdrawalSvc.CompleteWithdrawal(ctx, req.ID, env.adminID)
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalCompleted, completed.Status)

	// The reservation converted into a completed withdrawal exactly once.
	linked, err = env.ledgerSvc.GetTransaction(ctx, *approved.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusCompleted, linked.Status)

	bal = env.balance(t)
	assert.Equal(t, "1000", bal.TotalEarnings.String())
	assert.Equal(t, "300", bal.TotalWithdrawals.String())
	assert.Equal(t, "0", bal.Reserved.String())
	assert.Equal(t, "700", bal.AvailableBalance.String())
}

func TestSubmitWithdrawal_InsufficientBalance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.earn(t, "100")

	_, err := env.withdrawalSvc.SubmitWithdrawal(ctx, SubmitWithdrawalParams{
		VendorID: env.vendorID,
		Amount:   decimal.RequireFromString("100.01"),
		BankDetails: models.BankDetails{
			AccountName:   "Acme Crafts Ltd",
			AccountNumber: "0123456789",
			BankName:      "First Bank",
		},
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	// The failed submission left nothing behind.
	bal := env.balance(t)
	assert.Equal(t, "0", bal.Reserved.String())
	assert.Equal(t, "100", bal.AvailableBalance.String())
}

func TestSubmitWithdrawal_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.withdrawalSvc.SubmitWithdrawal(ctx, SubmitWithdrawalParams{
		VendorID:    env.vendorID,
		Amount:      decimal.Zero,
		BankDetails: models.BankDetails{AccountName: "a", AccountNumber: "1", BankName: "b"},
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = env.withdrawalSvc.SubmitWithdrawal(ctx, SubmitWithdrawalParams{
		VendorID:    env.vendorID,
		Amount:      decimal.NewFromInt(10),
		BankDetails: models.BankDetails{AccountName: "a", AccountNumber: "", BankName: "b"},
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = env.withdrawalSvc.SubmitWithdrawal(ctx, SubmitWithdrawalParams{
		VendorID:    uuid.New(),
		Amount:      decimal.NewFromInt(10),
		BankDetails: models.BankDetails{AccountName: "a", AccountNumber: "1", BankName: "b"},
	})
	assert.ErrorIs(t, err, domain.ErrVendorNotFound)
}

func TestApproveWithdrawal_AutoRejectOnDrift(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.earn(t, "500")
	first := env.submit(t, "400")
	second := env.submit(t, "100")

	// Approving and completing the first payout drains the balance the
	// second request was counting on.
	_, err := env.withdrawalSvc.ApproveWithdrawal(ctx, first.ID, env.adminID)
	require.NoError(t, err)
	_, err = env.withdrawalSvc.MarkProcessing(ctx, first.ID, env.adminID)
	require.NoError(t, err)
	_, err = env.withdrawalSvc.CompleteWithdrawal(ctx, first.ID, env.adminID)
	require.NoError(t, err)

	// Now a fee eats into what remained.
	_, err = env.ledgerSvc.RecordTransaction(ctx, RecordTransactionParams{
		VendorID: env.vendorID,
		Amount:   decimal.RequireFromString("50"),
		Type:     domain.TxTypeFee,
		Status:   domain.TxStatusCompleted,
	})
	require.NoError(t, err)

	out, err := env.withdrawalSvc.ApproveWithdrawal(ctx, second.ID, env.adminID)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	// The auto-rejection is durable, not rolled back with the error.
	require.NotNil(t, out)
	assert.Equal(t, domain.WithdrawalRejected, out.Status)
	assert.Contains(t, out.AdminNotes, "auto-rejected")

	stored, err := env.withdrawalSvc.GetWithdrawal(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalRejected, stored.Status)
	assert.Nil(t, stored.TransactionID)

	// The rejected request no longer reserves anything.
	bal := env.balance(t)
	assert.Equal(t, "0", bal.Reserved.String())
	assert.Equal(t, "50", bal.AvailableBalance.String())
}

func TestRejectWithdrawal_FreesReservation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.earn(t, "200")
	req := env.submit(t, "150")

	_, err := env.withdrawalSvc.RejectWithdrawal(ctx, req.ID, env.adminID, "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	rejected, err := env.withdrawalSvc.RejectWithdrawal(ctx, req.ID, env.adminID, "bank details unverified")
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalRejected, rejected.Status)
	assert.Equal(t, "bank details unverified", rejected.AdminNotes)

	bal := env.balance(t)
	assert.Equal(t, "0", bal.Reserved.String())
	assert.Equal(t, "200", bal.AvailableBalance.String())

	// Terminal: nothing moves a rejected request.
	_, err = env.withdrawalSvc.ApproveWithdrawal(ctx, req.ID, env.adminID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	_, err = env.withdrawalSvc.RejectWithdrawal(ctx, req.ID, env.adminID, "again")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestWithdrawalWorkflow_IllegalTransitions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.earn(t, "500")
	req := env.submit(t, "100")

	// pending cannot skip ahead.
	_, err := env.withdrawalSvc.MarkProcessing(ctx, req.ID, env.adminID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	_, err = env.withdrawalSvc.CompleteWithdrawal(ctx, req.ID, env.adminID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = env.withdrawalSvc.ApproveWithdrawal(ctx, req.ID, env.adminID)
	require.NoError(t, err)

	// approved cannot be approved again, rejected, or completed.
	_, err = env.withdrawalSvc.ApproveWithdrawal(ctx, req.ID, env.adminID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	_, err = env.withdrawalSvc.RejectWithdrawal(ctx, req.ID, env.adminID, "too late")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	_, err = env.withdrawalSvc.CompleteWithdrawal(ctx, req.ID, env.adminID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = env.withdrawalSvc.MarkProcessing(ctx, req.ID, env.adminID)
	require.NoError(t, err)

	_, err = env.withdrawalSvc.MarkProcessing(ctx, req.ID, env.adminID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = env.withdrawalSvc.CompleteWithdrawal(ctx, req.ID, env.adminID)
	require.NoError(t, err)

	_, err = env.withdrawalSvc.CompleteWithdrawal(ctx, req.ID, env.adminID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestMarkProcessing_ShortfallKeepsApproved(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.earn(t, "300")
	req := env.submit(t, "250")
	_, err := env.withdrawalSvc.ApproveWithdrawal(ctx, req.ID, env.adminID)
	require.NoError(t, err)

	// A completed refund reversal (fee) shrinks earnings below the payout.
	_, err = env.ledgerSvc.RecordTransaction(ctx, RecordTransactionParams{
		VendorID: env.vendorID,
		Amount:   decimal.RequireFromString("100"),
		Type:     domain.TxTypeFee,
		Status:   domain.TxStatusCompleted,
	})
	require.NoError(t, err)

	_, err = env.withdrawalSvc.MarkProcessing(ctx, req.ID, env.adminID)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	// Unlike approval, no auto-reject here: the admin decides next.
	stored, err := env.withdrawalSvc.GetWithdrawal(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalApproved, stored.Status)
}

func TestCompleteWithdrawal_NegativeBalanceStillCompletes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.earn(t, "300")
	req := env.submit(t, "250")
	_, err := env.withdrawalSvc.ApproveWithdrawal(ctx, req.ID, env.adminID)
	require.NoError(t, err)
	_, err = env.withdrawalSvc.MarkProcessing(ctx, req.ID, env.adminID)
	require.NoError(t, err)

	// The money is already moving on the rail when this fee lands.
	_, err = env.ledgerSvc.RecordTransaction(ctx, RecordTransactionParams{
		VendorID: env.vendorID,
		Amount:   decimal.RequireFromString("100"),
		Type:     domain.TxTypeFee,
		Status:   domain.TxStatusCompleted,
	})
	require.NoError(t, err)

	completed, err := env.withdrawalSvc.CompleteWithdrawal(ctx, req.ID, env.adminID)
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalCompleted, completed.Status)

	bal := env.balance(t)
	assert.Equal(t, "-50", bal.AvailableBalance.String())
}

func TestConcurrentWithdrawals_NeverOverdraw(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.earn(t, "1000")

	// 20 concurrent submissions of 100 against a 1000 balance: exactly 10
	// may be accepted.
	const workers = 20
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.withdrawalSvc.SubmitWithdrawal(ctx, SubmitWithdrawalParams{
				VendorID: env.vendorID,
				Amount:   decimal.NewFromInt(100),
				BankDetails: models.BankDetails{
					AccountName:   "Acme Crafts Ltd",
					AccountNumber: "0123456789",
					BankName:      "First Bank",
				},
			})
		}(i)
	}
	wg.Wait()

	accepted := 0
	for _, err := range errs {
		if err == nil {
			accepted++
		} else {
			assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
		}
	}
	assert.Equal(t, 10, accepted)

	bal := env.balance(t)
	assert.Equal(t, "1000", bal.Reserved.String())
	assert.Equal(t, "0", bal.AvailableBalance.String())
}

func TestListWithdrawals(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.earn(t, "1000")
	for i := 0; i < 3; i++ {
		env.submit(t, "100")
	}
	last := env.submit(t, "50")
	_, err := env.withdrawalSvc.RejectWithdrawal(ctx, last.ID, env.adminID, "duplicate request")
	require.NoError(t, err)

	all, total, err := env.withdrawalSvc.ListWithdrawals(ctx, env.vendorID, nil, repository.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	require.Len(t, all, 4)
	// Newest first.
	assert.Equal(t, last.ID, all[0].ID)

	rejected := domain.WithdrawalRejected
	filtered, total, err := env.withdrawalSvc.ListWithdrawals(ctx, env.vendorID, &rejected, repository.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, filtered, 1)
	assert.Equal(t, last.ID, filtered[0].ID)

	paged, total, err := env.withdrawalSvc.ListWithdrawals(ctx, env.vendorID, nil, repository.Page{Number: 2, Size: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, paged, 1)
}

func TestWithdrawalAuditTrail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.earn(t, "500")
	req := env.submit(t, "200")
	_, err := env.withdrawalSvc.ApproveWithdrawal(ctx, req.ID, env.adminID)
	require.NoError(t, err)

	var actions []string
	for _, e := range env.store.AuditEntries() {
		if e.EntityType == "withdrawal_request" && e.EntityID == req.ID {
			actions = append(actions, e.Action)
		}
	}
	assert.Equal(t, []string{"submitted", "approved"}, actions)
}
