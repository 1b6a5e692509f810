package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseTransactionType(t *testing.T) {
	for _, valid := range []string{"earning", "withdrawal", "refund", "fee"} {
		parsed, err := ParseTransactionType(valid)
		assert.NoError(t, err)
		assert.Equal(t, valid, string(parsed))
	}

	_, err := ParseTransactionType("dividend")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = ParseTransactionType("")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTransactionType_IsCredit(t *testing.T) {
	assert.True(t, TxTypeEarning.IsCredit())
	assert.True(t, TxTypeRefund.IsCredit())
	assert.False(t, TxTypeWithdrawal.IsCredit())
	assert.False(t, TxTypeFee.IsCredit())
}

func TestTransactionStatus_Transitions(t *testing.T) {
	cases := []struct {
		from    TransactionStatus
		to      TransactionStatus
		allowed bool
	}{
		{TxStatusPending, TxStatusCompleted, true},
		{TxStatusPending, TxStatusFailed, true},
		{TxStatusPending, TxStatusCancelled, true},
		{TxStatusCompleted, TxStatusPending, false},
		{TxStatusCompleted, TxStatusFailed, false},
		{TxStatusFailed, TxStatusCompleted, false},
		{TxStatusCancelled, TxStatusPending, false},
	}

	for _, tc := range cases {
		assert.Equalf(t, tc.allowed, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestTransactionStatus_Terminal(t *testing.T) {
	assert.False(t, TxStatusPending.Terminal())
	assert.True(t, TxStatusCompleted.Terminal())
	assert.True(t, TxStatusFailed.Terminal())
	assert.True(t, TxStatusCancelled.Terminal())
}

func TestValidateAmount(t *testing.T) {
	assert.NoError(t, ValidateAmount(decimal.NewFromInt(1)))
	assert.NoError(t, ValidateAmount(decimal.RequireFromString("0.01")))

	assert.ErrorIs(t, ValidateAmount(decimal.Zero), ErrValidation)
	assert.ErrorIs(t, ValidateAmount(decimal.NewFromInt(-5)), ErrValidation)
}

func TestParseAmount(t *testing.T) {
	d, err := ParseAmount("125.40")
	assert.NoError(t, err)
	assert.True(t, d.Equal(decimal.RequireFromString("125.40")))

	_, err = ParseAmount("0")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = ParseAmount("not-a-number")
	assert.ErrorIs(t, err, ErrValidation)
}
