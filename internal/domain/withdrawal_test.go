package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithdrawalStatus_Transitions(t *testing.T) {
	cases := []struct {
		from    WithdrawalStatus
		to      WithdrawalStatus
		allowed bool
	}{
		{WithdrawalPending, WithdrawalApproved, true},
		{WithdrawalPending, WithdrawalRejected, true},
		{WithdrawalPending, WithdrawalProcessing, false},
		{WithdrawalPending, WithdrawalCompleted, false},
		{WithdrawalApproved, WithdrawalProcessing, true},
		{WithdrawalApproved, WithdrawalRejected, false},
		{WithdrawalApproved, WithdrawalCompleted, false},
		{WithdrawalProcessing, WithdrawalCompleted, true},
		{WithdrawalProcessing, WithdrawalRejected, false},
		{WithdrawalRejected, WithdrawalApproved, false},
		{WithdrawalCompleted, WithdrawalProcessing, false},
	}

	for _, tc := range cases {
		assert.Equalf(t, tc.allowed, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestWithdrawalStatus_Terminal(t *testing.T) {
	assert.False(t, WithdrawalPending.Terminal())
	assert.False(t, WithdrawalApproved.Terminal())
	assert.False(t, WithdrawalProcessing.Terminal())
	assert.True(t, WithdrawalRejected.Terminal())
	assert.True(t, WithdrawalCompleted.Terminal())
}

func TestWithdrawalStatus_Reserves(t *testing.T) {
	assert.True(t, WithdrawalPending.Reserves())
	assert.True(t, WithdrawalApproved.Reserves())
	assert.True(t, WithdrawalProcessing.Reserves())
	assert.False(t, WithdrawalRejected.Reserves())
	assert.False(t, WithdrawalCompleted.Reserves())
}

func TestParseWithdrawalStatus(t *testing.T) {
	parsed, err := ParseWithdrawalStatus("processing")
	assert.NoError(t, err)
	assert.Equal(t, WithdrawalProcessing, parsed)

	_, err = ParseWithdrawalStatus("on-hold")
	assert.ErrorIs(t, err, ErrValidation)
}
