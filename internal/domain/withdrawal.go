package domain

import "fmt"

// WithdrawalStatus is the state of a payout request in the approval workflow.
type WithdrawalStatus string

const (
	WithdrawalPending    WithdrawalStatus = "pending"
	WithdrawalApproved   WithdrawalStatus = "approved"
	WithdrawalRejected   WithdrawalStatus = "rejected"
	WithdrawalProcessing WithdrawalStatus = "processing"
	WithdrawalCompleted  WithdrawalStatus = "completed"
)

var withdrawalTransitions = map[WithdrawalStatus]map[WithdrawalStatus]struct{}{
	WithdrawalPending: {
		WithdrawalApproved: {},
		WithdrawalRejected: {},
	},
	WithdrawalApproved: {
		WithdrawalProcessing: {},
	},
	WithdrawalProcessing: {
		WithdrawalCompleted: {},
	},
	WithdrawalRejected:  {},
	WithdrawalCompleted: {},
}

// Requests in these states hold a reservation against the vendor balance.
var reservedWithdrawalStatuses = map[WithdrawalStatus]struct{}{
	WithdrawalPending:    {},
	WithdrawalApproved:   {},
	WithdrawalProcessing: {},
}

// ParseWithdrawalStatus validates a wire value against the closed status set.
func ParseWithdrawalStatus(v string) (WithdrawalStatus, error) {
	s := WithdrawalStatus(v)
	if _, ok := withdrawalTransitions[s]; !ok {
		return "", fmt.Errorf("%w: unknown withdrawal status %q", ErrValidation, v)
	}
	return s, nil
}

// Terminal reports whether no further transition is permitted.
func (s WithdrawalStatus) Terminal() bool {
	next, ok := withdrawalTransitions[s]
	return ok && len(next) == 0
}

// Reserves reports whether a request in this state counts against the
// vendor's available balance.
func (s WithdrawalStatus) Reserves() bool {
	_, ok := reservedWithdrawalStatuses[s]
	return ok
}

// CanTransitionTo reports whether s -> next is a legal transition.
func (s WithdrawalStatus) CanTransitionTo(next WithdrawalStatus) bool {
	allowed, ok := withdrawalTransitions[s]
	if !ok {
		return false
	}
	_, ok = allowed[next]
	return ok
}
