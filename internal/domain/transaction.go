package domain

import "fmt"

// TransactionType classifies a ledger entry. The set is closed: anything else
// is rejected at the boundary by ParseTransactionType.
type TransactionType string

const (
	TxTypeEarning    TransactionType = "earning"
	TxTypeWithdrawal TransactionType = "withdrawal"
	TxTypeRefund     TransactionType = "refund"
	TxTypeFee        TransactionType = "fee"
)

// TransactionStatus is the settlement state of a ledger entry.
type TransactionStatus string

const (
	TxStatusPending   TransactionStatus = "pending"
	TxStatusCompleted TransactionStatus = "completed"
	TxStatusFailed    TransactionStatus = "failed"
	TxStatusCancelled TransactionStatus = "cancelled"
)

// Credits into the vendor balance vs. debits out of it.
var creditTypes = map[TransactionType]struct{}{
	TxTypeEarning: {},
	TxTypeRefund:  {},
}

var transactionTypes = map[TransactionType]struct{}{
	TxTypeEarning:    {},
	TxTypeWithdrawal: {},
	TxTypeRefund:     {},
	TxTypeFee:        {},
}

var transactionTransitions = map[TransactionStatus]map[TransactionStatus]struct{}{
	TxStatusPending: {
		TxStatusCompleted: {},
		TxStatusFailed:    {},
		TxStatusCancelled: {},
	},
	TxStatusCompleted: {},
	TxStatusFailed:    {},
	TxStatusCancelled: {},
}

// ParseTransactionType validates a wire value against the closed type set.
func ParseTransactionType(v string) (TransactionType, error) {
	t := TransactionType(v)
	if _, ok := transactionTypes[t]; !ok {
		return "", fmt.Errorf("%w: unknown transaction type %q", ErrValidation, v)
	}
	return t, nil
}

// ParseTransactionStatus validates a wire value against the closed status set.
func ParseTransactionStatus(v string) (TransactionStatus, error) {
	s := TransactionStatus(v)
	if _, ok := transactionTransitions[s]; !ok {
		return "", fmt.Errorf("%w: unknown transaction status %q", ErrValidation, v)
	}
	return s, nil
}

// IsCredit reports whether the type increases the vendor balance.
func (t TransactionType) IsCredit() bool {
	_, ok := creditTypes[t]
	return ok
}

// Terminal reports whether no further transition is permitted.
func (s TransactionStatus) Terminal() bool {
	next, ok := transactionTransitions[s]
	return ok && len(next) == 0
}

// CanTransitionTo reports whether s -> next is a legal transition.
// A same-state "transition" of a terminal status is not legal here; callers
// treat it as a no-op before consulting the table.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	allowed, ok := transactionTransitions[s]
	if !ok {
		return false
	}
	_, ok = allowed[next]
	return ok
}
