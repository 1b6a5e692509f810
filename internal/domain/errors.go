package domain

import "errors"

// Error kinds surfaced to callers. All are client-correctable and are never
// retried automatically; storage failures are wrapped with %w and carry the
// driver error instead.
var (
	ErrValidation          = errors.New("validation failed")
	ErrVendorNotFound      = errors.New("vendor not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrWithdrawalNotFound  = errors.New("withdrawal request not found")
	ErrInvalidState        = errors.New("invalid state transition")
	ErrInsufficientBalance = errors.New("insufficient available balance")
)
