package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ValidateAmount enforces the ledger-wide rule that every monetary amount is
// strictly positive.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: amount must be greater than zero, got %s", ErrValidation, amount)
	}
	return nil
}

// ParseAmount parses a client-supplied decimal string and validates it.
func ParseAmount(v string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: invalid amount %q", ErrValidation, v)
	}
	if err := ValidateAmount(d); err != nil {
		return decimal.Decimal{}, err
	}
	return d, nil
}
