package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradeyard/vendor-ledger/internal/domain"
)

// Vendor mirrors the record owned by the external vendor directory. Only the
// fields needed to resolve existence and render listings are carried here.
type Vendor struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Transaction is a single immutable-once-terminal ledger entry.
type Transaction struct {
	ID              uuid.UUID                `json:"id"`
	VendorID        uuid.UUID                `json:"vendor_id"`
	Amount          decimal.Decimal          `json:"amount"`
	Type            domain.TransactionType   `json:"type"`
	Status          domain.TransactionStatus `json:"status"`
	ReferenceNumber *string                  `json:"reference_number,omitempty"`
	Description     string                   `json:"description"`
	Metadata        json.RawMessage          `json:"metadata,omitempty"`
	CreatedAt       time.Time                `json:"created_at"`
	UpdatedAt       time.Time                `json:"updated_at"`
}

// BankDetails is the payout destination supplied by the vendor. The fields are
// opaque beyond presence checks; no account-number validation happens here.
type BankDetails struct {
	AccountName   string `json:"account_name"`
	AccountNumber string `json:"account_number"`
	BankName      string `json:"bank_name"`
}

// WithdrawalRequest is a vendor-initiated payout request moving through the
// approval workflow.
type WithdrawalRequest struct {
	ID            uuid.UUID               `json:"id"`
	VendorID      uuid.UUID               `json:"vendor_id"`
	Amount        decimal.Decimal         `json:"amount"`
	BankDetails   BankDetails             `json:"bank_details"`
	Status        domain.WithdrawalStatus `json:"status"`
	AdminNotes    string                  `json:"admin_notes,omitempty"`
	VendorNotes   string                  `json:"vendor_notes,omitempty"`
	TransactionID *uuid.UUID              `json:"transaction_id,omitempty"`
	CreatedAt     time.Time               `json:"created_at"`
	UpdatedAt     time.Time               `json:"updated_at"`
}

// Balance is the derived financial position of one vendor. It is never
// persisted; every value is recomputed from the ledger.
type Balance struct {
	VendorID         uuid.UUID       `json:"vendor_id"`
	TotalEarnings    decimal.Decimal `json:"total_earnings"`
	TotalWithdrawals decimal.Decimal `json:"total_withdrawals"`
	Reserved         decimal.Decimal `json:"reserved"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
}
