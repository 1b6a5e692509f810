package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradeyard/vendor-ledger/internal/domain"
	"github.com/tradeyard/vendor-ledger/internal/models"
)

// TransactionFilter narrows a ledger listing. Nil fields match everything.
type TransactionFilter struct {
	Type   *domain.TransactionType
	Status *domain.TransactionStatus
	From   *time.Time
	To     *time.Time
}

// Page is an offset-based page request. Numbers start at 1.
type Page struct {
	Number int
	Size   int
}

const defaultPageSize = 20
const maxPageSize = 200

// Normalize clamps the page to sane bounds.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size <= 0 {
		p.Size = defaultPageSize
	}
	if p.Size > maxPageSize {
		p.Size = maxPageSize
	}
	return p
}

// Limit returns the SQL LIMIT for the page.
func (p Page) Limit() int { return p.Normalize().Size }

// Offset returns the SQL OFFSET for the page.
func (p Page) Offset() int {
	n := p.Normalize()
	return (n.Number - 1) * n.Size
}

// LedgerTotals is the aggregation the balance formula is built from.
type LedgerTotals struct {
	Earnings    decimal.Decimal
	Withdrawals decimal.Decimal
}

// AuditEntry is one immutable audit trail record.
type AuditEntry struct {
	EntityType string
	EntityID   uuid.UUID
	ActorID    *uuid.UUID
	Action     string
	PrevState  string
	NextState  string
	Metadata   []byte
	CreatedAt  time.Time
}

// Querier is the full data-access contract. The Postgres implementation is
// Queries; MemStore carries an in-memory implementation with the same
// observable semantics for hermetic tests.
type Querier interface {
	// Vendor directory mirror and per-vendor lock row.
	VendorExists(ctx context.Context, vendorID uuid.UUID) (bool, error)
	ListVendorAccountIDs(ctx context.Context) ([]uuid.UUID, error)
	EnsureVendorAccount(ctx context.Context, vendorID uuid.UUID) error
	// LockVendorAccount takes the pessimistic per-vendor row lock serializing
	// balance-affecting operations. Only meaningful inside RunInTx.
	LockVendorAccount(ctx context.Context, vendorID uuid.UUID) error

	// Ledger.
	InsertTransaction(ctx context.Context, tx *models.Transaction) error
	GetTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	GetTransactionForUpdate(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	ListTransactions(ctx context.Context, vendorID uuid.UUID, filter TransactionFilter, page Page) ([]models.Transaction, int64, error)
	SetTransactionStatus(ctx context.Context, id uuid.UUID, status domain.TransactionStatus) error
	VendorLedgerTotals(ctx context.Context, vendorID uuid.UUID) (LedgerTotals, error)
	// SumReservedWithdrawals sums amounts of the vendor's requests in
	// reserving states, optionally excluding one request id (the request
	// currently under decision reserves itself).
	SumReservedWithdrawals(ctx context.Context, vendorID uuid.UUID, exclude *uuid.UUID) (decimal.Decimal, error)

	// Withdrawal workflow.
	InsertWithdrawalRequest(ctx context.Context, req *models.WithdrawalRequest) error
	GetWithdrawalRequest(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error)
	GetWithdrawalRequestForUpdate(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error)
	ListWithdrawalRequests(ctx context.Context, vendorID uuid.UUID, status *domain.WithdrawalStatus, page Page) ([]models.WithdrawalRequest, int64, error)
	UpdateWithdrawalRequest(ctx context.Context, req *models.WithdrawalRequest) error

	// Audit trail.
	InsertAuditLog(ctx context.Context, entry AuditEntry) error
}
