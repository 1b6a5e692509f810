package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradeyard/vendor-ledger/internal/domain"
	"github.com/tradeyard/vendor-ledger/internal/models"
	"github.com/tradeyard/vendor-ledger/internal/repository"
)

// LedgerService is the durable, queryable record of every financial fact:
// recording transactions, listing them, driving their settlement status, and
// deriving vendor balances.
type LedgerService struct {
	store     Store
	directory VendorDirectory
	audit     *AuditService
}

func NewLedgerService(store Store, directory VendorDirectory) *LedgerService {
	return &LedgerService{
		store:     store,
		directory: directory,
		audit:     NewAuditService(),
	}
}

// RecordTransactionParams holds the inputs for a new ledger entry. The
// order/commission collaborator records completed earnings through this; the
// withdrawal workflow records its own linked transactions internally.
type RecordTransactionParams struct {
	VendorID        uuid.UUID
	Amount          decimal.Decimal
	Type            domain.TransactionType
	Status          domain.TransactionStatus
	ReferenceNumber *string
	Description     string
	Metadata        json.RawMessage
	ActorID         *uuid.UUID
}

// RecordTransaction validates and appends one ledger entry.
func (s *LedgerService) RecordTransaction(ctx context.Context, p RecordTransactionParams) (*models.Transaction, error) {
	if err := domain.ValidateAmount(p.Amount); err != nil {
		return nil, err
	}
	if _, err := domain.ParseTransactionType(string(p.Type)); err != nil {
		return nil, err
	}
	if _, err := domain.ParseTransactionStatus(string(p.Status)); err != nil {
		return nil, err
	}
	if err := s.resolveVendor(ctx, p.VendorID); err != nil {
		return nil, err
	}

	tx := &models.Transaction{
		ID:              uuid.New(),
		VendorID:        p.VendorID,
		Amount:          p.Amount,
		Type:            p.Type,
		Status:          p.Status,
		ReferenceNumber: p.ReferenceNumber,
		Description:     p.Description,
		Metadata:        p.Metadata,
	}
	err := s.store.RunInTx(ctx, func(q repository.Querier) error {
		if err := q.EnsureVendorAccount(ctx, p.VendorID); err != nil {
			return err
		}
		if err := q.InsertTransaction(ctx, tx); err != nil {
			return err
		}
		return s.audit.Write(ctx, q, "transaction", tx.ID, p.ActorID, "created", "", string(tx.Status), tx.Metadata)
	})
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// GetTransaction returns one ledger entry.
func (s *LedgerService) GetTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	return s.store.Querier().GetTransaction(ctx, id)
}

// ListTransactions returns one page of the vendor's ledger, newest first,
// with the total match count.
func (s *LedgerService) ListTransactions(ctx context.Context, vendorID uuid.UUID, filter repository.TransactionFilter, page repository.Page) ([]models.Transaction, int64, error) {
	if err := s.resolveVendor(ctx, vendorID); err != nil {
		return nil, 0, err
	}
	return s.store.Querier().ListTransactions(ctx, vendorID, filter, page)
}

// UpdateTransactionStatus drives a ledger entry through its settlement
// lifecycle. Re-applying the current status is a no-op; leaving a terminal
// status fails ErrInvalidState.
func (s *LedgerService) UpdateTransactionStatus(ctx context.Context, id uuid.UUID, next domain.TransactionStatus, note string, actorID *uuid.UUID) (*models.Transaction, error) {
	if _, err := domain.ParseTransactionStatus(string(next)); err != nil {
		return nil, err
	}

	var out *models.Transaction
	err := s.store.RunInTx(ctx, func(q repository.Querier) error {
		// Read first to learn the vendor, then lock vendor before row.
		// Vendor lock always precedes row locks everywhere in this package.
		peek, err := q.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if err := q.EnsureVendorAccount(ctx, peek.VendorID); err != nil {
			return err
		}
		if err := q.LockVendorAccount(ctx, peek.VendorID); err != nil {
			return err
		}

		var metadata []byte
		if note != "" {
			if metadata, err = marshalReasonMetadata(note); err != nil {
				return fmt.Errorf("marshal status note: %w", err)
			}
		}
		out, err = transitionTransactionStatus(ctx, q, s.audit, id, next, actorID, "status_updated", metadata)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CalculateBalance derives the vendor's financial position from the ledger.
// Pure read; the single transaction scope gives one consistent snapshot.
func (s *LedgerService) CalculateBalance(ctx context.Context, vendorID uuid.UUID) (*models.Balance, error) {
	if err := s.resolveVendor(ctx, vendorID); err != nil {
		return nil, err
	}

	var bal *models.Balance
	err := s.store.RunInTx(ctx, func(q repository.Querier) error {
		var err error
		bal, err = balanceSnapshot(ctx, q, vendorID, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return bal, nil
}

func (s *LedgerService) resolveVendor(ctx context.Context, vendorID uuid.UUID) error {
	exists, err := s.directory.VendorExists(ctx, vendorID)
	if err != nil {
		return fmt.Errorf("resolve vendor %s: %w", vendorID, err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", domain.ErrVendorNotFound, vendorID)
	}
	return nil
}
