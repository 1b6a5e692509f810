package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tradeyard/vendor-ledger/internal/domain"
	"github.com/tradeyard/vendor-ledger/internal/models"
	"github.com/tradeyard/vendor-ledger/internal/observability"
	"github.com/tradeyard/vendor-ledger/internal/repository"
)

// WithdrawalService drives the payout approval workflow:
//
//	pending --approve--> approved --processing--> processing --complete--> completed
//	pending --reject---> rejected
//
// Every balance-dependent decision runs inside one store transaction holding
// the vendor account lock, so two concurrent requests can never jointly
// overdraw a vendor.
type WithdrawalService struct {
	store     Store
	directory VendorDirectory
	audit     *AuditService
}

func NewWithdrawalService(store Store, directory VendorDirectory) *WithdrawalService {
	return &WithdrawalService{
		store:     store,
		directory: directory,
		audit:     NewAuditService(),
	}
}

// SubmitWithdrawalParams holds a vendor-initiated payout request.
type SubmitWithdrawalParams struct {
	VendorID    uuid.UUID
	Amount      decimal.Decimal
	BankDetails models.BankDetails
	VendorNotes string
}

func validateBankDetails(d models.BankDetails) error {
	if strings.TrimSpace(d.AccountName) == "" {
		return fmt.Errorf("%w: bank_details.account_name is required", domain.ErrValidation)
	}
	if strings.TrimSpace(d.AccountNumber) == "" {
		return fmt.Errorf("%w: bank_details.account_number is required", domain.ErrValidation)
	}
	if strings.TrimSpace(d.BankName) == "" {
		return fmt.Errorf("%w: bank_details.bank_name is required", domain.ErrValidation)
	}
	return nil
}

// SubmitWithdrawal validates the request and creates it as pending. The
// balance check and the insert run under the vendor lock so concurrent
// submissions for the same vendor serialize; the pending request reserves its
// amount from that point on.
func (s *WithdrawalService) SubmitWithdrawal(ctx context.Context, p SubmitWithdrawalParams) (*models.WithdrawalRequest, error) {
	if err := domain.ValidateAmount(p.Amount); err != nil {
		return nil, err
	}
	if err := validateBankDetails(p.BankDetails); err != nil {
		return nil, err
	}
	if err := s.resolveVendor(ctx, p.VendorID); err != nil {
		return nil, err
	}

	req := &models.WithdrawalRequest{
		ID:          uuid.New(),
		VendorID:    p.VendorID,
		Amount:      p.Amount,
		BankDetails: p.BankDetails,
		Status:      domain.WithdrawalPending,
		VendorNotes: p.VendorNotes,
	}
	err := s.store.RunInTx(ctx, func(q repository.Querier) error {
		if err := q.EnsureVendorAccount(ctx, p.VendorID); err != nil {
			return err
		}
		if err := q.LockVendorAccount(ctx, p.VendorID); err != nil {
			return err
		}

		bal, err := balanceSnapshot(ctx, q, p.VendorID, nil)
		if err != nil {
			return err
		}
		if p.Amount.GreaterThan(bal.AvailableBalance) {
			return fmt.Errorf("%w: requested %s, available %s",
				domain.ErrInsufficientBalance, p.Amount, bal.AvailableBalance)
		}

		if err := q.InsertWithdrawalRequest(ctx, req); err != nil {
			return err
		}
		return s.audit.Write(ctx, q, "withdrawal_request", req.ID, &p.VendorID, "submitted", "", string(domain.WithdrawalPending), nil)
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// ApproveWithdrawal re-validates the balance at the instant of approval and,
// on success, creates the linked pending withdrawal transaction. If the
// balance has drifted short since submission the request is auto-rejected
// with an explanatory admin note and the call reports
// ErrInsufficientBalance; the rejection is committed, not rolled back.
func (s *WithdrawalService) ApproveWithdrawal(ctx context.Context, requestID, adminID uuid.UUID) (*models.WithdrawalRequest, error) {
	var (
		out          *models.WithdrawalRequest
		insufficient error
	)
	err := s.store.RunInTx(ctx, func(q repository.Querier) error {
		req, err := s.lockRequest(ctx, q, requestID)
		if err != nil {
			return err
		}
		if err := requirePending(req); err != nil {
			return err
		}

		// The request's own pending reservation is excluded: the guard
		// compares its amount against everything else.
		bal, err := balanceSnapshot(ctx, q, req.VendorID, &req.ID)
		if err != nil {
			return err
		}
		if req.Amount.GreaterThan(bal.AvailableBalance) {
			insufficient = fmt.Errorf("%w: requested %s, available %s",
				domain.ErrInsufficientBalance, req.Amount, bal.AvailableBalance)
			note := fmt.Sprintf("auto-rejected at approval: requested %s exceeds available balance %s",
				req.Amount, bal.AvailableBalance)
			out, err = s.transitionRequest(ctx, q, req, domain.WithdrawalRejected, &adminID, "auto_rejected", note, nil)
			return err
		}

		ref := withdrawalReference(req.ID)
		tx := &models.Transaction{
			ID:              uuid.New(),
			VendorID:        req.VendorID,
			Amount:          req.Amount,
			Type:            domain.TxTypeWithdrawal,
			Status:          domain.TxStatusPending,
			ReferenceNumber: &ref,
			Description:     fmt.Sprintf("payout for withdrawal request %s", req.ID),
		}
		if err := q.InsertTransaction(ctx, tx); err != nil {
			return err
		}
		if err := s.audit.Write(ctx, q, "transaction", tx.ID, &adminID, "created", "", string(tx.Status), nil); err != nil {
			return err
		}

		out, err = s.transitionRequest(ctx, q, req, domain.WithdrawalApproved, &adminID, "approved", req.AdminNotes, &tx.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if insufficient != nil {
		observability.IncrementWithdrawalTransition("auto_rejected")
		return out, insufficient
	}
	observability.IncrementWithdrawalTransition("approved")
	return out, nil
}

// RejectWithdrawal terminally rejects a pending request. No transaction is
// created.
func (s *WithdrawalService) RejectWithdrawal(ctx context.Context, requestID, adminID uuid.UUID, reason string) (*models.WithdrawalRequest, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%w: rejection reason is required", domain.ErrValidation)
	}

	var out *models.WithdrawalRequest
	err := s.store.RunInTx(ctx, func(q repository.Querier) error {
		req, err := s.lockRequest(ctx, q, requestID)
		if err != nil {
			return err
		}
		if err := requirePending(req); err != nil {
			return err
		}
		out, err = s.transitionRequest(ctx, q, req, domain.WithdrawalRejected, &adminID, "rejected", reason, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	observability.IncrementWithdrawalTransition("rejected")
	return out, nil
}

// MarkProcessing moves an approved request to processing, re-validating the
// balance first: completed earnings can shrink between approval and the
// funds actually moving. On shortfall the request stays approved.
func (s *WithdrawalService) MarkProcessing(ctx context.Context, requestID, adminID uuid.UUID) (*models.WithdrawalRequest, error) {
	var out *models.WithdrawalRequest
	err := s.store.RunInTx(ctx, func(q repository.Querier) error {
		req, err := s.lockRequest(ctx, q, requestID)
		if err != nil {
			return err
		}
		if req.Status != domain.WithdrawalApproved {
			return fmt.Errorf("%w: withdrawal request %s is %s, expected %s",
				domain.ErrInvalidState, req.ID, req.Status, domain.WithdrawalApproved)
		}

		bal, err := balanceSnapshot(ctx, q, req.VendorID, &req.ID)
		if err != nil {
			return err
		}
		if req.Amount.GreaterThan(bal.AvailableBalance) {
			return fmt.Errorf("%w: requested %s, available %s",
				domain.ErrInsufficientBalance, req.Amount, bal.AvailableBalance)
		}

		out, err = s.transitionRequest(ctx, q, req, domain.WithdrawalProcessing, &adminID, "processing_started", req.AdminNotes, req.TransactionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	observability.IncrementWithdrawalTransition("processing")
	return out, nil
}

// CompleteWithdrawal atomically completes a processing request and its linked
// withdrawal transaction. It is invoked only after out-of-band payment-rail
// confirmation, so the money has already left: the transition always lands,
// and a resulting negative balance is surfaced through the reconciliation
// metric instead of refused.
func (s *WithdrawalService) CompleteWithdrawal(ctx context.Context, requestID, adminID uuid.UUID) (*models.WithdrawalRequest, error) {
	var out *models.WithdrawalRequest
	err := s.store.RunInTx(ctx, func(q repository.Querier) error {
		req, err := s.lockRequest(ctx, q, requestID)
		if err != nil {
			return err
		}
		if req.Status != domain.WithdrawalProcessing {
			return fmt.Errorf("%w: withdrawal request %s is %s, expected %s",
				domain.ErrInvalidState, req.ID, req.Status, domain.WithdrawalProcessing)
		}
		if req.TransactionID == nil {
			return fmt.Errorf("withdrawal request %s has no linked transaction", req.ID)
		}

		if _, err := transitionTransactionStatus(ctx, q, s.audit, *req.TransactionID, domain.TxStatusCompleted, &adminID, "payout_completed", nil); err != nil {
			return err
		}
		if out, err = s.transitionRequest(ctx, q, req, domain.WithdrawalCompleted, &adminID, "completed", req.AdminNotes, req.TransactionID); err != nil {
			return err
		}

		bal, err := balanceSnapshot(ctx, q, req.VendorID, nil)
		if err != nil {
			return err
		}
		if bal.AvailableBalance.IsNegative() {
			observability.IncrementNegativeBalance(req.VendorID.String())
			zap.L().Warn("vendor balance negative after payout completion",
				zap.String("vendor_id", req.VendorID.String()),
				zap.String("request_id", req.ID.String()),
				zap.String("available_balance", bal.AvailableBalance.String()),
			)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	observability.IncrementWithdrawalTransition("completed")
	return out, nil
}

// GetWithdrawal returns one withdrawal request.
func (s *WithdrawalService) GetWithdrawal(ctx context.Context, requestID uuid.UUID) (*models.WithdrawalRequest, error) {
	return s.store.Querier().GetWithdrawalRequest(ctx, requestID)
}

// ListWithdrawals returns one page of the vendor's requests, newest first,
// with the total match count.
func (s *WithdrawalService) ListWithdrawals(ctx context.Context, vendorID uuid.UUID, status *domain.WithdrawalStatus, page repository.Page) ([]models.WithdrawalRequest, int64, error) {
	if err := s.resolveVendor(ctx, vendorID); err != nil {
		return nil, 0, err
	}
	return s.store.Querier().ListWithdrawalRequests(ctx, vendorID, status, page)
}

// lockRequest acquires the vendor account lock, then the request row lock,
// in that order everywhere, and returns the re-read row.
func (s *WithdrawalService) lockRequest(ctx context.Context, q repository.Querier, requestID uuid.UUID) (*models.WithdrawalRequest, error) {
	peek, err := q.GetWithdrawalRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := q.LockVendorAccount(ctx, peek.VendorID); err != nil {
		return nil, err
	}
	return q.GetWithdrawalRequestForUpdate(ctx, requestID)
}

func requirePending(req *models.WithdrawalRequest) error {
	if req.Status != domain.WithdrawalPending {
		return fmt.Errorf("%w: withdrawal request %s is %s, expected %s",
			domain.ErrInvalidState, req.ID, req.Status, domain.WithdrawalPending)
	}
	return nil
}

// transitionRequest applies one workflow transition, persists it and audits
// it. The transition table is the single source of legality.
func (s *WithdrawalService) transitionRequest(ctx context.Context, q repository.Querier, req *models.WithdrawalRequest, next domain.WithdrawalStatus, actorID *uuid.UUID, action, adminNotes string, transactionID *uuid.UUID) (*models.WithdrawalRequest, error) {
	if !req.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: withdrawal request %s -> %s", domain.ErrInvalidState, req.Status, next)
	}

	updated := *req
	updated.Status = next
	updated.AdminNotes = adminNotes
	if transactionID != nil {
		updated.TransactionID = transactionID
	}
	if err := q.UpdateWithdrawalRequest(ctx, &updated); err != nil {
		return nil, err
	}

	var metadata []byte
	if adminNotes != "" && adminNotes != req.AdminNotes {
		var err error
		if metadata, err = marshalReasonMetadata(adminNotes); err != nil {
			return nil, fmt.Errorf("marshal transition note: %w", err)
		}
	}
	if err := s.audit.Write(ctx, q, "withdrawal_request", req.ID, actorID, action, string(req.Status), string(next), metadata); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *WithdrawalService) resolveVendor(ctx context.Context, vendorID uuid.UUID) error {
	exists, err := s.directory.VendorExists(ctx, vendorID)
	if err != nil {
		return fmt.Errorf("resolve vendor %s: %w", vendorID, err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", domain.ErrVendorNotFound, vendorID)
	}
	return nil
}

func withdrawalReference(requestID uuid.UUID) string {
	return "WDR-" + strings.ToUpper(strings.ReplaceAll(requestID.String(), "-", ""))
}
