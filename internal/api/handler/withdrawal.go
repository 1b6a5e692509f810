package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tradeyard/vendor-ledger/internal/domain"
	"github.com/tradeyard/vendor-ledger/internal/models"
	"github.com/tradeyard/vendor-ledger/internal/service"
)

// WithdrawalHandler handles HTTP requests for the payout approval workflow.
type WithdrawalHandler struct {
	withdrawalSvc *service.WithdrawalService
}

// NewWithdrawalHandler creates a new WithdrawalHandler instance.
func NewWithdrawalHandler(withdrawalSvc *service.WithdrawalService) *WithdrawalHandler {
	return &WithdrawalHandler{withdrawalSvc: withdrawalSvc}
}

// SubmitWithdrawalRequest represents the request body for submitting a
// withdrawal.
type SubmitWithdrawalRequest struct {
	Amount      string             `json:"amount"`
	BankDetails models.BankDetails `json:"bank_details"`
	Notes       string             `json:"notes"`
}

// RejectWithdrawalRequest represents the request body for rejecting a
// withdrawal.
type RejectWithdrawalRequest struct {
	Reason string `json:"reason"`
}

// ListWithdrawalsResponse wraps a page of withdrawal requests.
type ListWithdrawalsResponse struct {
	Withdrawals []models.WithdrawalRequest `json:"withdrawals"`
	Total       int64                      `json:"total"`
	Page        int                        `json:"page"`
	PageSize    int                        `json:"page_size"`
}

// SubmitWithdrawal handles POST /v1/vendors/{vendorID}/withdrawals
// It reserves part of the vendor's available balance and returns 201.
func (h *WithdrawalHandler) SubmitWithdrawal(w http.ResponseWriter, r *http.Request) {
	vendorID, err := uuid.Parse(chi.URLParam(r, "vendorID"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-vendor-id", "Invalid vendor id")
		return
	}

	actorID, isAdmin, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-claims", err.Error())
		return
	}
	if !isAdmin && actorID != vendorID {
		RespondError(w, r, http.StatusForbidden, "auth/forbidden", "vendors may only withdraw from their own ledger")
		return
	}

	var req SubmitWithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}

	withdrawal, err := h.withdrawalSvc.SubmitWithdrawal(r.Context(), service.SubmitWithdrawalParams{
		VendorID:    vendorID,
		Amount:      amount,
		BankDetails: req.BankDetails,
		VendorNotes: req.Notes,
	})
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}

	RespondJSON(w, http.StatusCreated, withdrawal)
}

// GetWithdrawal handles GET /v1/withdrawals/{withdrawalID}
func (h *WithdrawalHandler) GetWithdrawal(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "withdrawalID"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-withdrawal-id", "Invalid withdrawal id")
		return
	}

	withdrawal, err := h.withdrawalSvc.GetWithdrawal(r.Context(), id)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}

	actorID, isAdmin, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-claims", err.Error())
		return
	}
	if !isAdmin && actorID != withdrawal.VendorID {
		RespondError(w, r, http.StatusForbidden, "auth/forbidden", "vendors may only read their own withdrawals")
		return
	}

	RespondJSON(w, http.StatusOK, withdrawal)
}

// ListWithdrawals handles GET /v1/vendors/{vendorID}/withdrawals
// Optional filters: status, page, page_size.
func (h *WithdrawalHandler) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	vendorID, err := uuid.Parse(chi.URLParam(r, "vendorID"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-vendor-id", "Invalid vendor id")
		return
	}

	actorID, isAdmin, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-claims", err.Error())
		return
	}
	if !isAdmin && actorID != vendorID {
		RespondError(w, r, http.StatusForbidden, "auth/forbidden", "vendors may only read their own withdrawals")
		return
	}

	var status *domain.WithdrawalStatus
	if v := strings.TrimSpace(r.URL.Query().Get("status")); v != "" {
		parsed, err := domain.ParseWithdrawalStatus(v)
		if err != nil {
			RespondDomainError(w, r, err)
			return
		}
		status = &parsed
	}

	page, err := pageFromQuery(r)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-pagination", err.Error())
		return
	}

	withdrawals, total, err := h.withdrawalSvc.ListWithdrawals(r.Context(), vendorID, status, page)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}

	RespondJSON(w, http.StatusOK, ListWithdrawalsResponse{
		Withdrawals: withdrawals,
		Total:       total,
		Page:        page.Number,
		PageSize:    page.Size,
	})
}

// ApproveWithdrawal handles PATCH /v1/withdrawals/{withdrawalID}/approve
// A request whose reservation no longer fits the available balance is
// auto-rejected and the call reports the shortfall.
func (h *WithdrawalHandler) ApproveWithdrawal(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(ctx *http.Request, id, adminID uuid.UUID) (*models.WithdrawalRequest, error) {
		return h.withdrawalSvc.ApproveWithdrawal(ctx.Context(), id, adminID)
	})
}

// RejectWithdrawal handles PATCH /v1/withdrawals/{withdrawalID}/reject
func (h *WithdrawalHandler) RejectWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req RejectWithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	h.decide(w, r, func(ctx *http.Request, id, adminID uuid.UUID) (*models.WithdrawalRequest, error) {
		return h.withdrawalSvc.RejectWithdrawal(ctx.Context(), id, adminID, req.Reason)
	})
}

// MarkProcessing handles PATCH /v1/withdrawals/{withdrawalID}/processing
func (h *WithdrawalHandler) MarkProcessing(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(ctx *http.Request, id, adminID uuid.UUID) (*models.WithdrawalRequest, error) {
		return h.withdrawalSvc.MarkProcessing(ctx.Context(), id, adminID)
	})
}

// CompleteWithdrawal handles PATCH /v1/withdrawals/{withdrawalID}/complete
func (h *WithdrawalHandler) CompleteWithdrawal(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(ctx *http.Request, id, adminID uuid.UUID) (*models.WithdrawalRequest, error) {
		return h.withdrawalSvc.CompleteWithdrawal(ctx.Context(), id, adminID)
	})
}

// decide runs one admin workflow transition. On insufficient balance the
// withdrawal returned alongside the error reflects the committed
// auto-rejection, so it is rendered in the problem-free body path only when
// the transition itself succeeded.
func (h *WithdrawalHandler) decide(w http.ResponseWriter, r *http.Request, fn func(r *http.Request, id, adminID uuid.UUID) (*models.WithdrawalRequest, error)) {
	id, err := uuid.Parse(chi.URLParam(r, "withdrawalID"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-withdrawal-id", "Invalid withdrawal id")
		return
	}

	adminID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-claims", err.Error())
		return
	}

	withdrawal, err := fn(r, id, adminID)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}

	RespondJSON(w, http.StatusOK, withdrawal)
}
