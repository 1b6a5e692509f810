package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tradeyard/vendor-ledger/internal/domain"
	"github.com/tradeyard/vendor-ledger/internal/models"
	"github.com/tradeyard/vendor-ledger/internal/repository"
	"github.com/tradeyard/vendor-ledger/internal/service"
)

// TransactionHandler handles HTTP requests for ledger transactions.
type TransactionHandler struct {
	ledgerSvc *service.LedgerService
}

// NewTransactionHandler creates a new TransactionHandler instance.
func NewTransactionHandler(ledgerSvc *service.LedgerService) *TransactionHandler {
	return &TransactionHandler{ledgerSvc: ledgerSvc}
}

// RecordTransactionRequest represents the request body for recording a
// ledger entry.
type RecordTransactionRequest struct {
	VendorID        string          `json:"vendor_id"`
	Amount          string          `json:"amount"`
	Type            string          `json:"type"`
	Status          string          `json:"status"`
	ReferenceNumber string          `json:"reference_number"`
	Description     string          `json:"description"`
	Metadata        json.RawMessage `json:"metadata"`
}

// UpdateTransactionStatusRequest represents the request body for a status
// transition.
type UpdateTransactionStatusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

// ListTransactionsResponse wraps a page of ledger entries.
type ListTransactionsResponse struct {
	Transactions []models.Transaction `json:"transactions"`
	Total        int64                `json:"total"`
	Page         int                  `json:"page"`
	PageSize     int                  `json:"page_size"`
}

// RecordTransaction handles POST /v1/transactions
// It appends one entry to a vendor's ledger.
func (h *TransactionHandler) RecordTransaction(w http.ResponseWriter, r *http.Request) {
	var req RecordTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	vendorID, err := uuid.Parse(req.VendorID)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-vendor-id", "Invalid vendor_id")
		return
	}

	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}

	txType, err := domain.ParseTransactionType(req.Type)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}

	status := domain.TxStatusCompleted
	if req.Status != "" {
		status, err = domain.ParseTransactionStatus(req.Status)
		if err != nil {
			RespondDomainError(w, r, err)
			return
		}
	}

	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-claims", err.Error())
		return
	}

	var reference *string
	if ref := strings.TrimSpace(req.ReferenceNumber); ref != "" {
		reference = &ref
	}

	tx, err := h.ledgerSvc.RecordTransaction(r.Context(), service.RecordTransactionParams{
		VendorID:        vendorID,
		Amount:          amount,
		Type:            txType,
		Status:          status,
		ReferenceNumber: reference,
		Description:     req.Description,
		Metadata:        req.Metadata,
		ActorID:         &actorID,
	})
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}

	RespondJSON(w, http.StatusCreated, tx)
}

// GetTransaction handles GET /v1/transactions/{transactionID}
func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "transactionID"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-transaction-id", "Invalid transaction id")
		return
	}

	tx, err := h.ledgerSvc.GetTransaction(r.Context(), id)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}

	actorID, isAdmin, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-claims", err.Error())
		return
	}
	if !isAdmin && actorID != tx.VendorID {
		RespondError(w, r, http.StatusForbidden, "auth/forbidden", "vendors may only read their own transactions")
		return
	}

	RespondJSON(w, http.StatusOK, tx)
}

// ListTransactions handles GET /v1/vendors/{vendorID}/transactions
// Optional filters: type, status, from, to (RFC 3339), page, page_size.
func (h *TransactionHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
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
		RespondError(w, r, http.StatusForbidden, "auth/forbidden", "vendors may only read their own transactions")
		return
	}

	filter, err := transactionFilterFromQuery(r)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}

	page, err := pageFromQuery(r)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-pagination", err.Error())
		return
	}

	transactions, total, err := h.ledgerSvc.ListTransactions(r.Context(), vendorID, filter, page)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}

	RespondJSON(w, http.StatusOK, ListTransactionsResponse{
		Transactions: transactions,
		Total:        total,
		Page:         page.Number,
		PageSize:     page.Size,
	})
}

// UpdateTransactionStatus handles PATCH /v1/transactions/{transactionID}/status
func (h *TransactionHandler) UpdateTransactionStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "transactionID"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-transaction-id", "Invalid transaction id")
		return
	}

	var req UpdateTransactionStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	next, err := domain.ParseTransactionStatus(req.Status)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}

	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-claims", err.Error())
		return
	}

	tx, err := h.ledgerSvc.UpdateTransactionStatus(r.Context(), id, next, req.Note, &actorID)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}

	RespondJSON(w, http.StatusOK, tx)
}

func transactionFilterFromQuery(r *http.Request) (repository.TransactionFilter, error) {
	var filter repository.TransactionFilter
	q := r.URL.Query()

	if v := strings.TrimSpace(q.Get("type")); v != "" {
		parsed, err := domain.ParseTransactionType(v)
		if err != nil {
			return filter, err
		}
		filter.Type = &parsed
	}
	if v := strings.TrimSpace(q.Get("status")); v != "" {
		parsed, err := domain.ParseTransactionStatus(v)
		if err != nil {
			return filter, err
		}
		filter.Status = &parsed
	}
	if v := strings.TrimSpace(q.Get("from")); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, fmt.Errorf("%w: from must be RFC 3339", domain.ErrValidation)
		}
		filter.From = &parsed
	}
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, fmt.Errorf("%w: to must be RFC 3339", domain.ErrValidation)
		}
		filter.To = &parsed
	}

	return filter, nil
}
