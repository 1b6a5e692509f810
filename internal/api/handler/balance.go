package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tradeyard/vendor-ledger/internal/service"
)

// BalanceHandler handles HTTP requests for vendor balances.
type BalanceHandler struct {
	ledgerSvc *service.LedgerService
}

// NewBalanceHandler creates a new BalanceHandler instance.
func NewBalanceHandler(ledgerSvc *service.LedgerService) *BalanceHandler {
	return &BalanceHandler{ledgerSvc: ledgerSvc}
}

// GetBalance handles GET /v1/vendors/{vendorID}/balance
// It computes the vendor's position from the ledger on every call.
func (h *BalanceHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
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
		RespondError(w, r, http.StatusForbidden, "auth/forbidden", "vendors may only read their own balance")
		return
	}

	balance, err := h.ledgerSvc.CalculateBalance(r.Context(), vendorID)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}

	RespondJSON(w, http.StatusOK, balance)
}
