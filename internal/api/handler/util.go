package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tradeyard/vendor-ledger/internal/api/middleware"
	"github.com/tradeyard/vendor-ledger/internal/api/problem"
	"github.com/tradeyard/vendor-ledger/internal/domain"
	"github.com/tradeyard/vendor-ledger/internal/repository"
)

// RespondJSON writes a JSON response.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RespondError writes an error response.
func RespondError(w http.ResponseWriter, r *http.Request, status int, problemType, message string) {
	if problemType != "" && problemType != "about:blank" && !strings.HasPrefix(problemType, "http") {
		problemType = problem.Type(problemType)
	}
	problem.Write(w, r, status, problemType, http.StatusText(status), message)
}

// RespondDomainError maps the ledger error kinds onto HTTP statuses and
// problem slugs: validation and insufficient balance are 400, unknown ids
// are 404, illegal transitions are 409, everything else is a 500.
func RespondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		RespondError(w, r, http.StatusBadRequest, "request/validation", err.Error())
	case errors.Is(err, domain.ErrInsufficientBalance):
		RespondError(w, r, http.StatusBadRequest, "ledger/insufficient-balance", err.Error())
	case errors.Is(err, domain.ErrVendorNotFound):
		RespondError(w, r, http.StatusNotFound, "vendor/not-found", err.Error())
	case errors.Is(err, domain.ErrTransactionNotFound):
		RespondError(w, r, http.StatusNotFound, "transaction/not-found", err.Error())
	case errors.Is(err, domain.ErrWithdrawalNotFound):
		RespondError(w, r, http.StatusNotFound, "withdrawal/not-found", err.Error())
	case errors.Is(err, domain.ErrInvalidState):
		RespondError(w, r, http.StatusConflict, "withdrawal/invalid-state", err.Error())
	default:
		if status, slug, msg, ok := mapDBError(err); ok {
			RespondError(w, r, status, slug, msg)
			return
		}
		RespondError(w, r, http.StatusInternalServerError, "internal", "unexpected server error")
	}
}

func requestActor(r *http.Request) (uuid.UUID, bool, error) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		return uuid.Nil, false, errors.New("missing user in auth context")
	}

	actorID, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, false, errors.New("invalid user_id in auth context")
	}

	return actorID, middleware.UserRoleFromContext(r.Context()) == "admin", nil
}

// pageFromQuery reads ?page= and ?page_size= with the repository defaults.
func pageFromQuery(r *http.Request) (repository.Page, error) {
	page := repository.Page{}
	if v := strings.TrimSpace(r.URL.Query().Get("page")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			return page, errors.New("page must be a positive integer")
		}
		page.Number = parsed
	}
	if v := strings.TrimSpace(r.URL.Query().Get("page_size")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			return page, errors.New("page_size must be a positive integer")
		}
		page.Size = parsed
	}
	return page.Normalize(), nil
}

func mapDBError(err error) (status int, problemType, message string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return 0, "", "", false
	}

	switch pgErr.Code {
	case "23505": // unique_violation
		return http.StatusConflict, "db/unique-violation", "resource already exists", true
	case "23503": // foreign_key_violation
		return http.StatusBadRequest, "db/foreign-key-violation", "invalid reference", true
	case "23514": // check_violation
		return http.StatusBadRequest, "db/check-violation", "request violates data constraints", true
	case "23502": // not_null_violation
		return http.StatusBadRequest, "db/not-null-violation", "missing required field", true
	default:
		return 0, "", "", false
	}
}
