package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tradeyard/vendor-ledger/internal/domain"
	"github.com/tradeyard/vendor-ledger/internal/models"
	"github.com/tradeyard/vendor-ledger/internal/repository"
)

// transitionTransactionStatus applies one settlement transition under the
// caller's transaction scope. Same-status re-application returns the current
// row unchanged; a terminal row rejects every other target.
func transitionTransactionStatus(ctx context.Context, q repository.Querier, audit *AuditService, id uuid.UUID, next domain.TransactionStatus, actorID *uuid.UUID, action string, metadata []byte) (*models.Transaction, error) {
	current, err := q.GetTransactionForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}

	if current.Status == next {
		return current, nil
	}
	if current.Status.Terminal() {
		return nil, fmt.Errorf("%w: transaction %s is %s", domain.ErrInvalidState, id, current.Status)
	}
	if !current.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: transaction %s -> %s", domain.ErrInvalidState, current.Status, next)
	}

	if err := q.SetTransactionStatus(ctx, id, next); err != nil {
		return nil, err
	}
	if err := audit.Write(ctx, q, "transaction", id, actorID, action, string(current.Status), string(next), metadata); err != nil {
		return nil, err
	}

	updated := *current
	updated.Status = next
	return &updated, nil
}
