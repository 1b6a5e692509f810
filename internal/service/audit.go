package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/tradeyard/vendor-ledger/internal/repository"
)

// AuditService writes immutable audit trail entries. Every state transition
// in the ledger and the payout workflow passes through here.
type AuditService struct{}

func NewAuditService() *AuditService {
	return &AuditService{}
}

// Write stores a single immutable audit record inside the caller's
// transaction scope.
func (s *AuditService) Write(ctx context.Context, q repository.Querier, entityType string, entityID uuid.UUID, actorID *uuid.UUID, action, prevState, nextState string, metadata []byte) error {
	if err := q.InsertAuditLog(ctx, repository.AuditEntry{
		EntityType: entityType,
		EntityID:   entityID,
		ActorID:    actorID,
		Action:     action,
		PrevState:  prevState,
		NextState:  nextState,
		Metadata:   metadata,
	}); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

func marshalReasonMetadata(reason string) ([]byte, error) {
	return json.Marshal(map[string]string{
		"reason": reason,
	})
}
