package repository

import (
	"context"
	"fmt"
)

func (q *Queries) InsertAuditLog(ctx context.Context, entry AuditEntry) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO audit_log (entity_type, entity_id, actor_id, action, prev_state, next_state, metadata, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, NOW())
	`, entry.EntityType, entry.EntityID, entry.ActorID, entry.Action, entry.PrevState, entry.NextState, entry.Metadata)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}
