package repository

import (
	"context"
	"fmt"
)

// IdempotencyRecord is the durable half of the idempotency contract: the
// stored response replayed to retried mutating calls.
type IdempotencyRecord struct {
	IdempotencyKey string
	RequestHash    string
	Method         string
	Path           string
	ResponseStatus int32
	ResponseBody   []byte
	ContentType    string
	InProgress     bool
}

const idempotencyColumns = `idempotency_key, request_hash, method, path, response_status, response_body, content_type, in_progress`

func (q *Queries) GetIdempotencyKey(ctx context.Context, key string) (IdempotencyRecord, error) {
	var rec IdempotencyRecord
	err := q.db.QueryRow(ctx, `SELECT `+idempotencyColumns+` FROM idempotency_keys WHERE idempotency_key = $1`, key).
		Scan(&rec.IdempotencyKey, &rec.RequestHash, &rec.Method, &rec.Path, &rec.ResponseStatus, &rec.ResponseBody, &rec.ContentType, &rec.InProgress)
	if err != nil {
		return IdempotencyRecord{}, err
	}
	return rec, nil
}

// ReserveIdempotencyKey claims a key for an in-flight request. Returns
// pgx.ErrNoRows when another request already holds the key.
func (q *Queries) ReserveIdempotencyKey(ctx context.Context, key, requestHash, method, path string) (IdempotencyRecord, error) {
	var rec IdempotencyRecord
	err := q.db.QueryRow(ctx, `
		INSERT INTO idempotency_keys (idempotency_key, request_hash, method, path, response_status, response_body, content_type, in_progress, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, NULL, '', TRUE, NOW(), NOW())
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING `+idempotencyColumns, key, requestHash, method, path).
		Scan(&rec.IdempotencyKey, &rec.RequestHash, &rec.Method, &rec.Path, &rec.ResponseStatus, &rec.ResponseBody, &rec.ContentType, &rec.InProgress)
	if err != nil {
		return IdempotencyRecord{}, err
	}
	return rec, nil
}

func (q *Queries) FinalizeIdempotencyKey(ctx context.Context, key, requestHash string, status int32, body []byte, contentType string) (IdempotencyRecord, error) {
	var rec IdempotencyRecord
	err := q.db.QueryRow(ctx, `
		UPDATE idempotency_keys
		SET response_status = $1, response_body = $2, content_type = $3, in_progress = FALSE, updated_at = NOW()
		WHERE idempotency_key = $4 AND request_hash = $5
		RETURNING `+idempotencyColumns, status, body, contentType, key, requestHash).
		Scan(&rec.IdempotencyKey, &rec.RequestHash, &rec.Method, &rec.Path, &rec.ResponseStatus, &rec.ResponseBody, &rec.ContentType, &rec.InProgress)
	if err != nil {
		return IdempotencyRecord{}, err
	}
	return rec, nil
}

// PurgeExpiredIdempotencyKeys removes finalized records older than the TTL.
func (q *Queries) PurgeExpiredIdempotencyKeys(ctx context.Context, olderThanSeconds int64) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		DELETE FROM idempotency_keys
		WHERE in_progress = FALSE AND updated_at < NOW() - make_interval(secs => $1)
	`, olderThanSeconds)
	if err != nil {
		return 0, fmt.Errorf("purge idempotency keys: %w", err)
	}
	return tag.RowsAffected(), nil
}
