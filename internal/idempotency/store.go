// Package idempotency stores finalized HTTP responses keyed by the caller's
// Idempotency-Key so retried mutations replay the first outcome instead of
// executing twice. Postgres is the source of truth; redis is a best-effort
// read-through cache and the store works without it.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tradeyard/vendor-ledger/internal/repository"
)

var (
	ErrNotFound     = errors.New("idempotency key not found")
	ErrHashMismatch = errors.New("idempotency key body mismatch")
	ErrInProgress   = errors.New("idempotency key in progress")
)

const pollInterval = 50 * time.Millisecond

// Record is a finalized response served to retried calls. ServedBy names
// the tier the record came from and is surfaced in the replay header.
type Record struct {
	Key         string
	RequestHash string
	Status      int
	Body        []byte
	ContentType string
	ServedBy    string
}

// Store keeps idempotency records in Postgres with a redis cache in front.
type Store struct {
	redis redis.Cmdable
	db    *pgxpool.Pool
	ttl   time.Duration
}

func NewStore(redis redis.Cmdable, db *pgxpool.Pool, ttl time.Duration) *Store {
	return &Store{redis: redis, db: db, ttl: ttl}
}

// cachedRecord is the redis payload. The request hash travels with the body
// so a cache hit can still detect key reuse with a different request.
type cachedRecord struct {
	Key         string `json:"key"`
	Hash        string `json:"hash"`
	Status      int    `json:"status"`
	Body        []byte `json:"body"`
	ContentType string `json:"content_type"`
}

func cacheKey(key string) string {
	return "idempotency:" + key
}

// Lookup returns the finalized record for key. It reports ErrHashMismatch
// when the key was used with a different request, ErrInProgress while the
// first request is still executing, and ErrNotFound for an unseen key.
func (s *Store) Lookup(ctx context.Context, key, requestHash string) (*Record, error) {
	if rec, ok := s.fromCache(ctx, key); ok {
		if rec.RequestHash != requestHash {
			return nil, ErrHashMismatch
		}
		return rec, nil
	}

	row, err := repository.New(s.db).GetIdempotencyKey(ctx, key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lookup idempotency key: %w", err)
	}
	if row.RequestHash != requestHash {
		return nil, ErrHashMismatch
	}
	if row.InProgress {
		return nil, ErrInProgress
	}

	rec := &Record{
		Key:         row.IdempotencyKey,
		RequestHash: row.RequestHash,
		Status:      int(row.ResponseStatus),
		Body:        row.ResponseBody,
		ContentType: row.ContentType,
		ServedBy:    "postgres",
	}
	s.toCache(ctx, rec)
	return rec, nil
}

// Reserve claims key for the current request. It returns false without error
// when another request already holds the claim.
func (s *Store) Reserve(ctx context.Context, key, requestHash, method, path string) (bool, error) {
	_, err := repository.New(s.db).ReserveIdempotencyKey(ctx, key, requestHash, method, path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, pgx.ErrNoRows):
		return false, nil
	default:
		return false, fmt.Errorf("reserve idempotency key: %w", err)
	}
}

// Finalize stores the response for key and clears the in-progress claim.
func (s *Store) Finalize(ctx context.Context, key, requestHash string, status int, body []byte, contentType string) (*Record, error) {
	row, err := repository.New(s.db).FinalizeIdempotencyKey(ctx, key, requestHash, int32(status), body, contentType)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("finalize idempotency key: %w", err)
	}

	rec := &Record{
		Key:         row.IdempotencyKey,
		RequestHash: row.RequestHash,
		Status:      int(row.ResponseStatus),
		Body:        row.ResponseBody,
		ContentType: row.ContentType,
		ServedBy:    "postgres",
	}
	s.toCache(ctx, rec)
	return rec, nil
}

// WaitForCompletion polls until the request holding the reservation
// finalizes, the context expires, or a non-retryable error surfaces.
func (s *Store) WaitForCompletion(ctx context.Context, key, requestHash string) (*Record, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		rec, err := s.Lookup(ctx, key, requestHash)
		if !errors.Is(err, ErrInProgress) {
			return rec, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// PurgeExpired removes finalized records older than the store TTL.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	return repository.New(s.db).PurgeExpiredIdempotencyKeys(ctx, int64(s.ttl.Seconds()))
}

func (s *Store) fromCache(ctx context.Context, key string) (*Record, bool) {
	if s.redis == nil {
		return nil, false
	}
	val, err := s.redis.Get(ctx, cacheKey(key)).Result()
	if err != nil {
		if err != redis.Nil {
			zap.L().Warn("redis idempotency lookup failed", zap.Error(err))
		}
		return nil, false
	}
	var cached cachedRecord
	if json.Unmarshal([]byte(val), &cached) != nil {
		return nil, false
	}
	return &Record{
		Key:         cached.Key,
		RequestHash: cached.Hash,
		Status:      cached.Status,
		Body:        cached.Body,
		ContentType: cached.ContentType,
		ServedBy:    "redis",
	}, true
}

func (s *Store) toCache(ctx context.Context, rec *Record) {
	if s.redis == nil {
		return
	}
	payload, err := json.Marshal(cachedRecord{
		Key:         rec.Key,
		Hash:        rec.RequestHash,
		Status:      rec.Status,
		Body:        rec.Body,
		ContentType: rec.ContentType,
	})
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, cacheKey(rec.Key), payload, s.ttl).Err(); err != nil {
		zap.L().Warn("redis idempotency cache set failed", zap.Error(err))
	}
}
