package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store pairs a query set with transaction scoping over one pgx pool.
type Store struct {
	db      *pgxpool.Pool
	queries *Queries
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db, queries: New(db)}
}

// Querier returns the non-transactional query set.
func (s *Store) Querier() Querier {
	return s.queries
}

// RunInTx runs fn inside a single database transaction, committing only when
// fn returns nil. Every balance-read-then-state-write path in the withdrawal
// workflow goes through here so the vendor row lock is held from the read to
// the write.
func (s *Store) RunInTx(ctx context.Context, fn func(q Querier) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(s.queries.WithTx(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
