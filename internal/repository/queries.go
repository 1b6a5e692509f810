package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX abstracts a pgx pool or transaction so the same query set runs in both
// scopes.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries is the Postgres implementation of Querier.
type Queries struct {
	db DBTX
}

// New creates a query set bound to a pool or transaction.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx rebinds the query set to a transaction.
func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

var _ Querier = (*Queries)(nil)
