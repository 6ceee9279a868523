package engine

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type txContextKey struct{}

// PGTransactor wraps the transition write window in a Postgres transaction.
// The open transaction travels in the context; Store implementations reach it
// through TxFromContext so their reads and writes join the same transaction.
type PGTransactor struct {
	pool *pgxpool.Pool
}

func NewPGTransactor(pool *pgxpool.Pool) *PGTransactor {
	if pool == nil {
		panic("engine: pgx pool cannot be nil")
	}
	return &PGTransactor{pool: pool}
}

func (t *PGTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return pgx.BeginFunc(ctx, t.pool, func(tx pgx.Tx) error {
		return fn(context.WithValue(ctx, txContextKey{}, tx))
	})
}

// TxFromContext returns the transaction opened by PGTransactor, if any.
func TxFromContext(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txContextKey{}).(pgx.Tx)
	return tx, ok
}
