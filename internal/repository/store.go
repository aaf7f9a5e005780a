package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store extends Querier with transactions.
type Store interface {
	Querier

	// ExecTx runs fn inside a single transaction. The transaction commits
	// when fn returns nil and rolls back otherwise.
	ExecTx(ctx context.Context, fn func(Querier) error) error
}

// PoolStore is the pgxpool-backed Store.
type PoolStore struct {
	*Queries
	pool *pgxpool.Pool
}

var _ Store = (*PoolStore)(nil)

// NewStore creates a Store over a connection pool.
func NewStore(pool *pgxpool.Pool) *PoolStore {
	return &PoolStore{
		Queries: New(pool),
		pool:    pool,
	}
}

// ExecTx runs fn in a read-committed transaction.
func (s *PoolStore) ExecTx(ctx context.Context, fn func(Querier) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// Rollback after Commit is a no-op.
	defer tx.Rollback(ctx)

	if err := fn(s.Queries.WithTx(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
