package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/seat-market/internal/repository"
)

type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool: pool,
	}
}

// RunTx runs fn inside a serializable transaction bound to the store's
// repositories. Serialization failures and deadlocks are reported wrapped in
// repository.ErrRetryable.
func (s *Store) RunTx(
	ctx context.Context,
	opts *repository.TxOptions,
	fn func(ctx context.Context, tx repository.Tx) error,
) error {
	txOpts := &pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	}

	if opts != nil && opts.ReadOnly {
		txOpts.AccessMode = pgx.ReadOnly
		txOpts.DeferrableMode = pgx.Deferrable
	}

	err := s.runTx(ctx, txOpts, func(ctx context.Context, db DB) error {
		return fn(ctx, &tx{store: s, db: db})
	})
	if IsRetryable(err) {
		return fmt.Errorf("%w: %w", repository.ErrRetryable, err)
	}

	return err
}

func (s *Store) runTx(
	ctx context.Context,
	opts *pgx.TxOptions,
	fn func(ctx context.Context, tx DB) error,
) error {
	pgTx, err := s.pool.BeginTx(ctx, *opts)
	if err != nil {
		return err
	}

	defer pgTx.Rollback(ctx)

	if err := fn(ctx, pgTx); err != nil {
		return err
	}

	if err := pgTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

func (s *Store) Instances() *InstanceRepo { return &InstanceRepo{pool: s.pool} }
func (s *Store) State() *StateRepo         { return &StateRepo{pool: s.pool} }
func (s *Store) Outbox() *OutboxRepo       { return &OutboxRepo{pool: s.pool} }

type tx struct {
	store *Store
	db    DB
}

func (t *tx) Instances() repository.Instances { return t.store.Instances().With(t.db) }
func (t *tx) State() repository.State         { return t.store.State().With(t.db) }
func (t *tx) Outbox() repository.Outbox       { return t.store.Outbox().With(t.db) }
