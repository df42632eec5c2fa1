package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/seat-market/internal/domain"
	"github.com/kirinyoku/seat-market/internal/store"
)

const (
	upsertStateSQL = `INSERT INTO contract_state (contract, key, value) VALUES ($1, $2, $3)
		ON CONFLICT (contract, key) DO UPDATE SET value = EXCLUDED.value`
	deleteStateSQL = `DELETE FROM contract_state WHERE contract = $1 AND key = $2`
)

type StateRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *StateRepo) With(db DB) *StateRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *StateRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// View returns the contract's state as a store.KV that reads through the
// repository's connection. The view is only valid for the lifetime of ctx.
func (r *StateRepo) View(ctx context.Context, addr domain.Addr) store.KV {
	return &stateView{ctx: ctx, db: r.handle(), contract: string(addr)}
}

// Apply writes buffered changes in a single batch.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - addr: address of the contract owning the state.
//   - changes: writes and deletes in the order they should be applied.
//
// Returns:
//   - error: repository.ErrNotFound if the contract does not exist.
func (r *StateRepo) Apply(ctx context.Context, addr domain.Addr, changes []store.Change) error {
	const op = "postgres.StateRepo.Apply"

	if len(changes) == 0 {
		return nil
	}

	b := &pgx.Batch{}
	for _, c := range changes {
		if c.Deleted {
			b.Queue(deleteStateSQL, string(addr), c.Key)
			continue
		}
		b.Queue(upsertStateSQL, string(addr), c.Key, nonNil(c.Value))
	}

	br := r.handle().SendBatch(ctx, b)
	defer br.Close()

	for range changes {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
	}

	return nil
}

type stateView struct {
	ctx      context.Context
	db       DB
	contract string
}

func (v *stateView) Get(key []byte) ([]byte, error) {
	var value []byte
	err := v.db.QueryRow(v.ctx,
		`SELECT value FROM contract_state WHERE contract = $1 AND key = $2`,
		v.contract, key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, translateDBErr(err)
	}

	return value, nil
}

func (v *stateView) Set(key, value []byte) error {
	_, err := v.db.Exec(v.ctx, upsertStateSQL, v.contract, key, nonNil(value))
	return translateDBErr(err)
}

func (v *stateView) Delete(key []byte) error {
	_, err := v.db.Exec(v.ctx, deleteStateSQL, v.contract, key)
	return translateDBErr(err)
}

func (v *stateView) Scan(start, end []byte) ([]store.Pair, error) {
	rows, err := v.db.Query(v.ctx,
		`SELECT key, value FROM contract_state
		 WHERE contract = $1
		   AND ($2::bytea IS NULL OR key >= $2)
		   AND ($3::bytea IS NULL OR key < $3)
		 ORDER BY key`,
		v.contract, start, end,
	)
	if err != nil {
		return nil, translateDBErr(err)
	}
	defer rows.Close()

	var out []store.Pair
	for rows.Next() {
		var p store.Pair
		if err := rows.Scan(&p.Key, &p.Value); err != nil {
			return nil, err
		}
		out = append(out, p)
	}

	return out, rows.Err()
}

// nonNil keeps an empty value from being sent as NULL.
func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
