package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/seat-market/internal/domain"
)

type OutboxRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *OutboxRepo) With(db DB) *OutboxRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *OutboxRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *OutboxRepo) Add(ctx context.Context, msgs ...domain.OutboxMessage) error {
	const op = "postgres.OutboxRepo.Add"

	if len(msgs) == 0 {
		return nil
	}

	b := &pgx.Batch{}
	for _, m := range msgs {
		b.Queue(
			`INSERT INTO outbox (id, contract, height, kind, payload, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			m.ID, string(m.Contract), int64(m.Height), m.Kind, []byte(m.Payload), m.CreatedAt,
		)
	}

	br := r.handle().SendBatch(ctx, b)
	defer br.Close()

	for range msgs {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
	}

	return nil
}

// Pending returns unsent outbox messages in insert order. Rows are locked for
// the rest of the transaction and rows locked by other relays are skipped.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - limit: maximum number of messages to return.
//
// Returns:
//   - []domain.OutboxMessage: the pending messages, possibly empty.
//   - error: if the query fails.
func (r *OutboxRepo) Pending(ctx context.Context, limit int) ([]domain.OutboxMessage, error) {
	const op = "postgres.OutboxRepo.Pending"

	rows, err := r.handle().Query(ctx,
		`SELECT id, contract, height, kind, payload, created_at
		 FROM outbox
		 WHERE sent_at IS NULL
		 ORDER BY seq
		 LIMIT $1
		 FOR UPDATE SKIP LOCKED`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}
	defer rows.Close()

	var out []domain.OutboxMessage
	for rows.Next() {
		var (
			m        domain.OutboxMessage
			contract string
			height   int64
			payload  []byte
		)
		if err := rows.Scan(&m.ID, &contract, &height, &m.Kind, &payload, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		m.Contract = domain.Addr(contract)
		m.Height = uint64(height)
		m.Payload = payload
		out = append(out, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

func (r *OutboxRepo) MarkSent(ctx context.Context, ids ...uuid.UUID) error {
	const op = "postgres.OutboxRepo.MarkSent"

	if len(ids) == 0 {
		return nil
	}

	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}

	if _, err := r.handle().Exec(ctx,
		`UPDATE outbox SET sent_at = now() WHERE id = ANY($1::uuid[])`,
		strs,
	); err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}
