package postgres

import (
	"context"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS contracts (
	address    TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	creator    TEXT NOT NULL,
	height     BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS contract_state (
	contract TEXT NOT NULL REFERENCES contracts (address) ON DELETE CASCADE,
	key      BYTEA NOT NULL,
	value    BYTEA NOT NULL,
	PRIMARY KEY (contract, key)
);

CREATE TABLE IF NOT EXISTS outbox (
	seq        BIGSERIAL,
	id         UUID PRIMARY KEY,
	contract   TEXT NOT NULL REFERENCES contracts (address) ON DELETE CASCADE,
	height     BIGINT NOT NULL,
	kind       TEXT NOT NULL,
	payload    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	sent_at    TIMESTAMPTZ
);

ALTER TABLE outbox ADD COLUMN IF NOT EXISTS seq BIGSERIAL;

-- seq follows insert order, so messages from one call keep their relative order.
CREATE INDEX IF NOT EXISTS outbox_unsent_idx ON outbox (seq) WHERE sent_at IS NULL;
`

// EnsureSchema creates the tables the store needs if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	const op = "postgres.Store.EnsureSchema"

	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}
