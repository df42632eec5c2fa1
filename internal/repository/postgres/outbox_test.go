package postgres

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/seat-market/internal/domain"
	"github.com/kirinyoku/seat-market/internal/repository"
)

// newTestStore connects to the database named by SEATMARKET_TEST_DATABASE_URL.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("SEATMARKET_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("SEATMARKET_TEST_DATABASE_URL is not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	s := NewStore(pool)
	require.NoError(t, s.EnsureSchema(ctx))
	return s
}

func TestOutbox_PendingKeepsInsertOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	addr := domain.Addr("burnt1test" + uuid.NewString())

	// Ids sort against insert order so a tie on created_at cannot hide it.
	a, b := uuid.New(), uuid.New()
	if a.String() < b.String() {
		a, b = b, a
	}
	payout := domain.OutboxMessage{ID: a, Contract: addr, Height: 2, Kind: "bank_send", Payload: json.RawMessage(`{"n":1}`), CreatedAt: now}
	refund := domain.OutboxMessage{ID: b, Contract: addr, Height: 2, Kind: "bank_send", Payload: json.RawMessage(`{"n":2}`), CreatedAt: now}

	err := s.RunTx(ctx, nil, func(ctx context.Context, tx repository.Tx) error {
		inst := domain.Instance{Address: addr, Kind: domain.KindSeat, Creator: addr, Height: 2, CreatedAt: now, UpdatedAt: now}
		if err := tx.Instances().Create(ctx, inst); err != nil {
			return err
		}
		return tx.Outbox().Add(ctx, payout, refund)
	})
	require.NoError(t, err)

	var got []uuid.UUID
	err = s.RunTx(ctx, nil, func(ctx context.Context, tx repository.Tx) error {
		pending, err := tx.Outbox().Pending(ctx, 10000)
		if err != nil {
			return err
		}
		for _, m := range pending {
			if m.Contract == addr {
				got = append(got, m.ID)
			}
		}
		return tx.Outbox().MarkSent(ctx, got...)
	})
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{payout.ID, refund.ID}, got)
}
