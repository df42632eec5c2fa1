package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/seat-market/internal/domain"
	"github.com/kirinyoku/seat-market/internal/repository"
	"github.com/kirinyoku/seat-market/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, b *Backend, addr domain.Addr) {
	t.Helper()
	err := b.RunTx(context.Background(), nil, func(ctx context.Context, tx repository.Tx) error {
		return tx.Instances().Create(ctx, domain.Instance{Address: addr, Kind: domain.KindSeat})
	})
	require.NoError(t, err)
}

func TestRunTxCommitsOnSuccess(t *testing.T) {
	b := New()
	seed(t, b, "c1")

	err := b.RunTx(context.Background(), nil, func(ctx context.Context, tx repository.Tx) error {
		return tx.State().Apply(ctx, "c1", []store.Change{{Key: []byte("k"), Value: []byte("v")}})
	})
	require.NoError(t, err)

	err = b.RunTx(context.Background(), &repository.TxOptions{ReadOnly: true}, func(ctx context.Context, tx repository.Tx) error {
		v, err := tx.State().View(ctx, "c1").Get([]byte("k"))
		require.NoError(t, err)
		assert.Equal(t, "v", string(v))
		return nil
	})
	require.NoError(t, err)
}

func TestRunTxDiscardsOnError(t *testing.T) {
	b := New()
	seed(t, b, "c1")
	boom := errors.New("boom")

	err := b.RunTx(context.Background(), nil, func(ctx context.Context, tx repository.Tx) error {
		require.NoError(t, tx.State().Apply(ctx, "c1", []store.Change{{Key: []byte("k"), Value: []byte("v")}}))
		require.NoError(t, tx.Instances().Touch(ctx, "c1", 9, time.Now()))
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = b.RunTx(context.Background(), nil, func(ctx context.Context, tx repository.Tx) error {
		inst, err := tx.Instances().Get(ctx, "c1")
		require.NoError(t, err)
		assert.Zero(t, inst.Height)

		v, err := tx.State().View(ctx, "c1").Get([]byte("k"))
		require.NoError(t, err)
		assert.Nil(t, v)
		return nil
	})
	require.NoError(t, err)
}

func TestInstancesConflictAndNotFound(t *testing.T) {
	b := New()
	seed(t, b, "c1")

	err := b.RunTx(context.Background(), nil, func(ctx context.Context, tx repository.Tx) error {
		return tx.Instances().Create(ctx, domain.Instance{Address: "c1"})
	})
	require.ErrorIs(t, err, repository.ErrConflict)

	err = b.RunTx(context.Background(), nil, func(ctx context.Context, tx repository.Tx) error {
		_, err := tx.Instances().Get(ctx, "missing")
		return err
	})
	require.ErrorIs(t, err, repository.ErrNotFound)

	err = b.RunTx(context.Background(), nil, func(ctx context.Context, tx repository.Tx) error {
		return tx.State().Apply(ctx, "missing", []store.Change{{Key: []byte("k"), Value: []byte("v")}})
	})
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestReadOnlyRejectsWrites(t *testing.T) {
	b := New()

	err := b.RunTx(context.Background(), &repository.TxOptions{ReadOnly: true}, func(ctx context.Context, tx repository.Tx) error {
		return tx.Instances().Create(ctx, domain.Instance{Address: "c1"})
	})
	require.Error(t, err)
}

func TestOutboxPendingInInsertOrder(t *testing.T) {
	b := New()
	seed(t, b, "c1")
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	for _, id := range ids {
		err := b.RunTx(context.Background(), nil, func(ctx context.Context, tx repository.Tx) error {
			return tx.Outbox().Add(ctx, domain.OutboxMessage{ID: id, Contract: "c1", Kind: "bank_send"})
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, b.Unsent())

	err := b.RunTx(context.Background(), nil, func(ctx context.Context, tx repository.Tx) error {
		pending, err := tx.Outbox().Pending(ctx, 2)
		require.NoError(t, err)
		require.Len(t, pending, 2)
		assert.Equal(t, ids[0], pending[0].ID)
		assert.Equal(t, ids[1], pending[1].ID)
		return tx.Outbox().MarkSent(ctx, pending[0].ID, pending[1].ID)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, b.Unsent())

	err = b.RunTx(context.Background(), nil, func(ctx context.Context, tx repository.Tx) error {
		pending, err := tx.Outbox().Pending(ctx, 10)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, ids[2], pending[0].ID)
		return nil
	})
	require.NoError(t, err)
}
