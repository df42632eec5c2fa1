// Package contracttest builds call fixtures for contract tests.
package contracttest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/seat-market/internal/contract"
	"github.com/kirinyoku/seat-market/internal/domain"
	"github.com/kirinyoku/seat-market/internal/store"
)

const Prefix = "burnt"

// Addr returns a deterministic valid address for a test actor.
func Addr(t testing.TB, name string) domain.Addr {
	t.Helper()
	a, err := domain.DeriveAddress(Prefix, name)
	require.NoError(t, err)
	return a
}

// Deps returns deps over a fresh in-memory store.
func Deps() (contract.Deps, *store.MemKV) {
	kv := store.NewMemKV()
	return contract.Deps{Storage: kv, API: domain.Bech32Validator{Prefix: Prefix}}, kv
}

// Env returns an environment at the given block time.
func Env(t testing.TB, seconds uint64) domain.Env {
	return domain.Env{
		Block:    domain.BlockInfo{Height: 1, Time: domain.Timestamp(seconds), ChainID: "testing"},
		Contract: domain.ContractInfo{Address: Addr(t, "contract")},
	}
}

func Info(sender domain.Addr, funds ...domain.Coin) domain.MessageInfo {
	return domain.MessageInfo{Sender: sender, Funds: domain.NewCoins(funds...)}
}

// JSON marshals v or fails the test.
func JSON(t testing.TB, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

// Snapshot copies every entry of kv so tests can assert a failed call left
// state untouched.
func Snapshot(t testing.TB, kv store.KV) []store.Pair {
	t.Helper()
	pairs, err := kv.Scan(nil, nil)
	require.NoError(t, err)
	return pairs
}
