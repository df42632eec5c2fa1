package token

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/seat-market/internal/contract"
	ct "github.com/kirinyoku/seat-market/internal/contract/contracttest"
	"github.com/kirinyoku/seat-market/internal/domain"
)

type ext struct {
	Name *string `json:"name,omitempty"`
}

func setup(t *testing.T) (contract.Deps, *Tokens[ext], domain.Addr) {
	t.Helper()
	deps, _ := ct.Deps()
	minter := ct.Addr(t, "minter")
	tk := New[ext]("seat_token")
	_, err := tk.Instantiate(deps, ct.Env(t, 0), ct.Info(minter),
		ct.JSON(t, InstantiateMsg{Name: "Seats", Symbol: "SEAT", Minter: minter.String()}))
	require.NoError(t, err)
	return deps, tk, minter
}

func mint(t *testing.T, deps contract.Deps, tk *Tokens[ext], minter domain.Addr, id string, owner domain.Addr) {
	t.Helper()
	_, err := tk.Mint(deps, minter, MintMsg[ext]{TokenID: id, Owner: owner.String()})
	require.NoError(t, err)
}

func TestMint(t *testing.T) {
	deps, tk, minter := setup(t)
	owner := ct.Addr(t, "owner")

	res, err := tk.Execute(deps, ct.Env(t, 0), ct.Info(minter),
		json.RawMessage(`{"mint":{"token_id":"1","owner":"`+owner.String()+`","token_uri":"https://example.com","extension":{}}}`))
	require.NoError(t, err)
	assert.NotEmpty(t, res.Attributes)

	got, err := tk.Query(deps, ct.Env(t, 0), json.RawMessage(`{"owner_of":{"token_id":"1"}}`))
	require.NoError(t, err)
	assert.Equal(t, OwnerOfResponse{Owner: owner, Approvals: []Approval{}}, got)

	t.Run("duplicate id", func(t *testing.T) {
		_, err := tk.Mint(deps, minter, MintMsg[ext]{TokenID: "1", Owner: owner.String()})
		assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	})

	t.Run("non minter", func(t *testing.T) {
		_, err := tk.Mint(deps, owner, MintMsg[ext]{TokenID: "2", Owner: owner.String()})
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("empty id", func(t *testing.T) {
		_, err := tk.Mint(deps, minter, MintMsg[ext]{Owner: owner.String()})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestTransferNft(t *testing.T) {
	deps, tk, minter := setup(t)
	owner, spender, buyer := ct.Addr(t, "owner"), ct.Addr(t, "spender"), ct.Addr(t, "buyer")
	mint(t, deps, tk, minter, "1", owner)

	_, err := tk.TransferNft(deps, spender, buyer.String(), "1")
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = tk.Approve(deps, owner, spender.String(), "1")
	require.NoError(t, err)

	_, err = tk.TransferNft(deps, spender, buyer.String(), "1")
	require.NoError(t, err)

	info, err := tk.Load(deps.Storage, "1")
	require.NoError(t, err)
	assert.Equal(t, buyer, info.Owner)
	assert.Empty(t, info.Approvals)

	_, err = tk.TransferNft(deps, owner, buyer.String(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRevoke(t *testing.T) {
	deps, tk, minter := setup(t)
	owner, spender := ct.Addr(t, "owner"), ct.Addr(t, "spender")
	mint(t, deps, tk, minter, "1", owner)

	_, err := tk.Approve(deps, owner, spender.String(), "1")
	require.NoError(t, err)
	_, err = tk.Revoke(deps, owner, spender.String(), "1")
	require.NoError(t, err)

	_, err = tk.TransferNft(deps, spender, spender.String(), "1")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestQueries(t *testing.T) {
	deps, tk, minter := setup(t)
	alice, bob := ct.Addr(t, "alice"), ct.Addr(t, "bob")
	for _, id := range []string{"a", "b", "c", "d"} {
		owner := alice
		if id == "b" {
			owner = bob
		}
		mint(t, deps, tk, minter, id, owner)
	}
	env := ct.Env(t, 0)

	got, err := tk.Query(deps, env, json.RawMessage(`{"num_tokens":{}}`))
	require.NoError(t, err)
	assert.Equal(t, NumTokensResponse{Count: 4}, got)

	got, err = tk.Query(deps, env, ct.JSON(t, map[string]any{"tokens": map[string]any{"owner": alice, "start_after": "a", "limit": 1}}))
	require.NoError(t, err)
	assert.Equal(t, TokensResponse{Tokens: []string{"c"}}, got)

	got, err = tk.Query(deps, env, json.RawMessage(`{"all_tokens":{"start_after":"b"}}`))
	require.NoError(t, err)
	assert.Equal(t, TokensResponse{Tokens: []string{"c", "d"}}, got)

	got, err = tk.Query(deps, env, json.RawMessage(`{"contract_info":{}}`))
	require.NoError(t, err)
	assert.Equal(t, ContractInfoResponse{Name: "Seats", Symbol: "SEAT"}, got)

	got, err = tk.Query(deps, env, json.RawMessage(`{"minter":{}}`))
	require.NoError(t, err)
	assert.Equal(t, MinterResponse{Minter: minter}, got)

	_, err = tk.Query(deps, env, json.RawMessage(`{"approvals":{}}`))
	assert.ErrorIs(t, err, domain.ErrValidation)
}
