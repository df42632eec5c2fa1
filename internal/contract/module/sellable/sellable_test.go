package sellable

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/seat-market/internal/contract"
	ct "github.com/kirinyoku/seat-market/internal/contract/contracttest"
	"github.com/kirinyoku/seat-market/internal/contract/module/ownable"
	"github.com/kirinyoku/seat-market/internal/contract/module/token"
	"github.com/kirinyoku/seat-market/internal/contract/response"
	"github.com/kirinyoku/seat-market/internal/domain"
)

type fixture struct {
	deps   contract.Deps
	owner  domain.Addr
	tokens *token.Tokens[struct{}]
	sell   *Sellable
}

func setup(t *testing.T, ids ...string) fixture {
	t.Helper()
	deps, _ := ct.Deps()
	owner := ct.Addr(t, "owner")
	env, info := ct.Env(t, 0), ct.Info(owner)

	own := ownable.New()
	_, err := own.Instantiate(deps, env, info, json.RawMessage(`{}`))
	require.NoError(t, err)
	tk := token.New[struct{}]("seat_token")
	_, err = tk.Instantiate(deps, env, info, json.RawMessage(`{"name":"n","symbol":"s"}`))
	require.NoError(t, err)
	for _, id := range ids {
		_, err := tk.Mint(deps, owner, token.MintMsg[struct{}]{TokenID: id, Owner: owner.String()})
		require.NoError(t, err)
	}
	s := New(own, tk)
	_, err = s.Instantiate(deps, env, info, json.RawMessage(`{"tokens":{}}`))
	require.NoError(t, err)
	return fixture{deps: deps, owner: owner, tokens: tk, sell: s}
}

func ustake(n uint64) domain.Coins { return domain.NewCoins(domain.NewCoin(n, "ustake")) }

func (f fixture) list(t *testing.T, listings map[string]domain.Coins) {
	t.Helper()
	_, err := f.sell.List(f.deps, f.owner, listings)
	require.NoError(t, err)
}

func TestList_OwnerOnly(t *testing.T) {
	f := setup(t, "1")
	before := ct.Snapshot(t, f.deps.Storage)

	_, err := f.sell.List(f.deps, ct.Addr(t, "stranger"), map[string]domain.Coins{"1": ustake(5)})

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Equal(t, before, ct.Snapshot(t, f.deps.Storage))
}

func TestList_Validation(t *testing.T) {
	f := setup(t, "1", "2")

	_, err := f.sell.List(f.deps, f.owner, map[string]domain.Coins{"1": ustake(5), "9": ustake(5)})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.sell.List(f.deps, f.owner, map[string]domain.Coins{"1": nil})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.sell.List(f.deps, f.owner, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	listed, err := f.sell.Listed(f.deps.Storage, nil, 0)
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestBuy_ExactPrice(t *testing.T) {
	f := setup(t, "1", "2")
	f.list(t, map[string]domain.Coins{"1": ustake(200), "2": ustake(100)})
	buyer := ct.Addr(t, "buyer")

	res, err := f.sell.Buy(f.deps, ct.Info(buyer, domain.NewCoin(200, "ustake")))
	require.NoError(t, err)

	owner, err := f.tokens.OwnerOf(f.deps.Storage, "1")
	require.NoError(t, err)
	assert.Equal(t, buyer, owner)

	listed, err := f.sell.Listed(f.deps.Storage, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, []Listing{{TokenID: "2", Price: ustake(100)}}, listed)

	require.Len(t, res.Messages, 1)
	assert.Equal(t, &response.BankSend{ToAddress: f.owner, Amount: ustake(200)}, res.Messages[0].BankSend)
}

func TestBuy_CheapestCoveredWithRefund(t *testing.T) {
	f := setup(t, "a", "b", "c")
	f.list(t, map[string]domain.Coins{"a": ustake(300), "b": ustake(120), "c": ustake(150)})
	buyer := ct.Addr(t, "buyer")

	res, err := f.sell.Buy(f.deps, ct.Info(buyer, domain.NewCoin(200, "ustake")))
	require.NoError(t, err)

	owner, err := f.tokens.OwnerOf(f.deps.Storage, "b")
	require.NoError(t, err)
	assert.Equal(t, buyer, owner)
	require.Len(t, res.Messages, 2)
	assert.Equal(t, &response.BankSend{ToAddress: f.owner, Amount: ustake(120)}, res.Messages[0].BankSend)
	assert.Equal(t, &response.BankSend{ToAddress: buyer, Amount: ustake(80)}, res.Messages[1].BankSend)
}

func TestBuy_InsufficientFunds(t *testing.T) {
	f := setup(t, "1", "2")
	f.list(t, map[string]domain.Coins{"1": ustake(200), "2": ustake(100)})
	before := ct.Snapshot(t, f.deps.Storage)

	for _, funds := range []domain.Coins{ustake(10), ustake(99), domain.NewCoins(domain.NewCoin(500, "uatom")), nil} {
		_, err := f.sell.Buy(f.deps, domain.MessageInfo{Sender: ct.Addr(t, "buyer"), Funds: funds})
		assert.ErrorIs(t, err, domain.ErrInsufficientFunds, funds.String())
	}
	assert.Equal(t, before, ct.Snapshot(t, f.deps.Storage))
}

func TestListedTokens_Pagination(t *testing.T) {
	ids := []string{"01", "02", "03", "04", "05", "06", "07", "08", "09", "10", "11", "12"}
	f := setup(t, ids...)
	listings := make(map[string]domain.Coins, len(ids))
	for _, id := range ids {
		listings[id] = ustake(1)
	}
	f.list(t, listings)

	got, err := f.sell.Query(f.deps, ct.Env(t, 0), json.RawMessage(`{"listed_tokens":{}}`))
	require.NoError(t, err)
	page := got.(ListedTokensResponse).ListedTokens
	require.Len(t, page, 10)
	assert.Equal(t, "01", page[0].TokenID)

	got, err = f.sell.Query(f.deps, ct.Env(t, 0), json.RawMessage(`{"listed_tokens":{"start_after":"10","limit":5}}`))
	require.NoError(t, err)
	page = got.(ListedTokensResponse).ListedTokens
	require.Len(t, page, 2)
	assert.Equal(t, "11", page[0].TokenID)
}

func TestDelist(t *testing.T) {
	f := setup(t, "1")
	f.list(t, map[string]domain.Coins{"1": ustake(5)})

	_, err := f.sell.Execute(f.deps, ct.Env(t, 0), ct.Info(f.owner), json.RawMessage(`{"delist":{"token_ids":["1"]}}`))
	require.NoError(t, err)

	_, listed, err := f.sell.Price(f.deps.Storage, "1")
	require.NoError(t, err)
	assert.False(t, listed)
}

func TestBuy_ComparesPricesPerDenom(t *testing.T) {
	f := setup(t, "a", "b", "c")
	f.list(t, map[string]domain.Coins{
		"a": ustake(300),
		"b": domain.NewCoins(domain.NewCoin(5, "uatom")),
		"c": ustake(120),
	})
	buyer := ct.Addr(t, "buyer")

	res, err := f.sell.Buy(f.deps, ct.Info(buyer, domain.NewCoin(300, "ustake"), domain.NewCoin(5, "uatom")))
	require.NoError(t, err)

	owner, err := f.tokens.OwnerOf(f.deps.Storage, "c")
	require.NoError(t, err)
	assert.Equal(t, buyer, owner)
	require.NotEmpty(t, res.Messages)
	assert.Equal(t, &response.BankSend{ToAddress: f.owner, Amount: ustake(120)}, res.Messages[0].BankSend)
}

func TestExecute_RejectsAmbiguousOrUnknownVariants(t *testing.T) {
	f := setup(t, "1")
	f.list(t, map[string]domain.Coins{"1": ustake(200)})
	before := ct.Snapshot(t, f.deps.Storage)
	info := ct.Info(ct.Addr(t, "buyer"), domain.NewCoin(200, "ustake"))

	_, err := f.sell.Execute(f.deps, ct.Env(t, 0), info, json.RawMessage(`{"list":{"listings":{}},"buy":{}}`))
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.sell.Execute(f.deps, ct.Env(t, 0), info, json.RawMessage(`{"steal":{}}`))
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.sell.Query(f.deps, ct.Env(t, 0), json.RawMessage(`{"listed_tokens":{},"bogus":1}`))
	assert.ErrorIs(t, err, domain.ErrValidation)

	assert.Equal(t, before, ct.Snapshot(t, f.deps.Storage))
}
