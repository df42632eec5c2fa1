package contracts

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/seat-market/internal/contract/module/ownable"
	"github.com/kirinyoku/seat-market/internal/contract/module/sales"
	"github.com/kirinyoku/seat-market/internal/contract/module/sellable"
	"github.com/kirinyoku/seat-market/internal/contract/module/token"
	"github.com/kirinyoku/seat-market/internal/contract/response"
	"github.com/kirinyoku/seat-market/internal/contract/seat"
	"github.com/kirinyoku/seat-market/internal/contract/version"
	"github.com/kirinyoku/seat-market/internal/domain"
	"github.com/kirinyoku/seat-market/internal/repository"
	"github.com/kirinyoku/seat-market/internal/repository/memory"
	"github.com/kirinyoku/seat-market/internal/store"
)

type fakeCache struct {
	entries     map[string]json.RawMessage
	loads       int
	invalidated []domain.Addr
}

func (c *fakeCache) GetOrSetQuery(
	ctx context.Context,
	addr domain.Addr,
	key string,
	_ time.Duration,
	loader func(ctx context.Context) (json.RawMessage, error),
) (json.RawMessage, error) {
	k := string(addr) + ":" + key
	if v, ok := c.entries[k]; ok {
		return v, nil
	}
	c.loads++
	v, err := loader(ctx)
	if err != nil {
		return nil, err
	}
	c.entries[k] = v
	return v, nil
}

func (c *fakeCache) InvalidateContract(_ context.Context, addr domain.Addr) error {
	c.invalidated = append(c.invalidated, addr)
	for k := range c.entries {
		if len(k) > len(addr) && k[:len(addr)] == string(addr) {
			delete(c.entries, k)
		}
	}
	return nil
}

type published struct {
	addr   domain.Addr
	height uint64
	action string
	events []response.Event
}

type fakeEvents struct{ got []published }

func (e *fakeEvents) PublishContractChanged(_ context.Context, addr domain.Addr, height uint64, action string, events []response.Event) error {
	e.got = append(e.got, published{addr, height, action, events})
	return nil
}

type fakeLimiter struct{ allow bool }

func (l fakeLimiter) Allow(context.Context, string) (bool, int64, time.Duration, error) {
	return l.allow, 1, time.Second, nil
}

type fakeRelay struct{ n int }

func (r *fakeRelay) Notify() { r.n++ }

type harness struct {
	svc     *Service
	backend *memory.Backend
	cache   *fakeCache
	events  *fakeEvents
	relay   *fakeRelay
	creator domain.Addr
	buyer   domain.Addr
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		backend: memory.New(),
		cache:   &fakeCache{entries: map[string]json.RawMessage{}},
		events:  &fakeEvents{},
		relay:   &fakeRelay{},
	}
	h.svc = New(h.backend, h.cache, h.events, nil, h.relay, Config{
		Now: func() time.Time { return time.Unix(1000, 0) },
	})
	h.creator = addr(t, "creator")
	h.buyer = addr(t, "buyer")
	return h
}

func addr(t *testing.T, name string) domain.Addr {
	t.Helper()
	a, err := domain.DeriveAddress(DefaultAddressPrefix, name)
	require.NoError(t, err)
	return a
}

func raw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func ustake(n uint64) domain.Coins { return domain.NewCoins(domain.NewCoin(n, "ustake")) }

func (h *harness) instantiateSeat(t *testing.T) domain.Addr {
	t.Helper()
	res, err := h.svc.Instantiate(context.Background(), domain.KindSeat, h.creator, nil, raw(t, map[string]any{
		"seat_token":   map[string]any{"name": "Seats", "symbol": "SEAT", "minter": h.creator},
		"metadata":     map[string]any{"metadata": seat.Metadata{Name: "seat", ImageURI: "image"}},
		"ownable":      map[string]any{"owner": h.creator},
		"redeemable":   map[string]any{"locked_items": []string{}},
		"sales":        map[string]any{},
		"hub_contract": addr(t, "hub"),
	}))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.Height)
	return res.Contract
}

func (h *harness) query(t *testing.T, c domain.Addr, body any, out any) {
	t.Helper()
	b, err := h.svc.Query(context.Background(), c, raw(t, body))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, out))
}

func TestInstantiate_CreatesContract(t *testing.T) {
	h := newHarness(t)
	c := h.instantiateSeat(t)

	_, err := (domain.Bech32Validator{Prefix: DefaultAddressPrefix}).Validate(string(c))
	require.NoError(t, err)

	inst, err := h.svc.Get(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, domain.KindSeat, inst.Kind)
	assert.Equal(t, h.creator, inst.Creator)

	require.Len(t, h.events.got, 1)
	assert.Equal(t, ActionInstantiate, h.events.got[0].action)
	assert.Equal(t, "seat-instantiate", h.events.got[0].events[0].Type)
	assert.Zero(t, h.relay.n)
}

func TestInstantiate_Rejects(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.Instantiate(context.Background(), "vault", h.creator, nil, json.RawMessage(`{}`))
	require.ErrorIs(t, err, ErrUnknownKind)

	_, err = h.svc.Instantiate(context.Background(), domain.KindSeat, "not-an-address", nil, json.RawMessage(`{}`))
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = h.svc.Instantiate(context.Background(), domain.KindSeat, h.creator, nil, json.RawMessage(`{"ownable":{}}`))
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Empty(t, h.events.got, "failed calls publish nothing")
}

func TestExecute_CommitsStateAndOutbox(t *testing.T) {
	h := newHarness(t)
	c := h.instantiateSeat(t)
	ctx := context.Background()

	res, err := h.svc.Execute(ctx, c, h.creator, nil, raw(t, map[string]any{"seat_token": map[string]any{
		"mint": token.MintMsg[seat.TokenMetadata]{TokenID: "1", Owner: h.creator.String()},
	}}))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), res.Height)

	_, err = h.svc.Execute(ctx, c, h.creator, nil, raw(t, map[string]any{"sellable": map[string]any{
		"list": sellable.ListMsg{Listings: map[string]domain.Coins{"1": ustake(200)}},
	}}))
	require.NoError(t, err)

	var listed sellable.ListedTokensResponse
	h.query(t, c, map[string]any{"sellable": map[string]any{"listed_tokens": map[string]any{}}}, &listed)
	require.Len(t, listed.ListedTokens, 1)

	res, err = h.svc.Execute(ctx, c, h.buyer, ustake(200), raw(t, map[string]any{"sellable": map[string]any{"buy": map[string]any{}}}))
	require.NoError(t, err)
	require.Len(t, res.Response.Messages, 1)
	assert.Equal(t, "bank_send", res.Response.Messages[0].Kind())
	assert.Equal(t, 1, h.backend.Unsent())
	assert.Equal(t, 1, h.relay.n)

	h.query(t, c, map[string]any{"sellable": map[string]any{"listed_tokens": map[string]any{}}}, &listed)
	assert.Empty(t, listed.ListedTokens, "cache invalidated by the buy")

	var owner token.OwnerOfResponse
	h.query(t, c, map[string]any{"seat_token": map[string]any{"owner_of": map[string]any{"token_id": "1"}}}, &owner)
	assert.Equal(t, h.buyer, owner.Owner)

	inst, err := h.svc.Get(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), inst.Height)
}

func TestExecute_FailureLeavesNothingBehind(t *testing.T) {
	h := newHarness(t)
	c := h.instantiateSeat(t)
	stranger := addr(t, "stranger")
	published := len(h.events.got)

	_, err := h.svc.Execute(context.Background(), c, stranger, nil, raw(t, map[string]any{"seat_token": map[string]any{
		"mint": token.MintMsg[seat.TokenMetadata]{TokenID: "1", Owner: stranger.String()},
	}}))
	require.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Len(t, h.events.got, published)

	var n token.NumTokensResponse
	h.query(t, c, map[string]any{"seat_token": map[string]any{"num_tokens": map[string]any{}}}, &n)
	assert.Zero(t, n.Count)

	inst, err := h.svc.Get(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), inst.Height)
}

func TestExecute_UnknownContract(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.Execute(context.Background(), addr(t, "nobody"), h.creator, nil, json.RawMessage(`{"ownable":{}}`))
	require.ErrorIs(t, err, ErrContractNotFound)

	var nf ContractNotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, addr(t, "nobody"), nf.Address)

	_, err = h.svc.Query(context.Background(), addr(t, "nobody"), json.RawMessage(`{}`))
	require.ErrorIs(t, err, ErrContractNotFound)
}

func TestExecute_RateLimited(t *testing.T) {
	h := newHarness(t)
	c := h.instantiateSeat(t)
	h.svc.limiter = fakeLimiter{allow: false}

	_, err := h.svc.Execute(context.Background(), c, h.creator, nil, json.RawMessage(`{"sales":{"halt_sale":{}}}`))
	require.ErrorIs(t, err, ErrRateLimited)

	var rl RateLimitedError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, time.Second, rl.RetryAfter)
}

func TestQuery_UsesCacheUntilCommit(t *testing.T) {
	h := newHarness(t)
	c := h.instantiateSeat(t)
	q := map[string]any{"seat_token": map[string]any{"num_tokens": map[string]any{}}}

	var n token.NumTokensResponse
	h.query(t, c, q, &n)
	h.query(t, c, q, &n)
	assert.Equal(t, 1, h.cache.loads)

	_, err := h.svc.Execute(context.Background(), c, h.creator, nil, raw(t, map[string]any{"seat_token": map[string]any{
		"mint": token.MintMsg[seat.TokenMetadata]{TokenID: "1", Owner: h.creator.String()},
	}}))
	require.NoError(t, err)

	h.query(t, c, q, &n)
	assert.Equal(t, 2, h.cache.loads)
	assert.Equal(t, uint64(1), n.Count)
	assert.Contains(t, h.cache.invalidated, c)
}

func TestQuery_SaleStatusFollowsClock(t *testing.T) {
	h := newHarness(t)
	now := int64(1000)
	h.svc.cfg.Now = func() time.Time { return time.Unix(now, 0) }
	c := h.instantiateSeat(t)

	_, err := h.svc.Execute(context.Background(), c, h.creator, nil, raw(t, map[string]any{"sales": map[string]any{
		"primary_sale": sales.PrimarySaleMsg{TotalSupply: 2, StartTime: 900, EndTime: 1100, Price: ustake(10)},
	}}))
	require.NoError(t, err)

	activeQ := map[string]any{"sales": map[string]any{"active_primary_sale": map[string]any{}}}
	historyQ := map[string]any{"sales": map[string]any{"primary_sales": map[string]any{}}}

	var open sales.ActivePrimarySaleResponse
	h.query(t, c, activeQ, &open)
	require.NotNil(t, open.ActivePrimarySale)
	var during sales.PrimarySalesResponse
	h.query(t, c, historyQ, &during)
	require.Len(t, during.PrimarySales, 1)
	assert.Equal(t, sales.StatusActive, during.PrimarySales[0].Status)

	now = 5000

	var closed sales.ActivePrimarySaleResponse
	h.query(t, c, activeQ, &closed)
	assert.Nil(t, closed.ActivePrimarySale)
	var after sales.PrimarySalesResponse
	h.query(t, c, historyQ, &after)
	require.Len(t, after.PrimarySales, 1)
	assert.Equal(t, sales.StatusEnded, after.PrimarySales[0].Status)
	assert.Zero(t, h.cache.loads)

	_, err = h.svc.Execute(context.Background(), c, h.buyer, ustake(10), raw(t, map[string]any{"sales": map[string]any{
		"buy_item": token.MintMsg[seat.TokenMetadata]{TokenID: "9", Owner: h.buyer.String()},
	}}))
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestMigrate(t *testing.T) {
	h := newHarness(t)
	c := h.instantiateSeat(t)
	newOwner := addr(t, "new-owner")
	body := raw(t, version.MigrateMsg{Owner: newOwner.String()})

	_, err := h.svc.Migrate(context.Background(), c, body)
	require.ErrorIs(t, err, domain.ErrInvalidState, "same version is not an upgrade")

	err = h.backend.RunTx(context.Background(), nil, func(ctx context.Context, tx repository.Tx) error {
		buf := store.NewCacheKV(tx.State().View(ctx, c))
		if err := version.Set(buf, seat.ContractName, "0.1.0"); err != nil {
			return err
		}
		return tx.State().Apply(ctx, c, buf.Pending())
	})
	require.NoError(t, err)

	res, err := h.svc.Migrate(context.Background(), c, body)
	require.NoError(t, err)
	assert.Equal(t, ActionMigrate, h.events.got[len(h.events.got)-1].action)
	assert.NotZero(t, res.Height)

	var owner ownable.OwnerResponse
	h.query(t, c, map[string]any{"ownable": map[string]any{"get_owner": map[string]any{}}}, &owner)
	assert.Equal(t, newOwner, owner.Owner)
}

func TestInstantiate_Hub(t *testing.T) {
	h := newHarness(t)

	res, err := h.svc.Instantiate(context.Background(), domain.KindHub, h.creator, nil, raw(t, map[string]any{
		"metadata": map[string]any{"metadata": map[string]any{"name": "hub", "creator": h.creator}},
		"ownable":  map[string]any{"owner": h.creator},
	}))
	require.NoError(t, err)

	inst, err := h.svc.Get(context.Background(), res.Contract)
	require.NoError(t, err)
	assert.Equal(t, domain.KindHub, inst.Kind)
}
