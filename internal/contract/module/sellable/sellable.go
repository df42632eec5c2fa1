// Package sellable is the fixed-price secondary market: the contract owner
// lists tokens and anyone buys them with attached funds.
package sellable

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/kirinyoku/seat-market/internal/contract"
	"github.com/kirinyoku/seat-market/internal/contract/module/ownable"
	"github.com/kirinyoku/seat-market/internal/contract/msg"
	"github.com/kirinyoku/seat-market/internal/contract/response"
	"github.com/kirinyoku/seat-market/internal/contract/storage"
	"github.com/kirinyoku/seat-market/internal/domain"
	"github.com/kirinyoku/seat-market/internal/store"
)

const Name = "sellable"

var (
	ErrNoAffordableListing = fmt.Errorf("no listing is covered by the attached funds: %w", domain.ErrInsufficientFunds)
	ErrEmptyListings       = fmt.Errorf("no listings given: %w", domain.ErrValidation)
)

// Ledger is the part of the token module a sale needs.
type Ledger interface {
	Exists(kv store.KV, id string) (bool, error)
	Transfer(deps contract.Deps, id string, to domain.Addr) (*response.Response, error)
}

type InstantiateMsg struct {
	Tokens map[string]domain.Coins `json:"tokens"`
}

type ListMsg struct {
	Listings map[string]domain.Coins `json:"listings"`
}

type DelistMsg struct {
	TokenIDs []string `json:"token_ids"`
}

type ExecuteMsg struct {
	List   *ListMsg   `json:"list,omitempty"`
	Delist *DelistMsg `json:"delist,omitempty"`
	Buy    *msg.Empty `json:"buy,omitempty"`
}

type ListedTokensMsg struct {
	StartAfter *string `json:"start_after,omitempty"`
	Limit      *uint32 `json:"limit,omitempty"`
}

type QueryMsg struct {
	ListedTokens *ListedTokensMsg `json:"listed_tokens,omitempty"`
}

type Listing struct {
	TokenID string       `json:"token_id"`
	Price   domain.Coins `json:"price"`
}

type ListedTokensResponse struct {
	ListedTokens []Listing `json:"listed_tokens"`
}

type Sellable struct {
	owner  *ownable.Ownable
	ledger Ledger
	listed storage.Map[domain.Coins]
}

func New(owner *ownable.Ownable, ledger Ledger) *Sellable {
	return &Sellable{owner: owner, ledger: ledger, listed: storage.NewMap[domain.Coins]("listed_tokens")}
}

func (s *Sellable) Name() string { return Name }

// Price returns the listed price of id, and false when it is not listed.
func (s *Sellable) Price(kv store.KV, id string) (domain.Coins, bool, error) {
	return s.listed.May(kv, id)
}

// Listed returns listings in ascending token id order after startAfter.
func (s *Sellable) Listed(kv store.KV, startAfter *string, limit int) ([]Listing, error) {
	entries, err := s.listed.Range(kv, startAfter, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Listing, 0, len(entries))
	for _, e := range entries {
		out = append(out, Listing{TokenID: e.Key, Price: e.Value})
	}
	return out, nil
}

func (s *Sellable) Instantiate(deps contract.Deps, _ domain.Env, _ domain.MessageInfo, raw json.RawMessage) (*response.Response, error) {
	const op = "sellable.Sellable.Instantiate"

	var m InstantiateMsg
	if err := msg.Decode(raw, &m); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	if err := s.put(deps.Storage, m.Tokens); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	return response.New().
		AddAttribute("action", "instantiate_sellable").
		AddAttribute("listed", fmt.Sprint(len(m.Tokens))), nil
}

// List inserts or overwrites listings. Only the contract owner may list; the
// contract custodies proceeds, so token ownership is not checked.
func (s *Sellable) List(deps contract.Deps, caller domain.Addr, listings map[string]domain.Coins) (*response.Response, error) {
	const op = "sellable.Sellable.List"

	if err := s.owner.RequireOwner(deps.Storage, caller); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	if len(listings) == 0 {
		return nil, fmt.Errorf("%s:%w", op, ErrEmptyListings)
	}
	if err := s.put(deps.Storage, listings); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	res := response.New().AddAttribute("action", "list")
	for _, id := range sortedKeys(listings) {
		res.AddEvent(response.NewEvent("list").
			Add("token_id", id).
			Add("price", listings[id].Normalize().String()))
	}
	return res, nil
}

// put validates every listing before writing any of them.
func (s *Sellable) put(kv store.KV, listings map[string]domain.Coins) error {
	ids := sortedKeys(listings)
	for _, id := range ids {
		if err := listings[id].Validate(); err != nil {
			return fmt.Errorf("price of %q: %w", id, err)
		}
		ok, err := s.ledger.Exists(kv, id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("token %q: %w", id, domain.ErrNotFound)
		}
	}
	for _, id := range ids {
		if err := s.listed.Save(kv, id, listings[id].Normalize()); err != nil {
			return err
		}
	}
	return nil
}

// Delist removes listings. Ids that are not listed are ignored.
func (s *Sellable) Delist(deps contract.Deps, caller domain.Addr, ids []string) (*response.Response, error) {
	const op = "sellable.Sellable.Delist"

	if err := s.owner.RequireOwner(deps.Storage, caller); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	res := response.New().AddAttribute("action", "delist")
	for _, id := range ids {
		if err := s.listed.Remove(deps.Storage, id); err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		res.AddAttribute("token_id", id)
	}
	return res, nil
}

// Buy sells one listing to the caller for the attached funds.
//
// The listing is chosen among those whose price the funds cover: a listing
// priced exactly at the funds wins, otherwise the cheapest one. Prices are
// compared per denom, so one price is cheaper than another only when it is
// no higher in every denom; among prices that do not compare, the lowest
// token id wins. The price is forwarded to the contract owner and any surplus
// is returned to the buyer.
//
// Returns ErrNoAffordableListing, leaving listings unchanged, when the funds
// cover no listing.
func (s *Sellable) Buy(deps contract.Deps, info domain.MessageInfo) (*response.Response, error) {
	const op = "sellable.Sellable.Buy"

	funds := info.Funds.Normalize()
	entries, err := s.listed.Range(deps.Storage, nil, 0)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	chosen := pick(entries, funds)
	if chosen == nil {
		return nil, fmt.Errorf("%s: funds %s: %w", op, funds, ErrNoAffordableListing)
	}

	seller, err := s.owner.Owner(deps.Storage)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	surplus, err := funds.Sub(chosen.Value)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	if err := s.listed.Remove(deps.Storage, chosen.Key); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	transfer, err := s.ledger.Transfer(deps, chosen.Key, info.Sender)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	res := response.New().
		AddAttribute("action", "buy").
		AddAttribute("token_id", chosen.Key).
		AddAttribute("buyer", info.Sender.String()).
		AddAttribute("price", chosen.Value.String()).
		AddEvent(response.NewEvent("sale").
			Add("token_id", chosen.Key).
			Add("buyer", info.Sender.String()).
			Add("seller", seller.String()).
			Add("price", chosen.Value.String())).
		AddBankSend(seller, chosen.Value)
	if !surplus.IsZero() {
		res.AddBankSend(info.Sender, surplus)
	}
	return response.Merge(res, transfer), nil
}

func pick(entries []storage.Entry[domain.Coins], funds domain.Coins) *storage.Entry[domain.Coins] {
	var best *storage.Entry[domain.Coins]
	for i := range entries {
		e := &entries[i]
		if !funds.Covers(e.Value) {
			continue
		}
		if funds.Equal(e.Value) {
			return e
		}
		if best == nil || cheaper(e.Value, best.Value) {
			best = e
		}
	}
	return best
}

// cheaper reports whether a costs no more than b in every denom and differs
// from it.
func cheaper(a, b domain.Coins) bool {
	return b.Covers(a) && !a.Equal(b)
}

func (s *Sellable) Execute(deps contract.Deps, _ domain.Env, info domain.MessageInfo, raw json.RawMessage) (*response.Response, error) {
	const op = "sellable.Sellable.Execute"

	var m ExecuteMsg
	if err := msg.DecodeUnion(raw, &m); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	switch {
	case m.List != nil:
		return s.List(deps, info.Sender, m.List.Listings)
	case m.Delist != nil:
		return s.Delist(deps, info.Sender, m.Delist.TokenIDs)
	case m.Buy != nil:
		return s.Buy(deps, info)
	default:
		return nil, fmt.Errorf("%s:%w", op, msg.Unknown(raw))
	}
}

func (s *Sellable) Query(deps contract.Deps, _ domain.Env, raw json.RawMessage) (any, error) {
	const op = "sellable.Sellable.Query"

	var m QueryMsg
	if err := msg.DecodeUnion(raw, &m); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	if m.ListedTokens == nil {
		return nil, fmt.Errorf("%s:%w", op, msg.Unknown(raw))
	}
	listings, err := s.Listed(deps.Storage, m.ListedTokens.StartAfter, storage.Limit(m.ListedTokens.Limit))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	return ListedTokensResponse{ListedTokens: listings}, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
