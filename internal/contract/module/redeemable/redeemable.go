// Package redeemable tracks tokens whose benefit has been claimed. The set
// only grows.
package redeemable

import (
	"encoding/json"
	"fmt"

	"github.com/kirinyoku/seat-market/internal/contract"
	"github.com/kirinyoku/seat-market/internal/contract/module/ownable"
	"github.com/kirinyoku/seat-market/internal/contract/msg"
	"github.com/kirinyoku/seat-market/internal/contract/response"
	"github.com/kirinyoku/seat-market/internal/contract/storage"
	"github.com/kirinyoku/seat-market/internal/domain"
	"github.com/kirinyoku/seat-market/internal/store"
)

const Name = "redeemable"

var (
	ErrAlreadyRedeemed = fmt.Errorf("item already redeemed: %w", domain.ErrAlreadyExists)
	ErrNotHolder       = fmt.Errorf("only the token owner or contract owner may redeem: %w", domain.ErrUnauthorized)
)

// TokenOwners resolves the current owner of a token id.
type TokenOwners interface {
	OwnerOf(kv store.KV, id string) (domain.Addr, error)
}

// Record is stored per redeemed id.
type Record struct {
	RedeemedBy domain.Addr      `json:"redeemed_by,omitempty"`
	RedeemedAt domain.Timestamp `json:"redeemed_at"`
}

type InstantiateMsg struct {
	LockedItems []string `json:"locked_items"`
}

type ExecuteMsg struct {
	RedeemItem *string `json:"redeem_item,omitempty"`
}

type RedeemedItemsMsg struct {
	StartAfter *string `json:"start_after,omitempty"`
	Limit      *uint32 `json:"limit,omitempty"`
}

type QueryMsg struct {
	IsRedeemed    *string           `json:"is_redeemed,omitempty"`
	RedeemedItems *RedeemedItemsMsg `json:"redeemed_items,omitempty"`
}

type IsRedeemedResponse struct {
	IsRedeemed bool `json:"is_redeemed"`
}

type RedeemedItemsResponse struct {
	RedeemedItems []string `json:"redeemed_items"`
}

type Redeemable struct {
	owner    *ownable.Ownable
	tokens   TokenOwners
	redeemed storage.Map[Record]
}

func New(owner *ownable.Ownable, tokens TokenOwners) *Redeemable {
	return &Redeemable{owner: owner, tokens: tokens, redeemed: storage.NewMap[Record]("redeemed_items")}
}

func (r *Redeemable) Name() string { return Name }

func (r *Redeemable) IsRedeemed(kv store.KV, id string) (bool, error) {
	return r.redeemed.Has(kv, id)
}

func (r *Redeemable) Instantiate(deps contract.Deps, env domain.Env, _ domain.MessageInfo, raw json.RawMessage) (*response.Response, error) {
	const op = "redeemable.Redeemable.Instantiate"

	var m InstantiateMsg
	if err := msg.Decode(raw, &m); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	for _, id := range m.LockedItems {
		if err := r.redeemed.Save(deps.Storage, id, Record{RedeemedAt: env.Block.Time}); err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
	}
	return response.New().
		AddAttribute("action", "instantiate_redeemable").
		AddAttribute("locked_items", fmt.Sprint(len(m.LockedItems))), nil
}

// Redeem marks id as redeemed. The caller must own the token or hold the
// contract capability. Redeeming twice fails with ErrAlreadyRedeemed.
func (r *Redeemable) Redeem(deps contract.Deps, env domain.Env, caller domain.Addr, id string) (*response.Response, error) {
	const op = "redeemable.Redeemable.Redeem"

	holder, err := r.tokens.OwnerOf(deps.Storage, id)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	if holder != caller {
		isOwner, err := r.owner.IsOwner(deps.Storage, caller)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		if !isOwner {
			return nil, fmt.Errorf("%s:%w", op, ErrNotHolder)
		}
	}
	done, err := r.redeemed.Has(deps.Storage, id)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	if done {
		return nil, fmt.Errorf("%s: %q: %w", op, id, ErrAlreadyRedeemed)
	}
	if err := r.redeemed.Save(deps.Storage, id, Record{RedeemedBy: caller, RedeemedAt: env.Block.Time}); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	return response.New().
		AddAttribute("action", "redeem_item").
		AddAttribute("token_id", id).
		AddEvent(response.NewEvent("redeem").Add("token_id", id).Add("by", caller.String())), nil
}

func (r *Redeemable) Execute(deps contract.Deps, env domain.Env, info domain.MessageInfo, raw json.RawMessage) (*response.Response, error) {
	const op = "redeemable.Redeemable.Execute"

	var m ExecuteMsg
	if err := msg.DecodeUnion(raw, &m); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	if m.RedeemItem == nil {
		return nil, fmt.Errorf("%s:%w", op, msg.Unknown(raw))
	}
	return r.Redeem(deps, env, info.Sender, *m.RedeemItem)
}

func (r *Redeemable) Query(deps contract.Deps, _ domain.Env, raw json.RawMessage) (any, error) {
	const op = "redeemable.Redeemable.Query"

	var m QueryMsg
	if err := msg.DecodeUnion(raw, &m); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	switch {
	case m.IsRedeemed != nil:
		ok, err := r.IsRedeemed(deps.Storage, *m.IsRedeemed)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		return IsRedeemedResponse{IsRedeemed: ok}, nil
	case m.RedeemedItems != nil:
		entries, err := r.redeemed.Range(deps.Storage, m.RedeemedItems.StartAfter, storage.Limit(m.RedeemedItems.Limit))
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		ids := make([]string, 0, len(entries))
		for _, e := range entries {
			ids = append(ids, e.Key)
		}
		return RedeemedItemsResponse{RedeemedItems: ids}, nil
	default:
		return nil, fmt.Errorf("%s:%w", op, msg.Unknown(raw))
	}
}
