// Package token is the non-fungible token ledger: mint, transfer and
// approvals over tokens keyed by a string id.
package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/kirinyoku/seat-market/internal/contract"
	"github.com/kirinyoku/seat-market/internal/contract/msg"
	"github.com/kirinyoku/seat-market/internal/contract/response"
	"github.com/kirinyoku/seat-market/internal/contract/storage"
	"github.com/kirinyoku/seat-market/internal/domain"
	"github.com/kirinyoku/seat-market/internal/store"
)

var (
	ErrNotMinter     = fmt.Errorf("caller is not the minter: %w", domain.ErrUnauthorized)
	ErrNotApproved   = fmt.Errorf("caller may not transfer this token: %w", domain.ErrUnauthorized)
	ErrTokenExists   = fmt.Errorf("token already minted: %w", domain.ErrAlreadyExists)
	ErrTokenNotFound = fmt.Errorf("token: %w", domain.ErrNotFound)
	ErrEmptyTokenID  = fmt.Errorf("token id is empty: %w", domain.ErrValidation)
)

type Approval struct {
	Spender domain.Addr `json:"spender"`
}

// Info is the stored record of one token. Tokens are never deleted.
type Info[E any] struct {
	Owner     domain.Addr `json:"owner"`
	Approvals []Approval  `json:"approvals"`
	TokenURI  *string     `json:"token_uri,omitempty"`
	Extension E           `json:"extension"`
}

// Collection is the ledger-wide record written at instantiate.
type Collection struct {
	Name   string      `json:"name"`
	Symbol string      `json:"symbol"`
	Minter domain.Addr `json:"minter"`
}

type InstantiateMsg struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	// Minter defaults to the instantiating sender when empty.
	Minter string `json:"minter"`
}

type MintMsg[E any] struct {
	TokenID   string  `json:"token_id"`
	Owner     string  `json:"owner"`
	TokenURI  *string `json:"token_uri,omitempty"`
	Extension E       `json:"extension"`
}

type TransferNftMsg struct {
	Recipient string `json:"recipient"`
	TokenID   string `json:"token_id"`
}

type ApproveMsg struct {
	Spender string `json:"spender"`
	TokenID string `json:"token_id"`
}

type ExecuteMsg[E any] struct {
	Mint        *MintMsg[E]     `json:"mint,omitempty"`
	TransferNft *TransferNftMsg `json:"transfer_nft,omitempty"`
	Approve     *ApproveMsg     `json:"approve,omitempty"`
	Revoke      *ApproveMsg     `json:"revoke,omitempty"`
}

type TokenIDMsg struct {
	TokenID string `json:"token_id"`
}

type TokensMsg struct {
	Owner      string  `json:"owner"`
	StartAfter *string `json:"start_after,omitempty"`
	Limit      *uint32 `json:"limit,omitempty"`
}

type AllTokensMsg struct {
	StartAfter *string `json:"start_after,omitempty"`
	Limit      *uint32 `json:"limit,omitempty"`
}

type QueryMsg struct {
	OwnerOf      *TokenIDMsg   `json:"owner_of,omitempty"`
	NftInfo      *TokenIDMsg   `json:"nft_info,omitempty"`
	Tokens       *TokensMsg    `json:"tokens,omitempty"`
	AllTokens    *AllTokensMsg `json:"all_tokens,omitempty"`
	NumTokens    *msg.Empty    `json:"num_tokens,omitempty"`
	ContractInfo *msg.Empty    `json:"contract_info,omitempty"`
	Minter       *msg.Empty    `json:"minter,omitempty"`
}

type OwnerOfResponse struct {
	Owner     domain.Addr `json:"owner"`
	Approvals []Approval  `json:"approvals"`
}

type NftInfoResponse[E any] struct {
	TokenURI  *string `json:"token_uri,omitempty"`
	Extension E       `json:"extension"`
}

type TokensResponse struct {
	Tokens []string `json:"tokens"`
}

type NumTokensResponse struct {
	Count uint64 `json:"count"`
}

type ContractInfoResponse struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

type MinterResponse struct {
	Minter domain.Addr `json:"minter"`
}

// Tokens is the ledger module. E is the per-token extension record.
type Tokens[E any] struct {
	name       string
	collection storage.Item[Collection]
	tokens     storage.Map[Info[E]]
}

// New returns a ledger registered under name, which is also the tag callers
// route messages with.
func New[E any](name string) *Tokens[E] {
	return &Tokens[E]{
		name:       name,
		collection: storage.NewItem[Collection]("token_info"),
		tokens:     storage.NewMap[Info[E]]("tokens"),
	}
}

func (t *Tokens[E]) Name() string { return t.name }

// Load returns the token record, failing with ErrTokenNotFound.
func (t *Tokens[E]) Load(kv store.KV, id string) (Info[E], error) {
	info, ok, err := t.tokens.May(kv, id)
	if err != nil {
		return info, err
	}
	if !ok {
		return info, fmt.Errorf("%q: %w", id, ErrTokenNotFound)
	}
	return info, nil
}

func (t *Tokens[E]) OwnerOf(kv store.KV, id string) (domain.Addr, error) {
	info, err := t.Load(kv, id)
	if err != nil {
		return "", err
	}
	return info.Owner, nil
}

func (t *Tokens[E]) Exists(kv store.KV, id string) (bool, error) {
	return t.tokens.Has(kv, id)
}

// Range lists tokens in ascending id order.
func (t *Tokens[E]) Range(kv store.KV, startAfter *string, limit int) ([]storage.Entry[Info[E]], error) {
	return t.tokens.Range(kv, startAfter, limit)
}

func (t *Tokens[E]) Instantiate(deps contract.Deps, _ domain.Env, info domain.MessageInfo, raw json.RawMessage) (*response.Response, error) {
	const op = "token.Tokens.Instantiate"

	var m InstantiateMsg
	if err := msg.Decode(raw, &m); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	minter := info.Sender
	if m.Minter != "" {
		a, err := deps.API.Validate(m.Minter)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		minter = a
	}
	if err := t.collection.Save(deps.Storage, Collection{Name: m.Name, Symbol: m.Symbol, Minter: minter}); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	return response.New().
		AddAttribute("action", "instantiate_token").
		AddAttribute("minter", minter.String()), nil
}

// Mint creates a token on behalf of caller, who must be the minter.
func (t *Tokens[E]) Mint(deps contract.Deps, caller domain.Addr, m MintMsg[E]) (*response.Response, error) {
	const op = "token.Tokens.Mint"

	col, err := t.collection.Load(deps.Storage)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	if col.Minter != caller {
		return nil, fmt.Errorf("%s:%w", op, ErrNotMinter)
	}
	res, err := t.MintUnchecked(deps, m)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	return res.AddAttribute("minter", caller.String()), nil
}

// MintUnchecked creates a token without the minter check. Modules that sell
// newly minted tokens call it after doing their own admission control.
func (t *Tokens[E]) MintUnchecked(deps contract.Deps, m MintMsg[E]) (*response.Response, error) {
	if m.TokenID == "" {
		return nil, ErrEmptyTokenID
	}
	owner, err := deps.API.Validate(m.Owner)
	if err != nil {
		return nil, err
	}
	exists, err := t.tokens.Has(deps.Storage, m.TokenID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%q: %w", m.TokenID, ErrTokenExists)
	}
	info := Info[E]{Owner: owner, Approvals: []Approval{}, TokenURI: m.TokenURI, Extension: m.Extension}
	if err := t.tokens.Save(deps.Storage, m.TokenID, info); err != nil {
		return nil, err
	}
	return response.New().
		AddAttribute("action", "mint").
		AddAttribute("owner", owner.String()).
		AddAttribute("token_id", m.TokenID), nil
}

// TransferNft moves a token on behalf of caller, who must own it or be an
// approved spender.
func (t *Tokens[E]) TransferNft(deps contract.Deps, caller domain.Addr, recipient, id string) (*response.Response, error) {
	const op = "token.Tokens.TransferNft"

	info, err := t.Load(deps.Storage, id)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	if !canSend(info, caller) {
		return nil, fmt.Errorf("%s:%w", op, ErrNotApproved)
	}
	to, err := deps.API.Validate(recipient)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	res, err := t.Transfer(deps, id, to)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	return res.AddAttribute("sender", caller.String()), nil
}

// Transfer moves a token to an already validated recipient without any
// authorization check and clears its approvals.
func (t *Tokens[E]) Transfer(deps contract.Deps, id string, to domain.Addr) (*response.Response, error) {
	info, err := t.Load(deps.Storage, id)
	if err != nil {
		return nil, err
	}
	info.Owner = to
	info.Approvals = []Approval{}
	if err := t.tokens.Save(deps.Storage, id, info); err != nil {
		return nil, err
	}
	return response.New().
		AddAttribute("action", "transfer_nft").
		AddAttribute("recipient", to.String()).
		AddAttribute("token_id", id), nil
}

func (t *Tokens[E]) Approve(deps contract.Deps, caller domain.Addr, spender, id string) (*response.Response, error) {
	const op = "token.Tokens.Approve"
	return t.updateApprovals(op, deps, caller, spender, id, true)
}

func (t *Tokens[E]) Revoke(deps contract.Deps, caller domain.Addr, spender, id string) (*response.Response, error) {
	const op = "token.Tokens.Revoke"
	return t.updateApprovals(op, deps, caller, spender, id, false)
}

func (t *Tokens[E]) updateApprovals(op string, deps contract.Deps, caller domain.Addr, spender, id string, add bool) (*response.Response, error) {
	info, err := t.Load(deps.Storage, id)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	if info.Owner != caller {
		return nil, fmt.Errorf("%s:%w", op, ErrNotApproved)
	}
	sp, err := deps.API.Validate(spender)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	info.Approvals = slices.DeleteFunc(info.Approvals, func(a Approval) bool { return a.Spender == sp })
	action := "revoke"
	if add {
		info.Approvals = append(info.Approvals, Approval{Spender: sp})
		action = "approve"
	}
	if err := t.tokens.Save(deps.Storage, id, info); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	return response.New().
		AddAttribute("action", action).
		AddAttribute("sender", caller.String()).
		AddAttribute("spender", sp.String()).
		AddAttribute("token_id", id), nil
}

func canSend[E any](info Info[E], caller domain.Addr) bool {
	if info.Owner == caller {
		return true
	}
	return slices.ContainsFunc(info.Approvals, func(a Approval) bool { return a.Spender == caller })
}

func (t *Tokens[E]) Execute(deps contract.Deps, _ domain.Env, info domain.MessageInfo, raw json.RawMessage) (*response.Response, error) {
	const op = "token.Tokens.Execute"

	var m ExecuteMsg[E]
	if err := msg.DecodeUnion(raw, &m); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	switch {
	case m.Mint != nil:
		return t.Mint(deps, info.Sender, *m.Mint)
	case m.TransferNft != nil:
		return t.TransferNft(deps, info.Sender, m.TransferNft.Recipient, m.TransferNft.TokenID)
	case m.Approve != nil:
		return t.Approve(deps, info.Sender, m.Approve.Spender, m.Approve.TokenID)
	case m.Revoke != nil:
		return t.Revoke(deps, info.Sender, m.Revoke.Spender, m.Revoke.TokenID)
	default:
		return nil, fmt.Errorf("%s:%w", op, msg.Unknown(raw))
	}
}

func (t *Tokens[E]) Query(deps contract.Deps, _ domain.Env, raw json.RawMessage) (any, error) {
	const op = "token.Tokens.Query"

	var m QueryMsg
	if err := msg.DecodeUnion(raw, &m); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	res, err := t.query(deps.Storage, m)
	if err != nil {
		if errors.Is(err, errNoVariant) {
			err = msg.Unknown(raw)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	return res, nil
}

var errNoVariant = errors.New("no query variant set")

func (t *Tokens[E]) query(kv store.KV, m QueryMsg) (any, error) {
	switch {
	case m.OwnerOf != nil:
		info, err := t.Load(kv, m.OwnerOf.TokenID)
		if err != nil {
			return nil, err
		}
		return OwnerOfResponse{Owner: info.Owner, Approvals: info.Approvals}, nil
	case m.NftInfo != nil:
		info, err := t.Load(kv, m.NftInfo.TokenID)
		if err != nil {
			return nil, err
		}
		return NftInfoResponse[E]{TokenURI: info.TokenURI, Extension: info.Extension}, nil
	case m.Tokens != nil:
		ids, err := t.OwnedBy(kv, domain.Addr(m.Tokens.Owner), m.Tokens.StartAfter, storage.Limit(m.Tokens.Limit))
		if err != nil {
			return nil, err
		}
		return TokensResponse{Tokens: ids}, nil
	case m.AllTokens != nil:
		entries, err := t.tokens.Range(kv, m.AllTokens.StartAfter, storage.Limit(m.AllTokens.Limit))
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(entries))
		for _, e := range entries {
			ids = append(ids, e.Key)
		}
		return TokensResponse{Tokens: ids}, nil
	case m.NumTokens != nil:
		n, err := t.tokens.Count(kv)
		if err != nil {
			return nil, err
		}
		return NumTokensResponse{Count: uint64(n)}, nil
	case m.ContractInfo != nil:
		col, err := t.collection.Load(kv)
		if err != nil {
			return nil, err
		}
		return ContractInfoResponse{Name: col.Name, Symbol: col.Symbol}, nil
	case m.Minter != nil:
		col, err := t.collection.Load(kv)
		if err != nil {
			return nil, err
		}
		return MinterResponse{Minter: col.Minter}, nil
	default:
		return nil, errNoVariant
	}
}

// OwnedBy lists the ids owned by owner in ascending order.
func (t *Tokens[E]) OwnedBy(kv store.KV, owner domain.Addr, startAfter *string, limit int) ([]string, error) {
	entries, err := t.tokens.Range(kv, startAfter, 0)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0)
	for _, e := range entries {
		if limit > 0 && len(ids) == limit {
			break
		}
		if e.Value.Owner == owner {
			ids = append(ids, e.Key)
		}
	}
	return ids, nil
}
