// Package ownable is the single-owner capability consulted by every
// owner-gated operation of a contract.
package ownable

import (
	"encoding/json"
	"fmt"

	"github.com/kirinyoku/seat-market/internal/contract"
	"github.com/kirinyoku/seat-market/internal/contract/msg"
	"github.com/kirinyoku/seat-market/internal/contract/response"
	"github.com/kirinyoku/seat-market/internal/contract/storage"
	"github.com/kirinyoku/seat-market/internal/domain"
	"github.com/kirinyoku/seat-market/internal/store"
)

const Name = "ownable"

// ErrNotOwner is returned by RequireOwner.
var ErrNotOwner = fmt.Errorf("caller is not the contract owner: %w", domain.ErrUnauthorized)

// Config is the capability record. Migrate rewrites it directly, so its key
// and shape are part of the persisted layout.
type Config struct {
	Owner domain.Addr `json:"owner"`
}

var ConfigItem = storage.NewItem[Config]("config")

type InstantiateMsg struct {
	// Owner defaults to the instantiating sender when empty.
	Owner string `json:"owner"`
}

type ExecuteMsg struct {
	TransferOwnership *string `json:"transfer_ownership,omitempty"`
}

type QueryMsg struct {
	IsOwner  *string    `json:"is_owner,omitempty"`
	GetOwner *msg.Empty `json:"get_owner,omitempty"`
}

type IsOwnerResponse struct {
	IsOwner bool `json:"is_owner"`
}

type OwnerResponse struct {
	Owner domain.Addr `json:"owner"`
}

// Ownable holds no state of its own; every method reads the capability
// record from the storage it is handed, so one value can be shared by all
// modules of a call.
type Ownable struct{}

func New() *Ownable { return &Ownable{} }

func (o *Ownable) Name() string { return Name }

func (o *Ownable) Owner(kv store.KV) (domain.Addr, error) {
	cfg, err := ConfigItem.Load(kv)
	if err != nil {
		return "", err
	}
	return cfg.Owner, nil
}

func (o *Ownable) IsOwner(kv store.KV, caller domain.Addr) (bool, error) {
	owner, err := o.Owner(kv)
	if err != nil {
		return false, err
	}
	return owner == caller, nil
}

// RequireOwner fails with ErrNotOwner unless caller holds the capability.
func (o *Ownable) RequireOwner(kv store.KV, caller domain.Addr) error {
	ok, err := o.IsOwner(kv, caller)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotOwner
	}
	return nil
}

func (o *Ownable) Instantiate(deps contract.Deps, _ domain.Env, info domain.MessageInfo, raw json.RawMessage) (*response.Response, error) {
	const op = "ownable.Ownable.Instantiate"

	var m InstantiateMsg
	if err := msg.Decode(raw, &m); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	owner := info.Sender
	if m.Owner != "" {
		a, err := deps.API.Validate(m.Owner)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		owner = a
	}
	if err := ConfigItem.Save(deps.Storage, Config{Owner: owner}); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	return response.New().
		AddAttribute("action", "instantiate_ownable").
		AddAttribute("owner", owner.String()), nil
}

func (o *Ownable) Execute(deps contract.Deps, _ domain.Env, info domain.MessageInfo, raw json.RawMessage) (*response.Response, error) {
	const op = "ownable.Ownable.Execute"

	var m ExecuteMsg
	if err := msg.DecodeUnion(raw, &m); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	switch {
	case m.TransferOwnership != nil:
		return o.TransferOwnership(deps, info.Sender, *m.TransferOwnership)
	default:
		return nil, fmt.Errorf("%s:%w", op, msg.Unknown(raw))
	}
}

// TransferOwnership hands the capability to newOwner. Only the current holder
// may call it.
func (o *Ownable) TransferOwnership(deps contract.Deps, caller domain.Addr, newOwner string) (*response.Response, error) {
	const op = "ownable.Ownable.TransferOwnership"

	if err := o.RequireOwner(deps.Storage, caller); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	next, err := deps.API.Validate(newOwner)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	if err := ConfigItem.Save(deps.Storage, Config{Owner: next}); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	return response.New().
		AddAttribute("action", "transfer_ownership").
		AddAttribute("previous_owner", caller.String()).
		AddAttribute("owner", next.String()), nil
}

func (o *Ownable) Query(deps contract.Deps, _ domain.Env, raw json.RawMessage) (any, error) {
	const op = "ownable.Ownable.Query"

	var m QueryMsg
	if err := msg.DecodeUnion(raw, &m); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	switch {
	case m.IsOwner != nil:
		ok, err := o.IsOwner(deps.Storage, domain.Addr(*m.IsOwner))
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		return IsOwnerResponse{IsOwner: ok}, nil
	case m.GetOwner != nil:
		owner, err := o.Owner(deps.Storage)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		return OwnerResponse{Owner: owner}, nil
	default:
		return nil, fmt.Errorf("%s:%w", op, msg.Unknown(raw))
	}
}
