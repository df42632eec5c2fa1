// Package metadata stores the single descriptive record of a contract.
package metadata

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

const Name = "metadata"

// Validator is implemented by records that embed addresses. It is the only
// validation the module performs.
type Validator interface {
	Validate(api domain.AddressValidator) error
}

type InstantiateMsg[T any] struct {
	Metadata T `json:"metadata"`
}

type ExecuteMsg[T any] struct {
	SetMetadata *T `json:"set_metadata,omitempty"`
}

type QueryMsg struct {
	GetMetadata *msg.Empty `json:"get_metadata,omitempty"`
}

type Response[T any] struct {
	Metadata T `json:"metadata"`
}

type Metadata[T any] struct {
	owner *ownable.Ownable
	item  storage.Item[T]
}

func New[T any](owner *ownable.Ownable) *Metadata[T] {
	return &Metadata[T]{owner: owner, item: storage.NewItem[T]("metadata")}
}

func (m *Metadata[T]) Name() string { return Name }

func (m *Metadata[T]) Get(kv store.KV) (T, error) {
	return m.item.Load(kv)
}

// Set replaces the whole record. Callers wanting to change one field read,
// modify and write back the full record.
func (m *Metadata[T]) Set(deps contract.Deps, caller domain.Addr, record T) (*response.Response, error) {
	const op = "metadata.Metadata.Set"

	if err := m.owner.RequireOwner(deps.Storage, caller); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	if err := m.save(deps, record); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	return response.New().AddAttribute("action", "set_metadata"), nil
}

func (m *Metadata[T]) save(deps contract.Deps, record T) error {
	if v, ok := any(record).(Validator); ok {
		if err := v.Validate(deps.API); err != nil {
			return err
		}
	} else if v, ok := any(&record).(Validator); ok {
		if err := v.Validate(deps.API); err != nil {
			return err
		}
	}
	return m.item.Save(deps.Storage, record)
}

func (m *Metadata[T]) Instantiate(deps contract.Deps, _ domain.Env, _ domain.MessageInfo, raw json.RawMessage) (*response.Response, error) {
	const op = "metadata.Metadata.Instantiate"

	var in InstantiateMsg[T]
	if err := msg.Decode(raw, &in); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	if err := m.save(deps, in.Metadata); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	return response.New().AddAttribute("action", "instantiate_metadata"), nil
}

func (m *Metadata[T]) Execute(deps contract.Deps, _ domain.Env, info domain.MessageInfo, raw json.RawMessage) (*response.Response, error) {
	const op = "metadata.Metadata.Execute"

	var in ExecuteMsg[T]
	if err := msg.DecodeUnion(raw, &in); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	switch {
	case in.SetMetadata != nil:
		return m.Set(deps, info.Sender, *in.SetMetadata)
	default:
		return nil, fmt.Errorf("%s:%w", op, msg.Unknown(raw))
	}
}

func (m *Metadata[T]) Query(deps contract.Deps, _ domain.Env, raw json.RawMessage) (any, error) {
	const op = "metadata.Metadata.Query"

	var in QueryMsg
	if err := msg.DecodeUnion(raw, &in); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	switch {
	case in.GetMetadata != nil:
		record, err := m.Get(deps.Storage)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		return Response[T]{Metadata: record}, nil
	default:
		return nil, fmt.Errorf("%s:%w", op, msg.Unknown(raw))
	}
}
