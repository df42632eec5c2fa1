// Package contract holds the types shared by the contract modules and the
// dispatchers that compose them.
package contract

import (
	"encoding/json"
	"fmt"

	"github.com/kirinyoku/seat-market/internal/contract/response"
	"github.com/kirinyoku/seat-market/internal/domain"
	"github.com/kirinyoku/seat-market/internal/store"
)

// Deps is the mutable handle a call gets on persisted state plus the host API.
// It is only valid for the duration of one call.
type Deps struct {
	Storage store.KV
	API     domain.AddressValidator
}

// Module is one independently defined stateful unit. Messages arrive as the
// raw body under the module's tag.
type Module interface {
	Name() string
	Instantiate(deps Deps, env domain.Env, info domain.MessageInfo, raw json.RawMessage) (*response.Response, error)
	Execute(deps Deps, env domain.Env, info domain.MessageInfo, raw json.RawMessage) (*response.Response, error)
	Query(deps Deps, env domain.Env, raw json.RawMessage) (any, error)
}

// Contract is a composed contract kind as seen by the host.
type Contract interface {
	Name() string
	Version() string
	Instantiate(deps Deps, env domain.Env, info domain.MessageInfo, raw json.RawMessage) (*response.Response, error)
	Execute(deps Deps, env domain.Env, info domain.MessageInfo, raw json.RawMessage) (*response.Response, error)
	Query(deps Deps, env domain.Env, raw json.RawMessage) (json.RawMessage, error)
	Migrate(deps Deps, env domain.Env, raw json.RawMessage) (*response.Response, error)
}

// BlockTimeQuerier is implemented by contracts with queries whose answer can
// change as block time advances, with no change to stored state.
type BlockTimeQuerier interface {
	QueryUsesBlockTime(raw json.RawMessage) bool
}

// ModuleError attributes a failure to the module that produced it without
// changing its kind.
type ModuleError struct {
	Module string
	Err    error
}

func (e *ModuleError) Error() string {
	return fmt.Sprintf("%s: %v", e.Module, e.Err)
}

func (e *ModuleError) Unwrap() error { return e.Err }

// Wrap returns nil for a nil err.
func Wrap(module string, err error) error {
	if err == nil {
		return nil
	}
	return &ModuleError{Module: module, Err: err}
}
