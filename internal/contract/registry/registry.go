// Package registry maps module names to lazily built module instances and
// routes tagged messages to them.
package registry

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/kirinyoku/seat-market/internal/contract"
	"github.com/kirinyoku/seat-market/internal/contract/msg"
	"github.com/kirinyoku/seat-market/internal/contract/response"
	"github.com/kirinyoku/seat-market/internal/domain"
)

// Factory builds a module. It runs at most once per Registry.
type Factory func() contract.Module

// Entry pairs a module name with its factory.
type Entry struct {
	Name    string
	Factory Factory
}

// Registry is not safe for concurrent use; one is built per call.
type Registry struct {
	order     []string
	factories map[string]Factory
	instances map[string]contract.Module
}

func New() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		instances: make(map[string]contract.Module),
	}
}

// Of registers entries in the given order.
func Of(entries ...Entry) (*Registry, error) {
	r := New()
	for _, e := range entries {
		if err := r.Register(e.Name, e.Factory); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// FromJSON registers the catalog entries whose names appear as keys of the
// JSON object raw, in catalog order. A key naming no catalog entry is
// rejected.
func FromJSON(raw json.RawMessage, catalog []Entry) (*Registry, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("decode module set: %v: %w", err, domain.ErrValidation)
	}
	known := make(map[string]bool, len(catalog))
	for _, e := range catalog {
		known[e.Name] = true
	}
	names := make([]string, 0, len(obj))
	for k := range obj {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		if !known[k] {
			return nil, msg.UnknownTagError{Tag: k}
		}
	}
	r := New()
	for _, e := range catalog {
		if _, ok := obj[e.Name]; !ok {
			continue
		}
		if err := r.Register(e.Name, e.Factory); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(name string, f Factory) error {
	if _, dup := r.factories[name]; dup {
		return fmt.Errorf("module %q: %w", name, domain.ErrAlreadyExists)
	}
	r.factories[name] = f
	r.order = append(r.order, name)
	return nil
}

func (r *Registry) Has(name string) bool {
	_, ok := r.factories[name]
	return ok
}

// Names returns module names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Get returns the module registered under name, building it on first use.
func (r *Registry) Get(name string) (contract.Module, error) {
	if m, ok := r.instances[name]; ok {
		return m, nil
	}
	f, ok := r.factories[name]
	if !ok {
		return nil, msg.UnknownTagError{Tag: name}
	}
	m := f()
	r.instances[name] = m
	return m, nil
}

// Route resolves the single module a tagged message addresses and returns
// the message body.
func (r *Registry) Route(raw json.RawMessage) (contract.Module, json.RawMessage, error) {
	tag, body, err := msg.Tag(raw)
	if err != nil {
		return nil, nil, err
	}
	m, err := r.Get(tag)
	if err != nil {
		return nil, nil, err
	}
	return m, body, nil
}

// InstantiateAll instantiates every registered module in registration order
// with its payload, and merges the results onto base. A module without a
// payload gets an empty object. The first failure aborts the fold.
func (r *Registry) InstantiateAll(deps contract.Deps, env domain.Env, info domain.MessageInfo, payloads map[string]json.RawMessage, base *response.Response) (*response.Response, error) {
	parts := make([]*response.Response, 0, len(r.order))
	for _, name := range r.order {
		m, err := r.Get(name)
		if err != nil {
			return nil, err
		}
		res, err := m.Instantiate(deps, env, info, payloads[name])
		if err != nil {
			return nil, contract.Wrap(name, err)
		}
		parts = append(parts, res)
	}
	return response.Merge(base, parts...), nil
}

// Execute routes raw to one module.
func (r *Registry) Execute(deps contract.Deps, env domain.Env, info domain.MessageInfo, raw json.RawMessage) (*response.Response, error) {
	m, body, err := r.Route(raw)
	if err != nil {
		return nil, err
	}
	res, err := m.Execute(deps, env, info, body)
	if err != nil {
		return nil, contract.Wrap(m.Name(), err)
	}
	return res, nil
}

// Query routes raw to one module.
func (r *Registry) Query(deps contract.Deps, env domain.Env, raw json.RawMessage) (any, error) {
	m, body, err := r.Route(raw)
	if err != nil {
		return nil, err
	}
	res, err := m.Query(deps, env, body)
	if err != nil {
		return nil, contract.Wrap(m.Name(), err)
	}
	return res, nil
}
