// Package seat is the seat contract: a token collection with metadata,
// redemption, fixed-price listings and primary sales.
package seat

import (
	"encoding/json"
	"fmt"

	"github.com/kirinyoku/seat-market/internal/contract"
	"github.com/kirinyoku/seat-market/internal/contract/module/metadata"
	"github.com/kirinyoku/seat-market/internal/contract/module/ownable"
	"github.com/kirinyoku/seat-market/internal/contract/module/redeemable"
	"github.com/kirinyoku/seat-market/internal/contract/module/sales"
	"github.com/kirinyoku/seat-market/internal/contract/module/sellable"
	"github.com/kirinyoku/seat-market/internal/contract/module/token"
	"github.com/kirinyoku/seat-market/internal/contract/msg"
	"github.com/kirinyoku/seat-market/internal/contract/registry"
	"github.com/kirinyoku/seat-market/internal/contract/response"
	"github.com/kirinyoku/seat-market/internal/contract/storage"
	"github.com/kirinyoku/seat-market/internal/contract/version"
	"github.com/kirinyoku/seat-market/internal/domain"
	"github.com/kirinyoku/seat-market/internal/store"
)

const (
	ContractName    = "crates.io:seat"
	ContractVersion = "0.2.0"

	TokenModule = "seat_token"
)

var HubContract = storage.NewItem[domain.Addr]("hub_contract")

// Modules is the module set of one call. The capability is shared by every
// module that gates on it.
type Modules struct {
	Ownable    *ownable.Ownable
	Metadata   *metadata.Metadata[Metadata]
	Tokens     *token.Tokens[TokenMetadata]
	Redeemable *redeemable.Redeemable
	Sellable   *sellable.Sellable
	Sales      *sales.Sales[TokenMetadata]

	registry *registry.Registry
}

func NewModules() *Modules {
	m := &Modules{Ownable: ownable.New()}
	m.Metadata = metadata.New[Metadata](m.Ownable)
	m.Tokens = token.New[TokenMetadata](TokenModule)
	m.Redeemable = redeemable.New(m.Ownable, m.Tokens)
	m.Sellable = sellable.New(m.Ownable, m.Tokens)
	m.Sales = sales.New[TokenMetadata](m.Ownable, m.Tokens)

	// registration order is instantiate order
	r, err := registry.Of(
		registry.Entry{Name: ownable.Name, Factory: func() contract.Module { return m.Ownable }},
		registry.Entry{Name: metadata.Name, Factory: func() contract.Module { return m.Metadata }},
		registry.Entry{Name: TokenModule, Factory: func() contract.Module { return m.Tokens }},
		registry.Entry{Name: redeemable.Name, Factory: func() contract.Module { return m.Redeemable }},
		registry.Entry{Name: sales.Name, Factory: func() contract.Module { return m.Sales }},
		registry.Entry{Name: sellable.Name, Factory: func() contract.Module { return m.Sellable }},
	)
	if err != nil {
		panic(err)
	}
	m.registry = r
	return m
}

type Contract struct{}

func New() *Contract { return &Contract{} }

func (c *Contract) Name() string    { return ContractName }
func (c *Contract) Version() string { return ContractVersion }

// Instantiate expects one sub-payload per module keyed by module name, plus
// the hub_contract address. A missing sellable payload lists nothing.
func (c *Contract) Instantiate(deps contract.Deps, env domain.Env, info domain.MessageInfo, raw json.RawMessage) (*response.Response, error) {
	const op = "seat.Contract.Instantiate"

	var payloads map[string]json.RawMessage
	if err := msg.Decode(raw, &payloads); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	var hubRaw string
	if err := msg.Decode(payloads["hub_contract"], &hubRaw); err != nil {
		return nil, fmt.Errorf("%s: hub_contract: %w", op, err)
	}
	delete(payloads, "hub_contract")

	mods := NewModules()
	for name := range payloads {
		if !mods.registry.Has(name) {
			return nil, fmt.Errorf("%s:%w", op, msg.UnknownTagError{Tag: name})
		}
	}
	hub, err := deps.API.Validate(hubRaw)
	if err != nil {
		return nil, fmt.Errorf("%s: hub_contract: %w", op, err)
	}
	if err := version.Set(deps.Storage, ContractName, ContractVersion); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	if err := HubContract.Save(deps.Storage, hub); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	base := response.New().AddEvent(response.NewEvent("seat-instantiate").
		Add("contract_address", env.Contract.Address.String()).
		Add("hub_contract", hub.String()))
	res, err := mods.registry.InstantiateAll(deps, env, info, payloads, base)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	return res, nil
}

func (c *Contract) Execute(deps contract.Deps, env domain.Env, info domain.MessageInfo, raw json.RawMessage) (*response.Response, error) {
	const op = "seat.Contract.Execute"

	res, err := NewModules().registry.Execute(deps, env, info, raw)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	return res, nil
}

func (c *Contract) Query(deps contract.Deps, env domain.Env, raw json.RawMessage) (json.RawMessage, error) {
	const op = "seat.Contract.Query"

	tag, _, err := msg.Tag(raw)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	mods := NewModules()
	var out any
	switch tag {
	case "all_seats":
		out, err = mods.AllSeats(deps.Storage)
	case "hub_contract":
		out, err = mods.hubContract(deps.Storage)
	default:
		out, err = mods.registry.Query(deps, env, raw)
	}
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	return b, nil
}

func (c *Contract) QueryUsesBlockTime(raw json.RawMessage) bool {
	tag, body, err := msg.Tag(raw)
	return err == nil && tag == sales.Name && sales.QueryUsesBlockTime(body)
}

func (c *Contract) Migrate(deps contract.Deps, _ domain.Env, raw json.RawMessage) (*response.Response, error) {
	return version.Migrate(deps, ContractName, ContractVersion, raw)
}

// AllSeats joins every token with its listing price and redemption flag.
func (m *Modules) AllSeats(kv store.KV) ([]Info, error) {
	entries, err := m.Tokens.Range(kv, nil, 0)
	if err != nil {
		return nil, err
	}
	out := make([]Info, 0, len(entries))
	for _, e := range entries {
		price, _, err := m.Sellable.Price(kv, e.Key)
		if err != nil {
			return nil, err
		}
		redeemed, err := m.Redeemable.IsRedeemed(kv, e.Key)
		if err != nil {
			return nil, err
		}
		out = append(out, Info{
			TokenID:     e.Key,
			ListedPrice: price,
			Redeemed:    redeemed,
			Owner:       e.Value.Owner,
			Approvals:   e.Value.Approvals,
			TokenURI:    e.Value.TokenURI,
			Extension:   e.Value.Extension,
		})
	}
	return out, nil
}

type HubContractResponse struct {
	HubContract domain.Addr `json:"hub_contract"`
}

func (m *Modules) hubContract(kv store.KV) (HubContractResponse, error) {
	hub, err := HubContract.Load(kv)
	return HubContractResponse{HubContract: hub}, err
}
