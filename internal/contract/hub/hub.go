// Package hub is the hub contract: an owned profile that points at its seat
// contract.
package hub

import (
	"encoding/json"
	"fmt"

	"github.com/kirinyoku/seat-market/internal/contract"
	"github.com/kirinyoku/seat-market/internal/contract/module/metadata"
	"github.com/kirinyoku/seat-market/internal/contract/module/ownable"
	"github.com/kirinyoku/seat-market/internal/contract/msg"
	"github.com/kirinyoku/seat-market/internal/contract/registry"
	"github.com/kirinyoku/seat-market/internal/contract/response"
	"github.com/kirinyoku/seat-market/internal/contract/storage"
	"github.com/kirinyoku/seat-market/internal/contract/version"
	"github.com/kirinyoku/seat-market/internal/domain"
	"github.com/kirinyoku/seat-market/internal/store"
)

const (
	ContractName    = "crates.io:hub"
	ContractVersion = "0.2.0"
)

var SeatContract = storage.NewItem[domain.Addr]("seat_contract")

type SocialLink struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type Metadata struct {
	Name              string       `json:"name"`
	HubURL            string       `json:"hub_url"`
	Description       string       `json:"description"`
	Tags              []string     `json:"tags"`
	SocialLinks       []SocialLink `json:"social_links"`
	Creator           string       `json:"creator"`
	ThumbnailImageURL string       `json:"thumbnail_image_url"`
	BannerImageURL    string       `json:"banner_image_url"`
	SeatContract      *domain.Addr `json:"seat_contract,omitempty"`
}

func (m Metadata) Validate(api domain.AddressValidator) error {
	if m.SeatContract == nil {
		return nil
	}
	_, err := api.Validate(m.SeatContract.String())
	return err
}

type UpdateMetadataMsg struct {
	SeatContract *string `json:"seat_contract,omitempty"`
}

type SeatContractResponse struct {
	SeatContract *domain.Addr `json:"seat_contract"`
}

type modules struct {
	ownable  *ownable.Ownable
	metadata *metadata.Metadata[Metadata]
	catalog  []registry.Entry
}

func newModules() *modules {
	m := &modules{ownable: ownable.New()}
	m.metadata = metadata.New[Metadata](m.ownable)
	m.catalog = []registry.Entry{
		{Name: ownable.Name, Factory: func() contract.Module { return m.ownable }},
		{Name: metadata.Name, Factory: func() contract.Module { return m.metadata }},
	}
	return m
}

func (m *modules) registry() *registry.Registry {
	r, err := registry.Of(m.catalog...)
	if err != nil {
		panic(err)
	}
	return r
}

type Contract struct{}

func New() *Contract { return &Contract{} }

func (c *Contract) Name() string    { return ContractName }
func (c *Contract) Version() string { return ContractVersion }

// Instantiate builds the module set from the payload keys. Both modules are
// required.
func (c *Contract) Instantiate(deps contract.Deps, env domain.Env, info domain.MessageInfo, raw json.RawMessage) (*response.Response, error) {
	const op = "hub.Contract.Instantiate"

	mods := newModules()
	r, err := registry.FromJSON(raw, mods.catalog)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	for _, name := range []string{ownable.Name, metadata.Name} {
		if !r.Has(name) {
			return nil, fmt.Errorf("%s: missing %s payload: %w", op, name, domain.ErrValidation)
		}
	}
	var payloads map[string]json.RawMessage
	if err := msg.Decode(raw, &payloads); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	if err := version.Set(deps.Storage, ContractName, ContractVersion); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	base := response.New().AddEvent(response.NewEvent("hub-instantiate").
		Add("contract_address", env.Contract.Address.String()))
	res, err := r.InstantiateAll(deps, env, info, payloads, base)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	return res, nil
}

func (c *Contract) Execute(deps contract.Deps, env domain.Env, info domain.MessageInfo, raw json.RawMessage) (*response.Response, error) {
	const op = "hub.Contract.Execute"

	tag, body, err := msg.Tag(raw)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	mods := newModules()
	var res *response.Response
	if tag == "update_metadata" {
		var m UpdateMetadataMsg
		if err = msg.Decode(body, &m); err == nil {
			res, err = mods.updateMetadata(deps, info.Sender, m)
		}
	} else {
		res, err = mods.registry().Execute(deps, env, info, raw)
	}
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	return res, nil
}

// updateMetadata changes one field by reading the whole record and writing
// the derived record back through the metadata module.
func (m *modules) updateMetadata(deps contract.Deps, caller domain.Addr, in UpdateMetadataMsg) (*response.Response, error) {
	if err := m.ownable.RequireOwner(deps.Storage, caller); err != nil {
		return nil, err
	}
	if in.SeatContract == nil {
		return nil, fmt.Errorf("no metadata field given: %w", domain.ErrValidation)
	}
	seat, err := deps.API.Validate(*in.SeatContract)
	if err != nil {
		return nil, err
	}
	cur, err := m.metadata.Get(deps.Storage)
	if err != nil {
		return nil, err
	}
	cur.SeatContract = &seat
	res, err := m.metadata.Set(deps, caller, cur)
	if err != nil {
		return nil, contract.Wrap(metadata.Name, err)
	}
	if err := SeatContract.Save(deps.Storage, seat); err != nil {
		return nil, err
	}
	return res.AddAttribute("seat_contract", seat.String()), nil
}

func (c *Contract) Query(deps contract.Deps, env domain.Env, raw json.RawMessage) (json.RawMessage, error) {
	const op = "hub.Contract.Query"

	tag, _, err := msg.Tag(raw)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	var out any
	if tag == "seat_contract" {
		out, err = seatContract(deps.Storage)
	} else {
		out, err = newModules().registry().Query(deps, env, raw)
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

func seatContract(kv store.KV) (SeatContractResponse, error) {
	seat, ok, err := SeatContract.May(kv)
	if err != nil || !ok {
		return SeatContractResponse{}, err
	}
	return SeatContractResponse{SeatContract: &seat}, nil
}

func (c *Contract) Migrate(deps contract.Deps, _ domain.Env, raw json.RawMessage) (*response.Response, error) {
	return version.Migrate(deps, ContractName, ContractVersion, raw)
}
