package hub

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/seat-market/internal/contract"
	ct "github.com/kirinyoku/seat-market/internal/contract/contracttest"
	"github.com/kirinyoku/seat-market/internal/contract/module/metadata"
	"github.com/kirinyoku/seat-market/internal/contract/module/ownable"
	"github.com/kirinyoku/seat-market/internal/domain"
)

func hubMeta(creator domain.Addr) Metadata {
	return Metadata{
		Name:              "Kenny's contract",
		HubURL:            "find me here",
		Description:       "Awesome Hub",
		Tags:              []string{"awesome", "wild"},
		SocialLinks:       []SocialLink{{Name: "discord", URL: "discord link here"}},
		Creator:           creator.String(),
		ThumbnailImageURL: "thumb",
		BannerImageURL:    "banner",
	}
}

func setup(t *testing.T) (*Contract, contract.Deps, domain.Addr) {
	t.Helper()
	deps, _ := ct.Deps()
	creator := ct.Addr(t, "creator")
	c := New()
	res, err := c.Instantiate(deps, ct.Env(t, 0), ct.Info(creator), ct.JSON(t, map[string]any{
		"metadata": map[string]any{"metadata": hubMeta(creator)},
		"ownable":  map[string]any{"owner": creator},
	}))
	require.NoError(t, err)
	assert.Empty(t, res.Messages)
	require.NotEmpty(t, res.Events)
	assert.Equal(t, "hub-instantiate", res.Events[0].Type)
	return c, deps, creator
}

func query[T any](t *testing.T, c *Contract, deps contract.Deps, raw string) T {
	t.Helper()
	b, err := c.Query(deps, ct.Env(t, 0), json.RawMessage(raw))
	require.NoError(t, err)
	var out T
	require.NoError(t, json.Unmarshal(b, &out))
	return out
}

func TestInstantiate(t *testing.T) {
	c, deps, creator := setup(t)

	owner := query[ownable.IsOwnerResponse](t, c, deps, `{"ownable":{"is_owner":"`+creator.String()+`"}}`)
	assert.True(t, owner.IsOwner)

	meta := query[metadata.Response[Metadata]](t, c, deps, `{"metadata":{"get_metadata":{}}}`)
	assert.Equal(t, hubMeta(creator), meta.Metadata)
}

func TestInstantiate_RequiresBothModules(t *testing.T) {
	deps, _ := ct.Deps()
	creator := ct.Addr(t, "creator")

	_, err := New().Instantiate(deps, ct.Env(t, 0), ct.Info(creator), ct.JSON(t, map[string]any{
		"ownable": map[string]any{"owner": creator},
	}))
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = New().Instantiate(deps, ct.Env(t, 0), ct.Info(creator), ct.JSON(t, map[string]any{
		"ownable":   map[string]any{"owner": creator},
		"metadata":  map[string]any{"metadata": hubMeta(creator)},
		"allowable": map[string]any{},
	}))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestUpdateMetadata_SeatContract(t *testing.T) {
	c, deps, creator := setup(t)
	seat := ct.Addr(t, "seat")
	body := ct.JSON(t, map[string]any{"update_metadata": map[string]any{"seat_contract": seat}})

	_, err := c.Execute(deps, ct.Env(t, 0), ct.Info(ct.Addr(t, "stranger")), body)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = c.Execute(deps, ct.Env(t, 0), ct.Info(creator), ct.JSON(t, map[string]any{"update_metadata": map[string]any{"seat_contract": "nope"}}))
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = c.Execute(deps, ct.Env(t, 0), ct.Info(creator), body)
	require.NoError(t, err)

	meta := query[metadata.Response[Metadata]](t, c, deps, `{"metadata":{"get_metadata":{}}}`)
	want := hubMeta(creator)
	want.SeatContract = &seat
	assert.Equal(t, want, meta.Metadata)

	got := query[SeatContractResponse](t, c, deps, `{"seat_contract":{}}`)
	require.NotNil(t, got.SeatContract)
	assert.Equal(t, seat, *got.SeatContract)
}

func TestSeatContract_Unset(t *testing.T) {
	c, deps, _ := setup(t)

	got := query[SeatContractResponse](t, c, deps, `{"seat_contract":{}}`)

	assert.Nil(t, got.SeatContract)
}
