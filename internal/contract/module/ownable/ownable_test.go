package ownable

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ct "github.com/kirinyoku/seat-market/internal/contract/contracttest"
	"github.com/kirinyoku/seat-market/internal/contract/response"
	"github.com/kirinyoku/seat-market/internal/domain"
)

func TestInstantiate_DefaultsToSender(t *testing.T) {
	deps, kv := ct.Deps()
	creator := ct.Addr(t, "creator")
	o := New()

	_, err := o.Instantiate(deps, ct.Env(t, 0), ct.Info(creator), json.RawMessage(`{}`))
	require.NoError(t, err)

	owner, err := o.Owner(kv)
	require.NoError(t, err)
	assert.Equal(t, creator, owner)
}

func TestInstantiate_RejectsBadAddress(t *testing.T) {
	deps, _ := ct.Deps()

	_, err := New().Instantiate(deps, ct.Env(t, 0), ct.Info(ct.Addr(t, "creator")),
		json.RawMessage(`{"owner":"not-an-address"}`))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestRequireOwner(t *testing.T) {
	deps, kv := ct.Deps()
	owner, other := ct.Addr(t, "owner"), ct.Addr(t, "other")
	o := New()
	_, err := o.Instantiate(deps, ct.Env(t, 0), ct.Info(other), ct.JSON(t, InstantiateMsg{Owner: owner.String()}))
	require.NoError(t, err)

	assert.NoError(t, o.RequireOwner(kv, owner))
	err = o.RequireOwner(kv, other)
	assert.ErrorIs(t, err, ErrNotOwner)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestTransferOwnership(t *testing.T) {
	deps, kv := ct.Deps()
	owner, next := ct.Addr(t, "owner"), ct.Addr(t, "next")
	o := New()
	_, err := o.Instantiate(deps, ct.Env(t, 0), ct.Info(owner), json.RawMessage(`{}`))
	require.NoError(t, err)

	t.Run("non owner is rejected and state unchanged", func(t *testing.T) {
		before := ct.Snapshot(t, kv)
		_, err := o.Execute(deps, ct.Env(t, 0), ct.Info(next), ct.JSON(t, map[string]string{"transfer_ownership": next.String()}))
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
		assert.Equal(t, before, ct.Snapshot(t, kv))
	})

	t.Run("holder transfers", func(t *testing.T) {
		res, err := o.Execute(deps, ct.Env(t, 0), ct.Info(owner), ct.JSON(t, map[string]string{"transfer_ownership": next.String()}))
		require.NoError(t, err)
		assert.Contains(t, res.Attributes, response.Attribute{Key: "owner", Value: next.String()})

		got, err := o.Query(deps, ct.Env(t, 0), json.RawMessage(`{"get_owner":{}}`))
		require.NoError(t, err)
		assert.Equal(t, OwnerResponse{Owner: next}, got)
	})
}

func TestQuery_IsOwner(t *testing.T) {
	deps, _ := ct.Deps()
	owner := ct.Addr(t, "owner")
	o := New()
	_, err := o.Instantiate(deps, ct.Env(t, 0), ct.Info(owner), json.RawMessage(`{}`))
	require.NoError(t, err)

	got, err := o.Query(deps, ct.Env(t, 0), ct.JSON(t, map[string]string{"is_owner": owner.String()}))
	require.NoError(t, err)
	assert.Equal(t, IsOwnerResponse{IsOwner: true}, got)

	got, err = o.Query(deps, ct.Env(t, 0), json.RawMessage(`{"is_owner":"someone"}`))
	require.NoError(t, err)
	assert.Equal(t, IsOwnerResponse{IsOwner: false}, got)

	_, err = o.Query(deps, ct.Env(t, 0), json.RawMessage(`{"owner_history":{}}`))
	assert.ErrorIs(t, err, domain.ErrValidation)
}
