package msg

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/seat-market/internal/domain"
)

func TestTag(t *testing.T) {
	tag, body, err := Tag(json.RawMessage(`{"buy":{}}`))
	require.NoError(t, err)
	assert.Equal(t, "buy", tag)
	assert.JSONEq(t, `{}`, string(body))
}

func TestTag_RejectsZeroOrManyVariants(t *testing.T) {
	for _, raw := range []string{`{}`, `{"a":{},"b":{}}`, `[]`, `"buy"`} {
		_, _, err := Tag(json.RawMessage(raw))
		assert.ErrorIs(t, err, domain.ErrValidation, raw)
	}
}

func TestUnknown(t *testing.T) {
	err := Unknown(json.RawMessage(`{"teleport":{}}`))

	var ute UnknownTagError
	require.ErrorAs(t, err, &ute)
	assert.Equal(t, "teleport", ute.Tag)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestDecode_EmptyBodyIsEmptyObject(t *testing.T) {
	var v struct {
		A *string `json:"a"`
	}
	require.NoError(t, Decode(nil, &v))
	assert.Nil(t, v.A)

	assert.ErrorIs(t, Decode(json.RawMessage(`{"a":1}`), &v), domain.ErrValidation)
}

func TestDecodeUnion(t *testing.T) {
	type union struct {
		List *struct{} `json:"list,omitempty"`
		Buy  *Empty    `json:"buy,omitempty"`
	}

	var u union
	require.NoError(t, DecodeUnion(json.RawMessage(`{"buy":{}}`), &u))
	assert.NotNil(t, u.Buy)
	assert.Nil(t, u.List)

	err := DecodeUnion(json.RawMessage(`{"list":{},"buy":{}}`), &union{})
	assert.ErrorIs(t, err, domain.ErrValidation)

	err = DecodeUnion(json.RawMessage(`{"bogus":1}`), &union{})
	var ute UnknownTagError
	require.ErrorAs(t, err, &ute)
	assert.Equal(t, "bogus", ute.Tag)
}
