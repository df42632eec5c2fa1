package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/seat-market/internal/domain"
	"github.com/kirinyoku/seat-market/internal/store"
)

func TestCheckUpgrade(t *testing.T) {
	cases := []struct {
		name   string
		stored Info
		want   error
	}{
		{"older patch", Info{"crates.io:seat", "0.1.0"}, nil},
		{"older prerelease", Info{"crates.io:seat", "0.2.0-rc.1"}, nil},
		{"same version", Info{"crates.io:seat", "0.2.0"}, ErrNotNewer},
		{"newer version", Info{"crates.io:seat", "1.0.0"}, ErrNotNewer},
		{"other contract", Info{"crates.io:hub", "0.1.0"}, ErrWrongContract},
		{"garbage", Info{"crates.io:seat", "latest"}, domain.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckUpgrade(tc.stored, "crates.io:seat", "0.2.0")
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestSetGet(t *testing.T) {
	kv := store.NewMemKV()

	_, err := Get(kv)
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, Set(kv, "crates.io:hub", "0.1.0"))
	got, err := Get(kv)
	require.NoError(t, err)
	assert.Equal(t, Info{Contract: "crates.io:hub", Version: "0.1.0"}, got)
}
