package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_MemoryDriverNeedsNoPostgres(t *testing.T) {
	t.Setenv("STORE_DRIVER", StoreDriverMemory)
	t.Setenv("POSTGRES_USER", "")
	t.Setenv("QUERY_CACHE_TTL", "5s")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, StoreDriverMemory, cfg.Store.Driver)
	assert.Equal(t, 5*time.Second, cfg.Cache.QueryTTL)
	assert.Equal(t, "burnt", cfg.Chain.AddressPrefix)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestNew_PostgresDriverRequiresCredentials(t *testing.T) {
	t.Setenv("STORE_DRIVER", StoreDriverPostgres)
	t.Setenv("POSTGRES_USER", "")

	_, err := New()
	require.Error(t, err)
}

func TestNew_RejectsBadValues(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")
	_, err := New()
	require.Error(t, err)

	t.Setenv("STORE_DRIVER", StoreDriverMemory)
	t.Setenv("RATE_LIMIT_WINDOW", "soon")
	_, err = New()
	require.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	cfg := PostgresConfig{User: "u", Password: "p", Host: "db", Port: 5432, Name: "seats", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/seats?sslmode=disable", cfg.DSN())
}
