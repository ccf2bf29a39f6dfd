package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "http://localhost:3000/", cfg.Backend.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, StoreDriverSQLite, cfg.Store.Driver)
	assert.Equal(t, StorageDriverDisk, cfg.Storage.Driver)
	assert.Equal(t, 30*time.Second, cfg.Security.Leeway)
	assert.Equal(t, 8090, cfg.HTTP.Port)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CLINICDESK_STORE_DRIVER", "redis")
	t.Setenv("CLINICDESK_BACKEND_TIMEOUT", "3s")
	t.Setenv("CLINICDESK_ALLOWCORSORIGINS", "http://a.test,http://b.test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreDriverRedis, cfg.Store.Driver)
	assert.Equal(t, 3*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowCORSOrigins)
}

func TestLoad_RejectsUnknownDrivers(t *testing.T) {
	t.Setenv("CLINICDESK_STORE_DRIVER", "cookies")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cookies")
}
