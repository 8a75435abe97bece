package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FETCH_TIMEOUT", "")
	t.Setenv("DB_HOST", "")
	t.Setenv("TABLES_PATH", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, cfg.FetchTimeout)
	assert.Equal(t, "./tables", cfg.TablesPath)
	assert.False(t, cfg.HasDatabase())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("FETCH_TIMEOUT", "3s")
	t.Setenv("EXPORT_TTL", "10m")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_DATABASE", "fleet")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 10*time.Minute, cfg.ExportTTL)
	assert.True(t, cfg.HasDatabase())
	assert.Equal(t, "cache:6380", cfg.GetRedisAddr())
}

func TestLoadRejectsNonPositiveTimeout(t *testing.T) {
	t.Setenv("FETCH_TIMEOUT", "-1s")

	_, err := Load()
	assert.Error(t, err)
}
