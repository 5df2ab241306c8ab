package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripscope/tripscope/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, config.CacheBackendMemory, cfg.CacheBackend)
	assert.Equal(t, 5, cfg.EnrichConcurrency)
	assert.Equal(t, "https://nominatim.openstreetmap.org", cfg.NominatimBaseURL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("CACHE_BACKEND", "SQLITE")
	t.Setenv("ENRICH_CONCURRENCY", "12")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, config.CacheBackendSQLite, cfg.CacheBackend, "backend selector is case-insensitive")
	assert.Equal(t, 12, cfg.EnrichConcurrency)
}

func TestLoad_InvalidConcurrency(t *testing.T) {
	t.Setenv("ENRICH_CONCURRENCY", "zero")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_UnknownBackend(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "redis")

	_, err := config.Load()
	assert.Error(t, err)
}
