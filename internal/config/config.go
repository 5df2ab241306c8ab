// Package config loads application configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Cache backend selectors.
const (
	CacheBackendMemory   = "memory"
	CacheBackendSQLite   = "sqlite"
	CacheBackendPostgres = "postgres"
)

// Config holds the API server configuration.
type Config struct {
	Port string

	CacheBackend string
	SQLitePath   string

	NominatimBaseURL     string
	OpenMeteoBaseURL     string
	RESTCountriesBaseURL string

	EnrichConcurrency int
}

// Load reads configuration from the environment, with a .env file applied
// first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 getenvDefault("APP_PORT", "8080"),
		CacheBackend:         strings.ToLower(getenvDefault("CACHE_BACKEND", CacheBackendMemory)),
		SQLitePath:           getenvDefault("CACHE_SQLITE_PATH", "tripscope-cache.db"),
		NominatimBaseURL:     getenvDefault("NOMINATIM_BASE_URL", "https://nominatim.openstreetmap.org"),
		OpenMeteoBaseURL:     getenvDefault("OPENMETEO_BASE_URL", "https://archive-api.open-meteo.com"),
		RESTCountriesBaseURL: getenvDefault("RESTCOUNTRIES_BASE_URL", "https://restcountries.com"),
	}

	concurrency, err := strconv.Atoi(getenvDefault("ENRICH_CONCURRENCY", "5"))
	if err != nil || concurrency < 1 {
		return nil, fmt.Errorf("invalid ENRICH_CONCURRENCY: %q", os.Getenv("ENRICH_CONCURRENCY"))
	}
	cfg.EnrichConcurrency = concurrency

	switch cfg.CacheBackend {
	case CacheBackendMemory, CacheBackendSQLite, CacheBackendPostgres:
	default:
		return nil, fmt.Errorf("unknown CACHE_BACKEND: %q", cfg.CacheBackend)
	}

	return cfg, nil
}

func getenvDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
