// Package cache provides the enrichment cache: a Store interface with
// in-memory, SQLite and PostgreSQL backends. Entries are read-checked for
// expiry on every lookup and lazily evicted when stale.
package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Service names recorded with each entry.
const (
	ServiceWeather   = "weather"
	ServiceCountries = "countries"
	ServiceGeocoding = "geocoding"
)

// Entry is one cached external-fetch result.
type Entry struct {
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"createdAt"`
	ExpiresAt time.Time       `json:"expiresAt"`
	Service   string          `json:"service"`
}

// Expired reports whether the entry is past its TTL at the given instant.
func (e *Entry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// Store is a TTL'd key-value store for external-fetch results. Get returns
// ok=false for absent or expired keys.
type Store interface {
	Get(ctx context.Context, key string) (json.RawMessage, bool, error)
	Put(ctx context.Context, key string, data json.RawMessage, ttl time.Duration, service string) error
}
