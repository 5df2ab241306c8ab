package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	key        TEXT PRIMARY KEY,
	data       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	service    TEXT NOT NULL
)`

// PostgresStore is a Store backed by PostgreSQL, for deployments where the
// analyzer runs as a service and the cache should be shared across replicas.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates the cache table if needed and returns the store.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("initializing postgres cache schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Get returns the cached data for key, deleting and missing expired entries.
func (s *PostgresStore) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	var data []byte
	var expiresAt time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT data, expires_at FROM cache_entries WHERE key = $1`, key).
		Scan(&data, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading cache entry: %w", err)
	}

	if time.Now().After(expiresAt) {
		_, _ = s.pool.Exec(ctx, `DELETE FROM cache_entries WHERE key = $1`, key)
		return nil, false, nil
	}
	return data, true, nil
}

// Put upserts an entry with the given TTL.
func (s *PostgresStore) Put(ctx context.Context, key string, data json.RawMessage, ttl time.Duration, service string) error {
	now := time.Now()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO cache_entries (key, data, created_at, expires_at, service)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key) DO UPDATE SET
			data = EXCLUDED.data,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at,
			service = EXCLUDED.service
	`, key, []byte(data), now, now.Add(ttl), service)
	if err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}
