package cache_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripscope/tripscope/internal/cache"
)

func TestMemoryStore_PutGet(t *testing.T) {
	store := cache.NewMemoryStore()
	ctx := context.Background()

	err := store.Put(ctx, "k", json.RawMessage(`{"v":1}`), time.Hour, cache.ServiceGeocoding)
	require.NoError(t, err)

	data, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"v":1}`, string(data))
}

func TestMemoryStore_MissOnAbsentKey(t *testing.T) {
	store := cache.NewMemoryStore()

	_, ok, err := store.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_ExpiredEntryIsMissAndEvicted(t *testing.T) {
	store := cache.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "k", json.RawMessage(`1`), -time.Second, cache.ServiceWeather))

	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, store.Len(), "expired entry should be lazily evicted on lookup")
}

func TestMemoryStore_Overwrite(t *testing.T) {
	store := cache.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "k", json.RawMessage(`1`), time.Hour, cache.ServiceWeather))
	require.NoError(t, store.Put(ctx, "k", json.RawMessage(`2`), time.Hour, cache.ServiceWeather))

	data, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `2`, string(data))
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	store, err := cache.OpenSQLite(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "geo:1", json.RawMessage(`{"city":"Amsterdam"}`), time.Hour, cache.ServiceGeocoding))

	data, ok, err := store.Get(ctx, "geo:1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"city":"Amsterdam"}`, string(data))

	_, ok, err = store.Get(ctx, "geo:2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteStore_ExpiryAndPurge(t *testing.T) {
	store, err := cache.OpenSQLite(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "stale", json.RawMessage(`1`), -time.Hour, cache.ServiceWeather))
	require.NoError(t, store.Put(ctx, "fresh", json.RawMessage(`2`), time.Hour, cache.ServiceWeather))

	_, ok, err := store.Get(ctx, "stale")
	require.NoError(t, err)
	assert.False(t, ok)

	purged, err := store.Purge(ctx)
	require.NoError(t, err)
	assert.Zero(t, purged, "stale entry was already lazily evicted")

	_, ok, err = store.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, ok)
}
