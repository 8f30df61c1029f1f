// Package testutil provides testing utilities for the feature store.
package testutil

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/feature-store/pkg/cache"
)

// NewRedis starts an in-memory Redis server and a client connected to it.
// Both are closed when the test ends. Use mr.FastForward to simulate time
// passing for TTL expiry.
func NewRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr:       mr.Addr(),
		MaxRetries: -1,
	})
	t.Cleanup(func() {
		client.Close()
	})
	return mr, client
}

// NewStore returns a cache store over a fresh in-memory Redis.
func NewStore(t testing.TB, cfg cache.Config) (*miniredis.Miniredis, *cache.Store) {
	t.Helper()

	mr, client := NewRedis(t)
	return mr, cache.NewStore(client, cfg, zerolog.Nop())
}
