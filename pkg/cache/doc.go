// Package cache provides the online feature cache over a Redis backend.
//
// The store implements the write/read protocol of the online feature store:
//
// - Deterministic, collision-free key scheme (entity_id:feature_name)
// - Unconditional overwrite with per-key expiry computed at write time
// - Multiplexed reads: one pipelined round trip per chunk of keys
// - Wildcard discovery of an entity's keys with SCAN MATCH
// - Prometheus metrics for observability
//
// # Basic Usage
//
//	// Create Redis client
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	// Create store
//	store := cache.NewStore(redisClient, cache.DefaultConfig(), logger)
//
//	// Build the key for one feature of one entity
//	key, err := store.Keys().Encode("user_1", "user_age")
//	if err != nil {
//		return err // ValidationError: separator in a component
//	}
//
//	// Write with a one hour TTL
//	data, _ := feature.Encode(feature.Int(42))
//	if err := store.Set(ctx, key, data, time.Hour); err != nil {
//		return err
//	}
//
//	// Read it back
//	data, found, err := store.Get(ctx, key)
//
// # Wildcard Discovery
//
//	pattern, _ := store.Keys().PrefixFor("user_1") // "user_1:*"
//	keys, err := store.ScanPrefix(ctx, pattern)
//
// Glob metacharacters in entity ids are escaped, so the pattern matches
// exactly the keys of that entity.
//
// # Failures
//
// Engine errors (timeouts, refused connections, pool exhaustion) are returned
// as feature.ErrStoreUnavailable. A missing or expired key is never an error.
// The store does not retry.
//
// # Metrics
//
//   - feature_store_cache_hits_total - Key hits
//   - feature_store_cache_misses_total - Key misses
//   - feature_store_cache_writes_total{expiry} - Writes by expiry policy
//   - feature_store_cache_errors_total{operation} - Engine errors
//   - feature_store_cache_operation_duration_seconds{operation} - Round trip latency
//   - feature_store_cache_batch_keys - Keys per GetMany
package cache
