package cache

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Sternrassler/feature-store/pkg/feature"
)

// Config holds online store tuning.
type Config struct {
	// Namespace prefixes every key (empty for the bare entity:feature layout).
	Namespace string `env:"CACHE_NAMESPACE"`

	// ChunkSize is the maximum number of keys per pipelined round trip.
	ChunkSize int `env:"CACHE_BATCH_CHUNK_SIZE" envDefault:"1000"`

	// Concurrency is the maximum number of chunks in flight per GetMany.
	Concurrency int `env:"CACHE_BATCH_CONCURRENCY" envDefault:"4"`

	// ScanCount is the COUNT hint passed to SCAN.
	ScanCount int64 `env:"CACHE_SCAN_COUNT" envDefault:"1000"`
}

// DefaultConfig returns the default store configuration.
func DefaultConfig() Config {
	return Config{
		ChunkSize:   1000,
		Concurrency: 4,
		ScanCount:   1000,
	}
}

// Store is the online cache over a Redis-compatible engine. Operations are
// atomic per key only.
type Store struct {
	redis  redis.UniversalClient
	keys   KeyScheme
	config Config
	logger zerolog.Logger
}

// NewStore creates a Store over redisClient.
func NewStore(redisClient redis.UniversalClient, cfg Config, logger zerolog.Logger) *Store {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	def := DefaultConfig()
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = def.ChunkSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.ScanCount <= 0 {
		cfg.ScanCount = def.ScanCount
	}
	return &Store{
		redis:  redisClient,
		keys:   KeyScheme{Namespace: cfg.Namespace},
		config: cfg,
		logger: logger,
	}
}

// Keys returns the key scheme of this store.
func (s *Store) Keys() KeyScheme {
	return s.keys
}

// Set overwrites key with data. A positive ttl makes the entry expire ttl
// after now; zero stores it without expiry, clearing any previous one.
func (s *Store) Set(ctx context.Context, key Key, data []byte, ttl time.Duration) error {
	if ttl < 0 {
		return feature.Validationf("cache set", "negative ttl %v", ttl)
	}
	defer observe("set", time.Now())

	if err := s.redis.Set(ctx, string(key), data, ttl).Err(); err != nil {
		return s.fail("set", err)
	}

	expiry := "none"
	if ttl > 0 {
		expiry = "ttl"
	}
	CacheWrites.WithLabelValues(expiry).Inc()

	s.logger.Debug().
		Str("key", string(key)).
		Dur("ttl", ttl).
		Msg("Cache set")
	return nil
}

// Get returns the data stored at key. found is false for keys that were
// never set or have expired.
func (s *Store) Get(ctx context.Context, key Key) (data []byte, found bool, err error) {
	defer observe("get", time.Now())

	data, err = s.redis.Get(ctx, string(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			CacheMisses.Inc()
			return nil, false, nil
		}
		return nil, false, s.fail("get", err)
	}
	CacheHits.Inc()
	return data, true, nil
}

// GetMany looks up keys with pipelined GETs, one round trip per chunk of
// Config.ChunkSize keys. Entries are returned in key order.
func (s *Store) GetMany(ctx context.Context, keys []Key) ([]Entry, error) {
	entries := make([]Entry, len(keys))
	if len(keys) == 0 {
		return entries, nil
	}
	defer observe("get_many", time.Now())
	BatchKeys.Observe(float64(len(keys)))

	size := s.config.ChunkSize
	if len(keys) <= size {
		if err := s.fetchChunk(ctx, keys, entries); err != nil {
			return nil, err
		}
		return entries, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Concurrency)
	for start := 0; start < len(keys); start += size {
		end := min(start+size, len(keys))
		g.Go(func() error {
			return s.fetchChunk(gctx, keys[start:end], entries[start:end])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.Debug().
		Int("keys", len(keys)).
		Int("chunks", (len(keys)+size-1)/size).
		Msg("Cache multi-chunk read")
	return entries, nil
}

func (s *Store) fetchChunk(ctx context.Context, keys []Key, out []Entry) error {
	cmds := make([]*redis.StringCmd, len(keys))
	_, err := s.redis.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, k := range keys {
			cmds[i] = p.Get(ctx, string(k))
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return s.fail("get_many", err)
	}

	var hits, misses int
	for i, cmd := range cmds {
		out[i].Key = keys[i]
		data, err := cmd.Bytes()
		switch {
		case err == nil:
			out[i].Data = data
			out[i].Found = true
			hits++
		case errors.Is(err, redis.Nil):
			misses++
		default:
			return s.fail("get_many", err)
		}
	}
	CacheHits.Add(float64(hits))
	CacheMisses.Add(float64(misses))
	return nil
}

// ScanPrefix returns the keys matching pattern, de-duplicated and sorted.
// The result is not atomic with concurrent writes.
func (s *Store) ScanPrefix(ctx context.Context, pattern string) ([]Key, error) {
	defer observe("scan", time.Now())

	var (
		mu   sync.Mutex
		seen = make(map[string]struct{})
	)
	scan := func(ctx context.Context, c redis.Cmdable) error {
		var cursor uint64
		for {
			batch, next, err := c.Scan(ctx, cursor, pattern, s.config.ScanCount).Result()
			if err != nil {
				return err
			}
			mu.Lock()
			for _, k := range batch {
				seen[k] = struct{}{}
			}
			mu.Unlock()
			if next == 0 {
				return nil
			}
			cursor = next
		}
	}

	var err error
	if cluster, ok := s.redis.(*redis.ClusterClient); ok {
		err = cluster.ForEachMaster(ctx, func(ctx context.Context, node *redis.Client) error {
			return scan(ctx, node)
		})
	} else {
		err = scan(ctx, s.redis)
	}
	if err != nil {
		return nil, s.fail("scan", err)
	}

	keys := make([]Key, 0, len(seen))
	for k := range seen {
		keys = append(keys, Key(k))
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	s.logger.Debug().
		Str("pattern", pattern).
		Int("keys", len(keys)).
		Msg("Cache scan")
	return keys, nil
}

// Delete removes keys and returns how many existed.
func (s *Store) Delete(ctx context.Context, keys ...Key) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	defer observe("delete", time.Now())

	raw := make([]string, len(keys))
	for i, k := range keys {
		raw[i] = string(k)
	}
	n, err := s.redis.Del(ctx, raw...).Result()
	if err != nil {
		return 0, s.fail("delete", err)
	}
	return n, nil
}

// Ping checks engine connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return s.fail("ping", err)
	}
	return nil
}

// fail records the error and classifies it as StoreUnavailable. Timeouts,
// refused connections and pool exhaustion all land here.
func (s *Store) fail(op string, err error) error {
	CacheErrors.WithLabelValues(op).Inc()
	s.logger.Warn().Err(err).Str("operation", op).Msg("Cache operation failed")
	return feature.Unavailable("redis "+op, err)
}

func observe(op string, start time.Time) {
	CacheOpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
