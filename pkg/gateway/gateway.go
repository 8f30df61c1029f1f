// Package gateway implements ingestion into and retrieval from the online
// feature store.
//
// Ingester validates a request up front, resolves each feature against the
// catalog and writes it to the cache with the definition's TTL. Retriever
// reads values for one or many entities, either for explicit feature names
// or for every feature currently cached for an entity.
//
// Neither side caches catalog definitions in process, and neither retries:
// store failures surface as feature.ErrStoreUnavailable.
package gateway

import (
	"context"
	"time"

	"github.com/Sternrassler/feature-store/pkg/cache"
	"github.com/Sternrassler/feature-store/pkg/feature"
)

// Store is the online cache used by the gateways. *cache.Store implements it.
type Store interface {
	Keys() cache.KeyScheme
	Set(ctx context.Context, key cache.Key, data []byte, ttl time.Duration) error
	GetMany(ctx context.Context, keys []cache.Key) ([]cache.Entry, error)
	ScanPrefix(ctx context.Context, pattern string) ([]cache.Key, error)
}

// Definitions resolves feature names to catalog definitions.
// catalog.Registry implements it.
type Definitions interface {
	FindByName(ctx context.Context, name string) (feature.Definition, error)
}
