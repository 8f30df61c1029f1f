package gateway

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Sternrassler/feature-store/pkg/cache"
	"github.com/Sternrassler/feature-store/pkg/feature"
)

// Result is the outcome of looking up one feature of one entity.
type Result struct {
	Value feature.Value
	Found bool
}

// MarshalJSON renders a missing value as null.
func (r Result) MarshalJSON() ([]byte, error) {
	if !r.Found {
		return []byte("null"), nil
	}
	return r.Value.MarshalJSON()
}

// EntityResult holds the looked up features of one entity.
type EntityResult struct {
	EntityID string            `json:"entity_id"`
	Features map[string]Result `json:"features"`
}

// Retriever reads feature values from the online store.
type Retriever struct {
	store Store

	// scanConcurrency bounds concurrent wildcard scans in GetBatch.
	scanConcurrency int
	logger          zerolog.Logger
}

// NewRetriever creates a Retriever.
func NewRetriever(store Store, logger zerolog.Logger) *Retriever {
	return &Retriever{store: store, scanConcurrency: 4, logger: logger}
}

// Get returns features of entityID. With names, every requested name is
// present in the result and missing ones have Found false. Without names,
// the result holds every feature currently cached for the entity.
func (r *Retriever) Get(ctx context.Context, entityID string, names []string) (EntityResult, error) {
	defer observe("single", time.Now())

	results, err := r.retrieve(ctx, []string{entityID}, names)
	if err != nil {
		return EntityResult{}, err
	}
	return results[0], nil
}

// GetBatch returns features for each of entityIDs, in order. With names the
// N×M keys are read in one multiplexed GetMany; without names each entity's
// cached features are discovered by prefix scan.
func (r *Retriever) GetBatch(ctx context.Context, entityIDs []string, names []string) ([]EntityResult, error) {
	defer observe("batch", time.Now())
	return r.retrieve(ctx, entityIDs, names)
}

func (r *Retriever) retrieve(ctx context.Context, entityIDs []string, names []string) ([]EntityResult, error) {
	for _, id := range entityIDs {
		if err := feature.ValidateComponent("entity_id", id); err != nil {
			return nil, err
		}
	}
	names, err := dedupe(names)
	if err != nil {
		return nil, err
	}
	if len(entityIDs) == 0 {
		return []EntityResult{}, nil
	}

	if len(names) == 0 {
		return r.discover(ctx, entityIDs)
	}

	keys := r.store.Keys()
	lookup := make([]cache.Key, 0, len(entityIDs)*len(names))
	for _, id := range entityIDs {
		for _, name := range names {
			k, err := keys.Encode(id, name)
			if err != nil {
				return nil, err
			}
			lookup = append(lookup, k)
		}
	}

	entries, err := r.store.GetMany(ctx, lookup)
	if err != nil {
		return nil, err
	}

	results := make([]EntityResult, len(entityIDs))
	for i, id := range entityIDs {
		res := EntityResult{EntityID: id, Features: make(map[string]Result, len(names))}
		for j, name := range names {
			entry := entries[i*len(names)+j]
			v, err := entry.Value()
			if err != nil {
				r.invalid(entry, err)
				res.Features[name] = Result{}
				continue
			}
			res.Features[name] = Result{Value: v, Found: entry.Found}
			count(entry.Found)
		}
		results[i] = res
	}
	return results, nil
}

// discover performs wildcard retrieval: scan each entity's prefix, then read
// all discovered keys in one GetMany. Keys that vanish between scan and read
// and entries that cannot be decoded are dropped.
func (r *Retriever) discover(ctx context.Context, entityIDs []string) ([]EntityResult, error) {
	keys := r.store.Keys()
	scanned := make([][]cache.Key, len(entityIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.scanConcurrency)
	for i, id := range entityIDs {
		pattern, err := keys.PrefixFor(id)
		if err != nil {
			return nil, err
		}
		g.Go(func() error {
			found, err := r.store.ScanPrefix(gctx, pattern)
			if err != nil {
				return err
			}
			scanned[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []cache.Key
	for _, ks := range scanned {
		all = append(all, ks...)
	}
	entries, err := r.store.GetMany(ctx, all)
	if err != nil {
		return nil, err
	}

	results := make([]EntityResult, len(entityIDs))
	offset := 0
	for i, id := range entityIDs {
		res := EntityResult{EntityID: id, Features: make(map[string]Result, len(scanned[i]))}
		for _, entry := range entries[offset : offset+len(scanned[i])] {
			if !entry.Found {
				continue
			}
			_, name, err := keys.Decode(entry.Key)
			if err != nil {
				r.logger.Warn().Err(err).Str("key", entry.Key.String()).Msg("Skipping foreign key")
				continue
			}
			v, err := entry.Value()
			if err != nil {
				r.invalid(entry, err)
				continue
			}
			res.Features[name] = Result{Value: v, Found: true}
			count(true)
		}
		offset += len(scanned[i])
		results[i] = res
	}
	return results, nil
}

// invalid records an undecodable entry. It is served as missing so that
// one bad value never fails the lookups of other features or entities.
func (r *Retriever) invalid(entry cache.Entry, err error) {
	RetrievedFeatures.WithLabelValues("invalid").Inc()
	r.logger.Warn().
		Err(err).
		Str("key", entry.Key.String()).
		Msg("Serving undecodable cache entry as missing")
}

func dedupe(names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if err := feature.ValidateComponent("feature_name", n); err != nil {
			return nil, err
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out, nil
}

func count(found bool) {
	if found {
		RetrievedFeatures.WithLabelValues("found").Inc()
	} else {
		RetrievedFeatures.WithLabelValues("missing").Inc()
	}
}

func observe(mode string, start time.Time) {
	RetrievalDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
}
