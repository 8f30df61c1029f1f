package client_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/feature-store/internal/testutil"
	"github.com/Sternrassler/feature-store/pkg/cache"
	"github.com/Sternrassler/feature-store/pkg/catalog"
	"github.com/Sternrassler/feature-store/pkg/client"
	"github.com/Sternrassler/feature-store/pkg/feature"
	"github.com/Sternrassler/feature-store/pkg/gateway"
	"github.com/Sternrassler/feature-store/pkg/retry"
	"github.com/Sternrassler/feature-store/pkg/server"
)

func TestClient_AgainstServer(t *testing.T) {
	mr, store := testutil.NewStore(t, cache.DefaultConfig())
	registry := catalog.NewMemory()
	srv := httptest.NewServer(server.NewRouter(server.Deps{
		Ingester:  gateway.NewIngester(store, registry, gateway.IngestOptions{}, zerolog.Nop()),
		Retriever: gateway.NewRetriever(store, zerolog.Nop()),
		Registry:  registry,
		Checks:    map[string]server.Check{"redis": store.Ping},
	}, zerolog.Nop()))
	t.Cleanup(srv.Close)

	cfg := client.DefaultConfig(srv.URL)
	cfg.Retry = retry.Fixed(1, 0)
	c, err := client.New(cfg)
	require.NoError(t, err)
	c.SetLogger(zerolog.Nop())
	ctx := context.Background()

	ttl := int64(60)
	def, err := c.Register(ctx, feature.Registration{Name: "user_age", DataType: "int", Entity: "user", TTLSeconds: &ttl})
	require.NoError(t, err)
	assert.Equal(t, "user_age", def.Name)
	assert.Equal(t, feature.DataTypeInt, def.DataType)

	_, err = c.Register(ctx, feature.Registration{Name: "user_age", DataType: "int", Entity: "user"})
	assert.ErrorIs(t, err, feature.ErrValidation)

	res, err := c.Ingest(ctx, "user_1", []feature.FeatureValue{{FeatureName: "user_age", Value: feature.Int(42)}})
	require.NoError(t, err)
	assert.Equal(t, []string{"user_age"}, res.Features)

	_, err = c.Ingest(ctx, "user_1", []feature.FeatureValue{{FeatureName: "unknown", Value: feature.Int(1)}})
	assert.ErrorIs(t, err, feature.ErrNotFound)

	online, err := c.GetOnline(ctx, "user_1", "user_age")
	require.NoError(t, err)
	age, ok := online.Features["user_age"].AsInt()
	assert.True(t, ok)
	assert.Equal(t, int64(42), age)

	_, err = c.Ingest(ctx, "org/7", []feature.FeatureValue{{FeatureName: "user_age", Value: feature.Int(9)}})
	require.NoError(t, err)
	slashed, err := c.GetOnline(ctx, "org/7", "user_age")
	require.NoError(t, err)
	assert.Equal(t, "org/7", slashed.EntityID)
	age, ok = slashed.Features["user_age"].AsInt()
	assert.True(t, ok, "entity ids with a slash survive the path round trip")
	assert.Equal(t, int64(9), age)

	all, err := c.GetOnline(ctx, "user_1")
	require.NoError(t, err)
	assert.Len(t, all.Features, 1)

	mr.FastForward(61 * time.Second)
	online, err = c.GetOnline(ctx, "user_1", "user_age")
	require.NoError(t, err)
	assert.True(t, online.Features["user_age"].IsNull(), "expired value reads as null")

	batch, err := c.GetOnlineBatch(ctx, []string{"user_1", "user_2"}, "user_age")
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, "user_2", batch[1].EntityID)

	defs, err := c.ListFeatures(ctx)
	require.NoError(t, err)
	require.Len(t, defs, 1)

	require.NoError(t, c.DeleteFeature(ctx, defs[0].ID))
	assert.ErrorIs(t, c.DeleteFeature(ctx, defs[0].ID), feature.ErrNotFound)

	ready, err := c.Ready(ctx)
	require.NoError(t, err)
	assert.True(t, ready)
}
