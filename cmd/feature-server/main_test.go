package main

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/feature-store/pkg/config"
	"github.com/Sternrassler/feature-store/pkg/redisconn"
)

const seed = `
features:
  - name: user_age
    data_type: int
    entity: user
    ttl_seconds: 3600
`

// startServer runs the feature server against redisURL and returns its
// base URL and the exit error channel.
func startServer(t *testing.T, ctx context.Context, cfg config.Config) (string, <-chan error) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg, ln, zerolog.Nop()) }()

	base := "http://" + ln.Addr().String()
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/health")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond, "server never became ready")
	return base, done
}

func loadConfig(t *testing.T, redisURL string) config.Config {
	t.Helper()

	seedPath := filepath.Join(t.TempDir(), "features.yaml")
	require.NoError(t, os.WriteFile(seedPath, []byte(seed), 0o600))

	t.Setenv("REDIS_URL", redisURL)
	t.Setenv("CATALOG_DRIVER", "memory")
	t.Setenv("FEATURES_SEED_FILE", seedPath)
	t.Setenv("STARTUP_RETRY_ATTEMPTS", "1")

	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func post(t *testing.T, url, body string) (int, string) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(data)
}

func TestRun_ServesSeededFeatures(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := loadConfig(t, "redis://"+mr.Addr()+"/0")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	base, done := startServer(t, ctx, cfg)

	status, body := post(t, base+"/features/ingest",
		`{"entity_id":"user_1","features":[{"feature_name":"user_age","value":42}]}`)
	require.Equal(t, http.StatusOK, status, body)

	resp, err := http.Get(base + "/features/online/user_1?feature_names=user_age")
	require.NoError(t, err)
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.JSONEq(t, `{"entity_id":"user_1","features":{"user_age":42}}`, string(data))

	assert.Equal(t, 3600*time.Second, mr.TTL("user_1:user_age"))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after cancellation")
	}
}

func TestRun_HealthReflectsRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := loadConfig(t, "redis://"+mr.Addr()+"/0")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	base, _ := startServer(t, ctx, cfg)

	mr.Close()

	resp, err := http.Get(base + "/health")
	require.NoError(t, err)
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "NOT_READY", string(data))
}

func TestRun_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := loadConfig(t, "redis://"+mr.Addr()+"/0")
	mr.Close()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	err = run(context.Background(), cfg, ln, zerolog.Nop())
	assert.True(t, errors.Is(err, redisconn.ErrRedisNotReady), "got %v", err)
}

func TestRun_InvalidSeedFile(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := loadConfig(t, "redis://"+mr.Addr()+"/0")
	cfg.Catalog.SeedFile = filepath.Join(t.TempDir(), "missing.yaml")

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	assert.Error(t, run(context.Background(), cfg, ln, zerolog.Nop()))
}
