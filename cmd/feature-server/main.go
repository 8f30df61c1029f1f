// Command feature-server serves the online feature store over HTTP.
//
// Configuration is read from the environment and an optional .env file
// (see pkg/config). The server exits on SIGINT or SIGTERM after draining
// in-flight requests.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/feature-store/pkg/cache"
	"github.com/Sternrassler/feature-store/pkg/catalog"
	"github.com/Sternrassler/feature-store/pkg/config"
	"github.com/Sternrassler/feature-store/pkg/gateway"
	"github.com/Sternrassler/feature-store/pkg/logging"
	"github.com/Sternrassler/feature-store/pkg/redisconn"
	"github.com/Sternrassler/feature-store/pkg/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "feature-server: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.Logging())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, nil, logger); err != nil {
		logger.Error().Err(err).Msg("Feature server failed")
		os.Exit(1)
	}
}

// run wires the store and serves until ctx is cancelled. A nil ln listens
// on cfg.HTTP.Addr.
func run(ctx context.Context, cfg config.Config, ln net.Listener, logger zerolog.Logger) error {
	policy := cfg.StartupPolicy()

	redisClient, err := redisconn.Connect(ctx, cfg.Redis, policy, logging.Component(logger, "redis"))
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()

	registry, err := catalog.Open(ctx, cfg.Catalog, policy, logging.Component(logger, "catalog"))
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer registry.Close()

	if cfg.Catalog.SeedFile != "" {
		defs, err := catalog.LoadSeed(cfg.Catalog.SeedFile)
		if err != nil {
			return err
		}
		if _, err := catalog.Seed(ctx, registry, defs, logging.Component(logger, "catalog")); err != nil {
			return err
		}
	}

	store := cache.NewStore(redisClient, cfg.Cache, logging.Component(logger, "cache"))
	router := server.NewRouter(server.Deps{
		Ingester: gateway.NewIngester(store, registry, gateway.IngestOptions{
			StrictTypes: cfg.IngestStrictTypes,
		}, logging.Component(logger, "ingest")),
		Retriever: gateway.NewRetriever(store, logging.Component(logger, "retrieve")),
		Registry:  registry,
		Checks: map[string]server.Check{
			"redis":   redisconn.Healthcheck(redisClient),
			"catalog": catalog.Healthcheck(registry),
		},
	}, logging.Component(logger, "http"))

	srv := server.New(cfg.HTTP, router, logger)
	logger.Info().
		Str("catalog_driver", cfg.Catalog.Driver).
		Bool("strict_types", cfg.IngestStrictTypes).
		Msg("Feature store ready")

	if ln != nil {
		return srv.Serve(ctx, ln)
	}
	return srv.Run(ctx)
}
