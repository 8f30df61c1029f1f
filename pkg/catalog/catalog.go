// Package catalog stores feature definitions.
//
// The catalog is the source of truth for which features exist, their data
// types and their cache TTLs. Three drivers implement Registry:
//
//   - postgres: pgx connection pool, schema managed by embedded goose migrations
//   - bolt: single-file embedded database for local and edge deployments
//   - memory: process-local maps for tests and demos
//
// Deleting a definition never touches cached values; see pkg/gateway.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/feature-store/pkg/feature"
	"github.com/Sternrassler/feature-store/pkg/retry"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverBolt     = "bolt"
	DriverMemory   = "memory"
)

var (
	ErrUnknownDriver         = errors.New("unknown catalog driver")
	ErrEmptyConnectionString = errors.New("empty postgres connection string, use DATABASE_URL env var")
	ErrHealthcheckFailed     = errors.New("catalog healthcheck failed")
)

// Registry is the feature definition catalog.
type Registry interface {
	// FindByName returns the definition named name, or an ErrNotFound error.
	FindByName(ctx context.Context, name string) (feature.Definition, error)

	// List returns all definitions ordered by id.
	List(ctx context.Context) ([]feature.Definition, error)

	// Create stores d and returns it with its assigned id and creation time.
	// A taken name yields an ErrAlreadyExists error.
	Create(ctx context.Context, d feature.Definition) (feature.Definition, error)

	// DeleteByID removes the definition with id and returns it.
	DeleteByID(ctx context.Context, id int64) (feature.Definition, error)

	Ping(ctx context.Context) error
	Close() error
}

// Config selects and configures the catalog driver.
type Config struct {
	Driver      string        `env:"CATALOG_DRIVER" envDefault:"postgres"`        // Driver is one of postgres, bolt or memory.
	DatabaseURL string        `env:"DATABASE_URL"`                                // DatabaseURL is the postgres connection string.
	BoltPath    string        `env:"CATALOG_BOLT_PATH" envDefault:"features.db"`  // BoltPath is the database file of the bolt driver.
	MaxConns    int32         `env:"CATALOG_MAX_CONNS" envDefault:"10"`           // MaxConns caps the postgres pool.
	OpTimeout   time.Duration `env:"CATALOG_OP_TIMEOUT" envDefault:"2s"`          // OpTimeout bounds every catalog call.
	SeedFile    string        `env:"FEATURES_SEED_FILE"`                          // SeedFile is an optional YAML file of definitions to register at startup.
}

// Open opens the configured driver. Connecting and migrating postgres are
// retried according to policy.
func Open(ctx context.Context, cfg Config, policy retry.Policy, logger zerolog.Logger) (Registry, error) {
	logger = logger.With().Str("driver", cfg.Driver).Logger()

	switch cfg.Driver {
	case DriverPostgres:
		pg, err := ConnectPostgres(ctx, cfg, policy, logger)
		if err != nil {
			return nil, err
		}
		err = retry.Do(ctx, "catalog_migrate", policy, nil, func(ctx context.Context) error {
			return pg.Migrate(ctx)
		})
		if err != nil {
			pg.Close()
			return nil, err
		}
		return pg, nil
	case DriverBolt:
		return OpenBolt(cfg.BoltPath, logger)
	case DriverMemory:
		logger.Info().Msg("Using in-memory catalog")
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

// Healthcheck returns a readiness probe for r.
func Healthcheck(r Registry) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := r.Ping(ctx); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}

// prepare validates d before insertion and clears catalog-assigned fields.
func prepare(d feature.Definition, now time.Time) (feature.Definition, error) {
	if err := d.Validate(); err != nil {
		return feature.Definition{}, err
	}
	d.ID = 0
	d.CreatedAt = now.UTC()
	d.UpdatedAt = nil
	return d, nil
}

func notFound(op string) error {
	return feature.NotFoundf(op, "Feature not found")
}

func duplicate(op, name string) error {
	return feature.AlreadyExistsf(op, "Feature '%s' already exists", name)
}

var errClosed = errors.New("catalog closed")
