// Package config loads the feature server configuration from the
// environment and optional .env files.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/Sternrassler/feature-store/pkg/cache"
	"github.com/Sternrassler/feature-store/pkg/catalog"
	"github.com/Sternrassler/feature-store/pkg/logging"
	"github.com/Sternrassler/feature-store/pkg/redisconn"
	"github.com/Sternrassler/feature-store/pkg/retry"
	"github.com/Sternrassler/feature-store/pkg/server"
)

var (
	// ErrParsingConfig is returned when environment variables cannot be parsed into the config struct
	ErrParsingConfig = errors.New("failed to parse environment variables into config")

	// ErrInvalidConfig is returned when parsed values are out of range
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config is the complete feature server configuration.
type Config struct {
	HTTP    server.Config
	Redis   redisconn.Config
	Cache   cache.Config
	Catalog catalog.Config

	// IngestStrictTypes rejects values that do not match the feature's data type.
	IngestStrictTypes bool `env:"INGEST_STRICT_TYPES" envDefault:"false"`

	StartupRetryAttempts int           `env:"STARTUP_RETRY_ATTEMPTS" envDefault:"5"`
	StartupRetryBackoff  time.Duration `env:"STARTUP_RETRY_BACKOFF" envDefault:"1s"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"false"`
}

// Load reads files into the environment, then parses it. Variables already
// set in the environment win over file values. Without files, a .env in the
// working directory is used when present.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		// The default .env is optional.
		_ = godotenv.Load()
	} else if err := godotenv.Load(files...); err != nil {
		return Config{}, fmt.Errorf("load env files: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Join(ErrParsingConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges that struct tags cannot express.
func (c Config) Validate() error {
	switch c.Catalog.Driver {
	case catalog.DriverPostgres:
		if c.Catalog.DatabaseURL == "" {
			return fmt.Errorf("%w: DATABASE_URL is required for the postgres catalog", ErrInvalidConfig)
		}
	case catalog.DriverBolt:
		if c.Catalog.BoltPath == "" {
			return fmt.Errorf("%w: CATALOG_BOLT_PATH is required for the bolt catalog", ErrInvalidConfig)
		}
	case catalog.DriverMemory:
	default:
		return fmt.Errorf("%w: CATALOG_DRIVER %q", ErrInvalidConfig, c.Catalog.Driver)
	}
	if c.Cache.ChunkSize <= 0 || c.Cache.Concurrency <= 0 || c.Cache.ScanCount <= 0 {
		return fmt.Errorf("%w: cache batch settings must be positive", ErrInvalidConfig)
	}
	if c.StartupRetryAttempts < 1 {
		return fmt.Errorf("%w: STARTUP_RETRY_ATTEMPTS must be at least 1", ErrInvalidConfig)
	}
	return nil
}

// StartupPolicy is the retry policy for connecting to dependencies and
// migrating the catalog schema.
func (c Config) StartupPolicy() retry.Policy {
	return retry.Fixed(c.StartupRetryAttempts, c.StartupRetryBackoff)
}

// Logging returns the logger configuration.
func (c Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(c.LogLevel)
	cfg.Pretty = c.LogPretty
	return cfg
}
