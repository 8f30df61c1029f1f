// Package logging provides structured logging configuration using zerolog.
//
// Setup configures the global logger once at startup. Components get a
// child of it tagged with their name (Component) and receive it by
// injection; HTTP handlers read the request-scoped logger from the
// context with zerolog.Ctx.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger and returns it.
// Durations are logged in milliseconds.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))
	zerolog.DurationFieldUnit = time.Millisecond

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	logger := zerolog.New(output).With().
		Timestamp().
		Str("service", "feature-store").
		Logger()
	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level. Unknown levels map to info.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(string(level))) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Component returns a child of base tagged with the given component name.
func Component(base zerolog.Logger, component string) zerolog.Logger {
	return base.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Cache operations (key, TTL, scan pattern, chunk counts)
//   - Rejected requests (4xx)
//   - Health and metrics scrapes
//
// Info: Normal operation events
//   - HTTP requests
//   - Feature registration and deletion
//   - Dependency connections, migrations, catalog seeding
//   - Server startup/shutdown
//
// Warn: Warning conditions that don't prevent operation
//   - Retry attempts against dependencies
//   - Redis or catalog operation failures
//   - Aborted ingestion (unregistered feature, partial write)
//   - Failed health checks
//
// Error: Error conditions requiring attention
//   - Requests answered with 5xx
//   - Startup failures
//
// Context Fields:
//   - component: Emitting package (cache, catalog, ingest, retrieve, http)
//   - request_id: X-Request-ID of the HTTP request
//   - entity_id: Entity of an ingestion
//   - feature: Feature name
//   - key: Cache key
//   - operation: Store or catalog operation
//   - status: HTTP status code
//   - duration: Request duration in milliseconds
