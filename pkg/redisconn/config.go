package redisconn

import "time"

// Config holds Redis connection settings.
type Config struct {
	URL         string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"` // URL in the form "redis://:password@host:6379/0"
	DialTimeout time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"2s"`              // DialTimeout bounds establishing a connection.
	OpTimeout   time.Duration `env:"REDIS_OP_TIMEOUT" envDefault:"500ms"`             // OpTimeout bounds each read and write on a connection.
	PoolSize    int           `env:"REDIS_POOL_SIZE" envDefault:"50"`                 // PoolSize is the maximum number of socket connections.
	PoolTimeout time.Duration `env:"REDIS_POOL_TIMEOUT" envDefault:"1s"`              // PoolTimeout bounds waiting for a free connection.
}
