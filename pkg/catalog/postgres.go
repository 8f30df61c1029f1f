package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/feature-store/pkg/feature"
	"github.com/Sternrassler/feature-store/pkg/retry"
)

const columns = `id, name, description, data_type, entity, feature_group, is_nullable,
	source, transformation, min_value, max_value, mean_value, std_dev,
	ttl_seconds, tags, created_at, updated_at`

// Postgres is a Registry backed by a pgx connection pool.
type Postgres struct {
	pool    *pgxpool.Pool
	timeout time.Duration
	logger  zerolog.Logger
}

// ConnectPostgres opens a pool and pings it until it answers or policy is
// exhausted.
func ConnectPostgres(ctx context.Context, cfg Config, policy retry.Policy, logger zerolog.Logger) (*Postgres, error) {
	if cfg.DatabaseURL == "" {
		return nil, ErrEmptyConnectionString
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, errors.Join(feature.ErrValidation, err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	var pool *pgxpool.Pool
	err = retry.Do(ctx, "catalog_connect", policy, nil, func(ctx context.Context) error {
		p, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return err
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			logger.Warn().Err(err).Str("host", poolCfg.ConnConfig.Host).Msg("Catalog database not ready")
			return err
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, feature.Unavailable("catalog connect", err)
	}

	logger.Info().
		Str("host", poolCfg.ConnConfig.Host).
		Str("database", poolCfg.ConnConfig.Database).
		Int32("max_conns", poolCfg.MaxConns).
		Msg("Catalog database connected")
	return NewPostgres(pool, cfg.OpTimeout, logger), nil
}

// NewPostgres wraps an existing pool. A zero timeout leaves calls bounded only
// by the caller's context.
func NewPostgres(pool *pgxpool.Pool, timeout time.Duration, logger zerolog.Logger) *Postgres {
	return &Postgres{pool: pool, timeout: timeout, logger: logger}
}

func (p *Postgres) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.timeout)
}

func (p *Postgres) FindByName(ctx context.Context, name string) (feature.Definition, error) {
	ctx, cancel := p.bound(ctx)
	defer cancel()

	row := p.pool.QueryRow(ctx, `SELECT `+columns+` FROM features WHERE name = $1`, name)
	d, err := scanDefinition(row)
	if err != nil {
		if IsNotFoundError(err) {
			return feature.Definition{}, feature.NotFoundf("catalog find", "Feature '%s' not found", name)
		}
		return feature.Definition{}, p.fail("find", err)
	}
	return d, nil
}

func (p *Postgres) List(ctx context.Context) ([]feature.Definition, error) {
	ctx, cancel := p.bound(ctx)
	defer cancel()

	rows, err := p.pool.Query(ctx, `SELECT `+columns+` FROM features ORDER BY id`)
	if err != nil {
		return nil, p.fail("list", err)
	}
	defer rows.Close()

	defs := []feature.Definition{}
	for rows.Next() {
		d, err := scanDefinition(rows)
		if err != nil {
			return nil, p.fail("list", err)
		}
		defs = append(defs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, p.fail("list", err)
	}
	return defs, nil
}

func (p *Postgres) Create(ctx context.Context, d feature.Definition) (feature.Definition, error) {
	d, err := prepare(d, time.Now())
	if err != nil {
		return feature.Definition{}, err
	}

	ctx, cancel := p.bound(ctx)
	defer cancel()

	err = p.pool.QueryRow(ctx, `
		INSERT INTO features (name, description, data_type, entity, feature_group, is_nullable,
			source, transformation, min_value, max_value, mean_value, std_dev, ttl_seconds, tags, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id`,
		d.Name, d.Description, string(d.DataType), d.Entity, d.FeatureGroup, d.IsNullable,
		d.Source, d.Transformation, d.MinValue, d.MaxValue, d.MeanValue, d.StdDev, d.TTLSeconds,
		d.Tags, d.CreatedAt,
	).Scan(&d.ID)
	if err != nil {
		if IsDuplicateKeyError(err) {
			return feature.Definition{}, duplicate("catalog create", d.Name)
		}
		return feature.Definition{}, p.fail("create", err)
	}

	p.logger.Info().Int64("id", d.ID).Str("feature", d.Name).Msg("Feature registered")
	return d, nil
}

func (p *Postgres) DeleteByID(ctx context.Context, id int64) (feature.Definition, error) {
	ctx, cancel := p.bound(ctx)
	defer cancel()

	row := p.pool.QueryRow(ctx, `DELETE FROM features WHERE id = $1 RETURNING `+columns, id)
	d, err := scanDefinition(row)
	if err != nil {
		if IsNotFoundError(err) {
			return feature.Definition{}, notFound("catalog delete")
		}
		return feature.Definition{}, p.fail("delete", err)
	}

	p.logger.Info().Int64("id", d.ID).Str("feature", d.Name).Msg("Feature deleted")
	return d, nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	ctx, cancel := p.bound(ctx)
	defer cancel()

	if err := p.pool.Ping(ctx); err != nil {
		return p.fail("ping", err)
	}
	return nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// fail classifies a driver error. Timeouts, refused connections and pool
// exhaustion all surface as StoreUnavailable.
func (p *Postgres) fail(op string, err error) error {
	p.logger.Warn().Err(err).Str("operation", op).Msg("Catalog operation failed")
	return feature.Unavailable("catalog "+op, err)
}

func scanDefinition(row pgx.Row) (feature.Definition, error) {
	var (
		d        feature.Definition
		dataType string
	)
	err := row.Scan(
		&d.ID, &d.Name, &d.Description, &dataType, &d.Entity, &d.FeatureGroup, &d.IsNullable,
		&d.Source, &d.Transformation, &d.MinValue, &d.MaxValue, &d.MeanValue, &d.StdDev,
		&d.TTLSeconds, &d.Tags, &d.CreatedAt, &d.UpdatedAt,
	)
	d.DataType = feature.DataType(dataType)
	return d, err
}

// IsNotFoundError reports whether err is pgx.ErrNoRows.
func IsNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsDuplicateKeyError detects unique constraint violations (SQLSTATE 23505).
func IsDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
