package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/Sternrassler/feature-store/pkg/feature"
)

// SeedFile is the YAML document read by LoadSeed:
//
//	features:
//	  - name: user_age
//	    data_type: int
//	    entity: user
//	    ttl_seconds: 3600
type SeedFile struct {
	Features []feature.Registration `yaml:"features"`
}

// LoadSeed reads and validates the seed file at path.
func LoadSeed(path string) ([]feature.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var f SeedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}

	defs := make([]feature.Definition, 0, len(f.Features))
	for i, r := range f.Features {
		d, err := r.Definition()
		if err != nil {
			return nil, fmt.Errorf("seed feature #%d (%q): %w", i+1, r.Name, err)
		}
		defs = append(defs, d)
	}
	return defs, nil
}

// Seed registers defs, skipping names that already exist. It returns the
// number of definitions created.
func Seed(ctx context.Context, r Registry, defs []feature.Definition, logger zerolog.Logger) (int, error) {
	created := 0
	for _, d := range defs {
		_, err := r.Create(ctx, d)
		switch {
		case err == nil:
			created++
		case errors.Is(err, feature.ErrAlreadyExists):
			logger.Debug().Str("feature", d.Name).Msg("Seed feature already registered")
		default:
			return created, fmt.Errorf("seed feature %q: %w", d.Name, err)
		}
	}

	logger.Info().
		Int("created", created).
		Int("skipped", len(defs)-created).
		Msg("Catalog seeded")
	return created, nil
}
