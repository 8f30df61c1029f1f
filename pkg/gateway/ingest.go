package gateway

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/feature-store/pkg/feature"
)

// IngestOptions tunes ingestion.
type IngestOptions struct {
	// StrictTypes rejects values that do not conform to the definition's
	// data type. Off by default.
	StrictTypes bool
}

// Ingester writes feature values for an entity into the online store.
type Ingester struct {
	store  Store
	defs   Definitions
	opts   IngestOptions
	logger zerolog.Logger
}

// NewIngester creates an Ingester.
func NewIngester(store Store, defs Definitions, opts IngestOptions, logger zerolog.Logger) *Ingester {
	return &Ingester{store: store, defs: defs, opts: opts, logger: logger}
}

// Ingest stores values for entityID and returns the ingested feature names
// in request order.
//
// The whole request is validated before anything is written. Features are
// then resolved and written one by one. If a feature turns out to be
// unregistered (a feature.UnregisteredFeatureError) or the store fails, the
// features written before it stay written; the returned names list them.
func (in *Ingester) Ingest(ctx context.Context, entityID string, values []feature.FeatureValue) ([]string, error) {
	if err := validateIngest(entityID, values); err != nil {
		IngestFailures.WithLabelValues("validation").Inc()
		return nil, err
	}

	keys := in.store.Keys()
	written := make([]string, 0, len(values))
	for _, fv := range values {
		def, err := in.defs.FindByName(ctx, fv.FeatureName)
		if err != nil {
			if errors.Is(err, feature.ErrNotFound) {
				err = &feature.UnregisteredFeatureError{Name: fv.FeatureName}
			}
			return written, in.abort(entityID, written, err)
		}

		if in.opts.StrictTypes {
			if err := def.Accepts(fv.Value); err != nil {
				return written, in.abort(entityID, written, err)
			}
		}

		data, err := feature.Encode(fv.Value)
		if err != nil {
			return written, in.abort(entityID, written, err)
		}
		key, err := keys.Encode(entityID, fv.FeatureName)
		if err != nil {
			return written, in.abort(entityID, written, err)
		}
		if err := in.store.Set(ctx, key, data, def.TTL()); err != nil {
			return written, in.abort(entityID, written, err)
		}
		written = append(written, fv.FeatureName)
		IngestedFeatures.Inc()
	}

	in.logger.Debug().
		Str("entity_id", entityID).
		Strs("features", written).
		Msg("Features ingested")
	return written, nil
}

func (in *Ingester) abort(entityID string, written []string, err error) error {
	reason := "unavailable"
	switch {
	case errors.Is(err, feature.ErrNotFound):
		reason = "unregistered"
	case errors.Is(err, feature.ErrValidation):
		reason = "type_mismatch"
	}
	IngestFailures.WithLabelValues(reason).Inc()

	ev := in.logger.Warn()
	if len(written) > 0 {
		ev = ev.Strs("written", written)
	}
	ev.Err(err).
		Str("entity_id", entityID).
		Str("reason", reason).
		Msg("Ingestion aborted")
	return err
}

func validateIngest(entityID string, values []feature.FeatureValue) error {
	if err := feature.ValidateComponent("entity_id", entityID); err != nil {
		return err
	}
	if len(values) == 0 {
		return feature.Validationf("features", "features must not be empty")
	}
	for _, fv := range values {
		if err := feature.ValidateComponent("feature_name", fv.FeatureName); err != nil {
			return err
		}
		if err := fv.Value.Validate(); err != nil {
			return err
		}
	}
	return nil
}
