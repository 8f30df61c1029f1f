package catalog

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	bolt "go.etcd.io/bbolt"

	"github.com/Sternrassler/feature-store/pkg/feature"
)

var (
	// name -> JSON definition
	bucketByName = []byte("features")
	// big-endian id -> name
	bucketByID = []byte("feature_ids")
)

// Bolt is a Registry stored in a single bbolt file. It is safe for
// concurrent use; bbolt serializes writers.
type Bolt struct {
	db     *bolt.DB
	logger zerolog.Logger
}

// OpenBolt opens or creates the database at path.
func OpenBolt(path string, logger zerolog.Logger) (*Bolt, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, feature.Unavailable("catalog open", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketByName, bucketByID} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, feature.Unavailable("catalog open", err)
	}

	logger.Info().Str("path", path).Msg("Bolt catalog opened")
	return &Bolt{db: db, logger: logger}, nil
}

func (b *Bolt) FindByName(ctx context.Context, name string) (feature.Definition, error) {
	if err := ctx.Err(); err != nil {
		return feature.Definition{}, feature.Unavailable("catalog find", err)
	}

	var (
		d     feature.Definition
		found bool
	)
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketByName).Get([]byte(name))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &d)
	})
	if err != nil {
		return feature.Definition{}, b.fail("find", err)
	}
	if !found {
		return feature.Definition{}, feature.NotFoundf("catalog find", "Feature '%s' not found", name)
	}
	return d, nil
}

func (b *Bolt) List(ctx context.Context) ([]feature.Definition, error) {
	if err := ctx.Err(); err != nil {
		return nil, feature.Unavailable("catalog list", err)
	}

	defs := []feature.Definition{}
	err := b.db.View(func(tx *bolt.Tx) error {
		byName := tx.Bucket(bucketByName)
		return tx.Bucket(bucketByID).ForEach(func(_, name []byte) error {
			var d feature.Definition
			if err := json.Unmarshal(byName.Get(name), &d); err != nil {
				return err
			}
			defs = append(defs, d)
			return nil
		})
	})
	if err != nil {
		return nil, b.fail("list", err)
	}
	return defs, nil
}

func (b *Bolt) Create(ctx context.Context, d feature.Definition) (feature.Definition, error) {
	d, err := prepare(d, time.Now())
	if err != nil {
		return feature.Definition{}, err
	}
	if err := ctx.Err(); err != nil {
		return feature.Definition{}, feature.Unavailable("catalog create", err)
	}

	exists := false
	err = b.db.Update(func(tx *bolt.Tx) error {
		byName := tx.Bucket(bucketByName)
		if byName.Get([]byte(d.Name)) != nil {
			exists = true
			return nil
		}
		byID := tx.Bucket(bucketByID)
		seq, err := byID.NextSequence()
		if err != nil {
			return err
		}
		d.ID = int64(seq)

		data, err := json.Marshal(d)
		if err != nil {
			return err
		}
		if err := byName.Put([]byte(d.Name), data); err != nil {
			return err
		}
		return byID.Put(idKey(d.ID), []byte(d.Name))
	})
	if err != nil {
		return feature.Definition{}, b.fail("create", err)
	}
	if exists {
		return feature.Definition{}, duplicate("catalog create", d.Name)
	}

	b.logger.Info().Int64("id", d.ID).Str("feature", d.Name).Msg("Feature registered")
	return d, nil
}

func (b *Bolt) DeleteByID(ctx context.Context, id int64) (feature.Definition, error) {
	if err := ctx.Err(); err != nil {
		return feature.Definition{}, feature.Unavailable("catalog delete", err)
	}

	var (
		d     feature.Definition
		found bool
	)
	err := b.db.Update(func(tx *bolt.Tx) error {
		byID := tx.Bucket(bucketByID)
		name := byID.Get(idKey(id))
		if name == nil {
			return nil
		}
		found = true
		name = append([]byte(nil), name...)

		byName := tx.Bucket(bucketByName)
		if err := json.Unmarshal(byName.Get(name), &d); err != nil {
			return err
		}
		if err := byName.Delete(name); err != nil {
			return err
		}
		return byID.Delete(idKey(id))
	})
	if err != nil {
		return feature.Definition{}, b.fail("delete", err)
	}
	if !found {
		return feature.Definition{}, notFound("catalog delete")
	}

	b.logger.Info().Int64("id", d.ID).Str("feature", d.Name).Msg("Feature deleted")
	return d, nil
}

func (b *Bolt) Ping(ctx context.Context) error {
	if err := b.db.View(func(*bolt.Tx) error { return nil }); err != nil {
		return b.fail("ping", err)
	}
	return nil
}

func (b *Bolt) Close() error {
	return b.db.Close()
}

func (b *Bolt) fail(op string, err error) error {
	b.logger.Warn().Err(err).Str("operation", op).Msg("Catalog operation failed")
	return feature.Unavailable("catalog "+op, err)
}

func idKey(id int64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(id))
	return k
}
