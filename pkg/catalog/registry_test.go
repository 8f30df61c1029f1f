package catalog

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/feature-store/pkg/feature"
)

func ptr[T any](v T) *T { return &v }

func userAge() feature.Definition {
	return feature.Definition{
		Name:       "user_age",
		DataType:   feature.DataTypeInt,
		Entity:     "user",
		IsNullable: true,
		TTLSeconds: ptr(int64(3600)),
		Tags:       map[string]any{"team": "growth"},
	}
}

func drivers() map[string]func(t *testing.T) Registry {
	return map[string]func(t *testing.T) Registry{
		DriverMemory: func(t *testing.T) Registry {
			return NewMemory()
		},
		DriverBolt: func(t *testing.T) Registry {
			b, err := OpenBolt(filepath.Join(t.TempDir(), "catalog.db"), zerolog.Nop())
			require.NoError(t, err)
			t.Cleanup(func() { b.Close() })
			return b
		},
	}
}

func TestRegistry_CreateAndFind(t *testing.T) {
	for name, open := range drivers() {
		t.Run(name, func(t *testing.T) {
			r := open(t)
			ctx := context.Background()

			created, err := r.Create(ctx, userAge())
			require.NoError(t, err)
			assert.Positive(t, created.ID)
			assert.False(t, created.CreatedAt.IsZero())

			got, err := r.FindByName(ctx, "user_age")
			require.NoError(t, err)
			assert.Equal(t, created.ID, got.ID)
			assert.Equal(t, feature.DataTypeInt, got.DataType)
			assert.Equal(t, "user", got.Entity)
			assert.True(t, got.IsNullable)
			require.NotNil(t, got.TTLSeconds)
			assert.Equal(t, int64(3600), *got.TTLSeconds)
			assert.Equal(t, "growth", got.Tags["team"])
		})
	}
}

func TestRegistry_FindByName_NotFound(t *testing.T) {
	for name, open := range drivers() {
		t.Run(name, func(t *testing.T) {
			_, err := open(t).FindByName(context.Background(), "missing")
			assert.ErrorIs(t, err, feature.ErrNotFound)
		})
	}
}

func TestRegistry_Create_Duplicate(t *testing.T) {
	for name, open := range drivers() {
		t.Run(name, func(t *testing.T) {
			r := open(t)
			ctx := context.Background()

			_, err := r.Create(ctx, userAge())
			require.NoError(t, err)

			dup := userAge()
			dup.DataType = feature.DataTypeFloat
			_, err = r.Create(ctx, dup)
			assert.ErrorIs(t, err, feature.ErrAlreadyExists)

			got, err := r.FindByName(ctx, "user_age")
			require.NoError(t, err)
			assert.Equal(t, feature.DataTypeInt, got.DataType, "first registration wins")
		})
	}
}

func TestRegistry_Create_Invalid(t *testing.T) {
	for name, open := range drivers() {
		t.Run(name, func(t *testing.T) {
			r := open(t)

			d := userAge()
			d.Name = "user:age"
			_, err := r.Create(context.Background(), d)
			assert.ErrorIs(t, err, feature.ErrValidation)

			defs, err := r.List(context.Background())
			require.NoError(t, err)
			assert.Empty(t, defs)
		})
	}
}

func TestRegistry_ListOrderedByID(t *testing.T) {
	for name, open := range drivers() {
		t.Run(name, func(t *testing.T) {
			r := open(t)
			ctx := context.Background()

			for _, n := range []string{"c", "a", "b"} {
				d := userAge()
				d.Name = n
				_, err := r.Create(ctx, d)
				require.NoError(t, err)
			}

			defs, err := r.List(ctx)
			require.NoError(t, err)
			require.Len(t, defs, 3)
			assert.Equal(t, []string{"c", "a", "b"}, []string{defs[0].Name, defs[1].Name, defs[2].Name})
			assert.Less(t, defs[0].ID, defs[1].ID)
			assert.Less(t, defs[1].ID, defs[2].ID)
		})
	}
}

func TestRegistry_List_Empty(t *testing.T) {
	for name, open := range drivers() {
		t.Run(name, func(t *testing.T) {
			defs, err := open(t).List(context.Background())
			require.NoError(t, err)
			assert.NotNil(t, defs)
			assert.Empty(t, defs)
		})
	}
}

func TestRegistry_DeleteByID(t *testing.T) {
	for name, open := range drivers() {
		t.Run(name, func(t *testing.T) {
			r := open(t)
			ctx := context.Background()

			created, err := r.Create(ctx, userAge())
			require.NoError(t, err)

			deleted, err := r.DeleteByID(ctx, created.ID)
			require.NoError(t, err)
			assert.Equal(t, "user_age", deleted.Name)

			_, err = r.FindByName(ctx, "user_age")
			assert.ErrorIs(t, err, feature.ErrNotFound)

			_, err = r.DeleteByID(ctx, created.ID)
			assert.ErrorIs(t, err, feature.ErrNotFound)

			// The name is free again and gets a fresh id.
			again, err := r.Create(ctx, userAge())
			require.NoError(t, err)
			assert.NotEqual(t, created.ID, again.ID)
		})
	}
}

func TestRegistry_ConcurrentCreateSameName(t *testing.T) {
	for name, open := range drivers() {
		t.Run(name, func(t *testing.T) {
			r := open(t)
			ctx := context.Background()

			var (
				wg      sync.WaitGroup
				mu      sync.Mutex
				success int
			)
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := r.Create(ctx, userAge()); err == nil {
						mu.Lock()
						success++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()

			assert.Equal(t, 1, success)
		})
	}
}

func TestRegistry_Closed(t *testing.T) {
	for name, open := range drivers() {
		t.Run(name, func(t *testing.T) {
			r := open(t)
			require.NoError(t, r.Close())

			assert.ErrorIs(t, r.Ping(context.Background()), feature.ErrStoreUnavailable)
			_, err := r.FindByName(context.Background(), "user_age")
			assert.ErrorIs(t, err, feature.ErrStoreUnavailable)
		})
	}
}

func TestBolt_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	ctx := context.Background()

	b, err := OpenBolt(path, zerolog.Nop())
	require.NoError(t, err)
	created, err := b.Create(ctx, userAge())
	require.NoError(t, err)
	require.NoError(t, b.Close())

	b, err = OpenBolt(path, zerolog.Nop())
	require.NoError(t, err)
	defer b.Close()

	got, err := b.FindByName(ctx, "user_age")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.True(t, created.CreatedAt.Equal(got.CreatedAt))
}

func TestHealthcheck(t *testing.T) {
	m := NewMemory()
	assert.NoError(t, Healthcheck(m)(context.Background()))

	m.Close()
	assert.ErrorIs(t, Healthcheck(m)(context.Background()), ErrHealthcheckFailed)
}
