package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/feature-store/pkg/feature"
)

const seedYAML = `
features:
  - name: user_age
    data_type: int
    entity: user
    ttl_seconds: 3600
  - name: avg_order_value
    data_type: float
    entity: user
    feature_group: orders
    min_value: 0
    is_nullable: false
  - name: is_premium
    data_type: boolean
    entity: user
    tags:
      owner: billing
`

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "features.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadSeed(t *testing.T) {
	defs, err := LoadSeed(writeSeed(t, seedYAML))
	require.NoError(t, err)
	require.Len(t, defs, 3)

	assert.Equal(t, "user_age", defs[0].Name)
	assert.Equal(t, int64(3600), *defs[0].TTLSeconds)
	assert.True(t, defs[0].IsNullable, "nullable by default")

	assert.Equal(t, feature.DataTypeFloat, defs[1].DataType)
	assert.False(t, defs[1].IsNullable)
	assert.Equal(t, "orders", *defs[1].FeatureGroup)

	assert.Equal(t, feature.DataTypeBool, defs[2].DataType, "boolean alias normalized")
	assert.Equal(t, "billing", defs[2].Tags["owner"])
}

func TestLoadSeed_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "malformed yaml", content: "features: ["},
		{name: "unknown data type", content: "features:\n  - {name: a, data_type: uuid, entity: user}\n"},
		{name: "separator in name", content: "features:\n  - {name: 'a:b', data_type: int, entity: user}\n"},
		{name: "non-positive ttl", content: "features:\n  - {name: a, data_type: int, entity: user, ttl_seconds: 0}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSeed(writeSeed(t, tt.content))
			assert.Error(t, err)
		})
	}

	_, err := LoadSeed(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSeed_Idempotent(t *testing.T) {
	defs, err := LoadSeed(writeSeed(t, seedYAML))
	require.NoError(t, err)

	r := NewMemory()
	ctx := context.Background()

	n, err := Seed(ctx, r, defs, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = Seed(ctx, r, defs, zerolog.Nop())
	require.NoError(t, err)
	assert.Zero(t, n)

	all, err := r.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSeed_StopsOnUnavailable(t *testing.T) {
	defs, err := LoadSeed(writeSeed(t, seedYAML))
	require.NoError(t, err)

	r := NewMemory()
	r.Close()

	_, err = Seed(context.Background(), r, defs, zerolog.Nop())
	assert.ErrorIs(t, err, feature.ErrStoreUnavailable)
}
