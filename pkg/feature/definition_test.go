package feature

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestParseDataType(t *testing.T) {
	tests := []struct {
		input   string
		want    DataType
		wantErr bool
	}{
		{input: "int", want: DataTypeInt},
		{input: "FLOAT", want: DataTypeFloat},
		{input: "boolean", want: DataTypeBool},
		{input: "bool", want: DataTypeBool},
		{input: " string ", want: DataTypeString},
		{input: "embedding", want: DataTypeEmbedding},
		{input: "decimal", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDataType(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateComponent(t *testing.T) {
	assert.NoError(t, ValidateComponent("name", "user_age"))
	assert.NoError(t, ValidateComponent("entity_id", "user-1*"))

	for _, bad := range []string{"", "user:1", ":", strings.Repeat("a", MaxComponentLength+1), "\xff"} {
		err := ValidateComponent("entity_id", bad)
		assert.ErrorIs(t, err, ErrValidation, "input %q", bad)
	}
}

func TestValidateComponent_LengthBoundary(t *testing.T) {
	assert.Equal(t, 255, MaxComponentLength)
	assert.NoError(t, ValidateComponent("feature_name", strings.Repeat("a", 255)))
	assert.ErrorIs(t, ValidateComponent("feature_name", strings.Repeat("a", 256)), ErrValidation)

	_, err := Registration{Name: strings.Repeat("n", 256), DataType: "int", Entity: "user"}.Definition()
	assert.ErrorIs(t, err, ErrValidation)

	_, err = Registration{Name: strings.Repeat("n", 255), DataType: "int", Entity: "user"}.Definition()
	assert.NoError(t, err)
}

func TestRegistration_Definition(t *testing.T) {
	reg := Registration{
		Name:       "user_age",
		DataType:   "int",
		Entity:     "user",
		TTLSeconds: ptr(int64(3600)),
	}

	def, err := reg.Definition()
	require.NoError(t, err)
	assert.Equal(t, DataTypeInt, def.DataType)
	assert.True(t, def.IsNullable, "is_nullable defaults to true")
	assert.Equal(t, time.Hour, def.TTL())
}

func TestRegistration_DefinitionInvalid(t *testing.T) {
	tests := []struct {
		name string
		reg  Registration
	}{
		{name: "separator in name", reg: Registration{Name: "user:age", DataType: "int", Entity: "user"}},
		{name: "empty name", reg: Registration{DataType: "int", Entity: "user"}},
		{name: "unknown type", reg: Registration{Name: "a", DataType: "date", Entity: "user"}},
		{name: "missing entity", reg: Registration{Name: "a", DataType: "int"}},
		{name: "zero ttl", reg: Registration{Name: "a", DataType: "int", Entity: "user", TTLSeconds: ptr(int64(0))}},
		{name: "negative ttl", reg: Registration{Name: "a", DataType: "int", Entity: "user", TTLSeconds: ptr(int64(-5))}},
		{name: "min above max", reg: Registration{Name: "a", DataType: "float", Entity: "user", MinValue: ptr(2.0), MaxValue: ptr(1.0)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.reg.Definition()
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestDefinition_TTLUnset(t *testing.T) {
	assert.Equal(t, time.Duration(0), Definition{}.TTL())
}

func TestDefinition_Accepts(t *testing.T) {
	intDef := Definition{Name: "age", DataType: DataTypeInt, IsNullable: true}
	floatDef := Definition{Name: "score", DataType: DataTypeFloat}
	embDef := Definition{Name: "vec", DataType: DataTypeEmbedding}

	assert.NoError(t, intDef.Accepts(Int(1)))
	assert.NoError(t, intDef.Accepts(Null()))
	assert.ErrorIs(t, intDef.Accepts(Float(1.5)), ErrValidation)

	assert.NoError(t, floatDef.Accepts(Float(1.5)))
	assert.NoError(t, floatDef.Accepts(Int(2)))
	assert.ErrorIs(t, floatDef.Accepts(Null()), ErrValidation)
	assert.ErrorIs(t, floatDef.Accepts(String("x")), ErrValidation)

	assert.NoError(t, embDef.Accepts(Embedding([]float64{1})))
	assert.ErrorIs(t, embDef.Accepts(Int(1)), ErrValidation)
}
