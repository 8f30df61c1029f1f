package feature

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		wire  string
	}{
		{name: "null", value: Null(), wire: "n:"},
		{name: "int", value: Int(42), wire: "i:42"},
		{name: "negative int", value: Int(-7), wire: "i:-7"},
		{name: "max int", value: Int(math.MaxInt64), wire: "i:9223372036854775807"},
		{name: "float", value: Float(120.5), wire: "f:120.5"},
		{name: "integral float", value: Float(42), wire: "f:42"},
		{name: "tiny float", value: Float(1e-300), wire: "f:1e-300"},
		{name: "bool true", value: Bool(true), wire: "b:true"},
		{name: "bool false", value: Bool(false), wire: "b:false"},
		{name: "string", value: String("hello"), wire: "s:hello"},
		{name: "string with separator", value: String("a:b,c"), wire: "s:a:b,c"},
		{name: "empty string", value: String(""), wire: "s:"},
		{name: "embedding", value: Embedding([]float64{0.1, -2, 3.5e10}), wire: "e:0.1,-2,3.5e+10"},
		{name: "empty embedding", value: Embedding(nil), wire: "e:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Encode(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.wire, string(data))

			decoded, err := Decode(data)
			require.NoError(t, err)
			assert.True(t, decoded.Equal(tt.value), "decoded %s, want %s", decoded, tt.value)
			assert.Equal(t, tt.value.Kind(), decoded.Kind())
		})
	}
}

func TestCodec_FloatKeepsKind(t *testing.T) {
	data, err := Encode(Float(3))
	require.NoError(t, err)

	v, err := Decode(data)
	require.NoError(t, err)

	f, ok := v.AsFloat()
	require.True(t, ok, "integral float must decode as float, got %s", v.Kind())
	assert.Equal(t, 3.0, f)
}

func TestEncode_RejectsNonFinite(t *testing.T) {
	for _, v := range []Value{
		Float(math.NaN()),
		Float(math.Inf(1)),
		Embedding([]float64{1, math.Inf(-1)}),
	} {
		_, err := Encode(v)
		assert.ErrorIs(t, err, ErrValidation)
	}
}

func TestDecode_Malformed(t *testing.T) {
	tests := []string{
		"",
		"i",
		"42",
		"x:1",
		"i:4.2",
		"i:",
		"f:abc",
		"b:yes",
		"b:1",
		"n:extra",
		"e:1,,2",
		`{"json":true}`,
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			_, err := Decode([]byte(input))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidEntry), "got %v", err)
		})
	}
}
