package feature

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the tag of a Value.
type Kind uint8

const (
	// KindNull is an explicit null. It is the zero Kind.
	KindNull Kind = iota
	KindInt
	KindFloat
	KindBool
	KindString
	KindEmbedding
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindEmbedding:
		return "embedding"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a dynamically typed feature value. The zero Value is null.
type Value struct {
	kind Kind
	i    int64
	f    float64
	b    bool
	s    string
	e    []float64
}

// Null returns an explicit null value.
func Null() Value { return Value{} }

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a floating point value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Embedding returns a numeric list value. The slice is copied.
func Embedding(e []float64) Value {
	cp := make([]float64, len(e))
	copy(cp, e)
	return Value{kind: KindEmbedding, e: cp}
}

// Kind returns the tag of v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is an explicit null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsInt returns the integer payload.
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsFloat returns the float payload.
func (v Value) AsFloat() (float64, bool) { return v.f, v.kind == KindFloat }

// AsBool returns the boolean payload.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsString returns the string payload.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsEmbedding returns a copy of the embedding payload.
func (v Value) AsEmbedding() ([]float64, bool) {
	if v.kind != KindEmbedding {
		return nil, false
	}
	cp := make([]float64, len(v.e))
	copy(cp, v.e)
	return cp, true
}

// Equal reports whether v and o have the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindBool:
		return v.b == o.b
	case KindString:
		return v.s == o.s
	case KindEmbedding:
		if len(v.e) != len(o.e) {
			return false
		}
		for i := range v.e {
			if v.e[i] != o.e[i] {
				return false
			}
		}
		return true
	}
	return false
}

// Validate rejects values that cannot be stored or rendered as JSON.
func (v Value) Validate() error {
	switch v.kind {
	case KindFloat:
		if !finite(v.f) {
			return Validationf("value", "float must be finite, got %v", v.f)
		}
	case KindEmbedding:
		for i, f := range v.e {
			if !finite(f) {
				return Validationf("value", "embedding element %d must be finite, got %v", i, f)
			}
		}
	}
	return nil
}

// String renders v for logs.
func (v Value) String() string {
	b, err := v.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<%s>", v.kind)
	}
	return string(b)
}

// MarshalJSON renders v so that the tag survives a JSON round trip:
// integral floats keep a trailing ".0".
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindInt:
		return strconv.AppendInt(nil, v.i, 10), nil
	case KindFloat:
		if !finite(v.f) {
			return nil, Validationf("value", "float must be finite, got %v", v.f)
		}
		return []byte(jsonFloat(v.f)), nil
	case KindBool:
		return strconv.AppendBool(nil, v.b), nil
	case KindString:
		return json.Marshal(v.s)
	case KindEmbedding:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, f := range v.e {
			if !finite(f) {
				return nil, Validationf("value", "embedding element %d must be finite, got %v", i, f)
			}
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(jsonFloat(f))
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("unknown value kind %d", v.kind)
}

// UnmarshalJSON parses a JSON scalar, null or numeric array into v.
// Number literals without a fraction or exponent become ints.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Validationf("value", "invalid JSON value: %v", err)
	}

	switch t := raw.(type) {
	case nil:
		*v = Null()
	case bool:
		*v = Bool(t)
	case string:
		*v = String(t)
	case json.Number:
		parsed, err := parseNumber(t)
		if err != nil {
			return err
		}
		*v = parsed
	case []any:
		e := make([]float64, 0, len(t))
		for i, item := range t {
			n, ok := item.(json.Number)
			if !ok {
				return Validationf("value", "embedding element %d must be a number", i)
			}
			f, err := strconv.ParseFloat(n.String(), 64)
			if err != nil {
				return Validationf("value", "embedding element %d: %v", i, err)
			}
			e = append(e, f)
		}
		*v = Value{kind: KindEmbedding, e: e}
	default:
		return Validationf("value", "unsupported JSON value of type %T", raw)
	}
	return nil
}

func parseNumber(n json.Number) (Value, error) {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Value{}, Validationf("value", "integer %s out of int64 range", s)
		}
		return Int(i), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Value{}, Validationf("value", "float %s out of range", s)
	}
	return Float(f), nil
}

func jsonFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
