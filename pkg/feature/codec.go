package feature

import (
	"bytes"
	"fmt"
	"strconv"
)

// Codec tags. Each encoded value is <tag>:<payload>.
const (
	tagNull      = 'n'
	tagInt       = 'i'
	tagFloat     = 'f'
	tagBool      = 'b'
	tagString    = 's'
	tagEmbedding = 'e'
)

// Encode serializes v into its cache representation.
func Encode(v Value) ([]byte, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}

	switch v.kind {
	case KindNull:
		return []byte{tagNull, ':'}, nil
	case KindInt:
		return strconv.AppendInt([]byte{tagInt, ':'}, v.i, 10), nil
	case KindFloat:
		return strconv.AppendFloat([]byte{tagFloat, ':'}, v.f, 'g', -1, 64), nil
	case KindBool:
		return strconv.AppendBool([]byte{tagBool, ':'}, v.b), nil
	case KindString:
		buf := make([]byte, 0, len(v.s)+2)
		buf = append(buf, tagString, ':')
		return append(buf, v.s...), nil
	case KindEmbedding:
		buf := make([]byte, 0, 2+len(v.e)*8)
		buf = append(buf, tagEmbedding, ':')
		for i, f := range v.e {
			if i > 0 {
				buf = append(buf, ',')
			}
			buf = strconv.AppendFloat(buf, f, 'g', -1, 64)
		}
		return buf, nil
	}
	return nil, fmt.Errorf("encode: unknown value kind %d", v.kind)
}

// Decode parses bytes produced by Encode. Malformed input yields an error
// wrapping ErrInvalidEntry.
func Decode(data []byte) (Value, error) {
	if len(data) < 2 || data[1] != ':' {
		return Value{}, fmt.Errorf("%w: missing type tag", ErrInvalidEntry)
	}
	payload := data[2:]

	switch data[0] {
	case tagNull:
		if len(payload) != 0 {
			return Value{}, fmt.Errorf("%w: null with payload", ErrInvalidEntry)
		}
		return Null(), nil
	case tagInt:
		i, err := strconv.ParseInt(string(payload), 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
		}
		return Int(i), nil
	case tagFloat:
		f, err := strconv.ParseFloat(string(payload), 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
		}
		return Float(f), nil
	case tagBool:
		b, err := strconv.ParseBool(string(payload))
		if err != nil || (string(payload) != "true" && string(payload) != "false") {
			return Value{}, fmt.Errorf("%w: invalid bool %q", ErrInvalidEntry, payload)
		}
		return Bool(b), nil
	case tagString:
		return String(string(payload)), nil
	case tagEmbedding:
		if len(payload) == 0 {
			return Value{kind: KindEmbedding, e: []float64{}}, nil
		}
		parts := bytes.Split(payload, []byte{','})
		e := make([]float64, len(parts))
		for i, p := range parts {
			f, err := strconv.ParseFloat(string(p), 64)
			if err != nil {
				return Value{}, fmt.Errorf("%w: embedding element %d: %v", ErrInvalidEntry, i, err)
			}
			e[i] = f
		}
		return Value{kind: KindEmbedding, e: e}, nil
	}
	return Value{}, fmt.Errorf("%w: unknown type tag %q", ErrInvalidEntry, data[0])
}
