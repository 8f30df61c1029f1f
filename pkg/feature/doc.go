// Package feature defines the domain types shared by the online feature store:
// the tagged feature Value, its cache codec, feature Definitions owned by the
// metadata catalog, and the error taxonomy surfaced to callers.
//
// # Values
//
// A Value is a tagged union of int64, float64, bool, string, null and
// embedding ([]float64). The zero Value is an explicit null. A stored null is
// a present cache entry; a missing entry is reported separately by the
// retrieval layer, never by Value itself.
//
//	v := feature.Int(42)
//	data, err := feature.Encode(v) // "i:42"
//	back, err := feature.Decode(data)
//	back.Equal(v) // true
//
// # Codec
//
// The cache wire format is one tag byte, a colon, and a payload:
//
//	i:<int64>   f:<float64>   b:true|false   s:<utf-8>   n:   e:<f1>,<f2>,...
//
// The encoding is self-describing, so reads never need to consult the
// catalog to recover the original shape of a value.
//
// # Errors
//
// Errors carry one of four classes (validation, not found, already exists,
// store unavailable) and match the corresponding sentinel through errors.Is:
//
//	if errors.Is(err, feature.ErrNotFound) {
//		// unregistered feature or unknown definition id
//	}
//	if feature.IsRetryable(err) {
//		// StoreUnavailable: the caller may retry
//	}
package feature
