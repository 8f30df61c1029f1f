package cache

import "github.com/Sternrassler/feature-store/pkg/feature"

// Entry is the result of looking up one key.
type Entry struct {
	// Key is the looked up cache key.
	Key Key

	// Data is the encoded value. Nil when Found is false.
	Data []byte

	// Found is false when the key was never set or has expired.
	Found bool
}

// Value decodes the entry's data. A missing entry decodes to null; callers
// that need to tell the two apart check Found first.
func (e Entry) Value() (feature.Value, error) {
	if !e.Found {
		return feature.Null(), nil
	}
	return feature.Decode(e.Data)
}
