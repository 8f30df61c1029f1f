package cache

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Sternrassler/feature-store/pkg/feature"
)

// ErrInvalidKey indicates a key that was not produced by the key scheme.
var ErrInvalidKey = errors.New("invalid cache key")

// Key is a flat cache key for one (entity, feature) pair.
type Key string

// String returns the raw key.
func (k Key) String() string { return string(k) }

// KeyScheme maps (entity id, feature name) pairs to cache keys and back.
// Format: [namespace:]entity_id:feature_name
//
// Example:
//
//	user_1:user_age
//	fs:user_1:user_age   (Namespace "fs")
//
// Neither segment may contain the separator, so every key splits
// unambiguously and an entity's keys never overlap another entity's.
type KeyScheme struct {
	// Namespace is an optional prefix shared by all keys of this store.
	Namespace string
}

func (s KeyScheme) prefix() string {
	if s.Namespace == "" {
		return ""
	}
	return s.Namespace + feature.KeySeparator
}

// Encode returns the key for entityID and featureName.
func (s KeyScheme) Encode(entityID, featureName string) (Key, error) {
	if err := feature.ValidateComponent("entity_id", entityID); err != nil {
		return "", err
	}
	if err := feature.ValidateComponent("feature_name", featureName); err != nil {
		return "", err
	}
	return Key(s.prefix() + entityID + feature.KeySeparator + featureName), nil
}

// Decode splits a key produced by Encode into its entity id and feature name.
func (s KeyScheme) Decode(key Key) (entityID, featureName string, err error) {
	rest, ok := strings.CutPrefix(string(key), s.prefix())
	if !ok {
		return "", "", fmt.Errorf("%w: %q lacks namespace %q", ErrInvalidKey, key, s.Namespace)
	}

	entityID, featureName, ok = strings.Cut(rest, feature.KeySeparator)
	if !ok {
		return "", "", fmt.Errorf("%w: %q has no separator", ErrInvalidKey, key)
	}
	if feature.ValidateComponent("entity_id", entityID) != nil ||
		feature.ValidateComponent("feature_name", featureName) != nil {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return entityID, featureName, nil
}

// PrefixFor returns a SCAN MATCH pattern selecting exactly the keys of
// entityID. Glob metacharacters in the namespace and entity id are escaped.
func (s KeyScheme) PrefixFor(entityID string) (string, error) {
	if err := feature.ValidateComponent("entity_id", entityID); err != nil {
		return "", err
	}
	return escapeGlob(s.prefix()+entityID+feature.KeySeparator) + "*", nil
}

func escapeGlob(s string) string {
	if !strings.ContainsAny(s, `*?[]\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
