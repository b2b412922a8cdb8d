// Package normalization maps user supplied names onto enum values.
package normalization

import (
	"fmt"
	"sort"
	"strings"
)

// Normalizer maps case and whitespace insensitive names, including
// aliases, onto values of an enum type.
type Normalizer[T comparable] struct {
	values    map[string]T
	validKeys []string
}

// NewNormalizer creates a normalizer from name->value pairs. Several names
// may map to the same value.
func NewNormalizer[T comparable](values map[string]T) *Normalizer[T] {
	normalized := make(map[string]T, len(values))
	keys := make([]string, 0, len(values))
	for k, v := range values {
		key := clean(k)
		normalized[key] = v
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return &Normalizer[T]{values: normalized, validKeys: keys}
}

// Lookup returns the value for raw and whether it was recognised.
func (n *Normalizer[T]) Lookup(raw string) (T, bool) {
	v, ok := n.values[clean(raw)]
	return v, ok
}

// Normalize returns the value for raw, or an error listing the valid names.
func (n *Normalizer[T]) Normalize(raw string) (T, error) {
	if v, ok := n.Lookup(raw); ok {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid value %q, valid options: %v", raw, n.validKeys)
}

// ValidKeys returns every accepted name, sorted.
func (n *Normalizer[T]) ValidKeys() []string {
	out := make([]string, len(n.validKeys))
	copy(out, n.validKeys)
	return out
}

func clean(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
