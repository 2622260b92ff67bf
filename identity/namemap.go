// Package identity implements the stable, hash-keyed lookup of well-known
// assemblies and types the type/assembly codec (typeid) consults for its
// compact 8-byte encoding (spec §4.C).
package identity

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Map is a bidirectional, xxHash64-keyed lookup built from a (values,
// name-fn) pair. It is immutable once constructed — safe for concurrent
// reads from many kernels without locking (spec §5 "immutable after first
// publication").
type Map[T comparable] struct {
	byHash  map[uint64]T
	byValue map[T]uint64
}

// New builds a Map from values and a function computing each value's
// canonical name. Each name is UTF-8 encoded and passed through xxHash64.
//
// Duplicate values are tolerated: the first insertion wins and later
// occurrences are silently ignored, matching spec §4.C ("refuses duplicate
// values but not duplicate hashes; first insertion... wins" — read as
// "first insertion of an already-seen value is a no-op"). A hash collision
// between two *distinct* values is rejected at build time rather than
// resolved last-writer-wins; see DESIGN.md's Open Question 1 for why this
// tightens the spec's stated ambiguity instead of reproducing it.
func New[T comparable](values []T, nameFn func(T) string) (*Map[T], error) {
	m := &Map[T]{
		byHash:  make(map[uint64]T, len(values)),
		byValue: make(map[T]uint64, len(values)),
	}
	for _, v := range values {
		if _, exists := m.byValue[v]; exists {
			continue
		}
		h := xxhash.Sum64String(nameFn(v))
		if existing, collided := m.byHash[h]; collided && existing != v {
			return nil, fmt.Errorf("identity: hash %x collides between two distinct well-known values", h)
		}
		m.byHash[h] = v
		m.byValue[v] = h
	}
	return m, nil
}

// HashOf returns the stable hash for v, if v was registered.
func (m *Map[T]) HashOf(v T) (uint64, bool) {
	h, ok := m.byValue[v]
	return h, ok
}

// ValueOf returns the value registered under hash h, if any.
func (m *Map[T]) ValueOf(h uint64) (T, bool) {
	v, ok := m.byHash[h]
	return v, ok
}

// Len reports how many distinct values are registered.
func (m *Map[T]) Len() int { return len(m.byValue) }
