// Package session implements the per-call auxiliary state a top-level
// encode or decode needs: an identity map on encode (component B) and a
// slot vector on decode, both pooled for reuse (spec §3, §5).
package session

import (
	"reflect"
	"sync"
)

// identityKey disambiguates reference-typed values by their underlying
// data pointer plus type (and, for slices, length), so two distinct slices
// that happen to share a backing array address (or, defensively, two
// unrelated types that ever reused an address across sessions) are never
// confused.
type identityKey struct {
	addr uintptr
	typ  reflect.Type
	n    int // slice length; zero for every other kind
}

func identityKeyOf(v reflect.Value) (identityKey, bool) {
	switch v.Kind() {
	case reflect.Ptr, reflect.UnsafePointer, reflect.Map, reflect.Chan, reflect.Func, reflect.Slice:
		if v.IsNil() {
			return identityKey{}, false
		}
		key := identityKey{addr: v.Pointer(), typ: v.Type()}
		if v.Kind() == reflect.Slice {
			key.n = v.Len()
		}
		return key, true
	default:
		return identityKey{}, false
	}
}

// Encode is the per-call value identity map: object reference -> monotonic
// index, keyed by reference identity rather than structural equality
// (spec §3 invariant i, §9 design note). Insertion order equals assignment
// order, which is what fixes the pre-order traversal's identity indices.
type Encode struct {
	index map[identityKey]int
	next  int
}

func newEncode() *Encode {
	return &Encode{index: make(map[identityKey]int)}
}

// Reset clears the table for reuse from the pool.
func (e *Encode) Reset() {
	for k := range e.index {
		delete(e.index, k)
	}
	e.next = 0
}

// Lookup reports the identity index already assigned to v, if any. Values
// with no independent identity (non-reference kinds, or nil references)
// never have an entry and always report ok=false.
func (e *Encode) Lookup(v reflect.Value) (index int, ok bool) {
	key, has := identityKeyOf(v)
	if !has {
		return 0, false
	}
	index, ok = e.index[key]
	return index, ok
}

// Allocate assigns the next monotonic identity index to v and records it
// so a later Lookup finds it. The caller must not allocate the same
// reference twice within a session; callers should always Lookup first.
func (e *Encode) Allocate(v reflect.Value) int {
	idx := e.next
	e.next++
	if key, ok := identityKeyOf(v); ok {
		e.index[key] = idx
	}
	return idx
}

// Count returns how many identities have been allocated so far.
func (e *Encode) Count() int { return e.next }

var encodePool = sync.Pool{New: func() any { return newEncode() }}

// GetEncode borrows a reset Encode session from the pool.
func GetEncode() *Encode {
	return encodePool.Get().(*Encode)
}

// PutEncode resets and returns e to the pool. Must be called exactly once
// per GetEncode, even on failure paths — the pool is restored regardless
// of how the top-level operation ended (spec §7).
func PutEncode(e *Encode) {
	e.Reset()
	encodePool.Put(e)
}
