// Package typeid implements the type/assembly codec (component D): a
// bit-exact, reconstructable encoding of reflective type identities (spec
// §3, §4.D).
//
// Go has no runtime representation of an *open* generic type or method —
// every reflect.Type Go can produce is already fully instantiated, and
// there is no public reflect API to decompose an instantiation back into
// (definition, type arguments) or to construct a new instantiation from a
// definition plus arguments at runtime (reflect.New exists only for types
// already known to the linker). That is a genuine host-reflection-facility
// limitation, the same category of external collaborator spec §1 carves
// out of scope. Per spec §9's own guidance for such a port, the
// Constructed/TypeParameter/MethodParameter cases are fully represented on
// the wire (so a conforming producer/consumer pair round-trips them) but
// decode-side reconstruction of a Constructed identity requires a
// user-supplied GenericResolver (absent one, decode raises type-not-found,
// exactly the failure spec §4.D already names for an unresolved identity),
// and a TypeParameter or MethodParameter identity never resolves to a
// reflect.Type: it always raises type-not-found.
package typeid

import (
	"reflect"
)

// Kind is the 3-bit discriminator packed into the low bits of the type
// identity tag byte (spec §3).
type Kind uint8

const (
	KindSZArray Kind = iota
	KindArray
	KindTypeParameter
	KindMethodParameter
	KindConstructed
	KindBuiltinDef
	KindKnownDef
	KindNamedDef
)

// inlineEscape is the 5-bit inline-number sentinel meaning "the real value
// didn't fit in 5 bits; read it as a trailing varuint instead". Keeping an
// escape means small ranks/indices (the overwhelming common case) cost
// nothing beyond the tag byte, while unusually large ones still round-trip.
const inlineEscape = 0x1F

// Identity is the discriminated union of spec §3's type-identity cases.
// Exactly one group of fields is meaningful, selected by Kind.
type Identity struct {
	Kind Kind

	// KindSZArray
	Elem *Identity

	// KindArray. Go has no native multi-rank array type (only arrays of
	// arrays: [3][4]int is an Array of Array, each rank 1), and unlike the
	// host this scheme was distilled from, a Go array's length is part of
	// its static type rather than runtime data. Rank is therefore
	// repurposed to carry that fixed length rather than a dimension count
	// — a deliberate, Go-specific extension of this case's operand list
	// (see codec.go's ToIdentity/resolveIdentity).
	Rank int

	// KindTypeParameter / KindMethodParameter
	ParamIndex   int
	Parent       *Identity // KindTypeParameter: the generic definition this parameter belongs to
	ParentMethod *Method   // KindMethodParameter: the generic method this parameter belongs to

	// KindConstructed
	Definition *Identity
	Args       []Identity

	// KindBuiltinDef
	BuiltinID uint16

	// KindKnownDef
	KnownHash uint64

	// KindNamedDef
	FullName string
	Assembly Assembly
}

// resolve recovers the reflect.Type this identity describes, using c's
// registries and resolver for the cases that need them. See codec.go.
func (id *Identity) resolve(c *Codec) (reflect.Type, error) {
	return c.resolveIdentity(id)
}
