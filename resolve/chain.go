// Package resolve implements the formatter resolver chain (component F):
// an ordered lookup that, given a reflect.Type, materializes the
// Formatter responsible for encoding/decoding values of that type.
package resolve

import (
	"reflect"

	"github.com/graphwire/graphwire/kerr"
	"github.com/graphwire/graphwire/members"
	"github.com/graphwire/graphwire/session"
	"github.com/graphwire/graphwire/typeid"
	"github.com/graphwire/graphwire/wire"
)

// Formatter encodes and decodes values of one static type. v is always an
// addressable reflect.Value (the by-member formatter relies on this to
// call pointer-receiver method-pair accessors and to Set decoded fields).
type Formatter interface {
	EncodeValue(w *wire.Writer, s *session.Encode, v reflect.Value) error
	DecodeValue(r *wire.Reader, s *session.Decode, v reflect.Value) error
}

// Host is the facade a Resolver and the formatters it builds call back
// into: recursive formatter lookup for nested types, the shared by-member
// registry and type codec, and the reference engine for pointer/interface
// slots (kept behind this interface, rather than an import of package
// refs here, so refs can depend on resolve without a cycle).
type Host interface {
	// Formatter returns the cached or newly-resolved content formatter
	// for t (the dynamic type of a value, never the reference wrapper).
	Formatter(t reflect.Type) (Formatter, error)
	// ExplicitFormatter returns a user-registered override for t, if any
	// — spec §4.F's "user-attribute-indicated formatter", first in the
	// built-in chain.
	ExplicitFormatter(t reflect.Type) (Formatter, bool)
	Members() *members.Registry
	TypeCodec() *typeid.Codec

	EncodeRef(w *wire.Writer, s *session.Encode, static reflect.Type, v reflect.Value) error
	DecodeRef(r *wire.Reader, s *session.Decode, static reflect.Type) (reflect.Value, error)
}

// Resolver is one link in the chain: given the host and a candidate type,
// it either returns a Formatter or declines.
type Resolver func(host Host, t reflect.Type) (Formatter, bool)

// Chain is the ordered resolver chain of spec §4.F: first Resolver to
// accept wins, later ones are never consulted.
type Chain struct {
	resolvers []Resolver
}

// NewChain builds a chain from resolvers, tried in the given order.
func NewChain(resolvers ...Resolver) *Chain {
	return &Chain{resolvers: resolvers}
}

// Prepend returns a new Chain with extra resolvers tried before every
// resolver already in c — spec §4.F: "a user may prepend custom
// resolvers."
func (c *Chain) Prepend(extra ...Resolver) *Chain {
	merged := make([]Resolver, 0, len(extra)+len(c.resolvers))
	merged = append(merged, extra...)
	merged = append(merged, c.resolvers...)
	return &Chain{resolvers: merged}
}

// Resolve runs the chain over t, returning kerr.MissingFormatter if every
// resolver declines.
func (c *Chain) Resolve(host Host, t reflect.Type) (Formatter, error) {
	for _, r := range c.resolvers {
		if f, ok := r(host, t); ok {
			return f, nil
		}
	}
	return nil, kerr.MissingFormatter(t)
}

// DefaultChain is the built-in resolver chain in spec §4.F order, reduced
// to the categories that have a Go referent. The assorted value-type
// singletons slot is filled by jsonFallbackResolver (any self-marshaling
// type, plus time.Time); categories the spec lists that have no Go
// standard-library shape — span-like memory views and per-kind
// immutable-collection formatters — are omitted; see DESIGN.md for the
// per-category justification.
func DefaultChain() *Chain {
	return NewChain(
		explicitResolver,
		sliceResolver,
		arrayResolver,
		jsonFallbackResolver,
		mapResolver,
		blittableResolver,
		enumResolver,
		primitiveResolver,
		byMemberResolver,
	)
}

func explicitResolver(host Host, t reflect.Type) (Formatter, bool) {
	return host.ExplicitFormatter(t)
}
