package typeid

import (
	"fmt"
	"reflect"
	"time"

	"github.com/graphwire/graphwire/identity"
	"github.com/graphwire/graphwire/kerr"
	"github.com/graphwire/graphwire/wire"
)

// TypeResolver looks up a reflect.Type by its full name within a named
// (non-well-known) assembly — the Go analogue of spec §6's decode-time
// "assembly-loader" callback. It is consulted whenever a NamedDef is not
// satisfied by the known-types trust list.
type TypeResolver func(fullName string, assembly Assembly) (reflect.Type, error)

// GenericResolver teaches the codec how to decompose and reconstruct one
// family of Go generic instantiations, working around the runtime
// reflection gap this package's doc comment describes.
type GenericResolver interface {
	// Decompose returns the definition name and type arguments for t, if
	// t is an instantiation this resolver understands.
	Decompose(t reflect.Type) (defName string, args []reflect.Type, ok bool)
	// Arity reports how many type arguments the named definition takes.
	// Decode uses this instead of a transmitted count (spec §4.D).
	Arity(defName string) (int, bool)
	// Instantiate reconstructs a concrete type from a definition name and
	// previously round-tripped type arguments.
	Instantiate(defName string, args []reflect.Type) (reflect.Type, error)
}

// builtinTypes fixes the small, stable u16-indexed registry for
// KindBuiltinDef (spec §3's "BuiltinDef of u16"). time.Time and
// time.Duration are included alongside the numeric/string kinds so those
// two common stdlib value types also get the compact builtin form.
var builtinTypes = []reflect.Type{
	reflect.TypeOf(false),
	reflect.TypeOf(int8(0)),
	reflect.TypeOf(int16(0)),
	reflect.TypeOf(int32(0)),
	reflect.TypeOf(int64(0)),
	reflect.TypeOf(uint8(0)),
	reflect.TypeOf(uint16(0)),
	reflect.TypeOf(uint32(0)),
	reflect.TypeOf(uint64(0)),
	reflect.TypeOf(float32(0)),
	reflect.TypeOf(float64(0)),
	reflect.TypeOf(""),
	reflect.TypeOf(int(0)),
	reflect.TypeOf(uint(0)),
	reflect.TypeOf(time.Time{}),
	reflect.TypeOf(time.Duration(0)),
}

// Codec encodes and decodes reflect.Type values as spec §3/§4.D type
// identities, and reflect method identities per §4.D.
type Codec struct {
	known           *identity.Map[reflect.Type]
	knownAssemblies *identity.Map[string]
	builtinByType   map[reflect.Type]uint16
	builtinByID     map[uint16]reflect.Type
	resolver        TypeResolver
	generics        GenericResolver
	packageVersions map[string][4]int64
}

// Option configures a Codec.
type Option func(*Codec)

// WithKnownTypes supplies the trusted-type name map used for the compact
// KindKnownDef 8-byte form.
func WithKnownTypes(known *identity.Map[reflect.Type]) Option {
	return func(c *Codec) { c.known = known }
}

// WithKnownAssemblies supplies the trusted-assembly (Go package path) map
// used for the compact well-known Assembly form.
func WithKnownAssemblies(known *identity.Map[string]) Option {
	return func(c *Codec) { c.knownAssemblies = known }
}

// WithResolver supplies the fallback used to resolve a NamedDef that
// isn't in the known-types trust list.
func WithResolver(r TypeResolver) Option {
	return func(c *Codec) { c.resolver = r }
}

// WithGenericResolver supplies generic-instantiation decompose/instantiate
// support (see GenericResolver's doc comment).
func WithGenericResolver(g GenericResolver) Option {
	return func(c *Codec) { c.generics = g }
}

// WithPackageVersions supplies the version quad recorded against a Go
// package path in a NamedDef's Assembly. Absent an entry, the quad is
// zero — Go has no runtime assembly-version metadata to fall back on.
func WithPackageVersions(v map[string][4]int64) Option {
	return func(c *Codec) { c.packageVersions = v }
}

// NewCodec constructs a Codec with the built-in registry populated.
func NewCodec(opts ...Option) *Codec {
	c := &Codec{
		builtinByType: make(map[reflect.Type]uint16, len(builtinTypes)),
		builtinByID:   make(map[uint16]reflect.Type, len(builtinTypes)),
	}
	for i, t := range builtinTypes {
		id := uint16(i)
		c.builtinByType[t] = id
		c.builtinByID[id] = t
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// writeTag packs kind into the low 3 bits and inline into the upper 5
// bits of a tag byte (spec §3); an inline value that doesn't fit escapes
// to a trailing varuint.
func writeTag(w *wire.Writer, kind Kind, inline int) error {
	if inline < 0 {
		inline = 0
	}
	if inline >= inlineEscape {
		if err := w.WriteUint8(byte(kind) | (inlineEscape << 3)); err != nil {
			return err
		}
		return w.WriteVarUint(uint64(inline))
	}
	return w.WriteUint8(byte(kind) | (byte(inline) << 3))
}

func readTag(r *wire.Reader) (Kind, int, error) {
	b, err := r.ReadUint8()
	if err != nil {
		return 0, 0, err
	}
	kind := Kind(b & 0x07)
	inline := int((b >> 3) & 0x1F)
	if inline == inlineEscape {
		v, err := r.ReadVarUint()
		if err != nil {
			return 0, 0, err
		}
		inline = int(v)
	}
	return kind, inline, nil
}

// ToIdentity converts a live reflect.Type into its spec §3 identity form.
// Go's fixed-size array length has no direct spec equivalent (in the
// system this was distilled from, array length is runtime data, not part
// of the type; in Go it is part of the type) — KindArray's Rank field is
// repurposed here to carry that length rather than a rank count, since Go
// has no native rank > 1 array type at all (see Identity.Rank).
func (c *Codec) ToIdentity(t reflect.Type) (*Identity, error) {
	if t == nil {
		return nil, kerr.Malformed(-1, "cannot encode nil type")
	}

	switch t.Kind() {
	case reflect.Slice:
		elem, err := c.ToIdentity(t.Elem())
		if err != nil {
			return nil, err
		}
		return &Identity{Kind: KindSZArray, Elem: elem}, nil
	case reflect.Array:
		elem, err := c.ToIdentity(t.Elem())
		if err != nil {
			return nil, err
		}
		return &Identity{Kind: KindArray, Rank: t.Len(), Elem: elem}, nil
	}

	if id, ok := c.builtinByType[t]; ok {
		return &Identity{Kind: KindBuiltinDef, BuiltinID: id}, nil
	}
	if c.known != nil {
		if hash, ok := c.known.HashOf(t); ok {
			return &Identity{Kind: KindKnownDef, KnownHash: hash}, nil
		}
	}
	if c.generics != nil {
		if defName, args, ok := c.generics.Decompose(t); ok {
			argIDs := make([]Identity, len(args))
			for i, a := range args {
				sub, err := c.ToIdentity(a)
				if err != nil {
					return nil, err
				}
				argIDs[i] = *sub
			}
			return &Identity{
				Kind:       KindConstructed,
				Definition: &Identity{Kind: KindNamedDef, FullName: defName, Assembly: c.assemblyFor(t)},
				Args:       argIDs,
			}, nil
		}
	}

	return &Identity{Kind: KindNamedDef, FullName: fullTypeName(t), Assembly: c.assemblyFor(t)}, nil
}

func fullTypeName(t reflect.Type) string {
	if t.PkgPath() != "" && t.Name() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}

// FullName exports fullTypeName's NamedDef key for callers outside this
// package that need to build a TypeResolver's lookup table — a host's own
// type registry, or a test fixture — keyed exactly as EncodeIdentity will
// transmit it.
func FullName(t reflect.Type) string {
	return fullTypeName(t)
}

func (c *Codec) assemblyFor(t reflect.Type) Assembly {
	pkg := t.PkgPath()
	if c.knownAssemblies != nil {
		if h, ok := c.knownAssemblies.HashOf(pkg); ok {
			return Assembly{WellKnown: true, Hash: h}
		}
	}
	v := c.packageVersions[pkg]
	return Assembly{Name: pkg, Major: v[0], Minor: v[1], Build: v[2], Revision: v[3]}
}

// resolveIdentity is Identity.resolve's implementation: it reconstructs a
// reflect.Type from an identity, using the host reflection facility only
// through this Codec's registries/callbacks (spec §4.D: "Resolution on
// decode proceeds purely through the host reflection facility").
func (c *Codec) resolveIdentity(id *Identity) (reflect.Type, error) {
	switch id.Kind {
	case KindSZArray:
		elem, err := c.resolveIdentity(id.Elem)
		if err != nil {
			return nil, err
		}
		return reflect.SliceOf(elem), nil
	case KindArray:
		elem, err := c.resolveIdentity(id.Elem)
		if err != nil {
			return nil, err
		}
		return reflect.ArrayOf(id.Rank, elem), nil
	case KindBuiltinDef:
		t, ok := c.builtinByID[id.BuiltinID]
		if !ok {
			return nil, kerr.TypeNotFound(fmt.Sprintf("builtin type id %d", id.BuiltinID))
		}
		return t, nil
	case KindKnownDef:
		if c.known == nil {
			return nil, kerr.TypeNotFound(fmt.Sprintf("known-type hash %x (no known-types table configured)", id.KnownHash))
		}
		t, ok := c.known.ValueOf(id.KnownHash)
		if !ok {
			return nil, kerr.TypeNotFound(fmt.Sprintf("known-type hash %x", id.KnownHash))
		}
		return t, nil
	case KindNamedDef:
		return c.resolveNamed(id.FullName, id.Assembly)
	case KindConstructed:
		if c.generics == nil {
			return nil, kerr.TypeNotFound(fmt.Sprintf("constructed type %q (no generic resolver configured)", id.Definition.FullName))
		}
		args := make([]reflect.Type, len(id.Args))
		for i := range id.Args {
			t, err := c.resolveIdentity(&id.Args[i])
			if err != nil {
				return nil, err
			}
			args[i] = t
		}
		return c.generics.Instantiate(id.Definition.FullName, args)
	case KindTypeParameter, KindMethodParameter:
		return nil, kerr.TypeNotFound("open generic type/method parameter (unsupported: Go has no runtime open-generic reflection)")
	default:
		return nil, kerr.Malformed(-1, "unknown type identity kind %d", id.Kind)
	}
}

func (c *Codec) resolveNamed(fullName string, asm Assembly) (reflect.Type, error) {
	if c.resolver != nil {
		t, err := c.resolver(fullName, asm)
		if err != nil {
			return nil, kerr.TypeNotFound(fmt.Sprintf("%s: %v", fullName, err))
		}
		if t != nil {
			return t, nil
		}
	}
	return nil, kerr.TypeNotFound(fullName)
}

// EncodeIdentity writes id's tag byte and operands (spec §3/§4.D).
func (c *Codec) EncodeIdentity(w *wire.Writer, id *Identity) error {
	switch id.Kind {
	case KindSZArray:
		if err := writeTag(w, KindSZArray, 0); err != nil {
			return err
		}
		return c.EncodeIdentity(w, id.Elem)
	case KindArray:
		if err := writeTag(w, KindArray, 0); err != nil {
			return err
		}
		if err := w.WriteVarUint(uint64(id.Rank)); err != nil {
			return err
		}
		return c.EncodeIdentity(w, id.Elem)
	case KindTypeParameter:
		if err := writeTag(w, KindTypeParameter, id.ParamIndex); err != nil {
			return err
		}
		return c.EncodeIdentity(w, id.Parent)
	case KindMethodParameter:
		if err := writeTag(w, KindMethodParameter, id.ParamIndex); err != nil {
			return err
		}
		return c.EncodeMethod(w, id.ParentMethod)
	case KindConstructed:
		if err := writeTag(w, KindConstructed, 0); err != nil {
			return err
		}
		if err := c.EncodeIdentity(w, id.Definition); err != nil {
			return err
		}
		for i := range id.Args {
			if err := c.EncodeIdentity(w, &id.Args[i]); err != nil {
				return err
			}
		}
		return nil
	case KindBuiltinDef:
		if err := writeTag(w, KindBuiltinDef, 0); err != nil {
			return err
		}
		return w.WriteUint16(id.BuiltinID)
	case KindKnownDef:
		if err := writeTag(w, KindKnownDef, 0); err != nil {
			return err
		}
		return w.WriteUint64(id.KnownHash)
	case KindNamedDef:
		if err := writeTag(w, KindNamedDef, 0); err != nil {
			return err
		}
		if err := w.WriteString(id.FullName); err != nil {
			return err
		}
		return id.Assembly.Encode(w)
	default:
		return kerr.Malformed(-1, "unknown type identity kind %d", id.Kind)
	}
}

// DecodeIdentity reads an identity written by EncodeIdentity. For
// KindConstructed, the argument count is derived from the configured
// GenericResolver's declared arity rather than transmitted (spec §4.D);
// with no resolver configured, an encountered Constructed identity fails
// immediately rather than guessing an arity and desynchronizing the
// stream.
func (c *Codec) DecodeIdentity(r *wire.Reader) (*Identity, error) {
	kind, inline, err := readTag(r)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindSZArray:
		elem, err := c.DecodeIdentity(r)
		if err != nil {
			return nil, err
		}
		return &Identity{Kind: KindSZArray, Elem: elem}, nil
	case KindArray:
		n, err := r.ReadVarUint()
		if err != nil {
			return nil, err
		}
		elem, err := c.DecodeIdentity(r)
		if err != nil {
			return nil, err
		}
		return &Identity{Kind: KindArray, Rank: int(n), Elem: elem}, nil
	case KindTypeParameter:
		parent, err := c.DecodeIdentity(r)
		if err != nil {
			return nil, err
		}
		return &Identity{Kind: KindTypeParameter, ParamIndex: inline, Parent: parent}, nil
	case KindMethodParameter:
		parentMethod, err := c.DecodeMethod(r)
		if err != nil {
			return nil, err
		}
		return &Identity{Kind: KindMethodParameter, ParamIndex: inline, ParentMethod: parentMethod}, nil
	case KindConstructed:
		def, err := c.DecodeIdentity(r)
		if err != nil {
			return nil, err
		}
		if c.generics == nil {
			return nil, kerr.TypeNotFound(fmt.Sprintf("constructed type %q: no generic resolver configured to derive arity", def.FullName))
		}
		arity, ok := c.generics.Arity(def.FullName)
		if !ok {
			return nil, kerr.TypeNotFound(fmt.Sprintf("constructed type %q: unknown arity", def.FullName))
		}
		args := make([]Identity, arity)
		for i := 0; i < arity; i++ {
			arg, err := c.DecodeIdentity(r)
			if err != nil {
				return nil, err
			}
			args[i] = *arg
		}
		return &Identity{Kind: KindConstructed, Definition: def, Args: args}, nil
	case KindBuiltinDef:
		id16, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		return &Identity{Kind: KindBuiltinDef, BuiltinID: id16}, nil
	case KindKnownDef:
		hash, err := r.ReadUint64()
		if err != nil {
			return nil, err
		}
		return &Identity{Kind: KindKnownDef, KnownHash: hash}, nil
	case KindNamedDef:
		name, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		asm, err := DecodeAssembly(r)
		if err != nil {
			return nil, err
		}
		return &Identity{Kind: KindNamedDef, FullName: name, Assembly: asm}, nil
	default:
		return nil, kerr.Malformed(r.Offset(), "unknown type identity tag kind %d", kind)
	}
}

// EncodeType is the common-case entry point: convert t to an identity and
// write it.
func (c *Codec) EncodeType(w *wire.Writer, t reflect.Type) error {
	id, err := c.ToIdentity(t)
	if err != nil {
		return err
	}
	return c.EncodeIdentity(w, id)
}

// DecodeType is the common-case entry point: read an identity and resolve
// it back to a reflect.Type.
func (c *Codec) DecodeType(r *wire.Reader) (reflect.Type, error) {
	id, err := c.DecodeIdentity(r)
	if err != nil {
		return nil, err
	}
	return c.resolveIdentity(id)
}
