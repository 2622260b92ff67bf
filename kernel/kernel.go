// Package kernel implements the serializer facade (component H): owns the
// by-member registry, type codec, formatter resolver chain and reference
// engine for one configuration, and exposes the public Encode/Decode/
// GetFormatter entry points spec §4.H names.
package kernel

import (
	"io"
	"reflect"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/graphwire/graphwire/identity"
	"github.com/graphwire/graphwire/kerr"
	"github.com/graphwire/graphwire/members"
	"github.com/graphwire/graphwire/refs"
	"github.com/graphwire/graphwire/resolve"
	"github.com/graphwire/graphwire/session"
	"github.com/graphwire/graphwire/typeid"
	"github.com/graphwire/graphwire/wire"
)

// Config is the facade's configuration surface (spec §6): known types/
// assemblies, the decode-time assembly loader, the allocation ceiling, and
// user-prepended resolvers/formatters/member policy. Populated through
// functional options exactly as the teacher's runtime.Option does.
type Config struct {
	known             *identity.Map[reflect.Type]
	knownAssemblies   *identity.Map[string]
	resolver          typeid.TypeResolver
	generics          typeid.GenericResolver
	packageVersions   map[string][4]int64
	maxAllocatedBytes int64
	resolvers         []resolve.Resolver
	formatters        map[reflect.Type]resolve.Formatter
	memberFilter      members.Filter
	methodPairs       bool
	constructors      map[reflect.Type]func() reflect.Value
	logger            Logger
	registerer        prometheus.Registerer
}

// Option configures a Kernel at construction.
type Option func(*Config)

// WithKnownTypes supplies the trusted-type name map (KindKnownDef's
// compact 8-byte form).
func WithKnownTypes(known *identity.Map[reflect.Type]) Option {
	return func(c *Config) { c.known = known }
}

// WithKnownAssemblies supplies the trusted-assembly map (compact
// well-known Assembly form).
func WithKnownAssemblies(known *identity.Map[string]) Option {
	return func(c *Config) { c.knownAssemblies = known }
}

// WithAssemblyLoader supplies the decode-time callback used to resolve a
// NamedDef that isn't in the known-types trust list (spec §6
// "assembly-loader").
func WithAssemblyLoader(r typeid.TypeResolver) Option {
	return func(c *Config) { c.resolver = r }
}

// WithGenericResolver supplies generic-instantiation decompose/instantiate
// support (typeid.GenericResolver).
func WithGenericResolver(g typeid.GenericResolver) Option {
	return func(c *Config) { c.generics = g }
}

// WithPackageVersions supplies the version quad recorded against a Go
// package path in a NamedDef's Assembly.
func WithPackageVersions(v map[string][4]int64) Option {
	return func(c *Config) { c.packageVersions = v }
}

// WithMaxAllocatedBytes sets the per-decode allocation ceiling (spec §6
// "max-allocated-bytes"); zero or unset means unbounded.
func WithMaxAllocatedBytes(n int64) Option {
	return func(c *Config) { c.maxAllocatedBytes = n }
}

// WithResolvers prepends user-supplied resolvers ahead of the built-in
// chain (spec §6 "resolvers").
func WithResolvers(resolvers ...resolve.Resolver) Option {
	return func(c *Config) { c.resolvers = append(c.resolvers, resolvers...) }
}

// WithFormatter registers an explicit formatter override for t — spec
// §4.F's "user-attribute-indicated formatter", first in the chain.
func WithFormatter(t reflect.Type, f resolve.Formatter) Option {
	return func(c *Config) { c.formatters[t] = f }
}

// WithMemberFilter overrides the by-member compiler's field-inclusion
// policy.
func WithMemberFilter(filter members.Filter) Option {
	return func(c *Config) { c.memberFilter = filter }
}

// WithMethodPairAccessors turns on GetX()/SetX(v) method-pair member
// detection (members.WithMethodPairAccessors).
func WithMethodPairAccessors() Option {
	return func(c *Config) { c.methodPairs = true }
}

// WithConstructor records fn as t's constructor in the by-member config
// (members.Config.Constructor, with ConstructUninitialized false). The
// decode paths in this module allocate values with reflect.New and do not
// call fn.
func WithConstructor(t reflect.Type, fn func() reflect.Value) Option {
	return func(c *Config) { c.constructors[t] = fn }
}

// WithLogger overrides the default zap-backed Logger.
func WithLogger(l Logger) Option {
	return func(c *Config) { c.logger = l }
}

// WithMetricsRegisterer points the facade's prometheus collectors at a
// specific registerer instead of a private, per-Kernel registry.
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(c *Config) { c.registerer = reg }
}

// Kernel is the serializer facade. It owns the by-member registry, type
// codec, resolver chain and reference engine for one configuration, plus
// the dynamic-type formatter cache spec §3 describes as a weak-keyed map
// (approximated here, as in the teacher, by a sync.Map that lives for the
// Kernel's lifetime rather than a true weak reference — Go has no public
// weak-map primitive).
type Kernel struct {
	cfg     *Config
	members *members.Registry
	codec   *typeid.Codec
	chain   *resolve.Chain
	engine  *refs.Engine
	metrics *Metrics
	cache   sync.Map
}

// New constructs a Kernel from opts. It returns an error, per spec §4.H's
// "construction fails unsupported-host if the host cannot synthesize
// routines at runtime" — Go's reflection-based by-member interpreter
// never actually requires that capability (there is no JIT dependency to
// fail to acquire), so today this error path is unreachable; the
// signature is kept so a future by-member *compiler* (spec §9's
// "compile... synthesize a closure per type" alternative) has somewhere
// to report the failure without an API break.
func New(opts ...Option) (*Kernel, error) {
	cfg := &Config{
		formatters:   make(map[reflect.Type]resolve.Formatter),
		constructors: make(map[reflect.Type]func() reflect.Value),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = NewZapLogger()
	}
	if cfg.registerer == nil {
		cfg.registerer = prometheus.NewRegistry()
	}

	memberOpts := make([]members.Option, 0, 4)
	if cfg.memberFilter != nil {
		memberOpts = append(memberOpts, members.WithFilter(cfg.memberFilter))
	}
	if cfg.methodPairs {
		memberOpts = append(memberOpts, members.WithMethodPairAccessors())
	}
	for t, fn := range cfg.constructors {
		memberOpts = append(memberOpts, members.WithConstructor(t, fn))
	}

	typeidOpts := make([]typeid.Option, 0, 5)
	if cfg.known != nil {
		typeidOpts = append(typeidOpts, typeid.WithKnownTypes(cfg.known))
	}
	if cfg.knownAssemblies != nil {
		typeidOpts = append(typeidOpts, typeid.WithKnownAssemblies(cfg.knownAssemblies))
	}
	if cfg.resolver != nil {
		typeidOpts = append(typeidOpts, typeid.WithResolver(cfg.resolver))
	} else {
		// No caller-supplied resolver: fall back to the process-local
		// registry (see registry.go) so a NamedDef reached through a
		// polymorphic interface slot still resolves, the way an
		// unregistered gob type would otherwise fail to decode.
		typeidOpts = append(typeidOpts, typeid.WithResolver(defaultTypeResolver))
	}
	if cfg.generics != nil {
		typeidOpts = append(typeidOpts, typeid.WithGenericResolver(cfg.generics))
	}
	if cfg.packageVersions != nil {
		typeidOpts = append(typeidOpts, typeid.WithPackageVersions(cfg.packageVersions))
	}

	k := &Kernel{
		cfg:     cfg,
		members: members.NewRegistry(memberOpts...),
		codec:   typeid.NewCodec(typeidOpts...),
		chain:   resolve.DefaultChain(),
		metrics: NewMetrics(cfg.registerer),
	}
	if len(cfg.resolvers) > 0 {
		k.chain = k.chain.Prepend(cfg.resolvers...)
	}
	k.engine = refs.New(k)
	return k, nil
}

// Formatter resolves (and caches) the content formatter for a dynamic
// type t — resolve.Host's lookup seam, also reused by GetFormatter for
// non-reference static types.
func (k *Kernel) Formatter(t reflect.Type) (resolve.Formatter, error) {
	if f, ok := k.cache.Load(t); ok {
		return f.(resolve.Formatter), nil
	}
	f, err := k.chain.Resolve(k, t)
	if err != nil {
		k.metrics.observeResolverMiss(t.String())
		k.cfg.logger.Printf("kernel: no formatter resolved for %s: %v", t.String(), err)
		return nil, err
	}
	k.cache.Store(t, f)
	return f, nil
}

// ExplicitFormatter returns a user-registered override, if any (resolve.Host).
func (k *Kernel) ExplicitFormatter(t reflect.Type) (resolve.Formatter, bool) {
	f, ok := k.cfg.formatters[t]
	return f, ok
}

// Members exposes the by-member registry (resolve.Host, refs.Host callers
// that need it indirectly through Formatter).
func (k *Kernel) Members() *members.Registry { return k.members }

// TypeCodec exposes the type/assembly codec (resolve.Host, refs.Host).
func (k *Kernel) TypeCodec() *typeid.Codec { return k.codec }

// EncodeRef/DecodeRef delegate to the reference engine — the seam
// resolve.Host declares so package resolve never imports package refs.
func (k *Kernel) EncodeRef(w *wire.Writer, s *session.Encode, static reflect.Type, v reflect.Value) error {
	return k.engine.Encode(w, s, static, v)
}

func (k *Kernel) DecodeRef(r *wire.Reader, s *session.Decode, static reflect.Type) (reflect.Value, error) {
	return k.engine.Decode(r, s, static)
}

// GetFormatter is spec §4.H's get_formatter: for reference-typed statics
// (Pointer, Interface) it returns a Formatter fronting the reference
// engine; for inline aggregates (and everything else) it returns the
// content formatter directly.
func (k *Kernel) GetFormatter(t reflect.Type) (resolve.Formatter, error) {
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface:
		return refFormatter{engine: k.engine, static: t}, nil
	default:
		return k.Formatter(t)
	}
}

// refFormatter adapts refs.Engine's (static, v) calling convention to the
// resolve.Formatter two-method shape GetFormatter promises callers.
type refFormatter struct {
	engine *refs.Engine
	static reflect.Type
}

func (f refFormatter) EncodeValue(w *wire.Writer, s *session.Encode, v reflect.Value) error {
	return f.engine.Encode(w, s, f.static, v)
}

func (f refFormatter) DecodeValue(r *wire.Reader, s *session.Decode, v reflect.Value) error {
	got, err := f.engine.Decode(r, s, f.static)
	if err != nil {
		return err
	}
	v.Set(got)
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// Encode is spec §4.H's encode<T>: resolves T's formatter, borrows an
// encode session, drives the formatter over v, and returns the session to
// the pool regardless of outcome. T is the static type (which may be an
// interface broader than v's dynamic type — the sealed-vs-polymorphic
// scenario of spec §8).
//
// Encode takes no lock on the graph it walks: if another goroutine mutates
// that graph while Encode runs, the bytes written may describe a state the
// graph never had as a whole.
func Encode[T any](k *Kernel, w io.Writer, v T) error {
	t := reflect.TypeOf((*T)(nil)).Elem()
	f, err := k.GetFormatter(t)
	if err != nil {
		k.metrics.observeEncode(false, 0)
		return err
	}

	cw := &countingWriter{w: w}
	ww := wire.NewWriter(cw)
	s := session.GetEncode()
	defer session.PutEncode(s)

	rv := reflect.ValueOf(&v).Elem()
	if err := f.EncodeValue(ww, s, rv); err != nil {
		k.metrics.observeEncode(false, 0)
		return err
	}
	k.metrics.observeEncode(true, cw.n)
	return nil
}

// Decode is spec §4.H's decode<T> in its full-buffer form: on success,
// trailing unread bytes fail with malformed (spec §4.x's "Facade decode
// (full form)... bytes remain after decode").
func Decode[T any](k *Kernel, r io.Reader) (T, error) {
	var out T
	t := reflect.TypeOf((*T)(nil)).Elem()
	f, err := k.GetFormatter(t)
	if err != nil {
		k.metrics.observeDecode(false, 0)
		return out, err
	}

	cr := &countingReader{r: r}
	rr := wire.NewReader(cr)
	s := session.GetDecode(k.cfg.maxAllocatedBytes)
	defer session.PutDecode(s)

	rv := reflect.ValueOf(&out).Elem()
	if err := f.DecodeValue(rr, s, rv); err != nil {
		k.metrics.observeDecode(false, 0)
		return out, err
	}

	var probe [1]byte
	if n, _ := r.Read(probe[:]); n > 0 {
		err := kerr.Malformed(rr.Offset(), "trailing data after full decode")
		k.metrics.observeDecode(false, 0)
		return out, err
	}
	k.metrics.observeDecode(true, cr.n)
	return out, nil
}
