// Package members implements the by-member compiler (component E): for a
// user aggregate type, it decides constructibility, selects and orders the
// members that participate in encoding, and records the blittability
// verdict those members make possible (see blittable.go).
package members

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

const tagKey = "member"

// AccessorKind discriminates how a Descriptor reads/writes its value. Go
// has no language-level property accessors, so KindMethodPair models the
// common convention of a GetX()/SetX(v) method pair taking the place of a
// property — the host-language case spec §4.E calls
// {Get, GetSet, GetInit, GetSetExplicit}; Go idiom doesn't distinguish
// those once a pair exists, so KindMethodPair covers all of them and a
// getter found without a matching setter is read-only (Setter is nil).
type AccessorKind uint8

const (
	KindField AccessorKind = iota
	KindMethodPair
)

// Descriptor is the spec §3 member descriptor.
type Descriptor struct {
	Name     string
	Type     reflect.Type
	Accessor AccessorKind

	// KindField
	Index []int

	// KindMethodPair
	Getter reflect.Method
	Setter reflect.Method // zero Method (Func == nil) if read-only

	depth int // embedding depth; 0 = declared directly on the compiled type
}

// Config is the spec §3 by-member config for one user type.
type Config struct {
	Type                   reflect.Type
	ConstructUninitialized bool
	Constructor            func() reflect.Value
	Blittable              bool
	Members                []Descriptor
}

// Filter decides whether an eligible field is included absent a force
// include/exclude tag. Eligible means exported (or anonymous — embedded
// fields are always walked for promoted members regardless of filter).
type Filter func(reflect.StructField) bool

// defaultFilter includes every exported field, the teacher's own
// behavior (cache/core/metadata.go skips only unexported, non-anonymous
// fields).
func defaultFilter(f reflect.StructField) bool {
	return f.PkgPath == ""
}

type compileOptions struct {
	filter       Filter
	constructors map[reflect.Type]func() reflect.Value
	methodPairs  bool
}

// Option configures a Registry.
type Option func(*compileOptions)

// WithFilter overrides the default "include every exported field" policy.
func WithFilter(f Filter) Option {
	return func(o *compileOptions) { o.filter = f }
}

// WithConstructor registers a zero-arg factory for t, overriding the
// default construct-uninitialized (raw zero-value) policy — the Go
// analogue of spec §4.E's "publicly invokable no-arg constructor".
func WithConstructor(t reflect.Type, fn func() reflect.Value) Option {
	return func(o *compileOptions) {
		if o.constructors == nil {
			o.constructors = make(map[reflect.Type]func() reflect.Value)
		}
		o.constructors[t] = fn
	}
}

// WithMethodPairAccessors enables GetX()/SetX(v) method-pair discovery
// (disabled by default: most Go aggregates are plain field structs, and
// scanning the method set of every compiled type is wasted work for them).
func WithMethodPairAccessors() Option {
	return func(o *compileOptions) { o.methodPairs = true }
}

// Registry caches compiled Config values per type, for the process
// lifetime (spec §3: "Cached per type, lifetime = process"). The kernel
// facade owns one (spec §4.H).
type Registry struct {
	opts  compileOptions
	cache sync.Map // reflect.Type -> *Config
}

// NewRegistry builds a Registry. opts apply to every Compile call made
// through it.
func NewRegistry(opts ...Option) *Registry {
	o := compileOptions{filter: defaultFilter}
	for _, opt := range opts {
		opt(&o)
	}
	return &Registry{opts: o}
}

// Compile returns t's by-member config, computing and caching it on first
// use. t must be a struct (or pointer to struct, transparently unwrapped).
func (r *Registry) Compile(t reflect.Type) (*Config, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("members: %s is not a struct", t)
	}
	if cfg, ok := r.cache.Load(t); ok {
		return cfg.(*Config), nil
	}
	cfg, err := r.compile(t, make(map[reflect.Type]struct{}))
	if err != nil {
		return nil, err
	}
	actual, _ := r.cache.LoadOrStore(t, cfg)
	return actual.(*Config), nil
}

func (r *Registry) compile(t reflect.Type, visiting map[reflect.Type]struct{}) (*Config, error) {
	if _, seen := visiting[t]; seen {
		return nil, fmt.Errorf("members: circular aggregate type %s", t)
	}
	visiting[t] = struct{}{}
	defer delete(visiting, t)

	members, err := r.collectFields(t, nil, 0, visiting)
	if err != nil {
		return nil, err
	}
	if r.opts.methodPairs {
		members = append(members, collectMethodPairs(t)...)
	}

	sortMembers(members)

	cfg := &Config{Type: t, Members: members}
	if fn, ok := r.opts.constructors[t]; ok {
		cfg.Constructor = fn
	} else {
		cfg.ConstructUninitialized = true
	}
	cfg.Blittable = computeBlittable(t, members)
	return cfg, nil
}

func (r *Registry) collectFields(t reflect.Type, prefix []int, depth int, visiting map[reflect.Type]struct{}) ([]Descriptor, error) {
	out := make([]Descriptor, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := strings.TrimSpace(f.Tag.Get(tagKey))
		forceExclude := tag == "-"
		forceInclude := tag == "include"

		if forceExclude {
			continue
		}

		if f.Anonymous && !forceInclude {
			elem := f.Type
			for elem.Kind() == reflect.Pointer {
				elem = elem.Elem()
			}
			if elem.Kind() == reflect.Struct {
				nested, err := r.collectFields(elem, append(append([]int{}, prefix...), f.Index...), depth+1, visiting)
				if err != nil {
					return nil, err
				}
				out = append(out, nested...)
				continue
			}
		}

		if !forceInclude && !r.opts.filter(f) {
			continue
		}

		index := append(append([]int{}, prefix...), f.Index...)
		out = append(out, Descriptor{
			Name:     f.Name,
			Type:     f.Type,
			Accessor: KindField,
			Index:    index,
			depth:    depth,
		})
	}
	return out, nil
}

// collectMethodPairs finds GetX()/SetX(v) method pairs on t's method set
// (and *t's, for value receivers that need addressability to set).
func collectMethodPairs(t reflect.Type) []Descriptor {
	ptr := reflect.PointerTo(t)
	getters := make(map[string]reflect.Method)
	setters := make(map[string]reflect.Method)

	scan := func(mt reflect.Type) {
		for i := 0; i < mt.NumMethod(); i++ {
			m := mt.Method(i)
			switch {
			case strings.HasPrefix(m.Name, "Get") && m.Type.NumIn() == 1 && m.Type.NumOut() == 1:
				getters[strings.TrimPrefix(m.Name, "Get")] = m
			case strings.HasPrefix(m.Name, "Set") && m.Type.NumIn() == 2 && m.Type.NumOut() == 0:
				setters[strings.TrimPrefix(m.Name, "Set")] = m
			}
		}
	}
	scan(t)
	scan(ptr)

	out := make([]Descriptor, 0, len(getters))
	for name, getter := range getters {
		d := Descriptor{
			Name:     name,
			Type:     getter.Type.Out(0),
			Accessor: KindMethodPair,
			Getter:   getter,
		}
		if setter, ok := setters[name]; ok {
			d.Setter = setter
		}
		out = append(out, d)
	}
	return out
}

// sortMembers applies spec §3's stable order: declaring-type position in
// the inheritance chain (Go: embedding depth, shallowest/most-derived
// first), then member name, lexicographic.
func sortMembers(members []Descriptor) {
	sort := func(i, j int) bool {
		if members[i].depth != members[j].depth {
			return members[i].depth < members[j].depth
		}
		return members[i].Name < members[j].Name
	}
	insertionSort(members, sort)
}

func insertionSort(members []Descriptor, less func(i, j int) bool) {
	for i := 1; i < len(members); i++ {
		for j := i; j > 0 && less(j, j-1); j-- {
			members[j], members[j-1] = members[j-1], members[j]
		}
	}
}
