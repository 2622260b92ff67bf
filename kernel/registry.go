package kernel

import (
	"reflect"
	"sync"

	"github.com/graphwire/graphwire/kerr"
	"github.com/graphwire/graphwire/typeid"
)

// registry is the process-local concrete-type table the default decode-time
// resolver consults, the same role gob.Register's registry plays for
// encoding/gob: an interface-typed slot only ever carries a dynamic type's
// name across the wire (spec §4.G/§4.D), so decoding it back into a
// reflect.Type requires some table mapping that name back to a Go type.
// Registration is process-global and additive, exactly like gob.Register.
var registry sync.Map // string (typeid.FullName) -> reflect.Type

// Register records value's concrete type so a decode-time interface slot
// naming it can be resolved back to a Go type, the way gob.Register does
// for encoding/gob. Call it once per concrete type ever placed behind an
// interface-typed field, at program init, before any Kernel decodes such a
// value.
func Register(value any) {
	registerType(reflect.TypeOf(value))
}

func registerType(t reflect.Type) {
	registry.Store(typeid.FullName(t), t)
}

// defaultTypeResolver looks a NamedDef up in the process-local registry.
// It is installed automatically by New unless the caller supplies its own
// resolver via WithAssemblyLoader.
func defaultTypeResolver(fullName string, _ typeid.Assembly) (reflect.Type, error) {
	if t, ok := registry.Load(fullName); ok {
		return t.(reflect.Type), nil
	}
	return nil, kerr.TypeNotFound(fullName)
}
