// Package refs implements the reference engine (component G): the
// NULL/NEW/BACK(i) tag scheme that gives reference-typed slots identity-
// and cycle-preserving encoding, plus the polymorphic dispatcher that
// decides, for an interface-typed slot, which specialization spec §4.G
// describes applies (two of the three are distinguished; see
// decodeInterface).
//
// Go's two reference-typed, nullable, identity-bearing kinds are Pointer
// and Interface; those are the two static kinds this engine accepts (spec
// §4.x names the one state machine both share). Slices and maps are
// handled as ordinary value sequences by package resolve instead — see
// DESIGN.md for that scope decision.
package refs

import (
	"fmt"
	"reflect"

	"github.com/graphwire/graphwire/kerr"
	"github.com/graphwire/graphwire/resolve"
	"github.com/graphwire/graphwire/session"
	"github.com/graphwire/graphwire/typeid"
	"github.com/graphwire/graphwire/wire"
)

const (
	tagNull uint64 = 0
	tagNew  uint64 = 1
	// tagBack(i) = i + 2
)

// Host is what the reference engine calls back into: the formatter
// resolver chain (for the content formatter of a dynamic type) and the
// type codec (to tag a dynamic type onto a polymorphic NEW).
type Host interface {
	Formatter(t reflect.Type) (resolve.Formatter, error)
	TypeCodec() *typeid.Codec
}

// Engine drives the §4.x state machine for one Host.
type Engine struct {
	host Host
}

// New builds a reference engine over host.
func New(host Host) *Engine {
	return &Engine{host: host}
}

// Encode handles a reference-typed slot of static type `static` holding
// value v (Kind() Pointer or Interface).
func (e *Engine) Encode(w *wire.Writer, s *session.Encode, static reflect.Type, v reflect.Value) error {
	switch static.Kind() {
	case reflect.Pointer:
		return e.encodePointer(w, s, v)
	case reflect.Interface:
		return e.encodeInterface(w, s, v)
	default:
		return kerr.UnsupportedHost(fmt.Sprintf("reference engine: static kind %s is not a reference type", static.Kind()))
	}
}

// Decode is Encode's mirror: it reads the tag, allocates the slot before
// any nested decode per spec §4.B/§9, and returns the reconstructed value
// as static's own type (nil/zero for NULL).
func (e *Engine) Decode(r *wire.Reader, s *session.Decode, static reflect.Type) (reflect.Value, error) {
	switch static.Kind() {
	case reflect.Pointer:
		return e.decodePointer(r, s, static)
	case reflect.Interface:
		return e.decodeInterface(r, s, static)
	default:
		return reflect.Value{}, kerr.UnsupportedHost(fmt.Sprintf("reference engine: static kind %s is not a reference type", static.Kind()))
	}
}

// encodePointer. A Go pointer's pointee type is fixed by the pointer's
// static type, so *T is always "effectively sealed" (spec §4.G) — no
// dynamic type tag is ever written for it, only for Interface slots.
func (e *Engine) encodePointer(w *wire.Writer, s *session.Encode, v reflect.Value) error {
	if v.IsNil() {
		return w.WriteVarUint(tagNull)
	}
	if idx, ok := s.Lookup(v); ok {
		return w.WriteVarUint(uint64(idx) + 2)
	}
	s.Allocate(v)
	if err := w.WriteVarUint(tagNew); err != nil {
		return err
	}
	elem := v.Elem()
	f, err := e.host.Formatter(elem.Type())
	if err != nil {
		return err
	}
	return f.EncodeValue(w, s, elem)
}

func (e *Engine) decodePointer(r *wire.Reader, s *session.Decode, static reflect.Type) (reflect.Value, error) {
	tag, err := r.ReadVarUint()
	if err != nil {
		return reflect.Value{}, err
	}
	switch {
	case tag == tagNull:
		return reflect.Zero(static), nil
	case tag == tagNew:
		idx := s.Allocate()
		elemType := static.Elem()
		ptr := reflect.New(elemType)
		s.Set(idx, ptr)
		f, err := e.host.Formatter(elemType)
		if err != nil {
			return reflect.Value{}, err
		}
		if err := f.DecodeValue(r, s, ptr.Elem()); err != nil {
			return reflect.Value{}, err
		}
		return ptr, nil
	default:
		idx := int(tag - 2)
		val, err := s.Get(idx)
		if err != nil {
			return reflect.Value{}, err
		}
		return val, nil
	}
}

// encodeInterface. Identity is keyed on the dynamic value the interface
// holds (v.Elem()), not the interface wrapper itself, so the same
// pointer referenced once through a concrete *T slot and once boxed in
// an interface{} slot is recognized as the same object.
func (e *Engine) encodeInterface(w *wire.Writer, s *session.Encode, v reflect.Value) error {
	if v.IsNil() {
		return w.WriteVarUint(tagNull)
	}
	concrete := v.Elem()
	if idx, ok := s.Lookup(concrete); ok {
		return w.WriteVarUint(uint64(idx) + 2)
	}
	s.Allocate(concrete)
	if err := w.WriteVarUint(tagNew); err != nil {
		return err
	}
	dynType := concrete.Type()
	if err := e.host.TypeCodec().EncodeType(w, dynType); err != nil {
		return err
	}

	if dynType.Kind() == reflect.Pointer {
		elemType := dynType.Elem()
		f, err := e.host.Formatter(elemType)
		if err != nil {
			return err
		}
		return f.EncodeValue(w, s, concrete.Elem())
	}
	f, err := e.host.Formatter(dynType)
	if err != nil {
		return err
	}
	addressable := reflect.New(dynType).Elem()
	addressable.Set(concrete)
	return f.EncodeValue(w, s, addressable)
}

// decodeInterface implements the polymorphic dispatcher's two reachable
// specializations for Go (spec §4.G): Class, when the decoded dynamic
// type is itself a pointer (the slot's identity is the inner pointer,
// preserved by unchecked reference reinterpretation in the all-Go sense
// of just keeping the same *T around); and Mutable inline aggregate
// otherwise (a zero-initialized box is allocated, written in place, and
// its address is the thing later BACK references resolve to). The
// read-only inline aggregate specialization spec describes as a pure
// optimization (construct first, no box needed, safe only because such
// values can't self-reference) is not distinguished here — every non-
// pointer dynamic type takes the always-correct boxed path.
func (e *Engine) decodeInterface(r *wire.Reader, s *session.Decode, static reflect.Type) (reflect.Value, error) {
	tag, err := r.ReadVarUint()
	if err != nil {
		return reflect.Value{}, err
	}
	switch {
	case tag == tagNull:
		return reflect.Zero(static), nil
	case tag == tagNew:
		idx := s.Allocate()
		dynType, err := e.host.TypeCodec().DecodeType(r)
		if err != nil {
			return reflect.Value{}, err
		}

		if dynType.Kind() == reflect.Pointer {
			elemType := dynType.Elem()
			f, err := e.host.Formatter(elemType)
			if err != nil {
				return reflect.Value{}, err
			}
			ptr := reflect.New(elemType)
			s.Set(idx, ptr)
			if err := f.DecodeValue(r, s, ptr.Elem()); err != nil {
				return reflect.Value{}, err
			}
			iface := reflect.New(static).Elem()
			iface.Set(ptr)
			return iface, nil
		}

		f, err := e.host.Formatter(dynType)
		if err != nil {
			return reflect.Value{}, err
		}
		box := reflect.New(dynType)
		s.Set(idx, box)
		if err := f.DecodeValue(r, s, box.Elem()); err != nil {
			return reflect.Value{}, err
		}
		iface := reflect.New(static).Elem()
		iface.Set(box.Elem())
		return iface, nil
	default:
		idx := int(tag - 2)
		val, err := s.Get(idx)
		if err != nil {
			return reflect.Value{}, err
		}
		iface := reflect.New(static).Elem()
		if val.Kind() == reflect.Pointer {
			iface.Set(val)
		} else {
			iface.Set(val.Elem())
		}
		return iface, nil
	}
}
