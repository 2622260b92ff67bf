package resolve

import (
	"fmt"
	"reflect"
	"sort"
	"unsafe"

	"github.com/graphwire/graphwire/kerr"
	"github.com/graphwire/graphwire/session"
	"github.com/graphwire/graphwire/wire"
)

// primitiveResolver is spec §4.F's "primitive singleton": direct scalar
// kinds dispatch straight onto wire, no member compilation involved.
func primitiveResolver(host Host, t reflect.Type) (Formatter, bool) {
	if t.PkgPath() != "" {
		// A named (defined) type over a numeric kind is an enum
		// candidate, not a bare primitive; let enumResolver claim it.
		return nil, false
	}
	switch t.Kind() {
	case reflect.Bool, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Int, reflect.Uint, reflect.Float32, reflect.Float64, reflect.String:
		return primitiveFormatter{kind: t.Kind()}, true
	default:
		return nil, false
	}
}

type primitiveFormatter struct{ kind reflect.Kind }

func (f primitiveFormatter) EncodeValue(w *wire.Writer, s *session.Encode, v reflect.Value) error {
	switch f.kind {
	case reflect.Bool:
		return w.WriteBool(v.Bool())
	case reflect.Int8:
		return w.WriteInt8(int8(v.Int()))
	case reflect.Int16:
		return w.WriteInt16(int16(v.Int()))
	case reflect.Int32:
		return w.WriteInt32(int32(v.Int()))
	case reflect.Int64, reflect.Int:
		return w.WriteInt64(v.Int())
	case reflect.Uint8:
		return w.WriteUint8(uint8(v.Uint()))
	case reflect.Uint16:
		return w.WriteUint16(uint16(v.Uint()))
	case reflect.Uint32:
		return w.WriteUint32(uint32(v.Uint()))
	case reflect.Uint64, reflect.Uint:
		return w.WriteUint64(v.Uint())
	case reflect.Float32:
		return w.WriteFloat32(float32(v.Float()))
	case reflect.Float64:
		return w.WriteFloat64(v.Float())
	case reflect.String:
		return w.WriteString(v.String())
	default:
		return kerr.Malformed(-1, "primitive formatter: unhandled kind %s", f.kind)
	}
}

func (f primitiveFormatter) DecodeValue(r *wire.Reader, s *session.Decode, v reflect.Value) error {
	switch f.kind {
	case reflect.Bool:
		b, err := r.ReadBool()
		if err != nil {
			return err
		}
		v.SetBool(b)
	case reflect.Int8:
		n, err := r.ReadInt8()
		if err != nil {
			return err
		}
		v.SetInt(int64(n))
	case reflect.Int16:
		n, err := r.ReadInt16()
		if err != nil {
			return err
		}
		v.SetInt(int64(n))
	case reflect.Int32:
		n, err := r.ReadInt32()
		if err != nil {
			return err
		}
		v.SetInt(int64(n))
	case reflect.Int64, reflect.Int:
		n, err := r.ReadInt64()
		if err != nil {
			return err
		}
		v.SetInt(n)
	case reflect.Uint8:
		n, err := r.ReadUint8()
		if err != nil {
			return err
		}
		v.SetUint(uint64(n))
	case reflect.Uint16:
		n, err := r.ReadUint16()
		if err != nil {
			return err
		}
		v.SetUint(uint64(n))
	case reflect.Uint32:
		n, err := r.ReadUint32()
		if err != nil {
			return err
		}
		v.SetUint(uint64(n))
	case reflect.Uint64, reflect.Uint:
		n, err := r.ReadUint64()
		if err != nil {
			return err
		}
		v.SetUint(n)
	case reflect.Float32:
		n, err := r.ReadFloat32()
		if err != nil {
			return err
		}
		v.SetFloat(float64(n))
	case reflect.Float64:
		n, err := r.ReadFloat64()
		if err != nil {
			return err
		}
		v.SetFloat(n)
	case reflect.String:
		str, err := r.ReadString()
		if err != nil {
			return err
		}
		if err := s.ConsumeBytes(int64(len(str))); err != nil {
			return err
		}
		v.SetString(str)
	default:
		return kerr.Malformed(r.Offset(), "primitive formatter: unhandled kind %s", f.kind)
	}
	return nil
}

// enumResolver handles a Go "enum": a named (defined) type over an
// integer kind, dispatching through the underlying integer per spec
// §4.F ("enum formatter ... dispatches through underlying integer").
func enumResolver(host Host, t reflect.Type) (Formatter, bool) {
	if t.PkgPath() == "" {
		return nil, false
	}
	switch t.Kind() {
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
		return enumFormatter{underlying: t.Kind()}, true
	default:
		return nil, false
	}
}

type enumFormatter struct{ underlying reflect.Kind }

func (f enumFormatter) EncodeValue(w *wire.Writer, s *session.Encode, v reflect.Value) error {
	return primitiveFormatter{kind: f.underlying}.EncodeValue(w, s, v)
}

func (f enumFormatter) DecodeValue(r *wire.Reader, s *session.Decode, v reflect.Value) error {
	tmp := reflect.New(v.Type()).Elem()
	if err := (primitiveFormatter{kind: f.underlying}).DecodeValue(r, s, tmp); err != nil {
		return err
	}
	v.Set(tmp)
	return nil
}

// elementCodec resolves the per-element encode/decode pair for a slice,
// array, or map entry type: reference kinds (pointer/interface) route
// through the host's reference engine so shared/cyclic element values
// still get identity tracking; everything else goes through the host's
// ordinary content-formatter cache.
type elementCodec struct {
	host Host
	typ  reflect.Type
}

func (c elementCodec) encode(w *wire.Writer, s *session.Encode, v reflect.Value) error {
	switch c.typ.Kind() {
	case reflect.Pointer, reflect.Interface:
		return c.host.EncodeRef(w, s, c.typ, v)
	default:
		f, err := c.host.Formatter(c.typ)
		if err != nil {
			return err
		}
		return f.EncodeValue(w, s, v)
	}
}

func (c elementCodec) decode(r *wire.Reader, s *session.Decode, v reflect.Value) error {
	switch c.typ.Kind() {
	case reflect.Pointer, reflect.Interface:
		got, err := c.host.DecodeRef(r, s, c.typ)
		if err != nil {
			return err
		}
		if got.IsValid() {
			v.Set(got)
		}
		return nil
	default:
		f, err := c.host.Formatter(c.typ)
		if err != nil {
			return err
		}
		return f.DecodeValue(r, s, v)
	}
}

func blittableKind(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool, reflect.Int8, reflect.Uint8:
		return true
	default:
		return false
	}
}

func byteBlockOf(v reflect.Value) []byte {
	n := v.Len()
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(v.Index(0).Addr().UnsafePointer()), n)
}

// sliceResolver is spec §4.F's rank-specialized array formatter for Go's
// variable-length sequence kind: a varuint length tag (the length plus
// one; see EncodeValue), then elements. A one-byte element type (bool,
// int8, uint8) uses a raw byte-block copy.
func sliceResolver(host Host, t reflect.Type) (Formatter, bool) {
	if t.Kind() != reflect.Slice {
		return nil, false
	}
	return sliceFormatter{elem: elementCodec{host: host, typ: t.Elem()}}, true
}

type sliceFormatter struct{ elem elementCodec }

// Length is written offset by one (0 means nil, n+1 means a present slice
// of length n) so a nil slice round-trips to nil rather than an
// indistinguishable empty one — the two are observationally different
// under reflect.DeepEqual/reflect.Value.IsNil (spec §8).
func (f sliceFormatter) EncodeValue(w *wire.Writer, s *session.Encode, v reflect.Value) error {
	if v.IsNil() {
		return w.WriteVarUint(0)
	}
	n := v.Len()
	if err := w.WriteVarUint(uint64(n) + 1); err != nil {
		return err
	}
	if blittableKind(f.elem.typ) {
		return w.WriteRaw(byteBlockOf(v))
	}
	for i := 0; i < n; i++ {
		if err := f.elem.encode(w, s, v.Index(i)); err != nil {
			return err
		}
	}
	return nil
}

func (f sliceFormatter) DecodeValue(r *wire.Reader, s *session.Decode, v reflect.Value) error {
	tag, err := r.ReadVarUint()
	if err != nil {
		return err
	}
	if tag == 0 {
		v.Set(reflect.Zero(v.Type()))
		return nil
	}
	n := tag - 1
	if err := s.ConsumeBytes(int64(n)); err != nil {
		return err
	}
	out := reflect.MakeSlice(reflect.SliceOf(f.elem.typ), int(n), int(n))
	if blittableKind(f.elem.typ) {
		if err := r.ReadRaw(byteBlockOf(out)); err != nil {
			return err
		}
		v.Set(out)
		return nil
	}
	for i := 0; i < int(n); i++ {
		if err := f.elem.decode(r, s, out.Index(i)); err != nil {
			return err
		}
	}
	v.Set(out)
	return nil
}

// arrayResolver handles Go's fixed-size array kind. Unlike a slice, the
// element count is part of the static type (see typeid's Rank
// repurposing) so no length is written — only the elements, in order.
func arrayResolver(host Host, t reflect.Type) (Formatter, bool) {
	if t.Kind() != reflect.Array {
		return nil, false
	}
	return arrayFormatter{elem: elementCodec{host: host, typ: t.Elem()}, n: t.Len()}, true
}

type arrayFormatter struct {
	elem elementCodec
	n    int
}

func (f arrayFormatter) EncodeValue(w *wire.Writer, s *session.Encode, v reflect.Value) error {
	if blittableKind(f.elem.typ) {
		return w.WriteRaw(byteBlockOf(v))
	}
	for i := 0; i < f.n; i++ {
		if err := f.elem.encode(w, s, v.Index(i)); err != nil {
			return err
		}
	}
	return nil
}

func (f arrayFormatter) DecodeValue(r *wire.Reader, s *session.Decode, v reflect.Value) error {
	if blittableKind(f.elem.typ) {
		return r.ReadRaw(byteBlockOf(v))
	}
	for i := 0; i < f.n; i++ {
		if err := f.elem.decode(r, s, v.Index(i)); err != nil {
			return err
		}
	}
	return nil
}

// mapResolver is spec §4.F's "keyed collections with comparers": a Go map
// with a comparable key type. Entries are written sorted by their key's
// string form so output is deterministic across runs (Go's own map
// iteration order is randomized, which would otherwise make two encodes
// of an equal map disagree byte-for-byte).
func mapResolver(host Host, t reflect.Type) (Formatter, bool) {
	if t.Kind() != reflect.Map {
		return nil, false
	}
	return mapFormatter{
		key:  elementCodec{host: host, typ: t.Key()},
		elem: elementCodec{host: host, typ: t.Elem()},
	}, true
}

type mapFormatter struct{ key, elem elementCodec }

// Entry count is written offset by one (0 means nil, n+1 means a present
// map of n entries), the same nil-vs-empty distinction sliceFormatter
// makes and for the same reason (spec §8 observational equality).
func (f mapFormatter) EncodeValue(w *wire.Writer, s *session.Encode, v reflect.Value) error {
	if v.IsNil() {
		return w.WriteVarUint(0)
	}
	keys := v.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
	})
	if err := w.WriteVarUint(uint64(len(keys)) + 1); err != nil {
		return err
	}
	for _, k := range keys {
		// Map keys and values are not addressable; copy each into an
		// addressable value to honor the Formatter contract.
		kv := reflect.New(f.key.typ).Elem()
		kv.Set(k)
		ev := reflect.New(f.elem.typ).Elem()
		ev.Set(v.MapIndex(k))
		if err := f.key.encode(w, s, kv); err != nil {
			return err
		}
		if err := f.elem.encode(w, s, ev); err != nil {
			return err
		}
	}
	return nil
}

func (f mapFormatter) DecodeValue(r *wire.Reader, s *session.Decode, v reflect.Value) error {
	tag, err := r.ReadVarUint()
	if err != nil {
		return err
	}
	if tag == 0 {
		v.Set(reflect.Zero(v.Type()))
		return nil
	}
	n := tag - 1
	if err := s.ConsumeBytes(int64(n)); err != nil {
		return err
	}
	out := reflect.MakeMapWithSize(reflect.MapOf(f.key.typ, f.elem.typ), int(n))
	for i := 0; i < int(n); i++ {
		kv := reflect.New(f.key.typ).Elem()
		if err := f.key.decode(r, s, kv); err != nil {
			return err
		}
		ev := reflect.New(f.elem.typ).Elem()
		if err := f.elem.decode(r, s, ev); err != nil {
			return err
		}
		out.SetMapIndex(kv, ev)
	}
	v.Set(out)
	return nil
}

// blittableResolver claims struct types the members registry has already
// proven blittable, offering a byte-copy formatter in place of the
// member-by-member one (spec §4.F: "byte-copy formatter for blittable
// aggregates", tried before the by-member last resort).
func blittableResolver(host Host, t reflect.Type) (Formatter, bool) {
	if t.Kind() != reflect.Struct {
		return nil, false
	}
	cfg, err := host.Members().Compile(t)
	if err != nil || !cfg.Blittable {
		return nil, false
	}
	return blittableFormatter{size: int(t.Size())}, true
}

type blittableFormatter struct{ size int }

func (f blittableFormatter) EncodeValue(w *wire.Writer, s *session.Encode, v reflect.Value) error {
	return w.WriteRaw(structBytes(v, f.size))
}

func (f blittableFormatter) DecodeValue(r *wire.Reader, s *session.Decode, v reflect.Value) error {
	if err := s.ConsumeBytes(int64(f.size)); err != nil {
		return err
	}
	return r.ReadRaw(structBytes(v, f.size))
}

func structBytes(v reflect.Value, size int) []byte {
	if size == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(v.Addr().UnsafePointer()), size)
}
