package resolve

import (
	"encoding/json"
	"reflect"
	"time"

	"github.com/graphwire/graphwire/kerr"
	"github.com/graphwire/graphwire/session"
	"github.com/graphwire/graphwire/wire"
)

// jsonMarshaler/textMarshaler mirror the teacher's own atomic-type
// detection in cache/core/metadata.go's shouldTreatAsAtomic: a type that
// marshals itself opaquely should be encoded opaquely rather than walked
// field-by-field (which, for an unexported-field type like time.Time,
// would silently lose data instead of failing — see jsonFallbackResolver
// below).
type jsonMarshaler interface {
	MarshalJSON() ([]byte, error)
	UnmarshalJSON([]byte) error
}

type textMarshaler interface {
	MarshalText() (text []byte, err error)
	UnmarshalText(text []byte) error
}

var (
	jsonMarshalerType = reflect.TypeOf((*jsonMarshaler)(nil)).Elem()
	textMarshalerType = reflect.TypeOf((*textMarshaler)(nil)).Elem()
	timeType          = reflect.TypeOf(time.Time{})
)

// jsonFallbackResolver is the spec §4.F "assorted value-type singletons"
// slot, adapted from cache/core/json_serializer.go: rather than
// reimplementing date/time/duration/bignum-style singleton formatters
// one by one, any type that already knows how to marshal itself opaquely
// (json.Marshaler, encoding.TextMarshaler, or time.Time specifically) is
// encoded as a length-prefixed opaque blob. It must be tried before
// blittableResolver/byMemberResolver, both of which would otherwise
// either reject or (for an unexported-field type like time.Time)
// silently produce an empty-member encoding. time.Duration needs none of
// this: it is an ordinary named int64, so enumResolver already handles it.
func jsonFallbackResolver(host Host, t reflect.Type) (Formatter, bool) {
	if t == timeType {
		return jsonValueFormatter{typ: t}, true
	}
	ptr := reflect.PointerTo(t)
	if t.Implements(jsonMarshalerType) || ptr.Implements(jsonMarshalerType) {
		return jsonValueFormatter{typ: t}, true
	}
	if t.Implements(textMarshalerType) || ptr.Implements(textMarshalerType) {
		return textValueFormatter{typ: t}, true
	}
	return nil, false
}

type jsonValueFormatter struct{ typ reflect.Type }

func (f jsonValueFormatter) EncodeValue(w *wire.Writer, s *session.Encode, v reflect.Value) error {
	data, err := json.Marshal(v.Addr().Interface())
	if err != nil {
		return kerr.Malformed(-1, "json fallback encode of %s: %v", f.typ, err)
	}
	return w.WriteString(string(data))
}

func (f jsonValueFormatter) DecodeValue(r *wire.Reader, s *session.Decode, v reflect.Value) error {
	str, err := r.ReadString()
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(str), v.Addr().Interface()); err != nil {
		return kerr.Malformed(r.Offset(), "json fallback decode of %s: %v", f.typ, err)
	}
	return nil
}

type textValueFormatter struct{ typ reflect.Type }

func (f textValueFormatter) EncodeValue(w *wire.Writer, s *session.Encode, v reflect.Value) error {
	m := v.Addr().Interface().(textMarshaler)
	data, err := m.MarshalText()
	if err != nil {
		return kerr.Malformed(-1, "text fallback encode of %s: %v", f.typ, err)
	}
	return w.WriteString(string(data))
}

func (f textValueFormatter) DecodeValue(r *wire.Reader, s *session.Decode, v reflect.Value) error {
	str, err := r.ReadString()
	if err != nil {
		return err
	}
	m := v.Addr().Interface().(textMarshaler)
	if err := m.UnmarshalText([]byte(str)); err != nil {
		return kerr.Malformed(r.Offset(), "text fallback decode of %s: %v", f.typ, err)
	}
	return nil
}
