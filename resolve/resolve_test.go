package resolve

import (
	"bytes"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/graphwire/graphwire/members"
	"github.com/graphwire/graphwire/session"
	"github.com/graphwire/graphwire/typeid"
	"github.com/graphwire/graphwire/wire"
)

// fakeHost is a minimal Host for exercising the resolver chain in
// isolation, without the real reference engine (component G, tested in
// package refs). Its EncodeRef/DecodeRef support only the non-shared,
// non-cyclic case: a nil check followed by plain content-formatter
// delegation.
type fakeHost struct {
	chain    *Chain
	members  *members.Registry
	codec    *typeid.Codec
	explicit map[reflect.Type]Formatter
	cache    sync.Map
}

func newFakeHost() *fakeHost {
	h := &fakeHost{
		members:  members.NewRegistry(),
		codec:    typeid.NewCodec(),
		explicit: make(map[reflect.Type]Formatter),
	}
	h.chain = DefaultChain()
	return h
}

func (h *fakeHost) Formatter(t reflect.Type) (Formatter, error) {
	if f, ok := h.cache.Load(t); ok {
		return f.(Formatter), nil
	}
	f, err := h.chain.Resolve(h, t)
	if err != nil {
		return nil, err
	}
	h.cache.Store(t, f)
	return f, nil
}

func (h *fakeHost) ExplicitFormatter(t reflect.Type) (Formatter, bool) {
	f, ok := h.explicit[t]
	return f, ok
}

func (h *fakeHost) Members() *members.Registry { return h.members }
func (h *fakeHost) TypeCodec() *typeid.Codec   { return h.codec }

func (h *fakeHost) EncodeRef(w *wire.Writer, s *session.Encode, static reflect.Type, v reflect.Value) error {
	if v.IsNil() {
		return w.WriteBool(false)
	}
	if err := w.WriteBool(true); err != nil {
		return err
	}
	elem := v.Elem()
	f, err := h.Formatter(elem.Type())
	if err != nil {
		return err
	}
	return f.EncodeValue(w, s, elem)
}

func (h *fakeHost) DecodeRef(r *wire.Reader, s *session.Decode, static reflect.Type) (reflect.Value, error) {
	present, err := r.ReadBool()
	if err != nil {
		return reflect.Value{}, err
	}
	if !present {
		return reflect.Zero(static), nil
	}
	elemType := static.Elem()
	nv := reflect.New(elemType)
	f, err := h.Formatter(elemType)
	if err != nil {
		return reflect.Value{}, err
	}
	if err := f.DecodeValue(r, s, nv.Elem()); err != nil {
		return reflect.Value{}, err
	}
	return nv, nil
}

func roundTrip(t *testing.T, host *fakeHost, typ reflect.Type, in reflect.Value) reflect.Value {
	t.Helper()
	f, err := host.Formatter(typ)
	require.NoError(t, err)

	var buf bytes.Buffer
	w := wire.NewWriter(&buf)
	enc := session.GetEncode()
	defer session.PutEncode(enc)
	addressable := reflect.New(typ).Elem()
	addressable.Set(in)
	require.NoError(t, f.EncodeValue(w, enc, addressable))

	out := reflect.New(typ).Elem()
	r := wire.NewReader(&buf)
	dec := session.GetDecode(0)
	defer session.PutDecode(dec)
	require.NoError(t, f.DecodeValue(r, dec, out))
	return out
}

func TestPrimitiveRoundTrip(t *testing.T) {
	host := newFakeHost()
	in := reflect.ValueOf(int32(0x01020304))
	out := roundTrip(t, host, reflect.TypeOf(int32(0)), in)
	require.Equal(t, int32(0x01020304), out.Interface())
}

type color uint8

const (
	colorA color = iota
	colorB
	colorC
)

func TestEnumRoundTrip(t *testing.T) {
	host := newFakeHost()
	in := reflect.ValueOf(colorC)
	out := roundTrip(t, host, reflect.TypeOf(colorA), in)
	require.Equal(t, colorC, out.Interface())
}

func TestSliceRoundTrip(t *testing.T) {
	host := newFakeHost()
	in := reflect.ValueOf([]int32{1, 2, 3})
	out := roundTrip(t, host, reflect.TypeOf([]int32(nil)), in)
	require.Equal(t, []int32{1, 2, 3}, out.Interface())
}

func TestByteSliceRoundTripUsesRawCopy(t *testing.T) {
	host := newFakeHost()
	in := reflect.ValueOf([]byte{0xde, 0xad, 0xbe, 0xef})
	out := roundTrip(t, host, reflect.TypeOf([]byte(nil)), in)
	require.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, out.Interface())
}

func TestArrayRoundTrip(t *testing.T) {
	host := newFakeHost()
	in := reflect.ValueOf([4]int32{1, 2, 3, 4})
	out := roundTrip(t, host, reflect.TypeOf([4]int32{}), in)
	require.Equal(t, [4]int32{1, 2, 3, 4}, out.Interface())
}

func TestMapRoundTrip(t *testing.T) {
	host := newFakeHost()
	in := reflect.ValueOf(map[string]int32{"a": 1, "b": 2})
	out := roundTrip(t, host, reflect.TypeOf(map[string]int32(nil)), in)
	require.Equal(t, map[string]int32{"a": 1, "b": 2}, out.Interface())
}

type point struct {
	X int32
	Y int32
}

func TestBlittableStructRoundTrip(t *testing.T) {
	host := newFakeHost()
	in := reflect.ValueOf(point{X: 10, Y: -5})
	out := roundTrip(t, host, reflect.TypeOf(point{}), in)
	require.Equal(t, point{X: 10, Y: -5}, out.Interface())
}

type withRef struct {
	Name string
	Next *withRef
}

func TestByMemberWithPointerFieldRoundTrip(t *testing.T) {
	host := newFakeHost()
	in := withRef{Name: "a", Next: &withRef{Name: "b"}}
	out := roundTrip(t, host, reflect.TypeOf(withRef{}), reflect.ValueOf(in))
	got := out.Interface().(withRef)
	require.Equal(t, "a", got.Name)
	require.NotNil(t, got.Next)
	require.Equal(t, "b", got.Next.Name)
}

func TestTimeFallsBackToJSON(t *testing.T) {
	host := newFakeHost()
	now := time.Date(2026, 8, 2, 10, 0, 0, 0, time.UTC)
	out := roundTrip(t, host, reflect.TypeOf(time.Time{}), reflect.ValueOf(now))
	require.True(t, now.Equal(out.Interface().(time.Time)))
}

func TestResolverOrderingFirstWins(t *testing.T) {
	host := newFakeHost()
	host.explicit[reflect.TypeOf(int32(0))] = constFormatter{}
	f, err := host.Formatter(reflect.TypeOf(int32(0)))
	require.NoError(t, err)
	require.IsType(t, constFormatter{}, f)
}

type constFormatter struct{}

func (constFormatter) EncodeValue(w *wire.Writer, s *session.Encode, v reflect.Value) error {
	return w.WriteInt32(42)
}
func (constFormatter) DecodeValue(r *wire.Reader, s *session.Decode, v reflect.Value) error {
	n, err := r.ReadInt32()
	if err != nil {
		return err
	}
	v.SetInt(int64(n))
	return nil
}
