package typeid

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/graphwire/graphwire/identity"
	"github.com/graphwire/graphwire/wire"
)

func roundTripType(t *testing.T, c *Codec, typ reflect.Type) reflect.Type {
	t.Helper()
	var buf bytes.Buffer
	w := wire.NewWriter(&buf)
	require.NoError(t, c.EncodeType(w, typ))

	r := wire.NewReader(&buf)
	got, err := c.DecodeType(r)
	require.NoError(t, err)
	return got
}

func TestBuiltinTypeRoundTrip(t *testing.T) {
	c := NewCodec()
	got := roundTripType(t, c, reflect.TypeOf(int32(0)))
	require.Equal(t, reflect.TypeOf(int32(0)), got)
}

func TestSliceTypeRoundTrip(t *testing.T) {
	c := NewCodec()
	got := roundTripType(t, c, reflect.TypeOf([]string(nil)))
	require.Equal(t, reflect.TypeOf([]string(nil)), got)
}

func TestArrayTypeRoundTrip(t *testing.T) {
	c := NewCodec()
	got := roundTripType(t, c, reflect.TypeOf([4]int32{}))
	require.Equal(t, reflect.TypeOf([4]int32{}), got)
}

func TestNestedSliceOfArrayRoundTrip(t *testing.T) {
	c := NewCodec()
	typ := reflect.TypeOf([][2]byte(nil))
	got := roundTripType(t, c, typ)
	require.Equal(t, typ, got)
}

type sampleNamed struct{ A int32 }

func TestKnownDefRoundTrip(t *testing.T) {
	named, err := identity.New([]reflect.Type{reflect.TypeOf(sampleNamed{})}, func(t reflect.Type) string {
		return t.PkgPath() + "." + t.Name()
	})
	require.NoError(t, err)

	c := NewCodec(WithKnownTypes(named))
	got := roundTripType(t, c, reflect.TypeOf(sampleNamed{}))
	require.Equal(t, reflect.TypeOf(sampleNamed{}), got)
}

type unregisteredNamed struct{ B int32 }

func TestNamedDefUsesResolver(t *testing.T) {
	c := NewCodec(WithResolver(func(fullName string, asm Assembly) (reflect.Type, error) {
		if fullName == fullTypeName(reflect.TypeOf(unregisteredNamed{})) {
			return reflect.TypeOf(unregisteredNamed{}), nil
		}
		return nil, nil
	}))
	got := roundTripType(t, c, reflect.TypeOf(unregisteredNamed{}))
	require.Equal(t, reflect.TypeOf(unregisteredNamed{}), got)
}

func TestNamedDefWithoutResolverFailsTypeNotFound(t *testing.T) {
	c := NewCodec()
	var buf bytes.Buffer
	w := wire.NewWriter(&buf)
	require.NoError(t, c.EncodeType(w, reflect.TypeOf(unregisteredNamed{})))

	r := wire.NewReader(&buf)
	_, err := c.DecodeType(r)
	require.ErrorContains(t, err, "type not found")
}

func TestConstructedTypeWithoutGenericResolverFails(t *testing.T) {
	c := NewCodec()
	var buf bytes.Buffer
	w := wire.NewWriter(&buf)
	id := &Identity{
		Kind:       KindConstructed,
		Definition: &Identity{Kind: KindNamedDef, FullName: "graphwire.Pair"},
	}
	require.NoError(t, c.EncodeIdentity(w, id))

	r := wire.NewReader(&buf)
	_, err := c.DecodeIdentity(r)
	require.ErrorContains(t, err, "type not found")
}

// pairResolver implements GenericResolver for a single toy generic
// definition "graphwire.Pair" of arity 2, to exercise the arity-derived
// decode path for KindConstructed.
type pairResolver struct{}

func (pairResolver) Decompose(t reflect.Type) (string, []reflect.Type, bool) {
	return "", nil, false
}

func (pairResolver) Arity(defName string) (int, bool) {
	if defName == "graphwire.Pair" {
		return 2, true
	}
	return 0, false
}

func (pairResolver) Instantiate(defName string, args []reflect.Type) (reflect.Type, error) {
	return reflect.TypeOf(struct{ A, B int32 }{}), nil
}

func TestConstructedTypeWithGenericResolverDerivesArity(t *testing.T) {
	c := NewCodec(WithGenericResolver(pairResolver{}))
	var buf bytes.Buffer
	w := wire.NewWriter(&buf)
	id := &Identity{
		Kind:       KindConstructed,
		Definition: &Identity{Kind: KindNamedDef, FullName: "graphwire.Pair"},
		Args: []Identity{
			{Kind: KindBuiltinDef, BuiltinID: c.builtinByType[reflect.TypeOf(int32(0))]},
			{Kind: KindBuiltinDef, BuiltinID: c.builtinByType[reflect.TypeOf(int32(0))]},
		},
	}
	require.NoError(t, c.EncodeIdentity(w, id))

	r := wire.NewReader(&buf)
	got, err := c.DecodeType(r)
	require.NoError(t, err)
	require.Equal(t, reflect.TypeOf(struct{ A, B int32 }{}), got)
}

func TestMethodIdentityRoundTrip(t *testing.T) {
	c := NewCodec(WithResolver(func(fullName string, asm Assembly) (reflect.Type, error) {
		if fullName == fullTypeName(reflect.TypeOf(sampleNamed{})) {
			return reflect.TypeOf(sampleNamed{}), nil
		}
		return nil, nil
	}))
	var buf bytes.Buffer
	w := wire.NewWriter(&buf)
	m := &Method{Kind: MethodMemberDef, DeclaringType: reflect.TypeOf(sampleNamed{}), Name: "DoThing"}
	require.NoError(t, c.EncodeMethod(w, m))

	r := wire.NewReader(&buf)
	got, err := c.DecodeMethod(r)
	require.NoError(t, err)
	require.Equal(t, m.Name, got.Name)
	require.Equal(t, m.DeclaringType, got.DeclaringType)
}

func TestOpenGenericMethodDecodeFailsMissingFormatter(t *testing.T) {
	c := NewCodec()
	var buf bytes.Buffer
	w := wire.NewWriter(&buf)
	m := &Method{
		Kind: MethodConstructedGeneric,
		Matcher: &Matcher{
			Kind: MatcherConstructed,
			DefType: reflect.TypeOf(sampleNamed{}),
			Args:    []Matcher{{Kind: MatcherMethodParam, ParamIndex: 0}},
		},
	}
	require.NoError(t, c.EncodeMethod(w, m))

	r := wire.NewReader(&buf)
	_, err := c.DecodeMethod(r)
	require.ErrorContains(t, err, "no formatter available")
}
