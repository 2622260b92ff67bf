package members

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

type point struct {
	X int32
	Y int32
}

type withEmbed struct {
	point
	Z int32
}

type withSlice struct {
	Name string
	Tags []string
}

type withExclusion struct {
	Visible int32
	Hidden  int32 `member:"-"`
}

func TestCompileOrdersByDepthThenName(t *testing.T) {
	reg := NewRegistry()
	cfg, err := reg.Compile(reflect.TypeOf(withEmbed{}))
	require.NoError(t, err)

	names := make([]string, len(cfg.Members))
	for i, m := range cfg.Members {
		names[i] = m.Name
	}
	require.Equal(t, []string{"Z", "X", "Y"}, names)
}

func TestCompileForceExclude(t *testing.T) {
	reg := NewRegistry()
	cfg, err := reg.Compile(reflect.TypeOf(withExclusion{}))
	require.NoError(t, err)
	require.Len(t, cfg.Members, 1)
	require.Equal(t, "Visible", cfg.Members[0].Name)
}

func TestCompileCachesByType(t *testing.T) {
	reg := NewRegistry()
	a, err := reg.Compile(reflect.TypeOf(point{}))
	require.NoError(t, err)
	b, err := reg.Compile(reflect.TypeOf(point{}))
	require.NoError(t, err)
	require.Same(t, a, b)
}

func TestBlittablePlainStruct(t *testing.T) {
	reg := NewRegistry()
	cfg, err := reg.Compile(reflect.TypeOf(point{}))
	require.NoError(t, err)
	require.True(t, cfg.Blittable)
}

func TestBlittableFalseWithReferenceField(t *testing.T) {
	reg := NewRegistry()
	cfg, err := reg.Compile(reflect.TypeOf(withSlice{}))
	require.NoError(t, err)
	require.False(t, cfg.Blittable)
}

func TestConstructUninitializedDefault(t *testing.T) {
	reg := NewRegistry()
	cfg, err := reg.Compile(reflect.TypeOf(point{}))
	require.NoError(t, err)
	require.True(t, cfg.ConstructUninitialized)
	require.Nil(t, cfg.Constructor)
}

func TestWithConstructorOverridesDefault(t *testing.T) {
	pt := reflect.TypeOf(point{})
	reg := NewRegistry(WithConstructor(pt, func() reflect.Value {
		return reflect.ValueOf(point{X: 1, Y: 1})
	}))
	cfg, err := reg.Compile(pt)
	require.NoError(t, err)
	require.False(t, cfg.ConstructUninitialized)
	require.NotNil(t, cfg.Constructor)
}

func TestCompileRejectsNonStruct(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Compile(reflect.TypeOf(42))
	require.Error(t, err)
}
