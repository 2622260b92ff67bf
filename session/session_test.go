package session

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeLookupAllocateIsMonotonic(t *testing.T) {
	e := GetEncode()
	defer PutEncode(e)

	a := &struct{ X int }{X: 1}
	b := &struct{ X int }{X: 2}

	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)

	_, ok := e.Lookup(va)
	require.False(t, ok)

	idxA := e.Allocate(va)
	require.Equal(t, 0, idxA)

	idxB := e.Allocate(vb)
	require.Equal(t, 1, idxB)

	got, ok := e.Lookup(va)
	require.True(t, ok)
	require.Equal(t, idxA, got)

	require.Equal(t, 2, e.Count())
}

// TestEncodeSharedReferenceLiteral is spec §8 scenario 4's identity half:
// the same *pointer* seen twice must resolve to the same index.
func TestEncodeSharedReferenceLiteral(t *testing.T) {
	e := GetEncode()
	defer PutEncode(e)

	shared := &struct{ N int }{N: 7}
	other := &struct{ N int }{N: 8}

	sequence := []*struct{ N int }{shared, other, shared}
	var indices []int
	for _, ref := range sequence {
		v := reflect.ValueOf(ref)
		if idx, ok := e.Lookup(v); ok {
			indices = append(indices, idx)
			continue
		}
		indices = append(indices, e.Allocate(v))
	}

	require.Equal(t, indices[0], indices[2])
	require.NotEqual(t, indices[0], indices[1])
}

func TestEncodeResetClearsState(t *testing.T) {
	e := GetEncode()
	obj := &struct{}{}
	e.Allocate(reflect.ValueOf(obj))
	require.Equal(t, 1, e.Count())

	e.Reset()
	require.Equal(t, 0, e.Count())
	_, ok := e.Lookup(reflect.ValueOf(obj))
	require.False(t, ok)

	PutEncode(e)
}

func TestDecodeSlotBeforeInitCycle(t *testing.T) {
	d := GetDecode(0)
	defer PutDecode(d)

	idx := d.Allocate()
	_, err := d.Get(idx)
	require.Error(t, err)

	d.Set(idx, reflect.ValueOf(42))
	v, err := d.Get(idx)
	require.NoError(t, err)
	require.Equal(t, 42, v.Interface())
}

func TestDecodeBadIndex(t *testing.T) {
	d := GetDecode(0)
	defer PutDecode(d)

	_, err := d.Get(5)
	require.Error(t, err)
}

func TestDecodeQuotaMonotonicity(t *testing.T) {
	dLow := GetDecode(10)
	defer PutDecode(dLow)
	require.NoError(t, dLow.ConsumeBytes(5))
	require.Error(t, dLow.ConsumeBytes(10))

	dHigh := GetDecode(100)
	defer PutDecode(dHigh)
	require.NoError(t, dHigh.ConsumeBytes(5))
	require.NoError(t, dHigh.ConsumeBytes(10))
}

func TestDecodeUnboundedWhenCeilingZero(t *testing.T) {
	d := GetDecode(0)
	defer PutDecode(d)
	require.NoError(t, d.ConsumeBytes(1<<40))
}
