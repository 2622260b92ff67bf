package kernel_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/graphwire/graphwire/kernel"
)

type point struct {
	X, Y int32
}

func TestEncodeDecodeStructRoundTrip(t *testing.T) {
	k, err := kernel.New()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, kernel.Encode(k, &buf, point{X: 3, Y: -4}))

	got, err := kernel.Decode[point](k, &buf)
	require.NoError(t, err)
	require.Equal(t, point{X: 3, Y: -4}, got)
}

type ring struct {
	Val  int32
	Next *ring
}

func TestEncodeDecodePointerFieldRoundTrip(t *testing.T) {
	k, err := kernel.New()
	require.NoError(t, err)

	a := &ring{Val: 1}
	a.Next = a // self-cycle through a struct field

	var buf bytes.Buffer
	require.NoError(t, kernel.Encode(k, &buf, a))

	got, err := kernel.Decode[*ring](k, &buf)
	require.NoError(t, err)
	require.Equal(t, int32(1), got.Val)
	require.Same(t, got, got.Next)
}

type shape interface {
	Area() int32
}

type square struct {
	Side int32
}

func (s square) Area() int32 { return s.Side * s.Side }

func TestSealedVsPolymorphicEncoding(t *testing.T) {
	kernel.Register(square{})

	k, err := kernel.New()
	require.NoError(t, err)

	// Encoded under the concrete static type: no dynamic-type tag.
	var sealed bytes.Buffer
	require.NoError(t, kernel.Encode(k, &sealed, square{Side: 5}))

	// Encoded under the broader interface static type: carries a
	// dynamic-type tag the decoder must consume.
	var poly bytes.Buffer
	require.NoError(t, kernel.Encode[shape](k, &poly, square{Side: 5}))

	require.Greater(t, poly.Len(), sealed.Len())

	gotSealed, err := kernel.Decode[square](k, &sealed)
	require.NoError(t, err)
	require.Equal(t, int32(25), gotSealed.Area())

	gotPoly, err := kernel.Decode[shape](k, &poly)
	require.NoError(t, err)
	require.Equal(t, int32(25), gotPoly.Area())
}

type stringer struct {
	Label string
}

func TestTrailingDataIsMalformed(t *testing.T) {
	k, err := kernel.New()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, kernel.Encode(k, &buf, stringer{Label: "a"}))
	buf.WriteByte(0xFF)

	_, err = kernel.Decode[stringer](k, &buf)
	require.Error(t, err)
}

func TestQuotaExceededOnDecode(t *testing.T) {
	type blob struct {
		Data string
	}

	enc, err := kernel.New()
	require.NoError(t, err)

	var buf bytes.Buffer
	payload := make([]byte, 4096)
	require.NoError(t, kernel.Encode(enc, &buf, blob{Data: string(payload)}))

	limited, err := kernel.New(kernel.WithMaxAllocatedBytes(16))
	require.NoError(t, err)

	_, err = kernel.Decode[blob](limited, bytes.NewReader(buf.Bytes()))
	require.Error(t, err)
}

func TestWithLoggerAndNoopLogger(t *testing.T) {
	k, err := kernel.New(kernel.WithLogger(kernel.NewNoopLogger()))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, kernel.Encode(k, &buf, point{X: 1, Y: 2}))
	got, err := kernel.Decode[point](k, &buf)
	require.NoError(t, err)
	require.Equal(t, point{X: 1, Y: 2}, got)
}
