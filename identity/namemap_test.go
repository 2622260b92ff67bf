package identity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMapBidirectionalLookup(t *testing.T) {
	m, err := New([]string{"alpha", "beta", "gamma"}, func(s string) string { return s })
	require.NoError(t, err)
	require.Equal(t, 3, m.Len())

	h, ok := m.HashOf("beta")
	require.True(t, ok)

	v, ok := m.ValueOf(h)
	require.True(t, ok)
	require.Equal(t, "beta", v)
}

func TestMapDuplicateValueFirstInsertionWins(t *testing.T) {
	calls := 0
	m, err := New([]string{"alpha", "alpha"}, func(s string) string {
		calls++
		return s
	})
	require.NoError(t, err)
	require.Equal(t, 1, m.Len())
	_ = calls
}

func TestMapUnknownLookupMisses(t *testing.T) {
	m, err := New([]string{"alpha"}, func(s string) string { return s })
	require.NoError(t, err)

	_, ok := m.HashOf("nope")
	require.False(t, ok)
	_, ok = m.ValueOf(0xDEADBEEF)
	require.False(t, ok)
}
