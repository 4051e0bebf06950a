package crange

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRandomLevel_Bounds(t *testing.T) {
	for i := 0; i < 1000; i++ {
		lvl := randomLevel(16, 100)
		require.GreaterOrEqual(t, lvl, 1)
		require.LessOrEqual(t, lvl, 16)
	}
}

func TestRandomLevel_DampedForSmallCollections(t *testing.T) {
	for i := 0; i < 1000; i++ {
		lvl := randomLevel(32, 0)
		require.Equal(t, 1, lvl, "an empty collection should never produce a level beyond 1")
	}
}

func TestRandomLevel_MaxLevelOne(t *testing.T) {
	require.Equal(t, 1, randomLevel(1, 1000))
}
