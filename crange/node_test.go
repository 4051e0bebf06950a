package crange

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/benz9527/crange/internal/xsync"
)

func TestNode_OverlapsHalfOpen(t *testing.T) {
	n := newNode(nil, 10, 5, 1, xsync.SpinLock)
	require.True(t, n.overlaps(12, 1))
	require.True(t, n.overlaps(5, 6))  // overlaps [10,15) at the boundary key=10
	require.False(t, n.overlaps(15, 5), "half-open: [15,20) must not overlap [10,15)")
	require.False(t, n.overlaps(0, 10), "[0,10) ends exactly at key, must not overlap")
}

func TestNode_StateMachine(t *testing.T) {
	n := newNode(nil, 10, 5, 3, xsync.SpinLock)
	require.Equal(t, StateLive, n.State())

	n.next[0].storeMark()
	require.Equal(t, StateMarked, n.State())

	n.curlevel.Store(3)
	n.markUnlinkedL0()
	require.Equal(t, StateUnlinkedL0, n.State())

	n.curlevel.Store(0)
	n.maybeMarkFreeable()
	require.Equal(t, StateFreeable, n.State())

	n.markFreed()
	require.Equal(t, StateFreed, n.State())
}

func TestNode_DeletedTracksLevel0Mark(t *testing.T) {
	n := newNode(nil, 1, 1, 1, xsync.SpinLock)
	require.False(t, n.Deleted())
	n.next[0].storeMark()
	require.True(t, n.Deleted())
}
