package crange

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWindow_ReplaceRejectsZeroSizeNode(t *testing.T) {
	l := NewList(WithEpochSweepInterval(0))
	defer l.Close()

	w := l.Lock(0, 10)
	defer func() {
		require.NotNil(t, recover())
		w.Release()
	}()
	bad := l.NewNode(0, 0)
	w.Replace([]*node{bad})
}

func TestWindow_ReplaceRejectsUnsortedChain(t *testing.T) {
	l := NewList(WithEpochSweepInterval(0))
	defer l.Close()

	w := l.Lock(0, 10)
	defer func() {
		require.NotNil(t, recover())
		w.Release()
	}()
	w.Replace([]*node{l.NewNode(5, 1), l.NewNode(0, 1)})
}

func TestWindow_ReplaceEmptyChainRemovesExisting(t *testing.T) {
	l := NewList(WithEpochSweepInterval(0))
	defer l.Close()

	n := l.NewNode(0, 5)
	w := l.Lock(0, 5)
	w.Replace([]*node{n})
	w.Release()

	w = l.Lock(0, 5)
	w.Replace(nil)
	w.Release()

	require.True(t, n.Deleted())
	require.Nil(t, l.Search(0, 5))
}

func TestWindow_ReplaceOneSwapsInPlace(t *testing.T) {
	l := NewList(WithEpochSweepInterval(0))
	defer l.Close()

	old := l.NewNode(0, 5)
	w := l.Lock(0, 5)
	w.Replace([]*node{old})
	w.Release()

	repl := l.NewNode(0, 5)
	w = l.Lock(0, 5)
	w.ReplaceOne(repl)
	w.Release()

	require.True(t, old.Deleted())
	found := l.Search(0, 5)
	require.Equal(t, repl, found)
}

func TestWindow_ReplaceOnePanicsOnIntervalMismatch(t *testing.T) {
	l := NewList(WithEpochSweepInterval(0))
	defer l.Close()

	old := l.NewNode(0, 5)
	w := l.Lock(0, 5)
	w.Replace([]*node{old})

	defer func() {
		require.NotNil(t, recover())
		w.Release()
	}()
	w.ReplaceOne(l.NewNode(1, 5))
}

func TestWindow_ReplaceOnePanicsWhenWindowNotSingular(t *testing.T) {
	l := NewList(WithEpochSweepInterval(0))
	defer l.Close()

	w := l.Lock(0, 10)
	defer func() {
		require.NotNil(t, recover())
		w.Release()
	}()
	w.ReplaceOne(l.NewNode(0, 10))
}

func TestWindow_ReleaseIsIdempotent(t *testing.T) {
	l := NewList(WithEpochSweepInterval(0))
	defer l.Close()

	w := l.Lock(0, 10)
	w.Release()
	require.NotPanics(t, func() { w.Release() })
}

func TestWindowIterator_WalksOverlapChainInOrder(t *testing.T) {
	l := NewList(WithEpochSweepInterval(0))
	defer l.Close()

	chain := []*node{l.NewNode(0, 2), l.NewNode(2, 2), l.NewNode(4, 2)}
	w := l.Lock(0, 6)
	w.Replace(chain)
	w.Release()

	w = l.Lock(0, 6)
	defer w.Release()
	var keys []uint64
	for it := w.Begin(); it.Valid(); it.Next() {
		keys = append(keys, it.Node().Key())
	}
	require.Equal(t, []uint64{0, 2, 4}, keys)
}
