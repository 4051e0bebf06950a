package xsync

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMonotonicVersion_NeverZero(t *testing.T) {
	var mv MonotonicVersion
	seen := make(map[uint64]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		v := mv.Next()
		require.NotZero(t, v)
		_, dup := seen[v]
		require.False(t, dup)
		seen[v] = struct{}{}
	}
}

func testLockerMutualExclusion(t *testing.T, k Kind) {
	l := NewLocker(k)
	var mv MonotonicVersion
	var counter int
	var wg sync.WaitGroup
	const goroutines = 16
	const perGoroutine = 200
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				v := mv.Next()
				l.Lock(v)
				counter++
				require.True(t, l.Unlock(v))
			}
		}()
	}
	wg.Wait()
	require.Equal(t, goroutines*perGoroutine, counter)
}

func TestSpinLock_MutualExclusion(t *testing.T) {
	testLockerMutualExclusion(t, SpinLock)
}

func TestGoMutex_MutualExclusion(t *testing.T) {
	testLockerMutualExclusion(t, GoMutex)
}

func TestSpinLock_UnlockRejectsStaleVersion(t *testing.T) {
	l := NewLocker(SpinLock)
	var mv MonotonicVersion
	v1 := mv.Next()
	l.Lock(v1)
	v2 := mv.Next()
	require.False(t, l.Unlock(v2))
	require.True(t, l.Unlock(v1))
}

func TestSpinLock_TryLock(t *testing.T) {
	l := NewLocker(SpinLock)
	var mv MonotonicVersion
	v1 := mv.Next()
	require.True(t, l.TryLock(v1))
	v2 := mv.Next()
	require.False(t, l.TryLock(v2))
	require.True(t, l.Unlock(v1))
	require.True(t, l.TryLock(v2))
}
