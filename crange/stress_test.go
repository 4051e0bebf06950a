package crange

import (
	"math/rand"
	"os"
	"strconv"
	"sync"
	"testing"

	"github.com/panjf2000/ants/v2"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/automaxprocs/maxprocs"
)

func TestMain(m *testing.M) {
	undo, _ := maxprocs.Set()
	defer undo()
	os.Exit(m.Run())
}

// stressOps returns the op count for the concurrency stress scenario:
// a cheap default under -short, overridable via CRANGE_STRESS_OPS for
// a full run.
func stressOps(short bool) int {
	if v := os.Getenv("CRANGE_STRESS_OPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	if short {
		return 2000
	}
	return 10000
}

// TestStress_ConcurrentReadersAndWriter runs spec §8 scenario 5: readers
// calling Search concurrently with a single writer splitting, merging,
// and deleting ranges via Lock/Replace. It asserts the collection never
// panics under the mixed load and that the final level-0 chain is
// sorted and disjoint.
func TestStress_ConcurrentReadersAndWriter(t *testing.T) {
	l := NewList(WithEpochSweepInterval(0))
	defer l.Close()

	const span = 1 << 20
	w := l.Lock(0, span)
	w.Replace([]*node{l.NewNode(0, span)})
	w.Release()

	ops := stressOps(testing.Short())

	pool, err := ants.NewPool(17)
	require.NoError(t, err)
	defer pool.Release()

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < 8; i++ {
		wg.Add(1)
		seed := int64(i + 1)
		require.NoError(t, pool.Submit(func() {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for {
				select {
				case <-stop:
					return
				default:
				}
				key := uint64(rng.Intn(span))
				l.Search(key, 1)
			}
		}))
	}

	wg.Add(1)
	require.NoError(t, pool.Submit(func() {
		defer wg.Done()
		rng := rand.New(rand.NewSource(0))
		for i := 0; i < ops; i++ {
			key := uint64(rng.Intn(span - 4))
			w := l.Lock(key, 4)
			if w.First() == nil {
				w.Replace([]*node{l.NewNode(key, 4)})
			} else if rng.Intn(2) == 0 {
				w.Replace([]*node{l.NewNode(key, 2), l.NewNode(key+2, 2)})
			} else {
				w.Replace([]*node{l.NewNode(key, 4)})
			}
			w.Release()
		}
		close(stop)
	}))

	wg.Wait()

	it := l.Begin()
	defer it.Close()
	var keys, ends []uint64
	for ; it.Valid(); it.Next() {
		if it.Node().Deleted() {
			continue
		}
		keys = append(keys, it.Node().Key())
		ends = append(ends, it.Node().End())
	}
	require.True(t, lo.IsSorted(keys), "live level-0 chain must remain sorted by key")
	for i := 1; i < len(keys); i++ {
		require.LessOrEqual(t, ends[i-1], keys[i], "live intervals must not overlap")
	}
}
