package crange

// Epoch-based safe memory reclamation, grounded on the EpochManager /
// ReaderGuard shape of other_examples/mjm918-tur__epoch.go, adapted to
// keep retirees in internal/xqueue's min-epoch-ordered priority queue
// instead of a map[epoch][]retired — a sweep only needs to pop while
// the oldest retiree's epoch is behind every active guard, rather than
// range the whole retired set on every reclaim attempt.

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/benz9527/crange/internal/xqueue"
	"github.com/benz9527/crange/internal/xlog"
)

// Guard is a scoped reservation returned by epochManager.Enter. While
// live, no node retired during its lifetime may be destroyed. Callers
// must call Leave exactly once, typically via defer.
type Guard struct {
	mgr      *epochManager
	epoch    uint64
	readerID uint64
	left     atomic.Bool
}

// Leave ends the guard's reservation. Safe to call multiple times;
// only the first call has any effect.
func (g *Guard) Leave() {
	if g == nil {
		return
	}
	if !g.left.CompareAndSwap(false, true) {
		return
	}
	g.mgr.readers.Delete(g.readerID)
}

// Epoch returns the global epoch this guard entered at.
func (g *Guard) Epoch() uint64 {
	if g == nil {
		return 0
	}
	return g.epoch
}

type readerState struct {
	epoch uint64
}

type retiree struct {
	n       *node
	destroy func()
}

// epochManager is the process-wide (per-List) epoch manager: readers
// register an entry epoch via Enter, writers call ScheduleFree when a
// node has been fully unlinked, and reclamation happens once every
// guard alive at schedule time has left.
type epochManager struct {
	globalEpoch  uint64
	readers      sync.Map // readerID -> *readerState
	nextReaderID uint64

	retired *xqueue.EpochQueue[retiree]

	log     *xlog.Logger
	metrics *Recorder

	tickerStop chan struct{}
	tickerDone chan struct{}
}

func newEpochManager(log *xlog.Logger, metrics *Recorder, sweepInterval time.Duration) *epochManager {
	if log == nil {
		log = xlog.NoOp()
	}
	m := &epochManager{
		globalEpoch: 1,
		retired:     xqueue.NewEpochQueue[retiree](),
		log:         log,
		metrics:     metrics,
	}
	if sweepInterval > 0 {
		m.tickerStop = make(chan struct{})
		m.tickerDone = make(chan struct{})
		go m.sweepLoop(sweepInterval)
	}
	return m
}

func (m *epochManager) sweepLoop(interval time.Duration) {
	defer close(m.tickerDone)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-m.tickerStop:
			return
		case <-t.C:
			// A quiescent collection never calls ScheduleFree again, so
			// nothing else advances the epoch; the periodic sweep must
			// do it itself or retirees from the last write would wait
			// forever for a mutation that may never come.
			m.Advance()
			m.tryReclaim()
		}
	}
}

// Close stops the background sweep goroutine, if any. Safe to call on
// a manager built without a sweep interval.
func (m *epochManager) Close() {
	if m.tickerStop == nil {
		return
	}
	close(m.tickerStop)
	<-m.tickerDone
}

// Enter records the caller as an active reader at the current global
// epoch. The returned Guard must be released via Leave.
func (m *epochManager) Enter() *Guard {
	readerID := atomic.AddUint64(&m.nextReaderID, 1)
	epoch := atomic.LoadUint64(&m.globalEpoch)
	state := &readerState{epoch: epoch}
	m.readers.Store(readerID, state)
	return &Guard{mgr: m, epoch: epoch, readerID: readerID}
}

// Advance bumps the global epoch, called after a write becomes visible.
func (m *epochManager) Advance() uint64 {
	return atomic.AddUint64(&m.globalEpoch, 1)
}

func (m *epochManager) currentEpoch() uint64 {
	return atomic.LoadUint64(&m.globalEpoch)
}

// ScheduleFree defers destroy until every guard active right now has
// left. It always advances the epoch first, so a guard entering after
// this call never gets grouped with the ones that must drain.
func (m *epochManager) ScheduleFree(n *node, destroy func()) {
	epoch := m.Advance()
	m.retired.Push(retiree{n: n, destroy: destroy}, int64(epoch))
	m.tryReclaim()
}

func (m *epochManager) findMinActiveEpoch() uint64 {
	minEpoch := m.currentEpoch()
	m.readers.Range(func(_, v any) bool {
		state := v.(*readerState)
		if state.epoch < minEpoch {
			minEpoch = state.epoch
		}
		return true
	})
	return minEpoch
}

// tryReclaim frees every retiree whose retirement epoch is strictly
// below the oldest currently active reader's entry epoch, and returns
// how many were freed.
func (m *epochManager) tryReclaim() int {
	minEpoch := m.findMinActiveEpoch()
	n := m.retired.DrainBelow(int64(minEpoch), func(r retiree) {
		r.n.markFreed()
		if r.destroy != nil {
			r.destroy()
		}
	})
	if n > 0 {
		m.log.Debugf("epoch sweep reclaimed %d node(s) below epoch %d", n, minEpoch)
		if m.metrics != nil {
			m.metrics.RecordReclaimed(n)
		}
	}
	return n
}

// PendingCount reports how many retirees are still waiting on the
// queue for their epoch to drain.
func (m *epochManager) PendingCount() int {
	return m.retired.Len()
}
