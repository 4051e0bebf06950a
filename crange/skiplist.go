package crange

import (
	"sync/atomic"
	"time"

	"github.com/benz9527/crange/internal/xlog"
	"github.com/benz9527/crange/internal/xsync"
)

// maxIndexRetries bounds the CAS-retry loop addIndex runs before giving
// up per spec §4.7's degrade-not-fail contract: the node simply stays
// absent from that level, which only costs lookup speed, never
// correctness. delIndex never gives up; it only uses this count to pace
// its contention log and metric.
const maxIndexRetries = 8

// List is the concurrent range collection: a lock-free-read,
// fine-grained-locked-write multi-level skip list of half-open integer
// intervals.
type List struct {
	maxLevel int
	head     *node

	epoch    *epochManager
	levelGen LevelGenerator
	lockKind xsync.Kind
	version  xsync.MonotonicVersion

	length atomic.Int64

	log     *xlog.Logger
	metrics *Recorder
}

// NewList builds an empty collection. maxLevel is clamped to [1, 32]
// per §6's external contract.
func NewList(opts ...Option) *List {
	cfg := defaultOptions()
	for _, opt := range opts {
		opt(cfg)
	}
	l := &List{
		maxLevel: cfg.maxLevel,
		levelGen: cfg.levelGen,
		lockKind: cfg.lockKind,
		log:      cfg.log,
		metrics:  cfg.metrics,
	}
	l.epoch = newEpochManager(l.log, l.metrics, cfg.sweepInterval)
	l.head = newNode(l, 0, 0, cfg.maxLevel, l.lockKind)
	l.head.curlevel.Store(int32(cfg.maxLevel))
	return l
}

// Close stops the background epoch sweep goroutine. The collection
// remains safe to read after Close; only reclamation stops advancing.
func (l *List) Close() {
	l.epoch.Close()
}

// Len returns the number of live nodes currently linked at level 0.
func (l *List) Len() int64 {
	return l.length.Load()
}

// NewNode allocates a node for later installation via Window.Replace.
// The skip list itself never allocates nodes during mutation, per
// spec's §7 allocation-failure note: callers allocate before entering a
// window.
func (l *List) NewNode(key, size uint64) *node {
	nlevel := l.levelGen(l.maxLevel, l.length.Load())
	return newNode(l, key, size, nlevel, l.lockKind)
}

// Search returns the first live-or-marked node overlapping [key,
// key+size), or nil if none exists, per spec §4.4. It is lock-free:
// readers only enter/leave an epoch guard around the traversal.
func (l *List) Search(key, size uint64) *node {
	guard := l.epoch.Enter()
	defer guard.Leave()
	return l.search(key, size)
}

// search is the traversal algorithm itself, callable both from the
// public lock-free Search and from Lock's candidate-positioning step
// (§4.5 step 2), both of which already hold an epoch guard.
func (l *List) search(key, size uint64) *node {
	forward := l.head
	for lvl := l.maxLevel - 1; lvl >= 0; lvl-- {
		next := forward.next[lvl].loadPtr()
		for next != nil && next.End() <= key {
			forward = next
			next = forward.next[lvl].loadPtr()
		}
		if lvl == 0 {
			for next != nil && next.key < key+size && next.End() <= key {
				forward = next
				next = forward.next[0].loadPtr()
			}
			if next != nil && next.overlaps(key, size) {
				return next
			}
			return nil
		}
	}
	return nil
}

// findPredecessor descends from the top level to level 0, advancing
// while the next node's interval ends at or before key, landing on the
// last node whose interval ends at or before key — the §4.5 step 2
// "candidate prev".
func (l *List) findPredecessor(key uint64) *node {
	forward := l.head
	for lvl := l.maxLevel - 1; lvl >= 0; lvl-- {
		next := forward.next[lvl].loadPtr()
		for next != nil && next.End() <= key {
			forward = next
			next = forward.next[lvl].loadPtr()
		}
	}
	return forward
}

// findPredAtLevel finds the node at the given level whose next pointer
// should reference a node with the given key, starting its search from
// guess (§4.7's "traversal starting from pred_guess"). guess must be a
// node known to be linked at level lvl and known not to be past key;
// the sentinel head always qualifies.
func (l *List) findPredAtLevel(lvl int, key uint64, guess *node) *node {
	forward := guess
	if forward == nil || forward.key >= key || forward.nlevel <= lvl {
		forward = l.head
	}
	next := forward.next[lvl].loadPtr()
	for next != nil && next.key < key {
		forward = next
		next = forward.next[lvl].loadPtr()
	}
	return forward
}

// bumpCurLevelTo raises n.curlevel to newTop iff it isn't already there
// or higher; used after a successful addIndex.
func bumpCurLevelTo(n *node, newTop int32) {
	for {
		old := n.curlevel.Load()
		if old >= newTop {
			return
		}
		if n.curlevel.CompareAndSwap(old, newTop) {
			return
		}
	}
}

// lowerCurLevelTo drops n.curlevel to newTop iff it is currently higher;
// used after a successful delIndex.
func lowerCurLevelTo(n *node, newTop int32) {
	for {
		old := n.curlevel.Load()
		if old <= newTop {
			return
		}
		if n.curlevel.CompareAndSwap(old, newTop) {
			return
		}
	}
}

// addIndex splices n in at level lvl (1-based index into n.next, i.e.
// n.next[lvl]), per §4.7: find the predecessor at that level, CAS its
// next pointer from the observed successor to n, retrying a bounded
// number of times before degrading (n simply stays off that level).
func (l *List) addIndex(lvl int, n *node, predGuess *node) bool {
	for attempt := 0; attempt < maxIndexRetries; attempt++ {
		pred := l.findPredAtLevel(lvl, n.key, predGuess)
		succ, mark := pred.next[lvl].load()
		n.next[lvl].storePtr(succ)
		if pred.next[lvl].cmpxch(succ, mark, n, mark) {
			bumpCurLevelTo(n, int32(lvl+1))
			return true
		}
	}
	l.log.Debugf("crange: addIndex exhausted retries at level %d for key %d", lvl, n.key)
	l.countIndexExhausted()
	return false
}

// delIndex unlinks n from level lvl via CAS on pred.next[lvl], per
// §4.7. If n is already gone from this level (another helper beat us
// to it), that counts as success. Unlike addIndex, a failure here isn't
// allowed to give up: leaving a higher level linked while a lower one
// has already been removed would break the subset-property invariant
// (§3 invariant 2) permanently instead of merely degrading lookup
// speed, so this retries with a fresh predecessor until it succeeds,
// logging once per maxIndexRetries worth of contention.
func (l *List) delIndex(lvl int, n *node, predGuess *node) bool {
	for attempt := 0; ; attempt++ {
		pred := l.findPredAtLevel(lvl, n.key, predGuess)
		cur, mark := pred.next[lvl].load()
		if cur != n {
			lowerCurLevelTo(n, int32(lvl))
			return true
		}
		newNext, _ := n.next[lvl].load()
		if pred.next[lvl].cmpxch(n, mark, newNext, mark) {
			lowerCurLevelTo(n, int32(lvl))
			return true
		}
		if attempt > 0 && attempt%maxIndexRetries == 0 {
			l.log.Debugf("crange: delIndex still contending at level %d for key %d after %d attempts", lvl, n.key, attempt)
			l.countIndexExhausted()
		}
	}
}

// unlinkHigherLevels removes n from every level above 0, top-down, each
// successful delIndex lowering curlevel by one step until it reaches
// zero (§4.8's UNLINKED_L0 → FREEABLE transition).
func (l *List) unlinkHigherLevels(n *node) {
	for lvl := int(n.curlevel.Load()) - 1; lvl >= 1; lvl-- {
		l.delIndex(lvl, n, l.head)
	}
	// curlevel now only counts the level-0 link; once that is gone too,
	// the node is linked nowhere.
	if n.state.isSet(flagUnlinkedL0) {
		lowerCurLevelTo(n, 0)
	}
	n.maybeMarkFreeable()
}

// unlinkLevel0 physically removes n from the level-0 chain via CAS on
// pred.next[0], preserving pred's own mark bit. Returns false if pred's
// next[0] no longer points at n (someone else already unlinked it).
func (l *List) unlinkLevel0(pred, n *node) bool {
	_, predMark := pred.next[0].load()
	next, _ := n.next[0].load()
	if !pred.next[0].cmpxch(n, predMark, next, predMark) {
		return false
	}
	n.markUnlinkedL0()
	return true
}

// scheduleReclaim retires n for destruction once every guard active
// right now has left, and removes n from the remaining index levels.
func (l *List) scheduleReclaim(n *node) {
	l.unlinkHigherLevels(n)
	l.length.Add(-1)
	l.epoch.ScheduleFree(n, func() {})
}

// Lock implements §4.5 find-and-lock: it returns a locked Window
// covering every live node overlapping [key, key+size), retrying the
// whole hand-over-hand walk on any concurrent-mutation revalidation
// failure. This operation never fails; per §4.5 it only retries.
func (l *List) Lock(key, size uint64) *Window {
	guard := l.epoch.Enter()
	version := l.version.Next()

	for {
		prev := l.findPredecessor(key)
		prev.lock.Lock(version)

		succNode := prev.next[0].loadPtr()
		if prev.Deleted() || !validPredecessor(succNode, prev, key, size) {
			prev.lock.Unlock(version)
			l.countRestart()
			continue
		}

		w, restart := l.walkAndLock(prev, key, size, version, guard)
		if restart {
			continue
		}
		return w
	}
}

// validPredecessor implements §4.5 step 4 in full: prev's recorded
// successor (if any) must still be a node whose key is at or beyond
// prev's own interval end, and must either start at or past k or
// already overlap [k, k+size) — the exact guard a concurrent insert
// that lands strictly between prev and the query range would fail,
// forcing a restart instead of walkAndLock silently stepping past it.
func validPredecessor(succ *node, prev *node, key, size uint64) bool {
	if succ == nil {
		return true
	}
	if succ.key < prev.End() {
		return false
	}
	return succ.key >= key || succ.overlaps(key, size)
}

// walkAndLock performs §4.5 step 5: walk forward from the locked prev,
// locking each node, helping unlink any marked node found along the
// way, and collecting the overlap window. Returns (nil, true) if a
// concurrent mutation forced a restart (all locks already released).
func (l *List) walkAndLock(prev *node, key, size, version uint64, guard *Guard) (*Window, bool) {
	locked := []*node{prev}
	var oldChain []*node
	curr := prev.next[0].loadPtr()

	for {
		if curr == nil {
			return l.finishWindow(key, size, version, guard, locked, oldChain, nil), false
		}
		curr.lock.Lock(version)

		if curr.Deleted() {
			if l.unlinkLevel0(prev, curr) {
				curr.lock.Unlock(version)
				curr = prev.next[0].loadPtr()
				continue
			}
			// Someone else already moved prev.next[0]; our view of
			// prev is stale. Unwind and restart from the top.
			curr.lock.Unlock(version)
			unlockAll(locked, version)
			l.countRestart()
			return nil, true
		}

		if curr.overlaps(key, size) {
			locked = append(locked, curr)
			oldChain = append(oldChain, curr)
			prev = curr
			curr = curr.next[0].loadPtr()
			continue
		}

		if curr.key >= key+size {
			locked = append(locked, curr)
			return l.finishWindow(key, size, version, guard, locked, oldChain, curr), false
		}

		// curr ends at-or-before key but wasn't caught by prev's
		// position — a concurrent insert moved underneath us.
		curr.lock.Unlock(version)
		unlockAll(locked, version)
		l.countRestart()
		return nil, true
	}
}

func (l *List) finishWindow(key, size, version uint64, guard *Guard, locked, oldChain []*node, succ *node) *Window {
	return &Window{
		list:     l,
		key:      key,
		size:     size,
		version:  version,
		guard:    guard,
		locked:   locked,
		oldChain: oldChain,
		succ:     succ,
		prev:     locked[0],
	}
}

func unlockAll(locked []*node, version uint64) {
	for _, n := range locked {
		n.lock.Unlock(version)
	}
}

func (l *List) countRestart() {
	if l.metrics != nil {
		l.metrics.RecordLockRestart()
	}
}

func (l *List) countIndexExhausted() {
	if l.metrics != nil {
		l.metrics.RecordIndexExhausted()
	}
}

// defaultSweepInterval is the default cadence for the epoch manager's
// background reclaim sweep; ScheduleFree also triggers an opportunistic
// sweep synchronously, so this only matters for a quiescent collection
// with retirees still parked behind a slow reader.
const defaultSweepInterval = 50 * time.Millisecond
