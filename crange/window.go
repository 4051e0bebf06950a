package crange

import "sync/atomic"

// Window is the RAII "crange_locked" handle of §4.6: a locked
// predecessor..successor run covering a query [key, key+size). Go has
// no destructors, so callers release it explicitly — typically via
// defer immediately after Lock returns, mirroring the teacher's own
// defer-based cleanup idiom throughout lib/list.
type Window struct {
	list *List

	key, size uint64
	version   uint64
	guard     *Guard

	// locked is every node whose lock this window holds, in
	// predecessor-first order: prev, oldChain..., succ (succ present
	// only if non-nil). Release walks it in that order.
	locked []*node

	prev     *node
	oldChain []*node // live nodes overlapping [key, key+size) at Lock time, in order
	succ     *node   // first live node with key >= key+size, or nil

	released atomic.Bool
}

// First returns the first node in the window's overlap chain, or nil
// if the window is empty.
func (w *Window) First() *node {
	if len(w.oldChain) == 0 {
		return nil
	}
	return w.oldChain[0]
}

// Last returns the last node in the window's overlap chain, or nil if
// the window is empty.
func (w *Window) Last() *node {
	if len(w.oldChain) == 0 {
		return nil
	}
	return w.oldChain[len(w.oldChain)-1]
}

// Succ returns the first live node beyond the window, or nil at the
// tail of the collection.
func (w *Window) Succ() *node {
	return w.succ
}

// Prev returns the node immediately preceding the window.
func (w *Window) Prev() *node {
	return w.prev
}

// Release unlocks every node this window holds, predecessor-first, and
// leaves the epoch guard entered for the window's lifetime. Safe to
// call more than once; only the first call has effect.
func (w *Window) Release() {
	if !w.released.CompareAndSwap(false, true) {
		return
	}
	unlockAll(w.locked, w.version)
	w.guard.Leave()
}

func (w *Window) checkOpen() {
	if w.released.Load() {
		panic(ErrWindowReleased)
	}
}

// sameChain reports whether newChain is, node-for-node, the same
// sequence of pointers as the window's current oldChain — the
// idempotence case of §8: replacing a window with itself is a
// documented no-op, observable as zero mark changes at level 0.
func sameChain(oldChain, newChain []*node) bool {
	if len(oldChain) != len(newChain) {
		return false
	}
	for i := range oldChain {
		if oldChain[i] != newChain[i] {
			return false
		}
	}
	return true
}

// Replace implements §4.6: atomically substitutes the window's current
// overlap chain with newChain, a (possibly empty) sequence of freshly
// allocated, pairwise-disjoint, sorted nodes fully contained in
// [key, key+size). It never returns an error: precondition violations
// are programmer bugs and panic per §7's error taxonomy.
func (w *Window) Replace(newChain []*node) {
	w.checkOpen()
	if err := checkChain(newChain, w.key, w.size); err != nil {
		panic(err)
	}
	if sameChain(w.oldChain, newChain) {
		return
	}

	for i := 0; i+1 < len(newChain); i++ {
		newChain[i].next[0].storePtr(newChain[i+1])
	}
	if len(newChain) > 0 {
		newChain[len(newChain)-1].next[0].storePtr(w.succ)
	}

	oldHead := w.succ
	if len(w.oldChain) > 0 {
		oldHead = w.oldChain[0]
	}
	newHead := w.succ
	if len(newChain) > 0 {
		newHead = newChain[0]
	}

	// Mark every old node before publishing, so no reader can observe
	// the chain already spliced out at level 0 with a node that still
	// claims to be live.
	for _, n := range w.oldChain {
		n.next[0].storeMark()
	}

	_, predMark := w.prev.next[0].load()
	if !w.prev.next[0].cmpxch(oldHead, predMark, newHead, predMark) {
		// prev is exclusively locked by this window for its entire
		// lifetime; only this goroutine can mutate prev.next[0].
		panic("crange: unreachable — prev.next[0] CAS raced under lock")
	}

	for _, n := range newChain {
		w.list.length.Add(1)
		bumpCurLevelTo(n, 1)
	}
	for _, n := range w.oldChain {
		n.markUnlinkedL0()
		w.list.scheduleReclaim(n)
	}
	for _, n := range newChain {
		for lvl := 1; lvl < n.nlevel; lvl++ {
			w.list.addIndex(lvl, n, w.prev)
		}
	}

	w.oldChain = newChain
	if w.list.metrics != nil {
		w.list.metrics.RecordWindowSize(len(newChain))
	}
}

// ReplaceOne is the §4.6 degenerate case: swap the window's single
// existing node for one new node with the same interval.
func (w *Window) ReplaceOne(repl *node) {
	if len(w.oldChain) != 1 {
		panic("crange: ReplaceOne requires a window holding exactly one node")
	}
	old := w.oldChain[0]
	if repl.key != old.key || repl.size != old.size {
		panic("crange: ReplaceOne requires repl's interval to match the replaced node's")
	}
	w.Replace([]*node{repl})
}
