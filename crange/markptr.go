package crange

import "sync/atomic"

// markState is the payload behind a markPtr: the next-pointer at some
// level plus the logical-deletion mark that, at level 0, is the node's
// tombstone bit. Bundling them in one struct and swapping the struct
// pointer as a whole is what lets a single CAS observe or advance
// pointer and mark together, the same guarantee the teacher's
// x_conc_skip_list.go gets from its marker-node sentinel.
type markState struct {
	next *node
	mark bool
}

// markPtr is one level's worth of forward link: an atomically
// swappable *markState. It is never nil after construction; an empty
// forward pointer is represented by a markState with next == nil.
type markPtr struct {
	state atomic.Pointer[markState]
}

func newMarkPtr(next *node, mark bool) markPtr {
	var mp markPtr
	mp.state.Store(&markState{next: next, mark: mark})
	return mp
}

// loadPtr returns the linked node with the mark stripped away.
func (mp *markPtr) loadPtr() *node {
	return mp.state.Load().next
}

// loadMark returns the mark bit alone.
func (mp *markPtr) loadMark() bool {
	return mp.state.Load().mark
}

// load returns both views in one read, avoiding a torn snapshot across
// two separate loads of a value that may change between them.
func (mp *markPtr) load() (next *node, mark bool) {
	s := mp.state.Load()
	return s.next, s.mark
}

// storePtr CAS-loops the pointer forward while preserving whatever mark
// is currently set.
func (mp *markPtr) storePtr(next *node) {
	for {
		old := mp.state.Load()
		if old.next == next {
			return
		}
		n := &markState{next: next, mark: old.mark}
		if mp.state.CompareAndSwap(old, n) {
			return
		}
	}
}

// storeMark CAS-loops the mark to true while preserving the current
// pointer. Marks are one-way: once true, storeMark is a no-op, matching
// spec's mark-monotonicity invariant.
func (mp *markPtr) storeMark() {
	for {
		old := mp.state.Load()
		if old.mark {
			return
		}
		n := &markState{next: old.next, mark: true}
		if mp.state.CompareAndSwap(old, n) {
			return
		}
	}
}

// cmpxch atomically replaces the whole (ptr, mark) pair, succeeding only
// if the currently observed pair equals (oldNext, oldMark).
func (mp *markPtr) cmpxch(oldNext *node, oldMark bool, newNext *node, newMark bool) bool {
	old := mp.state.Load()
	if old.next != oldNext || old.mark != oldMark {
		return false
	}
	return mp.state.CompareAndSwap(old, &markState{next: newNext, mark: newMark})
}
