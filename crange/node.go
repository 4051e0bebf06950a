package crange

import (
	"sync/atomic"

	"github.com/benz9527/crange/internal/xsync"
)

// State is the node lifecycle position from the state machine: a node
// only ever moves left to right, never backward.
type State uint8

const (
	StateLive State = iota
	StateMarked
	StateUnlinkedL0
	StateFreeable
	StateFreed
)

func (s State) String() string {
	switch s {
	case StateLive:
		return "live"
	case StateMarked:
		return "marked"
	case StateUnlinkedL0:
		return "unlinked-l0"
	case StateFreeable:
		return "freeable"
	case StateFreed:
		return "freed"
	default:
		return "unknown"
	}
}

// Bit flags backing nodeState. Set monotonically, one direction only,
// mirroring the teacher's flagBits pattern in x_conc_skl_node.go but
// sized down to the handful of independent facts this state machine
// actually needs to track (markptr.go's markPtr already owns the
// level-0 mark bit itself; these track the *later* phases that follow
// it: has del_index unlinked every level yet, has the epoch drained).
const (
	flagUnlinkedL0 uint32 = 1 << iota
	flagFreeable
	flagFreed
)

// nodeState is an atomic bit set, set-only (bits never clear), queried
// by State() alongside the node's own mark bit and curlevel to derive
// the externally visible lifecycle position.
type nodeState struct {
	bits uint32
}

func (f *nodeState) set(bit uint32) {
	for {
		old := atomic.LoadUint32(&f.bits)
		if old&bit == bit {
			return
		}
		if atomic.CompareAndSwapUint32(&f.bits, old, old|bit) {
			return
		}
	}
}

func (f *nodeState) isSet(bit uint32) bool {
	return atomic.LoadUint32(&f.bits)&bit != 0
}

// node is a single range interval, owned by the collection that
// created it. Its key/size are immutable once constructed; everything
// else is mutated only under the collection's find-and-lock protocol
// (concurrency-safe by construction) or by the epoch manager at final
// reclamation.
type node struct {
	key, size uint64

	// nlevel is fixed at construction: how many levels this node was
	// chosen to appear on.
	nlevel int

	// curlevel is the highest level this node is currently linked at,
	// 0..nlevel, decremented bottom-up as delIndex unlinks it.
	curlevel atomic.Int32

	// next holds one markPtr per level, 0..nlevel-1. next[0]'s mark is
	// the node's logical-deletion flag; marks at higher levels are
	// unused by the algorithms (they always install unmarked).
	next []markPtr

	lock xsync.Locker

	state nodeState

	// owner routes this node back to the collection's epoch manager
	// for reclamation; it does not imply ownership the other way.
	owner *List
}

func newNode(owner *List, key, size uint64, nlevel int, lockKind xsync.Kind) *node {
	n := &node{
		key:    key,
		size:   size,
		nlevel: nlevel,
		lock:   xsync.NewLocker(lockKind),
		owner:  owner,
		next:   make([]markPtr, nlevel),
	}
	for l := range n.next {
		n.next[l] = newMarkPtr(nil, false)
	}
	return n
}

// Key returns the node's interval start.
func (n *node) Key() uint64 { return n.key }

// Size returns the node's interval length.
func (n *node) Size() uint64 { return n.size }

// End returns the exclusive interval end, key+size.
func (n *node) End() uint64 { return n.key + n.size }

// Deleted reports the node's level-0 mark, the logical-deletion flag.
func (n *node) Deleted() bool {
	return n.next[0].loadMark()
}

// Level returns curlevel, the highest level the node is currently
// linked at.
func (n *node) Level() int32 {
	return n.curlevel.Load()
}

// NLevel returns the node's fixed designed level count.
func (n *node) NLevel() int {
	return n.nlevel
}

// overlaps reports whether this node's interval overlaps [key, key+size).
func (n *node) overlaps(key, size uint64) bool {
	return n.key < key+size && key < n.key+n.size
}

// State derives the externally observable lifecycle position from the
// node's mark bit, unlink/reclaim flags, and curlevel.
func (n *node) State() State {
	switch {
	case n.state.isSet(flagFreed):
		return StateFreed
	case n.state.isSet(flagFreeable):
		return StateFreeable
	case n.state.isSet(flagUnlinkedL0):
		return StateUnlinkedL0
	case n.Deleted():
		return StateMarked
	default:
		return StateLive
	}
}

// markUnlinkedL0 records that the node has been physically removed
// from the level-0 chain (MARKED → UNLINKED_L0). If curlevel has
// already reached 0 by the time this is observed, it immediately
// becomes freeable too.
func (n *node) markUnlinkedL0() {
	n.state.set(flagUnlinkedL0)
	n.maybeMarkFreeable()
}

// maybeMarkFreeable promotes UNLINKED_L0 → FREEABLE once curlevel has
// dropped to zero, i.e. every level's outgoing link has been removed.
func (n *node) maybeMarkFreeable() {
	if n.state.isSet(flagUnlinkedL0) && n.curlevel.Load() == 0 {
		n.state.set(flagFreeable)
	}
}

// markFreed records the terminal FREEABLE → FREED transition; called
// only by the epoch manager's reclaim sweep.
func (n *node) markFreed() {
	n.state.set(flagFreed)
}
