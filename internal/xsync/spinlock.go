// Package xsync provides the per-node locking primitives crange's
// find-and-lock protocol is built on: a version-tagged Locker interface
// with a CAS spin-lock implementation and a sync.Mutex fallback, plus a
// cache-line-padded monotonic counter used to mint the version tokens.
package xsync

import (
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/cpu"
)

// Locker is a lock that is acquired and released under a caller-supplied
// version token rather than an opaque handle. Tokens come from a
// MonotonicVersion and are never zero, so an unlock carrying a stale
// token safely fails instead of releasing a lock some other goroutine
// has since reacquired — this is what lets a find-and-lock retry abandon
// a half-built lock chain without a compare-then-act race against the
// node it is unwinding.
type Locker interface {
	Lock(version uint64)
	TryLock(version uint64) bool
	// Unlock releases the lock iff it is currently held under version.
	// It reports whether the release happened.
	Unlock(version uint64) bool
}

// Kind selects a Locker implementation.
type Kind uint8

const (
	// SpinLock is a CAS-based spin lock with exponential backoff. It is
	// the default: crange's critical sections (pointer splices, index
	// link/unlink) are short enough that spinning beats parking.
	SpinLock Kind = iota
	// GoMutex wraps sync.Mutex, for workloads where critical sections
	// may be preempted or where GOMAXPROCS is small enough that spinning
	// just burns a core another goroutine needs.
	GoMutex
)

// NewLocker builds a Locker of the requested kind.
func NewLocker(k Kind) Locker {
	switch k {
	case GoMutex:
		return new(goMutex)
	case SpinLock:
		fallthrough
	default:
		return new(spinLock)
	}
}

const unlocked = 0

// spinLock is a single CAS word: 0 means free, any other value is the
// version token of the holder.
type spinLock uint64

func (l *spinLock) Lock(version uint64) {
	backoff := uint8(1)
	for !atomic.CompareAndSwapUint64((*uint64)(l), unlocked, version) {
		if backoff <= 32 {
			for i := uint8(0); i < backoff; i++ {
				ProcYield(20)
			}
		} else {
			runtime.Gosched()
		}
		if backoff <= 32 {
			backoff <<= 1
		}
	}
}

func (l *spinLock) TryLock(version uint64) bool {
	return atomic.CompareAndSwapUint64((*uint64)(l), unlocked, version)
}

func (l *spinLock) Unlock(version uint64) bool {
	return atomic.CompareAndSwapUint64((*uint64)(l), version, unlocked)
}

// goMutex adapts a sync.Mutex to Locker. The version token is ignored on
// the way in, since sync.Mutex has no notion of one, but Unlock still
// needs SOME way to report success; a goMutex is only ever unlocked by
// the goroutine that locked it, so it always succeeds.
type goMutex struct {
	mu sync.Mutex
}

func (m *goMutex) Lock(_ uint64)         { m.mu.Lock() }
func (m *goMutex) TryLock(_ uint64) bool { return m.mu.TryLock() }
func (m *goMutex) Unlock(_ uint64) bool  { m.mu.Unlock(); return true }

const cacheLinePadSize = unsafe.Sizeof(cpu.CacheLinePad{})

// MonotonicVersion mints the non-zero, monotonically increasing version
// tokens that Locker.Lock/Unlock are keyed by. It is padded to a full
// cache line on both sides so a hot version counter never shares a line
// with an unrelated field and drags it through the coherency protocol on
// every bump.
type MonotonicVersion struct {
	_   [cacheLinePadSize - unsafe.Sizeof(*new(uint64))]byte
	val uint64
	_   [cacheLinePadSize - unsafe.Sizeof(*new(uint64))]byte
}

// Next returns the next version, skipping zero since zero means
// "unlocked" to spinLock.
func (c *MonotonicVersion) Next() uint64 {
	v := atomic.AddUint64(&c.val, 1)
	if v == 0 {
		v = atomic.AddUint64(&c.val, 1)
	}
	return v
}
