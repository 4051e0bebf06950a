package crange

import (
	"time"

	"github.com/benz9527/crange/internal/xlog"
	"github.com/benz9527/crange/internal/xsync"
)

// options mirrors the teacher's xSklOptions/XSklOption shape in
// lib/list/x_skl.go: a private config struct built up by a sequence of
// functional Option values passed to NewList.
type options struct {
	maxLevel      int
	levelGen      LevelGenerator
	lockKind      xsync.Kind
	log           *xlog.Logger
	metrics       *Recorder
	sweepInterval time.Duration
}

func defaultOptions() *options {
	return &options{
		maxLevel:      defaultMaxLevel,
		levelGen:      randomLevel,
		lockKind:      xsync.SpinLock,
		log:           xlog.NoOp(),
		metrics:       NoOpRecorder(),
		sweepInterval: defaultSweepInterval,
	}
}

// Option configures a List at construction time.
type Option func(*options)

// WithMaxLevel bounds the number of levels a node may be linked at,
// clamped to [1, 32] per §6's external contract.
func WithMaxLevel(n int) Option {
	return func(o *options) {
		if n < 1 {
			n = 1
		}
		if n > 32 {
			n = 32
		}
		o.maxLevel = n
	}
}

// WithLevelGenerator overrides the default geometric level generator,
// mirroring the teacher's pluggable SkipListRand hook.
func WithLevelGenerator(gen LevelGenerator) Option {
	return func(o *options) { o.levelGen = gen }
}

// WithSpinLock selects the CAS spin-lock Locker (the default).
func WithSpinLock() Option {
	return func(o *options) { o.lockKind = xsync.SpinLock }
}

// WithNativeMutex selects a sync.Mutex-backed Locker, mirroring the
// teacher's goNativeMutex option in mutexFactory.
func WithNativeMutex() Option {
	return func(o *options) { o.lockKind = xsync.GoMutex }
}

// WithLogger installs a structured logger for index CAS-exhaustion and
// epoch sweep diagnostics. Find-and-lock restarts are counted by the
// metrics recorder only, not logged. Defaults to a no-op logger.
func WithLogger(log *xlog.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithMetrics installs an observability recorder. Defaults to a no-op
// recorder, so metrics never gate correctness.
func WithMetrics(rec *Recorder) Option {
	return func(o *options) {
		if rec != nil {
			o.metrics = rec
		}
	}
}

// WithEpochSweepInterval overrides the background reclamation sweep's
// ticker cadence. A value <= 0 disables the background sweep goroutine
// entirely; ScheduleFree's synchronous opportunistic sweep still runs.
func WithEpochSweepInterval(d time.Duration) Option {
	return func(o *options) { o.sweepInterval = d }
}
