// Package xlog is a trimmed structured logger, adapted from xboot's
// xlog package (common_core.go, console_core.go, and the level/encoder
// enums in intf.go). The full teacher package builds a pluggable
// zapcore.Core per output sink — file rotation, buffered syncers, and
// adapter cores for gorm/go-redis/ants/fx consumers. This module has
// none of those consumers, so only the console/JSON core construction
// survives; everything else is dropped (see DESIGN.md).
package xlog

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

func (lvl Level) zapLevel() zapcore.Level {
	switch lvl {
	case LevelInfo:
		return zapcore.InfoLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	case LevelDebug:
		fallthrough
	default:
		return zapcore.DebugLevel
	}
}

type Encoding uint8

const (
	JSON Encoding = iota
	Console
)

func (e Encoding) encoderConstructor() func(zapcore.EncoderConfig) zapcore.Encoder {
	if e == Console {
		return zapcore.NewConsoleEncoder
	}
	return zapcore.NewJSONEncoder
}

// Logger wraps a *zap.SugaredLogger behind the handful of methods
// crange's write path calls (debug-level restart/CAS-exhaustion/sweep
// signals, per SPEC_FULL.md §5.1 — these are diagnostics, never errors,
// since every one of these conditions is a documented degrade-not-fail
// path).
type Logger struct {
	s *zap.SugaredLogger
}

var componentEncoderCfg = zapcore.EncoderConfig{
	MessageKey:   "msg",
	LevelKey:     "lvl",
	TimeKey:      "ts",
	EncodeLevel:  zapcore.CapitalLevelEncoder,
	EncodeTime:   zapcore.ISO8601TimeEncoder,
	NameKey:      "component",
	EncodeName:   zapcore.FullNameEncoder,
	CallerKey:    "callAt",
	EncodeCaller: zapcore.ShortCallerEncoder,
}

// New builds a console- or JSON-encoded logger writing to stdout at the
// given level.
func New(lvl Level, enc Encoding) *Logger {
	core := zapcore.NewCore(
		enc.encoderConstructor()(componentEncoderCfg),
		zapcore.Lock(os.Stdout),
		zap.NewAtomicLevelAt(lvl.zapLevel()),
	)
	return &Logger{s: zap.New(core).Sugar()}
}

// NoOp returns a Logger that discards everything, the default when a
// caller doesn't supply one via WithLogger.
func NoOp() *Logger {
	return &Logger{s: zap.NewNop().Sugar()}
}

func (l *Logger) Debugf(template string, args ...any) {
	if l == nil || l.s == nil {
		return
	}
	l.s.Debugf(template, args...)
}

func (l *Logger) Infof(template string, args ...any) {
	if l == nil || l.s == nil {
		return
	}
	l.s.Infof(template, args...)
}

func (l *Logger) Warnf(template string, args ...any) {
	if l == nil || l.s == nil {
		return
	}
	l.s.Warnf(template, args...)
}

func (l *Logger) Sync() error {
	if l == nil || l.s == nil {
		return nil
	}
	return l.s.Sync()
}
