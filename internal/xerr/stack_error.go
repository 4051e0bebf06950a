// Package xerr wraps precondition-violation errors with a captured call
// stack frame, adapted from xboot's lib/infra/err_stack.go Frame type
// (the teacher's own err_stack.go stops at Frame's formatting methods
// and never defines the constructor its callers elsewhere reference,
// so the wrapping error type and its constructor below
// are new, built directly on the retained Frame machinery).
package xerr

import (
	"errors"
	"fmt"
	"runtime"
)

// Frame is a single captured program counter. It has no fmt.Formatter
// method of its own; String renders it as "fullpath/file.go:line".
type Frame uintptr

func (f Frame) pc() uintptr { return uintptr(f) - 1 }

func (f Frame) file() string {
	fn := runtime.FuncForPC(f.pc())
	if fn == nil {
		return "unknownFile"
	}
	file, _ := fn.FileLine(f.pc())
	return file
}

func (f Frame) line() int {
	fn := runtime.FuncForPC(f.pc())
	if fn == nil {
		return 0
	}
	_, line := fn.FileLine(f.pc())
	return line
}

func (f Frame) String() string {
	return fmt.Sprintf("%s:%d", f.file(), f.line())
}

func caller(skip int) Frame {
	pc, _, _, _ := runtime.Caller(skip + 1)
	return Frame(pc)
}

// StackError wraps an underlying precondition-violation error with the
// frame of whoever constructed it, so a panic at the API boundary
// (spec's error taxonomy treats these as programmer bugs, not runtime
// conditions) carries an actionable "where".
type StackError struct {
	err   error
	frame Frame
}

func New(msg string) *StackError {
	return &StackError{err: errors.New(msg), frame: caller(1)}
}

func Wrap(err error) *StackError {
	if err == nil {
		return nil
	}
	return &StackError{err: err, frame: caller(1)}
}

func (e *StackError) Error() string {
	return fmt.Sprintf("%s (at %s)", e.err.Error(), e.frame.String())
}

func (e *StackError) Unwrap() error {
	return e.err
}
