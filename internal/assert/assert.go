//go:build !noassert

package assert

import (
	"fmt"
	"runtime"
	"sync/atomic"
)

var disabled atomic.Bool

// Disable turns off invariant checks for the whole process.
func Disable() {
	disabled.Store(true)
}

// Enable turns invariant checks back on after [Disable].
func Enable() {
	disabled.Store(false)
}

func caller() string {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		return "unknown"
	}
	return fmt.Sprintf("'%s#%d'", file, line)
}

// Invariant panics with the label and call site if ok is false.
func Invariant(label string, ok bool) {
	if disabled.Load() {
		return
	}
	if !ok {
		panic(fmt.Sprintf("invariant '%s' violated at %s", label, caller()))
	}
}

// Invariantf is like [Invariant], but the label is built with [fmt.Sprintf] only when the check fails.
func Invariantf(ok bool, format string, args ...any) {
	if disabled.Load() {
		return
	}
	if !ok {
		panic(fmt.Sprintf("invariant '%s' violated at %s", fmt.Sprintf(format, args...), caller()))
	}
}
