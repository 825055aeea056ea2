// Package panics provides goroutine wrappers that recover panics, log
// them, and fail safe instead of taking the process down — the policy the
// Template Builder worker goroutine relies on (see domain/projection.Worker).
package panics

import (
	"runtime/debug"

	"github.com/btcsuite/btclog"
)

// HandlePanic recovers a panic, logs it at Critical level along with the
// goroutine's stack trace at spawn time. It returns nothing and does nothing
// when there is no panic. It is meant to be deferred at the top of a
// wrapped goroutine.
func HandlePanic(log btclog.Logger, goroutineStackTrace []byte) {
	err := recover()
	if err == nil {
		return
	}

	log.Criticalf("recovered panic: %+v", err)
	if goroutineStackTrace != nil {
		log.Criticalf("goroutine stack trace: %s", goroutineStackTrace)
	}
	log.Criticalf("panic stack trace: %s", debug.Stack())
}

// GoroutineWrapperFunc returns a goroutine wrapper function that recovers
// and logs panics raised by f instead of letting them crash the process.
func GoroutineWrapperFunc(log btclog.Logger) func(f func()) {
	return func(f func()) {
		stackTrace := debug.Stack()
		go func() {
			defer HandlePanic(log, stackTrace)
			f()
		}()
	}
}
