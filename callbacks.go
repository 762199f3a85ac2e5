package podbox

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// StdoutFunc, StderrFunc, and ExitFunc are the callback shapes a caller
// registers on a detached Process via OnStdout/OnStderr/OnExit. The
// Process's reader goroutine is already running when RunDetached returns,
// so output that arrives before a callback is registered is not
// delivered to that callback.
type StdoutFunc func(data []byte)
type StderrFunc func(data []byte)
type ExitFunc func(exitCode int)

// callbackRegistry holds append-only callback lists. Dispatch never
// mutates the lists; it takes a copy of them under the mutex before each
// dispatch, so callbacks may be registered while a Process is running.
type callbackRegistry struct {
	mu      sync.Mutex
	stdout  []StdoutFunc
	stderr  []StderrFunc
	exit    []ExitFunc
}

func (r *callbackRegistry) onStdout(f StdoutFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stdout = append(r.stdout, f)
}

func (r *callbackRegistry) onStderr(f StderrFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stderr = append(r.stderr, f)
}

func (r *callbackRegistry) onExit(f ExitFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exit = append(r.exit, f)
}

func (r *callbackRegistry) snapshot() ([]StdoutFunc, []StderrFunc, []ExitFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]StdoutFunc(nil), r.stdout...), append([]StderrFunc(nil), r.stderr...), append([]ExitFunc(nil), r.exit...)
}

// dispatchStdout/dispatchStderr/dispatchExit call every registered
// callback, recovering from and logging any panic so a broken caller
// callback can never take down the reader goroutine. Besides this, the
// only systematic error suppression in this package is
// ignoreNotFoundOrNotRunning, used by Shutdown, Destroy, Stop, and Prune.
func dispatchStdout(fns []StdoutFunc, data []byte) {
	for _, f := range fns {
		safeCall(func() { f(data) })
	}
}

func dispatchStderr(fns []StderrFunc, data []byte) {
	for _, f := range fns {
		safeCall(func() { f(data) })
	}
}

func dispatchExit(fns []ExitFunc, code int) {
	for _, f := range fns {
		safeCall(func() { f(code) })
	}
}

func safeCall(f func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Debug().Interface("panic", r).Msg("podbox: callback panicked, ignoring")
		}
	}()
	f()
}
