// Package schedule provides the timing primitives a toast center runs on:
// delayed callbacks, next-frame callbacks and posted work, all executed on a
// single goroutine.
package schedule

import (
	"context"
	"errors"
	"time"
)

// DefaultFrameInterval approximates one display refresh.
const DefaultFrameInterval = 16 * time.Millisecond

// ErrLoopStopped is returned when work is submitted to a stopped loop.
var ErrLoopStopped = errors.New("event loop stopped")

// Timer is a cancellable scheduled callback.
type Timer interface {
	// Stop cancels the callback. It reports whether the call prevented the
	// callback from running.
	Stop() bool
}

// Scheduler runs callbacks on one logical thread.
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
	NextFrame(fn func()) Timer
	Post(fn func())
}

// Runner executes fn on the scheduler's thread and waits for it.
type Runner interface {
	Do(ctx context.Context, fn func()) error
}
