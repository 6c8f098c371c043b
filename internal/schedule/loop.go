package schedule

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Loop is a Scheduler backed by a single goroutine. Delayed callbacks use
// time.AfterFunc and hop onto the loop before running.
type Loop struct {
	logger *slog.Logger
	frame  time.Duration

	mu      sync.Mutex
	queue   []func()
	running bool
	stopped bool

	wake   chan struct{}
	stopCh chan struct{}
	doneCh chan struct{}
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithFrameInterval sets the delay used by NextFrame.
func WithFrameInterval(d time.Duration) LoopOption {
	return func(l *Loop) {
		if d > 0 {
			l.frame = d
		}
	}
}

// NewLoop creates a stopped loop. Call Start before submitting work that
// must run.
func NewLoop(logger *slog.Logger, opts ...LoopOption) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loop{
		logger: logger,
		frame:  DefaultFrameInterval,
		wake:   make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start launches the loop goroutine. Subsequent calls are no-ops.
func (l *Loop) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running || l.stopped {
		return
	}
	l.running = true
	go l.run()
}

// Stop halts the loop and waits for the callback in flight to finish.
// Queued callbacks are dropped.
func (l *Loop) Stop() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.stopped = true
	wasRunning := l.running
	l.queue = nil
	l.mu.Unlock()

	close(l.stopCh)
	if wasRunning {
		<-l.doneCh
	}
}

func (l *Loop) run() {
	defer close(l.doneCh)
	for {
		select {
		case <-l.wake:
			l.drain()
		case <-l.stopCh:
			return
		}
	}
}

func (l *Loop) drain() {
	for {
		l.mu.Lock()
		if l.stopped || len(l.queue) == 0 {
			l.mu.Unlock()
			return
		}
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()

		for _, fn := range batch {
			l.exec(fn)
		}
	}
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("panic in scheduled callback", "panic", r)
		}
	}()
	fn()
}

// Now returns the wall clock.
func (l *Loop) Now() time.Time {
	return time.Now()
}

// Post queues fn to run on the loop. Work posted after Stop is discarded.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// AfterFunc runs fn on the loop after d.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	lt := &loopTimer{}
	lt.timer = time.AfterFunc(d, func() {
		l.Post(func() {
			// The timer may have been stopped after it fired but before
			// this callback reached the loop.
			if lt.stopped.Load() {
				return
			}
			lt.fired.Store(true)
			fn()
		})
	})
	return lt
}

// NextFrame runs fn on the loop after one frame interval.
func (l *Loop) NextFrame(fn func()) Timer {
	return l.AfterFunc(l.frame, fn)
}

// Do runs fn on the loop and waits for it to return. When ctx ends before
// the loop reaches fn, Do returns ctx.Err() and fn is skipped. It must not be
// called from the loop goroutine.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	l.mu.Lock()
	stopped := l.stopped
	l.mu.Unlock()
	if stopped {
		return ErrLoopStopped
	}

	// claimed is won either by the loop, which then runs fn, or by a caller
	// whose context ended first, in which case fn never runs.
	var claimed atomic.Bool
	done := make(chan struct{})
	l.Post(func() {
		defer close(done)
		if claimed.CompareAndSwap(false, true) {
			fn()
		}
	})

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		if claimed.CompareAndSwap(false, true) {
			return ctx.Err()
		}
		select {
		case <-done:
			return nil
		case <-l.stopCh:
			return ErrLoopStopped
		}
	case <-l.stopCh:
		return ErrLoopStopped
	}
}

type loopTimer struct {
	timer   *time.Timer
	stopped atomic.Bool
	fired   atomic.Bool
}

func (t *loopTimer) Stop() bool {
	if t.stopped.Swap(true) {
		return false
	}
	t.timer.Stop()
	return !t.fired.Load()
}
