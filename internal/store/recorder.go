package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/toastd/internal/toast"
)

// DefaultRecorderBuffer is the number of closed toasts queued for writing.
const DefaultRecorderBuffer = 64

// Recorder writes destroyed toasts to a Store. Its Listener runs on the
// center's goroutine and never blocks; writes happen on the recorder's own
// goroutine and are dropped with a warning when the queue is full.
type Recorder struct {
	store  *Store
	logger *slog.Logger
	queue  chan Record

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewRecorder creates a recorder for s.
func NewRecorder(s *Store, buffer int, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	if buffer <= 0 {
		buffer = DefaultRecorderBuffer
	}
	return &Recorder{
		store:  s,
		logger: logger,
		queue:  make(chan Record, buffer),
	}
}

// Listener returns the center listener that feeds the recorder.
func (r *Recorder) Listener() toast.Listener {
	return func(ev toast.Event) {
		if ev.Type != toast.EventDestroyed || ev.Toast == nil {
			return
		}
		select {
		case r.queue <- RecordFromToast(ev.Toast):
		default:
			r.logger.Warn("history queue full, dropping entry", "toast_id", ev.Toast.ID)
		}
	}
}

// Start begins writing queued records.
func (r *Recorder) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	go r.run(ctx, r.stopCh, r.doneCh)
}

// Stop writes whatever is queued and stops the writer.
func (r *Recorder) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	close(r.stopCh)
	done := r.doneCh
	r.mu.Unlock()
	<-done
}

func (r *Recorder) run(ctx context.Context, stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	for {
		select {
		case rec := <-r.queue:
			r.write(ctx, rec)
		case <-stopCh:
			r.drain()
			return
		case <-ctx.Done():
			r.drain()
			return
		}
	}
}

func (r *Recorder) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		select {
		case rec := <-r.queue:
			r.write(ctx, rec)
		default:
			return
		}
	}
}

func (r *Recorder) write(ctx context.Context, rec Record) {
	if err := r.store.Add(ctx, rec); err != nil {
		r.logger.Warn("failed to record toast", "toast_id", rec.ID, "error", err)
		return
	}
	r.logger.Debug("recorded toast", "toast_id", rec.ID, "reason", rec.Reason)
}
