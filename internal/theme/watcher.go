package theme

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"
)

// DefaultPollInterval is how often a file-backed theme is checked.
const DefaultPollInterval = time.Second

// Watcher polls a theme file and reloads it when its mtime moves.
type Watcher struct {
	mu       sync.RWMutex
	logger   *slog.Logger
	theme    *Theme
	interval time.Duration
	onChange func(css string)

	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// NewWatcher creates a watcher for t.
func NewWatcher(t *Theme, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		logger:   logger,
		theme:    t,
		interval: DefaultPollInterval,
	}
}

// SetPollInterval sets how often the file is checked. Call before Start.
func (w *Watcher) SetPollInterval(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.interval = d
}

// SetChangeCallback sets the callback receiving the reloaded CSS.
func (w *Watcher) SetChangeCallback(fn func(css string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// SetTheme switches the watched theme.
func (w *Watcher) SetTheme(t *Theme) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.theme = t
}

// Start begins polling.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	interval := w.interval
	w.mu.Unlock()

	go w.loop(ctx, interval)
}

// Stop halts polling and waits for the loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	done := w.doneCh
	w.mu.Unlock()
	<-done
}

func (w *Watcher) loop(ctx context.Context, interval time.Duration) {
	defer close(w.doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.check()
		}
	}
}

func (w *Watcher) check() {
	w.mu.Lock()
	t := w.theme
	fn := w.onChange
	if t == nil || t.Bundled() {
		w.mu.Unlock()
		return
	}
	changed, err := t.Reload()
	css := t.CSS
	w.mu.Unlock()

	if err != nil {
		if !os.IsNotExist(err) {
			w.logger.Warn("failed to reload theme", "path", t.Path, "error", err)
		}
		return
	}
	if changed && fn != nil {
		fn(css)
	}
}
