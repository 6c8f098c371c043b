package audio

import (
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher drops cached sounds when their files change on disk.
type Watcher struct {
	mu      sync.Mutex
	logger  *slog.Logger
	player  *Player
	watcher *fsnotify.Watcher
	paths   map[string]bool // cleaned sound paths
	dirs    map[string]bool
	done    chan struct{}
	running bool

	// onInvalidate is called after a path is dropped from the cache.
	onInvalidate func(path string)
}

// NewWatcher creates a watcher for player's cache.
func NewWatcher(player *Player, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		logger: logger,
		player: player,
		paths:  make(map[string]bool),
		dirs:   make(map[string]bool),
	}
}

// Watch adds a sound file. Its directory is watched so editors that replace
// files atomically are still seen.
func (w *Watcher) Watch(path string) {
	if path == "" {
		return
	}
	path = filepath.Clean(expandPath(path))

	w.mu.Lock()
	defer w.mu.Unlock()
	w.paths[path] = true
	dir := filepath.Dir(path)
	if w.dirs[dir] {
		return
	}
	w.dirs[dir] = true
	if w.watcher != nil {
		if err := w.watcher.Add(dir); err != nil {
			w.logger.Warn("failed to watch sound directory", "dir", dir, "error", err)
		}
	}
}

// Reset forgets every watched path.
func (w *Watcher) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	clear(w.paths)
}

// Start begins watching.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for dir := range w.dirs {
		if err := fw.Add(dir); err != nil {
			w.logger.Warn("failed to watch sound directory", "dir", dir, "error", err)
		}
	}

	w.watcher = fw
	w.done = make(chan struct{})
	w.running = true
	go w.watch(fw, w.done)

	w.logger.Debug("audio watcher started", "dirs", len(w.dirs))
	return nil
}

// Stop stops watching.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	w.running = false
	close(w.done)
	_ = w.watcher.Close()
	w.watcher = nil
	w.logger.Debug("audio watcher stopped")
}

func (w *Watcher) watch(fw *fsnotify.Watcher, done <-chan struct{}) {
	for {
		select {
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.changed(filepath.Clean(event.Name))

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("audio watcher error", "error", err)

		case <-done:
			return
		}
	}
}

func (w *Watcher) changed(path string) {
	w.mu.Lock()
	watched := w.paths[path]
	onInvalidate := w.onInvalidate
	w.mu.Unlock()
	if !watched {
		return
	}

	w.logger.Debug("sound file changed, invalidating cache", "path", path)
	w.player.InvalidateCache(path)
	if onInvalidate != nil {
		onInvalidate(path)
	}
}
