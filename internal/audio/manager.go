package audio

import (
	"context"
	"log/slog"
	"maps"
	"os"
	"sync"

	"github.com/jmylchreest/toastd/internal/config"
	"github.com/jmylchreest/toastd/internal/model"
	"github.com/jmylchreest/toastd/internal/toast"
)

const playQueueSize = 16

// Manager plays the sound configured for a toast's kind when it appears.
type Manager struct {
	mu      sync.RWMutex
	logger  *slog.Logger
	player  *Player
	watcher *Watcher
	enabled bool
	sounds  map[model.Kind]string

	queue   chan model.Kind
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// NewManager creates a manager from cfg.
func NewManager(cfg *config.Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	player := NewPlayer(logger)
	m := &Manager{
		logger:  logger,
		player:  player,
		watcher: NewWatcher(player, logger),
		sounds:  make(map[model.Kind]string),
		queue:   make(chan model.Kind, playQueueSize),
	}
	m.configure(cfg)
	return m
}

// configure loads volume, the enabled flag and per-kind sounds. Missing
// files are skipped with a warning.
func (m *Manager) configure(cfg *config.Config) {
	sounds := make(map[model.Kind]string)
	for _, kind := range model.Kinds() {
		path := cfg.SoundForKind(kind)
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			m.logger.Warn("sound file not found", "kind", kind, "path", path)
			continue
		}
		sounds[kind] = path
		m.logger.Debug("loaded sound", "kind", kind, "path", path)
	}

	m.player.SetVolume(float64(cfg.Audio.Volume) / 100.0)

	m.mu.Lock()
	m.enabled = cfg.Audio.Enabled
	m.sounds = sounds
	m.mu.Unlock()

	m.watcher.Reset()
	for _, path := range sounds {
		m.watcher.Watch(path)
	}
}

// Enabled reports whether sounds play.
func (m *Manager) Enabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enabled
}

// Sound returns the sound file for kind.
func (m *Manager) Sound(kind model.Kind) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	path, ok := m.sounds[kind]
	return path, ok
}

// Start preloads sounds, starts the file watcher and the playback worker.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	sounds := maps.Clone(m.sounds)
	m.mu.Unlock()

	m.preload(sounds)
	if err := m.watcher.Start(); err != nil {
		m.logger.Warn("failed to watch sound files", "error", err)
	}
	go m.run(ctx, m.stopCh, m.doneCh)

	m.logger.Info("audio manager started", "sounds", len(sounds))
	return nil
}

// Stop shuts down playback and releases the speaker.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stopCh)
	done := m.doneCh
	m.mu.Unlock()

	<-done
	m.watcher.Stop()
	m.player.Close()
	m.logger.Debug("audio manager stopped")
}

// Listener queues a sound for each inserted toast. It runs on the center's
// goroutine and never blocks; sounds are dropped when the queue is full.
func (m *Manager) Listener() toast.Listener {
	return func(ev toast.Event) {
		if ev.Type != toast.EventInserted || ev.Toast == nil {
			return
		}
		if !m.Enabled() {
			return
		}
		if _, ok := m.Sound(ev.Toast.Kind); !ok {
			return
		}
		select {
		case m.queue <- ev.Toast.Kind:
		default:
			m.logger.Debug("sound queue full, skipping", "kind", ev.Toast.Kind)
		}
	}
}

// PlayForKind plays the sound configured for kind.
func (m *Manager) PlayForKind(kind model.Kind) error {
	if !m.Enabled() {
		return nil
	}
	path, ok := m.Sound(kind)
	if !ok {
		m.logger.Debug("no sound configured for kind", "kind", kind)
		return nil
	}
	return m.player.Play(path)
}

// UpdateConfig applies a reloaded configuration.
func (m *Manager) UpdateConfig(cfg *config.Config) {
	m.player.ClearCache()
	m.configure(cfg)

	m.mu.RLock()
	running := m.running
	sounds := maps.Clone(m.sounds)
	m.mu.RUnlock()
	if running {
		m.preload(sounds)
	}
	m.logger.Debug("audio manager reloaded")
}

func (m *Manager) preload(sounds map[model.Kind]string) {
	for _, path := range sounds {
		if err := m.player.Preload(path); err != nil {
			m.logger.Warn("failed to preload sound", "path", path, "error", err)
		}
	}
}

func (m *Manager) run(ctx context.Context, stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	for {
		select {
		case kind := <-m.queue:
			if err := m.PlayForKind(kind); err != nil {
				m.logger.Warn("failed to play sound", "kind", kind, "error", err)
			}
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}
