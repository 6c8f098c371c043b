package theme

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// Loader holds the active theme and keeps it fresh.
type Loader struct {
	mu       sync.RWMutex
	logger   *slog.Logger
	dir      string
	theme    *Theme
	css      string
	watcher  *Watcher
	onChange func(css string)
}

// Dir returns the user themes directory.
func Dir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "toastd", "themes"), nil
}

// NewLoader creates a loader that looks for user themes in dir. An empty dir
// disables user themes.
func NewLoader(dir string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger, dir: dir}
}

// SetChangeCallback registers fn to run when the active theme's CSS changes
// on disk.
func (l *Loader) SetChangeCallback(fn func(css string)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = fn
}

// Load makes name the active theme. User themes shadow bundled ones; an
// unknown name falls back to the default theme.
func (l *Loader) Load(name string) *Theme {
	if name == "" {
		name = DefaultName
	}

	var t *Theme
	if l.dir != "" {
		path := filepath.Join(l.dir, name+".css")
		if _, err := os.Stat(path); err == nil {
			loaded, err := FromFile(name, path)
			if err != nil {
				l.logger.Warn("failed to load user theme, trying bundled", "theme", name, "error", err)
			} else {
				t = loaded
			}
		}
	}
	if t == nil {
		if b, ok := FromBundle(name); ok {
			t = b
		} else {
			l.logger.Warn("theme not found, using default", "theme", name)
			t, _ = FromBundle(DefaultName)
		}
	}

	l.mu.Lock()
	l.theme = t
	l.css = t.CSS
	if l.watcher != nil {
		l.watcher.SetTheme(t)
	}
	l.mu.Unlock()

	l.logger.Debug("loaded theme", "name", t.Name, "path", t.Path)
	return t
}

// CSS returns the active stylesheet, loading the default theme if nothing
// was loaded yet.
func (l *Loader) CSS() string {
	l.mu.RLock()
	t, css := l.theme, l.css
	l.mu.RUnlock()
	if t == nil {
		return l.Load(DefaultName).CSS
	}
	return css
}

// Name returns the active theme name.
func (l *Loader) Name() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.theme == nil {
		return ""
	}
	return l.theme.Name
}

// Names lists bundled and user themes without duplicates.
func (l *Loader) Names() []string {
	names := BundledNames()
	if l.dir == "" {
		return names
	}
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if !os.IsNotExist(err) {
			l.logger.Debug("failed to read themes directory", "error", err)
		}
		return names
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, "_") || filepath.Ext(name) != ".css" {
			continue
		}
		name = strings.TrimSuffix(name, ".css")
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// Watch polls the active theme file and reports changes through the change
// callback until ctx ends or StopWatching is called.
func (l *Loader) Watch(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.watcher != nil {
		return
	}
	l.watcher = NewWatcher(l.theme, l.logger)
	l.watcher.SetChangeCallback(func(css string) {
		l.mu.Lock()
		l.css = css
		fn := l.onChange
		l.mu.Unlock()
		l.logger.Info("theme changed on disk", "name", l.Name())
		if fn != nil {
			fn(css)
		}
	})
	l.watcher.Start(ctx)
}

// StopWatching stops the theme watcher.
func (l *Loader) StopWatching() {
	l.mu.Lock()
	w := l.watcher
	l.watcher = nil
	l.mu.Unlock()
	if w != nil {
		w.Stop()
	}
}
