package daemon

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/toastd/internal/model"
)

const (
	internalDurationMs = 5000
	internalTimeout    = 2 * time.Second
)

// ShowFunc raises a toast.
type ShowFunc func(ctx context.Context, opts model.Options) (string, error)

// InternalNotifier raises toasts about toastd's own events. Repeats of the
// same key within the minimum interval are dropped.
type InternalNotifier struct {
	mu     sync.Mutex
	logger *slog.Logger
	show   ShowFunc
	now    func() time.Time

	// Rate limiting
	lastNotifyTime map[string]time.Time // key -> last notification time
	minInterval    time.Duration        // minimum time between same notifications

	enabled bool
}

// NewInternalNotifier creates a notifier that raises toasts through show.
func NewInternalNotifier(show ShowFunc, logger *slog.Logger) *InternalNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &InternalNotifier{
		logger:         logger,
		show:           show,
		now:            time.Now,
		lastNotifyTime: make(map[string]time.Time),
		minInterval:    5 * time.Second,
		enabled:        true,
	}
}

// SetEnabled enables or disables internal notifications.
func (n *InternalNotifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// SetMinInterval sets the minimum interval between duplicate notifications.
func (n *InternalNotifier) SetMinInterval(interval time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.minInterval = interval
}

// Notify raises a toast unless it is rate-limited. It reports whether a
// toast was shown.
func (n *InternalNotifier) Notify(key, title, body string, kind model.Kind) bool {
	n.mu.Lock()
	if !n.enabled || n.show == nil {
		n.mu.Unlock()
		return false
	}
	now := n.now()
	if last, ok := n.lastNotifyTime[key]; ok && now.Sub(last) < n.minInterval {
		n.mu.Unlock()
		n.logger.Debug("internal notification rate-limited", "key", key, "title", title)
		return false
	}
	n.lastNotifyTime[key] = now
	show := n.show
	n.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), internalTimeout)
	defer cancel()

	id, err := show(ctx, model.Options{
		Kind:       string(kind),
		Title:      title,
		Body:       body,
		DurationMs: model.Ms(internalDurationMs),
	})
	if err != nil {
		n.logger.Warn("failed to show internal notification", "key", key, "error", err)
		return false
	}
	n.logger.Debug("sent internal notification", "key", key, "toast_id", id, "kind", kind)
	return true
}

// NotifyConfigReloaded reports a successful config reload.
func (n *InternalNotifier) NotifyConfigReloaded() {
	n.Notify("config-reload", "Configuration Reloaded",
		"toastd configuration has been successfully reloaded.", model.KindSuccess)
}

// NotifyConfigError reports a config file that failed to load.
func (n *InternalNotifier) NotifyConfigError(err error) {
	n.Notify("config-error", "Configuration Error",
		"Failed to reload configuration: "+err.Error(), model.KindError)
}

// NotifyThemeReloaded reports a theme change.
func (n *InternalNotifier) NotifyThemeReloaded(themeName string) {
	n.Notify("theme-reload", "Theme Reloaded",
		"Theme '"+themeName+"' has been reloaded.", model.KindInfo)
}

// NotifyThemeMissing reports a configured theme that could not be found.
func (n *InternalNotifier) NotifyThemeMissing(requested, using string) {
	n.Notify("theme-missing", "Theme Not Found",
		"Theme '"+requested+"' was not found, using '"+using+"'.", model.KindWarning)
}

// NotifyBroadcastError reports a broadcast channel that is unavailable.
func (n *InternalNotifier) NotifyBroadcastError(err error) {
	n.Notify("broadcast-error", "Broadcast Unavailable",
		"Cross-process toasts are disabled: "+err.Error(), model.KindWarning)
}
