package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jmylchreest/toastd/internal/audio"
	"github.com/jmylchreest/toastd/internal/broadcast"
	"github.com/jmylchreest/toastd/internal/config"
	"github.com/jmylchreest/toastd/internal/dbus"
	"github.com/jmylchreest/toastd/internal/metrics"
	"github.com/jmylchreest/toastd/internal/model"
	"github.com/jmylchreest/toastd/internal/render"
	"github.com/jmylchreest/toastd/internal/server"
	"github.com/jmylchreest/toastd/internal/store"
	"github.com/jmylchreest/toastd/internal/theme"
	"github.com/jmylchreest/toastd/internal/toast"
)

const (
	broadcastBuffer = 16
	pruneInterval   = time.Hour
	mirrorTimeout   = 2 * time.Second
)

// ErrAlreadyStarted is returned by a second Run. A daemon runs once.
var ErrAlreadyStarted = errors.New("daemon already started")

// Options configures a Daemon.
type Options struct {
	Config     *config.Config
	ConfigPath string // Watched for hot reload; empty disables it
	Version    string
	Logger     *slog.Logger
}

// Daemon owns the toast service and everything wired around it.
type Daemon struct {
	mu      sync.RWMutex
	cfg     *config.Config
	opts    Options
	logger  *slog.Logger
	started bool

	svc      *toast.Service
	unsubs   []func()
	notifier *InternalNotifier
	metrics  *metrics.Metrics
	themes   *theme.Loader
	audio    *audio.Manager
	memory   *broadcast.Memory[model.Options]
	redis    *redis.Client
	relay    *broadcast.Redis[model.Options]
	history  *store.Store
	recorder *store.Recorder
	http     *server.Server
	bus      *dbus.Server
	monitor  *dbus.Monitor
	watcher  *ConfigWatcher
	wg       sync.WaitGroup
	ready    chan struct{}
}

// New creates a daemon. Nothing runs until Run.
func New(opts Options) *Daemon {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Config == nil {
		opts.Config = config.DefaultConfig()
	}
	return &Daemon{cfg: opts.Config, opts: opts, logger: opts.Logger, ready: make(chan struct{})}
}

// Config returns the configuration in effect.
func (d *Daemon) Config() *config.Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg
}

// Service returns the toast service, or nil before Run.
func (d *Daemon) Service() *toast.Service {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.svc
}

// Ready is closed once Run has started every component.
func (d *Daemon) Ready() <-chan struct{} {
	return d.ready
}

// Run starts every enabled component and blocks until ctx is cancelled or
// the HTTP server fails. Optional surfaces that cannot start (no session
// bus, unreachable Redis) are logged and skipped.
func (d *Daemon) Run(ctx context.Context) error {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return ErrAlreadyStarted
	}
	d.started = true
	cfg := d.cfg
	d.mu.Unlock()

	d.logger.Info("starting toastd", "version", d.opts.Version)

	svc := toast.Start(cfg.CenterConfig(), d.logger, toast.WithMeasurer(render.HTMLMeasurer()))
	if !toast.SetDefault(svc) {
		d.logger.Debug("default toast service already set")
	}
	d.mu.Lock()
	d.svc = svc
	d.mu.Unlock()
	defer d.shutdown()

	d.notifier = NewInternalNotifier(svc.Show, d.logger)

	if cfg.Server.Metrics {
		d.metrics = metrics.New()
		d.subscribe(ctx, d.metrics.Listener())
	}

	if err := d.startHistory(ctx, cfg); err != nil {
		return err
	}
	if err := d.startBroadcast(ctx, cfg); err != nil {
		return err
	}
	d.startThemes(ctx, cfg)
	d.startAudio(ctx, cfg)
	d.startDBus(ctx, cfg)

	errCh := make(chan error, 1)
	if cfg.Server.Enabled {
		if err := d.startHTTP(ctx, cfg, errCh); err != nil {
			return err
		}
	}

	if d.opts.ConfigPath != "" {
		d.watcher = NewConfigWatcher(d.opts.ConfigPath, d.logger)
		d.watcher.SetReloadCallback(func(newConfig *config.Config) { d.applyConfig(ctx, newConfig) })
		d.watcher.SetErrorCallback(d.notifier.NotifyConfigError)
		if err := d.watcher.Start(ctx, cfg); err != nil {
			d.logger.Warn("failed to start config watcher", "error", err)
			d.watcher = nil
		}
	}

	d.logger.Info("toastd ready",
		"http", cfg.Server.Enabled,
		"dbus", d.bus != nil,
		"mirror", d.monitor != nil,
		"history", d.history != nil,
		"redis", d.relay != nil,
	)
	close(d.ready)

	select {
	case <-ctx.Done():
		d.logger.Info("shutting down")
		return nil
	case err := <-errCh:
		return err
	}
}

// subscribe adds l to the service; listeners are removed on shutdown.
func (d *Daemon) subscribe(ctx context.Context, l toast.Listener) {
	unsub, err := d.svc.Subscribe(ctx, l)
	if err != nil {
		d.logger.Warn("failed to subscribe listener", "error", err)
		return
	}
	d.unsubs = append(d.unsubs, unsub)
}

func (d *Daemon) startHistory(ctx context.Context, cfg *config.Config) error {
	if !cfg.History.Enabled {
		return nil
	}
	path := cfg.HistoryPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}
	st, err := store.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	d.history = st

	// The recorder outlives ctx so toasts destroyed during shutdown are kept.
	d.recorder = store.NewRecorder(st, 0, d.logger)
	d.recorder.Start(context.Background())
	d.subscribe(ctx, d.recorder.Listener())

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.pruneLoop(ctx)
	}()

	d.logger.Info("history store initialized", "path", path)
	return nil
}

// pruneLoop applies the retention settings at startup and then hourly.
func (d *Daemon) pruneLoop(ctx context.Context) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		cfg := d.Config()
		var olderThan time.Time
		if retention := cfg.History.Retention.Duration(); retention > 0 {
			olderThan = time.Now().Add(-retention)
		}
		n, err := d.history.Prune(ctx, olderThan, cfg.History.MaxEntries)
		switch {
		case err != nil && ctx.Err() == nil:
			d.logger.Warn("failed to prune history", "error", err)
		case n > 0:
			d.logger.Info("pruned history", "removed", n)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// startBroadcast attaches the center to an in-process broadcaster and, when
// Redis is configured, relays the shared channel into it.
func (d *Daemon) startBroadcast(ctx context.Context, cfg *config.Config) error {
	d.memory = broadcast.NewMemory[model.Options](broadcastBuffer, d.logger)
	if _, err := d.svc.Listen(ctx, d.memory); err != nil {
		return fmt.Errorf("failed to listen for broadcasts: %w", err)
	}

	if cfg.Redis.URL == "" {
		return nil
	}
	client, err := broadcast.Connect(ctx, broadcast.RedisConfig{
		URL:           cfg.Redis.URL,
		Channel:       cfg.Redis.Channel,
		RetryAttempts: 3,
		RetryInterval: time.Second,
	})
	if err != nil {
		d.logger.Warn("redis unavailable, cross-process toasts disabled", "error", err)
		d.notifier.NotifyBroadcastError(err)
		return nil
	}
	d.redis = client
	d.relay = broadcast.NewRedis[model.Options](client, cfg.Redis.Channel, broadcastBuffer, d.logger)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := broadcast.Forward(ctx, d.relay, d.memory); err != nil && ctx.Err() == nil {
			d.logger.Warn("redis relay stopped", "error", err)
			d.notifier.NotifyBroadcastError(err)
		}
	}()
	d.logger.Info("listening for redis broadcasts", "channel", d.relay.Channel())
	return nil
}

func (d *Daemon) startThemes(ctx context.Context, cfg *config.Config) {
	d.themes = theme.NewLoader(config.ThemesDir(), d.logger)
	d.loadTheme(cfg.Theme.Name)
	if cfg.Theme.Watch {
		d.themes.Watch(ctx)
	}
}

// loadTheme activates name and reports a fallback to another theme.
func (d *Daemon) loadTheme(name string) {
	t := d.themes.Load(name)
	if name != "" && t.Name != name {
		d.notifier.NotifyThemeMissing(name, t.Name)
	}
}

func (d *Daemon) startAudio(ctx context.Context, cfg *config.Config) {
	d.audio = audio.NewManager(cfg, d.logger)
	if err := d.audio.Start(ctx); err != nil {
		d.logger.Warn("failed to start audio manager", "error", err)
		return
	}
	d.subscribe(ctx, d.audio.Listener())
}

func (d *Daemon) startDBus(ctx context.Context, cfg *config.Config) {
	if cfg.DBus.Enabled {
		bus := dbus.NewServer(d.svc, d.logger)
		if d.metrics != nil {
			bus.SetRequestObserver(d.metrics.ObserveRequest)
		}
		if err := bus.Start(); err != nil {
			d.logger.Warn("failed to start D-Bus server", "error", err)
		} else {
			d.bus = bus
			d.subscribe(ctx, bus.Listener())
		}
	}

	if cfg.DBus.Mirror {
		mon := dbus.NewMonitor(d.logger)
		mon.SetNotifyHandler(d.mirror)
		if err := mon.Start(); err != nil {
			d.logger.Warn("failed to start notification mirror", "error", err)
		} else {
			d.monitor = mon
		}
	}
}

// mirror shows a desktop notification observed on the bus as a toast.
func (d *Daemon) mirror(n *dbus.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
	defer cancel()
	if d.metrics != nil {
		d.metrics.ObserveRequest("mirror")
	}
	id, err := d.svc.Show(ctx, n.Options())
	if err != nil {
		d.logger.Warn("failed to mirror notification", "app", n.AppName, "error", err)
		return
	}
	d.logger.Debug("mirrored notification", "toast_id", id, "app", n.AppName)
}

func (d *Daemon) startHTTP(ctx context.Context, cfg *config.Config, errCh chan<- error) error {
	var ready []func(context.Context) error
	if d.history != nil {
		ready = append(ready, func(ctx context.Context) error { return d.history.DB().PingContext(ctx) })
	}
	if d.redis != nil {
		ready = append(ready, func(ctx context.Context) error { return d.redis.Ping(ctx).Err() })
	}

	srv, err := server.New(d.svc, server.Options{
		Addr: cfg.Server.Addr,
		Page: render.PageOptions{
			Title:    cfg.Server.Title,
			Theme:    d.themes.Name(),
			Position: cfg.Display.Position,
			Width:    cfg.Display.Width,
		},
		Themes:  d.themes,
		Metrics: d.metrics,
		History: d.history,
		Ready:   ready,
		Logger:  d.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}
	d.http = srv
	d.themes.SetChangeCallback(func(css string) {
		srv.ThemeChanged(css)
		d.notifier.NotifyThemeReloaded(d.themes.Name())
	})

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := srv.Run(ctx); err != nil {
			errCh <- err
		}
	}()
	return nil
}

// applyConfig pushes a reloaded configuration into the running components.
// Listen addresses, bus settings and history location need a restart.
func (d *Daemon) applyConfig(ctx context.Context, newConfig *config.Config) {
	d.mu.Lock()
	old := d.cfg
	d.cfg = newConfig
	d.mu.Unlock()

	if err := d.svc.UpdateConfig(ctx, newConfig.CenterConfig()); err != nil {
		d.logger.Warn("failed to update center config", "error", err)
	}
	d.audio.UpdateConfig(newConfig)

	if newConfig.Theme.Name != old.Theme.Name {
		d.loadTheme(newConfig.Theme.Name)
		if d.http != nil {
			d.http.ThemeChanged(d.themes.CSS())
		}
		d.notifier.NotifyThemeReloaded(d.themes.Name())
	}

	if newConfig.Server != old.Server || newConfig.DBus != old.DBus ||
		newConfig.Redis != old.Redis || newConfig.History.Path != old.History.Path {
		d.logger.Warn("some settings only take effect after a restart")
	}
	d.notifier.NotifyConfigReloaded()
}

// shutdown stops components in reverse start order.
func (d *Daemon) shutdown() {
	if d.watcher != nil {
		d.watcher.Stop()
	}
	if d.monitor != nil {
		if err := d.monitor.Stop(); err != nil {
			d.logger.Warn("error stopping notification mirror", "error", err)
		}
	}
	if d.bus != nil {
		if err := d.bus.Stop(); err != nil {
			d.logger.Warn("error stopping D-Bus server", "error", err)
		}
	}
	if d.http != nil {
		ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		if err := d.http.Shutdown(ctx); err != nil {
			d.logger.Warn("error stopping http server", "error", err)
		}
		cancel()
	}
	if d.audio != nil {
		d.audio.Stop()
	}
	if d.themes != nil {
		d.themes.StopWatching()
	}
	if d.relay != nil {
		_ = d.relay.Close()
	}
	if d.memory != nil {
		_ = d.memory.Close()
	}
	d.wg.Wait()

	// Tearing the center down destroys the remaining toasts, which the
	// recorder still writes to history.
	d.svc.Shutdown()
	for _, unsub := range d.unsubs {
		unsub()
	}
	if d.recorder != nil {
		d.recorder.Stop()
	}
	if d.history != nil {
		if err := d.history.Close(); err != nil {
			d.logger.Warn("error closing history", "error", err)
		}
	}
	if d.redis != nil {
		_ = d.redis.Close()
	}

	d.logger.Info("toastd stopped")
}
