// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/jmylchreest/toastd/internal/model"
	"github.com/jmylchreest/toastd/internal/toast"
)

// Default configuration values.
const (
	DefaultAddr       = "127.0.0.1:7878"
	DefaultWidth      = 352
	DefaultVolume     = 80
	DefaultRetention  = 7 * 24 * time.Hour
	DefaultMaxEntries = 1000
	DefaultListTmpl   = "{{.Kind}}\t{{.Title}}\t{{.Body}}"
	DefaultDmenuTmpl  = "{{.Kind}} | {{.Title}} - {{.Body}} | {{.ID}}"
)

// Config represents the toastd configuration.
// Loaded from ~/.config/toastd/toastd.toml, then overridden by TOASTD_* env.
type Config struct {
	Toast     ToastConfig     `toml:"toast" envPrefix:"TOAST_"`
	Display   DisplayConfig   `toml:"display" envPrefix:"DISPLAY_"`
	Server    ServerConfig    `toml:"server" envPrefix:"SERVER_"`
	DBus      DBusConfig      `toml:"dbus" envPrefix:"DBUS_"`
	Redis     RedisConfig     `toml:"redis" envPrefix:"REDIS_"`
	History   HistoryConfig   `toml:"history" envPrefix:"HISTORY_"`
	Audio     AudioConfig     `toml:"audio" envPrefix:"AUDIO_"`
	Theme     ThemeConfig     `toml:"theme" envPrefix:"THEME_"`
	Log       LogConfig       `toml:"log" envPrefix:"LOG_"`
	Clipboard ClipboardConfig `toml:"clipboard" envPrefix:"CLIPBOARD_"`
	Templates TemplatesConfig `toml:"templates"`
}

// ToastConfig contains lifecycle timing.
type ToastConfig struct {
	DefaultDuration Duration `toml:"default_duration" env:"DEFAULT_DURATION"` // e.g. "5s"; 0 = persistent
	ExitDuration    Duration `toml:"exit_duration" env:"EXIT_DURATION"`       // Closing -> removed
	ReflowDelay     Duration `toml:"reflow_delay" env:"REFLOW_DELAY"`         // Settle time before restacking
	PauseOnHover    bool     `toml:"pause_on_hover" env:"PAUSE_ON_HOVER"`
	ReplaceSameKind bool     `toml:"replace_same_kind" env:"REPLACE_SAME_KIND"`
}

// DisplayConfig contains stacking settings.
type DisplayConfig struct {
	Position   string `toml:"position" env:"POSITION"`       // "top-right", "bottom-left", etc.
	Width      int    `toml:"width" env:"WIDTH"`             // Container width in pixels
	Gap        int    `toml:"gap" env:"GAP"`                 // Gap between stacked toasts
	MaxVisible int    `toml:"max_visible" env:"MAX_VISIBLE"` // 0 = unlimited
}

// ServerConfig contains HTTP surface settings.
type ServerConfig struct {
	Enabled bool   `toml:"enabled" env:"ENABLED"`
	Addr    string `toml:"addr" env:"ADDR"`
	Title   string `toml:"title" env:"TITLE"`
	Metrics bool   `toml:"metrics" env:"METRICS"`
}

// DBusConfig contains session bus settings.
type DBusConfig struct {
	Enabled bool `toml:"enabled" env:"ENABLED"`
	// Mirror shows org.freedesktop.Notifications traffic as toasts without
	// claiming the notification bus name.
	Mirror bool `toml:"mirror" env:"MIRROR"`
}

// RedisConfig contains the cross-process broadcast settings. An empty URL
// disables it.
type RedisConfig struct {
	URL     string `toml:"url" env:"URL"`
	Channel string `toml:"channel" env:"CHANNEL"`
}

// HistoryConfig contains closed-toast history settings.
type HistoryConfig struct {
	Enabled    bool     `toml:"enabled" env:"ENABLED"`
	Path       string   `toml:"path" env:"PATH"` // Empty = $XDG_DATA_HOME/toastd/history.db
	Retention  Duration `toml:"retention" env:"RETENTION"`
	MaxEntries int      `toml:"max_entries" env:"MAX_ENTRIES"` // 0 = unlimited
}

// AudioConfig contains audio settings.
type AudioConfig struct {
	Enabled bool        `toml:"enabled" env:"ENABLED"`
	Volume  int         `toml:"volume" env:"VOLUME"` // 0-100
	Sounds  SoundConfig `toml:"sounds" envPrefix:"SOUND_"`
}

// SoundConfig contains per-kind sound file paths.
type SoundConfig struct {
	Success string `toml:"success" env:"SUCCESS"`
	Error   string `toml:"error" env:"ERROR"`
	Warning string `toml:"warning" env:"WARNING"`
	Info    string `toml:"info" env:"INFO"`
}

// ThemeConfig contains theme settings.
type ThemeConfig struct {
	Name  string `toml:"name" env:"NAME"` // Theme name without .css extension
	Watch bool   `toml:"watch" env:"WATCH"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `toml:"level" env:"LEVEL"`   // debug, info, warn, error
	Format string `toml:"format" env:"FORMAT"` // text, json
}

// ClipboardConfig contains the showcase clipboard settings.
type ClipboardConfig struct {
	Command string `toml:"command" env:"COMMAND"` // Empty = auto-detect wl-copy, xclip, xsel
}

// TemplatesConfig holds CLI output templates.
type TemplatesConfig struct {
	List   string            `toml:"list"`
	Dmenu  string            `toml:"dmenu"`
	Custom map[string]string `toml:"custom"`
}

// Position is where the stack is anchored.
type Position string

const (
	PositionTopLeft      Position = "top-left"
	PositionTopRight     Position = "top-right"
	PositionTopCenter    Position = "top-center"
	PositionBottomLeft   Position = "bottom-left"
	PositionBottomRight  Position = "bottom-right"
	PositionBottomCenter Position = "bottom-center"
)

// ValidPositions returns all valid position values.
func ValidPositions() []Position {
	return []Position{
		PositionTopLeft,
		PositionTopRight,
		PositionTopCenter,
		PositionBottomLeft,
		PositionBottomRight,
		PositionBottomCenter,
	}
}

// Validation errors.
var (
	ErrInvalidPosition = errors.New("invalid position")
	ErrOutOfRange      = errors.New("value out of range")
	ErrInvalidLog      = errors.New("invalid log setting")
)

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	center := toast.DefaultConfig()
	return &Config{
		Toast: ToastConfig{
			DefaultDuration: Duration(center.DefaultDuration),
			ExitDuration:    Duration(center.ExitDuration),
			ReflowDelay:     Duration(center.ReflowDelay),
			PauseOnHover:    center.PauseOnHover,
			ReplaceSameKind: center.ReplaceSameKind,
		},
		Display: DisplayConfig{
			Position:   string(PositionTopRight),
			Width:      DefaultWidth,
			Gap:        center.Gap,
			MaxVisible: center.MaxVisible,
		},
		Server: ServerConfig{
			Enabled: true,
			Addr:    DefaultAddr,
			Title:   "toastd",
			Metrics: true,
		},
		DBus: DBusConfig{
			Enabled: true,
		},
		Redis: RedisConfig{
			Channel: "toastd:show",
		},
		History: HistoryConfig{
			Enabled:    true,
			Retention:  Duration(DefaultRetention),
			MaxEntries: DefaultMaxEntries,
		},
		Audio: AudioConfig{
			Enabled: false,
			Volume:  DefaultVolume,
		},
		Theme: ThemeConfig{
			Name:  "default",
			Watch: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Templates: TemplatesConfig{
			List:   DefaultListTmpl,
			Dmenu:  DefaultDmenuTmpl,
			Custom: make(map[string]string),
		},
	}
}

// ConfigPath returns the path to the config file.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func ConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "toastd", "toastd.toml")
}

// DataPath returns the path to the data directory.
// Uses XDG_DATA_HOME if set, otherwise ~/.local/share.
func DataPath() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "toastd")
}

// HistoryPath returns the configured history database, or the default one.
func (c *Config) HistoryPath() string {
	if c.History.Path != "" {
		return expandPath(c.History.Path)
	}
	return filepath.Join(DataPath(), "history.db")
}

// ThemesDir returns the user themes directory next to the config file.
func ThemesDir() string {
	return filepath.Join(filepath.Dir(ConfigPath()), "themes")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	return os.MkdirAll(DataPath(), 0755)
}

// LoadFile loads configuration from path, overlaying defaults. A missing file
// yields the defaults. Environment overrides are not applied.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.Templates.Custom == nil {
		cfg.Templates.Custom = make(map[string]string)
	}

	return cfg, nil
}

// Load reads path, applies TOASTD_* environment overrides and validates.
func Load(path string) (*Config, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to path atomically, creating parent
// directories if needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !slices.Contains(ValidPositions(), Position(c.Display.Position)) {
		return fmt.Errorf("%w %q, must be one of: %v", ErrInvalidPosition, c.Display.Position, ValidPositions())
	}

	if c.Display.Width < 100 || c.Display.Width > 1000 {
		return fmt.Errorf("%w: width must be between 100 and 1000, got %d", ErrOutOfRange, c.Display.Width)
	}
	if c.Display.MaxVisible < 0 || c.Display.MaxVisible > 50 {
		return fmt.Errorf("%w: max_visible must be between 0 and 50, got %d", ErrOutOfRange, c.Display.MaxVisible)
	}
	if c.Display.Gap < 0 {
		return fmt.Errorf("%w: gap must not be negative, got %d", ErrOutOfRange, c.Display.Gap)
	}

	for name, d := range map[string]Duration{
		"default_duration": c.Toast.DefaultDuration,
		"exit_duration":    c.Toast.ExitDuration,
		"reflow_delay":     c.Toast.ReflowDelay,
		"retention":        c.History.Retention,
	} {
		if d < 0 {
			return fmt.Errorf("%w: %s must not be negative, got %s", ErrOutOfRange, name, d.Duration())
		}
	}

	if c.Audio.Volume < 0 || c.Audio.Volume > 100 {
		return fmt.Errorf("%w: volume must be between 0 and 100, got %d", ErrOutOfRange, c.Audio.Volume)
	}
	if c.History.MaxEntries < 0 {
		return fmt.Errorf("%w: max_entries must not be negative, got %d", ErrOutOfRange, c.History.MaxEntries)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: level %q", ErrInvalidLog, c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: format %q", ErrInvalidLog, c.Log.Format)
	}

	return nil
}

// CenterConfig converts the file settings into a center configuration.
func (c *Config) CenterConfig() toast.Config {
	return toast.Config{
		DefaultDuration: c.Toast.DefaultDuration.Duration(),
		ExitDuration:    c.Toast.ExitDuration.Duration(),
		ReflowDelay:     c.Toast.ReflowDelay.Duration(),
		Gap:             c.Display.Gap,
		MaxVisible:      c.Display.MaxVisible,
		PauseOnHover:    c.Toast.PauseOnHover,
		ReplaceSameKind: c.Toast.ReplaceSameKind,
	}
}

// SoundForKind returns the sound file for kind with ~ expanded, or "".
func (c *Config) SoundForKind(kind model.Kind) string {
	var path string
	switch kind {
	case model.KindSuccess:
		path = c.Audio.Sounds.Success
	case model.KindError:
		path = c.Audio.Sounds.Error
	case model.KindWarning:
		path = c.Audio.Sounds.Warning
	default:
		path = c.Audio.Sounds.Info
	}
	return expandPath(path)
}

// GetTemplate returns the template for the given name.
// First checks custom templates, then built-in ones.
// Returns empty string if not found.
func (c *Config) GetTemplate(name string) string {
	if tmpl, ok := c.Templates.Custom[name]; ok {
		return tmpl
	}
	switch name {
	case "list":
		return c.Templates.List
	case "dmenu":
		return c.Templates.Dmenu
	}
	return ""
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
