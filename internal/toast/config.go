package toast

import (
	"time"

	"github.com/jmylchreest/toastd/internal/model"
)

// Timing and stacking defaults.
const (
	DefaultExitDuration = 300 * time.Millisecond
	DefaultReflowDelay  = 100 * time.Millisecond
	DefaultGap          = 8
	DefaultMaxVisible   = 0 // unlimited
)

// Config controls timing and stacking of a Center.
type Config struct {
	DefaultDuration time.Duration // Applied when Options.DurationMs is nil
	ExitDuration    time.Duration // Closing -> Destroyed deadline
	ReflowDelay     time.Duration // Settle time before offsets are recomputed
	Gap             int           // Margin between stacked toasts
	MaxVisible      int           // 0 = unlimited
	PauseOnHover    bool
	ReplaceSameKind bool // A new toast closes live toasts of its kind
}

// DefaultConfig returns the default center configuration.
func DefaultConfig() Config {
	return Config{
		DefaultDuration: model.DefaultDurationMs * time.Millisecond,
		ExitDuration:    DefaultExitDuration,
		ReflowDelay:     DefaultReflowDelay,
		Gap:             DefaultGap,
		MaxVisible:      DefaultMaxVisible,
		PauseOnHover:    true,
	}
}
