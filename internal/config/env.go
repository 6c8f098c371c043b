package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TOASTD_"

// ErrParsingEnv is returned when an override cannot be applied.
var ErrParsingEnv = errors.New("failed to parse environment overrides")

var dotenvLoaded sync.Once

// ApplyEnv overlays TOASTD_* variables onto cfg. A .env file in the working
// directory is loaded once first; variables already set win over it.
// Unset variables leave cfg untouched.
func ApplyEnv(cfg *Config) error {
	dotenvLoaded.Do(func() {
		// The .env file is optional.
		_ = godotenv.Load()
	})
	return applyEnv(cfg, env.Options{Prefix: EnvPrefix})
}

func applyEnv(cfg *Config, opts env.Options) error {
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("%w: %w", ErrParsingEnv, err)
	}
	return nil
}
