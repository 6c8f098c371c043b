package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/toastd/internal/broadcast"
	"github.com/jmylchreest/toastd/internal/model"
	"github.com/jmylchreest/toastd/internal/tui"
)

var demoOpts struct {
	redis bool
}

var demoCmd = &cobra.Command{
	Use:     "demo",
	Aliases: []string{"tui"},
	Short:   "Run the interactive toast showcase",
	Long: `Run a toast center inside the terminal and drive it from the keyboard.

The showcase runs its own center, independent of any daemon, so every
transition (enter, hover pause, dismiss, reflow) can be watched in
isolation.

Key bindings:
  1-4         Raise a success, error, warning or info toast
  n           Compose a toast ("kind: title | body")
  s           Toggle sticky toasts
  j/k, ↑/↓    Select a toast
  h, space    Hover the selected toast (pauses its timer)
  d, x        Dismiss the selected toast
  D           Close every toast
  c/C/alt+c   Copy the selected toast, the stack as JSON, or as YAML
  ?           Show help
  q           Quit`,
	RunE: runDemo,
}

func init() {
	rootCmd.AddCommand(demoCmd)

	demoCmd.Flags().BoolVar(&demoOpts.redis, "redis", false,
		"Also show toasts published on the configured Redis channel")
}

func runDemo(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := getConfig()
	opts := tui.RunOptions{Config: cfg, Logger: logger}

	if demoOpts.redis && cfg.Redis.URL != "" {
		client, err := broadcast.Connect(ctx, broadcast.RedisConfig{URL: cfg.Redis.URL, Channel: cfg.Redis.Channel})
		if err != nil {
			logger.Warn("redis unavailable, showing local toasts only", "error", err)
		} else {
			b := broadcast.NewRedis[model.Options](client, cfg.Redis.Channel, 16, logger)
			defer func() {
				_ = b.Close()
				_ = client.Close()
			}()
			opts.Broadcaster = b
		}
	}

	return tui.Run(ctx, opts)
}
