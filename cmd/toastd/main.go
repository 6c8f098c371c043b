// Package main is the entry point for the toastd notification daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmylchreest/toastd/internal/config"
	"github.com/jmylchreest/toastd/internal/daemon"
)

var (
	// Build-time variables
	version = "dev"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: ~/.config/toastd/toastd.toml)")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	addr := flag.String("addr", "", "HTTP listen address, overrides the config file")
	mirror := flag.Bool("mirror", false, "Also show desktop notifications sent to another daemon")
	noDBus := flag.Bool("no-dbus", false, "Do not claim the D-Bus service name")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("toastd version", version)
		os.Exit(0)
	}

	path := *configPath
	if path == "" {
		path = config.ConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "toastd:", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *mirror {
		cfg.DBus.Mirror = true
	}
	if *noDBus {
		cfg.DBus.Enabled = false
	}

	// Log to stderr so journald picks it up
	logger := cfg.Log.NewLogger(os.Stderr, *verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d := daemon.New(daemon.Options{
		Config:     cfg,
		ConfigPath: path,
		Version:    version,
		Logger:     logger,
	})
	if err := d.Run(ctx); err != nil {
		logger.Error("toastd failed", "error", err)
		stop()
		os.Exit(1)
	}
}
