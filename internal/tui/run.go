package tui

import (
	"context"
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jmylchreest/toastd/internal/broadcast"
	"github.com/jmylchreest/toastd/internal/config"
	"github.com/jmylchreest/toastd/internal/model"
	"github.com/jmylchreest/toastd/internal/render"
	"github.com/jmylchreest/toastd/internal/toast"
)

// terminalGap is the number of blank rows between stacked toasts.
const terminalGap = 1

// RunOptions configures the showcase.
type RunOptions struct {
	Config *config.Config
	// Broadcaster, when set, is listened to so published requests appear in
	// the showcase as well.
	Broadcaster broadcast.Broadcaster[model.Options]
	Logger      *slog.Logger
}

// Run starts an in-process center sized for the terminal and blocks until
// the user quits or ctx ends.
func Run(ctx context.Context, opts RunOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	term := render.NewTerminal(render.DefaultTerminalWidth)
	centerCfg := cfg.CenterConfig()
	centerCfg.Gap = terminalGap

	svc := toast.Start(centerCfg, logger, toast.WithMeasurer(term))
	defer svc.Shutdown()

	if opts.Broadcaster != nil {
		if _, err := svc.Listen(ctx, opts.Broadcaster); err != nil {
			return fmt.Errorf("failed to listen for broadcasts: %w", err)
		}
	}

	m, err := New(ctx, svc, Options{
		Renderer:  term,
		Gap:       terminalGap,
		Clipboard: cfg.Clipboard.Command,
	})
	if err != nil {
		return err
	}
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	return err
}
