package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/toastd/internal/core"
	"github.com/jmylchreest/toastd/internal/model"
	"github.com/jmylchreest/toastd/internal/output"
	"github.com/jmylchreest/toastd/internal/store"
)

var historyOpts struct {
	queryOptions
	since  string
	kind   string
	reason string
}

var historyCmd = &cobra.Command{
	Use:   "history [index|id]",
	Short: "Browse closed toasts",
	Long: `Query the history database of closed toasts.

Without arguments, outputs recent toasts in dmenu format (suitable for
fuzzel, walker, rofi, etc.).

Examples:
  # Everything dismissed in the last day
  toast history --since 1d --reason dismissed

  # Pick one with a launcher and copy its body
  toast history | fuzzel -d | grep -oE '[0-9A-Z]{26}$' | xargs toast history --field body | wl-copy

  # Output as YAML
  toast history -o yaml -n 20`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyOpts.register(historyCmd, string(output.FormatDmenu))

	historyCmd.Flags().StringVar(&historyOpts.since, "since", "",
		"Show toasts closed in the last duration (e.g., 1h, 7d, 1w)")
	historyCmd.Flags().StringVar(&historyOpts.kind, "kind", "",
		"Filter by kind (success, error, warning, info)")
	historyCmd.Flags().StringVar(&historyOpts.reason, "reason", "",
		"Filter by close reason (expired, dismissed, closed, evicted, replaced)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	st, err := openHistory()
	if err != nil {
		return err
	}
	defer st.Close()

	now := time.Now()
	filter := store.FilterOptions{Kind: model.Kind(historyOpts.kind)}
	if historyOpts.since != "" {
		d, err := core.ParseDuration(historyOpts.since)
		if err != nil {
			return err
		}
		if d > 0 {
			filter.Since = now.Add(-d)
		}
	}
	if historyOpts.reason != "" {
		if filter.Reason, err = model.ParseCloseReason(historyOpts.reason); err != nil {
			return err
		}
	}

	recs, err := st.Recent(ctx, filter)
	if err != nil {
		return err
	}
	rows, err := historyOpts.apply(output.FromRecords(recs), now)
	if err != nil {
		return err
	}
	return historyOpts.print(cmd.OutOrStdout(), getConfig(), rows, args, now)
}

// openHistory opens the configured history database. It refuses to create
// one so a typo in the path is not silently an empty history.
func openHistory() (*store.Store, error) {
	path := getConfig().HistoryPath()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("no history database at %s", path)
	}
	return store.Open(path)
}
