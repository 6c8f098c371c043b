package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/toastd/internal/core"
	"github.com/jmylchreest/toastd/internal/output"
	"github.com/jmylchreest/toastd/internal/store"
)

var pruneOpts struct {
	olderThan string
	keep      int
	dryRun    bool
	all       bool
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove old toasts from history",
	Long: `Remove old toasts from the history database.

Examples:
  # Remove toasts closed more than 7 days ago
  toast prune --older-than 7d

  # Keep only the 100 most recent toasts
  toast prune --keep 100

  # Preview what would be removed (dry run)
  toast prune --older-than 48h --dry-run

  # Empty the history
  toast prune --all`,
	RunE: runPrune,
}

func init() {
	rootCmd.AddCommand(pruneCmd)

	pruneCmd.Flags().StringVar(&pruneOpts.olderThan, "older-than", "",
		"Remove toasts closed longer ago than this duration (e.g., 48h, 7d, 1w)")
	pruneCmd.Flags().IntVar(&pruneOpts.keep, "keep", 0,
		"Keep only the N most recent toasts (0=unlimited)")
	pruneCmd.Flags().BoolVar(&pruneOpts.dryRun, "dry-run", false,
		"Show what would be removed without actually removing")
	pruneCmd.Flags().BoolVar(&pruneOpts.all, "all", false,
		"Remove every toast from history")
}

func runPrune(cmd *cobra.Command, args []string) error {
	if pruneOpts.olderThan == "" && pruneOpts.keep == 0 && !pruneOpts.all {
		return fmt.Errorf("specify --older-than, --keep or --all")
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	st, err := openHistory()
	if err != nil {
		return err
	}
	defer st.Close()

	out := cmd.OutOrStdout()
	if pruneOpts.all {
		if pruneOpts.dryRun {
			n, err := st.Count(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Would remove %d toast(s)\n", n)
			return nil
		}
		if err := st.Clear(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "History cleared")
		return nil
	}

	var cutoff time.Time
	if pruneOpts.olderThan != "" {
		d, err := core.ParseDuration(pruneOpts.olderThan)
		if err != nil {
			return err
		}
		if d > 0 {
			cutoff = time.Now().Add(-d)
		}
	}

	if pruneOpts.dryRun {
		return previewPrune(ctx, cmd, st, cutoff)
	}

	n, err := st.Prune(ctx, cutoff, pruneOpts.keep)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Removed %d toast(s)\n", n)
	return nil
}

// previewPrune lists the records Prune would delete.
func previewPrune(ctx context.Context, cmd *cobra.Command, st *store.Store, cutoff time.Time) error {
	recs, err := st.Recent(ctx, store.FilterOptions{})
	if err != nil {
		return err
	}

	var doomed []store.Record
	for i, rec := range recs {
		tooOld := !cutoff.IsZero() && rec.ClosedAt.Before(cutoff)
		overLimit := pruneOpts.keep > 0 && i >= pruneOpts.keep
		if tooOld || overLimit {
			doomed = append(doomed, rec)
		}
	}

	out := cmd.OutOrStdout()
	if len(doomed) == 0 {
		fmt.Fprintln(out, "No toasts to remove")
		return nil
	}

	fmt.Fprintf(out, "Would remove %d toast(s):\n", len(doomed))
	opts := output.DefaultFormatterOptions()
	opts.Template = "  - {{.Index}}. [{{.Kind}}] {{.Title}} ({{.RelativeTime}})"
	if len(doomed) > 10 {
		defer fmt.Fprintf(out, "  ... and %d more\n", len(doomed)-10)
		doomed = doomed[:10]
	}
	return output.NewFormatter(output.FormatDmenu, opts).Format(out, output.FromRecords(doomed))
}
