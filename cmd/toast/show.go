package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/toastd/internal/config"
	"github.com/jmylchreest/toastd/internal/dbus"
	"github.com/jmylchreest/toastd/internal/model"
)

var showOpts struct {
	kind     string
	title    string
	body     string
	duration string
	sticky   bool
	stdin    bool
	quiet    bool
}

var showCmd = &cobra.Command{
	Use:   "show [title] [body]",
	Short: "Raise a toast",
	Long: `Raise a toast on the running daemon and print its id.

Examples:
  # A success toast with the default lifetime
  toast show "Deploy finished" "api rolled out" --kind success

  # Stay until closed
  toast show "Build failed" --kind error --sticky

  # From JSON, the same shape the HTTP API accepts
  echo '{"kind":"warning","title":"Disk 90%","durationMs":8000}' | toast show --stdin`,
	Args: cobra.MaximumNArgs(2),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
	registerShowFlags(showCmd)
	showCmd.Flags().BoolVarP(&showOpts.quiet, "quiet", "q", false,
		"Do not print the toast id")
}

// registerShowFlags adds the flags describing a toast to cmd.
func registerShowFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&showOpts.kind, "kind", "k", "info",
		"Toast kind (success, error, warning, info)")
	cmd.Flags().StringVarP(&showOpts.title, "title", "t", "", "Toast title")
	cmd.Flags().StringVarP(&showOpts.body, "body", "b", "", "Toast body")
	cmd.Flags().StringVarP(&showOpts.duration, "duration", "d", "",
		"Lifetime (e.g. 5s, 1500ms); empty uses the daemon default")
	cmd.Flags().BoolVar(&showOpts.sticky, "sticky", false,
		"Keep the toast until it is closed")
	cmd.Flags().BoolVar(&showOpts.stdin, "stdin", false,
		"Read toast options as JSON from stdin")
}

func runShow(cmd *cobra.Command, args []string) error {
	opts, err := showOptions(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	return withClient(func(ctx context.Context, c *dbus.Client) error {
		id, err := c.Show(ctx, opts.Kind, opts.Title, opts.Body, durationArg(opts.DurationMs))
		if err != nil {
			return err
		}
		logger.Debug("toast shown", "toast_id", id, "kind", opts.Kind)
		if !showOpts.quiet {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	})
}

// showOptions builds the toast from flags, positional arguments or stdin.
func showOptions(args []string, stdin io.Reader) (model.Options, error) {
	var opts model.Options
	if showOpts.stdin {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return opts, fmt.Errorf("failed to read from stdin: %w", err)
		}
		if err := json.Unmarshal(data, &opts); err != nil {
			return opts, fmt.Errorf("failed to parse toast JSON: %w", err)
		}
		return opts, nil
	}

	opts.Kind = showOpts.kind
	opts.Title = showOpts.title
	opts.Body = showOpts.body
	if len(args) > 0 {
		opts.Title = args[0]
	}
	if len(args) > 1 {
		opts.Body = args[1]
	}
	if _, ok := model.ParseKind(opts.Kind); !ok {
		logger.Warn("unknown kind, showing as info", "kind", opts.Kind)
	}

	switch {
	case showOpts.sticky:
		opts.DurationMs = model.Ms(0)
	case showOpts.duration != "":
		d, err := parseLifetime(showOpts.duration)
		if err != nil {
			return opts, err
		}
		opts.DurationMs = model.Ms(int(d.Milliseconds()))
	}
	return opts, nil
}

// durationArg maps an optional lifetime to the bus argument, where a
// negative value selects the daemon default.
func durationArg(ms *int) int32 {
	if ms == nil {
		return -1
	}
	return int32(max(*ms, 0))
}

// parseLifetime accepts Go durations or bare milliseconds, as the config
// file does.
func parseLifetime(s string) (time.Duration, error) {
	var d config.Duration
	if err := d.UnmarshalText([]byte(s)); err != nil {
		return 0, err
	}
	return d.Duration(), nil
}
