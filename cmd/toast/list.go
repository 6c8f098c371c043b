package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/toastd/internal/dbus"
	"github.com/jmylchreest/toastd/internal/output"
)

var listOpts queryOptions

var listCmd = &cobra.Command{
	Use:   "list [index|id]",
	Short: "List the toasts on screen",
	Long: `List the daemon's live toasts in stack order, newest first.

With an index (1-based) or id argument, outputs that toast only.

Examples:
  toast list
  toast list -o json
  toast list --filter kind=error -o ids
  toast list 1 --field title`,
	Args: cobra.MaximumNArgs(1),
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
	listOpts.register(listCmd, string(output.FormatPlain))
}

func runList(cmd *cobra.Command, args []string) error {
	return withClient(func(ctx context.Context, c *dbus.Client) error {
		infos, err := c.List(ctx)
		if err != nil {
			return err
		}

		now := time.Now()
		rows, err := listOpts.apply(rowsFromInfos(infos), now)
		if err != nil {
			return err
		}
		return listOpts.print(cmd.OutOrStdout(), getConfig(), rows, args, now)
	})
}

// rowsFromInfos converts the bus listing. Creation times are not carried
// over the bus.
func rowsFromInfos(infos []dbus.ToastInfo) []output.Row {
	rows := make([]output.Row, len(infos))
	for i, info := range infos {
		rows[i] = output.Row{
			ID:          info.ID,
			Kind:        info.Kind,
			Title:       info.Title,
			Body:        info.Body,
			State:       info.State,
			DurationMs:  int(info.DurationMs),
			RemainingMs: int(info.RemainingMs),
		}
	}
	return rows
}
