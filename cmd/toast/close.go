package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/toastd/internal/dbus"
)

var closeOpts struct {
	all     bool
	stdin   bool
	dismiss bool
}

var closeCmd = &cobra.Command{
	Use:   "close [id...]",
	Short: "Close toasts",
	Long: `Close toasts by id, or every live toast with --all.

IDs can be provided as positional arguments or via stdin (--stdin).
When using --stdin, each line is scanned for a toast id.

Examples:
  # Close one toast
  toast close 01HZ3X2J5YFMK2V3P4Q6R7S8T9

  # Close everything on screen
  toast close --all

  # Dismiss every error toast
  toast list --filter kind=error -o ids | toast close --stdin --dismiss`,
	RunE: runClose,
}

func init() {
	rootCmd.AddCommand(closeCmd)

	closeCmd.Flags().BoolVarP(&closeOpts.all, "all", "a", false,
		"Close every live toast")
	closeCmd.Flags().BoolVar(&closeOpts.stdin, "stdin", false,
		"Read IDs from stdin (scans each line for a toast id)")
	closeCmd.Flags().BoolVar(&closeOpts.dismiss, "dismiss", false,
		"Record the close as a user dismissal")
}

func runClose(cmd *cobra.Command, args []string) error {
	ids := args
	if closeOpts.stdin {
		stdinIDs, err := readIDs(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read from stdin: %w", err)
		}
		ids = append(ids, stdinIDs...)
	}

	if closeOpts.all {
		if len(ids) > 0 {
			return fmt.Errorf("--all does not take ids")
		}
		return withClient(func(ctx context.Context, c *dbus.Client) error {
			n, err := c.CloseAll(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "closed %d toasts\n", n)
			return nil
		})
	}

	if len(ids) == 0 {
		return fmt.Errorf("no toast IDs provided")
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)

	return withClient(func(ctx context.Context, c *dbus.Client) error {
		var closed, failed int
		for _, id := range ids {
			var err error
			if closeOpts.dismiss {
				err = c.Dismiss(ctx, id)
			} else {
				err = c.CloseToast(ctx, id)
			}
			if err != nil {
				logger.Warn("failed to close toast", "toast_id", id, "error", err)
				failed++
				continue
			}
			closed++
		}

		if failed > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "closed %d toasts, %d failed\n", closed, failed)
			return fmt.Errorf("%d toasts could not be closed", failed)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "closed %d toasts\n", closed)
		return nil
	})
}

// Toast ids are ULIDs: 26 characters of Crockford base32.
var ulidPattern = regexp.MustCompile(`\b[0-9A-HJKMNP-TV-Z]{26}\b`)

// readIDs scans r for toast ids, one or more per line.
func readIDs(r io.Reader) ([]string, error) {
	var ids []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		for _, match := range ulidPattern.FindAllString(line, -1) {
			if _, err := ulid.ParseStrict(match); err == nil {
				ids = append(ids, match)
			}
		}
	}
	return ids, scanner.Err()
}
