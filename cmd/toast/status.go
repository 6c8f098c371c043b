package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/toastd/internal/core"
	"github.com/jmylchreest/toastd/internal/dbus"
	"github.com/jmylchreest/toastd/internal/model"
	"github.com/jmylchreest/toastd/internal/output"
)

// WaybarStatus represents the Waybar custom module JSON format.
type WaybarStatus struct {
	Text       string `json:"text"`
	Alt        string `json:"alt,omitempty"`
	Tooltip    string `json:"tooltip,omitempty"`
	Class      string `json:"class,omitempty"`
	Percentage int    `json:"percentage,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Output Waybar-compatible JSON status",
	Long: `Output the toast stack in Waybar's custom module JSON format.

This is designed to be used with Waybar's custom module:

  "custom/toasts": {
    "exec": "toast status",
    "interval": 2,
    "return-type": "json",
    "on-click": "toast close --all"
  }

The output includes:
  - text: Number of live toasts
  - alt/class: The most severe kind on screen (error, warning, success,
    info), "empty" or "offline"
  - tooltip: Breakdown by kind`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	var infos []dbus.ToastInfo
	err := withClient(func(ctx context.Context, c *dbus.Client) error {
		var err error
		infos, err = c.List(ctx)
		return err
	})
	if err != nil {
		logger.Debug("daemon unavailable", "error", err)
		return outputStatus(cmd.OutOrStdout(), WaybarStatus{Alt: "offline", Class: "offline"})
	}
	return outputStatus(cmd.OutOrStdout(), generateStatus(rowsFromInfos(infos)))
}

// severity orders kinds for the status class, most severe first.
var severity = []model.Kind{model.KindError, model.KindWarning, model.KindSuccess, model.KindInfo}

// generateStatus summarises the live toasts.
func generateStatus(rows []output.Row) WaybarStatus {
	var live []output.Row
	for _, r := range rows {
		if r.State != model.StateClosing.String() {
			live = append(live, r)
		}
	}
	if len(live) == 0 {
		return WaybarStatus{Alt: "empty", Class: "empty"}
	}

	counts := core.CountByKind(live)
	var (
		class string
		lines []string
	)
	for _, kind := range severity {
		n := counts[string(kind)]
		if n == 0 {
			continue
		}
		if class == "" {
			class = string(kind)
		}
		lines = append(lines, fmt.Sprintf("%s: %d", model.KindLabels[kind], n))
	}
	if class == "" {
		class = string(model.KindInfo)
	}

	return WaybarStatus{
		Text:       fmt.Sprintf("%d", len(live)),
		Alt:        class,
		Tooltip:    fmt.Sprintf("%d active\n%s", len(live), strings.Join(lines, "\n")),
		Class:      class,
		Percentage: min(len(live), 100),
	}
}

// outputStatus writes the status as JSON.
func outputStatus(w io.Writer, status WaybarStatus) error {
	return json.NewEncoder(w).Encode(status)
}
