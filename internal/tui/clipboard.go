package tui

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
)

// ErrNoClipboard is returned when no clipboard command is configured or found.
var ErrNoClipboard = errors.New("no clipboard command available")

// copyText pipes text into the clipboard command.
func copyText(text, command string) error {
	parts := strings.Fields(detectClipboardCommand(command))
	if len(parts) == 0 {
		return ErrNoClipboard
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c := exec.CommandContext(ctx, parts[0], parts[1:]...)
	c.Stdin = strings.NewReader(text)
	return c.Run()
}

// detectClipboardCommand returns command if set, otherwise the first of
// wl-copy, xclip and xsel found on PATH.
func detectClipboardCommand(command string) string {
	if command != "" {
		return command
	}
	if _, err := exec.LookPath("wl-copy"); err == nil {
		return "wl-copy"
	}
	if _, err := exec.LookPath("xclip"); err == nil {
		return "xclip -selection clipboard"
	}
	if _, err := exec.LookPath("xsel"); err == nil {
		return "xsel --clipboard --input"
	}
	return ""
}
