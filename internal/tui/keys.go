package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines the key bindings for the showcase.
type KeyMap struct {
	// Navigation
	Up   key.Binding
	Down key.Binding

	// Toasts
	Success  key.Binding
	Error    key.Binding
	Warning  key.Binding
	Info     key.Binding
	Compose  key.Binding
	Sticky   key.Binding
	Hover    key.Binding
	Dismiss  key.Binding
	CloseAll key.Binding

	// Clipboard
	Copy     key.Binding
	CopyJSON key.Binding
	CopyYAML key.Binding

	// Global
	Enter key.Binding
	Back  key.Binding
	Quit  key.Binding
	Help  key.Binding
}

// ShortHelp returns a short help message.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Success, k.Error, k.Warning, k.Info, k.Hover, k.Dismiss, k.Help, k.Quit}
}

// FullHelp returns a full help message.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Success, k.Error, k.Warning, k.Info},
		{k.Compose, k.Sticky, k.Hover, k.Dismiss, k.CloseAll},
		{k.Up, k.Down, k.Copy, k.CopyJSON, k.CopyYAML},
		{k.Help, k.Back, k.Quit},
	}
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Success: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "success"),
		),
		Error: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "error"),
		),
		Warning: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "warning"),
		),
		Info: key.NewBinding(
			key.WithKeys("4"),
			key.WithHelp("4", "info"),
		),
		Compose: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new toast"),
		),
		Sticky: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "toggle persistent"),
		),
		Hover: key.NewBinding(
			key.WithKeys("h", " "),
			key.WithHelp("h/space", "hover"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("d", "x"),
			key.WithHelp("d", "dismiss"),
		),
		CloseAll: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "close all"),
		),
		Copy: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "copy body"),
		),
		CopyJSON: key.NewBinding(
			key.WithKeys("C"),
			key.WithHelp("C", "copy stack as JSON"),
		),
		CopyYAML: key.NewBinding(
			key.WithKeys("alt+c"),
			key.WithHelp("alt+c", "copy stack as YAML"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "show"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
	}
}
