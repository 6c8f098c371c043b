// Package tui provides the Bubble Tea showcase: an in-process toast center
// drawn in the terminal, driven from the keyboard.
package tui

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/toastd/internal/model"
	"github.com/jmylchreest/toastd/internal/output"
	"github.com/jmylchreest/toastd/internal/render"
	"github.com/jmylchreest/toastd/internal/toast"
)

const (
	tickInterval    = 100 * time.Millisecond
	actionTimeout   = 2 * time.Second
	eventBuffer     = 64
	maxLogLines     = 200
	statusLifetime  = 3 * time.Second
	logPanelMinimum = 30
)

// Mode represents the current UI mode.
type Mode int

const (
	ModeStack Mode = iota
	ModeCompose
	ModeHelp
)

var samples = map[model.Kind]struct{ title, body string }{
	model.KindSuccess: {"Deploy finished", "api rolled out to production"},
	model.KindError:   {"Build failed", "go test ./... exited with status 1"},
	model.KindWarning: {"Disk almost full", "/home is at 92% capacity"},
	model.KindInfo:    {"New message", "Lunch at noon?"},
}

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	selectStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	logPaneStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("8")).
			PaddingLeft(1)
)

// Options configures a showcase model.
type Options struct {
	Renderer  *render.Terminal
	Gap       int    // Blank lines between stacked toasts
	Clipboard string // Clipboard command; empty auto-detects
}

// Model is the showcase TUI model.
type Model struct {
	svc         *toast.Service
	term        *render.Terminal
	gap         int
	clipboard   string
	now         func() time.Time
	events      <-chan toast.Event
	unsubscribe func()

	mode     Mode
	viewport viewport.Model
	input    textinput.Model
	help     help.Model
	keys     KeyMap

	stack    []*model.Toast
	selected int
	hovered  string
	sticky   bool
	log      []string
	width    int
	height   int
	ready    bool

	statusMsg string
	statusErr bool
}

// New creates a showcase bound to svc and subscribes to its events.
func New(ctx context.Context, svc *toast.Service, opts Options) (Model, error) {
	term := opts.Renderer
	if term == nil {
		term = render.NewTerminal(render.DefaultTerminalWidth)
	}

	events := make(chan toast.Event, eventBuffer)
	unsubscribe, err := svc.Subscribe(ctx, func(ev toast.Event) {
		select {
		case events <- ev:
		default:
		}
	})
	if err != nil {
		return Model{}, fmt.Errorf("failed to subscribe to center: %w", err)
	}

	input := textinput.New()
	input.Placeholder = "kind: title | body"
	input.CharLimit = 200

	m := Model{
		svc:         svc,
		term:        term,
		gap:         opts.Gap,
		clipboard:   opts.Clipboard,
		now:         time.Now,
		events:      events,
		unsubscribe: unsubscribe,
		mode:        ModeStack,
		viewport:    viewport.New(logPanelMinimum, 10),
		input:       input,
		help:        help.New(),
		keys:        DefaultKeyMap(),
	}
	m.refresh()
	return m, nil
}

// Close removes the event subscription.
func (m Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

type tickMsg time.Time

type eventMsg toast.Event

type statusMsg struct {
	text  string
	isErr bool
}

type clearStatusMsg struct{}

// Init starts the refresh tick and the event pump.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tick(), m.waitForEvent)
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) waitForEvent() tea.Msg {
	ev, ok := <-m.events
	if !ok {
		return nil
	}
	return eventMsg(ev)
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.viewport.Width = max(msg.Width-m.term.Width()-4, logPanelMinimum)
		m.viewport.Height = max(msg.Height-4, 1)
		m.viewport.SetContent(strings.Join(m.log, "\n"))
		m.viewport.GotoBottom()
		return m, nil

	case tickMsg:
		m.refresh()
		return m, tick()

	case eventMsg:
		m.appendLog(toast.Event(msg))
		m.refresh()
		return m, m.waitForEvent

	case statusMsg:
		m.statusMsg = msg.text
		m.statusErr = msg.isErr
		return m, tea.Tick(statusLifetime, func(time.Time) tea.Msg { return clearStatusMsg{} })

	case clearStatusMsg:
		m.statusMsg = ""
		m.statusErr = false
		return m, nil
	}

	if m.mode == ModeCompose {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// handleKey handles key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.mode == ModeCompose {
		return m.handleComposeKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		if m.mode == ModeHelp {
			m.mode = ModeStack
		} else {
			m.mode = ModeHelp
		}
		return m, nil
	}

	if m.mode == ModeHelp {
		if key.Matches(msg, m.keys.Back) {
			m.mode = ModeStack
		}
		return m, nil
	}
	return m.handleStackKey(msg)
}

func (m Model) handleStackKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.selected = max(m.selected-1, 0)
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.selected = min(m.selected+1, max(len(m.stack)-1, 0))
		return m, nil

	case key.Matches(msg, m.keys.Success):
		return m.showSample(model.KindSuccess)
	case key.Matches(msg, m.keys.Error):
		return m.showSample(model.KindError)
	case key.Matches(msg, m.keys.Warning):
		return m.showSample(model.KindWarning)
	case key.Matches(msg, m.keys.Info):
		return m.showSample(model.KindInfo)

	case key.Matches(msg, m.keys.Compose):
		m.mode = ModeCompose
		m.input.SetValue("")
		m.input.Focus()
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Sticky):
		m.sticky = !m.sticky
		if m.sticky {
			return m, status("New toasts stay until dismissed", false)
		}
		return m, status("New toasts auto-dismiss", false)

	case key.Matches(msg, m.keys.Hover):
		return m.toggleHover()

	case key.Matches(msg, m.keys.Dismiss):
		t := m.current()
		if t == nil {
			return m, nil
		}
		if err := m.do(func(ctx context.Context) error { return m.svc.Dismiss(ctx, t.ID) }); err != nil {
			return m, status("Dismiss failed: "+err.Error(), true)
		}
		if m.hovered == t.ID {
			m.hovered = ""
		}
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.CloseAll):
		var n int
		err := m.do(func(ctx context.Context) error {
			var err error
			n, err = m.svc.CloseAll(ctx, model.ReasonClosed)
			return err
		})
		if err != nil {
			return m, status("Close all failed: "+err.Error(), true)
		}
		m.hovered = ""
		m.refresh()
		return m, status(fmt.Sprintf("Closed %d toasts", n), false)

	case key.Matches(msg, m.keys.Copy):
		if t := m.current(); t != nil {
			return m, m.copyToClipboard(t.Body)
		}
		return m, nil

	case key.Matches(msg, m.keys.CopyJSON):
		return m, m.copyStack(output.NewJSONFormatter())

	case key.Matches(msg, m.keys.CopyYAML):
		return m, m.copyStack(output.NewYAMLFormatter())
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleComposeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = ModeStack
		m.input.Blur()
		return m, nil

	case tea.KeyEnter:
		m.mode = ModeStack
		m.input.Blur()
		opts := ParseCompose(m.input.Value())
		return m.show(opts)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// ParseCompose turns "kind: title | body" into options. The kind prefix and
// the body are optional; an unknown prefix is kept as part of the title.
func ParseCompose(s string) model.Options {
	var opts model.Options
	s = strings.TrimSpace(s)
	if prefix, rest, ok := strings.Cut(s, ":"); ok {
		if kind, known := model.ParseKind(prefix); known {
			opts.Kind = string(kind)
			s = strings.TrimSpace(rest)
		}
	}
	title, body, _ := strings.Cut(s, "|")
	opts.Title = strings.TrimSpace(title)
	opts.Body = strings.TrimSpace(body)
	return opts
}

func (m Model) showSample(kind model.Kind) (tea.Model, tea.Cmd) {
	sample := samples[kind]
	return m.show(model.Options{Kind: string(kind), Title: sample.title, Body: sample.body})
}

func (m Model) show(opts model.Options) (tea.Model, tea.Cmd) {
	if m.sticky {
		opts.DurationMs = model.Ms(0)
	}
	if err := m.do(func(ctx context.Context) error {
		_, err := m.svc.Show(ctx, opts)
		return err
	}); err != nil {
		return m, status("Show failed: "+err.Error(), true)
	}
	m.refresh()
	return m, nil
}

// toggleHover moves the simulated pointer onto the selected toast, or off it
// when it is already there.
func (m Model) toggleHover() (tea.Model, tea.Cmd) {
	t := m.current()
	if t == nil {
		return m, nil
	}

	leaving := m.hovered
	err := m.do(func(ctx context.Context) error {
		if leaving != "" {
			if err := m.svc.PointerLeave(ctx, leaving); err != nil && !errors.Is(err, toast.ErrNotFound) {
				return err
			}
		}
		if leaving == t.ID {
			return nil
		}
		return m.svc.PointerEnter(ctx, t.ID)
	})
	if err != nil {
		return m, status("Hover failed: "+err.Error(), true)
	}

	if leaving == t.ID {
		m.hovered = ""
	} else {
		m.hovered = t.ID
	}
	m.refresh()
	return m, nil
}

func (m Model) do(fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()
	return fn(ctx)
}

// refresh snapshots the stack and keeps the selection in range.
func (m *Model) refresh() {
	var stack []*model.Toast
	err := m.do(func(ctx context.Context) error {
		var err error
		stack, err = m.svc.Active(ctx)
		return err
	})
	if err != nil {
		return
	}
	m.stack = stack
	if m.selected >= len(stack) {
		m.selected = max(len(stack)-1, 0)
	}
	if m.hovered != "" && !m.inStack(m.hovered) {
		m.hovered = ""
	}
}

func (m *Model) inStack(id string) bool {
	for _, t := range m.stack {
		if t.ID == id {
			return true
		}
	}
	return false
}

func (m Model) current() *model.Toast {
	if m.selected < 0 || m.selected >= len(m.stack) {
		return nil
	}
	return m.stack[m.selected]
}

func (m *Model) appendLog(ev toast.Event) {
	line := mutedStyle.Render(ev.At.Format("15:04:05.000")) + " " + fmt.Sprintf("%-12s", ev.Type)
	if ev.Toast != nil {
		line += " " + ev.Toast.Title
		if ev.Type == toast.EventClosing {
			line += mutedStyle.Render(" (" + ev.Toast.Reason.String() + ")")
		}
	}
	m.log = append(m.log, line)
	if len(m.log) > maxLogLines {
		m.log = m.log[len(m.log)-maxLogLines:]
	}
	m.viewport.SetContent(strings.Join(m.log, "\n"))
	m.viewport.GotoBottom()
}

func status(text string, isErr bool) tea.Cmd {
	return func() tea.Msg { return statusMsg{text: text, isErr: isErr} }
}

type copyResultMsg struct {
	err error
}

func (m Model) copyToClipboard(text string) tea.Cmd {
	command := m.clipboard
	return func() tea.Msg {
		if err := copyText(text, command); err != nil {
			return statusMsg{text: "Copy failed: " + err.Error(), isErr: true}
		}
		return statusMsg{text: "Copied to clipboard"}
	}
}

func (m Model) copyStack(f output.Formatter) tea.Cmd {
	now := m.now()
	rows := make([]output.Row, 0, len(m.stack))
	for _, t := range m.stack {
		rows = append(rows, output.FromToast(t, now))
	}
	var buf bytes.Buffer
	if err := f.Format(&buf, rows); err != nil {
		return status("Failed to format stack: "+err.Error(), true)
	}
	return m.copyToClipboard(buf.String())
}

// View renders the TUI.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	switch m.mode {
	case ModeHelp:
		return m.viewHelp()
	default:
		return m.viewStack()
	}
}

func (m Model) viewStack() string {
	now := m.now()

	title := headerStyle.Render("toastd showcase")
	if m.sticky {
		title += " " + mutedStyle.Render("[persistent]")
	}

	var stack string
	if len(m.stack) == 0 {
		stack = mutedStyle.Render("no toasts, press 1-4")
	} else {
		parts := make([]string, 0, len(m.stack))
		for i, t := range m.stack {
			marker := "  "
			if i == m.selected {
				marker = selectStyle.Render("▶ ")
			}
			parts = append(parts, lipgloss.JoinHorizontal(lipgloss.Top, marker, m.term.Toast(t, now)))
		}
		stack = strings.Join(parts, strings.Repeat("\n", m.gap+1))
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(m.term.Width()+3).Render(stack),
		logPaneStyle.Render(m.viewport.View()),
	)

	var footer string
	switch {
	case m.mode == ModeCompose:
		footer = "New: " + m.input.View()
	case m.statusMsg != "":
		style := mutedStyle
		if m.statusErr {
			style = errorStyle
		}
		footer = style.Render(m.statusMsg)
	case m.current() != nil:
		footer = m.describe(m.current(), now) + "\n" + m.help.ShortHelpView(m.keys.ShortHelp())
	default:
		footer = m.help.ShortHelpView(m.keys.ShortHelp())
	}

	return title + "\n\n" + body + "\n" + footer
}

// describe summarises a toast for the footer.
func (m Model) describe(t *model.Toast, now time.Time) string {
	parts := []string{t.Kind.Label(), t.State.String()}
	if t.Persistent() {
		parts = append(parts, "persistent")
	} else {
		left := time.Duration(t.RemainingAt(now)) * time.Millisecond
		parts = append(parts, left.Round(100*time.Millisecond).String()+" left")
	}
	parts = append(parts, "shown "+humanize.RelTime(t.CreatedAt, now, "ago", "from now"))
	return mutedStyle.Render(strings.Join(parts, " · "))
}

func (m Model) viewHelp() string {
	h := m.help
	h.ShowAll = true
	return headerStyle.Render("Keyboard Shortcuts") + "\n\n" +
		h.View(m.keys) + "\n\n" +
		mutedStyle.Render("Hovering pauses the countdown; hover again to resume.") + "\n" +
		mutedStyle.Render("Press ? or esc to return")
}
