package render

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/jmylchreest/toastd/internal/model"
	"github.com/jmylchreest/toastd/internal/toast"
)

// DefaultTerminalWidth is the box width used when none is given.
const DefaultTerminalWidth = 40

// KindColors maps kinds to ANSI colours.
var KindColors = map[model.Kind]lipgloss.Color{
	model.KindSuccess: lipgloss.Color("10"),
	model.KindError:   lipgloss.Color("9"),
	model.KindWarning: lipgloss.Color("11"),
	model.KindInfo:    lipgloss.Color("12"),
}

var kindIcons = map[model.Kind]string{
	model.KindSuccess: "✓",
	model.KindError:   "✗",
	model.KindWarning: "!",
	model.KindInfo:    "i",
}

var (
	bodyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Terminal draws toasts as bordered boxes.
type Terminal struct {
	width int
	bars  map[model.Kind]progress.Model
}

// NewTerminal creates a terminal renderer with boxes width cells wide.
func NewTerminal(width int) *Terminal {
	if width <= 0 {
		width = DefaultTerminalWidth
	}
	r := &Terminal{width: width, bars: make(map[model.Kind]progress.Model)}
	for kind, color := range KindColors {
		r.bars[kind] = progress.New(
			progress.WithSolidFill(string(color)),
			progress.WithWidth(r.inner()),
			progress.WithoutPercentage(),
		)
	}
	return r
}

// Width returns the outer box width.
func (r *Terminal) Width() int {
	return r.width
}

func (r *Terminal) inner() int {
	// border + horizontal padding
	return max(r.width-4, 1)
}

func (r *Terminal) box(kind model.Kind, faint bool) lipgloss.Style {
	color := KindColors[kind]
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(0, 1).
		Width(r.width - 2)
	if faint {
		style = style.Faint(true)
	}
	return style
}

// Toast renders one toast at now.
func (r *Terminal) Toast(t *model.Toast, now time.Time) string {
	color := KindColors[t.Kind]
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(color)

	var lines []string
	header := titleStyle.Render(kindIcons[t.Kind] + " " + t.Title)
	if t.State == model.StatePaused {
		header += " " + mutedStyle.Render("(paused)")
	}
	lines = append(lines, header)
	if t.Body != "" {
		lines = append(lines, bodyStyle.Width(r.inner()).Render(t.Body))
	}
	if !t.Persistent() {
		bar := r.bars[t.Kind]
		lines = append(lines, bar.ViewAs(t.Progress(now)))
	}

	faint := t.State == model.StateClosing || t.State == model.StatePending
	return r.box(t.Kind, faint).Render(strings.Join(lines, "\n"))
}

// Stack renders toasts top to bottom separated by gap blank lines.
func (r *Terminal) Stack(toasts []*model.Toast, gap int, now time.Time) string {
	if len(toasts) == 0 {
		return mutedStyle.Render("no toasts")
	}
	parts := make([]string, 0, len(toasts))
	for _, t := range toasts {
		parts = append(parts, r.Toast(t, now))
	}
	return strings.Join(parts, strings.Repeat("\n", gap+1))
}

// Measure reports a toast's height in lines.
func (r *Terminal) Measure(t *model.Toast) int {
	return lipgloss.Height(r.Toast(t, t.CreatedAt))
}

var _ toast.Measurer = (*Terminal)(nil)
