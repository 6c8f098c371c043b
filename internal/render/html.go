// Package render turns toasts into markup: HTML fragments for the browser
// surface and styled text for terminals.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/jmylchreest/toastd/internal/model"
	"github.com/jmylchreest/toastd/internal/toast"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Static returns the browser assets served under /static/.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(fmt.Sprintf("render: static assets missing: %v", err))
	}
	return sub
}

// ToastView is the template model for one toast.
type ToastView struct {
	ID            string
	Kind          model.Kind
	Title         string
	Body          string
	State         model.State
	Visible       bool
	DurationMs    int
	Offset        int
	Countdown     bool
	ProgressFrom  string
	ProgressRunMs int64
	OffsetStyle   template.CSS
	ProgressStyle template.CSS
}

// NewToastView snapshots t at now.
func NewToastView(t *model.Toast, now time.Time) ToastView {
	v := ToastView{
		ID:          t.ID,
		Kind:        t.Kind,
		Title:       t.Title,
		Body:        t.Body,
		State:       t.State,
		Visible:     t.State == model.StateVisible || t.State == model.StatePaused,
		DurationMs:  t.DurationMs,
		Offset:      t.Offset,
		OffsetStyle: template.CSS("--toast-offset: " + strconv.Itoa(t.Offset) + "px"),
	}

	if t.Persistent() {
		return v
	}
	p := ProgressOf(t, now)
	v.Countdown = true
	v.ProgressFrom = strconv.FormatFloat(p.From, 'f', 4, 64)
	v.ProgressRunMs = p.RunMs
	v.ProgressStyle = template.CSS(fmt.Sprintf("width: %.2f%%", p.From*100))
	return v
}

// Progress describes the progress bar animation: it starts at From and
// shrinks to zero over RunMs. RunMs is zero while frozen.
type Progress struct {
	From  float64 `json:"from"`
	RunMs int64   `json:"run_ms"`
}

// ProgressOf returns the progress bar state of t at now.
func ProgressOf(t *model.Toast, now time.Time) Progress {
	if frac, run, ok := t.Countdown(now); ok {
		return Progress{From: frac, RunMs: run.Milliseconds()}
	}
	return Progress{From: t.Progress(now)}
}

// PageData is the model for the full page.
type PageData struct {
	PageOptions
	CSS            template.CSS
	ContainerID    string
	ContainerStyle template.CSS
	StaticPrefix   string
	Toasts         []ToastView
}

// PageOptions describe the page around the container.
type PageOptions struct {
	Title    string
	Theme    string
	Position string // "top-right", "bottom-left", ...
	Width    int    // Container width in pixels, 0 = theme default
}

// HTML renders toasts with the embedded templates.
type HTML struct {
	tmpl *template.Template
}

// NewHTML parses the embedded templates.
func NewHTML() (*HTML, error) {
	tmpl, err := template.New("toastd").ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &HTML{tmpl: tmpl}, nil
}

// Toast writes the fragment for one toast.
func (h *HTML) Toast(w io.Writer, t *model.Toast, now time.Time) error {
	return h.tmpl.ExecuteTemplate(w, "toast", NewToastView(t, now))
}

// ToastString renders one toast to a string.
func (h *HTML) ToastString(t *model.Toast, now time.Time) (string, error) {
	var buf bytes.Buffer
	if err := h.Toast(&buf, t, now); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Page writes a complete document: the stylesheet is injected once, ahead of
// the single container holding toasts in stacking order.
func (h *HTML) Page(w io.Writer, opts PageOptions, css string, toasts []*model.Toast, now time.Time) error {
	if opts.Position == "" {
		opts.Position = "top-right"
	}
	data := PageData{
		PageOptions:  opts,
		CSS:          template.CSS(css),
		ContainerID:  toast.ContainerID,
		StaticPrefix: "/static",
	}
	if opts.Width > 0 {
		data.ContainerStyle = template.CSS("width: " + strconv.Itoa(opts.Width) + "px")
	}
	for _, t := range toasts {
		data.Toasts = append(data.Toasts, NewToastView(t, now))
	}
	return h.tmpl.ExecuteTemplate(w, "page", data)
}

// Height estimates in CSS pixels, matching the bundled themes' box model.
const (
	htmlPadding    = 30
	htmlLineHeight = 20
	htmlCharsPerLn = 38
)

// EstimateHeight approximates the rendered height of a toast in the bundled
// themes so offsets are right before the browser reports anything.
func EstimateHeight(t *model.Toast) int {
	lines := wrappedLines(t.Title) + wrappedLines(t.Body)
	if lines == 0 {
		lines = 1
	}
	return htmlPadding + lines*htmlLineHeight
}

func wrappedLines(s string) int {
	n := utf8.RuneCountInString(s)
	if n == 0 {
		return 0
	}
	return (n + htmlCharsPerLn - 1) / htmlCharsPerLn
}

// HTMLMeasurer measures toasts for the browser surface.
func HTMLMeasurer() toast.Measurer {
	return toast.MeasureFunc(EstimateHeight)
}
