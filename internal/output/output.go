// Package output provides list formatters for toasts and history records.
package output

import (
	"io"
	"time"

	"github.com/jmylchreest/toastd/internal/model"
	"github.com/jmylchreest/toastd/internal/store"
)

// Row is one line of CLI output. Live toasts and history records are both
// flattened into it so every formatter handles a single shape.
type Row struct {
	ID          string    `json:"id" yaml:"id"`
	Kind        string    `json:"kind" yaml:"kind"`
	Title       string    `json:"title" yaml:"title"`
	Body        string    `json:"body,omitempty" yaml:"body,omitempty"`
	State       string    `json:"state,omitempty" yaml:"state,omitempty"`
	Reason      string    `json:"reason,omitempty" yaml:"reason,omitempty"`
	DurationMs  int       `json:"duration_ms" yaml:"duration_ms"`
	RemainingMs int       `json:"remaining_ms,omitempty" yaml:"remaining_ms,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitzero" yaml:"created_at,omitempty"`
	ClosedAt    time.Time `json:"closed_at,omitzero" yaml:"closed_at,omitempty"`
}

// FromToast converts a live toast, sampling its countdown at now.
func FromToast(t *model.Toast, now time.Time) Row {
	r := Row{
		ID:          t.ID,
		Kind:        string(t.Kind),
		Title:       t.Title,
		Body:        t.Body,
		State:       t.State.String(),
		DurationMs:  t.DurationMs,
		RemainingMs: t.RemainingAt(now),
		CreatedAt:   t.CreatedAt,
		ClosedAt:    t.ClosedAt,
	}
	if t.Reason != 0 {
		r.Reason = t.Reason.String()
	}
	return r
}

// FromRecord converts a history record.
func FromRecord(rec store.Record) Row {
	return Row{
		ID:         rec.ID,
		Kind:       string(rec.Kind),
		Title:      rec.Title,
		Body:       rec.Body,
		Reason:     rec.Reason.String(),
		DurationMs: rec.DurationMs,
		CreatedAt:  rec.CreatedAt,
		ClosedAt:   rec.ClosedAt,
	}
}

// FromRecords converts a slice of history records.
func FromRecords(recs []store.Record) []Row {
	rows := make([]Row, len(recs))
	for i, rec := range recs {
		rows[i] = FromRecord(rec)
	}
	return rows
}

// Formatter formats rows for output.
type Formatter interface {
	// Format writes formatted rows to the writer.
	Format(w io.Writer, rows []Row) error
}

// FormatType represents an output format type.
type FormatType string

const (
	FormatPlain FormatType = "plain"
	FormatJSON  FormatType = "json"
	FormatYAML  FormatType = "yaml"
	FormatDmenu FormatType = "dmenu"
	FormatIDs   FormatType = "ids"
)

// FormatTypes returns every supported format, for flag help.
func FormatTypes() []FormatType {
	return []FormatType{FormatPlain, FormatJSON, FormatYAML, FormatDmenu, FormatIDs}
}

// NewFormatter creates a formatter for the specified format type. Unknown
// types fall back to plain.
func NewFormatter(format FormatType, opts FormatterOptions) Formatter {
	switch format {
	case FormatJSON:
		return NewJSONFormatter()
	case FormatYAML:
		return NewYAMLFormatter()
	case FormatDmenu:
		return NewDmenuFormatter(opts)
	case FormatIDs:
		return NewIDsFormatter()
	default:
		return NewPlainFormatter(opts)
	}
}

// FormatterOptions configures formatter behavior.
type FormatterOptions struct {
	Template       string    // Custom template for dmenu/plain format
	ShowIndex      bool      // Show 1-based index prefix
	ShowTime       bool      // Show relative creation time
	BodyMaxLen     int       // Maximum body length (0 = unlimited)
	Separator      string    // Field separator for dmenu format
	IncludeNewline bool      // Keep newlines in body (default: replace with space)
	Now            time.Time // Reference for relative times; zero means time.Now()
}

// DefaultFormatterOptions returns sensible defaults for dmenu output.
func DefaultFormatterOptions() FormatterOptions {
	return FormatterOptions{
		ShowIndex:  true,
		ShowTime:   true,
		BodyMaxLen: 80,
		Separator:  " | ",
	}
}

func (o FormatterOptions) now() time.Time {
	if o.Now.IsZero() {
		return time.Now()
	}
	return o.Now
}
