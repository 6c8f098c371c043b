package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"
)

// PlainFormatter formats rows as readable text, one block per row.
type PlainFormatter struct {
	opts     FormatterOptions
	template *template.Template
	err      error
}

// NewPlainFormatter creates a new plain text formatter. A template that
// fails to parse is reported by Format.
func NewPlainFormatter(opts FormatterOptions) *PlainFormatter {
	f := &PlainFormatter{opts: opts}
	f.template, f.err = parseTemplate("plain", opts.Template)
	return f
}

// Format writes rows as plain text.
func (f *PlainFormatter) Format(w io.Writer, rows []Row) error {
	if f.err != nil {
		return f.err
	}
	now := f.opts.now()
	for i, r := range rows {
		if f.template != nil {
			data := templateData{Row: r, Index: i + 1, RelativeTime: relativeTime(r.CreatedAt, now)}
			if err := f.template.Execute(w, data); err != nil {
				return err
			}
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
			continue
		}
		if _, err := io.WriteString(w, f.block(i+1, r)); err != nil {
			return err
		}
	}
	return nil
}

func (f *PlainFormatter) block(index int, r Row) string {
	var sb strings.Builder
	if f.opts.ShowIndex {
		fmt.Fprintf(&sb, "[%d] ", index)
	}
	fmt.Fprintf(&sb, "%s <%s> %s", kindIcon(r.Kind), r.Kind, r.Title)

	var status []string
	if r.State != "" {
		status = append(status, r.State)
	}
	if r.Reason != "" {
		status = append(status, r.Reason)
	}
	if f.opts.ShowTime {
		status = append(status, relativeTime(r.CreatedAt, f.opts.now()))
	}
	if len(status) > 0 {
		fmt.Fprintf(&sb, " (%s)", strings.Join(status, ", "))
	}
	sb.WriteString("\n")

	if r.Body != "" {
		sb.WriteString("    " + sanitizeBody(r.Body, f.opts.BodyMaxLen, f.opts.IncludeNewline) + "\n")
	}
	return sb.String()
}
