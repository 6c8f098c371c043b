package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"
)

// DmenuFormatter formats rows for dmenu/rofi/fuzzel, one per line.
type DmenuFormatter struct {
	opts     FormatterOptions
	template *template.Template
	err      error
}

// NewDmenuFormatter creates a new dmenu formatter.
func NewDmenuFormatter(opts FormatterOptions) *DmenuFormatter {
	f := &DmenuFormatter{opts: opts}
	f.template, f.err = parseTemplate("dmenu", opts.Template)
	return f
}

// Format writes rows in dmenu format.
func (f *DmenuFormatter) Format(w io.Writer, rows []Row) error {
	if f.err != nil {
		return f.err
	}
	for i, r := range rows {
		line, err := f.formatLine(i+1, r)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func (f *DmenuFormatter) formatLine(index int, r Row) (string, error) {
	now := f.opts.now()
	if f.template != nil {
		var buf strings.Builder
		data := templateData{Row: r, Index: index, RelativeTime: relativeTime(r.CreatedAt, now)}
		if err := f.template.Execute(&buf, data); err != nil {
			return "", err
		}
		return strings.ReplaceAll(buf.String(), "\n", " "), nil
	}

	sep := f.opts.Separator
	if sep == "" {
		sep = " | "
	}

	var parts []string
	if f.opts.ShowIndex {
		parts = append(parts, fmt.Sprintf("%d", index))
	}
	if f.opts.ShowTime {
		parts = append(parts, relativeTime(r.CreatedAt, now))
	}
	parts = append(parts, kindIcon(r.Kind)+" "+r.Kind)

	content := r.Title
	if body := sanitizeBody(r.Body, f.opts.BodyMaxLen, false); body != "" {
		content += ": " + body
	}
	parts = append(parts, content)

	return strings.Join(parts, sep), nil
}
