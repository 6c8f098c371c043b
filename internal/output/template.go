package output

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/toastd/internal/model"
)

// templateData is what custom templates see: the row fields plus Index and
// RelativeTime.
type templateData struct {
	Row
	Index        int
	RelativeTime string
}

func parseTemplate(name, text string) (*template.Template, error) {
	if text == "" {
		return nil, nil
	}
	tmpl, err := template.New(name).Funcs(templateFuncs()).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
	}
	return tmpl, nil
}

// templateFuncs returns template helper functions.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"truncate": truncate,
		"reltime": func(t time.Time) string {
			return relativeTime(t, time.Now())
		},
		"kindIcon": kindIcon,
		"ms": func(ms int) string {
			if ms <= 0 {
				return "persistent"
			}
			return (time.Duration(ms) * time.Millisecond).String()
		},
		"upper": strings.ToUpper,
	}
}

// kindIcon returns a one-character marker for a kind.
func kindIcon(kind string) string {
	switch model.Kind(kind) {
	case model.KindSuccess:
		return "✓"
	case model.KindError:
		return "✗"
	case model.KindWarning:
		return "!"
	default:
		return "i"
	}
}

// relativeTime returns a human-readable time relative to now.
func relativeTime(t, now time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	if now.Sub(t) < time.Second {
		return "now"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if maxLen <= 0 || len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// sanitizeBody cleans up body text for single-line display.
func sanitizeBody(body string, maxLen int, includeNewline bool) string {
	if !includeNewline {
		body = strings.ReplaceAll(body, "\r", "")
		body = strings.ReplaceAll(body, "\n", " ")
	}
	body = strings.Join(strings.FieldsFunc(body, func(r rune) bool {
		return r == ' ' || r == '\t'
	}), " ")
	return truncate(strings.TrimSpace(body), maxLen)
}

// FormatField returns a single field of a row, for scripting.
func FormatField(r Row, field string) string {
	switch strings.ToLower(field) {
	case "id":
		return r.ID
	case "kind", "type":
		return r.Kind
	case "title":
		return r.Title
	case "body", "message":
		return r.Body
	case "state":
		return r.State
	case "reason":
		return r.Reason
	case "all", "full":
		return fmt.Sprintf("%s\n%s", r.Title, r.Body)
	default:
		return r.Title
	}
}
