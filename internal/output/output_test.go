package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/toastd/internal/model"
	"github.com/jmylchreest/toastd/internal/store"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testRows() []Row {
	return []Row{
		{
			ID:         "01A",
			Kind:       "success",
			Title:      "Deploy finished",
			Body:       "api rolled out to prod",
			State:      "visible",
			DurationMs: 5000,
			CreatedAt:  now.Add(-5 * time.Minute),
		},
		{
			ID:         "01B",
			Kind:       "error",
			Title:      "Build failed",
			Body:       "exit status 1",
			Reason:     "dismissed",
			DurationMs: 0,
			CreatedAt:  now.Add(-2 * time.Hour),
		},
	}
}

func testOptions() FormatterOptions {
	opts := DefaultFormatterOptions()
	opts.Now = now
	return opts
}

func TestFromToast(t *testing.T) {
	tt := model.NewToast("01A", model.Options{Kind: "warning", Title: "Disk", DurationMs: model.Ms(4000)}, 5000, now)
	require.NoError(t, tt.Start(now))

	r := FromToast(tt, now.Add(time.Second))
	assert.Equal(t, "warning", r.Kind)
	assert.Equal(t, "visible", r.State)
	assert.Equal(t, 3000, r.RemainingMs)
	assert.Empty(t, r.Reason)

	require.NoError(t, tt.BeginClose(now.Add(2*time.Second), model.ReasonDismissed))
	r = FromToast(tt, now.Add(3*time.Second))
	assert.Equal(t, "closing", r.State)
	assert.Equal(t, "dismissed", r.Reason)
	assert.Equal(t, 2000, r.RemainingMs)
}

func TestFromRecords(t *testing.T) {
	rows := FromRecords([]store.Record{{
		ID:        "01C",
		Kind:      model.KindInfo,
		Title:     "Hello",
		Reason:    model.ReasonExpired,
		CreatedAt: now.Add(-time.Minute),
		ClosedAt:  now,
	}})
	require.Len(t, rows, 1)
	assert.Equal(t, "expired", rows[0].Reason)
	assert.Empty(t, rows[0].State)
	assert.Equal(t, now, rows[0].ClosedAt)
}

func TestDmenuFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewDmenuFormatter(testOptions()).Format(&buf, testRows()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "1 | 5 minutes ago | ✓ success | Deploy finished: api rolled out to prod", lines[0])
	assert.Equal(t, "2 | 2 hours ago | ✗ error | Build failed: exit status 1", lines[1])
}

func TestDmenuFormatter_NoIndex(t *testing.T) {
	opts := testOptions()
	opts.ShowIndex = false
	opts.ShowTime = false
	var buf bytes.Buffer
	require.NoError(t, NewDmenuFormatter(opts).Format(&buf, testRows()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.True(t, strings.HasPrefix(lines[0], "✓ success"))
}

func TestDmenuFormatter_CustomTemplate(t *testing.T) {
	opts := testOptions()
	opts.Template = "{{.Index}}: {{upper .Kind}} - {{.Title}} ({{ms .DurationMs}})"
	var buf bytes.Buffer
	require.NoError(t, NewDmenuFormatter(opts).Format(&buf, testRows()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, "1: SUCCESS - Deploy finished (5s)", lines[0])
	assert.Equal(t, "2: ERROR - Build failed (persistent)", lines[1])
}

func TestFormatter_BadTemplate(t *testing.T) {
	opts := testOptions()
	opts.Template = "{{.Title"
	assert.Error(t, NewDmenuFormatter(opts).Format(&bytes.Buffer{}, testRows()))
	assert.Error(t, NewPlainFormatter(opts).Format(&bytes.Buffer{}, testRows()))

	opts.Template = "{{.Missing}}"
	assert.Error(t, NewDmenuFormatter(opts).Format(&bytes.Buffer{}, testRows()))
}

func TestDmenuFormatter_TruncateBody(t *testing.T) {
	rows := []Row{{
		ID:    "x",
		Kind:  "info",
		Title: "Test",
		Body:  "This is a very long body that should be truncated when the max length is set",
	}}
	opts := testOptions()
	opts.BodyMaxLen = 20
	var buf bytes.Buffer
	require.NoError(t, NewDmenuFormatter(opts).Format(&buf, rows))

	out := buf.String()
	assert.Contains(t, out, "This is a very lo...")
	assert.NotContains(t, out, "truncated")
}

func TestPlainFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPlainFormatter(testOptions()).Format(&buf, testRows()))

	out := buf.String()
	assert.Contains(t, out, "[1] ✓ <success> Deploy finished (visible, 5 minutes ago)\n")
	assert.Contains(t, out, "    api rolled out to prod\n")
	assert.Contains(t, out, "[2] ✗ <error> Build failed (dismissed, 2 hours ago)\n")
}

func TestJSONFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONFormatter().Format(&buf, testRows()))

	var result []Row
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	require.Len(t, result, 2)
	assert.Equal(t, "Deploy finished", result[0].Title)
	assert.Equal(t, "dismissed", result[1].Reason)

	buf.Reset()
	require.NoError(t, NewJSONFormatter().Format(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestJSONFormatter_FormatSingle(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONFormatter().FormatSingle(&buf, testRows()[0]))

	var result Row
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	assert.Equal(t, "01A", result.ID)
}

func TestYAMLFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewYAMLFormatter().Format(&buf, testRows()))
	assert.Contains(t, buf.String(), "title: Deploy finished")

	var result []Row
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &result))
	require.Len(t, result, 2)
	assert.Equal(t, "error", result[1].Kind)
	assert.True(t, result[1].CreatedAt.Equal(now.Add(-2*time.Hour)))
}

func TestIDsFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewIDsFormatter().Format(&buf, testRows()))
	assert.Equal(t, "01A\n01B\n", buf.String())
}

func TestFormatField(t *testing.T) {
	r := testRows()[1]
	tests := []struct {
		field    string
		expected string
	}{
		{"id", "01B"},
		{"kind", "error"},
		{"type", "error"},
		{"title", "Build failed"},
		{"body", "exit status 1"},
		{"message", "exit status 1"},
		{"reason", "dismissed"},
		{"all", "Build failed\nexit status 1"},
		{"unknown", "Build failed"},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatField(r, tt.field))
		})
	}
}

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		format FormatType
		want   Formatter
	}{
		{FormatJSON, &JSONFormatter{}},
		{FormatYAML, &YAMLFormatter{}},
		{FormatIDs, &IDsFormatter{}},
		{FormatDmenu, &DmenuFormatter{}},
		{FormatPlain, &PlainFormatter{}},
		{"unknown", &PlainFormatter{}},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			assert.IsType(t, tt.want, NewFormatter(tt.format, DefaultFormatterOptions()))
		})
	}
}

func TestSanitizeBody(t *testing.T) {
	assert.Equal(t, "a b c", sanitizeBody("a\n\nb  \r\n c", 0, false))
	assert.Equal(t, "a\nb", sanitizeBody("a\nb", 0, true))
	assert.Equal(t, "hé...", sanitizeBody("héllo wörld", 5, false))
}
