package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/toastd/internal/model"
	"github.com/jmylchreest/toastd/internal/output"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func sampleRows() []output.Row {
	return []output.Row{
		{ID: "1", Kind: "success", Title: "Deploy finished", Body: "api", State: "destroyed", Reason: "expired", DurationMs: 5000, CreatedAt: now.Add(-5 * time.Minute)},
		{ID: "2", Kind: "error", Title: "Build failed", Body: "exit 1", State: "destroyed", Reason: "dismissed", DurationMs: 0, CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "3", Kind: "info", Title: "New message", Body: "from Sam", State: "visible", DurationMs: 8000, CreatedAt: now.Add(-30 * time.Second)},
	}
}

func ids(rows []output.Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name string
		opts FilterOptions
		want []string
	}{
		{"no filters", FilterOptions{}, []string{"1", "2", "3"}},
		{"since", FilterOptions{Since: time.Hour}, []string{"1", "3"}},
		{"kind", FilterOptions{Kind: model.KindError}, []string{"2"}},
		{"limit", FilterOptions{Limit: 2}, []string{"1", "2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Filter(sampleRows(), tt.opts, now)))
		})
	}
	assert.Empty(t, Filter(nil, FilterOptions{}, now))
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"", 0, false},
		{"0", 0, false},
		{"48h", 48 * time.Hour, false},
		{"7d", 7 * 24 * time.Hour, false},
		{"1w", 7 * 24 * time.Hour, false},
		{"90s", 90 * time.Second, false},
		{"xd", 0, true},
		{"soon", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidDuration, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		expr string
		want []string
	}{
		{"", []string{"1", "2", "3"}},
		{"kind=error", []string{"2"}},
		{"kind=ERROR", []string{"2"}},
		{"kind!=error", []string{"1", "3"}},
		{"type=info", []string{"3"}},
		{"title~deploy", []string{"1"}},
		{"summary~=^(Build|New)", []string{"2", "3"}},
		{"body~SAM", []string{"3"}},
		{"reason=dismissed", []string{"2"}},
		{"state=visible", []string{"3"}},
		{"duration>=5000", []string{"1", "3"}},
		{"duration=0", []string{"2"}},
		{"created>1h", []string{"1", "3"}},
		{"created<1h", []string{"2"}},
		{"kind!=error, created>1m", []string{"3"}},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			expr, err := ParseFilter(tt.expr, now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(FilterWithExpr(sampleRows(), expr)))
		})
	}
}

func TestParseFilter_Errors(t *testing.T) {
	for _, expr := range []string{"kind", "colour=red", "title~=(", "duration>soon", "created>never"} {
		_, err := ParseFilter(expr, now)
		assert.Error(t, err, expr)
	}
	_, err := ParseFilter("colour=red", now)
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestFilterWithExpr_Nil(t *testing.T) {
	assert.Len(t, FilterWithExpr(sampleRows(), nil), 3)
}
