package daemon

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/toastd/internal/model"
)

type recordedShow struct {
	shown []model.Options
	err   error
}

func (r *recordedShow) show(_ context.Context, opts model.Options) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	r.shown = append(r.shown, opts)
	return "id", nil
}

func TestInternalNotifier_RateLimit(t *testing.T) {
	rec := &recordedShow{}
	n := NewInternalNotifier(rec.show, nil)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return now }

	assert.True(t, n.Notify("k", "Title", "body", model.KindInfo))
	assert.False(t, n.Notify("k", "Title", "body", model.KindInfo), "repeat inside interval")
	assert.True(t, n.Notify("other", "Other", "body", model.KindInfo), "keys are limited separately")

	now = now.Add(5 * time.Second)
	assert.True(t, n.Notify("k", "Title", "body", model.KindInfo))

	require.Len(t, rec.shown, 3)
	assert.Equal(t, model.Options{
		Kind:       "info",
		Title:      "Title",
		Body:       "body",
		DurationMs: model.Ms(internalDurationMs),
	}, rec.shown[0])
}

func TestInternalNotifier_Disabled(t *testing.T) {
	rec := &recordedShow{}
	n := NewInternalNotifier(rec.show, nil)
	n.SetEnabled(false)
	assert.False(t, n.Notify("k", "Title", "", model.KindInfo))
	assert.Empty(t, rec.shown)

	assert.False(t, NewInternalNotifier(nil, nil).Notify("k", "Title", "", model.KindInfo))
}

func TestInternalNotifier_ShowError(t *testing.T) {
	n := NewInternalNotifier((&recordedShow{err: errors.New("loop stopped")}).show, nil)
	assert.False(t, n.Notify("k", "Title", "", model.KindInfo))
}

func TestInternalNotifier_Helpers(t *testing.T) {
	tests := []struct {
		name  string
		call  func(n *InternalNotifier)
		kind  string
		title string
	}{
		{"reloaded", func(n *InternalNotifier) { n.NotifyConfigReloaded() }, "success", "Configuration Reloaded"},
		{"config error", func(n *InternalNotifier) { n.NotifyConfigError(errors.New("bad width")) }, "error", "Configuration Error"},
		{"theme", func(n *InternalNotifier) { n.NotifyThemeReloaded("nord") }, "info", "Theme Reloaded"},
		{"theme missing", func(n *InternalNotifier) { n.NotifyThemeMissing("nope", "default") }, "warning", "Theme Not Found"},
		{"broadcast", func(n *InternalNotifier) { n.NotifyBroadcastError(errors.New("refused")) }, "warning", "Broadcast Unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recordedShow{}
			tt.call(NewInternalNotifier(rec.show, nil))
			require.Len(t, rec.shown, 1)
			assert.Equal(t, tt.kind, rec.shown[0].Kind)
			assert.Equal(t, tt.title, rec.shown[0].Title)
		})
	}

	rec := &recordedShow{}
	NewInternalNotifier(rec.show, nil).NotifyConfigError(errors.New("bad width"))
	assert.Contains(t, rec.shown[0].Body, "bad width")
}
