package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/toastd/internal/model"
	"github.com/jmylchreest/toastd/internal/schedule"
	"github.com/jmylchreest/toastd/internal/toast"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestListener_TracksLifecycle(t *testing.T) {
	m := New()
	sched := schedule.NewFake(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	c := toast.New(sched, toast.DefaultConfig(), nil)
	c.Subscribe(m.Listener())

	a := c.Show(model.Options{Kind: "success", Title: "a"})
	c.Show(model.Options{Kind: "error", Title: "b"})
	sched.Flush()

	require.NoError(t, c.PointerEnter(a))
	require.NoError(t, c.Dismiss(a))
	sched.Advance(time.Second)

	out := scrape(t, m)
	assert.Contains(t, out, `toastd_toasts_shown_total{kind="success"} 1`)
	assert.Contains(t, out, `toastd_toasts_shown_total{kind="error"} 1`)
	assert.Contains(t, out, `toastd_toasts_closed_total{reason="dismissed"} 1`)
	assert.Contains(t, out, `toastd_toasts_paused_total 1`)
	assert.Contains(t, out, `toastd_toasts_active 1`)
	assert.Contains(t, out, `toastd_toast_lifetime_seconds_count 1`)

	c.Teardown()
	assert.Contains(t, scrape(t, m), `toastd_toasts_active 0`)
}

func TestObserveRequest(t *testing.T) {
	m := New()
	m.ObserveRequest("http")
	m.ObserveRequest("http")
	m.ObserveRequest("dbus")
	m.WSClients.Set(2)

	out := scrape(t, m)
	assert.Contains(t, out, `toastd_requests_total{source="http"} 2`)
	assert.Contains(t, out, `toastd_requests_total{source="dbus"} 1`)
	assert.Contains(t, out, `toastd_ws_clients 2`)
	assert.Contains(t, out, "go_goroutines")
}

func TestNew_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.ObserveRequest("http")
	assert.NotContains(t, scrape(t, b), `toastd_requests_total{source="http"}`)
}
