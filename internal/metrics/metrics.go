// Package metrics exposes Prometheus metrics for the toast center.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jmylchreest/toastd/internal/toast"
)

// Metrics holds all Prometheus metrics for toastd.
type Metrics struct {
	registry *prometheus.Registry

	Shown     *prometheus.CounterVec // labels: kind
	Closed    *prometheus.CounterVec // labels: reason
	Paused    prometheus.Counter
	Active    prometheus.Gauge
	Lifetime  prometheus.Histogram
	WSClients prometheus.Gauge
	WSDropped prometheus.Counter
	Requests  *prometheus.CounterVec // labels: source
}

// New creates the metrics on a private registry, alongside the Go and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Shown: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "toastd_toasts_shown_total",
			Help: "Toasts inserted into the stack",
		}, []string{"kind"}),
		Closed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "toastd_toasts_closed_total",
			Help: "Toasts that began closing",
		}, []string{"reason"}),
		Paused: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "toastd_toasts_paused_total",
			Help: "Countdowns paused by pointer hover",
		}),
		Active: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "toastd_toasts_active",
			Help: "Toasts currently in the stack, including exiting ones",
		}),
		Lifetime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "toastd_toast_lifetime_seconds",
			Help:    "Time from insertion to the start of closing",
			Buckets: []float64{0.5, 1, 2, 3, 5, 8, 13, 30, 60, 300},
		}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "toastd_ws_clients",
			Help: "Connected WebSocket clients",
		}),
		WSDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "toastd_ws_dropped_total",
			Help: "Events dropped for slow WebSocket clients",
		}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "toastd_requests_total",
			Help: "Show requests received, by source",
		}, []string{"source"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Shown,
		m.Closed,
		m.Paused,
		m.Active,
		m.Lifetime,
		m.WSClients,
		m.WSDropped,
		m.Requests,
	)
	return m
}

// Registry returns the registry the metrics live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Listener returns a center listener that keeps the toast metrics current.
// It runs on the center goroutine and only touches atomic collectors.
func (m *Metrics) Listener() toast.Listener {
	return func(ev toast.Event) {
		switch ev.Type {
		case toast.EventInserted:
			m.Shown.WithLabelValues(string(ev.Toast.Kind)).Inc()
			m.Active.Inc()
		case toast.EventPaused:
			m.Paused.Inc()
		case toast.EventClosing:
			m.Closed.WithLabelValues(ev.Toast.Reason.String()).Inc()
			m.Lifetime.Observe(ev.Toast.Lifetime(ev.At).Seconds())
		case toast.EventDestroyed:
			m.Active.Dec()
		case toast.EventUnmounted:
			m.Active.Set(0)
		}
	}
}

// ObserveRequest counts a show request from source ("http", "dbus", "ws",
// "redis", "internal").
func (m *Metrics) ObserveRequest(source string) {
	m.Requests.WithLabelValues(source).Inc()
}
