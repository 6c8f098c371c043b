package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jmylchreest/toastd/internal/metrics"
	"github.com/jmylchreest/toastd/internal/model"
	"github.com/jmylchreest/toastd/internal/render"
	"github.com/jmylchreest/toastd/internal/toast"
)

// wsEvent is one message sent to pages.
type wsEvent struct {
	Type     string           `json:"type"`
	Toast    *model.Toast     `json:"toast,omitempty"`
	HTML     string           `json:"html,omitempty"`
	Progress *render.Progress `json:"progress,omitempty"`
	CSS      string           `json:"css,omitempty"`
	At       time.Time        `json:"at,omitzero"`
}

// Hub fans center events out to WebSocket clients.
type Hub struct {
	svc     *toast.Service
	html    *render.HTML
	metrics *metrics.Metrics
	logger  *slog.Logger

	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*Client]struct{}
	closed  bool
}

// NewHub creates a hub. metrics may be nil.
func NewHub(svc *toast.Service, html *render.HTML, m *metrics.Metrics, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		svc:     svc,
		html:    html,
		metrics: m,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// The page is served by this process; any local origin may attach.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*Client]struct{}),
	}
}

// Listener converts center events into WebSocket messages. It runs on the
// center's goroutine and never blocks.
func (h *Hub) Listener() toast.Listener {
	return func(ev toast.Event) {
		msg := wsEvent{Type: ev.Type.String(), Toast: ev.Toast, At: ev.At}
		if ev.Toast != nil {
			switch ev.Type {
			case toast.EventInserted:
				html, err := h.html.ToastString(ev.Toast, ev.At)
				if err != nil {
					h.logger.Error("failed to render toast", "toast_id", ev.Toast.ID, "error", err)
					return
				}
				msg.HTML = html
			case toast.EventVisible, toast.EventResumed:
				p := render.ProgressOf(ev.Toast, ev.At)
				msg.Progress = &p
			}
		}
		h.broadcast(msg)
	}
}

// SendStyles replaces the stylesheet on every connected page.
func (h *Hub) SendStyles(css string) {
	h.broadcast(wsEvent{Type: "styles", CSS: css, At: time.Now()})
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	h.setClientGauge()
}

// ServeHTTP upgrades the request and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := newClient(h, conn)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.setClientGauge()
	h.mu.Unlock()

	h.logger.Debug("websocket client connected", "client_id", c.id, "clients", count)

	go c.writePump()
	go c.readPump()
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.setClientGauge()
	h.logger.Debug("websocket client disconnected", "client_id", c.id, "clients", len(h.clients))
}

func (h *Hub) broadcast(msg wsEvent) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to encode event", "type", msg.Type, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			if h.metrics != nil {
				h.metrics.WSDropped.Inc()
			}
			h.logger.Warn("websocket client too slow, dropping event", "client_id", c.id, "type", msg.Type)
		}
	}
}

// setClientGauge must be called with h.mu held.
func (h *Hub) setClientGauge() {
	if h.metrics != nil {
		h.metrics.WSClients.Set(float64(len(h.clients)))
	}
}
