package dbus

import (
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"
)

// NotificationHandler receives mirrored freedesktop notifications.
type NotificationHandler func(n *Notification)

// Monitor passively observes org.freedesktop.Notifications traffic without
// claiming the name, so toasts can mirror another notification daemon.
type Monitor struct {
	conn   *dbus.Conn
	logger *slog.Logger

	onNotify NotificationHandler
}

// NewMonitor creates a notification monitor.
func NewMonitor(logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{logger: logger}
}

// SetNotifyHandler sets the callback for observed notifications.
func (m *Monitor) SetNotifyHandler(handler NotificationHandler) {
	m.onNotify = handler
}

// Start begins monitoring. It uses a private connection because a monitor
// connection can no longer send ordinary method calls.
func (m *Monitor) Start() error {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	m.conn = conn

	rules := []string{
		"type='method_call',interface='" + notificationsInterface + "',member='Notify'",
	}
	err = conn.BusObject().Call("org.freedesktop.DBus.Monitoring.BecomeMonitor", 0, rules, uint32(0)).Err
	if err != nil {
		m.logger.Warn("BecomeMonitor not available, trying AddMatch", "error", err)
		match := rules[0] + ",eavesdrop='true'"
		if err := conn.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, match).Err; err != nil {
			_ = conn.Close()
			return fmt.Errorf("failed to add match rule (eavesdrop may require permissions): %w", err)
		}
	}

	m.logger.Info("mirroring desktop notifications")
	go m.processMessages()
	return nil
}

func (m *Monitor) processMessages() {
	ch := make(chan *dbus.Message, 100)
	m.conn.Eavesdrop(ch)

	for msg := range ch {
		n, ok := ParseNotify(msg)
		if !ok {
			continue
		}
		m.logger.Debug("captured notification", "app", n.AppName, "summary", n.Summary)
		if m.onNotify != nil {
			m.onNotify(n)
		}
	}
}

// ParseNotify extracts a Notify call from msg. It reports false for any
// other message or a malformed body.
func ParseNotify(msg *dbus.Message) (*Notification, bool) {
	if msg.Type != dbus.TypeMethodCall {
		return nil, false
	}
	if iface, ok := msg.Headers[dbus.FieldInterface]; !ok || iface.Value() != notificationsInterface {
		return nil, false
	}
	if member, ok := msg.Headers[dbus.FieldMember]; !ok || member.Value() != "Notify" {
		return nil, false
	}
	// Notify(app_name, replaces_id, app_icon, summary, body, actions, hints, expire_timeout)
	if len(msg.Body) < 8 {
		return nil, false
	}

	n := &Notification{}
	var ok bool
	if n.AppName, ok = msg.Body[0].(string); !ok {
		return nil, false
	}
	if n.Summary, ok = msg.Body[3].(string); !ok {
		return nil, false
	}
	if n.Body, ok = msg.Body[4].(string); !ok {
		return nil, false
	}
	if hints, ok := msg.Body[6].(map[string]dbus.Variant); ok {
		n.Hints = hints
	}
	n.ExpireTimeout = -1
	if timeout, ok := msg.Body[7].(int32); ok {
		n.ExpireTimeout = timeout
	}
	return n, true
}

// Stop closes the monitor connection.
func (m *Monitor) Stop() error {
	if m.conn != nil {
		return m.conn.Close()
	}
	return nil
}
