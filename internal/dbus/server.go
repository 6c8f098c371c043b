package dbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/jmylchreest/toastd/internal/model"
	"github.com/jmylchreest/toastd/internal/toast"
)

// callTimeout bounds each bus method call against the backend.
const callTimeout = 5 * time.Second

// Server exports a Backend on the session bus.
type Server struct {
	backend Backend
	logger  *slog.Logger
	observe func(source string)

	mu      sync.Mutex
	conn    *dbus.Conn
	running bool
	signals chan closedSignal
	doneCh  chan struct{}
}

// NewServer creates a server for backend.
func NewServer(backend Backend, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{backend: backend, logger: logger}
}

// SetRequestObserver registers fn to be called once per incoming method call.
func (s *Server) SetRequestObserver(fn func(source string)) {
	s.observe = fn
}

// Start connects to the session bus, exports the object and claims BusName.
func (s *Server) Start() error {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	if err := s.StartOn(conn); err != nil {
		_ = conn.Close()
		return err
	}
	return nil
}

// StartOn exports the object on an existing connection and claims BusName.
// The server owns conn afterwards and closes it on Stop.
func (s *Server) StartOn(conn *dbus.Conn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("server already running")
	}

	if err := conn.Export(s, ObjectPath, Interface); err != nil {
		return fmt.Errorf("failed to export object: %w", err)
	}

	node := &introspect.Node{
		Name: string(ObjectPath),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    Interface,
				Methods: toastMethods(),
				Signals: toastSignals(),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), ObjectPath,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	reply, err := conn.RequestName(BusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already taken", BusName)
	}

	s.conn = conn
	s.running = true
	s.signals = make(chan closedSignal, signalBuffer)
	s.doneCh = make(chan struct{})
	go s.emitSignals(s.signals, s.doneCh)

	s.logger.Info("D-Bus toast server started", "interface", Interface, "path", ObjectPath)
	return nil
}

// Stop releases the bus name and closes the connection.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.signals)
	done, conn := s.doneCh, s.conn
	s.mu.Unlock()

	<-done
	if _, err := conn.ReleaseName(BusName); err != nil {
		s.logger.Warn("failed to release bus name", "error", err)
	}
	s.logger.Info("D-Bus toast server stopped")
	return conn.Close()
}

// Show raises a toast.
// D-Bus method: Show(sssi) -> s
func (s *Server) Show(kind, title, body string, durationMs int32) (string, *dbus.Error) {
	s.request("Show")
	opts := model.Options{Kind: kind, Title: title, Body: body}
	// Negative means "use the configured default"; zero persists.
	if durationMs >= 0 {
		opts.DurationMs = model.Ms(int(durationMs))
	}

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	id, err := s.backend.Show(ctx, opts)
	if err != nil {
		return "", busError(err)
	}
	return id, nil
}

// Close closes a toast programmatically.
// D-Bus method: Close(s)
func (s *Server) Close(id string) *dbus.Error {
	s.request("Close")
	return s.call(func(ctx context.Context) error {
		return s.backend.Close(ctx, id, model.ReasonClosed)
	})
}

// Dismiss closes a toast as if the user dismissed it.
// D-Bus method: Dismiss(s)
func (s *Server) Dismiss(id string) *dbus.Error {
	s.request("Dismiss")
	return s.call(func(ctx context.Context) error {
		return s.backend.Dismiss(ctx, id)
	})
}

// CloseAll closes every live toast.
// D-Bus method: CloseAll() -> u
func (s *Server) CloseAll() (uint32, *dbus.Error) {
	s.request("CloseAll")
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	n, err := s.backend.CloseAll(ctx, model.ReasonClosed)
	if err != nil {
		return 0, busError(err)
	}
	return uint32(n), nil
}

// PointerEnter pauses a toast.
// D-Bus method: PointerEnter(s)
func (s *Server) PointerEnter(id string) *dbus.Error {
	s.request("PointerEnter")
	return s.call(func(ctx context.Context) error {
		return s.backend.PointerEnter(ctx, id)
	})
}

// PointerLeave resumes a toast.
// D-Bus method: PointerLeave(s)
func (s *Server) PointerLeave(id string) *dbus.Error {
	s.request("PointerLeave")
	return s.call(func(ctx context.Context) error {
		return s.backend.PointerLeave(ctx, id)
	})
}

// List returns the stack in display order.
// D-Bus method: List() -> a(sssssii)
func (s *Server) List() ([]ToastInfo, *dbus.Error) {
	s.request("List")
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	toasts, err := s.backend.Active(ctx)
	if err != nil {
		return nil, busError(err)
	}
	out := make([]ToastInfo, 0, len(toasts))
	for _, t := range toasts {
		out = append(out, NewToastInfo(t))
	}
	return out, nil
}

func (s *Server) request(method string) {
	s.logger.Debug("D-Bus call", "method", method)
	if s.observe != nil {
		s.observe("dbus")
	}
}

func (s *Server) call(fn func(ctx context.Context) error) *dbus.Error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		return busError(err)
	}
	return nil
}

// busError translates backend errors into bus errors.
func busError(err error) *dbus.Error {
	if errors.Is(err, toast.ErrNotFound) {
		return dbus.NewError(ErrorNotFound, []any{err.Error()})
	}
	return dbus.NewError(ErrorFailed, []any{err.Error()})
}

func toastMethods() []introspect.Method {
	id := introspect.Arg{Name: "id", Type: "s", Direction: "in"}
	return []introspect.Method{
		{
			Name: "Show",
			Args: []introspect.Arg{
				{Name: "kind", Type: "s", Direction: "in"},
				{Name: "title", Type: "s", Direction: "in"},
				{Name: "body", Type: "s", Direction: "in"},
				{Name: "duration_ms", Type: "i", Direction: "in"},
				{Name: "id", Type: "s", Direction: "out"},
			},
		},
		{Name: "Close", Args: []introspect.Arg{id}},
		{Name: "Dismiss", Args: []introspect.Arg{id}},
		{
			Name: "CloseAll",
			Args: []introspect.Arg{{Name: "closed", Type: "u", Direction: "out"}},
		},
		{Name: "PointerEnter", Args: []introspect.Arg{id}},
		{Name: "PointerLeave", Args: []introspect.Arg{id}},
		{
			Name: "List",
			Args: []introspect.Arg{{Name: "toasts", Type: "a(sssssii)", Direction: "out"}},
		},
	}
}

func toastSignals() []introspect.Signal {
	return []introspect.Signal{
		{
			Name: "ToastClosed",
			Args: []introspect.Arg{
				{Name: "id", Type: "s"},
				{Name: "reason", Type: "u"},
			},
		},
	}
}
