package dbus

import (
	"fmt"

	"github.com/jmylchreest/toastd/internal/model"
	"github.com/jmylchreest/toastd/internal/toast"
)

const signalBuffer = 64

type closedSignal struct {
	id     string
	reason model.CloseReason
}

// Listener emits ToastClosed when a toast begins closing. It runs on the
// center's goroutine; signals are queued and dropped if the queue is full.
func (s *Server) Listener() toast.Listener {
	return func(ev toast.Event) {
		if ev.Type != toast.EventClosing || ev.Toast == nil {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.running {
			return
		}
		select {
		case s.signals <- closedSignal{id: ev.Toast.ID, reason: ev.Toast.Reason}:
		default:
			s.logger.Warn("signal queue full, dropping ToastClosed", "toast_id", ev.Toast.ID)
		}
	}
}

func (s *Server) emitSignals(signals <-chan closedSignal, done chan<- struct{}) {
	defer close(done)
	for sig := range signals {
		if err := s.EmitToastClosed(sig.id, sig.reason); err != nil {
			s.logger.Warn("failed to emit ToastClosed", "toast_id", sig.id, "error", err)
		}
	}
}

// EmitToastClosed emits the ToastClosed signal.
func (s *Server) EmitToastClosed(id string, reason model.CloseReason) error {
	if s.conn == nil {
		return fmt.Errorf("not connected to D-Bus")
	}
	if err := s.conn.Emit(ObjectPath, Interface+".ToastClosed", id, uint32(reason)); err != nil {
		return fmt.Errorf("failed to emit ToastClosed signal: %w", err)
	}
	s.logger.Debug("emitted ToastClosed signal", "toast_id", id, "reason", reason.String())
	return nil
}
