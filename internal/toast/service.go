package toast

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jmylchreest/toastd/internal/broadcast"
	"github.com/jmylchreest/toastd/internal/model"
	"github.com/jmylchreest/toastd/internal/schedule"
)

// Service is the goroutine-safe front door to a Center. Every call runs on
// the center's scheduler.
type Service struct {
	center *Center
	runner schedule.Runner
	stop   func()
}

// NewService wraps center. runner must execute on the same goroutine that
// drives the center's scheduler.
func NewService(center *Center, runner schedule.Runner) *Service {
	return &Service{center: center, runner: runner}
}

// Start creates a center on its own event loop and returns its service.
// Shutdown stops the loop.
func Start(cfg Config, logger *slog.Logger, opts ...Option) *Service {
	loop := schedule.NewLoop(logger)
	loop.Start()
	s := NewService(New(loop, cfg, logger, opts...), loop)
	s.stop = loop.Stop
	return s
}

// Show raises a toast and returns its id. A toast is never raised for a
// call that returns an error.
func (s *Service) Show(ctx context.Context, opts model.Options) (string, error) {
	var id string
	err := s.runner.Do(ctx, func() { id = s.center.Show(opts) })
	return id, err
}

// Close begins closing a toast.
func (s *Service) Close(ctx context.Context, id string, reason model.CloseReason) error {
	return s.call(ctx, func() error { return s.center.Close(id, reason) })
}

// Dismiss closes a toast with the dismissed reason.
func (s *Service) Dismiss(ctx context.Context, id string) error {
	return s.call(ctx, func() error { return s.center.Dismiss(id) })
}

// CloseAll closes every live toast and returns how many it closed.
func (s *Service) CloseAll(ctx context.Context, reason model.CloseReason) (int, error) {
	var n int
	err := s.runner.Do(ctx, func() { n = s.center.CloseAll(reason) })
	return n, err
}

// PointerEnter pauses a toast.
func (s *Service) PointerEnter(ctx context.Context, id string) error {
	return s.call(ctx, func() error { return s.center.PointerEnter(id) })
}

// PointerLeave resumes a toast.
func (s *Service) PointerLeave(ctx context.Context, id string) error {
	return s.call(ctx, func() error { return s.center.PointerLeave(id) })
}

// TransitionEnd reports a finished exit transition.
func (s *Service) TransitionEnd(ctx context.Context, id string) error {
	return s.call(ctx, func() error { return s.center.TransitionEnd(id) })
}

// Get returns a snapshot of one toast.
func (s *Service) Get(ctx context.Context, id string) (*model.Toast, error) {
	var (
		t  *model.Toast
		ok bool
	)
	if err := s.runner.Do(ctx, func() { t, ok = s.center.Get(id) }); err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return t, nil
}

// Active returns snapshots of the stack.
func (s *Service) Active(ctx context.Context) ([]*model.Toast, error) {
	var out []*model.Toast
	err := s.runner.Do(ctx, func() { out = s.center.Active() })
	return out, err
}

// Subscribe registers l. The returned function removes it and may be called
// from any goroutine.
func (s *Service) Subscribe(ctx context.Context, l Listener) (func(), error) {
	var unsub func()
	if err := s.runner.Do(ctx, func() { unsub = s.center.Subscribe(l) }); err != nil {
		return nil, err
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			_ = s.runner.Do(context.Background(), unsub)
		})
	}, nil
}

// Listen attaches the center to b; see Center.Listen.
func (s *Service) Listen(ctx context.Context, b broadcast.Broadcaster[model.Options]) (bool, error) {
	var (
		attached bool
		err      error
	)
	// The subscription must outlive the call, so it is bound to a detached
	// context and released by Teardown.
	listenCtx := context.WithoutCancel(ctx)
	if doErr := s.runner.Do(ctx, func() { attached, err = s.center.Listen(listenCtx, b) }); doErr != nil {
		return false, doErr
	}
	return attached, err
}

// UpdateConfig swaps the center configuration.
func (s *Service) UpdateConfig(ctx context.Context, cfg Config) error {
	return s.runner.Do(ctx, func() { s.center.UpdateConfig(cfg) })
}

// Config returns the center configuration.
func (s *Service) Config(ctx context.Context) (Config, error) {
	var cfg Config
	err := s.runner.Do(ctx, func() { cfg = s.center.Config() })
	return cfg, err
}

// Teardown releases the center's toasts, mount point and listener.
func (s *Service) Teardown(ctx context.Context) error {
	return s.runner.Do(ctx, s.center.Teardown)
}

// Shutdown tears the center down and stops the loop it owns, if any.
func (s *Service) Shutdown() {
	_ = s.Teardown(context.Background())
	if s.stop != nil {
		s.stop()
	}
}

func (s *Service) call(ctx context.Context, fn func() error) error {
	var err error
	if doErr := s.runner.Do(ctx, func() { err = fn() }); doErr != nil {
		return doErr
	}
	return err
}
