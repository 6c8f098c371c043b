// Package server exposes the toast center over HTTP: a rendered page, a JSON
// API, a WebSocket event stream, health and metrics.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jmylchreest/toastd/internal/metrics"
	"github.com/jmylchreest/toastd/internal/render"
	"github.com/jmylchreest/toastd/internal/store"
	"github.com/jmylchreest/toastd/internal/theme"
	"github.com/jmylchreest/toastd/internal/toast"
)

// DefaultShutdownTimeout bounds graceful shutdown.
const DefaultShutdownTimeout = 5 * time.Second

// Options configures a Server. Only Service is required.
type Options struct {
	Addr    string
	Page    render.PageOptions
	Themes  *theme.Loader    // nil serves the bundled default theme
	Metrics *metrics.Metrics // nil disables /metrics
	History *store.Store     // nil disables /api/history
	Ready   []func(context.Context) error
	Logger  *slog.Logger
}

// Server serves one toast service.
type Server struct {
	svc    *toast.Service
	opts   Options
	html   *render.HTML
	hub    *Hub
	logger *slog.Logger

	mu    sync.Mutex
	srv   *http.Server
	unsub func()
	once  sync.Once
}

// New creates a server for svc.
func New(svc *toast.Service, opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Themes == nil {
		opts.Themes = theme.NewLoader("", opts.Logger)
	}
	html, err := render.NewHTML()
	if err != nil {
		return nil, err
	}
	s := &Server{
		svc:    svc,
		opts:   opts,
		html:   html,
		logger: opts.Logger,
	}
	s.hub = NewHub(svc, html, opts.Metrics, opts.Logger)
	return s, nil
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Attach subscribes the hub to the center's events. It is idempotent.
func (s *Server) Attach(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unsub != nil {
		return nil
	}
	unsub, err := s.svc.Subscribe(ctx, s.hub.Listener())
	if err != nil {
		return fmt.Errorf("failed to subscribe hub: %w", err)
	}
	s.unsub = unsub
	return nil
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/", s.handlePage)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(render.Static())))
	r.Get("/ws", s.hub.ServeHTTP)
	r.Get("/healthz", s.handleHealth)
	if s.opts.Metrics != nil {
		r.Handle("/metrics", s.opts.Metrics.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		api.Route("/toasts", func(tr chi.Router) {
			tr.Get("/", s.handleList)
			tr.Post("/", s.handleShow)
			tr.Delete("/", s.handleCloseAll)
			tr.Get("/{id}", s.handleGet)
			tr.Delete("/{id}", s.handleClose)
			tr.Post("/{id}/{action}", s.handleAction)
		})
		if s.opts.History != nil {
			api.Get("/history", s.handleHistory)
		}
		api.Get("/themes", s.handleThemes)
	})

	return r
}

// Run serves on opts.Addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return errors.Join(ErrStart, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if err := s.Attach(ctx); err != nil {
		_ = ln.Close()
		return errors.Join(ErrStart, err)
	}

	s.mu.Lock()
	if s.srv != nil {
		s.mu.Unlock()
		_ = ln.Close()
		return errors.Join(ErrStart, errors.New("server already running"))
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.srv = srv
	s.mu.Unlock()

	s.logger.Info("http server listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	var runErr error
	select {
	case <-ctx.Done():
		_ = s.Shutdown(context.Background())
		runErr = <-errCh
	case runErr = <-errCh:
	}

	if runErr != nil && !errors.Is(runErr, http.ErrServerClosed) {
		return errors.Join(ErrStart, runErr)
	}
	return nil
}

// Shutdown stops the server gracefully and detaches the hub. It is safe
// for repeated calls.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		srv, unsub := s.srv, s.unsub
		s.unsub = nil
		s.mu.Unlock()

		if unsub != nil {
			unsub()
		}
		s.hub.Close()
		if srv == nil {
			return
		}
		ctx, cancel := context.WithTimeout(ctx, DefaultShutdownTimeout)
		defer cancel()
		err = srv.Shutdown(ctx)
	})

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Join(ErrShutdown, err)
	}
	return nil
}

// ThemeChanged pushes new CSS to every connected page.
func (s *Server) ThemeChanged(css string) {
	s.hub.SendStyles(css)
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	toasts, err := s.svc.Active(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	css := s.opts.Themes.CSS()
	opts := s.opts.Page
	opts.Theme = s.opts.Themes.Name()

	var buf bytes.Buffer
	if err := s.html.Page(&buf, opts, css, toasts, time.Now()); err != nil {
		s.logger.Error("failed to render page", "error", err)
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if len(s.opts.Ready) == 0 {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ALIVE"))
		return
	}
	for _, f := range s.opts.Ready {
		if err := f(r.Context()); err != nil {
			s.logger.Warn("readiness check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("NOT_READY"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("READY"))
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
