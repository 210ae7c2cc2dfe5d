// Package server implements the stageflow HTTP API.
//
// Routes:
//
//	GET    /healthz                       build info
//	GET    /workflows                     workflow summaries
//	GET    /workflows/{id}                workflow document
//	POST   /workflows/{id}/graph          assemble with caller-owned state
//	GET    /workflows/{id}/render         rendered artifact (?format=&theme=&expanded=&selected=)
//	POST   /sessions                      start a server-side viewer session
//	GET    /sessions/{sid}                session state and graph
//	POST   /sessions/{sid}/events         apply a dispatch event
//	DELETE /sessions/{sid}                end a session
//	GET    /metrics                       Prometheus metrics, when enabled
//
// Errors are JSON objects carrying the error code; see [statusFor] for the
// code to status mapping.
package server

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/stageflow/pkg/dispatch"
	"github.com/matzehuels/stageflow/pkg/pipeline"
	"github.com/matzehuels/stageflow/pkg/session"
	"github.com/matzehuels/stageflow/pkg/workflow"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Server serves the API over a pipeline runner.
type Server struct {
	runner     *pipeline.Runner
	sessions   session.Store
	dispatcher *dispatch.Dispatcher
	layout     workflow.LayoutConfig
	sessionTTL time.Duration
	metrics    http.Handler
	logger     *log.Logger

	// events serialises event handling per session id.
	events keyedMutex

	router chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *log.Logger) Option { return func(s *Server) { s.logger = l } }

// WithSessionStore replaces the in-memory session store.
func WithSessionStore(st session.Store) Option { return func(s *Server) { s.sessions = st } }

// WithSessionTTL sets how long an idle session lives.
func WithSessionTTL(ttl time.Duration) Option { return func(s *Server) { s.sessionTTL = ttl } }

// WithLayout sets the geometry used when a request does not override it.
func WithLayout(cfg workflow.LayoutConfig) Option { return func(s *Server) { s.layout = cfg } }

// WithDispatcher replaces the default event bindings.
func WithDispatcher(d *dispatch.Dispatcher) Option { return func(s *Server) { s.dispatcher = d } }

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option { return func(s *Server) { s.metrics = h } }

// New creates a server. The runner must have a provider.
func New(runner *pipeline.Runner, opts ...Option) *Server {
	s := &Server{
		runner:     runner,
		sessions:   session.NewMemoryStore(),
		dispatcher: dispatch.New(),
		layout:     workflow.DefaultLayoutConfig(),
		sessionTTL: session.DefaultTTL,
		logger:     log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/workflows", func(r chi.Router) {
		r.Get("/", s.handleListWorkflows)
		r.Get("/{id}", s.handleGetWorkflow)
		r.Post("/{id}/graph", s.handleGraph)
		r.Get("/{id}/render", s.handleRender)
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreateSession)
		r.Get("/{sid}", s.handleGetSession)
		r.Post("/{sid}/events", s.handleSessionEvent)
		r.Delete("/{sid}", s.handleDeleteSession)
	})

	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully. Expired sessions are swept every minute while serving.
func (s *Server) ListenAndServe(ctx context.Context, addr string, readTimeout, writeTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.sweepSessions(ctx, time.Minute)

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) sweepSessions(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := s.sessions.Cleanup(ctx); err != nil {
				s.logger.Warn("session cleanup failed", "error", err)
			}
		}
	}
}
