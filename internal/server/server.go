// Package server exposes the job forms over HTTP: an HTML form flow for
// people and a JSON run API for scripts.
package server

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-jobform/pkg/openapi"
	"github.com/goliatone/go-jobform/pkg/orchestrator"
	"github.com/goliatone/go-jobform/pkg/renderers/vanilla"
)

// AssetsPath is where the embedded stylesheet is served.
const AssetsPath = "/assets/"

// Option customises a Server.
type Option func(*Server)

// WithLogger routes request logs and handler diagnostics to logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsHandler mounts h on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithOpenAPI replaces the generator backing /openapi.json.
func WithOpenAPI(gen *openapi.Generator) Option {
	return func(s *Server) {
		if gen != nil {
			s.openapi = gen
		}
	}
}

// WithRenderer selects the registered renderer used for HTML pages. Empty
// keeps the orchestrator default.
func WithRenderer(name string) Option {
	return func(s *Server) {
		s.renderer = strings.TrimSpace(name)
	}
}

// WithShutdownTimeout bounds graceful shutdown in ListenAndServe.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// Server wires HTTP routes to an orchestrator.
type Server struct {
	orch            *orchestrator.Orchestrator
	openapi         *openapi.Generator
	metrics         http.Handler
	renderer        string
	logger          logrus.FieldLogger
	shutdownTimeout time.Duration
	router          chi.Router
}

// New builds the router. orch must carry a catalog.
func New(orch *orchestrator.Orchestrator, opts ...Option) *Server {
	s := &Server{
		orch:            orch,
		openapi:         openapi.NewGenerator(),
		logger:          logrus.StandardLogger(),
		shutdownTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/jobs/{job}", s.handleForm)
	r.Post("/jobs/{job}", s.handleFormSubmit)

	r.Route("/api", func(r chi.Router) {
		r.Get("/jobs", s.handleListJobs)
		r.Post("/jobs/{job}/runs", s.handleCreateRun)
		r.Post("/schemas/validate", s.handleValidateSchema)
	})
	r.Get("/openapi.json", s.handleOpenAPI)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	r.Handle(AssetsPath+"*", http.StripPrefix(AssetsPath, http.FileServer(http.FS(vanilla.AssetsFS()))))
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// JobPath is the HTML form URL for jobName.
func JobPath(jobName string) string {
	return "/jobs/" + url.PathEscape(jobName)
}

func requestLogger(logger logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			started := time.Now()
			next.ServeHTTP(ww, r)
			logger.WithFields(logrus.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"duration":   time.Since(started).String(),
				"request_id": middleware.GetReqID(r.Context()),
			}).Debug("request")
		})
	}
}
