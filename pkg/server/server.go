// Package server serves the depview viewer over HTTP.
//
// # Routes
//
//	GET /              viewer page (error page when the graph cannot be loaded)
//	GET /graph.json    the backend's graph description, cached
//	GET /layout.json   node positions and edges
//	GET /graph.{fmt}   svg, gv, png or html rendering
//	GET /ws            websocket session driving an interaction bridge
//	GET /healthz       liveness
//	GET /metrics       Prometheus metrics, when enabled
//
// Each websocket connection gets its own in-memory canvas and bridge. The
// canvas mirrors every change to the browser; gestures made in the browser
// come back as messages and run on their own goroutine.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/depview/pkg/client"
	derrors "github.com/matzehuels/depview/pkg/errors"
	"github.com/matzehuels/depview/pkg/observability"
	"github.com/matzehuels/depview/pkg/pipeline"
)

// DefaultConfirmTimeout bounds how long a browser may take to answer a
// delete confirmation before it counts as declined.
const DefaultConfirmTimeout = 2 * time.Minute

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 10 * time.Second

// Config configures a Server.
type Config struct {
	// Backend is the graph source and edge API.
	Backend *client.Client

	// Runner executes the cached pipeline. Defaults to an uncached runner.
	Runner *pipeline.Runner

	// Options carries layout, label and legend settings for every route.
	Options pipeline.Options

	Edit             bool
	RetractOnFailure bool
	ConfirmTimeout   time.Duration

	// Metrics, if set, is served at /metrics.
	Metrics *observability.Metrics

	Logger *log.Logger
}

// Server is the depview HTTP server.
type Server struct {
	cfg    Config
	logger *log.Logger
	router chi.Router
}

// New validates cfg and builds the router.
func New(cfg Config) (*Server, error) {
	if cfg.Backend == nil {
		return nil, derrors.New(derrors.ErrCodeInvalidConfig, "server needs a backend URL")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Runner == nil {
		cfg.Runner = pipeline.NewRunner(nil, nil, cfg.Logger)
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = DefaultConfirmTimeout
	}
	if cfg.Options.Logger == nil {
		cfg.Options.Logger = cfg.Logger
	}
	if err := cfg.Options.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	s := &Server{cfg: cfg, logger: cfg.Logger}
	s.router = s.routes()
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/graph.json", s.handleGraphJSON)
	r.Get("/layout.json", s.handleLayoutJSON)
	r.Get("/graph.{format}", s.handleArtifact)
	r.Get("/ws", s.handleWebsocket)
	r.Get("/healthz", s.handleHealth)
	if s.cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.cfg.Metrics.Handler())
	}
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening", "addr", addr, "backend", s.cfg.Backend.BaseURL(), "edit", s.cfg.Edit)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
