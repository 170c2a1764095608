// Package server exposes the conversion pipeline over HTTP.
//
// Every JSON endpoint answers with HTTP 200 and an [Envelope]:
//
//	{"st": 0, "msg": "", "data": {...}}
//
// A non-zero st reports the failure class (see [St]). Rendered artifacts
// from /api/render are the exception and are written as raw bytes with the
// format's content type.
//
// Routes:
//
//	GET  /api/ping                 server and compiler versions
//	POST /api/visual               compile {"code": "..."} and convert the AST
//	POST /api/tree                 convert an AST JSON body
//	POST /api/render               convert and render an AST JSON body
//	POST /api/snapshots            convert and store an AST JSON body
//	GET  /api/snapshots            list stored snapshots
//	GET  /api/snapshots/{id}       fetch one snapshot with its tree
//	DELETE /api/snapshots/{id}     remove a snapshot
//	GET  /api/metrics              pipeline, cache and response counters
package server

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/RalXYZ/cc99/pkg/observability"
	"github.com/RalXYZ/cc99/pkg/pipeline"
	"github.com/RalXYZ/cc99/pkg/store"
)

// Defaults applied by [New] when the corresponding Config field is zero.
const (
	DefaultBodyLimit       = 1 << 20
	DefaultReadTimeout     = 60 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
)

// Config holds server settings.
type Config struct {
	BodyLimit    int64
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string

	// Options are the pipeline defaults. Query parameters override
	// Unknown, Detailed and the render format per request.
	Options pipeline.Options

	// Metrics backs /api/metrics. The route is not mounted when nil.
	Metrics *observability.Metrics
}

// Server serves the HTTP API.
type Server struct {
	runner *pipeline.Runner
	store  store.Store // Optional; snapshot routes answer NOT_FOUND without it
	logger *log.Logger
	cfg    Config
}

// New creates a server around runner. st may be nil.
func New(runner *pipeline.Runner, st store.Store, logger *log.Logger, cfg Config) *Server {
	if logger == nil {
		logger = log.Default()
	}
	if cfg.BodyLimit <= 0 {
		cfg.BodyLimit = DefaultBodyLimit
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	return &Server{runner: runner, store: st, logger: logger, cfg: cfg}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors(s.cfg.CORSOrigins))
	r.Use(bodyLimit(s.cfg.BodyLimit))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, StNotFound, "no such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, StParamErr, "method not allowed")
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", s.handlePing)
		r.Post("/visual", s.handleVisual)
		r.Post("/tree", s.handleTree)
		r.Post("/render", s.handleRender)
		r.Route("/snapshots", func(r chi.Router) {
			r.Post("/", s.handleSnapshotSave)
			r.Get("/", s.handleSnapshotList)
			r.Get("/{id}", s.handleSnapshotGet)
			r.Delete("/{id}", s.handleSnapshotDelete)
		})
		if s.cfg.Metrics != nil {
			r.Get("/metrics", s.handleMetrics)
		}
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	s.logger.Info("listening", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DefaultShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
