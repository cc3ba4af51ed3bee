// Package server exposes the explorer session and the enriched event feed
// over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/runnerr0/historian/internal/config"
	"github.com/runnerr0/historian/internal/explorer"
	"github.com/runnerr0/historian/internal/model"
	"github.com/runnerr0/historian/internal/storage"
)

// Lister reads enriched events with an optional year filter.
type Lister interface {
	ListEnriched(ctx context.Context, q storage.YearQuery) ([]model.EnrichedEvent, error)
}

// Server serves the historian HTTP API.
type Server struct {
	cfg      config.ServerConfig
	explorer *explorer.Explorer
	events   Lister
	metrics  *Metrics
	logger   *zap.Logger
}

// New creates a server. events may be nil, in which case /events/enriched
// is answered from the explorer's loaded dataset.
func New(cfg config.ServerConfig, exp *explorer.Explorer, events Lister, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:      cfg,
		explorer: exp,
		events:   events,
		metrics:  NewMetrics(exp),
		logger:   logger.Named("http"),
	}
}

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(s.logger))
	r.Use(s.metrics.Middleware)
	r.Use(limitBody(s.cfg.MaxRequestSize))

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Get("/events/enriched", s.handleEnriched)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Get("/visible", s.handleVisible)

		r.Put("/window", s.handleSetWindow)
		r.Post("/window/start", s.handleMoveStart)
		r.Post("/window/end", s.handleMoveEnd)

		r.Get("/selection", s.handleGetSelection)
		r.Post("/selection", s.handleSelect)
		r.Delete("/selection", s.handleClearSelection)

		r.Get("/timeline", s.handleTimeline)
		r.Get("/map", s.handleMap)

		r.Get("/graph", s.handleGraph)
		r.Get("/graph.svg", s.handleGraphSVG)
		r.Post("/graph/nodes/{nodeID}/click", s.handleClickNode)
		r.Post("/graph/nodes/{nodeID}/drag", s.handleDragNode)
	})

	return r
}

// Addr is host:port from the config.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("http server: %w", err)
		}
		close(serverErr)
	}()

	select {
	case err, ok := <-serverErr:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}
