// Package server exposes report retrieval over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/sec-api-client/pkg/client"
	"github.com/Sternrassler/sec-api-client/pkg/edgar"
	"github.com/Sternrassler/sec-api-client/pkg/logging"
	"github.com/Sternrassler/sec-api-client/pkg/metrics"
	"github.com/Sternrassler/sec-api-client/pkg/report"
	"github.com/Sternrassler/sec-api-client/pkg/retriever"
)

// DefaultMaxWorkers caps the workers query parameter.
const DefaultMaxWorkers = 10

// Retriever is the part of retriever.Retriever the handlers use.
type Retriever interface {
	RetrieveReportMetadata(ctx context.Context, doc edgar.DocumentType, lookup retriever.Lookup) (*client.Filing, error)
	GetReport(ctx context.Context, doc edgar.DocumentType, url string, opts retriever.Options) (*report.Report, error)
}

// Config holds server configuration.
type Config struct {
	Port      int
	Log       zerolog.Logger
	Retriever Retriever

	// DefaultWorkers applies when a request has no workers parameter.
	DefaultWorkers int
	MaxWorkers     int

	// RequestTimeout bounds a whole report retrieval.
	RequestTimeout time.Duration
}

// Server is the HTTP front end of the retriever.
type Server struct {
	router    *chi.Mux
	server    *http.Server
	log       zerolog.Logger
	retriever Retriever
	cfg       Config
}

// New creates a server with all routes registered.
func New(cfg Config) *Server {
	if cfg.DefaultWorkers < 1 {
		cfg.DefaultWorkers = 1
	}
	if cfg.MaxWorkers < 1 {
		cfg.MaxWorkers = DefaultMaxWorkers
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 5 * time.Minute
	}

	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", logging.ComponentServer).Logger(),
		retriever: cfg.Retriever,
		cfg:       cfg,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 15 * time.Second,
		// Full 10-K retrievals take a while.
		WriteTimeout: cfg.RequestTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	s.router.Use(middleware.Compress(5))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", metrics.Handler())

	s.router.Route("/v1/forms/{form}", func(r chi.Router) {
		r.Get("/sections", s.handleSections)
		r.Get("/metadata", s.handleMetadata)
		r.Get("/html", s.handleReport)
	})
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured port until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
