// Package server exposes the search backend over HTTP. Authentication is an
// external collaborator; the caller's identity arrives in trusted headers set
// by the edge (X-User-ID, X-User-Admin). Every search route passes the rate
// limiter before reaching the aggregator.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/cvclon3/virascope/pkg/ratelimit"
	"github.com/cvclon3/virascope/pkg/search"
)

// rateLimitAction is the per-user counter bucket all search routes share.
const rateLimitAction = "search"

// RateLimiter guards search routes per user.
type RateLimiter interface {
	Allow(ctx context.Context, userID, action string, privileged bool) ratelimit.Decision
	Status(ctx context.Context, userID, action string) (ratelimit.Status, error)
	Limit() int
	Window() time.Duration
}

// Searcher runs aggregated searches and detail lookups.
type Searcher interface {
	Run(ctx context.Context, params search.Params) (*search.Result, error)
	Lookup(ctx context.Context, ids []string) (*search.Result, error)
}

// KeyStats exposes pool health for the health endpoint.
type KeyStats interface {
	Size() int
	UsableCount() int
}

// Config holds the server configuration.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// AllowedOrigins for CORS. Defaults to allowing any origin.
	AllowedOrigins []string

	// RateLimiter guards the search routes. Required.
	RateLimiter RateLimiter

	// Search executes search requests. Required.
	Search Searcher

	// Keys reports pool health. Optional.
	Keys KeyStats
}

// Server is the HTTP front of the search backend.
type Server struct {
	router  *chi.Mux
	server  *http.Server
	addr    string
	limiter RateLimiter
	search  Searcher
	keys    KeyStats
	logger  zerolog.Logger
}

// New creates the HTTP server and registers all routes.
func New(cfg Config) *Server {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	s := &Server{
		router:  chi.NewRouter(),
		addr:    cfg.Addr,
		limiter: cfg.RateLimiter,
		search:  cfg.Search,
		keys:    cfg.Keys,
		logger:  log.With().Str("component", "server").Logger(),
	}

	r := s.router
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-User-ID", "X-User-Admin"},
		AllowCredentials: true,
	}))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/search", func(r chi.Router) {
		r.Use(s.identity)
		r.With(s.rateLimit).Get("/videos", s.handleSearchKind(search.KindVideos))
		r.With(s.rateLimit).Get("/shorts", s.handleSearchKind(search.KindShorts))
		r.Get("/limit", s.handleLimit)
	})

	r.With(s.identity, s.rateLimit).Post("/videos/by_ids", s.handleVideosByIDs)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "resource not found", 0)
	})

	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the server until it fails or Shutdown is called.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.logger.Info().Str("addr", s.addr).Msg("HTTP server listening")
	return s.server.ListenAndServe()
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
