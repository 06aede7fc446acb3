// Package api provides the JSON HTTP API for browsing and ingesting papers.
package api

import (
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paperdex/paperdex/internal/log"
)

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger     log.Logger
	Store      PaperStore    // Required
	Pipeline   Ingester      // Optional: nil disables POST /api/v1/ingest
	Pool       *pgxpool.Pool // Optional: nil degrades /ready to liveness
	TrustProxy bool          // Trust X-Real-IP/X-Forwarded-For headers
	RateBurst  int           // Rate limiter burst size per IP (0 = default 60)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates an API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Store == nil {
		return nil, errStoreRequired
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	ph := &papersHandler{store: cfg.Store, logger: logger}
	ih := &ingestHandler{pipeline: cfg.Pipeline, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/papers", ph.listPapers)
	mux.HandleFunc("GET /api/v1/papers/{id}", ph.getPaper)
	mux.HandleFunc("POST /api/v1/ingest", ih.triggerIngest)
	mux.HandleFunc("GET /api/v1/health", readiness(cfg.Pool, logger))

	// Per-IP token bucket, 1 token/sec refill.
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	// Middleware stack, outermost first:
	//   Recovery → RequestID → Logging → RateLimit → Routes
	// RequestID sits before Logging so request_id is available in log attributes.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Top-level mux keeps the health probes out of the middleware stack so
	// Docker and orchestrator probes never hit the rate limiter.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health(logger))
	topMux.HandleFunc("GET /ready", readiness(cfg.Pool, logger))
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
