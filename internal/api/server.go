// Package api exposes the chatbot over a JSON HTTP API: chat, history,
// stats, clear, export, and health probes behind a small hand-rolled
// middleware stack on the standard library mux.
package api

import (
	"errors"
	"net/http"

	"github.com/georgiosbirmpakos/derbychat/internal/conversation"
	"github.com/georgiosbirmpakos/derbychat/internal/log"
)

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger      log.Logger
	Pipeline    Asker             // Required
	Log         *conversation.Log // Required
	Pinger      Pinger            // Optional: nil skips DB check in /ready
	Counter     Counter           // Optional: nil skips index check in /ready
	ExportDir   string            // Directory for conversation export files
	CORSOrigins []string          // Allowed origins for CORS
	TrustProxy  bool              // Trust X-Real-IP/X-Forwarded-For headers
	RateBurst   int               // Rate limiter burst size per IP (0 = default 60)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates the API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Pipeline == nil {
		return nil, errors.New("chat pipeline is required")
	}
	if cfg.Log == nil {
		return nil, errors.New("conversation log is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	exportDir := cfg.ExportDir
	if exportDir == "" {
		exportDir = "."
	}

	h := &chatHandler{
		pipeline:  cfg.Pipeline,
		log:       cfg.Log,
		exportDir: exportDir,
		logger:    logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", h.send)
	mux.HandleFunc("GET /history", h.history)
	mux.HandleFunc("GET /stats", h.stats)
	mux.HandleFunc("POST /clear", h.clear)
	mux.HandleFunc("GET /export", h.export)
	mux.HandleFunc("GET /sample-questions", h.sampleQuestions)
	mux.HandleFunc("GET /{$}", h.index)

	// Rate limiter: per-IP token bucket (1 token/sec refill)
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	// Build middleware stack (outermost first):
	//   Recovery → RequestID → Logging → CORS → RateLimit → Routes
	// RequestID must be before Logging so request_id is available in log
	// attributes. CORS must be before RateLimit so preflight OPTIONS gets
	// proper CORS headers.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Health probes live outside the middleware stack so monitoring is never
	// rate limited.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health(logger))
	topMux.Handle("GET /ready", readiness(cfg.Pinger, cfg.Counter, logger))
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
