// Package server implements the HTTP server that exposes the presentation
// assistant via a REST API: document ingestion, grounded question answering,
// web search, voice transcription and synthesis, and session management.
// The server is started by the `consultdeck serve` CLI command.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/consultdeck/consultdeck/internal/logging"
)

// New constructs a Server from the provided dependencies and config.
func New(deps Deps, cfg *Config) (*Server, error) {
	if deps.Ingest == nil {
		return nil, fmt.Errorf("server: ingest service must not be nil")
	}
	if deps.Answerer == nil {
		return nil, fmt.Errorf("server: answerer must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8000
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// WriteTimeout must cover slow synthesis chains and large ingests.
		cfg.WriteTimeout = 5 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.New()
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}

	s := &Server{
		deps:    deps,
		cfg:     cfg,
		log:     cfg.Logger,
		pingers: cfg.Pingers,
		metrics: newServerMetrics(cfg.Registry),
	}

	if cfg.APIKey == "" {
		s.log.Warn("server: API key not configured, authentication disabled")
	}

	rl, stopRL := newRateLimiter(cfg.RateLimit, cfg.RateBurst, s.log)
	s.stopRL = stopRL

	mux := http.NewServeMux()
	mux.Handle("POST /api/ingest/documents", s.route("ingest_documents", s.handleIngestDocuments))
	mux.Handle("POST /api/ingest/slide", s.route("ingest_slide", s.handleIngestSlide))
	mux.Handle("GET /api/ingest/status/{session_id}", s.route("ingest_status", s.handleIngestStatus))
	mux.Handle("DELETE /api/session/{session_id}", s.route("delete_session", s.handleDeleteSession))
	mux.Handle("POST /api/query", s.route("query", s.handleQuery))
	mux.Handle("POST /api/web-search", s.route("web_search", s.handleWebSearch))
	mux.Handle("GET /api/history/{session_id}", s.route("history", s.handleHistory))
	mux.Handle("POST /api/voice/transcribe", s.route("voice_transcribe", s.handleTranscribe))
	mux.Handle("POST /api/voice/speak", s.route("voice_speak", s.handleSpeak))
	mux.Handle("POST /api/voice/clone", s.route("voice_clone", s.handleClone))
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/ready", s.handleReady)

	// /metrics gathers both the server registry and the default registry so
	// the pipeline and voice counters are exposed alongside HTTP metrics.
	gatherers := prometheus.Gatherers{cfg.Registry, prometheus.DefaultGatherer}
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{}))

	handler := requestLogger(s.log, rl.middleware(mux))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// route wraps an API handler with authentication and per-endpoint metrics.
// The handler label partitions metrics by logical endpoint, not raw path.
func (s *Server) route(name string, h http.HandlerFunc) http.Handler {
	return authMiddleware(s.cfg.APIKey, s.metrics.instrument(name, h))
}

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	defer s.stopRL()

	errCh := make(chan error, 1)

	go func() {
		s.log.Info("server listening", slog.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// writeJSON encodes v as the response body with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("response encode error", slog.Any("error", err))
	}
}

// writeError sends a JSON error body with the given status code.
func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}
