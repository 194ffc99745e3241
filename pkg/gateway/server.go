// Package gateway exposes the analysis and Q&A operations over HTTP and
// WebSocket.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/labelsense/labelsense/internal/metrics"
	"github.com/labelsense/labelsense/pkg/advisor"
	"github.com/labelsense/labelsense/pkg/analysis"
	"github.com/labelsense/labelsense/pkg/store"
)

// Service is the advisor surface the gateway serves.
type Service interface {
	AnalyzeImage(ctx context.Context, image []byte, mediaType string) (*store.Session, error)
	Ask(ctx context.Context, sessionID, question string) (analysis.Answer, error)
	SessionSummary(ctx context.Context, sessionID string) (advisor.Overview, error)
	Session(ctx context.Context, sessionID string) (*store.Session, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// Config holds server configuration.
type Config struct {
	Port           int
	MaxUploadBytes int64
	Service        Service
	Metrics        *metrics.Metrics
	Logger         zerolog.Logger
}

// Server is the HTTP gateway.
type Server struct {
	port           int
	maxUploadBytes int64
	service        Service
	metrics        *metrics.Metrics
	logger         zerolog.Logger
	server         *http.Server
	upgrader       websocket.Upgrader
	isShuttingDown bool
	shutdownMu     sync.RWMutex
}

const defaultMaxUploadBytes = 8 << 20

// NewServer creates a gateway server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Port <= 0 {
		return nil, fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if cfg.Service == nil {
		return nil, fmt.Errorf("service is required")
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}

	return &Server{
		port:           cfg.Port,
		maxUploadBytes: cfg.MaxUploadBytes,
		service:        cfg.Service,
		metrics:        cfg.Metrics,
		logger:         cfg.Logger.With().Str("component", "gateway").Logger(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}, nil
}

// Handler builds the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/analyses", s.handleAnalyses)
	mux.HandleFunc("/v1/ask", s.handleAsk)
	mux.HandleFunc("/v1/session", s.handleSession)
	mux.HandleFunc("/ws", s.handleWebSocket)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics.Handler())
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return mux
}

// Start starts the gateway server without blocking.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.Handler(),
	}

	s.logger.Info().Int("port", s.port).Msg("starting gateway server")

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("gateway server error")
		}
	}()

	return nil
}

// Stop gracefully stops the gateway server.
func (s *Server) Stop() error {
	s.shutdownMu.Lock()
	s.isShuttingDown = true
	s.shutdownMu.Unlock()

	if s.server == nil {
		return nil
	}

	s.logger.Info().Msg("shutting down gateway server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info().Msg("gateway server stopped")
	return nil
}

func (s *Server) shuttingDown() bool {
	s.shutdownMu.RLock()
	defer s.shutdownMu.RUnlock()
	return s.isShuttingDown
}
