// Package server exposes the evaluation engine over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gaugekit/gauge/internal/engine"
	"github.com/gaugekit/gauge/internal/observability"
	"github.com/gaugekit/gauge/internal/pkg/logger"
	"github.com/gaugekit/gauge/internal/pkg/middleware"
)

// Server serves the evaluation API.
type Server struct {
	cfg     Config
	log     *logger.Logger
	engine  *engine.Engine
	metrics *observability.Metrics
	limiter *middleware.RateLimiter

	handler    http.Handler
	httpServer *http.Server

	mu      sync.RWMutex
	started bool
}

// Config configures the server.
type Config struct {
	// Host is the address to bind to.
	Host string

	// Port is the HTTP port.
	Port int

	// Version is reported by /healthz.
	Version string

	// ReadTimeout is the HTTP read timeout.
	ReadTimeout time.Duration

	// WriteTimeout is the HTTP write timeout.
	WriteTimeout time.Duration

	// ShutdownTimeout is the graceful shutdown timeout.
	ShutdownTimeout time.Duration

	// RateLimit is requests per second per client. 0 disables it.
	RateLimit float64

	// MaxBatch caps records per evaluate request.
	MaxBatch int

	// MaxMetrics caps metric names per evaluate request.
	MaxMetrics int

	// MaxBodyBytes caps request bodies. 0 disables the cap.
	MaxBodyBytes int64

	// ReportDir roots report paths requested over HTTP. Empty rejects
	// report targets.
	ReportDir string

	// MetricsPath serves Prometheus metrics when metrics are enabled.
	MetricsPath string
}

// DefaultConfig returns sensible server defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		Version:         "dev",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    5 * time.Minute,
		ShutdownTimeout: 30 * time.Second,
		MaxBatch:        10000,
		MaxMetrics:      64,
		MaxBodyBytes:    32 << 20,
		ReportDir:       "reports",
		MetricsPath:     "/metrics",
	}
}

// New creates a server around eng. metrics and log may be nil.
func New(cfg Config, eng *engine.Engine, metrics *observability.Metrics, log *logger.Logger) *Server {
	if cfg.Port == 0 {
		cfg.Port = DefaultConfig().Port
	}
	if log == nil {
		log = logger.Discard()
	}

	rl := middleware.DefaultRateLimiterConfig()
	rl.RequestsPerSecond = cfg.RateLimit
	if cfg.RateLimit > 0 {
		rl.Burst = max(int(cfg.RateLimit*2), 1)
	}

	s := &Server{
		cfg:     cfg,
		log:     log,
		engine:  eng,
		metrics: metrics,
		limiter: middleware.NewRateLimiter(rl),
	}
	s.handler = s.buildHandler()
	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Start listens and serves until Stop.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("server already started")
	}
	s.started = true

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	srv := s.httpServer
	s.mu.Unlock()

	s.log.Info("Starting HTTP server", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.limiter.Stop()
	if !s.started {
		return nil
	}

	s.log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)
	if err != nil {
		s.log.Error("HTTP shutdown error", "error", err)
	}

	s.started = false
	s.log.Info("Server stopped")
	return err
}

// buildHandler registers routes and wraps them, outermost first:
// request ID, metrics, rate limit, body cap, request log, envelope.
func (s *Server) buildHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /v1/evaluate", s.handleEvaluate)
	mux.HandleFunc("GET /v1/metrics", s.handleListMetrics)
	mux.HandleFunc("GET /v1/runs", s.handleListRuns)
	mux.HandleFunc("GET /v1/runs/{id}", s.handleGetRun)
	if s.metrics != nil && s.cfg.MetricsPath != "" {
		mux.Handle("GET "+s.cfg.MetricsPath, s.metrics.Handler())
	}

	var h http.Handler = ResponseEnvelope(mux)
	h = withLogging(h, s.log)
	h = middleware.MaxBody(s.cfg.MaxBodyBytes)(h)
	h = s.limiter.Middleware(h)
	h = s.metrics.Middleware(h)
	return middleware.RequestID(h)
}

// withLogging logs each request at debug.
func withLogging(next http.Handler, log *logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		log.WithContext(r.Context()).Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration", time.Since(start),
		)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Health returns whether the server is serving.
func (s *Server) Health() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}
