// Package http serves health, readiness, status and Prometheus metrics for a
// running shuffle session.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"bettershuffle/internal/core"
)

const serviceName = "bettershuffle"

// StatusProvider reports the live state of the queue controller.
type StatusProvider interface {
	Status() core.QueueStatus
}

type Server struct {
	config   *core.ServerConfig
	logger   *zap.Logger
	server   *http.Server
	metrics  *Metrics
	registry *prometheus.Registry
	status   atomic.Pointer[StatusProvider]
}

func NewServer(config *core.ServerConfig, logger *zap.Logger) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &Server{
		config:   config,
		logger:   logger,
		metrics:  newMetrics(registry),
		registry: registry,
	}
	s.server = createHTTPServer(config, setupRoutes(logger, registry, s.currentStatus))

	return s
}

// SetStatusProvider attaches the controller once it exists. Until then /readyz
// reports not ready and /status is unavailable.
func (s *Server) SetStatusProvider(p StatusProvider) {
	s.status.Store(&p)
}

func (s *Server) currentStatus() (core.QueueStatus, bool) {
	p := s.status.Load()
	if p == nil {
		return core.QueueStatus{}, false
	}
	return (*p).Status(), true
}

func createHTTPServer(config *core.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      handler,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
}

func setupRoutes(logger *zap.Logger, gatherer prometheus.Gatherer, status func() (core.QueueStatus, bool)) chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger(logger))
	router.Use(middleware.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, logger, http.StatusOK, map[string]string{"status": "ok", "service": serviceName})
	})

	router.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if _, ok := status(); !ok {
			writeJSON(w, logger, http.StatusServiceUnavailable, map[string]string{"status": "starting", "service": serviceName})
			return
		}
		writeJSON(w, logger, http.StatusOK, map[string]string{"status": "ready", "service": serviceName})
	})

	router.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		snapshot, ok := status()
		if !ok {
			writeJSON(w, logger, http.StatusServiceUnavailable, map[string]string{"error": "queue controller not started"})
			return
		}
		writeJSON(w, logger, http.StatusOK, snapshot)
	})

	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	router.Get("/", homeHandler(logger))

	return router
}

func homeHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
    <title>bettershuffle</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; }
        .endpoint { margin: 10px 0; }
        .endpoint a { text-decoration: none; color: #0066cc; }
    </style>
</head>
<body>
    <h1>bettershuffle</h1>
    <p>Weighted shuffle for the Spotify playback queue</p>

    <h2>Endpoints</h2>
    <div class="endpoint"><a href="/status">Status</a> - Queue controller state</div>
    <div class="endpoint"><a href="/metrics">Metrics</a> - Prometheus metrics</div>
    <div class="endpoint"><a href="/healthz">Health</a> - Health check</div>
    <div class="endpoint"><a href="/readyz">Ready</a> - Readiness check</div>
</body>
</html>`)); err != nil {
			logger.Debug("Failed to write home page", zap.Error(err))
		}
	}
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("HTTP request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("requestID", middleware.GetReqID(r.Context())))
		})
	}
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Debug("Failed to write JSON response", zap.Error(err))
	}
}

// Start serves until ctx is cancelled and then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server",
		zap.String("addr", s.server.Addr))

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shutdown HTTP server gracefully", zap.Error(err))
		}
	}()

	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

// Metrics returns the collectors to hand to the controller and materializer.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}
