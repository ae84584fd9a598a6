// Package server exposes the classification pipeline over HTTP.
package server

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/teranos/qntx-astro/ai/advisory"
	"github.com/teranos/qntx-astro/errors"
	"github.com/teranos/qntx-astro/internal/app"
	"github.com/teranos/qntx-astro/logger"
)

// ShutdownTimeout is how long in-flight classifications get to finish
const ShutdownTimeout = 30 * time.Second

// ServerState represents the server lifecycle state
type ServerState int32

const (
	ServerStateRunning  ServerState = iota // Normal operation
	ServerStateDraining                    // Graceful shutdown in progress
	ServerStateStopped                     // Shutdown complete
)

func (s ServerState) String() string {
	switch s {
	case ServerStateRunning:
		return "running"
	case ServerStateDraining:
		return "draining"
	case ServerStateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Server serves classification, conversion and audit endpoints.
type Server struct {
	app    *app.App
	logger *zap.SugaredLogger
	mux    *http.ServeMux
	http   *http.Server
	state  atomic.Int32

	// health is the advisory health cache shared by all requests
	healthMu sync.Mutex
	health   advisory.HealthCache

	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// New builds a server around a wired pipeline.
func New(a *app.App, log *zap.SugaredLogger) *Server {
	factory := promauto.With(a.Registry)
	s := &Server{
		app:    a,
		logger: logger.OrNop(log),
		mux:    http.NewServeMux(),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qntx_astro",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"route", "status"}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "qntx_astro",
			Subsystem: "http",
			Name:      "request_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	s.setupHTTPRoutes()
	return s
}

// Handler returns the root handler (tests mount it on httptest)
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) setupHTTPRoutes() {
	s.handle("GET /health", s.HandleHealth)
	s.handle("POST /api/classify", s.HandleClassify)
	s.handle("POST /api/conversions", s.HandleConversions)
	s.handle("POST /api/convert", s.HandleConvert)
	s.handle("GET /api/datasets/{dataset}/schema", s.HandleSchema)
	s.handle("GET /api/audit", s.HandleAudit)
	s.handle("GET /api/dictionaries", s.HandleDictionaries)
	s.handle("POST /api/advisory/health", s.HandleAdvisoryRecheck)
	s.handle("GET /api/advisory/usage", s.HandleAdvisoryUsage)
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.app.Registry, promhttp.HandlerOpts{}))
}

func (s *Server) handle(pattern string, h http.HandlerFunc) {
	s.mux.HandleFunc(pattern, s.corsMiddleware(s.instrument(pattern, h)))
}

// corsMiddleware allows browser clients on localhost
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && isLocalOrigin(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		next(w, r)
	}
}

func isLocalOrigin(origin string) bool {
	for _, prefix := range []string{"http://localhost", "https://localhost", "http://127.0.0.1", "https://127.0.0.1"} {
		if len(origin) >= len(prefix) && origin[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument attaches a request ID to the context and records metrics
func (s *Server) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := logger.WithRequestID(r.Context(), requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r.WithContext(ctx))

		elapsed := time.Since(start)
		s.requests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		s.latency.WithLabelValues(route).Observe(elapsed.Seconds())
		logger.FromContext(ctx, s.logger).Debugw("Request served",
			logger.FieldMethod, r.Method,
			logger.FieldPath, r.URL.Path,
			logger.FieldStatus, rec.status,
			logger.FieldDurationMS, elapsed.Milliseconds(),
		)
	}
}

func (s *Server) getState() ServerState {
	return ServerState(s.state.Load())
}

func (s *Server) setState(newState ServerState) {
	s.state.Store(int32(newState))
	s.logger.Infow("Server state changed", "new_state", newState.String())
}

// ListenAndServe serves on addr until ctx is canceled, then drains.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.WithHintf(errors.Wrapf(err, "failed to listen on %s", addr),
			"set server.port in am.toml or QNTX_ASTRO_SERVER_PORT")
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is canceled, then drains.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	cfg := s.app.Config.Server
	s.http = &http.Server{
		Handler:      s.mux,
		ReadTimeout:  cfg.ReadTimeout(),
		WriteTimeout: cfg.WriteTimeout(),
	}
	s.setState(ServerStateRunning)
	s.logger.Infow("Server ready", logger.FieldAddress, ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.Serve(ln)
	}()

	select {
	case err := <-errCh:
		s.setState(ServerStateStopped)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "server stopped")
	case <-ctx.Done():
	}

	s.setState(ServerStateDraining)
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
	defer cancel()
	err := s.http.Shutdown(shutdownCtx)
	<-errCh
	s.setState(ServerStateStopped)
	if err != nil {
		return errors.Wrap(err, "graceful shutdown")
	}
	return nil
}

// healthSnapshot copies the shared cache so a classification can run
// without holding the lock
func (s *Server) healthSnapshot() advisory.HealthCache {
	s.healthMu.Lock()
	defer s.healthMu.Unlock()
	return s.health
}

// storeHealth keeps the newest answer
func (s *Server) storeHealth(hc advisory.HealthCache) {
	s.healthMu.Lock()
	defer s.healthMu.Unlock()
	if hc.CheckedAt.After(s.health.CheckedAt) {
		s.health = hc
	}
}
