// Package api provides the HTTP API of watch mode. It serves the latest
// discovery report, lets clients trigger runs, pushes run notifications
// over a websocket and exposes Prometheus metrics.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	apihandlers "github.com/anstrom/rtspscout/internal/api/handlers"
	"github.com/anstrom/rtspscout/internal/api/middleware"
	"github.com/anstrom/rtspscout/internal/config"
	"github.com/anstrom/rtspscout/internal/logging"
	"github.com/anstrom/rtspscout/internal/metrics"
)

// Server represents the API server.
type Server struct {
	httpServer     *http.Server
	router         *mux.Router
	config         config.APIConfig
	watcher        apihandlers.Watcher
	logger         *logging.Logger
	metrics        metrics.Recorder
	metricsHandler http.Handler
	websocket      *apihandlers.WebSocketHandler
	unsubscribe    func()
	version        string
	startTime      time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics sets the request recorder and the /metrics handler.
func WithMetrics(recorder metrics.Recorder, handler http.Handler) Option {
	return func(s *Server) {
		s.metrics = recorder
		s.metricsHandler = handler
	}
}

// WithVersion sets the version reported by the index route.
func WithVersion(version string) Option {
	return func(s *Server) {
		s.version = version
	}
}

// New creates a new API server instance.
func New(cfg config.APIConfig, watcher apihandlers.Watcher, opts ...Option) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		config:    cfg,
		watcher:   watcher,
		logger:    logging.Default().WithComponent("api"),
		metrics:   metrics.Nop{},
		version:   "dev",
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.websocket = apihandlers.NewWebSocketHandler(s.logger)
	s.unsubscribe = watcher.Subscribe(s.websocket.BroadcastRun)

	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.ListenAddr, strconv.Itoa(cfg.Port)),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	discovery := apihandlers.NewDiscoveryHandler(s.watcher, s.logger)

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.MethodNotAllowedHandler = http.HandlerFunc(s.methodNotAllowedHandler)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(s.methodNotAllowedHandler)
	api.HandleFunc("/liveness", s.livenessHandler).Methods(http.MethodGet)
	api.HandleFunc("/status", discovery.GetStatus).Methods(http.MethodGet)
	api.HandleFunc("/report", discovery.GetReport).Methods(http.MethodGet)
	api.HandleFunc("/discovery", discovery.TriggerDiscovery).Methods(http.MethodPost)
	api.HandleFunc("/ws", s.websocket.ServeWS).Methods(http.MethodGet)

	if s.metricsHandler != nil {
		s.router.Handle("/metrics", s.metricsHandler).Methods(http.MethodGet)
	}

	s.router.HandleFunc("/", s.indexHandler).Methods(http.MethodGet)
}

// setupMiddleware configures middleware for the API server.
func (s *Server) setupMiddleware() {
	s.router.Use(handlers.ProxyHeaders)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recovery(s.logger))
	s.router.Use(middleware.Logging(s.logger))
	s.router.Use(middleware.Metrics(s.metrics))
	s.router.Use(handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", middleware.RequestIDHeader}),
	))
}

// Start serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting API server",
		"address", s.httpServer.Addr,
		"read_timeout", s.httpServer.ReadTimeout,
		"write_timeout", s.httpServer.WriteTimeout)

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("API server failed: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return s.Stop()
	case err := <-errChan:
		return err
	}
}

// Stop gracefully stops the API server.
func (s *Server) Stop() error {
	s.logger.Info("Stopping API server")
	s.unsubscribe()
	_ = s.websocket.Close()

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("API server shutdown error", "error", err)
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("API server stopped successfully")
	return nil
}

// Router returns the configured router.
func (s *Server) Router() *mux.Router {
	return s.router
}

// Address returns the server address.
func (s *Server) Address() string {
	return s.httpServer.Addr
}

func (s *Server) livenessHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]any{
		"status":    "alive",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(s.startTime).String(),
	})
}

func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]any{
		"service": "rtspscout",
		"version": s.version,
		"endpoints": map[string]string{
			"liveness":  "/api/v1/liveness",
			"status":    "/api/v1/status",
			"report":    "/api/v1/report",
			"discovery": "/api/v1/discovery",
			"websocket": "/api/v1/ws",
			"metrics":   "/metrics",
		},
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) methodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusMethodNotAllowed, apihandlers.ErrorResponse{
		Error:     fmt.Sprintf("method %s not allowed on %s", r.Method, r.URL.Path),
		Timestamp: time.Now().UTC(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode JSON response",
			"error", err,
			"path", r.URL.Path,
			"method", r.Method)
	}
}
