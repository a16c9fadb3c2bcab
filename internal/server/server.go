// Package server provides the HTTP server implementation.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/items-api/internal/config"
	"github.com/vyrodovalexey/items-api/internal/handler"
	"github.com/vyrodovalexey/items-api/internal/middleware"
	"github.com/vyrodovalexey/items-api/internal/service"
	"github.com/vyrodovalexey/items-api/internal/store"
)

// limiterCleanupInterval is how often idle per-client limiters are dropped.
const limiterCleanupInterval = time.Minute

// Server runs the items API and the probe endpoints.
type Server struct {
	httpServer  *http.Server
	probeServer *http.Server
	router      *mux.Router
	probeRouter *mux.Router
	config      *config.Config
	logger      *zap.Logger
	service     *service.ItemService
	wsHandler   *handler.WebSocketHandler
	rateLimiter *middleware.RateLimiter

	stopOnce sync.Once
	stop     context.CancelFunc
	bgCtx    context.Context
}

// New creates a new Server instance backed by itemStore.
func New(cfg *config.Config, logger *zap.Logger, itemStore store.Store) *Server {
	bgCtx, stop := context.WithCancel(context.Background())

	s := &Server{
		router:      mux.NewRouter(),
		probeRouter: mux.NewRouter(),
		config:      cfg,
		logger:      logger,
		bgCtx:       bgCtx,
		stop:        stop,
	}

	s.wsHandler = handler.NewWebSocketHandler(logger)
	s.service = service.NewItemService(itemStore, s.wsHandler, cfg.ServiceName, logger)

	s.setupMiddleware()
	s.setupRoutes()
	s.setupProbeRoutes()
	s.setupHTTPServer()
	s.setupProbeServer()

	return s
}

// setupMiddleware configures the middleware chain.
// Middleware registered first runs outermost.
func (s *Server) setupMiddleware() {
	s.router.Use(mux.MiddlewareFunc(middleware.Recovery(s.logger)))
	s.router.Use(mux.MiddlewareFunc(middleware.RequestID()))

	if s.config.MetricsEnabled {
		s.router.Use(mux.MiddlewareFunc(middleware.Metrics()))
	}

	s.router.Use(mux.MiddlewareFunc(middleware.Logging(s.logger)))
	s.router.Use(mux.MiddlewareFunc(middleware.CORS(
		s.config.CORSOrigins,
		middleware.DefaultCORSMethods,
		middleware.DefaultCORSHeaders,
	)))

	if s.config.RateLimitEnabled() {
		s.rateLimiter = middleware.NewRateLimiter(s.config.RateLimitRPS, s.config.RateLimitBurst, s.logger)
		s.router.Use(mux.MiddlewareFunc(s.rateLimiter.Middleware()))
	}
}

// setupRoutes configures the API routes.
func (s *Server) setupRoutes() {
	s.router.NotFoundHandler = handler.NotFoundHandler()
	s.router.MethodNotAllowedHandler = handler.MethodNotAllowedHandler()

	restHandler := handler.NewRESTHandler(s.service, s.logger, s.config.MaxBodyBytes)
	restHandler.RegisterRoutes(s.router)

	s.wsHandler.RegisterRoutes(s.router)

	if s.config.MetricsEnabled {
		s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}

	// Preflight requests must match a route for the CORS middleware to run.
	// A MatcherFunc is used because a Methods matcher would turn every
	// unknown path into a 405.
	s.router.MatcherFunc(func(r *http.Request, _ *mux.RouteMatch) bool {
		return r.Method == http.MethodOptions
	}).HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

// setupProbeRoutes configures the probe router. It is built even when
// the probe server is disabled so that it can be exercised directly.
func (s *Server) setupProbeRoutes() {
	s.probeRouter.NotFoundHandler = handler.NotFoundHandler()
	s.probeRouter.MethodNotAllowedHandler = handler.MethodNotAllowedHandler()
	s.probeRouter.Use(mux.MiddlewareFunc(middleware.Recovery(s.logger)))

	probeHandler := handler.NewRESTHandler(s.service, s.logger, s.config.MaxBodyBytes)
	probeHandler.RegisterProbeRoutes(s.probeRouter)

	if s.config.MetricsEnabled {
		s.probeRouter.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}
}

// setupHTTPServer configures the HTTP server.
func (s *Server) setupHTTPServer() {
	s.httpServer = &http.Server{
		Addr:              s.config.Address(),
		Handler:           s.router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
}

// setupProbeServer configures the probe server when a probe port is set.
func (s *Server) setupProbeServer() {
	if s.config.ProbePort == 0 {
		return
	}

	s.probeServer = &http.Server{
		Addr:              s.config.ProbeAddress(),
		Handler:           s.probeRouter,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      5 * time.Second,
		IdleTimeout:       30 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
}

// Start starts the probe server in the background and serves the API
// until Shutdown is called.
func (s *Server) Start() error {
	if s.rateLimiter != nil {
		go s.rateLimiter.Run(s.bgCtx, limiterCleanupInterval)
	}

	if s.probeServer != nil {
		go func() {
			s.logger.Info("starting probe server", zap.String("address", s.probeServer.Addr))
			if err := s.probeServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("probe server failed", zap.Error(err))
			}
		}()
	}

	s.logger.Info("starting server",
		zap.String("address", s.config.Address()),
		zap.String("service", s.config.ServiceName),
		zap.Bool("metrics_enabled", s.config.MetricsEnabled),
		zap.Bool("rate_limit_enabled", s.rateLimiter != nil),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server listen and serve: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	s.stopOnce.Do(s.stop)

	s.wsHandler.CloseAllConnections()

	if s.probeServer != nil {
		if err := s.probeServer.Shutdown(ctx); err != nil {
			s.logger.Warn("probe server shutdown failed", zap.Error(err))
		}
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// Router returns the API router.
func (s *Server) Router() *mux.Router {
	return s.router
}

// ProbeRouter returns the probe router.
func (s *Server) ProbeRouter() *mux.Router {
	return s.probeRouter
}
