package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/GriffinCanCode/AgentOS/hostembed/internal/api/middleware"
	handlers "github.com/GriffinCanCode/AgentOS/hostembed/internal/http"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	readHeaderTimeout = 5 * time.Second
	idleTimeout       = time.Minute
)

// Server wraps the status API's router and HTTP server
type Server struct {
	router *gin.Engine
	http   *http.Server
	logger *logging.Logger
}

// NewServer creates the status API. metrics records request counts and may
// be nil; gatherer backs /metrics and may be nil.
func NewServer(cfg config.ServerConfig, h *handlers.Handlers, metrics *monitoring.Metrics, gatherer prometheus.Gatherer, logger *logging.Logger) *Server {
	logger = logging.OrNop(logger).Component("server")

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.AllowOrigins)))

	limits := middleware.DefaultRateLimitConfig()
	if cfg.RateLimit > 0 {
		limits.RequestsPerSecond = cfg.RateLimit
	}
	if cfg.RateBurst > 0 {
		limits.Burst = cfg.RateBurst
	}
	router.Use(middleware.RateLimit(limits))

	// Health
	router.GET("/", h.Root)
	router.GET("/health", h.Health)

	// Connections
	router.GET("/connections", h.ListConnections)
	router.POST("/connections/resize", h.ResizeConnections)
	router.GET("/connections/:id", h.GetConnection)
	router.POST("/connections/:id/focus", h.FocusConnection)
	router.DELETE("/connections/:id", h.CloseConnection)

	// Messages
	router.GET("/messages", h.ListMessages)
	router.DELETE("/messages", h.ClearMessages)

	router.GET("/tools", h.ListTools)

	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(monitoring.Handler(gatherer)))
	}

	return &Server{
		router: router,
		http: &http.Server{
			Addr:              cfg.Addr,
			Handler:           router,
			ReadHeaderTimeout: readHeaderTimeout,
			IdleTimeout:       idleTimeout,
		},
		logger: logger,
	}
}

// Handler returns the router, for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until Close is called. It returns nil after a clean shutdown.
func (s *Server) Run() error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.http.Addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on ln until Close is called
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("status API listening", zap.String("addr", ln.Addr().String()))
	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close stops accepting requests and waits for in-flight ones until ctx ends
func (s *Server) Close(ctx context.Context) error {
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown status API: %w", err)
	}
	return nil
}
