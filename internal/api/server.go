package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/selivandex/sentiment-proxy/internal/adapters/config"
	"github.com/selivandex/sentiment-proxy/internal/health"
	"github.com/selivandex/sentiment-proxy/pkg/logger"
)

// Server is the public HTTP server
type Server struct {
	server *http.Server
}

// Deps are the collaborators mounted on the router
type Deps struct {
	Handler  *Handler
	Health   *health.Handler
	Metrics  http.Handler
	Observer HTTPObserver
}

// NewRouter builds gin engine with middleware and routes
func NewRouter(cfg *config.ServerConfig, deps Deps) *gin.Engine {
	gin.SetMode(cfg.Mode)

	r := gin.New()
	r.Use(RequestID(), AccessLog(deps.Observer), Recovery(), CORS())

	if deps.Health != nil {
		deps.Health.Register(r)
	}
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	api := r.Group("/", Timeout(cfg.RequestTimeout))
	deps.Handler.RegisterRoutes(api)

	return r
}

// NewServer creates server listening on cfg.Port
func NewServer(cfg *config.ServerConfig, deps Deps) *Server {
	engine := NewRouter(cfg, deps)

	return &Server{
		server: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           engine,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}
}

// Start blocks serving requests until Stop
func (s *Server) Start() error {
	logger.Info("http server starting", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts the server down
func (s *Server) Stop(ctx context.Context) error {
	logger.Info("stopping http server...")
	return s.server.Shutdown(ctx)
}
