package server

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tabwell/backend/internal/config"
	"github.com/tabwell/backend/internal/domain/session"
	"github.com/tabwell/backend/internal/domain/workspace"
	"github.com/tabwell/backend/internal/http"
	"github.com/tabwell/backend/internal/infrastructure/monitoring"
	"github.com/tabwell/backend/internal/logging"
	"github.com/tabwell/backend/internal/middleware"
	"github.com/tabwell/backend/internal/persistence"
	"github.com/tabwell/backend/internal/scheduler"
	"github.com/tabwell/backend/internal/ws"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router    *gin.Engine
	workspace *workspace.Manager
	store     *persistence.Store
	logger    *logging.Logger
}

// NewServer creates a new server instance and restores the saved workspace.
func NewServer(cfg *config.Config) (*Server, error) {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return nil, err
	}

	metrics := monitoring.NewMetrics()

	// An unopenable store degrades to ephemeral tabs rather than refusing
	// to start.
	var wsStore workspace.Store = workspace.NopStore{}
	store, err := persistence.New(cfg.Database.Path, logger)
	if err != nil {
		logger.Warn("persistence store unavailable, tabs will not survive restart", zap.Error(err))
	} else {
		wsStore = store
	}

	sched := scheduler.New(cfg.Scheduler.QueueSize, logger)
	sched.OnDepthChange(func(depth int) {
		metrics.QueueDepth.Set(float64(depth))
	})

	wsManager := workspace.NewManager(
		wsStore,
		session.NewFactory(),
		session.NewDisposer(logger),
		sched,
		logger,
	).WithMetrics(metrics)

	if err := wsManager.Start(context.Background()); err != nil {
		return nil, err
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))
	}

	handlers := http.NewHandlers(wsManager)
	wsHandler := ws.NewHandler(wsManager, logger).WithMetrics(metrics)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)

	// Tab management
	router.GET("/tabs", handlers.ListTabs)
	router.POST("/tabs", handlers.AddTab)
	router.DELETE("/tabs/:key", handlers.RemoveTab)
	router.POST("/tabs/:key/select", handlers.SelectTab)

	// Observability
	router.GET("/stats", handlers.Stats)
	promHandler := promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{})
	router.GET("/metrics", func(c *gin.Context) {
		metrics.UpdateUptime()
		promHandler.ServeHTTP(c.Writer, c.Request)
	})

	// WebSocket
	router.GET("/stream", wsHandler.HandleConnection)

	return &Server{
		router:    router,
		workspace: wsManager,
		store:     store,
		logger:    logger,
	}, nil
}

// Run starts the server
func (s *Server) Run(addr string) error {
	s.logger.Info("starting session core", zap.String("addr", addr))
	return s.router.Run(addr)
}

// Close drains the mutation queue, disposes open sessions, and releases the
// persistence store.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.workspace.Close(ctx); err != nil {
		s.logger.Warn("workspace shutdown incomplete", zap.Error(err))
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn("error closing persistence store", zap.Error(err))
		}
	}
	_ = s.logger.Sync()
	return nil
}
