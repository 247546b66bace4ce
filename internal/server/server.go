// Package server assembles the HTTP service hosting the preview engine.
package server

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/absmartly/preview-engine/internal/api/http"
	"github.com/absmartly/preview-engine/internal/api/middleware"
	"github.com/absmartly/preview-engine/internal/engine"
	"github.com/absmartly/preview-engine/internal/infrastructure/config"
	"github.com/absmartly/preview-engine/internal/infrastructure/monitoring"
	"github.com/absmartly/preview-engine/internal/logging"
	"github.com/absmartly/preview-engine/internal/sandbox"
)

// Server wraps the HTTP router and engine dependencies.
type Server struct {
	router   *gin.Engine
	sessions *engine.Registry
	pool     *sandbox.Pool
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
	done     chan struct{}
}

// New creates a server instance.
func New(cfg *config.Config) (*Server, error) {
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		var err error
		logger, err = logging.New(logging.Config{
			Level:       cfg.Logging.Level,
			Development: false,
			OutputPaths: []string{"stdout"},
		})
		if err != nil {
			return nil, fmt.Errorf("create logger: %w", err)
		}
	}

	logger.Info("initializing preview engine",
		zap.String("port", cfg.Server.Port),
		zap.Duration("sandbox_timeout", cfg.Sandbox.Timeout),
	)

	metrics := monitoring.NewMetrics()

	pool := sandbox.NewPool(sandbox.Config{
		Timeout:         cfg.Sandbox.Timeout,
		MaxScriptLength: cfg.Sandbox.MaxScriptLength,
	}, cfg.Sandbox.PoolSize, logger.Named("sandbox"))

	sessions := engine.NewRegistry(pool, logger.Named("engine")).WithMetrics(metrics)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}
	router.Use(monitoring.Middleware(metrics))

	handlers := apihttp.NewHandlers(sessions, cfg.Fetch, logger.Named("api"))
	handlers.Routes(router)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &Server{
		router:   router,
		sessions: sessions,
		pool:     pool,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
		done:     make(chan struct{}),
	}
	go srv.refreshUptime()

	return srv, nil
}

func (s *Server) refreshUptime() {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.metrics.UpdateUptime()
		case <-s.done:
			return
		}
	}
}

// Run starts the HTTP server. Blocks until the listener fails.
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("preview engine listening", zap.String("addr", addr))
	return s.router.Run(addr)
}

// Close releases server resources.
func (s *Server) Close() error {
	close(s.done)
	s.pool.Close()
	return s.logger.Sync()
}
