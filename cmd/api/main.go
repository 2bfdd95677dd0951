package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/therealutkarshpriyadarshi/audioextract/internal/config"
	"github.com/therealutkarshpriyadarshi/audioextract/internal/extractor"
	"github.com/therealutkarshpriyadarshi/audioextract/internal/logging"
	"github.com/therealutkarshpriyadarshi/audioextract/internal/metrics"
	"github.com/therealutkarshpriyadarshi/audioextract/internal/middleware"
	"github.com/therealutkarshpriyadarshi/audioextract/internal/storage"
	"github.com/therealutkarshpriyadarshi/audioextract/internal/tracing"
)

func main() {
	// Load configuration
	cfg, err := config.Load(configPath())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create logger")
	}

	// Initialize tracing
	_, closer, err := tracing.InitTracer(cfg.Tracing)
	if err != nil {
		logger.Fatalf("Failed to initialize tracing: %v", err)
	}
	defer closer.Close()

	// Initialize archive storage
	var archiver extractor.Archiver
	if cfg.Archive.Enabled {
		archive, err := storage.New(cfg.Archive, logger)
		if err != nil {
			logger.Fatalf("Failed to initialize archive storage: %v", err)
		}
		archiver = archive
		logger.Infof("Archiving produced audio to bucket %s", cfg.Archive.BucketName)
	}

	// Initialize rate limiting
	var limiter middleware.Limiter
	if cfg.RateLimit.Enabled {
		switch cfg.RateLimit.Backend {
		case "redis":
			rl, err := middleware.NewRedisRateLimiter(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB, cfg.RateLimit.Burst, cfg.RateLimit.Window)
			if err != nil {
				logger.Fatalf("Failed to initialize rate limiter: %v", err)
			}
			defer rl.Close()
			limiter = rl
		default:
			limiter = middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		}
		logger.Infof("Rate limiting enabled (%s)", limiter.Name())
	}

	service := extractor.NewService(cfg.Extractor, archiver, logger)
	if !service.ToolAvailable() {
		logger.Warnf("%s not found; requests will fail until it is installed", cfg.Extractor.ToolPath)
	}

	api := &API{
		extractor:     service,
		logger:        logger,
		defaultFormat: cfg.Extractor.DefaultFormat,
	}

	gin.SetMode(gin.ReleaseMode)
	router := setupRouter(api, limiter)

	// Start metrics server
	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics.Port)
		go func() {
			if err := metricsServer.Start(); err != nil {
				logger.ErrorWithErr("Metrics server failed", err)
			}
		}()
	}

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Infof("Starting API server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.ErrorWithErr("Server forced to shutdown", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			logger.ErrorWithErr("Metrics server forced to shutdown", err)
		}
	}

	logger.Info("Server stopped")
}

// configPath prefers CONFIG_PATH, then ./config.yaml when present
func configPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}
	return ""
}

func setupRouter(api *API, limiter middleware.Limiter) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(api.logger), middleware.Metrics())

	// Health check
	router.GET("/health", api.healthCheck)

	handlers := []gin.HandlerFunc{}
	if limiter != nil {
		handlers = append(handlers, middleware.RateLimit(limiter))
	}

	// API routes
	v1 := router.Group("/api/v1", handlers...)
	{
		v1.GET("/formats", api.listFormats)
		v1.POST("/info", api.getInfo)
		v1.POST("/download", api.download)
	}

	// Unversioned aliases
	legacy := router.Group("/api", handlers...)
	{
		legacy.POST("/info", api.getInfo)
		legacy.POST("/download", api.download)
	}

	return router
}
