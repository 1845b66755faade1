package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pinegen/api/internal/app"
	"github.com/pinegen/api/internal/config"
	"github.com/pinegen/api/internal/handlers"
	"github.com/pinegen/api/internal/middleware"
	"github.com/pinegen/api/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const serviceName = "pinegen-api"

func main() {
	ctx := context.Background()

	// Initialize logger with stdout sync
	zapConfig := zap.NewProductionConfig()
	zapConfig.OutputPaths = []string{"stdout"}
	zapConfig.ErrorOutputPaths = []string{"stderr"}
	logger, err := zapConfig.Build()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	cfg := config.Load()

	logger.Info("pinegen API starting...",
		zap.String("version", handlers.Version),
		zap.String("environment", cfg.Environment),
		zap.String("model", cfg.ModelName),
	)

	if cfg.OTLPEndpoint != "" {
		shutdownTelemetry, err := telemetry.InitTracer(ctx, serviceName, cfg.OTLPEndpoint)
		if err != nil {
			// Collector may be down; keep serving without traces
			logger.Error("failed to initialize telemetry", zap.Error(err))
		} else {
			defer func() {
				if err := shutdownTelemetry(ctx); err != nil {
					logger.Error("failed to shutdown telemetry", zap.Error(err))
				}
			}()
		}
	}

	pipeline, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize pipeline", zap.Error(err))
	}
	defer pipeline.Close()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	breaker := middleware.NewCircuitBreaker(5, 2, time.Minute)
	breaker.OnStateChange = func(from, to middleware.CircuitState) {
		logger.Warn("model circuit state changed",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}

	router := newRouter(routerDeps{
		logger:     logger,
		runner:     pipeline.Orchestrator,
		validator:  pipeline.Validator,
		checks:     pipeline.HealthChecks(),
		breaker:    breaker,
		limiter:    middleware.NewRateLimiter(cfg.RateLimit, cfg.RateLimit),
		reqTimeout: cfg.RequestTimeout,
	})

	// Generation can legitimately run for minutes across five attempts
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}

type routerDeps struct {
	logger     *zap.Logger
	runner     handlers.Runner
	validator  handlers.ScriptValidator
	checks     map[string]handlers.HealthCheck
	breaker    *middleware.CircuitBreaker
	limiter    *middleware.RateLimiter
	reqTimeout time.Duration
}

func newRouter(d routerDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		d.logger.Error("panic recovered", zap.Any("panic", recovered))
		middleware.InternalError(c, "internal server error")
	}))
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(d.logger))
	router.Use(otelgin.Middleware(serviceName))

	healthHandler := handlers.NewHealthHandler(d.checks)
	router.GET("/health", healthHandler.Health)
	router.GET("/health/deep", healthHandler.DeepHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	generationHandler := handlers.NewGenerationHandler(d.runner, d.breaker, d.reqTimeout, d.logger)
	validationHandler := handlers.NewValidationHandler(d.validator, d.logger)

	// Generation routes - rate limit + circuit breaker on the model
	generation := router.Group("")
	generation.Use(middleware.RateLimitMiddleware(d.limiter))
	generation.Use(middleware.CircuitBreakerMiddleware(d.breaker))
	{
		generation.POST("/generate", generationHandler.Generate)
	}

	router.POST("/validate", middleware.RateLimitMiddleware(d.limiter), validationHandler.Validate)

	return router
}
