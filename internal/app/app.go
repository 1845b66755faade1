// Package app assembles the generation pipeline from configuration. Both the
// HTTP server and the CLI build on it.
package app

import (
	"context"
	"errors"
	"net/http"

	"github.com/nats-io/nats.go"
	"github.com/pinegen/api/internal/cache"
	"github.com/pinegen/api/internal/config"
	"github.com/pinegen/api/internal/eventbus"
	"github.com/pinegen/api/internal/generator"
	"github.com/pinegen/api/internal/handlers"
	"github.com/pinegen/api/internal/orchestration"
	"github.com/pinegen/api/internal/telemetry"
	"github.com/pinegen/api/internal/verifier"
	"go.uber.org/zap"
)

// App holds the wired pipeline and the optional infrastructure behind it
type App struct {
	Orchestrator *orchestration.Orchestrator
	Validator    *verifier.Validator
	Checker      *verifier.HTTPChecker

	redis  *cache.Redis
	nats   *nats.Conn
	logger *zap.Logger
}

// New wires the model client, checker, optional Redis verdict cache and
// optional NATS publisher. Redis and NATS failures are logged and the
// pipeline runs without them. opts are applied after the default observers.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...orchestration.Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{logger: logger}

	model := generator.NewOpenAIModel(cfg.ModelBaseURL, cfg.APIKey, cfg.ModelName,
		generator.DefaultDecodingParams(), &http.Client{})
	gen := generator.New(model, cfg.ModelTimeout, logger)

	a.Checker = verifier.NewHTTPChecker(cfg.CheckerURL, nil)
	var checker verifier.Checker = a.Checker

	if cfg.RedisURL != "" {
		rdb, err := cache.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("failed to connect to redis, verdict cache disabled", zap.Error(err))
		} else {
			logger.Info("connected to redis")
			a.redis = rdb
			checker = verifier.NewCachingChecker(checker, rdb, cfg.CacheTTL, logger)
		}
	}
	a.Validator = verifier.NewValidator(checker, cfg.ValidatorTimeout, logger)

	observers := []orchestration.Observer{telemetry.MetricsObserver{}}
	if cfg.NATSURL != "" {
		nc, err := eventbus.Connect(cfg.NATSURL)
		if err != nil {
			logger.Error("failed to connect to NATS, progress events disabled", zap.Error(err))
		} else {
			logger.Info("connected to NATS")
			a.nats = nc
			observers = append(observers, eventbus.NewPublisher(nc, logger))
		}
	}

	opts = append([]orchestration.Option{orchestration.WithObservers(observers...)}, opts...)
	a.Orchestrator = orchestration.NewOrchestrator(gen, a.Validator, logger, opts...)
	return a, nil
}

// HealthChecks returns the dependency probes for the deep health endpoint.
// Unconfigured dependencies map to nil.
func (a *App) HealthChecks() map[string]handlers.HealthCheck {
	checks := map[string]handlers.HealthCheck{
		"checker": a.Checker.Ping,
		"redis":   nil,
		"nats":    nil,
	}
	if a.redis != nil {
		checks["redis"] = a.redis.Ping
	}
	if a.nats != nil {
		nc := a.nats
		checks["nats"] = func(context.Context) error {
			if !nc.IsConnected() {
				return errors.New("nats " + nc.Status().String())
			}
			return nil
		}
	}
	return checks
}

// Close drains NATS and closes Redis
func (a *App) Close() {
	if a.nats != nil {
		if err := a.nats.Drain(); err != nil {
			a.logger.Error("failed to drain NATS", zap.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("failed to close redis", zap.Error(err))
		}
	}
}
