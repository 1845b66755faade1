package telemetry

import (
	"context"

	"github.com/google/uuid"
	"github.com/pinegen/api/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ModelCallDuration tracks streamed model calls by result (ok, error)
	ModelCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pinegen_model_call_duration_seconds",
		Help:    "Model call duration in seconds, including stream drain",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~4m
	}, []string{"result"})

	// ValidationDuration tracks checker round trips by verdict (valid, invalid, error)
	ValidationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pinegen_validation_duration_seconds",
		Help:    "Syntax checker duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	}, []string{"verdict"})

	// AttemptsTotal counts attempts by result (valid, invalid, generation_failure)
	AttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pinegen_attempts_total",
		Help: "Total generate-then-validate attempts by result",
	}, []string{"result"})

	// GenerationsTotal counts finished generation requests by outcome
	GenerationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pinegen_generations_total",
		Help: "Total generation requests by outcome",
	}, []string{"outcome"})

	// AttemptsPerGeneration tracks how many attempts a request needed
	AttemptsPerGeneration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pinegen_attempts_per_generation",
		Help:    "Number of attempts used per generation request",
		Buckets: []float64{1, 2, 3, 4, 5},
	})

	// CheckerCacheTotal counts verdict cache lookups (hit, miss, error)
	CheckerCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pinegen_checker_cache_total",
		Help: "Checker verdict cache lookups by result",
	}, []string{"result"})
)

// MetricsObserver records orchestrator progress in Prometheus.
type MetricsObserver struct{}

// AttemptCompleted counts a finished attempt
func (MetricsObserver) AttemptCompleted(_ context.Context, _ uuid.UUID, attempt models.Attempt) {
	AttemptsTotal.WithLabelValues(AttemptResult(attempt)).Inc()
}

// GenerationCompleted counts a finished request
func (MetricsObserver) GenerationCompleted(_ context.Context, outcome models.GenerationOutcome) {
	AttemptsPerGeneration.Observe(float64(len(outcome.Attempts)))
	GenerationsTotal.WithLabelValues(OutcomeLabel(outcome)).Inc()
}

// AttemptResult is the metric/event label for an attempt.
func AttemptResult(a models.Attempt) string {
	switch {
	case a.Failure != nil:
		return "generation_failure"
	case a.Validation.IsValid:
		return "valid"
	default:
		return "invalid"
	}
}

// OutcomeLabel is the metric/event label for a finished request.
func OutcomeLabel(o models.GenerationOutcome) string {
	switch {
	case o.Succeeded:
		return "succeeded"
	case len(o.Attempts) < o.MaxAttempts:
		return "cancelled"
	default:
		return "exhausted"
	}
}
