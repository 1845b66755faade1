// Package orchestration runs the generate -> validate -> retry loop. The
// validator's message from one attempt becomes the prior error of the next.
// When the model call itself fails the checker is not consulted; the attempt
// is invalid with the message "Generation failed: <err>", which stands in
// for the checker's message as feedback.
package orchestration

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pinegen/api/internal/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// DefaultMaxAttempts is the retry budget per generation request.
const DefaultMaxAttempts = 5

var tracer = otel.Tracer("github.com/pinegen/api/internal/orchestration")

// Generator produces a candidate script for a request
type Generator interface {
	Generate(ctx context.Context, req models.GenerationRequest) models.Generation
}

// Validator checks a candidate script
type Validator interface {
	Validate(ctx context.Context, script string) models.ValidationResult
}

// Observer is notified as the loop progresses. Implementations must not
// block for long; they run inline with the request.
type Observer interface {
	AttemptCompleted(ctx context.Context, generationID uuid.UUID, attempt models.Attempt)
	GenerationCompleted(ctx context.Context, outcome models.GenerationOutcome)
}

// Orchestrator drives the generate -> validate -> retry loop. It keeps no
// per-request state and is safe for concurrent use.
type Orchestrator struct {
	generator   Generator
	validator   Validator
	maxAttempts int
	observers   []Observer
	logger      *zap.Logger
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithMaxAttempts overrides DefaultMaxAttempts. Values below 1 are ignored.
func WithMaxAttempts(n int) Option {
	return func(o *Orchestrator) {
		if n >= 1 {
			o.maxAttempts = n
		}
	}
}

// WithObservers registers progress observers
func WithObservers(observers ...Observer) Option {
	return func(o *Orchestrator) {
		o.observers = append(o.observers, observers...)
	}
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(generator Generator, validator Validator, logger *zap.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		generator:   generator,
		validator:   validator,
		maxAttempts: DefaultMaxAttempts,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// MaxAttempts returns the configured retry budget
func (o *Orchestrator) MaxAttempts() int {
	return o.maxAttempts
}

// Run executes attempts until one validates or the budget is spent. It always
// returns an outcome; an exhausted outcome carries the last invalid script.
// If ctx is cancelled, the loop stops after the attempt in flight.
func (o *Orchestrator) Run(ctx context.Context, description string) models.GenerationOutcome {
	ctx, span := tracer.Start(ctx, "orchestration.Run")
	defer span.End()

	outcome := models.GenerationOutcome{
		ID:          uuid.New(),
		Description: description,
		MaxAttempts: o.maxAttempts,
	}
	logger := o.logger.With(zap.String("generation_id", outcome.ID.String()))
	span.SetAttributes(attribute.String("pinegen.generation_id", outcome.ID.String()))

	priorError := ""
	for i := 1; i <= o.maxAttempts; i++ {
		attempt := o.attempt(ctx, logger, i, description, priorError)

		outcome.Attempts = append(outcome.Attempts, attempt)
		outcome.FinalScript = attempt.ExtractedScript
		for _, obs := range o.observers {
			obs.AttemptCompleted(ctx, outcome.ID, attempt)
		}

		if attempt.Validation.IsValid {
			outcome.Succeeded = true
			break
		}
		if i == o.maxAttempts {
			break
		}
		if err := ctx.Err(); err != nil {
			logger.Warn("generation abandoned", zap.Int("attempt", i), zap.Error(err))
			break
		}

		priorError = attempt.Validation.Message
		logger.Info("retrying with feedback", zap.Int("next_attempt", i+1))
	}

	span.SetAttributes(
		attribute.Bool("pinegen.succeeded", outcome.Succeeded),
		attribute.Int("pinegen.attempts", len(outcome.Attempts)),
	)
	logger.Info("generation finished",
		zap.Bool("succeeded", outcome.Succeeded),
		zap.Int("attempts", len(outcome.Attempts)),
	)

	for _, obs := range o.observers {
		obs.GenerationCompleted(ctx, outcome)
	}
	return outcome
}

func (o *Orchestrator) attempt(ctx context.Context, logger *zap.Logger, index int, description, priorError string) models.Attempt {
	ctx, span := tracer.Start(ctx, "orchestration.Attempt")
	defer span.End()
	span.SetAttributes(attribute.Int("pinegen.attempt", index))

	logger = logger.With(zap.Int("attempt", index), zap.Int("max_attempts", o.maxAttempts))
	start := time.Now()

	logger.Info("generating script")
	gen := o.generator.Generate(ctx, models.GenerationRequest{
		Description:       description,
		PriorErrorMessage: priorError,
	})

	var result models.ValidationResult
	if gen.Failure != nil {
		// The sentinel script would fail validation anyway; skip the checker.
		result = models.ValidationResult{Message: "Generation failed: " + gen.Failure.Error}
	} else {
		logger.Info("validating script")
		result = o.validator.Validate(ctx, gen.Script)
	}

	if result.IsValid {
		logger.Info("validation successful", zap.String("message", result.Message))
	} else {
		logger.Warn("validation failed", zap.String("message", result.Message))
	}
	span.SetAttributes(attribute.Bool("pinegen.valid", result.IsValid))

	return models.Attempt{
		Index:           index,
		Prompt:          gen.Prompt,
		RawModelOutput:  gen.RawOutput,
		ExtractedScript: gen.Script,
		Validation:      result,
		Failure:         gen.Failure,
		Duration:        time.Since(start),
	}
}
