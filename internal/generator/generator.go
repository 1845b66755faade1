package generator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pinegen/api/internal/models"
	"github.com/pinegen/api/internal/prompt"
	"github.com/pinegen/api/internal/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/pinegen/api/internal/generator")

// Stream is a finite, non-restartable sequence of response fragments.
// Recv returns io.EOF once the model has finished.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// Model defines the interface for the generative model backend
type Model interface {
	Stream(ctx context.Context, prompt string) (Stream, error)
}

// Generator turns a description (plus optional validator feedback) into a
// candidate script.
type Generator struct {
	model   Model
	timeout time.Duration
	logger  *zap.Logger
}

// New creates a generator. A zero timeout leaves the model call bounded only
// by the caller's context.
func New(model Model, timeout time.Duration, logger *zap.Logger) *Generator {
	return &Generator{model: model, timeout: timeout, logger: logger}
}

// SentinelScript is the script body returned when the model call fails.
func SentinelScript(err error) string {
	return "// Error generating script: " + err.Error()
}

// Generate never returns an error: a failed model call yields the sentinel
// script and a populated Failure.
func (g *Generator) Generate(ctx context.Context, req models.GenerationRequest) models.Generation {
	ctx, span := tracer.Start(ctx, "generator.Generate")
	defer span.End()
	span.SetAttributes(attribute.Bool("pinegen.correction", req.HasPriorError()))

	gen := models.Generation{Prompt: prompt.Build(req.Description, req.PriorErrorMessage)}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	g.logger.Info("sending prompt to model",
		zap.Int("prompt_chars", len(gen.Prompt)),
		zap.Bool("correction", req.HasPriorError()),
	)

	start := time.Now()
	raw, err := g.complete(ctx, gen.Prompt)
	elapsed := time.Since(start)
	gen.RawOutput = raw

	if err != nil {
		telemetry.ModelCallDuration.WithLabelValues("error").Observe(elapsed.Seconds())
		span.RecordError(err)
		span.SetStatus(codes.Error, "model call failed")
		g.logger.Error("model call failed", zap.Error(err), zap.Duration("elapsed", elapsed))

		gen.Script = SentinelScript(err)
		gen.Failure = &models.GenerationFailure{Error: err.Error()}
		return gen
	}

	telemetry.ModelCallDuration.WithLabelValues("ok").Observe(elapsed.Seconds())
	gen.Script = ExtractScript(raw)

	g.logger.Info("model response received",
		zap.Int("response_chars", len(raw)),
		zap.Int("script_chars", len(gen.Script)),
		zap.Duration("elapsed", elapsed),
	)
	return gen
}

// complete drains the model stream into a single response text.
func (g *Generator) complete(ctx context.Context, p string) (string, error) {
	stream, err := g.model.Stream(ctx, p)
	if err != nil {
		return "", fmt.Errorf("model request failed: %w", err)
	}
	defer stream.Close()

	var b strings.Builder
	for {
		fragment, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return b.String(), nil
		}
		if err != nil {
			return b.String(), fmt.Errorf("model stream interrupted: %w", err)
		}
		b.WriteString(fragment)
	}
}
