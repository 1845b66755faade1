package verifier

import (
	"context"
	"time"

	"github.com/pinegen/api/internal/models"
	"github.com/pinegen/api/internal/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/pinegen/api/internal/verifier")

// Verdict messages
const (
	MsgValid          = "Pine Script syntax is valid."
	MsgUnknownFailure = "Validation failed with an unknown error."
	msgUnknownError   = "Unknown error"
)

// Validator normalizes checker responses into a pass/fail verdict.
type Validator struct {
	checker Checker
	timeout time.Duration
	logger  *zap.Logger
}

// NewValidator creates a validator around checker
func NewValidator(checker Checker, timeout time.Duration, logger *zap.Logger) *Validator {
	return &Validator{checker: checker, timeout: timeout, logger: logger}
}

// Validate never returns an error; checker failures become invalid results.
func (v *Validator) Validate(ctx context.Context, script string) models.ValidationResult {
	ctx, span := tracer.Start(ctx, "verifier.Validate")
	defer span.End()

	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := v.checker.Check(ctx, script)
	elapsed := time.Since(start)

	if err != nil {
		telemetry.ValidationDuration.WithLabelValues("error").Observe(elapsed.Seconds())
		span.RecordError(err)
		v.logger.Warn("checker call failed", zap.Error(err), zap.Duration("elapsed", elapsed))
		return models.ValidationResult{
			IsValid: false,
			Message: "An unexpected error occurred during validation: " + err.Error(),
		}
	}

	verdict := Interpret(res)
	label := "invalid"
	if verdict.IsValid {
		label = "valid"
	}
	telemetry.ValidationDuration.WithLabelValues(label).Observe(elapsed.Seconds())
	span.SetAttributes(attribute.Bool("pinegen.valid", verdict.IsValid))

	v.logger.Info("script validated",
		zap.Bool("valid", verdict.IsValid),
		zap.String("message", verdict.Message),
		zap.Duration("elapsed", elapsed),
	)
	return verdict
}

// Interpret maps a checker response onto a ValidationResult. A top-level
// reason wins over compilation errors, which win over the success flag.
func Interpret(res *CheckResult) models.ValidationResult {
	if res == nil {
		return models.ValidationResult{Message: MsgUnknownFailure}
	}

	if !res.Success && res.Reason != nil {
		return models.ValidationResult{Message: "Validation failed: " + *res.Reason}
	}

	if res.Result != nil && len(res.Result.Errors) > 0 {
		msg := res.Result.Errors[0].Message
		if msg == "" {
			msg = msgUnknownError
		}
		return models.ValidationResult{Message: "Syntax error: " + msg}
	}

	if res.Success {
		return models.ValidationResult{IsValid: true, Message: MsgValid}
	}
	return models.ValidationResult{Message: MsgUnknownFailure}
}
