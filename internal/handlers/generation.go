package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pinegen/api/internal/middleware"
	"github.com/pinegen/api/internal/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/pinegen/api/internal/handlers")

// Runner runs the generate -> validate -> retry loop
type Runner interface {
	Run(ctx context.Context, description string) models.GenerationOutcome
}

// GenerationHandler handles script generation endpoints
type GenerationHandler struct {
	runner  Runner
	breaker *middleware.CircuitBreaker
	timeout time.Duration
	logger  *zap.Logger
}

// NewGenerationHandler creates a new generation handler. breaker may be nil.
func NewGenerationHandler(runner Runner, breaker *middleware.CircuitBreaker, timeout time.Duration, logger *zap.Logger) *GenerationHandler {
	return &GenerationHandler{runner: runner, breaker: breaker, timeout: timeout, logger: logger}
}

// GenerateRequest is accepted as a form post or as JSON
type GenerateRequest struct {
	Description string `form:"description" json:"description" binding:"required"`
}

// GenerateResponse is the response for a finished generation
type GenerateResponse struct {
	GenerationID uuid.UUID        `json:"generation_id"`
	Script       string           `json:"script"`
	Succeeded    bool             `json:"succeeded"`
	Attempts     []models.Attempt `json:"attempts"`
	Logs         []string         `json:"logs"`
}

// Generate runs the retry loop for a description. Exhaustion is not an
// error: the last script and the full log are returned with 200.
func (h *GenerationHandler) Generate(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "Generate")
	defer span.End()

	var req GenerateRequest
	if err := c.ShouldBind(&req); err != nil {
		middleware.BadRequest(c, "description is required", err.Error())
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		middleware.BadRequest(c, "description is required", "description is blank")
		return
	}

	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	h.logger.Info("received generation request",
		zap.String("request_id", middleware.GetRequestID(c)),
		zap.String("trace_id", trace.SpanFromContext(ctx).SpanContext().TraceID().String()),
		zap.Int("description_chars", len(req.Description)),
	)

	outcome := h.runner.Run(ctx, req.Description)

	// A request abandoned by the client or cut off by the deadline says
	// nothing about the model's health.
	if err := ctx.Err(); err != nil {
		h.logger.Warn("generation request ended early",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Int("attempts", len(outcome.Attempts)),
			zap.Error(err),
		)
	} else if h.breaker != nil {
		if outcome.ModelUnreachable() {
			h.breaker.RecordFailure()
		} else {
			h.breaker.RecordSuccess()
		}
	}

	c.JSON(http.StatusOK, GenerateResponse{
		GenerationID: outcome.ID,
		Script:       outcome.FinalScript,
		Succeeded:    outcome.Succeeded,
		Attempts:     outcome.Attempts,
		Logs:         outcome.Log(),
	})
}
