package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pinegen/api/internal/middleware"
	"github.com/pinegen/api/internal/models"
	"go.uber.org/zap"
)

// ScriptValidator checks a single script
type ScriptValidator interface {
	Validate(ctx context.Context, script string) models.ValidationResult
}

// ValidationHandler exposes the syntax validator on its own
type ValidationHandler struct {
	validator ScriptValidator
	logger    *zap.Logger
}

// NewValidationHandler creates a new validation handler
func NewValidationHandler(validator ScriptValidator, logger *zap.Logger) *ValidationHandler {
	return &ValidationHandler{validator: validator, logger: logger}
}

// ValidateRequest is accepted as a form post or as JSON
type ValidateRequest struct {
	Script string `form:"script" json:"script" binding:"required"`
}

// Validate checks a script and returns the verdict
func (h *ValidationHandler) Validate(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "Validate")
	defer span.End()

	var req ValidateRequest
	if err := c.ShouldBind(&req); err != nil {
		middleware.BadRequest(c, "script is required", err.Error())
		return
	}

	result := h.validator.Validate(ctx, req.Script)
	h.logger.Info("validation request",
		zap.String("request_id", middleware.GetRequestID(c)),
		zap.Bool("valid", result.IsValid),
	)
	c.JSON(http.StatusOK, result)
}
