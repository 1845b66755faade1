package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenerationRequest is the input to a single generation call. An empty
// PriorErrorMessage means this is the first attempt.
type GenerationRequest struct {
	Description       string `json:"description"`
	PriorErrorMessage string `json:"prior_error_message,omitempty"`
}

// HasPriorError reports whether the request carries validator feedback
func (r GenerationRequest) HasPriorError() bool {
	return r.PriorErrorMessage != ""
}

// ValidationResult is the normalized verdict of the syntax checker
type ValidationResult struct {
	IsValid bool   `json:"is_valid"`
	Message string `json:"message"`
}

// GenerationFailure records that the model call itself failed, as opposed to
// the model producing a script that does not compile.
type GenerationFailure struct {
	Error string `json:"error"`
}

// Generation is what the script generator hands back for one attempt.
type Generation struct {
	Prompt    string
	RawOutput string
	Script    string
	Failure   *GenerationFailure
}

// Attempt is one generate-then-validate cycle
type Attempt struct {
	Index           int                `json:"index"`
	Prompt          string             `json:"prompt"`
	RawModelOutput  string             `json:"raw_model_output"`
	ExtractedScript string             `json:"extracted_script"`
	Validation      ValidationResult   `json:"validation"`
	Failure         *GenerationFailure `json:"generation_failure,omitempty"`
	Duration        time.Duration      `json:"duration"`
}

// GenerationOutcome is the terminal artifact of the retry loop
type GenerationOutcome struct {
	ID          uuid.UUID `json:"id"`
	Description string    `json:"description"`
	FinalScript string    `json:"final_script"`
	Attempts    []Attempt `json:"attempts"`
	Succeeded   bool      `json:"succeeded"`
	MaxAttempts int       `json:"max_attempts"`
}

// ModelUnreachable reports whether every attempt failed at the model call.
func (o GenerationOutcome) ModelUnreachable() bool {
	if len(o.Attempts) == 0 {
		return false
	}
	for _, a := range o.Attempts {
		if a.Failure == nil {
			return false
		}
	}
	return true
}

// Log renders the human-readable attempt log returned to HTTP callers.
func (o GenerationOutcome) Log() []string {
	var lines []string
	for _, a := range o.Attempts {
		prefix := fmt.Sprintf("Attempt %d/%d", a.Index, o.MaxAttempts)
		lines = append(lines,
			fmt.Sprintf("--- %s ---", prefix),
			fmt.Sprintf("[%s] Generating Pine Script...", prefix),
		)
		if a.Failure != nil {
			lines = append(lines, fmt.Sprintf("[%s] Model request failed: %s", prefix, a.Failure.Error))
		} else {
			lines = append(lines, fmt.Sprintf("[%s] Validating Pine Script...", prefix))
		}

		if a.Validation.IsValid {
			lines = append(lines, fmt.Sprintf("[%s] Validation successful: %s", prefix, a.Validation.Message))
			continue
		}
		lines = append(lines, fmt.Sprintf("[%s] Validation failed: %s", prefix, a.Validation.Message))
		if a.Index < o.MaxAttempts && a.Index < len(o.Attempts) {
			lines = append(lines, fmt.Sprintf("[%s] Retrying with feedback...", prefix))
		}
	}
	return lines
}
