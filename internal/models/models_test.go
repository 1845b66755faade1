package models

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func invalidAttempt(i int) Attempt {
	return Attempt{Index: i, Validation: ValidationResult{Message: fmt.Sprintf("Syntax error: e%d", i)}}
}

func validAttempt(i int) Attempt {
	return Attempt{Index: i, Validation: ValidationResult{IsValid: true, Message: "Pine Script syntax is valid."}}
}

func failedAttempt(i int) Attempt {
	return Attempt{
		Index:      i,
		Failure:    &GenerationFailure{Error: "model request failed: connection refused"},
		Validation: ValidationResult{Message: "Generation failed: model request failed: connection refused"},
	}
}

func TestOutcomeLog(t *testing.T) {
	tests := []struct {
		name    string
		outcome GenerationOutcome
		want    []string
	}{
		{
			name:    "success at attempt 2",
			outcome: GenerationOutcome{MaxAttempts: 5, Attempts: []Attempt{invalidAttempt(1), validAttempt(2)}},
			want: []string{
				"--- Attempt 1/5 ---",
				"[Attempt 1/5] Generating Pine Script...",
				"[Attempt 1/5] Validating Pine Script...",
				"[Attempt 1/5] Validation failed: Syntax error: e1",
				"[Attempt 1/5] Retrying with feedback...",
				"--- Attempt 2/5 ---",
				"[Attempt 2/5] Generating Pine Script...",
				"[Attempt 2/5] Validating Pine Script...",
				"[Attempt 2/5] Validation successful: Pine Script syntax is valid.",
			},
		},
		{
			name:    "generation failure then stop",
			outcome: GenerationOutcome{MaxAttempts: 2, Attempts: []Attempt{failedAttempt(1), invalidAttempt(2)}},
			want: []string{
				"--- Attempt 1/2 ---",
				"[Attempt 1/2] Generating Pine Script...",
				"[Attempt 1/2] Model request failed: model request failed: connection refused",
				"[Attempt 1/2] Validation failed: Generation failed: model request failed: connection refused",
				"[Attempt 1/2] Retrying with feedback...",
				"--- Attempt 2/2 ---",
				"[Attempt 2/2] Generating Pine Script...",
				"[Attempt 2/2] Validating Pine Script...",
				"[Attempt 2/2] Validation failed: Syntax error: e2",
			},
		},
		{
			name:    "cancelled after attempt 1 has no retry line",
			outcome: GenerationOutcome{MaxAttempts: 5, Attempts: []Attempt{invalidAttempt(1)}},
			want: []string{
				"--- Attempt 1/5 ---",
				"[Attempt 1/5] Generating Pine Script...",
				"[Attempt 1/5] Validating Pine Script...",
				"[Attempt 1/5] Validation failed: Syntax error: e1",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.outcome.Log())
		})
	}
}

func TestOutcomeLogExhausted(t *testing.T) {
	var attempts []Attempt
	for i := 1; i <= 5; i++ {
		attempts = append(attempts, invalidAttempt(i))
	}
	lines := GenerationOutcome{MaxAttempts: 5, Attempts: attempts}.Log()

	var retries []string
	for _, l := range lines {
		if l == fmt.Sprintf("[Attempt %d/5] Retrying with feedback...", len(retries)+1) {
			retries = append(retries, l)
		}
	}
	assert.Len(t, retries, 4)
	assert.Len(t, lines, 5*4+4)
	assert.Equal(t, "[Attempt 5/5] Validation failed: Syntax error: e5", lines[len(lines)-1])
}

func TestModelUnreachable(t *testing.T) {
	tests := []struct {
		name     string
		attempts []Attempt
		want     bool
	}{
		{name: "no attempts", want: false},
		{name: "all failed", attempts: []Attempt{failedAttempt(1), failedAttempt(2)}, want: true},
		{name: "mixed", attempts: []Attempt{failedAttempt(1), invalidAttempt(2)}, want: false},
		{name: "none failed", attempts: []Attempt{invalidAttempt(1), validAttempt(2)}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GenerationOutcome{MaxAttempts: 5, Attempts: tt.attempts}.ModelUnreachable())
		})
	}
}
