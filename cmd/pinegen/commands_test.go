package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/pinegen/api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubRunner struct {
	succeed     bool
	description string
}

func (s *stubRunner) Run(_ context.Context, description string) models.GenerationOutcome {
	s.description = description
	return models.GenerationOutcome{
		ID:          uuid.New(),
		Description: description,
		FinalScript: "//@version=5\nindicator(\"x\")",
		Succeeded:   s.succeed,
		MaxAttempts: 1,
		Attempts: []models.Attempt{{
			Index:           1,
			ExtractedScript: "//@version=5\nindicator(\"x\")",
			Validation:      models.ValidationResult{IsValid: s.succeed, Message: "verdict"},
		}},
	}
}

type stubValidator struct {
	script string
	valid  bool
}

func (s *stubValidator) Validate(_ context.Context, script string) models.ValidationResult {
	s.script = script
	if s.valid {
		return models.ValidationResult{IsValid: true, Message: "Pine Script syntax is valid."}
	}
	return models.ValidationResult{Message: "Syntax error: oops"}
}

func run(t *testing.T, p *pipeline, stdin string, args ...string) (stdout, stderr string, gotAttempts int, err error) {
	t.Helper()
	factory := func(_ context.Context, maxAttempts int, _ *zap.Logger) (*pipeline, error) {
		gotAttempts = maxAttempts
		return p, nil
	}
	cmd := newRootCmd(factory)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err = cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), gotAttempts, err
}

func TestGenerateCommand(t *testing.T) {
	runner := &stubRunner{succeed: true}
	p := &pipeline{runner: runner, close: func() {}}

	stdout, stderr, attempts, err := run(t, p, "", "generate", "RSI", "with", "bands", "-n", "3")
	require.NoError(t, err)
	assert.Equal(t, "RSI with bands", runner.description)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, "//@version=5\nindicator(\"x\")\n", stdout)
	assert.Contains(t, stderr, "--- Attempt 1/1 ---")
}

func TestGenerateCommandJSONAndFailure(t *testing.T) {
	p := &pipeline{runner: &stubRunner{succeed: false}, close: func() {}}

	stdout, _, attempts, err := run(t, p, "", "generate", "--json", "x")
	assert.EqualError(t, err, "no valid script after 1 attempts")
	assert.Equal(t, 5, attempts)
	assert.Contains(t, stdout, `"final_script"`)
	assert.Contains(t, stdout, `"succeeded": false`)
}

func TestValidateCommand(t *testing.T) {
	v := &stubValidator{valid: true}
	p := &pipeline{validator: v, close: func() {}}

	stdout, _, _, err := run(t, p, "plot(close)", "validate", "-")
	require.NoError(t, err)
	assert.Equal(t, "plot(close)", v.script)
	assert.Equal(t, "Pine Script syntax is valid.\n", stdout)

	path := filepath.Join(t.TempDir(), "bad.pine")
	require.NoError(t, os.WriteFile(path, []byte("plot(close"), 0o600))
	v.valid = false
	stdout, _, _, err = run(t, p, "", "validate", path)
	assert.Error(t, err)
	assert.Equal(t, "plot(close", v.script)
	assert.Equal(t, "Syntax error: oops\n", stdout)
}

func TestValidateCommandMissingFile(t *testing.T) {
	p := &pipeline{validator: &stubValidator{}, close: func() {}}
	_, _, _, err := run(t, p, "", "validate", filepath.Join(t.TempDir(), "nope.pine"))
	assert.ErrorContains(t, err, "failed to read script")
}
