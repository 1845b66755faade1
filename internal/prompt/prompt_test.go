package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildInitial(t *testing.T) {
	descriptions := []string{
		"RSI strategy",
		"A simple strategy that goes long when the RSI is below 30 and sells when it's above 70.",
		"EMA crossover with \"quotes\" and\nnewlines",
		"",
	}

	for _, d := range descriptions {
		p := Build(d, "")
		assert.Contains(t, p, d)
		assert.Contains(t, p, InitialInstruction)
		assert.NotContains(t, p, CorrectionInstruction)
	}
}

func TestBuildCorrection(t *testing.T) {
	cases := []struct {
		description string
		priorError  string
	}{
		{"RSI strategy", "Syntax error: undefined variable rsi"},
		{"An indicator with an EMA crossover.", "Syntax error: The function `ta.crossover` should have 2 arguments, but got 1."},
		{"MACD", "Validation failed: bad version"},
	}

	for _, tc := range cases {
		p := Build(tc.description, tc.priorError)
		assert.Contains(t, p, tc.description)
		assert.Contains(t, p, tc.priorError)
		assert.Contains(t, p, CorrectionInstruction)
		assert.NotContains(t, p, InitialInstruction)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	assert.Equal(t, Build("MACD histogram", ""), Build("MACD histogram", ""))
	assert.Equal(t, Build("MACD histogram", "boom"), Build("MACD histogram", "boom"))
	assert.NotEqual(t, Build("MACD histogram", ""), Build("MACD histogram", "boom"))
}
