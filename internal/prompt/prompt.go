// Package prompt builds the model prompts for Pine Script generation.
package prompt

import "strings"

const preamble = "You are an expert TradingView Pine Script developer.\n"

// InitialInstruction appears only in first-attempt prompts.
const InitialInstruction = "Write a complete, syntactically correct Pine Script version 5 script that implements the request below. It must be ready to paste into the TradingView editor."

// CorrectionInstruction appears only in prompts that carry validator feedback.
const CorrectionInstruction = "Your previous script for the request below was rejected by the Pine Script validator. Rewrite it so that the reported error is fixed and the result is a complete, syntactically correct Pine Script version 5 script."

const outputRules = "Reply with the Pine Script code only. Do not add explanations or any text before or after the code, and do not wrap it in anything other than the code itself."

// Build returns the prompt for a generation attempt. An empty priorError
// produces the initial-generation prompt.
func Build(description, priorError string) string {
	var b strings.Builder
	b.WriteString(preamble)

	if priorError == "" {
		b.WriteString(InitialInstruction)
		b.WriteString("\n")
		b.WriteString(outputRules)
		b.WriteString("\n\nRequest: \"")
		b.WriteString(description)
		b.WriteString("\"\n")
		return b.String()
	}

	b.WriteString(CorrectionInstruction)
	b.WriteString("\n")
	b.WriteString(outputRules)
	b.WriteString("\n\nOriginal request: \"")
	b.WriteString(description)
	b.WriteString("\"\nValidator error: \"")
	b.WriteString(priorError)
	b.WriteString("\"\n")
	return b.String()
}
