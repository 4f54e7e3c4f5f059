package extract

import (
	"fmt"
	"strings"
)

// SynthesisMode selects the evidence synthesis output.
type SynthesisMode string

const (
	// ModeSummary writes one interpretive paragraph across sources.
	ModeSummary SynthesisMode = "summary"
	// ModeAnswer answers a focused clinical question.
	ModeAnswer SynthesisMode = "answer"
)

func ParseSynthesisMode(s string) (SynthesisMode, error) {
	switch m := SynthesisMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "", ModeSummary:
		return ModeSummary, nil
	case ModeAnswer:
		return ModeAnswer, nil
	default:
		return "", fmt.Errorf("unknown synthesis mode %q", s)
	}
}

// SynthesisRequest builds the completion request over packed source blocks.
func SynthesisRequest(mode SynthesisMode, question, sources string) Request {
	req := Request{
		MaxOutputTokens: 10000,
		Verbosity:       "low",
		ReasoningEffort: "medium",
	}
	switch mode {
	case ModeAnswer:
		q := strings.TrimSpace(question)
		if q == "" {
			q = "(none provided)"
		}
		req.Instructions = answerInstructions
		req.Input = fmt.Sprintf("Question: %s\n\nSOURCES:\n%s\n\nNow write the answer.", q, sources)
	default:
		req.Instructions = summaryInstructions
		req.Input = fmt.Sprintf("SOURCES:\n%s\n\nNow write the single-paragraph synthesis.", sources)
	}
	return req
}
