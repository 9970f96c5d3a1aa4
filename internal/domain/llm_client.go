package domain

import "context"

// TextGenerator defines the capability to send chat messages to an LLM and
// receive a single, non-streaming completion. Generation calls are
// cost-bearing and non-idempotent; callers must never retry them.
type TextGenerator interface {
	Generate(ctx context.Context, messages []Message, maxTokens int) (*LLMResponse, error)
	Version() string
}

// LLMResponse carries the LLM output and whether the generation finished.
type LLMResponse struct {
	Text string
	Done bool
}
