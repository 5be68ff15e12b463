package llm

import "context"

// GenerateRequest is a provider-agnostic, non-streaming generation request.
type GenerateRequest struct {
	// System is the system prompt. Empty means no system instruction.
	System string `json:"system,omitempty"`

	// Messages in chronological order.
	Messages []Message `json:"messages"`

	// MaxTokens caps the completion. Zero uses the provider default.
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature for sampling. Zero uses the provider default.
	Temperature float64 `json:"temperature,omitempty"`
}

// Generator is the text-generation collaborator. Implementations return
// the model's free-form text; callers are responsible for interpreting it.
type Generator interface {
	// Name returns the canonical provider name (e.g. "anthropic", "ollama").
	Name() string

	// Generate performs one generation call. Transport and API failures are
	// returned as errors; no retries are attempted.
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)
}
