package llm

// GenerateResponse is the provider-agnostic result of a generation call.
type GenerateResponse struct {
	// Text is the concatenated text output of the model.
	Text string `json:"text"`

	// Model that produced the response.
	Model string `json:"model"`

	// StopReason as reported by the provider (e.g. "end_turn", "stop").
	StopReason string `json:"stop_reason,omitempty"`

	// Usage is nil when the provider does not report token counts.
	Usage *Usage `json:"usage,omitempty"`
}

// Usage contains token counts.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

// ErrorResponse is the JSON error body returned by the API server.
type ErrorResponse struct {
	Error string `json:"error"`
}
