package provider

import "slices"

// Supported provider type constants
const (
	Anthropic = "anthropic"
	OpenAI    = "openai"
	Gemini    = "gemini"
	Ollama    = "ollama"
)

// SupportedProviders returns the list of all supported provider type names.
func SupportedProviders() []string {
	return []string{Anthropic, OpenAI, Gemini, Ollama}
}

// IsSupported reports whether name is a known provider type.
func IsSupported(name string) bool {
	return slices.Contains(SupportedProviders(), name)
}

// DefaultModel returns the model used when none is configured.
func DefaultModel(name string) string {
	switch name {
	case Anthropic:
		return "claude-haiku-4-5-20251001"
	case OpenAI:
		return "gpt-4o-mini"
	case Gemini:
		return "gemini-2.0-flash"
	default:
		return "llama3.2"
	}
}
