// Package provider constructs llm.Generator implementations backed by the
// vendor SDKs. Each sub-package wraps exactly one SDK.
package provider

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/papercomputeco/tutor/pkg/credentials"
	"github.com/papercomputeco/tutor/pkg/llm"
	"github.com/papercomputeco/tutor/pkg/llm/provider/anthropic"
	"github.com/papercomputeco/tutor/pkg/llm/provider/gemini"
	"github.com/papercomputeco/tutor/pkg/llm/provider/ollama"
	"github.com/papercomputeco/tutor/pkg/llm/provider/openai"
)

// Config holds configuration for creating a Generator.
type Config struct {
	Provider string               // "anthropic", "openai", "gemini" or "ollama"
	Model    string               // empty selects the provider default
	APIKey   string               // explicit API key (highest priority)
	BaseURL  string               // override base URL
	CredMgr  *credentials.Manager // credentials from "tutor auth"
	Logger   *slog.Logger
}

// New creates a Generator for the configured provider.
// Resolution order for the API key:
//  1. Explicit APIKey in config
//  2. credentials.Manager (from tutor auth)
//  3. Environment variables (ANTHROPIC_API_KEY, OPENAI_API_KEY, GEMINI_API_KEY)
//  4. Fall back to Ollama, which needs no key
func New(cfg Config) (llm.Generator, error) {
	name := strings.ToLower(cfg.Provider)
	if !IsSupported(name) {
		return nil, fmt.Errorf("unknown provider type: %q (supported: %v)", cfg.Provider, SupportedProviders())
	}

	apiKey := cfg.APIKey
	if apiKey == "" && name != Ollama {
		apiKey = resolveAPIKey(cfg.CredMgr, name)
	}

	if apiKey == "" && name != Ollama {
		if cfg.Logger != nil {
			cfg.Logger.Warn("no API key found, falling back to ollama", "provider", name)
		}
		name = Ollama
		cfg.Model = ""
		cfg.BaseURL = ""
	}

	switch name {
	case Anthropic:
		return anthropic.New(apiKey, modelOrDefault(cfg.Model, name), cfg.BaseURL), nil
	case OpenAI:
		return openai.New(apiKey, modelOrDefault(cfg.Model, name), cfg.BaseURL), nil
	case Gemini:
		return gemini.New(apiKey, modelOrDefault(cfg.Model, name)), nil
	default:
		return ollama.New(cfg.BaseURL, modelOrDefault(cfg.Model, name))
	}
}

func resolveAPIKey(mgr *credentials.Manager, name string) string {
	if mgr != nil {
		if key, err := mgr.GetKey(name); err == nil && key != "" {
			return key
		}
	}

	if env := credentials.EnvVarForProvider(name); env != "" {
		return os.Getenv(env)
	}

	return ""
}

func modelOrDefault(model, name string) string {
	if model != "" {
		return model
	}
	return DefaultModel(name)
}
