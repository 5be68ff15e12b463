// Package ollama implements llm.Generator on a local Ollama server.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/papercomputeco/tutor/pkg/llm"
)

const defaultBaseURL = "http://localhost:11434"

// Generator calls the Ollama chat endpoint with streaming disabled.
type Generator struct {
	client *api.Client
	model  string
}

// New creates an Ollama generator. An empty baseURL targets localhost.
func New(baseURL, model string) (*Generator, error) {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing ollama url %q: %w", baseURL, err)
	}

	httpClient := &http.Client{
		// local inference can be slow; callers bound the turn with a context
		Timeout: 5 * time.Minute,
	}

	return &Generator{
		client: api.NewClient(parsed, httpClient),
		model:  model,
	}, nil
}

func (g *Generator) Name() string {
	return "ollama"
}

func (g *Generator) Generate(ctx context.Context, req *llm.GenerateRequest) (*llm.GenerateResponse, error) {
	stream := false
	chatReq := &api.ChatRequest{
		Model:    g.model,
		Messages: buildMessages(req),
		Stream:   &stream,
	}

	if req.Temperature > 0 || req.MaxTokens > 0 {
		chatReq.Options = make(map[string]any)
		if req.Temperature > 0 {
			chatReq.Options["temperature"] = req.Temperature
		}
		if req.MaxTokens > 0 {
			chatReq.Options["num_predict"] = req.MaxTokens
		}
	}

	var (
		text  strings.Builder
		final api.ChatResponse
	)
	err := g.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		text.WriteString(resp.Message.Content)
		if resp.Done {
			final = resp
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama chat: %w", err)
	}

	return &llm.GenerateResponse{
		Text:       text.String(),
		Model:      g.model,
		StopReason: final.DoneReason,
		Usage: &llm.Usage{
			PromptTokens:     final.PromptEvalCount,
			CompletionTokens: final.EvalCount,
			TotalTokens:      final.PromptEvalCount + final.EvalCount,
		},
	}, nil
}

func buildMessages(req *llm.GenerateRequest) []api.Message {
	result := make([]api.Message, 0, len(req.Messages)+1)
	if req.System != "" {
		result = append(result, api.Message{Role: llm.RoleSystem, Content: req.System})
	}
	for _, m := range llm.Conversational(req.Messages) {
		result = append(result, api.Message{Role: m.Role, Content: m.Content})
	}
	return result
}
