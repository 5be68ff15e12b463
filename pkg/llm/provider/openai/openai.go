// Package openai implements llm.Generator on the OpenAI Chat Completions API.
package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/papercomputeco/tutor/pkg/llm"
)

// Generator calls the OpenAI Chat Completions API through the official SDK.
type Generator struct {
	client openai.Client
	model  string
}

// New creates an OpenAI generator. baseURL may be empty.
func New(apiKey, model, baseURL string) *Generator {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &Generator{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

func (g *Generator) Name() string {
	return "openai"
}

func (g *Generator) Generate(ctx context.Context, req *llm.GenerateRequest) (*llm.GenerateResponse, error) {
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(g.model),
		Messages: buildMessages(req),
	}

	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	completion, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, errors.New("openai chat completion returned no choices")
	}

	choice := completion.Choices[0]
	return &llm.GenerateResponse{
		Text:       choice.Message.Content,
		Model:      completion.Model,
		StopReason: choice.FinishReason,
		Usage: &llm.Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
		},
	}, nil
}

func buildMessages(req *llm.GenerateRequest) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.System != "" {
		result = append(result, openai.SystemMessage(req.System))
	}

	for _, m := range req.Messages {
		switch m.Role {
		case llm.RoleUser:
			result = append(result, openai.UserMessage(m.Content))
		case llm.RoleAssistant:
			result = append(result, openai.AssistantMessage(m.Content))
		}
	}
	return result
}
