// Package gemini implements llm.Generator on the Google Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/papercomputeco/tutor/pkg/llm"
)

// Generator calls Gemini through the generative-ai-go SDK. A client is
// created per call so the generator holds no open connections.
type Generator struct {
	apiKey string
	model  string
}

// New creates a Gemini generator.
func New(apiKey, model string) *Generator {
	return &Generator{
		apiKey: apiKey,
		model:  model,
	}
}

func (g *Generator) Name() string {
	return "gemini"
}

func (g *Generator) Generate(ctx context.Context, req *llm.GenerateRequest) (*llm.GenerateResponse, error) {
	history, last, err := splitHistory(req.Messages)
	if err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(g.model)
	if req.System != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.System)},
		}
	}
	if req.Temperature > 0 {
		model.SetTemperature(float32(req.Temperature))
	}
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}

	session := model.StartChat()
	session.History = history

	resp, err := session.SendMessage(ctx, genai.Text(last))
	if err != nil {
		return nil, fmt.Errorf("gemini send message: %w", err)
	}

	out := &llm.GenerateResponse{
		Text:  responseText(resp),
		Model: g.model,
	}
	if len(resp.Candidates) > 0 {
		out.StopReason = resp.Candidates[0].FinishReason.String()
	}
	if resp.UsageMetadata != nil {
		out.Usage = &llm.Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}

	return out, nil
}

// splitHistory converts the conversation to Gemini contents. The final
// message must be from the user and is returned separately for SendMessage.
func splitHistory(msgs []llm.Message) ([]*genai.Content, string, error) {
	msgs = llm.Conversational(msgs)
	if len(msgs) == 0 || msgs[len(msgs)-1].Role != llm.RoleUser {
		return nil, "", errors.New("gemini: last message must be from the user")
	}

	history := make([]*genai.Content, 0, len(msgs)-1)
	for _, m := range msgs[:len(msgs)-1] {
		role := "user"
		if m.Role == llm.RoleAssistant {
			role = "model"
		}
		history = append(history, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}

	return history, msgs[len(msgs)-1].Content, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
		break
	}
	return b.String()
}
