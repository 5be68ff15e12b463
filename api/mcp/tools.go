package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/tutor/pkg/storage"
)

var (
	recurringMistakesToolName    = "recurring_mistakes"
	recurringMistakesDescription = "List a learner's recorded English mistake patterns, most frequent first. Optionally restrict to one category (grammar, vocabulary, pronunciation, fluency, comprehension, style) or to patterns seen within the last N days."

	learnerProfileToolName    = "learner_profile"
	learnerProfileDescription = "Get a learner's tutoring profile: explanation level, learning goal and a summary of their most frequent mistakes."
)

// RecurringMistakesInput represents the input arguments for the recurring_mistakes tool.
type RecurringMistakesInput struct {
	UserID     string `json:"user_id" jsonschema:"the learner whose mistakes to list"`
	Category   string `json:"category,omitempty" jsonschema:"optional mistake category filter"`
	WindowDays int    `json:"window_days,omitempty" jsonschema:"only include patterns seen within this many days"`
	Limit      int    `json:"limit,omitempty" jsonschema:"maximum number of patterns to return (default 10)"`
}

// MistakeEntry is one pattern in a recurring_mistakes result.
type MistakeEntry struct {
	Pattern  string   `json:"pattern"`
	Category string   `json:"category"`
	Count    int      `json:"count"`
	Examples []string `json:"examples"`
	LastSeen string   `json:"last_seen"`
}

// RecurringMistakesOutput is the structured output of recurring_mistakes.
type RecurringMistakesOutput struct {
	UserID   string         `json:"user_id"`
	Count    int            `json:"count"`
	Mistakes []MistakeEntry `json:"mistakes"`
}

// LearnerProfileInput represents the input arguments for the learner_profile tool.
type LearnerProfileInput struct {
	UserID string `json:"user_id" jsonschema:"the learner whose profile to load"`
}

// LearnerProfileOutput is the structured output of learner_profile.
type LearnerProfileOutput struct {
	UserID       string `json:"user_id"`
	Level        string `json:"level"`
	LearningGoal string `json:"learning_goal,omitempty"`
	Summary      string `json:"summary"`
}

const defaultToolLimit = 10

func (s *Server) handleRecurringMistakes(ctx context.Context, _ *mcp.CallToolRequest, input RecurringMistakesInput) (*mcp.CallToolResult, RecurringMistakesOutput, error) {
	if input.UserID == "" {
		return toolError("user_id is required"), emptyMistakes(input.UserID), nil
	}

	var (
		found []*storage.RecurringMistake
		err   error
	)
	switch {
	case input.Category != "":
		found, err = s.config.Mistakes.ByCategory(ctx, input.UserID, input.Category)
	case input.WindowDays > 0:
		found, err = s.config.Mistakes.Recent(ctx, input.UserID, time.Duration(input.WindowDays)*24*time.Hour, 0)
	default:
		found, err = s.config.Mistakes.All(ctx, input.UserID)
	}
	if err != nil {
		s.config.Logger.Error("recurring mistakes lookup failed", "user_id", input.UserID, "error", err)
		return toolError(fmt.Sprintf("Mistake lookup failed: %v", err)), emptyMistakes(input.UserID), nil
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultToolLimit
	}

	output := emptyMistakes(input.UserID)
	for _, m := range found {
		if input.Category != "" && input.WindowDays > 0 &&
			time.Since(m.LastSeen) > time.Duration(input.WindowDays)*24*time.Hour {
			continue
		}
		if len(output.Mistakes) == limit {
			break
		}
		output.Mistakes = append(output.Mistakes, MistakeEntry{
			Pattern:  m.Pattern,
			Category: m.Category,
			Count:    m.Count,
			Examples: append([]string{}, m.Examples...),
			LastSeen: m.LastSeen.UTC().Format(time.RFC3339),
		})
	}
	output.Count = len(output.Mistakes)

	return jsonResult(output)
}

func (s *Server) handleLearnerProfile(ctx context.Context, _ *mcp.CallToolRequest, input LearnerProfileInput) (*mcp.CallToolResult, LearnerProfileOutput, error) {
	if input.UserID == "" {
		return toolError("user_id is required"), LearnerProfileOutput{}, nil
	}

	p, err := s.config.Profiles.GetOrCreate(ctx, input.UserID)
	if err != nil {
		s.config.Logger.Error("profile lookup failed", "user_id", input.UserID, "error", err)
		return toolError(fmt.Sprintf("Profile lookup failed: %v", err)), LearnerProfileOutput{}, nil
	}

	summary, err := s.config.Profiles.Summary(ctx, input.UserID)
	if err != nil {
		return toolError(fmt.Sprintf("Profile summary failed: %v", err)), LearnerProfileOutput{}, nil
	}

	return jsonResult(LearnerProfileOutput{
		UserID:       p.UserID,
		Level:        p.Level,
		LearningGoal: p.LearningGoal,
		Summary:      summary,
	})
}

// emptyMistakes keeps Mistakes a non-nil list so the output still matches
// its schema on error paths.
func emptyMistakes(userID string) RecurringMistakesOutput {
	return RecurringMistakesOutput{UserID: userID, Mistakes: []MistakeEntry{}}
}

func toolError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
	}
}

func jsonResult[T any](output T) (*mcp.CallToolResult, T, error) {
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		var zero T
		return toolError(fmt.Sprintf("Failed to serialize results: %v", err)), zero, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}
