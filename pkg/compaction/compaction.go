// Package compaction folds old conversation messages into a running summary
// so the working context of a thread stays bounded.
package compaction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/papercomputeco/tutor/pkg/llm"
	"github.com/papercomputeco/tutor/pkg/logger"
)

const (
	DefaultThreshold = 5
	DefaultKeepTail  = 3
	DefaultTimeout   = 30 * time.Second
	DefaultMaxTokens = 1024

	fallbackSnippetLen = 50
	fallbackPriorLen   = 300
)

// Instruction is the system prompt used for summarization.
const Instruction = `You are summarizing a conversation between an English tutor and a Korean student.

Create a concise summary that:
1. Captures the main topics discussed
2. Lists key corrections that were made
3. Highlights recurring mistakes or patterns
4. Preserves important grammar rules that were explained

If a previous summary is provided, merge it with the new messages into a single summary.
Keep the summary under 200 words. Write in Korean for explanations.`

// Config holds configuration for the compactor.
type Config struct {
	Generator llm.Generator

	// Threshold is the message count above which compaction runs.
	Threshold int

	// KeepTail is the number of most recent messages kept verbatim.
	KeepTail int

	// Timeout bounds a single summarization call.
	Timeout time.Duration

	MaxTokens int
	Logger    *slog.Logger
}

// Compactor summarizes the head of a conversation.
type Compactor struct {
	generator llm.Generator
	threshold int
	keepTail  int
	timeout   time.Duration
	maxTokens int
	logger    *slog.Logger
}

// Outcome is the result of Compact.
type Outcome struct {
	// Summary replaces the prior summary wholesale. Empty when nothing was
	// compacted.
	Summary string

	// Tail is the retained message list.
	Tail []llm.Message

	// Compacted is true when the head was folded into Summary.
	Compacted bool

	// Fallback is true when the generator failed and Summary was built
	// deterministically.
	Fallback bool
}

// New creates a compactor.
func New(c Config) *Compactor {
	cp := &Compactor{
		generator: c.Generator,
		threshold: c.Threshold,
		keepTail:  c.KeepTail,
		timeout:   c.Timeout,
		maxTokens: c.MaxTokens,
		logger:    c.Logger,
	}
	if cp.threshold <= 0 {
		cp.threshold = DefaultThreshold
	}
	if cp.keepTail <= 0 {
		cp.keepTail = DefaultKeepTail
	}
	if cp.timeout <= 0 {
		cp.timeout = DefaultTimeout
	}
	if cp.maxTokens <= 0 {
		cp.maxTokens = DefaultMaxTokens
	}
	if cp.logger == nil {
		cp.logger = logger.Nop()
	}
	return cp
}

// ShouldCompact reports whether a thread with messageCount messages is due
// for compaction.
func (c *Compactor) ShouldCompact(messageCount int) bool {
	return messageCount > c.threshold
}

// Compact summarizes all but the last KeepTail messages, folding in
// priorSummary. Lists at or under the threshold are returned unchanged.
// Compact never fails; generator errors produce a fallback summary.
func (c *Compactor) Compact(ctx context.Context, messages []llm.Message, priorSummary string) *Outcome {
	messages = llm.Conversational(messages)
	if len(messages) <= c.threshold {
		return &Outcome{Tail: messages}
	}

	split := len(messages) - c.keepTail
	head := messages[:split]
	tail := append([]llm.Message(nil), messages[split:]...)

	summary, err := c.summarize(ctx, head, priorSummary)
	if err != nil {
		c.logger.Warn("summarization failed, using fallback summary",
			"messages", len(head),
			"error", err,
		)
		return &Outcome{
			Summary:   Fallback(head, priorSummary),
			Tail:      tail,
			Compacted: true,
			Fallback:  true,
		}
	}

	c.logger.Debug("compacted conversation",
		"summarized", len(head),
		"kept", len(tail),
		"summary_len", len(summary),
	)
	return &Outcome{Summary: summary, Tail: tail, Compacted: true}
}

func (c *Compactor) summarize(ctx context.Context, head []llm.Message, priorSummary string) (string, error) {
	if c.generator == nil {
		return "", errors.New("no generator configured")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.generator.Generate(ctx, &llm.GenerateRequest{
		System:      Instruction,
		Messages:    []llm.Message{llm.NewUserMessage(Transcript(head, priorSummary))},
		MaxTokens:   c.maxTokens,
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("generating summary: %w", err)
	}

	summary := strings.TrimSpace(resp.Text)
	if summary == "" {
		return "", errors.New("generator returned an empty summary")
	}
	return summary, nil
}

// Transcript formats messages (and an optional prior summary) as the
// summarizer's input.
func Transcript(messages []llm.Message, priorSummary string) string {
	var b strings.Builder
	if priorSummary != "" {
		b.WriteString("Previous summary:\n")
		b.WriteString(priorSummary)
		b.WriteString("\n\nNew messages:\n")
	}

	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		speaker := "User"
		if m.Role == llm.RoleAssistant {
			speaker = "Tutor"
		}
		lines = append(lines, speaker+": "+m.Content)
	}
	b.WriteString(strings.Join(lines, "\n\n"))
	return b.String()
}

// Fallback builds the deterministic summary used when the generator fails.
// A prior summary is kept, truncated, ahead of the new head snippets.
func Fallback(head []llm.Message, priorSummary string) string {
	snippets := make([]string, 0, 2)
	for i, m := range head {
		if i == 2 {
			break
		}
		snippets = append(snippets, truncateRunes(m.Content, fallbackSnippetLen))
	}
	summary := fmt.Sprintf("대화 %d개 메시지 요약: %s...", len(head), strings.Join(snippets, ", "))

	priorSummary = strings.TrimSpace(priorSummary)
	if priorSummary == "" {
		return summary
	}
	prior := truncateRunes(priorSummary, fallbackPriorLen)
	if prior != priorSummary {
		prior += "..."
	}
	return prior + "\n" + summary
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
