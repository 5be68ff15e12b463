// Package adaptive renders the learner-specific block that is appended to
// the tutor's system prompt on every turn.
package adaptive

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/papercomputeco/tutor/pkg/logger"
	"github.com/papercomputeco/tutor/pkg/memory"
	"github.com/papercomputeco/tutor/pkg/profile"
	"github.com/papercomputeco/tutor/pkg/storage"
)

const (
	DefaultTopK   = 3
	DefaultWindow = 7 * 24 * time.Hour
)

var guidance = map[string]string{
	profile.LevelDetailed: "The learner wants thorough feedback. Explain in Korean, step by step, " +
		"why the original sentence is wrong and which rule applies. Use simple vocabulary, " +
		"give one short example of the correct pattern, and keep the alternatives easy to reuse.",
	profile.LevelConcise: "The learner wants brief feedback. State only the key rule behind the " +
		"correction in one or two Korean sentences, using English grammar terms where natural. " +
		"Prefer natural, idiomatic alternatives over simplified ones.",
}

// Config holds configuration for the context builder.
type Config struct {
	Profiles *profile.Service
	Mistakes *memory.Store

	// TopK is the number of recent mistake patterns listed.
	TopK int

	// Window bounds how far back "recent" reaches.
	Window time.Duration

	Logger *slog.Logger
}

// Builder renders adaptive context from a learner's profile and recent
// mistakes.
type Builder struct {
	profiles *profile.Service
	mistakes *memory.Store
	topK     int
	window   time.Duration
	logger   *slog.Logger
}

// NewBuilder creates a context builder.
func NewBuilder(c Config) *Builder {
	b := &Builder{
		profiles: c.Profiles,
		mistakes: c.Mistakes,
		topK:     c.TopK,
		window:   c.Window,
		logger:   c.Logger,
	}
	if b.topK <= 0 {
		b.topK = DefaultTopK
	}
	if b.window <= 0 {
		b.window = DefaultWindow
	}
	if b.logger == nil {
		b.logger = logger.Nop()
	}
	return b
}

// BuildContext returns the adaptive context for userID. It never fails:
// any read error yields "" so the turn proceeds without personalization.
func (b *Builder) BuildContext(ctx context.Context, userID string) string {
	if b == nil || b.profiles == nil || b.mistakes == nil {
		return ""
	}

	p, err := b.profiles.GetOrCreate(ctx, userID)
	if err != nil {
		b.logger.Warn("adaptive context unavailable, profile read failed", "user_id", userID, "error", err)
		return ""
	}

	recent, err := b.mistakes.Recent(ctx, userID, b.window, b.topK)
	if err != nil {
		b.logger.Warn("adaptive context unavailable, mistake read failed", "user_id", userID, "error", err)
		return ""
	}

	return Render(p, recent, b.window)
}

// Render formats a profile and its recent mistakes.
func Render(p *storage.UserProfile, recent []*storage.RecurringMistake, window time.Duration) string {
	var sb strings.Builder

	sb.WriteString("\nUser Profile:")
	sb.WriteString("\n- Level: " + strings.ToUpper(p.Level))
	if p.LearningGoal != "" {
		sb.WriteString("\n- Learning Goal: " + p.LearningGoal)
	}

	if len(recent) > 0 {
		fmt.Fprintf(&sb, "\n- Recent Mistakes (last %d days):", int(window/(24*time.Hour)))
		for _, m := range recent {
			fmt.Fprintf(&sb, "\n  * %s (%dx)", m.Pattern, m.Count)
		}
	}

	sb.WriteString("\n\nLevel-Specific Guidance:\n")
	text, ok := guidance[p.Level]
	if !ok {
		text = guidance[profile.DefaultLevel]
	}
	sb.WriteString(text)

	return sb.String()
}
