// Package profile manages learner profiles: proficiency level, learning
// goal, and a cached view of recurring mistakes.
package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/papercomputeco/tutor/pkg/logger"
	"github.com/papercomputeco/tutor/pkg/memory"
	"github.com/papercomputeco/tutor/pkg/storage"
)

const (
	LevelDetailed = "detailed"
	LevelConcise  = "concise"

	// DefaultLevel is assigned to newly created profiles.
	DefaultLevel = LevelDetailed

	summaryTopK = 5
)

// Levels lists every valid proficiency level.
var Levels = []string{LevelDetailed, LevelConcise}

// ErrMissingUserID is returned when an operation is attempted without a user.
var ErrMissingUserID = memory.ErrMissingUserID

// ValidationError describes a rejected profile field.
type ValidationError struct {
	Field   string
	Value   string
	Allowed []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: must be one of %s", e.Field, e.Value, strings.Join(e.Allowed, ", "))
}

// ValidLevel reports whether level is a known proficiency level.
func ValidLevel(level string) bool {
	for _, l := range Levels {
		if level == l {
			return true
		}
	}
	return false
}

// Update carries optional field changes. Nil fields are left untouched.
type Update struct {
	Level        *string `json:"level,omitempty"`
	LearningGoal *string `json:"learningGoal,omitempty"`
}

// Updated is the outcome of Update.
type Updated struct {
	Profile       *storage.UserProfile `json:"profile"`
	PreviousLevel string               `json:"previousLevel"`
	NewLevel      string               `json:"newLevel"`
}

// Config holds configuration for the profile service.
type Config struct {
	Store    storage.ProfileStore
	Mistakes *memory.Store
	Logger   *slog.Logger
	Now      func() time.Time
}

// Service reads and writes learner profiles.
type Service struct {
	store    storage.ProfileStore
	mistakes *memory.Store
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a profile service.
func NewService(c Config) *Service {
	s := &Service{
		store:    c.Store,
		mistakes: c.Mistakes,
		logger:   c.Logger,
		now:      c.Now,
	}
	if s.logger == nil {
		s.logger = logger.Nop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// GetOrCreate returns the profile for userID, creating a detailed profile
// when none exists. The recurring mistake cache is refreshed from the
// mistake store on every read.
func (s *Service) GetOrCreate(ctx context.Context, userID string) (*storage.UserProfile, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}

	p, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		var notFound storage.NotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("loading profile: %w", err)
		}

		now := s.now()
		p, err = s.store.CreateProfile(ctx, &storage.UserProfile{
			UserID:            userID,
			Level:             DefaultLevel,
			RecurringMistakes: []storage.RecurringMistake{},
			CreatedAt:         now,
			UpdatedAt:         now,
		})
		if err != nil {
			return nil, fmt.Errorf("creating profile: %w", err)
		}
		s.logger.Debug("created learner profile", "user_id", userID, "level", p.Level)
	}

	if err := s.refresh(ctx, p); err != nil {
		s.logger.Warn("could not refresh recurring mistakes", "user_id", userID, "error", err)
	}
	return p, nil
}

// refresh replaces the profile's mistake cache with the authoritative
// records and persists it when it changed.
func (s *Service) refresh(ctx context.Context, p *storage.UserProfile) error {
	if s.mistakes == nil {
		return nil
	}

	all, err := s.mistakes.All(ctx, p.UserID)
	if err != nil {
		return err
	}

	fresh := make([]storage.RecurringMistake, 0, len(all))
	for _, m := range all {
		fresh = append(fresh, *m)
	}
	if sameMistakes(p.RecurringMistakes, fresh) {
		return nil
	}

	p.RecurringMistakes = fresh
	p.UpdatedAt = s.now()
	return s.store.UpdateRecurringMistakes(ctx, p.UserID, fresh, p.UpdatedAt)
}

// Update applies u to the profile of userID. Invalid levels are rejected
// with a *ValidationError before anything is written.
func (s *Service) Update(ctx context.Context, userID string, u Update) (*Updated, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	if u.Level != nil && !ValidLevel(*u.Level) {
		return nil, &ValidationError{Field: "level", Value: *u.Level, Allowed: Levels}
	}

	p, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := &Updated{PreviousLevel: p.Level}
	if u.Level != nil {
		p.Level = *u.Level
	}
	if u.LearningGoal != nil {
		p.LearningGoal = strings.TrimSpace(*u.LearningGoal)
	}
	p.UpdatedAt = s.now()

	if err := s.store.UpdateProfile(ctx, p); err != nil {
		return nil, fmt.Errorf("updating profile: %w", err)
	}

	out.Profile = p
	out.NewLevel = p.Level
	if out.PreviousLevel != out.NewLevel {
		s.logger.Info("learner level changed", "user_id", userID, "from", out.PreviousLevel, "to", out.NewLevel)
	}
	return out, nil
}

// Summary renders a short text description of the learner and their five
// most frequent mistake patterns.
func (s *Service) Summary(ctx context.Context, userID string) (string, error) {
	p, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Level: %s\n", p.Level)
	if p.LearningGoal != "" {
		fmt.Fprintf(&b, "Learning goal: %s\n", p.LearningGoal)
	}

	if len(p.RecurringMistakes) == 0 {
		b.WriteString("No recurring mistakes recorded yet.")
		return b.String(), nil
	}

	b.WriteString("Most frequent mistakes:")
	for i, m := range p.RecurringMistakes {
		if i == summaryTopK {
			break
		}
		fmt.Fprintf(&b, "\n- %s (%s): %d times, last seen %s", m.Pattern, m.Category, m.Count, m.LastSeen.Format(time.DateOnly))
	}
	return b.String(), nil
}

func sameMistakes(a, b []storage.RecurringMistake) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Pattern != b[i].Pattern || a[i].Count != b[i].Count || !a[i].LastSeen.Equal(b[i].LastSeen) {
			return false
		}
	}
	return true
}
