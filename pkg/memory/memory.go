// Package memory is the long-lived fact memory of the tutor: one record per
// learner and mistake pattern, with recency-windowed recurrence detection.
//
// The per-pattern records in the storage driver are the source of truth.
// Profiles hold only a cache of them, refreshed on read.
//
// Recurrence is decided by a configurable [Policy]:
//
//	[recurrence]
//	policy = "last_seen"   # or "sliding_window"
//	window_days = 7
//	min_frequency = 3
package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/papercomputeco/tutor/pkg/logger"
	"github.com/papercomputeco/tutor/pkg/storage"
)

const (
	DefaultWindow       = 7 * 24 * time.Hour
	DefaultMinFrequency = 3
)

var (
	// ErrMissingUserID is returned when an operation is attempted without a user.
	ErrMissingUserID = errors.New("user id is required")

	// ErrMissingPattern is returned when a mistake has no pattern.
	ErrMissingPattern = errors.New("mistake pattern is required")
)

// Config holds configuration for the mistake store.
type Config struct {
	// Store persists the mistake records.
	Store storage.MistakeStore

	// Policy selects how recurrence is evaluated. Defaults to PolicyLastSeen.
	Policy Policy

	// Window and MinFrequency are the recurrence parameters used by Upsert.
	Window       time.Duration
	MinFrequency int

	Logger *slog.Logger

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Store records mistake observations and answers recurrence queries.
type Store struct {
	store        storage.MistakeStore
	policy       Policy
	window       time.Duration
	minFrequency int
	logger       *slog.Logger
	now          func() time.Time
}

// Upserted is the outcome of recording one mistake observation.
type Upserted struct {
	Mistake *storage.RecurringMistake

	// Created is true when this observation created the record.
	Created bool

	// BecameRecurring is true when the pattern was not recurring before
	// this observation and is recurring after it.
	BecameRecurring bool

	// Insight is the learner-facing message, set only when BecameRecurring.
	Insight string
}

// NewStore creates a mistake store.
func NewStore(c Config) (*Store, error) {
	if c.Store == nil {
		return nil, errors.New("mistake store requires a storage driver")
	}

	policy := c.Policy
	if policy == "" {
		policy = PolicyLastSeen
	}
	if !policy.Valid() {
		return nil, fmt.Errorf("unknown recurrence policy %q", policy)
	}

	s := &Store{
		store:        c.Store,
		policy:       policy,
		window:       c.Window,
		minFrequency: c.MinFrequency,
		logger:       c.Logger,
		now:          c.Now,
	}
	if s.window <= 0 {
		s.window = DefaultWindow
	}
	if s.minFrequency <= 0 {
		s.minFrequency = DefaultMinFrequency
	}
	if s.logger == nil {
		s.logger = logger.Nop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// Policy returns the recurrence policy in effect.
func (s *Store) Policy() Policy {
	return s.policy
}

// Upsert records one observation of pattern for userID. The category may be
// a bare category or a "category:subcategory" mistake type; unknown
// categories are stored as grammar.
func (s *Store) Upsert(ctx context.Context, userID, pattern, example, category string) (*Upserted, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	if pattern == "" {
		return nil, ErrMissingPattern
	}

	cat, known := ParseCategory(category)
	if !known {
		s.logger.Warn("unknown mistake category, storing as grammar",
			"category", category,
			"pattern", pattern,
		)
	}

	now := s.now()
	up, err := s.store.UpsertMistake(ctx, &storage.MistakeInput{
		UserID:   userID,
		Pattern:  pattern,
		Category: cat,
		Example:  example,
		Now:      now,
	})
	if err != nil {
		return nil, fmt.Errorf("recording mistake: %w", err)
	}

	out := &Upserted{Mistake: up.Mistake, Created: up.Created}

	crossed, err := s.crossed(ctx, up, now)
	if err != nil {
		return nil, err
	}
	if crossed {
		out.BecameRecurring = true
		out.Insight = Insight(pattern, up.Mistake.Count)
		s.logger.Info("mistake pattern became recurring",
			"user_id", userID,
			"pattern", pattern,
			"count", up.Mistake.Count,
			"policy", string(s.policy),
		)
	}

	return out, nil
}

// crossed reports whether the observation in up moved the pattern from
// non-recurring to recurring.
func (s *Store) crossed(ctx context.Context, up *storage.MistakeUpsert, now time.Time) (bool, error) {
	switch s.policy {
	case PolicySlidingWindow:
		n, err := s.store.CountOccurrences(ctx, up.Mistake.UserID, up.Mistake.Pattern, now.Add(-s.window))
		if err != nil {
			return false, fmt.Errorf("counting occurrences: %w", err)
		}
		return n == s.minFrequency, nil

	default:
		after := up.Mistake.Count >= s.minFrequency
		before := !up.Created &&
			up.PriorCount >= s.minFrequency &&
			now.Sub(up.PriorLastSeen) <= s.window
		return after && !before, nil
	}
}

// CheckRecurring returns the record for pattern when it is recurring under
// the configured policy with the given window and threshold, or nil.
func (s *Store) CheckRecurring(ctx context.Context, userID, pattern string, window time.Duration, minFrequency int) (*storage.RecurringMistake, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}

	m, err := s.store.GetMistake(ctx, userID, pattern)
	if err != nil {
		var notFound storage.NotFoundError
		if errors.As(err, &notFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading mistake %s: %w", pattern, err)
	}

	now := s.now()
	switch s.policy {
	case PolicySlidingWindow:
		n, err := s.store.CountOccurrences(ctx, userID, pattern, now.Add(-window))
		if err != nil {
			return nil, fmt.Errorf("counting occurrences: %w", err)
		}
		if n >= minFrequency {
			return m, nil
		}
	default:
		if now.Sub(m.LastSeen) <= window && m.Count >= minFrequency {
			return m, nil
		}
	}

	return nil, nil
}

// Recent returns the k most frequent patterns seen within window.
func (s *Store) Recent(ctx context.Context, userID string, window time.Duration, k int) ([]*storage.RecurringMistake, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	return s.store.ListMistakes(ctx, storage.MistakeFilter{
		UserID: userID,
		Since:  s.now().Add(-window),
		Limit:  k,
	})
}

// ByCategory returns every pattern of one category, most frequent first.
func (s *Store) ByCategory(ctx context.Context, userID, category string) ([]*storage.RecurringMistake, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	return s.store.ListMistakes(ctx, storage.MistakeFilter{UserID: userID, Category: category})
}

// All returns every pattern recorded for userID, most frequent first.
func (s *Store) All(ctx context.Context, userID string) ([]*storage.RecurringMistake, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	return s.store.ListMistakes(ctx, storage.MistakeFilter{UserID: userID})
}
