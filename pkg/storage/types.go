package storage

import (
	"time"

	"github.com/papercomputeco/tutor/pkg/correction"
	"github.com/papercomputeco/tutor/pkg/llm"
)

// MaxExamples is the number of example sentences kept per mistake pattern.
const MaxExamples = 5

// ConversationState is the working state of one thread.
type ConversationState struct {
	ThreadID string        `json:"threadId"`
	UserID   string        `json:"userId"`
	Messages []llm.Message `json:"messages"`
	Summary  string        `json:"summary"`

	// MistakeSnapshot is a copy of the user's recent mistakes taken at turn start.
	MistakeSnapshot []RecurringMistake `json:"mistakeSnapshot,omitempty"`

	// MessageCount counts every message ever appended to the thread, not
	// just the retained tail.
	MessageCount int `json:"messageCount"`

	Correction *correction.Result `json:"correction,omitempty"`
}

// Checkpoint is an immutable snapshot of conversation state.
type Checkpoint struct {
	ThreadID     string            `json:"threadId"`
	ID           string            `json:"id"`
	Seq          int64             `json:"seq"`
	State        ConversationState `json:"state"`
	Metadata     map[string]any    `json:"metadata,omitempty"`
	MessageCount int               `json:"messageCount"`
	CreatedAt    time.Time         `json:"createdAt"`
}

// RecurringMistake is the aggregate record of one user's mistake pattern.
type RecurringMistake struct {
	UserID    string    `json:"userId"`
	Pattern   string    `json:"pattern"`
	Category  string    `json:"category"`
	Examples  []string  `json:"examples"`
	Count     int       `json:"count"`
	LastSeen  time.Time `json:"lastSeen"`
	CreatedAt time.Time `json:"createdAt"`
}

// MistakeInput is a single observation of a mistake pattern.
type MistakeInput struct {
	UserID   string
	Pattern  string
	Category string
	Example  string
	Now      time.Time
}

// MistakeUpsert is the outcome of UpsertMistake.
type MistakeUpsert struct {
	Mistake *RecurringMistake

	// Created is true when this observation created the record.
	Created bool

	// PriorCount and PriorLastSeen describe the record before the update.
	PriorCount    int
	PriorLastSeen time.Time
}

// MistakeFilter selects records in ListMistakes. Zero values don't filter.
type MistakeFilter struct {
	UserID   string
	Category string
	Since    time.Time
	Limit    int
}

// UserProfile is a learner's persistent settings.
type UserProfile struct {
	UserID       string `json:"userId"`
	Level        string `json:"level"`
	LearningGoal string `json:"learningGoal,omitempty"`

	// RecurringMistakes is a cache refreshed from the mistake store on read.
	RecurringMistakes []RecurringMistake `json:"recurringMistakes"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ChatMessage is one transcript entry.
type ChatMessage struct {
	ID        int64     `json:"id"`
	ThreadID  string    `json:"threadId"`
	UserID    string    `json:"userId"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// DailyStats is one user's learning aggregate for a calendar day (UTC).
type DailyStats struct {
	UserID        string         `json:"userId"`
	Day           string         `json:"day"`
	TotalTurns    int            `json:"totalTurns"`
	TotalMistakes int            `json:"totalMistakes"`
	Breakdown     map[string]int `json:"breakdown"`
	MistakeRate   float64        `json:"mistakeRate"`
}

// DayKey formats t as the UTC calendar day used by DailyStats.
func DayKey(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

// ComputeRate fills MistakeRate from the totals.
func (s *DailyStats) ComputeRate() {
	if s.TotalTurns == 0 {
		s.MistakeRate = 0
		return
	}
	s.MistakeRate = float64(s.TotalMistakes) / float64(s.TotalTurns)
}

// AddExample appends example to examples keeping at most MaxExamples
// entries. A repeated example moves to the newest position.
func AddExample(examples []string, example string) []string {
	if example == "" {
		return examples
	}

	out := make([]string, 0, len(examples)+1)
	for _, e := range examples {
		if e != example {
			out = append(out, e)
		}
	}
	out = append(out, example)

	if len(out) > MaxExamples {
		out = out[len(out)-MaxExamples:]
	}
	return out
}

// DefaultCheckpointLimit bounds ListCheckpoints when no limit is given.
const DefaultCheckpointLimit = 100
