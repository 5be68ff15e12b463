// Package storage defines the persistence contracts for conversation state,
// mistake patterns, learner profiles, transcripts, and learning stats.
package storage

import (
	"context"
	"time"
)

// CheckpointStore persists immutable snapshots of conversation state.
type CheckpointStore interface {
	// AppendCheckpoint stores cp, assigning the next per-thread Seq. The
	// stored checkpoint is returned.
	AppendCheckpoint(ctx context.Context, cp *Checkpoint) (*Checkpoint, error)

	// GetCheckpoint returns a single checkpoint, or NotFoundError.
	GetCheckpoint(ctx context.Context, threadID, id string) (*Checkpoint, error)

	// ListCheckpoints returns a thread's checkpoints newest first. When
	// beforeSeq is positive only checkpoints with a lower Seq are returned.
	ListCheckpoints(ctx context.Context, threadID string, beforeSeq int64, limit int) ([]*Checkpoint, error)

	// DeleteThread removes every checkpoint and transcript message of a
	// thread, returning the number of checkpoints removed.
	DeleteThread(ctx context.Context, threadID string) (int, error)
}

// MistakeStore persists one record per (user, pattern).
type MistakeStore interface {
	// UpsertMistake atomically creates or updates a pattern record and logs
	// one occurrence at now.
	UpsertMistake(ctx context.Context, in *MistakeInput) (*MistakeUpsert, error)

	// GetMistake returns a single record, or NotFoundError.
	GetMistake(ctx context.Context, userID, pattern string) (*RecurringMistake, error)

	// ListMistakes returns the records matching filter ordered by Count
	// then LastSeen, both descending.
	ListMistakes(ctx context.Context, filter MistakeFilter) ([]*RecurringMistake, error)

	// CountOccurrences counts logged occurrences at or after since.
	CountOccurrences(ctx context.Context, userID, pattern string, since time.Time) (int, error)
}

// ProfileStore persists learner profiles.
type ProfileStore interface {
	// GetProfile returns a profile, or NotFoundError.
	GetProfile(ctx context.Context, userID string) (*UserProfile, error)

	// CreateProfile inserts p unless a profile already exists for the user,
	// and returns whichever profile is stored.
	CreateProfile(ctx context.Context, p *UserProfile) (*UserProfile, error)

	// UpdateProfile overwrites the mutable fields of an existing profile.
	UpdateProfile(ctx context.Context, p *UserProfile) error

	// UpdateRecurringMistakes replaces only the recurring mistake cache and
	// the update time, leaving level and learning goal as stored.
	UpdateRecurringMistakes(ctx context.Context, userID string, cache []RecurringMistake, at time.Time) error
}

// MessageStore persists the append-only transcript of each thread.
type MessageStore interface {
	AppendMessages(ctx context.Context, msgs ...*ChatMessage) error

	// ListMessages returns the most recent limit messages of a thread in
	// chronological order. A limit of zero returns all messages.
	ListMessages(ctx context.Context, threadID string, limit int) ([]*ChatMessage, error)
}

// StatsStore persists daily learning aggregates.
type StatsStore interface {
	// RecordTurn adds one turn to the user's aggregate for day. A non-empty
	// category also counts one mistake in that category.
	RecordTurn(ctx context.Context, userID string, day time.Time, category string) error

	// ListStats returns the user's aggregates from since onward, oldest first.
	ListStats(ctx context.Context, userID string, since time.Time) ([]*DailyStats, error)
}

// Driver is a storage backend implementing every store.
type Driver interface {
	CheckpointStore
	MistakeStore
	ProfileStore
	MessageStore
	StatsStore

	// Close releases any resources held by the backend.
	Close() error
}
