// Package checkpoint is the append-only log of conversation state. Each
// completed turn appends one immutable snapshot; the newest snapshot of a
// thread is where the next turn resumes.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/tutor/pkg/storage"
)

// ErrMissingThreadID is returned when an operation is attempted without a thread.
var ErrMissingThreadID = errors.New("thread id is required")

// Log appends and reads checkpoints for threads.
type Log struct {
	store storage.CheckpointStore
	now   func() time.Time
}

// NewLog creates a checkpoint log over store.
func NewLog(store storage.CheckpointStore) *Log {
	return &Log{store: store, now: time.Now}
}

// WithClock overrides the time source used for CreatedAt.
func (l *Log) WithClock(now func() time.Time) *Log {
	l.now = now
	return l
}

// Append stores a snapshot of state and returns the new checkpoint id.
func (l *Log) Append(ctx context.Context, threadID string, state *storage.ConversationState, metadata map[string]any) (string, error) {
	if threadID == "" {
		return "", ErrMissingThreadID
	}
	if state == nil {
		return "", errors.New("cannot checkpoint nil state")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generating checkpoint id: %w", err)
	}

	cp, err := l.store.AppendCheckpoint(ctx, &storage.Checkpoint{
		ThreadID:     threadID,
		ID:           id.String(),
		State:        *state,
		Metadata:     metadata,
		MessageCount: state.MessageCount,
		CreatedAt:    l.now(),
	})
	if err != nil {
		return "", err
	}
	return cp.ID, nil
}

// Latest returns the newest checkpoint of a thread, or nil when the thread
// has none.
func (l *Log) Latest(ctx context.Context, threadID string) (*storage.Checkpoint, error) {
	cps, err := l.List(ctx, threadID, 1)
	if err != nil {
		return nil, err
	}
	if len(cps) == 0 {
		return nil, nil
	}
	return cps[0], nil
}

// Get returns one checkpoint, or storage.NotFoundError.
func (l *Log) Get(ctx context.Context, threadID, id string) (*storage.Checkpoint, error) {
	if threadID == "" {
		return nil, ErrMissingThreadID
	}
	return l.store.GetCheckpoint(ctx, threadID, id)
}

// List returns up to limit checkpoints newest first. A non-positive limit
// uses storage.DefaultCheckpointLimit.
func (l *Log) List(ctx context.Context, threadID string, limit int) ([]*storage.Checkpoint, error) {
	if threadID == "" {
		return nil, ErrMissingThreadID
	}
	return l.store.ListCheckpoints(ctx, threadID, 0, limit)
}

// ListBefore continues a listing after the checkpoint beforeID, so a
// caller can page through a long thread.
func (l *Log) ListBefore(ctx context.Context, threadID, beforeID string, limit int) ([]*storage.Checkpoint, error) {
	if threadID == "" {
		return nil, ErrMissingThreadID
	}

	before, err := l.store.GetCheckpoint(ctx, threadID, beforeID)
	if err != nil {
		return nil, err
	}
	return l.store.ListCheckpoints(ctx, threadID, before.Seq, limit)
}

// DeleteThread removes every checkpoint and transcript message of a thread.
func (l *Log) DeleteThread(ctx context.Context, threadID string) (int, error) {
	if threadID == "" {
		return 0, ErrMissingThreadID
	}
	return l.store.DeleteThread(ctx, threadID)
}
