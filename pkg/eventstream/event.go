package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeTurnCompleted is emitted after a turn's checkpoint is stored.
	EventTypeTurnCompleted = "tutor.turn.completed"
)

// TurnCompletedEvent is a transport-neutral event payload for a completed turn.
type TurnCompletedEvent struct {
	SchemaVersion int            `json:"schema_version"`
	EventType     string         `json:"event_type"`
	EventID       string         `json:"event_id"`
	EmittedAt     time.Time      `json:"emitted_at"`
	Source        EventSource    `json:"source"`
	Thread        TurnThreadMeta `json:"thread"`
	Correction    TurnCorrection `json:"correction"`
}

// EventSource identifies the generator that produced the turn.
type EventSource struct {
	Provider string `json:"provider"`
	Model    string `json:"model,omitempty"`
}

// TurnThreadMeta captures the conversation position of the turn.
type TurnThreadMeta struct {
	ThreadID     string    `json:"thread_id"`
	UserID       string    `json:"user_id"`
	CheckpointID string    `json:"checkpoint_id"`
	MessageCount int       `json:"message_count"`
	Compacted    bool      `json:"compacted"`
	StartedAt    time.Time `json:"started_at"`
	CompletedAt  time.Time `json:"completed_at"`
	DurationMs   int64     `json:"duration_ms"`
}

// TurnCorrection captures what the turn learned about the learner.
type TurnCorrection struct {
	MistakeType     string `json:"mistake_type,omitempty"`
	MistakePattern  string `json:"mistake_pattern,omitempty"`
	Category        string `json:"category,omitempty"`
	BecameRecurring bool   `json:"became_recurring"`
	Degraded        bool   `json:"degraded"`
	QualityScore    int    `json:"quality_score"`
}

// NewTurnCompletedEvent fills the envelope fields of a new event.
func NewTurnCompletedEvent(source EventSource, thread TurnThreadMeta, c TurnCorrection) *TurnCompletedEvent {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}

	return &TurnCompletedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeTurnCompleted,
		EventID:       "evt_" + id.String(),
		EmittedAt:     time.Now().UTC(),
		Source:        source,
		Thread:        thread,
		Correction:    c,
	}
}
