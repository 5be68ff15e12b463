package pipeline

import (
	"log/slog"
	"time"

	"github.com/papercomputeco/tutor/pipeline/worker"
	"github.com/papercomputeco/tutor/pkg/adaptive"
	"github.com/papercomputeco/tutor/pkg/checkpoint"
	"github.com/papercomputeco/tutor/pkg/compaction"
	"github.com/papercomputeco/tutor/pkg/llm"
	"github.com/papercomputeco/tutor/pkg/memory"
	"github.com/papercomputeco/tutor/pkg/profile"
	"github.com/papercomputeco/tutor/pkg/storage"
)

const (
	DefaultGenerationTimeout = 60 * time.Second
	DefaultMaxTokens         = 2048
	DefaultTemperature       = 0.7
)

// Config is the configuration for a turn pipeline.
type Config struct {
	// Generator produces the tutor's response.
	Generator llm.Generator

	// Checkpoints is the log of conversation state.
	Checkpoints *checkpoint.Log

	// Messages is the full transcript store. Threads without a checkpoint
	// resume from it.
	Messages storage.MessageStore

	// Mistakes records mistake patterns and detects recurrence.
	Mistakes *memory.Store

	// Profiles supplies the learner level used to assess responses. Optional.
	Profiles *profile.Service

	// Context renders the adaptive context. Optional.
	Context *adaptive.Builder

	// Compactor folds old messages into the summary.
	Compactor *compaction.Compactor

	// Pool runs post-turn side effects. Optional.
	Pool *worker.Pool

	// GenerationTimeout bounds a single generation call.
	GenerationTimeout time.Duration

	MaxTokens   int
	Temperature float64

	Logger *slog.Logger

	// Now overrides the clock, for tests.
	Now func() time.Time
}
