// Package pipeline runs one tutoring turn end to end: load the thread's
// working state, generate a correction, update the learner's mistake
// memory, compact the conversation when it grows, and checkpoint the
// result.
//
// Turns on the same thread are serialized; different threads run in
// parallel. Once generation has produced a result, the remaining steps run
// detached from the caller's context so a disconnected client never leaves
// a turn half-recorded.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/papercomputeco/tutor/pipeline/worker"
	"github.com/papercomputeco/tutor/pkg/adaptive"
	"github.com/papercomputeco/tutor/pkg/checkpoint"
	"github.com/papercomputeco/tutor/pkg/compaction"
	"github.com/papercomputeco/tutor/pkg/correction"
	"github.com/papercomputeco/tutor/pkg/eventstream"
	"github.com/papercomputeco/tutor/pkg/llm"
	"github.com/papercomputeco/tutor/pkg/logger"
	"github.com/papercomputeco/tutor/pkg/memory"
	"github.com/papercomputeco/tutor/pkg/profile"
	"github.com/papercomputeco/tutor/pkg/storage"
)

var (
	// ErrGenerationFailed wraps any generator transport or API failure.
	ErrGenerationFailed = errors.New("generation failed")

	ErrMissingThreadID = errors.New("thread id is required")
	ErrMissingUserID   = memory.ErrMissingUserID
	ErrEmptyMessage    = errors.New("message is empty")
)

// TurnRequest is the input of one turn.
type TurnRequest struct {
	ThreadID string
	UserID   string
	Text     string
}

// TurnOutcome is everything a turn produced.
type TurnOutcome struct {
	Result       *correction.Result     `json:"result"`
	CheckpointID string                 `json:"checkpointId,omitempty"`
	MessageCount int                    `json:"messageCount"`
	Compacted    bool                   `json:"compacted"`
	Assessment   *correction.Assessment `json:"assessment,omitempty"`
}

// Pipeline executes turns.
type Pipeline struct {
	generator   llm.Generator
	checkpoints *checkpoint.Log
	messages    storage.MessageStore
	mistakes    *memory.Store
	profiles    *profile.Service
	context     *adaptive.Builder
	compactor   *compaction.Compactor
	pool        *worker.Pool

	timeout     time.Duration
	maxTokens   int
	temperature float64

	locks  *threadLocks
	logger *slog.Logger
	now    func() time.Time
}

// New creates a turn pipeline.
func New(c Config) (*Pipeline, error) {
	if c.Generator == nil {
		return nil, errors.New("pipeline requires a generator")
	}
	if c.Checkpoints == nil {
		return nil, errors.New("pipeline requires a checkpoint log")
	}
	if c.Messages == nil {
		return nil, errors.New("pipeline requires a message store")
	}
	if c.Mistakes == nil {
		return nil, errors.New("pipeline requires a mistake store")
	}

	p := &Pipeline{
		generator:   c.Generator,
		checkpoints: c.Checkpoints,
		messages:    c.Messages,
		mistakes:    c.Mistakes,
		profiles:    c.Profiles,
		context:     c.Context,
		compactor:   c.Compactor,
		pool:        c.Pool,
		timeout:     c.GenerationTimeout,
		maxTokens:   c.MaxTokens,
		temperature: c.Temperature,
		locks:       newThreadLocks(),
		logger:      c.Logger,
		now:         c.Now,
	}
	if p.compactor == nil {
		p.compactor = compaction.New(compaction.Config{Generator: c.Generator, Logger: c.Logger})
	}
	if p.timeout <= 0 {
		p.timeout = DefaultGenerationTimeout
	}
	if p.maxTokens <= 0 {
		p.maxTokens = DefaultMaxTokens
	}
	if p.temperature <= 0 {
		p.temperature = DefaultTemperature
	}
	if p.logger == nil {
		p.logger = logger.Nop()
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p, nil
}

// RunTurn runs one turn and returns the correction shown to the learner.
func (p *Pipeline) RunTurn(ctx context.Context, threadID, userID, text string) (*correction.Result, error) {
	out, err := p.Run(ctx, TurnRequest{ThreadID: threadID, UserID: userID, Text: text})
	if err != nil {
		return nil, err
	}
	return out.Result, nil
}

// Run runs one turn. Only validation, lock acquisition, state loading and
// generation can fail; later steps log their errors and carry on.
func (p *Pipeline) Run(ctx context.Context, req TurnRequest) (*TurnOutcome, error) {
	switch {
	case req.ThreadID == "":
		return nil, ErrMissingThreadID
	case req.UserID == "":
		return nil, ErrMissingUserID
	case strings.TrimSpace(req.Text) == "":
		return nil, ErrEmptyMessage
	}

	started := p.now()
	log := p.logger.With("thread_id", req.ThreadID, "user_id", req.UserID)

	unlock, err := p.locks.Lock(ctx, req.ThreadID)
	if err != nil {
		return nil, fmt.Errorf("waiting for thread %s: %w", req.ThreadID, err)
	}
	defer unlock()

	// 1. Working state
	state, err := p.loadState(ctx, req.ThreadID, req.UserID)
	if err != nil {
		return nil, err
	}
	state.Messages = append(state.Messages, llm.NewUserMessage(req.Text))

	// 2. Learner context
	level := profile.DefaultLevel
	if p.profiles != nil {
		if prof, err := p.profiles.GetOrCreate(ctx, req.UserID); err != nil {
			log.Warn("profile unavailable, assuming default level", "error", err)
		} else {
			level = prof.Level
			state.MistakeSnapshot = slices.Clone(prof.RecurringMistakes)
		}
	}
	adaptiveContext := ""
	if p.context != nil {
		adaptiveContext = p.context.BuildContext(ctx, req.UserID)
	}

	// 3. Generation
	resp, err := p.generate(ctx, SystemPrompt(adaptiveContext, state.Summary), state.Messages)
	if err != nil {
		log.Error("generation failed", "provider", p.generator.Name(), "error", err)
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	result, perr := correction.Parse(resp.Text)
	if perr != nil {
		log.Warn("model output could not be parsed, returning degraded result",
			"error", perr,
			"raw_len", len(resp.Text),
		)
		result = correction.Degraded(req.Text, resp.Text)
	}

	// 4. Assistant message
	encoded, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encoding correction: %w", err)
	}
	state.Messages = append(state.Messages, llm.NewAssistantMessage(string(encoded)))
	state.MessageCount += 2
	state.Correction = result

	// The turn has produced its answer: finish it regardless of the caller.
	bg := context.WithoutCancel(ctx)
	finishedAt := p.now()

	p.appendTranscript(bg, log, req, string(encoded), finishedAt)

	// 5. Memory update
	var (
		category        string
		becameRecurring bool
	)
	if result.HasMistake() {
		category, _ = memory.ParseCategory(*result.MistakeType)
		up, err := p.mistakes.Upsert(bg, req.UserID, *result.MistakePattern, result.OriginalText, *result.MistakeType)
		if err != nil {
			log.Error("memory update failed", "pattern", *result.MistakePattern, "error", err)
		} else if up.BecameRecurring {
			becameRecurring = true
			result.Insight = up.Insight
		}
	}

	assessment := correction.Assess(result, level)
	if !result.Degraded && !assessment.Valid {
		log.Debug("response outside level expectations",
			"level", assessment.Level,
			"violations", assessment.Violations,
			"score", assessment.Score,
		)
	}

	// 6. Compaction
	compacted, fallback := false, false
	if p.compactor.ShouldCompact(state.MessageCount) {
		out := p.compactor.Compact(bg, state.Messages, state.Summary)
		if out.Compacted {
			state.Summary = out.Summary
			state.Messages = out.Tail
			compacted, fallback = true, out.Fallback
			log.Info("conversation compacted",
				"message_count", state.MessageCount,
				"kept", len(out.Tail),
				"fallback", out.Fallback,
			)
		}
	}

	// 7. Checkpoint
	metadata := map[string]any{
		"step":          "turn",
		"provider":      p.generator.Name(),
		"degraded":      result.Degraded,
		"compacted":     compacted,
		"quality_score": assessment.Score,
	}
	if fallback {
		metadata["summary_fallback"] = true
	}
	checkpointID, err := p.checkpoints.Append(bg, req.ThreadID, state, metadata)
	if err != nil {
		log.Error("checkpoint failed", "error", err)
	}

	if p.pool != nil {
		p.pool.Enqueue(worker.Job{
			ThreadID: req.ThreadID,
			UserID:   req.UserID,
			Category: category,
			Event: eventstream.NewTurnCompletedEvent(
				eventstream.EventSource{Provider: p.generator.Name(), Model: resp.Model},
				eventstream.TurnThreadMeta{
					ThreadID:     req.ThreadID,
					UserID:       req.UserID,
					CheckpointID: checkpointID,
					MessageCount: state.MessageCount,
					Compacted:    compacted,
					StartedAt:    started,
					CompletedAt:  finishedAt,
					DurationMs:   finishedAt.Sub(started).Milliseconds(),
				},
				eventstream.TurnCorrection{
					MistakeType:     deref(result.MistakeType),
					MistakePattern:  deref(result.MistakePattern),
					Category:        category,
					BecameRecurring: becameRecurring,
					Degraded:        result.Degraded,
					QualityScore:    assessment.Score,
				},
			),
		})
	}

	log.Debug("turn complete",
		"message_count", state.MessageCount,
		"checkpoint_id", checkpointID,
		"duration", p.now().Sub(started),
	)

	return &TurnOutcome{
		Result:       result,
		CheckpointID: checkpointID,
		MessageCount: state.MessageCount,
		Compacted:    compacted,
		Assessment:   assessment,
	}, nil
}

// loadState resumes from the newest checkpoint, or from the transcript
// when the thread has none.
func (p *Pipeline) loadState(ctx context.Context, threadID, userID string) (*storage.ConversationState, error) {
	latest, err := p.checkpoints.Latest(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("loading latest checkpoint: %w", err)
	}

	if latest != nil {
		return &storage.ConversationState{
			ThreadID:     threadID,
			UserID:       userID,
			Messages:     slices.Clone(latest.State.Messages),
			Summary:      latest.State.Summary,
			MessageCount: latest.MessageCount,
		}, nil
	}

	transcript, err := p.messages.ListMessages(ctx, threadID, 0)
	if err != nil {
		return nil, fmt.Errorf("loading transcript: %w", err)
	}

	msgs := make([]llm.Message, 0, len(transcript)+2)
	for _, m := range transcript {
		msgs = append(msgs, llm.Message{Role: m.Role, Content: m.Content})
	}
	msgs = llm.Conversational(msgs)

	return &storage.ConversationState{
		ThreadID:     threadID,
		UserID:       userID,
		Messages:     msgs,
		MessageCount: len(msgs),
	}, nil
}

func (p *Pipeline) generate(ctx context.Context, system string, messages []llm.Message) (*llm.GenerateResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	return p.generator.Generate(ctx, &llm.GenerateRequest{
		System:      system,
		Messages:    messages,
		MaxTokens:   p.maxTokens,
		Temperature: p.temperature,
	})
}

func (p *Pipeline) appendTranscript(ctx context.Context, log *slog.Logger, req TurnRequest, assistant string, at time.Time) {
	err := p.messages.AppendMessages(ctx,
		&storage.ChatMessage{ThreadID: req.ThreadID, UserID: req.UserID, Role: llm.RoleUser, Content: req.Text, CreatedAt: at},
		&storage.ChatMessage{ThreadID: req.ThreadID, UserID: req.UserID, Role: llm.RoleAssistant, Content: assistant, CreatedAt: at},
	)
	if err != nil {
		log.Error("transcript append failed", "error", err)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
