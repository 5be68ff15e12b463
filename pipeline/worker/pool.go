// Package worker provides an asynchronous worker pool for the side effects
// of a completed turn: publishing the turn event and folding the turn into
// the learner's daily stats.
//
// The pool decouples these side effects from the turn's hot path. Jobs are
// sharded by thread, so the side effects of one thread run in turn order.
package worker

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
	"sync"

	"github.com/papercomputeco/tutor/pkg/eventstream"
	"github.com/papercomputeco/tutor/pkg/logger"
	"github.com/papercomputeco/tutor/pkg/stats"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
)

// Job is a unit of work for the worker pool to execute against.
type Job struct {
	ThreadID string
	UserID   string

	// Category is the mistake category of the turn, empty when the
	// learner's input was correct.
	Category string

	// Event is published when a publisher is configured.
	Event *eventstream.TurnCompletedEvent
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Publisher receives turn events. Optional.
	Publisher eventstream.Publisher

	// Stats records daily learning aggregates. Optional.
	Stats *stats.Recorder

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of each worker's buffered job channel (defaults to 256).
	QueueSize uint

	Logger *slog.Logger
}

// Pool processes turn side effects asynchronously.
type Pool struct {
	config *Config
	queues []chan Job
	wg     sync.WaitGroup
	logger *slog.Logger

	closeOnce sync.Once
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	wp := &Pool{
		config: c,
		queues: make([]chan Job, c.NumWorkers),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		wp.queues[i] = make(chan Job, c.QueueSize)
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker owning its thread.
// Returns true if enqueued, false if the queue is full, resulting in the job being dropped
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queues[p.shard(job.ThreadID)] <- job:
		p.logger.Debug("job queued",
			"thread_id", job.ThreadID,
			"user_id", job.UserID,
		)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped",
			"thread_id", job.ThreadID,
			"user_id", job.UserID,
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the API server has stopped.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		for _, q := range p.queues {
			close(q)
		}
		p.wg.Wait()
	})
}

func (p *Pool) shard(threadID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(threadID))
	return int(h.Sum32() % uint32(len(p.queues))) //nolint:gosec // queue count is bounded by NumWorkers
}

// worker is the inner worker thread that continuously pulls jobs off its queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queues[id] {
		p.processJob(job)
	}

	p.logger.Debug("worker stopped", "worker_id", id)
}

// processJob publishes the turn event and records the turn in daily stats.
// Failures are logged; they never affect the turn that produced the job.
func (p *Pool) processJob(job Job) {
	ctx := context.Background()

	if p.config.Publisher != nil && job.Event != nil {
		if err := p.config.Publisher.PublishTurn(ctx, job.Event); err != nil {
			p.logger.Warn("failed to publish turn event",
				"thread_id", job.ThreadID,
				"event_id", job.Event.EventID,
				"error", err,
			)
		} else {
			p.logger.Debug("turn event published",
				"thread_id", job.ThreadID,
				"event_id", job.Event.EventID,
			)
		}
	}

	if p.config.Stats != nil {
		if err := p.config.Stats.Record(ctx, job.UserID, job.Category); err != nil {
			p.logger.Warn("failed to record learning stats",
				"user_id", job.UserID,
				"error", err,
			)
		}
	}
}
