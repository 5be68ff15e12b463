package worker_test

import (
	"context"
	"fmt"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tutor/pipeline/worker"
	"github.com/papercomputeco/tutor/pkg/eventstream"
	"github.com/papercomputeco/tutor/pkg/stats"
	"github.com/papercomputeco/tutor/pkg/storage/inmemory"
	testutils "github.com/papercomputeco/tutor/pkg/utils/test"
)

func turnEvent(threadID string, count int) *eventstream.TurnCompletedEvent {
	return eventstream.NewTurnCompletedEvent(
		eventstream.EventSource{Provider: "mock"},
		eventstream.TurnThreadMeta{ThreadID: threadID, UserID: "u1", MessageCount: count},
		eventstream.TurnCorrection{},
	)
}

var _ = Describe("Worker Pool", func() {
	var (
		wp        *worker.Pool
		publisher *testutils.MockPublisher
		recorder  *stats.Recorder
		ctx       context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		publisher = testutils.NewMockPublisher()
		recorder = stats.NewRecorder(inmemory.NewDriver())

		var err error
		wp, err = worker.NewPool(&worker.Config{
			Publisher:  publisher,
			Stats:      recorder,
			NumWorkers: 4,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		wp.Close()
	})

	Describe("Enqueue", func() {
		It("returns true when the queue has capacity", func() {
			Expect(wp.Enqueue(worker.Job{ThreadID: "t1", UserID: "u1", Event: turnEvent("t1", 2)})).To(BeTrue())
		})

		It("drops jobs when the queue is full", func() {
			blocking := &blockingPublisher{release: make(chan struct{})}
			small, err := worker.NewPool(&worker.Config{Publisher: blocking, NumWorkers: 1, QueueSize: 1})
			Expect(err).NotTo(HaveOccurred())

			Expect(small.Enqueue(worker.Job{ThreadID: "t", Event: turnEvent("t", 2)})).To(BeTrue())
			Eventually(blocking.calls.Load).Should(Equal(int32(1)))
			Expect(small.Enqueue(worker.Job{ThreadID: "t", Event: turnEvent("t", 4)})).To(BeTrue())
			Expect(small.Enqueue(worker.Job{ThreadID: "t", Event: turnEvent("t", 6)})).To(BeFalse())

			close(blocking.release)
			small.Close()
		})
	})

	Describe("processing", func() {
		It("publishes events and records stats", func() {
			wp.Enqueue(worker.Job{ThreadID: "t1", UserID: "u1", Category: "grammar", Event: turnEvent("t1", 2)})
			wp.Enqueue(worker.Job{ThreadID: "t1", UserID: "u1", Event: turnEvent("t1", 4)})
			wp.Close()

			Expect(publisher.Events()).To(HaveLen(2))

			report, err := recorder.Range(ctx, "u1", 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.TotalTurns).To(Equal(2))
			Expect(report.TotalMistakes).To(Equal(1))
		})

		It("preserves order within a thread", func() {
			for i := 1; i <= 50; i++ {
				Expect(wp.Enqueue(worker.Job{ThreadID: "ordered", UserID: "u1", Event: turnEvent("ordered", i*2)})).To(BeTrue())
				wp.Enqueue(worker.Job{ThreadID: fmt.Sprintf("other-%d", i), UserID: "u2", Event: turnEvent("other", 0)})
			}
			wp.Close()

			var counts []int
			for _, e := range publisher.Events() {
				if e.Thread.ThreadID == "ordered" {
					counts = append(counts, e.Thread.MessageCount)
				}
			}
			Expect(counts).To(HaveLen(50))
			for i := 1; i < len(counts); i++ {
				Expect(counts[i]).To(BeNumerically(">", counts[i-1]))
			}
		})

		It("keeps going when publishing fails", func() {
			publisher.Fail = true
			wp.Enqueue(worker.Job{ThreadID: "t1", UserID: "u1", Event: turnEvent("t1", 2)})
			wp.Close()

			report, err := recorder.Range(ctx, "u1", 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.TotalTurns).To(Equal(1))
		})
	})

	It("can be closed twice", func() {
		wp.Close()
		Expect(func() { wp.Close() }).NotTo(Panic())
	})
})

// blockingPublisher holds every publish until release is closed.
type blockingPublisher struct {
	release chan struct{}
	calls   atomic.Int32
}

func (b *blockingPublisher) PublishTurn(_ context.Context, _ *eventstream.TurnCompletedEvent) error {
	b.calls.Add(1)
	<-b.release
	return nil
}

func (b *blockingPublisher) Close() error { return nil }
