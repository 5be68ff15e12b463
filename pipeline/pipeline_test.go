package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tutor/pipeline"
	"github.com/papercomputeco/tutor/pipeline/worker"
	"github.com/papercomputeco/tutor/pkg/adaptive"
	"github.com/papercomputeco/tutor/pkg/checkpoint"
	"github.com/papercomputeco/tutor/pkg/compaction"
	"github.com/papercomputeco/tutor/pkg/correction"
	"github.com/papercomputeco/tutor/pkg/llm"
	"github.com/papercomputeco/tutor/pkg/memory"
	"github.com/papercomputeco/tutor/pkg/profile"
	"github.com/papercomputeco/tutor/pkg/stats"
	"github.com/papercomputeco/tutor/pkg/storage"
	"github.com/papercomputeco/tutor/pkg/storage/inmemory"
	testutils "github.com/papercomputeco/tutor/pkg/utils/test"
)

const summaryText = "요약: 학생이 시제를 반복해서 틀렸습니다."

// tutorResponder answers summarization requests with summaryText and every
// other request with a tense correction of the last user message.
func tutorResponder(req *llm.GenerateRequest) (string, error) {
	if req.System == compaction.Instruction {
		return summaryText, nil
	}
	text := llm.LastUserText(req.Messages)
	return "Here is my correction:\n```json\n" +
		testutils.CorrectionJSON(text, "I went to school yesterday", "grammar:tense", "tense-confusion") +
		"\n```", nil
}

var _ = Describe("Pipeline", func() {
	var (
		ctx         context.Context
		driver      *inmemory.Driver
		gen         *testutils.MockGenerator
		publisher   *testutils.MockPublisher
		mistakes    *memory.Store
		checkpoints *checkpoint.Log
		recorder    *stats.Recorder
		pool        *worker.Pool
		p           *pipeline.Pipeline
	)

	build := func() *pipeline.Pipeline {
		var err error
		mistakes, err = memory.NewStore(memory.Config{Store: driver})
		Expect(err).NotTo(HaveOccurred())

		profiles := profile.NewService(profile.Config{Store: driver, Mistakes: mistakes})
		checkpoints = checkpoint.NewLog(driver)
		recorder = stats.NewRecorder(driver)

		pool, err = worker.NewPool(&worker.Config{Publisher: publisher, Stats: recorder})
		Expect(err).NotTo(HaveOccurred())

		pl, err := pipeline.New(pipeline.Config{
			Generator:   gen,
			Checkpoints: checkpoints,
			Messages:    driver,
			Mistakes:    mistakes,
			Profiles:    profiles,
			Context:     adaptive.NewBuilder(adaptive.Config{Profiles: profiles, Mistakes: mistakes}),
			Compactor:   compaction.New(compaction.Config{Generator: gen}),
			Pool:        pool,
		})
		Expect(err).NotTo(HaveOccurred())
		return pl
	}

	BeforeEach(func() {
		ctx = context.Background()
		driver = inmemory.NewDriver()
		gen = &testutils.MockGenerator{Respond: tutorResponder}
		publisher = testutils.NewMockPublisher()
		p = build()
	})

	AfterEach(func() {
		pool.Close()
	})

	Describe("New", func() {
		It("requires its collaborators", func() {
			_, err := pipeline.New(pipeline.Config{})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("validation", func() {
		It("requires a thread, a user and a message", func() {
			_, err := p.RunTurn(ctx, "", "u1", "hi")
			Expect(errors.Is(err, pipeline.ErrMissingThreadID)).To(BeTrue())

			_, err = p.RunTurn(ctx, "t1", "", "hi")
			Expect(errors.Is(err, pipeline.ErrMissingUserID)).To(BeTrue())

			_, err = p.RunTurn(ctx, "t1", "u1", "   ")
			Expect(errors.Is(err, pipeline.ErrEmptyMessage)).To(BeTrue())

			Expect(gen.Calls()).To(Equal(0))
		})
	})

	Describe("scenario: a first turn on an empty thread", func() {
		It("returns a classified correction and records the mistake once", func() {
			result, err := p.RunTurn(ctx, "t1", "u1", "I go school yesterday")
			Expect(err).NotTo(HaveOccurred())

			Expect(*result.MistakeType).To(HavePrefix("grammar:"))
			Expect(result.MistakePattern).NotTo(BeNil())
			Expect(result.Insight).To(BeEmpty())

			m, err := driver.GetMistake(ctx, "u1", "tense-confusion")
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Count).To(Equal(1))
			Expect(m.Examples).To(Equal([]string{"I go school yesterday"}))
		})

		It("sends the system prompt with adaptive context and the user message", func() {
			_, err := p.RunTurn(ctx, "t1", "u1", "I go school yesterday")
			Expect(err).NotTo(HaveOccurred())

			req := gen.Requests[0]
			Expect(req.System).To(ContainSubstring("expert English tutor"))
			Expect(req.System).To(ContainSubstring("User Profile:\n- Level: DETAILED"))
			Expect(req.System).NotTo(ContainSubstring("{USER_PROFILE_CONTEXT}"))
			Expect(req.Messages).To(Equal([]llm.Message{llm.NewUserMessage("I go school yesterday")}))
		})

		It("checkpoints the post-turn state", func() {
			_, err := p.RunTurn(ctx, "t1", "u1", "I go school yesterday")
			Expect(err).NotTo(HaveOccurred())

			latest, err := checkpoints.Latest(ctx, "t1")
			Expect(err).NotTo(HaveOccurred())
			Expect(latest.MessageCount).To(Equal(2))
			Expect(latest.State.Messages).To(HaveLen(2))
			Expect(latest.State.Messages[1].Role).To(Equal(llm.RoleAssistant))
			Expect(latest.State.Correction).NotTo(BeNil())
			Expect(latest.Metadata).To(HaveKeyWithValue("provider", "mock"))
		})

		It("persists the transcript", func() {
			_, err := p.RunTurn(ctx, "t1", "u1", "I go school yesterday")
			Expect(err).NotTo(HaveOccurred())

			msgs, err := driver.ListMessages(ctx, "t1", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(msgs).To(HaveLen(2))
			Expect(msgs[0].Content).To(Equal("I go school yesterday"))
			Expect(msgs[1].Content).To(ContainSubstring(`"correctedText":"I went to school yesterday"`))
		})

		It("publishes the turn and records stats", func() {
			_, err := p.RunTurn(ctx, "t1", "u1", "I go school yesterday")
			Expect(err).NotTo(HaveOccurred())
			pool.Close()

			events := publisher.Events()
			Expect(events).To(HaveLen(1))
			Expect(events[0].Thread.ThreadID).To(Equal("t1"))
			Expect(events[0].Correction.Category).To(Equal("grammar"))

			report, err := recorder.Range(ctx, "u1", 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.TotalMistakes).To(Equal(1))
		})
	})

	Describe("scenario: a repeated mistake", func() {
		It("attaches the insight exactly at the third occurrence", func() {
			var insights []string
			for i := range 4 {
				result, err := p.RunTurn(ctx, fmt.Sprintf("thread-%d", i), "u1", "I go school yesterday")
				Expect(err).NotTo(HaveOccurred())
				insights = append(insights, result.Insight)
			}

			Expect(insights[0]).To(BeEmpty())
			Expect(insights[1]).To(BeEmpty())
			Expect(insights[2]).To(ContainSubstring("반복되는 실수 패턴 발견!"))
			Expect(insights[2]).To(ContainSubstring("(3회)"))
			Expect(insights[3]).To(BeEmpty())
		})

		It("feeds recent mistakes back into the adaptive context", func() {
			for range 2 {
				_, err := p.RunTurn(ctx, "t1", "u1", "I go school yesterday")
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(gen.LastRequest().System).NotTo(ContainSubstring("tense-confusion (2x)"))

			_, err := p.RunTurn(ctx, "t1", "u1", "I go school yesterday")
			Expect(err).NotTo(HaveOccurred())

			var last *llm.GenerateRequest
			for _, r := range gen.Requests {
				if r.System != compaction.Instruction {
					last = r
				}
			}
			Expect(last.System).To(ContainSubstring("tense-confusion (2x)"))
		})
	})

	Describe("scenario: compaction", func() {
		It("compacts when the thread passes the threshold", func() {
			for i := range 3 {
				_, err := p.RunTurn(ctx, "t1", "u1", fmt.Sprintf("message %d", i))
				Expect(err).NotTo(HaveOccurred())
			}

			latest, err := checkpoints.Latest(ctx, "t1")
			Expect(err).NotTo(HaveOccurred())
			Expect(latest.MessageCount).To(Equal(6))
			Expect(latest.State.Summary).To(Equal(summaryText))
			Expect(latest.State.Messages).To(HaveLen(3))
			Expect(latest.Metadata).To(HaveKeyWithValue("compacted", true))
		})

		It("resumes a thread from its transcript and compacts it", func() {
			for i := range 6 {
				role := llm.RoleUser
				if i%2 == 1 {
					role = llm.RoleAssistant
				}
				Expect(driver.AppendMessages(ctx, &storage.ChatMessage{
					ThreadID: "legacy", UserID: "u1", Role: role, Content: fmt.Sprintf("old %d", i),
				})).To(Succeed())
			}

			out, err := p.Run(ctx, pipeline.TurnRequest{ThreadID: "legacy", UserID: "u1", Text: "I go school yesterday"})
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Compacted).To(BeTrue())
			Expect(out.MessageCount).To(Equal(8))

			latest, err := checkpoints.Latest(ctx, "legacy")
			Expect(err).NotTo(HaveOccurred())
			Expect(latest.State.Summary).NotTo(BeEmpty())
			Expect(latest.State.Messages).To(HaveLen(3))
		})

		It("sends the summary on the following turn", func() {
			for i := range 4 {
				_, err := p.RunTurn(ctx, "t1", "u1", fmt.Sprintf("message %d", i))
				Expect(err).NotTo(HaveOccurred())
			}

			var turnRequests []*llm.GenerateRequest
			for _, r := range gen.Requests {
				if r.System != compaction.Instruction {
					turnRequests = append(turnRequests, r)
				}
			}
			last := turnRequests[len(turnRequests)-1]
			Expect(last.System).To(ContainSubstring("Previous conversation summary:\n" + summaryText))
			Expect(last.Messages).To(HaveLen(4))
		})

		It("keeps the message count monotonic across compactions", func() {
			var counts []int
			for i := range 6 {
				out, err := p.Run(ctx, pipeline.TurnRequest{ThreadID: "t1", UserID: "u1", Text: fmt.Sprintf("m%d", i)})
				Expect(err).NotTo(HaveOccurred())
				counts = append(counts, out.MessageCount)
			}
			Expect(counts).To(Equal([]int{2, 4, 6, 8, 10, 12}))

			latest, err := checkpoints.Latest(ctx, "t1")
			Expect(err).NotTo(HaveOccurred())
			Expect(len(latest.State.Messages)).To(BeNumerically("<=", 5))
		})

		It("falls back when the summarizer fails", func() {
			gen.Respond = func(req *llm.GenerateRequest) (string, error) {
				if req.System == compaction.Instruction {
					return "", errors.New("summarizer down")
				}
				return tutorResponder(req)
			}

			for i := range 3 {
				_, err := p.RunTurn(ctx, "t1", "u1", fmt.Sprintf("message %d", i))
				Expect(err).NotTo(HaveOccurred())
			}

			latest, err := checkpoints.Latest(ctx, "t1")
			Expect(err).NotTo(HaveOccurred())
			Expect(latest.State.Summary).To(HavePrefix("대화 3개 메시지 요약: message 0, "))
			Expect(latest.Metadata).To(HaveKeyWithValue("summary_fallback", true))
		})
	})

	Describe("unparsable output", func() {
		It("returns a degraded result and still checkpoints", func() {
			gen.Respond = func(*llm.GenerateRequest) (string, error) {
				return "Sorry, I can only chat today.", nil
			}

			result, err := p.RunTurn(ctx, "t1", "u1", "I has a cat")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Degraded).To(BeTrue())
			Expect(result.OriginalText).To(Equal("I has a cat"))
			Expect(result.CorrectedText).To(Equal("Sorry, I can only chat today."))
			Expect(result.KoreanExplanation).To(Equal(correction.UnparsableExplanation))
			Expect(result.Alternatives).To(BeEmpty())

			all, err := mistakes.All(ctx, "u1")
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(BeEmpty())

			latest, err := checkpoints.Latest(ctx, "t1")
			Expect(err).NotTo(HaveOccurred())
			Expect(latest.Metadata).To(HaveKeyWithValue("degraded", true))
		})

		It("does not record a mistake without a pattern", func() {
			gen.Respond = func(*llm.GenerateRequest) (string, error) {
				return testutils.CorrectionJSON("Hello", "Hello", "grammar:none", ""), nil
			}
			_, err := p.RunTurn(ctx, "t1", "u1", "Hello")
			Expect(err).NotTo(HaveOccurred())

			all, err := mistakes.All(ctx, "u1")
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(BeEmpty())
		})
	})

	Describe("generation failure", func() {
		It("returns ErrGenerationFailed and persists nothing", func() {
			gen.Fail = true

			_, err := p.RunTurn(ctx, "t1", "u1", "I go school yesterday")
			Expect(errors.Is(err, pipeline.ErrGenerationFailed)).To(BeTrue())
			Expect(errors.Is(err, testutils.ErrMockGeneration)).To(BeTrue())

			latest, err := checkpoints.Latest(ctx, "t1")
			Expect(err).NotTo(HaveOccurred())
			Expect(latest).To(BeNil())

			msgs, err := driver.ListMessages(ctx, "t1", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(msgs).To(BeEmpty())
		})

		It("bounds generation with the timeout", func() {
			gen.Delay = time.Second
			pl, err := pipeline.New(pipeline.Config{
				Generator:         gen,
				Checkpoints:       checkpoints,
				Messages:          driver,
				Mistakes:          mistakes,
				GenerationTimeout: 20 * time.Millisecond,
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = pl.RunTurn(ctx, "t1", "u1", "hello")
			Expect(errors.Is(err, pipeline.ErrGenerationFailed)).To(BeTrue())
			Expect(errors.Is(err, context.DeadlineExceeded)).To(BeTrue())
		})
	})

	Describe("cancellation", func() {
		It("completes the memory update when the caller goes away after generation", func() {
			cctx, cancel := context.WithCancel(ctx)
			gen.Respond = func(req *llm.GenerateRequest) (string, error) {
				cancel()
				return tutorResponder(req)
			}

			result, err := p.RunTurn(cctx, "t1", "u1", "I go school yesterday")
			Expect(err).NotTo(HaveOccurred())
			Expect(result).NotTo(BeNil())

			m, err := driver.GetMistake(ctx, "u1", "tense-confusion")
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Count).To(Equal(1))

			latest, err := checkpoints.Latest(ctx, "t1")
			Expect(err).NotTo(HaveOccurred())
			Expect(latest).NotTo(BeNil())
		})

		It("fails fast when the caller is already gone", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			gen.Delay = time.Second

			_, err := p.RunTurn(cctx, "t1", "u1", "hello")
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		})
	})

	Describe("concurrency", func() {
		It("serializes turns on one thread without losing messages", func() {
			var wg sync.WaitGroup
			for i := range 8 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					defer GinkgoRecover()
					_, err := p.RunTurn(ctx, "shared", "u1", fmt.Sprintf("message %d", i))
					Expect(err).NotTo(HaveOccurred())
				}()
			}
			wg.Wait()

			latest, err := checkpoints.Latest(ctx, "shared")
			Expect(err).NotTo(HaveOccurred())
			Expect(latest.MessageCount).To(Equal(16))

			all, err := checkpoints.List(ctx, "shared", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(8))
			for i := 1; i < len(all); i++ {
				Expect(all[i-1].MessageCount).To(Equal(all[i].MessageCount + 2))
			}

			m, err := driver.GetMistake(ctx, "u1", "tense-confusion")
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Count).To(Equal(8))
		})

		It("runs different threads in parallel", func() {
			gen.Delay = 100 * time.Millisecond

			start := time.Now()
			var wg sync.WaitGroup
			for i := range 4 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					defer GinkgoRecover()
					_, err := p.RunTurn(ctx, fmt.Sprintf("parallel-%d", i), "u1", "hello")
					Expect(err).NotTo(HaveOccurred())
				}()
			}
			wg.Wait()

			Expect(time.Since(start)).To(BeNumerically("<", 350*time.Millisecond))
		})
	})
})

var _ = Describe("SystemPrompt", func() {
	It("substitutes the adaptive context", func() {
		prompt := pipeline.SystemPrompt("\nUser Profile:\n- Level: CONCISE", "")
		Expect(prompt).To(ContainSubstring("- Level: CONCISE"))
		Expect(prompt).NotTo(ContainSubstring("{USER_PROFILE_CONTEXT}"))
		Expect(prompt).NotTo(ContainSubstring("Previous conversation summary"))
	})

	It("appends the summary", func() {
		prompt := pipeline.SystemPrompt("", "earlier")
		Expect(strings.HasSuffix(prompt, "Previous conversation summary:\nearlier")).To(BeTrue())
	})
})
