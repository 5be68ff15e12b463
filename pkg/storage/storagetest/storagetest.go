// Package storagetest holds the behaviors every storage.Driver must
// satisfy. Driver packages run them from their own suites.
package storagetest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tutor/pkg/llm"
	"github.com/papercomputeco/tutor/pkg/storage"
)

// DriverBehaviors registers the shared driver tests. newDriver is called
// before each test; the returned driver is closed after it. Keys are
// randomized per test so persistent backends need no cleanup.
func DriverBehaviors(newDriver func(ctx context.Context) storage.Driver) {
	var (
		ctx    context.Context
		driver storage.Driver
		thread string
		user   string
		now    time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = nil
		driver = newDriver(ctx)
		thread = "thread-" + uuid.NewString()
		user = "user-" + uuid.NewString()
		now = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	})

	AfterEach(func() {
		if driver != nil {
			Expect(driver.Close()).To(Succeed())
		}
	})

	newCheckpoint := func(count int) *storage.Checkpoint {
		return &storage.Checkpoint{
			ThreadID: thread,
			ID:       uuid.Must(uuid.NewV7()).String(),
			State: storage.ConversationState{
				ThreadID:     thread,
				UserID:       user,
				Messages:     []llm.Message{llm.NewUserMessage("hi"), llm.NewAssistantMessage("{}")},
				Summary:      "summary",
				MessageCount: count,
			},
			Metadata:     map[string]any{"step": "turn"},
			MessageCount: count,
			CreatedAt:    now.Add(time.Duration(count) * time.Second),
		}
	}

	Describe("checkpoints", func() {
		It("assigns increasing sequence numbers per thread", func() {
			first, err := driver.AppendCheckpoint(ctx, newCheckpoint(2))
			Expect(err).NotTo(HaveOccurred())
			second, err := driver.AppendCheckpoint(ctx, newCheckpoint(4))
			Expect(err).NotTo(HaveOccurred())

			Expect(first.Seq).To(Equal(int64(1)))
			Expect(second.Seq).To(Equal(int64(2)))
		})

		It("round trips state and metadata", func() {
			cp, err := driver.AppendCheckpoint(ctx, newCheckpoint(2))
			Expect(err).NotTo(HaveOccurred())

			got, err := driver.GetCheckpoint(ctx, thread, cp.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.State.Messages).To(Equal(cp.State.Messages))
			Expect(got.State.Summary).To(Equal("summary"))
			Expect(got.State.MessageCount).To(Equal(2))
			Expect(got.Metadata).To(HaveKeyWithValue("step", "turn"))
			Expect(got.CreatedAt.Equal(cp.CreatedAt)).To(BeTrue())
		})

		It("returns NotFoundError for unknown ids", func() {
			_, err := driver.GetCheckpoint(ctx, thread, "missing")
			var notFound storage.NotFoundError
			Expect(errors.As(err, &notFound)).To(BeTrue())
		})

		It("lists newest first and pages with beforeSeq", func() {
			for i := 1; i <= 5; i++ {
				_, err := driver.AppendCheckpoint(ctx, newCheckpoint(i*2))
				Expect(err).NotTo(HaveOccurred())
			}

			page, err := driver.ListCheckpoints(ctx, thread, 0, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(page).To(HaveLen(2))
			Expect(page[0].MessageCount).To(Equal(10))
			Expect(page[1].MessageCount).To(Equal(8))

			next, err := driver.ListCheckpoints(ctx, thread, page[1].Seq, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(next).To(HaveLen(3))
			Expect(next[0].MessageCount).To(Equal(6))
			Expect(next[2].MessageCount).To(Equal(2))
		})

		It("returns an empty list for an unknown thread", func() {
			cps, err := driver.ListCheckpoints(ctx, "no-such-thread-"+uuid.NewString(), 0, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(cps).To(BeEmpty())
		})

		It("deletes a thread with its transcript", func() {
			_, err := driver.AppendCheckpoint(ctx, newCheckpoint(2))
			Expect(err).NotTo(HaveOccurred())
			Expect(driver.AppendMessages(ctx, &storage.ChatMessage{
				ThreadID: thread, UserID: user, Role: llm.RoleUser, Content: "hi", CreatedAt: now,
			})).To(Succeed())

			n, err := driver.DeleteThread(ctx, thread)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(1))

			cps, err := driver.ListCheckpoints(ctx, thread, 0, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(cps).To(BeEmpty())

			msgs, err := driver.ListMessages(ctx, thread, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(msgs).To(BeEmpty())
		})
	})

	Describe("mistakes", func() {
		upsert := func(pattern, example string, at time.Time) *storage.MistakeUpsert {
			out, err := driver.UpsertMistake(ctx, &storage.MistakeInput{
				UserID: user, Pattern: pattern, Category: "grammar", Example: example, Now: at,
			})
			Expect(err).NotTo(HaveOccurred())
			return out
		}

		It("creates a record on first observation", func() {
			out := upsert("tense-confusion", "I go yesterday", now)
			Expect(out.Created).To(BeTrue())
			Expect(out.PriorCount).To(Equal(0))
			Expect(out.Mistake.Count).To(Equal(1))
			Expect(out.Mistake.Examples).To(Equal([]string{"I go yesterday"}))
			Expect(out.Mistake.LastSeen.Equal(now)).To(BeTrue())
		})

		It("increments and reports the prior state", func() {
			upsert("tense-confusion", "a", now)
			out := upsert("tense-confusion", "b", now.Add(time.Hour))

			Expect(out.Created).To(BeFalse())
			Expect(out.PriorCount).To(Equal(1))
			Expect(out.PriorLastSeen.Equal(now)).To(BeTrue())
			Expect(out.Mistake.Count).To(Equal(2))
		})

		It("keeps the five newest distinct examples", func() {
			for _, ex := range []string{"a", "b", "c", "d", "e", "b", "f"} {
				upsert("word-order", ex, now)
			}

			m, err := driver.GetMistake(ctx, user, "word-order")
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Count).To(Equal(7))
			Expect(m.Examples).To(Equal([]string{"c", "d", "e", "b", "f"}))
		})

		It("never loses a count under concurrent upserts", func() {
			var wg sync.WaitGroup
			for range 10 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					defer GinkgoRecover()
					_, err := driver.UpsertMistake(ctx, &storage.MistakeInput{
						UserID: user, Pattern: "article-usage", Category: "grammar", Example: "x", Now: now,
					})
					Expect(err).NotTo(HaveOccurred())
				}()
			}
			wg.Wait()

			m, err := driver.GetMistake(ctx, user, "article-usage")
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Count).To(Equal(10))
		})

		It("lists by count, category and recency", func() {
			upsert("tense-confusion", "a", now)
			upsert("tense-confusion", "b", now)
			upsert("tense-confusion", "c", now)
			upsert("old-pattern", "d", now.AddDate(0, 0, -30))
			_, err := driver.UpsertMistake(ctx, &storage.MistakeInput{
				UserID: user, Pattern: "false-friend", Category: "vocabulary", Example: "e", Now: now,
			})
			Expect(err).NotTo(HaveOccurred())

			all, err := driver.ListMistakes(ctx, storage.MistakeFilter{UserID: user})
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(3))
			Expect(all[0].Pattern).To(Equal("tense-confusion"))

			recent, err := driver.ListMistakes(ctx, storage.MistakeFilter{UserID: user, Since: now.AddDate(0, 0, -7), Limit: 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(recent).To(HaveLen(1))
			Expect(recent[0].Pattern).To(Equal("tense-confusion"))

			vocab, err := driver.ListMistakes(ctx, storage.MistakeFilter{UserID: user, Category: "vocabulary"})
			Expect(err).NotTo(HaveOccurred())
			Expect(vocab).To(HaveLen(1))
			Expect(vocab[0].Pattern).To(Equal("false-friend"))
		})

		It("counts occurrences inside a window", func() {
			upsert("plural-forms", "a", now.AddDate(0, 0, -10))
			upsert("plural-forms", "b", now.AddDate(0, 0, -2))
			upsert("plural-forms", "c", now)

			n, err := driver.CountOccurrences(ctx, user, "plural-forms", now.AddDate(0, 0, -7))
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(2))
		})
	})

	Describe("profiles", func() {
		It("creates once and returns the stored profile afterwards", func() {
			created, err := driver.CreateProfile(ctx, &storage.UserProfile{
				UserID: user, Level: "detailed", CreatedAt: now, UpdatedAt: now,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(created.Level).To(Equal("detailed"))

			again, err := driver.CreateProfile(ctx, &storage.UserProfile{
				UserID: user, Level: "concise", CreatedAt: now, UpdatedAt: now,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(again.Level).To(Equal("detailed"))
		})

		It("updates mutable fields", func() {
			_, err := driver.CreateProfile(ctx, &storage.UserProfile{UserID: user, Level: "detailed", CreatedAt: now, UpdatedAt: now})
			Expect(err).NotTo(HaveOccurred())

			Expect(driver.UpdateProfile(ctx, &storage.UserProfile{
				UserID:       user,
				Level:        "concise",
				LearningGoal: "business English",
				RecurringMistakes: []storage.RecurringMistake{
					{UserID: user, Pattern: "tense-confusion", Count: 3, Examples: []string{"a"}},
				},
				UpdatedAt: now.Add(time.Hour),
			})).To(Succeed())

			got, err := driver.GetProfile(ctx, user)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Level).To(Equal("concise"))
			Expect(got.LearningGoal).To(Equal("business English"))
			Expect(got.RecurringMistakes).To(HaveLen(1))
			Expect(got.CreatedAt.Equal(now)).To(BeTrue())
		})

		It("replaces the mistake cache without touching level or goal", func() {
			_, err := driver.CreateProfile(ctx, &storage.UserProfile{UserID: user, Level: "detailed", CreatedAt: now, UpdatedAt: now})
			Expect(err).NotTo(HaveOccurred())

			Expect(driver.UpdateProfile(ctx, &storage.UserProfile{
				UserID: user, Level: "concise", LearningGoal: "travel", UpdatedAt: now,
			})).To(Succeed())

			Expect(driver.UpdateRecurringMistakes(ctx, user, []storage.RecurringMistake{
				{UserID: user, Pattern: "article-usage", Count: 4, Examples: []string{"a"}},
			}, now.Add(time.Minute))).To(Succeed())

			got, err := driver.GetProfile(ctx, user)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Level).To(Equal("concise"))
			Expect(got.LearningGoal).To(Equal("travel"))
			Expect(got.RecurringMistakes).To(HaveLen(1))
			Expect(got.RecurringMistakes[0].Pattern).To(Equal("article-usage"))
			Expect(got.UpdatedAt.Equal(now.Add(time.Minute))).To(BeTrue())
		})

		It("returns NotFoundError for unknown users", func() {
			_, err := driver.GetProfile(ctx, user)
			var notFound storage.NotFoundError
			Expect(errors.As(err, &notFound)).To(BeTrue())

			err = driver.UpdateProfile(ctx, &storage.UserProfile{UserID: user, Level: "concise"})
			Expect(errors.As(err, &notFound)).To(BeTrue())
		})
	})

	Describe("messages", func() {
		It("lists the most recent messages oldest first", func() {
			for i, text := range []string{"one", "two", "three", "four"} {
				Expect(driver.AppendMessages(ctx, &storage.ChatMessage{
					ThreadID: thread, UserID: user, Role: llm.RoleUser, Content: text,
					CreatedAt: now.Add(time.Duration(i) * time.Second),
				})).To(Succeed())
			}

			all, err := driver.ListMessages(ctx, thread, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(4))
			Expect(all[0].Content).To(Equal("one"))

			tail, err := driver.ListMessages(ctx, thread, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(tail).To(HaveLen(2))
			Expect(tail[0].Content).To(Equal("three"))
			Expect(tail[1].Content).To(Equal("four"))
		})
	})

	Describe("stats", func() {
		It("aggregates turns per day", func() {
			Expect(driver.RecordTurn(ctx, user, now, "grammar")).To(Succeed())
			Expect(driver.RecordTurn(ctx, user, now, "")).To(Succeed())
			Expect(driver.RecordTurn(ctx, user, now, "grammar")).To(Succeed())
			Expect(driver.RecordTurn(ctx, user, now, "vocabulary")).To(Succeed())
			Expect(driver.RecordTurn(ctx, user, now.AddDate(0, 0, -1), "")).To(Succeed())

			stats, err := driver.ListStats(ctx, user, now.AddDate(0, 0, -7))
			Expect(err).NotTo(HaveOccurred())
			Expect(stats).To(HaveLen(2))

			today := stats[1]
			Expect(today.Day).To(Equal("2026-03-14"))
			Expect(today.TotalTurns).To(Equal(4))
			Expect(today.TotalMistakes).To(Equal(3))
			Expect(today.Breakdown).To(Equal(map[string]int{"grammar": 2, "vocabulary": 1}))
			Expect(today.MistakeRate).To(BeNumerically("~", 0.75))

			Expect(stats[0].TotalMistakes).To(Equal(0))
		})

		It("excludes days before since", func() {
			Expect(driver.RecordTurn(ctx, user, now.AddDate(0, 0, -10), "")).To(Succeed())

			stats, err := driver.ListStats(ctx, user, now.AddDate(0, 0, -7))
			Expect(err).NotTo(HaveOccurred())
			Expect(stats).To(BeEmpty())
		})
	})
}
