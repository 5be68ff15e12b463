package memory_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tutor/pkg/memory"
	"github.com/papercomputeco/tutor/pkg/storage/inmemory"
)

// clock is a settable time source.
type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

var _ = Describe("Store", func() {
	var (
		ctx    context.Context
		driver *inmemory.Driver
		clk    *clock
		store  *memory.Store
	)

	newStore := func(policy memory.Policy) *memory.Store {
		s, err := memory.NewStore(memory.Config{
			Store:        driver,
			Policy:       policy,
			Window:       7 * 24 * time.Hour,
			MinFrequency: 3,
			Now:          clk.Now,
		})
		Expect(err).NotTo(HaveOccurred())
		return s
	}

	BeforeEach(func() {
		ctx = context.Background()
		driver = inmemory.NewDriver()
		clk = &clock{t: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)}
		store = newStore(memory.PolicyLastSeen)
	})

	Describe("NewStore", func() {
		It("requires a storage driver", func() {
			_, err := memory.NewStore(memory.Config{})
			Expect(err).To(HaveOccurred())
		})

		It("rejects unknown policies", func() {
			_, err := memory.NewStore(memory.Config{Store: driver, Policy: "forever"})
			Expect(err).To(MatchError(ContainSubstring("forever")))
		})

		It("defaults to the last_seen policy", func() {
			s, err := memory.NewStore(memory.Config{Store: driver})
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Policy()).To(Equal(memory.PolicyLastSeen))
		})
	})

	Describe("Upsert", func() {
		It("rejects a missing user", func() {
			_, err := store.Upsert(ctx, "", "tense-confusion", "x", "grammar:tense")
			Expect(errors.Is(err, memory.ErrMissingUserID)).To(BeTrue())
		})

		It("rejects a missing pattern", func() {
			_, err := store.Upsert(ctx, "u1", "", "x", "grammar:tense")
			Expect(errors.Is(err, memory.ErrMissingPattern)).To(BeTrue())
		})

		It("parses the category from the mistake type", func() {
			up, err := store.Upsert(ctx, "u1", "false-friend", "x", "vocabulary:false-friend")
			Expect(err).NotTo(HaveOccurred())
			Expect(up.Created).To(BeTrue())
			Expect(up.Mistake.Category).To(Equal("vocabulary"))
		})

		It("stores unknown categories as grammar", func() {
			up, err := store.Upsert(ctx, "u1", "odd", "x", "spelling:double-letter")
			Expect(err).NotTo(HaveOccurred())
			Expect(up.Mistake.Category).To(Equal("grammar"))
		})

		It("keeps one record per user and pattern", func() {
			for range 4 {
				_, err := store.Upsert(ctx, "u1", "tense-confusion", "I go yesterday", "grammar:tense")
				Expect(err).NotTo(HaveOccurred())
			}
			_, err := store.Upsert(ctx, "u2", "tense-confusion", "x", "grammar:tense")
			Expect(err).NotTo(HaveOccurred())

			all, err := store.All(ctx, "u1")
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(1))
			Expect(all[0].Count).To(Equal(4))
			Expect(all[0].Examples).To(Equal([]string{"I go yesterday"}))
		})

		Context("with the last_seen policy", func() {
			It("fires the insight exactly when the threshold is crossed", func() {
				var insights []string
				for range 5 {
					up, err := store.Upsert(ctx, "u1", "tense-confusion", "x", "grammar:tense")
					Expect(err).NotTo(HaveOccurred())
					insights = append(insights, up.Insight)
				}

				Expect(insights[0]).To(BeEmpty())
				Expect(insights[1]).To(BeEmpty())
				Expect(insights[2]).To(ContainSubstring("(3회)"))
				Expect(insights[2]).To(ContainSubstring("시제 사용에 주의하세요!"))
				Expect(insights[3]).To(BeEmpty())
				Expect(insights[4]).To(BeEmpty())
			})

			It("fires again after the pattern went stale", func() {
				for range 3 {
					_, err := store.Upsert(ctx, "u1", "word-order", "x", "grammar:order")
					Expect(err).NotTo(HaveOccurred())
				}

				clk.Advance(10 * 24 * time.Hour)
				up, err := store.Upsert(ctx, "u1", "word-order", "x", "grammar:order")
				Expect(err).NotTo(HaveOccurred())
				Expect(up.BecameRecurring).To(BeTrue())
				Expect(up.Insight).To(ContainSubstring("(4회)"))
			})
		})

		Context("with the sliding_window policy", func() {
			BeforeEach(func() {
				store = newStore(memory.PolicySlidingWindow)
			})

			It("only counts observations inside the window", func() {
				for range 2 {
					_, err := store.Upsert(ctx, "u1", "plural-forms", "x", "grammar:plural")
					Expect(err).NotTo(HaveOccurred())
				}

				clk.Advance(8 * 24 * time.Hour)
				up, err := store.Upsert(ctx, "u1", "plural-forms", "x", "grammar:plural")
				Expect(err).NotTo(HaveOccurred())
				Expect(up.Mistake.Count).To(Equal(3))
				Expect(up.BecameRecurring).To(BeFalse())

				_, err = store.Upsert(ctx, "u1", "plural-forms", "x", "grammar:plural")
				Expect(err).NotTo(HaveOccurred())
				up, err = store.Upsert(ctx, "u1", "plural-forms", "x", "grammar:plural")
				Expect(err).NotTo(HaveOccurred())
				Expect(up.BecameRecurring).To(BeTrue())
			})
		})
	})

	Describe("CheckRecurring", func() {
		week := 7 * 24 * time.Hour

		It("returns nil for unknown patterns", func() {
			m, err := store.CheckRecurring(ctx, "u1", "nothing", week, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(m).To(BeNil())
		})

		It("returns nil below the threshold", func() {
			for range 2 {
				_, err := store.Upsert(ctx, "u1", "article-usage", "x", "grammar:article")
				Expect(err).NotTo(HaveOccurred())
			}
			m, err := store.CheckRecurring(ctx, "u1", "article-usage", week, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(m).To(BeNil())
		})

		It("returns the record at the threshold inside the window", func() {
			for range 3 {
				_, err := store.Upsert(ctx, "u1", "article-usage", "x", "grammar:article")
				Expect(err).NotTo(HaveOccurred())
			}
			m, err := store.CheckRecurring(ctx, "u1", "article-usage", week, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(m).NotTo(BeNil())
			Expect(m.Count).To(Equal(3))
		})

		It("returns nil once the pattern is outside the window", func() {
			for range 3 {
				_, err := store.Upsert(ctx, "u1", "article-usage", "x", "grammar:article")
				Expect(err).NotTo(HaveOccurred())
			}
			clk.Advance(8 * 24 * time.Hour)
			m, err := store.CheckRecurring(ctx, "u1", "article-usage", week, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(m).To(BeNil())
		})
	})

	Describe("queries", func() {
		BeforeEach(func() {
			observe := func(pattern, mistakeType string, n int) {
				for range n {
					_, err := store.Upsert(ctx, "u1", pattern, "x", mistakeType)
					Expect(err).NotTo(HaveOccurred())
				}
			}
			observe("tense-confusion", "grammar:tense", 4)
			observe("article-usage", "grammar:article", 2)
			observe("false-friend", "vocabulary:false-friend", 3)
			clk.Advance(30 * 24 * time.Hour)
			observe("word-order", "grammar:order", 1)
		})

		It("returns the top patterns inside the window", func() {
			recent, err := store.Recent(ctx, "u1", 7*24*time.Hour, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(recent).To(HaveLen(1))
			Expect(recent[0].Pattern).To(Equal("word-order"))

			recent, err = store.Recent(ctx, "u1", 60*24*time.Hour, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(recent).To(HaveLen(2))
			Expect(recent[0].Pattern).To(Equal("tense-confusion"))
			Expect(recent[1].Pattern).To(Equal("false-friend"))
		})

		It("filters by category", func() {
			vocab, err := store.ByCategory(ctx, "u1", "vocabulary")
			Expect(err).NotTo(HaveOccurred())
			Expect(vocab).To(HaveLen(1))
			Expect(vocab[0].Pattern).To(Equal("false-friend"))
		})

		It("rejects a missing user", func() {
			_, err := store.All(ctx, "")
			Expect(errors.Is(err, memory.ErrMissingUserID)).To(BeTrue())
		})
	})
})
