package adaptive_test

import (
	"context"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tutor/pkg/adaptive"
	"github.com/papercomputeco/tutor/pkg/memory"
	"github.com/papercomputeco/tutor/pkg/profile"
	"github.com/papercomputeco/tutor/pkg/storage/inmemory"
)

var _ = Describe("Builder", func() {
	var (
		ctx      context.Context
		mistakes *memory.Store
		profiles *profile.Service
		builder  *adaptive.Builder
		now      time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		now = time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)
		clock := func() time.Time { return now }
		driver := inmemory.NewDriver()

		var err error
		mistakes, err = memory.NewStore(memory.Config{Store: driver, Now: clock})
		Expect(err).NotTo(HaveOccurred())
		profiles = profile.NewService(profile.Config{Store: driver, Mistakes: mistakes, Now: clock})
		builder = adaptive.NewBuilder(adaptive.Config{Profiles: profiles, Mistakes: mistakes})
	})

	observe := func(pattern string, n int) {
		for range n {
			_, err := mistakes.Upsert(ctx, "u1", pattern, "x", "grammar:misc")
			Expect(err).NotTo(HaveOccurred())
		}
	}

	It("renders a new learner without a mistakes section", func() {
		out := builder.BuildContext(ctx, "u1")
		Expect(out).To(HavePrefix("\nUser Profile:\n- Level: DETAILED"))
		Expect(out).NotTo(ContainSubstring("Recent Mistakes"))
		Expect(out).NotTo(ContainSubstring("Learning Goal"))
		Expect(out).To(ContainSubstring("\n\nLevel-Specific Guidance:\n"))
	})

	It("lists the top three recent patterns by count", func() {
		observe("tense-confusion", 4)
		observe("article-usage", 3)
		observe("word-order", 2)
		observe("plural-forms", 1)

		out := builder.BuildContext(ctx, "u1")
		Expect(out).To(ContainSubstring("\n- Recent Mistakes (last 7 days):" +
			"\n  * tense-confusion (4x)" +
			"\n  * article-usage (3x)" +
			"\n  * word-order (2x)"))
		Expect(out).NotTo(ContainSubstring("plural-forms"))
	})

	It("includes the learning goal and level guidance", func() {
		level, goal := profile.LevelConcise, "travel"
		_, err := profiles.Update(ctx, "u1", profile.Update{Level: &level, LearningGoal: &goal})
		Expect(err).NotTo(HaveOccurred())

		out := builder.BuildContext(ctx, "u1")
		Expect(out).To(ContainSubstring("\n- Level: CONCISE"))
		Expect(out).To(ContainSubstring("\n- Learning Goal: travel"))
		Expect(out).To(ContainSubstring("brief feedback"))
	})

	It("omits patterns outside the window", func() {
		observe("tense-confusion", 3)
		now = now.Add(8 * 24 * time.Hour)

		out := builder.BuildContext(ctx, "u1")
		Expect(out).NotTo(ContainSubstring("Recent Mistakes"))
	})

	It("degrades to an empty string when the user is missing", func() {
		Expect(builder.BuildContext(ctx, "")).To(BeEmpty())
	})

	It("degrades to an empty string without its collaborators", func() {
		Expect(adaptive.NewBuilder(adaptive.Config{}).BuildContext(ctx, "u1")).To(BeEmpty())
		Expect(adaptive.NewBuilder(adaptive.Config{Profiles: profiles}).BuildContext(ctx, "u1")).To(BeEmpty())
		Expect(adaptive.NewBuilder(adaptive.Config{Mistakes: mistakes}).BuildContext(ctx, "u1")).To(BeEmpty())

		var unset *adaptive.Builder
		Expect(unset.BuildContext(ctx, "u1")).To(BeEmpty())
	})

	It("is deterministic for the same inputs", func() {
		observe("tense-confusion", 2)
		a := builder.BuildContext(ctx, "u1")
		b := builder.BuildContext(ctx, "u1")
		Expect(a).To(Equal(b))
		Expect(strings.Count(a, "User Profile:")).To(Equal(1))
	})
})
