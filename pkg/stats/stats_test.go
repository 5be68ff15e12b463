package stats_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tutor/pkg/stats"
	"github.com/papercomputeco/tutor/pkg/storage/inmemory"
)

var _ = Describe("Recorder", func() {
	var (
		ctx context.Context
		now time.Time
		rec *stats.Recorder
	)

	BeforeEach(func() {
		ctx = context.Background()
		now = time.Date(2026, 6, 15, 18, 0, 0, 0, time.UTC)
		rec = stats.NewRecorder(inmemory.NewDriver()).WithClock(func() time.Time { return now })
	})

	It("aggregates recorded turns over a range", func() {
		Expect(rec.Record(ctx, "u1", "grammar")).To(Succeed())
		Expect(rec.Record(ctx, "u1", "")).To(Succeed())
		now = now.AddDate(0, 0, -1)
		Expect(rec.Record(ctx, "u1", "vocabulary")).To(Succeed())
		Expect(rec.Record(ctx, "u1", "grammar")).To(Succeed())
		now = now.AddDate(0, 0, 1)

		report, err := rec.Range(ctx, "u1", 7)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Daily).To(HaveLen(2))
		Expect(report.TotalTurns).To(Equal(4))
		Expect(report.TotalMistakes).To(Equal(3))
		Expect(report.Breakdown).To(Equal(map[string]int{"grammar": 2, "vocabulary": 1}))
		Expect(report.MistakeRate).To(BeNumerically("~", 0.75))
	})

	It("includes only today for a one-day range", func() {
		now = now.AddDate(0, 0, -1)
		Expect(rec.Record(ctx, "u1", "grammar")).To(Succeed())
		now = now.AddDate(0, 0, 1)
		Expect(rec.Record(ctx, "u1", "")).To(Succeed())

		report, err := rec.Range(ctx, "u1", 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.TotalTurns).To(Equal(1))
		Expect(report.TotalMistakes).To(Equal(0))
	})

	It("clamps the range", func() {
		report, err := rec.Range(ctx, "u1", 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Days).To(Equal(1))
		Expect(report.Daily).To(BeEmpty())

		report, err = rec.Range(ctx, "u1", 10000)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Days).To(Equal(stats.MaxDays))
	})

	It("requires a user", func() {
		Expect(rec.Record(ctx, "", "")).NotTo(Succeed())
		_, err := rec.Range(ctx, "", 7)
		Expect(err).To(HaveOccurred())
	})
})
