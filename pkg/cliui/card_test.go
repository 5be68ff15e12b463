package cliui_test

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tutor/pkg/cliui"
	"github.com/papercomputeco/tutor/pkg/correction"
)

var _ = Describe("CorrectionMarkdown", func() {
	mistakeType := "grammar:tense"
	pattern := "tense-confusion"

	result := func() *correction.Result {
		return &correction.Result{
			OriginalText:      "I go school yesterday",
			CorrectedText:     "I went to school yesterday",
			KoreanExplanation: "과거 시제를 사용해야 합니다.",
			Alternatives: []correction.Alternative{
				{Type: correction.Formal, Text: "I attended school yesterday."},
				{Type: correction.Casual, Text: "I went to school yesterday."},
				{Type: correction.Idiomatic, Text: "I hit the books at school yesterday."},
			},
			MistakeType:    &mistakeType,
			MistakePattern: &pattern,
		}
	}

	It("shows the correction, classification and alternatives", func() {
		md := cliui.CorrectionMarkdown(result())
		Expect(md).To(ContainSubstring("~~I go school yesterday~~"))
		Expect(md).To(ContainSubstring("**→ I went to school yesterday**"))
		Expect(md).To(ContainSubstring("`grammar:tense` · `tense-confusion`"))
		Expect(md).To(ContainSubstring("- **Idiomatic**: I hit the books at school yesterday."))
		Expect(md).NotTo(ContainSubstring("---"))
	})

	It("appends the insight", func() {
		r := result()
		r.Insight = "반복되는 실수 패턴 발견!"
		Expect(cliui.CorrectionMarkdown(r)).To(HaveSuffix("---\n\n반복되는 실수 패턴 발견!\n"))
	})

	It("marks sentences that needed no change", func() {
		r := result()
		r.CorrectedText = r.OriginalText
		r.MistakeType, r.MistakePattern = nil, nil
		md := cliui.CorrectionMarkdown(r)
		Expect(md).To(HavePrefix("**✓ I go school yesterday**"))
		Expect(md).NotTo(ContainSubstring("`"))
	})

	It("shows degraded results verbatim", func() {
		md := cliui.CorrectionMarkdown(correction.Degraded("hi", "plain model text"))
		Expect(md).To(ContainSubstring(correction.UnparsableExplanation))
		Expect(md).To(HaveSuffix("plain model text\n"))
	})
})

var _ = Describe("RenderCorrection", func() {
	It("renders the card text for the terminal", func() {
		pattern := "article-usage"
		mistakeType := "grammar:article"
		out := cliui.RenderCorrection(&correction.Result{
			OriginalText:      "I bought apple",
			CorrectedText:     "I bought an apple",
			KoreanExplanation: "셀 수 있는 명사 앞에는 관사가 필요합니다.",
			MistakeType:       &mistakeType,
			MistakePattern:    &pattern,
		})
		Expect(out).NotTo(BeEmpty())
		Expect(out).To(ContainSubstring("apple"))
		Expect(out).To(ContainSubstring("관사가"))
	})
})

var _ = Describe("helpers", func() {
	It("formats durations", func() {
		Expect(cliui.FormatDuration(12 * time.Millisecond)).To(Equal("12ms"))
		Expect(cliui.FormatDuration(3200 * time.Millisecond)).To(Equal("3.2s"))
	})

	It("marks errors", func() {
		Expect(cliui.Mark(nil)).To(Equal(cliui.SuccessMark))
		Expect(cliui.Mark(errors.New("x"))).To(Equal(cliui.FailMark))
	})
})
