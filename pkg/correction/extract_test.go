package correction_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tutor/pkg/correction"
)

const validJSON = `{
  "originalText": "I go to school yesterday",
  "correctedText": "I went to school yesterday",
  "koreanExplanation": "과거 시제를 사용해야 합니다.",
  "alternatives": [
    {"type": "Formal", "text": "I attended school yesterday."},
    {"type": "Casual", "text": "I went to school yesterday."},
    {"type": "Idiomatic", "text": "I hit the books at school yesterday."}
  ],
  "mistakeType": "grammar:tense",
  "mistakePattern": "tense-confusion"
}`

var _ = Describe("ExtractJSON", func() {
	It("returns the first balanced object", func() {
		span, err := correction.ExtractJSON(`prefix {"a": {"b": 1}} trailing {"c": 2}`)
		Expect(err).NotTo(HaveOccurred())
		Expect(span).To(Equal(`{"a": {"b": 1}}`))
	})

	It("ignores braces inside strings", func() {
		span, err := correction.ExtractJSON(`{"a": "}{", "b": "\"}"}`)
		Expect(err).NotTo(HaveOccurred())
		Expect(span).To(Equal(`{"a": "}{", "b": "\"}"}`))
	})

	It("tolerates markdown code fences", func() {
		span, err := correction.ExtractJSON("```json\n{\"a\": 1}\n```")
		Expect(err).NotTo(HaveOccurred())
		Expect(span).To(Equal(`{"a": 1}`))
	})

	It("fails when there is no object", func() {
		_, err := correction.ExtractJSON("no json here")
		Expect(errors.Is(err, correction.ErrNoJSON)).To(BeTrue())
	})

	It("fails on an unbalanced object", func() {
		_, err := correction.ExtractJSON(`{"a": {"b": 1}`)
		Expect(errors.Is(err, correction.ErrNoJSON)).To(BeTrue())
	})
})

var _ = Describe("Parse", func() {
	It("parses a valid result", func() {
		result, err := correction.Parse("Here you go:\n" + validJSON)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.CorrectedText).To(Equal("I went to school yesterday"))
		Expect(result.Alternatives).To(HaveLen(3))
		Expect(*result.MistakeType).To(Equal("grammar:tense"))
		Expect(*result.MistakePattern).To(Equal("tense-confusion"))
		Expect(result.HasMistake()).To(BeTrue())
		Expect(result.Degraded).To(BeFalse())
	})

	It("treats null mistake fields as absent", func() {
		result, err := correction.Parse(`{"originalText":"Hi","correctedText":"Hi","koreanExplanation":"완벽합니다.",
			"alternatives":[{"type":"Formal","text":"Hello."},{"type":"Casual","text":"Hey."},{"type":"Idiomatic","text":"Howdy."}],
			"mistakeType":null,"mistakePattern":null}`)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.MistakeType).To(BeNil())
		Expect(result.MistakePattern).To(BeNil())
		Expect(result.HasMistake()).To(BeFalse())
	})

	It("rejects a result missing required fields", func() {
		_, err := correction.Parse(`{"originalText":"Hi"}`)
		Expect(errors.Is(err, correction.ErrInvalidResult)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("correctedText is required"))
	})

	It("rejects the wrong number of alternatives", func() {
		_, err := correction.Parse(`{"originalText":"a","correctedText":"a","koreanExplanation":"a",
			"alternatives":[{"type":"Formal","text":"a"}]}`)
		Expect(errors.Is(err, correction.ErrInvalidResult)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("exactly 3"))
	})

	It("rejects unknown alternative types", func() {
		_, err := correction.Parse(`{"originalText":"a","correctedText":"a","koreanExplanation":"a",
			"alternatives":[{"type":"Formal","text":"a"},{"type":"Casual","text":"b"},{"type":"Slang","text":"c"}]}`)
		Expect(errors.Is(err, correction.ErrInvalidResult)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring(`"Slang"`))
	})

	It("rejects malformed JSON", func() {
		_, err := correction.Parse(`{"originalText": }`)
		Expect(errors.Is(err, correction.ErrInvalidResult)).To(BeTrue())
	})
})

var _ = Describe("Degraded", func() {
	It("uses the raw text as the correction", func() {
		result := correction.Degraded("I has a cat", "  sorry, I cannot help  ")
		Expect(result.OriginalText).To(Equal("I has a cat"))
		Expect(result.CorrectedText).To(Equal("sorry, I cannot help"))
		Expect(result.KoreanExplanation).To(Equal(correction.UnparsableExplanation))
		Expect(result.Alternatives).To(BeEmpty())
		Expect(result.MistakeType).To(BeNil())
		Expect(result.MistakePattern).To(BeNil())
		Expect(result.Degraded).To(BeTrue())
	})
})
