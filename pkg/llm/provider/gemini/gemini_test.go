package gemini

import (
	"github.com/google/generative-ai-go/genai"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tutor/pkg/llm"
)

var _ = Describe("splitHistory", func() {
	It("maps assistant turns to the model role and returns the last user text", func() {
		history, last, err := splitHistory([]llm.Message{
			llm.NewUserMessage("one"),
			llm.NewAssistantMessage("two"),
			llm.NewUserMessage("three"),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(last).To(Equal("three"))
		Expect(history).To(HaveLen(2))
		Expect(history[0].Role).To(Equal("user"))
		Expect(history[1].Role).To(Equal("model"))
		Expect(history[1].Parts).To(ConsistOf(genai.Text("two")))
	})

	It("fails when the conversation does not end with the user", func() {
		_, _, err := splitHistory([]llm.Message{llm.NewAssistantMessage("hi")})
		Expect(err).To(HaveOccurred())
	})

	It("fails on an empty conversation", func() {
		_, _, err := splitHistory(nil)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("responseText", func() {
	It("joins the text parts of the first candidate", func() {
		resp := &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []genai.Part{genai.Text("a"), genai.Text("b")}},
			}},
		}
		Expect(responseText(resp)).To(Equal("ab"))
	})
})
