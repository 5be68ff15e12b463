package openai_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tutor/pkg/llm"
	"github.com/papercomputeco/tutor/pkg/llm/provider/openai"
)

var _ = Describe("OpenAI Generator", func() {
	var (
		server   *httptest.Server
		captured map[string]any
	)

	BeforeEach(func() {
		captured = nil
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.URL.Path).To(Equal("/v1/chat/completions"))

			body, err := io.ReadAll(r.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(json.Unmarshal(body, &captured)).To(Succeed())

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"id": "chatcmpl-1",
				"object": "chat.completion",
				"created": 1735689600,
				"model": "gpt-test",
				"choices": [{
					"index": 0,
					"message": {"role": "assistant", "content": "corrected"},
					"finish_reason": "stop"
				}],
				"usage": {"prompt_tokens": 5, "completion_tokens": 3, "total_tokens": 8}
			}`))
		}))
		DeferCleanup(server.Close)
	})

	It("reports its name", func() {
		Expect(openai.New("k", "m", "").Name()).To(Equal("openai"))
	})

	It("puts the system prompt first and maps roles", func() {
		g := openai.New("test-key", "gpt-test", server.URL+"/v1/")

		resp, err := g.Generate(context.Background(), &llm.GenerateRequest{
			System: "You are a tutor.",
			Messages: []llm.Message{
				llm.NewUserMessage("first"),
				llm.NewAssistantMessage("reply"),
				llm.NewUserMessage("second"),
			},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Text).To(Equal("corrected"))
		Expect(resp.StopReason).To(Equal("stop"))
		Expect(resp.Usage.TotalTokens).To(Equal(8))

		messages, ok := captured["messages"].([]any)
		Expect(ok).To(BeTrue())
		Expect(messages).To(HaveLen(4))
		first, ok := messages[0].(map[string]any)
		Expect(ok).To(BeTrue())
		Expect(first["role"]).To(Equal("system"))
	})
})
