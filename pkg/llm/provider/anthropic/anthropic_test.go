package anthropic_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tutor/pkg/llm"
	"github.com/papercomputeco/tutor/pkg/llm/provider/anthropic"
)

var _ = Describe("Anthropic Generator", func() {
	var (
		server   *httptest.Server
		captured map[string]any
		status   int
	)

	BeforeEach(func() {
		captured = nil
		status = http.StatusOK
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.URL.Path).To(Equal("/v1/messages"))
			Expect(r.Header.Get("X-Api-Key")).To(Equal("test-key"))

			body, err := io.ReadAll(r.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(json.Unmarshal(body, &captured)).To(Succeed())

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			if status != http.StatusOK {
				_, _ = w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`))
				return
			}
			_, _ = w.Write([]byte(`{
				"id": "msg_01",
				"type": "message",
				"role": "assistant",
				"model": "claude-test",
				"content": [{"type": "text", "text": "{\"correctedText\": \"ok\"}"}],
				"stop_reason": "end_turn",
				"usage": {"input_tokens": 12, "output_tokens": 8}
			}`))
		}))
		DeferCleanup(server.Close)
	})

	It("reports its name", func() {
		Expect(anthropic.New("k", "m", "").Name()).To(Equal("anthropic"))
	})

	It("sends the system prompt and conversation and returns the text", func() {
		g := anthropic.New("test-key", "claude-test", server.URL)

		resp, err := g.Generate(context.Background(), &llm.GenerateRequest{
			System: "You are a tutor.",
			Messages: []llm.Message{
				llm.NewUserMessage("I go school yesterday"),
			},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Text).To(Equal(`{"correctedText": "ok"}`))
		Expect(resp.Model).To(Equal("claude-test"))
		Expect(resp.StopReason).To(Equal("end_turn"))
		Expect(resp.Usage.TotalTokens).To(Equal(20))

		Expect(captured["model"]).To(Equal("claude-test"))
		system, ok := captured["system"].([]any)
		Expect(ok).To(BeTrue())
		Expect(system).To(HaveLen(1))
		messages, ok := captured["messages"].([]any)
		Expect(ok).To(BeTrue())
		Expect(messages).To(HaveLen(1))
	})

	It("returns an error when the API fails", func() {
		status = http.StatusBadRequest
		g := anthropic.New("test-key", "claude-test", server.URL)

		_, err := g.Generate(context.Background(), &llm.GenerateRequest{
			Messages: []llm.Message{llm.NewUserMessage("hi")},
		})
		Expect(err).To(HaveOccurred())
	})
})
