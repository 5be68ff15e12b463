package ollama_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tutor/pkg/llm"
	"github.com/papercomputeco/tutor/pkg/llm/provider/ollama"
)

var _ = Describe("Ollama Generator", func() {
	var (
		server   *httptest.Server
		captured map[string]any
	)

	BeforeEach(func() {
		captured = nil
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.URL.Path).To(Equal("/api/chat"))

			body, err := io.ReadAll(r.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(json.Unmarshal(body, &captured)).To(Succeed())

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"model":"llama3.2","created_at":"2026-01-01T00:00:00Z","message":{"role":"assistant","content":"hello"},"done":true,"done_reason":"stop","prompt_eval_count":4,"eval_count":2}` + "\n"))
		}))
		DeferCleanup(server.Close)
	})

	It("rejects an unparsable base URL", func() {
		_, err := ollama.New("://bad", "llama3.2")
		Expect(err).To(HaveOccurred())
	})

	It("sends a non-streaming chat request with the system prompt", func() {
		g, err := ollama.New(server.URL, "llama3.2")
		Expect(err).NotTo(HaveOccurred())
		Expect(g.Name()).To(Equal("ollama"))

		resp, err := g.Generate(context.Background(), &llm.GenerateRequest{
			System:   "You are a tutor.",
			Messages: []llm.Message{llm.NewUserMessage("I go school")},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Text).To(Equal("hello"))
		Expect(resp.StopReason).To(Equal("stop"))
		Expect(resp.Usage.TotalTokens).To(Equal(6))

		Expect(captured["stream"]).To(BeFalse())
		messages, ok := captured["messages"].([]any)
		Expect(ok).To(BeTrue())
		Expect(messages).To(HaveLen(2))
	})
})
