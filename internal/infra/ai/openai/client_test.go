package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/bryanwahyu/docimpact/internal/domain/ai"
	"github.com/bryanwahyu/docimpact/internal/domain/analysis"
	"github.com/bryanwahyu/docimpact/internal/domain/chat"
	"github.com/bryanwahyu/docimpact/internal/domain/documents"
	"github.com/bryanwahyu/docimpact/internal/infra/ai/openai"
)

type mockClient struct {
	completeFn func(ctx context.Context, messages []ai.Message, jsonMode bool) (string, error)
}

func (m *mockClient) Complete(ctx context.Context, messages []ai.Message, jsonMode bool) (string, error) {
	if m.completeFn != nil {
		return m.completeFn(ctx, messages, jsonMode)
	}
	return "", nil
}

var _ = Describe("Client", func() {
	var (
		server *httptest.Server
		status int
		body   any
		got    map[string]any
	)

	BeforeEach(func() {
		got = nil
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.URL.Path).To(HaveSuffix("/chat/completions"))
			Expect(json.NewDecoder(r.Body).Decode(&got)).To(Succeed())
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			Expect(json.NewEncoder(w).Encode(body)).To(Succeed())
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("returns the first choice and requests JSON mode", func() {
		status = http.StatusOK
		body = map[string]any{
			"id":      "cmpl-1",
			"object":  "chat.completion",
			"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": `{"ok":true}`}}},
		}
		c := openai.NewClientWithBaseURL("test-key", server.URL+"/v1", "gpt-4o-mini", 256)
		out, err := c.Complete(context.Background(), []ai.Message{{Role: ai.RoleUser, Content: "hi"}}, true)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(`{"ok":true}`))
		Expect(got["response_format"]).To(HaveKeyWithValue("type", "json_object"))
		Expect(got["max_tokens"]).To(BeNumerically("==", 256))
	})

	It("uses max_completion_tokens for reasoning models", func() {
		status = http.StatusOK
		body = map[string]any{
			"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": "ok"}}},
		}
		c := openai.NewClientWithBaseURL("test-key", server.URL+"/v1", "o3-mini", 128)
		_, err := c.Complete(context.Background(), []ai.Message{{Role: ai.RoleUser, Content: "hi"}}, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(HaveKey("max_completion_tokens"))
		Expect(got).NotTo(HaveKey("response_format"))
	})

	It("maps 429 responses to ErrQuotaExceeded", func() {
		status = http.StatusTooManyRequests
		body = map[string]any{"error": map[string]any{"message": "quota exceeded", "type": "insufficient_quota"}}
		c := openai.NewClientWithBaseURL("test-key", server.URL+"/v1", "gpt-4o-mini", 64)
		_, err := c.Complete(context.Background(), []ai.Message{{Role: ai.RoleUser, Content: "hi"}}, false)
		Expect(err).To(MatchError(ai.ErrQuotaExceeded))
	})
})

var _ = Describe("Analyzer", func() {
	It("decodes the JSON payload returned by the model", func() {
		client := &mockClient{completeFn: func(ctx context.Context, messages []ai.Message, jsonMode bool) (string, error) {
			Expect(jsonMode).To(BeTrue())
			Expect(messages).To(HaveLen(2))
			Expect(messages[1].Content).To(ContainSubstring("Checkout redesign"))
			return `{"impactLevel":"Medium","impactedAreas":[],"relatedDocuments":[]}`, nil
		}}
		a := &openai.Analyzer{Client: client}
		p, err := a.Analyze(context.Background(), analysis.Input{Title: "Checkout redesign"})
		Expect(err).NotTo(HaveOccurred())
		Expect(p.ImpactLevel).To(Equal(analysis.ImpactMedium))
	})

	It("surfaces malformed output as an invalid payload", func() {
		client := &mockClient{completeFn: func(ctx context.Context, messages []ai.Message, jsonMode bool) (string, error) {
			return "not json", nil
		}}
		a := &openai.Analyzer{Client: client}
		_, err := a.Analyze(context.Background(), analysis.Input{Title: "x"})
		Expect(err).To(MatchError(analysis.ErrInvalidAnalysisPayload))
	})
})

var _ = Describe("Responder", func() {
	It("sends the rendered context and returns trimmed text", func() {
		client := &mockClient{completeFn: func(ctx context.Context, messages []ai.Message, jsonMode bool) (string, error) {
			Expect(jsonMode).To(BeFalse())
			Expect(messages[0].Content).To(ContainSubstring("Launch plan"))
			Expect(messages[len(messages)-1].Content).To(Equal("impact?"))
			return "  High impact.  ", nil
		}}
		r := &openai.Responder{Client: client}
		c := &chat.Context{
			Document: &documents.Document{ID: 1, Title: "Launch plan"},
			Analysis: &analysis.View{DocumentID: 1, State: analysis.StateInProgress},
		}
		out, err := r.Generate(context.Background(), c, "impact?")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("High impact."))
	})

	It("treats an empty reply as an error", func() {
		client := &mockClient{completeFn: func(ctx context.Context, messages []ai.Message, jsonMode bool) (string, error) {
			return " ", nil
		}}
		r := &openai.Responder{Client: client}
		_, err := r.Generate(context.Background(), &chat.Context{}, "hi")
		Expect(err).To(HaveOccurred())
	})
})
