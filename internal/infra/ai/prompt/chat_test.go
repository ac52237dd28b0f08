package prompt_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/bryanwahyu/docimpact/internal/domain/ai"
	"github.com/bryanwahyu/docimpact/internal/domain/analysis"
	"github.com/bryanwahyu/docimpact/internal/domain/chat"
	"github.com/bryanwahyu/docimpact/internal/domain/documents"
	"github.com/bryanwahyu/docimpact/internal/infra/ai/prompt"
)

func completeContext() *chat.Context {
	return &chat.Context{
		Document: &documents.Document{ID: 1, Title: "Checkout redesign", FileType: "pdf"},
		Analysis: &analysis.View{
			DocumentID: 1,
			State:      analysis.StateComplete,
			Result: &analysis.Result{
				DocumentID:  1,
				ImpactLevel: analysis.ImpactHigh,
				ImpactedAreas: []analysis.ImpactArea{
					{
						Name: "Payment Processing Module", ImpactLevel: analysis.ImpactHigh,
						Description: "Checkout changes", Conflict: "Gateway migration overlap",
						Contact: analysis.Contact{Name: "Jane Smith", Title: "Engineering Lead", Email: "jane.smith@company.com"},
					},
					{
						Name: "Analytics Dashboard", ImpactLevel: analysis.ImpactLow,
						Description: "New events", Recommendation: "Add tracking to backlog",
						Contact: analysis.Contact{Name: "Sarah Lee", Title: "Analytics Lead", Email: "sarah.lee@company.com"},
					},
				},
			},
		},
	}
}

var _ = Describe("KeywordResponder", func() {
	var r prompt.KeywordResponder
	ctx := context.Background()

	DescribeTable("answers from the completed analysis",
		func(message string, expected ...string) {
			reply, err := r.Generate(ctx, completeContext(), message)
			Expect(err).NotTo(HaveOccurred())
			for _, e := range expected {
				Expect(reply).To(ContainSubstring(e))
			}
		},
		Entry("impact", "What is the impact?", `"Checkout redesign"`, "impact level is High", "2 impacted areas", "1 potential conflicts"),
		Entry("conflicts", "any conflicts?", "Gateway migration overlap"),
		Entry("recommendations", "what do you suggest", "Add tracking to backlog"),
		Entry("contacts", "who should I talk to", "jane.smith@company.com", "Sarah Lee"),
		Entry("greeting", "hello there", "Hello!"),
		Entry("thanks", "thanks!", "You're welcome"),
		Entry("fallback", "what is this about", "Checkout redesign"),
	)

	It("does not read 'hi' inside other words as a greeting", func() {
		reply, err := r.Generate(ctx, completeContext(), "this and that")
		Expect(err).NotTo(HaveOccurred())
		Expect(reply).NotTo(ContainSubstring("Hello!"))
	})

	It("reports a running analysis instead of results", func() {
		c := completeContext()
		c.Analysis = &analysis.View{DocumentID: 1, State: analysis.StateInProgress}
		reply, err := r.Generate(ctx, c, "impact?")
		Expect(err).NotTo(HaveOccurred())
		Expect(reply).To(ContainSubstring("still in progress"))
	})

	It("reports a failed analysis", func() {
		c := completeContext()
		c.Analysis = &analysis.View{DocumentID: 1, State: analysis.StateFailed, Error: "timeout"}
		reply, _ := r.Generate(ctx, c, "show me the analysis")
		Expect(reply).To(ContainSubstring("failed (timeout)"))
	})

	It("replies in document-less sessions", func() {
		reply, err := r.Generate(ctx, &chat.Context{}, "hello")
		Expect(err).NotTo(HaveOccurred())
		Expect(reply).NotTo(BeEmpty())
	})
})

var _ = Describe("ChatMessages", func() {
	history := func() []*chat.Message {
		return []*chat.Message{
			{ID: 1, Role: chat.RoleUser, Content: "hello"},
			{ID: 2, Role: chat.RoleAssistant, Content: "Hello!"},
			{ID: 3, Role: chat.RoleAssistant, Content: "oops", Failed: true},
			{ID: 4, Role: chat.RoleUser, Content: "impact?"},
		}
	}

	It("puts the context first and the user message last without duplicating it", func() {
		c := completeContext()
		c.History = history()
		msgs := prompt.ChatMessages(c, "impact?", 10)

		Expect(msgs[0].Role).To(Equal(ai.RoleSystem))
		Expect(msgs[0].Content).To(ContainSubstring("Payment Processing Module"))
		Expect(msgs).To(HaveLen(4))
		Expect(msgs[1]).To(Equal(ai.Message{Role: ai.RoleUser, Content: "hello"}))
		Expect(msgs[2]).To(Equal(ai.Message{Role: ai.RoleAssistant, Content: "Hello!"}))
		Expect(msgs[3]).To(Equal(ai.Message{Role: ai.RoleUser, Content: "impact?"}))
	})

	It("keeps only the most recent turns", func() {
		c := completeContext()
		c.History = history()
		msgs := prompt.ChatMessages(c, "next", 1)
		Expect(msgs).To(HaveLen(3))
		Expect(msgs[1].Content).To(Equal("impact?"))
	})
})
