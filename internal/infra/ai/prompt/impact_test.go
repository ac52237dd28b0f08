package prompt_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/bryanwahyu/docimpact/internal/domain/analysis"
	"github.com/bryanwahyu/docimpact/internal/infra/ai/prompt"
)

var _ = Describe("impact prompt", func() {
	It("embeds the payload schema with the allowed levels", func() {
		schema := prompt.ImpactSchema()
		Expect(schema).To(ContainSubstring("impactedAreas"))
		Expect(schema).To(ContainSubstring("relatedDocuments"))
		Expect(schema).To(ContainSubstring(`"High"`))
		Expect(prompt.ImpactSystemPrompt()).To(ContainSubstring(schema))
	})

	It("notes missing document text in the user prompt", func() {
		p := prompt.ImpactUserPrompt(analysis.Input{Title: "Spec", FileType: "pdf"})
		Expect(p).To(ContainSubstring("Title: Spec"))
		Expect(p).To(ContainSubstring("not available"))
	})

	Describe("DecodeImpact", func() {
		It("decodes fenced JSON", func() {
			p, err := prompt.DecodeImpact("```json\n{\"impactLevel\":\"Low\",\"impactedAreas\":[],\"relatedDocuments\":[]}\n```")
			Expect(err).NotTo(HaveOccurred())
			Expect(p.ImpactLevel).To(Equal(analysis.ImpactLow))
		})

		It("rejects non-JSON output as an invalid payload", func() {
			_, err := prompt.DecodeImpact("I think the impact is high")
			Expect(err).To(MatchError(analysis.ErrInvalidAnalysisPayload))
		})

		It("rejects empty output", func() {
			_, err := prompt.DecodeImpact("  ")
			Expect(err).To(MatchError(analysis.ErrInvalidAnalysisPayload))
		})
	})
})
