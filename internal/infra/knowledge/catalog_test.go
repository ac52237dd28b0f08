package knowledge_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/bryanwahyu/docimpact/internal/domain/analysis"
	"github.com/bryanwahyu/docimpact/internal/infra/knowledge"
)

var _ = Describe("Catalog", func() {
	It("ships a default catalog with valid owners", func() {
		c := knowledge.Default()
		Expect(c.Systems).NotTo(BeEmpty())
		Expect(c.Documents).NotTo(BeEmpty())

		names := make([]string, 0, len(c.Systems))
		for _, s := range c.Systems {
			names = append(names, s.Name)
			Expect(s.Owner.Email).To(ContainSubstring("@"))
			Expect(s.Keywords).NotTo(BeEmpty())
		}
		Expect(names).To(ContainElements("Payment Processing Module", "User Profile Service", "Analytics Dashboard"))
	})

	It("falls back to the default catalog for an empty path", func() {
		c, err := knowledge.Load("")
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Systems).To(HaveLen(len(knowledge.Default().Systems)))
	})

	It("loads a catalog file and lowercases keywords", func() {
		path := filepath.Join(GinkgoT().TempDir(), "catalog.yaml")
		Expect(os.WriteFile(path, []byte(`
systems:
  - name: Search
    level: Medium
    keywords: [Search, Index]
    owner: {name: Ana, title: Lead, email: ana@company.com}
`), 0o644)).To(Succeed())

		c, err := knowledge.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Systems).To(HaveLen(1))
		Expect(c.Systems[0].Level).To(Equal(analysis.ImpactMedium))
		Expect(c.Systems[0].Keywords).To(Equal([]string{"search", "index"}))
	})

	It("rejects systems with an unknown level", func() {
		_, err := knowledge.Parse([]byte("systems:\n  - name: X\n    level: Severe\n"))
		Expect(err).To(MatchError(ContainSubstring("invalid level")))
	})

	It("reports a missing file", func() {
		_, err := knowledge.Load("/nonexistent/catalog.yaml")
		Expect(err).To(HaveOccurred())
	})
})
