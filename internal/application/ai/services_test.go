package ai_test

import (
	"context"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	appai "github.com/bryanwahyu/docimpact/internal/application/ai"
	"github.com/bryanwahyu/docimpact/internal/domain/ai"
	"github.com/bryanwahyu/docimpact/internal/domain/analysis"
	"github.com/bryanwahyu/docimpact/internal/domain/chat"
)

type mockAnalyzer struct {
	analyzeFn func(ctx context.Context, in analysis.Input) (*analysis.Payload, error)
}

func (m *mockAnalyzer) Analyze(ctx context.Context, in analysis.Input) (*analysis.Payload, error) {
	return m.analyzeFn(ctx, in)
}

type mockGenerator struct {
	generateFn func(ctx context.Context, c *chat.Context, msg string) (string, error)
}

func (m *mockGenerator) Generate(ctx context.Context, c *chat.Context, msg string) (string, error) {
	return m.generateFn(ctx, c, msg)
}

func failingGenerator(err error) *mockGenerator {
	return &mockGenerator{generateFn: func(context.Context, *chat.Context, string) (string, error) { return "", err }}
}

func fixedGenerator(text string) *mockGenerator {
	return &mockGenerator{generateFn: func(context.Context, *chat.Context, string) (string, error) { return text, nil }}
}

var _ = Describe("Service", func() {
	ctx := context.Background()

	DescribeTable("chat fallback policy",
		func(primaryErr error, wantText string, wantErr bool) {
			svc := &appai.Service{PrimaryChat: failingGenerator(primaryErr), FallbackChat: fixedGenerator("offline")}
			if primaryErr == nil {
				svc.PrimaryChat = fixedGenerator("online")
			}
			text, err := svc.Generate(ctx, &chat.Context{}, "hi")
			if wantErr {
				Expect(err).To(MatchError(primaryErr))
				return
			}
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal(wantText))
		},
		Entry("primary succeeds", nil, "online", false),
		Entry("quota exceeded", fmt.Errorf("%w: slow down", ai.ErrQuotaExceeded), "offline", false),
		Entry("breaker open", fmt.Errorf("%w: open", ai.ErrUnavailable), "offline", false),
		Entry("other errors surface", errors.New("boom"), "", true),
	)

	It("uses the fallback analyzer when no primary is configured", func() {
		svc := &appai.Service{FallbackAnalyzer: &mockAnalyzer{analyzeFn: func(context.Context, analysis.Input) (*analysis.Payload, error) {
			return &analysis.Payload{ImpactLevel: analysis.ImpactLow}, nil
		}}}
		p, err := svc.Analyze(ctx, analysis.Input{})
		Expect(err).NotTo(HaveOccurred())
		Expect(p.ImpactLevel).To(Equal(analysis.ImpactLow))
	})

	It("falls back for analysis when the provider is over quota", func() {
		svc := &appai.Service{
			PrimaryAnalyzer: &mockAnalyzer{analyzeFn: func(context.Context, analysis.Input) (*analysis.Payload, error) {
				return nil, ai.ErrQuotaExceeded
			}},
			FallbackAnalyzer: &mockAnalyzer{analyzeFn: func(context.Context, analysis.Input) (*analysis.Payload, error) {
				return &analysis.Payload{ImpactLevel: analysis.ImpactMedium}, nil
			}},
		}
		p, err := svc.Analyze(ctx, analysis.Input{DocumentID: 3})
		Expect(err).NotTo(HaveOccurred())
		Expect(p.ImpactLevel).To(Equal(analysis.ImpactMedium))
	})
})
