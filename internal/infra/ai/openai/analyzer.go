package openai

import (
	"context"

	"github.com/bryanwahyu/docimpact/internal/domain/ai"
	"github.com/bryanwahyu/docimpact/internal/domain/analysis"
	"github.com/bryanwahyu/docimpact/internal/infra/ai/prompt"
)

// Analyzer asks the model for an impact payload in JSON mode.
type Analyzer struct {
	Client ai.Client
}

func (a *Analyzer) Analyze(ctx context.Context, in analysis.Input) (*analysis.Payload, error) {
	raw, err := a.Client.Complete(ctx, []ai.Message{
		{Role: ai.RoleSystem, Content: prompt.ImpactSystemPrompt()},
		{Role: ai.RoleUser, Content: prompt.ImpactUserPrompt(in)},
	}, true)
	if err != nil {
		return nil, err
	}
	return prompt.DecodeImpact(raw)
}
