package ai

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/bryanwahyu/docimpact/internal/domain/ai"
	"github.com/bryanwahyu/docimpact/internal/domain/analysis"
	"github.com/bryanwahyu/docimpact/internal/domain/chat"
	"github.com/bryanwahyu/docimpact/internal/logger"
)

// Service routes analysis and chat generation to the primary AI backend and
// falls back to the offline one while the provider is over quota or
// short-circuited. Any other primary error is returned as is.
type Service struct {
	PrimaryAnalyzer  analysis.Analyzer
	FallbackAnalyzer analysis.Analyzer
	PrimaryChat      chat.Generator
	FallbackChat     chat.Generator
}

func fallbackWorthy(err error) bool {
	return errors.Is(err, ai.ErrQuotaExceeded) || errors.Is(err, ai.ErrUnavailable)
}

func (s *Service) Analyze(ctx context.Context, in analysis.Input) (*analysis.Payload, error) {
	if s.PrimaryAnalyzer == nil {
		return s.FallbackAnalyzer.Analyze(ctx, in)
	}
	p, err := s.PrimaryAnalyzer.Analyze(ctx, in)
	if err != nil && fallbackWorthy(err) && s.FallbackAnalyzer != nil {
		logger.Warn("analysis falling back to offline analyzer", zap.Int64("document_id", in.DocumentID), zap.Error(err))
		return s.FallbackAnalyzer.Analyze(ctx, in)
	}
	return p, err
}

func (s *Service) Generate(ctx context.Context, c *chat.Context, userMessage string) (string, error) {
	if s.PrimaryChat == nil {
		return s.FallbackChat.Generate(ctx, c, userMessage)
	}
	text, err := s.PrimaryChat.Generate(ctx, c, userMessage)
	if err != nil && fallbackWorthy(err) && s.FallbackChat != nil {
		logger.Warn("chat falling back to offline responder", zap.Error(err))
		return s.FallbackChat.Generate(ctx, c, userMessage)
	}
	return text, err
}
