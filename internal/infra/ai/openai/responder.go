package openai

import (
	"context"
	"errors"
	"strings"

	"github.com/bryanwahyu/docimpact/internal/domain/ai"
	"github.com/bryanwahyu/docimpact/internal/domain/chat"
	"github.com/bryanwahyu/docimpact/internal/infra/ai/prompt"
)

// Responder generates chat replies from the rendered context.
type Responder struct {
	Client       ai.Client
	HistoryLimit int
}

func (r *Responder) Generate(ctx context.Context, c *chat.Context, userMessage string) (string, error) {
	text, err := r.Client.Complete(ctx, prompt.ChatMessages(c, userMessage, r.HistoryLimit), false)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("model returned an empty reply")
	}
	return text, nil
}
