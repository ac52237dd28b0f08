package ai

import "context"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string
	Content string
}

// Client completes a conversation. With jsonMode the reply must be a single JSON object.
type Client interface {
	Complete(ctx context.Context, messages []Message, jsonMode bool) (string, error)
}
