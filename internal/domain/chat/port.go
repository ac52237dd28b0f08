package chat

import "context"

// Repository is the conversation store. History is ordered by creation time,
// ties broken by insertion order.
type Repository interface {
	Append(ctx context.Context, m *Message) error
	History(ctx context.Context, documentID *int64) ([]*Message, error)
	LatestUserMessage(ctx context.Context, documentID *int64) (*Message, error)
	FindReply(ctx context.Context, userMessageID int64) (*Message, error)
}

// Generator turns a context and a user message into reply text.
type Generator interface {
	Generate(ctx context.Context, c *Context, userMessage string) (string, error)
}
