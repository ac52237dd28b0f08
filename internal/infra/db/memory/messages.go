package memory

import (
	"context"
	"sync"

	"github.com/bryanwahyu/docimpact/internal/domain/chat"
)

// MessageRepository is an append-only log. CreatedAt is clamped per
// conversation so history order always equals insertion order.
type MessageRepository struct {
	mu       sync.RWMutex
	nextID   int64
	messages []chat.Message
}

func NewMessageRepository() *MessageRepository {
	return &MessageRepository{}
}

func sameConversation(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (r *MessageRepository) Append(ctx context.Context, m *chat.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.messages) - 1; i >= 0; i-- {
		prev := r.messages[i]
		if !sameConversation(prev.DocumentID, m.DocumentID) {
			continue
		}
		if m.CreatedAt.Before(prev.CreatedAt) {
			m.CreatedAt = prev.CreatedAt
		}
		break
	}
	r.nextID++
	m.ID = r.nextID
	r.messages = append(r.messages, clone(*m))
	return nil
}

func (r *MessageRepository) History(ctx context.Context, documentID *int64) ([]*chat.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*chat.Message, 0)
	for _, m := range r.messages {
		if sameConversation(m.DocumentID, documentID) {
			c := clone(m)
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *MessageRepository) LatestUserMessage(ctx context.Context, documentID *int64) (*chat.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := len(r.messages) - 1; i >= 0; i-- {
		m := r.messages[i]
		if m.Role == chat.RoleUser && sameConversation(m.DocumentID, documentID) {
			c := clone(m)
			return &c, nil
		}
	}
	return nil, nil
}

func (r *MessageRepository) FindReply(ctx context.Context, userMessageID int64) (*chat.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.messages {
		if m.Role == chat.RoleAssistant && !m.Failed && m.ReplyTo != nil && *m.ReplyTo == userMessageID {
			c := clone(m)
			return &c, nil
		}
	}
	return nil, nil
}

func clone(m chat.Message) chat.Message {
	if m.DocumentID != nil {
		id := *m.DocumentID
		m.DocumentID = &id
	}
	if m.ReplyTo != nil {
		id := *m.ReplyTo
		m.ReplyTo = &id
	}
	return m
}
