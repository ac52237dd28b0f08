package chat

import (
	"time"

	"github.com/bryanwahyu/docimpact/internal/domain/analysis"
	"github.com/bryanwahyu/docimpact/internal/domain/documents"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is append-only. DocumentID is nil for document-less sessions.
// Assistant messages point at the user message they answer via ReplyTo;
// Failed marks a reply whose generation errored.
type Message struct {
	ID         int64     `json:"id"`
	DocumentID *int64    `json:"documentId"`
	Role       Role      `json:"role"`
	Content    string    `json:"content"`
	ReplyTo    *int64    `json:"replyTo,omitempty"`
	Failed     bool      `json:"failed,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Context is what a reply is grounded in. Document and Analysis are nil for
// document-less sessions; Analysis is never nil when Document is set.
type Context struct {
	Document *documents.Document
	Analysis *analysis.View
	History  []*Message
}

// Answered reports whether m already has a successful reply in history.
func Answered(history []*Message, m *Message) bool {
	for _, h := range history {
		if h.Role == RoleAssistant && !h.Failed && h.ReplyTo != nil && *h.ReplyTo == m.ID {
			return true
		}
	}
	return false
}

// LatestPending returns the newest user message in history that has no
// successful reply, or nil.
func LatestPending(history []*Message) *Message {
	for i := len(history) - 1; i >= 0; i-- {
		m := history[i]
		if m.Role == RoleUser && !Answered(history, m) {
			return m
		}
	}
	return nil
}
