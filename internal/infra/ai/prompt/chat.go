package prompt

import (
	"fmt"
	"strings"

	"github.com/bryanwahyu/docimpact/internal/domain/ai"
	"github.com/bryanwahyu/docimpact/internal/domain/analysis"
	"github.com/bryanwahyu/docimpact/internal/domain/chat"
)

const defaultHistoryLimit = 20

// ChatSystemPrompt grounds the assistant in the rendered context.
func ChatSystemPrompt(c *chat.Context) string {
	var b strings.Builder
	b.WriteString("You are a helpful assistant answering questions about product documents and their impact analysis. ")
	b.WriteString("Answer briefly and only from the context below. If the analysis is not complete, say so.\n\n")
	b.WriteString(RenderContext(c))
	return b.String()
}

// RenderContext writes the document and analysis part of a chat context as plain text.
func RenderContext(c *chat.Context) string {
	if c == nil || c.Document == nil {
		return "No document is attached to this conversation.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Document: %q (%s)\n", c.Document.Title, c.Document.FileType)
	if c.Document.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", c.Document.Description)
	}
	if c.Analysis == nil {
		b.WriteString("Analysis: not available\n")
		return b.String()
	}
	switch c.Analysis.State {
	case analysis.StateComplete:
		r := c.Analysis.Result
		if r == nil {
			b.WriteString("Analysis: complete\n")
			return b.String()
		}
		fmt.Fprintf(&b, "Analysis: complete, overall impact %s\n", r.ImpactLevel)
		for _, a := range r.ImpactedAreas {
			fmt.Fprintf(&b, "- %s [%s]: %s", a.Name, a.ImpactLevel, a.Description)
			if a.Conflict != "" {
				fmt.Fprintf(&b, " Conflict: %s", a.Conflict)
			}
			if a.Recommendation != "" {
				fmt.Fprintf(&b, " Recommendation: %s", a.Recommendation)
			}
			fmt.Fprintf(&b, " Contact: %s, %s <%s>\n", a.Contact.Name, a.Contact.Title, a.Contact.Email)
		}
		for _, d := range r.RelatedDocuments {
			fmt.Fprintf(&b, "Related: %s (%s, updated %s)\n", d.Title, d.Type, d.LastUpdated)
		}
	case analysis.StateFailed:
		fmt.Fprintf(&b, "Analysis: failed (%s)\n", c.Analysis.Error)
	case analysis.StateInProgress:
		b.WriteString("Analysis: in progress\n")
	default:
		b.WriteString("Analysis: not started\n")
	}
	return b.String()
}

// ChatMessages builds the completion request: system context, the last
// historyLimit turns, then the user message. The user message is not
// duplicated when it is already the tail of the history.
func ChatMessages(c *chat.Context, userMessage string, historyLimit int) []ai.Message {
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}
	msgs := []ai.Message{{Role: ai.RoleSystem, Content: ChatSystemPrompt(c)}}

	var history []*chat.Message
	if c != nil {
		history = c.History
	}
	turns := make([]*chat.Message, 0, len(history))
	for _, m := range history {
		if m.Failed {
			continue
		}
		turns = append(turns, m)
	}
	if n := len(turns); n > 0 && turns[n-1].Role == chat.RoleUser && turns[n-1].Content == userMessage {
		turns = turns[:n-1]
	}
	if len(turns) > historyLimit {
		turns = turns[len(turns)-historyLimit:]
	}
	for _, m := range turns {
		role := ai.RoleUser
		if m.Role == chat.RoleAssistant {
			role = ai.RoleAssistant
		}
		msgs = append(msgs, ai.Message{Role: role, Content: m.Content})
	}
	return append(msgs, ai.Message{Role: ai.RoleUser, Content: userMessage})
}
