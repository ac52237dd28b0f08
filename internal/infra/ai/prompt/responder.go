package prompt

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/bryanwahyu/docimpact/internal/domain/analysis"
	"github.com/bryanwahyu/docimpact/internal/domain/chat"
)

// KeywordResponder is the offline chat generator. It picks a reply from the
// message keywords and the context, and always returns non-empty text.
type KeywordResponder struct{}

func (KeywordResponder) Generate(ctx context.Context, c *chat.Context, userMessage string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	lower := strings.ToLower(userMessage)
	words := wordSet(lower)
	title := "this conversation"
	if c != nil && c.Document != nil {
		title = fmt.Sprintf("%q", c.Document.Title)
	}
	result := completed(c)

	switch {
	case strings.Contains(lower, "impact") || strings.Contains(lower, "analysis"):
		return impactReply(c, title, result), nil
	case strings.Contains(lower, "conflict") || strings.Contains(lower, "problem"):
		if result == nil {
			return pendingReply(c, title), nil
		}
		var lines []string
		for _, a := range result.ImpactedAreas {
			if a.Conflict != "" {
				lines = append(lines, fmt.Sprintf("- %s: %s", a.Name, a.Conflict))
			}
		}
		if len(lines) == 0 {
			return fmt.Sprintf("No conflicts were identified for %s.", title), nil
		}
		return fmt.Sprintf("Potential conflicts for %s:\n%s", title, strings.Join(lines, "\n")), nil
	case strings.Contains(lower, "recommend") || strings.Contains(lower, "suggest") || strings.Contains(lower, "solution"):
		if result == nil {
			return pendingReply(c, title), nil
		}
		var lines []string
		for _, a := range result.ImpactedAreas {
			if a.Recommendation != "" {
				lines = append(lines, fmt.Sprintf("- %s: %s", a.Name, a.Recommendation))
			}
		}
		if len(lines) == 0 {
			return fmt.Sprintf("There are no specific recommendations for %s yet. Start by reviewing the impacted areas with their owners.", title), nil
		}
		return fmt.Sprintf("Recommendations for %s:\n%s", title, strings.Join(lines, "\n")), nil
	case words["who"] || strings.Contains(lower, "contact") || strings.Contains(lower, "team"):
		if result == nil {
			return pendingReply(c, title), nil
		}
		if len(result.ImpactedAreas) == 0 {
			return fmt.Sprintf("No teams need to be contacted about %s.", title), nil
		}
		lines := make([]string, 0, len(result.ImpactedAreas))
		for _, a := range result.ImpactedAreas {
			lines = append(lines, fmt.Sprintf("- %s (%s, %s) for %s", a.Contact.Name, a.Contact.Title, a.Contact.Email, a.Name))
		}
		return fmt.Sprintf("These are the people to contact about %s:\n%s", title, strings.Join(lines, "\n")), nil
	case words["hello"] || words["hi"] || words["hey"]:
		return fmt.Sprintf("Hello! I can answer questions about %s, like its impact level, conflicts, recommendations or who to contact.", title), nil
	case words["thanks"] || words["thank"]:
		return "You're welcome! Let me know if you have any other questions.", nil
	}
	return fmt.Sprintf("I can help you understand %s. Ask me about its impact, potential conflicts, recommendations or the teams to contact.", title), nil
}

func impactReply(c *chat.Context, title string, r *analysis.Result) string {
	if r == nil {
		return pendingReply(c, title)
	}
	conflicts := 0
	names := make([]string, 0, len(r.ImpactedAreas))
	for _, a := range r.ImpactedAreas {
		if a.Conflict != "" {
			conflicts++
		}
		names = append(names, fmt.Sprintf("%s (%s)", a.Name, a.ImpactLevel))
	}
	reply := fmt.Sprintf("I've analyzed the impact of %s. The overall impact level is %s with %d impacted areas and %d potential conflicts identified.",
		title, r.ImpactLevel, len(r.ImpactedAreas), conflicts)
	if len(names) > 0 {
		reply += " Affected: " + strings.Join(names, ", ") + "."
	}
	return reply
}

func pendingReply(c *chat.Context, title string) string {
	if c == nil || c.Document == nil {
		return "There is no document attached to this conversation, so no impact analysis is available. Upload a document to get started."
	}
	if c.Analysis != nil {
		switch c.Analysis.State {
		case analysis.StateInProgress:
			return fmt.Sprintf("The impact analysis of %s is still in progress. Please check back in a moment.", title)
		case analysis.StateFailed:
			return fmt.Sprintf("The impact analysis of %s failed (%s). You can retry it from the analysis page.", title, c.Analysis.Error)
		}
	}
	return fmt.Sprintf("The impact analysis of %s has not started yet.", title)
}

func completed(c *chat.Context) *analysis.Result {
	if c == nil || c.Analysis == nil || c.Analysis.State != analysis.StateComplete {
		return nil
	}
	return c.Analysis.Result
}

func wordSet(s string) map[string]bool {
	out := map[string]bool{}
	for _, w := range strings.FieldsFunc(s, func(r rune) bool { return !unicode.IsLetter(r) }) {
		out[w] = true
	}
	return out
}
