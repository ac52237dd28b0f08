package prompt

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"

	"github.com/bryanwahyu/docimpact/internal/domain/analysis"
)

// maxContentChars bounds how much document text goes into a prompt.
const maxContentChars = 12000

var (
	schemaOnce sync.Once
	schemaJSON string
)

// ImpactSchema renders the JSON schema of analysis.Payload.
func ImpactSchema() string {
	schemaOnce.Do(func() {
		r := &jsonschema.Reflector{DoNotReference: true, ExpandedStruct: true}
		b, err := json.MarshalIndent(r.Reflect(&analysis.Payload{}), "", "  ")
		if err != nil {
			schemaJSON = "{}"
			return
		}
		schemaJSON = string(b)
	})
	return schemaJSON
}

// ImpactSystemPrompt provides strict directions and schema for JSON output.
func ImpactSystemPrompt() string {
	return `You are a senior product analyst reviewing a newly submitted product document (PRD, BRD, design or tech spec). Identify which systems and teams the document impacts. You must produce one valid JSON object only (no markdown, no commentary) that follows the schema below. Do not include code fences.

Requirements:
- Output must be a single JSON object.
- impactLevel values are exactly one of: High, Medium, Low. The top-level impactLevel is the highest level among impactedAreas, or Low when there are none.
- Each impacted area has either a conflict or a recommendation, not both.
- Every contact needs a name and a valid email address.
- relatedDocuments lists existing documents worth reading; tags may be empty.

Schema:
` + ImpactSchema()
}

// ImpactUserPrompt builds the user message around a document.
func ImpactUserPrompt(in analysis.Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the impact of this document and respond with the JSON per schema.\n")
	fmt.Fprintf(&b, "Title: %s\n", in.Title)
	if in.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", in.Description)
	}
	fmt.Fprintf(&b, "File type: %s\n", in.FileType)
	if in.FileURL != "" {
		fmt.Fprintf(&b, "File URL: %s\n", in.FileURL)
	}
	content := strings.TrimSpace(in.Content)
	if content == "" {
		b.WriteString("The document text is not available; infer conservatively from the title and description.\n")
		return b.String()
	}
	if len(content) > maxContentChars {
		content = content[:maxContentChars] + "..."
	}
	fmt.Fprintf(&b, "Content:\n%s\n", content)
	return b.String()
}

// DecodeImpact parses a model reply into a payload. Code fences are tolerated.
func DecodeImpact(raw string) (*analysis.Payload, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty model output", analysis.ErrInvalidAnalysisPayload)
	}
	var p analysis.Payload
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return nil, fmt.Errorf("%w: %v", analysis.ErrInvalidAnalysisPayload, err)
	}
	return &p, nil
}
