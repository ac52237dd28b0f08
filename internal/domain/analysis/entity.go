package analysis

import "time"

type ImpactLevel string

const (
	ImpactHigh   ImpactLevel = "High"
	ImpactMedium ImpactLevel = "Medium"
	ImpactLow    ImpactLevel = "Low"
)

// Rank orders levels so the overall level can be taken as the max of the areas.
func (l ImpactLevel) Rank() int {
	switch l {
	case ImpactHigh:
		return 3
	case ImpactMedium:
		return 2
	case ImpactLow:
		return 1
	}
	return 0
}

type Contact struct {
	Name  string `json:"name" yaml:"name" validate:"required"`
	Title string `json:"title" yaml:"title"`
	Email string `json:"email" yaml:"email" validate:"required,email"`
}

// ImpactArea is a system or team affected by a document. Conflict and
// Recommendation are conventionally mutually exclusive.
type ImpactArea struct {
	Name           string      `json:"name" validate:"required"`
	ImpactLevel    ImpactLevel `json:"impactLevel" validate:"oneof=High Medium Low" jsonschema:"enum=High,enum=Medium,enum=Low"`
	Description    string      `json:"description" validate:"required"`
	Conflict       string      `json:"conflict,omitempty"`
	Recommendation string      `json:"recommendation,omitempty"`
	Contact        Contact     `json:"contact"`
}

type RelatedDocument struct {
	Title       string   `json:"title" validate:"required"`
	Type        string   `json:"type" jsonschema:"enum=PRD,enum=BRD,enum=Design,enum=Tech Spec,enum=Research,enum=Legal"`
	LastUpdated string   `json:"lastUpdated"`
	Tags        []string `json:"tags"`
}

// Payload is what an analyzer produces. It becomes a Result only after
// passing Validate.
type Payload struct {
	ImpactLevel      ImpactLevel       `json:"impactLevel" validate:"oneof=High Medium Low" jsonschema:"enum=High,enum=Medium,enum=Low"`
	ImpactedAreas    []ImpactArea      `json:"impactedAreas" validate:"dive"`
	RelatedDocuments []RelatedDocument `json:"relatedDocuments" validate:"dive"`
}

// Result is the stored analysis of one document. At most one exists per document.
type Result struct {
	ID               int64             `json:"id"`
	DocumentID       int64             `json:"documentId"`
	ImpactLevel      ImpactLevel       `json:"impactLevel"`
	ImpactedAreas    []ImpactArea      `json:"impactedAreas"`
	RelatedDocuments []RelatedDocument `json:"relatedDocuments"`
	CreatedAt        time.Time         `json:"createdAt"`
}

func NewResult(documentID int64, p *Payload, now time.Time) *Result {
	areas := p.ImpactedAreas
	if areas == nil {
		areas = []ImpactArea{}
	}
	related := p.RelatedDocuments
	if related == nil {
		related = []RelatedDocument{}
	}
	for i := range related {
		if related[i].Tags == nil {
			related[i].Tags = []string{}
		}
	}
	return &Result{
		DocumentID:       documentID,
		ImpactLevel:      p.ImpactLevel,
		ImpactedAreas:    areas,
		RelatedDocuments: related,
		CreatedAt:        now,
	}
}

// Input is what the analyzer sees of a document.
type Input struct {
	DocumentID  int64
	Title       string
	Description string
	FileType    string
	FileURL     string
	Content     string
}
