package joberrors

import "time"

// Entry is one recorded background failure.
type Entry struct {
	ID          int64     `json:"id"`
	DocumentID  int64     `json:"documentId"`
	Job         string    `json:"job"`   // analysis | chat
	Phase       string    `json:"phase"` // analyze | validate | persist | generate
	Attempt     int       `json:"attempt,omitempty"`
	Message     string    `json:"message"`
	DetailsJSON string    `json:"details,omitempty"` // raw JSON string
	CreatedAt   time.Time `json:"createdAt"`
}

const (
	JobAnalysis = "analysis"
	JobChat     = "chat"
)
