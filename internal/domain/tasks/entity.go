package tasks

import "time"

type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Task is a follow-up item for a document, mirrored to the external tracker.
type Task struct {
	ID          int64      `json:"id"`
	DocumentID  int64      `json:"documentId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Assignee    string     `json:"assignee"`
	DueDate     *time.Time `json:"dueDate"`
	Status      Status     `json:"status"`
	ImpactArea  string     `json:"impactArea,omitempty"`
	ExternalID  string     `json:"externalTaskId"`
	CreatedAt   time.Time  `json:"createdAt"`
}
