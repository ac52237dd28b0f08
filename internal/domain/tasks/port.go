package tasks

import "context"

type Repository interface {
	Create(ctx context.Context, t *Task) error
	Get(ctx context.Context, id int64) (*Task, error)
	ListByDocument(ctx context.Context, documentID int64) ([]*Task, error)
	UpdateStatus(ctx context.Context, id int64, status Status) error
}

// Tracker is the external task system. CreateTask returns its task id.
type Tracker interface {
	CreateTask(ctx context.Context, t *Task) (string, error)
	UpdateTask(ctx context.Context, externalID string, status Status) error
}
