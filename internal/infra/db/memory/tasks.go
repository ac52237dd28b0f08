package memory

import (
	"context"
	"sync"

	"github.com/bryanwahyu/docimpact/internal/domain/tasks"
)

type TaskRepository struct {
	mu     sync.RWMutex
	nextID int64
	tasks  []tasks.Task
}

func NewTaskRepository() *TaskRepository {
	return &TaskRepository{}
}

func (r *TaskRepository) Create(ctx context.Context, t *tasks.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	t.ID = r.nextID
	r.tasks = append(r.tasks, *t)
	return nil
}

func (r *TaskRepository) Get(ctx context.Context, id int64) (*tasks.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.tasks {
		if t.ID == id {
			t := t
			return &t, nil
		}
	}
	return nil, tasks.ErrTaskNotFound
}

func (r *TaskRepository) ListByDocument(ctx context.Context, documentID int64) ([]*tasks.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*tasks.Task, 0)
	for _, t := range r.tasks {
		if t.DocumentID == documentID {
			t := t
			out = append(out, &t)
		}
	}
	return out, nil
}

func (r *TaskRepository) UpdateStatus(ctx context.Context, id int64, status tasks.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.tasks {
		if r.tasks[i].ID == id {
			r.tasks[i].Status = status
			return nil
		}
	}
	return tasks.ErrTaskNotFound
}
