package mysql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/bryanwahyu/docimpact/internal/domain/tasks"
)

type TaskRepository struct{ db *sql.DB }

func NewTaskRepository(db *sql.DB) *TaskRepository { return &TaskRepository{db: db} }

const taskColumns = `id, document_id, title, description, assignee, due_date, status, impact_area, external_id, created_at`

func (r *TaskRepository) Create(ctx context.Context, t *tasks.Task) error {
	const q = `
INSERT INTO tasks (document_id, title, description, assignee, due_date, status, impact_area, external_id, created_at)
VALUES (?,?,?,?,?,?,?,?,?)`
	out, err := r.db.ExecContext(ctx, q,
		t.DocumentID, t.Title, t.Description, t.Assignee, nullTime(t.DueDate),
		string(t.Status), t.ImpactArea, t.ExternalID, t.CreatedAt)
	if err != nil {
		return err
	}
	t.ID, err = out.LastInsertId()
	return err
}

func (r *TaskRepository) Get(ctx context.Context, id int64) (*tasks.Task, error) {
	q := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ?`
	t, err := scanTask(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, tasks.ErrTaskNotFound
	}
	return t, err
}

func (r *TaskRepository) ListByDocument(ctx context.Context, documentID int64) ([]*tasks.Task, error) {
	q := `SELECT ` + taskColumns + ` FROM tasks WHERE document_id = ? ORDER BY id ASC`
	rows, err := r.db.QueryContext(ctx, q, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*tasks.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateStatus checks existence separately because MySQL reports zero
// affected rows when the status is unchanged.
func (r *TaskRepository) UpdateStatus(ctx context.Context, id int64, status tasks.Status) error {
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `UPDATE tasks SET status = ? WHERE id = ?`, string(status), id)
	return err
}

func scanTask(row rowScanner) (*tasks.Task, error) {
	var (
		t      tasks.Task
		due    sql.NullTime
		status string
	)
	if err := row.Scan(&t.ID, &t.DocumentID, &t.Title, &t.Description, &t.Assignee, &due,
		&status, &t.ImpactArea, &t.ExternalID, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.DueDate = timePtr(due)
	t.Status = tasks.Status(status)
	return &t, nil
}
