package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/bryanwahyu/docimpact/internal/domain/joberrors"
)

type JobErrorRepository struct{ db *sql.DB }

func NewJobErrorRepository(db *sql.DB) *JobErrorRepository { return &JobErrorRepository{db: db} }

func (r *JobErrorRepository) Save(ctx context.Context, e *joberrors.Entry) error {
	const q = `
INSERT INTO job_errors (document_id, job, phase, attempt, message, details_json, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING id`
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return r.db.QueryRowContext(ctx, q,
		e.DocumentID, stringOrDash(e.Job), stringOrDash(e.Phase), e.Attempt,
		stringOrDash(e.Message), jsonOrEmpty(e.DetailsJSON), created,
	).Scan(&e.ID)
}

func (r *JobErrorRepository) ListByDocument(ctx context.Context, documentID int64, limit int) ([]*joberrors.Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, document_id, job, phase, attempt, message, details_json, created_at
FROM job_errors
WHERE document_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2`
	rows, err := r.db.QueryContext(ctx, q, documentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*joberrors.Entry, 0)
	for rows.Next() {
		var e joberrors.Entry
		if err := rows.Scan(&e.ID, &e.DocumentID, &e.Job, &e.Phase, &e.Attempt, &e.Message, &e.DetailsJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
