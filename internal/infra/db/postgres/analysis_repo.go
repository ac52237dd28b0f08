package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bryanwahyu/docimpact/internal/domain/analysis"
)

type AnalysisRepository struct{ db *sql.DB }

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository { return &AnalysisRepository{db: db} }

const statusColumns = `document_id, state, attempts, last_error, started_at, finished_at, updated_at`

func (r *AnalysisRepository) Status(ctx context.Context, documentID int64) (*analysis.Status, error) {
	q := `SELECT ` + statusColumns + ` FROM analysis_status WHERE document_id = $1`
	st, err := scanStatus(r.db.QueryRowContext(ctx, q, documentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return st, err
}

// TryStart claims the document in one statement: the upsert only updates rows
// that are NOT_STARTED or FAILED, so a running or completed row returns nothing.
func (r *AnalysisRepository) TryStart(ctx context.Context, documentID int64, now time.Time) (*analysis.Status, bool, error) {
	const q = `
INSERT INTO analysis_status (document_id, state, attempts, last_error, started_at, finished_at, updated_at)
VALUES ($1, 'IN_PROGRESS', 1, '', $2, NULL, $2)
ON CONFLICT (document_id) DO UPDATE SET
  state = 'IN_PROGRESS',
  attempts = analysis_status.attempts + 1,
  last_error = '',
  started_at = EXCLUDED.started_at,
  finished_at = NULL,
  updated_at = EXCLUDED.updated_at
WHERE analysis_status.state IN ('NOT_STARTED', 'FAILED')
RETURNING ` + statusColumns
	st, err := scanStatus(r.db.QueryRowContext(ctx, q, documentID, now))
	if errors.Is(err, sql.ErrNoRows) {
		cur, err := r.Status(ctx, documentID)
		return cur, false, err
	}
	if err != nil {
		return nil, false, err
	}
	return st, true, nil
}

func (r *AnalysisRepository) Complete(ctx context.Context, res *analysis.Result, now time.Time) error {
	areas, err := json.Marshal(res.ImpactedAreas)
	if err != nil {
		return fmt.Errorf("marshal impacted areas: %w", err)
	}
	related, err := json.Marshal(res.RelatedDocuments)
	if err != nil {
		return fmt.Errorf("marshal related documents: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const ins = `
INSERT INTO analysis_results (document_id, impact_level, impacted_areas, related_documents, created_at)
VALUES ($1,$2,$3,$4,$5)
RETURNING id`
	if err := tx.QueryRowContext(ctx, ins, res.DocumentID, string(res.ImpactLevel), string(areas), string(related), res.CreatedAt).Scan(&res.ID); err != nil {
		if isUniqueViolation(err) {
			return analysis.ErrAlreadyAnalyzed
		}
		return err
	}

	const upd = `
UPDATE analysis_status
SET state = 'COMPLETE', last_error = '', finished_at = $2, updated_at = $2
WHERE document_id = $1 AND state = 'IN_PROGRESS'`
	out, err := tx.ExecContext(ctx, upd, res.DocumentID, now)
	if err != nil {
		return err
	}
	if n, _ := out.RowsAffected(); n != 1 {
		return analysis.ErrNotInProgress
	}
	return tx.Commit()
}

func (r *AnalysisRepository) Fail(ctx context.Context, documentID int64, reason string, now time.Time) error {
	const q = `
UPDATE analysis_status
SET state = 'FAILED', last_error = $2, finished_at = $3, updated_at = $3
WHERE document_id = $1 AND state = 'IN_PROGRESS'`
	out, err := r.db.ExecContext(ctx, q, documentID, stringOrDash(reason), now)
	if err != nil {
		return err
	}
	if n, _ := out.RowsAffected(); n != 1 {
		return analysis.ErrNotInProgress
	}
	return nil
}

func (r *AnalysisRepository) Result(ctx context.Context, documentID int64) (*analysis.Result, error) {
	const q = `
SELECT id, document_id, impact_level, impacted_areas, related_documents, created_at
FROM analysis_results WHERE document_id = $1`
	var (
		res            analysis.Result
		level          string
		areas, related []byte
	)
	err := r.db.QueryRowContext(ctx, q, documentID).Scan(&res.ID, &res.DocumentID, &level, &areas, &related, &res.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	res.ImpactLevel = analysis.ImpactLevel(level)
	if err := json.Unmarshal(areas, &res.ImpactedAreas); err != nil {
		return nil, fmt.Errorf("decode impacted areas: %w", err)
	}
	if err := json.Unmarshal(related, &res.RelatedDocuments); err != nil {
		return nil, fmt.Errorf("decode related documents: %w", err)
	}
	return &res, nil
}

func (r *AnalysisRepository) ResetRunning(ctx context.Context, reason string, now time.Time) (int64, error) {
	const q = `
UPDATE analysis_status
SET state = 'FAILED', last_error = $1, updated_at = $2
WHERE state = 'IN_PROGRESS'`
	out, err := r.db.ExecContext(ctx, q, stringOrDash(reason), now)
	if err != nil {
		return 0, err
	}
	return out.RowsAffected()
}

func scanStatus(row rowScanner) (*analysis.Status, error) {
	var (
		st                analysis.Status
		state             string
		started, finished sql.NullTime
	)
	if err := row.Scan(&st.DocumentID, &state, &st.Attempts, &st.Error, &started, &finished, &st.UpdatedAt); err != nil {
		return nil, err
	}
	st.State = analysis.State(state)
	st.StartedAt = timePtr(started)
	st.FinishedAt = timePtr(finished)
	return &st, nil
}
