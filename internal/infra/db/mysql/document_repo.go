package mysql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/bryanwahyu/docimpact/internal/domain/documents"
)

type DocumentRepository struct{ db *sql.DB }

func NewDocumentRepository(db *sql.DB) *DocumentRepository { return &DocumentRepository{db: db} }

const documentColumns = `id, title, description, file_name, file_type, file_size, file_url, content_text, uploaded_at`

func (r *DocumentRepository) Create(ctx context.Context, d *documents.Document) error {
	const q = `
INSERT INTO documents (title, description, file_name, file_type, file_size, file_url, content_text, uploaded_at)
VALUES (?,?,?,?,?,?,?,?)`
	res, err := r.db.ExecContext(ctx, q,
		stringOrDash(d.Title), d.Description, d.FileName, d.FileType, d.FileSize, d.FileURL, d.ContentText, d.UploadedAt)
	if err != nil {
		return err
	}
	d.ID, err = res.LastInsertId()
	return err
}

func (r *DocumentRepository) Get(ctx context.Context, id int64) (*documents.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents WHERE id = ?`
	d, err := scanDocument(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, documents.ErrDocumentNotFound
	}
	return d, err
}

func (r *DocumentRepository) List(ctx context.Context, limit int) ([]*documents.Document, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT ` + documentColumns + ` FROM documents ORDER BY uploaded_at DESC, id DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*documents.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanDocument(row rowScanner) (*documents.Document, error) {
	var d documents.Document
	if err := row.Scan(&d.ID, &d.Title, &d.Description, &d.FileName, &d.FileType,
		&d.FileSize, &d.FileURL, &d.ContentText, &d.UploadedAt); err != nil {
		return nil, err
	}
	return &d, nil
}
