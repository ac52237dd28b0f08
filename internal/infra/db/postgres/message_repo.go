package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bryanwahyu/docimpact/internal/domain/chat"
)

type MessageRepository struct{ db *sql.DB }

func NewMessageRepository(db *sql.DB) *MessageRepository { return &MessageRepository{db: db} }

const messageColumns = `id, document_id, role, content, reply_to, failed, created_at`

// conversationLockKey is the advisory lock key of a conversation. Document
// ids start at 1 so 0 is free for document-less sessions.
func conversationLockKey(documentID *int64) int64 {
	if documentID == nil {
		return 0
	}
	return *documentID
}

// Append never stores a message older than the conversation's newest one, so
// created_at order and insertion order agree. Appends to one conversation are
// serialized with a transaction scoped advisory lock.
func (r *MessageRepository) Append(ctx context.Context, m *chat.Message) error {
	const q = `
INSERT INTO chat_messages (document_id, role, content, reply_to, failed, created_at)
SELECT $1::BIGINT, $2, $3, $4::BIGINT, $5,
       GREATEST($6::TIMESTAMPTZ, COALESCE(
         (SELECT MAX(created_at) FROM chat_messages WHERE document_id IS NOT DISTINCT FROM $1::BIGINT),
         $6::TIMESTAMPTZ))
RETURNING id, created_at`

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, conversationLockKey(m.DocumentID)); err != nil {
		return fmt.Errorf("lock conversation: %w", err)
	}
	err = tx.QueryRowContext(ctx, q,
		nullInt(m.DocumentID), string(m.Role), m.Content, nullInt(m.ReplyTo), m.Failed, m.CreatedAt,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (r *MessageRepository) History(ctx context.Context, documentID *int64) ([]*chat.Message, error) {
	q := `SELECT ` + messageColumns + ` FROM chat_messages
WHERE document_id IS NOT DISTINCT FROM $1::BIGINT
ORDER BY created_at ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, q, nullInt(documentID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*chat.Message, 0)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *MessageRepository) LatestUserMessage(ctx context.Context, documentID *int64) (*chat.Message, error) {
	q := `SELECT ` + messageColumns + ` FROM chat_messages
WHERE document_id IS NOT DISTINCT FROM $1::BIGINT AND role = 'user'
ORDER BY created_at DESC, id DESC
LIMIT 1`
	m, err := scanMessage(r.db.QueryRowContext(ctx, q, nullInt(documentID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

// FindReply returns the successful assistant reply to a user message, if any.
func (r *MessageRepository) FindReply(ctx context.Context, userMessageID int64) (*chat.Message, error) {
	q := `SELECT ` + messageColumns + ` FROM chat_messages
WHERE reply_to = $1 AND role = 'assistant' AND failed = FALSE
ORDER BY id ASC
LIMIT 1`
	m, err := scanMessage(r.db.QueryRowContext(ctx, q, userMessageID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

func scanMessage(row rowScanner) (*chat.Message, error) {
	var (
		m            chat.Message
		role         string
		doc, replyTo sql.NullInt64
	)
	if err := row.Scan(&m.ID, &doc, &role, &m.Content, &replyTo, &m.Failed, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.Role = chat.Role(role)
	m.DocumentID = intPtr(doc)
	m.ReplyTo = intPtr(replyTo)
	return &m, nil
}
