package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/bryanwahyu/docimpact/internal/domain/chat"
)

type MessageRepository struct{ db *sql.DB }

func NewMessageRepository(db *sql.DB) *MessageRepository { return &MessageRepository{db: db} }

const messageColumns = `id, document_id, role, content, reply_to, failed, created_at`

const conversationLockTimeout = 10 // seconds

func conversationLockName(documentID *int64) string {
	if documentID == nil {
		return "docimpact:chat:none"
	}
	return "docimpact:chat:" + strconv.FormatInt(*documentID, 10)
}

// Append never stores a message older than the conversation's newest one, so
// created_at order and insertion order agree. Appends to one conversation are
// serialized with a named lock held on a dedicated connection.
func (r *MessageRepository) Append(ctx context.Context, m *chat.Message) error {
	const q = `
INSERT INTO chat_messages (document_id, role, content, reply_to, failed, created_at)
SELECT ?, ?, ?, ?, ?, GREATEST(?, COALESCE(
  (SELECT MAX(c.created_at) FROM chat_messages c WHERE c.document_id <=> ?), ?))`

	conn, err := r.db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	name := conversationLockName(m.DocumentID)
	var got sql.NullInt64
	if err := conn.QueryRowContext(ctx, `SELECT GET_LOCK(?, ?)`, name, conversationLockTimeout).Scan(&got); err != nil {
		return fmt.Errorf("lock conversation: %w", err)
	}
	if !got.Valid || got.Int64 != 1 {
		return fmt.Errorf("lock conversation %s: timed out", name)
	}
	defer func() {
		_, _ = conn.ExecContext(context.WithoutCancel(ctx), `SELECT RELEASE_LOCK(?)`, name)
	}()

	doc := nullInt(m.DocumentID)
	out, err := conn.ExecContext(ctx, q,
		doc, string(m.Role), m.Content, nullInt(m.ReplyTo), m.Failed, m.CreatedAt, doc, m.CreatedAt)
	if err != nil {
		return err
	}
	if m.ID, err = out.LastInsertId(); err != nil {
		return err
	}
	return conn.QueryRowContext(ctx, `SELECT created_at FROM chat_messages WHERE id = ?`, m.ID).Scan(&m.CreatedAt)
}

func (r *MessageRepository) History(ctx context.Context, documentID *int64) ([]*chat.Message, error) {
	q := `SELECT ` + messageColumns + ` FROM chat_messages
WHERE document_id <=> ?
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
WHERE document_id <=> ? AND role = 'user'
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
WHERE reply_to = ? AND role = 'assistant' AND failed = FALSE
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
