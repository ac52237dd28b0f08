package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS documents (
  id           BIGSERIAL PRIMARY KEY,
  title        TEXT NOT NULL,
  description  TEXT NOT NULL DEFAULT '',
  file_name    TEXT NOT NULL,
  file_type    VARCHAR(8) NOT NULL,
  file_size    BIGINT NOT NULL DEFAULT 0,
  file_url     TEXT NOT NULL,
  content_text TEXT NOT NULL DEFAULT '',
  uploaded_at  TIMESTAMPTZ NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS analysis_status (
  document_id BIGINT PRIMARY KEY REFERENCES documents(id),
  state       VARCHAR(16) NOT NULL,
  attempts    INT NOT NULL DEFAULT 0,
  last_error  TEXT NOT NULL DEFAULT '',
  started_at  TIMESTAMPTZ NULL,
  finished_at TIMESTAMPTZ NULL,
  updated_at  TIMESTAMPTZ NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS analysis_results (
  id                BIGSERIAL PRIMARY KEY,
  document_id       BIGINT NOT NULL UNIQUE REFERENCES documents(id),
  impact_level      VARCHAR(8) NOT NULL,
  impacted_areas    JSONB NOT NULL,
  related_documents JSONB NOT NULL,
  created_at        TIMESTAMPTZ NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS chat_messages (
  id          BIGSERIAL PRIMARY KEY,
  document_id BIGINT NULL REFERENCES documents(id),
  role        VARCHAR(16) NOT NULL,
  content     TEXT NOT NULL,
  reply_to    BIGINT NULL,
  failed      BOOLEAN NOT NULL DEFAULT FALSE,
  created_at  TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS chat_messages_history_idx ON chat_messages (document_id, created_at, id)`,
	`CREATE INDEX IF NOT EXISTS chat_messages_reply_idx ON chat_messages (reply_to)`,
	`CREATE TABLE IF NOT EXISTS tasks (
  id          BIGSERIAL PRIMARY KEY,
  document_id BIGINT NOT NULL REFERENCES documents(id),
  title       TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  assignee    TEXT NOT NULL DEFAULT '',
  due_date    TIMESTAMPTZ NULL,
  status      VARCHAR(16) NOT NULL,
  impact_area TEXT NOT NULL DEFAULT '',
  external_id TEXT NOT NULL DEFAULT '',
  created_at  TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS tasks_document_idx ON tasks (document_id)`,
	`CREATE TABLE IF NOT EXISTS job_errors (
  id           BIGSERIAL PRIMARY KEY,
  document_id  BIGINT NOT NULL,
  job          VARCHAR(16) NOT NULL,
  phase        VARCHAR(32) NOT NULL,
  attempt      INT NOT NULL DEFAULT 0,
  message      TEXT NOT NULL,
  details_json JSONB NOT NULL,
  created_at   TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS job_errors_document_idx ON job_errors (document_id, created_at)`,
}

// Migrate creates the tables if they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}
