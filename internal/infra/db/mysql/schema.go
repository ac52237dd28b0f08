package mysql

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS documents (
  id           BIGINT AUTO_INCREMENT PRIMARY KEY,
  title        VARCHAR(512) NOT NULL,
  description  TEXT NOT NULL,
  file_name    VARCHAR(512) NOT NULL,
  file_type    VARCHAR(8) NOT NULL,
  file_size    BIGINT NOT NULL DEFAULT 0,
  file_url     TEXT NOT NULL,
  content_text LONGTEXT NOT NULL,
  uploaded_at  DATETIME(6) NOT NULL,
  KEY idx_documents_uploaded (uploaded_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS analysis_status (
  document_id BIGINT PRIMARY KEY,
  state       VARCHAR(16) NOT NULL,
  attempts    INT NOT NULL DEFAULT 0,
  last_error  TEXT NOT NULL,
  started_at  DATETIME(6) NULL,
  finished_at DATETIME(6) NULL,
  updated_at  DATETIME(6) NOT NULL,
  CONSTRAINT fk_analysis_status_document FOREIGN KEY (document_id) REFERENCES documents(id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS analysis_results (
  id                BIGINT AUTO_INCREMENT PRIMARY KEY,
  document_id       BIGINT NOT NULL,
  impact_level      VARCHAR(8) NOT NULL,
  impacted_areas    JSON NOT NULL,
  related_documents JSON NOT NULL,
  created_at        DATETIME(6) NOT NULL,
  UNIQUE KEY uq_analysis_results_document (document_id),
  CONSTRAINT fk_analysis_results_document FOREIGN KEY (document_id) REFERENCES documents(id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS chat_messages (
  id          BIGINT AUTO_INCREMENT PRIMARY KEY,
  document_id BIGINT NULL,
  role        VARCHAR(16) NOT NULL,
  content     TEXT NOT NULL,
  reply_to    BIGINT NULL,
  failed      BOOLEAN NOT NULL DEFAULT FALSE,
  created_at  DATETIME(6) NOT NULL,
  KEY idx_chat_history (document_id, created_at, id),
  KEY idx_chat_reply (reply_to)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS tasks (
  id          BIGINT AUTO_INCREMENT PRIMARY KEY,
  document_id BIGINT NOT NULL,
  title       VARCHAR(512) NOT NULL,
  description TEXT NOT NULL,
  assignee    VARCHAR(255) NOT NULL DEFAULT '',
  due_date    DATETIME(6) NULL,
  status      VARCHAR(16) NOT NULL,
  impact_area VARCHAR(255) NOT NULL DEFAULT '',
  external_id VARCHAR(64) NOT NULL DEFAULT '',
  created_at  DATETIME(6) NOT NULL,
  KEY idx_tasks_document (document_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS job_errors (
  id           BIGINT AUTO_INCREMENT PRIMARY KEY,
  document_id  BIGINT NOT NULL,
  job          VARCHAR(16) NOT NULL,
  phase        VARCHAR(32) NOT NULL,
  attempt      INT NOT NULL DEFAULT 0,
  message      TEXT NOT NULL,
  details_json JSON NOT NULL,
  created_at   DATETIME(6) NOT NULL,
  KEY idx_job_errors_document (document_id, created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates the tables if they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("mysql migrate: %w", err)
		}
	}
	return nil
}
