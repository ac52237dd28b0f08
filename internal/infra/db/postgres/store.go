package postgres

import "database/sql"

// Stores groups the repositories that share one connection pool.
type Stores struct {
	Documents *DocumentRepository
	Analysis  *AnalysisRepository
	Messages  *MessageRepository
	Tasks     *TaskRepository
	JobErrors *JobErrorRepository
}

func NewStores(db *sql.DB) *Stores {
	return &Stores{
		Documents: NewDocumentRepository(db),
		Analysis:  NewAnalysisRepository(db),
		Messages:  NewMessageRepository(db),
		Tasks:     NewTaskRepository(db),
		JobErrors: NewJobErrorRepository(db),
	}
}
