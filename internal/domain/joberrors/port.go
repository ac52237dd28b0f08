package joberrors

import (
	"context"
)

// Repository is the operational failure log.
type Repository interface {
	Save(ctx context.Context, e *Entry) error
	ListByDocument(ctx context.Context, documentID int64, limit int) ([]*Entry, error)
}
