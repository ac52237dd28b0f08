package memory

import (
	"context"
	"sync"

	"github.com/bryanwahyu/docimpact/internal/domain/joberrors"
)

type JobErrorRepository struct {
	mu      sync.RWMutex
	nextID  int64
	entries []joberrors.Entry
}

func NewJobErrorRepository() *JobErrorRepository {
	return &JobErrorRepository{}
}

func (r *JobErrorRepository) Save(ctx context.Context, e *joberrors.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	e.ID = r.nextID
	r.entries = append(r.entries, *e)
	return nil
}

// ListByDocument returns newest first.
func (r *JobErrorRepository) ListByDocument(ctx context.Context, documentID int64, limit int) ([]*joberrors.Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*joberrors.Entry, 0)
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if r.entries[i].DocumentID == documentID {
			e := r.entries[i]
			out = append(out, &e)
		}
	}
	return out, nil
}
