package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/bryanwahyu/docimpact/internal/domain/documents"
)

type DocumentRepository struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]documents.Document
}

func NewDocumentRepository() *DocumentRepository {
	return &DocumentRepository{byID: make(map[int64]documents.Document)}
}

func (r *DocumentRepository) Create(ctx context.Context, d *documents.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	d.ID = r.nextID
	r.byID[d.ID] = *d
	return nil
}

func (r *DocumentRepository) Get(ctx context.Context, id int64) (*documents.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byID[id]
	if !ok {
		return nil, documents.ErrDocumentNotFound
	}
	return &d, nil
}

// List returns the newest documents first.
func (r *DocumentRepository) List(ctx context.Context, limit int) ([]*documents.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*documents.Document, 0, len(r.byID))
	for _, d := range r.byID {
		d := d
		out = append(out, &d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].UploadedAt.After(out[j].UploadedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
