package documents

import (
	"context"
	"io"
)

// Repository is the document record store. Get returns ErrDocumentNotFound
// for unknown ids.
type Repository interface {
	Create(ctx context.Context, d *Document) error
	Get(ctx context.Context, id int64) (*Document, error)
	List(ctx context.Context, limit int) ([]*Document, error)
}

// FileStore keeps uploaded binaries and returns a URL for the stored object.
// Delete of a missing key is not an error.
type FileStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}
