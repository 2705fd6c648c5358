package ports

import (
	"context"
	"io"
)

// BlobStore keeps file bytes by key.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader) (int64, error)
	// Open yields domain.ErrBlobNotFound for unknown keys.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
