package ports

import (
	"context"
	"io"

	"github.com/99minutos/filestore/internal/core/domain"
)

// UploadInput carries an uploaded file from the transport layer.
type UploadInput struct {
	OriginalName string
	MimeType     string
	Size         int64
	Body         io.Reader
	OwnerID      string
}

// ListFilesInput is a page request. Non-positive values select defaults.
type ListFilesInput struct {
	Page int
	Size int
}

// FileService defines use-case operations for uploaded files.
type FileService interface {
	Upload(ctx context.Context, in UploadInput) (*domain.File, error)
	List(ctx context.Context, in ListFilesInput) ([]*domain.File, error)
	Get(ctx context.Context, id string) (*domain.File, error)
	// Open returns the metadata and a reader over the bytes. The caller
	// closes the reader.
	Open(ctx context.Context, id string) (*domain.File, io.ReadCloser, error)
	Replace(ctx context.Context, id string, in UploadInput) (*domain.File, error)
	Delete(ctx context.Context, id string) error
}
