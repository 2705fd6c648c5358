package ports

import (
	"context"

	"github.com/99minutos/filestore/internal/core/domain"
)

// FileRepository persists file metadata.
type FileRepository interface {
	Create(ctx context.Context, f *domain.File) (*domain.File, error)
	FindByID(ctx context.Context, id string) (*domain.File, error)
	// List returns at most limit rows starting at offset, ordered by id.
	List(ctx context.Context, offset, limit int) ([]*domain.File, error)
	Update(ctx context.Context, f *domain.File) error
	Delete(ctx context.Context, id string) error
}
