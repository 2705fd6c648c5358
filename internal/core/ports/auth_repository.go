package ports

import (
	"context"

	"github.com/99minutos/filestore/internal/core/domain"
)

// UserRepository defines the credential store.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	// Create assigns the user ID. A duplicate email or username yields
	// domain.ErrUserExists.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
}
