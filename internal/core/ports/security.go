package ports

import (
	"time"

	"github.com/99minutos/filestore/internal/core/domain"
)

// TokenIssuer mints signed, time-limited tokens bound to a user.
type TokenIssuer interface {
	Issue(userID string, ttl time.Duration) (string, error)
}

// TokenVerifier validates a presented token. Errors are domain.ErrTokenExpired
// or domain.ErrTokenInvalid.
type TokenVerifier interface {
	Verify(token string) (*domain.Claims, error)
}

// PasswordHasher is a salted one-way password hash.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}
