package ports

import (
	"context"

	"github.com/99minutos/filestore/internal/core/domain"
)

// AuthService covers account creation and credential checks.
type AuthService interface {
	SignUp(ctx context.Context, username, email, password string) (*domain.User, error)
	SignIn(ctx context.Context, email, password string) (*domain.Session, error)
	// IssueAccess re-authenticates and mints a lone access token.
	IssueAccess(ctx context.Context, email, password string) (string, error)
}

// SessionCredentials are the token values presented by a client.
type SessionCredentials struct {
	Access  string
	Refresh string
}

// Authentication is the outcome of a per-request session check.
type Authentication struct {
	UserID string
	// State is StateValidAccess or StateRenewedAccess on success, and the
	// state that caused the rejection otherwise.
	State domain.SessionState
	// Path lists every state visited, ending in StateAuthenticated or
	// StateRejected.
	Path []domain.SessionState
	// RenewedAccess is set only when the access token was reissued.
	RenewedAccess string
}

// Renewed reports whether a new access token was minted.
func (a *Authentication) Renewed() bool {
	return a != nil && a.RenewedAccess != ""
}

// SessionService authenticates requests from their session tokens.
type SessionService interface {
	Authenticate(ctx context.Context, creds SessionCredentials) (*Authentication, error)
}
