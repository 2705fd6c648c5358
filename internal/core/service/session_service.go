package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/99minutos/filestore/internal/core/domain"
	"github.com/99minutos/filestore/internal/core/ports"
)

// SessionService runs the per-request session state machine:
//
//	NoToken                    -> Rejected
//	ValidAccess                -> Authenticated
//	InvalidAccess              -> Rejected
//	ExpiredAccess, bad refresh -> Rejected
//	ExpiredAccess, ok refresh  -> RenewedAccess -> Authenticated
//
// It holds only injected, read-only collaborators.
type SessionService struct {
	verifier  ports.TokenVerifier
	issuer    ports.TokenIssuer
	accessTTL time.Duration
	timeout   time.Duration
	audit     ports.AuditPublisher
}

func NewSessionService(verifier ports.TokenVerifier, issuer ports.TokenIssuer, cfg AuthConfig, audit ports.AuditPublisher) *SessionService {
	cfg = cfg.withDefaults()
	if audit == nil {
		audit = discardAudit{}
	}
	return &SessionService{
		verifier:  verifier,
		issuer:    issuer,
		accessTTL: cfg.AccessTTL,
		timeout:   cfg.Timeout,
		audit:     audit,
	}
}

// Authenticate resolves creds to a user. On rejection the returned
// Authentication is still populated with the path taken, and the error
// wraps domain.ErrSessionRejected.
func (s *SessionService) Authenticate(ctx context.Context, creds ports.SessionCredentials) (*ports.Authentication, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	a := &ports.Authentication{}

	if creds.Access == "" {
		return s.reject(a, domain.StateNoToken, nil)
	}
	if err := ctx.Err(); err != nil {
		return s.reject(a, domain.StateTimedOut, err)
	}

	claims, err := s.verifier.Verify(creds.Access)
	switch {
	case err == nil:
		a.UserID = claims.UserID
		a.State = domain.StateValidAccess
		a.Path = append(a.Path, domain.StateValidAccess, domain.StateAuthenticated)
		return a, nil
	case errors.Is(err, domain.ErrTokenExpired):
		a.Path = append(a.Path, domain.StateExpiredAccess)
		return s.renew(ctx, a, creds.Refresh)
	default:
		a.Path = append(a.Path, domain.StateInvalidAccess)
		return s.reject(a, domain.StateInvalidAccess, err)
	}
}

// renew mints a new access token from a valid refresh token. The refresh
// token itself is never reissued, so its window does not slide.
func (s *SessionService) renew(ctx context.Context, a *ports.Authentication, refresh string) (*ports.Authentication, error) {
	if err := ctx.Err(); err != nil {
		return s.reject(a, domain.StateExpiredAccess, err)
	}

	claims, err := s.verifier.Verify(refresh)
	if err != nil {
		return s.reject(a, domain.StateExpiredAccess, err)
	}

	access, err := s.issuer.Issue(claims.UserID, s.accessTTL)
	if err != nil {
		return s.reject(a, domain.StateExpiredAccess, err)
	}

	a.UserID = claims.UserID
	a.State = domain.StateRenewedAccess
	a.RenewedAccess = access
	a.Path = append(a.Path, domain.StateRenewedAccess, domain.StateAuthenticated)

	s.audit.Publish(domain.AuthEvent{Kind: domain.EventSessionRenewed, UserID: claims.UserID, At: time.Now().UTC()})
	return a, nil
}

func (s *SessionService) reject(a *ports.Authentication, state domain.SessionState, cause error) (*ports.Authentication, error) {
	if len(a.Path) == 0 {
		a.Path = append(a.Path, state)
	}
	a.State = state
	a.Path = append(a.Path, domain.StateRejected)

	s.audit.Publish(domain.AuthEvent{Kind: domain.EventSessionRejected, Reason: string(state), At: time.Now().UTC()})

	if cause != nil {
		return a, fmt.Errorf("%w (%s): %w", domain.ErrSessionRejected, state, cause)
	}
	return a, fmt.Errorf("%w (%s)", domain.ErrSessionRejected, state)
}
