package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/filestore/internal/core/domain"
	"github.com/99minutos/filestore/internal/core/ports"
)

const (
	defaultAuthTimeout = 5 * time.Second
	// maxPasswordBytes is bcrypt's input limit. Longer passwords are
	// rejected rather than silently truncated.
	maxPasswordBytes = 72
)

// AuthConfig holds token lifetimes and the per-operation time bound.
type AuthConfig struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Timeout    time.Duration
}

func (c AuthConfig) withDefaults() AuthConfig {
	if c.AccessTTL <= 0 {
		c.AccessTTL = domain.DefaultAccessTTL
	}
	if c.RefreshTTL <= 0 {
		c.RefreshTTL = domain.DefaultRefreshTTL
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultAuthTimeout
	}
	return c
}

// AuthOption wires optional collaborators into AuthService.
type AuthOption func(*AuthService)

// WithAttemptLimiter enables sign-in throttling.
func WithAttemptLimiter(l ports.AttemptLimiter) AuthOption {
	return func(s *AuthService) { s.limiter = l }
}

// WithAuditPublisher sends auth events to p.
func WithAuditPublisher(p ports.AuditPublisher) AuthOption {
	return func(s *AuthService) {
		if p != nil {
			s.audit = p
		}
	}
}

// AuthService implements signup and signin.
type AuthService struct {
	users   ports.UserRepository
	hasher  ports.PasswordHasher
	tokens  ports.TokenIssuer
	limiter ports.AttemptLimiter
	audit   ports.AuditPublisher
	cfg     AuthConfig
	log     zerolog.Logger

	decoyOnce sync.Once
	decoyHash string
}

func NewAuthService(
	users ports.UserRepository,
	hasher ports.PasswordHasher,
	tokens ports.TokenIssuer,
	cfg AuthConfig,
	log zerolog.Logger,
	opts ...AuthOption,
) *AuthService {
	s := &AuthService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		audit:  discardAudit{},
		cfg:    cfg.withDefaults(),
		log:    log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SignUp creates an account. Email and username are checked before the
// insert; the store's unique indexes still catch a concurrent duplicate.
func (s *AuthService) SignUp(ctx context.Context, username, email, password string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	username = strings.TrimSpace(username)
	email = normalizeEmail(email)
	if username == "" || email == "" || password == "" || len(password) > maxPasswordBytes {
		return nil, domain.ErrInvalidCredentials
	}

	_, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, domain.ErrUserExists
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, fmt.Errorf("sign up: %w", err)
	}
	_, err = s.users.FindByUsername(ctx, username)
	switch {
	case err == nil:
		return nil, domain.ErrUserExists
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, fmt.Errorf("sign up: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}

	created, err := s.users.Create(ctx, &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}

	s.publish(domain.AuthEvent{Kind: domain.EventSignUp, UserID: created.ID, Identifier: email})
	return created, nil
}

// SignIn checks credentials and mints an access/refresh token pair. A
// missing user and a wrong password both yield domain.ErrInvalidCredentials.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	user, err := s.checkCredentials(ctx, email, password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	access, err := s.tokens.Issue(user.ID, s.cfg.AccessTTL)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	refresh, err := s.tokens.Issue(user.ID, s.cfg.RefreshTTL)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}

	s.publish(domain.AuthEvent{Kind: domain.EventSignInSuccess, UserID: user.ID, Identifier: user.Email})
	return &domain.Session{
		UserID:           user.ID,
		AccessToken:      access,
		RefreshToken:     refresh,
		RefreshExpiresAt: now.Add(s.cfg.RefreshTTL),
	}, nil
}

// IssueAccess checks credentials and returns a fresh access token only.
func (s *AuthService) IssueAccess(ctx context.Context, email, password string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	user, err := s.checkCredentials(ctx, email, password)
	if err != nil {
		return "", err
	}

	access, err := s.tokens.Issue(user.ID, s.cfg.AccessTTL)
	if err != nil {
		return "", fmt.Errorf("issue access: %w", err)
	}
	s.publish(domain.AuthEvent{Kind: domain.EventSignInSuccess, UserID: user.ID, Identifier: user.Email, Reason: "access_only"})
	return access, nil
}

func (s *AuthService) checkCredentials(ctx context.Context, email, password string) (*domain.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		s.publish(domain.AuthEvent{Kind: domain.EventSignInFailure, Identifier: email, Reason: "empty_credentials"})
		return nil, domain.ErrInvalidCredentials
	}

	if !s.allowAttempt(ctx, email) {
		s.publish(domain.AuthEvent{Kind: domain.EventSignInThrottled, Identifier: email})
		return nil, domain.ErrTooManyAttempts
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			return nil, fmt.Errorf("sign in: %w", err)
		}
		// Spend the same hashing work as a real check so timing does not
		// reveal whether the email exists.
		if _, err := s.verifyPassword(ctx, password, s.decoy()); err != nil {
			return nil, fmt.Errorf("sign in: %w", err)
		}
		s.failAttempt(ctx, email, "unknown_email")
		return nil, domain.ErrInvalidCredentials
	}

	ok, err := s.verifyPassword(ctx, password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	if !ok {
		s.failAttempt(ctx, email, "password_mismatch")
		return nil, domain.ErrInvalidCredentials
	}

	s.resetAttempts(ctx, email)
	return user, nil
}

// verifyPassword runs the hash comparison off the request goroutine so an
// expired context is not held up by the work factor.
func (s *AuthService) verifyPassword(ctx context.Context, password, hash string) (bool, error) {
	done := make(chan bool, 1)
	go func() { done <- s.hasher.Verify(password, hash) }()

	select {
	case ok := <-done:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (s *AuthService) decoy() string {
	s.decoyOnce.Do(func() {
		hash, err := s.hasher.Hash("decoy-password-for-timing")
		if err != nil {
			s.log.Warn().Err(err).Msg("decoy hash unavailable")
		}
		s.decoyHash = hash
	})
	return s.decoyHash
}

func (s *AuthService) allowAttempt(ctx context.Context, email string) bool {
	if s.limiter == nil {
		return true
	}
	ok, err := s.limiter.Allow(ctx, email)
	if err != nil {
		s.log.Warn().Err(err).Msg("attempt limiter unavailable, allowing sign-in")
		return true
	}
	return ok
}

func (s *AuthService) failAttempt(ctx context.Context, email, reason string) {
	s.publish(domain.AuthEvent{Kind: domain.EventSignInFailure, Identifier: email, Reason: reason})
	if s.limiter == nil {
		return
	}
	if err := s.limiter.Fail(ctx, email); err != nil {
		s.log.Warn().Err(err).Msg("attempt limiter: record failure")
	}
}

func (s *AuthService) resetAttempts(ctx context.Context, email string) {
	if s.limiter == nil {
		return
	}
	if err := s.limiter.Reset(ctx, email); err != nil {
		s.log.Warn().Err(err).Msg("attempt limiter: reset")
	}
}

func (s *AuthService) publish(ev domain.AuthEvent) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	s.audit.Publish(ev)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type discardAudit struct{}

func (discardAudit) Publish(domain.AuthEvent) {}
