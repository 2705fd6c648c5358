package domain

import "time"

// Cookie names carried by a client-held session.
const (
	CookieUserID       = "userId"
	CookieAccessToken  = "Authorization"
	CookieRefreshToken = "Refresh-Token"
)

// Default token lifetimes.
const (
	DefaultAccessTTL  = 10 * time.Minute
	DefaultRefreshTTL = 30 * 24 * time.Hour
)

// SessionState names a step of per-request authentication.
type SessionState string

const (
	StateNoToken       SessionState = "no_token"
	StateValidAccess   SessionState = "valid_access"
	StateExpiredAccess SessionState = "expired_access"
	StateInvalidAccess SessionState = "invalid_access"
	StateRenewedAccess SessionState = "renewed_access"
	StateRejected      SessionState = "rejected"
	StateAuthenticated SessionState = "authenticated"
	// StateTimedOut means the request context ended before the tokens
	// were checked.
	StateTimedOut      SessionState = "timed_out"
)

// Claims is the decoded payload of a verified token.
type Claims struct {
	UserID    string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Session is the token pair minted on sign-in. Both tokens encode UserID.
type Session struct {
	UserID           string
	AccessToken      string
	RefreshToken     string
	// RefreshExpiresAt bounds the whole session; cookies expire with it.
	RefreshExpiresAt time.Time
}
