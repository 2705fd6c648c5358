package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/filestore/internal/core/domain"
)

// CookiePolicy writes the session cookies. Every cookie is HTTP-only and
// scoped to "/".
type CookiePolicy struct {
	Secure   bool
	SameSite http.SameSite
	// Lifetime is the cookie max-age. It should match the refresh token ttl
	// so an expired access token is still sent back for renewal.
	Lifetime time.Duration
}

// NewCookiePolicy parses a SameSite name (Lax, Strict, None); anything else
// means Lax.
func NewCookiePolicy(secure bool, sameSite string, lifetime time.Duration) *CookiePolicy {
	mode := http.SameSiteLaxMode
	switch strings.ToLower(strings.TrimSpace(sameSite)) {
	case "strict":
		mode = http.SameSiteStrictMode
	case "none":
		mode = http.SameSiteNoneMode
	}
	if lifetime <= 0 {
		lifetime = domain.DefaultRefreshTTL
	}
	return &CookiePolicy{Secure: secure, SameSite: mode, Lifetime: lifetime}
}

// SetSession writes userId, Authorization and Refresh-Token. All three
// carry the refresh token's expiry as Expires for clients that ignore
// Max-Age.
func (p *CookiePolicy) SetSession(c echo.Context, s *domain.Session) {
	for _, ck := range []*http.Cookie{
		p.cookie(domain.CookieUserID, s.UserID),
		p.cookie(domain.CookieAccessToken, s.AccessToken),
		p.cookie(domain.CookieRefreshToken, s.RefreshToken),
	} {
		if !s.RefreshExpiresAt.IsZero() {
			ck.Expires = s.RefreshExpiresAt.UTC()
		}
		c.SetCookie(ck)
	}
}

// SetAccess replaces only the Authorization cookie.
func (p *CookiePolicy) SetAccess(c echo.Context, token string) {
	c.SetCookie(p.cookie(domain.CookieAccessToken, token))
}

// Clear expires all three session cookies.
func (p *CookiePolicy) Clear(c echo.Context) {
	for _, name := range []string{domain.CookieAccessToken, domain.CookieRefreshToken, domain.CookieUserID} {
		ck := p.cookie(name, "")
		ck.MaxAge = -1
		ck.Expires = time.Unix(0, 0)
		c.SetCookie(ck)
	}
}

func (p *CookiePolicy) cookie(name, value string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: p.SameSite,
		MaxAge:   int(p.Lifetime / time.Second),
	}
}
