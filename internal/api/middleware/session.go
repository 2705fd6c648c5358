package middleware

import (
	"errors"
	"net/http"
	"regexp"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/filestore/internal/api/metrics"
	"github.com/99minutos/filestore/internal/core/domain"
	"github.com/99minutos/filestore/internal/core/ports"
)

// ContextUserID is the echo context key holding the authenticated user id.
const ContextUserID = "user_id"

// A key is a run of word characters or hyphens, the value runs to the next
// ";". "Refresh-Token" must come out whole.
var cookiePair = regexp.MustCompile(`([\w-]+)\s*=\s*([^;]+)`)

// ParseCookieHeader extracts name/value pairs from a raw Cookie header.
// Values are not trimmed, later duplicates win, malformed segments are
// skipped.
func ParseCookieHeader(raw string) map[string]string {
	pairs := make(map[string]string)
	for _, m := range cookiePair.FindAllStringSubmatch(raw, -1) {
		pairs[m[1]] = m[2]
	}
	return pairs
}

// Session authenticates requests from their session cookies, renewing an
// expired access token when the refresh token still holds. Rejected
// requests get 403.
func Session(sessions ports.SessionService, cookies *CookiePolicy, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			jar := ParseCookieHeader(c.Request().Header.Get("Cookie"))

			auth, err := sessions.Authenticate(c.Request().Context(), ports.SessionCredentials{
				Access:  jar[domain.CookieAccessToken],
				Refresh: jar[domain.CookieRefreshToken],
			})
			if err != nil {
				metrics.SessionChecksTotal.WithLabelValues(string(domain.StateRejected), "false").Inc()
				if !errors.Is(err, domain.ErrSessionRejected) {
					log.Error().Err(err).Str("path", c.Path()).Msg("session check failed")
				}
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
			}

			if auth.Renewed() {
				cookies.SetAccess(c, auth.RenewedAccess)
			}
			metrics.SessionChecksTotal.WithLabelValues(string(domain.StateAuthenticated), strconv.FormatBool(auth.Renewed())).Inc()

			c.Set(ContextUserID, auth.UserID)
			return next(c)
		}
	}
}
