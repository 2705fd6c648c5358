package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/filestore/internal/api/middleware"
)

// ctxUserID returns the identity placed on the context by the Session
// middleware. Its absence means the route was wired without it.
func ctxUserID(c echo.Context) (string, error) {
	id, _ := c.Get(middleware.ContextUserID).(string)
	if id == "" {
		return "", echo.NewHTTPError(http.StatusForbidden, "forbidden")
	}
	return id, nil
}
