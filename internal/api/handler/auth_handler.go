package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/filestore/internal/api/middleware"
	"github.com/99minutos/filestore/internal/core/domain"
	"github.com/99minutos/filestore/internal/core/ports"
)

const (
	msgSignInFailed  = "Could not sign in, try again later"
	msgTooMany       = "Too many sign-in attempts, try again later"
	msgInternal      = "An error occurred"
	msgUserExists    = "User with this email already exists"
	msgServerError   = "Internal server error"
	msgInvalidInput  = "invalid payload"
	msgBadCredential = "Invalid credentials"
)

type AuthHandler struct {
	authService ports.AuthService
	cookies     *middleware.CookiePolicy
	log         zerolog.Logger
}

func NewAuthHandler(authService ports.AuthService, cookies *middleware.CookiePolicy, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, cookies: cookies, log: log}
}

type signUpRequest struct {
	Username string `json:"username" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,maxbytes=72"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type accessTokenResponse struct {
	AccessToken string `json:"accessToken"`
}

// SignIn checks credentials and sets the session cookies.
//
// @Summary      Sign in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signInRequest  true  "Credentials"
// @Success      200   {object}  messageResponse
// @Failure      401   {object}  messageResponse
// @Failure      429   {object}  messageResponse
// @Failure      500   {object}  messageResponse
// @Router       /signin [post]
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req signInRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: msgInvalidInput})
	}

	session, err := h.authService.SignIn(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return c.JSON(h.signInStatus(err, c))
	}

	h.cookies.SetSession(c, session)
	return c.JSON(http.StatusOK, messageResponse{Message: "Signed in successfully"})
}

// NewToken re-authenticates and returns a bare access token without cookies.
//
// @Summary      Issue an access token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signInRequest  true  "Credentials"
// @Success      200   {object}  accessTokenResponse
// @Failure      401   {object}  messageResponse
// @Failure      429   {object}  messageResponse
// @Failure      500   {object}  messageResponse
// @Router       /signin/new_token [post]
func (h *AuthHandler) NewToken(c echo.Context) error {
	var req signInRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: msgInvalidInput})
	}

	token, err := h.authService.IssueAccess(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		code, resp := h.signInStatus(err, c)
		if code == http.StatusUnauthorized {
			resp.Message = msgBadCredential
		}
		return c.JSON(code, resp)
	}
	return c.JSON(http.StatusOK, accessTokenResponse{AccessToken: token})
}

// SignUp creates an account.
//
// @Summary      Sign up
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signUpRequest  true  "New account"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  messageResponse
// @Failure      500   {object}  messageResponse
// @Router       /signup [post]
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req signUpRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: msgInvalidInput})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: err.Error()})
	}

	_, err := h.authService.SignUp(c.Request().Context(), req.Username, req.Email, req.Password)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, messageResponse{Message: "User registered successfully"})
	case errors.Is(err, domain.ErrUserExists):
		return c.JSON(http.StatusBadRequest, messageResponse{Message: msgUserExists})
	case errors.Is(err, domain.ErrInvalidCredentials):
		return c.JSON(http.StatusBadRequest, messageResponse{Message: msgInvalidInput})
	default:
		h.log.Error().Err(err).Msg("sign up failed")
		return c.JSON(http.StatusInternalServerError, messageResponse{Message: msgServerError})
	}
}

// Info greets the authenticated user.
//
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Success      200  {object}  messageResponse
// @Failure      403  {object}  map[string]string
// @Router       /info [get]
func (h *AuthHandler) Info(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Welcome: " + userID})
}

// Logout clears the session cookies.
//
// @Summary      Log out
// @Tags         auth
// @Produce      json
// @Success      200  {object}  messageResponse
// @Router       /logout [get]
func (h *AuthHandler) Logout(c echo.Context) error {
	h.cookies.Clear(c)
	return c.JSON(http.StatusOK, messageResponse{Message: "Logged out successfully"})
}

// signInStatus collapses sign-in failures into the public responses. The
// cause of a 401 is never revealed.
func (h *AuthHandler) signInStatus(err error, c echo.Context) (int, messageResponse) {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, messageResponse{Message: msgSignInFailed}
	case errors.Is(err, domain.ErrTooManyAttempts):
		return http.StatusTooManyRequests, messageResponse{Message: msgTooMany}
	default:
		h.log.Error().Err(err).Str("path", c.Path()).Msg("sign in failed")
		return http.StatusInternalServerError, messageResponse{Message: msgInternal}
	}
}
