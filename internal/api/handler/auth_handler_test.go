package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/filestore/internal/api/middleware"
	"github.com/99minutos/filestore/internal/core/domain"
)

type stubAuthService struct {
	signUpFn      func(ctx context.Context, username, email, password string) (*domain.User, error)
	signInFn      func(ctx context.Context, email, password string) (*domain.Session, error)
	issueAccessFn func(ctx context.Context, email, password string) (string, error)
}

func (s *stubAuthService) SignUp(ctx context.Context, username, email, password string) (*domain.User, error) {
	return s.signUpFn(ctx, username, email, password)
}

func (s *stubAuthService) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	return s.signInFn(ctx, email, password)
}

func (s *stubAuthService) IssueAccess(ctx context.Context, email, password string) (string, error) {
	return s.issueAccessFn(ctx, email, password)
}

func newAuthHandler(stub *stubAuthService) *AuthHandler {
	return NewAuthHandler(stub, middleware.NewCookiePolicy(false, "Lax", domain.DefaultRefreshTTL), zerolog.Nop())
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return resp["message"]
}

func TestAuthHandler_SignIn_Success(t *testing.T) {
	e := echo.New()
	stub := &stubAuthService{
		signInFn: func(ctx context.Context, email, password string) (*domain.Session, error) {
			if email != "alice@example.com" || password != "secret" {
				t.Fatalf("unexpected args: %s %s", email, password)
			}
			return &domain.Session{UserID: "42", AccessToken: "acc", RefreshToken: "ref", RefreshExpiresAt: time.Now().Add(time.Hour)}, nil
		},
	}
	handler := newAuthHandler(stub)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/signin", `{"email":"alice@example.com","password":"secret"}`), rec)

	if err := handler.SignIn(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	got := map[string]*http.Cookie{}
	for _, ck := range rec.Result().Cookies() {
		got[ck.Name] = ck
	}
	want := map[string]string{"userId": "42", "Authorization": "acc", "Refresh-Token": "ref"}
	for name, value := range want {
		ck, ok := got[name]
		if !ok || ck.Value != value || !ck.HttpOnly {
			t.Fatalf("cookie %s: got %+v", name, ck)
		}
	}
	if strings.Contains(rec.Body.String(), "acc") {
		t.Fatalf("tokens must stay out of the body: %s", rec.Body.String())
	}
}

func TestAuthHandler_SignIn_Failures(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    int
		message string
	}{
		{"wrong credentials", domain.ErrInvalidCredentials, http.StatusUnauthorized, "Could not sign in, try again later"},
		{"throttled", domain.ErrTooManyAttempts, http.StatusTooManyRequests, "Too many sign-in attempts, try again later"},
		{"store down", fmt.Errorf("find user: %w", domain.ErrStoreUnavailable), http.StatusInternalServerError, "An error occurred"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			handler := newAuthHandler(&stubAuthService{
				signInFn: func(context.Context, string, string) (*domain.Session, error) { return nil, tc.err },
			})

			rec := httptest.NewRecorder()
			c := e.NewContext(jsonRequest(http.MethodPost, "/signin", `{"email":"a@b.c","password":"x"}`), rec)
			_ = handler.SignIn(c)

			if rec.Code != tc.code {
				t.Fatalf("expected %d, got %d", tc.code, rec.Code)
			}
			if msg := decodeMessage(t, rec); msg != tc.message {
				t.Fatalf("unexpected message %q", msg)
			}
			if len(rec.Result().Cookies()) != 0 {
				t.Fatal("no cookies may be set on failure")
			}
		})
	}
}

func TestAuthHandler_SignIn_InvalidPayload(t *testing.T) {
	e := echo.New()
	handler := newAuthHandler(&stubAuthService{
		signInFn: func(context.Context, string, string) (*domain.Session, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	})

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/signin", "not-json"), rec)
	_ = handler.SignIn(c)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAuthHandler_NewToken(t *testing.T) {
	e := echo.New()
	handler := newAuthHandler(&stubAuthService{
		issueAccessFn: func(ctx context.Context, email, password string) (string, error) {
			if password != "secret" {
				return "", domain.ErrInvalidCredentials
			}
			return "fresh", nil
		},
	})

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/signin/new_token", `{"email":"a@b.c","password":"secret"}`), rec)
	if err := handler.NewToken(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if rec.Code != http.StatusOK || resp["accessToken"] != "fresh" {
		t.Fatalf("unexpected response %d %v", rec.Code, resp)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatal("new_token must not set cookies")
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(jsonRequest(http.MethodPost, "/signin/new_token", `{"email":"a@b.c","password":"nope"}`), rec)
	_ = handler.NewToken(c)
	if rec.Code != http.StatusUnauthorized || decodeMessage(t, rec) != "Invalid credentials" {
		t.Fatalf("expected 401 Invalid credentials, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestAuthHandler_SignUp(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		err     error
		code    int
		message string
	}{
		{"success", `{"username":"alice","email":"alice@example.com","password":"secret"}`, nil, http.StatusOK, "User registered successfully"},
		{"exists", `{"username":"alice","email":"alice@example.com","password":"secret"}`, domain.ErrUserExists, http.StatusBadRequest, "User with this email already exists"},
		{"store failure", `{"username":"alice","email":"alice@example.com","password":"secret"}`, domain.ErrStoreUnavailable, http.StatusInternalServerError, "Internal server error"},
		{"missing email", `{"username":"alice","password":"secret"}`, nil, http.StatusBadRequest, "email is required"},
		{"bad email", `{"username":"alice","email":"nope","password":"secret"}`, nil, http.StatusBadRequest, "email must be a valid email"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			e.Validator = NewValidator()
			handler := newAuthHandler(&stubAuthService{
				signUpFn: func(ctx context.Context, username, email, password string) (*domain.User, error) {
					if tc.err != nil {
						return nil, tc.err
					}
					return &domain.User{ID: "1", Username: username, Email: email}, nil
				},
			})

			rec := httptest.NewRecorder()
			c := e.NewContext(jsonRequest(http.MethodPost, "/signup", tc.body), rec)
			if err := handler.SignUp(c); err != nil {
				t.Fatalf("handler error: %v", err)
			}

			if rec.Code != tc.code {
				t.Fatalf("expected %d, got %d", tc.code, rec.Code)
			}
			if msg := decodeMessage(t, rec); msg != tc.message {
				t.Fatalf("unexpected message %q", msg)
			}
		})
	}
}

func TestAuthHandler_Info(t *testing.T) {
	e := echo.New()
	handler := newAuthHandler(&stubAuthService{})

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/info", nil), rec)
	c.Set(middleware.ContextUserID, "42")

	if err := handler.Info(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if msg := decodeMessage(t, rec); msg != "Welcome: 42" {
		t.Fatalf("unexpected message %q", msg)
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/info", nil), rec)
	err := handler.Info(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without identity, got %v", err)
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	e := echo.New()
	handler := newAuthHandler(&stubAuthService{})

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/logout", nil), rec)
	if err := handler.Logout(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	cleared := 0
	for _, ck := range rec.Result().Cookies() {
		if ck.MaxAge < 0 {
			cleared++
		}
	}
	if rec.Code != http.StatusOK || cleared != 3 {
		t.Fatalf("expected 3 cleared cookies, got %d (status %d)", cleared, rec.Code)
	}
	if msg := decodeMessage(t, rec); msg != "Logged out successfully" {
		t.Fatalf("unexpected message %q", msg)
	}
}
