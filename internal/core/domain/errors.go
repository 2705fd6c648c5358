package domain

import "errors"

// Credential and store errors.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTooManyAttempts    = errors.New("too many sign-in attempts")
	ErrStoreUnavailable   = errors.New("store unavailable")
)

// Token and session errors. ErrTokenExpired is only reported for tokens
// whose signature checked out.
var (
	ErrTokenExpired    = errors.New("token expired")
	ErrTokenInvalid    = errors.New("token invalid")
	ErrSessionRejected = errors.New("session rejected")
)

// File errors.
var (
	ErrFileNotFound = errors.New("file not found")
	ErrBlobNotFound = errors.New("blob not found")
	ErrInvalidFile  = errors.New("invalid file")
)
