package domain

import "time"

// AuthEventKind classifies an audit event.
type AuthEventKind string

const (
	EventSignInSuccess   AuthEventKind = "signin.success"
	EventSignInFailure   AuthEventKind = "signin.failure"
	EventSignInThrottled AuthEventKind = "signin.throttled"
	EventSignUp          AuthEventKind = "signup"
	EventSessionRenewed  AuthEventKind = "session.renewed"
	EventSessionRejected AuthEventKind = "session.rejected"
)

// AuthEvent is an authentication fact recorded for auditing.
type AuthEvent struct {
	Kind       AuthEventKind
	UserID     string
	Identifier string
	Reason     string
	At         time.Time
}

// Key is the sharding key: events for the same subject stay ordered.
func (e AuthEvent) Key() string {
	if e.UserID != "" {
		return e.UserID
	}
	return e.Identifier
}
