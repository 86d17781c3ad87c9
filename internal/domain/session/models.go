package session

import (
	"errors"
	"time"
)

// Domain errors
var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidEmail       = errors.New("a valid email is required")
	ErrWeakPassword       = errors.New("password must have at least 6 characters")
)

// MinPasswordLength is the shortest password SignUp accepts.
const MinPasswordLength = 6

// EventType identifies a session-change notification.
type EventType string

const (
	EventSignedIn  EventType = "SIGNED_IN"
	EventSignedOut EventType = "SIGNED_OUT"
)

// Session is an authenticated (possibly anonymous) user session. It is
// passed explicitly to every ledger operation.
type Session struct {
	ID          string     `json:"id"`
	UserID      int64      `json:"userId"`
	Email       string     `json:"email,omitempty"`
	IsAnonymous bool       `json:"isAnonymous"`
	CreatedAt   time.Time  `json:"createdAt"`
	ExpiresAt   time.Time  `json:"expiresAt"`
	RevokedAt   *time.Time `json:"-"`
}

// Active reports whether the session is neither revoked nor expired at now.
func (s *Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

// Event is delivered to subscribers when a session starts or ends.
type Event struct {
	Type    EventType
	Session *Session
}

// Grant is the result of a successful sign-in: the bearer token and the
// session it stands for.
type Grant struct {
	Token   string   `json:"token"`
	Session *Session `json:"session"`
}

// CreateParams contains parameters for creating a new session
type CreateParams struct {
	ID          string
	UserID      int64
	IsAnonymous bool
	ExpiresAt   time.Time
}
