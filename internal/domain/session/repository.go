package session

import "context"

// Repository defines the interface for session data access
type Repository interface {
	// Create stores a new session.
	Create(ctx context.Context, params CreateParams) (*Session, error)

	// GetByID retrieves a session (with its user's email). Returns
	// ErrSessionNotFound when no row matches.
	GetByID(ctx context.Context, id string) (*Session, error)

	// Revoke marks a session as signed out.
	Revoke(ctx context.Context, id string) error
}
