package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"finanzas/internal/domain/user"
	"finanzas/internal/shared/auth"
)

// DefaultTTL is used when the manager is created without a session lifetime.
const DefaultTTL = 7 * 24 * time.Hour

// Manager issues, resolves and revokes sessions and notifies subscribers of
// session changes.
type Manager struct {
	users    user.Repository
	sessions Repository
	jwt      *auth.JWT
	hasher   *auth.PasswordHasher
	ttl      time.Duration
	now      func() time.Time

	mu     sync.RWMutex
	nextID int
	subs   map[int]chan Event
}

// NewManager creates a new session manager
func NewManager(users user.Repository, sessions Repository, jwt *auth.JWT, hasher *auth.PasswordHasher, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		users:    users,
		sessions: sessions,
		jwt:      jwt,
		hasher:   hasher,
		ttl:      ttl,
		now:      time.Now,
		subs:     make(map[int]chan Event),
	}
}

// GetSession resolves a bearer token to its active session.
func (m *Manager) GetSession(ctx context.Context, token string) (*Session, error) {
	claims, err := m.jwt.Validate(token)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, ErrSessionExpired
		}
		return nil, ErrSessionNotFound
	}

	sess, err := m.sessions.GetByID(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if sess.UserID != claims.UserID {
		return nil, ErrSessionNotFound
	}
	if !sess.Active(m.now()) {
		return nil, ErrSessionExpired
	}

	return sess, nil
}

// Subscribe registers a channel that receives session events. Events are
// dropped for subscribers whose buffer is full. The returned function
// unsubscribes and closes the channel.
func (m *Manager) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = ch
	m.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
			close(ch)
		})
	}
}

// OnSessionChange calls fn for every session event until the returned
// function is called.
func (m *Manager) OnSessionChange(fn func(Event)) func() {
	ch, unsubscribe := m.Subscribe(16)
	go func() {
		for ev := range ch {
			fn(ev)
		}
	}()
	return unsubscribe
}

// SignInAnonymous creates a guest user and opens a session for it.
func (m *Manager) SignInAnonymous(ctx context.Context) (*Grant, error) {
	u, err := m.users.Create(ctx, user.CreateUserParams{IsAnonymous: true})
	if err != nil {
		return nil, fmt.Errorf("failed to create anonymous user: %w", err)
	}
	return m.open(ctx, u)
}

// SignUp registers an email/password user and opens a session for it.
func (m *Manager) SignUp(ctx context.Context, email, password string) (*Grant, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	hash, err := m.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u, err := m.users.Create(ctx, user.CreateUserParams{
		Email:        &email,
		PasswordHash: &hash,
	})
	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return m.open(ctx, u)
}

// SignInWithPassword verifies credentials and opens a session.
func (m *Manager) SignInWithPassword(ctx context.Context, email, password string) (*Grant, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	u, err := m.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if u.PasswordHash == nil {
		return nil, ErrInvalidCredentials
	}
	if err := m.hasher.Verify(*u.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	return m.open(ctx, u)
}

// SignOut revokes the session behind token and notifies subscribers.
func (m *Manager) SignOut(ctx context.Context, token string) error {
	sess, err := m.GetSession(ctx, token)
	if err != nil {
		return err
	}

	if err := m.sessions.Revoke(ctx, sess.ID); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	now := m.now()
	sess.RevokedAt = &now
	m.publish(Event{Type: EventSignedOut, Session: sess})
	return nil
}

func (m *Manager) open(ctx context.Context, u *user.User) (*Grant, error) {
	sess, err := m.sessions.Create(ctx, CreateParams{
		ID:          uuid.NewString(),
		UserID:      u.ID,
		IsAnonymous: u.IsAnonymous,
		ExpiresAt:   m.now().Add(m.ttl),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	if sess.Email == "" {
		sess.Email = u.DisplayEmail()
	}

	token, err := m.jwt.Generate(sess.ID, sess.UserID, sess.IsAnonymous, sess.ExpiresAt)
	if err != nil {
		return nil, err
	}

	m.publish(Event{Type: EventSignedIn, Session: sess})
	return &Grant{Token: token, Session: sess}, nil
}

func (m *Manager) publish(ev Event) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for id, ch := range m.subs {
		select {
		case ch <- ev:
		default:
			log.Printf("Dropping %s event for subscriber %d: buffer full", ev.Type, id)
		}
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}
