package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"finanzas/internal/domain/user"
	"finanzas/internal/shared/auth"
)

// MockUserRepository is an in-memory implementation of user.Repository
type MockUserRepository struct {
	mu         sync.Mutex
	users      map[int64]*user.User
	nextID     int64
	CreateFunc func(ctx context.Context, params user.CreateUserParams) (*user.User, error)
}

func newMockUserRepository() *MockUserRepository {
	return &MockUserRepository{users: make(map[int64]*user.User), nextID: 1}
}

func (m *MockUserRepository) Create(ctx context.Context, params user.CreateUserParams) (*user.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, params)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if params.Email != nil {
		for _, u := range m.users {
			if u.Email != nil && *u.Email == *params.Email {
				return nil, user.ErrEmailTaken
			}
		}
	}
	u := &user.User{
		ID:           m.nextID,
		Email:        params.Email,
		PasswordHash: params.PasswordHash,
		IsAnonymous:  params.IsAnonymous,
	}
	m.users[u.ID] = u
	m.nextID++
	return u, nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, user.ErrUserNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email != nil && *u.Email == email {
			return u, nil
		}
	}
	return nil, user.ErrUserNotFound
}

// MockRepository is an in-memory implementation of Repository
type MockRepository struct {
	mu       sync.Mutex
	sessions map[string]*Session
	now      func() time.Time
}

func newMockRepository(now func() time.Time) *MockRepository {
	return &MockRepository{sessions: make(map[string]*Session), now: now}
}

func (m *MockRepository) Create(ctx context.Context, params CreateParams) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &Session{
		ID:          params.ID,
		UserID:      params.UserID,
		IsAnonymous: params.IsAnonymous,
		CreatedAt:   m.now(),
		ExpiresAt:   params.ExpiresAt,
	}
	m.sessions[s.ID] = s
	cp := *s
	return &cp, nil
}

func (m *MockRepository) GetByID(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MockRepository) Revoke(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	now := m.now()
	s.RevokedAt = &now
	return nil
}

func newTestManager(t *testing.T) (*Manager, *MockUserRepository, *MockRepository) {
	t.Helper()
	users := newMockUserRepository()
	sessions := newMockRepository(time.Now)
	m := NewManager(users, sessions, auth.NewJWT("test-secret"), auth.NewPasswordHasher(bcrypt.MinCost), time.Hour)
	return m, users, sessions
}

func TestManager_SignInAnonymous(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	grant, err := m.SignInAnonymous(ctx)
	if err != nil {
		t.Fatalf("SignInAnonymous() failed: %v", err)
	}
	if grant.Token == "" {
		t.Fatal("SignInAnonymous() returned empty token")
	}
	if !grant.Session.IsAnonymous {
		t.Error("expected anonymous session")
	}

	sess, err := m.GetSession(ctx, grant.Token)
	if err != nil {
		t.Fatalf("GetSession() failed: %v", err)
	}
	if sess.ID != grant.Session.ID || sess.UserID != grant.Session.UserID {
		t.Errorf("GetSession() = %+v, want %+v", sess, grant.Session)
	}
}

func TestManager_SignUpAndSignIn(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	grant, err := m.SignUp(ctx, "  Ana@Example.com ", "secreto")
	if err != nil {
		t.Fatalf("SignUp() failed: %v", err)
	}
	if grant.Session.Email != "ana@example.com" {
		t.Errorf("SignUp() email = %q, want %q", grant.Session.Email, "ana@example.com")
	}

	signIn, err := m.SignInWithPassword(ctx, "ana@example.com", "secreto")
	if err != nil {
		t.Fatalf("SignInWithPassword() failed: %v", err)
	}
	if signIn.Session.UserID != grant.Session.UserID {
		t.Errorf("SignInWithPassword() user = %d, want %d", signIn.Session.UserID, grant.Session.UserID)
	}
	if signIn.Session.ID == grant.Session.ID {
		t.Error("expected a new session on sign in")
	}
}

func TestManager_SignUpValidation(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"missing email", "", "secreto", ErrInvalidEmail},
		{"malformed email", "not-an-email", "secreto", ErrInvalidEmail},
		{"display name form", "Ana <ana@example.com>", "secreto", ErrInvalidEmail},
		{"short password", "ana@example.com", "12345", ErrWeakPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.SignUp(ctx, tt.email, tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("SignUp() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestManager_SignUpDuplicateEmail(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	if _, err := m.SignUp(ctx, "ana@example.com", "secreto"); err != nil {
		t.Fatalf("SignUp() failed: %v", err)
	}
	if _, err := m.SignUp(ctx, "ANA@example.com", "otro-secreto"); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("SignUp() duplicate error = %v, want ErrEmailTaken", err)
	}
}

func TestManager_SignInWithPasswordRejects(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	if _, err := m.SignUp(ctx, "ana@example.com", "secreto"); err != nil {
		t.Fatalf("SignUp() failed: %v", err)
	}
	if _, err := m.SignInAnonymous(ctx); err != nil {
		t.Fatalf("SignInAnonymous() failed: %v", err)
	}

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "ana@example.com", "incorrecto"},
		{"unknown email", "nadie@example.com", "secreto"},
		{"malformed email", "ana", "secreto"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.SignInWithPassword(ctx, tt.email, tt.password)
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("SignInWithPassword() error = %v, want ErrInvalidCredentials", err)
			}
		})
	}
}

func TestManager_SignOut(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	events, unsubscribe := m.Subscribe(4)
	defer unsubscribe()

	grant, err := m.SignInAnonymous(ctx)
	if err != nil {
		t.Fatalf("SignInAnonymous() failed: %v", err)
	}

	ev := <-events
	if ev.Type != EventSignedIn || ev.Session.ID != grant.Session.ID {
		t.Errorf("first event = %+v, want SIGNED_IN for %s", ev, grant.Session.ID)
	}

	if err := m.SignOut(ctx, grant.Token); err != nil {
		t.Fatalf("SignOut() failed: %v", err)
	}

	ev = <-events
	if ev.Type != EventSignedOut || ev.Session.ID != grant.Session.ID {
		t.Errorf("second event = %+v, want SIGNED_OUT for %s", ev, grant.Session.ID)
	}

	if _, err := m.GetSession(ctx, grant.Token); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("GetSession() after sign out error = %v, want ErrSessionExpired", err)
	}
	if err := m.SignOut(ctx, grant.Token); err == nil {
		t.Error("SignOut() twice should fail")
	}
}

func TestManager_GetSessionRejects(t *testing.T) {
	m, _, sessions := newTestManager(t)
	ctx := context.Background()

	if _, err := m.GetSession(ctx, "garbage"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("GetSession(garbage) error = %v, want ErrSessionNotFound", err)
	}

	// Token signed for a session the store never saw
	token, _ := auth.NewJWT("test-secret").Generate("missing", 1, false, time.Now().Add(time.Hour))
	if _, err := m.GetSession(ctx, token); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("GetSession(unknown session) error = %v, want ErrSessionNotFound", err)
	}

	// Session expired in the store while the token is still valid
	grant, _ := m.SignInAnonymous(ctx)
	sessions.mu.Lock()
	sessions.sessions[grant.Session.ID].ExpiresAt = time.Now().Add(-time.Minute)
	sessions.mu.Unlock()
	if _, err := m.GetSession(ctx, grant.Token); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("GetSession(expired) error = %v, want ErrSessionExpired", err)
	}
}

func TestManager_OnSessionChange(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	got := make(chan EventType, 2)
	stop := m.OnSessionChange(func(ev Event) {
		got <- ev.Type
	})
	defer stop()

	grant, _ := m.SignInAnonymous(ctx)
	_ = m.SignOut(ctx, grant.Token)

	for _, want := range []EventType{EventSignedIn, EventSignedOut} {
		select {
		case typ := <-got:
			if typ != want {
				t.Errorf("event = %s, want %s", typ, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func TestManager_SubscribeDropsWhenFull(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	events, unsubscribe := m.Subscribe(1)

	// Sign-ins must not block on a full subscriber buffer.
	for i := 0; i < 3; i++ {
		if _, err := m.SignInAnonymous(ctx); err != nil {
			t.Fatalf("SignInAnonymous() failed: %v", err)
		}
	}

	if len(events) != 1 {
		t.Errorf("buffered events = %d, want 1", len(events))
	}

	unsubscribe()
	unsubscribe()
	<-events
	if _, ok := <-events; ok {
		t.Error("channel should be closed after unsubscribe")
	}
}
