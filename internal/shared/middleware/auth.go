package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"finanzas/internal/domain/session"
)

type ContextKey string

const (
	SessionKey ContextKey = "session"
	UserIDKey  ContextKey = "user_id"
)

// TokenCookie is the cookie browsers carry the session token in.
const TokenCookie = "access_token"

// SessionResolver resolves a bearer token to an active session.
type SessionResolver interface {
	GetSession(ctx context.Context, token string) (*session.Session, error)
}

// Auth rejects requests without an active session and stores the session in
// the request context.
func Auth(resolver SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := Token(r)
			if !ok {
				http.Error(w, "Authentication required", http.StatusUnauthorized)
				return
			}

			sess, err := resolver.GetSession(r.Context(), token)
			if err != nil {
				if !errors.Is(err, session.ErrSessionNotFound) && !errors.Is(err, session.ErrSessionExpired) {
					log.Printf("Error resolving session: %v", err)
				}
				http.Error(w, "Invalid or expired session", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), SessionKey, sess)
			ctx = context.WithValue(ctx, UserIDKey, sess.UserID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Token extracts the session token from the access_token cookie or, failing
// that, an Authorization: Bearer header.
func Token(r *http.Request) (string, bool) {
	if cookie, err := r.Cookie(TokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value, true
	}

	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// SessionFrom returns the session Auth stored in ctx.
func SessionFrom(ctx context.Context) (*session.Session, bool) {
	sess, ok := ctx.Value(SessionKey).(*session.Session)
	return sess, ok && sess != nil
}
