package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"finanzas/internal/domain/session"
	"finanzas/internal/shared/messages"
	"finanzas/internal/shared/middleware"
)

// SessionService is the part of session.Manager the handlers use.
type SessionService interface {
	SignUp(ctx context.Context, email, password string) (*session.Grant, error)
	SignInWithPassword(ctx context.Context, email, password string) (*session.Grant, error)
	SignInAnonymous(ctx context.Context) (*session.Grant, error)
	SignOut(ctx context.Context, token string) error
}

type SessionHandler struct {
	sessions SessionService
	msgs     *messages.Messages
	validate *validator.Validate
	now      func() time.Time
}

func NewSessionHandler(sessions SessionService, msgs *messages.Messages) *SessionHandler {
	if msgs == nil {
		msgs = messages.Default()
	}
	return &SessionHandler{
		sessions: sessions,
		msgs:     msgs,
		validate: newValidator(),
		now:      time.Now,
	}
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// HandleRegister creates an email/password account and signs it in.
func (h *SessionHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, h.msgs.InvalidEmail)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		if firstInvalidField(err) == "password" {
			writeError(w, http.StatusBadRequest, h.msgs.WeakPassword)
			return
		}
		writeError(w, http.StatusBadRequest, h.msgs.InvalidEmail)
		return
	}

	grant, err := h.sessions.SignUp(r.Context(), req.Email, req.Password)
	h.respondGrant(w, r, grant, err, http.StatusCreated)
}

// HandleLogin signs in with email and password.
func (h *SessionHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, h.msgs.InvalidCredentials)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, h.msgs.InvalidCredentials)
		return
	}

	grant, err := h.sessions.SignInWithPassword(r.Context(), req.Email, req.Password)
	h.respondGrant(w, r, grant, err, http.StatusOK)
}

// HandleAnonymous starts a guest session.
func (h *SessionHandler) HandleAnonymous(w http.ResponseWriter, r *http.Request) {
	grant, err := h.sessions.SignInAnonymous(r.Context())
	h.respondGrant(w, r, grant, err, http.StatusCreated)
}

// HandleLogout revokes the caller's session and clears the cookie.
func (h *SessionHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.Token(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, h.msgs.SessionRequired)
		return
	}

	if err := h.sessions.SignOut(r.Context(), token); err != nil {
		status, msg := sessionError(h.msgs, err)
		if status >= http.StatusInternalServerError {
			log.Printf("Error signing out: %v", err)
		}
		clearAuthCookie(w, r)
		writeError(w, status, msg)
		return
	}

	clearAuthCookie(w, r)
	w.WriteHeader(http.StatusNoContent)
}

// HandleSession returns the session resolved by the auth middleware.
func (h *SessionHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, h.msgs.SessionRequired)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *SessionHandler) respondGrant(w http.ResponseWriter, r *http.Request, grant *session.Grant, err error, status int) {
	if err != nil {
		code, msg := sessionError(h.msgs, err)
		if code >= http.StatusInternalServerError {
			log.Printf("Error opening session: %v", err)
		}
		writeError(w, code, msg)
		return
	}

	setAuthCookie(w, r, grant.Token, grant.Session.ExpiresAt.Sub(h.now()))
	writeJSON(w, status, grant)
}

func setAuthCookie(w http.ResponseWriter, r *http.Request, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl.Seconds()),
	})
}

func clearAuthCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// Only set the Secure flag when the request actually arrived over HTTPS.
func isSecureRequest(r *http.Request) bool {
	return r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"
}
