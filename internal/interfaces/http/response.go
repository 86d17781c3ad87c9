package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"finanzas/internal/domain/ledger"
	"finanzas/internal/domain/session"
	"finanzas/internal/shared/messages"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// ledgerError maps a ledger or session error to a status code and a
// user-facing message. fallback is the message for the operation that failed.
func ledgerError(msgs *messages.Messages, err error, fallback string) (int, string) {
	switch {
	case errors.Is(err, ledger.ErrNoSession),
		errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, session.ErrSessionExpired):
		return http.StatusUnauthorized, msgs.SessionRequired
	case errors.Is(err, ledger.ErrSettlementIncomplete):
		return http.StatusInternalServerError, msgs.SettleIncomplete
	case errors.Is(err, ledger.ErrSettlementInFlight):
		return http.StatusConflict, msgs.SettleInFlight
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound, msgs.NotFound
	case errors.Is(err, ledger.ErrInvalidAmount):
		return http.StatusBadRequest, msgs.InvalidAmount
	case errors.Is(err, ledger.ErrAmountExceedsBalance):
		return http.StatusBadRequest, msgs.AmountExceedsBalance
	case errors.Is(err, ledger.ErrAlreadySettled):
		return http.StatusBadRequest, msgs.AlreadySettled
	case errors.Is(err, ledger.ErrPartialNotAllowed):
		return http.StatusBadRequest, msgs.PartialNotAllowed
	case errors.Is(err, ledger.ErrValidation):
		return http.StatusBadRequest, msgs.InvalidEntry
	case errors.Is(err, ledger.ErrConnection):
		return http.StatusServiceUnavailable, fallback
	}
	return http.StatusInternalServerError, fallback
}

// sessionError maps a session manager error to a status code and message.
func sessionError(msgs *messages.Messages, err error) (int, string) {
	switch {
	case errors.Is(err, session.ErrInvalidCredentials):
		return http.StatusUnauthorized, msgs.InvalidCredentials
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, session.ErrSessionExpired):
		return http.StatusUnauthorized, msgs.SessionRequired
	case errors.Is(err, session.ErrEmailTaken):
		return http.StatusConflict, msgs.EmailTaken
	case errors.Is(err, session.ErrInvalidEmail):
		return http.StatusBadRequest, msgs.InvalidEmail
	case errors.Is(err, session.ErrWeakPassword):
		return http.StatusBadRequest, msgs.WeakPassword
	case errors.Is(err, ledger.ErrConnection):
		return http.StatusServiceUnavailable, msgs.ConnectionFailed
	}
	return http.StatusInternalServerError, msgs.ConnectionFailed
}
