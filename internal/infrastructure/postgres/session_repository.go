package postgres

import (
	"context"
	"database/sql"

	"finanzas/internal/domain/session"
)

type SessionRepository struct {
	db *DB
}

func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, params session.CreateParams) (*session.Session, error) {
	query := `
		WITH inserted AS (
			INSERT INTO sessions (id, user_id, is_anonymous, expires_at)
			VALUES ($1, $2, $3, $4)
			RETURNING id, user_id, is_anonymous, created_at, expires_at, revoked_at
		)
		SELECT i.id, i.user_id, u.email, i.is_anonymous, i.created_at, i.expires_at, i.revoked_at
		FROM inserted i
		JOIN users u ON u.id = i.user_id
	`

	s, err := scanSession(r.db.QueryRowContext(ctx, query, params.ID, params.UserID, params.IsAnonymous, params.ExpiresAt))
	if err != nil {
		return nil, classify("create session", err)
	}
	return s, nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*session.Session, error) {
	query := `
		SELECT s.id, s.user_id, u.email, s.is_anonymous, s.created_at, s.expires_at, s.revoked_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.id = $1
	`

	s, err := scanSession(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, session.ErrSessionNotFound
	}
	if err != nil {
		return nil, classify("get session", err)
	}
	return s, nil
}

func (r *SessionRepository) Revoke(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET revoked_at = CURRENT_TIMESTAMP WHERE id = $1 AND revoked_at IS NULL`, id,
	)
	if err != nil {
		return classify("revoke session", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return classify("revoke session", err)
	}
	if rows == 0 {
		return session.ErrSessionNotFound
	}
	return nil
}

func scanSession(s scanner) (*session.Session, error) {
	var sess session.Session
	var email sql.NullString
	var revokedAt sql.NullTime

	err := s.Scan(&sess.ID, &sess.UserID, &email, &sess.IsAnonymous, &sess.CreatedAt, &sess.ExpiresAt, &revokedAt)
	if err != nil {
		return nil, err
	}

	sess.Email = email.String
	if revokedAt.Valid {
		sess.RevokedAt = &revokedAt.Time
	}
	return &sess, nil
}
