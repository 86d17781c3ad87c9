package postgres

import (
	"context"
	"database/sql"

	"finanzas/internal/domain/user"
)

type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, params user.CreateUserParams) (*user.User, error) {
	query := `
		INSERT INTO users (email, password_hash, is_anonymous)
		VALUES ($1, $2, $3)
		RETURNING id, email, password_hash, is_anonymous, created_at, updated_at
	`

	u, err := scanUser(r.db.QueryRowContext(ctx, query, params.Email, params.PasswordHash, params.IsAnonymous))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, user.ErrEmailTaken
		}
		return nil, classify("create user", err)
	}
	return u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	query := `
		SELECT id, email, password_hash, is_anonymous, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	u, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, user.ErrUserNotFound
	}
	if err != nil {
		return nil, classify("get user", err)
	}
	return u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	query := `
		SELECT id, email, password_hash, is_anonymous, created_at, updated_at
		FROM users
		WHERE email = $1
	`

	u, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err == sql.ErrNoRows {
		return nil, user.ErrUserNotFound
	}
	if err != nil {
		return nil, classify("get user by email", err)
	}
	return u, nil
}

func scanUser(s scanner) (*user.User, error) {
	var u user.User
	var email, passwordHash sql.NullString

	if err := s.Scan(&u.ID, &email, &passwordHash, &u.IsAnonymous, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}

	if email.Valid {
		u.Email = &email.String
	}
	if passwordHash.Valid {
		u.PasswordHash = &passwordHash.String
	}
	return &u, nil
}
