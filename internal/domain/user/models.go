package user

import (
	"errors"
	"time"
)

// Domain errors
var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

type User struct {
	ID           int64     `json:"id"`
	Email        *string   `json:"email,omitempty"` // Nil for anonymous users
	PasswordHash *string   `json:"-"`
	IsAnonymous  bool      `json:"isAnonymous"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// DisplayEmail returns the email or an empty string for anonymous users.
func (u *User) DisplayEmail() string {
	if u.Email == nil {
		return ""
	}
	return *u.Email
}

type CreateUserParams struct {
	Email        *string
	PasswordHash *string
	IsAnonymous  bool
}
