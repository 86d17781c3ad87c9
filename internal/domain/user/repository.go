package user

import "context"

// Repository stores ledger owners. Email lookups expect the normalized
// (trimmed, lowercased) address.
type Repository interface {
	Create(ctx context.Context, params CreateUserParams) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}
