package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// Store defines the record store the ledger consumes.
// This interface is defined in the domain layer, but implemented in the infrastructure layer.
// Every mutating call is scoped by both entry ID and owner ID.
type Store interface {
	// List returns all entries owned by the user, newest first.
	List(ctx context.Context, userID int64) ([]*Entry, error)

	// Get reads one owned entry as currently stored. Returns ErrNotFound when
	// no owned row matches.
	Get(ctx context.Context, id string, userID int64) (*Entry, error)

	// Insert stores a new entry and returns the stored row with its assigned ID.
	Insert(ctx context.Context, params CreateParams) (*Entry, error)

	// Update patches an owned, unsettled entry. Returns ErrNotFound when no such
	// row matches and ErrAmountExceedsBalance when a reduction is larger than
	// the stored amount.
	Update(ctx context.Context, id string, userID int64, params UpdateParams) error

	// Delete removes an owned entry. Returns ErrNotFound when no owned row matches.
	Delete(ctx context.Context, id string, userID int64) error
}

// AtomicSettler is implemented by stores that can reduce a bill by paid and
// insert its settlement entry in a single transaction. It returns the reduced
// bill and the payment as stored, with the same errors as Update.
type AtomicSettler interface {
	SettlePartial(ctx context.Context, id string, userID int64, paid decimal.Decimal, payment CreateParams) (reduced, created *Entry, err error)
}
