package ledger

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"finanzas/internal/domain/session"
)

// ErrNoSession is returned when an operation is called without a session.
var ErrNoSession = errors.New("session required")

// Overview is everything the dashboard shows at once.
type Overview struct {
	Summary   Summary                `json:"summary"`
	Breakdown []CategoryTotal        `json:"breakdown"`
	Pending   map[Kind]PendingTotals `json:"pending"`
}

// CategoryOptions lists categories in use plus the suggestions per kind.
type CategoryOptions struct {
	InUse     []string          `json:"inUse"`
	Suggested map[Kind][]string `json:"suggested"`
}

// Service contains the business logic for ledger operations. Every
// operation is scoped by the session passed to it.
type Service struct {
	store   Store
	books   *Books
	settler *Settler
	now     func() time.Time
}

// NewService creates a new ledger service
func NewService(store Store, guard Guard) *Service {
	return &Service{
		store:   store,
		books:   NewBooks(store),
		settler: NewSettler(store, guard),
		now:     time.Now,
	}
}

// Books exposes the resident book registry (for session-change wiring).
func (s *Service) Books() *Books {
	return s.books
}

// Entries returns the session's entries matching the filter, newest first.
func (s *Service) Entries(ctx context.Context, sess *session.Session, f Filter) ([]*Entry, error) {
	book, err := s.book(sess)
	if err != nil {
		return nil, err
	}

	entries, err := book.Entries(ctx)
	if err != nil {
		return nil, err
	}

	if f.IsEmpty() {
		return entries, nil
	}
	return f.Apply(entries), nil
}

// Refresh reloads the session's record set from the store.
func (s *Service) Refresh(ctx context.Context, sess *session.Session) error {
	book, err := s.book(sess)
	if err != nil {
		return err
	}
	return book.Refresh(ctx)
}

// Create validates and stores a new entry owned by the session's user.
func (s *Service) Create(ctx context.Context, sess *session.Session, params CreateParams) (*Entry, error) {
	book, err := s.book(sess)
	if err != nil {
		return nil, err
	}

	params.UserID = sess.UserID
	params = params.withDefaults(s.now())

	if err := params.Validate(); err != nil {
		return nil, err
	}

	entry, err := s.store.Insert(ctx, params)
	if err != nil {
		return nil, err
	}

	book.prepend(entry)
	return entry, nil
}

// Delete removes one of the session user's entries.
func (s *Service) Delete(ctx context.Context, sess *session.Session, id string) error {
	book, err := s.book(sess)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, id, sess.UserID); err != nil {
		return err
	}

	book.remove(id)
	return nil
}

// SettleFull marks an entry as paid (expense) or collected (income).
func (s *Service) SettleFull(ctx context.Context, sess *session.Session, id string) (*SettlementResult, error) {
	book, err := s.book(sess)
	if err != nil {
		return nil, err
	}

	result, err := s.settler.SettleFull(ctx, sess.UserID, id)
	if err != nil {
		invalidateOnConflict(book, err)
		return nil, err
	}

	book.replace(result.Entry)
	return result, nil
}

// SettlePartial pays part of a pending bill. The settlement works on the
// stored row, not the resident copy. On a split the book is reloaded from
// the store so it reflects both writes as the store saw them.
func (s *Service) SettlePartial(ctx context.Context, sess *session.Session, id string, amount decimal.Decimal) (*SettlementResult, error) {
	book, err := s.book(sess)
	if err != nil {
		return nil, err
	}

	result, err := s.settler.SettlePartial(ctx, sess.UserID, id, amount)
	if err != nil {
		invalidateOnConflict(book, err)
		return nil, err
	}

	if !result.Split() {
		book.replace(result.Entry)
		return result, nil
	}

	if err := book.Refresh(ctx); err != nil {
		log.Printf("Error refreshing ledger for user %d after partial settlement: %v", sess.UserID, err)
		book.Invalidate()
	}
	return result, nil
}

// invalidateOnConflict drops the resident copy when the store disagreed
// with it, so the next read shows the stored state.
func invalidateOnConflict(book *Book, err error) {
	switch {
	case errors.Is(err, ErrSettlementIncomplete),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrAlreadySettled),
		errors.Is(err, ErrAmountExceedsBalance):
		book.Invalidate()
	}
}

// Summary computes the dashboard overview for the session's ledger.
func (s *Service) Summary(ctx context.Context, sess *session.Session) (*Overview, error) {
	entries, err := s.Entries(ctx, sess, Filter{})
	if err != nil {
		return nil, err
	}

	return &Overview{
		Summary:   Summarize(entries),
		Breakdown: CategoryBreakdown(entries),
		Pending:   ObligationTotals(entries),
	}, nil
}

// Obligations lists the pending entries of a kind, ordered by due date.
func (s *Service) Obligations(ctx context.Context, sess *session.Session, kind Kind) ([]Obligation, error) {
	if !kind.Valid() {
		return nil, ErrInvalidKind
	}

	entries, err := s.Entries(ctx, sess, Filter{})
	if err != nil {
		return nil, err
	}

	return PendingObligations(entries, kind, s.now()), nil
}

// Categories returns the categories in use and the per-kind suggestions.
func (s *Service) Categories(ctx context.Context, sess *session.Session) (*CategoryOptions, error) {
	entries, err := s.Entries(ctx, sess, Filter{})
	if err != nil {
		return nil, err
	}

	return &CategoryOptions{
		InUse: Categories(entries),
		Suggested: map[Kind][]string{
			KindIncome:  SuggestedCategories(KindIncome),
			KindExpense: SuggestedCategories(KindExpense),
		},
	}, nil
}

func (s *Service) book(sess *session.Session) (*Book, error) {
	if sess == nil || sess.UserID <= 0 {
		return nil, ErrNoSession
	}
	return s.books.For(sess), nil
}
