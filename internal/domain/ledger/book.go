package ledger

import (
	"context"
	"sync"
	"time"

	"finanzas/internal/domain/session"
)

// Book keeps one user's full record set resident in memory. It is loaded
// from the store on first use and only changes after the store has
// acknowledged a write. Stored entries are never mutated in place: patches
// replace the pointer, so snapshots handed out stay consistent.
type Book struct {
	mu      sync.RWMutex
	store   Store
	userID  int64
	entries []*Entry
	loaded  bool
}

// NewBook creates an unloaded book for a user.
func NewBook(store Store, userID int64) *Book {
	return &Book{store: store, userID: userID}
}

// Entries returns a snapshot of the record set, loading it if needed.
// A failed load leaves the book unloaded, so the next call retries the read.
func (b *Book) Entries(ctx context.Context) ([]*Entry, error) {
	b.mu.RLock()
	if b.loaded {
		out := make([]*Entry, len(b.entries))
		copy(out, b.entries)
		b.mu.RUnlock()
		return out, nil
	}
	b.mu.RUnlock()

	entries, err := b.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Entry, len(entries))
	copy(out, entries)
	return out, nil
}

// Refresh replaces the record set wholesale with the store's current rows.
func (b *Book) Refresh(ctx context.Context) error {
	_, err := b.load(ctx)
	return err
}

func (b *Book) load(ctx context.Context) ([]*Entry, error) {
	entries, err := b.store.List(ctx, b.userID)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.entries = entries
	b.loaded = true
	b.mu.Unlock()
	return entries, nil
}

// Find returns the entry with the given ID.
func (b *Book) Find(ctx context.Context, id string) (*Entry, error) {
	entries, err := b.Entries(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, ErrNotFound
}

// Invalidate marks the book stale; the next read reloads it.
func (b *Book) Invalidate() {
	b.mu.Lock()
	b.loaded = false
	b.entries = nil
	b.mu.Unlock()
}

func (b *Book) prepend(e *Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.loaded {
		return
	}
	b.entries = append([]*Entry{e}, b.entries...)
}

func (b *Book) remove(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.entries[:0:0]
	for _, e := range b.entries {
		if e.ID != id {
			out = append(out, e)
		}
	}
	b.entries = out
}

func (b *Book) replace(updated *Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, e := range b.entries {
		if e.ID == updated.ID {
			b.entries[i] = updated
			return
		}
	}
}

// Books is the registry of resident books, one per user. Every session of a
// user shares the book; it is dropped when the user's last session ends.
type Books struct {
	mu    sync.Mutex
	store Store
	books map[int64]*userBook
	now   func() time.Time
}

type userBook struct {
	book     *Book
	sessions map[string]time.Time // session ID to expiry
}

// NewBooks creates an empty registry.
func NewBooks(store Store) *Books {
	return &Books{
		store: store,
		books: make(map[int64]*userBook),
		now:   time.Now,
	}
}

// For returns the book of the session's user, creating it on first use.
// Expired sessions are forgotten on the way.
func (r *Books) For(sess *session.Session) *Book {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for userID, ub := range r.books {
		for id, expiresAt := range ub.sessions {
			if !expiresAt.IsZero() && now.After(expiresAt) {
				delete(ub.sessions, id)
			}
		}
		if len(ub.sessions) == 0 && userID != sess.UserID {
			delete(r.books, userID)
		}
	}

	ub, ok := r.books[sess.UserID]
	if !ok {
		ub = &userBook{
			book:     NewBook(r.store, sess.UserID),
			sessions: make(map[string]time.Time),
		}
		r.books[sess.UserID] = ub
	}
	ub.sessions[sess.ID] = sess.ExpiresAt
	return ub.book
}

// Drop forgets a session, and its user's book when no session is left.
func (r *Books) Drop(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for userID, ub := range r.books {
		if _, ok := ub.sessions[sessionID]; !ok {
			continue
		}
		delete(ub.sessions, sessionID)
		if len(ub.sessions) == 0 {
			delete(r.books, userID)
		}
		return
	}
}

// Len returns the number of resident books.
func (r *Books) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.books)
}

// Watch drops books as their sessions sign out. It returns when events is
// closed or ctx is done.
func (r *Books) Watch(ctx context.Context, events <-chan session.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Type == session.EventSignedOut && ev.Session != nil {
				r.Drop(ev.Session.ID)
			}
		}
	}
}
