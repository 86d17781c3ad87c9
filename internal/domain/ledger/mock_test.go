package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// MockStore is an in-memory implementation of Store. The XxxFunc hooks
// override individual calls when set.
type MockStore struct {
	mu     sync.Mutex
	rows   map[string]Entry
	nextID int
	calls  []string

	ListFunc   func(ctx context.Context, userID int64) ([]*Entry, error)
	GetFunc    func(ctx context.Context, id string, userID int64) (*Entry, error)
	InsertFunc func(ctx context.Context, params CreateParams) (*Entry, error)
	UpdateFunc func(ctx context.Context, id string, userID int64, params UpdateParams) error
	DeleteFunc func(ctx context.Context, id string, userID int64) error
}

func newMockStore(entries ...Entry) *MockStore {
	m := &MockStore{rows: make(map[string]Entry)}
	for _, e := range entries {
		m.rows[e.ID] = e
	}
	return m
}

func (m *MockStore) record(call string) {
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()
}

func (m *MockStore) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *MockStore) Row(id string) (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rows[id]
	return e, ok
}

func (m *MockStore) List(ctx context.Context, userID int64) ([]*Entry, error) {
	m.record("List")
	if m.ListFunc != nil {
		return m.ListFunc(ctx, userID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*Entry
	for _, e := range m.rows {
		if e.UserID == userID {
			cp := e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *MockStore) Get(ctx context.Context, id string, userID int64) (*Entry, error) {
	m.record("Get")
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id, userID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.rows[id]
	if !ok || e.UserID != userID {
		return nil, ErrNotFound
	}
	cp := e
	return &cp, nil
}

func (m *MockStore) Insert(ctx context.Context, params CreateParams) (*Entry, error) {
	m.record("Insert")
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, params)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	e := Entry{
		ID:        fmt.Sprintf("new-%d", m.nextID),
		UserID:    params.UserID,
		Name:      params.Name,
		Amount:    params.Amount,
		Kind:      params.Kind,
		Category:  params.Category,
		Paid:      params.Paid,
		DueDate:   params.DueDate,
		CreatedAt: params.CreatedAt,
	}
	m.rows[e.ID] = e
	cp := e
	return &cp, nil
}

func (m *MockStore) Update(ctx context.Context, id string, userID int64, params UpdateParams) error {
	m.record("Update")
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, userID, params)
	}

	return m.apply(id, userID, params)
}

// apply is the default Update: a conditional write on the stored row.
func (m *MockStore) apply(id string, userID int64, params UpdateParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.rows[id]
	if !ok || e.UserID != userID || e.Paid {
		return ErrNotFound
	}
	if params.Reduce != nil {
		if params.Reduce.GreaterThan(e.Amount) {
			return ErrAmountExceedsBalance
		}
		e.Amount = e.Amount.Sub(*params.Reduce)
	}
	if params.Paid != nil {
		e.Paid = *params.Paid
	}
	m.rows[id] = e
	return nil
}

func (m *MockStore) Delete(ctx context.Context, id string, userID int64) error {
	m.record("Delete")
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id, userID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.rows[id]
	if !ok || e.UserID != userID {
		return ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

// MockAtomicStore adds a transactional partial settlement to MockStore.
type MockAtomicStore struct {
	*MockStore
	SettlePartialFunc func(ctx context.Context, id string, userID int64, paid decimal.Decimal, payment CreateParams) (*Entry, *Entry, error)
}

func (m *MockAtomicStore) SettlePartial(ctx context.Context, id string, userID int64, paid decimal.Decimal, payment CreateParams) (*Entry, *Entry, error) {
	m.record("SettlePartial")
	if m.SettlePartialFunc != nil {
		return m.SettlePartialFunc(ctx, id, userID, paid, payment)
	}

	if err := m.apply(id, userID, UpdateParams{Reduce: &paid}); err != nil {
		return nil, nil, err
	}
	reduced, _ := m.Row(id)
	created, err := m.MockStore.Insert(ctx, payment)
	if err != nil {
		return nil, nil, err
	}
	return &reduced, created, nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func entry(id string, kind Kind, amount string, paid bool) Entry {
	return Entry{
		ID:        id,
		UserID:    1,
		Name:      id,
		Amount:    dec(amount),
		Kind:      kind,
		Category:  DefaultCategory,
		Paid:      paid,
		CreatedAt: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func ptrs(entries ...Entry) []*Entry {
	out := make([]*Entry, len(entries))
	for i := range entries {
		e := entries[i]
		out[i] = &e
	}
	return out
}
