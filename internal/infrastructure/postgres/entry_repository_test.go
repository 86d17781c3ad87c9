package postgres

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"finanzas/internal/domain/ledger"
	"finanzas/internal/domain/user"
)

// openTestDB connects to TEST_DATABASE_URL and applies migrations. Tests
// using it are skipped when the variable is unset.
func openTestDB(t *testing.T) *DB {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := New(url)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}
	return db
}

func createTestUser(t *testing.T, db *DB) *user.User {
	t.Helper()
	u, err := NewUserRepository(db).Create(context.Background(), user.CreateUserParams{IsAnonymous: true})
	if err != nil {
		t.Fatalf("Create user failed: %v", err)
	}
	return u
}

func TestEntryRepository_Lifecycle(t *testing.T) {
	db := openTestDB(t)
	repo := NewEntryRepository(db)
	ctx := context.Background()
	owner := createTestUser(t, db)
	other := createTestUser(t, db)

	due := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	created, err := repo.Insert(ctx, ledger.CreateParams{
		UserID:    owner.ID,
		Name:      "Renta",
		Amount:    decimal.RequireFromString("300"),
		Kind:      ledger.KindExpense,
		Category:  "Hogar",
		DueDate:   &due,
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}
	if created.DueDate == nil || !created.DueDate.Equal(due) {
		t.Errorf("DueDate = %v, want %v", created.DueDate, due)
	}

	if err := repo.Update(ctx, created.ID, other.ID, ledger.UpdateParams{Paid: ptr(true)}); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("Update() by another user error = %v, want ErrNotFound", err)
	}

	got, err := repo.Get(ctx, created.ID, owner.ID)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.Name != "Renta" || !got.Amount.Equal(decimal.RequireFromString("300")) {
		t.Errorf("Get() = %+v, want Renta at 300", got)
	}
	if _, err := repo.Get(ctx, created.ID, other.ID); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("Get() by another user error = %v, want ErrNotFound", err)
	}
	if _, err := repo.Get(ctx, "not-a-uuid", owner.ID); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("Get(not-a-uuid) error = %v, want ErrNotFound", err)
	}

	reduced, payment, err := repo.SettlePartial(ctx, created.ID, owner.ID, decimal.RequireFromString("120"), paymentParams(owner.ID, "120"))
	if err != nil {
		t.Fatalf("SettlePartial() failed: %v", err)
	}
	if !reduced.Amount.Equal(decimal.RequireFromString("180")) || reduced.Paid {
		t.Errorf("reduced = %s paid=%v, want 180 pending", reduced.Amount, reduced.Paid)
	}

	_, _, err = repo.SettlePartial(ctx, created.ID, owner.ID, decimal.RequireFromString("250"), paymentParams(owner.ID, "250"))
	if !errors.Is(err, ledger.ErrAmountExceedsBalance) {
		t.Errorf("SettlePartial() above stored amount error = %v, want ErrAmountExceedsBalance", err)
	}
	err = repo.Update(ctx, created.ID, owner.ID, ledger.UpdateParams{Reduce: ptr(decimal.RequireFromString("250"))})
	if !errors.Is(err, ledger.ErrAmountExceedsBalance) {
		t.Errorf("Update() reducing below zero error = %v, want ErrAmountExceedsBalance", err)
	}

	entries, err := repo.List(ctx, owner.ID)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(entries) != 2 || entries[0].ID != payment.ID {
		t.Fatalf("List() = %v, want payment first of 2", entries)
	}
	if !entries[1].Amount.Equal(decimal.RequireFromString("180")) {
		t.Errorf("remaining = %s, want 180", entries[1].Amount)
	}

	if err := repo.Update(ctx, created.ID, owner.ID, ledger.UpdateParams{Paid: ptr(true)}); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if err := repo.Update(ctx, created.ID, owner.ID, ledger.UpdateParams{Paid: ptr(true)}); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("Update() of settled entry error = %v, want ErrNotFound", err)
	}
	err = repo.Update(ctx, created.ID, owner.ID, ledger.UpdateParams{Reduce: ptr(decimal.RequireFromString("10"))})
	if !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("Update() reducing a settled entry error = %v, want ErrNotFound", err)
	}

	if err := repo.Delete(ctx, created.ID, owner.ID); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if err := repo.Delete(ctx, "not-a-uuid", owner.ID); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("Delete(not-a-uuid) error = %v, want ErrNotFound", err)
	}
}

func TestEntryRepository_InsertRejectsInvalid(t *testing.T) {
	db := openTestDB(t)
	owner := createTestUser(t, db)

	_, err := NewEntryRepository(db).Insert(context.Background(), ledger.CreateParams{
		UserID:    owner.ID,
		Name:      "Luz",
		Amount:    decimal.RequireFromString("-1"),
		Kind:      ledger.KindExpense,
		CreatedAt: time.Now(),
	})
	if !errors.Is(err, ledger.ErrValidation) {
		t.Errorf("Insert() negative amount error = %v, want ErrValidation", err)
	}
}

// Concurrent reductions against the same row never take it below zero.
func TestEntryRepository_ConcurrentReductions(t *testing.T) {
	db := openTestDB(t)
	repo := NewEntryRepository(db)
	ctx := context.Background()
	owner := createTestUser(t, db)

	bill, err := repo.Insert(ctx, ledger.CreateParams{
		UserID:    owner.ID,
		Name:      "Renta",
		Amount:    decimal.RequireFromString("300"),
		Kind:      ledger.KindExpense,
		Category:  "Hogar",
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := repo.SettlePartial(ctx, bill.ID, owner.ID, decimal.RequireFromString("120"), paymentParams(owner.ID, "120"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ledger.ErrAmountExceedsBalance):
		default:
			t.Errorf("SettlePartial() error = %v", err)
		}
	}
	if succeeded != 2 {
		t.Errorf("%d reductions of 120 applied to 300, want 2", succeeded)
	}

	got, err := repo.Get(ctx, bill.ID, owner.ID)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if !got.Amount.Equal(decimal.RequireFromString("60")) {
		t.Errorf("remaining = %s, want 60", got.Amount)
	}
}

func paymentParams(userID int64, amount string) ledger.CreateParams {
	return ledger.CreateParams{
		UserID:    userID,
		Name:      ledger.PartialPaymentName("Renta"),
		Amount:    decimal.RequireFromString(amount),
		Kind:      ledger.KindExpense,
		Category:  "Hogar",
		Paid:      true,
		CreatedAt: time.Now(),
	}
}

func ptr[T any](v T) *T {
	return &v
}
