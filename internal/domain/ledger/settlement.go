package ledger

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	modeFull          = "full"
	modePartial       = "partial"
	modeAtomicPartial = "atomic-partial"
)

var (
	ledgerMeter          = otel.Meter("finanzas/ledger")
	settlementCounter, _ = ledgerMeter.Int64Counter("ledger.settlements",
		metric.WithDescription("Settlements applied to ledger entries"),
	)
)

// SettlementResult describes what a settlement wrote.
type SettlementResult struct {
	// Entry is the settled entry as it is after the write.
	Entry   *Entry `json:"entry"`
	// Payment is the settlement entry created by a split, nil otherwise.
	Payment *Entry `json:"payment,omitempty"`
}

// Split reports whether the settlement reduced the entry and created a
// separate payment entry.
func (r *SettlementResult) Split() bool {
	return r.Payment != nil
}

// Settler applies full and partial payments to pending entries.
type Settler struct {
	store Store
	guard Guard
	now   func() time.Time
}

// NewSettler creates a settler. A nil guard falls back to an in-process one.
func NewSettler(store Store, guard Guard) *Settler {
	if guard == nil {
		guard = NewMemoryGuard()
	}
	return &Settler{
		store: store,
		guard: guard,
		now:   time.Now,
	}
}

// SettleFull marks the entry as paid. The amount is unchanged.
func (s *Settler) SettleFull(ctx context.Context, userID int64, id string) (*SettlementResult, error) {
	release, err := s.guard.Acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	e, err := s.current(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return s.settleFull(ctx, userID, e)
}

// SettlePartial applies a payment of paid against the entry. A payment equal
// to the outstanding amount (within SettlementTolerance) settles the entry in
// full; a smaller one reduces the entry and records the payment as a new
// settled expense. The entry is read from the store while the guard is held,
// and the store refuses a reduction the stored amount no longer covers.
func (s *Settler) SettlePartial(ctx context.Context, userID int64, id string, paid decimal.Decimal) (*SettlementResult, error) {
	if err := ValidateAmount(paid); err != nil {
		return nil, err
	}

	release, err := s.guard.Acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	e, err := s.current(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if e.Kind != KindExpense {
		return nil, ErrPartialNotAllowed
	}
	if paid.GreaterThan(e.Amount) {
		return nil, ErrAmountExceedsBalance
	}

	if paid.Sub(e.Amount).Abs().LessThan(SettlementTolerance) {
		return s.settleFull(ctx, userID, e)
	}

	payment := CreateParams{
		UserID:    userID,
		Name:      PartialPaymentName(e.Name),
		Amount:    paid,
		Kind:      KindExpense,
		Category:  e.Category,
		Paid:      true,
		CreatedAt: s.now(),
	}.withDefaults(s.now())

	if atomic, ok := s.store.(AtomicSettler); ok {
		reduced, created, err := atomic.SettlePartial(ctx, e.ID, userID, paid, payment)
		if err != nil {
			return nil, fmt.Errorf("failed to settle entry %s: %w", e.ID, err)
		}
		recordSettlement(ctx, modeAtomicPartial)
		return &SettlementResult{Entry: reduced, Payment: created}, nil
	}

	if err := s.store.Update(ctx, e.ID, userID, UpdateParams{Reduce: &paid}); err != nil {
		return nil, fmt.Errorf("failed to reduce entry %s: %w", e.ID, err)
	}

	reduced := *e
	reduced.Amount = e.Amount.Sub(paid)

	created, err := s.store.Insert(ctx, payment)
	if err != nil {
		log.Printf("Entry %s reduced to %s but payment record insert failed: %v", e.ID, reduced.Amount, err)
		return nil, fmt.Errorf("%w: entry %s: %w", ErrSettlementIncomplete, e.ID, err)
	}

	recordSettlement(ctx, modePartial)
	return &SettlementResult{Entry: &reduced, Payment: created}, nil
}

func (s *Settler) settleFull(ctx context.Context, userID int64, e *Entry) (*SettlementResult, error) {
	paid := true
	if err := s.store.Update(ctx, e.ID, userID, UpdateParams{Paid: &paid}); err != nil {
		return nil, fmt.Errorf("failed to settle entry %s: %w", e.ID, err)
	}

	recordSettlement(ctx, modeFull)

	settled := *e
	settled.Paid = true
	return &SettlementResult{Entry: &settled}, nil
}

// current reads the entry as stored and checks it can still be settled.
func (s *Settler) current(ctx context.Context, userID int64, id string) (*Entry, error) {
	e, err := s.store.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if err := checkSettleable(userID, e); err != nil {
		return nil, err
	}
	return e, nil
}

// checkSettleable rejects entries the acting user does not own and entries
// that are already settled. Ownership mismatches are reported as not found.
func checkSettleable(userID int64, e *Entry) error {
	if e == nil || e.UserID != userID {
		return ErrNotFound
	}
	if e.Paid {
		return ErrAlreadySettled
	}
	return nil
}

func recordSettlement(ctx context.Context, mode string) {
	settlementCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", mode)))
}
