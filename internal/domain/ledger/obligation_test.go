package ledger

import (
	"testing"
	"time"
)

func TestPendingObligations_Order(t *testing.T) {
	noDue := entry("sin-fecha", KindExpense, "10", false)
	may := entry("mayo", KindExpense, "10", false)
	may.DueDate = date("2024-05-01")
	march := entry("marzo", KindExpense, "10", false)
	march.DueDate = date("2024-03-01")

	got := PendingObligations(ptrs(noDue, may, march), KindExpense, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	want := []string{"marzo", "mayo", "sin-fecha"}
	if len(got) != len(want) {
		t.Fatalf("PendingObligations() returned %d entries, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("position %d = %s, want %s", i, got[i].ID, id)
		}
	}
	if !got[2].NoDueDate {
		t.Error("entry without due date should be flagged NoDueDate")
	}
}

func TestPendingObligations_SelectsKindAndPending(t *testing.T) {
	entries := ptrs(
		entry("bill", KindExpense, "10", false),
		entry("paid-bill", KindExpense, "10", true),
		entry("receivable", KindIncome, "10", false),
	)
	now := time.Now()

	bills := PendingObligations(entries, KindExpense, now)
	if len(bills) != 1 || bills[0].ID != "bill" {
		t.Errorf("expense obligations = %v, want [bill]", bills)
	}

	receivables := PendingObligations(entries, KindIncome, now)
	if len(receivables) != 1 || receivables[0].ID != "receivable" {
		t.Errorf("income obligations = %v, want [receivable]", receivables)
	}
}

func TestPendingObligations_StableForEqualDates(t *testing.T) {
	a := entry("a", KindExpense, "1", false)
	a.DueDate = date("2024-02-01")
	b := entry("b", KindExpense, "1", false)
	b.DueDate = date("2024-02-01")
	c := entry("c", KindExpense, "1", false)
	d := entry("d", KindExpense, "1", false)

	got := PendingObligations(ptrs(c, a, d, b), KindExpense, time.Now())
	want := []string{"a", "b", "c", "d"}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("position %d = %s, want %s", i, got[i].ID, id)
		}
	}
}

func TestPendingObligations_Urgency(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		due         string
		wantOverdue bool
		wantUrgent  bool
	}{
		{"due tomorrow", "2024-01-02", false, true},
		{"due yesterday", "2023-12-31", true, true},
		{"due in two days", "2024-01-03", false, true},
		{"due in three days", "2024-01-04", false, false},
		{"due next month", "2024-02-01", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := entry("bill", KindExpense, "10", false)
			e.DueDate = date(tt.due)

			got := PendingObligations(ptrs(e), KindExpense, now)
			if len(got) != 1 {
				t.Fatalf("got %d obligations, want 1", len(got))
			}
			if got[0].Overdue != tt.wantOverdue {
				t.Errorf("Overdue = %v, want %v", got[0].Overdue, tt.wantOverdue)
			}
			if got[0].Urgent != tt.wantUrgent {
				t.Errorf("Urgent = %v, want %v", got[0].Urgent, tt.wantUrgent)
			}
			if got[0].NoDueDate {
				t.Error("NoDueDate = true for entry with due date")
			}
		})
	}
}

func TestObligationTotals(t *testing.T) {
	entries := ptrs(
		entry("a", KindExpense, "100", false),
		entry("b", KindExpense, "20.50", false),
		entry("c", KindExpense, "999", true),
		entry("d", KindIncome, "40", false),
	)

	totals := ObligationTotals(entries)

	if got := totals[KindExpense]; got.Count != 2 || got.Total.String() != "120.5" {
		t.Errorf("expense totals = %+v, want 2 / 120.5", got)
	}
	if got := totals[KindIncome]; got.Count != 1 || got.Total.String() != "40" {
		t.Errorf("income totals = %+v, want 1 / 40", got)
	}
}
