package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// UrgencyWindow is how far ahead of now a due date counts as urgent.
const UrgencyWindow = 3 * 24 * time.Hour

// Obligation is a pending entry with its display classification. The flags
// are derived on every call and never stored.
type Obligation struct {
	*Entry
	Overdue   bool `json:"overdue"`
	Urgent    bool `json:"urgent"`
	NoDueDate bool `json:"noDueDate"`
}

// PendingTotals counts and sums pending entries of one kind.
type PendingTotals struct {
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

// PendingObligations selects the unsettled entries of the given kind and
// orders them by due date, earliest first. Entries without a due date sort
// last and otherwise keep their relative order.
func PendingObligations(entries []*Entry, kind Kind, now time.Time) []Obligation {
	var out []Obligation
	for _, e := range entries {
		if e.Kind != kind || e.Paid {
			continue
		}
		out = append(out, classify(e, now))
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].DueDate, out[j].DueDate
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})

	return out
}

// ObligationTotals returns pending counts and sums per kind.
func ObligationTotals(entries []*Entry) map[Kind]PendingTotals {
	totals := map[Kind]PendingTotals{
		KindIncome:  {Total: decimal.Zero},
		KindExpense: {Total: decimal.Zero},
	}
	for _, e := range entries {
		if e.Paid || !e.Kind.Valid() {
			continue
		}
		t := totals[e.Kind]
		t.Count++
		t.Total = t.Total.Add(e.Amount)
		totals[e.Kind] = t
	}
	return totals
}

func classify(e *Entry, now time.Time) Obligation {
	o := Obligation{Entry: e}
	if e.DueDate == nil {
		o.NoDueDate = true
		return o
	}
	o.Overdue = e.DueDate.Before(now)
	o.Urgent = e.DueDate.Before(now.Add(UrgencyWindow))
	return o
}
