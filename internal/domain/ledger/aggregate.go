package ledger

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Summary is the aggregate view of a ledger. Only settled entries move the
// balance; unsettled ones are reported separately as pending.
type Summary struct {
	Balance         decimal.Decimal `json:"balance"`
	SettledIncome   decimal.Decimal `json:"settledIncome"`
	SettledExpenses decimal.Decimal `json:"settledExpenses"`
	PendingIncome   decimal.Decimal `json:"pendingIncome"`
	PendingExpenses decimal.Decimal `json:"pendingExpenses"`
}

// CategoryTotal is one slice of the settled-expense breakdown.
type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
}

// Summarize computes the ledger summary from the full record set.
func Summarize(entries []*Entry) Summary {
	s := Summary{
		Balance:         decimal.Zero,
		SettledIncome:   decimal.Zero,
		SettledExpenses: decimal.Zero,
		PendingIncome:   decimal.Zero,
		PendingExpenses: decimal.Zero,
	}

	for _, e := range entries {
		switch {
		case e.Paid && e.Kind == KindIncome:
			s.SettledIncome = s.SettledIncome.Add(e.Amount)
		case e.Paid && e.Kind == KindExpense:
			s.SettledExpenses = s.SettledExpenses.Add(e.Amount)
		case e.Kind == KindIncome:
			s.PendingIncome = s.PendingIncome.Add(e.Amount)
		case e.Kind == KindExpense:
			s.PendingExpenses = s.PendingExpenses.Add(e.Amount)
		}
	}

	s.Balance = s.SettledIncome.Sub(s.SettledExpenses)
	return s
}

// CategoryTotals groups settled expenses by category and sums their amounts.
func CategoryTotals(entries []*Entry) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for _, e := range entries {
		if !e.Paid || e.Kind != KindExpense {
			continue
		}
		cat := e.Category
		if strings.TrimSpace(cat) == "" {
			cat = UncategorizedLabel
		}
		totals[cat] = totals[cat].Add(e.Amount)
	}
	return totals
}

// CategoryBreakdown returns CategoryTotals as a slice ordered by total
// (largest first), ties broken by category name.
func CategoryBreakdown(entries []*Entry) []CategoryTotal {
	totals := CategoryTotals(entries)

	out := make([]CategoryTotal, 0, len(totals))
	for cat, total := range totals {
		out = append(out, CategoryTotal{Category: cat, Total: total})
	}

	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Total.Cmp(out[j].Total); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})

	return out
}

// Categories lists the distinct non-empty categories present in the ledger,
// in first-seen order.
func Categories(entries []*Entry) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, e := range entries {
		if e.Category == "" {
			continue
		}
		if _, ok := seen[e.Category]; ok {
			continue
		}
		seen[e.Category] = struct{}{}
		out = append(out, e.Category)
	}
	return out
}
