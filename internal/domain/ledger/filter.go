package ledger

import (
	"strings"
	"time"
)

// Filter holds the history-view criteria. Zero-valued fields match everything.
type Filter struct {
	Search   string
	Category string
	// Date is matched as a prefix of the RFC 3339 creation timestamp, so
	// "2024", "2024-05" and "2024-05-01" all work.
	Date string
}

// IsEmpty reports whether the filter matches every entry.
func (f Filter) IsEmpty() bool {
	return f.Search == "" && f.Category == "" && f.Date == ""
}

// Apply returns the entries matching the filter, preserving input order.
func (f Filter) Apply(entries []*Entry) []*Entry {
	search := strings.ToLower(f.Search)

	out := make([]*Entry, 0, len(entries))
	for _, e := range entries {
		if !matchesSearch(e, search) {
			continue
		}
		if f.Category != "" && e.Category != f.Category {
			continue
		}
		if f.Date != "" && !strings.HasPrefix(createdAtString(e), f.Date) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func matchesSearch(e *Entry, search string) bool {
	if search == "" {
		return true
	}
	return strings.Contains(strings.ToLower(e.Name), search) ||
		strings.Contains(e.Amount.String(), search)
}

func createdAtString(e *Entry) string {
	return e.CreatedAt.UTC().Format(time.RFC3339Nano)
}
