package ledger

import (
	"context"
	"sync"
	"time"
)

// DefaultReportWorkers is the default number of users summarized concurrently.
const DefaultReportWorkers = 4

// Report is the offline view of one user's ledger.
type Report struct {
	UserID      int64                  `json:"userId"`
	Entries     int                    `json:"entries"`
	Summary     Summary                `json:"summary"`
	Breakdown   []CategoryTotal        `json:"breakdown"`
	Pending     map[Kind]PendingTotals `json:"pending"`
	Payables    []Obligation           `json:"payables"`
	Receivables []Obligation           `json:"receivables"`
	Err         error                  `json:"-"`
}

// BuildReport reads a user's entries straight from the store and derives the
// summary and obligation lists as of now.
func BuildReport(ctx context.Context, store Store, userID int64, now time.Time) (*Report, error) {
	entries, err := store.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &Report{
		UserID:      userID,
		Entries:     len(entries),
		Summary:     Summarize(entries),
		Breakdown:   CategoryBreakdown(entries),
		Pending:     ObligationTotals(entries),
		Payables:    PendingObligations(entries, KindExpense, now),
		Receivables: PendingObligations(entries, KindIncome, now),
	}, nil
}

// BuildReports builds the reports of several users with at most workers
// store reads in flight. Failures are reported per user in Report.Err.
func BuildReports(ctx context.Context, store Store, userIDs []int64, workers int, now time.Time) map[int64]*Report {
	if workers <= 0 {
		workers = DefaultReportWorkers
	}

	results := make(map[int64]*Report, len(userIDs))
	var mu sync.Mutex
	var wg sync.WaitGroup

	sem := make(chan struct{}, workers)

	for _, userID := range userIDs {
		wg.Add(1)
		go func(uid int64) {
			defer wg.Done()

			var report *Report
			select {
			case sem <- struct{}{}:
				var err error
				report, err = BuildReport(ctx, store, uid, now)
				<-sem
				if err != nil {
					report = &Report{UserID: uid, Err: err}
				}
			case <-ctx.Done():
				report = &Report{UserID: uid, Err: ctx.Err()}
			}

			mu.Lock()
			results[uid] = report
			mu.Unlock()
		}(userID)
	}

	wg.Wait()
	return results
}
