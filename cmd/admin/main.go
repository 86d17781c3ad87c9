package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"finanzas/internal/domain/ledger"
	"finanzas/internal/infrastructure/postgres"
	"finanzas/internal/shared/config"
)

const usage = `Finanzas Admin CLI - Management commands for the Finanzas API

Usage:
  admin <command> [options]

Commands:
  migrate up|down   Apply all pending migrations, or roll back the last one
  summary           Print the ledger summary and pending obligations of users

Examples:
  # Apply migrations
  admin migrate up

  # Roll back the most recent migration
  admin migrate down

  # Summary for a single user
  admin summary --user-id=1

  # Summary for several users as JSON
  admin summary --user-id=1,2,3 --json --workers=8
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage + "\n")
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "migrate":
		runMigrate(os.Args[2:])
	case "summary":
		runSummary(os.Args[2:])
	case "help", "-h", "--help":
		fmt.Print(usage + "\n")
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		fmt.Print(usage + "\n")
		os.Exit(1)
	}
}

func runMigrate(args []string) {
	if len(args) != 1 || (args[0] != "up" && args[0] != "down") {
		fmt.Println("Usage: admin migrate up|down")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := postgres.New(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to database")

	if args[0] == "up" {
		err = postgres.MigrateUp(db)
	} else {
		err = postgres.MigrateDown(db)
	}
	if err != nil {
		log.Fatalf("Migration %s failed: %v", args[0], err)
	}
}

func runSummary(args []string) {
	fs := flag.NewFlagSet("summary", flag.ExitOnError)

	userIDStr := fs.String("user-id", "", "User ID(s) to summarize (comma-separated for multiple)")
	workers := fs.Int("workers", ledger.DefaultReportWorkers, "Number of users read concurrently")
	asJSON := fs.Bool("json", false, "Print reports as JSON")
	timeoutStr := fs.String("timeout", "1m", "Timeout for the operation (e.g., 30s, 5m)")

	fs.Usage = func() {
		fmt.Println("Usage: admin summary [options]")
		fmt.Println("\nOptions:")
		fs.PrintDefaults()
		fmt.Println("\nExamples:")
		fmt.Println("  admin summary --user-id=1")
		fmt.Println("  admin summary --user-id=1,2,3 --json")
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	userIDs, err := parseUserIDs(*userIDStr)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if len(userIDs) == 0 {
		fmt.Println("Error: must specify --user-id")
		fs.Usage()
		os.Exit(1)
	}

	timeout, err := time.ParseDuration(*timeoutStr)
	if err != nil {
		log.Fatalf("Invalid timeout format: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := postgres.New(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	entryRepo := postgres.NewEntryRepository(db)
	reports := ledger.BuildReports(ctx, entryRepo, userIDs, *workers, time.Now())

	failed := false
	for _, uid := range userIDs {
		report := reports[uid]
		if report.Err != nil {
			log.Printf("Summary for user %d failed: %v", uid, report.Err)
			failed = true
			continue
		}
		if *asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				log.Fatalf("Failed to encode report: %v", err)
			}
			continue
		}
		printReport(report)
	}

	if failed {
		os.Exit(1)
	}
}

func parseUserIDs(s string) ([]int64, error) {
	var ids []int64
	seen := make(map[int64]bool)
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid user ID '%s'", p)
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func printReport(r *ledger.Report) {
	fmt.Printf("\n=== User %d (%d entries) ===\n", r.UserID, r.Entries)
	fmt.Printf("  Balance:            %s\n", r.Summary.Balance.StringFixed(2))
	fmt.Printf("  Ingresos cobrados:  %s\n", r.Summary.SettledIncome.StringFixed(2))
	fmt.Printf("  Egresos pagados:    %s\n", r.Summary.SettledExpenses.StringFixed(2))
	fmt.Printf("  Por cobrar (%d):     %s\n", r.Pending[ledger.KindIncome].Count, r.Summary.PendingIncome.StringFixed(2))
	fmt.Printf("  Por pagar (%d):      %s\n", r.Pending[ledger.KindExpense].Count, r.Summary.PendingExpenses.StringFixed(2))

	if len(r.Breakdown) > 0 {
		fmt.Println("  Gastos por categoría:")
		for _, c := range r.Breakdown {
			fmt.Printf("    - %-16s %s\n", c.Category, c.Total.StringFixed(2))
		}
	}

	printObligations("Por pagar", r.Payables)
	printObligations("Por cobrar", r.Receivables)
}

func printObligations(title string, obligations []ledger.Obligation) {
	if len(obligations) == 0 {
		return
	}
	fmt.Printf("  %s:\n", title)
	for _, o := range obligations {
		due := "sin fecha"
		if o.DueDate != nil {
			due = o.DueDate.Format("02/01/2006")
		}
		fmt.Printf("    - %-24s %10s  %-10s %s\n", o.Name, o.Amount.StringFixed(2), due, flags(o))
	}
}

func flags(o ledger.Obligation) string {
	switch {
	case o.Overdue:
		return "VENCIDO"
	case o.Urgent:
		return "URGENTE"
	}
	return ""
}
