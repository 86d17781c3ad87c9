package main

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"finanzas/internal/domain/ledger"
)

func TestParseUserIDs(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []int64
		wantErr bool
	}{
		{"single", "1", []int64{1}, false},
		{"list with spaces", " 1, 2 ,3 ", []int64{1, 2, 3}, false},
		{"duplicates", "2,2,1", []int64{2, 1}, false},
		{"empty", "", nil, false},
		{"not a number", "1,abc", nil, true},
		{"zero", "0", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseUserIDs(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseUserIDs(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("parseUserIDs(%q) = %v, want %v", tt.input, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("parseUserIDs(%q)[%d] = %d, want %d", tt.input, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestFlags(t *testing.T) {
	due := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	e := &ledger.Entry{Name: "Renta", Amount: decimal.NewFromInt(300), DueDate: &due}

	tests := []struct {
		name string
		o    ledger.Obligation
		want string
	}{
		{"overdue", ledger.Obligation{Entry: e, Overdue: true, Urgent: true}, "VENCIDO"},
		{"urgent", ledger.Obligation{Entry: e, Urgent: true}, "URGENTE"},
		{"calm", ledger.Obligation{Entry: e}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := flags(tt.o); got != tt.want {
				t.Errorf("flags() = %q, want %q", got, tt.want)
			}
		})
	}
}
