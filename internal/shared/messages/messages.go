package messages

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
)

//go:embed es.json
var defaultMessages []byte

// Messages holds the user-facing texts returned in API error bodies.
type Messages struct {
	LoadFailed           string `json:"load_failed"`
	SaveFailed           string `json:"save_failed"`
	DeleteFailed         string `json:"delete_failed"`
	SettleFailed         string `json:"settle_failed"`
	SettleIncomplete     string `json:"settle_incomplete"`
	SettleInFlight       string `json:"settle_in_flight"`
	InvalidAmount        string `json:"invalid_amount"`
	AmountExceedsBalance string `json:"amount_exceeds_balance"`
	InvalidEntry         string `json:"invalid_entry"`
	AlreadySettled       string `json:"already_settled"`
	PartialNotAllowed    string `json:"partial_not_allowed"`
	NotFound             string `json:"not_found"`
	SessionRequired      string `json:"session_required"`
	InvalidCredentials   string `json:"invalid_credentials"`
	EmailTaken           string `json:"email_taken"`
	InvalidEmail         string `json:"invalid_email"`
	WeakPassword         string `json:"weak_password"`
	ConnectionFailed     string `json:"connection_failed"`
	Internal             string `json:"internal"`
}

// Default returns the built-in Spanish texts.
func Default() *Messages {
	var m Messages
	if err := json.Unmarshal(defaultMessages, &m); err != nil {
		panic(fmt.Sprintf("embedded messages are invalid: %v", err))
	}
	return &m
}

// Load reads a JSON file over the built-in texts. Keys missing from the file
// keep their default. An empty path returns the defaults.
func Load(path string) (*Messages, error) {
	m := Default()
	if path == "" {
		return m, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read messages file: %w", err)
	}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("failed to parse messages file: %w", err)
	}
	return m, nil
}
