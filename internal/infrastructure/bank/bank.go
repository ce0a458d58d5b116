package bank

import (
	"encoding/json"
	"os"
)

// Details are the one-time bank transfer instructions echoed in the
// create-order response.
type Details struct {
	AccountName   string `json:"accountName"`
	SortCode      string `json:"sortCode"`
	AccountNumber string `json:"accountNumber"`
	Reference     string `json:"reference,omitempty"`
}

// Load reads the instructions file; a missing or broken file just means no
// instructions are shown.
func Load(path string) *Details {
	if path == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var d Details
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil
	}
	return &d
}
