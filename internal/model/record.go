// Package model defines the canonical types shared across the ingestion,
// validation, and assignment engines.
package model

import (
	"regexp"
	"time"
)

var monthRe = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// ValidMonth reports whether s is a YYYY-MM month key.
func ValidMonth(s string) bool {
	return monthRe.MatchString(s)
}

// PrevMonth returns the month immediately before the given YYYY-MM key.
// Returns "" if the input is not a valid month.
func PrevMonth(month string) string {
	if !ValidMonth(month) {
		return ""
	}
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return ""
	}
	return t.AddDate(0, -1, 0).Format("2006-01")
}

// RevenueRecord is one merchant's revenue for one month as extracted from a
// processor file. It is transient: either persisted as a RevenueEntry or
// discarded on critical validation failure.
type RevenueRecord struct {
	MID          string  `json:"mid"`
	Name         string  `json:"name"`
	Revenue      float64 `json:"revenue"`
	Volume       float64 `json:"volume"`
	Transactions int     `json:"transactions"`
	Processor    string  `json:"processor"`
	Month        string  `json:"month"`
}

// Merchant is a merchant identity keyed by its processor-assigned MID.
type Merchant struct {
	ID   string `json:"id"`
	MID  string `json:"mid"`
	Name string `json:"name"`
}

// Processor is a payment processor identity.
type Processor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RevenueEntry is a persisted revenue row, unique per (month, merchant,
// processor). Re-imports overwrite revenue, volume, transactions, and name.
type RevenueEntry struct {
	Month         string  `json:"month"`
	MerchantID    string  `json:"merchant_id"`
	MID           string  `json:"mid"`
	MerchantName  string  `json:"merchant_name"`
	ProcessorID   string  `json:"processor_id"`
	ProcessorName string  `json:"processor_name"`
	Revenue       float64 `json:"revenue"`
	Volume        float64 `json:"volume"`
	Transactions  int     `json:"transactions"`
}

// ProgressStatus tracks the state of a processor's monthly batch.
type ProgressStatus string

const (
	ProgressValidated ProgressStatus = "validated"
	ProgressCompiled  ProgressStatus = "compiled"
)

// ImportProgress summarizes the last import for a (month, processor) pair.
type ImportProgress struct {
	Month       string         `json:"month"`
	ProcessorID string         `json:"processor_id"`
	RecordCount int            `json:"record_count"`
	Status      ProgressStatus `json:"status"`
	UpdatedAt   time.Time      `json:"updated_at"`
}
