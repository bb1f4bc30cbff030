package model

import "time"

// ProcessorSummary aggregates one processor's batch within an audit report.
type ProcessorSummary struct {
	Processor    string  `json:"processor"`
	RecordCount  int     `json:"record_count"`
	TotalRevenue float64 `json:"total_revenue"`
	AvgRevenue   float64 `json:"avg_revenue"`
	Issues       []Issue `json:"issues,omitempty"`
}

// AuditReport is the write-once result of a validation run over a month's
// batches. A new run produces a new report; reports are never mutated.
type AuditReport struct {
	Month        string             `json:"month"`
	GeneratedAt  time.Time          `json:"generated_at"`
	Processors   []ProcessorSummary `json:"processors"`
	GlobalIssues []Issue            `json:"global_issues,omitempty"`

	TotalRecords int     `json:"total_records"`
	TotalRevenue float64 `json:"total_revenue"`

	CriticalIssues int `json:"critical_issues"`
	HighIssues     int `json:"high_issues"`
	MediumIssues   int `json:"medium_issues"`
}

// CountIssue bumps the severity counter matching the issue.
func (r *AuditReport) CountIssue(is Issue) {
	switch is.Severity {
	case SeverityCritical:
		r.CriticalIssues++
	case SeverityHigh:
		r.HighIssues++
	case SeverityMedium:
		r.MediumIssues++
	}
}
