package model

// IssueKind identifies a validation or anomaly rule.
type IssueKind string

const (
	IssueOutOfRange          IssueKind = "OUT_OF_RANGE"
	IssueRevenueWithoutTxns  IssueKind = "REVENUE_WITHOUT_TRANSACTIONS"
	IssueRevenuePerTxn       IssueKind = "REVENUE_PER_TXN_ANOMALY"
	IssueInvalidMID          IssueKind = "INVALID_MID"
	IssueDuplicateMID        IssueKind = "DUPLICATE_MID"
	IssueExtremeOutlier      IssueKind = "EXTREME_OUTLIER"
	IssueExtremeVariance     IssueKind = "EXTREME_MONTH_VARIANCE"
)

// Severity orders validation issues. Only critical issues cause record
// rejection; everything else is informational.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Rank returns a sortable weight, critical first.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 3
	}
	return 4
}

// Issue is a single validation or anomaly finding. Issues are never mutated
// after creation; they are aggregated into an AuditReport.
type Issue struct {
	Kind         IssueKind `json:"kind"`
	Severity     Severity  `json:"severity"`
	Subject      string    `json:"subject"`
	Detail       string    `json:"detail"`
	SuggestedFix string    `json:"suggested_fix,omitempty"`
}

// HasCritical reports whether any issue in the slice is critical.
func HasCritical(issues []Issue) bool {
	for _, is := range issues {
		if is.Severity == SeverityCritical {
			return true
		}
	}
	return false
}
