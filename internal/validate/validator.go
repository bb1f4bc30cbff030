// Package validate applies per-record business rules against the matched
// processor schema.
package validate

import (
	"fmt"

	"github.com/sells-group/residuals-cli/internal/model"
	"github.com/sells-group/residuals-cli/internal/schema"
)

// Validator checks individual revenue records. Rules run in a fixed order and
// never short-circuit; a critical issue causes downstream rejection of the
// record but the remaining rules still report.
type Validator struct {
	// RevenuePerTxnLimit is the ceiling on revenue/transactions before a
	// record is flagged as a likely field mixup.
	RevenuePerTxnLimit float64
}

// NewValidator creates a Validator with the given per-transaction ceiling.
func NewValidator(revenuePerTxnLimit float64) *Validator {
	return &Validator{RevenuePerTxnLimit: revenuePerTxnLimit}
}

// Validate returns every issue found on the record. An empty slice means the
// record is clean.
func (v *Validator) Validate(rec model.RevenueRecord, s *schema.ProcessorSchema) []model.Issue {
	var issues []model.Issue
	subject := recordSubject(rec)

	// Range check. A value 10x past the ceiling is almost always a
	// misdetected column (gross volume read as net residual) and is
	// rejected outright.
	if rec.Revenue < s.MinRevenue || rec.Revenue > s.MaxRevenue {
		sev := model.SeverityHigh
		fix := "verify the revenue column mapping for this processor"
		if rec.Revenue > s.MaxRevenue*10 {
			sev = model.SeverityCritical
			fix = "revenue exceeds 10x the plausible ceiling; likely gross volume in the residual column"
		}
		issues = append(issues, model.Issue{
			Kind:     model.IssueOutOfRange,
			Severity: sev,
			Subject:  subject,
			Detail: fmt.Sprintf("revenue %.2f outside plausible range [%.2f, %.2f] for %s",
				rec.Revenue, s.MinRevenue, s.MaxRevenue, s.Name),
			SuggestedFix: fix,
		})
	}

	if rec.Revenue > 0 && rec.Transactions == 0 {
		issues = append(issues, model.Issue{
			Kind:     model.IssueRevenueWithoutTxns,
			Severity: model.SeverityHigh,
			Subject:  subject,
			Detail:   fmt.Sprintf("revenue %.2f reported with zero transactions", rec.Revenue),
		})
	}

	if rec.Transactions > 0 {
		perTxn := rec.Revenue / float64(rec.Transactions)
		if perTxn > v.RevenuePerTxnLimit {
			issues = append(issues, model.Issue{
				Kind:     model.IssueRevenuePerTxn,
				Severity: model.SeverityMedium,
				Subject:  subject,
				Detail: fmt.Sprintf("revenue per transaction %.2f exceeds %.2f",
					perTxn, v.RevenuePerTxnLimit),
			})
		}
	}

	if len(rec.MID) < 5 {
		issues = append(issues, model.Issue{
			Kind:         model.IssueInvalidMID,
			Severity:     model.SeverityLow,
			Subject:      subject,
			Detail:       fmt.Sprintf("MID %q is missing or shorter than 5 characters", rec.MID),
			SuggestedFix: "check the MID column mapping or source file",
		})
	}

	return issues
}

func recordSubject(rec model.RevenueRecord) string {
	if rec.Name != "" {
		return rec.Name
	}
	return rec.MID
}
