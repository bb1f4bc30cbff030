// Package anomaly applies whole-batch and cross-batch statistical checks and
// assembles the audit report.
package anomaly

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/residuals-cli/internal/model"
)

// Detector runs batch-level checks that individual record validation cannot
// see: cross-processor duplicates, statistical outliers, and month-over-month
// swings.
type Detector struct {
	// OutlierMultiplier flags any merchant above this multiple of the
	// processor's mean positive revenue.
	OutlierMultiplier float64
	// VarianceThreshold flags month-over-month revenue changes above this
	// ratio (5.0 = 500%).
	VarianceThreshold float64
}

// NewDetector creates a Detector with the given thresholds.
func NewDetector(outlierMultiplier, varianceThreshold float64) *Detector {
	return &Detector{
		OutlierMultiplier: outlierMultiplier,
		VarianceThreshold: varianceThreshold,
	}
}

// DetectDuplicateMIDs reports every MID that appears under more than one
// processor. The first occurrence wins; each later occurrence under a
// different processor produces one issue naming both. Repeats under the same
// processor are an upsert concern and are not flagged here.
func (d *Detector) DetectDuplicateMIDs(batches map[string][]model.RevenueRecord) []model.Issue {
	var issues []model.Issue
	firstSeen := make(map[string]string) // mid -> processor of first occurrence

	for _, proc := range sortedKeys(batches) {
		for _, rec := range batches[proc] {
			if rec.MID == "" {
				continue
			}
			prev, ok := firstSeen[rec.MID]
			if !ok {
				firstSeen[rec.MID] = proc
				continue
			}
			if prev != proc {
				issues = append(issues, model.Issue{
					Kind:     model.IssueDuplicateMID,
					Severity: model.SeverityHigh,
					Subject:  rec.Name,
					Detail: fmt.Sprintf("MID %s reported by both %s and %s",
						rec.MID, prev, proc),
					SuggestedFix: "confirm which processor currently holds this merchant",
				})
			}
		}
	}
	return issues
}

// DetectOutliers flags merchants whose revenue exceeds the configured
// multiple of the processor's arithmetic mean over positive revenues.
func (d *Detector) DetectOutliers(processor string, records []model.RevenueRecord) []model.Issue {
	var sum float64
	var n int
	for _, rec := range records {
		if rec.Revenue > 0 {
			sum += rec.Revenue
			n++
		}
	}
	if n == 0 {
		return nil
	}
	mean := sum / float64(n)

	var issues []model.Issue
	for _, rec := range records {
		if rec.Revenue > d.OutlierMultiplier*mean {
			issues = append(issues, model.Issue{
				Kind:     model.IssueExtremeOutlier,
				Severity: model.SeverityCritical,
				Subject:  rec.Name,
				Detail: fmt.Sprintf("revenue %.2f is more than %.0fx the %s batch mean %.2f",
					rec.Revenue, d.OutlierMultiplier, processor, mean),
			})
		}
	}
	return issues
}

// DetectZeroTxnRevenue restates the record-level check at batch level so the
// report surfaces it per processor.
func (d *Detector) DetectZeroTxnRevenue(records []model.RevenueRecord) []model.Issue {
	var issues []model.Issue
	for _, rec := range records {
		if rec.Revenue > 0 && rec.Transactions == 0 {
			issues = append(issues, model.Issue{
				Kind:     model.IssueRevenueWithoutTxns,
				Severity: model.SeverityHigh,
				Subject:  rec.Name,
				Detail:   fmt.Sprintf("revenue %.2f with zero transactions", rec.Revenue),
			})
		}
	}
	return issues
}

// DetectVariance compares merchants present in both months with positive
// revenue in both. A change ratio above the threshold is flagged.
func (d *Detector) DetectVariance(current []model.RevenueRecord, previous map[string]float64) []model.Issue {
	var issues []model.Issue
	for _, rec := range current {
		prev, ok := previous[rec.MID]
		if !ok || prev <= 0 || rec.Revenue <= 0 {
			continue
		}
		variance := abs(rec.Revenue-prev) / prev
		if variance > d.VarianceThreshold {
			issues = append(issues, model.Issue{
				Kind:     model.IssueExtremeVariance,
				Severity: model.SeverityHigh,
				Subject:  rec.Name,
				Detail: fmt.Sprintf("revenue moved %.0f%% month over month (%.2f -> %.2f)",
					variance*100, prev, rec.Revenue),
				SuggestedFix: "compare against the processor statement before paying out",
			})
		}
	}
	return issues
}

// BuildReport assembles a write-once audit report for one month. batches maps
// processor name to its extracted records; recordIssues carries the
// per-record validation findings per processor; previous maps MID to the
// prior month's revenue for variance checks (nil skips them).
func (d *Detector) BuildReport(
	month string,
	batches map[string][]model.RevenueRecord,
	recordIssues map[string][]model.Issue,
	previous map[string]float64,
) *model.AuditReport {
	report := &model.AuditReport{
		Month:       month,
		GeneratedAt: time.Now().UTC(),
	}

	for _, proc := range sortedKeys(batches) {
		records := batches[proc]

		issues := append([]model.Issue{}, recordIssues[proc]...)
		issues = append(issues, d.DetectOutliers(proc, records)...)
		issues = append(issues, d.DetectZeroTxnRevenue(records)...)

		summary := model.ProcessorSummary{
			Processor: proc,
			Issues:    issues,
		}
		for _, rec := range records {
			// Zero-revenue rows are "no revenue this month", not bad
			// data; they stay out of the valid-merchant count.
			if rec.Revenue == 0 {
				continue
			}
			summary.RecordCount++
			summary.TotalRevenue += rec.Revenue
		}
		if summary.RecordCount > 0 {
			summary.AvgRevenue = summary.TotalRevenue / float64(summary.RecordCount)
		}

		for _, is := range issues {
			report.CountIssue(is)
		}
		report.TotalRecords += summary.RecordCount
		report.TotalRevenue += summary.TotalRevenue
		report.Processors = append(report.Processors, summary)
	}

	global := d.DetectDuplicateMIDs(batches)
	if previous != nil {
		var all []model.RevenueRecord
		for _, records := range batches {
			all = append(all, records...)
		}
		global = append(global, d.DetectVariance(all, previous)...)
	}
	for _, is := range global {
		report.CountIssue(is)
	}
	report.GlobalIssues = global

	zap.L().Info("anomaly: report generated",
		zap.String("month", month),
		zap.Int("records", report.TotalRecords),
		zap.Int("critical", report.CriticalIssues),
		zap.Int("high", report.HighIssues),
		zap.Int("medium", report.MediumIssues),
	)
	return report
}

func sortedKeys(m map[string][]model.RevenueRecord) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
