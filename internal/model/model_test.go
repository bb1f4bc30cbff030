package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidMonth(t *testing.T) {
	valid := []string{"2025-01", "2025-12", "1999-06"}
	for _, m := range valid {
		assert.True(t, ValidMonth(m), m)
	}

	invalid := []string{"", "2025-13", "2025-00", "2025-1", "202501", "2025-01-15", "Jan 2025"}
	for _, m := range invalid {
		assert.False(t, ValidMonth(m), m)
	}
}

func TestPrevMonth(t *testing.T) {
	assert.Equal(t, "2025-05", PrevMonth("2025-06"))
	assert.Equal(t, "2024-12", PrevMonth("2025-01"))
	assert.Equal(t, "", PrevMonth("not-a-month"))
}

func TestHasCritical(t *testing.T) {
	assert.False(t, HasCritical(nil))
	assert.False(t, HasCritical([]Issue{
		{Severity: SeverityHigh},
		{Severity: SeverityLow},
	}))
	assert.True(t, HasCritical([]Issue{
		{Severity: SeverityHigh},
		{Severity: SeverityCritical},
	}))
}

func TestSeverityRank(t *testing.T) {
	assert.Less(t, SeverityCritical.Rank(), SeverityHigh.Rank())
	assert.Less(t, SeverityHigh.Rank(), SeverityMedium.Rank())
	assert.Less(t, SeverityMedium.Rank(), SeverityLow.Rank())
}

func TestSplitSum(t *testing.T) {
	splits := []Split{
		{RoleID: RoleAgent, Percentage: 60},
		{RoleID: RoleCompany, Percentage: 40},
	}
	assert.InDelta(t, 100, SplitSum(splits), 0.0001)
	assert.Zero(t, SplitSum(nil))
}

func TestAuditReportCountIssue(t *testing.T) {
	var r AuditReport
	r.CountIssue(Issue{Severity: SeverityCritical})
	r.CountIssue(Issue{Severity: SeverityHigh})
	r.CountIssue(Issue{Severity: SeverityHigh})
	r.CountIssue(Issue{Severity: SeverityMedium})
	r.CountIssue(Issue{Severity: SeverityLow}) // low is not counted

	assert.Equal(t, 1, r.CriticalIssues)
	assert.Equal(t, 2, r.HighIssues)
	assert.Equal(t, 1, r.MediumIssues)
}
