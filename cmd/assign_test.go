package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/residuals-cli/internal/model"
)

func TestReadRules(t *testing.T) {
	var rules []model.AssignRule

	// Path is required.
	err := readRules("", &rules)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--rules is required")

	// Missing file.
	assert.Error(t, readRules(filepath.Join(t.TempDir(), "missing.json"), &rules))

	// Malformed JSON.
	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	assert.Error(t, readRules(bad, &rules))

	// Valid rules file.
	good := filepath.Join(t.TempDir(), "rules.json")
	require.NoError(t, os.WriteFile(good, []byte(
		`[{"merchant_ids":["m1"],"month":"2025-06","splits":[{"role_id":"agent","percentage":60},{"role_id":"company","percentage":40}]}]`), 0o644))
	require.NoError(t, readRules(good, &rules))
	require.Len(t, rules, 1)
	assert.Equal(t, []string{"m1"}, rules[0].MerchantIDs)
}

func TestAssignBulkCmd_AppliesRules(t *testing.T) {
	setTestConfig(t)
	migrateTestDB(t)

	rulesPath := filepath.Join(t.TempDir(), "rules.json")
	require.NoError(t, os.WriteFile(rulesPath, []byte(
		`[{"merchant_ids":["m1"],"month":"2025-06","splits":[{"role_id":"agent","percentage":60},{"role_id":"company","percentage":40}]}]`), 0o644))

	oldPath := assignRulesPath
	assignRulesPath = rulesPath
	defer func() { assignRulesPath = oldPath }()

	assignBulkCmd.SetContext(context.Background())
	require.NoError(t, assignBulkCmd.RunE(assignBulkCmd, nil))
}

func TestAssignProcessorCmd_RequiresFlags(t *testing.T) {
	setTestConfig(t)

	oldMonth, oldProc := assignMonth, assignProcessor
	assignMonth, assignProcessor = "", ""
	defer func() { assignMonth, assignProcessor = oldMonth, oldProc }()

	err := assignProcessorCmd.RunE(assignProcessorCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--month and --processor are required")
}

func TestAssignProcessorCmd_RejectsBadSplitsJSON(t *testing.T) {
	setTestConfig(t)

	oldMonth, oldProc, oldSplits := assignMonth, assignProcessor, assignSplits
	assignMonth, assignProcessor, assignSplits = "2025-06", "clearent", "{not json"
	defer func() { assignMonth, assignProcessor, assignSplits = oldMonth, oldProc, oldSplits }()

	err := assignProcessorCmd.RunE(assignProcessorCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse --splits")
}

func TestAssignCopyCmd_RequiresMonths(t *testing.T) {
	setTestConfig(t)

	oldFrom, oldTo := assignFromMonth, assignToMonth
	assignFromMonth, assignToMonth = "", ""
	defer func() { assignFromMonth, assignToMonth = oldFrom, oldTo }()

	err := assignCopyCmd.RunE(assignCopyCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--from and --to are required")
}
