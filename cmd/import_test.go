package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/residuals-cli/internal/config"
)

// setTestConfig points the global config at a fresh SQLite database.
func setTestConfig(t *testing.T) {
	t.Helper()
	old := cfg
	cfg = &config.Config{
		Store: config.StoreConfig{
			Driver:      "sqlite",
			DatabaseURL: filepath.Join(t.TempDir(), "test.db"),
		},
		Import: config.ImportConfig{DetectionThreshold: 0.6, Concurrency: 2},
		Audit:  config.AuditConfig{OutlierMultiplier: 10, VarianceThreshold: 5, RevenuePerTxnLimit: 50},
		Log:    config.LogConfig{Level: "info", Format: "json"},
	}
	t.Cleanup(func() { cfg = old })
}

func migrateTestDB(t *testing.T) {
	t.Helper()
	migrateCmd.SetContext(context.Background())
	require.NoError(t, migrateCmd.RunE(migrateCmd, nil))
}

func TestImportCmd_RequiresMonth(t *testing.T) {
	setTestConfig(t)

	oldMonth := importMonth
	importMonth = ""
	defer func() { importMonth = oldMonth }()

	err := importCmd.RunE(importCmd, []string{"statement.csv"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--month is required")
}

func TestImportCmd_RequiresFileOrDir(t *testing.T) {
	setTestConfig(t)

	oldMonth, oldDir := importMonth, importDir
	importMonth = "2025-06"
	importDir = ""
	defer func() { importMonth, importDir = oldMonth, oldDir }()

	err := importCmd.RunE(importCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--dir is required")
}

func TestImportCmd_ImportsFile(t *testing.T) {
	setTestConfig(t)
	migrateTestDB(t)

	path := filepath.Join(t.TempDir(), "statement.csv")
	require.NoError(t, os.WriteFile(path, []byte(
		"Merchant ID,Merchant,Transactions,Sales Amount,Net\n123456789,Joe's Coffee,150,12500.00,45.50\n"), 0o644))

	oldMonth, oldDir := importMonth, importDir
	importMonth = "2025-06"
	importDir = ""
	defer func() { importMonth, importDir = oldMonth, oldDir }()

	importCmd.SetContext(context.Background())
	require.NoError(t, importCmd.RunE(importCmd, []string{path}))
}

func TestImportCmd_ImportsDirectory(t *testing.T) {
	setTestConfig(t)
	migrateTestDB(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "clearent_june.csv"), []byte(
		"Merchant ID,Merchant,Transactions,Sales Amount,Net\n123456789,Joe's Coffee,150,12500.00,45.50\n"), 0o644))

	oldMonth, oldDir := importMonth, importDir
	importMonth = "2025-06"
	importDir = dir
	defer func() { importMonth, importDir = oldMonth, oldDir }()

	importCmd.SetContext(context.Background())
	require.NoError(t, importCmd.RunE(importCmd, nil))
}

func TestAuditCmd_RequiresMonth(t *testing.T) {
	setTestConfig(t)

	oldMonth := auditMonth
	auditMonth = ""
	defer func() { auditMonth = oldMonth }()

	err := auditCmd.RunE(auditCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--month is required")
}

func TestAuditCmd_EmptyMonth(t *testing.T) {
	setTestConfig(t)
	migrateTestDB(t)

	oldMonth := auditMonth
	auditMonth = "2025-06"
	defer func() { auditMonth = oldMonth }()

	auditCmd.SetContext(context.Background())
	require.NoError(t, auditCmd.RunE(auditCmd, nil))
}

func TestUnassignedCmd_RequiresMonth(t *testing.T) {
	setTestConfig(t)

	oldMonth := unassignedMonth
	unassignedMonth = ""
	defer func() { unassignedMonth = oldMonth }()

	err := unassignedCmd.RunE(unassignedCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--month is required")
}

func TestOpenStore_UnsupportedDriver(t *testing.T) {
	setTestConfig(t)
	cfg.Store.Driver = "oracle"

	_, err := openStore(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store driver")
}

func TestInitEnv_LoadsSchemasFile(t *testing.T) {
	setTestConfig(t)

	// Nonexistent schemas file fails env setup.
	cfg.Import.SchemasFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := initEnv(context.Background())
	require.Error(t, err)

	cfg.Import.SchemasFile = ""
	e, err := initEnv(context.Background())
	require.NoError(t, err)
	defer e.Close()
	assert.NotNil(t, e.Importer)
	assert.NotNil(t, e.Engine)
	assert.NotNil(t, e.Detector)
	assert.Contains(t, e.Registry.Names(), "clearent")
}
