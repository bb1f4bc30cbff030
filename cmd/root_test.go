package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	// Collect subcommand names.
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	// Verify expected subcommands are registered.
	expected := []string{"migrate", "import", "audit", "assign", "unassigned", "serve"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "residuals-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestImportCommand_Flags(t *testing.T) {
	for _, flagName := range []string{"month", "processor", "dir", "concurrency"} {
		flag := importCmd.Flags().Lookup(flagName)
		assert.NotNil(t, flag, "import should have --%s flag", flagName)
	}
}

func TestAuditCommand_Flags(t *testing.T) {
	flag := auditCmd.Flags().Lookup("month")
	require.NotNil(t, flag, "audit command should have --month flag")
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestAssignCommand_HasSubcommands(t *testing.T) {
	cmds := assignCmd.Commands()
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	expected := []string{"bulk", "smart", "processor", "copy"}
	for _, name := range expected {
		assert.True(t, names[name], "assign should have subcommand %q", name)
	}
}

func TestAssignCopyCommand_Flags(t *testing.T) {
	for _, flagName := range []string{"from", "to", "merchants"} {
		flag := assignCopyCmd.Flags().Lookup(flagName)
		assert.NotNil(t, flag, "assign copy should have --%s flag", flagName)
	}
}
