package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	expected := []string{"dataset", "cv", "select", "correlogram", "runs", "serve"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "geostat-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestSelectCommand_Flags(t *testing.T) {
	flag := selectCmd.Flags().Lookup("covariates")
	require.NotNil(t, flag, "select command should have --covariates flag")

	format := selectCmd.Flags().Lookup("format")
	require.NotNil(t, format, "select command should have --format flag")
	assert.Equal(t, "yaml", format.DefValue)
}

func TestCorrelogramCommand_Flags(t *testing.T) {
	flag := correlogramCmd.Flags().Lookup("bins")
	require.NotNil(t, flag, "correlogram command should have --bins flag")
	assert.Equal(t, "10", flag.DefValue)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestRunsCommand_HasSubcommands(t *testing.T) {
	cmds := runsCmd.Commands()
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	for _, name := range []string{"list", "show"} {
		assert.True(t, names[name], "expected runs subcommand %q not found", name)
	}
}
