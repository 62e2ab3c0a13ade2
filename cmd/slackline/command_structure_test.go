package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestRootCommand_InitAndExecute tests root command initialization
func TestRootCommand_InitAndExecute(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	assert.NotNil(t, rootCmd)
	assert.Equal(t, "slackline", rootCmd.Use)

	os.Args = []string{"slackline", "--help"}
	assert.NoError(t, rootCmd.Execute())
}

// TestRootCommand_HasTransportCommands tests both transports are registered
func TestRootCommand_HasTransportCommands(t *testing.T) {
	names := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}

	assert.True(t, names["serve"], "serve command should exist")
	assert.True(t, names["listen"], "listen command should exist")
	assert.True(t, names["version"], "version command should exist")
}

// TestAllCommands_HaveUsage tests all commands have usage info
func TestAllCommands_HaveUsage(t *testing.T) {
	for _, cmd := range rootCmd.Commands() {
		assert.NotEmpty(t, cmd.Use, "command %s should have usage", cmd.Name())
		assert.NotEmpty(t, cmd.Short, "command %s should have short description", cmd.Name())
	}
}

// TestAllCommands_AreUnique tests all command names are unique
func TestAllCommands_AreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		assert.False(t, seen[cmd.Name()], "command name %s should be unique", cmd.Name())
		seen[cmd.Name()] = true
	}
}

// TestTransportCommands_HaveConfigFlag tests serve and listen share the config flag
func TestTransportCommands_HaveConfigFlag(t *testing.T) {
	for _, name := range []string{"serve", "listen"} {
		cmd, _, err := rootCmd.Find([]string{name})
		assert.NoError(t, err)
		assert.NotNil(t, cmd.Flags().Lookup("config"), "command %s should have --config", name)
		assert.NotNil(t, cmd.Flags().Lookup("echo"), "command %s should have --echo", name)
	}
}

// TestVersionCommand_Executes tests the version command runs
func TestVersionCommand_Executes(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	os.Args = []string{"slackline", "version"}
	assert.NoError(t, rootCmd.Execute())
}
