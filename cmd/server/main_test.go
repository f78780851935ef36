package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCommands(t *testing.T) {
	root := NewRoot()

	for _, name := range []string{"serve", "mcp", "seed", "migrate", "config"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}

	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
	assert.NotNil(t, root.PersistentFlags().Lookup("v"))

	mcp, _, err := root.Find([]string{"mcp"})
	require.NoError(t, err)
	assert.NotNil(t, mcp.Flags().Lookup("transport"))
	assert.NotNil(t, mcp.Flags().Lookup("addr"))
}

func TestConfigCommandWritesFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	path := filepath.Join(t.TempDir(), "out.yaml")

	root := NewRoot()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"config", "--output", path})
	require.NoError(t, root.Execute())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "history_limit")
	assert.Contains(t, out.String(), path)
}
