package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_HasSubcommands(t *testing.T) {
	// Given: the root command
	root := NewRootCmd()

	// When: listing its subcommands
	var names []string
	for _, sub := range root.Commands() {
		names = append(names, sub.Name())
	}

	// Then: every documented subcommand is present
	assert.Contains(t, names, "ingest")
	assert.Contains(t, names, "search")
	assert.Contains(t, names, "episode")
	assert.Contains(t, names, "session")
	assert.Contains(t, names, "version")
}

func TestRootCmd_HasDataDirFlag(t *testing.T) {
	// Given: the root command
	root := NewRootCmd()

	// Then: --data-dir exists with the documented default
	flag := root.PersistentFlags().Lookup("data-dir")
	require.NotNil(t, flag)
	assert.Equal(t, ".cogmem", flag.DefValue)
}

func TestRootCmd_ShowsHelp(t *testing.T) {
	// Given: the root command
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"--help"})

	// When: executing --help
	err := root.Execute()

	// Then: usage is printed and mentions the program
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "cogmem")
	assert.Contains(t, buf.String(), "Usage:")
}

func TestWorkspaceIDForPath_IsStableAcrossCalls(t *testing.T) {
	// Given: the same project path resolved twice
	dir := t.TempDir()

	// When: deriving a workspace id each time
	first, err := workspaceIDForPath(dir)
	require.NoError(t, err)
	second, err := workspaceIDForPath(dir)
	require.NoError(t, err)

	// Then: both derivations agree, and a different path disagrees
	assert.Equal(t, first, second)

	other, err := workspaceIDForPath(t.TempDir())
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}
