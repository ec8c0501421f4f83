package cogmem

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cogmem/cogmem/internal/config"
	"github.com/cogmem/cogmem/internal/episodic"
	"github.com/cogmem/cogmem/internal/ids"
	"github.com/cogmem/cogmem/internal/session"
	"github.com/cogmem/cogmem/internal/vfs"
)

func TestNewInMemoryRootWiresAllComponents(t *testing.T) {
	// Given: the default config and an empty data directory
	ctx := context.Background()
	cfg := config.Default()

	// When: constructing a Root with no data directory
	root, err := New(ctx, cfg, "")

	// Then: every component is non-nil and ready to use
	require.NoError(t, err)
	assert.NotNil(t, root.Facade)
	assert.NotNil(t, root.CodeIndex)
	assert.NotNil(t, root.EpisodeIndex)
	assert.NotNil(t, root.Embedder)
	assert.NotNil(t, root.VFS)
	assert.NotNil(t, root.Materialize)
	assert.NotNil(t, root.Ingest)
	assert.NotNil(t, root.Episodic)
	assert.NotNil(t, root.PatternIndex)
	assert.NotNil(t, root.Ranker)
	assert.NotNil(t, root.Sessions)

	assert.NoError(t, root.Close())
}

func TestRootPersistsAndReloadsFromDataDir(t *testing.T) {
	// Given: a Root backed by a temp data directory, with one recorded episode
	ctx := context.Background()
	cfg := config.Default()
	dataDir := t.TempDir()

	root, err := New(ctx, cfg, dataDir)
	require.NoError(t, err)

	ep := episodic.Episode{
		ID:              ids.NewEpisodeID(),
		Type:            episodic.KindFeature,
		TaskDescription: "wire up the session controller",
		AgentID:         ids.NewAgentID(),
		WorkspaceID:     ids.NewWorkspaceID(),
		SolutionSummary: "added internal/session",
		Outcome:         episodic.OutcomeSuccess,
	}
	require.NoError(t, root.Episodic.Record(ctx, ep))
	require.NoError(t, root.Close())

	// When: constructing a fresh Root over the same data directory
	reopened, err := New(ctx, cfg, dataDir)
	require.NoError(t, err)

	// Then: the episode survives the restart
	got, ok := reopened.Episodic.GetEpisode(ep.ID)
	require.True(t, ok)
	assert.Equal(t, ep.TaskDescription, got.TaskDescription)
	assert.NoError(t, reopened.Close())
}

func TestRootSessionsAndVFSShareOneStore(t *testing.T) {
	// Given: a Root, a workspace, and a session opened through root.Sessions
	ctx := context.Background()
	root, err := New(ctx, config.Default(), "")
	require.NoError(t, err)

	workspace := ids.NewWorkspaceID()
	sessionID, err := root.Sessions.OpenSession(ctx, ids.NewAgentID(), workspace, vfs.Scope{})
	require.NoError(t, err)

	// When: writing through the session and merging
	path := ids.MustVirtualPath("main.go")
	require.NoError(t, root.Sessions.WriteFile(ctx, sessionID, path, []byte("package main")))
	report, err := root.Sessions.Merge(ctx, sessionID, session.MergeAuto)
	require.NoError(t, err)
	assert.Equal(t, 1, report.FilesWritten)

	// Then: root.VFS (the same underlying store) sees the merged base file
	base, err := root.VFS.GetFile(ctx, workspace, ids.SessionID{}, path)
	require.NoError(t, err)
	assert.Equal(t, []byte("package main"), base.Content)
}
