package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cogmem/cogmem/internal/ids"
	"github.com/cogmem/cogmem/internal/vfs"
)

func newTestController(t *testing.T) (*Controller, *vfs.Store, ids.WorkspaceID) {
	t.Helper()
	store := vfs.NewStore()
	return NewController(store), store, ids.NewWorkspaceID()
}

func TestOpenSessionWriteFileReadFile(t *testing.T) {
	// Given: an open session with no scope restriction
	ctrl, _, workspace := newTestController(t)
	ctx := context.Background()
	agent := ids.NewAgentID()

	sessionID, err := ctrl.OpenSession(ctx, agent, workspace, vfs.Scope{})
	require.NoError(t, err)

	// When: writing a file through the session
	path := ids.MustVirtualPath("notes.md")
	require.NoError(t, ctrl.WriteFile(ctx, sessionID, path, []byte("draft")))

	// Then: reading it back through the session sees the write
	got, err := ctrl.ReadFile(ctx, sessionID, path)
	require.NoError(t, err)
	assert.Equal(t, []byte("draft"), got.Content)
}

func TestWriteFileOutsideScopeIsRejected(t *testing.T) {
	// Given: a session scoped to write only under src/
	ctrl, _, workspace := newTestController(t)
	ctx := context.Background()
	scope := vfs.Scope{WritablePaths: []ids.VirtualPath{ids.MustVirtualPath("src")}}
	sessionID, err := ctrl.OpenSession(ctx, ids.NewAgentID(), workspace, scope)
	require.NoError(t, err)

	// When: writing outside the writable prefix
	err = ctrl.WriteFile(ctx, sessionID, ids.MustVirtualPath("docs/readme.md"), []byte("x"))

	// Then: the write is rejected
	assert.Error(t, err)
}

func TestMergeAppliesNonConflictingWritesToBase(t *testing.T) {
	// Given: a session that wrote a new file, with the base untouched since fork
	ctrl, vfsStore, workspace := newTestController(t)
	ctx := context.Background()
	sessionID, err := ctrl.OpenSession(ctx, ids.NewAgentID(), workspace, vfs.Scope{})
	require.NoError(t, err)

	path := ids.MustVirtualPath("main.go")
	require.NoError(t, ctrl.WriteFile(ctx, sessionID, path, []byte("package main")))

	// When: merging with any strategy
	report, err := ctrl.Merge(ctx, sessionID, MergeAuto)
	require.NoError(t, err)

	// Then: the write lands in the base with no conflicts
	assert.Equal(t, 1, report.FilesWritten)
	assert.Equal(t, 0, report.ConflictsResolved)
	assert.Empty(t, report.ConflictsUnresolved)

	base, err := vfsStore.GetFile(ctx, workspace, ids.SessionID{}, path)
	require.NoError(t, err)
	assert.Equal(t, []byte("package main"), base.Content)
}

func TestMergeAutoResolvesConflictInSessionFavor(t *testing.T) {
	// Given: a base file that changes after the session forks, and the
	// session also writes to the same path
	ctrl, vfsStore, workspace := newTestController(t)
	ctx := context.Background()
	path := ids.MustVirtualPath("config.yaml")
	require.NoError(t, vfsStore.CreateFile(ctx, workspace, vfs.Base(), path, []byte("v1")))

	sessionID, err := ctrl.OpenSession(ctx, ids.NewAgentID(), workspace, vfs.Scope{})
	require.NoError(t, err)

	require.NoError(t, vfsStore.UpdateFile(ctx, workspace, vfs.Base(), path, []byte("v2-from-elsewhere")))
	require.NoError(t, ctrl.WriteFile(ctx, sessionID, path, []byte("v2-from-session")))

	// When: merging with MergeAuto
	report, err := ctrl.Merge(ctx, sessionID, MergeAuto)
	require.NoError(t, err)

	// Then: the conflict is counted and the session's content wins
	assert.Equal(t, 1, report.ConflictsResolved)
	base, err := vfsStore.GetFile(ctx, workspace, ids.SessionID{}, path)
	require.NoError(t, err)
	assert.Equal(t, []byte("v2-from-session"), base.Content)
}

func TestMergePreferBaseDiscardsConflictingSessionWrite(t *testing.T) {
	// Given: the same conflicting setup as above
	ctrl, vfsStore, workspace := newTestController(t)
	ctx := context.Background()
	path := ids.MustVirtualPath("config.yaml")
	require.NoError(t, vfsStore.CreateFile(ctx, workspace, vfs.Base(), path, []byte("v1")))

	sessionID, err := ctrl.OpenSession(ctx, ids.NewAgentID(), workspace, vfs.Scope{})
	require.NoError(t, err)

	require.NoError(t, vfsStore.UpdateFile(ctx, workspace, vfs.Base(), path, []byte("v2-from-elsewhere")))
	require.NoError(t, ctrl.WriteFile(ctx, sessionID, path, []byte("v2-from-session")))

	// When: merging with MergePreferBase
	report, err := ctrl.Merge(ctx, sessionID, MergePreferBase)
	require.NoError(t, err)

	// Then: the base's content is kept
	assert.Equal(t, 1, report.ConflictsResolved)
	base, err := vfsStore.GetFile(ctx, workspace, ids.SessionID{}, path)
	require.NoError(t, err)
	assert.Equal(t, []byte("v2-from-elsewhere"), base.Content)
}

func TestMergeManualReturnsConflictWithoutMutatingBase(t *testing.T) {
	// Given: the same conflicting setup as above
	ctrl, vfsStore, workspace := newTestController(t)
	ctx := context.Background()
	path := ids.MustVirtualPath("config.yaml")
	require.NoError(t, vfsStore.CreateFile(ctx, workspace, vfs.Base(), path, []byte("v1")))

	sessionID, err := ctrl.OpenSession(ctx, ids.NewAgentID(), workspace, vfs.Scope{})
	require.NoError(t, err)

	require.NoError(t, vfsStore.UpdateFile(ctx, workspace, vfs.Base(), path, []byte("v2-from-elsewhere")))
	require.NoError(t, ctrl.WriteFile(ctx, sessionID, path, []byte("v2-from-session")))

	// When: merging with MergeManual
	report, err := ctrl.Merge(ctx, sessionID, MergeManual)
	require.NoError(t, err)

	// Then: the conflict is reported unresolved and the base is untouched
	assert.Equal(t, 0, report.FilesWritten)
	assert.Equal(t, 0, report.ConflictsResolved)
	require.Len(t, report.ConflictsUnresolved, 1)
	assert.Equal(t, path, report.ConflictsUnresolved[0])

	base, err := vfsStore.GetFile(ctx, workspace, ids.SessionID{}, path)
	require.NoError(t, err)
	assert.Equal(t, []byte("v2-from-elsewhere"), base.Content)
}

func TestCloseDiscardsUncommittedWrites(t *testing.T) {
	// Given: a session with an uncommitted write
	ctrl, vfsStore, workspace := newTestController(t)
	ctx := context.Background()
	agent := ids.NewAgentID()
	sessionID, err := ctrl.OpenSession(ctx, agent, workspace, vfs.Scope{})
	require.NoError(t, err)

	path := ids.MustVirtualPath("scratch.txt")
	require.NoError(t, ctrl.WriteFile(ctx, sessionID, path, []byte("temp")))

	// When: closing the session without merging
	require.NoError(t, ctrl.Close(ctx, sessionID, agent))

	// Then: the base never saw the write, and the session is gone
	_, err = vfsStore.GetFile(ctx, workspace, ids.SessionID{}, path)
	assert.Error(t, err)
	_, err = ctrl.Info(sessionID)
	assert.Error(t, err)
}

func TestMergeOnDeletedSessionPathRemovesFromBase(t *testing.T) {
	// Given: a base file the session deletes, with the base unmodified since fork
	ctrl, vfsStore, workspace := newTestController(t)
	ctx := context.Background()
	path := ids.MustVirtualPath("obsolete.go")
	require.NoError(t, vfsStore.CreateFile(ctx, workspace, vfs.Base(), path, []byte("old")))

	sessionID, err := ctrl.OpenSession(ctx, ids.NewAgentID(), workspace, vfs.Scope{})
	require.NoError(t, err)
	require.NoError(t, vfsStore.DeleteFile(ctx, workspace, vfs.Session(sessionID), path))

	// When: merging
	_, err = ctrl.Merge(ctx, sessionID, MergeAuto)
	require.NoError(t, err)

	// Then: the base no longer has the file
	_, err = vfsStore.GetFile(ctx, workspace, ids.SessionID{}, path)
	assert.Error(t, err)
}
