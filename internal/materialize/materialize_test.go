package materialize

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cogmem/cogmem/internal/ids"
	"github.com/cogmem/cogmem/internal/vfs"
)

// TestFlushWritesEffectiveFileSetByteExact is scenario S1: flushing a
// workspace's base files to an empty target directory produces byte-exact
// copies of every file.
func TestFlushWritesEffectiveFileSetByteExact(t *testing.T) {
	ctx := context.Background()
	store := vfs.NewStore()
	w := ids.NewWorkspaceID()
	require.NoError(t, store.CreateFile(ctx, w, vfs.Base(), ids.MustVirtualPath("src/lib.rs"), []byte("fn a(){}")))
	require.NoError(t, store.CreateFile(ctx, w, vfs.Base(), ids.MustVirtualPath("src/main.rs"), []byte("fn main(){}")))
	require.NoError(t, store.CreateFile(ctx, w, vfs.Base(), ids.MustVirtualPath("Cargo.toml"), []byte("[package]\nname=\"x\"")))

	dir := t.TempDir()
	engine := NewEngine(store)
	report, err := engine.Flush(ctx, w, ids.SessionID{}, Scope{}, dir, Options{Atomic: true})
	require.NoError(t, err)
	assert.Equal(t, 3, report.FilesWritten)

	assertFileContent(t, filepath.Join(dir, "src", "lib.rs"), "fn a(){}")
	assertFileContent(t, filepath.Join(dir, "src", "main.rs"), "fn main(){}")
	assertFileContent(t, filepath.Join(dir, "Cargo.toml"), "[package]\nname=\"x\"")
}

// TestFlushRollsBackCleanlyOnRenameFailure is scenario S2: when the
// temp-to-final rename fails partway through, the target directory ends up
// exactly as it started, and the error reports a clean rollback.
func TestFlushRollsBackCleanlyOnRenameFailure(t *testing.T) {
	ctx := context.Background()
	store := vfs.NewStore()
	w := ids.NewWorkspaceID()
	require.NoError(t, store.CreateFile(ctx, w, vfs.Base(), ids.MustVirtualPath("Cargo.toml"), []byte("[package]\nname=\"x\"")))
	require.NoError(t, store.CreateFile(ctx, w, vfs.Base(), ids.MustVirtualPath("src/lib.rs"), []byte("fn a(){}")))
	require.NoError(t, store.CreateFile(ctx, w, vfs.Base(), ids.MustVirtualPath("src/main.rs"), []byte("fn main(){}")))

	dir := t.TempDir()
	// EffectiveFiles is returned sorted by path, so the third destination
	// renamed is src/main.rs. Pre-create it as a non-empty directory so its
	// final os.Rename fails with "not empty"/"is a directory", forcing
	// rollback after the first two renames already completed.
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src", "main.rs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "main.rs", "occupied"), []byte("x"), 0o644))

	preFlushEntries, err := os.ReadDir(dir)
	require.NoError(t, err)
	preFlushNames := direntNames(preFlushEntries)

	engine := NewEngine(store)
	_, flushErr := engine.Flush(ctx, w, ids.SessionID{}, Scope{}, dir, Options{Atomic: true})
	require.Error(t, flushErr)

	var fe *FlushError
	require.ErrorAs(t, flushErr, &fe)
	assert.Equal(t, OutcomeClean, fe.Outcome)

	// Target directory top level is unchanged.
	postFlushEntries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, preFlushNames, direntNames(postFlushEntries))

	// Files that did complete their rename before the failure must have
	// been removed again (they did not exist pre-flush).
	_, statErr := os.Stat(filepath.Join(dir, "Cargo.toml"))
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(filepath.Join(dir, "src", "lib.rs"))
	assert.True(t, os.IsNotExist(statErr))

	// No leftover temp files in either directory touched by the flush.
	rootTemps, _ := filepath.Glob(filepath.Join(dir, "*.tmp-*"))
	assert.Empty(t, rootTemps)
	srcTemps, _ := filepath.Glob(filepath.Join(dir, "src", "*.tmp-*"))
	assert.Empty(t, srcTemps)
}

// TestUndoRenamesRestoresBackupAndDeletesNewFile verifies the
// create_backup path: a destination that already existed before the flush
// is restored to its original content on rollback, not merely deleted. This
// exercises undoRenames directly: reproducing the failure through the real
// filesystem would require blocking only the final rename and not the
// preceding backup rename, which share the same directory permissions.
func TestUndoRenamesRestoresBackupAndDeletesNewFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Cargo.toml"), []byte("new content"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "lib.rs"), []byte("fn a(){}"), 0o644))

	backupPath := filepath.Join(dir, "Cargo.toml.bak-test")
	require.NoError(t, os.WriteFile(backupPath, []byte("old content"), 0o644))

	done := []*vfs.File{
		{Path: ids.MustVirtualPath("Cargo.toml")},
		{Path: ids.MustVirtualPath("src/lib.rs")},
	}
	journal := []renameOp{
		{dest: filepath.Join(dir, "Cargo.toml"), backup: backupPath},
		{},
	}
	hadBackup := []bool{true, false}

	require.NoError(t, undoRenames(done, dir, journal, hadBackup))

	assertFileContent(t, filepath.Join(dir, "Cargo.toml"), "old content")
	_, statErr := os.Stat(filepath.Join(dir, "src", "lib.rs"))
	assert.True(t, os.IsNotExist(statErr))
}

// TestFlushDeltaScopeIsIdempotent is scenario S3: flushing the same
// unchanged state twice under a Delta scope writes zero files the second
// time, and writes exactly one file when only one source changed.
func TestFlushDeltaScopeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := vfs.NewStore()
	w := ids.NewWorkspaceID()
	require.NoError(t, store.CreateFile(ctx, w, vfs.Base(), ids.MustVirtualPath("src/lib.rs"), []byte("fn a(){}")))
	require.NoError(t, store.CreateFile(ctx, w, vfs.Base(), ids.MustVirtualPath("src/main.rs"), []byte("fn main(){}")))
	require.NoError(t, store.CreateFile(ctx, w, vfs.Base(), ids.MustVirtualPath("Cargo.toml"), []byte("[package]\nname=\"x\"")))

	dir := t.TempDir()
	engine := NewEngine(store)
	report, err := engine.Flush(ctx, w, ids.SessionID{}, Scope{}, dir, Options{Atomic: true})
	require.NoError(t, err)
	require.Equal(t, 3, report.FilesWritten)

	hashes := effectiveHashes(ctx, store, w)

	// Nothing changed: a Delta flush against the post-S1 hash set writes 0.
	report, err = engine.Flush(ctx, w, ids.SessionID{}, Scope{Since: HashSet(hashes)}, dir, Options{Atomic: true})
	require.NoError(t, err)
	assert.Equal(t, 0, report.FilesWritten)
	assert.Equal(t, 3, report.FilesSkipped)

	require.NoError(t, store.UpdateFile(ctx, w, vfs.Base(), ids.MustVirtualPath("src/lib.rs"), []byte("fn a(){ changed() }")))

	report, err = engine.Flush(ctx, w, ids.SessionID{}, Scope{Since: HashSet(hashes)}, dir, Options{Atomic: true})
	require.NoError(t, err)
	assert.Equal(t, 1, report.FilesWritten)
	assertFileContent(t, filepath.Join(dir, "src", "lib.rs"), "fn a(){ changed() }")
}

func TestFlushHonorsPrefixScope(t *testing.T) {
	ctx := context.Background()
	store := vfs.NewStore()
	w := ids.NewWorkspaceID()
	require.NoError(t, store.CreateFile(ctx, w, vfs.Base(), ids.MustVirtualPath("src/lib.rs"), []byte("a")))
	require.NoError(t, store.CreateFile(ctx, w, vfs.Base(), ids.MustVirtualPath("docs/readme.md"), []byte("b")))

	dir := t.TempDir()
	engine := NewEngine(store)
	report, err := engine.Flush(ctx, w, ids.SessionID{}, Scope{Prefix: ids.MustVirtualPath("src")}, dir, Options{Atomic: true})
	require.NoError(t, err)
	assert.Equal(t, 1, report.FilesWritten)

	_, statErr := os.Stat(filepath.Join(dir, "docs", "readme.md"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestFlushParallelWritesEverything(t *testing.T) {
	ctx := context.Background()
	store := vfs.NewStore()
	w := ids.NewWorkspaceID()
	for i := 0; i < 20; i++ {
		path := ids.MustVirtualPath("file" + string(rune('a'+i)) + ".txt")
		require.NoError(t, store.CreateFile(ctx, w, vfs.Base(), path, []byte("content")))
	}

	dir := t.TempDir()
	engine := NewEngine(store)
	report, err := engine.Flush(ctx, w, ids.SessionID{}, Scope{}, dir, Options{Atomic: true, Parallel: true, MaxParallelWriters: 4})
	require.NoError(t, err)
	assert.Equal(t, 20, report.FilesWritten)
}

func assertFileContent(t *testing.T, path, want string) {
	t.Helper()
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, want, string(got))
}

func direntNames(entries []os.DirEntry) []string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names
}

func effectiveHashes(ctx context.Context, store *vfs.Store, w ids.WorkspaceID) []string {
	files := store.EffectiveFiles(ctx, w, ids.SessionID{}, ids.VirtualPath(""))
	hashes := make([]string, len(files))
	for i, f := range files {
		hashes[i] = f.ContentHash
	}
	return hashes
}
