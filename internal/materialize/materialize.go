// Package materialize implements the Materialization Engine (C5): it flushes
// the VFS Core's effective file set to a target directory on the host
// filesystem, atomically and with rollback, per spec.md §4.4.
package materialize

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/cogmem/cogmem/internal/errs"
	"github.com/cogmem/cogmem/internal/ids"
	"github.com/cogmem/cogmem/internal/vfs"
)

// Scope selects which effective files of a workspace a flush covers.
type Scope struct {
	// Prefix restricts the flush to the subtree under this virtual path.
	// The zero value (empty path) covers the whole workspace.
	Prefix ids.VirtualPath
	// Since, when non-nil, restricts the flush to files whose content hash
	// is not present in the set — an incremental "Delta" scope.
	Since map[string]bool
}

// Options configures how a flush is carried out.
type Options struct {
	Atomic              bool
	CreateBackup        bool
	Parallel            bool
	PreservePermissions bool
	MaxParallelWriters  int
}

// Report summarizes the outcome of a successful flush.
type Report struct {
	FilesWritten int
	FilesSkipped int
}

// Outcome classifies what happened when a flush failed.
type Outcome int

const (
	// OutcomeNone means no failure occurred.
	OutcomeNone Outcome = iota
	// OutcomeClean means the flush failed but rollback fully restored the
	// target directory to its pre-flush state.
	OutcomeClean
	// OutcomeInconsistent means rollback itself failed; the target
	// directory may now differ from both the pre- and post-flush state.
	OutcomeInconsistent
)

// FlushError wraps a flush failure with its rollback outcome.
type FlushError struct {
	Outcome Outcome
	Reason  string
	Cause   error
}

func (e *FlushError) Error() string {
	return fmt.Sprintf("materialize: flush failed (%s): %s", e.outcomeLabel(), e.Reason)
}

func (e *FlushError) Unwrap() error { return e.Cause }

func (e *FlushError) outcomeLabel() string {
	switch e.Outcome {
	case OutcomeClean:
		return "rolled back cleanly"
	case OutcomeInconsistent:
		return "rollback inconsistent"
	default:
		return "none"
	}
}

// Engine flushes a vfs.Store's effective file sets to disk.
type Engine struct {
	store *vfs.Store
}

// NewEngine creates a Materialization Engine over store.
func NewEngine(store *vfs.Store) *Engine {
	return &Engine{store: store}
}

// renameOp records one destination-to-backup rename so it can be reversed.
type renameOp struct {
	dest   string
	backup string
}

// Flush writes the effective file set of workspace (as seen by session, or
// the base layer if session is the zero value) under scope to targetDir.
//
// In atomic mode, either every file in scope is updated or none: on any
// failure, temporary files are discarded and any destination renamed aside
// for create_backup is restored via the in-memory rename journal. A failure
// during that restoration is escalated to OutcomeInconsistent.
func (e *Engine) Flush(ctx context.Context, workspace ids.WorkspaceID, session ids.SessionID, scope Scope, targetDir string, opts Options) (Report, error) {
	all := e.store.EffectiveFiles(ctx, workspace, session, scope.Prefix)
	files := all
	if scope.Since != nil {
		files = make([]*vfs.File, 0, len(all))
		for _, f := range all {
			if !scope.Since[f.ContentHash] {
				files = append(files, f)
			}
		}
	}

	if len(files) == 0 {
		return Report{FilesSkipped: len(all)}, nil
	}

	var report Report
	var err error
	if !opts.Atomic {
		report, err = e.flushDirect(files, targetDir, opts)
	} else {
		report, err = e.flushAtomic(ctx, files, targetDir, opts)
	}
	if err != nil {
		return report, err
	}
	report.FilesSkipped = len(all) - len(files)
	return report, nil
}

func (e *Engine) flushDirect(files []*vfs.File, targetDir string, opts Options) (Report, error) {
	if opts.Parallel {
		if err := e.writeAll(files, targetDir, opts); err != nil {
			return Report{}, &FlushError{Outcome: OutcomeNone, Reason: err.Error(), Cause: err}
		}
		return Report{FilesWritten: len(files)}, nil
	}
	for _, f := range files {
		if err := writeFile(targetDir, f, opts); err != nil {
			return Report{}, &FlushError{Outcome: OutcomeNone, Reason: err.Error(), Cause: err}
		}
	}
	return Report{FilesWritten: len(files)}, nil
}

func (e *Engine) flushAtomic(ctx context.Context, files []*vfs.File, targetDir string, opts Options) (Report, error) {
	temps := make([]string, len(files))

	writeTemp := func(i int) error {
		f := files[i]
		dest := destPath(targetDir, f.Path)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return errs.IoError(dest, err.Error(), err)
		}
		tmp := dest + ".tmp-" + randomSuffix()
		if err := os.WriteFile(tmp, f.Content, permFor(opts)); err != nil {
			return errs.IoError(tmp, err.Error(), err)
		}
		temps[i] = tmp
		return nil
	}

	var writeErr error
	if opts.Parallel {
		g, _ := errgroup.WithContext(ctx)
		workers := opts.MaxParallelWriters
		if workers <= 0 {
			workers = 4
		}
		g.SetLimit(workers)
		for i := range files {
			i := i
			g.Go(func() error { return writeTemp(i) })
		}
		writeErr = g.Wait()
	} else {
		for i := range files {
			if err := writeTemp(i); err != nil {
				writeErr = err
				break
			}
		}
	}

	if writeErr != nil {
		cleanupTemps(temps)
		return Report{}, &FlushError{Outcome: OutcomeClean, Reason: writeErr.Error(), Cause: writeErr}
	}

	// journal records, per file, whether its pre-existing destination was
	// renamed aside to a backup (restore it on rollback) or did not exist
	// (delete the newly-materialized file on rollback instead).
	journal := make([]renameOp, len(files))
	hadBackup := make([]bool, len(files))
	// restoreBackups moves the backups in journal[from:to] back over their
	// destinations, for files whose temp was never renamed into place.
	restoreBackups := func(from, to int) (firstErr error) {
		for j := from; j < to; j++ {
			if hadBackup[j] {
				if err := os.Rename(journal[j].backup, journal[j].dest); err != nil && firstErr == nil {
					firstErr = err
				}
			}
		}
		return firstErr
	}
	if opts.CreateBackup {
		for i, f := range files {
			dest := destPath(targetDir, f.Path)
			if _, err := os.Stat(dest); err == nil {
				backup := dest + ".bak-" + randomSuffix()
				if err := os.Rename(dest, backup); err != nil {
					cleanupTemps(temps)
					if rbErr := restoreBackups(0, i); rbErr != nil {
						return Report{}, &FlushError{Outcome: OutcomeInconsistent, Reason: rbErr.Error(), Cause: err}
					}
					return Report{}, &FlushError{Outcome: OutcomeClean, Reason: err.Error(), Cause: err}
				}
				journal[i] = renameOp{dest: dest, backup: backup}
				hadBackup[i] = true
			}
		}
	}

	renamed := 0
	for i, f := range files {
		dest := destPath(targetDir, f.Path)
		if err := os.Rename(temps[i], dest); err != nil {
			cleanupTemps(temps[i:])
			rbErr := undoRenames(files[:i], targetDir, journal, hadBackup)
			if err := restoreBackups(i, len(files)); rbErr == nil {
				rbErr = err
			}
			if rbErr != nil {
				return Report{}, &FlushError{Outcome: OutcomeInconsistent, Reason: rbErr.Error(), Cause: err}
			}
			return Report{}, &FlushError{Outcome: OutcomeClean, Reason: err.Error(), Cause: err}
		}
		renamed++
	}

	for i := range journal {
		if hadBackup[i] {
			_ = os.Remove(journal[i].backup)
		}
	}

	return Report{FilesWritten: renamed}, nil
}

// undoRenames reverses every destination in done that was already renamed
// into place during the current flush attempt: a file that replaced a
// pre-existing one is restored from its backup, a file that was newly
// created is deleted, so the target directory returns to its pre-flush
// state under the scope's paths.
func undoRenames(done []*vfs.File, targetDir string, journal []renameOp, hadBackup []bool) error {
	var firstErr error
	for i := len(done) - 1; i >= 0; i-- {
		dest := destPath(targetDir, done[i].Path)
		var err error
		if hadBackup[i] {
			err = os.Rename(journal[i].backup, dest)
		} else {
			err = os.Remove(dest)
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// writeAll writes files directly to their destinations (non-atomic mode),
// bounded by MaxParallelWriters when opts.Parallel is set.
func (e *Engine) writeAll(files []*vfs.File, targetDir string, opts Options) error {
	g := errgroup.Group{}
	workers := opts.MaxParallelWriters
	if workers <= 0 {
		workers = 4
	}
	g.SetLimit(workers)
	for _, f := range files {
		f := f
		g.Go(func() error {
			return writeFile(targetDir, f, opts)
		})
	}
	return g.Wait()
}

func writeFile(targetDir string, f *vfs.File, opts Options) error {
	dest := destPath(targetDir, f.Path)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return errs.IoError(dest, err.Error(), err)
	}
	if err := os.WriteFile(dest, f.Content, permFor(opts)); err != nil {
		return errs.IoError(dest, err.Error(), err)
	}
	return nil
}

func destPath(targetDir string, p ids.VirtualPath) string {
	return filepath.Join(targetDir, filepath.FromSlash(p.String()))
}

// permFor returns the mode a materialized file is written with. VirtualFile
// carries no executable-bit metadata today, so PreservePermissions only
// widens the written mode; a richer File record would gate this per-file.
func permFor(opts Options) os.FileMode {
	if opts.PreservePermissions {
		return 0o755
	}
	return 0o644
}

func cleanupTemps(temps []string) {
	for _, t := range temps {
		if t != "" {
			_ = os.Remove(t)
		}
	}
}

func randomSuffix() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

// HashSet builds the `Since` set for a Delta scope from a slice of content
// hashes.
func HashSet(hashes []string) map[string]bool {
	out := make(map[string]bool, len(hashes))
	for _, h := range hashes {
		out[h] = true
	}
	return out
}
