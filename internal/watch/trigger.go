package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cogmem/cogmem/internal/ids"
)

// IngestFunc re-ingests one file's bytes. Declared as a function type
// rather than importing internal/ingest's Pipeline directly, so
// internal/watch stays a leaf package the pipeline sits above without a
// dependency cycle; callers pass pipeline.Ingest adapted to drop its
// Report return value.
type IngestFunc func(ctx context.Context, workspace ids.WorkspaceID, path ids.VirtualPath, content []byte) error

// Trigger wires a Watcher's file-change events to re-ingestion of a single
// workspace's materialized directory on disk, supplementing spec.md §4.5
// with the re-ingestion feature the ingestion pipeline alone does not
// provide.
type Trigger struct {
	watcher   Watcher
	ingest    IngestFunc
	workspace ids.WorkspaceID
	root      string
}

// NewTrigger builds a Trigger that re-ingests changed files under root into
// workspace whenever watcher reports them.
func NewTrigger(watcher Watcher, ingest IngestFunc, workspace ids.WorkspaceID, root string) *Trigger {
	return &Trigger{watcher: watcher, ingest: ingest, workspace: workspace, root: root}
}

// Run starts the watcher and processes events until ctx is cancelled or the
// watcher stops. It blocks; call it from its own goroutine.
func (t *Trigger) Run(ctx context.Context) error {
	go t.drain(ctx)
	return t.watcher.Start(ctx, t.root)
}

func (t *Trigger) drain(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-t.watcher.Events():
			if !ok {
				return
			}
			t.handleBatch(ctx, batch)
		case err, ok := <-t.watcher.Errors():
			if !ok {
				return
			}
			slog.Warn("watch: trigger received watcher error", slog.String("error", err.Error()))
		}
	}
}

func (t *Trigger) handleBatch(ctx context.Context, batch []FileEvent) {
	for _, event := range batch {
		if event.IsDir {
			continue
		}
		switch event.Operation {
		case OpDelete:
			continue // deletions are reconciled by the next full re-ingestion pass, not per-event
		case OpGitignoreChange, OpConfigChange:
			continue // reload is the watcher's own concern; no single file to re-ingest
		}
		t.reingest(ctx, event.Path)
	}
}

func (t *Trigger) reingest(ctx context.Context, relPath string) {
	vpath, err := ids.NewVirtualPath(relPath)
	if err != nil {
		slog.Warn("watch: skipping invalid path", slog.String("path", relPath), slog.String("error", err.Error()))
		return
	}

	content, err := os.ReadFile(filepath.Join(t.root, relPath))
	if err != nil {
		slog.Warn("watch: failed to read changed file", slog.String("path", relPath), slog.String("error", err.Error()))
		return
	}

	if err := t.ingest(ctx, t.workspace, vpath, content); err != nil {
		slog.Warn("watch: re-ingestion failed, will retry on next change", slog.String("path", relPath), slog.String("error", err.Error()))
	}
}
