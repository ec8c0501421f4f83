// Package watch triggers re-ingestion of changed files by watching a
// workspace's materialized directory on disk, adapted from the teacher's
// internal/watcher package (fsnotify primary, polling fallback, debounced).
package watch

import (
	"context"
	"time"
)

// Operation represents a file system operation type.
type Operation int

const (
	OpCreate Operation = iota
	OpModify
	OpDelete
	OpRename
	// OpGitignoreChange indicates a .gitignore file changed; the
	// HybridWatcher reloads its matcher, and the Trigger does not re-ingest
	// the .gitignore file itself.
	OpGitignoreChange
	// OpConfigChange indicates the workspace's .cogmem.yaml config changed.
	OpConfigChange
)

func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	case OpRename:
		return "RENAME"
	case OpGitignoreChange:
		return "GITIGNORE_CHANGE"
	case OpConfigChange:
		return "CONFIG_CHANGE"
	default:
		return "UNKNOWN"
	}
}

// FileEvent represents a file system event relative to a watched root.
type FileEvent struct {
	Path      string
	OldPath   string
	Operation Operation
	IsDir     bool
	Timestamp time.Time
}

// Watcher watches a directory tree and emits batches of coalesced events.
type Watcher interface {
	Start(ctx context.Context, path string) error
	Stop() error
	Events() <-chan []FileEvent
	Errors() <-chan error
}

// Options configures watcher behavior.
type Options struct {
	// DebounceWindow is the time to wait before emitting coalesced events.
	DebounceWindow time.Duration
	// PollInterval is the interval for polling mode (fallback).
	PollInterval time.Duration
	// EventBufferSize is the size of the event channel buffer.
	EventBufferSize int
	// IgnorePatterns are additional gitignore-syntax patterns to exclude,
	// beyond .gitignore files discovered under the watched root.
	IgnorePatterns []string
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		DebounceWindow:  200 * time.Millisecond,
		PollInterval:    5 * time.Second,
		EventBufferSize: 1000,
	}
}

// WithDefaults fills zero-valued fields of o with DefaultOptions.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.DebounceWindow == 0 {
		o.DebounceWindow = defaults.DebounceWindow
	}
	if o.PollInterval == 0 {
		o.PollInterval = defaults.PollInterval
	}
	if o.EventBufferSize == 0 {
		o.EventBufferSize = defaults.EventBufferSize
	}
	return o
}
