// Package session implements the Session Controller (C10): the
// unit-of-work boundary for agent tasks. A session is a scoped, disposable
// VFS overlay — open it, read and write through it, then either merge its
// changes back into the workspace base or close it and discard them.
//
// This generalizes the teacher's long-lived, disk-persisted named
// developer session (Session/Manager) into a short-lived, in-memory
// overlay scoped to a single agent task, per spec.md §4.8.
package session

import (
	"time"

	"github.com/cogmem/cogmem/internal/ids"
	"github.com/cogmem/cogmem/internal/vfs"
)

// MergeStrategy selects how Merge resolves a conflict — a write the
// session made to a path whose base content changed after the session
// forked.
type MergeStrategy string

const (
	// MergeAuto resolves every conflict in the session's favor, same as
	// MergeStrategy PreferSession. It is the default a caller reaches for
	// when it has no stronger opinion than "keep going."
	MergeAuto MergeStrategy = "auto"

	// MergePreferSession resolves every conflict in the session's favor.
	MergePreferSession MergeStrategy = "prefer_session"

	// MergePreferBase resolves every conflict in the base's favor: the
	// session's conflicting write is discarded.
	MergePreferBase MergeStrategy = "prefer_base"

	// MergeManual performs no base mutation for conflicting paths at all;
	// they are returned to the caller as ConflictsUnresolved.
	MergeManual MergeStrategy = "manual"
)

// MergeReport summarizes the outcome of a Merge call.
type MergeReport struct {
	FilesWritten        int
	ConflictsResolved   int
	ConflictsUnresolved []ids.VirtualPath
}

// Info describes an open session's identity and scope, returned to callers
// that need to inspect a session without going through the controller's
// internal state.
type Info struct {
	SessionID   ids.SessionID
	AgentID     ids.AgentID
	WorkspaceID ids.WorkspaceID
	Scope       vfs.Scope
	ForkedAt    time.Time
}
