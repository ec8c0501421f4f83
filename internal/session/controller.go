package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cogmem/cogmem/internal/errs"
	"github.com/cogmem/cogmem/internal/ids"
	"github.com/cogmem/cogmem/internal/vfs"
)

// state is a Controller's bookkeeping for one open session: its identity,
// scope, and a fork-time snapshot of the base's content hashes, used at
// Merge time to detect whether the base changed underneath the session.
type state struct {
	info     Info
	baseHash map[ids.VirtualPath]string
}

// Controller implements the Session Controller (C10). It wraps a
// vfs.Store, opening one overlay per session and routing WriteFile/
// ReadFile through it, then reconciling the overlay's diff against the
// base at Merge.
type Controller struct {
	mu       sync.Mutex
	vfsStore *vfs.Store
	sessions map[ids.SessionID]*state
}

// NewController constructs a Controller over store.
func NewController(store *vfs.Store) *Controller {
	return &Controller{
		vfsStore: store,
		sessions: make(map[ids.SessionID]*state),
	}
}

// OpenSession allocates a scoped overlay for agentID over workspaceID and
// returns its session_id, per spec.md §4.8's open_session. The base's
// current content hashes are snapshotted so Merge can later tell whether a
// given path changed underneath the session.
func (c *Controller) OpenSession(ctx context.Context, agentID ids.AgentID, workspaceID ids.WorkspaceID, scope vfs.Scope) (ids.SessionID, error) {
	sessionID := ids.NewSessionID()
	c.vfsStore.OpenSession(ctx, workspaceID, sessionID, scope)

	baseHash := make(map[ids.VirtualPath]string)
	for _, f := range c.vfsStore.EffectiveFiles(ctx, workspaceID, ids.SessionID{}, "") {
		baseHash[f.Path] = f.ContentHash
	}

	c.mu.Lock()
	c.sessions[sessionID] = &state{
		info: Info{
			SessionID:   sessionID,
			AgentID:     agentID,
			WorkspaceID: workspaceID,
			Scope:       scope,
			ForkedAt:    time.Now().UTC(),
		},
		baseHash: baseHash,
	}
	c.mu.Unlock()

	return sessionID, nil
}

func (c *Controller) get(sessionID ids.SessionID) (*state, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.sessions[sessionID]
	if !ok {
		return nil, errs.NotFound("session", sessionID.String())
	}
	return st, nil
}

// WriteFile writes content at path within session's overlay, honoring the
// session's scope. It delegates to the VFS (C4); scope violations surface
// as errs.ScopeViolation.
func (c *Controller) WriteFile(ctx context.Context, sessionID ids.SessionID, path ids.VirtualPath, content []byte) error {
	st, err := c.get(sessionID)
	if err != nil {
		return err
	}
	return c.vfsStore.UpdateFile(ctx, st.info.WorkspaceID, vfs.Session(sessionID), path, content)
}

// ReadFile reads path as resolved for session: its overlay if present,
// otherwise the workspace base.
func (c *Controller) ReadFile(ctx context.Context, sessionID ids.SessionID, path ids.VirtualPath) (*vfs.File, error) {
	st, err := c.get(sessionID)
	if err != nil {
		return nil, err
	}
	return c.vfsStore.GetFile(ctx, st.info.WorkspaceID, sessionID, path)
}

// Info returns the open session's identity and scope.
func (c *Controller) Info(sessionID ids.SessionID) (Info, error) {
	st, err := c.get(sessionID)
	if err != nil {
		return Info{}, err
	}
	return st.info, nil
}

// Merge reconciles session's overlay back into its workspace's base, per
// spec.md §4.8's merge operation.
//
// A path the session touched is a conflict exactly when the base's content
// hash for that path has changed since the session forked. Non-conflicting
// writes always apply directly. Conflicting writes are resolved per
// strategy: Auto and PreferSession apply the session's content,
// PreferBase discards it, and Manual leaves the base untouched and
// reports the path in ConflictsUnresolved.
func (c *Controller) Merge(ctx context.Context, sessionID ids.SessionID, strategy MergeStrategy) (MergeReport, error) {
	st, err := c.get(sessionID)
	if err != nil {
		return MergeReport{}, err
	}

	files, tombstones := c.vfsStore.OverlayDiff(ctx, st.info.WorkspaceID, sessionID)

	var report MergeReport

	paths := make([]ids.VirtualPath, 0, len(files)+len(tombstones))
	for p := range files {
		paths = append(paths, p)
	}
	for p := range tombstones {
		if _, written := files[p]; !written {
			paths = append(paths, p)
		}
	}
	sort.Slice(paths, func(i, j int) bool { return paths[i] < paths[j] })

	for _, path := range paths {
		forkHash, existedAtFork := st.baseHash[path]

		currentHash := ""
		currentExists := false
		if base, err := c.vfsStore.GetFile(ctx, st.info.WorkspaceID, ids.SessionID{}, path); err == nil {
			currentHash = base.ContentHash
			currentExists = true
		}

		conflict := currentExists != existedAtFork || currentHash != forkHash

		apply := !conflict
		if conflict {
			switch strategy {
			case MergeAuto, MergePreferSession:
				apply = true
				report.ConflictsResolved++
			case MergePreferBase:
				apply = false
				report.ConflictsResolved++
			case MergeManual:
				report.ConflictsUnresolved = append(report.ConflictsUnresolved, path)
				continue
			default:
				return MergeReport{}, fmt.Errorf("session: merge: unknown strategy %q", strategy)
			}
		}

		if !apply {
			continue
		}

		if f, isWrite := files[path]; isWrite {
			if err := c.vfsStore.UpdateFile(ctx, st.info.WorkspaceID, vfs.Base(), path, f.Content); err != nil {
				return MergeReport{}, fmt.Errorf("session: merge: write %s: %w", path, err)
			}
			report.FilesWritten++
			continue
		}
		// tombstone-only path: delete from base.
		if err := c.vfsStore.DeleteFile(ctx, st.info.WorkspaceID, vfs.Base(), path); err != nil {
			return MergeReport{}, fmt.Errorf("session: merge: delete %s: %w", path, err)
		}
	}

	return report, nil
}

// Close frees sessionID's overlay storage. Uncommitted writes, if any
// remain, are silently discarded, per spec.md §4.8's close operation.
// agentID is accepted for parity with open_session's signature but is not
// otherwise checked: ownership enforcement belongs to the caller
// (typically a Root-level authorization layer), not the overlay itself.
func (c *Controller) Close(ctx context.Context, sessionID ids.SessionID, _ ids.AgentID) error {
	st, err := c.get(sessionID)
	if err != nil {
		return err
	}
	c.vfsStore.CloseSession(ctx, st.info.WorkspaceID, sessionID)

	c.mu.Lock()
	delete(c.sessions, sessionID)
	c.mu.Unlock()
	return nil
}
