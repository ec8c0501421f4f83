// Package vfs implements the VFS Core (C4): a per-workspace tree of
// virtual files with copy-on-write session overlays. A session overlay
// shadows the workspace base; resolution is a static lookup order (overlay,
// then base, then not-found), never a fan-out across layers.
package vfs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"github.com/cogmem/cogmem/internal/errs"
	"github.com/cogmem/cogmem/internal/ids"
)

// File is one virtual file's content and metadata at a given layer.
type File struct {
	Path         ids.VirtualPath
	Content      []byte
	ContentHash  string
	Size         int
	LastModified time.Time
}

func newFile(path ids.VirtualPath, content []byte) *File {
	return &File{
		Path:         path,
		Content:      content,
		ContentHash:  hashContent(content),
		Size:         len(content),
		LastModified: time.Now(),
	}
}

func hashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Scope restricts which paths a session may mutate (WritablePaths) or
// merely read beyond the workspace's default visibility (ReadOnlyPaths),
// per spec.md §4.3's session discipline.
type Scope struct {
	WritablePaths []ids.VirtualPath
	ReadOnlyPaths []ids.VirtualPath
}

// allowsWrite reports whether path is prefixed by any of scope's
// WritablePaths. An empty WritablePaths set imposes no restriction.
func (sc Scope) allowsWrite(path ids.VirtualPath) bool {
	if len(sc.WritablePaths) == 0 {
		return true
	}
	for _, prefix := range sc.WritablePaths {
		if path.HasPrefix(prefix) {
			return true
		}
	}
	return false
}

// overlay is a session's copy-on-write layer: a set of written files plus a
// tombstone set for deletions, per spec.md §9's "sessions hold their own
// map path -> VirtualFile plus a tombstone set" note.
type overlay struct {
	files      map[ids.VirtualPath]*File
	tombstones map[ids.VirtualPath]bool
	scope      Scope
}

func newOverlay() *overlay {
	return &overlay{
		files:      make(map[ids.VirtualPath]*File),
		tombstones: make(map[ids.VirtualPath]bool),
	}
}

// workspaceTree holds one workspace's base file set plus its live session
// overlays, guarded by a single mutex so all mutating operations against
// the workspace serialize logically.
type workspaceTree struct {
	mu       sync.Mutex
	base     map[ids.VirtualPath]*File
	overlays map[ids.SessionID]*overlay
}

func newWorkspaceTree() *workspaceTree {
	return &workspaceTree{
		base:     make(map[ids.VirtualPath]*File),
		overlays: make(map[ids.SessionID]*overlay),
	}
}

// Store holds every workspace's VFS state in memory. VFS state is never
// reflected into the Storage Facade: session overlays are ephemeral until
// merge, and persisting them would blur the "closing without merging
// discards mutations" invariant of spec.md §3.
type Store struct {
	mu         sync.Mutex
	workspaces map[ids.WorkspaceID]*workspaceTree
}

// NewStore creates an empty VFS Store.
func NewStore() *Store {
	return &Store{workspaces: make(map[ids.WorkspaceID]*workspaceTree)}
}

func (s *Store) tree(workspace ids.WorkspaceID) *workspaceTree {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.workspaces[workspace]
	if !ok {
		t = newWorkspaceTree()
		s.workspaces[workspace] = t
	}
	return t
}

// OpenSession allocates a scoped overlay for session over workspace. It is
// idempotent: reopening an already-open session ID replaces its scope.
func (s *Store) OpenSession(_ context.Context, workspace ids.WorkspaceID, session ids.SessionID, scope Scope) {
	t := s.tree(workspace)
	t.mu.Lock()
	defer t.mu.Unlock()
	ov, ok := t.overlays[session]
	if !ok {
		ov = newOverlay()
		t.overlays[session] = ov
	}
	ov.scope = scope
}

// CloseSession discards session's overlay without affecting the base.
func (s *Store) CloseSession(_ context.Context, workspace ids.WorkspaceID, session ids.SessionID) {
	t := s.tree(workspace)
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.overlays, session)
}

// layerRef selects which layer a call targets: the workspace base, or a
// named session's overlay.
type layerRef struct {
	session   ids.SessionID
	isSession bool
}

// Base targets the workspace's base layer.
func Base() layerRef { return layerRef{} }

// Session targets a session's overlay layer.
func Session(id ids.SessionID) layerRef { return layerRef{session: id, isSession: true} }

// CreateFile creates path at the given layer with content. It fails with
// AlreadyExists if a node is already present at that exact layer.
func (s *Store) CreateFile(_ context.Context, workspace ids.WorkspaceID, layer layerRef, path ids.VirtualPath, content []byte) error {
	t := s.tree(workspace)
	t.mu.Lock()
	defer t.mu.Unlock()

	if layer.isSession {
		ov, err := t.overlayFor(layer.session)
		if err != nil {
			return err
		}
		if !ov.scope.allowsWrite(path) {
			return errs.ScopeViolation(path.String())
		}
		if _, exists := ov.files[path]; exists {
			return errs.AlreadyExists("vfile", path.String())
		}
		ov.files[path] = newFile(path, content)
		delete(ov.tombstones, path)
		return nil
	}

	if _, exists := t.base[path]; exists {
		return errs.AlreadyExists("vfile", path.String())
	}
	t.base[path] = newFile(path, content)
	return nil
}

// UpdateFile writes content at path for the given layer, creating the node
// if absent, and recomputing its hash and last-modified time.
func (s *Store) UpdateFile(_ context.Context, workspace ids.WorkspaceID, layer layerRef, path ids.VirtualPath, content []byte) error {
	t := s.tree(workspace)
	t.mu.Lock()
	defer t.mu.Unlock()

	if layer.isSession {
		ov, err := t.overlayFor(layer.session)
		if err != nil {
			return err
		}
		if !ov.scope.allowsWrite(path) {
			return errs.ScopeViolation(path.String())
		}
		ov.files[path] = newFile(path, content)
		delete(ov.tombstones, path)
		return nil
	}

	t.base[path] = newFile(path, content)
	return nil
}

// GetFile resolves path for session (if non-zero) honoring overlay-over-base
// shadowing: the session overlay wins if it has an entry (including a
// tombstone, which resolves to NotFound even if the base still has the
// file), otherwise the base is consulted.
func (s *Store) GetFile(_ context.Context, workspace ids.WorkspaceID, session ids.SessionID, path ids.VirtualPath) (*File, error) {
	t := s.tree(workspace)
	t.mu.Lock()
	defer t.mu.Unlock()

	if !session.IsZero() {
		if ov, ok := t.overlays[session]; ok {
			if ov.tombstones[path] {
				return nil, errs.NotFound("vfile", path.String())
			}
			if f, ok := ov.files[path]; ok {
				return f, nil
			}
		}
	}

	if f, ok := t.base[path]; ok {
		return f, nil
	}
	return nil, errs.NotFound("vfile", path.String())
}

// DeleteFile records a tombstone for path in the session overlay a
// Session(id) layer names, or removes it directly from the base when the
// layer is Base().
func (s *Store) DeleteFile(_ context.Context, workspace ids.WorkspaceID, layer layerRef, path ids.VirtualPath) error {
	t := s.tree(workspace)
	t.mu.Lock()
	defer t.mu.Unlock()

	if layer.isSession {
		ov, err := t.overlayFor(layer.session)
		if err != nil {
			return err
		}
		if !ov.scope.allowsWrite(path) {
			return errs.ScopeViolation(path.String())
		}
		delete(ov.files, path)
		ov.tombstones[path] = true
		return nil
	}

	delete(t.base, path)
	return nil
}

// List returns the deduplicated, sorted set of paths under prefix visible
// to session (base entries shadowed by session overlay entries and
// tombstones). An empty prefix lists the whole effective tree.
func (s *Store) List(_ context.Context, workspace ids.WorkspaceID, session ids.SessionID, prefix ids.VirtualPath) []ids.VirtualPath {
	t := s.tree(workspace)
	t.mu.Lock()
	defer t.mu.Unlock()

	seen := make(map[ids.VirtualPath]bool)
	var out []ids.VirtualPath

	add := func(p ids.VirtualPath) {
		if !p.HasPrefix(prefix) || seen[p] {
			return
		}
		seen[p] = true
		out = append(out, p)
	}

	var ov *overlay
	if !session.IsZero() {
		ov = t.overlays[session]
	}
	if ov != nil {
		for p := range ov.files {
			add(p)
		}
	}
	for p := range t.base {
		if ov != nil {
			if ov.tombstones[p] {
				continue
			}
			if _, shadowed := ov.files[p]; shadowed {
				continue
			}
		}
		add(p)
	}

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// EffectiveFiles returns the resolved File for every path under prefix
// visible to session, applying the same overlay-over-base shadowing as
// GetFile. It is the read path the Materialization Engine flushes from.
func (s *Store) EffectiveFiles(ctx context.Context, workspace ids.WorkspaceID, session ids.SessionID, prefix ids.VirtualPath) []*File {
	t := s.tree(workspace)
	t.mu.Lock()
	defer t.mu.Unlock()

	seen := make(map[ids.VirtualPath]bool)
	var out []*File

	var ov *overlay
	if !session.IsZero() {
		ov = t.overlays[session]
	}
	if ov != nil {
		for p, f := range ov.files {
			if !p.HasPrefix(prefix) || seen[p] {
				continue
			}
			seen[p] = true
			out = append(out, f)
		}
	}
	for p, f := range t.base {
		if !p.HasPrefix(prefix) || seen[p] {
			continue
		}
		if ov != nil {
			if ov.tombstones[p] {
				continue
			}
			if _, shadowed := ov.files[p]; shadowed {
				continue
			}
		}
		seen[p] = true
		out = append(out, f)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// OverlayDiff returns copies of session's written files and tombstoned
// paths, without consulting the base. The Session Controller uses this to
// compute a merge diff against a fork-time base snapshot; a session with no
// open overlay yields two empty maps.
func (s *Store) OverlayDiff(_ context.Context, workspace ids.WorkspaceID, session ids.SessionID) (map[ids.VirtualPath]*File, map[ids.VirtualPath]bool) {
	t := s.tree(workspace)
	t.mu.Lock()
	defer t.mu.Unlock()

	ov, ok := t.overlays[session]
	if !ok {
		return map[ids.VirtualPath]*File{}, map[ids.VirtualPath]bool{}
	}

	files := make(map[ids.VirtualPath]*File, len(ov.files))
	for p, f := range ov.files {
		files[p] = f
	}
	tombstones := make(map[ids.VirtualPath]bool, len(ov.tombstones))
	for p := range ov.tombstones {
		tombstones[p] = true
	}
	return files, tombstones
}

func (t *workspaceTree) overlayFor(session ids.SessionID) (*overlay, error) {
	ov, ok := t.overlays[session]
	if !ok {
		return nil, errs.NotFound("session", session.String())
	}
	return ov, nil
}
