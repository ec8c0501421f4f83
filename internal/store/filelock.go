package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// snapshotLock provides cross-process locking around an HNSWIndex
// snapshot file, so a CLI re-indexing a workspace and a long-running
// server process never interleave a Save with a Load of the same file.
type snapshotLock struct {
	path string
	f    *flock.Flock
}

func newSnapshotLock(snapshotPath string) *snapshotLock {
	return &snapshotLock{
		path: snapshotPath + ".lock",
		f:    flock.New(snapshotPath + ".lock"),
	}
}

// lockExclusive blocks until an exclusive lock is held, for Save.
func (l *snapshotLock) lockExclusive() (func(), error) {
	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create snapshot lock directory: %w", err)
		}
	}
	if err := l.f.Lock(); err != nil {
		return nil, fmt.Errorf("acquire snapshot lock: %w", err)
	}
	return func() { _ = l.f.Unlock() }, nil
}

// lockShared blocks until a shared (read) lock is held, for Load.
func (l *snapshotLock) lockShared() (func(), error) {
	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create snapshot lock directory: %w", err)
		}
	}
	if err := l.f.RLock(); err != nil {
		return nil, fmt.Errorf("acquire snapshot read lock: %w", err)
	}
	return func() { _ = l.f.Unlock() }, nil
}
