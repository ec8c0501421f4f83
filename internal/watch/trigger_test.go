package watch

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cogmem/cogmem/internal/ids"
)

type fakeWatcher struct {
	events chan []FileEvent
	errors chan error
	start  func(ctx context.Context, path string) error
}

func (f *fakeWatcher) Start(ctx context.Context, path string) error {
	if f.start != nil {
		return f.start(ctx, path)
	}
	<-ctx.Done()
	return ctx.Err()
}
func (f *fakeWatcher) Stop() error               { return nil }
func (f *fakeWatcher) Events() <-chan []FileEvent { return f.events }
func (f *fakeWatcher) Errors() <-chan error       { return f.errors }

func TestTriggerReingestsChangedFileOnCreateEvent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeFile(t, dir, "main.go", "package main"))

	fw := &fakeWatcher{events: make(chan []FileEvent, 1), errors: make(chan error, 1)}

	var mu sync.Mutex
	var seen []string
	ingest := func(ctx context.Context, workspace ids.WorkspaceID, path ids.VirtualPath, content []byte) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, path.String())
		return nil
	}

	trigger := NewTrigger(fw, ingest, ids.NewWorkspaceID(), dir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = trigger.Run(ctx) }()

	fw.events <- []FileEvent{{Path: "main.go", Operation: OpCreate}}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 1
	}, seenTimeout, seenInterval)

	mu.Lock()
	assert.Equal(t, []string{"main.go"}, seen)
	mu.Unlock()
}

func TestTriggerSkipsDeleteAndConfigEvents(t *testing.T) {
	dir := t.TempDir()
	fw := &fakeWatcher{events: make(chan []FileEvent, 1), errors: make(chan error, 1)}

	called := make(chan struct{}, 1)
	ingest := func(ctx context.Context, workspace ids.WorkspaceID, path ids.VirtualPath, content []byte) error {
		called <- struct{}{}
		return nil
	}

	trigger := NewTrigger(fw, ingest, ids.NewWorkspaceID(), dir)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = trigger.Run(ctx) }()

	fw.events <- []FileEvent{
		{Path: "gone.go", Operation: OpDelete},
		{Path: ".gitignore", Operation: OpGitignoreChange},
		{Path: ".cogmem.yaml", Operation: OpConfigChange},
	}

	select {
	case <-called:
		t.Fatal("ingest should not be called for delete/gitignore/config events")
	case <-afterShortWait():
	}
}
