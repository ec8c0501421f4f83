package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHybridWatcherDetectsFileCreation(t *testing.T) {
	tempDir := t.TempDir()
	opts := Options{DebounceWindow: 20 * time.Millisecond, EventBufferSize: 100}.WithDefaults()

	w, err := NewHybridWatcher(opts)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan struct{})
	go func() {
		close(started)
		_ = w.Start(ctx, tempDir)
	}()
	<-started
	time.Sleep(200 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "test.go"), []byte("package main"), 0o644))

	select {
	case events := <-w.Events():
		require.NotEmpty(t, events)
	case err := <-w.Errors():
		t.Fatalf("got error: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout - no events received")
	}

	require.NoError(t, w.Stop())
}

func TestHybridWatcherIgnoresGitignoredPaths(t *testing.T) {
	tempDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, ".gitignore"), []byte("*.log\n"), 0o644))

	opts := Options{DebounceWindow: 20 * time.Millisecond, EventBufferSize: 100}.WithDefaults()
	w, err := NewHybridWatcher(opts)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan struct{})
	go func() {
		close(started)
		_ = w.Start(ctx, tempDir)
	}()
	<-started
	time.Sleep(200 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "noisy.log"), []byte("log line"), 0o644))

	select {
	case events := <-w.Events():
		t.Fatalf("expected ignored file to produce no events, got %v", events)
	case <-time.After(500 * time.Millisecond):
	}

	require.NoError(t, w.Stop())
}
