package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const (
	seenTimeout  = 2 * time.Second
	seenInterval = 10 * time.Millisecond
)

func writeFile(t *testing.T, dir, name, content string) error {
	t.Helper()
	return os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644)
}

func afterShortWait() <-chan time.Time {
	return time.After(200 * time.Millisecond)
}
