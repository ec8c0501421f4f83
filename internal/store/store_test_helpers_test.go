package store

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// corruptFile flips the last byte of the file at path, invalidating its
// trailing checksum without changing its length.
func corruptFile(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotEmpty(t, data)
	data[len(data)-1] ^= 0xFF
	require.NoError(t, os.WriteFile(path, data, 0o644))
}
