package ids

import (
	"fmt"
	"path"
	"strings"
)

// VirtualPath is a normalized, POSIX-style path relative to a workspace
// root. It never contains ".." segments, null bytes, or a leading "/".
type VirtualPath string

// NewVirtualPath validates and normalizes raw into a VirtualPath.
func NewVirtualPath(raw string) (VirtualPath, error) {
	if strings.ContainsRune(raw, 0) {
		return "", fmt.Errorf("virtual path contains a null byte")
	}
	clean := path.Clean(strings.TrimLeft(raw, "/"))
	if clean == "." || clean == "" {
		return "", fmt.Errorf("virtual path is empty")
	}
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("virtual path %q escapes the workspace root", raw)
	}
	return VirtualPath(clean), nil
}

// MustVirtualPath is NewVirtualPath for call sites (tests, literals) that
// already know the path is valid.
func MustVirtualPath(raw string) VirtualPath {
	p, err := NewVirtualPath(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the normalized path.
func (p VirtualPath) String() string { return string(p) }

// HasPrefix reports whether p is prefix itself or lies under the prefix
// directory. Used for scope-enforcement checks over writable_paths.
func (p VirtualPath) HasPrefix(prefix VirtualPath) bool {
	ps, pre := string(p), string(prefix)
	if pre == "" || pre == "." {
		return true
	}
	return ps == pre || strings.HasPrefix(ps, pre+"/")
}
