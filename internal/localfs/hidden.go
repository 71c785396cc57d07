// Package localfs turns the local filesystem into positioned-item records:
// directory listing, recursive walks, file type detection and change watching.
package localfs

import (
	"path/filepath"
	"strings"
)

// IsHidden returns true if the file or directory at the given path is hidden.
// On Unix systems, this checks if the base name starts with a dot; on Windows
// the hidden attribute counts too.
func IsHidden(path string) bool {
	return IsHiddenName(filepath.Base(path)) || hasHiddenAttribute(path)
}

// IsHiddenName returns true if the given filename (not path) represents a hidden file.
// Special entries "." and ".." are not considered hidden.
func IsHiddenName(name string) bool {
	if name == "." || name == ".." {
		return false
	}
	return strings.HasPrefix(name, ".")
}
