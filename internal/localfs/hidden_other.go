//go:build !windows

package localfs

// hasHiddenAttribute is always false outside Windows; a leading dot is the only marker.
func hasHiddenAttribute(string) bool { return false }
