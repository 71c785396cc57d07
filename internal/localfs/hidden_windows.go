//go:build windows

package localfs

import (
	"golang.org/x/sys/windows"
)

// hasHiddenAttribute reports whether Explorer would hide path.
func hasHiddenAttribute(path string) bool {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return false
	}
	attrs, err := windows.GetFileAttributes(p)
	if err != nil {
		return false
	}
	return attrs&windows.FILE_ATTRIBUTE_HIDDEN != 0
}
