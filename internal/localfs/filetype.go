package localfs

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
)

// sniffLen is how much of a file header the matchers need.
const sniffLen = 262

// DetectType classifies a file as a MIME top-level type ("image", "video",
// "audio", "application", "font") when the extension or, with sniff, the
// header identifies it. Otherwise it returns the lowercase extension, or
// "file" when there is none.
func DetectType(path string, sniff bool) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext != "" {
		if t := filetype.GetType(ext); t != types.Unknown {
			return t.MIME.Type
		}
	}
	if sniff {
		if t, ok := sniffType(path); ok {
			return t.MIME.Type
		}
	}
	if ext != "" {
		return ext
	}
	return "file"
}

func sniffType(path string) (types.Type, bool) {
	f, err := os.Open(path)
	if err != nil {
		return types.Unknown, false
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		return types.Unknown, false
	}
	t, err := filetype.Match(head[:n])
	if err != nil || t == filetype.Unknown {
		return types.Unknown, false
	}
	return t, true
}
