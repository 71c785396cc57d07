// Package sanitize cleans file names before they are drawn.
//
// File names may contain anything but '/' and NUL. Before a name reaches a
// terminal cell or a label it is cleaned of:
//   - Control characters, including ESC (would drive the terminal)
//   - Line breaks and tabs (would break the one-line layout)
//   - Invisible Unicode characters (zero-width spaces, etc.)
//   - Invalid UTF-8
package sanitize

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Replacement stands in for every control character and invalid byte.
const Replacement = '?'

// invisibleChars are dropped without a trace.
var invisibleChars = map[rune]bool{
	'\u200B': true, // Zero-width space
	'\u200C': true, // Zero-width non-joiner
	'\u200D': true, // Zero-width joiner
	'\uFEFF': true, // Zero-width no-break space (BOM)
	'\u00AD': true, // Soft hyphen
	'\u2060': true, // Word joiner
	'\u180E': true, // Mongolian vowel separator
}

// DisplayName returns name made safe to draw on one line.
func DisplayName(name string) string {
	if name == "" {
		return name
	}
	if isClean(name) {
		return name
	}

	var b strings.Builder
	b.Grow(len(name))
	for i := 0; i < len(name); {
		r, size := utf8.DecodeRuneInString(name[i:])
		i += size
		switch {
		case r == utf8.RuneError && size == 1:
			b.WriteRune(Replacement)
		case invisibleChars[r]:
		case r == '\t' || r == '\n' || r == '\r':
			b.WriteRune(' ')
		case unicode.IsControl(r):
			b.WriteRune(Replacement)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isClean(s string) bool {
	if !utf8.ValidString(s) {
		return false
	}
	for _, r := range s {
		if unicode.IsControl(r) || invisibleChars[r] {
			return false
		}
	}
	return true
}
