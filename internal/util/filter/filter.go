// Package filter provides reusable item filtering logic.
// The terminal browser, the desktop browser and the stats sweep share it so a
// pattern means the same thing everywhere.
package filter

import (
	"path/filepath"
	"strings"

	"github.com/rescale/rescale-space/internal/models"
)

// Config holds filter configuration.
type Config struct {
	// Include patterns (glob-style) matched against the name. Empty means include all.
	// Directories are never dropped by Include so the tree stays navigable.
	// Example: []string{"*.dat", "*.txt"}
	Include []string

	// Exclude patterns (glob-style). Takes precedence over Include.
	// Example: []string{"debug*", "*.tmp"}
	Exclude []string

	// Search terms (case-insensitive substring match).
	// An item must match ALL search terms to be included.
	Search []string

	// PathInclude patterns match against the path relative to the browsed root.
	// Supports standard glob patterns plus ** for multi-directory matching.
	// For ** support: "**/results.dat" matches "a/b/c/results.dat"
	PathInclude []string
}

// IsEmpty reports whether the configuration filters nothing.
func (c Config) IsEmpty() bool {
	return len(c.Include) == 0 && len(c.Exclude) == 0 && len(c.Search) == 0 && len(c.PathInclude) == 0
}

// Apply returns the items that pass the filter. root is the directory the
// item paths are made relative to for PathInclude. The input is not modified.
func Apply(items []models.Item, root string, config Config) []models.Item {
	if config.IsEmpty() {
		return items
	}

	filtered := make([]models.Item, 0, len(items))
	for _, item := range items {
		if Match(item, root, config) {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

// Match reports whether a single item passes the filter.
func Match(item models.Item, root string, config Config) bool {
	if len(config.PathInclude) > 0 {
		rel, err := filepath.Rel(root, item.Path)
		if err != nil {
			rel = item.Name
		}
		if !matchesPathFilter(rel, config.PathInclude) {
			return false
		}
	}
	return matchesFilter(item.Name, item.IsDir(), config)
}

// matchesFilter checks if a name matches the filter configuration.
func matchesFilter(name string, isDir bool, config Config) bool {
	// 1. Exclude patterns first (highest priority)
	for _, pattern := range config.Exclude {
		if matched, _ := filepath.Match(pattern, name); matched {
			return false
		}
	}

	// 2. Include patterns
	if len(config.Include) > 0 && !isDir {
		included := false
		for _, pattern := range config.Include {
			if matched, _ := filepath.Match(pattern, name); matched {
				included = true
				break
			}
		}
		if !included {
			return false
		}
	}

	// 3. Search terms
	if len(config.Search) > 0 {
		lowerName := strings.ToLower(name)
		for _, term := range config.Search {
			if !strings.Contains(lowerName, strings.ToLower(term)) {
				return false
			}
		}
	}

	return true
}

// matchesPathFilter checks if a path matches any of the path patterns.
func matchesPathFilter(filePath string, patterns []string) bool {
	filePath = filepath.ToSlash(filePath)

	for _, pattern := range patterns {
		if matchPathPattern(filePath, filepath.ToSlash(pattern)) {
			return true
		}
	}
	return false
}

// matchPathPattern matches a single path against a pattern.
func matchPathPattern(path, pattern string) bool {
	if strings.Contains(pattern, "**") {
		return matchDoubleStarPattern(path, pattern)
	}
	matched, err := filepath.Match(pattern, path)
	if err != nil {
		return false
	}
	return matched
}

// matchDoubleStarPattern handles ** glob patterns for multi-directory matching.
// Examples:
//   - "**/foo.txt" matches "foo.txt", "a/foo.txt", "a/b/c/foo.txt"
//   - "run_1/**" matches "run_1/anything", "run_1/a/b/c/file.txt"
//   - "src/**/*.go" matches "src/main.go", "src/a/b/util.go"
func matchDoubleStarPattern(path, pattern string) bool {
	if pattern == "**" {
		return true
	}

	// Leading **/ matches any prefix
	if strings.HasPrefix(pattern, "**/") {
		suffix := pattern[3:]
		parts := strings.Split(path, "/")
		for i := range parts {
			if matchPathPattern(strings.Join(parts[i:], "/"), suffix) {
				return true
			}
		}
		return false
	}

	// Trailing /** matches any suffix
	if strings.HasSuffix(pattern, "/**") {
		prefix := pattern[:len(pattern)-3]
		parts := strings.Split(path, "/")
		for i := 1; i <= len(parts); i++ {
			if matched, _ := filepath.Match(prefix, strings.Join(parts[:i], "/")); matched {
				return true
			}
		}
		return false
	}

	// ** in the middle
	if idx := strings.Index(pattern, "/**/"); idx != -1 {
		prefix, suffix := pattern[:idx], pattern[idx+4:]
		parts := strings.Split(path, "/")
		for i := 1; i < len(parts); i++ {
			if matched, _ := filepath.Match(prefix, strings.Join(parts[:i], "/")); !matched {
				continue
			}
			for j := i; j < len(parts); j++ {
				if matchPathPattern(strings.Join(parts[j:], "/"), suffix) {
					return true
				}
			}
		}
		return false
	}

	// Fallback: treat ** as * (one segment)
	matched, _ := filepath.Match(strings.ReplaceAll(pattern, "**", "*"), path)
	return matched
}

// ParsePatternList parses a comma-separated list of patterns into a slice.
// Example: "*.dat,*.txt" -> []string{"*.dat", "*.txt"}
func ParsePatternList(patternStr string) []string {
	if patternStr == "" {
		return nil
	}
	parts := strings.Split(patternStr, ",")
	patterns := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			patterns = append(patterns, trimmed)
		}
	}
	return patterns
}
