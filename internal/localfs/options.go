package localfs

// ListOptions configures ListItems.
type ListOptions struct {
	// IncludeHidden includes hidden files (starting with .) in results.
	// Default is false (hidden files excluded).
	IncludeHidden bool

	// SniffContent reads file headers when the extension does not identify the type.
	// Default is false (extension only).
	SniffContent bool
}

// WalkOptions configures Walk.
type WalkOptions struct {
	ListOptions

	// SkipHiddenDirs skips descending into hidden directories entirely.
	// Only meaningful when IncludeHidden is false.
	SkipHiddenDirs bool

	// MaxItems stops the walk after this many items. Zero means no limit.
	MaxItems int
}
