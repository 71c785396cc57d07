package models

import (
	"fmt"
	"math"
	"time"

	"github.com/rescale/rescale-space/internal/geom"
)

// Kind is the closed set of item kinds the engine can render.
type Kind uint8

const (
	KindFile Kind = iota + 1
	KindDirectory
)

// Kinds lists every valid kind, in pool creation order.
var Kinds = []Kind{KindDirectory, KindFile}

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	default:
		return "unknown"
	}
}

// Valid reports whether k is one of the defined kinds.
func (k Kind) Valid() bool {
	return k == KindFile || k == KindDirectory
}

// Item is a positioned entry of the browsed space.
// Width and height are not per item; they come from the engine's configured item size.
type Item struct {
	Path       string     `json:"path"`
	Name       string     `json:"name"`
	Kind       Kind       `json:"kind"`
	FileType   string     `json:"fileType,omitempty"` // extension-derived type, files only
	SizeBytes  int64      `json:"sizeBytes"`
	ModifiedAt time.Time  `json:"modifiedAt"`
	Position   geom.Point `json:"position"`
}

// IsDir reports whether the item is a directory.
func (it Item) IsDir() bool {
	return it.Kind == KindDirectory
}

// Bounds returns the item's bounding box for the given item size.
func (it Item) Bounds(width, height float64) geom.Rect {
	return geom.NewRect(it.Position.X, it.Position.Y, width, height)
}

// ValidationError describes a malformed item record rejected at the API boundary.
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid item: %s", e.Reason)
	}
	return fmt.Sprintf("invalid item %q: %s", e.Path, e.Reason)
}

// Validate checks the record contract: non-empty path, known kind, finite position.
func (it Item) Validate() error {
	if it.Path == "" {
		return &ValidationError{Reason: "path is required"}
	}
	if !it.Kind.Valid() {
		return &ValidationError{Path: it.Path, Reason: fmt.Sprintf("unknown kind %d", it.Kind)}
	}
	if !finite(it.Position.X) || !finite(it.Position.Y) {
		return &ValidationError{Path: it.Path, Reason: "position must be finite"}
	}
	if it.SizeBytes < 0 {
		return &ValidationError{Path: it.Path, Reason: "size must not be negative"}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
