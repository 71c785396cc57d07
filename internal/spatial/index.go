// Package spatial implements a uniform-grid bin index over item bounding boxes.
//
// Every bin an item's box touches holds the item's path, and a reverse map keeps
// the bins and box recorded per path, so removal and update cost O(occupied bins)
// rather than a rescan. Boxes are closed: an item whose edge lies exactly on a
// bin boundary belongs to both neighbouring bins.
package spatial

import (
	"github.com/rescale/rescale-space/internal/geom"
)

// BinKey identifies one grid cell.
type BinKey struct {
	X int
	Y int
}

type entry struct {
	box  geom.Rect
	keys []BinKey
}

// Index maps bin keys to path sets. The bin size is fixed at construction.
// Index is not safe for concurrent use.
type Index struct {
	binSize float64
	bins    map[BinKey]map[string]struct{}
	entries map[string]entry
}

// NewIndex creates an empty index. binSize must be positive.
func NewIndex(binSize float64) *Index {
	return &Index{
		binSize: binSize,
		bins:    make(map[BinKey]map[string]struct{}),
		entries: make(map[string]entry),
	}
}

// BinSize returns the cell size the index was built with.
func (ix *Index) BinSize() float64 {
	return ix.binSize
}

// KeysFor returns the bin keys covered by box, row by row.
// An empty box covers no bins.
func (ix *Index) KeysFor(box geom.Rect) []BinKey {
	x1, y1, x2, y2, ok := ix.keyRange(box)
	if !ok {
		return nil
	}
	keys := make([]BinKey, 0, (x2-x1+1)*(y2-y1+1))
	for y := y1; y <= y2; y++ {
		for x := x1; x <= x2; x++ {
			keys = append(keys, BinKey{X: x, Y: y})
		}
	}
	return keys
}

func (ix *Index) keyRange(box geom.Rect) (x1, y1, x2, y2 int, ok bool) {
	if box.IsEmpty() {
		return 0, 0, 0, 0, false
	}
	x1 = geom.FloorDiv(box.Left, ix.binSize)
	y1 = geom.FloorDiv(box.Top, ix.binSize)
	x2 = geom.FloorDiv(box.Right, ix.binSize)
	y2 = geom.FloorDiv(box.Bottom, ix.binSize)
	return x1, y1, x2, y2, true
}

// Insert records path under every bin its box covers.
// Inserting a known path replaces its previous box, so repeated calls never duplicate.
func (ix *Index) Insert(path string, box geom.Rect) {
	if _, ok := ix.entries[path]; ok {
		ix.Update(path, box)
		return
	}
	keys := ix.KeysFor(box)
	for _, k := range keys {
		ix.addToBin(k, path)
	}
	ix.entries[path] = entry{box: box, keys: keys}
}

// Remove drops path from every bin it occupies and deletes bins left empty.
// Unknown paths are ignored.
func (ix *Index) Remove(path string) {
	e, ok := ix.entries[path]
	if !ok {
		return
	}
	for _, k := range e.keys {
		ix.removeFromBin(k, path)
	}
	delete(ix.entries, path)
}

// Update moves path to newBox. Bins shared by the old and new box are left
// untouched; only bins entered or vacated change.
func (ix *Index) Update(path string, newBox geom.Rect) {
	old, ok := ix.entries[path]
	if !ok {
		ix.Insert(path, newBox)
		return
	}
	if old.box == newBox {
		return
	}

	newKeys := ix.KeysFor(newBox)
	keep := make(map[BinKey]struct{}, len(newKeys))
	for _, k := range newKeys {
		keep[k] = struct{}{}
	}

	for _, k := range newKeys {
		ix.addToBin(k, path)
	}
	for _, k := range old.keys {
		if _, ok := keep[k]; !ok {
			ix.removeFromBin(k, path)
		}
	}
	ix.entries[path] = entry{box: newBox, keys: newKeys}
}

// Query returns every path whose box overlaps rect, once each.
// Bin candidates are filtered against the recorded boxes, so the result equals a
// linear overlap scan.
func (ix *Index) Query(rect geom.Rect) map[string]struct{} {
	out := make(map[string]struct{})
	ix.Visit(rect, func(path string) {
		out[path] = struct{}{}
	})
	return out
}

// Visit calls fn for each path overlapping rect, exactly once per path.
func (ix *Index) Visit(rect geom.Rect, fn func(path string)) {
	x1, y1, x2, y2, ok := ix.keyRange(rect)
	if !ok {
		return
	}

	// Walk whichever is smaller: the covered key range or the occupied bins.
	span := (x2 - x1 + 1) * (y2 - y1 + 1)
	seen := make(map[string]struct{})
	check := func(bin map[string]struct{}) {
		for path := range bin {
			if _, dup := seen[path]; dup {
				continue
			}
			seen[path] = struct{}{}
			if ix.entries[path].box.Overlaps(rect) {
				fn(path)
			}
		}
	}

	if span <= len(ix.bins) {
		for y := y1; y <= y2; y++ {
			for x := x1; x <= x2; x++ {
				if bin, ok := ix.bins[BinKey{X: x, Y: y}]; ok {
					check(bin)
				}
			}
		}
		return
	}
	for k, bin := range ix.bins {
		if k.X >= x1 && k.X <= x2 && k.Y >= y1 && k.Y <= y2 {
			check(bin)
		}
	}
}

// Box returns the box recorded for path.
func (ix *Index) Box(path string) (geom.Rect, bool) {
	e, ok := ix.entries[path]
	return e.box, ok
}

// BinsOf returns the bin keys path currently occupies.
func (ix *Index) BinsOf(path string) []BinKey {
	e, ok := ix.entries[path]
	if !ok {
		return nil
	}
	return append([]BinKey(nil), e.keys...)
}

// BinLen returns the number of paths in bin k.
func (ix *Index) BinLen(k BinKey) int {
	return len(ix.bins[k])
}

// Contains reports whether path is indexed.
func (ix *Index) Contains(path string) bool {
	_, ok := ix.entries[path]
	return ok
}

// Len returns the number of indexed paths.
func (ix *Index) Len() int {
	return len(ix.entries)
}

// BinCount returns the number of non-empty bins.
func (ix *Index) BinCount() int {
	return len(ix.bins)
}

// Clear empties the index, keeping its bin size.
func (ix *Index) Clear() {
	ix.bins = make(map[BinKey]map[string]struct{})
	ix.entries = make(map[string]entry)
}

func (ix *Index) addToBin(k BinKey, path string) {
	bin, ok := ix.bins[k]
	if !ok {
		bin = make(map[string]struct{})
		ix.bins[k] = bin
	}
	bin[path] = struct{}{}
}

func (ix *Index) removeFromBin(k BinKey, path string) {
	bin, ok := ix.bins[k]
	if !ok {
		return
	}
	delete(bin, path)
	if len(bin) == 0 {
		delete(ix.bins, k)
	}
}
