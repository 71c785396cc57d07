// Package layout positions items in content space. The engine never lays
// items out itself; the browser shells call Grid before SetItems.
package layout

import (
	"math"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rescale/rescale-space/internal/geom"
	"github.com/rescale/rescale-space/internal/models"
)

// SortBy selects the ordering of a grid.
type SortBy string

const (
	SortName SortBy = "name"
	SortSize SortBy = "size"
	SortDate SortBy = "date"
	SortType SortBy = "type"
)

// Options controls a grid layout.
type Options struct {
	// Columns fixes the column count. Zero picks a square-ish grid.
	Columns    int
	ItemWidth  float64
	ItemHeight float64
	Margin     float64
	SortBy     SortBy
	Descending bool
}

// ColumnsFor returns how many item columns fit in width pixels at scale 1.
func ColumnsFor(width, itemWidth, margin float64) int {
	step := itemWidth + margin
	if step <= 0 {
		return 1
	}
	return max(1, int(math.Floor((width-margin)/step)))
}

// Grid returns sorted copies of items positioned on a regular grid.
// Directories always come first.
func Grid(items []models.Item, opts Options) []models.Item {
	out := make([]models.Item, len(items))
	copy(out, items)
	Sort(out, opts.SortBy, opts.Descending)

	cols := opts.Columns
	if cols <= 0 {
		cols = max(1, int(math.Ceil(math.Sqrt(float64(len(out))))))
	}
	for i := range out {
		out[i].Position = Slot(i, cols, opts)
	}
	return out
}

// Slot returns the position of the i-th cell of a grid with cols columns.
func Slot(i, cols int, opts Options) geom.Point {
	cols = max(1, cols)
	col, row := i%cols, i/cols
	return geom.Point{
		X: opts.Margin + float64(col)*(opts.ItemWidth+opts.Margin),
		Y: opts.Margin + float64(row)*(opts.ItemHeight+opts.Margin),
	}
}

// Extent returns the rect covering every item box, or an empty rect.
func Extent(items []models.Item, itemWidth, itemHeight float64) geom.Rect {
	if len(items) == 0 {
		return geom.Rect{}
	}
	r := items[0].Bounds(itemWidth, itemHeight)
	for _, it := range items[1:] {
		b := it.Bounds(itemWidth, itemHeight)
		r.Left = math.Min(r.Left, b.Left)
		r.Top = math.Min(r.Top, b.Top)
		r.Right = math.Max(r.Right, b.Right)
		r.Bottom = math.Max(r.Bottom, b.Bottom)
	}
	return r
}

// Sort orders items in place: directories first, then by the given key with
// natural name order as the tie-breaker.
func Sort(items []models.Item, by SortBy, descending bool) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.IsDir() != b.IsDir() {
			return a.IsDir()
		}
		if descending {
			a, b = b, a
		}

		nameA, nameB := strings.ToLower(a.Name), strings.ToLower(b.Name)
		switch by {
		case SortSize:
			if a.SizeBytes != b.SizeBytes {
				return a.SizeBytes < b.SizeBytes
			}
		case SortDate:
			if !a.ModifiedAt.Equal(b.ModifiedAt) {
				return a.ModifiedAt.Before(b.ModifiedAt)
			}
		case SortType:
			if extA, extB := filepath.Ext(nameA), filepath.Ext(nameB); extA != extB {
				return extA < extB
			}
		}
		if nameA != nameB {
			return naturalLess(nameA, nameB)
		}
		return a.Path < b.Path
	})
}

// naturalLess compares strings with embedded numbers by value, so
// "file2" < "file10". Equal values with more leading zeros sort later.
func naturalLess(a, b string) bool {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if isDigit(a[i]) && isDigit(b[j]) {
			startA, valA, endA := digitRun(a, i)
			startB, valB, endB := digitRun(b, j)
			i, j = endA, endB

			if len(valA) != len(valB) {
				return len(valA) < len(valB)
			}
			if valA != valB {
				return valA < valB
			}
			if runA, runB := endA-startA, endB-startB; runA != runB {
				return runA < runB
			}
			continue
		}
		if a[i] != b[j] {
			return a[i] < b[j]
		}
		i++
		j++
	}
	return len(a)-i < len(b)-j
}

// digitRun scans the digits starting at s[i] and returns the run start, its
// value without leading zeros, and the index after the run.
func digitRun(s string, i int) (start int, value string, end int) {
	start = i
	for i < len(s) && s[i] == '0' {
		i++
	}
	v := i
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	return start, s[v:i], i
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
