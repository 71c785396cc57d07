// Package geom provides the content-space primitives shared by the spatial
// index, the viewport model and the renderer.
package geom

import "math"

// Point is a position in content space.
type Point struct {
	X float64
	Y float64
}

// Rect is an axis-aligned rectangle in content space.
// Edges are inclusive: two rectangles that touch overlap.
type Rect struct {
	Left   float64
	Top    float64
	Right  float64
	Bottom float64
}

// NewRect builds a rect from its top-left corner and size.
func NewRect(x, y, w, h float64) Rect {
	return Rect{Left: x, Top: y, Right: x + w, Bottom: y + h}
}

// Width returns the horizontal extent.
func (r Rect) Width() float64 { return r.Right - r.Left }

// Height returns the vertical extent.
func (r Rect) Height() float64 { return r.Bottom - r.Top }

// IsEmpty reports whether the rect covers no area, or carries NaN edges.
func (r Rect) IsEmpty() bool {
	return !(r.Right > r.Left) || !(r.Bottom > r.Top)
}

// Center returns the midpoint of the rect.
func (r Rect) Center() Point {
	return Point{X: (r.Left + r.Right) / 2, Y: (r.Top + r.Bottom) / 2}
}

// Overlaps reports whether r and o share at least one point.
// An empty rect overlaps nothing.
func (r Rect) Overlaps(o Rect) bool {
	if r.IsEmpty() || o.IsEmpty() {
		return false
	}
	return r.Left <= o.Right && o.Left <= r.Right &&
		r.Top <= o.Bottom && o.Top <= r.Bottom
}

// Expand grows the rect by d on all four sides.
func (r Rect) Expand(d float64) Rect {
	return Rect{Left: r.Left - d, Top: r.Top - d, Right: r.Right + d, Bottom: r.Bottom + d}
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// FloorDiv returns floor(v/step) as an int. step must be positive.
func FloorDiv(v, step float64) int {
	return int(math.Floor(v / step))
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Left && p.X <= r.Right && p.Y >= r.Top && p.Y <= r.Bottom
}
