// Package viewport holds the pan/zoom transform of a content surface and
// derives the content-space rectangle that is currently visible.
package viewport

import (
	"math"

	"github.com/rescale/rescale-space/internal/geom"
)

// Transform maps content space to screen pixels: screen = content*Scale + Translate.
type Transform struct {
	Scale      float64 `json:"scale"`
	TranslateX float64 `json:"translateX"`
	TranslateY float64 `json:"translateY"`
}

// Identity is the unscaled, untranslated transform.
var Identity = Transform{Scale: 1}

// ToScreen converts a content-space point to screen pixels.
func (t Transform) ToScreen(p geom.Point) geom.Point {
	return geom.Point{X: p.X*t.Scale + t.TranslateX, Y: p.Y*t.Scale + t.TranslateY}
}

// ToContent converts a screen pixel position to content space.
func (t Transform) ToContent(x, y float64) geom.Point {
	return geom.Point{X: (x - t.TranslateX) / t.Scale, Y: (y - t.TranslateY) / t.Scale}
}

// RectToScreen converts a content-space rect to screen pixels.
func (t Transform) RectToScreen(r geom.Rect) geom.Rect {
	tl := t.ToScreen(geom.Point{X: r.Left, Y: r.Top})
	br := t.ToScreen(geom.Point{X: r.Right, Y: r.Bottom})
	return geom.Rect{Left: tl.X, Top: tl.Y, Right: br.X, Bottom: br.Y}
}

// TransformPatch carries optional transform fields; nil fields are left unchanged.
type TransformPatch struct {
	Scale      *float64
	TranslateX *float64
	TranslateY *float64
}

// Float returns a pointer to v, for building patches inline.
func Float(v float64) *float64 { return &v }

// Model is the viewport of one engine: container size, transform and render margin.
type Model struct {
	width, height float64
	margin        float64 // screen pixels
	minScale      float64
	maxScale      float64
	t             Transform
}

// NewModel creates a model with the identity transform.
func NewModel(width, height, margin, minScale, maxScale float64) *Model {
	m := &Model{
		margin:   margin,
		minScale: minScale,
		maxScale: maxScale,
		t:        Identity,
	}
	m.Resize(width, height)
	m.t.Scale = m.clamp(1)
	return m
}

// Transform returns the current transform.
func (m *Model) Transform() Transform {
	return m.t
}

// SetTransform applies the provided fields and reports whether anything changed.
// Non-finite values are ignored; scale is clamped to the configured range.
func (m *Model) SetTransform(p TransformPatch) bool {
	next := m.t
	if p.Scale != nil && finite(*p.Scale) && *p.Scale > 0 {
		next.Scale = m.clamp(*p.Scale)
	}
	if p.TranslateX != nil && finite(*p.TranslateX) {
		next.TranslateX = *p.TranslateX
	}
	if p.TranslateY != nil && finite(*p.TranslateY) {
		next.TranslateY = *p.TranslateY
	}
	if next == m.t {
		return false
	}
	m.t = next
	return true
}

// Resize sets the container size in pixels. Negative sizes are treated as zero.
func (m *Model) Resize(width, height float64) bool {
	width = math.Max(0, width)
	height = math.Max(0, height)
	if width == m.width && height == m.height {
		return false
	}
	m.width, m.height = width, height
	return true
}

// Size returns the container size in pixels.
func (m *Model) Size() (width, height float64) {
	return m.width, m.height
}

// Margin returns the render margin in screen pixels.
func (m *Model) Margin() float64 {
	return m.margin
}

// VisibleRect returns the content-space rectangle covered by the container.
// A zero-sized container yields an empty rect.
func (m *Model) VisibleRect() geom.Rect {
	s := m.t.Scale
	return geom.NewRect(-m.t.TranslateX/s, -m.t.TranslateY/s, m.width/s, m.height/s)
}

// QueryRect returns the visible rect grown by the render margin converted to
// content units.
func (m *Model) QueryRect() geom.Rect {
	r := m.VisibleRect()
	if r.IsEmpty() {
		return r
	}
	return r.Expand(m.margin / m.t.Scale)
}

// ZoomAt multiplies the scale by factor while keeping the content point under
// the screen anchor (ax, ay) fixed.
func (m *Model) ZoomAt(factor, ax, ay float64) bool {
	if !finite(factor) || factor <= 0 {
		return false
	}
	anchor := m.t.ToContent(ax, ay)
	s := m.clamp(m.t.Scale * factor)
	return m.SetTransform(TransformPatch{
		Scale:      &s,
		TranslateX: Float(ax - anchor.X*s),
		TranslateY: Float(ay - anchor.Y*s),
	})
}

// PanBy shifts the translation by (dx, dy) screen pixels.
func (m *Model) PanBy(dx, dy float64) bool {
	return m.SetTransform(TransformPatch{
		TranslateX: Float(m.t.TranslateX + dx),
		TranslateY: Float(m.t.TranslateY + dy),
	})
}

// FocusTransform returns the transform that centers content point c in the
// container at the given scale (clamped).
func (m *Model) FocusTransform(c geom.Point, scale float64) Transform {
	if !finite(scale) || scale <= 0 {
		scale = m.t.Scale
	}
	s := m.clamp(scale)
	return Transform{
		Scale:      s,
		TranslateX: m.width/2 - c.X*s,
		TranslateY: m.height/2 - c.Y*s,
	}
}

func (m *Model) clamp(s float64) float64 {
	if m.minScale > 0 && s < m.minScale {
		return m.minScale
	}
	if m.maxScale > 0 && s > m.maxScale {
		return m.maxScale
	}
	return s
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
