// Package tui is the terminal frontend: a tcell screen acting as the engine's
// drawing surface, plus the interactive browser built on it.
package tui

import (
	"math"
	"sort"

	"github.com/gdamore/tcell/v2"

	"github.com/rescale/rescale-space/internal/engine"
	"github.com/rescale/rescale-space/internal/geom"
	"github.com/rescale/rescale-space/internal/models"
	"github.com/rescale/rescale-space/internal/util/sanitize"
	stringutil "github.com/rescale/rescale-space/internal/util/strings"
	"github.com/rescale/rescale-space/internal/viewport"
)

// Default size of one terminal cell in content pixels at scale 1.
const (
	DefaultCellWidth  = 8
	DefaultCellHeight = 16
)

var (
	styleDefault  = tcell.StyleDefault
	styleDir      = tcell.StyleDefault.Foreground(tcell.ColorBlue).Bold(true)
	styleImage    = tcell.StyleDefault.Foreground(tcell.ColorPurple)
	styleMedia    = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleSelected = tcell.StyleDefault.Reverse(true)
	styleStatus   = tcell.StyleDefault.Background(tcell.ColorNavy).Foreground(tcell.ColorWhite)
)

// Surface draws engine elements as boxes of terminal cells. The bottom row is
// reserved for a status line.
type Surface struct {
	screen       tcell.Screen
	cellW, cellH float64
	transform    viewport.Transform
	elements     map[*Element]struct{}
	selected     string

	// StatusFunc supplies the status line text at every present.
	StatusFunc func() string
}

// NewSurface creates a surface on an initialised screen.
func NewSurface(screen tcell.Screen, cellW, cellH float64) *Surface {
	if cellW <= 0 {
		cellW = DefaultCellWidth
	}
	if cellH <= 0 {
		cellH = DefaultCellHeight
	}
	return &Surface{
		screen:    screen,
		cellW:     cellW,
		cellH:     cellH,
		transform: viewport.Identity,
		elements:  make(map[*Element]struct{}),
	}
}

// PixelSize returns the drawing area in content pixels at scale 1.
func (s *Surface) PixelSize() (float64, float64) {
	cols, rows := s.screen.Size()
	return float64(cols) * s.cellW, float64(max(0, rows-1)) * s.cellH
}

// CellToPixel converts a cell position to the pixel at its centre.
func (s *Surface) CellToPixel(col, row int) (float64, float64) {
	return (float64(col) + 0.5) * s.cellW, (float64(row) + 0.5) * s.cellH
}

// SetSelected highlights the element bound to path.
func (s *Surface) SetSelected(path string) { s.selected = path }

// NewElement implements engine.Surface.
func (s *Surface) NewElement(kind models.Kind) (engine.Element, error) {
	el := &Element{surface: s, kind: kind}
	s.elements[el] = struct{}{}
	return el, nil
}

// ApplyTransform implements engine.Surface.
func (s *Surface) ApplyTransform(t viewport.Transform) {
	s.transform = t
}

// Present implements engine.Surface: it redraws every shown element.
func (s *Surface) Present() {
	s.screen.Clear()
	for _, el := range s.shown() {
		s.draw(el)
	}
	s.drawStatus()
	s.screen.Show()
}

// ElementAt returns the topmost shown element covering the cell.
func (s *Surface) ElementAt(col, row int) (*Element, bool) {
	if _, rows := s.screen.Size(); row >= rows-1 {
		return nil, false
	}
	shown := s.shown()
	for i := len(shown) - 1; i >= 0; i-- {
		c0, r0, c1, r1, ok := s.cells(shown[i].bounds)
		if ok && col >= c0 && col <= c1 && row >= r0 && row <= r1 {
			return shown[i], true
		}
	}
	return nil, false
}

// shown returns visible elements in path order so overlaps draw deterministically.
func (s *Surface) shown() []*Element {
	out := make([]*Element, 0, len(s.elements))
	for el := range s.elements {
		if el.visible {
			out = append(out, el)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].item.Path < out[j].item.Path })
	return out
}

// cells projects a content rect to an inclusive cell range.
func (s *Surface) cells(r geom.Rect) (c0, r0, c1, r1 int, ok bool) {
	px := s.transform.RectToScreen(r)
	c0 = int(math.Floor(px.Left / s.cellW))
	r0 = int(math.Floor(px.Top / s.cellH))
	c1 = max(c0, int(math.Ceil(px.Right/s.cellW))-1)
	r1 = max(r0, int(math.Ceil(px.Bottom/s.cellH))-1)
	cols, rows := s.screen.Size()
	if c1 < 0 || r1 < 0 || c0 >= cols || r0 >= rows-1 {
		return 0, 0, 0, 0, false
	}
	return c0, r0, c1, r1, true
}

func (s *Surface) draw(el *Element) {
	c0, r0, c1, r1, ok := s.cells(el.bounds)
	if !ok {
		return
	}
	style := styleFor(el.item)
	if el.item.Path == s.selected {
		style = styleSelected
	}
	w := c1 - c0 + 1
	h := r1 - r0 + 1

	switch {
	case el.level >= 3 || w < 3:
		glyph := '·'
		if el.item.IsDir() {
			glyph = '■'
		}
		s.put(c0, r0, glyph, style)
	case el.level == 2 || h < 3:
		label := sanitize.DisplayName(el.item.Name)
		if el.item.IsDir() {
			label += "/"
		}
		s.text(c0, r0, stringutil.Truncate(label, w), style)
	default:
		s.box(c0, r0, c1, r1, style)
		s.text(c0+1, r0+1, stringutil.Truncate(sanitize.DisplayName(el.item.Name), w-2), style)
		if h > 3 {
			s.text(c0+1, r0+2, stringutil.Truncate(detail(el.item), w-2), styleDefault.Dim(true))
		}
	}
}

func (s *Surface) box(c0, r0, c1, r1 int, style tcell.Style) {
	for c := c0 + 1; c < c1; c++ {
		s.put(c, r0, tcell.RuneHLine, style)
		s.put(c, r1, tcell.RuneHLine, style)
	}
	for r := r0 + 1; r < r1; r++ {
		s.put(c0, r, tcell.RuneVLine, style)
		s.put(c1, r, tcell.RuneVLine, style)
	}
	s.put(c0, r0, tcell.RuneULCorner, style)
	s.put(c1, r0, tcell.RuneURCorner, style)
	s.put(c0, r1, tcell.RuneLLCorner, style)
	s.put(c1, r1, tcell.RuneLRCorner, style)
}

func (s *Surface) text(col, row int, str string, style tcell.Style) {
	for _, r := range str {
		s.put(col, row, r, style)
		col++
	}
}

// put writes one cell, clipping to the area above the status line.
func (s *Surface) put(col, row int, r rune, style tcell.Style) {
	cols, rows := s.screen.Size()
	if col < 0 || row < 0 || col >= cols || row >= rows-1 {
		return
	}
	s.screen.SetContent(col, row, r, nil, style)
}

func (s *Surface) drawStatus() {
	cols, rows := s.screen.Size()
	if rows == 0 {
		return
	}
	var status string
	if s.StatusFunc != nil {
		status = s.StatusFunc()
	}
	line := []rune(stringutil.Truncate(status, cols))
	for c := 0; c < cols; c++ {
		r := ' '
		if c < len(line) {
			r = line[c]
		}
		s.screen.SetContent(c, rows-1, r, nil, styleStatus)
	}
}

func styleFor(item models.Item) tcell.Style {
	switch {
	case item.IsDir():
		return styleDir
	case item.FileType == "image":
		return styleImage
	case item.FileType == "video" || item.FileType == "audio":
		return styleMedia
	default:
		return styleDefault
	}
}

func detail(item models.Item) string {
	if item.IsDir() {
		return "directory"
	}
	return item.FileType + " " + stringutil.FormatSize(item.SizeBytes)
}

// Element is a terminal region bound to one item at a time.
type Element struct {
	surface  *Surface
	kind     models.Kind
	bindings *engine.Bindings
	item     models.Item
	level    int
	bounds   geom.Rect
	visible  bool
}

// Bind implements engine.Element.
func (el *Element) Bind(b engine.Bindings) error {
	el.bindings = &b
	return nil
}

// Unbind implements engine.Element.
func (el *Element) Unbind() { el.bindings = nil }

// SetContent implements engine.Element.
func (el *Element) SetContent(item models.Item, level int) error {
	el.item = item
	el.level = level
	return nil
}

// SetBounds implements engine.Element.
func (el *Element) SetBounds(r geom.Rect) error {
	el.bounds = r
	return nil
}

// Show implements engine.Element.
func (el *Element) Show() { el.visible = true }

// Hide implements engine.Element.
func (el *Element) Hide() { el.visible = false }

// Destroy implements engine.Element.
func (el *Element) Destroy() {
	el.visible = false
	el.bindings = nil
	delete(el.surface.elements, el)
}

// Item returns the record the element last drew.
func (el *Element) Item() models.Item { return el.item }

// Click fires the element's click binding, if bound.
func (el *Element) Click() { el.fire(func(b *engine.Bindings) func() { return b.OnClick }) }

// DoubleClick fires the element's double-click binding, if bound.
func (el *Element) DoubleClick() {
	el.fire(func(b *engine.Bindings) func() { return b.OnDoubleClick })
}

// ContextMenu fires the element's context-menu binding, if bound.
func (el *Element) ContextMenu() {
	el.fire(func(b *engine.Bindings) func() { return b.OnContextMenu })
}

func (el *Element) fire(pick func(*engine.Bindings) func()) {
	if el.bindings == nil {
		return
	}
	if fn := pick(el.bindings); fn != nil {
		fn()
	}
}
