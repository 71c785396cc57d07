package gui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/rescale/rescale-space/internal/engine"
	"github.com/rescale/rescale-space/internal/geom"
	"github.com/rescale/rescale-space/internal/models"
	"github.com/rescale/rescale-space/internal/util/sanitize"
	stringutil "github.com/rescale/rescale-space/internal/util/strings"
	"github.com/rescale/rescale-space/internal/viewport"
)

// Surface hosts engine elements as tiles in a container without layout.
// Present moves and sizes every shown tile from the current transform.
type Surface struct {
	layer     *fyne.Container
	post      func(func())
	transform viewport.Transform
	tiles     map[*tile]struct{}
	selected  string
}

// NewSurface creates an empty surface. Tile input is handed to post so the
// engine only ever runs on its loop.
func NewSurface(post func(func())) *Surface {
	if post == nil {
		post = func(fn func()) { fn() }
	}
	return &Surface{
		layer:     container.NewWithoutLayout(),
		post:      post,
		transform: viewport.Identity,
		tiles:     make(map[*tile]struct{}),
	}
}

// Layer is the canvas object holding every tile.
func (s *Surface) Layer() *fyne.Container { return s.layer }

// SetSelected outlines the tile bound to path at the next present.
func (s *Surface) SetSelected(path string) { s.selected = path }

// NewElement implements engine.Surface.
func (s *Surface) NewElement(kind models.Kind) (engine.Element, error) {
	t := &tile{surface: s, kind: kind}
	t.ExtendBaseWidget(t)
	t.BaseWidget.Hide()
	s.tiles[t] = struct{}{}
	s.layer.Add(t)
	return t, nil
}

// ApplyTransform implements engine.Surface.
func (s *Surface) ApplyTransform(t viewport.Transform) { s.transform = t }

// Present implements engine.Surface.
func (s *Surface) Present() {
	for t := range s.tiles {
		if !t.shown {
			continue
		}
		r := s.transform.RectToScreen(t.bounds)
		t.Move(fyne.NewPos(float32(r.Left), float32(r.Top)))
		t.Resize(fyne.NewSize(float32(r.Width()), float32(r.Height())))
		t.selected = t.item.Path == s.selected
		t.Refresh()
	}
	s.layer.Refresh()
}

// tile is one element: a rounded box with an icon and a label. What it shows
// depends on the detail level.
type tile struct {
	widget.BaseWidget
	surface  *Surface
	kind     models.Kind
	bindings *engine.Bindings
	item     models.Item
	level    int
	bounds   geom.Rect
	shown    bool
	selected bool
}

func (t *tile) Bind(b engine.Bindings) error {
	t.bindings = &b
	return nil
}

func (t *tile) Unbind() { t.bindings = nil }

func (t *tile) SetContent(item models.Item, level int) error {
	t.item = item
	t.level = level
	return nil
}

func (t *tile) SetBounds(r geom.Rect) error {
	t.bounds = r
	return nil
}

func (t *tile) Show() {
	t.shown = true
	t.BaseWidget.Show()
}

func (t *tile) Hide() {
	t.shown = false
	t.BaseWidget.Hide()
}

func (t *tile) Destroy() {
	t.Hide()
	t.bindings = nil
	delete(t.surface.tiles, t)
	t.surface.layer.Remove(t)
}

// Tapped implements fyne.Tappable.
func (t *tile) Tapped(*fyne.PointEvent) {
	t.fire(func(b *engine.Bindings) func() { return b.OnClick })
}

// DoubleTapped implements fyne.DoubleTappable.
func (t *tile) DoubleTapped(*fyne.PointEvent) {
	t.fire(func(b *engine.Bindings) func() { return b.OnDoubleClick })
}

// TappedSecondary implements fyne.SecondaryTappable.
func (t *tile) TappedSecondary(*fyne.PointEvent) {
	t.fire(func(b *engine.Bindings) func() { return b.OnContextMenu })
}

func (t *tile) fire(pick func(*engine.Bindings) func()) {
	t.surface.post(func() {
		if t.bindings == nil {
			return
		}
		if fn := pick(t.bindings); fn != nil {
			fn()
		}
	})
}

func (t *tile) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(colorFileTile)
	bg.CornerRadius = 4
	name := canvas.NewText("", theme.Color(theme.ColorNameForeground))
	name.Alignment = fyne.TextAlignCenter
	detail := canvas.NewText("", theme.Color(theme.ColorNamePlaceHolder))
	detail.Alignment = fyne.TextAlignCenter
	detail.TextSize = theme.CaptionTextSize()
	r := &tileRenderer{tile: t, bg: bg, icon: widget.NewIcon(nil), name: name, detail: detail}
	r.Refresh()
	return r
}

type tileRenderer struct {
	tile   *tile
	bg     *canvas.Rectangle
	icon   *widget.Icon
	name   *canvas.Text
	detail *canvas.Text
}

func (r *tileRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))

	level := r.tile.level
	r.icon.Hidden = level != 1
	r.name.Hidden = level > 2
	r.detail.Hidden = level != 1

	lineH := r.name.MinSize().Height
	switch level {
	case 1:
		iconSide := max(0, min(size.Width, size.Height-2*lineH)*0.6)
		r.icon.Resize(fyne.NewSquareSize(iconSide))
		r.icon.Move(fyne.NewPos((size.Width-iconSide)/2, (size.Height-2*lineH-iconSide)/2))
		r.name.Resize(fyne.NewSize(size.Width, lineH))
		r.name.Move(fyne.NewPos(0, size.Height-2*lineH))
		r.detail.Resize(fyne.NewSize(size.Width, lineH))
		r.detail.Move(fyne.NewPos(0, size.Height-lineH))
	case 2:
		r.name.Resize(fyne.NewSize(size.Width, lineH))
		r.name.Move(fyne.NewPos(0, (size.Height-lineH)/2))
	}
}

func (r *tileRenderer) MinSize() fyne.Size { return fyne.NewSize(1, 1) }

func (r *tileRenderer) Refresh() {
	t := r.tile
	r.bg.FillColor = tileFill(t.item)
	if t.selected {
		r.bg.StrokeColor = colorSelected
		r.bg.StrokeWidth = 2
	} else {
		r.bg.StrokeWidth = 0
	}

	if t.item.IsDir() {
		r.icon.SetResource(theme.FolderIcon())
	} else {
		r.icon.SetResource(theme.FileIcon())
	}
	// roughly one character per 0.6 em
	chars := int(t.Size().Width / (r.name.TextSize * 0.6))
	r.name.Text = stringutil.Truncate(sanitize.DisplayName(t.item.Name), chars)
	r.detail.Text = stringutil.Truncate(detailText(t.item), chars)

	r.Layout(t.Size())
	r.bg.Refresh()
	r.name.Refresh()
	r.detail.Refresh()
}

func (r *tileRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.bg, r.icon, r.name, r.detail}
}

func (r *tileRenderer) Destroy() {}

func detailText(item models.Item) string {
	if item.IsDir() {
		return "folder"
	}
	return stringutil.FormatSize(item.SizeBytes)
}
