package gui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/rescale/rescale-space/internal/constants"
)

// view is the pannable area behind the tiles. Dragging pans, the wheel zooms
// around the pointer and a tap on empty space clears the selection. Every
// callback is already posted to the engine loop.
type view struct {
	widget.BaseWidget
	surface *Surface
	bg      *canvas.Rectangle

	OnPan    func(dx, dy float64)
	OnZoom   func(factor, x, y float64)
	OnResize func(w, h float64)
	OnTap    func()
}

func newView(s *Surface) *view {
	v := &view{surface: s, bg: canvas.NewRectangle(theme.Color(theme.ColorNameBackground))}
	v.ExtendBaseWidget(v)
	return v
}

func (v *view) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(container.NewStack(v.bg, v.surface.Layer()))
}

func (v *view) MinSize() fyne.Size { return fyne.NewSize(200, 150) }

// Resize reports the new container size to the engine.
func (v *view) Resize(size fyne.Size) {
	if size == v.Size() {
		return
	}
	v.BaseWidget.Resize(size)
	if v.OnResize != nil {
		w, h := float64(size.Width), float64(size.Height)
		v.surface.post(func() { v.OnResize(w, h) })
	}
}

// Scrolled implements fyne.Scrollable.
func (v *view) Scrolled(ev *fyne.ScrollEvent) {
	if v.OnZoom == nil || ev.Scrolled.DY == 0 {
		return
	}
	factor := constants.ZoomStep
	if ev.Scrolled.DY < 0 {
		factor = 1 / constants.ZoomStep
	}
	x, y := float64(ev.Position.X), float64(ev.Position.Y)
	v.surface.post(func() { v.OnZoom(factor, x, y) })
}

// Dragged implements fyne.Draggable.
func (v *view) Dragged(ev *fyne.DragEvent) {
	if v.OnPan == nil {
		return
	}
	dx, dy := float64(ev.Dragged.DX), float64(ev.Dragged.DY)
	v.surface.post(func() { v.OnPan(dx, dy) })
}

// DragEnd implements fyne.Draggable.
func (v *view) DragEnd() {}

// Tapped implements fyne.Tappable.
func (v *view) Tapped(*fyne.PointEvent) {
	if v.OnTap != nil {
		v.surface.post(v.OnTap)
	}
}
