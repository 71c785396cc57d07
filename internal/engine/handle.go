package engine

import (
	"github.com/rescale/rescale-space/internal/geom"
	"github.com/rescale/rescale-space/internal/models"
	"github.com/rescale/rescale-space/internal/viewport"
)

// Bindings are the interaction callbacks attached to an element.
type Bindings struct {
	OnClick       func()
	OnDoubleClick func()
	OnContextMenu func()
}

// Element is one drawable on a host surface: a canvas object, a terminal
// region. Elements start hidden. Methods are called on the engine goroutine.
type Element interface {
	// Bind attaches interaction callbacks; Unbind must detach every one of them.
	Bind(b Bindings) error
	Unbind()
	// SetContent draws item at the given detail level (1 is the finest).
	SetContent(item models.Item, level int) error
	// SetBounds places the element at a content-space rect.
	SetBounds(r geom.Rect) error
	Show()
	Hide()
	// Destroy frees the element for good.
	Destroy()
}

// Surface is the host drawing area an engine renders into.
type Surface interface {
	NewElement(kind models.Kind) (Element, error)
	// ApplyTransform is called at the start of every pass with the current transform.
	ApplyTransform(t viewport.Transform)
	// Present is called when a pass completes.
	Present()
}

// Handle is a reusable renderable bound to at most one item path.
// A handle is owned either by its kind's pool (idle) or by the visible set.
type Handle struct {
	Kind    models.Kind
	Path    string // empty while idle
	Level   int    // detail level last drawn, 0 while idle
	Bound   bool   // interaction callbacks attached
	Element Element

	id     uint64
	item   models.Item // record last drawn
	bounds geom.Rect   // bounds last applied
}

// ID returns a number unique to this handle for the life of its engine.
func (h *Handle) ID() uint64 {
	return h.id
}

// reset strips everything enter attached, in reverse.
func (h *Handle) reset() error {
	if h.Bound {
		h.Element.Unbind()
		h.Bound = false
	}
	h.Element.Hide()
	h.Path = ""
	h.Level = 0
	h.item = models.Item{}
	h.bounds = geom.Rect{}
	return nil
}
