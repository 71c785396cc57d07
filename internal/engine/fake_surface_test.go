package engine

import (
	"errors"

	"github.com/rescale/rescale-space/internal/geom"
	"github.com/rescale/rescale-space/internal/models"
	"github.com/rescale/rescale-space/internal/viewport"
)

// fakeSurface records what the engine does to its elements.
type fakeSurface struct {
	elements    []*fakeElement
	transform   viewport.Transform
	presents    int
	failCreate  bool
	failContent map[string]bool
	onTransform func()
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{failContent: make(map[string]bool)}
}

func (s *fakeSurface) NewElement(kind models.Kind) (Element, error) {
	if s.failCreate {
		return nil, errors.New("surface full")
	}
	el := &fakeElement{surface: s, kind: kind}
	s.elements = append(s.elements, el)
	return el, nil
}

func (s *fakeSurface) ApplyTransform(t viewport.Transform) {
	s.transform = t
	if s.onTransform != nil {
		s.onTransform()
	}
}

func (s *fakeSurface) Present() { s.presents++ }

func (s *fakeSurface) live() int {
	n := 0
	for _, el := range s.elements {
		if !el.destroyed {
			n++
		}
	}
	return n
}

type fakeElement struct {
	surface   *fakeSurface
	kind      models.Kind
	bindings  *Bindings
	binds     int
	item      models.Item
	level     int
	bounds    geom.Rect
	shown     bool
	destroyed bool
	contents  int
}

func (el *fakeElement) Bind(b Bindings) error {
	el.bindings = &b
	el.binds++
	return nil
}

func (el *fakeElement) Unbind() { el.bindings = nil }

func (el *fakeElement) SetContent(item models.Item, level int) error {
	if el.surface.failContent[item.Path] {
		return errors.New("cannot draw")
	}
	el.item = item
	el.level = level
	el.contents++
	return nil
}

func (el *fakeElement) SetBounds(r geom.Rect) error {
	el.bounds = r
	return nil
}

func (el *fakeElement) Show()    { el.shown = true }
func (el *fakeElement) Hide()    { el.shown = false }
func (el *fakeElement) Destroy() { el.destroyed = true }
