// Package browse connects one directory on disk to a viewport engine: it lists
// and lays out the entries, then keeps the engine in sync with the watcher.
// Both frontends drive the engine through a Session.
package browse

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rescale/rescale-space/internal/engine"
	"github.com/rescale/rescale-space/internal/geom"
	"github.com/rescale/rescale-space/internal/layout"
	"github.com/rescale/rescale-space/internal/localfs"
	"github.com/rescale/rescale-space/internal/logging"
	"github.com/rescale/rescale-space/internal/state"
	"github.com/rescale/rescale-space/internal/util/filter"
	"github.com/rescale/rescale-space/internal/viewport"
)

// ErrAtRoot is returned by Up when the open directory has no parent.
var ErrAtRoot = errors.New("already at filesystem root")

// Options configures a Session.
type Options struct {
	List       localfs.ListOptions
	SortBy     layout.SortBy
	Descending bool
	// Filter hides entries; the watcher honours it too.
	Filter filter.Config
	// Views remembers the viewport of every directory. Optional.
	Views *state.ViewStore
	// Watch keeps the engine in sync with changes made on disk.
	Watch bool
	// Post runs fn on the goroutine that owns the engine. Required with Watch.
	Post   func(fn func())
	Logger *logging.Logger
}

// Session is the open directory of a browser. It is not safe for concurrent
// use: call it from the goroutine that owns the engine.
type Session struct {
	engine *engine.Engine
	opts   Options
	log    *logging.Logger

	dir     string
	cols    int
	placed  int
	watcher *localfs.Watcher
}

// New creates a session feeding e. Nothing is listed until Open.
func New(e *engine.Engine, opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	return &Session{
		engine: e,
		opts:   opts,
		log:    opts.Logger.Component("browse"),
	}
}

// Dir returns the absolute path of the open directory, or "" before Open.
func (s *Session) Dir() string { return s.dir }

// Open lists dir, lays it out in as many columns as fit width and replaces the
// engine's items. The view returns to the top-left corner at scale 1, or to
// the remembered view of dir when a view store is set.
func (s *Session) Open(dir string, width float64) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	items, err := localfs.ListItems(context.Background(), abs, s.opts.List)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", abs, err)
	}
	listed := len(items)
	items = filter.Apply(items, abs, s.opts.Filter)

	s.remember()
	cfg := s.engine.Config()
	s.cols = layout.ColumnsFor(width, cfg.ItemWidth, cfg.ItemMargin)
	laid := layout.Grid(items, s.LayoutOptions())
	s.placed = len(laid)

	if err := s.engine.SetItems(laid, engine.WithScale(1)); err != nil {
		s.log.Warn().Err(err).Msg("Some entries were skipped")
	}
	s.engine.SetTransform(viewport.TransformPatch{TranslateX: viewport.Float(0), TranslateY: viewport.Float(0)})
	s.dir = abs
	s.restore()
	s.watch()
	s.log.Info().Str("dir", abs).Int("items", len(laid)).Int("hidden", listed-len(laid)).Msg("Opened directory")
	return nil
}

// Reload lists the open directory again.
func (s *Session) Reload(width float64) error {
	if s.dir == "" {
		return nil
	}
	return s.Open(s.dir, width)
}

// Up opens the parent of the open directory.
func (s *Session) Up(width float64) error {
	parent := filepath.Dir(s.dir)
	if s.dir == "" || parent == s.dir {
		return ErrAtRoot
	}
	return s.Open(parent, width)
}

// Apply folds one watcher change into the engine. An existing item keeps its
// slot; a new one is appended after the last slot. An entry renamed out of the
// filter is removed.
func (s *Session) Apply(c localfs.Change) {
	if filepath.Dir(c.Path) != s.dir {
		return
	}
	kind := c.Kind
	if kind == localfs.Upserted && !filter.Match(c.Item, s.dir, s.opts.Filter) {
		kind = localfs.Removed
	}
	switch kind {
	case localfs.Removed:
		if err := s.engine.RemoveItem(c.Path); err != nil && !errors.Is(err, engine.ErrUnknownItem) {
			s.log.Warn().Err(err).Msg("Remove failed")
		}
	case localfs.Upserted:
		item := c.Item
		if prev, ok := s.engine.Item(c.Path); ok {
			item.Position = prev.Position
		} else {
			item.Position = s.Slot(s.placed)
			s.placed++
		}
		if err := s.engine.AddItem(item); err != nil {
			s.log.Warn().Err(err).Msg("Add failed")
		}
	}
}

// Slot returns the position of the i-th grid cell of the open directory.
func (s *Session) Slot(i int) geom.Point {
	return layout.Slot(i, s.cols, s.LayoutOptions())
}

// LayoutOptions returns the grid options of the open directory.
func (s *Session) LayoutOptions() layout.Options {
	cfg := s.engine.Config()
	return layout.Options{
		Columns:    s.cols,
		ItemWidth:  cfg.ItemWidth,
		ItemHeight: cfg.ItemHeight,
		Margin:     cfg.ItemMargin,
		SortBy:     s.opts.SortBy,
		Descending: s.opts.Descending,
	}
}

func (s *Session) watch() {
	s.stopWatch()
	if !s.opts.Watch || s.opts.Post == nil {
		return
	}
	w, err := localfs.Watch(s.dir, s.opts.List, s.log, func(c localfs.Change) {
		s.opts.Post(func() { s.Apply(c) })
	})
	if err != nil {
		s.log.Warn().Err(err).Str("dir", s.dir).Msg("Not watching directory")
		return
	}
	s.watcher = w
}

func (s *Session) stopWatch() {
	if s.watcher != nil {
		s.watcher.Close()
		s.watcher = nil
	}
}

// remember stores the current view of the open directory.
func (s *Session) remember() {
	if s.opts.Views == nil || s.dir == "" {
		return
	}
	t := s.engine.Transform()
	err := s.opts.Views.Update(state.ViewState{
		Dir:        s.dir,
		Scale:      t.Scale,
		TranslateX: t.TranslateX,
		TranslateY: t.TranslateY,
		Timestamp:  time.Now(),
	})
	if err != nil {
		s.log.Warn().Err(err).Str("dir", s.dir).Msg("Failed to remember view")
	}
}

// restore applies the remembered view of the open directory.
func (s *Session) restore() {
	if s.opts.Views == nil {
		return
	}
	v, ok, err := s.opts.Views.Get(s.dir)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to read remembered views")
		return
	}
	if !ok {
		return
	}
	s.engine.SetTransform(viewport.TransformPatch{
		Scale:      viewport.Float(v.Scale),
		TranslateX: viewport.Float(v.TranslateX),
		TranslateY: viewport.Float(v.TranslateY),
	})
	s.log.Debug().Str("dir", s.dir).Float64("scale", v.Scale).Msg("Restored view")
}

// Close remembers the view and stops watching. The engine is left to its owner.
func (s *Session) Close() {
	s.remember()
	s.stopWatch()
}
