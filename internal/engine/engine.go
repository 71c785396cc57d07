// Package engine renders only the items of a large 2-D space that are near the
// viewport. It keeps a spatial index over item boxes, diffs each visibility
// query against the set of live handles, recycles handles through per-kind
// pools and spreads the work of a pass across frames.
//
// An Engine is single-threaded: every method, and every callback it hands to
// a surface, must run on the goroutine that drives its ticker.
package engine

import (
	"fmt"
	"sort"

	"github.com/rescale/rescale-space/internal/config"
	"github.com/rescale/rescale-space/internal/events"
	"github.com/rescale/rescale-space/internal/geom"
	"github.com/rescale/rescale-space/internal/logging"
	"github.com/rescale/rescale-space/internal/models"
	"github.com/rescale/rescale-space/internal/pool"
	"github.com/rescale/rescale-space/internal/scheduler"
	"github.com/rescale/rescale-space/internal/spatial"
	"github.com/rescale/rescale-space/internal/state"
	"github.com/rescale/rescale-space/internal/viewport"
)

// Services are the collaborators the host builds once and hands to New.
type Services struct {
	Logger *logging.Logger
	// Ticker delivers frames. Required.
	Ticker scheduler.Ticker
	// Bus receives item, render stats and store events. Optional.
	Bus *events.EventBus
	// Observer receives the stats of every completed pass. Optional.
	Observer StatsObserver
	// OnInteract is called on the engine goroutine for every item event. Optional.
	OnInteract func(ItemEvent)
}

type passState uint8

const (
	passIdle passState = iota
	passRunning
	passDisposed
)

// Engine is a viewport virtualization engine bound to one surface.
type Engine struct {
	cfg      config.Config
	surface  Surface
	log      *logging.Logger
	bus      *events.EventBus
	observer StatsObserver
	onEvent  func(ItemEvent)

	store      *state.ItemStore
	index      *spatial.Index
	indexBuilt bool
	view       *viewport.Model
	lod        viewport.Selector
	sched      *scheduler.Scheduler
	pools      map[models.Kind]*pool.Pool[*Handle]

	visible map[string]*Handle
	state   passState
	rerun   bool // a pass was requested while one was running
	current *pass
	last    Stats
	passes  uint64
	nextID  uint64
}

// SetOption modifies a SetItems call.
type SetOption func(*setOptions)

type setOptions struct {
	scale *float64
}

// WithScale applies a new scale together with the item replacement.
func WithScale(s float64) SetOption {
	return func(o *setOptions) { o.scale = &s }
}

// New validates cfg and builds an engine. On error nothing is initialised.
func New(cfg config.Config, surface Surface, svc Services) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if surface == nil {
		return nil, &config.ConfigurationError{Field: "surface", Reason: "a surface is required"}
	}
	if svc.Ticker == nil {
		return nil, &config.ConfigurationError{Field: "ticker", Reason: "a ticker is required"}
	}
	if svc.Logger == nil {
		svc.Logger = logging.NewNop()
	}
	cfg.LODThresholds = append([]float64(nil), cfg.LODThresholds...)

	e := &Engine{
		cfg:      cfg,
		surface:  surface,
		log:      svc.Logger.Component("engine"),
		bus:      svc.Bus,
		observer: svc.Observer,
		onEvent:  svc.OnInteract,
		store:    state.NewItemStore(svc.Bus),
		index:    spatial.NewIndex(cfg.BinSize),
		view:     viewport.NewModel(cfg.ViewportWidth, cfg.ViewportHeight, cfg.RenderMargin, cfg.MinScale, cfg.MaxScale),
		lod:      viewport.NewSelector(cfg.LODThresholds, cfg.LODDistance),
		pools:    make(map[models.Kind]*pool.Pool[*Handle], len(models.Kinds)),
		visible:  make(map[string]*Handle),
	}
	e.sched = scheduler.New(svc.Ticker, e.runPass, e.log)

	for _, kind := range models.Kinds {
		p, err := pool.New(pool.Options[*Handle]{
			Name:    kind.String(),
			MaxIdle: cfg.RecycleThreshold,
			Batch:   cfg.PoolBatch,
			Factory: e.handleFactory(kind),
			Reset:   (*Handle).reset,
			Discard: func(h *Handle) { h.Element.Destroy() },
			Logger:  e.log,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create %s pool: %w", kind, err)
		}
		e.pools[kind] = p
	}
	return e, nil
}

func (e *Engine) handleFactory(kind models.Kind) pool.Factory[*Handle] {
	return func() (*Handle, error) {
		el, err := e.surface.NewElement(kind)
		if err != nil {
			return nil, err
		}
		if el == nil {
			return nil, fmt.Errorf("surface returned no element for %s", kind)
		}
		e.nextID++
		return &Handle{Kind: kind, Element: el, id: e.nextID}, nil
	}
}

// SetItems replaces every item and rebuilds the spatial index. Malformed
// records are skipped and returned as a joined error; the rest are applied.
func (e *Engine) SetItems(items []models.Item, opts ...SetOption) error {
	if e.state == passDisposed {
		return ErrDisposed
	}
	var o setOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.scale != nil {
		e.view.SetTransform(viewport.TransformPatch{Scale: o.scale})
	}

	applied, err := e.store.Replace(items)
	e.index.Clear()
	for _, item := range applied {
		e.index.Insert(item.Path, e.bounds(item))
	}
	e.indexBuilt = true

	e.log.Debug().Int("items", len(applied)).Int("bins", e.index.BinCount()).Msg("Items replaced")
	e.sched.ScheduleRender()
	return err
}

// AddItem inserts an item, or updates it if the path is already known.
func (e *Engine) AddItem(item models.Item) error {
	if e.state == passDisposed {
		return ErrDisposed
	}
	_, existed, err := e.store.Put(item)
	if err != nil {
		return err
	}
	if existed {
		e.index.Update(item.Path, e.bounds(item))
	} else {
		e.index.Insert(item.Path, e.bounds(item))
	}
	e.sched.ScheduleRender()
	return nil
}

// RemoveItem deletes an item. Its handle is released by the next pass.
func (e *Engine) RemoveItem(path string) error {
	if e.state == passDisposed {
		return ErrDisposed
	}
	if _, ok := e.store.Remove(path); !ok {
		return fmt.Errorf("remove %q: %w", path, ErrUnknownItem)
	}
	e.index.Remove(path)
	e.sched.ScheduleRender()
	return nil
}

// Item returns the stored record for path.
func (e *Engine) Item(path string) (models.Item, bool) {
	return e.store.Get(path)
}

// Len returns the number of stored items.
func (e *Engine) Len() int {
	return e.store.Len()
}

// SetTransform patches the viewport transform and schedules a pass if it changed.
func (e *Engine) SetTransform(p viewport.TransformPatch) {
	if e.state == passDisposed {
		return
	}
	if e.view.SetTransform(p) {
		e.sched.ScheduleRender()
	}
}

// Transform returns the current viewport transform.
func (e *Engine) Transform() viewport.Transform {
	return e.view.Transform()
}

// ZoomAt scales around a screen anchor.
func (e *Engine) ZoomAt(factor, ax, ay float64) {
	if e.state != passDisposed && e.view.ZoomAt(factor, ax, ay) {
		e.sched.ScheduleRender()
	}
}

// PanBy moves the view by screen pixels.
func (e *Engine) PanBy(dx, dy float64) {
	if e.state != passDisposed && e.view.PanBy(dx, dy) {
		e.sched.ScheduleRender()
	}
}

// FocusOnItem centres the item in the container, optionally at a new scale.
func (e *Engine) FocusOnItem(path string, scale *float64) error {
	if e.state == passDisposed {
		return ErrDisposed
	}
	item, ok := e.store.Get(path)
	if !ok {
		return fmt.Errorf("focus %q: %w", path, ErrUnknownItem)
	}
	s := e.view.Transform().Scale
	if scale != nil {
		s = *scale
	}
	t := e.view.FocusTransform(e.bounds(item).Center(), s)
	e.SetTransform(viewport.TransformPatch{Scale: &t.Scale, TranslateX: &t.TranslateX, TranslateY: &t.TranslateY})
	return nil
}

// Resize tells the engine the container's new pixel size.
func (e *Engine) Resize(width, height float64) {
	if e.state != passDisposed && e.view.Resize(width, height) {
		e.sched.ScheduleRender()
	}
}

// SetVisible pauses the scheduler while the surface is hidden.
func (e *Engine) SetVisible(visible bool) {
	if e.state == passDisposed {
		return
	}
	if visible {
		e.sched.Resume()
	} else {
		e.sched.Pause()
	}
}

// ScheduleRender requests a pass on the next frame.
func (e *Engine) ScheduleRender() {
	if e.state != passDisposed {
		e.sched.ScheduleRender()
	}
}

// Stats returns the stats of the last completed pass.
func (e *Engine) Stats() Stats {
	s := e.last
	s.PoolIdle = e.PoolSizes()
	return s
}

// Busy reports whether a pass is in progress or scheduled.
func (e *Engine) Busy() bool {
	return e.state == passRunning || e.sched.Pending()
}

// VisiblePaths returns the sorted paths that currently own a handle.
func (e *Engine) VisiblePaths() []string {
	paths := make([]string, 0, len(e.visible))
	for p := range e.visible {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// VisibleCount is the number of items currently owning a handle.
func (e *Engine) VisibleCount() int { return len(e.visible) }

// HandleFor returns the live handle of path.
func (e *Engine) HandleFor(path string) (*Handle, bool) {
	h, ok := e.visible[path]
	return h, ok
}

// HitTest returns the visible item whose box contains the content point p.
// Overlapping items resolve to the greatest path.
func (e *Engine) HitTest(p geom.Point) (models.Item, bool) {
	var hit models.Item
	found := false
	for path, h := range e.visible {
		if !h.bounds.Contains(p) {
			continue
		}
		if !found || path > hit.Path {
			hit, found = h.item, true
		}
	}
	return hit, found
}

// PoolSizes returns the idle handle count per kind.
func (e *Engine) PoolSizes() map[models.Kind]int {
	sizes := make(map[models.Kind]int, len(e.pools))
	for kind, p := range e.pools {
		sizes[kind] = p.Size()
	}
	return sizes
}

// PoolStats returns lifetime pool counters per kind.
func (e *Engine) PoolStats() map[models.Kind]pool.Stats {
	stats := make(map[models.Kind]pool.Stats, len(e.pools))
	for kind, p := range e.pools {
		stats[kind] = p.Stats()
	}
	return stats
}

// Config returns the configuration the engine was built with.
func (e *Engine) Config() config.Config {
	return e.cfg
}

// Events returns the bus the engine publishes to, possibly nil.
func (e *Engine) Events() *events.EventBus {
	return e.bus
}

// Dispose destroys every element, clears the store and index, and detaches
// all observers. Safe to call more than once.
func (e *Engine) Dispose() {
	if e.state == passDisposed {
		return
	}
	e.state = passDisposed
	e.current = nil
	e.sched.Dispose()

	for path, h := range e.visible {
		if h.Bound {
			h.Element.Unbind()
			h.Bound = false
		}
		h.Element.Destroy()
		delete(e.visible, path)
	}
	for _, p := range e.pools {
		p.Drain()
	}
	e.index.Clear()
	e.store.Clear()
	e.observer = nil
	e.onEvent = nil
	e.bus = nil
	e.log.Debug().Msg("Engine disposed")
}

func (e *Engine) bounds(item models.Item) geom.Rect {
	return item.Bounds(e.cfg.ItemWidth, e.cfg.ItemHeight)
}
