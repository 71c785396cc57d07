package engine

import (
	"errors"
	"sort"
	"time"

	"github.com/rescale/rescale-space/internal/events"
	"github.com/rescale/rescale-space/internal/geom"
	"github.com/rescale/rescale-space/internal/models"
)

type opKind uint8

const (
	opExit opKind = iota
	opEnter
	opUpdate
)

type op struct {
	kind opKind
	path string
}

// pass is the work list of one render pass, consumed in BatchSize chunks.
type pass struct {
	ops   []op
	next  int
	view  geom.Rect
	scale float64
	stats Stats
	work  time.Duration
}

// runPass is the scheduler callback. It plans the diff and applies the first chunk.
func (e *Engine) runPass() {
	switch e.state {
	case passDisposed:
		return
	case passRunning:
		e.rerun = true
		e.log.Warn().Msg("Render pass rejected, previous pass still running")
		e.bus.PublishLog(events.WarnLevel, "render pass rejected, previous pass still running", "renderer", nil)
		return
	}
	e.state = passRunning
	start := time.Now()

	t := e.view.Transform()
	e.surface.ApplyTransform(t)

	query := e.view.QueryRect()
	result, linear := e.candidates(query)

	p := &pass{
		view:  e.view.VisibleRect(),
		scale: t.Scale,
		stats: Stats{
			CulledItems: max(0, e.store.Len()-len(result)),
			LinearScan:  linear,
			Scale:       t.Scale,
		},
	}
	p.ops = diff(e.visible, result)
	p.work = time.Since(start)
	e.current = p
	e.runChunk(p)
}

// candidates returns the paths overlapping query. Before the first SetItems
// there is no index to trust, so every stored item is tested.
func (e *Engine) candidates(query geom.Rect) (map[string]struct{}, bool) {
	if e.indexBuilt {
		return e.index.Query(query), false
	}
	result := make(map[string]struct{})
	e.store.Each(func(item models.Item) bool {
		if e.bounds(item).Overlaps(query) {
			result[item.Path] = struct{}{}
		}
		return true
	})
	e.log.Debug().Int("candidates", len(result)).Msg("Index not built, used linear scan")
	return result, true
}

// diff orders exits before enters so released handles are reused in the same pass.
func diff(visible map[string]*Handle, result map[string]struct{}) []op {
	var exits, enters, updates []string
	for path := range visible {
		if _, ok := result[path]; !ok {
			exits = append(exits, path)
		}
	}
	for path := range result {
		if _, ok := visible[path]; ok {
			updates = append(updates, path)
		} else {
			enters = append(enters, path)
		}
	}
	sort.Strings(exits)
	sort.Strings(enters)
	sort.Strings(updates)

	ops := make([]op, 0, len(exits)+len(enters)+len(updates))
	for _, path := range exits {
		ops = append(ops, op{opExit, path})
	}
	for _, path := range enters {
		ops = append(ops, op{opEnter, path})
	}
	for _, path := range updates {
		ops = append(ops, op{opUpdate, path})
	}
	return ops
}

func (e *Engine) runChunk(p *pass) {
	if e.current != p || e.state != passRunning {
		return
	}
	start := time.Now()
	end := min(p.next+e.cfg.BatchSize, len(p.ops))
	for ; p.next < end; p.next++ {
		e.apply(p, p.ops[p.next])
	}
	p.stats.Chunks++
	p.work += time.Since(start)

	if p.next < len(p.ops) {
		e.sched.Defer(func() { e.runChunk(p) })
		return
	}
	e.finish(p)
}

func (e *Engine) apply(p *pass, o op) {
	switch o.kind {
	case opExit:
		e.exit(p, o.path)
	case opEnter:
		e.enter(p, o.path)
	case opUpdate:
		e.update(p, o.path)
	}
}

func (e *Engine) exit(p *pass, path string) {
	h, ok := e.visible[path]
	if !ok {
		return
	}
	delete(e.visible, path)
	e.pools[h.Kind].Release(h)
	p.stats.RemovedElements++
}

// enter binds a pooled handle to the item. The record is looked up again
// because the store may have changed since the pass was planned.
func (e *Engine) enter(p *pass, path string) {
	if _, ok := e.visible[path]; ok {
		return
	}
	item, ok := e.store.Get(path)
	if !ok {
		return
	}
	pl, ok := e.pools[item.Kind]
	if !ok {
		return
	}
	h, err := pl.Get()
	if err != nil {
		e.fail(p, &ItemRenderError{Path: path, Op: "acquire", Err: err})
		return
	}

	h.Path = path
	if err := e.draw(h, item, p, true); err != nil {
		pl.Release(h)
		e.fail(p, err)
		return
	}
	h.Element.Show()
	e.visible[path] = h
	p.stats.CreatedElements++
}

func (e *Engine) update(p *pass, path string) {
	h, ok := e.visible[path]
	if !ok {
		return
	}
	item, ok := e.store.Get(path)
	if !ok || item.Kind != h.Kind {
		e.exit(p, path)
		if ok {
			e.enter(p, path)
		}
		return
	}

	level := e.lod.Level(e.bounds(item), p.scale, p.view)
	if level == h.Level && item == h.item && e.bounds(item) == h.bounds {
		return
	}
	if err := e.draw(h, item, p, false); err != nil {
		// a handle that failed to redraw is released; the next pass re-enters it
		e.exit(p, path)
		e.fail(p, err)
		return
	}
	p.stats.UpdatedElements++
}

// draw binds interactions once, then applies content and bounds where they changed.
func (e *Engine) draw(h *Handle, item models.Item, p *pass, fresh bool) error {
	path := item.Path
	if !h.Bound {
		if err := guard("bind", path, func() error { return h.Element.Bind(e.bindings(h)) }); err != nil {
			return err
		}
		h.Bound = true
	}

	level := e.lod.Level(e.bounds(item), p.scale, p.view)
	if fresh || level != h.Level || item != h.item {
		if err := guard("content", path, func() error { return h.Element.SetContent(item, level) }); err != nil {
			return err
		}
		h.Level = level
		h.item = item
	}

	box := e.bounds(item)
	if fresh || box != h.bounds {
		if err := guard("bounds", path, func() error { return h.Element.SetBounds(box) }); err != nil {
			return err
		}
		h.bounds = box
	}
	return nil
}

// bindings route element callbacks to whatever item h is bound to when they fire.
func (e *Engine) bindings(h *Handle) Bindings {
	return Bindings{
		OnClick:       func() { e.dispatch(EventItemClick, h) },
		OnDoubleClick: func() { e.dispatch(EventItemDoubleClick, h) },
		OnContextMenu: func() { e.dispatch(EventItemContextMenu, h) },
	}
}

func (e *Engine) dispatch(t events.EventType, h *Handle) {
	if e.state == passDisposed || h.Path == "" {
		return
	}
	if cur, ok := e.visible[h.Path]; !ok || cur != h {
		return
	}
	item, ok := e.store.Get(h.Path)
	if !ok {
		return
	}
	ev := ItemEvent{BaseEvent: events.NewBase(t), Item: item, Handle: h}
	if e.bus != nil {
		e.bus.Publish(&ev)
	}
	if e.onEvent != nil {
		e.onEvent(ev)
	}
}

func (e *Engine) fail(p *pass, err error) {
	p.stats.FailedItems++
	var rerr *ItemRenderError
	if errors.As(err, &rerr) {
		e.log.Warn().Err(rerr.Err).Str("path", rerr.Path).Str("op", rerr.Op).Msg("Item render failed, skipping")
		e.bus.PublishError("renderer", rerr.Path, rerr)
		return
	}
	e.log.Warn().Err(err).Msg("Item render failed, skipping")
	e.bus.PublishError("renderer", "", err)
}

func (e *Engine) finish(p *pass) {
	e.current = nil
	e.state = passIdle
	e.passes++

	e.surface.Present()

	p.stats.VisibleItems = len(e.visible)
	p.stats.RenderTimeMs = float64(p.work.Microseconds()) / 1000
	p.stats.Passes = e.passes
	p.stats.PoolIdle = e.PoolSizes()
	e.last = p.stats

	if e.cfg.Debug {
		e.log.Debug().
			Int("visible", p.stats.VisibleItems).
			Int("entered", p.stats.CreatedElements).
			Int("updated", p.stats.UpdatedElements).
			Int("exited", p.stats.RemovedElements).
			Int("culled", p.stats.CulledItems).
			Int("failed", p.stats.FailedItems).
			Int("chunks", p.stats.Chunks).
			Float64("ms", p.stats.RenderTimeMs).
			Msg("Render pass complete")
	}
	if e.cfg.CollectStats {
		if e.bus != nil {
			e.bus.Publish(&RenderStatsEvent{BaseEvent: events.NewBase(EventRenderStats), Stats: p.stats})
		}
		if e.observer != nil {
			e.observer.ObserveRender(p.stats)
		}
	}

	if e.rerun {
		e.rerun = false
		e.sched.ScheduleRender()
	}
}
