package engine

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/rescale/rescale-space/internal/config"
	"github.com/rescale/rescale-space/internal/events"
	"github.com/rescale/rescale-space/internal/geom"
	"github.com/rescale/rescale-space/internal/models"
	"github.com/rescale/rescale-space/internal/scheduler"
	"github.com/rescale/rescale-space/internal/viewport"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.ViewportWidth = 800
	cfg.ViewportHeight = 600
	cfg.RenderMargin = 300
	cfg.PoolBatch = 1
	return cfg
}

func newTestEngine(t *testing.T, cfg config.Config, svc Services) (*Engine, *fakeSurface, *scheduler.ManualTicker) {
	t.Helper()
	ticker := scheduler.NewManualTicker()
	surface := newFakeSurface()
	svc.Ticker = ticker
	e, err := New(cfg, surface, svc)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(e.Dispose)
	return e, surface, ticker
}

func item(path string, kind models.Kind, x, y float64) models.Item {
	return models.Item{Path: path, Name: path, Kind: kind, Position: geom.Point{X: x, Y: y}}
}

func file(path string, x, y float64) models.Item { return item(path, models.KindFile, x, y) }

// checkBijection verifies every visible path owns exactly one shown handle.
func checkBijection(t *testing.T, e *Engine) {
	t.Helper()
	seen := make(map[*Handle]string)
	for path, h := range e.visible {
		if h.Path != path {
			t.Errorf("handle for %q is bound to %q", path, h.Path)
		}
		if other, dup := seen[h]; dup {
			t.Errorf("handle shared by %q and %q", path, other)
		}
		seen[h] = path
		if el := h.Element.(*fakeElement); !el.shown || el.destroyed {
			t.Errorf("handle for %q shown=%v destroyed=%v", path, el.shown, el.destroyed)
		}
	}
}

func TestNewRejectsBadConfiguration(t *testing.T) {
	ticker := scheduler.NewManualTicker()
	bad := testConfig()
	bad.BinSize = 0

	tests := []struct {
		name    string
		cfg     config.Config
		surface Surface
		ticker  scheduler.Ticker
		field   string
	}{
		{"invalid config", bad, newFakeSurface(), ticker, "bin_size"},
		{"missing surface", testConfig(), nil, ticker, "surface"},
		{"missing ticker", testConfig(), newFakeSurface(), nil, "ticker"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := New(tt.cfg, tt.surface, Services{Ticker: tt.ticker})
			if e != nil {
				t.Error("New() returned an engine on error")
			}
			var cerr *config.ConfigurationError
			if !errors.As(err, &cerr) || cerr.Field != tt.field {
				t.Errorf("New() error = %v, want ConfigurationError on %s", err, tt.field)
			}
		})
	}
}

func TestPassRendersQueryRect(t *testing.T) {
	e, surface, ticker := newTestEngine(t, testConfig(), Services{})

	err := e.SetItems([]models.Item{
		file("/near", 0, 0),
		file("/edge-in", 1099, 0),
		file("/edge-out", 1101, 0),
		file("/far", 5000, 5000),
		item("/dir", models.KindDirectory, 200, 200),
	})
	if err != nil {
		t.Fatalf("SetItems() error = %v", err)
	}
	if len(e.VisiblePaths()) != 0 {
		t.Fatal("handles exist before the first tick")
	}

	ticker.Tick()

	want := []string{"/dir", "/edge-in", "/near"}
	if got := e.VisiblePaths(); !reflect.DeepEqual(got, want) {
		t.Errorf("VisiblePaths() = %v, want %v", got, want)
	}
	checkBijection(t, e)

	s := e.Stats()
	if s.VisibleItems != 3 || s.CreatedElements != 3 || s.CulledItems != 2 || s.Passes != 1 {
		t.Errorf("Stats = %+v", s)
	}
	if s.LinearScan {
		t.Error("pass used a linear scan after SetItems")
	}
	if surface.presents != 1 {
		t.Errorf("Present called %d times, want 1", surface.presents)
	}
	if h, _ := e.HandleFor("/dir"); h.Kind != models.KindDirectory {
		t.Errorf("/dir handle kind = %v", h.Kind)
	}
}

func TestScheduleRenderCoalesces(t *testing.T) {
	e, _, ticker := newTestEngine(t, testConfig(), Services{})

	e.SetItems([]models.Item{file("/a", 0, 0)})
	e.AddItem(file("/b", 10, 10))
	e.PanBy(5, 5)
	e.SetTransform(viewport.TransformPatch{Scale: viewport.Float(1.5)})
	e.ScheduleRender()

	if ticker.Pending() != 1 {
		t.Fatalf("queued callbacks = %d, want 1", ticker.Pending())
	}
	ticker.Tick()
	if got := e.Stats().Passes; got != 1 {
		t.Errorf("Passes = %d, want 1", got)
	}
	if ticker.Pending() != 0 {
		t.Errorf("work left after a small pass: %d", ticker.Pending())
	}
}

func TestAddRemoveRoundTrip(t *testing.T) {
	e, _, ticker := newTestEngine(t, testConfig(), Services{})
	e.SetItems([]models.Item{file("/a", 0, 0), file("/b", 2000, 0)})
	ticker.Flush(10)

	visible := e.VisiblePaths()
	bins := e.index.BinCount()
	count := e.Len()

	// spans bins (0,0) and (1,0); (1,0) holds nothing else
	if err := e.AddItem(file("/x", 480, 10)); err != nil {
		t.Fatal(err)
	}
	ticker.Flush(10)
	if _, ok := e.HandleFor("/x"); !ok {
		t.Fatal("/x not rendered after AddItem")
	}

	if err := e.RemoveItem("/x"); err != nil {
		t.Fatal(err)
	}
	ticker.Flush(10)

	if got := e.VisiblePaths(); !reflect.DeepEqual(got, visible) {
		t.Errorf("VisiblePaths() = %v, want %v", got, visible)
	}
	if e.index.BinCount() != bins {
		t.Errorf("BinCount = %d, want %d", e.index.BinCount(), bins)
	}
	if e.Len() != count {
		t.Errorf("Len = %d, want %d", e.Len(), count)
	}
	checkBijection(t, e)
}

func TestRemoveUnknownItem(t *testing.T) {
	e, _, _ := newTestEngine(t, testConfig(), Services{})
	if err := e.RemoveItem("/nope"); !errors.Is(err, ErrUnknownItem) {
		t.Errorf("RemoveItem() error = %v, want ErrUnknownItem", err)
	}
}

func TestAddItemUpdatesExisting(t *testing.T) {
	e, _, ticker := newTestEngine(t, testConfig(), Services{})
	e.SetItems([]models.Item{file("/a", 0, 0)})
	ticker.Flush(10)

	moved := file("/a", 5000, 0)
	if err := e.AddItem(moved); err != nil {
		t.Fatal(err)
	}
	if box, _ := e.index.Box("/a"); box.Left != 5000 {
		t.Errorf("index box left = %v, want 5000", box.Left)
	}
	ticker.Flush(10)
	if len(e.VisiblePaths()) != 0 {
		t.Errorf("moved item still visible: %v", e.VisiblePaths())
	}
	if e.Len() != 1 {
		t.Errorf("Len = %d, want 1", e.Len())
	}
}

func TestSetItemsRejectsMalformedButAppliesRest(t *testing.T) {
	e, _, ticker := newTestEngine(t, testConfig(), Services{})
	err := e.SetItems([]models.Item{file("/ok", 0, 0), {Path: "/bad"}})

	var verr *models.ValidationError
	if !errors.As(err, &verr) || verr.Path != "/bad" {
		t.Errorf("SetItems() error = %v, want ValidationError for /bad", err)
	}
	ticker.Tick()
	if got := e.VisiblePaths(); !reflect.DeepEqual(got, []string{"/ok"}) {
		t.Errorf("VisiblePaths() = %v", got)
	}
}

func TestSetItemsWithScale(t *testing.T) {
	e, _, _ := newTestEngine(t, testConfig(), Services{})
	e.SetItems(nil, WithScale(0.5))
	if got := e.Transform().Scale; got != 0.5 {
		t.Errorf("Scale = %v, want 0.5", got)
	}
}

func TestRecycleBound(t *testing.T) {
	cfg := testConfig()
	cfg.RecycleThreshold = 2
	e, surface, ticker := newTestEngine(t, cfg, Services{})

	var items []models.Item
	for i := 0; i < 10; i++ {
		items = append(items, file(fmt.Sprintf("/f%02d", i), float64(i*110), 0))
	}
	e.SetItems(items)
	ticker.Flush(10)
	if len(e.VisiblePaths()) != 10 {
		t.Fatalf("visible = %d, want 10", len(e.VisiblePaths()))
	}

	// pan everything out of range
	e.SetTransform(viewport.TransformPatch{TranslateY: viewport.Float(-100000)})
	ticker.Flush(10)

	if len(e.VisiblePaths()) != 0 {
		t.Fatalf("visible = %d after panning away", len(e.VisiblePaths()))
	}
	for kind, size := range e.PoolSizes() {
		if size > 2 {
			t.Errorf("%s pool idle = %d, want <= 2", kind, size)
		}
	}
	if got := surface.live(); got != 2 {
		t.Errorf("live elements = %d, want 2 (excess destroyed)", got)
	}
	if s := e.Stats(); s.RemovedElements != 10 {
		t.Errorf("RemovedElements = %d, want 10", s.RemovedElements)
	}
}

func TestHandlesAreReused(t *testing.T) {
	e, surface, ticker := newTestEngine(t, testConfig(), Services{})
	e.SetItems([]models.Item{file("/a", 0, 0)})
	ticker.Flush(10)

	e.SetItems([]models.Item{file("/b", 0, 0)})
	ticker.Flush(10)

	if len(surface.elements) != 1 {
		t.Errorf("elements created = %d, want 1 reused element", len(surface.elements))
	}
	h, ok := e.HandleFor("/b")
	if !ok || h.Element.(*fakeElement).item.Path != "/b" {
		t.Fatal("/b not drawn on the reused element")
	}
}

func TestChunkedPass(t *testing.T) {
	cfg := testConfig()
	cfg.BatchSize = 2
	e, _, ticker := newTestEngine(t, cfg, Services{})

	var items []models.Item
	for i := 0; i < 5; i++ {
		items = append(items, file(fmt.Sprintf("/f%d", i), float64(i*110), 0))
	}
	e.SetItems(items)

	ticker.Tick()
	if got := len(e.VisiblePaths()); got != 2 {
		t.Fatalf("visible after first chunk = %d, want 2", got)
	}
	if !e.Busy() {
		t.Error("Busy() = false mid-pass")
	}
	ticker.Flush(10)
	if got := len(e.VisiblePaths()); got != 5 {
		t.Errorf("visible after flush = %d, want 5", got)
	}
	if s := e.Stats(); s.Chunks != 3 || s.Passes != 1 {
		t.Errorf("Chunks=%d Passes=%d, want 3 and 1", s.Chunks, s.Passes)
	}
	checkBijection(t, e)
}

func TestReentrantPassIsRejectedAndRerun(t *testing.T) {
	cfg := testConfig()
	cfg.BatchSize = 1
	e, _, ticker := newTestEngine(t, cfg, Services{})
	e.SetItems([]models.Item{file("/a", 0, 0), file("/b", 110, 0), file("/c", 220, 0)})

	ticker.Tick() // plans 3 ops, applies 1
	e.PanBy(-10, 0)
	ticker.Tick() // continuation plus the new tick, which is rejected
	if e.Stats().Passes != 0 {
		t.Fatal("a pass completed too early")
	}
	ticker.Tick() // last op; completion reschedules
	if got := e.Stats().Passes; got != 1 {
		t.Fatalf("Passes = %d, want 1", got)
	}
	ticker.Flush(10)
	if got := e.Stats().Passes; got != 2 {
		t.Errorf("Passes = %d, want 2 (rejected request rerun)", got)
	}
	if got := e.Transform().TranslateX; got != -10 {
		t.Errorf("TranslateX = %v", got)
	}
	checkBijection(t, e)
}

func TestDirectReentryIsGuarded(t *testing.T) {
	e, surface, ticker := newTestEngine(t, testConfig(), Services{})
	calls := 0
	surface.onTransform = func() {
		calls++
		e.runPass()
	}
	e.SetItems([]models.Item{file("/a", 0, 0)})
	ticker.Tick()

	if calls != 1 {
		t.Fatalf("nested pass ran ApplyTransform %d times, want 1", calls)
	}
	if got := e.Stats().Passes; got != 1 {
		t.Errorf("Passes = %d, want 1", got)
	}
	if got := len(e.VisiblePaths()); got != 1 {
		t.Errorf("visible = %d, want 1", got)
	}
}

func TestItemFailureIsIsolated(t *testing.T) {
	e, surface, ticker := newTestEngine(t, testConfig(), Services{})
	surface.failContent["/b"] = true

	e.SetItems([]models.Item{file("/a", 0, 0), file("/b", 110, 0), file("/c", 220, 0)})
	ticker.Flush(10)

	if got := e.VisiblePaths(); !reflect.DeepEqual(got, []string{"/a", "/c"}) {
		t.Errorf("VisiblePaths() = %v, want [/a /c]", got)
	}
	if s := e.Stats(); s.FailedItems != 1 {
		t.Errorf("FailedItems = %d, want 1", s.FailedItems)
	}
	checkBijection(t, e)

	delete(surface.failContent, "/b")
	e.ScheduleRender()
	ticker.Flush(10)
	if _, ok := e.HandleFor("/b"); !ok {
		t.Error("/b not retried on the next pass")
	}
}

func TestItemFailureIsPublished(t *testing.T) {
	bus := events.NewEventBus(10)
	defer bus.Close()
	errs := bus.Subscribe(events.EventError)
	e, surface, ticker := newTestEngine(t, testConfig(), Services{Bus: bus})
	surface.failContent["/b"] = true

	e.SetItems([]models.Item{file("/a", 0, 0), file("/b", 110, 0)})
	ticker.Flush(10)

	select {
	case ev := <-errs:
		got := ev.(*events.ErrorEvent)
		var rerr *ItemRenderError
		if got.Path != "/b" || got.Source != "renderer" || !errors.As(got.Error, &rerr) || rerr.Op != "content" {
			t.Errorf("ErrorEvent = %+v, want /b content failure from renderer", got)
		}
	default:
		t.Fatal("no error event published")
	}
}

func TestFactoryFailureIsIsolated(t *testing.T) {
	e, surface, ticker := newTestEngine(t, testConfig(), Services{})
	surface.failCreate = true
	e.SetItems([]models.Item{file("/a", 0, 0)})
	ticker.Flush(10)

	if len(e.VisiblePaths()) != 0 || e.Stats().FailedItems != 1 {
		t.Errorf("visible=%v failed=%d", e.VisiblePaths(), e.Stats().FailedItems)
	}
	surface.failCreate = false
	e.ScheduleRender()
	ticker.Flush(10)
	if len(e.VisiblePaths()) != 1 {
		t.Error("item not rendered once the factory recovered")
	}
}

func TestLinearScanBeforeSetItems(t *testing.T) {
	e, _, ticker := newTestEngine(t, testConfig(), Services{})
	e.AddItem(file("/a", 0, 0))
	e.AddItem(file("/far", 9000, 0))
	ticker.Flush(10)

	if got := e.VisiblePaths(); !reflect.DeepEqual(got, []string{"/a"}) {
		t.Errorf("VisiblePaths() = %v", got)
	}
	if !e.Stats().LinearScan {
		t.Error("LinearScan = false before SetItems")
	}
}

func TestLevelOfDetailUpdates(t *testing.T) {
	e, _, ticker := newTestEngine(t, testConfig(), Services{})
	e.SetItems([]models.Item{file("/a", 0, 0)})
	ticker.Flush(10)

	h, _ := e.HandleFor("/a")
	el := h.Element.(*fakeElement)
	if h.Level != 1 || el.level != 1 {
		t.Fatalf("level at scale 1 = %d/%d, want 1", h.Level, el.level)
	}

	e.SetTransform(viewport.TransformPatch{Scale: viewport.Float(0.6)})
	ticker.Flush(10)
	if h.Level != 2 || el.level != 2 {
		t.Errorf("level at scale 0.6 = %d/%d, want 2", h.Level, el.level)
	}
	if e.Stats().UpdatedElements != 1 {
		t.Errorf("UpdatedElements = %d, want 1", e.Stats().UpdatedElements)
	}

	// same level: no content redraw
	drawn := el.contents
	e.SetTransform(viewport.TransformPatch{Scale: viewport.Float(0.55)})
	ticker.Flush(10)
	if el.contents != drawn {
		t.Errorf("content redrawn without a level change")
	}
}

func TestInteractionEventsAndUnbindOnRecycle(t *testing.T) {
	bus := events.NewEventBus(10)
	defer bus.Close()
	clicks := bus.Subscribe(EventItemClick)

	var got []ItemEvent
	e, _, ticker := newTestEngine(t, testConfig(), Services{
		Bus:        bus,
		OnInteract: func(ev ItemEvent) { got = append(got, ev) },
	})
	e.SetItems([]models.Item{file("/a", 0, 0)})
	ticker.Flush(10)

	h, _ := e.HandleFor("/a")
	el := h.Element.(*fakeElement)
	if !h.Bound || el.bindings == nil {
		t.Fatal("entered handle has no bindings")
	}
	stale := *el.bindings

	stale.OnClick()
	stale.OnContextMenu()
	if len(got) != 2 || got[0].Type() != EventItemClick || got[1].Type() != EventItemContextMenu {
		t.Fatalf("events = %v", got)
	}
	if got[0].Item.Path != "/a" || got[0].Handle != h {
		t.Errorf("event carries %q/%v", got[0].Item.Path, got[0].Handle)
	}
	select {
	case ev := <-clicks:
		if ev.(*ItemEvent).Item.Path != "/a" {
			t.Errorf("bus event for %q", ev.(*ItemEvent).Item.Path)
		}
	default:
		t.Error("click not published on the bus")
	}

	// recycle: the handle goes idle and must be unbound
	e.SetItems(nil)
	ticker.Flush(10)
	if h.Bound || el.bindings != nil {
		t.Error("released handle still bound")
	}
	stale.OnDoubleClick()
	if len(got) != 2 {
		t.Errorf("stale callback fired an event: %v", got[len(got)-1].Type())
	}

	// rebinding on reuse happens once per entry
	e.SetItems([]models.Item{file("/b", 0, 0)})
	ticker.Flush(10)
	if el.binds != 2 {
		t.Errorf("binds = %d, want 2", el.binds)
	}
}

func TestPauseAndResume(t *testing.T) {
	e, _, ticker := newTestEngine(t, testConfig(), Services{})
	e.SetVisible(false)
	e.SetItems([]models.Item{file("/a", 0, 0)})
	ticker.Flush(10)
	if len(e.VisiblePaths()) != 0 {
		t.Fatal("rendered while hidden")
	}

	e.SetVisible(true)
	ticker.Flush(10)
	if len(e.VisiblePaths()) != 1 {
		t.Error("not rendered after becoming visible")
	}
	if got := e.Stats().Passes; got != 1 {
		t.Errorf("Passes = %d, want 1", got)
	}
}

func TestPauseMidPassHoldsContinuation(t *testing.T) {
	cfg := testConfig()
	cfg.BatchSize = 1
	e, _, ticker := newTestEngine(t, cfg, Services{})
	e.SetItems([]models.Item{file("/a", 0, 0), file("/b", 110, 0)})

	ticker.Tick()
	e.SetVisible(false)
	ticker.Flush(10)
	if got := len(e.VisiblePaths()); got != 1 {
		t.Fatalf("visible while paused = %d, want 1", got)
	}
	e.SetVisible(true)
	ticker.Flush(10)
	if got := len(e.VisiblePaths()); got != 2 {
		t.Errorf("visible after resume = %d, want 2", got)
	}
	checkBijection(t, e)
}

func TestFocusOnItem(t *testing.T) {
	e, _, _ := newTestEngine(t, testConfig(), Services{})
	e.SetItems([]models.Item{file("/a", 1000, 500)})

	if err := e.FocusOnItem("/a", viewport.Float(2)); err != nil {
		t.Fatal(err)
	}
	tr := e.Transform()
	center := tr.ToScreen(geom.Point{X: 1050, Y: 560})
	if tr.Scale != 2 || center.X != 400 || center.Y != 300 {
		t.Errorf("transform %+v puts item centre at %+v", tr, center)
	}
	if err := e.FocusOnItem("/missing", nil); !errors.Is(err, ErrUnknownItem) {
		t.Errorf("FocusOnItem() error = %v, want ErrUnknownItem", err)
	}
}

func TestHitTest(t *testing.T) {
	e, _, ticker := newTestEngine(t, testConfig(), Services{})
	e.SetItems([]models.Item{file("/a", 0, 0), file("/b", 200, 0)})
	ticker.Flush(10)

	if it, ok := e.HitTest(geom.Point{X: 250, Y: 60}); !ok || it.Path != "/b" {
		t.Errorf("HitTest = %q, %v", it.Path, ok)
	}
	if _, ok := e.HitTest(geom.Point{X: 150, Y: 60}); ok {
		t.Error("HitTest matched the gap between items")
	}
}

func TestStatsObserver(t *testing.T) {
	var seen []Stats
	e, _, ticker := newTestEngine(t, testConfig(), Services{
		Observer: StatsObserverFunc(func(s Stats) { seen = append(seen, s) }),
	})
	e.SetItems([]models.Item{file("/a", 0, 0)})
	ticker.Flush(10)
	if len(seen) != 1 || seen[0].VisibleItems != 1 {
		t.Errorf("observed %+v", seen)
	}
}

func TestDisposeIsIdempotent(t *testing.T) {
	e, surface, ticker := newTestEngine(t, testConfig(), Services{})
	e.SetItems([]models.Item{file("/a", 0, 0), file("/b", 110, 0)})
	ticker.Flush(10)
	e.SetItems([]models.Item{file("/a", 0, 0)})
	ticker.Flush(10)

	e.Dispose()
	e.Dispose()

	if surface.live() != 0 {
		t.Errorf("live elements after Dispose = %d", surface.live())
	}
	if len(e.VisiblePaths()) != 0 || e.Len() != 0 || e.index.Len() != 0 {
		t.Error("state survived Dispose")
	}
	if err := e.SetItems([]models.Item{file("/a", 0, 0)}); !errors.Is(err, ErrDisposed) {
		t.Errorf("SetItems() after Dispose = %v, want ErrDisposed", err)
	}
	e.ScheduleRender()
	if ticker.Flush(10) != 0 {
		t.Error("disposed engine scheduled work")
	}
}
