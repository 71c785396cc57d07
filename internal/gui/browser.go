package gui

import (
	"errors"
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/rescale/rescale-space/internal/browse"
	"github.com/rescale/rescale-space/internal/config"
	"github.com/rescale/rescale-space/internal/constants"
	"github.com/rescale/rescale-space/internal/engine"
	"github.com/rescale/rescale-space/internal/events"
	"github.com/rescale/rescale-space/internal/layout"
	"github.com/rescale/rescale-space/internal/localfs"
	"github.com/rescale/rescale-space/internal/logging"
	"github.com/rescale/rescale-space/internal/scheduler"
	"github.com/rescale/rescale-space/internal/state"
	"github.com/rescale/rescale-space/internal/util/filter"
	"github.com/rescale/rescale-space/internal/util/sanitize"
	stringutil "github.com/rescale/rescale-space/internal/util/strings"
	"github.com/rescale/rescale-space/internal/viewport"
)

// Options configures the graphical browser.
type Options struct {
	Dir    string
	Config config.Config
	List   localfs.ListOptions
	SortBy layout.SortBy
	Filter filter.Config
	// Views restores the last view of each directory. Optional.
	Views    *state.ViewStore
	Logger   *logging.Logger
	Bus      *events.EventBus
	Observer engine.StatsObserver
	NoWatch  bool
}

// browser owns the engine and the widgets around the view. Every method runs
// on the engine loop.
type browser struct {
	opts    Options
	log     *logging.Logger
	post    func(func())
	surface *Surface
	view    *view
	engine  *engine.Engine
	session *browse.Session
	window  fyne.Window

	location *widget.Label
	status   *widget.Label
	width    float64
	selected string
	details  bool
	last     engine.Stats
}

func newBrowser(opts Options, ticker scheduler.Ticker, post func(func())) (*browser, error) {
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	b := &browser{
		opts:     opts,
		log:      opts.Logger.Component("gui"),
		post:     post,
		surface:  NewSurface(post),
		location: widget.NewLabel(""),
		status:   widget.NewLabel(""),
		width:    opts.Config.ViewportWidth,
	}
	b.location.TextStyle = fyne.TextStyle{Bold: true}
	b.location.Truncation = fyne.TextTruncateEllipsis

	e, err := engine.New(opts.Config, b.surface, engine.Services{
		Logger:     opts.Logger,
		Ticker:     ticker,
		Bus:        opts.Bus,
		Observer:   engine.StatsObserverFunc(b.observe),
		OnInteract: b.onItem,
	})
	if err != nil {
		return nil, err
	}
	b.engine = e
	b.session = browse.New(e, browse.Options{
		List:   opts.List,
		SortBy: opts.SortBy,
		Filter: opts.Filter,
		Views:  opts.Views,
		Watch:  !opts.NoWatch,
		Post:   post,
		Logger: opts.Logger,
	})

	b.view = newView(b.surface)
	b.view.OnPan = func(dx, dy float64) { e.PanBy(dx, dy) }
	b.view.OnZoom = func(f, x, y float64) { e.ZoomAt(f, x, y) }
	b.view.OnResize = b.resize
	b.view.OnTap = func() { b.selectPath("") }
	return b, nil
}

// content lays out the toolbar, the view and the status line.
func (b *browser) content() fyne.CanvasObject {
	toolbar := widget.NewToolbar(
		widget.NewToolbarAction(theme.NavigateBackIcon(), func() { b.post(b.goUp) }),
		widget.NewToolbarAction(theme.ViewRefreshIcon(), func() { b.post(b.reload) }),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ZoomInIcon(), func() { b.post(func() { b.zoom(constants.ZoomStep) }) }),
		widget.NewToolbarAction(theme.ZoomOutIcon(), func() { b.post(func() { b.zoom(1 / constants.ZoomStep) }) }),
		widget.NewToolbarAction(theme.ZoomFitIcon(), func() { b.post(b.resetView) }),
	)
	top := container.NewBorder(nil, nil, toolbar, nil, b.location)
	return container.NewBorder(top, b.status, nil, nil, b.view)
}

// bindKeys routes window keys to the engine loop.
func (b *browser) bindKeys(c fyne.Canvas) {
	c.SetOnTypedKey(func(ev *fyne.KeyEvent) {
		name := ev.Name
		b.post(func() { b.key(name) })
	})
	c.SetOnTypedRune(func(r rune) {
		b.post(func() { b.typedRune(r) })
	})
}

func (b *browser) key(name fyne.KeyName) {
	switch name {
	case fyne.KeyUp:
		b.engine.PanBy(0, constants.PanStep)
	case fyne.KeyDown:
		b.engine.PanBy(0, -constants.PanStep)
	case fyne.KeyLeft:
		b.engine.PanBy(constants.PanStep, 0)
	case fyne.KeyRight:
		b.engine.PanBy(-constants.PanStep, 0)
	case fyne.KeyBackspace:
		b.goUp()
	case fyne.KeyReturn, fyne.KeyEnter:
		b.openSelected()
	}
}

func (b *browser) typedRune(r rune) {
	switch r {
	case '+', '=':
		b.zoom(constants.ZoomStep)
	case '-', '_':
		b.zoom(1 / constants.ZoomStep)
	case '0':
		b.resetView()
	case 'r':
		b.reload()
	}
}

func (b *browser) open(dir string) error {
	if err := b.session.Open(dir, b.width); err != nil {
		return err
	}
	b.location.SetText(b.session.Dir())
	b.selectPath("")
	return nil
}

func (b *browser) goUp() {
	if err := b.session.Up(b.width); err != nil {
		if !errors.Is(err, browse.ErrAtRoot) {
			b.showError(err)
		}
		return
	}
	b.location.SetText(b.session.Dir())
	b.selectPath("")
}

func (b *browser) reload() {
	if err := b.session.Reload(b.width); err != nil {
		b.showError(err)
	}
}

func (b *browser) openSelected() {
	if item, ok := b.engine.Item(b.selected); ok && item.IsDir() {
		if err := b.open(item.Path); err != nil {
			b.showError(err)
		}
	}
}

func (b *browser) zoom(factor float64) {
	w, h := b.view.Size().Width, b.view.Size().Height
	b.engine.ZoomAt(factor, float64(w)/2, float64(h)/2)
}

func (b *browser) resetView() {
	b.engine.SetTransform(viewport.TransformPatch{
		Scale:      viewport.Float(1),
		TranslateX: viewport.Float(0),
		TranslateY: viewport.Float(0),
	})
}

func (b *browser) resize(w, h float64) {
	b.width = w
	b.engine.Resize(w, h)
}

// onItem receives engine interaction events.
func (b *browser) onItem(ev engine.ItemEvent) {
	switch ev.Type() {
	case engine.EventItemClick:
		b.selectPath(ev.Item.Path)
	case engine.EventItemDoubleClick:
		if ev.Item.IsDir() {
			if err := b.open(ev.Item.Path); err != nil {
				b.showError(err)
			}
			return
		}
		b.selectPath(ev.Item.Path)
	case engine.EventItemContextMenu:
		b.selectPath(ev.Item.Path)
		b.details = true
		b.updateStatus()
		b.showMenu(ev)
	}
}

// showMenu pops the item menu up over the tile that was clicked.
func (b *browser) showMenu(ev engine.ItemEvent) {
	if b.window == nil || ev.Handle == nil {
		return
	}
	t, ok := ev.Handle.Element.(*tile)
	if !ok {
		return
	}
	item := ev.Item
	var entries []*fyne.MenuItem
	if item.IsDir() {
		entries = append(entries, fyne.NewMenuItem("Open", func() {
			b.post(func() {
				if err := b.open(item.Path); err != nil {
					b.showError(err)
				}
			})
		}))
	}
	entries = append(entries, fyne.NewMenuItem("Zoom to item", func() {
		b.post(func() {
			scale := 2.0
			if err := b.engine.FocusOnItem(item.Path, &scale); err != nil {
				b.log.Debug().Err(err).Str("path", item.Path).Msg("Focus failed")
			}
		})
	}))
	pos := fyne.CurrentApp().Driver().AbsolutePositionForObject(t)
	widget.ShowPopUpMenuAtPosition(fyne.NewMenu("", entries...), b.window.Canvas(), pos.AddXY(t.Size().Width/2, t.Size().Height/2))
}

func (b *browser) selectPath(path string) {
	b.details = false
	b.selected = path
	b.surface.SetSelected(path)
	b.updateStatus()
	b.engine.ScheduleRender()
}

func (b *browser) observe(s engine.Stats) {
	b.last = s
	b.updateStatus()
	if b.opts.Observer != nil {
		b.opts.Observer.ObserveRender(s)
	}
}

func (b *browser) updateStatus() {
	b.status.SetText(b.statusText())
}

func (b *browser) statusText() string {
	if it, ok := b.engine.Item(b.selected); ok && b.selected != "" {
		if b.details {
			return fmt.Sprintf("%s  %s  %s  modified %s",
				sanitize.DisplayName(it.Path), it.Kind, stringutil.FormatSize(it.SizeBytes), it.ModifiedAt.Format("2006-01-02 15:04"))
		}
		return fmt.Sprintf("%s  %s  %s", sanitize.DisplayName(it.Name), it.FileType, stringutil.FormatSize(it.SizeBytes))
	}
	n := b.engine.Len()
	return fmt.Sprintf("%d %s  %d drawn  zoom %.2f  %.1f ms",
		n, stringutil.Pluralize("item", int64(n)), b.engine.VisibleCount(), b.engine.Transform().Scale, b.last.RenderTimeMs)
}

func (b *browser) showError(err error) {
	b.log.Warn().Err(err).Msg("Browser error")
	if b.window != nil {
		dialog.ShowError(err, b.window)
	}
}

func (b *browser) close() {
	b.session.Close()
	b.engine.Dispose()
}
