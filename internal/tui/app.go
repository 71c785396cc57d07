package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"

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
)

const doubleClickWindow = 400 * time.Millisecond

// Options configures the terminal browser.
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
	// Screen overrides the terminal; tests pass a simulation screen.
	Screen     tcell.Screen
	CellWidth  float64
	CellHeight float64
	NoWatch    bool
}

// App is the interactive terminal browser. All fields are owned by the loop goroutine.
type App struct {
	opts    Options
	log     *logging.Logger
	screen  tcell.Screen
	surface *Surface
	engine  *engine.Engine
	quit    func()

	session  *browse.Session
	selected string
	details  bool // status shows the selected item's full record

	lastClick     time.Time
	lastClickPath string
	lastButtons   tcell.ButtonMask
}

// Run opens the browser on opts.Dir and blocks until the user quits or ctx ends.
func Run(ctx context.Context, opts Options) error {
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	screen := opts.Screen
	if screen == nil {
		var err error
		if screen, err = tcell.NewScreen(); err != nil {
			return fmt.Errorf("failed to create screen: %w", err)
		}
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("failed to initialise screen: %w", err)
	}
	defer screen.Fini()
	screen.EnableMouse()
	screen.EnableFocus()

	loop := scheduler.NewLoop(constants.DefaultFrameInterval, scheduler.WithLogger(opts.Logger))
	app, err := newApp(opts, screen, loop, loop.Post, loop.Stop)
	if err != nil {
		return err
	}
	defer app.close()

	if err := app.open(opts.Dir); err != nil {
		return err
	}

	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			loop.Post(func() { app.handle(ev) })
		}
	}()

	err = loop.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func newApp(opts Options, screen tcell.Screen, ticker scheduler.Ticker, post func(func()), quit func()) (*App, error) {
	a := &App{
		opts:    opts,
		log:     opts.Logger.Component("tui"),
		screen:  screen,
		surface: NewSurface(screen, opts.CellWidth, opts.CellHeight),
		quit:    quit,
	}

	cfg := opts.Config
	cfg.ViewportWidth, cfg.ViewportHeight = a.surface.PixelSize()
	e, err := engine.New(cfg, a.surface, engine.Services{
		Logger:     opts.Logger,
		Ticker:     ticker,
		Bus:        opts.Bus,
		Observer:   opts.Observer,
		OnInteract: a.onItem,
	})
	if err != nil {
		return nil, err
	}
	a.engine = e
	a.session = browse.New(e, browse.Options{
		List:   opts.List,
		SortBy: opts.SortBy,
		Filter: opts.Filter,
		Views:  opts.Views,
		Watch:  !opts.NoWatch,
		Post:   post,
		Logger: opts.Logger,
	})
	a.surface.StatusFunc = a.statusText
	return a, nil
}

// open switches the browser to dir and clears the selection.
func (a *App) open(dir string) error {
	w, _ := a.surface.PixelSize()
	if err := a.session.Open(dir, w); err != nil {
		return err
	}
	a.selectPath("")
	return nil
}

func (a *App) close() {
	a.session.Close()
	a.engine.Dispose()
}
