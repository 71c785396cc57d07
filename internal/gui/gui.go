// Package gui is the desktop frontend: a fyne window whose tiles are the
// engine's elements.
package gui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"

	"github.com/rescale/rescale-space/internal/constants"
	"github.com/rescale/rescale-space/internal/logging"
	"github.com/rescale/rescale-space/internal/scheduler"
)

// chromeHeight is the space the toolbar and status line take from the window.
const chromeHeight = 80

// Run opens a window on opts.Dir and blocks until it is closed or ctx ends.
func Run(ctx context.Context, opts Options) error {
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	log := opts.Logger.Component("gui")

	if runtime.GOOS == "linux" {
		if os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
			return fmt.Errorf("GUI mode requires a display. No display detected.\n" +
				"DISPLAY and WAYLAND_DISPLAY are not set.\n" +
				"Use 'rescale-space browse' for the terminal browser")
		}
	}

	a := app.NewWithID("com.rescale.space")
	a.Settings().SetTheme(&spaceTheme{})
	w := a.NewWindow("Rescale Space")
	w.SetMaster()

	// The loop goroutine owns the engine; every callback hops onto fyne's thread.
	loop := scheduler.NewLoop(constants.DefaultFrameInterval,
		scheduler.WithExecutor(fyne.DoAndWait),
		scheduler.WithLogger(opts.Logger))
	b, err := newBrowser(opts, loop, loop.Post)
	if err != nil {
		return err
	}
	b.window = w
	w.SetContent(b.content())
	w.Resize(fyne.NewSize(float32(opts.Config.ViewportWidth), float32(opts.Config.ViewportHeight)+chromeHeight))
	w.CenterOnScreen()
	b.bindKeys(w.Canvas())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	closed := make(chan struct{})
	w.SetOnClosed(func() {
		close(closed)
		cancel()
	})
	go func() {
		select {
		case <-ctx.Done():
			select {
			case <-closed:
			default:
				fyne.Do(a.Quit)
			}
		case <-closed:
		}
	}()

	loopErr := make(chan error, 1)
	go func() { loopErr <- loop.Run(ctx) }()
	loop.Post(func() {
		if err := b.open(opts.Dir); err != nil {
			b.showError(err)
		}
	})

	w.ShowAndRun()
	cancel()

	select {
	case err = <-loopErr:
	case <-time.After(time.Second):
		log.Warn().Msg("Frame loop did not stop in time")
		return nil
	}
	b.close()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
