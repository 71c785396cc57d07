package tui

import (
	"errors"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/rescale/rescale-space/internal/browse"
	"github.com/rescale/rescale-space/internal/constants"
	"github.com/rescale/rescale-space/internal/engine"
	"github.com/rescale/rescale-space/internal/util/sanitize"
	stringutil "github.com/rescale/rescale-space/internal/util/strings"
	"github.com/rescale/rescale-space/internal/viewport"
)

// handle processes one terminal event on the loop goroutine.
func (a *App) handle(ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		a.handleKey(ev)
	case *tcell.EventMouse:
		a.handleMouse(ev)
	case *tcell.EventResize:
		a.screen.Sync()
		w, h := a.surface.PixelSize()
		a.engine.Resize(w, h)
		a.engine.ScheduleRender()
	case *tcell.EventFocus:
		a.engine.SetVisible(ev.Focused)
	}
}

func (a *App) handleKey(ev *tcell.EventKey) {
	w, h := a.surface.PixelSize()
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		a.quit()
		return
	case tcell.KeyUp:
		a.engine.PanBy(0, constants.PanStep)
	case tcell.KeyDown:
		a.engine.PanBy(0, -constants.PanStep)
	case tcell.KeyLeft:
		a.engine.PanBy(constants.PanStep, 0)
	case tcell.KeyRight:
		a.engine.PanBy(-constants.PanStep, 0)
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		a.goUp()
	case tcell.KeyEnter:
		a.openSelected()
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			a.quit()
			return
		case 'k':
			a.engine.PanBy(0, constants.PanStep)
		case 'j':
			a.engine.PanBy(0, -constants.PanStep)
		case 'h':
			a.engine.PanBy(constants.PanStep, 0)
		case 'l':
			a.engine.PanBy(-constants.PanStep, 0)
		case '+', '=':
			a.engine.ZoomAt(constants.ZoomStep, w/2, h/2)
		case '-', '_':
			a.engine.ZoomAt(1/constants.ZoomStep, w/2, h/2)
		case '0':
			a.engine.SetTransform(viewport.TransformPatch{
				Scale:      viewport.Float(1),
				TranslateX: viewport.Float(0),
				TranslateY: viewport.Float(0),
			})
		case 'r':
			if err := a.session.Reload(w); err != nil {
				a.log.Warn().Err(err).Msg("Reload failed")
			}
		}
	}
	// status line follows every key
	a.engine.ScheduleRender()
}

func (a *App) handleMouse(ev *tcell.EventMouse) {
	col, row := ev.Position()
	buttons := ev.Buttons()
	pressed := buttons &^ a.lastButtons
	a.lastButtons = buttons & (tcell.Button1 | tcell.Button2 | tcell.Button3)

	px, py := a.surface.CellToPixel(col, row)
	switch {
	case buttons&tcell.WheelUp != 0:
		a.engine.ZoomAt(constants.ZoomStep, px, py)
	case buttons&tcell.WheelDown != 0:
		a.engine.ZoomAt(1/constants.ZoomStep, px, py)
	case pressed&tcell.Button1 != 0:
		el, ok := a.surface.ElementAt(col, row)
		if !ok {
			a.selectPath("")
			break
		}
		now := time.Now()
		if el.item.Path == a.lastClickPath && now.Sub(a.lastClick) <= doubleClickWindow {
			a.lastClickPath = ""
			el.DoubleClick()
			break
		}
		a.lastClick, a.lastClickPath = now, el.item.Path
		el.Click()
	case pressed&(tcell.Button2|tcell.Button3) != 0:
		if el, ok := a.surface.ElementAt(col, row); ok {
			el.ContextMenu()
		}
	}
}

// onItem receives engine interaction events.
func (a *App) onItem(ev engine.ItemEvent) {
	switch ev.Type() {
	case engine.EventItemClick:
		a.selectPath(ev.Item.Path)
	case engine.EventItemDoubleClick:
		if ev.Item.IsDir() {
			if err := a.open(ev.Item.Path); err != nil {
				a.log.Warn().Err(err).Str("path", ev.Item.Path).Msg("Cannot open directory")
			}
			return
		}
		a.selectPath(ev.Item.Path)
	case engine.EventItemContextMenu:
		a.selectPath(ev.Item.Path)
		a.details = true
	}
}

func (a *App) selectPath(path string) {
	a.details = false
	a.selected = path
	a.surface.SetSelected(path)
	a.engine.ScheduleRender()
}

func (a *App) openSelected() {
	if a.selected == "" {
		return
	}
	if item, ok := a.engine.Item(a.selected); ok && item.IsDir() {
		if err := a.open(item.Path); err != nil {
			a.log.Warn().Err(err).Str("path", item.Path).Msg("Cannot open directory")
		}
	}
}

func (a *App) goUp() {
	w, _ := a.surface.PixelSize()
	if err := a.session.Up(w); err != nil {
		if !errors.Is(err, browse.ErrAtRoot) {
			a.log.Warn().Err(err).Msg("Cannot open parent")
		}
		return
	}
	a.selectPath("")
}

// statusText is evaluated by the surface on every present.
func (a *App) statusText() string {
	if it, ok := a.engine.Item(a.selected); ok && a.selected != "" {
		if a.details {
			return fmt.Sprintf(" %s  %s  %s  modified %s",
				sanitize.DisplayName(it.Path), it.Kind, stringutil.FormatSize(it.SizeBytes), it.ModifiedAt.Format("2006-01-02 15:04"))
		}
		return fmt.Sprintf(" %s  %s  %s", sanitize.DisplayName(it.Name), it.FileType, stringutil.FormatSize(it.SizeBytes))
	}
	n := a.engine.Len()
	return fmt.Sprintf(" %s  %d %s  %d drawn  zoom %.2f  [hjkl/arrows pan, +/- zoom, backspace up, q quit]",
		sanitize.DisplayName(a.session.Dir()), n, stringutil.Pluralize("item", int64(n)), a.engine.VisibleCount(), a.engine.Transform().Scale)
}
