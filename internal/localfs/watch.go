package localfs

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/rescale/rescale-space/internal/logging"
	"github.com/rescale/rescale-space/internal/models"
)

// ChangeKind says what happened to a watched entry.
type ChangeKind uint8

const (
	// Upserted means the entry was created or modified; Change.Item is set.
	Upserted ChangeKind = iota + 1
	// Removed means the entry was deleted or renamed away.
	Removed
)

func (k ChangeKind) String() string {
	switch k {
	case Upserted:
		return "upserted"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// Change is one filesystem change inside a watched directory.
type Change struct {
	Kind ChangeKind
	Path string
	Item models.Item
}

// Watcher reports changes to the direct entries of one directory.
type Watcher struct {
	dir     string
	opts    ListOptions
	watcher *fsnotify.Watcher
	log     *logging.Logger

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Watch starts watching dir. fn is called from the watcher goroutine, so
// callers that own single-threaded state must hop onto their own loop.
func Watch(dir string, opts ListOptions, log *logging.Logger, fn func(Change)) (*Watcher, error) {
	if log == nil {
		log = logging.NewNop()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w := &Watcher{
		dir:     dir,
		opts:    opts,
		watcher: fw,
		log:     log.Component("watch"),
		done:    make(chan struct{}),
	}
	w.wg.Add(1)
	go w.run(fn)
	return w, nil
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Close stops the watcher and waits for its goroutine. Safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}

func (w *Watcher) run(fn func(Change)) {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if c, ok := w.translate(ev); ok {
				fn(c)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Str("dir", w.dir).Msg("Watch error")
		}
	}
}

func (w *Watcher) translate(ev fsnotify.Event) (Change, bool) {
	if filepath.Dir(ev.Name) != filepath.Clean(w.dir) {
		return Change{}, false
	}
	if !w.opts.IncludeHidden && IsHidden(ev.Name) {
		return Change{}, false
	}

	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		return Change{Kind: Removed, Path: ev.Name}, true
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		item, err := StatItem(ev.Name, w.opts)
		if err != nil {
			// gone again before we could stat it
			return Change{Kind: Removed, Path: ev.Name}, true
		}
		return Change{Kind: Upserted, Path: ev.Name, Item: item}, true
	}
	return Change{}, false
}
