package opscript

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// CatalogHandler receives the result of each reload.
type CatalogHandler func(*Catalog, error)

// Watcher reloads a catalog when any of its files change on disk.
// Bursts of events are collapsed into one reload.
type Watcher struct {
	primary  string
	user     []string
	files    map[string]bool
	handler  CatalogHandler
	debounce time.Duration
	log      *slog.Logger

	watcher  *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

const DefaultDebounce = 200 * time.Millisecond

// NewWatcher watches the directories holding primary and user. The
// directories are watched rather than the files so that editors which
// save by renaming are seen.
func NewWatcher(handler CatalogHandler, debounce time.Duration, primary string, user ...string) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		primary:  primary,
		user:     user,
		files:    make(map[string]bool),
		handler:  handler,
		debounce: debounce,
		log:      slog.Default().With("component", "catalog-watcher"),
		watcher:  fw,
		done:     make(chan struct{}),
	}
	dirs := make(map[string]bool)
	for _, f := range append([]string{primary}, user...) {
		if f == "" {
			continue
		}
		abs, err := filepath.Abs(f)
		if err != nil {
			fw.Close()
			return nil, err
		}
		w.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, err
		}
	}
	return w, nil
}

// Start processes events until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.loop(ctx)
	}()
}

func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()
	})
	w.wg.Wait()
}

func (w *Watcher) loop(ctx context.Context) {
	var timer *time.Timer
	var timerC <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.files[filepath.Clean(ev.Name)] {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("watching catalog", "err", err)
		case <-timerC:
			timer, timerC = nil, nil
			cat, err := LoadCatalog(w.primary, w.user...)
			if err != nil {
				w.log.Warn("reloading catalog", "err", err)
			} else {
				w.log.Info("catalog reloaded", "operations", cat.Len())
			}
			w.handler(cat, err)
		}
	}
}
