// Package watch reloads layout fragments when their files change on disk.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounce groups the burst of events editors produce for a single save.
const debounce = 200 * time.Millisecond

// Refresher reloads a fragment and reports whether its content changed.
// *fragment.Cache satisfies it.
type Refresher interface {
	Refresh(ctx context.Context, name string) (bool, error)
}

// Callback is called with the fragment name after its content changed.
type Callback func(name string)

// Watcher observes a fragment directory. It is registered with the OS on
// New so that a caching fetcher can rely on it before Run starts.
type Watcher struct {
	fw     *fsnotify.Watcher
	dir    string
	accept map[string]struct{}
	logger *slog.Logger
}

// New watches dir for changes to <name>.html files. Only names listed in
// names are considered; an empty list accepts every .html file.
func New(dir string, names []string, logger *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}

	accept := make(map[string]struct{}, len(names))
	for _, n := range names {
		accept[n] = struct{}{}
	}
	return &Watcher{fw: fw, dir: dir, accept: accept, logger: logger}, nil
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Close releases the watch. Run closes it on return.
func (w *Watcher) Close() error {
	return w.fw.Close()
}

// Fragments is New followed by Run.
func Fragments(ctx context.Context, dir string, names []string, r Refresher, logger *slog.Logger, cb Callback) error {
	w, err := New(dir, names, logger)
	if err != nil {
		return err
	}
	return w.Run(ctx, r, cb)
}

// Run refreshes changed fragments through r until ctx is cancelled. cb
// (if non-nil) runs for every refresh that changed content, including a
// fragment that disappeared.
func (w *Watcher) Run(ctx context.Context, r Refresher, cb Callback) error {
	defer w.fw.Close()

	logger := w.logger
	accept := w.accept
	logger.Info("watcher: started", slog.String("dir", w.dir))

	pending := make(map[string]struct{})
	var timer *time.Timer
	var timerCh <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			timerCh = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			for name := range pending {
				changed, refreshErr := r.Refresh(ctx, name)
				if refreshErr != nil {
					logger.Warn("watcher: refresh failed",
						slog.String("fragment", name),
						slog.String("error", refreshErr.Error()))
				}
				if changed {
					logger.Debug("watcher: fragment changed", slog.String("fragment", name))
					if cb != nil {
						cb(name)
					}
				}
			}
			clear(pending)

		case ev, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			base := filepath.Base(ev.Name)
			if !strings.HasSuffix(base, ".html") {
				continue
			}
			name := strings.TrimSuffix(base, ".html")
			if len(accept) > 0 {
				if _, ok := accept[name]; !ok {
					continue
				}
			}
			pending[name] = struct{}{}
			schedule()

		case watchErr, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
