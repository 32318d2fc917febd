// Package watch schedules incremental indexing from filesystem events so
// interactive sessions do not pay a full rescan on every search.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zoonderkins/augment-lite/internal/chunk"
)

// DefaultDebounce batches event bursts (editor saves, branch switches) into
// one index pass.
const DefaultDebounce = 2 * time.Second

// Watcher observes a project root and invokes the refresh callback after
// changes settle.
type Watcher struct {
	root     string
	debounce time.Duration
	refresh  func(context.Context)
	fsw      *fsnotify.Watcher
}

// New creates a watcher over root. refresh runs on the watcher goroutine
// after each debounced burst.
func New(root string, debounce time.Duration, refresh func(context.Context)) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		root:     root,
		debounce: debounce,
		refresh:  refresh,
		fsw:      fsw,
	}
	if err := w.addRecursive(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// addRecursive watches every non-ignored directory under root.
func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if rel != "." {
			if strings.HasPrefix(d.Name(), ".") || chunk.InIgnoredDir(rel) {
				return filepath.SkipDir
			}
		}
		return w.fsw.Add(path)
	})
}

// Run processes events until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			// New directories need watches of their own.
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.addRecursive(event.Name)
				}
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("watcher_error", slog.String("error", err.Error()))

		case <-timerC:
			timer = nil
			timerC = nil
			w.refresh(ctx)
		}
	}
}

// relevant filters noise: ignored directories, dotfiles, non-indexable
// extensions (except .gitignore, which changes the skip rules themselves).
func (w *Watcher) relevant(event fsnotify.Event) bool {
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	if chunk.InIgnoredDir(rel) {
		return false
	}
	base := filepath.Base(event.Name)
	if base == ".gitignore" {
		return true
	}
	if strings.HasPrefix(base, ".") {
		return false
	}
	if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
		return true
	}
	return chunk.IsIndexable(rel)
}

// Close stops the underlying filesystem watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
