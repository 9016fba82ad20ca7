// Package watch keeps a repository in step with edits made outside the
// process by reloading it after file-system changes settle.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/samber/lo"
)

// DefaultDebounce is the quiet period before a reload.
const DefaultDebounce = 200 * time.Millisecond

// Reloader rebuilds its state from disk.
type Reloader interface {
	Reload(ctx context.Context) error
}

// EventCallback is called once per changed path after a successful reload.
// kind is "reloaded"; path is relative to the root with forward slashes.
type EventCallback func(kind string, path string)

// Options configures Watch.
type Options struct {
	// Accepts reports whether a file name is a note file. Nil accepts
	// every non-hidden file.
	Accepts  func(name string) bool
	Debounce time.Duration
	Logger   *slog.Logger
	OnReload EventCallback
}

// Watch starts an fsnotify watcher on root and its subdirectories and
// reloads target whenever note files change, until ctx is cancelled.
//
// Bursts of events are coalesced: the reload runs once the tree has been
// quiet for the debounce period. New directories are watched as they
// appear.
func Watch(ctx context.Context, root string, target Reloader, opts Options) error {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Accepts == nil {
		opts.Accepts = func(name string) bool { return !strings.HasPrefix(name, ".") }
	}
	logger := opts.Logger

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	var timer *time.Timer
	var timerCh <-chan time.Time
	pending := make(map[string]struct{})

	schedule := func(rel string) {
		pending[rel] = struct{}{}
		if timer == nil {
			timer = time.NewTimer(opts.Debounce)
			timerCh = timer.C
		} else {
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(opts.Debounce)
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
			timer, timerCh = nil, nil
			changed := lo.Keys(pending)
			sort.Strings(changed)
			pending = make(map[string]struct{})

			if err := target.Reload(ctx); err != nil {
				logger.Warn("watcher: reload failed", slog.String("error", err.Error()))
				continue
			}
			logger.Debug("watcher: reloaded", slog.Int("changed", len(changed)))
			if opts.OnReload != nil {
				for _, rel := range changed {
					opts.OnReload("reloaded", rel)
				}
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			absPath := ev.Name
			name := filepath.Base(absPath)
			if strings.HasPrefix(name, ".") {
				continue
			}

			rel, relErr := filepath.Rel(root, absPath)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
					// Files may already be inside.
					schedule(rel)
					continue
				}
			}

			if !opts.Accepts(name) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			logger.Debug("watcher: change", slog.String("path", rel), slog.String("op", ev.Op.String()))
			schedule(rel)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirsRecursive adds root and all its non-hidden subdirectories to the
// watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
