// Package watch re-runs a scan whenever files under the root change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const DefaultDebounce = 300 * time.Millisecond

type Options struct {
	Root string
	// IgnoreDirs are directory base names that are neither watched nor
	// allowed to trigger a scan.
	IgnoreDirs map[string]struct{}
	Debounce   time.Duration
	Logger     *zap.SugaredLogger
	// Scan runs once at startup and again after each burst of changes.
	// Its error is logged; watching continues.
	Scan func(ctx context.Context) error
}

// Run watches opts.Root recursively until ctx is done. Changes are
// debounced so a burst of saves produces one scan.
func Run(ctx context.Context, opts Options) error {
	if opts.Scan == nil {
		return errors.New("watch: scan function is required")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return fmt.Errorf("resolve watch root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("stat watch root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch root must be a directory: %s", root)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch init: %w", err)
	}
	defer watcher.Close()

	if err := addRecursive(watcher, root, opts.IgnoreDirs); err != nil {
		return err
	}

	runScan := func() {
		if err := opts.Scan(ctx); err != nil && ctx.Err() == nil {
			opts.Logger.Warnw("scan failed", "error", err)
		}
	}
	runScan()

	trigger := make(chan struct{}, 1)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-trigger:
			runScan()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(ev, root, opts.IgnoreDirs) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					if err := addRecursive(watcher, ev.Name, opts.IgnoreDirs); err != nil {
						opts.Logger.Warnw("watch new directory", "dir", ev.Name, "error", err)
					}
				}
			}
			opts.Logger.Debugw("change detected", "path", ev.Name, "op", ev.Op.String())
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(opts.Debounce, func() {
				select {
				case trigger <- struct{}{}:
				default:
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			opts.Logger.Warnw("watch error", "error", err)
		}
	}
}

// relevant drops chmod-only events and anything inside an ignored
// directory.
func relevant(ev fsnotify.Event, root string, ignore map[string]struct{}) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	rel, err := filepath.Rel(root, ev.Name)
	if err != nil {
		return false
	}
	for dir := filepath.Dir(rel); dir != "." && dir != string(filepath.Separator); dir = filepath.Dir(dir) {
		if _, skip := ignore[filepath.Base(dir)]; skip {
			return false
		}
	}
	_, skip := ignore[filepath.Base(rel)]
	return !skip
}

func addRecursive(w *fsnotify.Watcher, root string, ignore map[string]struct{}) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root {
			if _, skip := ignore[d.Name()]; skip {
				return filepath.SkipDir
			}
		}
		if err := w.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}
