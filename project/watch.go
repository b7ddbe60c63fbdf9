package project

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch follows changes of the project sources on disk until ctx is done.
// Changes are collected for debounce period and then reloaded at once,
// notify (if not nil) receives every published snapshot.
func (ix *Index) Watch(ctx context.Context, debounce time.Duration, notify func(*Snapshot)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("unable to create file watcher: %w", err)
	}
	defer w.Close()

	if err := ix.watchTree(w, ix.root); err != nil {
		return err
	}
	log := ix.log.Named("watch")
	log.Debug("Watching project", zap.String("root", ix.root), zap.Duration("debounce", debounce))

	var (
		pending = make(map[string]struct{})
		timer   *time.Timer
		timerC  <-chan time.Time
	)

	flush := func() {
		if timer != nil {
			timer.Stop()
			timer, timerC = nil, nil
		}
		if len(pending) == 0 {
			return
		}
		paths := make([]string, 0, len(pending))
		for p := range pending {
			paths = append(paths, p)
		}
		clear(pending)
		slices.Sort(paths)

		snap, err := ix.Reload(ctx, paths...)
		if err != nil {
			log.Warn("Unable to reload changed files", zap.Strings("files", paths), zap.Error(err))
			return
		}
		log.Debug("Reloaded changed files", zap.Strings("files", paths), zap.Uint64("generation", snap.Generation()))
		if notify != nil {
			notify(snap)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					if !ix.ignored(ev.Name) {
						if err := ix.watchTree(w, ev.Name); err != nil {
							log.Warn("Unable to watch new directory", zap.String("dir", ev.Name), zap.Error(err))
						}
					}
					continue
				}
			}
			if !ix.Accepts(ev.Name) || ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
				continue
			}
			pending[ev.Name] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(debounce)
				timerC = timer.C
			} else {
				timer.Reset(debounce)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("File watcher error", zap.Error(err))

		case <-timerC:
			flush()
		}
	}
}

// watchTree adds directory and all its subdirectories to the watcher,
// fsnotify is not recursive.
func (ix *Index) watchTree(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != ix.root && ix.ignored(path) {
			return fs.SkipDir
		}
		if err := w.Add(path); err != nil {
			return fmt.Errorf("unable to watch '%s': %w", path, err)
		}
		return nil
	})
}
