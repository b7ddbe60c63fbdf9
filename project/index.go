// Package project maintains structural index of all stylesheets under a
// project root.
package project

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"cssfire/common"
	"cssfire/css"
)

// Options control which files are indexed.
type Options struct {
	// Extensions of indexed files, with leading dot.
	Extensions []string
	// Ignore lists directory names which are never descended into.
	Ignore []string
	// Workers limits number of files parsed in parallel, 0 means number of
	// CPUs.
	Workers int
}

type entry struct {
	sheet *css.Stylesheet
	enc   sourceEncoding
	mode  fs.FileMode
}

// Index keeps parsed stylesheets of a project. Readers work with immutable
// snapshots, every modification produces new snapshot with incremented
// generation.
type Index struct {
	root   string
	opts   Options
	parser *css.Parser
	log    *zap.Logger

	mu    sync.Mutex // serializes writers
	files map[string]entry
	gen   uint64
	snap  atomic.Pointer[Snapshot]
}

// Open indexes all stylesheets under root.
func Open(ctx context.Context, root string, opts Options, log *zap.Logger) (*Index, error) {
	if log == nil {
		log = zap.NewNop()
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if fi, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("unable to access project root: %w", err)
	} else if !fi.IsDir() {
		return nil, fmt.Errorf("project root '%s' is not a directory", root)
	}
	if len(opts.Extensions) == 0 {
		for _, d := range common.DialectNames() {
			opts.Extensions = append(opts.Extensions, "."+d)
		}
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}

	ix := &Index{
		root:   root,
		opts:   opts,
		parser: css.NewParser(log),
		log:    log.Named("project"),
		files:  make(map[string]entry),
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			ix.log.Warn("Unable to access, skipping", zap.String("path", path), zap.Error(err))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root && ix.ignored(path) {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && ix.Accepts(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unable to scan project: %w", err)
	}

	if _, err := ix.load(ctx, paths); err != nil {
		return nil, err
	}
	ix.log.Debug("Project indexed", zap.String("root", root), zap.Int("files", len(ix.files)))
	return ix, nil
}

// Root returns absolute path of the project root.
func (ix *Index) Root() string {
	return ix.root
}

// Snapshot returns current immutable view of the project.
func (ix *Index) Snapshot() *Snapshot {
	return ix.snap.Load()
}

// Accepts reports whether file belongs to the index judging by its name.
func (ix *Index) Accepts(path string) bool {
	if _, ok := common.DialectFromPath(path); !ok {
		return false
	}
	return slices.Contains(ix.opts.Extensions, strings.ToLower(filepath.Ext(path)))
}

func (ix *Index) ignored(dir string) bool {
	return slices.Contains(ix.opts.Ignore, filepath.Base(dir))
}

// Reload re-reads listed files (removing ones which no longer exist) and
// publishes new snapshot.
func (ix *Index) Reload(ctx context.Context, paths ...string) (*Snapshot, error) {
	return ix.load(ctx, paths)
}

// load parses files in parallel and publishes new snapshot. Files which
// cannot be read are logged and dropped from index.
func (ix *Index) load(ctx context.Context, paths []string) (*Snapshot, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	entries := make([]*entry, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.opts.Workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			e, err := ix.read(path)
			if err != nil {
				if !errors.Is(err, fs.ErrNotExist) {
					ix.log.Warn("Unable to load stylesheet, skipping", zap.String("path", path), zap.Error(err))
				}
				return nil
			}
			entries[i] = e
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, path := range paths {
		if entries[i] == nil {
			delete(ix.files, path)
			continue
		}
		ix.files[path] = *entries[i]
	}
	return ix.publish(), nil
}

func (ix *Index) read(path string) (*entry, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text, enc, err := decodeSource(raw)
	if err != nil {
		return nil, err
	}
	dialect, _ := common.DialectFromPath(path)
	return &entry{
		sheet: ix.parser.Parse(path, dialect, text),
		enc:   enc,
		mode:  fi.Mode().Perm(),
	}, nil
}

// publish must be called with mu held.
func (ix *Index) publish() *Snapshot {
	ix.gen++
	sheets := make([]*css.Stylesheet, 0, len(ix.files))
	for _, e := range ix.files {
		sheets = append(sheets, e.sheet)
	}
	s := newSnapshot(ix.root, ix.gen, sheets)
	ix.snap.Store(s)
	return s
}

// Write stores new content of the files (keyed by absolute path) using
// their original encoding and reloads them. Files which fail to be written
// are reported, the rest is still processed. Paths of successfully written
// files are returned sorted.
func (ix *Index) Write(ctx context.Context, contents map[string][]byte) (*Snapshot, []string, error) {
	var (
		err     error
		written []string
	)

	ix.mu.Lock()
	for path, text := range contents {
		e, ok := ix.files[path]
		if !ok {
			err = multierr.Append(err, fmt.Errorf("file '%s' is not part of the project", path))
			continue
		}
		data, er := e.enc.encode(text)
		if er != nil {
			err = multierr.Append(err, fmt.Errorf("unable to write '%s': %w", path, er))
			continue
		}
		if er := os.WriteFile(path, data, e.mode); er != nil {
			err = multierr.Append(err, fmt.Errorf("unable to write '%s': %w", path, er))
			continue
		}
		written = append(written, path)
	}
	ix.mu.Unlock()

	slices.Sort(written)
	snap, er := ix.load(ctx, written)
	if er != nil {
		err = multierr.Append(err, er)
	}
	if snap == nil {
		snap = ix.Snapshot()
	}
	return snap, written, err
}
