// Package archive reads entries of zip archives produced by debug reports.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"

	"github.com/maruel/natural"
)

// WalkFunc is called for every visited entry with its name inside the
// archive and reader of its content. Reader is valid only during the call.
// If an error is returned, processing stops.
type WalkFunc func(name string, r io.Reader) error

// Walk visits regular entries of the archive whose names start with prefix
// in natural name order. Unsafe entries (absolute or containing "..") abort
// the walk.
func Walk(archive, prefix string, fn WalkFunc) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer r.Close()

	var files []*zip.File
	for _, f := range r.File {
		if !isSafePath(f.Name) {
			return fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", f.Name)
		}
		if !f.FileInfo().IsDir() && strings.HasPrefix(f.Name, prefix) {
			files = append(files, f)
		}
	}
	slices.SortFunc(files, func(a, b *zip.File) int {
		switch {
		case natural.Less(a.Name, b.Name):
			return -1
		case natural.Less(b.Name, a.Name):
			return 1
		}
		return 0
	})

	for _, f := range files {
		if err := visit(f, fn); err != nil {
			return err
		}
	}
	return nil
}

func visit(f *zip.File, fn WalkFunc) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("unable to open zip entry %q: %w", f.Name, err)
	}
	defer rc.Close()
	return fn(f.Name, rc)
}

func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, `\`) {
		return false
	}
	return !slices.Contains(strings.Split(name, "/"), "..")
}
