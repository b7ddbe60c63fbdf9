// Package event defines messages pushed by the browser side and their
// decoding.
package event

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"cssfire/route"
)

// Change is a single style edit made in browser. Values are immutable,
// routing produces a modified copy.
type Change struct {
	Media     string `yaml:"media,omitempty"`
	URL       string `yaml:"href,omitempty"`
	Path      string `yaml:"-"`
	Filename  string `yaml:"-"`
	Selector  string `yaml:"selector"`
	Property  string `yaml:"property"`
	Value     string `yaml:"value,omitempty"`
	Deleted   bool   `yaml:"deleted,omitempty"`
	Important bool   `yaml:"important,omitempty"`
}

// NewChange builds change deriving path and file name from stylesheet URL.
func NewChange(media, href, selector, property, value string, deleted, important bool) Change {
	c := Change{
		Media:     media,
		URL:       href,
		Selector:  selector,
		Property:  property,
		Value:     value,
		Deleted:   deleted,
		Important: important,
	}
	c.Path = ExtractPath(href)
	c.Filename = ExtractFilename(c.Path)
	return c
}

func (c Change) String() string {
	return fmt.Sprintf("{media=%s, path=%s, filename=%s, selector=%s, property=%s, value=%s, deleted=%t, important=%t}",
		c.Media, c.Path, c.Filename, c.Selector, c.Property, c.Value, c.Deleted, c.Important)
}

// Validate checks that change has everything needed to be resolved.
func (c Change) Validate() error {
	switch {
	case strings.TrimSpace(c.Selector) == "":
		return fmt.Errorf("change has no selector")
	case strings.TrimSpace(c.Property) == "":
		return fmt.Errorf("change for '%s' has no property", c.Selector)
	}
	return nil
}

// ExtractPath returns path component of the URL. When URL cannot be parsed
// everything before query or fragment is used.
func ExtractPath(href string) string {
	if u, err := url.Parse(href); err == nil && (u.Scheme != "" || u.Host != "" || strings.HasPrefix(href, "/")) {
		return u.Path
	}
	if i := strings.IndexAny(href, "?#"); i >= 0 {
		return href[:i]
	}
	return href
}

// ExtractFilename returns last segment of the path without query.
func ExtractFilename(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return path[strings.LastIndexByte(path, '/')+1:]
}

// Routed returns copy of the change with path and file name pointing to the
// project file selected by routes. Change is returned unmodified when no
// route maps to an existing file.
func (c Change) Routed(routes route.Table, root string) Change {
	target, ok := routes.Detect(c.Path)
	if !ok {
		return c
	}
	if fi, err := os.Stat(target); err != nil || fi.IsDir() {
		return c
	}
	rel, err := filepath.Rel(root, target)
	if err != nil || strings.HasPrefix(rel, "..") {
		return c
	}
	c.Path = "/" + filepath.ToSlash(rel)
	c.Filename = filepath.Base(target)
	return c
}
