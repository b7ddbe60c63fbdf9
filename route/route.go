// Package route maps URL paths reported by browser to project files.
package route

import (
	"path/filepath"
	"strings"
)

// Mapping binds URL route prefix (or exact URL path for files) to a
// location inside the project.
type Mapping struct {
	// Root is absolute path of directory or file.
	Root string
	// Route is URL path, always starting with "/".
	Route string
	// Dir is set when Root is a directory.
	Dir bool
}

// Table is an ordered list of mappings, earlier mappings win ties.
type Table []Mapping

// Detect returns project location for the URL path. Exact route match
// returns mapping root immediately, otherwise the directory mapping with the
// longest route being a prefix of path (compared by "/" separated segments)
// is used and the rest of the path is resolved under its root.
func (t Table) Detect(path string) (string, bool) {
	var (
		best      *Mapping
		bestParts int
	)
	parts := split(path)
	for i := range t {
		m := &t[i]
		if m.Route == path {
			return m.Root, true
		}
		if !m.Dir {
			continue
		}
		routeParts := split(m.Route)
		if len(routeParts) <= bestParts || !hasPrefix(parts, routeParts) {
			continue
		}
		best, bestParts = m, len(routeParts)
	}
	if best == nil {
		return "", false
	}
	rel := strings.TrimPrefix(path[min(len(best.Route), len(path)):], "/")
	return filepath.Join(best.Root, filepath.FromSlash(rel)), true
}

// split breaks path into "/" separated segments keeping leading empty one,
// trailing empty segments are dropped. Root route is a single empty segment
// so it is a prefix of any absolute path.
func split(path string) []string {
	if path == "/" {
		return []string{""}
	}
	parts := strings.Split(path, "/")
	for len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}

func hasPrefix(parts, prefix []string) bool {
	if len(prefix) > len(parts) {
		return false
	}
	for i, p := range prefix {
		if parts[i] != p {
			return false
		}
	}
	return true
}
