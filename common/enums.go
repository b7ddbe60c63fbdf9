// Package common keeps enums shared by the index, the resolver and the
// configuration so neither has to import the other.
package common

import (
	"path/filepath"
	"strings"
)

//go:generate go tool go-enum --names --marshal

// Stylesheet language of a source file.
// ENUM(css, less, scss)
type Dialect int

// Nested reports whether the dialect supports nested rules, variables and
// mixins.
func (d Dialect) Nested() bool {
	return d == DialectLess || d == DialectScss
}

// LineComments reports whether "//" starts a comment.
func (d Dialect) LineComments() bool {
	return d.Nested()
}

// Ext returns file extension used by the dialect.
func (d Dialect) Ext() string {
	return "." + d.String()
}

// DialectFromPath classifies file by its extension.
func DialectFromPath(path string) (Dialect, bool) {
	d, err := ParseDialect(strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."))
	if err != nil {
		return DialectCss, false
	}
	return d, true
}

// Reduction step applied to candidate list.
// ENUM(media, filename, openDocuments, route)
type Reduction int
