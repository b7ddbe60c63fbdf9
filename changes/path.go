// Package changes keeps the tree of pending source modifications produced
// by incoming browser edits.
package changes

import (
	"fmt"
	"path/filepath"

	"cssfire/css"
)

// Destination tells where a declaration lives or is going to be created.
type Destination int

const (
	// DestExisting is a declaration present in the source.
	DestExisting Destination = iota
	// DestBlock creates declaration at the end of a rule block.
	DestBlock
	// DestMedia creates a new rule inside @media body.
	DestMedia
	// DestRules creates a new rule at the end of the file.
	DestRules
)

func (d Destination) String() string {
	switch d {
	case DestExisting:
		return "existing"
	case DestBlock:
		return "block"
	case DestMedia:
		return "media"
	case DestRules:
		return "rules"
	}
	return "unknown"
}

// Declaration is a leaf of the change tree. Existing declarations are backed
// by a source node, synthetic ones only know where to be created.
type Declaration struct {
	// File is absolute path of the stylesheet.
	File      string
	Property  string
	Value     string
	Important bool
	Deleted   bool

	Dest Destination
	// Source is the matched declaration (existing only).
	Source *css.Node
	// Target is the node whose value is rewritten, differs from Source when
	// value was traced to a variable assignment.
	Target *css.Node
	// Anchor is block, media rule or stylesheet root new text goes into
	// (synthetic only).
	Anchor *css.Node
	// Nested is selector of the rule to create under Anchor, empty when
	// declaration goes directly into Anchor block.
	Nested string
}

// Synthetic reports whether declaration does not exist in the source yet.
func (d *Declaration) Synthetic() bool {
	return d.Dest != DestExisting
}

// Key is identity of the declaration in the tree. Value is never part of it
// so a newer edit of the same property replaces the older one.
func (d *Declaration) Key() string {
	if d.Dest == DestExisting {
		return d.File + "|" + d.Source.Key
	}
	return fmt.Sprintf("%s|%s|%s|%s|%s", d.File, d.Dest, d.Anchor.Key, d.Nested, d.Property)
}

func (d *Declaration) String() string {
	s := d.Property + ": " + d.Value
	if d.Important {
		s += " !important"
	}
	if d.Deleted {
		s = "/* " + s + " */"
	}
	if d.Synthetic() {
		s += " [new " + d.Dest.String()
		if d.Nested != "" {
			s += " " + d.Nested
		}
		s += "]"
	}
	return s
}

// Selector identifies rule the change was made for in browser.
type Selector struct {
	Text  string
	Media string
}

// Key is whitespace normalized selector text. Media does not take part in
// identity.
func (s Selector) Key() string {
	return css.Normalize(s.Text)
}

func (s Selector) String() string {
	if s.Media == "" {
		return s.Key()
	}
	return "@media " + css.Normalize(s.Media) + " " + s.Key()
}

// Path is a single candidate for an incoming change: the declaration to be
// created, updated or deleted together with its containers.
type Path struct {
	Selector    Selector
	Declaration *Declaration
}

// Directory returns directory of the file.
func (p *Path) Directory() string {
	return filepath.Dir(p.Declaration.File)
}

// File returns absolute path of the stylesheet.
func (p *Path) File() string {
	return p.Declaration.File
}

// Media returns media query the path is located under (normalized).
func (p *Path) Media() string {
	return css.Normalize(p.Selector.Media)
}

func (p *Path) String() string {
	return fmt.Sprintf("%s > %s > %s", p.File(), p.Selector, p.Declaration)
}

type level struct {
	kind  Kind
	key   string
	label string
}

// levels returns container levels of the path from the root down to the
// selector.
func (p *Path) levels() [3]level {
	return [3]level{
		{kind: KindDirectory, key: p.Directory(), label: p.Directory()},
		{kind: KindFile, key: p.File(), label: filepath.Base(p.File())},
		{kind: KindSelector, key: p.Selector.Key(), label: p.Selector.String()},
	}
}
