package css

import (
	"path/filepath"
	"strings"
	"unicode"

	"cssfire/common"
)

// NodeKind identifies structural role of a Node.
type NodeKind int

const (
	KindStylesheet NodeKind = iota
	KindRuleset
	KindBlock
	KindDeclaration
	KindMedia
	KindAtRule
	KindImport
	KindVariable
	KindMixin
	KindInclude
	KindError
)

var kindNames = [...]string{
	KindStylesheet:  "stylesheet",
	KindRuleset:     "ruleset",
	KindBlock:       "block",
	KindDeclaration: "declaration",
	KindMedia:       "media",
	KindAtRule:      "at-rule",
	KindImport:      "import",
	KindVariable:    "variable",
	KindMixin:       "mixin",
	KindInclude:     "include",
	KindError:       "error",
}

func (k NodeKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Node is an element of the structural index of a single stylesheet. Nodes
// are never modified after parsing, any change to the source produces a new
// tree.
//
// Meaning of Name and Text depends on Kind:
//
//	ruleset      Text - selector list
//	declaration  Name - property, Text - value without !important
//	media        Text - media query list
//	at-rule      Name - at-keyword, Text - prelude
//	import       Text - URI
//	variable     Name - variable with sigil ($x, @x), Text - value
//	mixin        Name - mixin name
//	include      Name - included mixin reference
type Node struct {
	Kind     NodeKind
	Parent   *Node
	Children []*Node
	Sheet    *Stylesheet

	Name string
	Text string

	// Start and End delimit node in the source, End is exclusive and
	// includes terminating semicolon or closing brace when present.
	Start, End int
	// ValueStart and ValueEnd delimit Text of declarations and variables.
	ValueStart, ValueEnd int
	// BodyStart and BodyEnd delimit inside of braced body: first byte after
	// '{' and position of '}' (or end of input when brace is missing).
	BodyStart, BodyEnd int

	Important bool
	// Param marks variables declared in mixin parameter list.
	Param bool
	// Broken marks node itself as structurally invalid.
	Broken bool
	// Key identifies node within its stylesheet by content: chain of
	// container selectors and at-rules with sibling ordinals. It survives
	// edits elsewhere in the file.
	Key string

	errs bool
}

// HasErrors reports whether node or anything below it is broken.
func (n *Node) HasErrors() bool {
	return n.errs
}

// Block returns body of a ruleset or mixin.
func (n *Node) Block() *Node {
	for _, c := range n.Children {
		if c.Kind == KindBlock {
			return c
		}
	}
	return nil
}

// Selector returns whitespace normalized selector list of a ruleset.
func (n *Node) Selector() string {
	if n.Kind != KindRuleset {
		return ""
	}
	return Normalize(n.Text)
}

// MixinName returns name under which node may be included as a mixin:
// "@mixin" name or, for rulesets with a single selector, selector text
// without parameter list.
func (n *Node) MixinName() string {
	switch n.Kind {
	case KindMixin:
		return n.Name
	case KindRuleset:
		sel := n.Text
		if i := strings.IndexByte(sel, '('); i >= 0 {
			sel = sel[:i]
		}
		sel = Normalize(sel)
		if sel == "" || strings.ContainsRune(sel, ',') {
			return ""
		}
		return sel
	}
	return ""
}

// Enclosing returns closest ancestor of the requested kind.
func (n *Node) Enclosing(kind NodeKind) *Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Kind == kind {
			return p
		}
	}
	return nil
}

// Media returns normalized query of the closest enclosing @media or empty
// string.
func (n *Node) Media() string {
	if n.Kind == KindMedia {
		return Normalize(n.Text)
	}
	if m := n.Enclosing(KindMedia); m != nil {
		return Normalize(m.Text)
	}
	return ""
}

// Walk visits node and its descendants in document order. Children are
// skipped when fn returns false.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Stylesheet is parsed structural index of a single source file.
type Stylesheet struct {
	Path    string
	Dialect common.Dialect
	Source  []byte
	Root    *Node

	keys map[string]*Node
}

// Name returns base name of the file.
func (s *Stylesheet) Name() string {
	return filepath.Base(s.Path)
}

// Dir returns directory containing the file.
func (s *Stylesheet) Dir() string {
	return filepath.Dir(s.Path)
}

// Find returns node with the given key.
func (s *Stylesheet) Find(key string) *Node {
	return s.keys[key]
}

// Text returns source text covered by the span.
func (s *Stylesheet) Text(start, end int) string {
	if start < 0 || end > len(s.Source) || start > end {
		return ""
	}
	return string(s.Source[start:end])
}

// Normalize trims, collapses whitespace runs into single space and removes
// whitespace directly following a comma.
func Normalize(s string) string {
	var (
		b       strings.Builder
		space   bool
		comma   bool
		written bool
	)
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && written && !comma {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
		written = true
		comma = r == ','
	}
	return b.String()
}

// Words splits text into identifier-like words used for search.
func Words(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !(r == '-' || r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || r > unicode.MaxASCII)
	})
}
