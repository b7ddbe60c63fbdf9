// Package resolve finds declarations of preprocessor variables and mixins
// following imports in both directions.
package resolve

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"cssfire/common"
	"cssfire/css"
	"cssfire/project"
)

// ErrNotFound is returned when symbol has no declaration reachable from the
// reference.
var ErrNotFound = errors.New("symbol not found")

// Resolver looks up symbols in a project snapshot. It keeps no state between
// calls and is safe for concurrent use.
type Resolver struct {
	snap *project.Snapshot
	log  *zap.Logger
}

func New(snap *project.Snapshot, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{snap: snap, log: log.Named("resolve")}
}

// Variable returns declaration of the variable (with sigil: "$x" or "@x")
// visible from ref.
func (r *Resolver) Variable(ctx context.Context, ref *css.Node, name string) (*css.Node, error) {
	return r.resolve(ctx, ref, name, variable)
}

// Mixin returns definition of the mixin included by ref.
func (r *Resolver) Mixin(ctx context.Context, ref *css.Node, name string) (*css.Node, error) {
	return r.resolve(ctx, ref, name, mixin)
}

func (r *Resolver) resolve(ctx context.Context, ref *css.Node, name string, sym symbol) (*css.Node, error) {
	if ref == nil || ref.Sheet == nil || name == "" {
		return nil, ErrNotFound
	}
	st := pick(ref.Sheet.Dialect, sym)
	if st == nil {
		return nil, ErrNotFound
	}

	if n := st.local(ref, name); n != nil {
		r.log.Debug("Resolved in local scope", zap.String("name", name), zap.Stringer("node", n))
		return n, nil
	}

	w := &walk{
		ctx:     ctx,
		snap:    r.snap,
		st:      st,
		name:    name,
		visited: make(map[string]struct{}),
	}
	n, err := w.file(ref.Sheet)
	if err != nil {
		return nil, err
	}
	if n == nil {
		r.log.Debug("Unable to resolve", zap.String("name", name), zap.Int("visited", len(w.visited)))
		return nil, ErrNotFound
	}
	r.log.Debug("Resolved", zap.String("name", name), zap.String("file", n.Sheet.Path), zap.Stringer("node", n))
	return n, nil
}

// walk is state of a single resolution. Visited set is only kept for the
// duration of the walk.
type walk struct {
	ctx     context.Context
	snap    *project.Snapshot
	st      strategy
	name    string
	visited map[string]struct{}
}

// file scans stylesheet, then files it imports, then files importing it.
// First match stops the walk.
func (w *walk) file(f *css.Stylesheet) (*css.Node, error) {
	if err := w.ctx.Err(); err != nil {
		return nil, err
	}
	if _, ok := w.visited[f.Path]; ok {
		return nil, nil
	}
	w.visited[f.Path] = struct{}{}
	if !f.Dialect.Nested() {
		return nil, nil
	}

	var (
		found   *css.Node
		imports []*css.Node
	)
	f.Root.Walk(func(n *css.Node) bool {
		if found != nil {
			return false
		}
		if n.Kind == css.KindImport {
			imports = append(imports, n)
			return false
		}
		if w.st.declares(n, w.name) {
			found = n
			return false
		}
		return true
	})
	if found != nil {
		return found, nil
	}

	for _, imp := range imports {
		target := w.snap.ResolveImport(f, imp.Text)
		if target == nil {
			continue
		}
		if n, err := w.file(target); n != nil || err != nil {
			return n, err
		}
	}

	for _, imp := range w.snap.Importers(f) {
		if n, err := w.file(imp.Sheet); n != nil || err != nil {
			return n, err
		}
	}
	return nil, nil
}

type symbol int

const (
	variable symbol = iota
	mixin
)

// strategy captures dialect specific rules of symbol lookup.
type strategy interface {
	// local searches scope enclosing the reference before any file walk.
	local(ref *css.Node, name string) *css.Node
	// declares reports whether node is a valid declaration of name.
	declares(n *css.Node, name string) bool
}

func pick(d common.Dialect, sym symbol) strategy {
	switch d {
	case common.DialectLess:
		if sym == variable {
			return variables{scope: css.KindRuleset}
		}
		return lessMixins{}
	case common.DialectScss:
		if sym == variable {
			return variables{scope: css.KindMixin}
		}
		return scssMixins{}
	}
	return nil
}

// variables looks for variable declarations. Local scope is the closest
// enclosing construct of the scope kind: its parameters and declarations
// directly inside its body.
type variables struct {
	scope css.NodeKind
}

func (v variables) local(ref *css.Node, name string) *css.Node {
	owner := ref.Enclosing(v.scope)
	if owner == nil {
		return nil
	}
	for _, c := range owner.Children {
		if c.Kind == css.KindVariable && c.Name == name {
			return c
		}
	}
	if b := owner.Block(); b != nil {
		for _, c := range b.Children {
			if c.Kind == css.KindVariable && c.Name == name && !b.HasErrors() {
				return c
			}
		}
	}
	return nil
}

func (variables) declares(n *css.Node, name string) bool {
	if n.Kind != css.KindVariable || n.Param || n.Name != name {
		return false
	}
	if n.Parent == nil || n.Parent.Kind == css.KindStylesheet {
		return !n.HasErrors()
	}
	return !n.Parent.HasErrors()
}

type lessMixins struct{}

func (lessMixins) local(*css.Node, string) *css.Node {
	return nil
}

func (lessMixins) declares(n *css.Node, name string) bool {
	return n.Kind == css.KindRuleset && !n.HasErrors() && n.MixinName() == css.Normalize(name)
}

type scssMixins struct{}

func (scssMixins) local(*css.Node, string) *css.Node {
	return nil
}

func (scssMixins) declares(n *css.Node, name string) bool {
	return n.Kind == css.KindMixin && !n.HasErrors() && n.Name == name
}

var reVariableRef = regexp.MustCompile(`^[$@][A-Za-z_-][A-Za-z0-9_-]*$`)

// Reference returns variable name when the whole value is a single
// variable reference of the dialect.
func Reference(d common.Dialect, value string) (string, bool) {
	value = strings.TrimSpace(value)
	if !reVariableRef.MatchString(value) {
		return "", false
	}
	switch {
	case d == common.DialectScss && value[0] == '$':
	case d == common.DialectLess && value[0] == '@':
	default:
		return "", false
	}
	return value, true
}

// Assignment follows chain of assignments starting at declaration (or
// variable) whose value is a single variable reference and returns the last
// variable reached. Loops in the chain are detected and end it.
func (r *Resolver) Assignment(ctx context.Context, decl *css.Node) (*css.Node, error) {
	var (
		last *css.Node
		seen = make(map[*css.Node]bool)
	)
	for cur := decl; cur != nil && !seen[cur]; {
		seen[cur] = true
		name, ok := Reference(cur.Sheet.Dialect, cur.Text)
		if !ok {
			break
		}
		next, err := r.Variable(ctx, cur, name)
		if errors.Is(err, ErrNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}
		last, cur = next, next
	}
	if last == nil {
		return nil, ErrNotFound
	}
	return last, nil
}
