package incoming

import (
	"context"
	"errors"
	"slices"
	"strings"

	"go.uber.org/zap"

	"cssfire/changes"
	"cssfire/css"
	"cssfire/event"
	"cssfire/project"
	"cssfire/resolve"
	"cssfire/selector"
)

// discovery finds every place in the project an incoming change may belong
// to. It lives for a single change.
type discovery struct {
	ctx      context.Context
	snap     *project.Snapshot
	ev       event.Change
	settings Settings
	cache    *SearchCache
	resolver *resolve.Resolver
	log      *zap.Logger
}

// candidates returns paths for all matching rules, then for media rules and
// files with the same query and name where no matching rule exists.
func (d *discovery) candidates() ([]*changes.Path, error) {
	rules, nested := d.rules()

	var media []*css.Node
	if d.ev.Media != "" {
		media = slices.Clone(d.cache.Media(d.snap, d.ev.Media))
	}
	var files []*css.Stylesheet
	if d.ev.Filename != "" {
		files = slices.Clone(d.snap.FilesByName(d.ev.Filename))
	}
	d.log.Debug("Searched project",
		zap.String("selector", d.ev.Selector),
		zap.String("word", selector.SearchWord(d.ev.Selector)),
		zap.Int("rules", len(rules)),
		zap.String("nested", nested),
		zap.Int("media", len(media)),
		zap.Int("files", len(files)))

	var res []*changes.Path
	for _, rule := range rules {
		block := rule.Block()
		if block == nil {
			continue
		}
		p, err := d.blockPath(block, nested)
		if err != nil {
			return nil, err
		}
		res = append(res, p)

		files = remove(files, rule.Sheet)
		if m := rule.Enclosing(css.KindMedia); m != nil {
			media = remove(media, m)
		}
	}

	for _, m := range media {
		files = remove(files, m.Sheet)
		res = append(res, d.synthetic(m, changes.DestMedia, ""))
	}

	for _, f := range files {
		res = append(res, d.synthetic(f.Root, changes.DestRules, ""))
	}
	return res, nil
}

// rules returns rulesets matching selector of the change. When nothing
// matches a single selector, its leading tokens are tried dropping one
// trailing token at a time: rules matching the shortened selector get a new
// nested rule for the dropped tail.
func (d *discovery) rules() ([]*css.Node, string) {
	if rules := d.cache.Rules(d.snap, d.ev.Selector); len(rules) > 0 {
		return rules, ""
	}
	p := selector.Parse(d.ev.Selector)
	if len(p) != 1 {
		return nil, ""
	}
	tokens := p[0]
	for k := len(tokens) - 1; k > 0; k-- {
		if rules := d.cache.Rules(d.snap, strings.Join(tokens[:k], " ")); len(rules) > 0 {
			return rules, strings.Join(tokens[k:], " ")
		}
	}
	return nil, ""
}

func (d *discovery) blockPath(block *css.Node, nested string) (*changes.Path, error) {
	if nested != "" {
		return d.synthetic(block, changes.DestBlock, nested), nil
	}
	decl, err := d.declaration(block, make(map[*css.Node]bool))
	if err != nil {
		return nil, err
	}
	if decl == nil {
		return d.synthetic(block, changes.DestBlock, ""), nil
	}
	return d.existing(block, decl)
}

// declaration returns first declaration of the changed property directly
// inside the block and, when enabled, inside bodies of mixins included by
// the block.
func (d *discovery) declaration(block *css.Node, seen map[*css.Node]bool) (*css.Node, error) {
	seen[block] = true
	for _, c := range block.Children {
		if c.Kind == css.KindDeclaration && strings.EqualFold(c.Name, d.ev.Property) {
			return c, nil
		}
	}
	if !d.settings.ResolveMixins || !block.Sheet.Dialect.Nested() {
		return nil, nil
	}
	for _, c := range block.Children {
		if c.Kind != css.KindInclude {
			continue
		}
		def, err := d.resolver.Mixin(d.ctx, c, c.Name)
		if errors.Is(err, resolve.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		body := def.Block()
		if body == nil || seen[body] {
			continue
		}
		if decl, err := d.declaration(body, seen); decl != nil || err != nil {
			return decl, err
		}
	}
	return nil, nil
}

func (d *discovery) existing(block, decl *css.Node) (*changes.Path, error) {
	target := decl
	if d.settings.ResolveVariables && decl.Sheet.Dialect.Nested() {
		v, err := d.resolver.Assignment(d.ctx, decl)
		switch {
		case err == nil:
			d.log.Debug("Value traced to variable", zap.Stringer("declaration", decl), zap.Stringer("variable", v), zap.String("file", v.Sheet.Path))
			target = v
		case !errors.Is(err, resolve.ErrNotFound):
			return nil, err
		}
	}
	return &changes.Path{
		Selector: changes.Selector{Text: d.ev.Selector, Media: block.Media()},
		Declaration: &changes.Declaration{
			File:      decl.Sheet.Path,
			Property:  d.ev.Property,
			Value:     d.ev.Value,
			Important: d.ev.Important,
			Deleted:   d.ev.Deleted,
			Dest:      changes.DestExisting,
			Source:    decl,
			Target:    target,
		},
	}, nil
}

func (d *discovery) synthetic(anchor *css.Node, dest changes.Destination, nested string) *changes.Path {
	return &changes.Path{
		Selector: changes.Selector{Text: d.ev.Selector, Media: anchor.Media()},
		Declaration: &changes.Declaration{
			File:      anchor.Sheet.Path,
			Property:  d.ev.Property,
			Value:     d.ev.Value,
			Important: d.ev.Important,
			Deleted:   d.ev.Deleted,
			Dest:      dest,
			Anchor:    anchor,
			Nested:    nested,
		},
	}
}

func remove[T comparable](s []T, v T) []T {
	return slices.DeleteFunc(s, func(e T) bool { return e == v })
}
