package incoming

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"

	"cssfire/changes"
	"cssfire/css"
	"cssfire/project"
)

// ErrStale is returned when pending change refers to source which was
// modified in a way that the change no longer can be located.
var ErrStale = errors.New("source changed, pending change is stale")

// ErrConflict is returned when two pending changes modify the same text.
var ErrConflict = errors.New("conflicting pending changes")

// edit is a single replacement of source text.
type edit struct {
	file       string
	start, end int
	text       string
	leaves     []*changes.Node
	// order keeps tree order of insertions at the same position.
	order int
	// body is set for lines added at the end of a braced body, such edits
	// of one body are combined into one.
	body *bodyAppend
}

// bodyAppend collects lines added at the end of one braced body.
type bodyAppend struct {
	// semi terminates the last statement of the body.
	semi bool
	// move puts closing brace on its own line indented with outer.
	move  bool
	outer string
	lines []string
}

func (b *bodyAppend) text() string {
	var sb strings.Builder
	if b.semi {
		sb.WriteByte(';')
	}
	for _, l := range b.lines {
		sb.WriteByte('\n')
		sb.WriteString(l)
	}
	if b.move {
		sb.WriteByte('\n')
		sb.WriteString(b.outer)
	}
	return sb.String()
}

// editFor computes text modification realizing declaration node against
// the current snapshot.
func editFor(snap *project.Snapshot, leaf *changes.Node) (*edit, error) {
	d := leaf.Decl
	if d.Synthetic() {
		e, err := insertion(snap, leaf)
		if err != nil {
			return nil, err
		}
		e.leaves = []*changes.Node{leaf}
		return e, nil
	}

	src, err := locate(snap, d.Source)
	if err != nil {
		return nil, err
	}
	if src.Kind != css.KindDeclaration || !strings.EqualFold(src.Name, d.Property) {
		return nil, fmt.Errorf("%w: '%s' is no longer declared at %s", ErrStale, d.Property, src.Key)
	}
	data := src.Sheet.Source

	switch {
	case d.Deleted:
		start, end := wholeLines(data, src.Start, src.End)
		return &edit{file: src.Sheet.Path, start: start, end: end, leaves: []*changes.Node{leaf}}, nil

	case d.Important == src.Important:
		target := src
		if d.Target != nil && d.Target != d.Source {
			if target, err = locate(snap, d.Target); err != nil {
				return nil, err
			}
		}
		return &edit{
			file:   target.Sheet.Path,
			start:  target.ValueStart,
			end:    target.ValueEnd,
			text:   d.Value,
			leaves: []*changes.Node{leaf},
		}, nil

	default:
		end := src.End
		if end > src.Start && data[end-1] == ';' {
			end--
		}
		return &edit{
			file:   src.Sheet.Path,
			start:  src.Start,
			end:    end,
			text:   declaration(src.Name, d.Value, d.Important, false),
			leaves: []*changes.Node{leaf},
		}, nil
	}
}

// locate finds counterpart of the node in the snapshot by its key.
func locate(snap *project.Snapshot, n *css.Node) (*css.Node, error) {
	if n == nil || n.Sheet == nil {
		return nil, fmt.Errorf("%w: no source node", ErrStale)
	}
	f := snap.File(n.Sheet.Path)
	if f == nil {
		return nil, fmt.Errorf("%w: file '%s' is gone", ErrStale, n.Sheet.Path)
	}
	cur := f.Find(n.Key)
	if cur == nil || cur.Kind != n.Kind {
		return nil, fmt.Errorf("%w: %s not found in '%s'", ErrStale, n.Key, n.Sheet.Path)
	}
	return cur, nil
}

func insertion(snap *project.Snapshot, leaf *changes.Node) (*edit, error) {
	d := leaf.Decl
	anchor, err := locate(snap, d.Anchor)
	if err != nil {
		return nil, err
	}
	var (
		data = anchor.Sheet.Source
		unit = indentUnit(anchor.Sheet)
		decl = declaration(d.Property, d.Value, d.Important, true)
		sel  = css.Normalize(leaf.Selector.Text)
	)

	switch d.Dest {
	case changes.DestBlock:
		owner := anchor.Parent
		outer := lineIndent(data, owner.Start)
		if d.Nested == "" {
			return appendToBody(anchor, outer, outer+unit+decl), nil
		}
		if anchor.Sheet.Dialect.Nested() {
			return appendToBody(anchor, outer, rule(outer+unit, d.Nested, unit, decl)), nil
		}
		// plain stylesheets get a sibling rule with the full selector
		text := "\n\n" + rule(outer, sel, unit, decl)
		return &edit{file: anchor.Sheet.Path, start: owner.End, end: owner.End, text: text}, nil

	case changes.DestMedia:
		outer := lineIndent(data, anchor.Start)
		return appendToBody(anchor, outer, rule(outer+unit, sel, unit, decl)), nil

	case changes.DestRules:
		var text string
		if len(data) > 0 {
			if data[len(data)-1] != '\n' {
				text = "\n"
			}
			text += "\n"
		}
		text += rule("", sel, unit, decl) + "\n"
		return &edit{file: anchor.Sheet.Path, start: len(data), end: len(data), text: text}, nil
	}
	return nil, fmt.Errorf("unexpected destination %s", d.Dest)
}

// appendToBody inserts line at the end of braced body of the node (block,
// media or at-rule), terminating previous statement when necessary.
func appendToBody(n *css.Node, outer, line string) *edit {
	data := n.Sheet.Source
	body := data[n.BodyStart:n.BodyEnd]

	last := len(bytes.TrimRight(body, " \t\r\n"))
	tail := body[last:]

	b := &bodyAppend{outer: outer, lines: []string{line}}
	if last > 0 {
		if c := body[last-1]; c != ';' && c != '{' && c != '}' {
			b.semi = true
		}
	}

	e := &edit{file: n.Sheet.Path, start: n.BodyStart + last, end: n.BodyStart + last, body: b}
	if bytes.IndexByte(tail, '\n') < 0 {
		// body closes on the same line, move closing brace to its own one
		e.end = n.BodyEnd
		b.move = true
	}
	e.text = b.text()
	return e
}

func rule(indent, sel, unit, decl string) string {
	return indent + sel + " {\n" + indent + unit + decl + "\n" + indent + "}"
}

func declaration(property, value string, important, terminate bool) string {
	s := property + ": " + value
	if important {
		s += " !important"
	}
	if terminate {
		s += ";"
	}
	return s
}

// wholeLines extends span to full lines when nothing else is on them.
func wholeLines(data []byte, start, end int) (int, int) {
	ls := bytes.LastIndexByte(data[:start], '\n') + 1
	if len(bytes.TrimSpace(data[ls:start])) != 0 {
		return start, end
	}
	le := len(data)
	if i := bytes.IndexByte(data[end:], '\n'); i >= 0 {
		le = end + i + 1
	}
	if len(bytes.TrimSpace(data[end:le])) != 0 {
		return start, end
	}
	return ls, le
}

// lineIndent returns leading whitespace of the line containing pos.
func lineIndent(data []byte, pos int) string {
	pos = min(pos, len(data))
	ls := bytes.LastIndexByte(data[:pos], '\n') + 1
	i := ls
	for i < pos && (data[i] == ' ' || data[i] == '\t') {
		i++
	}
	return string(data[ls:i])
}

// indentUnit guesses indentation step used by the stylesheet from
// declarations of top level rules.
func indentUnit(sheet *css.Stylesheet) string {
	unit := ""
	sheet.Root.Walk(func(n *css.Node) bool {
		if unit != "" {
			return false
		}
		if n.Kind != css.KindDeclaration || n.Parent == nil || n.Parent.Parent == nil {
			return true
		}
		owner := n.Parent.Parent
		if owner.Parent != sheet.Root || lineIndent(sheet.Source, owner.Start) != "" {
			return true
		}
		unit = lineIndent(sheet.Source, n.Start)
		return true
	})
	if unit == "" {
		return "    "
	}
	return unit
}

// plan groups edits by file and orders them from the end of the file to its
// beginning. Lines appended to the same body are combined, overlapping edits
// are rejected, identical ones are merged.
func plan(edits []*edit) (map[string][]*edit, map[*edit]error) {
	type span struct {
		file       string
		start, end int
	}
	bodies := make(map[span]*edit)

	byFile := make(map[string][]*edit)
	for i, e := range edits {
		if e.body != nil {
			key := span{e.file, e.start, e.end}
			if first, ok := bodies[key]; ok {
				first.body.lines = append(first.body.lines, e.body.lines...)
				first.text = first.body.text()
				first.leaves = append(first.leaves, e.leaves...)
				continue
			}
			bodies[key] = e
		}
		e.order = i
		byFile[e.file] = append(byFile[e.file], e)
	}

	rejected := make(map[*edit]error)
	for file, list := range byFile {
		sort.SliceStable(list, func(i, j int) bool {
			if list[i].start != list[j].start {
				return list[i].start > list[j].start
			}
			if list[i].end != list[j].end {
				return list[i].end > list[j].end
			}
			return list[i].order > list[j].order
		})
		kept := list[:0]
		for _, e := range list {
			if len(kept) == 0 {
				kept = append(kept, e)
				continue
			}
			prev := kept[len(kept)-1]
			switch {
			case e.start == prev.start && e.end == prev.end && e.start != e.end && e.text == prev.text:
				prev.leaves = append(prev.leaves, e.leaves...)
			case e.end <= prev.start:
				kept = append(kept, e)
			default:
				rejected[e] = fmt.Errorf("%w: [%d:%d] overlaps [%d:%d] in '%s'", ErrConflict, e.start, e.end, prev.start, prev.end, file)
			}
		}
		byFile[file] = kept
	}
	return byFile, rejected
}

// render applies edits (ordered by plan) to the source.
func render(data []byte, edits []*edit) []byte {
	out := bytes.Clone(data)
	for _, e := range edits {
		out = append(out[:e.start:e.start], append([]byte(e.text), out[e.end:]...)...)
	}
	return out
}
