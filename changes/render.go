package changes

import (
	"cssfire/utils/debug"
)

// Render returns textual dump of the tree: containers with number of
// declarations below them and declarations with their new values.
func (t *Tree) Render() string {
	tw := debug.NewTreeWriter()
	if t.Empty() {
		tw.Line(0, "no changes")
		return tw.String()
	}
	t.Walk(func(n *Node, depth int) bool {
		switch n.Kind {
		case KindRoot:
		case KindDeclaration:
			tw.Line(depth-1, "%s", n.Decl)
		default:
			tw.Container(depth-1, n.Label, n.Leaves())
		}
		return true
	})
	return tw.String()
}
