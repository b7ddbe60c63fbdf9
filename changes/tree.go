package changes

import (
	"fmt"
	"slices"
)

// Kind is level of the change tree.
type Kind int

const (
	KindRoot Kind = iota
	KindDirectory
	KindFile
	KindSelector
	KindDeclaration
)

func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindDirectory:
		return "directory"
	case KindFile:
		return "file"
	case KindSelector:
		return "selector"
	case KindDeclaration:
		return "declaration"
	}
	return "unknown"
}

// Node is an element of the change tree. Only declaration nodes carry
// Decl and Selector (selector of the path which created or last swapped
// them).
type Node struct {
	Kind     Kind
	Key      string
	Label    string
	Parent   *Node
	Children []*Node

	Decl     *Declaration
	Selector Selector
}

// Path rebuilds candidate path of a declaration node.
func (n *Node) Path() *Path {
	if n.Kind != KindDeclaration {
		return nil
	}
	return &Path{Selector: n.Selector, Declaration: n.Decl}
}

// Leaves returns number of declaration nodes under n.
func (n *Node) Leaves() int {
	if n.Kind == KindDeclaration {
		return 1
	}
	count := 0
	for _, c := range n.Children {
		count += c.Leaves()
	}
	return count
}

func (n *Node) child(key string) (int, *Node) {
	for i, c := range n.Children {
		if c.Key == key {
			return i, c
		}
	}
	return -1, nil
}

// Op is kind of tree modification reported to the listener.
type Op int

const (
	OpInserted Op = iota
	OpSwapped
	OpRemoved
)

func (o Op) String() string {
	switch o {
	case OpInserted:
		return "inserted"
	case OpSwapped:
		return "swapped"
	case OpRemoved:
		return "removed"
	}
	return "unknown"
}

// Listener is notified about every structural modification of the tree.
type Listener func(op Op, n *Node)

// Tree is the root -> directory -> file -> selector -> declaration model of
// pending changes. Tree is not safe for concurrent use, owner serializes
// access to it.
type Tree struct {
	root      *Node
	listeners []Listener
}

func NewTree() *Tree {
	return &Tree{root: &Node{Kind: KindRoot}}
}

// Root returns root node of the tree.
func (t *Tree) Root() *Node {
	return t.root
}

// OnChange registers listener.
func (t *Tree) OnChange(l Listener) {
	t.listeners = append(t.listeners, l)
}

func (t *Tree) notify(op Op, n *Node) {
	for _, l := range t.listeners {
		l(op, n)
	}
}

// Merge adds candidate path to the tree. Existing equal declaration is
// replaced (or removed when incoming synthetic declaration is deleted),
// missing containers are created. Deleted synthetic declaration which is
// not in the tree changes nothing.
func (t *Tree) Merge(p *Path) {
	if p == nil || p.Declaration == nil {
		panic("changes: merge of incomplete path")
	}
	noop := p.Declaration.Synthetic() && p.Declaration.Deleted

	node := t.root
	for _, lv := range p.levels() {
		_, c := node.child(lv.key)
		if c == nil {
			if noop {
				return
			}
			c = &Node{Kind: lv.kind, Key: lv.key, Label: lv.label, Parent: node}
			node.Children = append(node.Children, c)
			t.notify(OpInserted, c)
		} else if c.Kind != lv.kind {
			panic(fmt.Sprintf("changes: unexpected %s node at %s level", c.Kind, lv.kind))
		}
		node = c
	}

	key := p.Declaration.Key()
	i, c := node.child(key)
	switch {
	case c == nil && noop:
		// nothing to create
	case c == nil:
		c = &Node{
			Kind:     KindDeclaration,
			Key:      key,
			Label:    p.Declaration.Property,
			Parent:   node,
			Decl:     p.Declaration,
			Selector: p.Selector,
		}
		node.Children = append(node.Children, c)
		t.notify(OpInserted, c)
	case c.Kind != KindDeclaration:
		panic(fmt.Sprintf("changes: unexpected %s node at declaration level", c.Kind))
	case noop:
		t.Remove(c)
	default:
		swapped := &Node{
			Kind:     KindDeclaration,
			Key:      key,
			Label:    p.Declaration.Property,
			Parent:   node,
			Decl:     p.Declaration,
			Selector: p.Selector,
		}
		node.Children[i] = swapped
		c.Parent = nil
		t.notify(OpSwapped, swapped)
	}
}

// Remove detaches node from the tree together with all ancestors left
// without children.
func (t *Tree) Remove(n *Node) {
	for n != nil && n != t.root {
		parent := n.Parent
		if parent == nil {
			return
		}
		i := slices.Index(parent.Children, n)
		if i < 0 {
			return
		}
		parent.Children = slices.Delete(parent.Children, i, i+1)
		n.Parent = nil
		t.notify(OpRemoved, n)
		if len(parent.Children) != 0 {
			return
		}
		n = parent
	}
}

// Clear removes everything from the tree.
func (t *Tree) Clear() {
	for _, c := range slices.Clone(t.root.Children) {
		c.Parent = nil
		t.notify(OpRemoved, c)
	}
	t.root.Children = nil
}

// Count returns number of declarations in the tree.
func (t *Tree) Count() int {
	return t.root.Leaves()
}

// Empty reports whether tree has no declarations.
func (t *Tree) Empty() bool {
	return len(t.root.Children) == 0
}

// Walk visits nodes in depth first order starting with the root. Children
// are skipped when fn returns false.
func (t *Tree) Walk(fn func(n *Node, depth int) bool) {
	var walk func(n *Node, depth int)
	walk = func(n *Node, depth int) {
		if !fn(n, depth) {
			return
		}
		for _, c := range n.Children {
			walk(c, depth+1)
		}
	}
	walk(t.root, 0)
}

// Leaves returns all declaration nodes in tree order.
func (t *Tree) Leaves() []*Node {
	var res []*Node
	t.Walk(func(n *Node, _ int) bool {
		if n.Kind == KindDeclaration {
			res = append(res, n)
		}
		return true
	})
	return res
}

// Paths returns candidate paths of all declarations in tree order.
func (t *Tree) Paths() []*Path {
	leaves := t.Leaves()
	res := make([]*Path, len(leaves))
	for i, l := range leaves {
		res[i] = l.Path()
	}
	return res
}
