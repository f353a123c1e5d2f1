package tree

import (
	"fmt"
	"strings"
)

// Tree is a parsed source unit. Src is the text every node's
// Start/End offsets refer to.
type Tree struct {
	Name string
	Src  []byte
	Root *Node

	// Data carries profile specific state, such as type information.
	Data any
}

// Node is a single construct of a parsed tree. Children have a fixed
// layout per Kind; an absent optional part is a nil entry.
type Node struct {
	Kind  Kind
	Token string // identifier name, literal text, operator or keyword

	Children  []*Node
	Unordered bool // only meaningful for KindList

	Parent *Node
	Index  int // position in Parent.Children

	Start, End int // byte offsets into Tree.Src

	// Origin is the front-end node this one was built from.
	Origin any

	tree *Tree
}

// New attaches root to a new tree: parent links, sibling indexes and the
// tree back-pointer are filled in for the whole subtree.
func New(name string, src []byte, root *Node) *Tree {
	t := &Tree{Name: name, Src: src, Root: root}
	if root != nil {
		root.attach(t, nil, 0)
	}
	return t
}

func (n *Node) attach(t *Tree, parent *Node, index int) {
	n.tree = t
	n.Parent = parent
	n.Index = index
	for i, c := range n.Children {
		if c != nil {
			c.attach(t, n, i)
		}
	}
}

// Tree returns the tree n belongs to.
func (n *Node) Tree() *Tree { return n.tree }

// Text returns the source text spanned by n.
func (n *Node) Text() string {
	if n == nil || n.tree == nil || n.Start < 0 || n.End > len(n.tree.Src) || n.Start > n.End {
		return ""
	}
	return string(n.tree.Src[n.Start:n.End])
}

// Len returns the number of children.
func (n *Node) Len() int { return len(n.Children) }

// Child returns the i-th child or nil.
func (n *Node) Child(i int) *Node {
	if n == nil || i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

// IsList reports whether n is a KindList node.
func (n *Node) IsList() bool { return n != nil && n.Kind == KindList }

// InList reports whether n is an element of a list of the given category.
// An empty category accepts any list.
func (n *Node) InList(category string) bool {
	if n == nil || n.Parent == nil || n.Parent.Kind != KindList {
		return false
	}
	return category == "" || n.Parent.Token == category
}

// Walk visits n and its descendants in document order. Returning false
// from fn skips the children of the visited node.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Contains reports whether offset lies within n.
func (n *Node) Contains(offset int) bool {
	return n != nil && n.Start <= offset && offset < n.End
}

// Ancestors returns the chain of parents of n, nearest first.
func (n *Node) Ancestors() []*Node {
	var out []*Node
	for p := n.Parent; p != nil; p = p.Parent {
		out = append(out, p)
	}
	return out
}

// Span returns the source range covered by a run of sibling nodes.
func Span(nodes []*Node) (start, end int) {
	if len(nodes) == 0 {
		return 0, 0
	}
	start, end = nodes[0].Start, nodes[len(nodes)-1].End
	for _, n := range nodes {
		if n.Start < start {
			start = n.Start
		}
		if n.End > end {
			end = n.End
		}
	}
	return start, end
}

// Text returns the source text from the first to the last node of a run,
// keeping the original separators between them.
func Text(nodes []*Node) string {
	if len(nodes) == 0 {
		return ""
	}
	t := nodes[0].tree
	if t == nil {
		return ""
	}
	start, end := Span(nodes)
	return string(t.Src[start:end])
}

// Dump renders the subtree rooted at n, one node per line. Used in tests
// and debugging output.
func Dump(n *Node) string {
	var sb strings.Builder
	dump(&sb, n, 0)
	return strings.TrimRight(sb.String(), "\n")
}

func dump(sb *strings.Builder, n *Node, depth int) {
	indent := strings.Repeat("  ", depth)
	if n == nil {
		fmt.Fprintf(sb, "%s<nil>\n", indent)
		return
	}
	if n.Token != "" {
		fmt.Fprintf(sb, "%s%s(%q)\n", indent, n.Kind, n.Token)
	} else {
		fmt.Fprintf(sb, "%s%s\n", indent, n.Kind)
	}
	for _, c := range n.Children {
		dump(sb, c, depth+1)
	}
}
