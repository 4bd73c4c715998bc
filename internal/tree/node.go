package tree

import (
	"slices"

	"github.com/agentic-research/canvas/api"
)

// Node is one placed component. Nodes are immutable: every With* method
// returns a modified copy, and Children returns a copy of the child list, so
// a *Node obtained from a snapshot can be shared freely between snapshots and
// goroutines.
type Node struct {
	id       string
	kind     string
	parent   string
	children []string
	props    api.Props
	z        int
}

// NewNode returns a childless node.
func NewNode(id, kind, parent string, props api.Props, z int) *Node {
	return &Node{id: id, kind: kind, parent: parent, props: props, z: z}
}

func (n *Node) ID() string         { return n.id }
func (n *Node) Kind() string       { return n.kind }
func (n *Node) ParentID() string   { return n.parent }
func (n *Node) Props() api.Props   { return n.props }
func (n *Node) ZIndex() int        { return n.z }
func (n *Node) NumChildren() int   { return len(n.children) }
func (n *Node) Children() []string { return slices.Clone(n.children) }

// ChildAt returns the i-th child id.
func (n *Node) ChildAt(i int) string { return n.children[i] }

// ChildIndex returns the position of id among the children, or -1.
func (n *Node) ChildIndex(id string) int {
	return slices.Index(n.children, id)
}

func (n *Node) clone() *Node {
	c := *n
	return &c
}

func (n *Node) WithKind(kind string) *Node {
	c := n.clone()
	c.kind = kind
	return c
}

func (n *Node) WithProps(p api.Props) *Node {
	c := n.clone()
	c.props = p
	return c
}

func (n *Node) WithZIndex(z int) *Node {
	c := n.clone()
	c.z = z
	return c
}

func (n *Node) WithParent(parent string) *Node {
	c := n.clone()
	c.parent = parent
	return c
}

// WithChildren replaces the child list with a copy of ids.
func (n *Node) WithChildren(ids []string) *Node {
	c := n.clone()
	c.children = slices.Clone(ids)
	return c
}

// WithChildAt inserts id at position pos, clamped to [0, NumChildren].
func (n *Node) WithChildAt(id string, pos int) *Node {
	pos = max(0, min(pos, len(n.children)))
	c := n.clone()
	c.children = make([]string, 0, len(n.children)+1)
	c.children = append(c.children, n.children[:pos]...)
	c.children = append(c.children, id)
	c.children = append(c.children, n.children[pos:]...)
	return c
}

// WithChild appends id as the last child.
func (n *Node) WithChild(id string) *Node {
	return n.WithChildAt(id, len(n.children))
}

// WithoutChild drops id from the child list.
func (n *Node) WithoutChild(id string) *Node {
	i := slices.Index(n.children, id)
	if i < 0 {
		return n
	}
	c := n.clone()
	c.children = slices.Delete(slices.Clone(n.children), i, i+1)
	return c
}
