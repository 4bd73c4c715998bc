// Package tree holds the component tree as immutable snapshots.
//
// A Snapshot maps node ids to node records in a persistent hash map, so
// producing the next snapshot re-associates only the records a mutation
// touched; everything else is shared with the previous snapshot. Retaining a
// long undo history therefore costs O(changed nodes) per step, not a copy of
// the tree.
//
// Snapshots are never modified after Commit and are safe for concurrent
// reads. Writes go through a Txn, which the mutation engine drives.
package tree

import (
	"fmt"
	"math"
	"sort"

	"github.com/agentic-research/canvas/api"
	"src.elv.sh/pkg/persistent/hash"
	"src.elv.sh/pkg/persistent/hashmap"
)

// Snapshot is one immutable state of the component tree.
type Snapshot struct {
	root     string
	nodes    hashmap.Map // id -> *Node, live tree
	detached hashmap.Map // id -> *Node, free-floating subtrees left by Remove
	layout   Layout
	version  uint64
}

// Option configures a new tree.
type Option func(*options)

type options struct {
	layout Layout
	props  api.Props
}

// WithLayout sets which container kinds are positioning contexts.
func WithLayout(l Layout) Option {
	return func(o *options) { o.layout = l }
}

// WithRootProps sets the root node's properties.
func WithRootProps(p api.Props) Option {
	return func(o *options) { o.props = p }
}

func emptyMap() hashmap.Map {
	return hashmap.New(
		func(a, b any) bool { return a.(string) == b.(string) },
		func(k any) uint32 { return hash.String(k.(string)) },
	)
}

// New returns a tree holding only a root node.
func New(rootID, rootKind string, opts ...Option) *Snapshot {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	root := NewNode(rootID, rootKind, "", o.props, 0)
	return &Snapshot{
		root:     rootID,
		nodes:    emptyMap().Assoc(rootID, root),
		detached: emptyMap(),
		layout:   o.layout,
	}
}

// RootID returns the root's id.
func (s *Snapshot) RootID() string { return s.root }

// Root returns the root node.
func (s *Snapshot) Root() *Node {
	n, _ := s.lookup(s.root)
	return n
}

// Layout returns the positioning configuration carried by this lineage.
func (s *Snapshot) Layout() Layout { return s.layout }

// Version counts the mutations committed since New.
func (s *Snapshot) Version() uint64 { return s.version }

// Len returns the number of live nodes, root included.
func (s *Snapshot) Len() int { return s.nodes.Len() }

// DetachedLen returns the number of nodes held in detached subtrees.
func (s *Snapshot) DetachedLen() int { return s.detached.Len() }

func (s *Snapshot) lookup(id string) (*Node, bool) {
	v, ok := s.nodes.Index(id)
	if !ok {
		return nil, false
	}
	return v.(*Node), true
}

// Has reports whether id is a live node.
func (s *Snapshot) Has(id string) bool {
	_, ok := s.nodes.Index(id)
	return ok
}

// Node returns the live node with the given id.
func (s *Snapshot) Node(id string) (*Node, error) {
	n, ok := s.lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", api.ErrNodeNotFound, id)
	}
	return n, nil
}

// Parent returns the parent of a live node, or nil for the root.
func (s *Snapshot) Parent(id string) (*Node, error) {
	n, err := s.Node(id)
	if err != nil {
		return nil, err
	}
	if n.parent == "" {
		return nil, nil
	}
	return s.Node(n.parent)
}

// Children returns the child records of a live node in display order.
func (s *Snapshot) Children(id string) ([]*Node, error) {
	n, err := s.Node(id)
	if err != nil {
		return nil, err
	}
	out := make([]*Node, 0, len(n.children))
	for _, c := range n.children {
		child, ok := s.lookup(c)
		if !ok {
			return nil, fmt.Errorf("%w: child %q of %q", api.ErrInvariantViolation, c, id)
		}
		out = append(out, child)
	}
	return out, nil
}

// Walk visits the live tree in pre-order. Returning false from fn skips the
// node's subtree.
func (s *Snapshot) Walk(fn func(n *Node, depth int) bool) {
	s.walkFrom(s.nodes, s.root, 0, fn)
}

func (s *Snapshot) walkFrom(m hashmap.Map, id string, depth int, fn func(*Node, int) bool) {
	v, ok := m.Index(id)
	if !ok {
		return
	}
	n := v.(*Node)
	if !fn(n, depth) {
		return
	}
	for _, c := range n.children {
		s.walkFrom(m, c, depth+1, fn)
	}
}

// Descendants returns id followed by every node below it, in pre-order.
func (s *Snapshot) Descendants(id string) ([]string, error) {
	if !s.Has(id) {
		return nil, fmt.Errorf("%w: %q", api.ErrNodeNotFound, id)
	}
	return subtreeIDs(s.nodes, id), nil
}

func subtreeIDs(m hashmap.Map, id string) []string {
	var out []string
	stack := []string{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		v, ok := m.Index(cur)
		if !ok {
			continue
		}
		out = append(out, cur)
		n := v.(*Node)
		for i := len(n.children) - 1; i >= 0; i-- {
			stack = append(stack, n.children[i])
		}
	}
	return out
}

// IsAncestor reports whether ancestor is id itself or lies on the path from
// id to the root.
func (s *Snapshot) IsAncestor(ancestor, id string) bool {
	for steps := 0; id != "" && steps <= s.nodes.Len(); steps++ {
		if id == ancestor {
			return true
		}
		n, ok := s.lookup(id)
		if !ok {
			return false
		}
		id = n.parent
	}
	return false
}

// Detached returns a node held in a detached subtree.
func (s *Snapshot) Detached(id string) (*Node, bool) {
	v, ok := s.detached.Index(id)
	if !ok {
		return nil, false
	}
	return v.(*Node), true
}

// IsDetachedRoot reports whether id is the top of a detached subtree.
func (s *Snapshot) IsDetachedRoot(id string) bool {
	n, ok := s.Detached(id)
	return ok && n.parent == ""
}

// DetachedRoots returns the tops of all detached subtrees, sorted.
func (s *Snapshot) DetachedRoots() []string {
	var out []string
	for it := s.detached.Iterator(); it.HasElem(); it.Next() {
		_, v := it.Elem()
		if n := v.(*Node); n.parent == "" {
			out = append(out, n.id)
		}
	}
	sort.Strings(out)
	return out
}

// DetachedSubtree returns the ids of the detached subtree rooted at id, in
// pre-order.
func (s *Snapshot) DetachedSubtree(id string) []string {
	return subtreeIDs(s.detached, id)
}

// Known reports whether id is in use anywhere in the snapshot, live or
// detached.
func (s *Snapshot) Known(id string) bool {
	if s.Has(id) {
		return true
	}
	_, ok := s.detached.Index(id)
	return ok
}

// PositionContext returns the id of the container whose z-order the node
// takes part in. The root, and children of containers the layout does not
// position, have none.
func (s *Snapshot) PositionContext(id string) (string, bool) {
	n, ok := s.lookup(id)
	if !ok || n.parent == "" {
		return "", false
	}
	p, ok := s.lookup(n.parent)
	if !ok || !s.layout.Positions(p.kind) {
		return "", false
	}
	return p.id, true
}

// TopZ is the highest z-index a node in a positioning context may hold. One
// value is kept free above it so that a node can always be raised.
const TopZ = math.MaxInt - 1

// MaxZ returns the largest z-index among the children of parentID, ignoring
// exclude. ok is false when there is no such child.
func (s *Snapshot) MaxZ(parentID, exclude string) (z int, ok bool) {
	p, found := s.lookup(parentID)
	if !found {
		return 0, false
	}
	return maxZ(s.nodes, p, exclude)
}

func maxZ(m hashmap.Map, parent *Node, exclude string) (z int, ok bool) {
	for _, c := range parent.children {
		if c == exclude {
			continue
		}
		v, found := m.Index(c)
		if !found {
			continue
		}
		if cz := v.(*Node).z; !ok || cz > z {
			z, ok = cz, true
		}
	}
	return z, ok
}

// PaintOrder returns the children of parentID from bottom to top: by z-index,
// ties broken by position in the child list.
func (s *Snapshot) PaintOrder(parentID string) ([]*Node, error) {
	children, err := s.Children(parentID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(children, func(i, j int) bool {
		return children[i].z < children[j].z
	})
	return children, nil
}
