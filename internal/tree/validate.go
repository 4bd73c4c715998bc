package tree

import (
	"fmt"

	"github.com/agentic-research/canvas/api"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Validate checks the structural invariants of s and returns an error
// wrapping api.ErrInvariantViolation for the first breach found:
//
//   - exactly one parentless live node, the root, and every other parent
//     link resolves to a live node;
//   - child lists and parent links agree exactly, without duplicates;
//   - the parent relation is acyclic and every live node is reachable
//     from the root;
//   - no id is both live and detached, and detached subtrees are closed;
//   - every positioned sibling group leaves room above its top z-index.
func Validate(s *Snapshot) error {
	violation := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", api.ErrInvariantViolation, fmt.Sprintf(format, args...))
	}

	root, ok := s.lookup(s.root)
	if !ok {
		return violation("root %q missing", s.root)
	}
	if root.parent != "" {
		return violation("root %q has parent %q", root.id, root.parent)
	}

	ordinal := make(map[string]int64, s.nodes.Len())
	g := simple.NewDirectedGraph()
	for it := s.nodes.Iterator(); it.HasElem(); it.Next() {
		k, v := it.Elem()
		n := v.(*Node)
		if k.(string) != n.id {
			return violation("node stored under %q has id %q", k, n.id)
		}
		ordinal[n.id] = int64(len(ordinal))
		g.AddNode(simple.Node(ordinal[n.id]))
	}

	childCount := 0
	for it := s.nodes.Iterator(); it.HasElem(); it.Next() {
		_, v := it.Elem()
		n := v.(*Node)
		if n.id != s.root {
			if n.parent == "" {
				return violation("node %q has no parent but is not the root", n.id)
			}
			p, ok := s.lookup(n.parent)
			if !ok {
				return violation("node %q points to missing parent %q", n.id, n.parent)
			}
			if p.ChildIndex(n.id) < 0 {
				return violation("parent %q does not list child %q", p.id, n.id)
			}
		}

		seen := make(map[string]struct{}, len(n.children))
		for _, c := range n.children {
			if _, dup := seen[c]; dup {
				return violation("node %q lists child %q twice", n.id, c)
			}
			seen[c] = struct{}{}
			if c == n.id {
				return violation("node %q is its own child", n.id)
			}
			child, ok := s.lookup(c)
			if !ok {
				return violation("node %q lists missing child %q", n.id, c)
			}
			if child.parent != n.id {
				return violation("child %q of %q points to parent %q", c, n.id, child.parent)
			}
			g.SetEdge(g.NewEdge(simple.Node(ordinal[n.id]), simple.Node(ordinal[c])))
			childCount++
		}

		if len(n.children) > 0 && s.layout.Positions(n.kind) {
			if z, ok := maxZ(s.nodes, n, ""); ok && z > TopZ {
				return violation("children of %q leave no z-index above %d", n.id, z)
			}
		}
	}
	if childCount != s.nodes.Len()-1 {
		return violation("%d child links for %d non-root nodes", childCount, s.nodes.Len()-1)
	}

	if _, err := topo.Sort(g); err != nil {
		return violation("parent links contain a cycle: %v", err)
	}

	reachable := 0
	s.Walk(func(*Node, int) bool {
		reachable++
		return true
	})
	if reachable != s.nodes.Len() {
		return violation("%d of %d nodes reachable from root", reachable, s.nodes.Len())
	}

	for it := s.detached.Iterator(); it.HasElem(); it.Next() {
		_, v := it.Elem()
		n := v.(*Node)
		if s.Has(n.id) {
			return violation("id %q is both live and detached", n.id)
		}
		if n.parent != "" {
			pv, ok := s.detached.Index(n.parent)
			if !ok || pv.(*Node).ChildIndex(n.id) < 0 {
				return violation("detached node %q has dangling parent %q", n.id, n.parent)
			}
		}
		for _, c := range n.children {
			if _, ok := s.detached.Index(c); !ok {
				return violation("detached node %q lists missing child %q", n.id, c)
			}
		}
	}
	return nil
}
