// Package view provides read-only projections of a snapshot for renderers,
// tooling and people: a plain JSON-shaped document, JSONPath queries over it,
// an indented text tree and a kind index.
package view

import (
	"github.com/agentic-research/canvas/internal/tree"
)

// Document returns the live tree as nested maps and slices, the shape a
// rendering layer or a JSON encoder expects. Children appear in display order.
func Document(s *tree.Snapshot) map[string]any {
	return nodeDoc(s, s.Root())
}

func nodeDoc(s *tree.Snapshot, n *tree.Node) map[string]any {
	children := make([]any, 0, n.NumChildren())
	kids, _ := s.Children(n.ID())
	for _, c := range kids {
		children = append(children, nodeDoc(s, c))
	}
	doc := map[string]any{
		"id":       n.ID(),
		"kind":     n.Kind(),
		"zIndex":   int64(n.ZIndex()),
		"props":    n.Props().ToMap(),
		"children": children,
	}
	if p := n.ParentID(); p != "" {
		doc["parentId"] = p
	}
	return doc
}

// Flat returns one map per live node in pre-order, each carrying its depth.
func Flat(s *tree.Snapshot) []any {
	out := make([]any, 0, s.Len())
	s.Walk(func(n *tree.Node, depth int) bool {
		out = append(out, map[string]any{
			"id":       n.ID(),
			"kind":     n.Kind(),
			"parentId": n.ParentID(),
			"zIndex":   int64(n.ZIndex()),
			"depth":    int64(depth),
			"props":    n.Props().ToMap(),
		})
		return true
	})
	return out
}
