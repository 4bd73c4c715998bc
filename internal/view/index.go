package view

import (
	"sort"

	"github.com/RoaringBitmap/roaring"
	"github.com/agentic-research/canvas/internal/tree"
)

// Index answers kind and subtree queries over one snapshot. Nodes are
// numbered in pre-order, so every subtree is a contiguous ordinal range and
// "kind K under node N" is a bitmap intersection.
type Index struct {
	ids    []string
	ord    map[string]uint32
	size   []uint32 // subtree size per ordinal, node included
	byKind map[string]*roaring.Bitmap
}

// NewIndex indexes the live tree of s.
func NewIndex(s *tree.Snapshot) *Index {
	ix := &Index{
		ord:    make(map[string]uint32, s.Len()),
		byKind: make(map[string]*roaring.Bitmap),
	}
	var stack []uint32 // ordinals of the open ancestors
	var depths []int
	s.Walk(func(n *tree.Node, depth int) bool {
		for len(depths) > 0 && depths[len(depths)-1] >= depth {
			ix.close(stack[len(stack)-1])
			stack, depths = stack[:len(stack)-1], depths[:len(depths)-1]
		}
		o := uint32(len(ix.ids))
		ix.ids = append(ix.ids, n.ID())
		ix.size = append(ix.size, 0)
		ix.ord[n.ID()] = o
		bm, ok := ix.byKind[n.Kind()]
		if !ok {
			bm = roaring.New()
			ix.byKind[n.Kind()] = bm
		}
		bm.Add(o)
		stack, depths = append(stack, o), append(depths, depth)
		return true
	})
	for i := len(stack) - 1; i >= 0; i-- {
		ix.close(stack[i])
	}
	return ix
}

func (ix *Index) close(o uint32) {
	ix.size[o] = uint32(len(ix.ids)) - o
}

// Len returns the number of indexed nodes.
func (ix *Index) Len() int { return len(ix.ids) }

// OfKind returns the ids of every node of kind, in pre-order.
func (ix *Index) OfKind(kind string) []string {
	return ix.resolve(ix.byKind[kind])
}

// Within returns the ids of nodes of kind in the subtree rooted at id,
// including id itself.
func (ix *Index) Within(id, kind string) []string {
	o, ok := ix.ord[id]
	bm := ix.byKind[kind]
	if !ok || bm == nil {
		return nil
	}
	r := roaring.New()
	r.AddRange(uint64(o), uint64(o)+uint64(ix.size[o]))
	r.And(bm)
	return ix.resolve(r)
}

// SubtreeSize returns the number of nodes in the subtree rooted at id.
func (ix *Index) SubtreeSize(id string) int {
	o, ok := ix.ord[id]
	if !ok {
		return 0
	}
	return int(ix.size[o])
}

// Kinds returns the node count per kind.
func (ix *Index) Kinds() map[string]int {
	out := make(map[string]int, len(ix.byKind))
	for k, bm := range ix.byKind {
		out[k] = int(bm.GetCardinality())
	}
	return out
}

// KindNames returns the indexed kinds, sorted.
func (ix *Index) KindNames() []string {
	names := make([]string, 0, len(ix.byKind))
	for k := range ix.byKind {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (ix *Index) resolve(bm *roaring.Bitmap) []string {
	if bm == nil || bm.IsEmpty() {
		return nil
	}
	out := make([]string, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		out = append(out, ix.ids[it.Next()])
	}
	return out
}
