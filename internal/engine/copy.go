package engine

import (
	"github.com/agentic-research/canvas/api"
	"github.com/agentic-research/canvas/internal/tree"
)

// copySubtree duplicates the subtree rooted at r.SourceID under the
// destination. Every copied node gets a fresh id, parent/child links inside
// the copy are rewritten to the new ids, and props are deep-cloned so the copy
// and the source never share mutable state.
func copySubtree(s *tree.Snapshot, r api.Copy, alloc Allocator) (Result, error) {
	const op = api.KindCopy

	src, err := s.Node(r.SourceID)
	if err != nil {
		return Result{}, api.Reject(op, api.ErrNodeNotFound, r.SourceID, "source does not exist")
	}
	destID := r.DestinationParentID
	if destID == "" {
		destID = src.ParentID()
		if destID == "" {
			return Result{}, api.Reject(op, api.ErrInvariantViolation, r.SourceID, "the root has no parent to copy beside")
		}
	}
	dest, err := s.Node(destID)
	if err != nil {
		return Result{}, api.Reject(op, api.ErrNodeNotFound, destID, "destination parent does not exist")
	}
	if s.IsAncestor(src.ID(), destID) {
		return Result{}, api.Reject(op, api.ErrInvariantViolation, destID, "destination lies inside the copied subtree")
	}

	ids, _ := s.Descendants(src.ID())
	txn := s.Begin()
	minted := make(map[string]struct{}, len(ids))
	newID := make(map[string]string, len(ids))
	for _, old := range ids {
		id, err := fresh(txn, alloc, minted)
		if err != nil {
			return Result{}, allocationRejection(op, err)
		}
		newID[old] = id
	}

	topZ, events := nextZ(s, txn, destID)
	for _, old := range ids {
		n, _ := s.Node(old)
		parent, z := newID[n.ParentID()], n.ZIndex()
		if old == src.ID() {
			parent, z = destID, topZ
		}
		children := n.Children()
		for i, c := range children {
			children[i] = newID[c]
		}
		id := newID[old]
		txn.Put(tree.NewNode(id, n.Kind(), parent, n.Props().Clone(), z).WithChildren(children))
		events = append(events, api.Event{
			Kind:     api.EventNodeAdded,
			ID:       id,
			ParentID: parent,
			SourceID: old,
			Subtree:  []string{id},
			ZIndex:   z,
		})
	}

	pos := dest.NumChildren()
	if r.Position != nil {
		pos = *r.Position
	}
	txn.Put(dest.WithChildAt(newID[src.ID()], pos))

	return Result{Snapshot: txn.Commit(), Events: events}, nil
}
