package engine

import (
	"github.com/agentic-research/canvas/api"
	"github.com/agentic-research/canvas/internal/tree"
)

// bringToFront lifts a node above all siblings in its positioning context.
// Child-list order is untouched; z-order governs painting. A node already
// strictly on top is left as it is, so repeating the request is a no-op.
func bringToFront(s *tree.Snapshot, r api.BringToFront) (Result, error) {
	const op = api.KindBringToFront

	n, err := s.Node(r.ID)
	if err != nil {
		return Result{}, api.Reject(op, api.ErrNodeNotFound, r.ID, "node does not exist")
	}
	ctx, ok := s.PositionContext(r.ID)
	if !ok {
		return Result{}, api.Reject(op, api.ErrNodeNotFound, r.ID, "node has no positioning context")
	}
	top, hasSiblings := s.MaxZ(ctx, r.ID)
	if !hasSiblings || n.ZIndex() > top {
		return unchanged(s)
	}

	txn := s.Begin()
	var events []api.Event
	if top >= tree.TopZ {
		top, events = compactZ(s, txn, ctx, r.ID)
	}
	z := top + 1
	txn.Put(n.WithZIndex(z))
	events = append(events, api.Event{
		Kind:     api.EventZIndexChanged,
		ID:       r.ID,
		ParentID: ctx,
		ZIndex:   z,
	})
	return Result{Snapshot: txn.Commit(), Events: events}, nil
}

// compactZ renumbers the siblings of skip under parentID to 0..n-1 in paint
// order, so that a new top value fits. It returns the new maximum.
func compactZ(s *tree.Snapshot, txn *tree.Txn, parentID, skip string) (int, []api.Event) {
	order, _ := s.PaintOrder(parentID)
	var events []api.Event
	z := -1
	for _, sib := range order {
		if sib.ID() == skip {
			continue
		}
		z++
		if sib.ZIndex() == z {
			continue
		}
		txn.Put(sib.WithZIndex(z))
		events = append(events, api.Event{
			Kind:     api.EventZIndexChanged,
			ID:       sib.ID(),
			ParentID: parentID,
			ZIndex:   z,
		})
	}
	return z, events
}
