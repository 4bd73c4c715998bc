package engine

import (
	"errors"

	"github.com/agentic-research/canvas/api"
	"github.com/agentic-research/canvas/internal/tree"
)

// addOrUpdate serves both initial placement and later re-sync of a node: it
// patches a live node, re-attaches a detached subtree, or inserts a new node.
func addOrUpdate(s *tree.Snapshot, r api.AddOrUpdate, alloc Allocator) (Result, error) {
	const op = api.KindAddOrUpdate

	if r.ParentID != "" && !s.Has(r.ParentID) {
		return Result{}, api.Reject(op, api.ErrNodeNotFound, r.ParentID, "target parent does not exist")
	}
	if r.ZIndex != nil && !validZ(*r.ZIndex) {
		return Result{}, api.Reject(op, api.ErrInvariantViolation, r.ID, "z-index hint leaves no room above it")
	}

	if r.ID != "" {
		if n, err := s.Node(r.ID); err == nil {
			return update(s, n, r)
		}
		if s.IsDetachedRoot(r.ID) {
			return reattach(s, r)
		}
		if s.Known(r.ID) {
			return Result{}, api.Reject(op, api.ErrInvariantViolation, r.ID, "id belongs to a detached subtree")
		}
	}

	if r.ParentID == "" {
		return Result{}, api.Reject(op, api.ErrNodeNotFound, r.ID, "new node needs a target parent")
	}
	if r.Component == "" {
		return Result{}, api.Reject(op, api.ErrInvariantViolation, r.ID, "new node needs a kind")
	}

	txn := s.Begin()
	id := r.ID
	if id == "" {
		var err error
		if id, err = fresh(txn, alloc, nil); err != nil {
			return Result{}, allocationRejection(op, err)
		}
	}

	parent, _ := txn.Node(r.ParentID)
	var (
		z      int
		events []api.Event
	)
	if r.ZIndex != nil {
		z = *r.ZIndex
	} else {
		z, events = nextZ(s, txn, r.ParentID)
	}
	var props api.Props
	if r.Props != nil {
		props = *r.Props
	}
	txn.Put(tree.NewNode(id, r.Component, r.ParentID, props, z))
	txn.Put(parent.WithChild(id))

	events = append(events, api.Event{
		Kind:     api.EventNodeAdded,
		ID:       id,
		ParentID: r.ParentID,
		Subtree:  []string{id},
		ZIndex:   z,
	})
	return Result{Snapshot: txn.Commit(), Events: events}, nil
}

// update replaces kind, props and z-index of a live node in place. Ancestry
// and sibling order are left alone.
func update(s *tree.Snapshot, n *tree.Node, r api.AddOrUpdate) (Result, error) {
	next := patchNode(n, r)
	if next == n {
		return unchanged(s)
	}
	txn := s.Begin()
	txn.Put(next)
	return Result{
		Snapshot: txn.Commit(),
		Events: []api.Event{{
			Kind:     api.EventNodeUpdated,
			ID:       n.ID(),
			ParentID: n.ParentID(),
			Keys:     updatedKeys(r),
			ZIndex:   next.ZIndex(),
		}},
	}, nil
}

// reattach moves a subtree left by Remove back under r.ParentID.
func reattach(s *tree.Snapshot, r api.AddOrUpdate) (Result, error) {
	const op = api.KindAddOrUpdate

	if r.ParentID == "" {
		return Result{}, api.Reject(op, api.ErrNodeNotFound, r.ID, "re-attach needs a target parent")
	}
	txn := s.Begin()
	var (
		z      int
		events []api.Event
	)
	if r.ZIndex != nil {
		z = *r.ZIndex
	} else {
		z, events = nextZ(s, txn, r.ParentID)
	}
	ids, err := txn.AttachSubtree(r.ID, r.ParentID, -1, z)
	if err != nil {
		return Result{}, api.Reject(op, rootCause(err), r.ID, "%v", err)
	}
	n, _ := txn.Node(r.ID)
	r.ZIndex = nil
	if next := patchNode(n, r); next != n {
		txn.Put(next)
	}
	events = append(events, api.Event{
		Kind:     api.EventNodeAttached,
		ID:       r.ID,
		ParentID: r.ParentID,
		Subtree:  ids,
		ZIndex:   z,
	})
	return Result{Snapshot: txn.Commit(), Events: events}, nil
}

func patchNode(n *tree.Node, r api.AddOrUpdate) *tree.Node {
	next := n
	if r.Component != "" && r.Component != n.Kind() {
		next = next.WithKind(r.Component)
	}
	if r.Props != nil && !r.Props.Equal(n.Props()) {
		next = next.WithProps(*r.Props)
	}
	if r.ZIndex != nil && *r.ZIndex != n.ZIndex() {
		next = next.WithZIndex(*r.ZIndex)
	}
	return next
}

func updatedKeys(r api.AddOrUpdate) []string {
	if r.Props == nil {
		return nil
	}
	return r.Props.Keys()
}

// rootCause maps a wrapped tree error back to its taxonomy sentinel.
func rootCause(err error) error {
	for _, sentinel := range []error{api.ErrNodeNotFound, api.ErrInvariantViolation, api.ErrAllocationExhausted} {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}
	return api.ErrInvariantViolation
}

func allocationRejection(op api.RequestKind, err error) *api.Rejection {
	return api.Reject(op, api.ErrAllocationExhausted, "", "allocate id: %v", err)
}
