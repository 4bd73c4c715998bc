package engine

import (
	"github.com/agentic-research/canvas/api"
	"github.com/agentic-research/canvas/internal/tree"
)

// remove cuts a subtree out of the live tree and keeps it in the snapshot's
// detached area, from where an add-or-update naming its root re-attaches it.
func remove(s *tree.Snapshot, r api.Remove) (Result, error) {
	const op = api.KindRemove

	n, err := s.Node(r.ID)
	if err != nil {
		return Result{}, api.Reject(op, api.ErrNodeNotFound, r.ID, "node is not in the live tree")
	}
	if r.ID == s.RootID() {
		return Result{}, api.Reject(op, api.ErrInvariantViolation, r.ID, "the root cannot be removed")
	}

	txn := s.Begin()
	ids, err := txn.DetachSubtree(r.ID)
	if err != nil {
		return Result{}, api.Reject(op, rootCause(err), r.ID, "%v", err)
	}
	return Result{
		Snapshot: txn.Commit(),
		Events: []api.Event{{
			Kind:     api.EventNodeDetached,
			ID:       r.ID,
			ParentID: n.ParentID(),
			Subtree:  ids,
		}},
	}, nil
}

// deleteNode destroys a live subtree, or purges a detached one.
func deleteNode(s *tree.Snapshot, r api.Delete) (Result, error) {
	const op = api.KindDelete

	if r.ID == s.RootID() {
		return Result{}, api.Reject(op, api.ErrInvariantViolation, r.ID, "the root cannot be deleted")
	}

	txn := s.Begin()
	var (
		ids    []string
		parent string
		err    error
	)
	switch {
	case s.Has(r.ID):
		n, _ := s.Node(r.ID)
		parent = n.ParentID()
		ids, err = txn.DeleteSubtree(r.ID)
	case s.IsDetachedRoot(r.ID):
		ids, err = txn.PurgeDetached(r.ID)
	default:
		return Result{}, api.Reject(op, api.ErrNodeNotFound, r.ID, "node does not exist")
	}
	if err != nil {
		return Result{}, api.Reject(op, rootCause(err), r.ID, "%v", err)
	}
	return Result{
		Snapshot: txn.Commit(),
		Events: []api.Event{{
			Kind:     api.EventNodeDeleted,
			ID:       r.ID,
			ParentID: parent,
			Subtree:  ids,
		}},
	}, nil
}
