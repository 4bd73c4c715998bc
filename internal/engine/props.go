package engine

import (
	"github.com/agentic-research/canvas/api"
	"github.com/agentic-research/canvas/internal/tree"
)

func updateProps(s *tree.Snapshot, r api.UpdateProps) (Result, error) {
	const op = api.KindUpdateProps

	n, err := s.Node(r.ID)
	if err != nil {
		return Result{}, api.Reject(op, api.ErrNodeNotFound, r.ID, "node does not exist")
	}
	if r.Patch.Len() == 0 {
		return unchanged(s)
	}

	txn := s.Begin()
	txn.Put(n.WithProps(n.Props().Merge(r.Patch)))
	return Result{
		Snapshot: txn.Commit(),
		Events: []api.Event{{
			Kind:     api.EventPropsChanged,
			ID:       r.ID,
			ParentID: n.ParentID(),
			Keys:     r.Patch.Keys(),
		}},
	}, nil
}
