// Package engine applies edit requests to component-tree snapshots.
//
// Every operation is a pure function of (snapshot, request): it performs no
// I/O, never blocks and keeps no state between calls. It returns either the
// next snapshot or a rejection, in which case the input snapshot is returned
// as-is. The only collaborator with state is the Allocator, which the host
// owns and passes in.
package engine

import (
	"github.com/agentic-research/canvas/api"
	"github.com/agentic-research/canvas/internal/tree"
)

// Allocator mints node identifiers. *ident.Allocator satisfies it.
type Allocator interface {
	Next() (string, error)
}

// Result is the outcome of an accepted request.
type Result struct {
	// Snapshot is the next state. It is the input snapshot itself when the
	// request was accepted but had no effect.
	Snapshot *tree.Snapshot
	// Events describe what changed, in application order.
	Events []api.Event
}

// Changed reports whether the request produced a new snapshot.
func (r Result) Changed(from *tree.Snapshot) bool {
	return r.Snapshot != from
}

// maxCollisions bounds how many allocated ids may clash with host-chosen ids
// before allocation gives up.
const maxCollisions = 64

// Apply dispatches req to its operation. On rejection the returned Result
// still carries s, and the error is an *api.Rejection.
func Apply(s *tree.Snapshot, req api.Request, alloc Allocator) (Result, error) {
	var (
		res Result
		err error
	)
	switch r := deref(req).(type) {
	case api.AddOrUpdate:
		res, err = addOrUpdate(s, r, alloc)
	case api.Remove:
		res, err = remove(s, r)
	case api.Copy:
		res, err = copySubtree(s, r, alloc)
	case api.BringToFront:
		res, err = bringToFront(s, r)
	case api.UpdateProps:
		res, err = updateProps(s, r)
	case api.Delete:
		res, err = deleteNode(s, r)
	case nil:
		err = api.Reject("", api.ErrInvariantViolation, "", "nil request")
	default:
		err = api.Reject(req.Kind(), api.ErrInvariantViolation, "", "unsupported request type %T", req)
	}
	if err != nil {
		return Result{Snapshot: s}, err
	}
	return res, nil
}

// deref lets hosts pass requests by pointer.
func deref(req api.Request) api.Request {
	switch r := req.(type) {
	case *api.AddOrUpdate:
		if r != nil {
			return *r
		}
	case *api.Remove:
		if r != nil {
			return *r
		}
	case *api.Copy:
		if r != nil {
			return *r
		}
	case *api.BringToFront:
		if r != nil {
			return *r
		}
	case *api.UpdateProps:
		if r != nil {
			return *r
		}
	case *api.Delete:
		if r != nil {
			return *r
		}
	default:
		return req
	}
	return nil
}

func unchanged(s *tree.Snapshot) (Result, error) {
	return Result{Snapshot: s}, nil
}

// fresh allocates an id not in use in txn and not already minted by the
// current request, and records it in minted.
func fresh(txn *tree.Txn, alloc Allocator, minted map[string]struct{}) (string, error) {
	if alloc == nil {
		return "", api.ErrAllocationExhausted
	}
	for range maxCollisions {
		id, err := alloc.Next()
		if err != nil {
			return "", err
		}
		if id == "" || txn.Known(id) {
			continue
		}
		if _, dup := minted[id]; dup {
			continue
		}
		if minted != nil {
			minted[id] = struct{}{}
		}
		return id, nil
	}
	return "", api.ErrAllocationExhausted
}

// validZ reports whether a requested z-index leaves room above it.
func validZ(z int) bool {
	return z <= tree.TopZ
}

// nextZ returns the z-index for a node placed on top of parentID's children.
// When the top value leaves no room, the children are renumbered first and
// the renumbering is returned as events.
func nextZ(s *tree.Snapshot, txn *tree.Txn, parentID string) (int, []api.Event) {
	if z, ok := txn.NextZ(parentID); ok {
		return z, nil
	}
	top, events := compactZ(s, txn, parentID, "")
	return top + 1, events
}
