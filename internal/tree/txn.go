package tree

import (
	"fmt"

	"github.com/agentic-research/canvas/api"
	"src.elv.sh/pkg/persistent/hashmap"
)

// Txn stages writes against a snapshot. Staged maps are persistent, so the
// base snapshot is never touched; dropping a Txn without calling Commit
// discards every staged change.
type Txn struct {
	base     *Snapshot
	nodes    hashmap.Map
	detached hashmap.Map
	dirty    bool
}

// Begin starts a transaction on s.
func (s *Snapshot) Begin() *Txn {
	return &Txn{base: s, nodes: s.nodes, detached: s.detached}
}

// Base returns the snapshot the transaction started from.
func (t *Txn) Base() *Snapshot { return t.base }

// Node returns a live node as staged so far.
func (t *Txn) Node(id string) (*Node, bool) {
	v, ok := t.nodes.Index(id)
	if !ok {
		return nil, false
	}
	return v.(*Node), true
}

// Known reports whether id is in use, live or detached, as staged so far.
func (t *Txn) Known(id string) bool {
	if _, ok := t.nodes.Index(id); ok {
		return true
	}
	_, ok := t.detached.Index(id)
	return ok
}

// Put stages a live node record.
func (t *Txn) Put(n *Node) {
	t.nodes = t.nodes.Assoc(n.id, n)
	t.dirty = true
}

// MaxZ is Snapshot.MaxZ over the staged state.
func (t *Txn) MaxZ(parentID, exclude string) (int, bool) {
	p, ok := t.Node(parentID)
	if !ok {
		return 0, false
	}
	return maxZ(t.nodes, p, exclude)
}

// NextZ returns a z-index strictly above every child of parentID. ok is false
// when that value would exceed TopZ; the children must be renumbered first.
func (t *Txn) NextZ(parentID string) (z int, ok bool) {
	top, found := t.MaxZ(parentID, "")
	if !found {
		return 0, true
	}
	if top >= TopZ {
		return 0, false
	}
	return top + 1, true
}

// Subtree returns the staged live subtree rooted at id in pre-order.
func (t *Txn) Subtree(id string) []string {
	return subtreeIDs(t.nodes, id)
}

// DetachSubtree unlinks a live subtree from its parent and moves every node of
// it into the detached area. The subtree root's parent link is cleared.
func (t *Txn) DetachSubtree(id string) ([]string, error) {
	n, ok := t.Node(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", api.ErrNodeNotFound, id)
	}
	if n.parent == "" {
		return nil, fmt.Errorf("%w: cannot detach the root", api.ErrInvariantViolation)
	}
	ids := t.Subtree(id)
	if err := t.unlink(n); err != nil {
		return nil, err
	}
	for _, sid := range ids {
		v, _ := t.nodes.Index(sid)
		sn := v.(*Node)
		if sid == id {
			sn = sn.WithParent("")
		}
		t.detached = t.detached.Assoc(sid, sn)
		t.nodes = t.nodes.Dissoc(sid)
	}
	t.dirty = true
	return ids, nil
}

// AttachSubtree moves the detached subtree rooted at id back into the live
// tree as a child of parentID at position pos (appended when pos < 0), with
// z-index z.
func (t *Txn) AttachSubtree(id, parentID string, pos, z int) ([]string, error) {
	v, ok := t.detached.Index(id)
	if !ok || v.(*Node).parent != "" {
		return nil, fmt.Errorf("%w: no detached subtree %q", api.ErrNodeNotFound, id)
	}
	p, ok := t.Node(parentID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", api.ErrNodeNotFound, parentID)
	}
	ids := subtreeIDs(t.detached, id)
	for _, sid := range ids {
		v, _ := t.detached.Index(sid)
		sn := v.(*Node)
		if sid == id {
			sn = sn.WithParent(parentID).WithZIndex(z)
		}
		t.nodes = t.nodes.Assoc(sid, sn)
		t.detached = t.detached.Dissoc(sid)
	}
	if pos < 0 {
		pos = p.NumChildren()
	}
	t.Put(p.WithChildAt(id, pos))
	return ids, nil
}

// DeleteSubtree unlinks a live subtree and drops every node of it.
func (t *Txn) DeleteSubtree(id string) ([]string, error) {
	n, ok := t.Node(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", api.ErrNodeNotFound, id)
	}
	if n.parent == "" {
		return nil, fmt.Errorf("%w: cannot delete the root", api.ErrInvariantViolation)
	}
	ids := t.Subtree(id)
	if err := t.unlink(n); err != nil {
		return nil, err
	}
	for _, sid := range ids {
		t.nodes = t.nodes.Dissoc(sid)
	}
	t.dirty = true
	return ids, nil
}

// PurgeDetached drops the detached subtree rooted at id.
func (t *Txn) PurgeDetached(id string) ([]string, error) {
	v, ok := t.detached.Index(id)
	if !ok || v.(*Node).parent != "" {
		return nil, fmt.Errorf("%w: no detached subtree %q", api.ErrNodeNotFound, id)
	}
	ids := subtreeIDs(t.detached, id)
	for _, sid := range ids {
		t.detached = t.detached.Dissoc(sid)
	}
	t.dirty = true
	return ids, nil
}

func (t *Txn) unlink(n *Node) error {
	p, ok := t.Node(n.parent)
	if !ok {
		return fmt.Errorf("%w: parent %q of %q", api.ErrInvariantViolation, n.parent, n.id)
	}
	t.Put(p.WithoutChild(n.id))
	return nil
}

// Dirty reports whether anything was staged.
func (t *Txn) Dirty() bool { return t.dirty }

// Commit returns the snapshot holding every staged change. A transaction with
// nothing staged commits to its base snapshot.
func (t *Txn) Commit() *Snapshot {
	if !t.dirty {
		return t.base
	}
	return &Snapshot{
		root:     t.base.root,
		nodes:    t.nodes,
		detached: t.detached,
		layout:   t.base.layout,
		version:  t.base.version + 1,
	}
}
