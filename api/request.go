// Package api is the dispatch surface of the canvas engine: the closed set of
// edit requests a host can route to the mutation engine, the events emitted
// alongside accepted mutations, and the rejection taxonomy.
package api

// RequestKind names one of the six supported edits. The values match the
// action names of the builder's component reducer so recorded actions can be
// replayed without translation.
type RequestKind string

const (
	KindAddOrUpdate  RequestKind = "addOrUpdateComponent"
	KindRemove       RequestKind = "removeComponent"
	KindCopy         RequestKind = "copyComponentNode"
	KindBringToFront RequestKind = "bringToFront"
	KindUpdateProps  RequestKind = "updateComponentProps"
	KindDelete       RequestKind = "deleteComponentNode"
)

// Kinds lists every request kind in dispatch-table order.
var Kinds = []RequestKind{
	KindRemove,
	KindAddOrUpdate,
	KindCopy,
	KindBringToFront,
	KindUpdateProps,
	KindDelete,
}

// Valid reports whether k is one of the six request kinds.
func (k RequestKind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Request is a tagged edit request. The interface is sealed: only the six
// request structs in this package implement it.
type Request interface {
	Kind() RequestKind
	// Target returns the primary node id the request refers to.
	Target() string
	request()
}

// AddOrUpdate places a new node or patches an existing one.
//
// Component is the component kind (the "kind" field on the wire). If ID
// names a live node, Component and Props replace the node's own (update
// mode). If ID names the root of a detached subtree, the subtree is attached
// under ParentID. Otherwise a new node is appended as the last child of
// ParentID. An empty ID asks the engine to allocate one.
type AddOrUpdate struct {
	ID        string `json:"id"`
	Component string `json:"kind"`
	ParentID  string `json:"parentId"`
	Props     *Props `json:"props,omitempty"`
	ZIndex    *int   `json:"zIndex,omitempty"`
}

// Remove detaches a node and its subtree from the live tree without
// destroying it.
type Remove struct {
	ID string `json:"id"`
}

// Copy duplicates the subtree rooted at SourceID under DestinationParentID
// (the source's own parent when empty). Position, when set, is the insertion
// index among the destination's children.
type Copy struct {
	SourceID            string `json:"sourceId"`
	DestinationParentID string `json:"destinationParentId"`
	Position            *int   `json:"positionHint,omitempty"`
}

// BringToFront raises a node above every sibling in its positioning context.
type BringToFront struct {
	ID string `json:"id"`
}

// UpdateProps merges Patch into the node's properties.
type UpdateProps struct {
	ID    string `json:"id"`
	Patch Props  `json:"propsPatch"`
}

// Delete destroys a node and its subtree permanently.
type Delete struct {
	ID string `json:"id"`
}

func (AddOrUpdate) Kind() RequestKind  { return KindAddOrUpdate }
func (Remove) Kind() RequestKind       { return KindRemove }
func (Copy) Kind() RequestKind         { return KindCopy }
func (BringToFront) Kind() RequestKind { return KindBringToFront }
func (UpdateProps) Kind() RequestKind  { return KindUpdateProps }
func (Delete) Kind() RequestKind       { return KindDelete }

func (r AddOrUpdate) Target() string  { return r.ID }
func (r Remove) Target() string       { return r.ID }
func (r Copy) Target() string         { return r.SourceID }
func (r BringToFront) Target() string { return r.ID }
func (r UpdateProps) Target() string  { return r.ID }
func (r Delete) Target() string       { return r.ID }

func (AddOrUpdate) request()  {}
func (Remove) request()       {}
func (Copy) request()         {}
func (BringToFront) request() {}
func (UpdateProps) request()  {}
func (Delete) request()       {}

// IntPtr is a convenience for filling optional integer hints.
func IntPtr(v int) *int { return &v }
