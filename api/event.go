package api

// EventKind classifies an Event.
type EventKind string

const (
	EventNodeAdded     EventKind = "nodeAdded"
	EventNodeUpdated   EventKind = "nodeUpdated"
	EventNodeAttached  EventKind = "nodeAttached"
	EventNodeDetached  EventKind = "nodeDetached"
	EventNodeDeleted   EventKind = "nodeDeleted"
	EventZIndexChanged EventKind = "zIndexChanged"
	EventPropsChanged  EventKind = "propsChanged"
)

// Event describes one effect of an accepted mutation. Hosts use events to
// maintain side tables keyed by node id (registries, selection, caches)
// instead of reaching into shared state.
type Event struct {
	Kind     EventKind `json:"kind"`
	ID       string    `json:"id"`
	ParentID string    `json:"parentId,omitempty"`
	// SourceID is the original node a copied node was duplicated from.
	SourceID string `json:"sourceId,omitempty"`
	// Subtree lists every id affected by a structural event, ID first.
	Subtree []string `json:"subtree,omitempty"`
	// Keys lists the property names touched by EventPropsChanged.
	Keys   []string `json:"keys,omitempty"`
	ZIndex int      `json:"zIndex,omitempty"`
}

// Evicts reports whether the event invalidates host-side entries for the ids
// in Subtree.
func (e Event) Evicts() bool {
	return e.Kind == EventNodeDetached || e.Kind == EventNodeDeleted
}
