// Package registry keeps host-side data about placed components, keyed by
// node id and addressable by display name. The tree never reads it; it is kept
// current by feeding it the events the engine emits.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/agentic-research/canvas/api"
	"github.com/agentic-research/canvas/internal/tree"
)

var (
	ErrNotRegistered = errors.New("node not registered")
	ErrNameTaken     = errors.New("display name already registered")
)

// Entry is what the registry knows about one node.
type Entry struct {
	ID          string
	DisplayName string
	Values      api.Props
}

// Registry is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byID   map[string]Entry
	byName map[string]string
}

func New() *Registry {
	return &Registry{
		byID:   make(map[string]Entry),
		byName: make(map[string]string),
	}
}

// Register adds id under displayName, or renames an existing registration.
// Values already set for id are kept.
func (r *Registry) Register(id, displayName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if owner, ok := r.byName[displayName]; ok && owner != id {
		return fmt.Errorf("register %q as %q: %w", id, displayName, ErrNameTaken)
	}
	e := r.byID[id]
	if e.DisplayName != "" {
		delete(r.byName, e.DisplayName)
	}
	e.ID, e.DisplayName = id, displayName
	r.byID[id] = e
	if displayName != "" {
		r.byName[displayName] = id
	}
	return nil
}

// Set stores value under key for a registered node.
func (r *Registry) Set(id, key string, value any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("set %s on %q: %w", key, id, ErrNotRegistered)
	}
	e.Values = e.Values.Merge(api.PropsOf(api.Prop{Key: key, Value: value}))
	r.byID[id] = e
	return nil
}

func (r *Registry) Get(id string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[id]
	return e, ok
}

// Lookup finds a node by display name.
func (r *Registry) Lookup(displayName string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byName[displayName]
	if !ok {
		return Entry{}, false
	}
	return r.byID[id], true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// Names returns every registered display name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Apply evicts every node a detach or delete event names. Detached nodes that
// come back must register again.
func (r *Registry) Apply(events []api.Event) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int
	for _, ev := range events {
		if !ev.Evicts() {
			continue
		}
		ids := ev.Subtree
		if len(ids) == 0 {
			ids = []string{ev.ID}
		}
		for _, id := range ids {
			if r.evict(id) {
				n++
			}
		}
	}
	return n
}

// Sync evicts every node that is not live in s. Hosts call it after undo and
// redo, which move the current snapshot without emitting events.
func (r *Registry) Sync(s *tree.Snapshot) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int
	for id := range r.byID {
		if !s.Has(id) && r.evict(id) {
			n++
		}
	}
	return n
}

func (r *Registry) evict(id string) bool {
	e, ok := r.byID[id]
	if !ok {
		return false
	}
	delete(r.byID, id)
	if e.DisplayName != "" {
		delete(r.byName, e.DisplayName)
	}
	return true
}
