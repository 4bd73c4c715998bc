package registry

import (
	"log/slog"

	"github.com/agentic-research/canvas/api"
	"github.com/agentic-research/canvas/internal/journal"
	"github.com/agentic-research/canvas/internal/session"
	"github.com/agentic-research/canvas/internal/tree"
)

// DefaultNameProp is the property Bind reads display names from.
const DefaultNameProp = "displayName"

// Bind keeps r in step with sess: nodes carrying a string nameProp are
// registered under it, evictions follow detach and delete events, and undo or
// redo resynchronize against the new current snapshot. The returned func
// unbinds.
func Bind(sess *session.Session, r *Registry, nameProp string, logger *slog.Logger) (cancel func()) {
	if logger == nil {
		logger = slog.Default()
	}
	b := binder{r: r, prop: nameProp, logger: logger}
	b.scan(sess.Current())
	return sess.Subscribe(b.onChange)
}

type binder struct {
	r      *Registry
	prop   string
	logger *slog.Logger
}

func (b binder) onChange(c session.Change) {
	if c.Op != journal.OpDispatch {
		b.r.Sync(c.After)
		b.scan(c.After)
		return
	}
	b.r.Apply(c.Events)
	for _, ev := range c.Events {
		switch ev.Kind {
		case api.EventNodeAdded, api.EventNodeUpdated, api.EventPropsChanged:
			b.register(c.After, ev.ID)
		case api.EventNodeAttached:
			for _, id := range ev.Subtree {
				b.register(c.After, id)
			}
		}
	}
}

func (b binder) scan(s *tree.Snapshot) {
	s.Walk(func(n *tree.Node, _ int) bool {
		b.register(s, n.ID())
		return true
	})
}

func (b binder) register(s *tree.Snapshot, id string) {
	n, err := s.Node(id)
	if err != nil {
		return
	}
	v, ok := n.Props().Get(b.prop)
	name, isString := v.(string)
	if !ok || !isString || name == "" {
		return
	}
	if err := b.r.Register(id, name); err != nil {
		b.logger.Warn("display name not registered", "id", id, "error", err)
	}
}
