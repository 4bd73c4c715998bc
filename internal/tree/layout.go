package tree

import "sort"

// Layout decides which containers are positioning contexts, i.e. whose
// children are absolutely positioned and stacked by z-index. It is keyed by
// widget kind. An empty Layout makes every container a positioning context.
type Layout struct {
	kinds map[string]struct{}
}

// NewLayout returns a Layout in which only containers of the given kinds
// position their children.
func NewLayout(kinds ...string) Layout {
	if len(kinds) == 0 {
		return Layout{}
	}
	l := Layout{kinds: make(map[string]struct{}, len(kinds))}
	for _, k := range kinds {
		l.kinds[k] = struct{}{}
	}
	return l
}

// Positions reports whether a container of the given kind is a positioning
// context.
func (l Layout) Positions(kind string) bool {
	if len(l.kinds) == 0 {
		return true
	}
	_, ok := l.kinds[kind]
	return ok
}

// Kinds returns the configured kinds in sorted order; nil means "all".
func (l Layout) Kinds() []string {
	if len(l.kinds) == 0 {
		return nil
	}
	out := make([]string, 0, len(l.kinds))
	for k := range l.kinds {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
