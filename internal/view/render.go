package view

import (
	"fmt"
	"strings"

	"github.com/agentic-research/canvas/internal/tree"
	"github.com/charmbracelet/lipgloss"
	ltree "github.com/charmbracelet/lipgloss/tree"
)

var (
	kindStyle   = lipgloss.NewStyle().Bold(true)
	idStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	zStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	detachStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Italic(true)
)

// Options tune Render.
type Options struct {
	// Props lists property names to show next to each node.
	Props []string
	// Detached includes detached subtrees after the live tree.
	Detached bool
}

// Render draws the live tree, one node per line with its kind, id and
// z-index, children in display order.
func Render(s *tree.Snapshot, opts Options) string {
	var b strings.Builder
	b.WriteString(build(s, s.RootID(), opts, s.Node).String())
	if opts.Detached {
		for _, id := range s.DetachedRoots() {
			b.WriteString("\n")
			b.WriteString(detachStyle.Render("detached"))
			b.WriteString("\n")
			b.WriteString(build(s, id, opts, detachedNode(s)).String())
		}
	}
	return b.String()
}

type lookupFunc func(id string) (*tree.Node, error)

func detachedNode(s *tree.Snapshot) lookupFunc {
	return func(id string) (*tree.Node, error) {
		n, ok := s.Detached(id)
		if !ok {
			return nil, fmt.Errorf("detached node %q missing", id)
		}
		return n, nil
	}
}

func build(s *tree.Snapshot, id string, opts Options, lookup lookupFunc) *ltree.Tree {
	n, err := lookup(id)
	if err != nil {
		return ltree.Root(err.Error())
	}
	t := ltree.Root(label(n, opts))
	for _, c := range n.Children() {
		t.Child(build(s, c, opts, lookup))
	}
	return t
}

func label(n *tree.Node, opts Options) string {
	parts := []string{kindStyle.Render(n.Kind()), idStyle.Render(n.ID())}
	if n.ParentID() != "" {
		parts = append(parts, zStyle.Render(fmt.Sprintf("z=%d", n.ZIndex())))
	}
	p := n.Props()
	for _, k := range opts.Props {
		if v, ok := p.Get(k); ok {
			parts = append(parts, fmt.Sprintf("%s=%v", k, v))
		}
	}
	return strings.Join(parts, " ")
}
