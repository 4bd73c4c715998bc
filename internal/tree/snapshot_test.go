package tree

import (
	"testing"

	"github.com/agentic-research/canvas/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildSample returns root -> {a -> {b, c}, d}.
func buildSample(t *testing.T) *Snapshot {
	t.Helper()
	s := New("root", "canvas")
	txn := s.Begin()
	add := func(id, kind, parent string, z int) {
		p, ok := txn.Node(parent)
		require.True(t, ok, "parent %s", parent)
		txn.Put(NewNode(id, kind, parent, api.Props{}, z))
		txn.Put(p.WithChild(id))
	}
	add("a", "container", "root", 0)
	add("b", "text", "a", 0)
	add("c", "button", "a", 1)
	add("d", "text", "root", 1)
	out := txn.Commit()
	require.NoError(t, Validate(out))
	return out
}

func TestNew_RootOnly(t *testing.T) {
	s := New("root", "canvas", WithRootProps(api.PropsOf(api.Prop{Key: "title", Value: "home"})))

	assert.Equal(t, 1, s.Len())
	assert.Equal(t, "root", s.RootID())
	assert.Equal(t, "canvas", s.Root().Kind())
	assert.Empty(t, s.Root().ParentID())
	v, ok := s.Root().Props().Get("title")
	require.True(t, ok)
	assert.Equal(t, "home", v)
	assert.Equal(t, uint64(0), s.Version())
	assert.NoError(t, Validate(s))
}

func TestSnapshot_Lookups(t *testing.T) {
	s := buildSample(t)

	_, err := s.Node("missing")
	assert.ErrorIs(t, err, api.ErrNodeNotFound)

	p, err := s.Parent("b")
	require.NoError(t, err)
	assert.Equal(t, "a", p.ID())

	p, err = s.Parent("root")
	require.NoError(t, err)
	assert.Nil(t, p)

	children, err := s.Children("a")
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "b", children[0].ID())
	assert.Equal(t, "c", children[1].ID())

	ids, err := s.Descendants("root")
	require.NoError(t, err)
	assert.Equal(t, []string{"root", "a", "b", "c", "d"}, ids)

	assert.True(t, s.IsAncestor("a", "c"))
	assert.True(t, s.IsAncestor("c", "c"))
	assert.False(t, s.IsAncestor("c", "a"))
	assert.False(t, s.IsAncestor("d", "b"))
}

func TestSnapshot_WalkSkipsSubtree(t *testing.T) {
	s := buildSample(t)
	var visited []string
	s.Walk(func(n *Node, depth int) bool {
		visited = append(visited, n.ID())
		return n.ID() != "a"
	})
	assert.Equal(t, []string{"root", "a", "d"}, visited)
}

func TestSnapshot_ChildrenReturnsCopy(t *testing.T) {
	s := buildSample(t)
	a, err := s.Node("a")
	require.NoError(t, err)

	ids := a.Children()
	ids[0] = "tampered"

	again, _ := s.Node("a")
	assert.Equal(t, []string{"b", "c"}, again.Children())
}

func TestSnapshot_PositionContext(t *testing.T) {
	s := buildSample(t)

	ctx, ok := s.PositionContext("b")
	assert.True(t, ok)
	assert.Equal(t, "a", ctx)

	_, ok = s.PositionContext("root")
	assert.False(t, ok)

	_, ok = s.PositionContext("missing")
	assert.False(t, ok)
}

func TestSnapshot_PositionContextFollowsLayout(t *testing.T) {
	s := New("root", "canvas", WithLayout(NewLayout("canvas")))
	txn := s.Begin()
	txn.Put(NewNode("box", "container", "root", api.Props{}, 0))
	txn.Put(s.Root().WithChild("box"))
	box, _ := txn.Node("box")
	txn.Put(NewNode("label", "text", "box", api.Props{}, 0))
	txn.Put(box.WithChild("label"))
	s = txn.Commit()

	_, ok := s.PositionContext("box")
	assert.True(t, ok)
	_, ok = s.PositionContext("label")
	assert.False(t, ok, "containers outside the layout do not stack their children")
	assert.Equal(t, []string{"canvas"}, s.Layout().Kinds())
}

func TestSnapshot_PaintOrder(t *testing.T) {
	s := New("root", "canvas")
	txn := s.Begin()
	root := s.Root()
	for _, c := range []struct {
		id string
		z  int
	}{{"x", 2}, {"y", 0}, {"z", 2}, {"w", 1}} {
		txn.Put(NewNode(c.id, "text", "root", api.Props{}, c.z))
		root = root.WithChild(c.id)
	}
	txn.Put(root)
	s = txn.Commit()

	order, err := s.PaintOrder("root")
	require.NoError(t, err)
	var ids []string
	for _, n := range order {
		ids = append(ids, n.ID())
	}
	assert.Equal(t, []string{"y", "w", "x", "z"}, ids, "ties keep child-list order")

	z, ok := s.MaxZ("root", "")
	assert.True(t, ok)
	assert.Equal(t, 2, z)
	z, ok = s.MaxZ("root", "x")
	assert.True(t, ok)
	assert.Equal(t, 2, z)
	_, ok = s.MaxZ("y", "")
	assert.False(t, ok)
}
