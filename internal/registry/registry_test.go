package registry

import (
	"testing"

	"github.com/agentic-research/canvas/api"
	"github.com/agentic-research/canvas/internal/engine"
	"github.com/agentic-research/canvas/internal/ident"
	"github.com/agentic-research/canvas/internal/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterLookupSet(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("n-1", "salesChart"))
	require.NoError(t, r.Set("n-1", "data", []any{1, 2}))
	require.NoError(t, r.Set("n-1", "title", "Q3"))

	e, ok := r.Lookup("salesChart")
	require.True(t, ok)
	assert.Equal(t, "n-1", e.ID)
	assert.Equal(t, []string{"data", "title"}, e.Values.Keys())

	assert.ErrorIs(t, r.Set("n-2", "x", 1), ErrNotRegistered)
	assert.ErrorIs(t, r.Register("n-2", "salesChart"), ErrNameTaken)

	require.NoError(t, r.Register("n-1", "revenueChart"))
	_, ok = r.Lookup("salesChart")
	assert.False(t, ok)
	e, ok = r.Lookup("revenueChart")
	require.True(t, ok)
	assert.Equal(t, 2, e.Values.Len(), "rename keeps values")
	assert.Equal(t, []string{"revenueChart"}, r.Names())
}

func TestRegistry_ApplyEvictsDetachedAndDeleted(t *testing.T) {
	alloc := ident.New(ident.WithPrefix("r"))
	s := tree.New("root", "canvas")
	step := func(req api.Request) []api.Event {
		res, err := engine.Apply(s, req, alloc)
		require.NoError(t, err)
		s = res.Snapshot
		return res.Events
	}
	r := New()

	step(api.AddOrUpdate{ID: "form", Component: "form", ParentID: "root"})
	step(api.AddOrUpdate{ID: "name", Component: "input", ParentID: "form"})
	step(api.AddOrUpdate{ID: "chart", Component: "chart", ParentID: "root"})
	for id, name := range map[string]string{"form": "form1", "name": "nameInput", "chart": "chart1"} {
		require.NoError(t, r.Register(id, name))
	}

	assert.Zero(t, r.Apply(step(api.UpdateProps{ID: "chart", Patch: api.PropsOf(api.Prop{Key: "k", Value: 1})})))
	assert.Equal(t, 2, r.Apply(step(api.Remove{ID: "form"})))
	_, ok := r.Lookup("nameInput")
	assert.False(t, ok)

	// Pasting the subtree back does not restore registrations.
	step(api.AddOrUpdate{ID: "form", Component: "form", ParentID: "root"})
	_, ok = r.Get("form")
	assert.False(t, ok)

	assert.Equal(t, 1, r.Apply(step(api.Delete{ID: "chart"})))
	assert.Zero(t, r.Len())
}

func TestRegistry_Sync(t *testing.T) {
	s := tree.New("root", "canvas")
	res, err := engine.Apply(s, api.AddOrUpdate{ID: "a", Component: "text", ParentID: "root"}, nil)
	require.NoError(t, err)

	r := New()
	require.NoError(t, r.Register("a", "label1"))
	require.NoError(t, r.Register("root", ""))

	assert.Zero(t, r.Sync(res.Snapshot))
	assert.Equal(t, 1, r.Sync(s))
	_, ok := r.Get("root")
	assert.True(t, ok)
}
