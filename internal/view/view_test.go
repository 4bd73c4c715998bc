package view

import (
	"testing"

	"github.com/agentic-research/canvas/api"
	"github.com/agentic-research/canvas/internal/engine"
	"github.com/agentic-research/canvas/internal/tree"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sample builds:
//
//	root (canvas)
//	├── form (form)
//	│   ├── email (input)
//	│   └── submit (button)
//	└── toolbar (container)
//	    └── save (button)
func sample(t *testing.T) *tree.Snapshot {
	t.Helper()
	s := tree.New("root", "canvas")
	label := api.PropsOf(api.Prop{Key: "label", Value: "Save"})
	for _, req := range []api.AddOrUpdate{
		{ID: "form", Component: "form", ParentID: "root"},
		{ID: "email", Component: "input", ParentID: "form"},
		{ID: "submit", Component: "button", ParentID: "form"},
		{ID: "toolbar", Component: "container", ParentID: "root"},
		{ID: "save", Component: "button", ParentID: "toolbar", Props: &label},
	} {
		res, err := engine.Apply(s, req, nil)
		require.NoError(t, err)
		s = res.Snapshot
	}
	return s
}

func TestDocument(t *testing.T) {
	s := sample(t)
	doc := Document(s)

	want := map[string]any{
		"id": "toolbar", "kind": "container", "parentId": "root", "zIndex": int64(1),
		"props": map[string]any{},
		"children": []any{map[string]any{
			"id": "save", "kind": "button", "parentId": "toolbar", "zIndex": int64(0),
			"props":    map[string]any{"label": "Save"},
			"children": []any{},
		}},
	}
	children := doc["children"].([]any)
	require.Len(t, children, 2)
	if diff := cmp.Diff(want, children[1]); diff != "" {
		t.Errorf("toolbar document mismatch (-want +got):\n%s", diff)
	}
	_, hasParent := doc["parentId"]
	assert.False(t, hasParent)
}

func TestFlat(t *testing.T) {
	flat := Flat(sample(t))
	var ids []string
	var depths []int64
	for _, n := range flat {
		m := n.(map[string]any)
		ids = append(ids, m["id"].(string))
		depths = append(depths, m["depth"].(int64))
	}
	assert.Equal(t, []string{"root", "form", "email", "submit", "toolbar", "save"}, ids)
	assert.Equal(t, []int64{0, 1, 2, 2, 1, 2}, depths)
}

func TestQuery(t *testing.T) {
	s := sample(t)

	got, err := Query(s, "$.root..children[?(@.kind == 'button')].id")
	require.NoError(t, err)
	assert.ElementsMatch(t, []any{"submit", "save"}, got)

	got, err = Query(s, "$.nodes[?(@.depth == 1)].id")
	require.NoError(t, err)
	assert.Equal(t, []any{"form", "toolbar"}, got)

	got, err = Query(s, "$.nodes[?(@.props.label == 'Save')].parentId")
	require.NoError(t, err)
	assert.Equal(t, []any{"toolbar"}, got)

	_, err = Query(s, "$.nodes[?(@.id ==")
	assert.Error(t, err)
	assert.False(t, exprCache.Contains("$.nodes[?(@.id =="), "parse failures are not cached")
	assert.True(t, exprCache.Contains("$.nodes[?(@.depth == 1)].id"))

	again, err := Query(s, "$.nodes[?(@.depth == 1)].id")
	require.NoError(t, err)
	assert.Equal(t, []any{"form", "toolbar"}, again)
}

func TestRender(t *testing.T) {
	s := sample(t)
	res, err := engine.Apply(s, api.Remove{ID: "toolbar"}, nil)
	require.NoError(t, err)

	out := Render(res.Snapshot, Options{Props: []string{"label"}, Detached: true})
	for _, want := range []string{"canvas", "root", "form", "email", "submit", "z=1", "detached", "toolbar", "label=Save"} {
		assert.Contains(t, out, want)
	}

	plain := Render(res.Snapshot, Options{})
	assert.NotContains(t, plain, "toolbar")
}

func TestIndex(t *testing.T) {
	s := sample(t)
	ix := NewIndex(s)

	assert.Equal(t, 6, ix.Len())
	assert.Equal(t, []string{"submit", "save"}, ix.OfKind("button"))
	assert.Equal(t, []string{"save"}, ix.Within("toolbar", "button"))
	assert.Equal(t, []string{"submit"}, ix.Within("form", "button"))
	assert.Equal(t, []string{"form"}, ix.Within("form", "form"))
	assert.Nil(t, ix.Within("email", "button"))
	assert.Nil(t, ix.Within("ghost", "button"))
	assert.Nil(t, ix.OfKind("chart"))

	assert.Equal(t, 6, ix.SubtreeSize("root"))
	assert.Equal(t, 3, ix.SubtreeSize("form"))
	assert.Equal(t, 1, ix.SubtreeSize("save"))
	assert.Zero(t, ix.SubtreeSize("ghost"))

	assert.Equal(t, map[string]int{"canvas": 1, "form": 1, "input": 1, "button": 2, "container": 1}, ix.Kinds())
	assert.Equal(t, []string{"button", "canvas", "container", "form", "input"}, ix.KindNames())
}
