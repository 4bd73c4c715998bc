package mcpserver

import (
	"context"
	"testing"

	"github.com/agentic-research/canvas/api"
	"github.com/agentic-research/canvas/internal/ident"
	"github.com/agentic-research/canvas/internal/registry"
	"github.com/agentic-research/canvas/internal/session"
	"github.com/agentic-research/canvas/internal/tree"
	"github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer() (*Server, *session.Session) {
	sess := session.New(tree.New("root", "canvas"), session.WithAllocator(ident.New(ident.WithPrefix("m"))))
	return New(sess, nil, "test", nil), sess
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "content is %T", res.Content[0])
	return tc.Text
}

func decode(t *testing.T, res *mcp.CallToolResult) result {
	t.Helper()
	require.False(t, res.IsError, text(t, res))
	var out result
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &out))
	return out
}

func TestTools_EditFlow(t *testing.T) {
	ctx := context.Background()
	s, sess := newServer()

	res, err := s.handleAddOrUpdate(ctx, call(map[string]any{
		"kind": "container", "parent_id": "root", "props": map[string]any{"title": "Panel"},
	}))
	require.NoError(t, err)
	out := decode(t, res)
	require.Len(t, out.Events, 1)
	panel := out.Events[0].ID
	assert.Equal(t, "m-1", panel)

	res, err = s.handleAddOrUpdate(ctx, call(map[string]any{
		"id": "btn", "kind": "button", "parent_id": panel, "z_index": float64(4),
	}))
	require.NoError(t, err)
	decode(t, res)
	btn, err := sess.Current().Node("btn")
	require.NoError(t, err)
	assert.Equal(t, 4, btn.ZIndex())

	res, err = s.handleCopy(ctx, call(map[string]any{"source_id": "btn", "position": float64(0)}))
	require.NoError(t, err)
	copied := decode(t, res).Events[0].ID
	p, _ := sess.Current().Node(panel)
	assert.Equal(t, []string{copied, "btn"}, p.Children())

	res, err = s.handleUpdateProps(ctx, call(map[string]any{"id": "btn", "props": map[string]any{"label": "Go"}}))
	require.NoError(t, err)
	assert.Equal(t, []string{"label"}, decode(t, res).Events[0].Keys)

	front := s.handleSimple(func(id string) api.Request { return api.BringToFront{ID: id} })
	res, err = front(ctx, call(map[string]any{"id": "btn"}))
	require.NoError(t, err)
	assert.True(t, decode(t, res).Changed, "the copy was placed above btn")
	res, err = front(ctx, call(map[string]any{"id": "btn"}))
	require.NoError(t, err)
	assert.False(t, decode(t, res).Changed, "btn is already on top")

	res, err = s.handleSimple(func(id string) api.Request { return api.Delete{ID: id} })(ctx, call(map[string]any{"id": copied}))
	require.NoError(t, err)
	decode(t, res)
	assert.False(t, sess.Current().Has(copied))
}

func TestTools_RejectionIsToolError(t *testing.T) {
	ctx := context.Background()
	s, sess := newServer()
	before := sess.Current()

	res, err := s.handleSimple(func(id string) api.Request { return api.Remove{ID: id} })(ctx, call(map[string]any{"id": "root"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "invariant violation")
	assert.Same(t, before, sess.Current())

	res, err = s.handleSimple(func(id string) api.Request { return api.Remove{ID: id} })(ctx, call(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = s.handleAddOrUpdate(ctx, call(map[string]any{"kind": "x", "parent_id": "root", "z_index": 1.5}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = s.handleUpdateProps(ctx, call(map[string]any{"id": "root", "props": "nope"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestTools_DispatchEnvelope(t *testing.T) {
	ctx := context.Background()
	s, sess := newServer()

	res, err := s.handleDispatch(ctx, call(map[string]any{
		"envelope": `{"type":"components/addOrUpdateComponentReducer","payload":{"id":"a","kind":"text","parentId":"root"}}`,
	}))
	require.NoError(t, err)
	decode(t, res)
	assert.True(t, sess.Current().Has("a"))

	res, err = s.handleDispatch(ctx, call(map[string]any{"envelope": `{"type":"nope"}`}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestTools_ReadAndHistory(t *testing.T) {
	ctx := context.Background()
	s, sess := newServer()
	_, err := s.handleAddOrUpdate(ctx, call(map[string]any{"id": "a", "kind": "button", "parent_id": "root"}))
	require.NoError(t, err)

	res, err := s.handleGetTree(ctx, call(nil))
	require.NoError(t, err)
	assert.Contains(t, text(t, res), "button")

	res, err = s.handleGetTree(ctx, call(map[string]any{"format": "json"}))
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &doc))
	assert.Equal(t, "root", doc["id"])

	res, err = s.handleQuery(ctx, call(map[string]any{"expr": "$.nodes[?(@.kind == 'button')].id"}))
	require.NoError(t, err)
	assert.JSONEq(t, `["a"]`, text(t, res))

	undo := s.handleHistory(sess.Undo)
	res, err = undo(ctx, call(nil))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.False(t, sess.Current().Has("a"))

	res, err = undo(ctx, call(nil))
	require.NoError(t, err)
	assert.True(t, res.IsError, "history is empty")

	res, err = s.handleHistory(sess.Redo)(ctx, call(nil))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.True(t, sess.Current().Has("a"))
}

func TestTools_LookupByDisplayName(t *testing.T) {
	ctx := context.Background()
	sess := session.New(tree.New("root", "canvas"), session.WithAllocator(ident.New(ident.WithPrefix("m"))))
	reg := registry.New()
	defer registry.Bind(sess, reg, registry.DefaultNameProp, nil)()
	s := New(sess, reg, "test", nil)

	_, err := s.handleAddOrUpdate(ctx, call(map[string]any{
		"id": "chart", "kind": "chart", "parent_id": "root",
		"props": map[string]any{"displayName": "revenue", "type": "bar"},
	}))
	require.NoError(t, err)
	require.NoError(t, reg.Set("chart", "data", []any{1.0, 2.0}))

	res, err := s.handleLookup(ctx, call(map[string]any{"display_name": "revenue"}))
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))
	assert.JSONEq(t, `{
		"id": "chart", "kind": "chart", "parent": "root",
		"props": {"displayName": "revenue", "type": "bar"},
		"values": {"data": [1, 2]}
	}`, text(t, res))

	res, err = s.handleLookup(ctx, call(map[string]any{"display_name": "missing"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
