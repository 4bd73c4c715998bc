package script

import (
	"context"
	"testing"

	"github.com/agentic-research/canvas/api"
	"github.com/agentic-research/canvas/internal/ident"
	"github.com/agentic-research/canvas/internal/session"
	"github.com/agentic-research/canvas/internal/tree"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jsonArray = `[
  {"type": "addOrUpdateComponent", "payload": {"id": "form", "kind": "form", "parentId": "root"}},
  {"type": "components/addOrUpdateComponentReducer", "payload": {"id": "email", "kind": "input", "parentId": "form", "props": {"placeholder": "you@example.com"}}},
  {"type": "copyComponentNode", "payload": {"sourceId": "email"}}
]`

const jsonLines = `# build a form
{"type": "addOrUpdateComponent", "payload": {"id": "form", "kind": "form", "parentId": "root"}}

{"type": "addOrUpdateComponent", "payload": {"id": "email", "kind": "input", "parentId": "form", "props": {"placeholder": "you@example.com"}}}
{"type": "copyComponentNode", "payload": {"sourceId": "email"}}
`

const yamlScript = `
- type: addOrUpdateComponent
  payload: {id: form, kind: form, parentId: root}
- type: addOrUpdateComponent
  payload:
    id: email
    kind: input
    parentId: form
    props: {placeholder: you@example.com}
- type: copyComponentNode
  payload: {sourceId: email}
`

func TestParse_AllLayoutsAgree(t *testing.T) {
	want := []api.Request{
		api.AddOrUpdate{ID: "form", Component: "form", ParentID: "root"},
		api.AddOrUpdate{ID: "email", Component: "input", ParentID: "form"},
		api.Copy{SourceID: "email"},
	}
	for name, src := range map[string]string{
		"steps.json":  jsonArray,
		"steps.jsonl": jsonLines,
		"steps.yaml":  yamlScript,
	} {
		t.Run(name, func(t *testing.T) {
			got, err := Parse(name, []byte(src))
			require.NoError(t, err)
			require.Len(t, got, len(want))

			add := got[1].(api.AddOrUpdate)
			require.NotNil(t, add.Props)
			v, _ := add.Props.Get("placeholder")
			assert.Equal(t, "you@example.com", v)
			add.Props = nil
			got[1] = add
			assert.Equal(t, want, got)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse("x.jsonl", []byte("{\"type\":\"removeComponent\",\"payload\":{}}\n{oops}\n"))
	assert.ErrorContains(t, err, "line 2")

	_, err = Parse("x.yaml", []byte("- type: explode\n"))
	assert.ErrorContains(t, err, "step 1")

	_, err = Parse("x.json", []byte("[{]"))
	assert.Error(t, err)
}

func newSession() *session.Session {
	return session.New(tree.New("root", "canvas"), session.WithAllocator(ident.New(ident.WithPrefix("s"))))
}

func TestLoadAndRun(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "form.json", []byte(jsonArray), 0o644))

	reqs, err := Load(fs, "form.json")
	require.NoError(t, err)

	s := newSession()
	out, err := Run(context.Background(), s, reqs, false)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "s-1", out[2].Events[0].ID)
	form, err := s.Current().Node("form")
	require.NoError(t, err)
	assert.Equal(t, []string{"email", "s-1"}, form.Children())
}

func TestRun_StopsOrKeepsGoing(t *testing.T) {
	reqs := []api.Request{
		api.AddOrUpdate{ID: "a", Component: "text", ParentID: "root"},
		api.Delete{ID: "ghost"},
		api.AddOrUpdate{ID: "b", Component: "text", ParentID: "root"},
	}
	ctx := context.Background()

	out, err := Run(ctx, newSession(), reqs, false)
	assert.ErrorIs(t, err, api.ErrNodeNotFound)
	assert.ErrorContains(t, err, "step 2")
	assert.Len(t, out, 2)

	s := newSession()
	out, err = Run(ctx, s, reqs, true)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.ErrorIs(t, out[1].Err, api.ErrNodeNotFound)
	assert.Equal(t, []string{"a", "b"}, s.Current().Root().Children())
}
