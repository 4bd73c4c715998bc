// Package mcpserver exposes a canvas session as MCP tools, so an agent or any
// MCP host can route edit requests to the engine and read the tree back.
package mcpserver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/agentic-research/canvas/api"
	"github.com/agentic-research/canvas/internal/engine"
	"github.com/agentic-research/canvas/internal/registry"
	"github.com/agentic-research/canvas/internal/session"
	"github.com/agentic-research/canvas/internal/view"
	"github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server binds MCP tools to one session.
type Server struct {
	sess   *session.Session
	reg    *registry.Registry
	logger *slog.Logger
	mcp    *server.MCPServer
}

// New registers the canvas tools on a fresh MCP server. reg may be nil, in
// which case lookup by display name is not offered.
func New(sess *session.Session, reg *registry.Registry, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		sess:   sess,
		reg:    reg,
		logger: logger,
		mcp:    server.NewMCPServer("canvas", version, server.WithToolCapabilities(false)),
	}
	s.register()
	return s
}

// MCP returns the underlying server, e.g. to serve it over another transport.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

// ServeStdio serves on stdin/stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) register() {
	idArg := func(desc string) mcp.ToolOption {
		return mcp.WithString("id", mcp.Required(), mcp.Description(desc))
	}

	s.mcp.AddTool(mcp.NewTool("add_or_update_component",
		mcp.WithDescription("Place a new component under a parent, or update kind/props/z-index of an existing one. Naming a removed component re-attaches it."),
		mcp.WithString("id", mcp.Description("Component id; omit to allocate one")),
		mcp.WithString("kind", mcp.Description("Widget type, required for new components")),
		mcp.WithString("parent_id", mcp.Description("Target parent, required for new components")),
		mcp.WithObject("props", mcp.Description("Properties, replacing the current ones")),
		mcp.WithNumber("z_index", mcp.Description("Stacking order hint")),
	), s.handleAddOrUpdate)

	s.mcp.AddTool(mcp.NewTool("remove_component",
		mcp.WithDescription("Detach a component and its subtree from the tree; it can be re-attached later."),
		idArg("Component to detach"),
	), s.handleSimple(func(id string) api.Request { return api.Remove{ID: id} }))

	s.mcp.AddTool(mcp.NewTool("copy_component",
		mcp.WithDescription("Duplicate a component subtree with fresh ids."),
		mcp.WithString("source_id", mcp.Required(), mcp.Description("Root of the subtree to copy")),
		mcp.WithString("destination_parent_id", mcp.Description("Where to insert the copy; defaults to the source's parent")),
		mcp.WithNumber("position", mcp.Description("Index among the destination's children")),
	), s.handleCopy)

	s.mcp.AddTool(mcp.NewTool("bring_to_front",
		mcp.WithDescription("Raise a component above its siblings."),
		idArg("Component to raise"),
	), s.handleSimple(func(id string) api.Request { return api.BringToFront{ID: id} }))

	s.mcp.AddTool(mcp.NewTool("update_component_props",
		mcp.WithDescription("Merge properties into a component."),
		idArg("Component to patch"),
		mcp.WithObject("props", mcp.Required(), mcp.Description("Properties to set")),
	), s.handleUpdateProps)

	s.mcp.AddTool(mcp.NewTool("delete_component",
		mcp.WithDescription("Permanently delete a component and its subtree."),
		idArg("Component to delete"),
	), s.handleSimple(func(id string) api.Request { return api.Delete{ID: id} }))

	s.mcp.AddTool(mcp.NewTool("dispatch",
		mcp.WithDescription("Apply a raw request envelope: {\"type\": ..., \"payload\": ...}. Redux action types are accepted."),
		mcp.WithString("envelope", mcp.Required(), mcp.Description("Envelope JSON")),
	), s.handleDispatch)

	s.mcp.AddTool(mcp.NewTool("get_tree",
		mcp.WithDescription("Return the current component tree."),
		mcp.WithString("format", mcp.Description("text (default) or json")),
	), s.handleGetTree)

	s.mcp.AddTool(mcp.NewTool("query_tree",
		mcp.WithDescription("Evaluate a JSONPath expression over {root: tree, nodes: flat list}."),
		mcp.WithString("expr", mcp.Required(), mcp.Description("JSONPath, e.g. $.nodes[?(@.kind == 'button')].id")),
	), s.handleQuery)

	if s.reg != nil {
		s.mcp.AddTool(mcp.NewTool("lookup_component",
			mcp.WithDescription("Find a component by display name."),
			mcp.WithString("display_name", mcp.Required()),
		), s.handleLookup)
	}

	s.mcp.AddTool(mcp.NewTool("undo", mcp.WithDescription("Undo the last edit.")), s.handleHistory(s.sess.Undo))
	s.mcp.AddTool(mcp.NewTool("redo", mcp.WithDescription("Redo the last undone edit.")), s.handleHistory(s.sess.Redo))
}

func (s *Server) handleAddOrUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r := api.AddOrUpdate{
		ID:        req.GetString("id", ""),
		Component: req.GetString("kind", ""),
		ParentID:  req.GetString("parent_id", ""),
	}
	args := req.GetArguments()
	if p, ok, err := propsArg(args, "props"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	} else if ok {
		r.Props = &p
	}
	z, err := intArg(args, "z_index")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	r.ZIndex = z
	return s.dispatch(ctx, r)
}

func (s *Server) handleSimple(build func(id string) api.Request) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return s.dispatch(ctx, build(id))
	}
}

func (s *Server) handleCopy(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	src, err := req.RequireString("source_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	pos, err := intArg(req.GetArguments(), "position")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.dispatch(ctx, api.Copy{
		SourceID:            src,
		DestinationParentID: req.GetString("destination_parent_id", ""),
		Position:            pos,
	})
}

func (s *Server) handleUpdateProps(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, ok, err := propsArg(req.GetArguments(), "props")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !ok {
		return mcp.NewToolResultError("required argument \"props\" not found"), nil
	}
	return s.dispatch(ctx, api.UpdateProps{ID: id, Patch: p})
}

func (s *Server) handleDispatch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("envelope")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	r, err := api.UnmarshalRequest([]byte(raw))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.dispatch(ctx, r)
}

func (s *Server) handleGetTree(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap := s.sess.Current()
	switch f := req.GetString("format", "text"); f {
	case "text":
		return mcp.NewToolResultText(view.Render(snap, view.Options{Detached: true})), nil
	case "json":
		return jsonResult(view.Document(snap))
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown format %q", f)), nil
	}
}

func (s *Server) handleQuery(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	expr, err := req.RequireString("expr")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := view.Query(s.sess.Current(), expr)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(out)
}

func (s *Server) handleLookup(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("display_name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	e, ok := s.reg.Lookup(name)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("no component named %q", name)), nil
	}
	n, err := s.sess.Current().Node(e.ID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"id":     e.ID,
		"kind":   n.Kind(),
		"parent": n.ParentID(),
		"props":  n.Props(),
		"values": e.Values,
	})
}

func (s *Server) handleHistory(step func(context.Context) (bool, error)) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ok, err := step(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return mcp.NewToolResultError("nothing to do"), nil
		}
		return jsonResult(map[string]any{"version": s.sess.Current().Version()})
	}
}

// dispatch applies r. Rejections are tool errors the caller can read;
// recorder failures are protocol errors.
func (s *Server) dispatch(ctx context.Context, r api.Request) (*mcp.CallToolResult, error) {
	res, err := s.sess.Dispatch(ctx, r)
	if err != nil {
		if api.IsRejection(err) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		s.logger.Error("dispatch failed", "kind", r.Kind(), "error", err)
		return nil, err
	}
	return jsonResult(summary(res))
}

type result struct {
	Version uint64      `json:"version"`
	Changed bool        `json:"changed"`
	Events  []api.Event `json:"events"`
}

func summary(res engine.Result) result {
	events := res.Events
	if events == nil {
		events = []api.Event{}
	}
	return result{Version: res.Snapshot.Version(), Changed: len(res.Events) > 0, Events: events}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func intArg(args map[string]any, key string) (*int, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return nil, nil
	}
	f, ok := v.(float64)
	if !ok || f != float64(int(f)) {
		return nil, fmt.Errorf("argument %q must be an integer", key)
	}
	return api.IntPtr(int(f)), nil
}

func propsArg(args map[string]any, key string) (api.Props, bool, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return api.Props{}, false, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return api.Props{}, false, fmt.Errorf("argument %q must be an object", key)
	}
	return api.PropsFromMap(m), true, nil
}
