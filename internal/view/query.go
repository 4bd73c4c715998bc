package view

import (
	"fmt"

	"github.com/agentic-research/canvas/internal/tree"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/ohler55/ojg/jp"
)

// exprCache holds parsed expressions; MCP clients and watch loops repeat the
// same few queries against every new snapshot.
var exprCache, _ = lru.New[string, jp.Expr](256)

func parseExpr(expr string) (jp.Expr, error) {
	if x, ok := exprCache.Get(expr); ok {
		return x, nil
	}
	x, err := jp.ParseString(expr)
	if err != nil {
		return nil, err
	}
	exprCache.Add(expr, x)
	return x, nil
}

// Query evaluates a JSONPath expression against {"root": Document(s),
// "nodes": Flat(s)}. Examples:
//
//	$.root..children[?(@.kind == 'button')].id
//	$.nodes[?(@.depth > 1)].id
func Query(s *tree.Snapshot, expr string) ([]any, error) {
	x, err := parseExpr(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath '%s': %w", expr, err)
	}
	root := map[string]any{
		"root":  Document(s),
		"nodes": Flat(s),
	}
	return x.Get(root), nil
}
