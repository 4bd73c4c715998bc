// Package lint checks request scripts before they are applied for real.
package lint

import (
	"fmt"

	"github.com/agentic-research/canvas/api"
	"github.com/agentic-research/canvas/internal/engine"
	"github.com/agentic-research/canvas/internal/ident"
	"github.com/agentic-research/canvas/internal/tree"
)

type Severity int

const (
	Warning Severity = iota
	Error
)

func (s Severity) String() string {
	if s == Error {
		return "error"
	}
	return "warning"
}

type Diagnostic struct {
	Step     int
	Kind     api.RequestKind
	Severity Severity
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("step %d (%s): %s: %s", d.Step, d.Kind, d.Severity, d.Message)
}

// Lint dry-runs reqs from s, allocating with alloc. Rejected steps are errors
// and are skipped; steps that change nothing, and explicit ids that look like
// ids alloc would mint, are warnings. s is left untouched; alloc advances
// exactly as it would for a real run.
func Lint(s *tree.Snapshot, alloc *ident.Allocator, reqs []api.Request) []Diagnostic {
	var diags []Diagnostic
	report := func(step int, req api.Request, sev Severity, format string, args ...any) {
		diags = append(diags, Diagnostic{
			Step:     step,
			Kind:     req.Kind(),
			Severity: sev,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	cur := s
	for i, req := range reqs {
		step := i + 1
		if id := explicitID(req); id != "" && !cur.Known(id) && alloc.Owns(id) {
			report(step, req, Warning, "explicit id %q has the shape of an allocated id and will be skipped by allocation", id)
		}

		res, err := engine.Apply(cur, req, alloc)
		if err != nil {
			report(step, req, Error, "%v", err)
			continue
		}
		if !res.Changed(cur) {
			report(step, req, Warning, "has no effect")
			continue
		}
		cur = res.Snapshot
	}
	return diags
}

func explicitID(req api.Request) string {
	switch r := req.(type) {
	case api.AddOrUpdate:
		return r.ID
	case *api.AddOrUpdate:
		if r != nil {
			return r.ID
		}
	}
	return ""
}

// HasErrors reports whether any diagnostic is an Error.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == Error {
			return true
		}
	}
	return false
}
