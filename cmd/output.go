package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/agentic-research/canvas/internal/script"
	"github.com/agentic-research/canvas/internal/tree"
	"github.com/agentic-research/canvas/internal/view"
	"github.com/goccy/go-json"
)

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printTree(w io.Writer, s *tree.Snapshot, asJSON bool, props string, detached bool) error {
	if asJSON {
		return writeJSON(w, view.Document(s))
	}
	_, err := fmt.Fprintln(w, view.Render(s, view.Options{Props: splitList(props), Detached: detached}))
	return err
}

// report writes one line per rejected step.
func report(w io.Writer, name string, out []script.Outcome) {
	for _, o := range out {
		if o.Err != nil {
			fmt.Fprintf(w, "%s: step %d: %v\n", name, o.Step, o.Err)
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
