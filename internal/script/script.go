// Package script reads request scripts: recorded or hand-written sequences of
// edit envelopes that can be dispatched against a session.
//
// Three layouts are accepted: a JSON array of envelopes, JSON lines (one
// envelope per line, blank lines and lines starting with # ignored), and a
// YAML sequence of {type, payload} maps.
package script

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/agentic-research/canvas/api"
	"github.com/agentic-research/canvas/internal/engine"
	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Load reads and parses the script at name.
func Load(fsys billy.Filesystem, name string) ([]api.Request, error) {
	data, err := util.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read script %s: %w", name, err)
	}
	reqs, err := Parse(name, data)
	if err != nil {
		return nil, fmt.Errorf("script %s: %w", name, err)
	}
	return reqs, nil
}

// Parse decodes data, choosing the layout from the extension of name.
func Parse(name string, data []byte) ([]api.Request, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		return parseYAML(data)
	default:
		if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
			return parseJSONArray(trimmed)
		}
		return parseJSONLines(data)
	}
}

func parseJSONArray(data []byte) ([]api.Request, error) {
	var envs []api.Envelope
	if err := json.Unmarshal(data, &envs); err != nil {
		return nil, err
	}
	return decodeAll(envs)
}

func parseJSONLines(data []byte) ([]api.Request, error) {
	var reqs []api.Request
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for line := 1; sc.Scan(); line++ {
		text := bytes.TrimSpace(sc.Bytes())
		if len(text) == 0 || text[0] == '#' {
			continue
		}
		req, err := api.UnmarshalRequest(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		reqs = append(reqs, req)
	}
	return reqs, sc.Err()
}

type yamlStep struct {
	Type    string         `yaml:"type"`
	Payload map[string]any `yaml:"payload"`
}

func parseYAML(data []byte) ([]api.Request, error) {
	var steps []yamlStep
	if err := yaml.Unmarshal(data, &steps); err != nil {
		return nil, err
	}
	envs := make([]api.Envelope, len(steps))
	for i, st := range steps {
		payload, err := json.Marshal(st.Payload)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		envs[i] = api.Envelope{Type: api.RequestKind(st.Type), Payload: payload}
	}
	return decodeAll(envs)
}

func decodeAll(envs []api.Envelope) ([]api.Request, error) {
	reqs := make([]api.Request, 0, len(envs))
	for i, env := range envs {
		req, err := env.Decode()
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

// Dispatcher applies one request. *session.Session satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, req api.Request) (engine.Result, error)
}

// Outcome is the result of one script step.
type Outcome struct {
	Step    int
	Request api.Request
	Events  []api.Event
	Err     error
}

// Run dispatches reqs in order. Rejections are recorded in the outcomes; with
// keepGoing false the first one stops the run and is returned. Other errors
// always stop the run.
func Run(ctx context.Context, d Dispatcher, reqs []api.Request, keepGoing bool) ([]Outcome, error) {
	out := make([]Outcome, 0, len(reqs))
	for i, req := range reqs {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		res, err := d.Dispatch(ctx, req)
		out = append(out, Outcome{Step: i + 1, Request: req, Events: res.Events, Err: err})
		if err == nil {
			continue
		}
		if !keepGoing || !api.IsRejection(err) {
			return out, fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return out, nil
}
