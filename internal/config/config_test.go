package config

import (
	"bytes"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hclConfig = `
session {
  prefix           = "studio"
  root_id          = "page"
  positioned_kinds = ["canvas", "modal"]
  history_limit    = 20
  validate         = true
}

journal {
  driver = "bolt"
  path   = "edits.bolt"
}

log {
  level  = "debug"
  format = "json"
}
`

const yamlConfig = `
session:
  prefix: studio
  root_id: page
  positioned_kinds: [canvas, modal]
  history_limit: 20
  validate: true
journal:
  driver: bolt
  path: edits.bolt
log:
  level: debug
  format: json
`

func TestLoad_HCLAndYAMLAgree(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "canvas.hcl", []byte(hclConfig), 0o644))
	require.NoError(t, util.WriteFile(fs, "canvas.yaml", []byte(yamlConfig), 0o644))

	want := Config{
		Session: Session{
			Prefix:          "studio",
			RootID:          "page",
			RootKind:        "canvas",
			PositionedKinds: []string{"canvas", "modal"},
			HistoryLimit:    20,
			Validate:        true,
		},
		Journal: Journal{Driver: "bolt", Path: "edits.bolt"},
		Log:     Log{Level: "debug", Format: "json"},
	}
	for _, name := range []string{"canvas.hcl", "canvas.yaml"} {
		t.Run(name, func(t *testing.T) {
			cfg, err := Load(fs, name)
			require.NoError(t, err)
			assert.Equal(t, want, cfg)
		})
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "canvas.hcl", []byte("log {\n  level = \"warn\"\n}\n"), 0o644))

	cfg, err := Load(fs, "canvas.hcl")
	require.NoError(t, err)
	want := Default()
	want.Log.Level = "warn"
	assert.Equal(t, want, cfg)
}

func TestLoad_Errors(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "bad.hcl", []byte("session {"), 0o644))
	require.NoError(t, util.WriteFile(fs, "driver.yaml", []byte("journal:\n  driver: redis\n"), 0o644))
	require.NoError(t, util.WriteFile(fs, "canvas.toml", []byte(""), 0o644))

	_, err := Load(fs, "bad.hcl")
	assert.ErrorContains(t, err, "parse bad.hcl")
	_, err = Load(fs, "driver.yaml")
	assert.ErrorContains(t, err, "unknown journal driver")
	_, err = Load(fs, "canvas.toml")
	assert.ErrorContains(t, err, "unsupported format")
	_, err = Load(fs, "missing.hcl")
	assert.Error(t, err)
}

func TestFind(t *testing.T) {
	fs := memfs.New()
	cfg, name, err := Find(fs, "proj")
	require.NoError(t, err)
	assert.Empty(t, name)
	assert.Equal(t, Default(), cfg)

	require.NoError(t, util.WriteFile(fs, "proj/canvas.yml", []byte("session:\n  root_kind: page\n"), 0o644))
	cfg, name, err = Find(fs, "proj")
	require.NoError(t, err)
	assert.Equal(t, "proj/canvas.yml", name)
	assert.Equal(t, "page", cfg.Session.RootKind)
}

func TestHeader(t *testing.T) {
	cfg := Default()
	cfg.Session.Prefix = "p"
	h := cfg.Header()
	assert.Equal(t, "p", h.Prefix)
	assert.Equal(t, "root", h.RootID)
	assert.Equal(t, "canvas", h.RootKind)
}

func TestLog_NewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := Log{Level: "warn", Format: "json"}.NewLogger(&buf)
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown", "id", "n-1")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"id":"n-1"`)

	_, err = Log{Level: "loud", Format: "text"}.NewLogger(&buf)
	assert.Error(t, err)
}
