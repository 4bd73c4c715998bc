// Package config loads canvas settings from canvas.hcl or canvas.yaml.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/agentic-research/canvas/internal/journal"
	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"gopkg.in/yaml.v3"
)

// Config is the resolved configuration.
type Config struct {
	Session Session
	Journal Journal
	Log     Log
}

// Session configures the tree a new session starts from.
type Session struct {
	// Prefix fixes the allocator prefix; empty picks a random one.
	Prefix   string `hcl:"prefix,optional" yaml:"prefix"`
	RootID   string `hcl:"root_id,optional" yaml:"root_id"`
	RootKind string `hcl:"root_kind,optional" yaml:"root_kind"`
	// PositionedKinds lists container kinds whose children are z-ordered.
	// Empty means every container.
	PositionedKinds []string `hcl:"positioned_kinds,optional" yaml:"positioned_kinds"`
	// HistoryLimit bounds undo; zero keeps the default, negative disables.
	HistoryLimit int  `hcl:"history_limit,optional" yaml:"history_limit"`
	Validate     bool `hcl:"validate,optional" yaml:"validate"`
}

// Journal selects where accepted edits are recorded. An empty Path disables
// recording.
type Journal struct {
	Driver string `hcl:"driver,optional" yaml:"driver"`
	Path   string `hcl:"path,optional" yaml:"path"`
}

type Log struct {
	Level  string `hcl:"level,optional" yaml:"level"`
	Format string `hcl:"format,optional" yaml:"format"`
}

// file mirrors the on-disk layout; every block is optional.
type file struct {
	Session *Session `hcl:"session,block" yaml:"session"`
	Journal *Journal `hcl:"journal,block" yaml:"journal"`
	Log     *Log     `hcl:"log,block" yaml:"log"`
}

// Names are the files Find looks for, in order.
var Names = []string{"canvas.hcl", "canvas.yaml", "canvas.yml"}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Session: Session{RootID: "root", RootKind: "canvas", HistoryLimit: 100},
		Journal: Journal{Driver: journal.DriverSQLite},
		Log:     Log{Level: "info", Format: "text"},
	}
}

// Load reads the file at name from fsys and overlays it on Default.
func Load(fsys billy.Filesystem, name string) (Config, error) {
	data, err := util.ReadFile(fsys, name)
	if err != nil {
		return Config{}, fmt.Errorf("read %s: %w", name, err)
	}
	var f file
	switch strings.ToLower(path.Ext(name)) {
	case ".hcl", ".json":
		if err := hclsimple.Decode(name, data, nil, &f); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", name, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &f); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", name, err)
		}
	default:
		return Config{}, fmt.Errorf("config %s: unsupported format", name)
	}
	cfg := Default()
	cfg.overlay(f)
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", name, err)
	}
	return cfg, nil
}

// Find loads the first of Names present in dir, or returns Default when there
// is none.
func Find(fsys billy.Filesystem, dir string) (Config, string, error) {
	for _, n := range Names {
		p := fsys.Join(dir, n)
		if _, err := fsys.Stat(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return Config{}, "", err
		}
		cfg, err := Load(fsys, p)
		return cfg, p, err
	}
	return Default(), "", nil
}

func (c *Config) overlay(f file) {
	if s := f.Session; s != nil {
		setString(&c.Session.Prefix, s.Prefix)
		setString(&c.Session.RootID, s.RootID)
		setString(&c.Session.RootKind, s.RootKind)
		if len(s.PositionedKinds) > 0 {
			c.Session.PositionedKinds = s.PositionedKinds
		}
		if s.HistoryLimit != 0 {
			c.Session.HistoryLimit = s.HistoryLimit
		}
		c.Session.Validate = s.Validate
	}
	if j := f.Journal; j != nil {
		setString(&c.Journal.Driver, j.Driver)
		setString(&c.Journal.Path, j.Path)
	}
	if l := f.Log; l != nil {
		setString(&c.Log.Level, l.Level)
		setString(&c.Log.Format, l.Format)
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Validate checks values that would otherwise fail later and less clearly.
func (c Config) Validate() error {
	if c.Session.RootID == "" || c.Session.RootKind == "" {
		return errors.New("session root_id and root_kind must be set")
	}
	switch c.Journal.Driver {
	case journal.DriverSQLite, journal.DriverBolt:
	default:
		return fmt.Errorf("unknown journal driver %q", c.Journal.Driver)
	}
	if _, err := c.Log.level(); err != nil {
		return err
	}
	if f := c.Log.Format; f != "text" && f != "json" {
		return fmt.Errorf("unknown log format %q", f)
	}
	return nil
}

// Header is the journal header a fresh session built from c records.
func (c Config) Header() journal.Header {
	return journal.Header{
		Prefix:     c.Session.Prefix,
		RootID:     c.Session.RootID,
		RootKind:   c.Session.RootKind,
		Positioned: c.Session.PositionedKinds,
	}
}

func (l Log) level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log level: %w", err)
	}
	return lvl, nil
}

// NewLogger builds the process logger writing to w.
func (l Log) NewLogger(w io.Writer) (*slog.Logger, error) {
	lvl, err := l.level()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
