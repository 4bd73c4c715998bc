package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/agentic-research/canvas/internal/config"
	"github.com/agentic-research/canvas/internal/ident"
	"github.com/agentic-research/canvas/internal/journal"
	"github.com/agentic-research/canvas/internal/session"
	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"
)

var version = "dev"

var (
	configPath    string
	journalPath   string
	journalDriver string
	prefix        string
	logLevel      string
	logFormat     string
	validate      bool

	cfg    config.Config
	logger *slog.Logger
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "Path to canvas.hcl or canvas.yaml (default: search the working directory)")
	pf.StringVarP(&journalPath, "journal", "j", "", "Journal file to restore from and record to")
	pf.StringVar(&journalDriver, "driver", "", "Journal driver: sqlite or bolt")
	pf.StringVar(&prefix, "prefix", "", "Id allocator prefix for new sessions")
	pf.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&logFormat, "log-format", "", "Log format: text or json")
	pf.BoolVar(&validate, "validate", false, "Re-check tree invariants after every edit")
}

var rootCmd = &cobra.Command{
	Use:           "canvas",
	Short:         "Canvas: component-tree state engine for visual app builders",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		l, err := c.Log.NewLogger(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		cfg, logger = c, l
		slog.SetDefault(logger)
		return nil
	},
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	fsys := hostFS()
	var (
		c   config.Config
		err error
	)
	if configPath != "" {
		c, err = config.Load(fsys, abs(configPath))
	} else {
		var wd string
		if wd, err = os.Getwd(); err != nil {
			return c, fmt.Errorf("get working dir: %w", err)
		}
		c, _, err = config.Find(fsys, wd)
	}
	if err != nil {
		return c, err
	}

	flags := cmd.Flags()
	if flags.Changed("journal") {
		c.Journal.Path = journalPath
	}
	if flags.Changed("driver") {
		c.Journal.Driver = journalDriver
	}
	if flags.Changed("prefix") {
		c.Session.Prefix = prefix
	}
	if flags.Changed("log-level") {
		c.Log.Level = logLevel
	}
	if flags.Changed("log-format") {
		c.Log.Format = logFormat
	}
	if flags.Changed("validate") {
		c.Session.Validate = validate
	}
	if c.Journal.Path != "" && !flags.Changed("driver") && journalDriverFromExt(c.Journal.Path) != "" {
		c.Journal.Driver = journalDriverFromExt(c.Journal.Path)
	}
	return c, c.Validate()
}

func journalDriverFromExt(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".bolt", ".bbolt":
		return journal.DriverBolt
	case ".db", ".sqlite", ".sqlite3":
		return journal.DriverSQLite
	}
	return ""
}

// hostFS is the local filesystem rooted at /; callers pass absolute paths.
func hostFS() billy.Filesystem {
	return osfs.New("/")
}

func abs(path string) string {
	if p, err := filepath.Abs(path); err == nil {
		return p
	}
	return path
}

func sessionOptions() []session.Option {
	return []session.Option{
		session.WithHistoryLimit(cfg.Session.HistoryLimit),
		session.WithValidation(cfg.Session.Validate),
		session.WithLogger(logger),
	}
}

// openSession returns the configured session: restored from the journal when
// one is configured, fresh otherwise. The returned func releases the journal.
func openSession(ctx context.Context) (*session.Session, func() error, error) {
	if cfg.Journal.Path == "" {
		h := cfg.Header()
		if h.Prefix == "" {
			h.Prefix = ident.NewPrefix()
		}
		snap, alloc := session.FromHeader(h)
		s := session.New(snap, append(sessionOptions(), session.WithAllocator(alloc))...)
		return s, func() error { return nil }, nil
	}

	j, err := journal.Open(cfg.Journal.Driver, abs(cfg.Journal.Path), logger)
	if err != nil {
		return nil, nil, err
	}
	s, h, err := session.Restore(ctx, j, cfg.Header(), sessionOptions()...)
	if err != nil {
		_ = j.Close()
		return nil, nil, err
	}
	logger.Info("session restored", "journal", cfg.Journal.Path, "prefix", h.Prefix, "nodes", s.Current().Len())
	return s, j.Close, nil
}

// Execute runs the root command until it returns or the process is
// interrupted.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
