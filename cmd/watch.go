package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/agentic-research/canvas/internal/ident"
	"github.com/agentic-research/canvas/internal/script"
	"github.com/agentic-research/canvas/internal/session"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	watchDebounce time.Duration
	watchJSON     bool
	watchProps    string
)

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 200*time.Millisecond, "Quiet period after a change before re-running")
	watchCmd.Flags().BoolVar(&watchJSON, "json", false, "Print the tree as JSON")
	watchCmd.Flags().StringVar(&watchProps, "props", "", "Comma-separated props to show next to each node")
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch <script>",
	Short: "Re-run a request script against a fresh session whenever it changes",
	Long: `Watch a request script and, each time it is saved, apply it to a fresh
in-memory session and print the resulting tree. Rejected steps are reported
and skipped. Nothing is journaled.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := abs(args[0])
		run := func() error {
			h := cfg.Header()
			if h.Prefix == "" {
				h.Prefix = ident.NewPrefix()
			}
			snap, alloc := session.FromHeader(h)
			sess := session.New(snap, append(sessionOptions(), session.WithAllocator(alloc))...)

			reqs, err := script.Load(hostFS(), path)
			if err != nil {
				return err
			}
			out, err := script.Run(cmd.Context(), sess, reqs, true)
			report(cmd.ErrOrStderr(), args[0], out)
			if err != nil {
				return err
			}
			return printTree(cmd.OutOrStdout(), sess.Current(), watchJSON, watchProps, false)
		}
		return watchFile(cmd.Context(), path, watchDebounce, run)
	},
}

// watchFile calls run once, then again after every burst of writes to path
// has been quiet for debounce. Errors from run are logged; watcher errors and
// cancellation of ctx end the watch.
func watchFile(ctx context.Context, path string, debounce time.Duration, run func() error) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer func() { _ = w.Close() }()

	// Editors often replace the file instead of writing it, so watch the
	// directory and filter by name.
	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	rerun := func() {
		if err := run(); err != nil {
			logger.Warn("script run failed", "script", path, "error", err)
		}
	}
	rerun()

	g, ctx := errgroup.WithContext(ctx)
	changed := make(chan struct{}, 1)

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev, ok := <-w.Events:
				if !ok {
					return nil
				}
				if filepath.Clean(ev.Name) != path || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				select {
				case changed <- struct{}{}:
				default:
				}
			case err, ok := <-w.Errors:
				if !ok {
					return nil
				}
				return fmt.Errorf("watch %s: %w", path, err)
			}
		}
	})

	g.Go(func() error {
		var quiet <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-changed:
				quiet = time.After(debounce)
			case <-quiet:
				quiet = nil
				rerun()
			}
		}
	})

	return g.Wait()
}
