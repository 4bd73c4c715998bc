package cmd

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/agentic-research/canvas/api"
	"github.com/agentic-research/canvas/internal/journal"
	"github.com/agentic-research/canvas/internal/session"
	"github.com/agentic-research/canvas/internal/view"
	"github.com/spf13/cobra"
)

var (
	journalList  bool
	journalStats bool
	journalJSON  bool
)

func init() {
	f := journalReplayCmd.Flags()
	f.BoolVar(&journalList, "list", false, "Print every entry before the tree")
	f.BoolVar(&journalStats, "stats", false, "Print component counts per kind (and request counts for sqlite journals)")
	f.BoolVar(&journalJSON, "json", false, "Print the tree as JSON")

	journalCmd.AddCommand(journalReplayCmd)
	rootCmd.AddCommand(journalCmd)
}

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect session journals",
}

var journalReplayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Rebuild the session recorded in a journal without modifying it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		if cfg.Journal.Path == "" {
			return fmt.Errorf("no journal configured (use --journal)")
		}
		ctx := cmd.Context()
		j, err := journal.Open(cfg.Journal.Driver, abs(cfg.Journal.Path), logger)
		if err != nil {
			return err
		}
		defer func() { err = errors.Join(err, j.Close()) }()

		h, err := j.Header(ctx)
		if errors.Is(err, journal.ErrNoHeader) {
			return fmt.Errorf("journal %s is empty", cfg.Journal.Path)
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if journalList {
			if err := listEntries(cmd, j, out); err != nil {
				return err
			}
		}

		snap, alloc := session.FromHeader(h)
		sess := session.New(snap, append(sessionOptions(), session.WithAllocator(alloc))...)
		n, err := sess.Replay(ctx, j, 0)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "replayed %d entries (prefix %s, version %d)\n", n, h.Prefix, sess.Current().Version())

		if journalStats {
			if err := printStats(cmd, j, sess, out); err != nil {
				return err
			}
		}
		return printTree(out, sess.Current(), journalJSON, "", true)
	},
}

func listEntries(cmd *cobra.Command, j journal.Journal, out io.Writer) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tTIME\tOP\tREQUEST")
	err := j.Replay(cmd.Context(), 0, func(e journal.Entry) error {
		req := "-"
		if e.Request != nil {
			req = fmt.Sprintf("%s %s", e.Request.Type, e.Request.Payload)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", e.Seq, e.Time.Format(time.RFC3339), e.Op, req)
		return nil
	})
	if err != nil {
		return err
	}
	return tw.Flush()
}

func printStats(cmd *cobra.Command, j journal.Journal, sess *session.Session, out io.Writer) error {
	ix := view.NewIndex(sess.Current())
	kinds := ix.Kinds()
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tCOMPONENTS")
	for _, k := range ix.KindNames() {
		fmt.Fprintf(tw, "%s\t%d\n", k, kinds[k])
	}
	if sq, ok := j.(*journal.SQLite); ok {
		counts, err := sq.CountByKind(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(tw, "\nREQUEST\tENTRIES")
		for _, k := range sortedKinds(counts) {
			fmt.Fprintf(tw, "%s\t%d\n", k, counts[k])
		}
	}
	return tw.Flush()
}

func sortedKinds(counts map[api.RequestKind]int) []api.RequestKind {
	var out []api.RequestKind
	for _, k := range api.Kinds {
		if counts[k] > 0 {
			out = append(out, k)
		}
	}
	return out
}
