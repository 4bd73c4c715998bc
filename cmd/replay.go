package cmd

import (
	"context"
	"errors"

	"github.com/agentic-research/canvas/internal/script"
	"github.com/agentic-research/canvas/internal/session"
	"github.com/spf13/cobra"
)

var (
	keepGoing  bool
	replayJSON bool
	showProps  string
)

func init() {
	replayCmd.Flags().BoolVarP(&keepGoing, "keep-going", "k", false, "Continue past rejected requests")
	replayCmd.Flags().BoolVar(&replayJSON, "json", false, "Print the resulting tree as JSON")
	replayCmd.Flags().StringVar(&showProps, "props", "", "Comma-separated props to show next to each node")
	rootCmd.AddCommand(replayCmd)
}

var replayCmd = &cobra.Command{
	Use:   "replay <script>...",
	Short: "Apply request scripts in order and print the resulting tree",
	Long: `Apply request scripts (JSON array, JSON lines or YAML) to a session and
print the resulting tree. With --journal the session is restored first and
every accepted edit is recorded.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ctx := cmd.Context()
		sess, closeJournal, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer func() { err = errors.Join(err, closeJournal()) }()

		if err := runScripts(ctx, cmd, sess, args); err != nil {
			return err
		}
		return printTree(cmd.OutOrStdout(), sess.Current(), replayJSON, showProps, false)
	},
}

func runScripts(ctx context.Context, cmd *cobra.Command, sess *session.Session, paths []string) error {
	fsys := hostFS()
	for _, p := range paths {
		reqs, err := script.Load(fsys, abs(p))
		if err != nil {
			return err
		}
		out, err := script.Run(ctx, sess, reqs, keepGoing)
		report(cmd.ErrOrStderr(), p, out)
		if err != nil {
			return err
		}
		logger.Debug("script applied", "script", p, "steps", len(out))
	}
	return nil
}
