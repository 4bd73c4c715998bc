package cmd

import (
	"fmt"

	"github.com/agentic-research/canvas/internal/ident"
	"github.com/agentic-research/canvas/internal/lint"
	"github.com/agentic-research/canvas/internal/script"
	"github.com/agentic-research/canvas/internal/session"
	"github.com/spf13/cobra"
)

var lintStrict bool

func init() {
	lintCmd.Flags().BoolVar(&lintStrict, "strict", false, "Treat warnings as errors")
	rootCmd.AddCommand(lintCmd)
}

var lintCmd = &cobra.Command{
	Use:   "lint <script>...",
	Short: "Dry-run request scripts and report rejected or ineffective steps",
	Long: `Apply each script to a fresh in-memory session (built from the configured
root and layout) and report every step the engine would reject, every step
that would change nothing, and explicit ids that clash with allocated ones.
Scripts are checked independently. Nothing is journaled.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var errs, warns int
		for _, p := range args {
			reqs, err := script.Load(hostFS(), abs(p))
			if err != nil {
				return err
			}
			h := cfg.Header()
			if h.Prefix == "" {
				h.Prefix = ident.NewPrefix()
			}
			snap, alloc := session.FromHeader(h)
			for _, d := range lint.Lint(snap, alloc, reqs) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", p, d)
				if d.Severity == lint.Error {
					errs++
				} else {
					warns++
				}
			}
		}
		if errs > 0 || (lintStrict && warns > 0) {
			return fmt.Errorf("lint: %d errors, %d warnings", errs, warns)
		}
		return nil
	},
}
