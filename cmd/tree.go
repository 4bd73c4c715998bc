package cmd

import (
	"errors"
	"fmt"

	"github.com/agentic-research/canvas/internal/view"
	"github.com/spf13/cobra"
)

var (
	treeJSON     bool
	treeProps    string
	treeDetached bool

	queryScripts string
	queryKind    string
	queryUnder   string
)

func init() {
	treeCmd.Flags().BoolVar(&treeJSON, "json", false, "Print the tree as JSON")
	treeCmd.Flags().StringVar(&treeProps, "props", "", "Comma-separated props to show next to each node")
	treeCmd.Flags().BoolVar(&treeDetached, "detached", false, "Also show detached subtrees")

	queryCmd.Flags().StringVar(&queryScripts, "script", "", "Comma-separated scripts to apply before querying")
	queryCmd.Flags().StringVar(&queryKind, "kind", "", "List ids of this kind instead of evaluating a JSONPath")
	queryCmd.Flags().StringVar(&queryUnder, "under", "", "With --kind, restrict to the subtree of this id")

	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(queryCmd)
}

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the current tree of the journaled session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		sess, closeJournal, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { err = errors.Join(err, closeJournal()) }()
		return printTree(cmd.OutOrStdout(), sess.Current(), treeJSON, treeProps, treeDetached)
	},
}

var queryCmd = &cobra.Command{
	Use:   "query [jsonpath]",
	Short: "Evaluate a JSONPath over the tree, or list components by kind",
	Long: `Evaluate a JSONPath expression over {"root": <nested document>, "nodes":
<flat list>} and print the matches as JSON. With --kind, print the ids of
every live component of that kind in pre-order instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		if (len(args) == 0) == (queryKind == "") {
			return fmt.Errorf("query takes either a JSONPath argument or --kind")
		}
		ctx := cmd.Context()
		sess, closeJournal, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer func() { err = errors.Join(err, closeJournal()) }()
		if err := runScripts(ctx, cmd, sess, splitList(queryScripts)); err != nil {
			return err
		}

		snap := sess.Current()
		if queryKind != "" {
			ix := view.NewIndex(snap)
			if queryUnder != "" {
				if !snap.Has(queryUnder) {
					return fmt.Errorf("no live component %q", queryUnder)
				}
				return writeJSON(cmd.OutOrStdout(), ix.Within(queryUnder, queryKind))
			}
			return writeJSON(cmd.OutOrStdout(), ix.OfKind(queryKind))
		}
		res, err := view.Query(snap, args[0])
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), res)
	},
}
